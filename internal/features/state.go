package features

import "fmt"

// State is the serializable form of a fitted Vectorizer.
type State struct {
	Options Options   `json:"options"`
	Terms   []string  `json:"terms"`
	IDF     []float64 `json:"idf"`
	NDocs   int       `json:"n_docs"`
}

// State snapshots the vectorizer.
func (v *Vectorizer) State() State {
	return State{
		Options: v.opt,
		Terms:   append([]string(nil), v.terms...),
		IDF:     append([]float64(nil), v.idf...),
		NDocs:   v.nDocs,
	}
}

// FromState rebuilds a vectorizer from a snapshot.
func FromState(s State) (*Vectorizer, error) {
	if len(s.Terms) != len(s.IDF) {
		return nil, fmt.Errorf("vectorizer state has %d terms but %d idf weights", len(s.Terms), len(s.IDF))
	}
	if err := s.Options.Validate(); err != nil {
		return nil, fmt.Errorf("vectorizer state: %w", err)
	}
	for i := 1; i < len(s.Terms); i++ {
		if s.Terms[i-1] >= s.Terms[i] {
			return nil, fmt.Errorf("vectorizer state terms not in lexical order at %d", i)
		}
	}
	v := &Vectorizer{
		opt:   s.Options,
		terms: append([]string(nil), s.Terms...),
		idf:   append([]float64(nil), s.IDF...),
		nDocs: s.NDocs,
	}
	v.buildIndex()
	return v, nil
}

// Package features converts token sequences into TF-IDF vectors.
package features

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Options configures vocabulary learning.
type Options struct {
	NgramMin    int     `json:"ngram_min" yaml:"ngram_min" mapstructure:"ngram_min"`
	NgramMax    int     `json:"ngram_max" yaml:"ngram_max" mapstructure:"ngram_max"`
	MinDF       float64 `json:"min_df" yaml:"min_df" mapstructure:"min_df"`
	MaxDF       float64 `json:"max_df" yaml:"max_df" mapstructure:"max_df"`
	MaxFeatures int     `json:"max_features" yaml:"max_features" mapstructure:"max_features"`
	SublinearTF bool    `json:"sublinear_tf" yaml:"sublinear_tf" mapstructure:"sublinear_tf"`
}

// DefaultOptions returns unigrams+bigrams, min_df 2, max_df 0.95 and a
// 20k vocabulary cap.
func DefaultOptions() Options {
	return Options{NgramMin: 1, NgramMax: 2, MinDF: 2, MaxDF: 0.95, MaxFeatures: 20000}
}

// Validate checks option ranges.
func (o Options) Validate() error {
	if o.NgramMin < 1 || o.NgramMax < o.NgramMin {
		return fmt.Errorf("invalid ngram range [%d,%d]", o.NgramMin, o.NgramMax)
	}
	if o.MinDF <= 0 || (o.MinDF > 1 && o.MinDF != math.Trunc(o.MinDF)) {
		return fmt.Errorf("invalid min_df %v: want a proportion in (0,1) or a whole document count", o.MinDF)
	}
	if o.MaxDF <= 0 || o.MaxDF > 1 {
		return fmt.Errorf("invalid max_df %v: want a proportion in (0,1]", o.MaxDF)
	}
	if o.MaxFeatures < 0 {
		return fmt.Errorf("invalid max_features %d", o.MaxFeatures)
	}
	return nil
}

// Vectorizer holds a fitted vocabulary. It is read-only after Fit and safe
// for concurrent Transform calls.
type Vectorizer struct {
	opt   Options
	terms []string
	index map[string]int
	idf   []float64
	nDocs int
}

// Fit learns the vocabulary and idf weights from corpus.
func Fit(corpus [][]string, opt Options) (*Vectorizer, error) {
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	if len(corpus) == 0 {
		return nil, fmt.Errorf("cannot fit vectorizer on an empty corpus")
	}
	df := make(map[string]int)
	tf := make(map[string]int)
	for _, doc := range corpus {
		seen := make(map[string]struct{})
		for _, g := range ngrams(doc, opt.NgramMin, opt.NgramMax) {
			tf[g]++
			if _, ok := seen[g]; !ok {
				seen[g] = struct{}{}
				df[g]++
			}
		}
	}
	n := len(corpus)
	minDocs := opt.MinDF
	if opt.MinDF < 1 {
		minDocs = math.Ceil(opt.MinDF * float64(n))
	}
	maxDocs := math.Floor(opt.MaxDF * float64(n))
	if opt.MaxDF == 1 {
		maxDocs = float64(n)
	}

	kept := make([]string, 0, len(df))
	for term, d := range df {
		if float64(d) < minDocs || float64(d) > maxDocs {
			continue
		}
		kept = append(kept, term)
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("no terms remain after document-frequency pruning (n_docs=%d, min_df=%v, max_df=%v)", n, opt.MinDF, opt.MaxDF)
	}
	if opt.MaxFeatures > 0 && len(kept) > opt.MaxFeatures {
		sort.Slice(kept, func(i, j int) bool {
			if tf[kept[i]] != tf[kept[j]] {
				return tf[kept[i]] > tf[kept[j]]
			}
			return kept[i] < kept[j]
		})
		kept = kept[:opt.MaxFeatures]
	}
	sort.Strings(kept)

	v := &Vectorizer{opt: opt, terms: kept, nDocs: n}
	v.idf = make([]float64, len(kept))
	for i, term := range kept {
		v.idf[i] = smoothIDF(n, df[term])
	}
	v.buildIndex()
	return v, nil
}

func smoothIDF(n, df int) float64 {
	return math.Log(float64(1+n)/float64(1+df)) + 1
}

func (v *Vectorizer) buildIndex() {
	v.index = make(map[string]int, len(v.terms))
	for i, t := range v.terms {
		v.index[t] = i
	}
}

// Dim is the vocabulary size and the length of every dense vector.
func (v *Vectorizer) Dim() int { return len(v.terms) }

// Terms returns the vocabulary in index order.
func (v *Vectorizer) Terms() []string { return append([]string(nil), v.terms...) }

// Lookup returns the index of term.
func (v *Vectorizer) Lookup(term string) (int, bool) {
	i, ok := v.index[term]
	return i, ok
}

// Options returns the options the vectorizer was fitted with.
func (v *Vectorizer) Options() Options { return v.opt }

// Transform maps tokens to an L2-normalized TF-IDF vector. N-grams outside
// the vocabulary contribute nothing.
func (v *Vectorizer) Transform(tokens []string) SparseVector {
	counts := make(map[int]float64)
	for _, g := range ngrams(tokens, v.opt.NgramMin, v.opt.NgramMax) {
		if i, ok := v.index[g]; ok {
			counts[i]++
		}
	}
	sv := SparseVector{Dim: len(v.terms)}
	if len(counts) == 0 {
		return sv
	}
	sv.Indices = make([]int, 0, len(counts))
	for i := range counts {
		sv.Indices = append(sv.Indices, i)
	}
	sort.Ints(sv.Indices)
	sv.Values = make([]float64, len(sv.Indices))
	var norm float64
	for k, i := range sv.Indices {
		tf := counts[i]
		if v.opt.SublinearTF {
			tf = 1 + math.Log(tf)
		}
		w := tf * v.idf[i]
		sv.Values[k] = w
		norm += w * w
	}
	norm = math.Sqrt(norm)
	for k := range sv.Values {
		sv.Values[k] /= norm
	}
	return sv
}

// TransformAll transforms every document.
func (v *Vectorizer) TransformAll(docs [][]string) []SparseVector {
	out := make([]SparseVector, len(docs))
	for i, d := range docs {
		out[i] = v.Transform(d)
	}
	return out
}

func ngrams(tokens []string, lo, hi int) []string {
	var out []string
	for n := lo; n <= hi; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			if n == 1 {
				out = append(out, tokens[i])
				continue
			}
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

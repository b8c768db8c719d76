package textnorm

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/medtext-cli/internal/utils"
)

// StopwordSet is an immutable set of lowercase stopwords.
type StopwordSet struct {
	words map[string]struct{}
}

// NewStopwordSet builds a set from words. Entries are folded to lowercase
// and trimmed; blanks are ignored.
func NewStopwordSet(words ...[]string) StopwordSet {
	m := make(map[string]struct{})
	for _, list := range words {
		for _, w := range list {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
	}
	return StopwordSet{words: m}
}

// Contains reports whether w is a stopword.
func (s StopwordSet) Contains(w string) bool {
	_, ok := s.words[w]
	return ok
}

// Len returns the number of words in the set.
func (s StopwordSet) Len() int { return len(s.words) }

// List returns the words sorted alphabetically.
func (s StopwordSet) List() []string {
	out := make([]string, 0, len(s.words))
	for w := range s.words {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// Union returns a new set containing the words of both sets.
func (s StopwordSet) Union(other StopwordSet) StopwordSet {
	return NewStopwordSet(s.List(), other.List())
}

// LoadList reads a YAML sequence of strings.
func LoadList(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stopword list not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read stopword list: %w", err)
	}
	var words []string
	if err := yaml.Unmarshal(b, &words); err != nil {
		return nil, fmt.Errorf("parse stopword list: %w", err)
	}
	return words, nil
}

// SaveList writes words as a sorted, deduplicated YAML sequence.
func SaveList(path string, words []string) error {
	list := NewStopwordSet(words).List()
	b, err := yaml.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshal stopword list: %w", err)
	}
	return utils.SafeWriteFile(path, b)
}

// DefaultEnglish returns the general English stopword list (NLTK "english",
// apostrophes removed since punctuation is stripped before filtering).
func DefaultEnglish() []string {
	return append([]string(nil), englishStopwords...)
}

// DefaultDomain returns boilerplate vocabulary common to scientific abstracts
// that carries little signal about the article's clinical group.
func DefaultDomain() []string {
	return append([]string(nil), domainStopwords...)
}

var englishStopwords = []string{
	"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you", "youre", "youve", "youll", "youd",
	"your", "yours", "yourself", "yourselves", "he", "him", "his", "himself", "she", "shes", "her", "hers",
	"herself", "it", "its", "itself", "they", "them", "their", "theirs", "themselves", "what", "which",
	"who", "whom", "this", "that", "thatll", "these", "those", "am", "is", "are", "was", "were", "be",
	"been", "being", "have", "has", "had", "having", "do", "does", "did", "doing", "a", "an", "the", "and",
	"but", "if", "or", "because", "as", "until", "while", "of", "at", "by", "for", "with", "about",
	"against", "between", "into", "through", "during", "before", "after", "above", "below", "to", "from",
	"up", "down", "in", "out", "on", "off", "over", "under", "again", "further", "then", "once", "here",
	"there", "when", "where", "why", "how", "all", "any", "both", "each", "few", "more", "most", "other",
	"some", "such", "no", "nor", "not", "only", "own", "same", "so", "than", "too", "very", "s", "t", "can",
	"will", "just", "don", "dont", "should", "shouldve", "now", "d", "ll", "m", "o", "re", "ve", "y", "ain",
	"aren", "arent", "couldn", "couldnt", "didn", "didnt", "doesn", "doesnt", "hadn", "hadnt", "hasn",
	"hasnt", "haven", "havent", "isn", "isnt", "ma", "mightn", "mightnt", "mustn", "mustnt", "needn",
	"neednt", "shan", "shant", "shouldn", "shouldnt", "wasn", "wasnt", "weren", "werent", "won", "wont",
	"wouldn", "wouldnt",
}

var domainStopwords = []string{
	"abstract", "aim", "analysis", "associated", "background", "conclusion", "conclusions", "data",
	"effect", "finding", "group", "however", "included", "increased", "method", "methods", "objective",
	"patient", "patients", "purpose", "result", "results", "showed", "significant", "significantly",
	"study", "studies", "use", "used", "using", "also", "among", "may", "compared", "total", "two",
	"one", "three", "year", "years",
}

// Package textnorm turns raw article text into normalized tokens.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultMinTokenLen drops tokens of one or two letters.
const DefaultMinTokenLen = 3

// Options controls token filtering.
type Options struct {
	MinTokenLen int  `json:"min_token_len" yaml:"min_token_len" mapstructure:"min_token_len"`
	Lemmatize   bool `json:"lemmatize" yaml:"lemmatize" mapstructure:"lemmatize"`
}

// DefaultOptions returns the options used by the train pipeline.
func DefaultOptions() Options {
	return Options{MinTokenLen: DefaultMinTokenLen, Lemmatize: true}
}

// Normalizer is safe for concurrent use; it holds no mutable state.
type Normalizer struct {
	stop StopwordSet
	opt  Options
}

// New returns a Normalizer for the given stopword set.
func New(stop StopwordSet, opt Options) *Normalizer {
	if opt.MinTokenLen < 1 {
		opt.MinTokenLen = 1
	}
	return &Normalizer{stop: stop, opt: opt}
}

// Stopwords returns the set the normalizer filters with.
func (n *Normalizer) Stopwords() StopwordSet { return n.stop }

// Options returns the normalizer's options.
func (n *Normalizer) Options() Options { return n.opt }

// Normalize folds case, strips diacritics and non-letters, removes
// stopwords and lemmatizes. Feeding the joined output back in returns the
// same tokens.
func (n *Normalizer) Normalize(text string) []string {
	words := Tokenize(text)
	out := words[:0]
	for _, w := range words {
		if n.stop.Contains(w) {
			continue
		}
		if n.opt.Lemmatize {
			w = Lemmatize(w)
		}
		if n.keep(w) {
			out = append(out, w)
		}
	}
	return out
}

// NormalizeJoined is Normalize with the tokens joined by single spaces.
func (n *Normalizer) NormalizeJoined(text string) string {
	return strings.Join(n.Normalize(text), " ")
}

func (n *Normalizer) keep(w string) bool {
	return len([]rune(w)) >= n.opt.MinTokenLen && !n.stop.Contains(w)
}

// Tokenize folds case, strips diacritics and splits on every non-letter
// rune. No filtering is applied.
func Tokenize(text string) []string {
	folded := cases.Fold().String(text)
	// transformers carry state, so build a fresh chain per call
	strip := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(strip, folded)
	if err != nil {
		plain = folded
	}
	return strings.FieldsFunc(plain, func(r rune) bool { return !unicode.IsLetter(r) })
}

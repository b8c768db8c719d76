// Package bundle persists a fitted classifier together with the exact
// vectorizer and normalizer state that produced its inputs.
package bundle

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/medtext-cli/internal/classify"
	"github.com/KaramelBytes/medtext-cli/internal/evaluation"
	"github.com/KaramelBytes/medtext-cli/internal/features"
	"github.com/KaramelBytes/medtext-cli/internal/textnorm"
	"github.com/KaramelBytes/medtext-cli/internal/utils"
)

// Version is the bundle format version written by Save.
const Version = 1

// File names inside an output directory.
const (
	ModelFile     = "model.json"
	StopwordsFile = "stopwords.yaml"
)

// Meta describes how the bundle was produced.
type Meta struct {
	Version   int                `json:"version"`
	RunID     string             `json:"run_id"`
	CreatedAt time.Time          `json:"created_at"`
	Dataset   string             `json:"dataset,omitempty"`
	Family    classify.Family    `json:"family"`
	Params    classify.Params    `json:"params"`
	Scoring   evaluation.Scoring `json:"scoring"`
	CVScore   float64            `json:"cv_score"`
	Labels    []string           `json:"labels"`
	Dim       int                `json:"dim"`
}

// NormalizerState is the persisted normalizer configuration.
type NormalizerState struct {
	Stopwords []string         `json:"stopwords"`
	Options   textnorm.Options `json:"options"`
}

// Bundle pairs a classifier with its vectorizer and normalizer. The pair
// is only ever written and read as one document.
type Bundle struct {
	Meta       Meta            `json:"meta"`
	Normalizer NormalizerState `json:"normalizer"`
	Vectorizer features.State  `json:"vectorizer"`
	Classifier classify.State  `json:"classifier"`

	norm  *textnorm.Normalizer
	vec   *features.Vectorizer
	model classify.Model
}

// New assembles a bundle from fitted parts. RunID and CreatedAt are filled
// when empty.
func New(meta Meta, norm *textnorm.Normalizer, vec *features.Vectorizer, model classify.Model) (*Bundle, error) {
	if model.Dim() != vec.Dim() {
		return nil, &ArtifactMismatchError{VocabularySize: vec.Dim(), ModelFeatures: model.Dim()}
	}
	meta.Version = Version
	if meta.RunID == "" {
		meta.RunID = uuid.NewString()
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}
	meta.Family = model.Family()
	meta.Params = model.Params()
	meta.Dim = vec.Dim()
	st := model.State()
	if len(meta.Labels) != st.Classes {
		return nil, fmt.Errorf("bundle: %d labels for a %d-class model", len(meta.Labels), st.Classes)
	}
	return &Bundle{
		Meta:       meta,
		Normalizer: NormalizerState{Stopwords: norm.Stopwords().List(), Options: norm.Options()},
		Vectorizer: vec.State(),
		Classifier: st,
		norm:       norm,
		vec:        vec,
		model:      model,
	}, nil
}

// Save writes the bundle as one JSON document via temp file + rename.
func Save(path string, b *Bundle) error {
	if b == nil {
		return fmt.Errorf("nil bundle")
	}
	if len(b.Vectorizer.Terms) != b.Classifier.Dim {
		return &ArtifactMismatchError{VocabularySize: len(b.Vectorizer.Terms), ModelFeatures: b.Classifier.Dim}
	}
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	return utils.SafeWriteFile(path, data)
}

// Load reads a bundle and restores its parts. A classifier whose feature
// dimension differs from the vocabulary size is an *ArtifactMismatchError.
func Load(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("model bundle not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read bundle: %w", err)
	}
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	if b.Meta.Version == 0 || b.Meta.Version > Version {
		return nil, fmt.Errorf("unsupported bundle version %d (this build reads up to %d)", b.Meta.Version, Version)
	}
	if n := len(b.Vectorizer.Terms); n != b.Classifier.Dim || n != b.Meta.Dim {
		return nil, &ArtifactMismatchError{VocabularySize: n, ModelFeatures: b.Classifier.Dim}
	}
	if len(b.Meta.Labels) != b.Classifier.Classes {
		return nil, fmt.Errorf("bundle: %d labels for a %d-class model", len(b.Meta.Labels), b.Classifier.Classes)
	}
	if b.vec, err = features.FromState(b.Vectorizer); err != nil {
		return nil, err
	}
	if b.model, err = classify.FromState(b.Classifier); err != nil {
		return nil, err
	}
	b.norm = textnorm.New(textnorm.NewStopwordSet(b.Normalizer.Stopwords), b.Normalizer.Options)
	return &b, nil
}

// Prediction is the outcome of classifying one text.
type Prediction struct {
	Label string `json:"label"`
	// Tokens is the normalized token count; KnownTerms counts non-zero features.
	Tokens     int `json:"tokens"`
	KnownTerms int `json:"known_terms"`
}

// Predict normalizes, vectorizes and classifies text with the paired state.
func (b *Bundle) Predict(text string) Prediction {
	tokens := b.norm.Normalize(text)
	x := b.vec.Transform(tokens)
	return Prediction{
		Label:      b.Meta.Labels[b.model.Predict(x)],
		Tokens:     len(tokens),
		KnownTerms: x.NNZ(),
	}
}

// TextNormalizer returns the restored normalizer.
func (b *Bundle) TextNormalizer() *textnorm.Normalizer { return b.norm }

// ModelPath is the bundle location inside an output directory.
func ModelPath(dir string) string { return filepath.Join(dir, ModelFile) }

// StopwordsPath is where the stopword list used for training is re-emitted.
func StopwordsPath(dir string) string { return filepath.Join(dir, StopwordsFile) }

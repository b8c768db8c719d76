package bundle

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/medtext-cli/internal/classify"
	"github.com/KaramelBytes/medtext-cli/internal/evaluation"
	"github.com/KaramelBytes/medtext-cli/internal/features"
	"github.com/KaramelBytes/medtext-cli/internal/textnorm"
)

var texts = []string{
	"Cancer risk in smokers and lung tumor growth",
	"Chemotherapy response in breast cancer tumors",
	"Heart failure and cardiac arrest outcomes",
	"Coronary artery disease and heart valve repair",
	"Tumor markers predict cancer relapse",
	"Cardiac rehabilitation after heart attack",
}

var labels = []int{0, 0, 1, 1, 0, 1}

func fitted(t *testing.T, family classify.Family, p classify.Params) (*textnorm.Normalizer, *features.Vectorizer, classify.Model) {
	t.Helper()
	norm := textnorm.New(textnorm.NewStopwordSet(textnorm.DefaultEnglish(), []string{"risk"}), textnorm.DefaultOptions())
	docs := make([][]string, len(texts))
	for i, s := range texts {
		docs[i] = norm.Normalize(s)
	}
	vec, err := features.Fit(docs, features.Options{NgramMin: 1, NgramMax: 2, MinDF: 1, MaxDF: 1})
	require.NoError(t, err)
	m, err := classify.New(family, p)
	require.NoError(t, err)
	require.NoError(t, m.Fit(vec.TransformAll(docs), labels, 2, 5))
	return norm, vec, m
}

func meta() Meta {
	return Meta{Dataset: "articles.csv", Scoring: evaluation.Accuracy, CVScore: 0.9, Labels: []string{"Oncological", "Cardiovascular"}}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	held := []string{"New tumor therapy for smokers", "Heart valve surgery outcomes", "unrelated words only", ""}
	for _, tc := range []struct {
		family classify.Family
		params classify.Params
	}{
		{classify.NaiveBayes, classify.Params{Alpha: 0.5}},
		{classify.LogisticRegression, classify.Params{C: 10, Epochs: 50, LearningRate: 1}},
		{classify.LinearSVM, classify.Params{C: 1, Epochs: 5}},
		{classify.RandomForest, classify.Params{Trees: 5, MinSamplesLeaf: 1}},
	} {
		t.Run(string(tc.family), func(t *testing.T) {
			norm, vec, m := fitted(t, tc.family, tc.params)
			b, err := New(meta(), norm, vec, m)
			require.NoError(t, err)
			assert.NotEmpty(t, b.Meta.RunID)
			assert.Equal(t, vec.Dim(), b.Meta.Dim)

			path := filepath.Join(t.TempDir(), "out", ModelFile)
			require.NoError(t, Save(path, b))
			_, err = os.Stat(path + ".tmp")
			assert.True(t, os.IsNotExist(err), "temp file removed")

			got, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, b.Meta.RunID, got.Meta.RunID)
			assert.Equal(t, tc.family, got.Meta.Family)
			for _, s := range held {
				assert.Equal(t, b.Predict(s), got.Predict(s), s)
			}
		})
	}
}

func TestPredictUsesPairedStopwords(t *testing.T) {
	norm, vec, m := fitted(t, classify.NaiveBayes, classify.Params{Alpha: 1})
	b, err := New(meta(), norm, vec, m)
	require.NoError(t, err)
	assert.Contains(t, b.Normalizer.Stopwords, "risk")

	p := b.Predict("Cancer risk in smokers")
	assert.Equal(t, "Oncological", p.Label)
	assert.Equal(t, 2, p.Tokens)
	assert.Equal(t, 3, p.KnownTerms, "cancer, smoker and the bigram")
}

func TestNewRejectsMismatch(t *testing.T) {
	norm, vec, _ := fitted(t, classify.NaiveBayes, classify.Params{Alpha: 1})
	other, err := classify.New(classify.NaiveBayes, classify.Params{Alpha: 1})
	require.NoError(t, err)
	x := []features.SparseVector{{Dim: 3, Indices: []int{0}, Values: []float64{1}}, {Dim: 3, Indices: []int{2}, Values: []float64{1}}}
	require.NoError(t, other.Fit(x, []int{0, 1}, 2, 0))

	_, err = New(meta(), norm, vec, other)
	var mismatch *ArtifactMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, vec.Dim(), mismatch.VocabularySize)
	assert.Equal(t, 3, mismatch.ModelFeatures)
}

func TestLoadRejectsMismatch(t *testing.T) {
	norm, vec, m := fitted(t, classify.NaiveBayes, classify.Params{Alpha: 1})
	b, err := New(meta(), norm, vec, m)
	require.NoError(t, err)

	// drop a term behind Save's back
	b.Vectorizer.Terms = b.Vectorizer.Terms[1:]
	b.Vectorizer.IDF = b.Vectorizer.IDF[1:]
	data, err := json.Marshal(b)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), ModelFile)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = Load(path)
	var mismatch *ArtifactMismatchError
	require.True(t, errors.As(err, &mismatch), "got %v", err)
	assert.Equal(t, vec.Dim()-1, mismatch.VocabularySize)

	assert.True(t, errors.As(Save(path, b), &mismatch), "save refuses a mismatched pair")
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"meta":{"version":99}}`), 0o644))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "unsupported bundle version")
}

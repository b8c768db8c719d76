package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/medtext-cli/internal/analysis"
	"github.com/KaramelBytes/medtext-cli/internal/dataset"
	"github.com/KaramelBytes/medtext-cli/internal/features"
	"github.com/KaramelBytes/medtext-cli/internal/selection"
)

func selectionResult(t *testing.T) *selection.Result {
	t.Helper()
	onco := []string{"tumor", "cancer", "chemotherapy"}
	cardio := []string{"heart", "cardiac", "artery"}
	var docs [][]string
	var y []int
	for i := 0; i < 30; i++ {
		v := onco
		if i%2 == 1 {
			v = cardio
		}
		docs = append(docs, []string{v[i%3], v[(i+1)%3]})
		y = append(y, i%2)
	}
	opt := selection.DefaultOptions()
	opt.Folds = 3
	opt.Vectorizer = features.Options{NgramMin: 1, NgramMax: 1, MinDF: 1, MaxDF: 1}
	opt.Grids = selection.Grids{
		NaiveBayes: selection.NaiveBayesGrid{Enabled: true, Alpha: []float64{1}},
		LinearSVM:  selection.LinearSVMGrid{Enabled: true, C: []float64{1}, Epochs: 3},
	}
	res, err := selection.Select(context.Background(), docs, y, []string{"Oncological", "Cardiovascular"}, opt)
	require.NoError(t, err)
	return res
}

func TestWriteSummary(t *testing.T) {
	res := selectionResult(t)
	s := Summary{
		RunID:       "run-1",
		Dataset:     "articles.csv",
		Scoring:     res.Scoring,
		LabelPolicy: "first",
		Labels:      res.Labels,
		Counts:      Counts{Rows: 31, Used: 30, Excluded: 1, Train: len(res.TrainIdx), Test: len(res.TestIdx)},
		Families:    FamilyRecords(res),
		Candidates:  res.Candidates,
	}
	dir := t.TempDir()
	require.NoError(t, WriteSummary(dir, s))

	raw, err := os.ReadFile(filepath.Join(dir, MetricsJSON))
	require.NoError(t, err)
	var back Summary
	require.NoError(t, json.Unmarshal(raw, &back))
	require.Len(t, back.Families, 2)
	sel, ok := back.Selected()
	require.True(t, ok)
	assert.Equal(t, res.Best.Family, sel.Family)
	assert.Equal(t, 1, back.Counts.Excluded)

	md, err := os.ReadFile(filepath.Join(dir, MetricsMarkdown))
	require.NoError(t, err)
	text := string(md)
	assert.Contains(t, text, "## Families")
	assert.Contains(t, text, "Confusion matrix")
	assert.Contains(t, text, "naive_bayes(alpha=1)")
	assert.Equal(t, 1, strings.Count(text, "✓"))
}

func TestRenderCharts(t *testing.T) {
	csv := "pmid;title;abstract;source;group\n" +
		"1;Cancer risk;Smokers and cancer.;PubMed;Oncological\n" +
		"2;Heart failure in adults;Cardiac outcomes were followed for years.;Scopus;Cardiovascular\n" +
		"3;Tumor;Tumor growth.;PubMed;Oncological\n"
	ds, err := dataset.Read(strings.NewReader(csv), "a.csv", dataset.DefaultLoadOptions())
	require.NoError(t, err)
	rep := analysis.Profile(ds, analysis.DefaultOptions())

	dir := filepath.Join(t.TempDir(), "charts")
	paths, err := RenderCharts(dir, rep, selectionResult(t))
	require.NoError(t, err)

	names := map[string]bool{}
	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
		names[filepath.Base(p)] = true
	}
	for _, want := range []string{"title_length.png", "abstract_word_count.png", "sources.png", "top_groups.png", "top_words.png", "cv_scores.png"} {
		assert.True(t, names[want], want)
	}
}

func TestRenderChartsWithoutModel(t *testing.T) {
	ds := dataset.New("x", []dataset.Article{{ID: "1", Title: "same", Abstract: "same", Source: "s", Group: "g"}})
	paths, err := RenderCharts(t.TempDir(), analysis.Profile(ds, analysis.DefaultOptions()), nil)
	require.NoError(t, err)
	for _, p := range paths {
		assert.NotContains(t, p, "cv_scores")
		assert.NotContains(t, p, "length", "constant columns are skipped")
	}
}

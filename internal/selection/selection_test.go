package selection

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/medtext-cli/internal/classify"
	"github.com/KaramelBytes/medtext-cli/internal/evaluation"
	"github.com/KaramelBytes/medtext-cli/internal/features"
)

func countClasses(y []int, idx []int) map[int]int {
	out := make(map[int]int)
	for _, i := range idx {
		out[y[i]]++
	}
	return out
}

func labelsOf(sizes ...int) []int {
	var y []int
	for c, n := range sizes {
		for i := 0; i < n; i++ {
			y = append(y, c)
		}
	}
	return y
}

func TestStratifiedSplit_Proportions(t *testing.T) {
	y := labelsOf(60, 30, 10)
	train, test := StratifiedSplit(y, 0.2, 42)

	assert.Equal(t, map[int]int{0: 12, 1: 6, 2: 2}, countClasses(y, test))
	assert.Equal(t, map[int]int{0: 48, 1: 24, 2: 8}, countClasses(y, train))

	seen := make(map[int]bool)
	for _, i := range append(append([]int{}, train...), test...) {
		require.False(t, seen[i], "row %d in both splits", i)
		seen[i] = true
	}
	assert.Len(t, seen, len(y))
}

func TestStratifiedSplit_KeepsOneInTrain(t *testing.T) {
	y := labelsOf(10, 1, 2)
	train, test := StratifiedSplit(y, 0.5, 1)
	tr := countClasses(y, train)
	assert.Equal(t, 1, tr[1])
	assert.Equal(t, 1, tr[2])
	assert.Equal(t, 1, countClasses(y, test)[2])
}

func TestStratifiedSplit_Deterministic(t *testing.T) {
	y := labelsOf(20, 20)
	a1, b1 := StratifiedSplit(y, 0.25, 7)
	a2, b2 := StratifiedSplit(y, 0.25, 7)
	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)
	_, b3 := StratifiedSplit(y, 0.25, 8)
	assert.NotEqual(t, b1, b3)
}

func TestStratifiedKFold(t *testing.T) {
	y := labelsOf(11, 7, 3)
	folds := StratifiedKFold(y, 5, 3)
	require.Len(t, folds, 5)

	seen := make(map[int]int)
	minSize, maxSize := len(y), 0
	for _, f := range folds {
		minSize = min(minSize, len(f))
		maxSize = max(maxSize, len(f))
		for _, i := range f {
			seen[i]++
		}
		counts := countClasses(y, f)
		assert.GreaterOrEqual(t, counts[0], 2)
		assert.LessOrEqual(t, counts[0], 3)
	}
	assert.Len(t, seen, len(y))
	for i, n := range seen {
		assert.Equal(t, 1, n, "row %d", i)
	}
	assert.LessOrEqual(t, maxSize-minSize, 1)
	assert.Equal(t, []int{0, 2, 4}, complement(5, []int{1, 3}))
}

// two well separated topics
func corpus(n int) ([][]string, []int, []string) {
	onco := []string{"tumor", "cancer", "chemotherapy", "oncology", "carcinoma", "metastasis"}
	cardio := []string{"heart", "cardiac", "artery", "infarction", "coronary", "valve"}
	var docs [][]string
	var y []int
	for i := 0; i < n; i++ {
		vocab := onco
		if i%2 == 1 {
			vocab = cardio
		}
		doc := []string{"clinical"}
		for j := 0; j < 3; j++ {
			doc = append(doc, vocab[(i+j*2)%len(vocab)])
		}
		docs = append(docs, doc)
		y = append(y, i%2)
	}
	return docs, y, []string{"Oncological", "Cardiovascular"}
}

func testOptions() Options {
	opt := DefaultOptions()
	opt.Vectorizer = features.Options{NgramMin: 1, NgramMax: 2, MinDF: 1, MaxDF: 1}
	opt.Grids = Grids{
		NaiveBayes:         NaiveBayesGrid{Enabled: true, Alpha: []float64{1, 0.1}},
		LogisticRegression: LogisticRegressionGrid{Enabled: true, C: []float64{10}, Epochs: 30, LearningRate: 1},
		LinearSVM:          LinearSVMGrid{Enabled: true, C: []float64{1}, Epochs: 5},
		RandomForest:       RandomForestGrid{Enabled: true, Trees: []int{5}, MaxDepth: []int{0}, MinSamplesLeaf: 1},
	}
	return opt
}

func TestSelect_TieBreakPrefersSimplestFirstEntry(t *testing.T) {
	docs, y, labels := corpus(60)
	res, err := Select(context.Background(), docs, y, labels, testOptions())
	require.NoError(t, err)

	assert.Equal(t, 1.0, res.CVScore)
	assert.Equal(t, classify.NaiveBayes, res.Best.Family)
	assert.Equal(t, 0, res.Best.Index)
	assert.Equal(t, 1.0, res.Test.Accuracy)
	assert.Equal(t, classify.NaiveBayes, res.Model.Family())
	assert.Equal(t, res.Vectorizer.Dim(), res.Model.Dim())
	assert.Len(t, res.Candidates, 5)
	assert.Len(t, res.Families, 4)
	assert.Len(t, res.TestIdx, 10)

	opt := testOptions()
	opt.Grids.NaiveBayes.Enabled = false
	res, err = Select(context.Background(), docs, y, labels, opt)
	require.NoError(t, err)
	assert.Equal(t, classify.LogisticRegression, res.Best.Family)
}

func TestSelect_SameResultForAnyWorkerCount(t *testing.T) {
	docs, y, labels := corpus(50)
	// make it noisy so scores differ across candidates
	for i := 0; i < len(docs); i += 7 {
		y[i] = 1 - y[i]
	}
	opt := testOptions()
	opt.Scoring = evaluation.MacroF1

	opt.Workers = 1
	a, err := Select(context.Background(), docs, y, labels, opt)
	require.NoError(t, err)
	opt.Workers = 4
	b, err := Select(context.Background(), docs, y, labels, opt)
	require.NoError(t, err)

	assert.Equal(t, a.Best, b.Best)
	assert.Equal(t, a.CVScore, b.CVScore)
	assert.Equal(t, a.Candidates, b.Candidates)
	assert.Equal(t, a.Test, b.Test)
	assert.Equal(t, a.Model.State(), b.Model.State())
}

func TestSelect_ConfigurationErrors(t *testing.T) {
	docs, y, labels := corpus(20)
	cases := []struct {
		name  string
		mut   func(*Options)
		field string
	}{
		{"ratio", func(o *Options) { o.TestRatio = 1.5 }, "selection.test_ratio"},
		{"zero ratio", func(o *Options) { o.TestRatio = 0 }, "selection.test_ratio"},
		{"folds", func(o *Options) { o.Folds = 1 }, "selection.folds"},
		{"scoring", func(o *Options) { o.Scoring = "auc" }, "selection.scoring"},
		{"workers", func(o *Options) { o.Workers = -2 }, "selection.workers"},
		{"vectorizer", func(o *Options) { o.Vectorizer.MaxDF = 2 }, "vectorizer"},
		{"alpha", func(o *Options) { o.Grids.NaiveBayes.Alpha = []float64{1, -1} }, "grids.naive_bayes.alpha"},
		{"empty grid", func(o *Options) { o.Grids.LinearSVM.C = nil }, "grids.linear_svm.c"},
		{"depth", func(o *Options) { o.Grids.RandomForest.MaxDepth = []int{-3} }, "grids.random_forest.max_depth"},
		{"none", func(o *Options) { o.Grids = Grids{} }, "grids"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opt := testOptions()
			tc.mut(&opt)
			_, err := Select(context.Background(), docs, y, labels, opt)
			var ce *ConfigurationError
			require.True(t, errors.As(err, &ce), "got %v", err)
			assert.Equal(t, tc.field, ce.Field)
		})
	}
}

func TestSelect_DataErrors(t *testing.T) {
	docs, y, labels := corpus(20)
	_, err := Select(context.Background(), docs, y[:5], labels, testOptions())
	assert.Error(t, err)
	_, err = Select(context.Background(), docs, y, labels[:1], testOptions())
	assert.Error(t, err)

	opt := testOptions()
	opt.Folds = 30
	_, err = Select(context.Background(), docs, y, labels, opt)
	assert.Error(t, err)
}

func TestCandidatesOrder(t *testing.T) {
	cands, err := DefaultGrids().Candidates()
	require.NoError(t, err)
	require.Len(t, cands, 4+3+3+4)
	for i := 1; i < len(cands); i++ {
		assert.LessOrEqual(t, cands[i-1].Family.Rank(), cands[i].Family.Rank())
		assert.Equal(t, i, cands[i].Index)
	}
	assert.Equal(t, "random_forest(trees=50 max_depth=20 min_samples_leaf=1)", fmt.Sprint(cands[10]))
}

func TestDeriveSeedDistinct(t *testing.T) {
	seen := make(map[uint64]bool)
	for c := uint64(0); c < 20; c++ {
		for f := uint64(0); f < 6; f++ {
			s := deriveSeed(42, c, f)
			require.False(t, seen[s])
			seen[s] = true
		}
	}
	assert.Equal(t, deriveSeed(42, 1, 2), deriveSeed(42, 1, 2))
}

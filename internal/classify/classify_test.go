package classify

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/medtext-cli/internal/features"
)

// three classes, each owning two features plus some shared noise
func toyData() ([]features.SparseVector, []int) {
	var X []features.SparseVector
	var y []int
	for c := 0; c < 3; c++ {
		for r := 0; r < 8; r++ {
			a, b := 2*c, 2*c+1
			w := 0.6 + 0.05*float64(r)
			noise := 6 + (r % 2)
			vals := []float64{w, math.Sqrt(1 - w*w - 0.01), 0.1}
			idx := []int{a, b, noise}
			X = append(X, features.SparseVector{Dim: 8, Indices: idx, Values: vals})
			y = append(y, c)
		}
	}
	return X, y
}

func defaultParams(f Family) Params {
	switch f {
	case NaiveBayes:
		return Params{Alpha: 0.1}
	case LogisticRegression:
		return Params{C: 10, Epochs: 200, LearningRate: 1}
	case LinearSVM:
		return Params{C: 1, Epochs: 20}
	default:
		return Params{Trees: 15, MinSamplesLeaf: 1}
	}
}

func TestFamilies_FitSeparableData(t *testing.T) {
	X, y := toyData()
	for _, f := range Families() {
		t.Run(string(f), func(t *testing.T) {
			m, err := New(f, defaultParams(f))
			require.NoError(t, err)
			require.NoError(t, m.Fit(X, y, 3, 7))
			assert.Equal(t, 8, m.Dim())
			assert.Equal(t, y, PredictAll(m, X))
		})
	}
}

func TestFamilies_DeterministicForSeed(t *testing.T) {
	X, y := toyData()
	for _, f := range Families() {
		a, _ := New(f, defaultParams(f))
		b, _ := New(f, defaultParams(f))
		require.NoError(t, a.Fit(X, y, 3, 11))
		require.NoError(t, b.Fit(X, y, 3, 11))
		assert.Equal(t, a.State(), b.State(), string(f))
	}
}

func TestFromState_RoundTrip(t *testing.T) {
	X, y := toyData()
	for _, f := range Families() {
		m, _ := New(f, defaultParams(f))
		require.NoError(t, m.Fit(X, y, 3, 3))
		r, err := FromState(m.State())
		require.NoError(t, err, string(f))
		assert.Equal(t, f, r.Family())
		assert.Equal(t, PredictAll(m, X), PredictAll(r, X), string(f))
	}
}

func TestFromState_RejectsBadShape(t *testing.T) {
	X, y := toyData()
	m, _ := New(NaiveBayes, Params{Alpha: 1})
	require.NoError(t, m.Fit(X, y, 3, 1))
	st := m.State()
	st.Dim = 9
	_, err := FromState(st)
	assert.Error(t, err)

	_, err = FromState(State{Family: RandomForest, Params: Params{Trees: 1, MinSamplesLeaf: 1}, Dim: 2, Classes: 2,
		Trees: []Tree{{Nodes: []Node{{Feature: 0, Left: 0, Right: 0}}}}})
	assert.Error(t, err)
}

func TestNew_InvalidParams(t *testing.T) {
	cases := []struct {
		family Family
		params Params
		field  string
	}{
		{NaiveBayes, Params{Alpha: 0}, "alpha"},
		{LogisticRegression, Params{C: -1, Epochs: 1, LearningRate: 1}, "c"},
		{LogisticRegression, Params{C: 1, Epochs: 0, LearningRate: 1}, "epochs"},
		{LinearSVM, Params{C: math.Inf(1), Epochs: 1}, "c"},
		{RandomForest, Params{Trees: 0, MinSamplesLeaf: 1}, "trees"},
		{RandomForest, Params{Trees: 1, MaxDepth: -1, MinSamplesLeaf: 1}, "max_depth"},
		{Family("knn"), Params{}, "family"},
	}
	for _, tc := range cases {
		_, err := New(tc.family, tc.params)
		var pe *ParamError
		require.True(t, errors.As(err, &pe), "%s %+v", tc.family, tc.params)
		assert.Equal(t, tc.field, pe.Field)
	}
}

func TestFit_RejectsBadTrainingSet(t *testing.T) {
	m, _ := New(NaiveBayes, Params{Alpha: 1})
	x := features.SparseVector{Dim: 2}
	assert.Error(t, m.Fit(nil, nil, 2, 0))
	assert.Error(t, m.Fit([]features.SparseVector{x}, []int{0, 1}, 2, 0))
	assert.Error(t, m.Fit([]features.SparseVector{x}, []int{5}, 2, 0))
	assert.Error(t, m.Fit([]features.SparseVector{x}, []int{0}, 1, 0))
}

func TestFamilyRank(t *testing.T) {
	assert.Less(t, NaiveBayes.Rank(), LogisticRegression.Rank())
	assert.Less(t, LogisticRegression.Rank(), LinearSVM.Rank())
	assert.Less(t, LinearSVM.Rank(), RandomForest.Rank())
	assert.False(t, Family("knn").Valid())
}

func TestParamsDescribe(t *testing.T) {
	assert.Equal(t, "alpha=0.5", Params{Alpha: 0.5}.Describe(NaiveBayes))
	assert.Equal(t, "trees=10 max_depth=none min_samples_leaf=1",
		Params{Trees: 10, MinSamplesLeaf: 1}.Describe(RandomForest))
}

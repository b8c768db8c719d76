package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	labels := []string{"a", "b", "c"}
	yTrue := []int{0, 0, 1, 1, 2, 2}
	yPred := []int{0, 1, 1, 1, 2, 0}

	r, err := Evaluate(yTrue, yPred, labels)
	require.NoError(t, err)
	assert.InDelta(t, 4.0/6.0, r.Accuracy, 1e-12)
	assert.Equal(t, [][]int{{1, 1, 0}, {0, 2, 0}, {1, 0, 1}}, r.Confusion)

	a := r.PerClass[0]
	assert.Equal(t, "a", a.Label)
	assert.InDelta(t, 0.5, a.Precision, 1e-12)
	assert.InDelta(t, 0.5, a.Recall, 1e-12)
	assert.Equal(t, 2, a.Support)

	b := r.PerClass[1]
	assert.InDelta(t, 2.0/3.0, b.Precision, 1e-12)
	assert.InDelta(t, 1.0, b.Recall, 1e-12)
	assert.InDelta(t, 0.8, b.F1, 1e-12)

	// c: p=1, r=0.5, f1=2/3
	wantMacroF1 := (0.5 + 0.8 + 2.0/3.0) / 3
	assert.InDelta(t, wantMacroF1, r.MacroF1, 1e-12)
	assert.InDelta(t, wantMacroF1, r.Score(MacroF1), 1e-12)
	assert.InDelta(t, r.Accuracy, r.Score(Accuracy), 1e-12)
}

func TestEvaluate_AbsentClassExcludedFromMacro(t *testing.T) {
	r, err := Evaluate([]int{0, 1}, []int{0, 1}, []string{"a", "b", "unused"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.MacroF1)
	assert.Equal(t, 0, r.PerClass[2].Support)
}

func TestEvaluate_Errors(t *testing.T) {
	_, err := Evaluate([]int{0}, []int{0, 1}, []string{"a", "b"})
	assert.Error(t, err)
	_, err = Evaluate([]int{0}, []int{3}, []string{"a", "b"})
	assert.Error(t, err)
}

func TestScoringValid(t *testing.T) {
	assert.True(t, Accuracy.Valid())
	assert.True(t, MacroF1.Valid())
	assert.False(t, Scoring("auc").Valid())
}

func TestTable(t *testing.T) {
	r, err := Evaluate([]int{0, 1}, []int{0, 1}, []string{"Oncological", "Cardio"})
	require.NoError(t, err)
	out := r.Table()
	assert.Contains(t, out, "| Oncological | 1.000 | 1.000 | 1.000 | 1 |")
	assert.Contains(t, out, "macro avg")
}

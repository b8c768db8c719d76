// Package classify implements the candidate classifier families over
// TF-IDF vectors: multinomial naive Bayes, softmax logistic regression,
// one-vs-rest linear SVM and a random forest.
package classify

import (
	"fmt"
	"math/rand/v2"

	"github.com/KaramelBytes/medtext-cli/internal/features"
)

// Family names a classifier family.
type Family string

const (
	NaiveBayes         Family = "naive_bayes"
	LogisticRegression Family = "logistic_regression"
	LinearSVM          Family = "linear_svm"
	RandomForest       Family = "random_forest"
)

// Families lists every family in ascending complexity.
func Families() []Family {
	return []Family{NaiveBayes, LogisticRegression, LinearSVM, RandomForest}
}

// Rank orders families by training and inference cost; lower is simpler.
// Unknown families rank last.
func (f Family) Rank() int {
	for i, g := range Families() {
		if g == f {
			return i
		}
	}
	return len(Families())
}

// Valid reports whether f is a known family.
func (f Family) Valid() bool { return f.Rank() < len(Families()) }

// Model is a fitted or fit-able classifier over class indices [0, classes).
type Model interface {
	Family() Family
	Params() Params
	// Fit trains from scratch; seed drives every random choice.
	Fit(X []features.SparseVector, y []int, classes int, seed uint64) error
	Predict(x features.SparseVector) int
	// Dim is the feature dimension the model was fitted on.
	Dim() int
	State() State
}

// New returns an unfitted model of the family with validated params.
func New(f Family, p Params) (Model, error) {
	if err := p.Validate(f); err != nil {
		return nil, err
	}
	switch f {
	case NaiveBayes:
		return &naiveBayes{params: p}, nil
	case LogisticRegression:
		return &logReg{params: p}, nil
	case LinearSVM:
		return &linearSVM{params: p}, nil
	case RandomForest:
		return &forest{params: p}, nil
	}
	return nil, &ParamError{Family: f, Field: "family", Value: string(f), Reason: "unknown classifier family"}
}

// PredictAll predicts every row.
func PredictAll(m Model, X []features.SparseVector) []int {
	out := make([]int, len(X))
	for i, x := range X {
		out[i] = m.Predict(x)
	}
	return out
}

func checkTrainingSet(X []features.SparseVector, y []int, classes int) (int, error) {
	if len(X) == 0 {
		return 0, fmt.Errorf("empty training set")
	}
	if len(X) != len(y) {
		return 0, fmt.Errorf("training set has %d rows but %d labels", len(X), len(y))
	}
	if classes < 2 {
		return 0, fmt.Errorf("need at least 2 classes, got %d", classes)
	}
	dim := X[0].Dim
	for i, x := range X {
		if x.Dim != dim {
			return 0, fmt.Errorf("row %d has dimension %d, want %d", i, x.Dim, dim)
		}
		if y[i] < 0 || y[i] >= classes {
			return 0, fmt.Errorf("row %d has class %d outside [0,%d)", i, y[i], classes)
		}
	}
	return dim, nil
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0x9e3779b97f4a7c15))
}

// argmax returns the first index holding the maximum.
func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

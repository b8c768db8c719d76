package classify

import (
	"math"

	"github.com/KaramelBytes/medtext-cli/internal/features"
)

// log prior used for a class with no training rows; finite so the state
// stays JSON-encodable
var emptyClassLogPrior = math.Log(math.SmallestNonzeroFloat64)

type naiveBayes struct {
	params   Params
	dim      int
	logPrior []float64
	logProb  [][]float64
}

func (m *naiveBayes) Family() Family { return NaiveBayes }
func (m *naiveBayes) Params() Params { return m.params }
func (m *naiveBayes) Dim() int       { return m.dim }

func (m *naiveBayes) Fit(X []features.SparseVector, y []int, classes int, _ uint64) error {
	dim, err := checkTrainingSet(X, y, classes)
	if err != nil {
		return err
	}
	counts := make([]float64, classes)
	sums := make([][]float64, classes)
	for c := range sums {
		sums[c] = make([]float64, dim)
	}
	for i, x := range X {
		c := y[i]
		counts[c]++
		for k, j := range x.Indices {
			sums[c][j] += x.Values[k]
		}
	}
	m.dim = dim
	m.logPrior = make([]float64, classes)
	m.logProb = make([][]float64, classes)
	n := float64(len(X))
	for c := 0; c < classes; c++ {
		if counts[c] == 0 {
			m.logPrior[c] = emptyClassLogPrior
		} else {
			m.logPrior[c] = math.Log(counts[c] / n)
		}
		var total float64
		for _, v := range sums[c] {
			total += v
		}
		denom := total + m.params.Alpha*float64(dim)
		row := make([]float64, dim)
		for j, v := range sums[c] {
			row[j] = math.Log((v + m.params.Alpha) / denom)
		}
		m.logProb[c] = row
	}
	return nil
}

func (m *naiveBayes) Predict(x features.SparseVector) int {
	scores := make([]float64, len(m.logPrior))
	for c := range scores {
		scores[c] = m.logPrior[c] + x.Dot(m.logProb[c])
	}
	return argmax(scores)
}

func (m *naiveBayes) State() State {
	return State{
		Family:   NaiveBayes,
		Params:   m.params,
		Dim:      m.dim,
		Classes:  len(m.logPrior),
		LogPrior: m.logPrior,
		Weights:  m.logProb,
	}
}

package classify

import (
	"math"

	"github.com/KaramelBytes/medtext-cli/internal/features"
)

// linear scores each class with w_c·x + b_c; shared by logistic regression
// and the linear SVM.
type linear struct {
	dim     int
	weights [][]float64
	bias    []float64
}

func (l *linear) Dim() int { return l.dim }

func (l *linear) scores(x features.SparseVector) []float64 {
	out := make([]float64, len(l.weights))
	for c, w := range l.weights {
		out[c] = x.Dot(w) + l.bias[c]
	}
	return out
}

func (l *linear) Predict(x features.SparseVector) int { return argmax(l.scores(x)) }

func (l *linear) init(classes, dim int) {
	l.dim = dim
	l.weights = make([][]float64, classes)
	for c := range l.weights {
		l.weights[c] = make([]float64, dim)
	}
	l.bias = make([]float64, classes)
}

type logReg struct {
	linear
	params Params
}

func (m *logReg) Family() Family { return LogisticRegression }
func (m *logReg) Params() Params { return m.params }

// Fit minimises mean cross-entropy + ||W||²/(2·C·n) with full-batch
// gradient descent. It is deterministic; the seed is unused.
func (m *logReg) Fit(X []features.SparseVector, y []int, classes int, _ uint64) error {
	dim, err := checkTrainingSet(X, y, classes)
	if err != nil {
		return err
	}
	m.init(classes, dim)
	n := float64(len(X))
	reg := 1 / (m.params.C * n)
	lr := m.params.LearningRate

	grad := make([][]float64, classes)
	for c := range grad {
		grad[c] = make([]float64, dim)
	}
	gradB := make([]float64, classes)

	for epoch := 0; epoch < m.params.Epochs; epoch++ {
		for c := range grad {
			clear(grad[c])
		}
		clear(gradB)
		for i, x := range X {
			p := softmax(m.scores(x))
			p[y[i]]--
			for c, pc := range p {
				if pc == 0 {
					continue
				}
				g := grad[c]
				for k, j := range x.Indices {
					g[j] += pc * x.Values[k]
				}
				gradB[c] += pc
			}
		}
		for c := range m.weights {
			w, g := m.weights[c], grad[c]
			for j := range w {
				w[j] -= lr * (g[j]/n + reg*w[j])
			}
			m.bias[c] -= lr * gradB[c] / n
		}
	}
	return nil
}

func (m *logReg) State() State {
	return State{Family: LogisticRegression, Params: m.params, Dim: m.dim, Classes: len(m.weights), Weights: m.weights, Bias: m.bias}
}

func softmax(z []float64) []float64 {
	mx := z[argmax(z)]
	var sum float64
	out := make([]float64, len(z))
	for i, v := range z {
		out[i] = math.Exp(v - mx)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

type linearSVM struct {
	linear
	params Params
}

func (m *linearSVM) Family() Family { return LinearSVM }
func (m *linearSVM) Params() Params { return m.params }

// Fit trains one Pegasos hinge-loss model per class (one-vs-rest) with
// lambda = 1/(C·n). The bias is an extra constant feature.
func (m *linearSVM) Fit(X []features.SparseVector, y []int, classes int, seed uint64) error {
	dim, err := checkTrainingSet(X, y, classes)
	if err != nil {
		return err
	}
	m.init(classes, dim)
	rng := newRand(seed)
	lambda := 1 / (m.params.C * float64(len(X)))
	order := make([]int, len(X))
	for i := range order {
		order[i] = i
	}

	for c := 0; c < classes; c++ {
		// weights are scale*v; the bias lives at v[dim]
		v := make([]float64, dim+1)
		scale := 1.0
		t := 0
		for epoch := 0; epoch < m.params.Epochs; epoch++ {
			rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
			for _, i := range order {
				t++
				x := X[i]
				yi := -1.0
				if y[i] == c {
					yi = 1
				}
				margin := yi * scale * (x.Dot(v[:dim]) + v[dim])
				eta := 1 / (lambda * float64(t))
				scale *= 1 - 1/float64(t)
				if scale == 0 {
					clear(v)
					scale = 1
				} else if scale < 1e-9 {
					for j := range v {
						v[j] *= scale
					}
					scale = 1
				}
				if margin < 1 {
					coef := eta * yi / scale
					for k, j := range x.Indices {
						v[j] += coef * x.Values[k]
					}
					v[dim] += coef
				}
			}
		}
		for j := 0; j < dim; j++ {
			m.weights[c][j] = v[j] * scale
		}
		m.bias[c] = v[dim] * scale
	}
	return nil
}

func (m *linearSVM) State() State {
	return State{Family: LinearSVM, Params: m.params, Dim: m.dim, Classes: len(m.weights), Weights: m.weights, Bias: m.bias}
}

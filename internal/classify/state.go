package classify

import "fmt"

// State is the serializable form of a fitted model. Which fields are set
// depends on Family.
type State struct {
	Family   Family      `json:"family"`
	Params   Params      `json:"params"`
	Dim      int         `json:"dim"`
	Classes  int         `json:"classes"`
	LogPrior []float64   `json:"log_prior,omitempty"`
	Weights  [][]float64 `json:"weights,omitempty"`
	Bias     []float64   `json:"bias,omitempty"`
	Trees    []Tree      `json:"trees,omitempty"`
}

// FromState restores a fitted model and checks its shape.
func FromState(s State) (Model, error) {
	if err := s.Params.Validate(s.Family); err != nil {
		return nil, err
	}
	if s.Dim < 1 || s.Classes < 2 {
		return nil, fmt.Errorf("%s state: invalid shape dim=%d classes=%d", s.Family, s.Dim, s.Classes)
	}
	switch s.Family {
	case NaiveBayes:
		if len(s.LogPrior) != s.Classes {
			return nil, fmt.Errorf("naive_bayes state: %d priors for %d classes", len(s.LogPrior), s.Classes)
		}
		if err := checkMatrix(s.Weights, s.Classes, s.Dim); err != nil {
			return nil, fmt.Errorf("naive_bayes state: %w", err)
		}
		return &naiveBayes{params: s.Params, dim: s.Dim, logPrior: s.LogPrior, logProb: s.Weights}, nil
	case LogisticRegression, LinearSVM:
		if err := checkMatrix(s.Weights, s.Classes, s.Dim); err != nil {
			return nil, fmt.Errorf("%s state: %w", s.Family, err)
		}
		if len(s.Bias) != s.Classes {
			return nil, fmt.Errorf("%s state: %d biases for %d classes", s.Family, len(s.Bias), s.Classes)
		}
		l := linear{dim: s.Dim, weights: s.Weights, bias: s.Bias}
		if s.Family == LogisticRegression {
			return &logReg{linear: l, params: s.Params}, nil
		}
		return &linearSVM{linear: l, params: s.Params}, nil
	case RandomForest:
		if len(s.Trees) == 0 {
			return nil, fmt.Errorf("random_forest state: no trees")
		}
		for ti, t := range s.Trees {
			if err := checkTree(t, s.Dim, s.Classes); err != nil {
				return nil, fmt.Errorf("random_forest state: tree %d: %w", ti, err)
			}
		}
		return &forest{params: s.Params, dim: s.Dim, classes: s.Classes, trees: s.Trees}, nil
	}
	return nil, fmt.Errorf("unknown classifier family %q", s.Family)
}

func checkMatrix(m [][]float64, rows, cols int) error {
	if len(m) != rows {
		return fmt.Errorf("weights have %d rows, want %d", len(m), rows)
	}
	for i, r := range m {
		if len(r) != cols {
			return fmt.Errorf("weights row %d has %d columns, want %d", i, len(r), cols)
		}
	}
	return nil
}

func checkTree(t Tree, dim, classes int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("empty tree")
	}
	for i, n := range t.Nodes {
		if n.Class < 0 || n.Class >= classes {
			return fmt.Errorf("node %d: class %d out of range", i, n.Class)
		}
		if n.Feature < 0 {
			continue
		}
		if n.Feature >= dim {
			return fmt.Errorf("node %d: feature %d >= dim %d", i, n.Feature, dim)
		}
		// children are appended after their parent, so this also rules out cycles
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d: child index out of range", i)
		}
	}
	return nil
}

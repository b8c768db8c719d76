package classify

import (
	"fmt"
	"math"
)

// Params holds the hyperparameters of every family; each family reads only
// its own fields.
type Params struct {
	Alpha          float64 `json:"alpha,omitempty" yaml:"alpha,omitempty"`
	C              float64 `json:"c,omitempty" yaml:"c,omitempty"`
	Epochs         int     `json:"epochs,omitempty" yaml:"epochs,omitempty"`
	LearningRate   float64 `json:"learning_rate,omitempty" yaml:"learning_rate,omitempty"`
	Trees          int     `json:"trees,omitempty" yaml:"trees,omitempty"`
	MaxDepth       int     `json:"max_depth,omitempty" yaml:"max_depth,omitempty"`
	MinSamplesLeaf int     `json:"min_samples_leaf,omitempty" yaml:"min_samples_leaf,omitempty"`
}

// ParamError reports a hyperparameter outside its valid range.
type ParamError struct {
	Family Family
	Field  string
	Value  any
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: invalid %s=%v: %s", e.Family, e.Field, e.Value, e.Reason)
}

func positive(x float64) bool { return x > 0 && !math.IsInf(x, 1) && !math.IsNaN(x) }

// Validate checks the fields used by family f.
func (p Params) Validate(f Family) error {
	bad := func(field string, v any, reason string) error {
		return &ParamError{Family: f, Field: field, Value: v, Reason: reason}
	}
	switch f {
	case NaiveBayes:
		if !positive(p.Alpha) {
			return bad("alpha", p.Alpha, "must be > 0")
		}
	case LogisticRegression:
		if !positive(p.C) {
			return bad("c", p.C, "must be > 0")
		}
		if p.Epochs < 1 {
			return bad("epochs", p.Epochs, "must be >= 1")
		}
		if !positive(p.LearningRate) {
			return bad("learning_rate", p.LearningRate, "must be > 0")
		}
	case LinearSVM:
		if !positive(p.C) {
			return bad("c", p.C, "must be > 0")
		}
		if p.Epochs < 1 {
			return bad("epochs", p.Epochs, "must be >= 1")
		}
	case RandomForest:
		if p.Trees < 1 {
			return bad("trees", p.Trees, "must be >= 1")
		}
		if p.MaxDepth < 0 {
			return bad("max_depth", p.MaxDepth, "must be >= 0 (0 = unlimited)")
		}
		if p.MinSamplesLeaf < 1 {
			return bad("min_samples_leaf", p.MinSamplesLeaf, "must be >= 1")
		}
	default:
		return bad("family", string(f), "unknown classifier family")
	}
	return nil
}

// Describe renders the fields used by family f, e.g. "alpha=0.1".
func (p Params) Describe(f Family) string {
	switch f {
	case NaiveBayes:
		return fmt.Sprintf("alpha=%g", p.Alpha)
	case LogisticRegression:
		return fmt.Sprintf("C=%g epochs=%d lr=%g", p.C, p.Epochs, p.LearningRate)
	case LinearSVM:
		return fmt.Sprintf("C=%g epochs=%d", p.C, p.Epochs)
	case RandomForest:
		depth := "none"
		if p.MaxDepth > 0 {
			depth = fmt.Sprint(p.MaxDepth)
		}
		return fmt.Sprintf("trees=%d max_depth=%s min_samples_leaf=%d", p.Trees, depth, p.MinSamplesLeaf)
	}
	return ""
}

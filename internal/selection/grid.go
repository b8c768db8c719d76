package selection

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/medtext-cli/internal/classify"
)

// NaiveBayesGrid lists alpha values, smoothest first.
type NaiveBayesGrid struct {
	Enabled bool      `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Alpha   []float64 `mapstructure:"alpha" yaml:"alpha" json:"alpha"`
}

// LogisticRegressionGrid lists inverse regularization strengths.
type LogisticRegressionGrid struct {
	Enabled      bool      `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	C            []float64 `mapstructure:"c" yaml:"c" json:"c"`
	Epochs       int       `mapstructure:"epochs" yaml:"epochs" json:"epochs"`
	LearningRate float64   `mapstructure:"learning_rate" yaml:"learning_rate" json:"learning_rate"`
}

// LinearSVMGrid lists inverse regularization strengths.
type LinearSVMGrid struct {
	Enabled bool      `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	C       []float64 `mapstructure:"c" yaml:"c" json:"c"`
	Epochs  int       `mapstructure:"epochs" yaml:"epochs" json:"epochs"`
}

// RandomForestGrid is the cross product Trees x MaxDepth. MaxDepth 0 means
// unlimited.
type RandomForestGrid struct {
	Enabled        bool  `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Trees          []int `mapstructure:"trees" yaml:"trees" json:"trees"`
	MaxDepth       []int `mapstructure:"max_depth" yaml:"max_depth" json:"max_depth"`
	MinSamplesLeaf int   `mapstructure:"min_samples_leaf" yaml:"min_samples_leaf" json:"min_samples_leaf"`
}

// Grids holds one hyperparameter grid per family. Values are listed in
// ascending model complexity; ties on CV score go to the earlier entry.
type Grids struct {
	NaiveBayes         NaiveBayesGrid         `mapstructure:"naive_bayes" yaml:"naive_bayes" json:"naive_bayes"`
	LogisticRegression LogisticRegressionGrid `mapstructure:"logistic_regression" yaml:"logistic_regression" json:"logistic_regression"`
	LinearSVM          LinearSVMGrid          `mapstructure:"linear_svm" yaml:"linear_svm" json:"linear_svm"`
	RandomForest       RandomForestGrid       `mapstructure:"random_forest" yaml:"random_forest" json:"random_forest"`
}

// DefaultGrids returns the grids used when none are configured.
func DefaultGrids() Grids {
	return Grids{
		NaiveBayes:         NaiveBayesGrid{Enabled: true, Alpha: []float64{1, 0.5, 0.1, 0.01}},
		LogisticRegression: LogisticRegressionGrid{Enabled: true, C: []float64{1, 10, 100}, Epochs: 100, LearningRate: 1},
		LinearSVM:          LinearSVMGrid{Enabled: true, C: []float64{0.1, 1, 10}, Epochs: 10},
		RandomForest:       RandomForestGrid{Enabled: true, Trees: []int{50, 100}, MaxDepth: []int{20, 0}, MinSamplesLeaf: 1},
	}
}

// Candidate is one (family, params) point of the search.
type Candidate struct {
	Index  int             `json:"index"`
	Family classify.Family `json:"family"`
	Params classify.Params `json:"params"`
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s(%s)", c.Family, c.Params.Describe(c.Family))
}

// Candidates expands the enabled grids in family-rank order, validating
// every point.
func (g Grids) Candidates() ([]Candidate, error) {
	var out []Candidate
	add := func(f classify.Family, p classify.Params) error {
		if err := p.Validate(f); err != nil {
			var pe *classify.ParamError
			if errors.As(err, &pe) {
				return &ConfigurationError{Field: fmt.Sprintf("grids.%s.%s", f, pe.Field), Value: pe.Value, Reason: pe.Reason}
			}
			return err
		}
		out = append(out, Candidate{Index: len(out), Family: f, Params: p})
		return nil
	}
	empty := func(f classify.Family, field string) error {
		return &ConfigurationError{Field: fmt.Sprintf("grids.%s.%s", f, field), Value: "[]", Reason: "grid is empty"}
	}

	if nb := g.NaiveBayes; nb.Enabled {
		if len(nb.Alpha) == 0 {
			return nil, empty(classify.NaiveBayes, "alpha")
		}
		for _, a := range nb.Alpha {
			if err := add(classify.NaiveBayes, classify.Params{Alpha: a}); err != nil {
				return nil, err
			}
		}
	}
	if lr := g.LogisticRegression; lr.Enabled {
		if len(lr.C) == 0 {
			return nil, empty(classify.LogisticRegression, "c")
		}
		for _, c := range lr.C {
			if err := add(classify.LogisticRegression, classify.Params{C: c, Epochs: lr.Epochs, LearningRate: lr.LearningRate}); err != nil {
				return nil, err
			}
		}
	}
	if svm := g.LinearSVM; svm.Enabled {
		if len(svm.C) == 0 {
			return nil, empty(classify.LinearSVM, "c")
		}
		for _, c := range svm.C {
			if err := add(classify.LinearSVM, classify.Params{C: c, Epochs: svm.Epochs}); err != nil {
				return nil, err
			}
		}
	}
	if rf := g.RandomForest; rf.Enabled {
		if len(rf.Trees) == 0 {
			return nil, empty(classify.RandomForest, "trees")
		}
		if len(rf.MaxDepth) == 0 {
			return nil, empty(classify.RandomForest, "max_depth")
		}
		for _, n := range rf.Trees {
			for _, d := range rf.MaxDepth {
				if err := add(classify.RandomForest, classify.Params{Trees: n, MaxDepth: d, MinSamplesLeaf: rf.MinSamplesLeaf}); err != nil {
					return nil, err
				}
			}
		}
	}
	if len(out) == 0 {
		return nil, &ConfigurationError{Field: "grids", Value: "none", Reason: "no classifier family enabled"}
	}
	return out, nil
}

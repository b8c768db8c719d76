// Package selection picks the best classifier configuration by stratified
// k-fold cross-validated grid search.
package selection

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/medtext-cli/internal/classify"
	"github.com/KaramelBytes/medtext-cli/internal/evaluation"
	"github.com/KaramelBytes/medtext-cli/internal/features"
)

// Options configures Select.
type Options struct {
	TestRatio  float64
	Folds      int
	Seed       uint64
	Scoring    evaluation.Scoring
	Workers    int
	Vectorizer features.Options
	Grids      Grids
}

// DefaultOptions returns an 85/15 split, 5 folds, seed 42 and accuracy.
func DefaultOptions() Options {
	return Options{
		TestRatio:  0.15,
		Folds:      5,
		Seed:       42,
		Scoring:    evaluation.Accuracy,
		Workers:    1,
		Vectorizer: features.DefaultOptions(),
		Grids:      DefaultGrids(),
	}
}

// Validate checks the options and expands the grids.
func (o Options) Validate() ([]Candidate, error) {
	if math.IsNaN(o.TestRatio) || o.TestRatio <= 0 || o.TestRatio >= 1 {
		return nil, &ConfigurationError{Field: "selection.test_ratio", Value: o.TestRatio, Reason: "must be in (0,1)"}
	}
	if o.Folds < 2 {
		return nil, &ConfigurationError{Field: "selection.folds", Value: o.Folds, Reason: "must be >= 2"}
	}
	if !o.Scoring.Valid() {
		return nil, &ConfigurationError{Field: "selection.scoring", Value: o.Scoring, Reason: "must be accuracy or macro_f1"}
	}
	if o.Workers < 0 {
		return nil, &ConfigurationError{Field: "selection.workers", Value: o.Workers, Reason: "must be >= 0"}
	}
	if err := o.Vectorizer.Validate(); err != nil {
		return nil, &ConfigurationError{Field: "vectorizer", Value: fmt.Sprintf("%+v", o.Vectorizer), Reason: err.Error()}
	}
	return o.Grids.Candidates()
}

// CandidateResult is the cross-validation outcome of one candidate.
type CandidateResult struct {
	Candidate
	FoldScores []float64 `json:"fold_scores"`
	Mean       float64   `json:"cv_mean"`
	Std        float64   `json:"cv_std"`
}

// FamilyResult is the best candidate of one family, refitted on the full
// training split and scored once on the test split.
type FamilyResult struct {
	Family  classify.Family   `json:"family"`
	Best    Candidate         `json:"best"`
	CVScore float64           `json:"cv_score"`
	Test    evaluation.Report `json:"test"`
}

// Result is the outcome of Select.
type Result struct {
	Best       Candidate
	CVScore    float64
	Scoring    evaluation.Scoring
	Candidates []CandidateResult
	Families   []FamilyResult
	Test       evaluation.Report
	Model      classify.Model
	Vectorizer *features.Vectorizer
	Labels     []string
	TrainIdx   []int
	TestIdx    []int
}

type foldSet struct {
	xTrain []features.SparseVector
	yTrain []int
	xVal   []features.SparseVector
	yVal   []int
}

// Select splits docs, cross-validates every candidate and refits the
// winner. Each fold fits its own vectorizer on its training rows; the final
// vectorizer sees only the training split. Ties on CV score go to the
// lower family rank, then the earlier grid entry. Results do not depend on
// Workers.
func Select(ctx context.Context, docs [][]string, y []int, labels []string, opt Options) (*Result, error) {
	cands, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if len(docs) != len(y) {
		return nil, fmt.Errorf("%d documents but %d labels", len(docs), len(y))
	}
	classes := len(labels)
	if classes < 2 {
		return nil, fmt.Errorf("need at least 2 classes, got %d", classes)
	}
	for i, c := range y {
		if c < 0 || c >= classes {
			return nil, fmt.Errorf("row %d has class %d outside [0,%d)", i, c, classes)
		}
	}
	log := zerolog.Ctx(ctx)
	workers := opt.Workers
	if workers == 0 {
		workers = 1
	}

	trainIdx, testIdx := StratifiedSplit(y, opt.TestRatio, opt.Seed)
	if len(testIdx) == 0 {
		return nil, fmt.Errorf("test split is empty (%d rows, test_ratio=%v)", len(y), opt.TestRatio)
	}
	if len(trainIdx) < opt.Folds {
		return nil, fmt.Errorf("training split has %d rows, fewer than %d folds", len(trainIdx), opt.Folds)
	}
	trainDocs, yTrain := pickDocs(docs, trainIdx), pickInts(y, trainIdx)
	log.Debug().Int("train", len(trainIdx)).Int("test", len(testIdx)).Msg("stratified split")

	folds := StratifiedKFold(yTrain, opt.Folds, deriveSeed(opt.Seed, uint64(opt.Folds)))
	sets := make([]foldSet, len(folds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for fi, val := range folds {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tr := complement(len(trainDocs), val)
			vec, err := features.Fit(pickDocs(trainDocs, tr), opt.Vectorizer)
			if err != nil {
				return fmt.Errorf("fold %d: %w", fi, err)
			}
			sets[fi] = foldSet{
				xTrain: vec.TransformAll(pickDocs(trainDocs, tr)),
				yTrain: pickInts(yTrain, tr),
				xVal:   vec.TransformAll(pickDocs(trainDocs, val)),
				yVal:   pickInts(yTrain, val),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scores := make([][]float64, len(cands))
	for i := range scores {
		scores[i] = make([]float64, len(folds))
	}
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for ci, c := range cands {
		for fi := range folds {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				fs := sets[fi]
				m, err := classify.New(c.Family, c.Params)
				if err != nil {
					return err
				}
				if err := m.Fit(fs.xTrain, fs.yTrain, classes, deriveSeed(opt.Seed, uint64(ci), uint64(fi))); err != nil {
					return fmt.Errorf("%s fold %d: %w", c, fi, err)
				}
				rep, err := evaluation.Evaluate(fs.yVal, classify.PredictAll(m, fs.xVal), labels)
				if err != nil {
					return err
				}
				scores[ci][fi] = rep.Score(opt.Scoring)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Scoring: opt.Scoring, Labels: append([]string(nil), labels...), TrainIdx: trainIdx, TestIdx: testIdx}
	res.Candidates = make([]CandidateResult, len(cands))
	bestIdx := -1
	familyBest := make(map[classify.Family]int)
	var familyOrder []classify.Family
	for ci, c := range cands {
		mean, std := stat.MeanStdDev(scores[ci], nil)
		res.Candidates[ci] = CandidateResult{Candidate: c, FoldScores: scores[ci], Mean: mean, Std: std}
		log.Debug().Str("candidate", c.String()).Float64("cv_mean", mean).Float64("cv_std", std).Msg("cross-validated")
		// candidates are ordered by family rank then grid position, so a
		// strict comparison implements the tie-break
		if bestIdx < 0 || mean > res.Candidates[bestIdx].Mean {
			bestIdx = ci
		}
		fb, seen := familyBest[c.Family]
		if !seen {
			familyOrder = append(familyOrder, c.Family)
		}
		if !seen || mean > res.Candidates[fb].Mean {
			familyBest[c.Family] = ci
		}
	}
	res.Best = cands[bestIdx]
	res.CVScore = res.Candidates[bestIdx].Mean

	vec, err := features.Fit(trainDocs, opt.Vectorizer)
	if err != nil {
		return nil, fmt.Errorf("fit vectorizer on training split: %w", err)
	}
	res.Vectorizer = vec
	xTrain := vec.TransformAll(trainDocs)
	xTest := vec.TransformAll(pickDocs(docs, testIdx))
	yTest := pickInts(y, testIdx)

	res.Families = make([]FamilyResult, len(familyOrder))
	models := make([]classify.Model, len(familyOrder))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range familyOrder {
		c := cands[familyBest[f]]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, err := classify.New(c.Family, c.Params)
			if err != nil {
				return err
			}
			if err := m.Fit(xTrain, yTrain, classes, deriveSeed(opt.Seed, uint64(c.Index), uint64(len(folds)))); err != nil {
				return fmt.Errorf("refit %s: %w", c, err)
			}
			rep, err := evaluation.Evaluate(yTest, classify.PredictAll(m, xTest), labels)
			if err != nil {
				return err
			}
			models[i] = m
			res.Families[i] = FamilyResult{Family: f, Best: c, CVScore: res.Candidates[c.Index].Mean, Test: rep}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, f := range familyOrder {
		if f == res.Best.Family {
			res.Model = models[i]
			res.Test = res.Families[i].Test
		}
	}
	return res, nil
}

func pickDocs(docs [][]string, idx []int) [][]string {
	out := make([][]string, len(idx))
	for i, j := range idx {
		out[i] = docs[j]
	}
	return out
}

func pickInts(y []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}

// Package pipeline composes the stages of a training run:
// load -> profile -> normalize -> label -> select -> export.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/KaramelBytes/medtext-cli/internal/analysis"
	"github.com/KaramelBytes/medtext-cli/internal/bundle"
	"github.com/KaramelBytes/medtext-cli/internal/config"
	"github.com/KaramelBytes/medtext-cli/internal/dataset"
	"github.com/KaramelBytes/medtext-cli/internal/history"
	"github.com/KaramelBytes/medtext-cli/internal/report"
	"github.com/KaramelBytes/medtext-cli/internal/selection"
	"github.com/KaramelBytes/medtext-cli/internal/textnorm"
	"github.com/KaramelBytes/medtext-cli/internal/utils"
)

// Stage names used in logs and wrapped errors.
const (
	StageLoad      = "load"
	StageProfile   = "profile"
	StageNormalize = "normalize"
	StageLabel     = "label"
	StageSelect    = "select"
	StageExport    = "export"
)

// ProfileFile is the Markdown EDA report written next to the metrics.
const ProfileFile = "profile.md"

// ChartsDir is the chart subdirectory of the output directory.
const ChartsDir = "charts"

// Options configures Train.
type Options struct {
	Load        dataset.LoadOptions
	LabelPolicy string
	Normalizer  *textnorm.Normalizer
	Profile     analysis.Options
	Selection   selection.Options
	OutDir      string
	Charts      bool
	// History records the run when non-nil. The caller owns the store.
	History *history.Store
}

// OptionsFromConfig maps the global configuration.
func OptionsFromConfig(c *config.Global) (Options, error) {
	load, err := c.LoadOptions()
	if err != nil {
		return Options{}, err
	}
	stop, err := c.Stopwords()
	if err != nil {
		return Options{}, err
	}
	norm := textnorm.New(stop, c.NormalizerOptions())
	prof := analysis.DefaultOptions()
	prof.Normalizer = norm
	return Options{
		Load:        load,
		LabelPolicy: c.Data.LabelPolicy,
		Normalizer:  norm,
		Profile:     prof,
		Selection:   c.SelectionOptions(),
		OutDir:      c.Output.Dir,
		Charts:      c.Output.Charts,
	}, nil
}

// Outcome is everything a training run produced.
type Outcome struct {
	RunID     string
	Dataset   *dataset.Dataset
	Profile   *analysis.Report
	Excluded  []string // ids with empty text after normalization
	Dropped   int      // rows removed by the label policy
	Used      int
	Selection *selection.Result
	Bundle    *bundle.Bundle
	Summary   report.Summary
	Files     []string
}

// Train runs every stage on the file at path. Records whose text is empty
// after normalization are excluded and reported, never fatal.
func Train(ctx context.Context, path string, opt Options) (*Outcome, error) {
	if err := checkLabelPolicy(opt.LabelPolicy); err != nil {
		return nil, fmt.Errorf("%s stage: %w", StageLabel, err)
	}
	if opt.Normalizer == nil {
		return nil, fmt.Errorf("%s stage: nil normalizer", StageNormalize)
	}
	if _, err := opt.Selection.Validate(); err != nil {
		return nil, fmt.Errorf("%s stage: %w", StageSelect, err)
	}
	if opt.Profile.TopWords == 0 {
		opt.Profile = analysis.DefaultOptions()
		opt.Profile.Normalizer = opt.Normalizer
	}
	started := time.Now()
	out := &Outcome{RunID: uuid.NewString()}
	log := zerolog.Ctx(ctx).With().Str("run_id", out.RunID).Logger()
	ctx = log.WithContext(ctx)

	ds, err := loadStage(ctx, path, opt.Load)
	if err != nil {
		return nil, err
	}
	out.Dataset = ds

	log.Info().Str("stage", StageProfile).Msg("profiling dataset")
	out.Profile = analysis.Profile(ds, opt.Profile)

	log.Info().Str("stage", StageNormalize).Msg("normalizing text")
	records := ds.Records()
	docs, kept, err := normalizeStage(records, opt.Normalizer)
	if err != nil {
		var empty *textnorm.EmptyTextError
		if !errors.As(err, &empty) {
			return nil, fmt.Errorf("%s stage: %w", StageNormalize, err)
		}
		out.Excluded = empty.IDs
		log.Warn().Str("stage", StageNormalize).Int("excluded", len(empty.IDs)).Err(err).Msg("records excluded")
	}

	docs, y, labels, dropped := labelStage(records, docs, kept, opt.LabelPolicy)
	out.Dropped = dropped
	out.Used = len(docs)
	log.Info().Str("stage", StageLabel).Str("policy", opt.LabelPolicy).
		Int("used", len(docs)).Int("dropped", dropped).Int("classes", len(labels)).Msg("labels assigned")

	log.Info().Str("stage", StageSelect).Int("workers", opt.Selection.Workers).Msg("selecting model")
	res, err := selection.Select(ctx, docs, y, labels, opt.Selection)
	if err != nil {
		return nil, fmt.Errorf("%s stage: %w", StageSelect, err)
	}
	out.Selection = res
	log.Info().Str("stage", StageSelect).Str("best", res.Best.String()).
		Float64("cv_score", res.CVScore).Float64("test_accuracy", res.Test.Accuracy).Msg("model selected")

	if err := exportStage(ctx, out, path, opt, started); err != nil {
		return nil, fmt.Errorf("%s stage: %w", StageExport, err)
	}
	return out, nil
}

// Profile loads the file and profiles it without training.
func Profile(ctx context.Context, path string, load dataset.LoadOptions, opt analysis.Options) (*analysis.Report, error) {
	ds, err := loadStage(ctx, path, load)
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Str("stage", StageProfile).Int("rows", ds.Len()).Msg("profiling dataset")
	return analysis.Profile(ds, opt), nil
}

func loadStage(ctx context.Context, path string, opt dataset.LoadOptions) (*dataset.Dataset, error) {
	log := zerolog.Ctx(ctx)
	log.Info().Str("stage", StageLoad).Str("path", path).Msg("loading dataset")
	ds, err := dataset.Load(path, opt)
	if err != nil {
		return nil, fmt.Errorf("%s stage: %w", StageLoad, err)
	}
	log.Info().Str("stage", StageLoad).Int("rows", ds.Len()).Bool("manual", ds.HasManual()).Msg("dataset loaded")
	return ds, nil
}

// normalizeStage returns the token lists of records with non-empty output
// and their record indices. Empty records are reported via *EmptyTextError.
func normalizeStage(records []dataset.Article, norm *textnorm.Normalizer) ([][]string, []int, error) {
	docs := make([][]string, 0, len(records))
	kept := make([]int, 0, len(records))
	var empty []string
	for i, a := range records {
		toks := norm.Normalize(a.Text())
		if len(toks) == 0 {
			id := a.ID
			if id == "" {
				id = fmt.Sprintf("row %d", a.Row)
			}
			empty = append(empty, id)
			continue
		}
		docs = append(docs, toks)
		kept = append(kept, i)
	}
	if len(empty) > 0 {
		return docs, kept, &textnorm.EmptyTextError{IDs: empty}
	}
	return docs, kept, nil
}

func checkLabelPolicy(p string) error {
	switch p {
	case config.LabelFirst, config.LabelJoined, config.LabelDropMulti:
		return nil
	}
	return &selection.ConfigurationError{Field: "data.label_policy", Value: p, Reason: "must be first, joined or drop_multi"}
}

// classLabel applies the policy to one article; ok is false when the
// row cannot be labelled.
func classLabel(a dataset.Article, policy string) (string, bool) {
	if len(a.Labels) == 0 {
		return "", false
	}
	switch policy {
	case config.LabelJoined:
		return strings.Join(a.Labels, dataset.LabelSeparator), true
	case config.LabelDropMulti:
		if a.MultiLabel() {
			return "", false
		}
	}
	return a.Labels[0], true
}

// labelStage maps kept records to class indices over the sorted label set.
func labelStage(records []dataset.Article, docs [][]string, kept []int, policy string) ([][]string, []int, []string, int) {
	names := make([]string, 0, len(kept))
	outDocs := make([][]string, 0, len(kept))
	dropped := 0
	seen := map[string]bool{}
	for j, ri := range kept {
		l, ok := classLabel(records[ri], policy)
		if !ok {
			dropped++
			continue
		}
		names = append(names, l)
		outDocs = append(outDocs, docs[j])
		seen[l] = true
	}
	labels := make([]string, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	y := make([]int, len(names))
	for i, n := range names {
		y[i] = index[n]
	}
	return outDocs, y, labels, dropped
}

func exportStage(ctx context.Context, out *Outcome, path string, opt Options, started time.Time) error {
	log := zerolog.Ctx(ctx)
	res := out.Selection
	b, err := bundle.New(bundle.Meta{
		RunID:   out.RunID,
		Dataset: out.Dataset.Name(),
		Scoring: res.Scoring,
		CVScore: res.CVScore,
		Labels:  res.Labels,
	}, opt.Normalizer, res.Vectorizer, res.Model)
	if err != nil {
		return err
	}
	out.Bundle = b

	modelPath := bundle.ModelPath(opt.OutDir)
	if err := bundle.Save(modelPath, b); err != nil {
		return err
	}
	stopPath := bundle.StopwordsPath(opt.OutDir)
	if err := textnorm.SaveList(stopPath, opt.Normalizer.Stopwords().List()); err != nil {
		return err
	}
	out.Files = append(out.Files, modelPath, stopPath)

	out.Summary = report.Summary{
		RunID:       out.RunID,
		CreatedAt:   b.Meta.CreatedAt,
		Dataset:     out.Dataset.Name(),
		Scoring:     res.Scoring,
		Seed:        opt.Selection.Seed,
		LabelPolicy: opt.LabelPolicy,
		Labels:      res.Labels,
		Vocabulary:  res.Vectorizer.Dim(),
		Counts: report.Counts{
			Rows:     out.Dataset.Len(),
			Used:     out.Used,
			Excluded: len(out.Excluded),
			Dropped:  out.Dropped,
			Train:    len(res.TrainIdx),
			Test:     len(res.TestIdx),
		},
		Families:   report.FamilyRecords(res),
		Candidates: res.Candidates,
	}
	if err := report.WriteSummary(opt.OutDir, out.Summary); err != nil {
		return err
	}
	out.Files = append(out.Files,
		filepath.Join(opt.OutDir, report.MetricsJSON),
		filepath.Join(opt.OutDir, report.MetricsMarkdown))

	if err := writeProfile(opt.OutDir, out.Profile); err != nil {
		return err
	}
	out.Files = append(out.Files, filepath.Join(opt.OutDir, ProfileFile))

	if opt.Charts {
		charts, err := report.RenderCharts(filepath.Join(opt.OutDir, ChartsDir), out.Profile, res)
		if err != nil {
			return err
		}
		out.Files = append(out.Files, charts...)
	}
	log.Info().Str("stage", StageExport).Str("dir", opt.OutDir).Int("files", len(out.Files)).Msg("artifacts written")

	if opt.History != nil {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		modelAbs, err := filepath.Abs(modelPath)
		if err != nil {
			modelAbs = modelPath
		}
		err = opt.History.Record(ctx, history.Run{
			ID:           out.RunID,
			StartedAt:    started,
			Duration:     time.Since(started),
			Dataset:      abs,
			RowsTotal:    out.Dataset.Len(),
			RowsUsed:     out.Used,
			RowsExcluded: len(out.Excluded),
			RowsDropped:  out.Dropped,
			LabelPolicy:  opt.LabelPolicy,
			Scoring:      string(res.Scoring),
			Seed:         opt.Selection.Seed,
			Family:       string(res.Best.Family),
			Params:       res.Best.Params.Describe(res.Best.Family),
			CVScore:      res.CVScore,
			TestAccuracy: res.Test.Accuracy,
			TestMacroF1:  res.Test.MacroF1,
			BundlePath:   modelAbs,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteProfile writes the Markdown EDA report into dir.
func WriteProfile(dir string, rep *analysis.Report) (string, error) {
	if err := writeProfile(dir, rep); err != nil {
		return "", err
	}
	return filepath.Join(dir, ProfileFile), nil
}

func writeProfile(dir string, rep *analysis.Report) error {
	if err := utils.SafeWriteFile(filepath.Join(dir, ProfileFile), []byte(rep.Markdown())); err != nil {
		return fmt.Errorf("write %s: %w", ProfileFile, err)
	}
	return nil
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/medtext-cli/internal/classify"
	cfgpkg "github.com/KaramelBytes/medtext-cli/internal/config"
	"github.com/KaramelBytes/medtext-cli/internal/history"
	"github.com/KaramelBytes/medtext-cli/internal/pipeline"
)

var (
	trainOutDir      string
	trainSeed        uint64
	trainFolds       int
	trainWorkers     int
	trainScoring     string
	trainTestRatio   float64
	trainLabelPolicy string
	trainDelimiter   string
	trainFamilies    []string
	trainNoCharts    bool
	trainNoHistory   bool
)

var trainCmd = &cobra.Command{
	Use:   "train <file>",
	Short: "Profile, normalize and train a classifier; save the model bundle",
	Long: `Runs the full pipeline on a delimited article export:
load -> profile -> normalize -> label -> select -> export.

The output directory receives model.json (vectorizer, classifier and
normalizer saved together), stopwords.yaml, metrics.json, metrics.md,
profile.md and, unless disabled, PNG charts.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if err := applyTrainFlags(cmd, c); err != nil {
			return err
		}
		opt, err := pipeline.OptionsFromConfig(c)
		if err != nil {
			return err
		}

		ctx := commandContext(cmd, c)
		if c.History.Enabled {
			store, err := history.Open(ctx, c.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()
			opt.History = store
		}

		res, err := pipeline.Train(ctx, args[0], opt)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		sel := res.Selection
		fmt.Fprintf(out, "✓ Selected %s (cv %s %.4f)\n", sel.Best, sel.Scoring, sel.CVScore)
		fmt.Fprintf(out, "  test accuracy %.4f, macro F1 %.4f on %d rows\n", sel.Test.Accuracy, sel.Test.MacroF1, sel.Test.N)
		if n := len(res.Excluded); n > 0 {
			fmt.Fprintf(out, "⚠ Excluded %d records with empty text after normalization\n", n)
		}
		if res.Dropped > 0 {
			fmt.Fprintf(out, "⚠ Dropped %d records under label policy %q\n", res.Dropped, opt.LabelPolicy)
		}
		fmt.Fprintf(out, "✓ Wrote %d files to %s (run %s)\n", len(res.Files), opt.OutDir, res.RunID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(trainCmd)
	f := trainCmd.Flags()
	f.StringVarP(&trainOutDir, "out", "o", "", "output directory (overrides output.dir)")
	f.Uint64Var(&trainSeed, "seed", 0, "random seed (overrides selection.seed)")
	f.IntVar(&trainFolds, "folds", 0, "cross-validation folds (overrides selection.folds)")
	f.IntVar(&trainWorkers, "workers", 0, "parallel (candidate, fold) evaluations (overrides selection.workers)")
	f.StringVar(&trainScoring, "scoring", "", "accuracy|macro_f1 (overrides selection.scoring)")
	f.Float64Var(&trainTestRatio, "test-ratio", 0, "held-out test proportion (overrides selection.test_ratio)")
	f.StringVar(&trainLabelPolicy, "label-policy", "", "first|joined|drop_multi (overrides data.label_policy)")
	f.StringVar(&trainDelimiter, "delimiter", "", "field delimiter (one character or 'tab'; overrides config)")
	f.StringSliceVar(&trainFamilies, "families", nil, "restrict model families, e.g. naive_bayes,linear_svm")
	f.BoolVar(&trainNoCharts, "no-charts", false, "skip PNG charts")
	f.BoolVar(&trainNoHistory, "no-history", false, "do not record the run in the history ledger")
}

// applyTrainFlags copies changed flags onto the configuration.
func applyTrainFlags(cmd *cobra.Command, c *cfgpkg.Global) error {
	f := cmd.Flags()
	if f.Changed("out") {
		c.Output.Dir = trainOutDir
	}
	if f.Changed("seed") {
		c.Selection.Seed = trainSeed
	}
	if f.Changed("folds") {
		c.Selection.Folds = trainFolds
	}
	if f.Changed("workers") {
		c.Selection.Workers = trainWorkers
	}
	if f.Changed("scoring") {
		c.Selection.Scoring = trainScoring
	}
	if f.Changed("test-ratio") {
		c.Selection.TestRatio = trainTestRatio
	}
	if f.Changed("label-policy") {
		c.Data.LabelPolicy = trainLabelPolicy
	}
	if f.Changed("delimiter") {
		c.Data.Delimiter = trainDelimiter
	}
	if trainNoCharts {
		c.Output.Charts = false
	}
	if trainNoHistory {
		c.History.Enabled = false
	}
	if len(trainFamilies) > 0 {
		enabled := map[classify.Family]bool{}
		for _, name := range trainFamilies {
			fam := classify.Family(strings.TrimSpace(name))
			if !fam.Valid() {
				return fmt.Errorf("unknown family: %s", name)
			}
			enabled[fam] = true
		}
		c.Grids.NaiveBayes.Enabled = enabled[classify.NaiveBayes]
		c.Grids.LogisticRegression.Enabled = enabled[classify.LogisticRegression]
		c.Grids.LinearSVM.Enabled = enabled[classify.LinearSVM]
		c.Grids.RandomForest.Enabled = enabled[classify.RandomForest]
	}
	return nil
}

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	cfgpkg "github.com/KaramelBytes/medtext-cli/internal/config"
	"github.com/KaramelBytes/medtext-cli/internal/evaluation"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set medtext configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		b, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(b))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Long: `Set a scalar config value, e.g.:
  medtext config set selection.folds 10
  medtext config set data.label_policy drop_multi
  medtext config set grids.random_forest.enabled false`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := setKey(cfg, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func setKey(c *cfgpkg.Global, key, val string) error {
	var err error
	switch key {
	case "data.delimiter":
		c.Data.Delimiter = val
	case "data.label_policy":
		switch val {
		case cfgpkg.LabelFirst, cfgpkg.LabelJoined, cfgpkg.LabelDropMulti:
			c.Data.LabelPolicy = val
		default:
			return fmt.Errorf("invalid data.label_policy: %s (use first, joined or drop_multi)", val)
		}
	case "data.columns.id":
		c.Data.Columns.ID = val
	case "data.columns.title":
		c.Data.Columns.Title = val
	case "data.columns.abstract":
		c.Data.Columns.Abstract = val
	case "data.columns.source":
		c.Data.Columns.Source = val
	case "data.columns.group":
		c.Data.Columns.Group = val
	case "data.columns.manual":
		c.Data.Columns.Manual = val
	case "text.min_token_len":
		c.Text.MinTokenLen, err = parseInt(key, val, 1)
	case "text.lemmatize":
		c.Text.Lemmatize, err = parseBool(key, val)
	case "text.domain_stopwords":
		c.Text.DomainStopwords, err = parseBool(key, val)
	case "text.stopwords_file":
		c.Text.StopwordsFile = val
	case "vectorizer.ngram_min":
		c.Vectorizer.NgramMin, err = parseInt(key, val, 1)
	case "vectorizer.ngram_max":
		c.Vectorizer.NgramMax, err = parseInt(key, val, 1)
	case "vectorizer.min_df":
		c.Vectorizer.MinDF, err = parseFloat(key, val)
	case "vectorizer.max_df":
		c.Vectorizer.MaxDF, err = parseFloat(key, val)
	case "vectorizer.max_features":
		c.Vectorizer.MaxFeatures, err = parseInt(key, val, 0)
	case "vectorizer.sublinear_tf":
		c.Vectorizer.SublinearTF, err = parseBool(key, val)
	case "selection.test_ratio":
		c.Selection.TestRatio, err = parseFloat(key, val)
	case "selection.folds":
		c.Selection.Folds, err = parseInt(key, val, 2)
	case "selection.seed":
		c.Selection.Seed, err = strconv.ParseUint(val, 10, 64)
		if err != nil {
			err = fmt.Errorf("invalid uint for %s: %v", key, val)
		}
	case "selection.scoring":
		if !evaluation.Scoring(val).Valid() {
			return fmt.Errorf("invalid selection.scoring: %s (use accuracy or macro_f1)", val)
		}
		c.Selection.Scoring = val
	case "selection.workers":
		c.Selection.Workers, err = parseInt(key, val, 0)
	case "grids.naive_bayes.enabled":
		c.Grids.NaiveBayes.Enabled, err = parseBool(key, val)
	case "grids.logistic_regression.enabled":
		c.Grids.LogisticRegression.Enabled, err = parseBool(key, val)
	case "grids.linear_svm.enabled":
		c.Grids.LinearSVM.Enabled, err = parseBool(key, val)
	case "grids.random_forest.enabled":
		c.Grids.RandomForest.Enabled, err = parseBool(key, val)
	case "output.dir":
		c.Output.Dir = val
	case "output.charts":
		c.Output.Charts, err = parseBool(key, val)
	case "history.enabled":
		c.History.Enabled, err = parseBool(key, val)
	case "history.path":
		c.History.Path = val
	case "log.level":
		c.Log.Level = strings.ToLower(val)
	case "log.format":
		switch val {
		case "console", "json":
			c.Log.Format = val
		default:
			return fmt.Errorf("invalid log.format: %s (use console or json)", val)
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func parseInt(key, val string, min int) (int, error) {
	i, err := strconv.Atoi(val)
	if err != nil || i < min {
		return 0, fmt.Errorf("invalid int for %s: %v (min %d)", key, val, min)
	}
	return i, nil
}

func parseFloat(key, val string) (float64, error) {
	f, err := strconv.ParseFloat(val, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid float for %s: %v", key, val)
	}
	return f, nil
}

func parseBool(key, val string) (bool, error) {
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %v", key, val)
	}
	return b, nil
}

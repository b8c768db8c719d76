package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/medtext-cli/internal/dataset"
	"github.com/KaramelBytes/medtext-cli/internal/evaluation"
	"github.com/KaramelBytes/medtext-cli/internal/features"
	"github.com/KaramelBytes/medtext-cli/internal/selection"
	"github.com/KaramelBytes/medtext-cli/internal/textnorm"
	"github.com/KaramelBytes/medtext-cli/internal/utils"
)

// Label policies for multi-label group fields.
const (
	LabelFirst     = "first"
	LabelJoined    = "joined"
	LabelDropMulti = "drop_multi"
)

// Global configuration structure.
type Global struct {
	Data       Data             `mapstructure:"data" yaml:"data"`
	Text       Text             `mapstructure:"text" yaml:"text"`
	Vectorizer features.Options `mapstructure:"vectorizer" yaml:"vectorizer"`
	Selection  Selection        `mapstructure:"selection" yaml:"selection"`
	Grids      selection.Grids  `mapstructure:"grids" yaml:"grids"`
	Output     Output           `mapstructure:"output" yaml:"output"`
	History    History          `mapstructure:"history" yaml:"history"`
	Log        Log              `mapstructure:"log" yaml:"log"`
}

// Data describes the input file.
type Data struct {
	Delimiter   string                `mapstructure:"delimiter" yaml:"delimiter"`
	Columns     dataset.ColumnMapping `mapstructure:"columns" yaml:"columns"`
	LabelPolicy string                `mapstructure:"label_policy" yaml:"label_policy"`
}

// Text configures normalization and stopwords.
type Text struct {
	MinTokenLen     int      `mapstructure:"min_token_len" yaml:"min_token_len"`
	Lemmatize       bool     `mapstructure:"lemmatize" yaml:"lemmatize"`
	DomainStopwords bool     `mapstructure:"domain_stopwords" yaml:"domain_stopwords"`
	ExtraStopwords  []string `mapstructure:"extra_stopwords" yaml:"extra_stopwords"`
	StopwordsFile   string   `mapstructure:"stopwords_file" yaml:"stopwords_file"`
}

// Selection configures the split and cross-validation.
type Selection struct {
	TestRatio float64 `mapstructure:"test_ratio" yaml:"test_ratio"`
	Folds     int     `mapstructure:"folds" yaml:"folds"`
	Seed      uint64  `mapstructure:"seed" yaml:"seed"`
	Scoring   string  `mapstructure:"scoring" yaml:"scoring"`
	Workers   int     `mapstructure:"workers" yaml:"workers"`
}

// Output configures where artifacts go.
type Output struct {
	Dir    string `mapstructure:"dir" yaml:"dir"`
	Charts bool   `mapstructure:"charts" yaml:"charts"`
}

// History configures the sqlite run ledger.
type History struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// Log configures the zerolog logger.
type Log struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Dir returns ~/.medtext.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".medtext"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.medtext/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (applied by the caller) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("MEDTEXT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// an explicit --config must exist; the default location is optional
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	for _, p := range []*string{&c.Output.Dir, &c.History.Path, &c.Text.StopwordsFile} {
		v, err := utils.ExpandHome(*p)
		if err != nil {
			return nil, err
		}
		*p = v
	}
	if c.History.Path == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.History.Path = filepath.Join(dir, "history.db")
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	cols := dataset.DefaultColumns()
	v.SetDefault("data.delimiter", ";")
	v.SetDefault("data.columns.id", cols.ID)
	v.SetDefault("data.columns.title", cols.Title)
	v.SetDefault("data.columns.abstract", cols.Abstract)
	v.SetDefault("data.columns.source", cols.Source)
	v.SetDefault("data.columns.group", cols.Group)
	v.SetDefault("data.columns.manual", cols.Manual)
	v.SetDefault("data.label_policy", LabelFirst)

	tn := textnorm.DefaultOptions()
	v.SetDefault("text.min_token_len", tn.MinTokenLen)
	v.SetDefault("text.lemmatize", tn.Lemmatize)
	v.SetDefault("text.domain_stopwords", true)
	v.SetDefault("text.extra_stopwords", []string{})
	v.SetDefault("text.stopwords_file", "")

	vec := features.DefaultOptions()
	v.SetDefault("vectorizer.ngram_min", vec.NgramMin)
	v.SetDefault("vectorizer.ngram_max", vec.NgramMax)
	v.SetDefault("vectorizer.min_df", vec.MinDF)
	v.SetDefault("vectorizer.max_df", vec.MaxDF)
	v.SetDefault("vectorizer.max_features", vec.MaxFeatures)
	v.SetDefault("vectorizer.sublinear_tf", vec.SublinearTF)

	sel := selection.DefaultOptions()
	v.SetDefault("selection.test_ratio", sel.TestRatio)
	v.SetDefault("selection.folds", sel.Folds)
	v.SetDefault("selection.seed", sel.Seed)
	v.SetDefault("selection.scoring", string(sel.Scoring))
	v.SetDefault("selection.workers", sel.Workers)

	g := selection.DefaultGrids()
	v.SetDefault("grids.naive_bayes.enabled", g.NaiveBayes.Enabled)
	v.SetDefault("grids.naive_bayes.alpha", g.NaiveBayes.Alpha)
	v.SetDefault("grids.logistic_regression.enabled", g.LogisticRegression.Enabled)
	v.SetDefault("grids.logistic_regression.c", g.LogisticRegression.C)
	v.SetDefault("grids.logistic_regression.epochs", g.LogisticRegression.Epochs)
	v.SetDefault("grids.logistic_regression.learning_rate", g.LogisticRegression.LearningRate)
	v.SetDefault("grids.linear_svm.enabled", g.LinearSVM.Enabled)
	v.SetDefault("grids.linear_svm.c", g.LinearSVM.C)
	v.SetDefault("grids.linear_svm.epochs", g.LinearSVM.Epochs)
	v.SetDefault("grids.random_forest.enabled", g.RandomForest.Enabled)
	v.SetDefault("grids.random_forest.trees", g.RandomForest.Trees)
	v.SetDefault("grids.random_forest.max_depth", g.RandomForest.MaxDepth)
	v.SetDefault("grids.random_forest.min_samples_leaf", g.RandomForest.MinSamplesLeaf)

	v.SetDefault("output.dir", "medtext-out")
	v.SetDefault("output.charts", true)
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// LoadOptions maps the data section to loader options. The delimiter may
// be a single character or "tab".
func (c *Global) LoadOptions() (dataset.LoadOptions, error) {
	d := c.Data.Delimiter
	var r rune
	switch {
	case d == "tab" || d == `\t`:
		r = '\t'
	case utf8.RuneCountInString(d) == 1:
		r, _ = utf8.DecodeRuneInString(d)
	default:
		return dataset.LoadOptions{}, fmt.Errorf("invalid data.delimiter %q: want one character or \"tab\"", d)
	}
	return dataset.LoadOptions{Delimiter: r, Columns: c.Data.Columns}, nil
}

// NormalizerOptions maps the text section.
func (c *Global) NormalizerOptions() textnorm.Options {
	return textnorm.Options{MinTokenLen: c.Text.MinTokenLen, Lemmatize: c.Text.Lemmatize}
}

// Stopwords builds the general English list ∪ the domain list (when
// enabled) ∪ extra words ∪ the optional YAML file.
func (c *Global) Stopwords() (textnorm.StopwordSet, error) {
	lists := [][]string{textnorm.DefaultEnglish(), c.Text.ExtraStopwords}
	if c.Text.DomainStopwords {
		lists = append(lists, textnorm.DefaultDomain())
	}
	if c.Text.StopwordsFile != "" {
		words, err := textnorm.LoadList(c.Text.StopwordsFile)
		if err != nil {
			return textnorm.StopwordSet{}, err
		}
		lists = append(lists, words)
	}
	return textnorm.NewStopwordSet(lists...), nil
}

// SelectionOptions maps the selection, vectorizer and grids sections.
func (c *Global) SelectionOptions() selection.Options {
	return selection.Options{
		TestRatio:  c.Selection.TestRatio,
		Folds:      c.Selection.Folds,
		Seed:       c.Selection.Seed,
		Scoring:    evaluation.Scoring(c.Selection.Scoring),
		Workers:    c.Selection.Workers,
		Vectorizer: c.Vectorizer,
		Grids:      c.Grids,
	}
}

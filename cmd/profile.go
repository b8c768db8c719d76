package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/medtext-cli/internal/analysis"
	"github.com/KaramelBytes/medtext-cli/internal/pipeline"
	"github.com/KaramelBytes/medtext-cli/internal/report"
	"github.com/KaramelBytes/medtext-cli/internal/textnorm"
	"github.com/KaramelBytes/medtext-cli/internal/utils"
)

var (
	profOutputPath string
	profChartsDir  string
	profDelimiter  string
	profTopWords   int
	profTopCats    int
	profOutlierThr float64
	profQuiet      bool
)

var profileCmd = &cobra.Command{
	Use:   "profile <file>",
	Short: "Profile an article export (EDA) without training",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if profDelimiter != "" {
			c.Data.Delimiter = profDelimiter
		}
		load, err := c.LoadOptions()
		if err != nil {
			return err
		}
		stop, err := c.Stopwords()
		if err != nil {
			return err
		}
		opt := analysis.DefaultOptions()
		opt.Normalizer = textnorm.New(stop, c.NormalizerOptions())
		if profTopWords > 0 {
			opt.TopWords = profTopWords
		}
		if cmd.Flags().Changed("top-categories") {
			opt.TopCategories = profTopCats
		}
		if cmd.Flags().Changed("outlier-threshold") {
			opt.OutlierThreshold = profOutlierThr
		}

		ctx := commandContext(cmd, c)
		rep, err := pipeline.Profile(ctx, args[0], load, opt)
		if err != nil {
			return err
		}
		md := rep.Markdown()

		out := cmd.OutOrStdout()
		written := false
		if profOutputPath != "" {
			if err := utils.SafeWriteFile(profOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(out, "✓ Wrote profile to %s\n", profOutputPath)
			written = true
		}
		if profChartsDir != "" {
			paths, err := report.RenderCharts(profChartsDir, rep, nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Wrote %d charts to %s\n", len(paths), profChartsDir)
		}
		if !written && !profQuiet {
			fmt.Fprintln(out, md)
		}
		for _, w := range rep.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ %s\n", w)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().StringVarP(&profOutputPath, "output", "o", "", "write the Markdown profile to this file instead of stdout")
	profileCmd.Flags().StringVar(&profChartsDir, "charts", "", "render PNG charts into this directory")
	profileCmd.Flags().StringVar(&profDelimiter, "delimiter", "", "field delimiter (one character or 'tab'; overrides config)")
	profileCmd.Flags().IntVar(&profTopWords, "top", 0, "number of top words to list (default 20)")
	profileCmd.Flags().IntVar(&profTopCats, "top-categories", 10, "rows per category table (0 = all)")
	profileCmd.Flags().Float64Var(&profOutlierThr, "outlier-threshold", 3.5, "robust z-score threshold for length outliers (0 disables)")
	profileCmd.Flags().BoolVarP(&profQuiet, "quiet", "q", false, "do not print the profile to stdout")
}

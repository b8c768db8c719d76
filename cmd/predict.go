package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/medtext-cli/internal/bundle"
	"github.com/KaramelBytes/medtext-cli/internal/dataset"
)

var (
	predModel     string
	predFile      string
	predOutput    string
	predDelimiter string
	predVerbose   bool
)

var predictCmd = &cobra.Command{
	Use:   "predict [text...]",
	Short: "Classify text or a delimited file with a saved model bundle",
	Long: `Classify ad-hoc text given as arguments, or every row of a delimited
article file given with --file. File predictions are written as
id;title;predicted rows to --output or stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if predFile == "" && len(args) == 0 {
			return fmt.Errorf("provide text arguments or --file")
		}
		path := predModel
		if path == "" {
			c, err := requireConfig()
			if err != nil {
				return err
			}
			path = c.Output.Dir
		}
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			path = bundle.ModelPath(path)
		}
		b, err := bundle.Load(path)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if predFile == "" {
			text := strings.Join(args, " ")
			p := b.Predict(text)
			fmt.Fprintln(out, p.Label)
			if predVerbose {
				fmt.Fprintf(out, "  tokens: %s\n", b.TextNormalizer().NormalizeJoined(text))
				fmt.Fprintf(out, "  known features: %d, tokens: %d\n", p.KnownTerms, p.Tokens)
			}
			return nil
		}
		return predictFile(cmd, b)
	},
}

func predictFile(cmd *cobra.Command, b *bundle.Bundle) error {
	c, err := requireConfig()
	if err != nil {
		return err
	}
	if predDelimiter != "" {
		c.Data.Delimiter = predDelimiter
	}
	load, err := c.LoadOptions()
	if err != nil {
		return err
	}
	ds, err := dataset.Load(predFile, load)
	if err != nil {
		return err
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	w.Comma = load.Delimiter
	_ = w.Write([]string{"id", "title", "predicted"})
	unknown := 0
	for _, a := range ds.Records() {
		p := b.Predict(a.Text())
		if p.KnownTerms == 0 {
			unknown++
		}
		_ = w.Write([]string{a.ID, a.Title, p.Label})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write predictions: %w", err)
	}

	if predOutput != "" {
		if err := os.WriteFile(predOutput, []byte(sb.String()), 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d predictions to %s\n", ds.Len(), predOutput)
	} else {
		fmt.Fprint(cmd.OutOrStdout(), sb.String())
	}
	if unknown > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "⚠ %d rows had no terms from the model vocabulary\n", unknown)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(predictCmd)
	predictCmd.Flags().StringVarP(&predModel, "model", "m", "", "model.json or the output directory containing it (default output.dir)")
	predictCmd.Flags().StringVarP(&predFile, "file", "f", "", "delimited article file to classify")
	predictCmd.Flags().StringVarP(&predOutput, "output", "o", "", "write file predictions here instead of stdout")
	predictCmd.Flags().StringVar(&predDelimiter, "delimiter", "", "field delimiter for --file (overrides config)")
	predictCmd.Flags().BoolVarP(&predVerbose, "verbose", "v", false, "show normalized tokens for text input")
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/medtext-cli/internal/analysis"
	"github.com/KaramelBytes/medtext-cli/internal/pipeline"
	"github.com/KaramelBytes/medtext-cli/internal/textnorm"
	"github.com/KaramelBytes/medtext-cli/internal/utils"
)

var (
	pbOutDir    string
	pbDelimiter string
	pbTopWords  int
	pbQuiet     bool
)

var profileBatchCmd = &cobra.Command{
	Use:   "profile-batch <files...>",
	Short: "Profile several article exports (globs allowed) into one directory",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if pbDelimiter != "" {
			c.Data.Delimiter = pbDelimiter
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
		if pbTopWords > 0 {
			opt.TopWords = pbTopWords
		}
		if err := utils.EnsureDir(pbOutDir); err != nil {
			return err
		}

		ctx := commandContext(cmd, c)
		out := cmd.OutOrStdout()
		total := len(files)
		for i, path := range files {
			if !pbQuiet {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			rep, err := pipeline.Profile(ctx, path, load, opt)
			if err != nil {
				return err
			}
			base := filepath.Base(path)
			outFile := uniquePath(pbOutDir, strings.TrimSuffix(base, filepath.Ext(base)), ".profile.md")
			if err := utils.SafeWriteFile(outFile, []byte(rep.Markdown())); err != nil {
				return fmt.Errorf("write profile: %w", err)
			}
			if !pbQuiet {
				fmt.Fprintf(out, "✓ Wrote %s\n", outFile)
			}
		}
		return nil
	},
}

// expandInputs resolves globs and literal paths into a sorted, deduplicated list.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

// uniquePath returns dir/base+ext, or dir/base__N+ext when that exists.
func uniquePath(dir, base, ext string) string {
	p := filepath.Join(dir, base+ext)
	if _, err := os.Stat(p); err != nil {
		return p
	}
	for idx := 2; ; idx++ {
		cand := filepath.Join(dir, fmt.Sprintf("%s__%d%s", base, idx, ext))
		if _, err := os.Stat(cand); os.IsNotExist(err) {
			return cand
		}
	}
}

func init() {
	rootCmd.AddCommand(profileBatchCmd)
	profileBatchCmd.Flags().StringVarP(&pbOutDir, "out", "o", "profiles", "directory for the <name>.profile.md files")
	profileBatchCmd.Flags().StringVar(&pbDelimiter, "delimiter", "", "field delimiter (one character or 'tab'; overrides config)")
	profileBatchCmd.Flags().IntVar(&pbTopWords, "top", 0, "number of top words to list (default 20)")
	profileBatchCmd.Flags().BoolVar(&pbQuiet, "quiet", false, "suppress progress output")
}

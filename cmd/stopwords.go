package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/medtext-cli/internal/textnorm"
)

var stopwordsCmd = &cobra.Command{
	Use:   "stopwords",
	Short: "Inspect or export the effective stopword list",
}

var stopwordsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective stopword list (general ∪ domain ∪ extra ∪ file)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		set, err := c.Stopwords()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d stopwords\n%s\n", set.Len(), strings.Join(set.List(), " "))
		return nil
	},
}

var stopwordsExportCmd = &cobra.Command{
	Use:   "export <file.yaml>",
	Short: "Write the effective stopword list as a YAML sequence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		set, err := c.Stopwords()
		if err != nil {
			return err
		}
		if err := textnorm.SaveList(args[0], set.List()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d stopwords to %s\n", set.Len(), args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stopwordsCmd)
	stopwordsCmd.AddCommand(stopwordsShowCmd)
	stopwordsCmd.AddCommand(stopwordsExportCmd)
}

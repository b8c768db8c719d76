package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/medtext-cli/internal/history"
	"github.com/KaramelBytes/medtext-cli/internal/utils"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded training runs, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		ctx := commandContext(cmd, c)
		store, err := history.Open(ctx, c.History.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		runs, err := store.List(ctx, historyLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs recorded")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
		fmt.Fprintln(tw, "STARTED\tRUN\tDATASET\tROWS\tFAMILY\tPARAMS\tCV\tTEST ACC\tTEST F1")
		for _, r := range runs {
			id := r.ID
			if len(id) > 8 {
				id = id[:8]
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\t%s\t%.4f\t%.4f\t%.4f\n",
				r.StartedAt.Local().Format("2006-01-02 15:04"), id, r.Dataset, r.RowsUsed, r.RowsTotal,
				r.Family, utils.Truncate(r.Params, 48), r.CVScore, r.TestAccuracy, r.TestMacroF1)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of runs to show (0 = all)")
}

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:     "history",
	Short:   "Show recent sync and bulk update runs",
	GroupID: "engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.DB.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		tenantID, _ := cmd.Flags().GetUint("tenant")
		asJSON, _ := cmd.Flags().GetBool("json")

		runs, err := a.History.List(cmd.Context(), tenantID, limit)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), runs)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "STARTED\tTENANT\tKIND\tSTATUS\tPROCESSED\tCREATED\tUPDATED\tERRORS\tMS")
		for _, h := range runs {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
				h.StartedAt.Format("2006-01-02 15:04:05"), h.TenantID, h.Kind, h.Status,
				h.Processed, h.Created, h.Updated, h.Errors, h.Duration)
		}
		return tw.Flush()
	},
}

func init() {
	historyCmd.Flags().Int("limit", 30, "number of runs")
	historyCmd.Flags().Uint("tenant", 0, "only runs of this tenant")
	historyCmd.Flags().Bool("json", false, "print JSON")
	rootCmd.AddCommand(historyCmd)
}

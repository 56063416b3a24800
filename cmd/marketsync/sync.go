package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
	"github.com/xelth-com/eckmarket/internal/services/ordersync"
)

var syncOrdersCmd = &cobra.Command{
	Use:     "sync-orders",
	Short:   "Pull orders of one tenant for a date range",
	GroupID: "engine",
	Example: `  marketsync sync-orders --tenant 1 --from 2024-01-01 --to 2024-02-20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.DB.Close()

		tenantID, _ := cmd.Flags().GetUint("tenant")
		fromStr, _ := cmd.Flags().GetString("from")
		toStr, _ := cmd.Flags().GetString("to")
		pageSize, _ := cmd.Flags().GetInt("page-size")

		to := time.Now().UTC()
		if toStr != "" {
			if to, err = parseDate(toStr); err != nil {
				return err
			}
		}
		from := to.Add(-a.Config.Engine.Lookback())
		if fromStr != "" {
			if from, err = parseDate(fromStr); err != nil {
				return err
			}
		}

		tenant, err := a.Tenants.Get(cmd.Context(), tenantID)
		if err != nil {
			return err
		}

		res, err := a.OrderSync.SyncOrders(cmd.Context(), tenant, ordersync.RangeOf(from, to), pageSize)
		if res != nil {
			if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
				return perr
			}
		}
		if err != nil {
			return err
		}
		if res.Status == ordersync.StatusQuotaExceeded {
			return errors.New("monthly order quota exceeded")
		}
		return nil
	},
}

func init() {
	syncOrdersCmd.Flags().Uint("tenant", 0, "tenant id")
	syncOrdersCmd.Flags().String("from", "", "range start (default: now minus lookback)")
	syncOrdersCmd.Flags().String("to", "", "range end (default: now)")
	syncOrdersCmd.Flags().Int("page-size", 0, "page size (default from config, max 200)")
	_ = syncOrdersCmd.MarkFlagRequired("tenant")
	rootCmd.AddCommand(syncOrdersCmd)
}

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xelth-com/eckmarket/internal/services/bulkupdate"
)

var bulkUpdateCmd = &cobra.Command{
	Use:     "bulk-update",
	Short:   "Push price/stock changes from a JSON file",
	GroupID: "engine",
	Long: `Reads a JSON array of changes, e.g.

  [{"barcode": "869000000001", "price": 149.9, "quantity": 12}]

and submits them in chunks of at most 500 items. Local product state is only
updated for items the platform confirms.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tenantID, _ := cmd.Flags().GetUint("tenant")
		file, _ := cmd.Flags().GetString("file")

		changes, err := readChanges(file)
		if err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.DB.Close()

		tenant, err := a.Tenants.Get(cmd.Context(), tenantID)
		if err != nil {
			return err
		}

		res, err := a.Bulk.ApplyBulkChanges(cmd.Context(), tenant, changes)
		if res != nil {
			if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
				return perr
			}
		}
		return err
	},
}

func readChanges(path string) ([]bulkupdate.Change, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var changes []bulkupdate.Change
	if err := json.Unmarshal(data, &changes); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return changes, nil
}

func init() {
	bulkUpdateCmd.Flags().Uint("tenant", 0, "tenant id")
	bulkUpdateCmd.Flags().String("file", "", "JSON file with changes")
	_ = bulkUpdateCmd.MarkFlagRequired("tenant")
	_ = bulkUpdateCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(bulkUpdateCmd)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xelth-com/eckmarket/internal/config"
	"github.com/xelth-com/eckmarket/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:     "migrate",
	Short:   "Create or update the database schema",
	GroupID: "admin",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

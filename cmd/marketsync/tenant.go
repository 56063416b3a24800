package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xelth-com/eckmarket/internal/tenants"
)

var tenantCmd = &cobra.Command{
	Use:     "tenant",
	Short:   "Manage marketplace seller accounts",
	GroupID: "admin",
}

var tenantAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a tenant and store its encrypted API credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.DB.Close()

		name, _ := cmd.Flags().GetString("name")
		supplier, _ := cmd.Flags().GetString("supplier-id")
		key, _ := cmd.Flags().GetString("api-key")
		secret, _ := cmd.Flags().GetString("api-secret")
		plan, _ := cmd.Flags().GetString("plan")

		in := tenants.CreateInput{
			Name:       name,
			SupplierID: supplier,
			APIKey:     key,
			APISecret:  secret,
			Plan:       plan,
		}
		if cmd.Flags().Changed("order-limit") {
			limit, _ := cmd.Flags().GetInt64("order-limit")
			in.MonthlyOrderLimit = &limit
		}

		t, err := a.Tenants.Create(cmd.Context(), in)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created tenant %d (%s)\n", t.ID, t.SupplierID)
		return nil
	},
}

var tenantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active tenants",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.DB.Close()

		list, err := a.Tenants.ListActive(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), list)
	},
}

func init() {
	tenantAddCmd.Flags().String("name", "", "display name")
	tenantAddCmd.Flags().String("supplier-id", "", "marketplace supplier (account) id")
	tenantAddCmd.Flags().String("api-key", "", "marketplace API key")
	tenantAddCmd.Flags().String("api-secret", "", "marketplace API secret")
	tenantAddCmd.Flags().String("plan", "standard", "plan name")
	tenantAddCmd.Flags().Int64("order-limit", 0, "monthly order ceiling (omit for unlimited)")
	_ = tenantAddCmd.MarkFlagRequired("supplier-id")
	_ = tenantAddCmd.MarkFlagRequired("api-key")
	_ = tenantAddCmd.MarkFlagRequired("api-secret")

	tenantCmd.AddCommand(tenantAddCmd, tenantListCmd)
	rootCmd.AddCommand(tenantCmd)
}

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/xelth-com/eckmarket/internal/config"
	"github.com/xelth-com/eckmarket/internal/utils"
)

var tokenCmd = &cobra.Command{
	Use:     "token",
	Short:   "Mint a bearer token for the HTTP API",
	GroupID: "admin",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.JWTSecret == "" {
			return errors.New("JWT_SECRET is not set")
		}

		subject, _ := cmd.Flags().GetString("subject")
		role, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		tenantID, _ := cmd.Flags().GetUint("tenant")

		var token string
		if tenantID != 0 {
			token, err = utils.GenerateTenantToken(subject, tenantID, cfg.JWTSecret, ttl)
		} else {
			token, err = utils.GenerateServiceToken(subject, role, cfg.JWTSecret, ttl)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("subject", "operator", "token subject")
	tokenCmd.Flags().String("role", "operator", "token role claim")
	tokenCmd.Flags().Uint("tenant", 0, "scope the token to one tenant's progress feed")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}

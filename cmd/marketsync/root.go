package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/xelth-com/eckmarket/internal/app"
	"github.com/xelth-com/eckmarket/internal/config"
	"github.com/xelth-com/eckmarket/internal/database"
	"github.com/xelth-com/eckmarket/internal/events"
)

var rootCmd = &cobra.Command{
	Use:   "marketsync",
	Short: "Operator CLI for the marketplace sync engine",
	Long: `marketsync runs order syncs and bulk price/stock updates against the marketplace
platform outside the HTTP server, and manages tenants and API tokens.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "engine", Title: "Engine Commands:"},
		&cobra.Group{ID: "admin", Title: "Administration Commands:"},
	)
}

// openApp connects to the database and wires the engine; callers must close the DB
func openApp() (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	a, err := app.New(cfg, db, nil, progressPrinter{w: os.Stderr})
	if err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

// progressPrinter writes engine progress events as single lines
type progressPrinter struct {
	w io.Writer
}

func (p progressPrinter) Publish(e events.Event) {
	var parts []string
	for k, v := range e.Data {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	fmt.Fprintf(p.w, "%s %-16s %s\n", e.At.Format("15:04:05"), e.Type, strings.Join(parts, " "))
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates (UTC)
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}

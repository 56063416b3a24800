package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/eckmarket/internal/events"
	"github.com/xelth-com/eckmarket/internal/utils"
)

func TestParseDate(t *testing.T) {
	d, err := parseDate("2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), d)

	d, err = parseDate("2024-01-15T10:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, 10, d.Hour())

	_, err = parseDate("15/01/2024")
	assert.Error(t, err)
}

func TestReadChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"barcode":"A","price":10.5},{"barcode":"B","quantity":3}]`), 0o600))

	changes, err := readChanges(path)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, 10.5, *changes[0].Price)
	assert.Nil(t, changes[0].Quantity)
	assert.Equal(t, int64(3), *changes[1].Quantity)
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	progressPrinter{w: &buf}.Publish(events.Event{
		Type: events.TypeSyncPage,
		At:   time.Date(2024, 1, 1, 9, 5, 0, 0, time.UTC),
		Data: map[string]interface{}{"page": 2},
	})
	assert.True(t, strings.HasPrefix(buf.String(), "09:05:00 SYNC_PAGE"))
	assert.Contains(t, buf.String(), "page=2")
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"token", "--subject", "cron"})
	require.NoError(t, rootCmd.Execute())

	claims, err := utils.ValidateToken(strings.TrimSpace(out.String()), "cli-secret")
	require.NoError(t, err)
	assert.Equal(t, "cron", claims["sub"])
}

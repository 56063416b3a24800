package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"
)

// Poll modes for batch results
const (
	PollModeFixed   = "fixed"
	PollModeBackoff = "backoff"
)

// EngineConfig tunes the order sync and bulk update engines
type EngineConfig struct {
	// ============ ORDER SYNC ============
	MaxWindowDays   int `json:"max_window_days"`   // platform rejects wider date ranges
	DefaultPageSize int `json:"default_page_size"` // used when the caller passes 0
	MaxPageSize     int `json:"max_page_size"`

	// ============ BULK UPDATE ============
	BatchChunkSize     int    `json:"batch_chunk_size"`
	SettleDelaySeconds int    `json:"settle_delay_seconds"`
	PollMode           string `json:"poll_mode"` // fixed, backoff
	BackoffInitialMs   int    `json:"backoff_initial_ms"`
	BackoffMaxMs       int    `json:"backoff_max_ms"`
	BackoffMaxTries    int    `json:"backoff_max_tries"`

	// ============ SCHEDULING ============
	SchedulerEnabled  bool `json:"scheduler_enabled"`
	SchedulerInterval int  `json:"scheduler_interval"` // minutes
	LookbackHours     int  `json:"lookback_hours"`
}

// LoadEngineConfig reads SYNC_CONFIG_FILE when set, then applies env overrides
func LoadEngineConfig() *EngineConfig {
	cfg := DefaultEngineConfig()

	if path := os.Getenv("SYNC_CONFIG_FILE"); path != "" {
		fromFile, err := loadEngineConfigFromFile(path)
		if err != nil {
			log.Printf("⚠️ Engine config: %v, using defaults", err)
		} else {
			cfg = fromFile
		}
	}

	cfg.MaxWindowDays = getIntEnv("SYNC_MAX_WINDOW_DAYS", cfg.MaxWindowDays)
	cfg.DefaultPageSize = getIntEnv("SYNC_PAGE_SIZE", cfg.DefaultPageSize)
	cfg.BatchChunkSize = getIntEnv("BATCH_CHUNK_SIZE", cfg.BatchChunkSize)
	cfg.SettleDelaySeconds = getIntEnv("BATCH_SETTLE_SECONDS", cfg.SettleDelaySeconds)
	cfg.PollMode = getEnv("BATCH_POLL_MODE", cfg.PollMode)
	cfg.SchedulerEnabled = getBoolEnv("SCHEDULER_ENABLED", cfg.SchedulerEnabled)
	cfg.SchedulerInterval = getIntEnv("SCHEDULER_INTERVAL", cfg.SchedulerInterval)
	cfg.LookbackHours = getIntEnv("SCHEDULER_LOOKBACK_HOURS", cfg.LookbackHours)

	return cfg
}

func loadEngineConfigFromFile(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg := DefaultEngineConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultEngineConfig returns the platform defaults
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		MaxWindowDays:      14,
		DefaultPageSize:    200,
		MaxPageSize:        200,
		BatchChunkSize:     500,
		SettleDelaySeconds: 10,
		PollMode:           PollModeFixed,
		BackoffInitialMs:   2000,
		BackoffMaxMs:       30000,
		BackoffMaxTries:    6,
		SchedulerEnabled:   true,
		SchedulerInterval:  15,
		LookbackHours:      72,
	}
}

// Validate rejects settings the platform would refuse anyway
func (c *EngineConfig) Validate() error {
	if c.MaxWindowDays <= 0 || c.MaxWindowDays > 14 {
		return fmt.Errorf("max_window_days must be between 1 and 14, got %d", c.MaxWindowDays)
	}
	if c.MaxPageSize <= 0 {
		return fmt.Errorf("max_page_size must be positive")
	}
	if c.DefaultPageSize <= 0 || c.DefaultPageSize > c.MaxPageSize {
		return fmt.Errorf("default_page_size must be between 1 and %d", c.MaxPageSize)
	}
	if c.BatchChunkSize <= 0 || c.BatchChunkSize > 500 {
		return fmt.Errorf("batch_chunk_size must be between 1 and 500, got %d", c.BatchChunkSize)
	}
	if c.SettleDelaySeconds < 0 {
		return fmt.Errorf("settle_delay_seconds cannot be negative")
	}
	switch c.PollMode {
	case PollModeFixed:
	case PollModeBackoff:
		if c.BackoffMaxTries <= 0 {
			return fmt.Errorf("backoff_max_tries must be positive in backoff mode")
		}
	default:
		return fmt.Errorf("unknown poll_mode %q", c.PollMode)
	}
	return nil
}

// MaxWindow returns the widest date range one order request may cover
func (c *EngineConfig) MaxWindow() time.Duration {
	return time.Duration(c.MaxWindowDays) * 24 * time.Hour
}

// SettleDelay returns the wait between submitting a batch and polling it
func (c *EngineConfig) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelaySeconds) * time.Second
}

// SchedulerEvery returns the scheduler tick interval
func (c *EngineConfig) SchedulerEvery() time.Duration {
	if c.SchedulerInterval <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.SchedulerInterval) * time.Minute
}

// Lookback returns how far back each scheduled pass re-reads orders
func (c *EngineConfig) Lookback() time.Duration {
	if c.LookbackHours <= 0 {
		return 72 * time.Hour
	}
	return time.Duration(c.LookbackHours) * time.Hour
}

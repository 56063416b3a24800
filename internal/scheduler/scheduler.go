// Package scheduler runs order sync for every active tenant on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"sync"
	"time"

	"github.com/xelth-com/eckmarket/internal/models"
	"github.com/xelth-com/eckmarket/internal/services/ordersync"
	"github.com/xelth-com/eckmarket/internal/tenants"
)

// TenantLister returns the tenants eligible for scheduled sync
type TenantLister interface {
	ListActive(ctx context.Context) ([]models.Tenant, error)
}

// OrderSyncer is the orchestrator entry point
type OrderSyncer interface {
	SyncOrders(ctx context.Context, t *models.Tenant, r ordersync.Range, pageSize int) (*ordersync.Result, error)
}

// Config holds scheduling settings
type Config struct {
	Interval     time.Duration
	Lookback     time.Duration
	InitialDelay time.Duration
	PageSize     int
}

// Scheduler triggers order sync passes in the background
type Scheduler struct {
	tenants TenantLister
	syncer  OrderSyncer
	cfg     Config
	now     func() time.Time

	stop    chan struct{}
	done    chan struct{}
	running sync.Mutex
}

// New creates a scheduler
func New(tenants TenantLister, syncer OrderSyncer, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 72 * time.Hour
	}
	return &Scheduler{
		tenants: tenants,
		syncer:  syncer,
		cfg:     cfg,
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start begins the background loop: one pass after InitialDelay, then one per Interval
func (s *Scheduler) Start() {
	go func() {
		defer close(s.done)
		log.Println("📡 Order Sync Scheduler started")

		select {
		case <-time.After(s.cfg.InitialDelay):
		case <-s.stop:
			return
		}
		s.runPass()

		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runPass()
			case <-s.stop:
				log.Println("🛑 Order Sync Scheduler stopped")
				return
			}
		}
	}()
}

// Stop halts the loop and waits for a running pass to return
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Scheduler) runPass() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.stop:
			cancel()
		case <-ctx.Done():
		}
	}()
	if _, err := s.RunOnce(ctx); err != nil {
		slog.Error("Scheduled sync pass failed", "error", err)
	}
}

// PassSummary reports one pass over all active tenants
type PassSummary struct {
	Tenants       int
	Succeeded     int
	QuotaExceeded int
	Busy          int
	Failed        int
}

// RunOnce syncs every active tenant over the trailing lookback window. Tenants are
// processed one after another; a failing tenant does not stop the pass.
func (s *Scheduler) RunOnce(ctx context.Context) (PassSummary, error) {
	s.running.Lock()
	defer s.running.Unlock()

	var summary PassSummary
	active, err := s.tenants.ListActive(ctx)
	if err != nil {
		return summary, err
	}
	summary.Tenants = len(active)

	end := s.now()
	r := ordersync.RangeOf(end.Add(-s.cfg.Lookback), end)

	for i := range active {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		t := &active[i]
		res, err := s.syncer.SyncOrders(ctx, t, r, s.cfg.PageSize)
		switch {
		case errors.Is(err, tenants.ErrBusy):
			summary.Busy++
			slog.Info("Skipping tenant with a run in progress", "tenant_id", t.ID)
		case err != nil:
			summary.Failed++
			slog.Warn("Scheduled order sync failed", "tenant_id", t.ID, "error", err)
		case res.Status == ordersync.StatusQuotaExceeded:
			summary.QuotaExceeded++
		default:
			summary.Succeeded++
		}
	}

	slog.Info("Scheduled sync pass finished", "tenants", summary.Tenants, "succeeded", summary.Succeeded,
		"quota_exceeded", summary.QuotaExceeded, "busy", summary.Busy, "failed", summary.Failed)
	return summary, nil
}

// Package ordersync pulls marketplace orders into local storage window by window,
// page by page, charging newly seen orders against the tenant's monthly quota.
package ordersync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xelth-com/eckmarket/internal/config"
	"github.com/xelth-com/eckmarket/internal/events"
	"github.com/xelth-com/eckmarket/internal/marketplace"
	"github.com/xelth-com/eckmarket/internal/models"
	"github.com/xelth-com/eckmarket/internal/quota"
	"github.com/xelth-com/eckmarket/internal/store"
	"github.com/xelth-com/eckmarket/internal/telemetry"
	"github.com/xelth-com/eckmarket/internal/tenants"
)

// Run statuses
const (
	StatusSuccess       = "success"
	StatusFailed        = "failed"
	StatusQuotaExceeded = "quota_exceeded"
)

const maxReportedFailures = 50

// OrderFetcher reads pages of shipment packages; *marketplace.Client implements it
type OrderFetcher interface {
	FetchOrders(ctx context.Context, q marketplace.OrderQuery) (*marketplace.OrderPage, error)
}

// GatewayFunc returns the platform gateway of a tenant
type GatewayFunc func(t *models.Tenant) (OrderFetcher, error)

// OrderSaver persists one page of orders
type OrderSaver interface {
	UpsertMany(ctx context.Context, tenantID uint, orders []models.MarketplaceOrder) store.SaveResult
}

// QuotaGate is the check-then-commit contract of the quota tracker
type QuotaGate interface {
	CurrentCount(ctx context.Context, tenantID uint, metric string) (int64, error)
	CheckAndReserve(ctx context.Context, tenantID uint, metric string, prospectiveTotal int64) error
	Commit(ctx context.Context, tenantID uint, metric string, increment int64) error
}

// HistoryRecorder persists finished runs
type HistoryRecorder interface {
	Record(ctx context.Context, h *models.SyncHistory) error
}

// QuotaViolation describes the page that would have crossed the ceiling
type QuotaViolation struct {
	CurrentCountBeforeFetch int64 `json:"currentCountBeforeFetch"`
	BatchNewlyInserted      int   `json:"batchNewlyInserted"`
	Ceiling                 int64 `json:"ceiling"`
	Prospective             int64 `json:"prospective"`
}

// Result aggregates one sync run. Totals are cumulative up to the point the run stopped.
type Result struct {
	RunID         string              `json:"runId"`
	TenantID      uint                `json:"tenantId"`
	Status        string              `json:"status"`
	Processed     int                 `json:"processed"`
	Success       int                 `json:"success"`
	Failed        int                 `json:"failed"`
	NewlyInserted int                 `json:"newlyInserted"`
	Updated       int                 `json:"updated"`
	DurationMs    int64               `json:"durationMs"`
	Windows       int                 `json:"windows"`
	WindowsDone   int                 `json:"windowsDone"`
	Pages         int                 `json:"pages"`
	Failures      []store.RecordError `json:"failures,omitempty"`
	Quota         *QuotaViolation     `json:"quota,omitempty"`
	Error         string              `json:"error,omitempty"`
}

// Deps wires the collaborators of Service
type Deps struct {
	Gateway   GatewayFunc
	Orders    OrderSaver
	Quota     QuotaGate
	History   HistoryRecorder
	Events    events.Publisher
	Telemetry *telemetry.SyncTelemetry
	Config    *config.EngineConfig
	Logger    *slog.Logger
	// Locks serializes runs per tenant; share one with the bulk update engine
	Locks *tenants.Locks
}

// Service is the order sync orchestrator
type Service struct {
	gateway GatewayFunc
	orders  OrderSaver
	quota   QuotaGate
	history HistoryRecorder
	events  events.Publisher
	tel     *telemetry.SyncTelemetry
	cfg     *config.EngineConfig
	logger  *slog.Logger
	locks   *tenants.Locks
	now     func() time.Time
}

// NewService creates the orchestrator
func NewService(d Deps) *Service {
	s := &Service{
		gateway: d.Gateway,
		orders:  d.Orders,
		quota:   d.Quota,
		history: d.History,
		events:  d.Events,
		tel:     d.Telemetry,
		cfg:     d.Config,
		logger:  d.Logger,
		locks:   d.Locks,
		now:     time.Now,
	}
	if s.events == nil {
		s.events = events.NopPublisher{}
	}
	if s.cfg == nil {
		s.cfg = config.DefaultEngineConfig()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.locks == nil {
		s.locks = tenants.NewLocks()
	}
	return s
}

// SyncOrders pulls every order modified inside r for tenant t.
//
// Windows and pages are processed strictly in order. A fetch error aborts the run and
// is returned together with the partial result. Crossing the quota ceiling is not an
// error: the run stops with Status quota_exceeded and the rows already written stay.
// A tenant runs one pipeline at a time; a call for a busy tenant returns tenants.ErrBusy.
func (s *Service) SyncOrders(ctx context.Context, t *models.Tenant, r Range, pageSize int) (*Result, error) {
	windows, err := Partition(r, s.cfg.MaxWindow())
	if err != nil {
		return nil, err
	}
	release, ok := s.locks.TryAcquire(t.ID)
	if !ok {
		return nil, fmt.Errorf("order sync for tenant %d: %w", t.ID, tenants.ErrBusy)
	}
	defer release()
	pageSize = s.clampPageSize(pageSize)

	run := &syncRun{
		svc:     s,
		tenant:  t,
		started: s.now(),
		res: &Result{
			RunID:    uuid.New().String(),
			TenantID: t.ID,
			Windows:  len(windows),
		},
	}
	log := s.logger.With("tenant_id", t.ID, "run_id", run.res.RunID)

	client, err := s.gateway(t)
	if err != nil {
		return run.fail(ctx, fmt.Errorf("gateway for tenant %d: %w", t.ID, err))
	}

	log.Info("Order sync started", "windows", len(windows), "page_size", pageSize,
		"from", time.UnixMilli(r.Start).UTC(), "to", time.UnixMilli(r.End).UTC())
	run.publish(events.TypeSyncStarted, map[string]interface{}{"windows": len(windows), "pageSize": pageSize})

	for wi, w := range windows {
		for page := 0; ; page++ {
			resp, err := client.FetchOrders(ctx, marketplace.OrderQuery{
				Page:             page,
				Size:             pageSize,
				StartDate:        w.Start,
				EndDate:          w.End,
				OrderByField:     marketplace.OrderByLastModified,
				OrderByDirection: "ASC",
			})
			if err != nil {
				log.Warn("Order fetch failed, aborting run", "window", w.String(), "page", page, "error", err)
				return run.fail(ctx, fmt.Errorf("fetch window %s page %d: %w", w, page, err))
			}

			saved := s.persist(ctx, t.ID, resp.Content)
			run.add(saved)
			s.tel.RecordOrders(ctx, saved.NewlyInserted, saved.Updated, saved.Failed)
			run.publish(events.TypeSyncPage, map[string]interface{}{
				"window":        wi,
				"page":          page,
				"items":         len(resp.Content),
				"newlyInserted": saved.NewlyInserted,
				"updated":       saved.Updated,
				"failed":        saved.Failed,
			})

			// pages of pure updates are not charged again
			if saved.NewlyInserted > 0 {
				stop, err := run.charge(ctx, saved.NewlyInserted)
				if err != nil {
					return run.fail(ctx, err)
				}
				if stop {
					log.Warn("Order quota exceeded, sync halted",
						"current", run.res.Quota.CurrentCountBeforeFetch,
						"batch_new", run.res.Quota.BatchNewlyInserted,
						"ceiling", run.res.Quota.Ceiling)
					return run.finish(ctx, StatusQuotaExceeded), nil
				}
			}

			if windowExhausted(resp, pageSize, page) {
				break
			}
		}
		run.res.WindowsDone++
	}

	res := run.finish(ctx, StatusSuccess)
	log.Info("Order sync finished", "processed", res.Processed, "inserted", res.NewlyInserted,
		"updated", res.Updated, "failed", res.Failed, "duration_ms", res.DurationMs)
	return res, nil
}

func (s *Service) clampPageSize(size int) int {
	if size <= 0 {
		size = s.cfg.DefaultPageSize
	}
	maxSize := s.cfg.MaxPageSize
	if maxSize <= 0 || maxSize > marketplace.MaxOrderPageSize {
		maxSize = marketplace.MaxOrderPageSize
	}
	if size > maxSize {
		size = maxSize
	}
	return size
}

func (s *Service) persist(ctx context.Context, tenantID uint, packages []marketplace.ShipmentPackage) store.SaveResult {
	if len(packages) == 0 {
		return store.SaveResult{}
	}
	orders := make([]models.MarketplaceOrder, 0, len(packages))
	for _, p := range packages {
		orders = append(orders, toOrder(p))
	}
	return s.orders.UpsertMany(ctx, tenantID, orders)
}

// windowExhausted applies the page invariant: an empty page, a short page or the
// last reported page ends the window, whichever comes first.
func windowExhausted(p *marketplace.OrderPage, pageSize, page int) bool {
	n := len(p.Content)
	return n == 0 || n < pageSize || page >= p.TotalPages-1
}

// syncRun carries the mutable state of one SyncOrders call
type syncRun struct {
	svc     *Service
	tenant  *models.Tenant
	started time.Time
	res     *Result
}

func (r *syncRun) add(saved store.SaveResult) {
	r.res.Pages++
	r.res.Processed += saved.Success + saved.Failed
	r.res.Success += saved.Success
	r.res.Failed += saved.Failed
	r.res.NewlyInserted += saved.NewlyInserted
	r.res.Updated += saved.Updated
	for _, f := range saved.Failures {
		if len(r.res.Failures) >= maxReportedFailures {
			break
		}
		r.res.Failures = append(r.res.Failures, f)
	}
}

// charge validates and then commits newlyInserted against the quota. It reports
// stop=true when the ceiling would be crossed; nothing is committed in that case.
// The commit re-checks the ceiling, so a run from another process that advanced the
// counter in between also stops this one.
func (r *syncRun) charge(ctx context.Context, newlyInserted int) (bool, error) {
	q := r.svc.quota
	if q == nil {
		return false, nil
	}
	tenantID := r.tenant.ID

	current, err := q.CurrentCount(ctx, tenantID, quota.MetricOrders)
	if err != nil {
		return false, err
	}
	prospective := current + int64(newlyInserted)

	err = q.CheckAndReserve(ctx, tenantID, quota.MetricOrders, prospective)
	if err == nil {
		err = q.Commit(ctx, tenantID, quota.MetricOrders, int64(newlyInserted))
		if err != nil && !errors.Is(err, quota.ErrExceeded) {
			return false, fmt.Errorf("commit order quota: %w", err)
		}
	}
	if err == nil {
		return false, nil
	}

	var exceeded *quota.ExceededError
	if !errors.As(err, &exceeded) {
		return false, err
	}
	r.res.Quota = &QuotaViolation{
		CurrentCountBeforeFetch: exceeded.Prospective - int64(newlyInserted),
		BatchNewlyInserted:      newlyInserted,
		Ceiling:                 exceeded.Ceiling,
		Prospective:             exceeded.Prospective,
	}
	r.svc.tel.RecordQuotaExceeded(ctx)
	return true, nil
}

func (r *syncRun) fail(ctx context.Context, err error) (*Result, error) {
	r.res.Error = err.Error()
	return r.finish(ctx, StatusFailed), err
}

func (r *syncRun) finish(ctx context.Context, status string) *Result {
	elapsed := r.svc.now().Sub(r.started)
	r.res.Status = status
	r.res.DurationMs = elapsed.Milliseconds()

	r.svc.tel.RecordRun(ctx, models.SyncKindOrders, status, elapsed)
	r.publish(events.TypeSyncFinished, map[string]interface{}{
		"status":        status,
		"processed":     r.res.Processed,
		"newlyInserted": r.res.NewlyInserted,
		"updated":       r.res.Updated,
		"failed":        r.res.Failed,
	})
	r.record(ctx)
	return r.res
}

func (r *syncRun) record(ctx context.Context) {
	if r.svc.history == nil {
		return
	}
	completed := r.svc.now()
	h := &models.SyncHistory{
		RunID:       r.res.RunID,
		TenantID:    r.tenant.ID,
		Provider:    "marketplace",
		Kind:        models.SyncKindOrders,
		Status:      historyStatus(r.res),
		StartedAt:   r.started,
		CompletedAt: &completed,
		Duration:    r.res.DurationMs,
		Processed:   r.res.Processed,
		Created:     r.res.NewlyInserted,
		Updated:     r.res.Updated,
		Errors:      r.res.Failed,
		ErrorDetail: r.res.Error,
		DebugInfo: models.JSONB{
			"windows":     r.res.Windows,
			"windowsDone": r.res.WindowsDone,
			"pages":       r.res.Pages,
		},
	}
	if r.res.Quota != nil {
		h.DebugInfo["quota"] = r.res.Quota
	}
	if len(r.res.Failures) > 0 {
		h.DebugInfo["failures"] = r.res.Failures
	}
	// the run result stands even if the audit row cannot be written
	if err := r.svc.history.Record(context.WithoutCancel(ctx), h); err != nil {
		r.svc.logger.Error("Failed to record sync history", "run_id", r.res.RunID, "error", err)
	}
}

func (r *syncRun) publish(typ string, data map[string]interface{}) {
	r.svc.events.Publish(events.Event{
		Type:     typ,
		TenantID: r.tenant.ID,
		RunID:    r.res.RunID,
		At:       r.svc.now().UTC(),
		Data:     data,
	})
}

func historyStatus(res *Result) string {
	switch res.Status {
	case StatusSuccess:
		if res.Failed > 0 {
			return models.SyncStatusPartial
		}
		return models.SyncStatusSuccess
	case StatusQuotaExceeded:
		return models.SyncStatusQuotaExceeded
	default:
		if res.Success > 0 {
			return models.SyncStatusPartial
		}
		return models.SyncStatusError
	}
}

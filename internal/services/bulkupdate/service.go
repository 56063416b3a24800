// Package bulkupdate pushes price and stock changes to the marketplace and mirrors
// them locally once the platform confirms each item.
package bulkupdate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xelth-com/eckmarket/internal/config"
	"github.com/xelth-com/eckmarket/internal/events"
	"github.com/xelth-com/eckmarket/internal/marketplace"
	"github.com/xelth-com/eckmarket/internal/models"
	"github.com/xelth-com/eckmarket/internal/store"
	"github.com/xelth-com/eckmarket/internal/telemetry"
	"github.com/xelth-com/eckmarket/internal/tenants"
)

// ErrNoItems is returned when ApplyBulkChanges is called without changes
var ErrNoItems = errors.New("no items to update")

// Run statuses
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Change is the requested update of one barcode. Nil fields are left unchanged.
type Change struct {
	Barcode   string   `json:"barcode"`
	Price     *float64 `json:"price,omitempty"`
	ListPrice *float64 `json:"listPrice,omitempty"`
	Quantity  *int64   `json:"quantity,omitempty"`
}

func (c Change) empty() bool {
	return c.Price == nil && c.ListPrice == nil && c.Quantity == nil
}

func (c Change) item() marketplace.PriceInventoryItem {
	return marketplace.PriceInventoryItem{
		Barcode:   c.Barcode,
		Quantity:  c.Quantity,
		SalePrice: c.Price,
		ListPrice: c.ListPrice,
	}
}

// ItemError describes one change that was not applied locally
type ItemError struct {
	Barcode        string `json:"barcode"`
	Kind           string `json:"kind"`
	Reason         string `json:"reason"`
	BatchRequestID string `json:"batchRequestId,omitempty"`
}

// Result aggregates one ApplyBulkChanges call; SuccessCount + ErrorCount = TotalAttempted
type Result struct {
	RunID          string      `json:"runId"`
	TenantID       uint        `json:"tenantId"`
	Status         string      `json:"status"`
	TotalAttempted int         `json:"totalAttempted"`
	SuccessCount   int         `json:"successCount"`
	ErrorCount     int         `json:"errorCount"`
	Errors         []ItemError `json:"errors"`
	BatchIDs       []string    `json:"batchIds"`
	DurationMs     int64       `json:"durationMs"`
	Error          string      `json:"error,omitempty"`
}

// BatchGateway submits and polls bulk updates; *marketplace.Client implements it
type BatchGateway interface {
	SubmitPriceInventory(ctx context.Context, items []marketplace.PriceInventoryItem) (string, error)
	GetBatchRequest(ctx context.Context, batchRequestID string) (*marketplace.BatchRequestResult, error)
}

// GatewayFunc returns the platform gateway of a tenant
type GatewayFunc func(t *models.Tenant) (BatchGateway, error)

// ProductWriter mirrors confirmed changes locally
type ProductWriter interface {
	ApplyPriceInventory(ctx context.Context, tenantID uint, change store.PriceInventoryChange) error
}

// BatchRecorder keeps the audit trail of submissions
type BatchRecorder interface {
	RecordSubmitted(ctx context.Context, b *models.BatchRequest) error
	RecordOutcome(ctx context.Context, batchRequestID, status string, succeeded, failed int, items interface{}) error
}

// HistoryRecorder persists finished runs
type HistoryRecorder interface {
	Record(ctx context.Context, h *models.SyncHistory) error
}

// Deps wires the collaborators of Service
type Deps struct {
	Gateway    GatewayFunc
	Products   ProductWriter
	Batches    BatchRecorder
	History    HistoryRecorder
	Reconciler Reconciler
	Events     events.Publisher
	Telemetry  *telemetry.SyncTelemetry
	Config     *config.EngineConfig
	Logger     *slog.Logger
	// Locks serializes runs per tenant; share one with the order sync orchestrator
	Locks *tenants.Locks
}

// Service is the batch price/inventory update engine
type Service struct {
	gateway    GatewayFunc
	products   ProductWriter
	batches    BatchRecorder
	history    HistoryRecorder
	reconciler Reconciler
	events     events.Publisher
	tel        *telemetry.SyncTelemetry
	cfg        *config.EngineConfig
	logger     *slog.Logger
	locks      *tenants.Locks
	sleep      sleepFunc
	now        func() time.Time
}

// NewService creates the engine
func NewService(d Deps) *Service {
	s := &Service{
		gateway:    d.Gateway,
		products:   d.Products,
		batches:    d.Batches,
		history:    d.History,
		reconciler: d.Reconciler,
		events:     d.Events,
		tel:        d.Telemetry,
		cfg:        d.Config,
		logger:     d.Logger,
		locks:      d.Locks,
		sleep:      sleepContext,
		now:        time.Now,
	}
	if s.reconciler == nil {
		s.reconciler = StrictReconciler{}
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

// ApplyBulkChanges submits changes in chunks, waits for the platform to settle each
// chunk and applies locally only the items the platform confirmed.
//
// A submit or poll failure aborts the run: the failing chunk and every chunk not yet
// submitted are reported as transport errors and the error is returned with the result.
// A tenant runs one pipeline at a time; a call for a busy tenant returns tenants.ErrBusy.
func (s *Service) ApplyBulkChanges(ctx context.Context, t *models.Tenant, changes []Change) (*Result, error) {
	if len(changes) == 0 {
		return nil, ErrNoItems
	}
	release, ok := s.locks.TryAcquire(t.ID)
	if !ok {
		return nil, fmt.Errorf("bulk update for tenant %d: %w", t.ID, tenants.ErrBusy)
	}
	defer release()

	run := &bulkRun{
		svc:     s,
		tenant:  t,
		started: s.now(),
		res: &Result{
			RunID:          uuid.New().String(),
			TenantID:       t.ID,
			TotalAttempted: len(changes),
			Errors:         []ItemError{},
			BatchIDs:       []string{},
		},
	}
	log := s.logger.With("tenant_id", t.ID, "run_id", run.res.RunID)

	valid := run.validate(ctx, changes)
	if len(valid) == 0 {
		return run.finish(ctx), nil
	}

	gw, err := s.gateway(t)
	if err != nil {
		run.abort(ctx, valid, "", fmt.Sprintf("gateway unavailable: %v", err))
		return run.fail(ctx, fmt.Errorf("gateway for tenant %d: %w", t.ID, err))
	}

	poll := newPoller(s.cfg, s.sleep)
	chunks := chunk(valid, s.chunkSize())
	log.Info("Bulk update started", "items", len(changes), "chunks", len(chunks))

	for i, c := range chunks {
		if err := run.processChunk(ctx, gw, poll, i, c); err != nil {
			log.Warn("Bulk update aborted", "chunk", i, "error", err)
			for _, rest := range chunks[i+1:] {
				run.abort(ctx, rest, "", "not submitted: run aborted after an earlier chunk failed")
			}
			return run.fail(ctx, err)
		}
	}

	res := run.finish(ctx)
	log.Info("Bulk update finished", "succeeded", res.SuccessCount, "failed", res.ErrorCount,
		"batches", len(res.BatchIDs), "duration_ms", res.DurationMs)
	return res, nil
}

func (s *Service) chunkSize() int {
	size := s.cfg.BatchChunkSize
	if size <= 0 || size > marketplace.MaxBatchItems {
		size = marketplace.MaxBatchItems
	}
	return size
}

func chunk(changes []Change, size int) [][]Change {
	var out [][]Change
	for start := 0; start < len(changes); start += size {
		end := start + size
		if end > len(changes) {
			end = len(changes)
		}
		out = append(out, changes[start:end])
	}
	return out
}

// bulkRun carries the mutable state of one ApplyBulkChanges call
type bulkRun struct {
	svc     *Service
	tenant  *models.Tenant
	started time.Time
	res     *Result
}

// validate drops changes that cannot be submitted and reports them as invalid
func (r *bulkRun) validate(ctx context.Context, changes []Change) []Change {
	valid := make([]Change, 0, len(changes))
	seen := make(map[string]struct{}, len(changes))
	for _, c := range changes {
		c.Barcode = strings.TrimSpace(c.Barcode)
		switch {
		case c.Barcode == "":
			r.addError(c, KindInvalid, "", "barcode is empty")
		case c.empty():
			r.addError(c, KindInvalid, "", "no price or quantity to change")
		case c.Price != nil && *c.Price < 0, c.ListPrice != nil && *c.ListPrice < 0:
			r.addError(c, KindInvalid, "", "price must not be negative")
		case c.Quantity != nil && *c.Quantity < 0:
			r.addError(c, KindInvalid, "", "quantity must not be negative")
		default:
			if _, dup := seen[c.Barcode]; dup {
				r.addError(c, KindInvalid, "", "duplicate barcode in request")
				continue
			}
			seen[c.Barcode] = struct{}{}
			valid = append(valid, c)
		}
	}
	r.svc.tel.RecordBulkItems(ctx, KindInvalid, len(changes)-len(valid))
	return valid
}

func (r *bulkRun) processChunk(ctx context.Context, gw BatchGateway, poll poller, index int, changes []Change) error {
	s := r.svc
	items := make([]marketplace.PriceInventoryItem, len(changes))
	for i, c := range changes {
		items[i] = c.item()
	}

	batchID, err := gw.SubmitPriceInventory(ctx, items)
	if err != nil {
		r.abort(ctx, changes, "", fmt.Sprintf("submit failed: %v", err))
		return fmt.Errorf("submit chunk %d: %w", index, err)
	}
	r.res.BatchIDs = append(r.res.BatchIDs, batchID)

	if s.batches != nil {
		if err := s.batches.RecordSubmitted(ctx, &models.BatchRequest{
			TenantID:       r.tenant.ID,
			RunID:          r.res.RunID,
			BatchRequestID: batchID,
			ItemCount:      len(changes),
		}); err != nil {
			s.logger.Error("Failed to record batch submission", "batch_id", batchID, "error", err)
		}
	}
	r.publish(events.TypeBatchSubmitted, map[string]interface{}{"chunk": index, "batchRequestId": batchID, "items": len(changes)})

	result, err := poll.poll(ctx, gw, batchID, changes)
	if err != nil {
		r.abort(ctx, changes, batchID, fmt.Sprintf("poll of batch %s failed: %v", batchID, err))
		r.recordOutcome(ctx, batchID, models.BatchStatusPollFailed, 0, len(changes), nil)
		return fmt.Errorf("poll batch %s: %w", batchID, err)
	}

	outcomes := s.reconciler.Reconcile(changes, result)
	succeeded, failed := 0, 0
	counts := map[string]int{}
	for _, o := range outcomes {
		if !o.Succeeded {
			r.addError(o.Change, o.Kind, batchID, o.Reason)
			counts[o.Kind]++
			failed++
			continue
		}
		// only confirmed items reach local storage
		err := s.products.ApplyPriceInventory(ctx, r.tenant.ID, store.PriceInventoryChange{
			Barcode:   o.Change.Barcode,
			SalePrice: o.Change.Price,
			ListPrice: o.Change.ListPrice,
			Quantity:  o.Change.Quantity,
			BatchID:   batchID,
		})
		if err != nil {
			r.addError(o.Change, KindLocalPersistence, batchID, "applied on platform but local update failed: "+err.Error())
			counts[KindLocalPersistence]++
			failed++
			continue
		}
		r.res.SuccessCount++
		succeeded++
	}

	s.tel.RecordBulkItems(ctx, "success", succeeded)
	for kind, n := range counts {
		s.tel.RecordBulkItems(ctx, kind, n)
	}
	r.recordOutcome(ctx, batchID, models.BatchStatusCompleted, succeeded, failed, outcomes)
	r.publish(events.TypeBatchReconciled, map[string]interface{}{
		"chunk":          index,
		"batchRequestId": batchID,
		"platformStatus": result.Status,
		"succeeded":      succeeded,
		"failed":         failed,
	})
	return nil
}

func (r *bulkRun) addError(c Change, kind, batchID, reason string) {
	r.res.ErrorCount++
	r.res.Errors = append(r.res.Errors, ItemError{
		Barcode:        c.Barcode,
		Kind:           kind,
		Reason:         reason,
		BatchRequestID: batchID,
	})
}

// abort reports every change of a chunk that never reached a verdict as a transport error
func (r *bulkRun) abort(ctx context.Context, changes []Change, batchID, reason string) {
	for _, c := range changes {
		r.addError(c, KindTransport, batchID, reason)
	}
	r.svc.tel.RecordBulkItems(ctx, KindTransport, len(changes))
}

func (r *bulkRun) recordOutcome(ctx context.Context, batchID, status string, succeeded, failed int, outcomes []Outcome) {
	if r.svc.batches == nil {
		return
	}
	type auditItem struct {
		Barcode   string `json:"barcode"`
		Succeeded bool   `json:"succeeded"`
		Kind      string `json:"kind,omitempty"`
		Reason    string `json:"reason,omitempty"`
	}
	items := make([]auditItem, 0, len(outcomes))
	for _, o := range outcomes {
		items = append(items, auditItem{Barcode: o.Change.Barcode, Succeeded: o.Succeeded, Kind: o.Kind, Reason: o.Reason})
	}
	if err := r.svc.batches.RecordOutcome(context.WithoutCancel(ctx), batchID, status, succeeded, failed, items); err != nil {
		r.svc.logger.Error("Failed to record batch outcome", "batch_id", batchID, "error", err)
	}
}

func (r *bulkRun) fail(ctx context.Context, err error) (*Result, error) {
	r.res.Error = err.Error()
	return r.finish(ctx), err
}

func (r *bulkRun) finish(ctx context.Context) *Result {
	elapsed := r.svc.now().Sub(r.started)
	res := r.res
	res.DurationMs = elapsed.Milliseconds()
	switch {
	case res.Error != "":
		res.Status = StatusFailed
	case res.ErrorCount == 0:
		res.Status = StatusSuccess
	case res.SuccessCount > 0:
		res.Status = StatusPartial
	default:
		res.Status = StatusFailed
	}

	r.svc.tel.RecordRun(ctx, models.SyncKindBulkUpdate, res.Status, elapsed)
	r.publish(events.TypeBulkFinished, map[string]interface{}{
		"status":    res.Status,
		"succeeded": res.SuccessCount,
		"failed":    res.ErrorCount,
	})
	r.record(ctx)
	return res
}

func (r *bulkRun) record(ctx context.Context) {
	if r.svc.history == nil {
		return
	}
	status := models.SyncStatusSuccess
	switch {
	case r.res.ErrorCount > 0 && r.res.SuccessCount > 0:
		status = models.SyncStatusPartial
	case r.res.ErrorCount > 0:
		status = models.SyncStatusError
	}

	completed := r.svc.now()
	h := &models.SyncHistory{
		RunID:       r.res.RunID,
		TenantID:    r.tenant.ID,
		Provider:    "marketplace",
		Kind:        models.SyncKindBulkUpdate,
		Status:      status,
		StartedAt:   r.started,
		CompletedAt: &completed,
		Duration:    r.res.DurationMs,
		Processed:   r.res.TotalAttempted,
		Updated:     r.res.SuccessCount,
		Errors:      r.res.ErrorCount,
		ErrorDetail: r.res.Error,
		DebugInfo:   models.JSONB{"batchIds": r.res.BatchIDs},
	}
	if len(r.res.Errors) > 0 {
		sample := r.res.Errors
		if len(sample) > 50 {
			sample = sample[:50]
		}
		h.DebugInfo["errors"] = sample
	}
	if err := r.svc.history.Record(context.WithoutCancel(ctx), h); err != nil {
		r.svc.logger.Error("Failed to record bulk update history", "run_id", r.res.RunID, "error", err)
	}
}

func (r *bulkRun) publish(typ string, data map[string]interface{}) {
	r.svc.events.Publish(events.Event{
		Type:     typ,
		TenantID: r.tenant.ID,
		RunID:    r.res.RunID,
		At:       r.svc.now().UTC(),
		Data:     data,
	})
}

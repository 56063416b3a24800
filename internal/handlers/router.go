package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/xelth-com/eckmarket/internal/buildinfo"
	"github.com/xelth-com/eckmarket/internal/middleware"
	"github.com/xelth-com/eckmarket/internal/models"
	"github.com/xelth-com/eckmarket/internal/services/bulkupdate"
	"github.com/xelth-com/eckmarket/internal/services/ordersync"
	"github.com/xelth-com/eckmarket/internal/websocket"
)

// TenantGetter loads tenants by id
type TenantGetter interface {
	Get(ctx context.Context, id uint) (*models.Tenant, error)
}

// OrderSyncer runs an order sync
type OrderSyncer interface {
	SyncOrders(ctx context.Context, t *models.Tenant, r ordersync.Range, pageSize int) (*ordersync.Result, error)
}

// BulkUpdater runs a bulk price/inventory update
type BulkUpdater interface {
	ApplyBulkChanges(ctx context.Context, t *models.Tenant, changes []bulkupdate.Change) (*bulkupdate.Result, error)
}

// UsageReader exposes quota counters
type UsageReader interface {
	CurrentCount(ctx context.Context, tenantID uint, metric string) (int64, error)
	Ceiling(ctx context.Context, tenantID uint, metric string) (*int64, error)
}

// HistoryLister lists recent runs
type HistoryLister interface {
	List(ctx context.Context, tenantID uint, limit int) ([]models.SyncHistory, error)
}

// Deps wires the router to the engine
type Deps struct {
	Tenants   TenantGetter
	Orders    OrderSyncer
	Bulk      BulkUpdater
	Usage     UsageReader
	History   HistoryLister
	Hub       *websocket.Hub
	Metrics   http.Handler
	JWTSecret string
	Lookback  time.Duration
}

// Router wraps the mux router and the engine services
type Router struct {
	*mux.Router
	deps Deps
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(d Deps) *Router {
	if d.Lookback <= 0 {
		d.Lookback = 72 * time.Hour
	}
	r := &Router{
		Router: mux.NewRouter(),
		deps:   d,
	}
	r.Use(middleware.RequestLogger)

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics).Methods("GET")
	}
	if d.Hub != nil {
		stream := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			scope, _ := middleware.TenantScope(req)
			websocket.ServeWs(d.Hub, w, req, scope)
		})
		r.Handle("/ws/progress", middleware.StreamAuth(d.JWTSecret)(stream))
	}

	// API routes (protected)
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(d.JWTSecret))
	api.HandleFunc("/status", r.getStatus).Methods("GET")
	api.HandleFunc("/tenants/{id:[0-9]+}/sync/orders", r.syncOrders).Methods("POST")
	api.HandleFunc("/tenants/{id:[0-9]+}/bulk-updates", r.bulkUpdate).Methods("POST")
	api.HandleFunc("/tenants/{id:[0-9]+}/usage", r.getUsage).Methods("GET")
	api.HandleFunc("/sync/history", r.listHistory).Methods("GET")

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// getStatus returns the current status
func (r *Router) getStatus(w http.ResponseWriter, req *http.Request) {
	status := map[string]interface{}{
		"status": "running",
		"build":  buildinfo.Current(),
	}
	if r.deps.Hub != nil {
		status["listeners"] = r.deps.Hub.ClientCount()
	}
	respondJSON(w, http.StatusOK, status)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// Package app assembles the engine services shared by the server and the CLI.
package app

import (
	"log/slog"
	"time"

	"github.com/xelth-com/eckmarket/internal/config"
	"github.com/xelth-com/eckmarket/internal/database"
	"github.com/xelth-com/eckmarket/internal/events"
	"github.com/xelth-com/eckmarket/internal/marketplace"
	"github.com/xelth-com/eckmarket/internal/models"
	"github.com/xelth-com/eckmarket/internal/quota"
	"github.com/xelth-com/eckmarket/internal/services/bulkupdate"
	"github.com/xelth-com/eckmarket/internal/services/ordersync"
	"github.com/xelth-com/eckmarket/internal/store"
	"github.com/xelth-com/eckmarket/internal/telemetry"
	"github.com/xelth-com/eckmarket/internal/tenants"
	"github.com/xelth-com/eckmarket/internal/utils"
)

// App holds the wired engine
type App struct {
	Config    *config.Config
	DB        *database.DB
	Tenants   *tenants.Repository
	Clients   *marketplace.Factory
	Quota     *quota.Tracker
	Orders    *store.OrderStore
	Products  *store.ProductStore
	Batches   *store.BatchStore
	History   *store.HistoryStore
	Locks     *tenants.Locks
	OrderSync *ordersync.Service
	Bulk      *bulkupdate.Service
}

// New wires every service on top of an open database. tel and pub may be nil.
func New(cfg *config.Config, db *database.DB, tel *telemetry.SyncTelemetry, pub events.Publisher) (*App, error) {
	box, err := utils.NewSecretBox(cfg.EncKey)
	if err != nil {
		return nil, err
	}
	if pub == nil {
		pub = events.NopPublisher{}
	}
	logger := slog.Default()

	a := &App{
		Config:   cfg,
		DB:       db,
		Tenants:  tenants.NewRepository(db, box),
		Orders:   store.NewOrderStore(db),
		Products: store.NewProductStore(db),
		Batches:  store.NewBatchStore(db),
		History:  store.NewHistoryStore(db),
		Locks:    tenants.NewLocks(),
	}
	a.Quota = quota.NewTracker(db, a.Tenants)
	a.Clients = marketplace.NewFactory(marketplace.ClientConfig{
		BaseURL:        cfg.Marketplace.BaseURL,
		Timeout:        time.Duration(cfg.Marketplace.TimeoutSeconds) * time.Second,
		RequestsPerSec: cfg.Marketplace.RequestsPerSec,
		UserAgent:      cfg.Marketplace.UserAgent,
	}, a.Tenants, marketplace.WithObserver(tel), marketplace.WithLogger(logger))

	a.OrderSync = ordersync.NewService(ordersync.Deps{
		Gateway: func(t *models.Tenant) (ordersync.OrderFetcher, error) {
			return a.Clients.ClientFor(t)
		},
		Orders:    a.Orders,
		Quota:     a.Quota,
		History:   a.History,
		Events:    pub,
		Telemetry: tel,
		Config:    cfg.Engine,
		Logger:    logger,
		Locks:     a.Locks,
	})
	a.Bulk = bulkupdate.NewService(bulkupdate.Deps{
		Gateway: func(t *models.Tenant) (bulkupdate.BatchGateway, error) {
			return a.Clients.ClientFor(t)
		},
		Products:   a.Products,
		Batches:    a.Batches,
		History:    a.History,
		Reconciler: bulkupdate.StrictReconciler{},
		Events:     pub,
		Telemetry:  tel,
		Config:     cfg.Engine,
		Logger:     logger,
		Locks:      a.Locks,
	})
	return a, nil
}

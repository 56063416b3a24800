package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xelth-com/eckmarket/internal/app"
	"github.com/xelth-com/eckmarket/internal/buildinfo"
	"github.com/xelth-com/eckmarket/internal/config"
	"github.com/xelth-com/eckmarket/internal/database"
	"github.com/xelth-com/eckmarket/internal/handlers"
	"github.com/xelth-com/eckmarket/internal/scheduler"
	"github.com/xelth-com/eckmarket/internal/telemetry"
	"github.com/xelth-com/eckmarket/internal/websocket"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.RequireServerSecrets(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.NodeEnv == "development" {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	// 2. Initialize database (Detects Embedded vs External automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// 3. Auto-Migrate Schema
	log.Println("🚀 Synchronizing database schema...")
	if err := db.Migrate(); err != nil {
		log.Printf("⚠️ Migration warning: %v\n", err)
	} else {
		log.Println("✅ Schema synchronized successfully")
	}

	// 4. Metrics
	rootCtx, stopRoot := context.WithCancel(context.Background())
	defer stopRoot()

	metrics, err := telemetry.Setup(rootCtx, cfg.Metrics.Exporter)
	if err != nil {
		log.Printf("⚠️ Metrics disabled: %v", err)
	}
	tel, err := telemetry.NewSyncTelemetry()
	if err != nil {
		log.Printf("⚠️ Sync telemetry disabled: %v", err)
	}

	// 5. Progress feed and engine
	hub := websocket.NewHub()
	go hub.Run()

	engine, err := app.New(cfg, db, tel, hub)
	if err != nil {
		log.Fatalf("Failed to initialize engine: %v", err)
	}

	// 6. Background order sync
	var sched *scheduler.Scheduler
	if cfg.Engine.SchedulerEnabled {
		sched = scheduler.New(engine.Tenants, engine.OrderSync, scheduler.Config{
			Interval:     cfg.Engine.SchedulerEvery(),
			Lookback:     cfg.Engine.Lookback(),
			InitialDelay: 5 * time.Second,
			PageSize:     cfg.Engine.DefaultPageSize,
		})
		sched.Start()
	} else {
		log.Println("Order Sync Scheduler disabled: SCHEDULER_ENABLED=false")
	}

	// 7. HTTP router
	router := handlers.NewRouter(handlers.Deps{
		Tenants:   engine.Tenants,
		Orders:    engine.OrderSync,
		Bulk:      engine.Bulk,
		Usage:     engine.Quota,
		History:   engine.History,
		Hub:       hub,
		Metrics:   metrics.Handler(),
		JWTSecret: cfg.JWTSecret,
		Lookback:  cfg.Engine.Lookback(),
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		log.Printf("🚀 Marketplace sync server %s starting on port %s\n", buildinfo.Version, cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	if sched != nil {
		sched.Stop()
	}
	hub.Stop()
	metrics.Shutdown(ctx)

	// Close database (this also stops embedded PostgreSQL)
	log.Println("🛑 Closing database connection...")
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}

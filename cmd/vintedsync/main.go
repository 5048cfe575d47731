package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/time/rate"

	"github.com/logistix/vintedsync/internal/audit"
	"github.com/logistix/vintedsync/internal/cache"
	"github.com/logistix/vintedsync/internal/config"
	"github.com/logistix/vintedsync/internal/jobs"
	"github.com/logistix/vintedsync/internal/mapping"
	"github.com/logistix/vintedsync/internal/market"
	"github.com/logistix/vintedsync/internal/session"
	"github.com/logistix/vintedsync/internal/store"
	syncsvc "github.com/logistix/vintedsync/internal/sync"
	httpTransport "github.com/logistix/vintedsync/internal/transport/http"
	"github.com/logistix/vintedsync/internal/vinted"
)

func main() {
	cfg := config.MustLoad()

	log.Printf("Starting %s v%s in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Environment)

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("FATAL: Failed to open database: %v", err)
	}
	defer db.Close()
	log.Printf("✓ SQLite database ready (%s)", cfg.Database.Path)

	// Session store: Redis when configured, in-memory otherwise.
	var sessionStore session.Store
	if cfg.Redis.Enabled {
		redisStore, err := session.NewRedisStore(session.RedisConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			log.Printf("⚠ Redis unavailable: %v (falling back to in-memory sessions)", err)
			sessionStore = session.NewMemoryStore()
		} else {
			defer redisStore.Close()
			sessionStore = redisStore
			log.Println("✓ Redis session store connected")
		}
	} else {
		sessionStore = session.NewMemoryStore()
	}

	sessions := session.NewManager(sessionStore, session.WithBaseURL(cfg.Marketplace.BaseURL))

	searchCache, err := cache.New(cfg.Marketplace.CachePath)
	if err != nil {
		log.Printf("⚠ Search cache unavailable: %v (continuing without)", err)
		searchCache = nil
	}

	clientOpts := []vinted.Option{
		vinted.WithBaseURL(cfg.Marketplace.BaseURL),
		vinted.WithRateLimit(rate.Limit(cfg.Marketplace.RatePerSecond), cfg.Marketplace.Burst),
	}
	if searchCache != nil {
		clientOpts = append(clientOpts, vinted.WithCache(searchCache, cfg.Marketplace.CacheTTL))
	}
	client := vinted.NewClient(sessions, clientOpts...)

	auditLog := audit.New(os.Stderr)

	mapper := mapping.NewService(client, db)
	syncer := syncsvc.NewService(client, db)
	marketSvc := market.NewService(client, db, db)

	handler := httpTransport.NewHandler(client, mapper, syncer, marketSvc, sessions, auditLog, cfg.App.Version)
	router := httpTransport.NewRouter(handler)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var runner *jobs.SyncRunner
	if cfg.Sync.Enabled {
		runner = jobs.NewSyncRunner(syncer, sessions, auditLog, cfg.Sync.Interval)
		if err := runner.Start(); err != nil {
			log.Fatalf("FATAL: Failed to start sync scheduler: %v", err)
		}
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.Server.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	if runner != nil {
		runner.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped gracefully")
}

func init() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
}

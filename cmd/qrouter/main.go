// qrouter server: classifies queries, routes them to execution backends,
// and serves the quality pipeline over HTTP.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/smartquery/qrouter/pkg/api"
	"github.com/smartquery/qrouter/pkg/cache"
	"github.com/smartquery/qrouter/pkg/classifier"
	"github.com/smartquery/qrouter/pkg/cleanup"
	"github.com/smartquery/qrouter/pkg/collab"
	"github.com/smartquery/qrouter/pkg/config"
	"github.com/smartquery/qrouter/pkg/database"
	"github.com/smartquery/qrouter/pkg/pipeline"
	"github.com/smartquery/qrouter/pkg/router"
	"github.com/smartquery/qrouter/pkg/selector"
	"github.com/smartquery/qrouter/pkg/services"
	"github.com/smartquery/qrouter/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	// Parse command-line flags
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	// Load .env file from config directory
	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	} else {
		slog.Info("Loaded environment", "path", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")

	slog.Info("Starting qrouter",
		"version", version.Full(),
		"http_port", httpPort,
		"config_dir", *configDir)

	ctx := context.Background()

	// 1. Initialize configuration
	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize stores: postgres when a database is configured,
	// in-memory for store-less deployments (DB_DISABLED=true).
	var (
		db           *database.Client
		cacheStore   cache.Store
		decisions    router.DecisionStore
		trimmer      cleanup.DecisionTrimmer
		perfSelector selector.PerfStore
		perfRecorder router.PerfStore
		perfSink     pipeline.PerfSink
	)
	if getEnv("DB_DISABLED", "") == "true" {
		slog.Warn("Database disabled, using in-memory stores; cache and decision log reset on restart")
		mem := services.NewMemoryPerfStore()
		memDecisions := services.NewMemoryDecisionStore()
		cacheStore = services.NewMemoryCacheStore()
		decisions, trimmer = memDecisions, memDecisions
		perfSelector, perfRecorder, perfSink = mem, mem, mem
	} else {
		dbConfig, err := database.LoadConfigFromEnv()
		if err != nil {
			slog.Error("Failed to load database config", "error", err)
			os.Exit(1)
		}
		db, err = database.NewClient(ctx, dbConfig)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		slog.Info("Connected to PostgreSQL database")

		pg := services.NewPostgresPerfStore(db.Pool())
		pgDecisions := services.NewPostgresDecisionStore(db.Pool())
		cacheStore = services.NewPostgresCacheStore(db.Pool())
		decisions, trimmer = pgDecisions, pgDecisions
		perfSelector, perfRecorder, perfSink = pg, pg, pg
	}

	// 3. Collaborator clients; unset URLs disable the feature they back.
	clients := collab.NewClients(cfg.Collaborators)
	var embedder classifier.Embedder
	if clients.Embedder != nil {
		embedder = clients.Embedder
	}
	var classifierLLM collab.ClassifierLLM
	if clients.ClassifierLLM != nil {
		classifierLLM = clients.ClassifierLLM
	}

	// 4. Assemble the routing core
	fingerprinter := classifier.NewFingerprinter(embedder)
	sel := selector.NewSelector(cfg.Workers, perfSelector, cfg.Router)
	routingCache := cache.NewRoutingCache(cacheStore, cfg.Router)
	rtr := router.NewRouter(fingerprinter, routingCache, sel, classifierLLM, decisions, perfRecorder, cfg.Router)

	// 5. Start the retention loop
	retention := cleanup.NewService(cfg.Retention, routingCache, trimmer)
	retention.Start(ctx)
	defer retention.Stop()

	var orch *pipeline.Orchestrator
	if clients.Retriever != nil && clients.Generator != nil {
		orch = pipeline.NewOrchestrator(clients.Retriever, clients.Generator, sel, perfSink, cfg.Pipeline)
		slog.Info("Quality pipeline enabled")
	} else {
		slog.Info("Quality pipeline disabled, retriever or generator not configured")
	}

	// 6. Create and start the HTTP server (non-blocking)
	httpServer := api.NewServer(cfg, db, rtr, routingCache, orch)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + httpPort
		slog.Info("HTTP server listening", "addr", addr)
		if err := httpServer.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	slog.Info("qrouter started successfully")

	// 7. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 8. Graceful shutdown with a bounded drain budget
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}

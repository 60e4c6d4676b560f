// secura-risk - Account-takeover risk engine for the Secura platform.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ukallavi/Secura-sub000/internal/api"
	"github.com/ukallavi/Secura-sub000/internal/audit"
	"github.com/ukallavi/Secura-sub000/internal/baseline"
	"github.com/ukallavi/Secura-sub000/internal/bus"
	"github.com/ukallavi/Secura-sub000/internal/cache"
	"github.com/ukallavi/Secura-sub000/internal/domain"
	"github.com/ukallavi/Secura-sub000/internal/monitoring"
	"github.com/ukallavi/Secura-sub000/internal/repository"
	"github.com/ukallavi/Secura-sub000/internal/review"
	"github.com/ukallavi/Secura-sub000/internal/rules"
	"github.com/ukallavi/Secura-sub000/internal/scorer"
	"github.com/ukallavi/Secura-sub000/internal/signals"
	"github.com/ukallavi/Secura-sub000/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("SECURA_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting secura-risk",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("SECURA_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize escalation rule engine
	engine, err := rules.NewEngine()
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}

	// Load escalation rules from database (no hardcoded defaults)
	if err := loadRulesFromDatabase(ctx, repo, engine); err != nil {
		slog.Error("failed to load escalation rules", "error", err)
		os.Exit(1)
	}
	slog.Info("rule engine initialized", "rules_count", engine.RulesCount())

	// Core services
	auditSink := audit.NewSink(busImpl)
	baselines := baseline.NewService(repo, cacheImpl, cfg.Scoring.BaselineCacheTTL)
	sigs := signals.NewService(repo, cacheImpl)
	monitoringCtl := monitoring.NewController(repo, auditSink)
	reviewWf := review.NewWorkflow(repo, auditSink)
	riskScorer := scorer.NewService(baselines, sigs, repo, engine, auditSink, cfg.Scoring)
	slog.Info("risk services initialized")

	// Background worker: audit persistence + monitoring-expiry sweep
	bgWorker := worker.NewWorker(busImpl, repo)
	workerCfg := worker.Config{
		TenantIDs:     tenantList(),
		SweepInterval: time.Hour,
	}
	if err := bgWorker.Start(workerCfg); err != nil {
		slog.Error("failed to start background worker", "error", err)
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, cfg.Scoring, repo, cacheImpl, baselines, riskScorer, sigs, monitoringCtl, reviewWf, engine, Version)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("secura-risk is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	if err := bgWorker.Stop(); err != nil {
		slog.Error("failed to stop background worker", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("secura-risk shutdown complete")
}

// tenantList parses the comma-separated SECURA_TENANTS variable used by
// the audit consumer. Empty means no audit persistence worker.
func tenantList() []string {
	env := os.Getenv("SECURA_TENANTS")
	if env == "" {
		return nil
	}
	parts := strings.Split(env, ",")
	tenants := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tenants = append(tenants, t)
		}
	}
	return tenants
}

// loadRulesFromDatabase loads escalation rules into the engine.
// All rules are configured via POST /rules - no hardcoded defaults.
func loadRulesFromDatabase(ctx context.Context, repo domain.Repository, engine *rules.Engine) error {
	dbRules, err := repo.ListEscalationRules(ctx, api.GlobalTenantID)
	if err != nil {
		slog.Warn("failed to list escalation rules from database", "error", err)
		return nil // Start with empty rules - they can be added via API
	}

	if len(dbRules) > 0 {
		slog.Info("loading escalation rules from database", "count", len(dbRules))
		return engine.LoadRules(dbRules)
	}

	slog.Info("no escalation rules in database - configure via POST /rules API")
	return nil
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  secura-risk - Account-Takeover Risk Engine")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST   /assess                           - Assess an activity")
	fmt.Println("    POST   /logins                           - Record a login attempt")
	fmt.Println("    GET    /baselines/{userId}               - Inspect a user baseline")
	fmt.Println("    PUT    /monitoring/{userId}              - Enable monitoring")
	fmt.Println("    DELETE /monitoring/{userId}              - Disable monitoring")
	fmt.Println("    GET    /suspicious-activities            - List suspicious activities")
	fmt.Println("    POST   /suspicious-activities/{id}/review - Review a record")
	fmt.Println("    GET    /rules                            - List escalation rules")
	fmt.Println("    POST   /rules                            - Create an escalation rule")
	fmt.Println("    POST   /rules/reload                     - Hot-reload rules")
	fmt.Println("    GET    /audit                            - List audit entries")
	fmt.Println("    GET    /health                           - Health check")
	fmt.Println()
}

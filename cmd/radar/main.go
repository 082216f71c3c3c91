// Radar - Deterministic thesis scoring for private-market screening.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"log/slog"

	"github.com/joho/godotenv"

	"github.com/Munns729/open-radar-sub001/internal/bus"
	"github.com/Munns729/open-radar-sub001/internal/cache"
	"github.com/Munns729/open-radar-sub001/internal/domain"
	"github.com/Munns729/open-radar-sub001/internal/history"
	"github.com/Munns729/open-radar-sub001/internal/repository"
	"github.com/Munns729/open-radar-sub001/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Local overrides live in .env during development; absence is fine.
	_ = godotenv.Load()

	logLevel := slog.LevelInfo
	if os.Getenv("RADAR_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting radar",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	cfg := loadConfig()

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"chunk_size", cfg.Scoring.ChunkSize,
		"category_policy", cfg.Scoring.CategoryPolicy,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	histSvc := history.NewService(repo, cacheImpl)

	rescorer := worker.NewWorker(busImpl, repo, cacheImpl, histSvc, cfg.Scoring.CategoryPolicy)

	tenantIDs := []string{}
	if envTenants := os.Getenv("RADAR_TENANTS"); envTenants != "" {
		for _, t := range strings.Split(envTenants, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tenantIDs = append(tenantIDs, t)
			}
		}
	}

	workerCfg := worker.Config{
		TenantIDs:      tenantIDs,
		CategoryPolicy: cfg.Scoring.CategoryPolicy,
	}

	if err := rescorer.Start(workerCfg); err != nil {
		slog.Error("failed to start rescore worker", "error", err)
		os.Exit(1)
	}
	slog.Info("rescore worker started", "tenant_count", len(tenantIDs))

	printBanner(cfg, Version)

	<-ctx.Done()
	slog.Info("shutting down...")

	if err := rescorer.Stop(); err != nil {
		slog.Error("failed to stop rescore worker", "error", err)
	}

	slog.Info("radar shutdown complete")
}

// loadConfig builds the configuration from tier defaults plus environment
// overrides.
func loadConfig() *domain.Config {
	cfg := domain.DefaultConfig()
	if os.Getenv("RADAR_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	if v := os.Getenv("RADAR_DB_PATH"); v != "" {
		cfg.Repository.SQLitePath = v
	}
	if v := os.Getenv("RADAR_POSTGRES_HOST"); v != "" {
		cfg.Repository.PostgresHost = v
	}
	if v := os.Getenv("RADAR_POSTGRES_PASSWORD"); v != "" {
		cfg.Repository.PostgresPassword = v
	}
	if v := os.Getenv("RADAR_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("RADAR_NATS_URL"); v != "" {
		cfg.EventBus.NATSUrl = v
	}
	if v := os.Getenv("RADAR_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Scoring.ChunkSize = n
		}
	}
	if v := os.Getenv("RADAR_MAX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Scoring.MaxWorkers = n
		}
	}
	switch os.Getenv("RADAR_CATEGORY_POLICY") {
	case "sum":
		cfg.Scoring.CategoryPolicy = domain.CategorySum
	case "max":
		cfg.Scoring.CategoryPolicy = domain.CategoryMax
	case "last":
		cfg.Scoring.CategoryPolicy = domain.CategoryLast
	}

	return cfg
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               📡 RADAR                    ║")
	fmt.Println("  ║      Thesis Scoring Engine                ║")
	fmt.Println("  ║   Every company, scored the same way.     ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Storage:  %s\n", cfg.Repository.Driver)
	fmt.Println()
	fmt.Println("  Topics:")
	fmt.Printf("    %s  - rescore trigger\n", domain.TopicCompanyUpdated)
	fmt.Printf("    %s    - per-company results\n", domain.TopicScoreUpdated)
	fmt.Printf("    %s     - tier transitions\n", domain.TopicTierChanged)
	fmt.Printf("    %s   - batch completion\n", domain.TopicBatchFinished)
	fmt.Println()
}

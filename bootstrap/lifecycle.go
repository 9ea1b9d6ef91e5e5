package bootstrap

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"news-harvester/config"
	"news-harvester/orchestrator"
	logger "news-harvester/utils/logger"
	"news-harvester/utils/otel"
)

// Run is the harvester entry point. It builds the stack, seeds the URL
// queue when a feed file is configured, drains the queue once and shuts
// everything down in order. SIGINT and SIGTERM stop claiming and give
// in-flight work the configured grace window.
func Run(ctx context.Context) error {
	// OpenTelemetry first, so every later component registers its
	// instruments against the real provider.
	otelCfg := otel.ConfigFromEnv()
	otelShutdown, err := otel.InitProvider(ctx, otelCfg)
	if err != nil {
		fmt.Printf("Failed to initialize OpenTelemetry: %v\n", err)
		otelCfg.Enabled = false
	}
	defer func() {
		if otelShutdown == nil {
			return
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := otelShutdown(shutdownCtx); err != nil {
			fmt.Printf("Failed to shutdown OpenTelemetry: %v\n", err)
		}
	}()

	loggerConfig := logger.LoadUnifiedLoggerConfigFromEnv()

	unified := logger.InitializeUnifiedLogger(loggerConfig)
	if otelCfg.Enabled {
		unified = logger.InitializeWithOTel(loggerConfig)
	}

	logger.SetGlobal(unified)
	log := unified.Logger()

	log.Info("starting news-harvester",
		"log_level", loggerConfig.Level,
		"otel_enabled", otelCfg.Enabled,
		"service", otelCfg.ServiceName)

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	deps, cleanup, err := BuildDependencies(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("build dependencies: %w", err)
	}
	defer cleanup()

	// Failed rows with attempts left go back to pending before this run
	// claims anything.
	requeued, err := deps.Store.ResetRetryable(ctx, cfg.Harvest.MaxURLAttempts)
	if err != nil {
		return fmt.Errorf("requeue retryable urls: %w", err)
	}

	if requeued > 0 {
		log.Info("requeued urls with attempts remaining", "count", requeued)
	}

	if cfg.Harvest.SeedFile != "" {
		if err := seedFromFile(ctx, deps, cfg.Harvest.SeedFile); err != nil {
			return err
		}
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps.Scheduler.Register(orchestrator.Job{
		Name:     "proxy-refresh",
		Interval: cfg.Proxy.RefreshInterval,
		Run:      deps.ProxyPool.Provision,
	})
	deps.Scheduler.Start(runCtx)
	defer deps.Scheduler.Stop()

	if deps.DLQ != nil {
		go deps.DLQ.StartCleanup(runCtx)
	}

	opsServer := NewOpsServer(deps, otelCfg.Enabled, otelCfg.ServiceName)
	StartOpsServer(opsServer, cfg.Server.Port, log)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("ops server shutdown failed", "error", err)
		}
	}()

	summary, err := deps.Runner.Run(runCtx)
	if err != nil {
		return err
	}

	log.Info("news-harvester finished",
		"run_id", summary.RunID,
		"total_articles", summary.TotalArticles,
		"success_rate", summary.SuccessRate)

	return nil
}

func seedFromFile(ctx context.Context, deps *Dependencies, path string) error {
	source, err := NewCSVSeedSource(path)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer source.Close()

	if _, err := deps.Seeder.Seed(ctx, source); err != nil {
		return fmt.Errorf("seed from %s: %w", path, err)
	}

	return nil
}

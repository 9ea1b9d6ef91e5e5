package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"news-harvester/browser"
	"news-harvester/config"
	"news-harvester/dlq"
	"news-harvester/driver"
	"news-harvester/metrics"
	"news-harvester/orchestrator"
	"news-harvester/proxy"
	"news-harvester/ratelimit"
	"news-harvester/retry"
	"news-harvester/service"
	"news-harvester/store"
)

// Dependencies holds the wired harvest stack.
type Dependencies struct {
	Config      *config.Config
	DBPool      *pgxpool.Pool
	Store       *store.StateStore
	DLQ         *dlq.FileDLQManager
	ProxyPool   *proxy.Pool
	BrowserPool *browser.Pool
	Collector   *metrics.Collector
	RateLimiter *ratelimit.DomainRateLimiter
	Harvester   service.HarvesterService
	Runner      *orchestrator.Runner
	Seeder      *orchestrator.Seeder
	Scheduler   *orchestrator.Scheduler
	Logger      *slog.Logger
}

// BuildDependencies constructs the full harvest stack and migrates the
// schema. Returns a cleanup function to defer; it closes the browser pool,
// the state store and the database pool, in that order.
func BuildDependencies(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Dependencies, func(), error) {
	dbPool, err := driver.Init(ctx)
	if err != nil {
		return nil, nil, err
	}

	var dlqManager *dlq.FileDLQManager

	storeOpts := store.Options{}
	if cfg.DLQ.Enabled {
		dlqManager = dlq.NewFileDLQManager(dlq.FileDLQConfig{
			BasePath:      cfg.DLQ.BasePath,
			Retention:     cfg.DLQ.Retention,
			EnableCleanup: true,
		}, log)
		storeOpts.Spiller = dlqManager
	}

	stateStore := store.NewStateStore(dbPool, log, storeOpts)

	fail := func(err error) (*Dependencies, func(), error) {
		stateStore.Close()
		dbPool.Close()

		return nil, nil, err
	}

	if err := stateStore.Migrate(ctx); err != nil {
		return fail(fmt.Errorf("migrate schema: %w", err))
	}

	collector, err := metrics.NewCollector(log)
	if err != nil {
		return fail(fmt.Errorf("create metrics collector: %w", err))
	}

	clientFactory := service.NewHTTPClientFactory(cfg, log)

	retrier := retry.NewRetrier(retry.RetryConfig{
		MaxAttempts:   cfg.Retry.MaxAttempts,
		BaseDelay:     cfg.Retry.BaseDelay,
		MaxDelay:      cfg.Retry.MaxDelay,
		BackoffFactor: cfg.Retry.BackoffFactor,
		JitterMax:     cfg.Retry.JitterMax,
	}, service.IsRetryableFetchError, log)

	fetcher := service.NewPageFetcher(clientFactory.CreateArticleClient(), retrier, &cfg.HTTP, log)

	var robots service.RobotsPolicy
	if cfg.Extract.RespectRobots {
		robots = service.NewRobotsPolicy(clientFactory.CreateRobotsClient(), log)
	}

	proxyPool := proxy.NewPool(&cfg.Proxy, stateStore, proxy.NewLoader(log), proxy.NewValidator(&cfg.Proxy, log), log)
	if err := proxyPool.Provision(ctx); err != nil {
		log.Warn("initial proxy provisioning failed, browser sessions start without validated proxies",
			"error", err)
	}

	var (
		browserPool    *browser.Pool
		browserFetcher service.BrowserFetcher
	)

	if cfg.Browser.Enabled {
		engine := browser.NewRemoteEngine(&cfg.Browser, log)
		browserPool = browser.NewPool(engine, proxyPool, &cfg.Browser, log)
		browserFetcher = browserPool
	}

	harvester := service.NewHarvester(fetcher, browserFetcher, robots, cfg, log)
	limiter := ratelimit.NewDomainRateLimiter(&cfg.RateLimit, log)
	runner := orchestrator.NewRunner(stateStore, harvester, limiter, collector, &cfg.Harvest, log)

	cleanup := func() {
		if browserPool != nil {
			browserPool.Close()
		}
		stateStore.Close()
		dbPool.Close()
	}

	return &Dependencies{
		Config:      cfg,
		DBPool:      dbPool,
		Store:       stateStore,
		DLQ:         dlqManager,
		ProxyPool:   proxyPool,
		BrowserPool: browserPool,
		Collector:   collector,
		RateLimiter: limiter,
		Harvester:   harvester,
		Runner:      runner,
		Seeder:      orchestrator.NewSeeder(stateStore, log),
		Scheduler:   orchestrator.NewScheduler(log),
		Logger:      log,
	}, cleanup, nil
}

// ABOUTME: This file drives one harvest run from claimed URL to settled outcome.
// ABOUTME: A pacing dispatch loop feeds a bounded worker pool until the queue drains.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"news-harvester/config"
	"news-harvester/domain"
	"news-harvester/metrics"
	"news-harvester/service"
	"news-harvester/store"
	appOtel "news-harvester/utils/otel"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// statsTimeout bounds the end-of-run stats query so a wedged database
// cannot hold the shutdown path open.
const statsTimeout = 10 * time.Second

// RunStore is the slice of the state store a harvest run needs.
type RunStore interface {
	RecoverProcessing(ctx context.Context) (int64, error)
	Claim(ctx context.Context, limit int) ([]domain.URLRecord, error)
	Complete(ctx context.Context, article *domain.ArticleRecord) (domain.Status, error)
	Fail(ctx context.Context, normalizedURL string, status domain.Status, blockReason, errorMessage string) error
	Stats(ctx context.Context) (*store.Stats, error)
}

// Pacer spaces request starts per publisher domain.
type Pacer interface {
	Wait(ctx context.Context, domain string) error
}

// OutcomeRecorder feeds settled outcomes into the metrics collector.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, source string, status domain.Status, blockReason string)
}

// Runner claims pending URLs in batches and works them through the
// extraction cascade with a bounded worker pool. Dispatch paces per
// publisher domain so claim order never defeats the rate limiter.
type Runner struct {
	store     RunStore
	harvester service.HarvesterService
	pacer     Pacer
	recorder  OutcomeRecorder
	cfg       *config.HarvestConfig
	logger    *slog.Logger
}

// NewRunner creates a harvest runner.
func NewRunner(runStore RunStore, harvester service.HarvesterService, pacer Pacer, recorder OutcomeRecorder, cfg *config.HarvestConfig, logger *slog.Logger) *Runner {
	return &Runner{
		store:     runStore,
		harvester: harvester,
		pacer:     pacer,
		recorder:  recorder,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run drains the pending queue and returns the run summary. Canceling ctx
// stops claiming; in-flight workers get the configured grace window to
// settle before their context is cut. URLs claimed but never settled stay
// processing and are reclaimed by the next run's recovery pass.
func (r *Runner) Run(ctx context.Context) (*metrics.RunSummary, error) {
	runID := uuid.NewString()
	startedAt := time.Now().UTC()
	logger := r.logger.With("run_id", runID)

	recovered, err := r.store.RecoverProcessing(ctx)
	if err != nil {
		return nil, fmt.Errorf("recover in-flight urls: %w", err)
	}

	if recovered > 0 {
		logger.Info("reclaimed urls from interrupted run", "count", recovered)
	}

	logger.Info("harvest run started",
		"workers", r.cfg.WorkerCount,
		"claim_batch", r.cfg.ClaimBatchSize)

	// Workers outlive ctx by the grace window so a shutdown signal does
	// not abort cascades that are about to settle.
	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()

	stopGrace := context.AfterFunc(ctx, func() {
		logger.Info("shutdown requested, draining in-flight work",
			"grace", r.cfg.ShutdownGrace.String())

		graceTimer := time.NewTimer(r.cfg.ShutdownGrace)
		defer graceTimer.Stop()

		select {
		case <-graceTimer.C:
			cancelWork()
		case <-workCtx.Done():
		}
	})
	defer stopGrace()

	var (
		group                          errgroup.Group
		inFlight, processed, succeeded atomic.Int64
		runErr                         error
	)

	group.SetLimit(r.cfg.WorkerCount)

dispatch:
	for {
		if ctx.Err() != nil {
			break
		}

		records, claimErr := r.store.Claim(ctx, r.cfg.ClaimBatchSize)
		if claimErr != nil {
			if ctx.Err() != nil {
				break
			}

			logger.Error("claim failed, stopping run", "error", claimErr)
			runErr = fmt.Errorf("claim urls: %w", claimErr)

			break
		}

		if len(records) == 0 {
			if inFlight.Load() == 0 {
				break
			}

			select {
			case <-time.After(r.cfg.IdlePollInterval):
			case <-ctx.Done():
			}

			continue
		}

		for i, record := range records {
			if err := r.pacer.Wait(ctx, publisherDomain(record.NormalizedURL)); err != nil {
				logger.Info("shutdown during dispatch, leaving claims for recovery",
					"remaining", len(records)-i)

				break dispatch
			}

			rec := record
			inFlight.Add(1)

			group.Go(func() error {
				defer inFlight.Add(-1)

				start := time.Now()
				outcome := r.harvester.Process(workCtx, &rec)

				final, settleErr := r.settle(workCtx, logger, &rec, outcome, start)
				appOtel.RecordCascade(workCtx, string(final), time.Since(start))

				processed.Add(1)
				if settleErr == nil && final == domain.StatusSuccess {
					succeeded.Add(1)
				}

				return nil
			})
		}
	}

	_ = group.Wait()
	cancelWork()

	statsCtx, cancelStats := context.WithTimeout(context.WithoutCancel(ctx), statsTimeout)
	defer cancelStats()

	stats, err := r.store.Stats(statsCtx)
	if err != nil {
		return nil, fmt.Errorf("collect run stats: %w", err)
	}

	summary := metrics.BuildRunSummary(runID, startedAt, time.Since(startedAt), stats)

	event := "harvest run finished"
	if ctx.Err() != nil {
		event = "harvest run interrupted"
	}

	logger.Info(event,
		"duration", summary.Duration.Round(time.Millisecond).String(),
		"processed", processed.Load(),
		"succeeded", succeeded.Load(),
		"success_rate", summary.SuccessRate,
		"total_articles", summary.TotalArticles)

	return summary, runErr
}

// settle writes the outcome to the store, feeds the metrics collector and
// emits the one per-URL log line. Returns the final status, which can
// differ from the outcome's when the store detects a duplicate.
func (r *Runner) settle(ctx context.Context, logger *slog.Logger, record *domain.URLRecord, outcome domain.Outcome, start time.Time) (domain.Status, error) {
	final := outcome.Status

	var err error

	if outcome.Status == domain.StatusSuccess && outcome.Article != nil {
		final, err = r.store.Complete(ctx, outcome.Article)
	} else {
		err = r.store.Fail(ctx, record.NormalizedURL, outcome.Status, outcome.BlockReason, outcome.ErrorMessage)
	}

	if err != nil {
		logger.Error("failed to settle url",
			"url", record.NormalizedURL,
			"status", string(outcome.Status),
			"error", err)

		return final, err
	}

	r.recorder.RecordOutcome(ctx, record.Source, final, outcome.BlockReason)

	fields := []any{
		"url", record.NormalizedURL,
		"source", record.Source,
		"status", string(final),
		"attempts", record.Attempts,
		"duration_ms", time.Since(start).Milliseconds(),
	}

	if outcome.BlockReason != "" {
		fields = append(fields, "block_reason", outcome.BlockReason)
	}

	if outcome.Article != nil {
		fields = append(fields, "extractor", outcome.Article.Extractor, "words", outcome.Article.WordCount)
	}

	if outcome.DateDivergent {
		fields = append(fields, "date_divergent", true)
	}

	logger.Info("url settled", fields...)

	return final, nil
}

// publisherDomain maps a stored URL to its rate-limit key. Unparseable
// URLs share one bucket; the cascade rejects them on its own.
func publisherDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "unknown"
	}

	return domain.PublisherDomain(parsed.Host)
}

// ABOUTME: This file implements the in-process collector for fetch and outcome metrics.
// ABOUTME: Counts feed OTel instruments, the ops snapshot endpoint and the run summary.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"news-harvester/domain"
	"news-harvester/store"
)

const meterName = "news-harvester/metrics"

// DomainMetrics tracks fetch statistics for one publisher host.
type DomainMetrics struct {
	Domain         string        `json:"domain"`
	TotalFetches   int64         `json:"total_fetches"`
	SuccessCount   int64         `json:"success_count"`
	FailureCount   int64         `json:"failure_count"`
	SuccessRate    float64       `json:"success_rate"`
	AvgFetchTime   time.Duration `json:"avg_fetch_time_ns"`
	MinFetchTime   time.Duration `json:"min_fetch_time_ns"`
	MaxFetchTime   time.Duration `json:"max_fetch_time_ns"`
	FirstFetchTime time.Time     `json:"first_fetch_time"`
	LastFetchTime  time.Time     `json:"last_fetch_time"`

	totalFetchTime time.Duration
}

// AggregateMetrics rolls the per-host numbers up across all hosts.
type AggregateMetrics struct {
	TotalFetches  int64         `json:"total_fetches"`
	SuccessCount  int64         `json:"success_count"`
	FailureCount  int64         `json:"failure_count"`
	SuccessRate   float64       `json:"success_rate"`
	AvgFetchTime  time.Duration `json:"avg_fetch_time_ns"`
	ActiveDomains int           `json:"active_domains"`
}

// Snapshot is the live view served by the ops endpoint.
type Snapshot struct {
	Service     string                    `json:"service"`
	StartedAt   time.Time                 `json:"started_at"`
	GeneratedAt time.Time                 `json:"generated_at"`
	Aggregate   *AggregateMetrics         `json:"aggregate"`
	Domains     map[string]*DomainMetrics `json:"domains"`
	Outcomes    map[domain.Status]int64   `json:"outcomes"`
	Blocks      map[string]int64          `json:"block_reasons"`
}

// Collector aggregates fetch timings and terminal outcomes in memory and
// mirrors them onto OTel instruments. All methods are safe for concurrent
// use by the worker pool.
type Collector struct {
	logger    *slog.Logger
	startedAt time.Time

	mu       sync.RWMutex
	domains  map[string]*DomainMetrics
	outcomes map[domain.Status]int64
	blocks   map[string]int64

	fetchCounter   metric.Int64Counter
	fetchDuration  metric.Float64Histogram
	outcomeCounter metric.Int64Counter
}

// NewCollector creates a collector registered against the global meter
// provider.
func NewCollector(logger *slog.Logger) (*Collector, error) {
	meter := otel.Meter(meterName)

	fetchCounter, err := meter.Int64Counter("harvester_fetches_total",
		metric.WithDescription("Page fetches attempted, by host and result"))
	if err != nil {
		return nil, fmt.Errorf("create fetch counter: %w", err)
	}

	fetchDuration, err := meter.Float64Histogram("harvester_fetch_duration_seconds",
		metric.WithDescription("Wall-clock time of one page fetch"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("create fetch histogram: %w", err)
	}

	outcomeCounter, err := meter.Int64Counter("harvester_outcomes_total",
		metric.WithDescription("Terminal URL outcomes, by source, status and block reason"))
	if err != nil {
		return nil, fmt.Errorf("create outcome counter: %w", err)
	}

	return &Collector{
		logger:         logger,
		startedAt:      time.Now().UTC(),
		domains:        make(map[string]*DomainMetrics),
		outcomes:       make(map[domain.Status]int64),
		blocks:         make(map[string]int64),
		fetchCounter:   fetchCounter,
		fetchDuration:  fetchDuration,
		outcomeCounter: outcomeCounter,
	}, nil
}

// RecordFetch records one page fetch against its publisher host.
func (c *Collector) RecordFetch(ctx context.Context, host string, elapsed time.Duration, success bool) {
	c.mu.Lock()

	now := time.Now().UTC()

	dm, ok := c.domains[host]
	if !ok {
		dm = &DomainMetrics{
			Domain:         host,
			FirstFetchTime: now,
			MinFetchTime:   elapsed,
			MaxFetchTime:   elapsed,
		}
		c.domains[host] = dm
	}

	dm.TotalFetches++
	dm.LastFetchTime = now
	dm.totalFetchTime += elapsed

	if success {
		dm.SuccessCount++
	} else {
		dm.FailureCount++
	}

	if elapsed < dm.MinFetchTime {
		dm.MinFetchTime = elapsed
	}
	if elapsed > dm.MaxFetchTime {
		dm.MaxFetchTime = elapsed
	}

	dm.SuccessRate = float64(dm.SuccessCount) / float64(dm.TotalFetches)
	dm.AvgFetchTime = dm.totalFetchTime / time.Duration(dm.TotalFetches)

	c.mu.Unlock()

	result := "failure"
	if success {
		result = "success"
	}
	attrs := metric.WithAttributes(
		attribute.String("host", host),
		attribute.String("result", result),
	)
	c.fetchCounter.Add(ctx, 1, attrs)
	c.fetchDuration.Record(ctx, elapsed.Seconds(), attrs)

	c.logger.Debug("fetch recorded",
		"host", host,
		"elapsed", elapsed,
		"success", success)
}

// RecordOutcome records one terminal URL outcome.
func (c *Collector) RecordOutcome(ctx context.Context, source string, status domain.Status, blockReason string) {
	c.mu.Lock()
	c.outcomes[status]++
	if blockReason != "" {
		c.blocks[blockReason]++
	}
	c.mu.Unlock()

	c.outcomeCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("status", string(status)),
		attribute.String("block_reason", blockReason),
	))
}

// DomainSnapshot returns a copy of one host's stats, or nil when the host
// has not been fetched from yet.
func (c *Collector) DomainSnapshot(host string) *DomainMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dm, ok := c.domains[host]
	if !ok {
		return nil
	}
	clone := *dm
	return &clone
}

// Aggregate rolls up all hosts into one view.
func (c *Collector) Aggregate() *AggregateMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.aggregateLocked()
}

func (c *Collector) aggregateLocked() *AggregateMetrics {
	agg := &AggregateMetrics{ActiveDomains: len(c.domains)}

	var totalFetchTime time.Duration
	for _, dm := range c.domains {
		agg.TotalFetches += dm.TotalFetches
		agg.SuccessCount += dm.SuccessCount
		agg.FailureCount += dm.FailureCount
		totalFetchTime += dm.totalFetchTime
	}

	if agg.TotalFetches > 0 {
		agg.SuccessRate = float64(agg.SuccessCount) / float64(agg.TotalFetches)
		agg.AvgFetchTime = totalFetchTime / time.Duration(agg.TotalFetches)
	}
	return agg
}

// Snapshot assembles the full live view for the ops endpoint.
func (c *Collector) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := &Snapshot{
		Service:     "news-harvester",
		StartedAt:   c.startedAt,
		GeneratedAt: time.Now().UTC(),
		Aggregate:   c.aggregateLocked(),
		Domains:     make(map[string]*DomainMetrics, len(c.domains)),
		Outcomes:    make(map[domain.Status]int64, len(c.outcomes)),
		Blocks:      make(map[string]int64, len(c.blocks)),
	}

	for host, dm := range c.domains {
		clone := *dm
		snap.Domains[host] = &clone
	}
	for status, count := range c.outcomes {
		snap.Outcomes[status] = count
	}
	for reason, count := range c.blocks {
		snap.Blocks[reason] = count
	}
	return snap
}

// Reset clears the in-memory counts. OTel counters are cumulative and are
// left alone.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.domains = make(map[string]*DomainMetrics)
	c.outcomes = make(map[domain.Status]int64)
	c.blocks = make(map[string]int64)
	c.startedAt = time.Now().UTC()
	c.logger.Info("metrics reset")
}

// RunSummary reports one harvest run, assembled from the store's
// point-in-time counts.
type RunSummary struct {
	RunID           string                             `json:"run_id"`
	StartedAt       time.Time                          `json:"started_at"`
	Duration        time.Duration                      `json:"duration_ns"`
	ByStatus        map[domain.Status]int64            `json:"urls_by_status"`
	BySourceStatus  map[string]map[domain.Status]int64 `json:"urls_by_source_status"`
	SuccessRate     float64                            `json:"success_rate"`
	TotalArticles   int64                              `json:"total_articles"`
	EarliestPublish *time.Time                         `json:"earliest_publish_date,omitempty"`
	LatestPublish   *time.Time                         `json:"latest_publish_date,omitempty"`
}

// BuildRunSummary derives the end-of-run report from store stats. The
// success rate counts terminal rows only, so a partially drained queue
// does not dilute it.
func BuildRunSummary(runID string, startedAt time.Time, duration time.Duration, stats *store.Stats) *RunSummary {
	summary := &RunSummary{
		RunID:           runID,
		StartedAt:       startedAt.UTC(),
		Duration:        duration,
		ByStatus:        stats.URLsByStatus,
		BySourceStatus:  stats.URLsBySourceStatus,
		TotalArticles:   stats.TotalArticles,
		EarliestPublish: stats.EarliestPublish,
		LatestPublish:   stats.LatestPublish,
	}

	var attempted, succeeded int64
	for status, count := range stats.URLsByStatus {
		switch status {
		case domain.StatusPending, domain.StatusProcessing:
			continue
		case domain.StatusSuccess:
			succeeded = count
		}
		attempted += count
	}
	if attempted > 0 {
		summary.SuccessRate = float64(succeeded) / float64(attempted)
	}
	return summary
}

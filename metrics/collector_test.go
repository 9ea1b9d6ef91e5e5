// ABOUTME: This file tests the metrics collector's accumulation and snapshots.
// ABOUTME: It also covers run summary assembly from store stats.
package metrics

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news-harvester/domain"
	"news-harvester/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCollector(t *testing.T) *Collector {
	t.Helper()
	collector, err := NewCollector(discardLogger())
	require.NoError(t, err)
	return collector
}

func TestRecordFetchAccumulatesPerHost(t *testing.T) {
	collector := newCollector(t)
	ctx := context.Background()

	collector.RecordFetch(ctx, "www.wsj.com", 100*time.Millisecond, true)
	collector.RecordFetch(ctx, "www.wsj.com", 200*time.Millisecond, true)
	collector.RecordFetch(ctx, "www.wsj.com", 300*time.Millisecond, false)
	collector.RecordFetch(ctx, "apnews.com", 50*time.Millisecond, true)

	wsj := collector.DomainSnapshot("www.wsj.com")
	require.NotNil(t, wsj)
	assert.Equal(t, int64(3), wsj.TotalFetches)
	assert.Equal(t, int64(2), wsj.SuccessCount)
	assert.Equal(t, int64(1), wsj.FailureCount)
	assert.InDelta(t, 2.0/3.0, wsj.SuccessRate, 1e-9)
	assert.Equal(t, 100*time.Millisecond, wsj.MinFetchTime)
	assert.Equal(t, 300*time.Millisecond, wsj.MaxFetchTime)
	assert.Equal(t, 200*time.Millisecond, wsj.AvgFetchTime)
	assert.False(t, wsj.FirstFetchTime.IsZero())
	assert.False(t, wsj.LastFetchTime.Before(wsj.FirstFetchTime))

	ap := collector.DomainSnapshot("apnews.com")
	require.NotNil(t, ap)
	assert.Equal(t, int64(1), ap.TotalFetches)
}

func TestDomainSnapshotUnknownHost(t *testing.T) {
	collector := newCollector(t)

	assert.Nil(t, collector.DomainSnapshot("never-fetched.example.com"))
}

func TestDomainSnapshotReturnsCopy(t *testing.T) {
	collector := newCollector(t)
	ctx := context.Background()

	collector.RecordFetch(ctx, "apnews.com", 10*time.Millisecond, true)

	snap := collector.DomainSnapshot("apnews.com")
	require.NotNil(t, snap)
	snap.TotalFetches = 99

	fresh := collector.DomainSnapshot("apnews.com")
	assert.Equal(t, int64(1), fresh.TotalFetches)
}

func TestAggregateRollsUpAcrossHosts(t *testing.T) {
	collector := newCollector(t)
	ctx := context.Background()

	collector.RecordFetch(ctx, "www.wsj.com", 100*time.Millisecond, true)
	collector.RecordFetch(ctx, "www.wsj.com", 200*time.Millisecond, false)
	collector.RecordFetch(ctx, "apnews.com", 300*time.Millisecond, true)

	agg := collector.Aggregate()
	assert.Equal(t, int64(3), agg.TotalFetches)
	assert.Equal(t, int64(2), agg.SuccessCount)
	assert.Equal(t, int64(1), agg.FailureCount)
	assert.InDelta(t, 2.0/3.0, agg.SuccessRate, 1e-9)
	assert.Equal(t, 200*time.Millisecond, agg.AvgFetchTime)
	assert.Equal(t, 2, agg.ActiveDomains)
}

func TestRecordOutcomeCountsStatusAndBlock(t *testing.T) {
	collector := newCollector(t)
	ctx := context.Background()

	collector.RecordOutcome(ctx, "gdelt", domain.StatusSuccess, "")
	collector.RecordOutcome(ctx, "gdelt", domain.StatusSuccess, "")
	collector.RecordOutcome(ctx, "gdelt", domain.StatusPaywallSuspected, domain.BlockSoftPaywall)
	collector.RecordOutcome(ctx, "manual", domain.StatusErrorNetwork, domain.BlockRateLimited)
	collector.RecordOutcome(ctx, "gdelt", domain.StatusErrorNetwork, domain.BlockRateLimited)

	snap := collector.Snapshot()
	assert.Equal(t, int64(2), snap.Outcomes[domain.StatusSuccess])
	assert.Equal(t, int64(1), snap.Outcomes[domain.StatusPaywallSuspected])
	assert.Equal(t, int64(2), snap.Outcomes[domain.StatusErrorNetwork])
	assert.Equal(t, int64(1), snap.Blocks[domain.BlockSoftPaywall])
	assert.Equal(t, int64(2), snap.Blocks[domain.BlockRateLimited])
}

func TestSnapshotOnFreshCollector(t *testing.T) {
	collector := newCollector(t)

	snap := collector.Snapshot()
	assert.Equal(t, "news-harvester", snap.Service)
	assert.False(t, snap.StartedAt.IsZero())
	assert.False(t, snap.GeneratedAt.IsZero())
	require.NotNil(t, snap.Aggregate)
	assert.Zero(t, snap.Aggregate.TotalFetches)
	assert.Empty(t, snap.Domains)
	assert.Empty(t, snap.Outcomes)
}

func TestResetClearsCounts(t *testing.T) {
	collector := newCollector(t)
	ctx := context.Background()

	collector.RecordFetch(ctx, "apnews.com", 10*time.Millisecond, true)
	collector.RecordOutcome(ctx, "gdelt", domain.StatusSuccess, "")

	collector.Reset()

	snap := collector.Snapshot()
	assert.Empty(t, snap.Domains)
	assert.Empty(t, snap.Outcomes)
	assert.Empty(t, snap.Blocks)
	assert.Zero(t, collector.Aggregate().TotalFetches)
}

func TestRecordFetchIsSafeForConcurrentUse(t *testing.T) {
	collector := newCollector(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				collector.RecordFetch(ctx, "apnews.com", time.Millisecond, n%2 == 0)
			}
		}(i)
	}
	wg.Wait()

	snap := collector.DomainSnapshot("apnews.com")
	require.NotNil(t, snap)
	assert.Equal(t, int64(1000), snap.TotalFetches)
	assert.Equal(t, int64(500), snap.SuccessCount)
}

func TestBuildRunSummary(t *testing.T) {
	earliest := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	latest := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	startedAt := time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC)

	stats := &store.Stats{
		URLsByStatus: map[domain.Status]int64{
			domain.StatusPending:      5,
			domain.StatusProcessing:   2,
			domain.StatusSuccess:      6,
			domain.StatusErrorNetwork: 2,
			domain.StatusSkipped:      1,
			domain.StatusDead:         1,
		},
		URLsBySourceStatus: map[string]map[domain.Status]int64{
			"gdelt": {domain.StatusSuccess: 6},
		},
		TotalArticles:   6,
		EarliestPublish: &earliest,
		LatestPublish:   &latest,
	}

	summary := BuildRunSummary("run-42", startedAt, 90*time.Second, stats)

	assert.Equal(t, "run-42", summary.RunID)
	assert.Equal(t, startedAt, summary.StartedAt)
	assert.Equal(t, 90*time.Second, summary.Duration)
	assert.Equal(t, int64(6), summary.TotalArticles)
	assert.Equal(t, &earliest, summary.EarliestPublish)
	assert.Equal(t, &latest, summary.LatestPublish)
	assert.Equal(t, stats.URLsByStatus, summary.ByStatus)
	assert.Equal(t, stats.URLsBySourceStatus, summary.BySourceStatus)

	// 10 terminal rows, 6 of them successes; pending and processing do
	// not count against the rate.
	assert.InDelta(t, 0.6, summary.SuccessRate, 1e-9)
}

func TestBuildRunSummaryEmptyQueue(t *testing.T) {
	stats := &store.Stats{URLsByStatus: map[domain.Status]int64{}}

	summary := BuildRunSummary("run-1", time.Now(), time.Second, stats)

	assert.Zero(t, summary.SuccessRate)
	assert.Zero(t, summary.TotalArticles)
}

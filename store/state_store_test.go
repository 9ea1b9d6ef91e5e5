// ABOUTME: This file tests the state store write path against a pgxmock pool.
// ABOUTME: A fake pool variant proves writes stay serialized under concurrent submitters.
package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"news-harvester/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) (pgxmock.PgxPoolIface, *StateStore) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)

	s := NewStateStore(mock, testLogger(), Options{})
	t.Cleanup(func() {
		s.Close()
		mock.Close()
	})

	return mock, s
}

func TestStateStoreSeed(t *testing.T) {
	mock, s := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO urls").
		WithArgs("https://apnews.com/article/a1", "https://apnews.com/article/a1",
			"apnews", (*time.Time)(nil), "", (*float64)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	inserted, err := s.Seed(context.Background(), []domain.URLRecord{
		{NormalizedURL: "https://apnews.com/article/a1", OriginalURL: "https://apnews.com/article/a1", Source: "apnews"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStateStoreSeedEmpty(t *testing.T) {
	_, s := newTestStore(t)

	inserted, err := s.Seed(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, inserted)
}

func TestStateStoreClaim(t *testing.T) {
	mock, s := newTestStore(t)

	now := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{
		"normalized_url", "original_url", "source", "status", "attempts",
		"last_attempt_at", "block_reason", "error_message", "extractor_used",
		"gdelt_publish_date", "gdelt_themes", "gdelt_tone",
		"created_at", "updated_at",
	}).AddRow("https://reuters.com/world/a", "https://reuters.com/world/a",
		"reuters", domain.StatusProcessing, 1,
		&now, "", "", "", (*time.Time)(nil), "", (*float64)(nil), now, now)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE urls").WithArgs(8).WillReturnRows(rows)
	mock.ExpectCommit()

	records, err := s.Claim(context.Background(), 8)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "https://reuters.com/world/a", records[0].NormalizedURL)
	assert.Equal(t, domain.StatusProcessing, records[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStateStoreClaimInvalidLimit(t *testing.T) {
	_, s := newTestStore(t)

	_, err := s.Claim(context.Background(), 0)
	assert.Error(t, err)
}

func TestStateStoreComplete(t *testing.T) {
	fetchedAt := time.Date(2026, 2, 11, 11, 0, 0, 0, time.UTC)
	article := &domain.ArticleRecord{
		URL:         "https://apnews.com/article/a1",
		Source:      "apnews",
		Title:       "Headline",
		Authors:     "Jane Doe",
		FullText:    "Body",
		WordCount:   1,
		Extractor:   domain.ExtractorPrimary,
		ContentHash: "cafe01",
		FetchedAt:   fetchedAt,
	}

	tests := map[string]struct {
		mockSetup  func(mock pgxmock.PgxPoolIface)
		wantStatus domain.Status
	}{
		"new article is stored and marked success": {
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectQuery("SELECT url FROM articles").
					WithArgs("cafe01").
					WillReturnRows(pgxmock.NewRows([]string{"url"}))
				mock.ExpectExec("INSERT INTO articles").
					WithArgs(article.URL, article.Source, article.Title, article.Authors,
						article.PublishDate, article.PublishDateSource, article.FullText,
						article.WordCount, article.Extractor, article.ContentHash, article.FetchedAt).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectExec("UPDATE urls").
					WithArgs(article.URL, "success", "", "", article.Extractor).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				mock.ExpectCommit()
			},
			wantStatus: domain.StatusSuccess,
		},
		"hash owned by another url settles as duplicate": {
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectQuery("SELECT url FROM articles").
					WithArgs("cafe01").
					WillReturnRows(pgxmock.NewRows([]string{"url"}).
						AddRow("https://apnews.com/article/original"))
				mock.ExpectExec("UPDATE urls").
					WithArgs(article.URL, "duplicate", "", "", article.Extractor).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				mock.ExpectCommit()
			},
			wantStatus: domain.StatusDuplicate,
		},
		"replay after interrupted commit re-marks success": {
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectQuery("SELECT url FROM articles").
					WithArgs("cafe01").
					WillReturnRows(pgxmock.NewRows([]string{"url"}).AddRow(article.URL))
				mock.ExpectExec("INSERT INTO articles").
					WithArgs(article.URL, article.Source, article.Title, article.Authors,
						article.PublishDate, article.PublishDateSource, article.FullText,
						article.WordCount, article.Extractor, article.ContentHash, article.FetchedAt).
					WillReturnResult(pgxmock.NewResult("INSERT", 0))
				mock.ExpectExec("UPDATE urls").
					WithArgs(article.URL, "success", "", "", article.Extractor).
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
				mock.ExpectCommit()
			},
			wantStatus: domain.StatusSuccess,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			mock, s := newTestStore(t)
			tc.mockSetup(mock)

			status, err := s.Complete(context.Background(), article)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, status)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStateStoreCompleteRequiresHash(t *testing.T) {
	_, s := newTestStore(t)

	_, err := s.Complete(context.Background(), &domain.ArticleRecord{URL: "https://apnews.com/a"})
	assert.Error(t, err)
}

func TestStateStoreFail(t *testing.T) {
	mock, s := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE urls").
		WithArgs("https://wsj.com/articles/a", "paywall_suspected", "paywall", "HTTP 403 with subscribe wall", "").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := s.Fail(context.Background(), "https://wsj.com/articles/a",
		domain.StatusPaywallSuspected, "paywall", "HTTP 403 with subscribe wall")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStateStoreFailRejectsNonFailureStatus(t *testing.T) {
	_, s := newTestStore(t)

	tests := map[string]domain.Status{
		"pending is not a failure":    domain.StatusPending,
		"processing is not a failure": domain.StatusProcessing,
		"success is not a failure":    domain.StatusSuccess,
		"duplicate is not a failure":  domain.StatusDuplicate,
		"unknown status is rejected":  domain.Status("exploded"),
	}

	for name, status := range tests {
		t.Run(name, func(t *testing.T) {
			err := s.Fail(context.Background(), "https://apnews.com/a", status, "", "")
			assert.Error(t, err)
		})
	}
}

func TestStateStoreFailedWriteRollsBack(t *testing.T) {
	mock, s := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO urls").
		WithArgs("https://apnews.com/article/a1", "https://apnews.com/article/a1",
			"apnews", (*time.Time)(nil), "", (*float64)(nil)).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := s.Seed(context.Background(), []domain.URLRecord{
		{NormalizedURL: "https://apnews.com/article/a1", OriginalURL: "https://apnews.com/article/a1", Source: "apnews"},
	})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStateStoreRecoverProcessing(t *testing.T) {
	mock, s := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE urls").
		WillReturnResult(pgxmock.NewResult("UPDATE", 5))
	mock.ExpectCommit()

	reset, err := s.RecoverProcessing(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), reset)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStateStoreStats(t *testing.T) {
	mock, s := newTestStore(t)

	earliest := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	latest := time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT status, count").
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow("pending", int64(10)).
			AddRow("success", int64(4)))
	mock.ExpectQuery("SELECT source, status, count").
		WillReturnRows(pgxmock.NewRows([]string{"source", "status", "count"}).
			AddRow("apnews", "pending", int64(6)).
			AddRow("reuters", "pending", int64(4)))
	mock.ExpectQuery("SELECT source, count").
		WillReturnRows(pgxmock.NewRows([]string{"source", "count"}).
			AddRow("apnews", int64(3)))
	mock.ExpectQuery("SELECT count").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(4)))
	mock.ExpectQuery("SELECT min").
		WillReturnRows(pgxmock.NewRows([]string{"min", "max"}).
			AddRow(&earliest, &latest))

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.URLsByStatus[domain.StatusPending])
	assert.Equal(t, int64(6), stats.URLsBySourceStatus["apnews"][domain.StatusPending])
	assert.Equal(t, int64(3), stats.ArticlesBySource["apnews"])
	assert.Equal(t, int64(4), stats.TotalArticles)
	require.NotNil(t, stats.EarliestPublish)
	assert.True(t, earliest.Equal(*stats.EarliestPublish))
	require.NotNil(t, stats.LatestPublish)
	assert.True(t, latest.Equal(*stats.LatestPublish))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// spySpiller records the last spilled write for assertions.
type spySpiller struct {
	mu        sync.Mutex
	calls     int
	operation string
	url       string
	attempts  int
}

func (s *spySpiller) PublishFailedWrite(ctx context.Context, operation, url string, attempts int, lastErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	s.operation = operation
	s.url = url
	s.attempts = attempts

	return nil
}

func newSpillingStore(t *testing.T) (pgxmock.PgxPoolIface, *StateStore, *spySpiller) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)

	spy := &spySpiller{}
	s := NewStateStore(mock, testLogger(), Options{Spiller: spy})
	t.Cleanup(func() {
		s.Close()
		mock.Close()
	})

	return mock, s, spy
}

func TestStateStoreSpillsFailedURLWrites(t *testing.T) {
	mock, s, spy := newSpillingStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE urls").
		WithArgs("https://apnews.com/article/gone", "dead", "deleted", "HTTP 410", "").
		WillReturnError(errors.New("relation urls does not exist"))
	mock.ExpectRollback()

	err := s.Fail(context.Background(), "https://apnews.com/article/gone", domain.StatusDead, "deleted", "HTTP 410")
	assert.Error(t, err)

	spy.mu.Lock()
	defer spy.mu.Unlock()

	assert.Equal(t, 1, spy.calls)
	assert.Equal(t, "fail", spy.operation)
	assert.Equal(t, "https://apnews.com/article/gone", spy.url)
	assert.Equal(t, 1, spy.attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStateStoreRetriesTransientWrites(t *testing.T) {
	mock, s, spy := newSpillingStore(t)

	for i := 0; i < 3; i++ {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE urls").
			WithArgs("https://reuters.com/world/b", "error_network", "transport", "dial timeout", "").
			WillReturnError(errors.New("conn busy"))
		mock.ExpectRollback()
	}

	err := s.Fail(context.Background(), "https://reuters.com/world/b",
		domain.StatusErrorNetwork, "transport", "dial timeout")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conn busy")

	spy.mu.Lock()
	defer spy.mu.Unlock()

	assert.Equal(t, 1, spy.calls)
	assert.Equal(t, 3, spy.attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStateStoreProxyOps(t *testing.T) {
	mock, s := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO proxies").
		WithArgs("203.0.113.5", 8080, "http").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO proxies").
		WithArgs("203.0.113.6", 3128, "http").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.UpsertProxies(context.Background(), []domain.ProxyRecord{
		{Host: "203.0.113.5", Port: 8080},
		{Host: "203.0.113.6", Port: 3128},
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("success_count = success_count").
		WithArgs("203.0.113.5", 8080).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, s.RecordProxyOutcome(context.Background(), "203.0.113.5", 8080, true, 3))

	mock.ExpectQuery("FROM proxies WHERE is_active").
		WillReturnRows(pgxmock.NewRows([]string{"id", "host", "port", "protocol", "last_validated_at",
			"success_count", "consecutive_failure_count", "is_active"}).
			AddRow(int64(1), "203.0.113.5", 8080, "http", (*time.Time)(nil), 1, 0, true))

	proxies, err := s.ActiveProxies(context.Background())
	require.NoError(t, err)
	require.Len(t, proxies, 1)
	assert.Equal(t, "203.0.113.5:8080", proxies[0].Addr())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStateStoreCloseRejectsNewWrites(t *testing.T) {
	_, s := newTestStore(t)
	s.Close()

	err := s.Fail(context.Background(), "https://apnews.com/a", domain.StatusDead, "deleted", "")
	assert.ErrorIs(t, err, domain.ErrStoreClosed)
}

// fakePool backs the serialization test. It hands out transactions that
// record overlap, so concurrent writers would be caught.
type fakePool struct {
	mu      sync.Mutex
	inTx    bool
	overlap bool
	begins  int
	commits int
	execs   int
}

func (p *fakePool) Begin(ctx context.Context) (pgx.Tx, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inTx {
		p.overlap = true
	}

	p.inTx = true
	p.begins++

	return &fakeTx{pool: p}, nil
}

func (p *fakePool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("pool exec not expected")
}

func (p *fakePool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("pool query not expected")
}

func (p *fakePool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (p *fakePool) Ping(ctx context.Context) error { return nil }

func (p *fakePool) Close() {}

type fakeTx struct {
	pgx.Tx
	pool *fakePool
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.pool.mu.Lock()
	t.pool.execs++
	t.pool.mu.Unlock()

	time.Sleep(time.Millisecond)

	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.pool.mu.Lock()
	defer t.pool.mu.Unlock()

	t.pool.inTx = false
	t.pool.commits++

	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.pool.mu.Lock()
	defer t.pool.mu.Unlock()

	t.pool.inTx = false

	return nil
}

func TestStateStoreSerializesConcurrentWriters(t *testing.T) {
	pool := &fakePool{}
	s := NewStateStore(pool, testLogger(), Options{})

	const writers = 25

	var wg sync.WaitGroup

	errs := make([]error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			errs[i] = s.Fail(context.Background(),
				"https://apnews.com/article/a", domain.StatusErrorNetwork, "transport", "")
		}(i)
	}

	wg.Wait()
	s.Close()

	for i, err := range errs {
		assert.NoError(t, err, "writer %d", i)
	}

	pool.mu.Lock()
	defer pool.mu.Unlock()

	assert.False(t, pool.overlap, "transactions overlapped")
	assert.Equal(t, writers, pool.execs)
	assert.Equal(t, pool.begins, pool.commits)
	assert.LessOrEqual(t, pool.begins, pool.execs)
}

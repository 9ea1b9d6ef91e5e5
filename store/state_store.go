// ABOUTME: This file implements the single-writer state store over the urls and articles tables.
// ABOUTME: All writes funnel through one goroutine that batches operations into transactions.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"news-harvester/domain"
	"news-harvester/driver"
)

const (
	defaultBatchSize  = 100
	defaultQueueDepth = 256

	writeRetryAttempts  = 3
	writeRetryBaseDelay = 100 * time.Millisecond
)

// Spiller receives per-URL writes that failed after all retries, so a
// database outage loses no acquisition outcomes.
type Spiller interface {
	PublishFailedWrite(ctx context.Context, operation, url string, attempts int, lastErr error) error
}

// Options tunes the write path. Zero values pick the defaults.
type Options struct {
	// BatchSize caps how many queued operations share one transaction.
	BatchSize int
	// QueueDepth is the write queue capacity. Submitters block once it fills.
	QueueDepth int
	// Spiller, when set, captures per-URL writes the database kept rejecting.
	Spiller Spiller
}

type storeOp struct {
	name string
	// url is set on per-URL writes so failed ones can be spilled.
	url  string
	fn   func(ctx context.Context, q driver.Queryer) error
	done chan error
}

// StateStore owns all reads and writes of acquisition state. Writes are
// serialized through a single goroutine, so with many workers there is
// still exactly one writer ordering state transitions; reads go straight
// to the pool.
type StateStore struct {
	pool      driver.Pool
	logger    *slog.Logger
	ops       chan *storeOp
	batchSize int
	spiller   Spiller

	mu     sync.RWMutex
	closed bool

	wg sync.WaitGroup
}

// NewStateStore starts the writer goroutine and returns a ready store.
// Callers still need Migrate and RecoverProcessing before claiming work.
func NewStateStore(pool driver.Pool, logger *slog.Logger, opts Options) *StateStore {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}

	if opts.QueueDepth <= 0 {
		opts.QueueDepth = defaultQueueDepth
	}

	s := &StateStore{
		pool:      pool,
		logger:    logger,
		ops:       make(chan *storeOp, opts.QueueDepth),
		batchSize: opts.BatchSize,
		spiller:   opts.Spiller,
	}

	s.wg.Add(1)
	go s.writerLoop()

	return s
}

// Migrate creates the schema. Run once at startup before any writes.
func (s *StateStore) Migrate(ctx context.Context) error {
	return driver.Migrate(ctx, s.pool)
}

// RecoverProcessing returns rows left in processing by an interrupted run
// to pending so the new run claims them again.
func (s *StateStore) RecoverProcessing(ctx context.Context) (int64, error) {
	var reset int64

	err := s.submit(ctx, "recover_processing", func(ctx context.Context, q driver.Queryer) error {
		var err error
		reset, err = driver.ResetProcessingURLs(ctx, q)
		return err
	})
	if err != nil {
		return 0, err
	}

	if reset > 0 {
		s.logger.Info("recovered stranded urls", "reset", reset)
	}

	return reset, nil
}

// Seed inserts candidate URLs as pending work. Already-known URLs are
// skipped, so re-running an ingest file never duplicates work.
func (s *StateStore) Seed(ctx context.Context, records []domain.URLRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	var inserted int64

	err := s.submit(ctx, "seed", func(ctx context.Context, q driver.Queryer) error {
		var err error
		inserted, err = driver.SeedURLs(ctx, q, records)
		return err
	})
	if err != nil {
		return 0, err
	}

	return inserted, nil
}

// Claim atomically marks up to limit pending URLs as processing and
// returns them, oldest first. An empty result means the queue is drained.
func (s *StateStore) Claim(ctx context.Context, limit int) ([]domain.URLRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("claim limit must be positive, got %d", limit)
	}

	var records []domain.URLRecord

	err := s.submit(ctx, "claim", func(ctx context.Context, q driver.Queryer) error {
		var err error
		records, err = driver.ClaimPendingURLs(ctx, q, limit)
		return err
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// Complete stores an extracted article and settles its URL row in one
// transaction. When another URL already owns the same content hash the
// article is dropped and the row is marked duplicate instead.
func (s *StateStore) Complete(ctx context.Context, article *domain.ArticleRecord) (domain.Status, error) {
	if article == nil || article.URL == "" || article.ContentHash == "" {
		return "", fmt.Errorf("complete requires an article with url and content hash")
	}

	var finalStatus domain.Status

	err := s.submitURL(ctx, "complete", article.URL, func(ctx context.Context, q driver.Queryer) error {
		owner, err := driver.FindArticleURLByHash(ctx, q, article.ContentHash)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		if err == nil && owner != article.URL {
			finalStatus = domain.StatusDuplicate

			s.logger.Info("duplicate content detected",
				"url", article.URL,
				"duplicate_of", owner)

			_, err := driver.UpdateURLStatus(ctx, q, article.URL, domain.StatusDuplicate, "", "", article.Extractor)
			return err
		}

		// Either the hash is new or this URL already owns it from an
		// interrupted run. The insert is a no-op in the replay case.
		if _, err := driver.InsertArticle(ctx, q, article); err != nil {
			return err
		}

		finalStatus = domain.StatusSuccess

		_, err = driver.UpdateURLStatus(ctx, q, article.URL, domain.StatusSuccess, "", "", article.Extractor)
		return err
	})
	if err != nil {
		return "", err
	}

	return finalStatus, nil
}

// Fail settles a URL row with a failure status, block reason and error
// detail. Marking a row that already left processing changes nothing.
func (s *StateStore) Fail(ctx context.Context, normalizedURL string, status domain.Status, blockReason, errorMessage string) error {
	if !status.Valid() || !status.Terminal() || status == domain.StatusSuccess || status == domain.StatusDuplicate {
		return fmt.Errorf("invalid failure status %q", status)
	}

	return s.submitURL(ctx, "fail", normalizedURL, func(ctx context.Context, q driver.Queryer) error {
		_, err := driver.UpdateURLStatus(ctx, q, normalizedURL, status, blockReason, errorMessage, "")
		return err
	})
}

// ResetRetryable returns retryable failures below the attempt cap to
// pending for a later pass.
func (s *StateStore) ResetRetryable(ctx context.Context, maxAttempts int) (int64, error) {
	var reset int64

	err := s.submit(ctx, "reset_retryable", func(ctx context.Context, q driver.Queryer) error {
		var err error
		reset, err = driver.ResetRetryableURLs(ctx, q, maxAttempts)
		return err
	})
	if err != nil {
		return 0, err
	}

	return reset, nil
}

// UpsertProxies stores validated proxies. Re-validated proxies come back
// active with a clean failure streak.
func (s *StateStore) UpsertProxies(ctx context.Context, proxies []domain.ProxyRecord) error {
	if len(proxies) == 0 {
		return nil
	}

	return s.submit(ctx, "upsert_proxies", func(ctx context.Context, q driver.Queryer) error {
		for _, proxy := range proxies {
			if err := driver.UpsertProxy(ctx, q, proxy); err != nil {
				return err
			}
		}

		return nil
	})
}

// RecordProxyOutcome updates one proxy's health counters after a fetch
// through it. A failure streak reaching retireThreshold deactivates it.
func (s *StateStore) RecordProxyOutcome(ctx context.Context, host string, port int, success bool, retireThreshold int) error {
	return s.submit(ctx, "proxy_outcome", func(ctx context.Context, q driver.Queryer) error {
		return driver.RecordProxyOutcome(ctx, q, host, port, success, retireThreshold)
	})
}

// RetireProxy deactivates a proxy immediately.
func (s *StateStore) RetireProxy(ctx context.Context, host string, port int) error {
	return s.submit(ctx, "retire_proxy", func(ctx context.Context, q driver.Queryer) error {
		return driver.RetireProxy(ctx, q, host, port)
	})
}

// ActiveProxies lists proxies still eligible for use. Reads bypass the writer.
func (s *StateStore) ActiveProxies(ctx context.Context) ([]domain.ProxyRecord, error) {
	return driver.ListActiveProxies(ctx, s.pool)
}

// Get fetches one URL record. Reads bypass the writer.
func (s *StateStore) Get(ctx context.Context, normalizedURL string) (*domain.URLRecord, error) {
	return driver.GetURL(ctx, s.pool, normalizedURL)
}

// Stats snapshots queue and corpus counts. Reads bypass the writer.
func (s *StateStore) Stats(ctx context.Context) (*Stats, error) {
	byStatus, err := driver.CountURLsByStatus(ctx, s.pool)
	if err != nil {
		return nil, err
	}

	bySourceStatus, err := driver.CountURLsBySourceStatus(ctx, s.pool)
	if err != nil {
		return nil, err
	}

	bySource, err := driver.CountArticlesBySource(ctx, s.pool)
	if err != nil {
		return nil, err
	}

	total, err := driver.CountArticles(ctx, s.pool)
	if err != nil {
		return nil, err
	}

	earliest, latest, err := driver.ArticleDateRange(ctx, s.pool)
	if err != nil {
		return nil, err
	}

	return &Stats{
		URLsByStatus:       byStatus,
		URLsBySourceStatus: bySourceStatus,
		ArticlesBySource:   bySource,
		TotalArticles:      total,
		EarliestPublish:    earliest,
		LatestPublish:      latest,
	}, nil
}

// Stats is a point-in-time view of the work queue and stored corpus.
type Stats struct {
	URLsByStatus       map[domain.Status]int64            `json:"urls_by_status"`
	URLsBySourceStatus map[string]map[domain.Status]int64 `json:"urls_by_source_status"`
	ArticlesBySource   map[string]int64                   `json:"articles_by_source"`
	TotalArticles      int64                              `json:"total_articles"`
	EarliestPublish    *time.Time                         `json:"earliest_publish_date,omitempty"`
	LatestPublish      *time.Time                         `json:"latest_publish_date,omitempty"`
}

// Close stops accepting writes, drains everything already queued and
// waits for the writer to finish. Safe to call more than once.
func (s *StateStore) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	s.closed = true
	s.mu.Unlock()

	close(s.ops)
	s.wg.Wait()

	s.logger.Info("state store closed")
}

// submit queues one write and waits for the writer to run it. The
// caller's context bounds only the wait; once queued, the operation
// lands even if the caller gives up.
func (s *StateStore) submit(ctx context.Context, name string, fn func(ctx context.Context, q driver.Queryer) error) error {
	return s.submitURL(ctx, name, "", fn)
}

// submitURL is submit for writes tied to one URL, which makes the write
// eligible for dead letter spilling when it keeps failing.
func (s *StateStore) submitURL(ctx context.Context, name, url string, fn func(ctx context.Context, q driver.Queryer) error) error {
	op := &storeOp{name: name, url: url, fn: fn, done: make(chan error, 1)}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return domain.ErrStoreClosed
	}

	select {
	case s.ops <- op:
		s.mu.RUnlock()
	case <-ctx.Done():
		s.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case err := <-op.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *StateStore) writerLoop() {
	defer s.wg.Done()

	for op := range s.ops {
		batch := make([]*storeOp, 0, s.batchSize)
		batch = append(batch, op)

	collect:
		for len(batch) < s.batchSize {
			select {
			case next, ok := <-s.ops:
				if !ok {
					break collect
				}

				batch = append(batch, next)
			default:
				break collect
			}
		}

		s.runBatch(batch)
	}
}

// runBatch executes queued operations in one transaction. If the shared
// transaction fails, every operation is replayed in its own transaction
// so one bad write cannot sink its batchmates. Replays are safe because
// every write is idempotent.
func (s *StateStore) runBatch(batch []*storeOp) {
	// The writer never uses caller contexts. A committed batch must not
	// be aborted because one submitter went away.
	ctx := context.Background()

	if len(batch) == 1 {
		batch[0].done <- s.runSingle(ctx, batch[0])
		return
	}

	err := s.runShared(ctx, batch)
	if err == nil {
		for _, op := range batch {
			op.done <- nil
		}

		return
	}

	s.logger.Warn("write batch failed, replaying operations individually",
		"batch_size", len(batch),
		"error", err)

	for _, op := range batch {
		op.done <- s.runSingle(ctx, op)
	}
}

func (s *StateStore) runShared(ctx context.Context, batch []*storeOp) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch transaction: %w", err)
	}

	for _, op := range batch {
		if err := op.fn(ctx, tx); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("batch operation %s: %w", op.name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("commit batch transaction: %w", err)
	}

	return nil
}

// runSingle executes one operation in its own transaction, retrying
// transient pool contention with a short backoff. A per-URL write that
// still fails is spilled to the dead letter queue.
func (s *StateStore) runSingle(ctx context.Context, op *storeOp) error {
	var lastErr error

	attempts := 0

	for attempt := 0; attempt < writeRetryAttempts; attempt++ {
		attempts = attempt + 1

		lastErr = s.runOnce(ctx, op)
		if lastErr == nil {
			return nil
		}

		if !isTransientWriteError(lastErr) {
			break
		}

		delay := writeRetryBaseDelay * time.Duration(1<<attempt)

		s.logger.Warn("transient write error, backing off",
			"operation", op.name,
			"attempt", attempts,
			"delay", delay.String(),
			"error", lastErr)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.logger.Warn("write operation failed",
		"operation", op.name,
		"attempts", attempts,
		"error", lastErr)

	if s.spiller != nil && op.url != "" {
		if spillErr := s.spiller.PublishFailedWrite(ctx, op.name, op.url, attempts, lastErr); spillErr != nil {
			s.logger.Error("dead letter spill failed",
				"operation", op.name,
				"url", op.url,
				"error", spillErr)
		}
	}

	return lastErr
}

func (s *StateStore) runOnce(ctx context.Context, op *storeOp) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := op.fn(ctx, tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// isTransientWriteError matches pool contention that a short backoff can
// clear, like pgx's conn busy state.
func isTransientWriteError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "conn busy")
}

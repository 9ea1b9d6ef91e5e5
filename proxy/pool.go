// ABOUTME: This file manages the pool of validated proxies for browser contexts.
// ABOUTME: Hands out least-recently-used proxies and retires repeat failures.
package proxy

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"news-harvester/config"
	"news-harvester/domain"
	appOtel "news-harvester/utils/otel"
)

// provisionTimeout bounds one background load-validate-persist cycle.
const provisionTimeout = 2 * time.Minute

// Store is the slice of the state store the pool persists through.
type Store interface {
	UpsertProxies(ctx context.Context, proxies []domain.ProxyRecord) error
	RecordProxyOutcome(ctx context.Context, host string, port int, success bool, retireThreshold int) error
	ActiveProxies(ctx context.Context) ([]domain.ProxyRecord, error)
}

type poolEntry struct {
	record   domain.ProxyRecord
	inUse    bool
	lastUsed time.Time
	failures int
}

// Pool hands out healthy proxies for browser contexts. Acquisition is
// least-recently-used so load spreads across the inventory, and each proxy
// is held exclusively until released.
type Pool struct {
	cfg       *config.ProxyConfig
	store     Store
	loader    *Loader
	validator *Validator
	logger    *slog.Logger

	mu      sync.Mutex
	entries map[string]*poolEntry

	provision singleflight.Group
}

// NewPool creates a proxy pool. loader and validator may be nil, in which
// case refreshes only re-read what the store already holds.
func NewPool(cfg *config.ProxyConfig, store Store, loader *Loader, validator *Validator, logger *slog.Logger) *Pool {
	return &Pool{
		cfg:       cfg,
		store:     store,
		loader:    loader,
		validator: validator,
		logger:    logger,
		entries:   make(map[string]*poolEntry),
	}
}

// Provision runs one full load-validate-persist cycle and reloads the pool
// from the store afterwards.
func (p *Pool) Provision(ctx context.Context) error {
	if p.loader != nil && p.validator != nil && len(p.cfg.Sources) > 0 {
		candidates := p.loader.Load(ctx, p.cfg.Sources)

		if passed := p.validator.Validate(ctx, candidates); len(passed) > 0 {
			if err := p.store.UpsertProxies(ctx, passed); err != nil {
				return err
			}
		}
	}

	return p.Reload(ctx)
}

// Reload replaces the in-memory inventory with the store's active set.
// In-use marks and failure streaks survive for proxies present in both.
func (p *Pool) Reload(ctx context.Context) error {
	records, err := p.store.ActiveProxies(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	next := make(map[string]*poolEntry, len(records))

	for _, record := range records {
		entry := &poolEntry{record: record}
		if old, ok := p.entries[record.Addr()]; ok {
			entry.inUse = old.inUse
			entry.lastUsed = old.lastUsed
			entry.failures = old.failures
		}

		next[record.Addr()] = entry
	}

	p.entries = next

	p.logger.Info("proxy pool reloaded", "active", len(next))

	return nil
}

// Acquire leases the least-recently-used free proxy. With nothing to hand
// out it kicks a background refresh and reports ErrNoActiveProxy so the
// caller can settle the URL as skipped.
func (p *Pool) Acquire(ctx context.Context) (domain.ProxyRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.ProxyRecord{}, err
	}

	p.mu.Lock()

	var pick *poolEntry

	for _, entry := range p.entries {
		if entry.inUse {
			continue
		}

		if pick == nil || entry.lastUsed.Before(pick.lastUsed) {
			pick = entry
		}
	}

	if pick == nil {
		p.mu.Unlock()
		p.refreshInBackground()

		return domain.ProxyRecord{}, domain.ErrNoActiveProxy
	}

	pick.inUse = true
	pick.lastUsed = time.Now()
	record := pick.record

	p.mu.Unlock()

	return record, nil
}

// Release returns a leased proxy to the pool.
func (p *Pool) Release(addr string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if entry, ok := p.entries[addr]; ok {
		entry.inUse = false
	}
}

// ReportSuccess clears the failure streak for a proxy, here and in the
// store.
func (p *Pool) ReportSuccess(ctx context.Context, addr string) {
	p.mu.Lock()

	entry, ok := p.entries[addr]

	var record domain.ProxyRecord

	if ok {
		entry.failures = 0
		record = entry.record
	}

	p.mu.Unlock()

	if !ok {
		return
	}

	if err := p.store.RecordProxyOutcome(ctx, record.Host, record.Port, true, p.cfg.FailureThreshold); err != nil {
		p.logger.Warn("proxy outcome not persisted", "proxy", addr, "error", err)
	}
}

// ReportFailure extends the failure streak for a proxy and retires it once
// the streak reaches the configured threshold. Dropping below the minimum
// active count triggers a background refresh.
func (p *Pool) ReportFailure(ctx context.Context, addr string) {
	p.mu.Lock()

	entry, ok := p.entries[addr]

	var record domain.ProxyRecord

	retired := false

	if ok {
		record = entry.record
		entry.failures++

		if entry.failures >= p.cfg.FailureThreshold {
			delete(p.entries, addr)

			retired = true
		}
	}

	remaining := len(p.entries)

	p.mu.Unlock()

	if !ok {
		return
	}

	if err := p.store.RecordProxyOutcome(ctx, record.Host, record.Port, false, p.cfg.FailureThreshold); err != nil {
		p.logger.Warn("proxy outcome not persisted", "proxy", addr, "error", err)
	}

	if retired {
		p.logger.Info("proxy retired", "proxy", addr, "failures", p.cfg.FailureThreshold)
		appOtel.RecordProxyRetired(ctx)
	}

	if remaining < p.cfg.MinActive {
		p.refreshInBackground()
	}
}

// ActiveCount reports the pool's current inventory size.
func (p *Pool) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.entries)
}

// refreshInBackground runs Provision once no matter how many callers ask
// for it concurrently.
func (p *Pool) refreshInBackground() {
	go func() {
		_, _, _ = p.provision.Do("provision", func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), provisionTimeout)
			defer cancel()

			if err := p.Provision(ctx); err != nil {
				p.logger.Warn("background proxy refresh failed", "error", err)
			}

			return nil, nil
		})
	}()
}

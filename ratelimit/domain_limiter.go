// ABOUTME: This file implements per-publisher crawl pacing with domain-specific delays.
// ABOUTME: Requests to one domain are spaced by at least the configured interval.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"news-harvester/config"
)

// DomainMetrics is a read-only snapshot of pacing activity for one domain.
type DomainMetrics struct {
	TotalWaits      int64         `json:"total_waits"`
	TotalWaitTime   time.Duration `json:"total_wait_time"`
	LastRequestTime time.Time     `json:"last_request_time"`
	ConfiguredDelay time.Duration `json:"configured_delay"`
}

// domainLimiter paces a single publisher domain.
type domainLimiter struct {
	limiter *rate.Limiter
	delay   time.Duration

	mu            sync.Mutex
	totalWaits    int64
	totalWaitTime time.Duration
	lastRequest   time.Time
}

// DomainRateLimiter spaces request starts per publisher domain. Tokens
// refill at one per configured delay with burst 1, so two acquisitions for
// the same domain are always at least the delay apart. Callers waiting on
// the same domain are served in acquisition order because the dispatch loop
// acquires before handing work to a worker.
type DomainRateLimiter struct {
	config   *config.RateLimitConfig
	limiters map[string]*domainLimiter
	mu       sync.RWMutex
	logger   *slog.Logger
}

func NewDomainRateLimiter(cfg *config.RateLimitConfig, logger *slog.Logger) *DomainRateLimiter {
	return &DomainRateLimiter{
		config:   cfg,
		limiters: make(map[string]*domainLimiter),
		logger:   logger,
	}
}

// Wait blocks until the domain may start another request, or until the
// context is done.
func (d *DomainRateLimiter) Wait(ctx context.Context, domain string) error {
	dl := d.getLimiter(domain)

	start := time.Now()
	if err := dl.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", domain, err)
	}
	waited := time.Since(start)

	dl.mu.Lock()
	dl.totalWaits++
	dl.totalWaitTime += waited
	dl.lastRequest = time.Now()
	dl.mu.Unlock()

	if waited > 100*time.Millisecond {
		d.logger.Debug("rate limit wait",
			"domain", domain,
			"waited_ms", waited.Milliseconds(),
			"configured_delay_ms", dl.delay.Milliseconds())
	}

	return nil
}

// Delay reports the configured minimum interval for a domain.
func (d *DomainRateLimiter) Delay(domain string) time.Duration {
	return d.config.DelayFor(domain)
}

// Metrics returns a snapshot of pacing activity for every domain seen so far.
func (d *DomainRateLimiter) Metrics() map[string]DomainMetrics {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make(map[string]DomainMetrics, len(d.limiters))
	for domain, dl := range d.limiters {
		dl.mu.Lock()
		out[domain] = DomainMetrics{
			TotalWaits:      dl.totalWaits,
			TotalWaitTime:   dl.totalWaitTime,
			LastRequestTime: dl.lastRequest,
			ConfiguredDelay: dl.delay,
		}
		dl.mu.Unlock()
	}
	return out
}

func (d *DomainRateLimiter) getLimiter(domain string) *domainLimiter {
	d.mu.RLock()
	dl, exists := d.limiters[domain]
	d.mu.RUnlock()

	if exists {
		return dl
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// Double-check pattern
	if dl, exists := d.limiters[domain]; exists {
		return dl
	}

	delay := d.config.DelayFor(domain)
	dl = &domainLimiter{
		limiter: rate.NewLimiter(rate.Every(delay), 1),
		delay:   delay,
	}
	d.limiters[domain] = dl
	return dl
}

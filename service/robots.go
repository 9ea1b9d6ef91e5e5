// ABOUTME: This file gates fetches on robots.txt when the operator opts in.
// ABOUTME: Rules are cached per origin; unobtainable files fail open.
package service

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// robotsUserAgent is the product token matched against robots.txt groups.
// Fetch requests carry rotated browser User-Agents, but the crawler
// identifies itself honestly for rule matching.
const robotsUserAgent = "news-harvester"

// robotsMaxBytes caps a robots.txt read at the 500 KiB the major crawlers
// honor.
const robotsMaxBytes = 512 << 10

type robotsGate struct {
	client HTTPClient
	agent  string
	logger *slog.Logger

	mu    sync.RWMutex
	rules map[string]*robotstxt.RobotsData
}

// NewRobotsPolicy builds a per-origin robots.txt gate. A nil cached entry
// means the file could not be obtained and that origin stays allowed.
func NewRobotsPolicy(client HTTPClient, logger *slog.Logger) RobotsPolicy {
	return &robotsGate{
		client: client,
		agent:  robotsUserAgent,
		logger: logger,
		rules:  make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed implements RobotsPolicy.
func (g *robotsGate) Allowed(ctx context.Context, rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return true
	}

	data := g.rulesFor(ctx, parsed)
	if data == nil {
		return true
	}

	return data.TestAgent(parsed.RequestURI(), g.agent)
}

func (g *robotsGate) rulesFor(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	origin := u.Scheme + "://" + u.Host

	g.mu.RLock()
	data, ok := g.rules[origin]
	g.mu.RUnlock()

	if ok {
		return data
	}

	data = g.fetchRules(ctx, origin)

	g.mu.Lock()
	g.rules[origin] = data
	g.mu.Unlock()

	return data
}

func (g *robotsGate) fetchRules(ctx context.Context, origin string) *robotstxt.RobotsData {
	resp, err := g.client.Get(ctx, origin+"/robots.txt")
	if err != nil {
		g.logger.Warn("robots.txt unavailable, failing open", "origin", origin, "error", err)
		return nil
	}

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, robotsMaxBytes))
	if err != nil {
		g.logger.Warn("robots.txt read failed, failing open", "origin", origin, "error", err)
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		g.logger.Warn("robots.txt unusable, failing open",
			"origin", origin, "status_code", resp.StatusCode, "error", err)
		return nil
	}

	return data
}

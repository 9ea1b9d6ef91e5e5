// ABOUTME: This file builds the outbound HTTP clients for the fetch path.
// ABOUTME: Transport tuning, redirect policy and header rotation come from config.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"news-harvester/config"
)

// HTTPClientFactory creates HTTPClient implementations from configuration.
type HTTPClientFactory struct {
	config *config.Config
	logger *slog.Logger
}

// NewHTTPClientFactory creates a new HTTP client factory.
func NewHTTPClientFactory(cfg *config.Config, logger *slog.Logger) *HTTPClientFactory {
	return &HTTPClientFactory{
		config: cfg,
		logger: logger,
	}
}

// CreateArticleClient builds the client used for article page fetches, with
// pooled connections and the configured redirect policy.
func (f *HTTPClientFactory) CreateArticleClient() HTTPClient {
	transport := &http.Transport{
		MaxIdleConns:        f.config.HTTP.MaxIdleConns,
		MaxIdleConnsPerHost: f.config.HTTP.MaxIdleConnsPerHost,
		IdleConnTimeout:     f.config.HTTP.IdleConnTimeout,
		TLSHandshakeTimeout: f.config.HTTP.TLSHandshakeTimeout,
	}

	client := &http.Client{
		Transport:     transport,
		Timeout:       f.config.HTTP.Timeout,
		CheckRedirect: newRedirectPolicy(&f.config.HTTP),
	}

	return &rotatingHTTPClient{
		client:  client,
		config:  &f.config.HTTP,
		rotator: config.NewUserAgentRotator(&f.config.HTTP),
		logger:  f.logger,
	}
}

// CreateRobotsClient builds a small-footprint client for robots.txt lookups.
func (f *HTTPClientFactory) CreateRobotsClient() HTTPClient {
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        5,
			IdleConnTimeout:     30 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}

	return &rotatingHTTPClient{
		client:  client,
		config:  &f.config.HTTP,
		rotator: config.NewUserAgentRotator(&f.config.HTTP),
		logger:  f.logger,
	}
}

// newRedirectPolicy enforces the redirect cap and re-checks the target guard
// whenever a redirect leaves the original host, so a public page cannot
// bounce the fetcher into a private network.
func newRedirectPolicy(cfg *config.HTTPConfig) func(req *http.Request, via []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if !cfg.FollowRedirects {
			return http.ErrUseLastResponse
		}

		if len(via) >= cfg.MaxRedirects {
			return fmt.Errorf("stopped after %d redirects", cfg.MaxRedirects)
		}

		if req.URL.Hostname() != via[0].URL.Hostname() {
			if err := ValidateURL(req.URL.String()); err != nil {
				return fmt.Errorf("redirect to %s refused: %w", req.URL.Redacted(), err)
			}
		}

		return nil
	}
}

// rotatingHTTPClient implements HTTPClient with a fresh User-Agent and
// browser-shaped headers on every request.
type rotatingHTTPClient struct {
	client  *http.Client
	config  *config.HTTPConfig
	rotator *config.UserAgentRotator
	logger  *slog.Logger
}

// Get implements HTTPClient.
func (c *rotatingHTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	userAgent := c.rotator.GetUserAgent()
	for key, value := range c.config.GetBrowserHeaders(userAgent) {
		req.Header.Set(key, value)
	}

	start := time.Now()

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			"url", url,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		return nil, err
	}

	c.logger.Debug("request completed",
		"url", url,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"user_agent", userAgent)

	return resp, nil
}

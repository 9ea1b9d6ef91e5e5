// ABOUTME: This file health-checks candidate proxies before they enter the pool.
// ABOUTME: Each candidate must relay a HEAD request to the probe URL in time.
package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"news-harvester/config"
	"news-harvester/domain"
	"news-harvester/orchestrator"
)

// validateConcurrency bounds the health-check fan-out. Candidate lists run
// to the thousands and most entries are dead.
const validateConcurrency = 32

// Validator filters proxy candidates down to ones that demonstrably relay
// traffic.
type Validator struct {
	cfg    *config.ProxyConfig
	logger *slog.Logger
}

// NewValidator creates a proxy validator.
func NewValidator(cfg *config.ProxyConfig, logger *slog.Logger) *Validator {
	return &Validator{
		cfg:    cfg,
		logger: logger,
	}
}

// Validate probes every candidate concurrently and returns the ones that
// passed, marked active with a fresh validation timestamp.
func (v *Validator) Validate(ctx context.Context, candidates []domain.ProxyRecord) []domain.ProxyRecord {
	stage := orchestrator.Stage[domain.ProxyRecord, domain.ProxyRecord]{
		Name:        "proxy-validate",
		Concurrency: validateConcurrency,
		Process:     v.check,
	}

	results := orchestrator.RunStage(ctx, stage, candidates)

	var passed []domain.ProxyRecord

	for _, result := range results {
		if result.Err != nil {
			continue
		}

		passed = append(passed, result.Value)
	}

	v.logger.Info("proxy validation finished",
		"candidates", len(candidates),
		"passed", len(passed))

	return passed
}

func (v *Validator) check(ctx context.Context, candidate domain.ProxyRecord) (domain.ProxyRecord, error) {
	proxyURL, err := url.Parse(candidate.URL())
	if err != nil {
		return candidate, fmt.Errorf("proxy url: %w", err)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyURL(proxyURL),
		DisableKeepAlives:   true,
		TLSHandshakeTimeout: v.cfg.ValidateTimeout,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   v.cfg.ValidateTimeout,
	}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, v.cfg.ValidateURL, nil)
	if err != nil {
		return candidate, fmt.Errorf("create probe request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return candidate, fmt.Errorf("probe via %s: %w", candidate.Addr(), err)
	}

	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return candidate, fmt.Errorf("probe via %s: HTTP %d", candidate.Addr(), resp.StatusCode)
	}

	now := time.Now().UTC()
	candidate.LastValidatedAt = &now
	candidate.Active = true

	return candidate, nil
}

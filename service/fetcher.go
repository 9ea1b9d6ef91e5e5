// ABOUTME: This file fetches article pages with retry and size-capped reads.
// ABOUTME: Non-2xx statuses surface as HTTPError beside the decoded result.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"news-harvester/config"
	"news-harvester/retry"
	"news-harvester/utils/html_parser"
)

type pageFetcher struct {
	client  HTTPClient
	retrier *retry.Retrier
	config  *config.HTTPConfig
	logger  *slog.Logger
}

// NewPageFetcher builds the fetch stage of the cascade. The retrier decides
// which failures get another attempt; IsRetryableFetchError is the intended
// classifier.
func NewPageFetcher(client HTTPClient, retrier *retry.Retrier, cfg *config.HTTPConfig, logger *slog.Logger) PageFetcher {
	return &pageFetcher{
		client:  client,
		retrier: retrier,
		config:  cfg,
		logger:  logger,
	}
}

// Fetch implements PageFetcher. The returned result tracks the last attempt
// that produced an HTTP response, so when the final error unwraps to an
// HTTPError the result is the response that error describes.
func (f *pageFetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	var result *FetchResult

	err := f.retrier.Do(ctx, func() error {
		fetched, err := f.fetchOnce(ctx, rawURL)
		if fetched != nil {
			result = fetched
		}

		return err
	})
	if err != nil {
		return result, err
	}

	return result, nil
}

func (f *pageFetcher) fetchOnce(ctx context.Context, rawURL string) (*FetchResult, error) {
	resp, err := f.client.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	body, err := html_parser.DecodeToUTF8(raw, resp.Header.Get("Content-Type"))
	if err != nil {
		// An undecodable payload is still worth classifying by status.
		f.logger.Debug("charset decode failed, using raw bytes", "url", rawURL, "error", err)
		body = string(raw)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	result := &FetchResult{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		FinalURL:   finalURL,
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result, &HTTPError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	return result, nil
}

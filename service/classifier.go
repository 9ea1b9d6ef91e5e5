// ABOUTME: This file maps fetch failures and thin pages onto terminal URL statuses.
// ABOUTME: Distinguishes retryable from settled errors and applies the block-reason table.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"

	"news-harvester/domain"
)

// errorMessageLimit caps what gets persisted into the error_message column.
const errorMessageLimit = 500

// Markers scanned (lowercased) in block pages and thin bodies. The paywall
// set covers both hard 403 walls and soft walls served with a 200.
var paywallMarkers = []string{
	"subscribe",
	"subscription",
	"sign in",
	"log in",
	"already a subscriber",
	"become a member",
}

var captchaMarkers = []string{
	"captcha",
	"verify you are human",
	"are you a robot",
	"unusual traffic",
	"attention required",
}

// Response headers that identify an anti-bot layer in front of the origin.
var botHeaders = []string{"Cf-Ray", "Cf-Mitigated", "X-Amzn-Waf-Action"}

// Path fragments that mark a redirect landing on a login or subscription
// interstitial rather than the article.
var loginPathHints = []string{"login", "signin", "sign-in", "subscribe"}

// HTTPError represents a non-2xx HTTP response.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsRetryableFetchError reports whether a fetch failure is worth another
// attempt. Transient network failures, 5xx and 429 qualify; every other
// HTTP status is settled by its first response.
func IsRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}

	return false
}

// ClassifyResponse settles a URL whose final fetch attempt returned a
// non-2xx response. Rows are checked in table order, first match wins, so a
// 403 carrying both a subscribe wall and a cf-ray header counts as paywall.
func ClassifyResponse(result *FetchResult) domain.Outcome {
	status := result.StatusCode
	body := strings.ToLower(result.Body)

	switch {
	case status == http.StatusForbidden && (redirectedToLogin(result.FinalURL) || containsAny(body, paywallMarkers)):
		return domain.FailureOutcome(domain.StatusPaywallSuspected, domain.BlockPaywall,
			"HTTP 403 with login redirect or subscribe wall")

	case status == http.StatusForbidden && (hasBotHeader(result.Header) || containsAny(body, captchaMarkers)):
		return domain.FailureOutcome(domain.StatusErrorNetwork, domain.BlockBotDetection,
			"HTTP 403 with anti-bot markers")

	case status == http.StatusTooManyRequests:
		return domain.FailureOutcome(domain.StatusErrorNetwork, domain.BlockRateLimited,
			"HTTP 429 persisted through retries")

	case status == http.StatusNotFound || status == http.StatusGone:
		return domain.FailureOutcome(domain.StatusDead, domain.BlockDeleted,
			fmt.Sprintf("HTTP %d", status))

	case status >= 500:
		return domain.FailureOutcome(domain.StatusErrorNetwork, domain.BlockTransport,
			fmt.Sprintf("HTTP %d persisted through retries", status))

	default:
		return domain.FailureOutcome(domain.StatusErrorNetwork, domain.BlockTransport,
			fmt.Sprintf("HTTP %d", status))
	}
}

// ClassifyThinContent settles a 200 response whose extracted text stayed
// under the validation floor. Paywall markers in the raw body distinguish a
// soft wall from a page that simply needs JavaScript.
func ClassifyThinContent(result *FetchResult) domain.Outcome {
	if containsAny(strings.ToLower(result.Body), paywallMarkers) {
		return domain.FailureOutcome(domain.StatusPaywallSuspected, domain.BlockSoftPaywall,
			"extracted text under floor, body carries paywall markers")
	}

	return domain.FailureOutcome(domain.StatusErrorParse, domain.BlockJSRequired,
		"extracted text under floor")
}

// ClassifyFetchError settles a URL whose fetch produced no HTTP response at
// all, after retries where the failure was transient.
func ClassifyFetchError(err error) domain.Outcome {
	return domain.FailureOutcome(domain.StatusErrorNetwork, domain.BlockTransport, truncateError(err))
}

func truncateError(err error) string {
	msg := err.Error()

	runes := []rune(msg)
	if len(runes) > errorMessageLimit {
		msg = string(runes[:errorMessageLimit])
	}

	return msg
}

func containsAny(lowered string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}

	return false
}

func hasBotHeader(header http.Header) bool {
	for _, name := range botHeaders {
		if header.Get(name) != "" {
			return true
		}
	}

	return false
}

func redirectedToLogin(finalURL string) bool {
	parsed, err := url.Parse(finalURL)
	if err != nil {
		return false
	}

	path := strings.ToLower(parsed.Path)
	for _, hint := range loginPathHints {
		if strings.Contains(path, hint) {
			return true
		}
	}

	return false
}

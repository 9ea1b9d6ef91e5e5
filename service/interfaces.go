package service

import (
	"context"
	"net/http"
	"time"

	"news-harvester/domain"
)

//go:generate mockgen -source=interfaces.go -destination=../test/mocks/service_mocks.go -package=mocks

// HTTPClient issues a single GET and returns the raw response. Implementations
// own header rotation and transport tuning; status handling stays with callers.
type HTTPClient interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// PageFetcher retrieves one article page with retry and body decoding. A
// non-nil FetchResult accompanies the error whenever an HTTP response was
// obtained, so callers can classify non-2xx outcomes from status, headers
// and body together.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// BrowserFetcher renders a page in a headless browser context and returns
// the post-JavaScript HTML.
type BrowserFetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) (string, error)
}

// RobotsPolicy answers whether a URL may be fetched. Implementations cache
// per host and fail open when rules cannot be obtained.
type RobotsPolicy interface {
	Allowed(ctx context.Context, url string) bool
}

// HarvesterService runs the full extraction cascade for one claimed URL and
// reports the terminal outcome. It never writes to the store itself.
type HarvesterService interface {
	Process(ctx context.Context, record *domain.URLRecord) domain.Outcome
}

// FetchResult is a decoded HTTP response ready for extraction or
// classification.
type FetchResult struct {
	StatusCode int
	Header     http.Header

	// Body is the response body decoded to UTF-8, capped at the configured
	// byte limit.
	Body string

	// FinalURL is the URL after redirects, used to spot login bounces.
	FinalURL string
}

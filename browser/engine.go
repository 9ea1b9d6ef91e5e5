// ABOUTME: This file defines the rendering engine abstraction for browser fetches.
// ABOUTME: Pool code holds contexts only through these interfaces.
package browser

import (
	"context"
	"net/url"
)

// Engine drives a JavaScript-capable rendering backend. Implementations
// own transport details; the pool only creates and disposes contexts.
type Engine interface {
	// NewContext opens an isolated browsing session. A non-nil proxy
	// routes all of the session's traffic through it.
	NewContext(ctx context.Context, proxy *url.URL) (EngineContext, error)
}

// EngineContext is one isolated browsing session.
type EngineContext interface {
	// Navigate loads a page, waits for it to settle and returns the
	// rendered HTML.
	Navigate(ctx context.Context, url string) (string, error)

	// Close disposes the session. Safe to call after a failed Navigate.
	Close(ctx context.Context) error
}

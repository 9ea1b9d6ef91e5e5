// ABOUTME: This file defines the sentinel errors shared across the harvester.
// ABOUTME: Callers branch on these with errors.Is rather than string matching.
package domain

import "errors"

// URL handling errors.
var (
	// ErrInvalidURL marks input that cannot be parsed into an absolute
	// http(s) URL.
	ErrInvalidURL = errors.New("invalid url")

	// ErrOffAllowlist marks a URL whose host belongs to none of the
	// configured publishers.
	ErrOffAllowlist = errors.New("host not on publisher allowlist")
)

// Store errors.
var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")

	// ErrStoreClosed is returned for operations submitted after the
	// store's writer has shut down.
	ErrStoreClosed = errors.New("state store closed")
)

// Pool errors.
var (
	// ErrNoActiveProxy is returned when the proxy pool has nothing
	// healthy to hand out.
	ErrNoActiveProxy = errors.New("no active proxy available")

	// ErrPoolClosed is returned for work submitted to a pool that has
	// already shut down.
	ErrPoolClosed = errors.New("pool closed")
)

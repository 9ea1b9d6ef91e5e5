package domain

import (
	"context"
	"time"
)

// SeedRecord is one candidate produced by the upstream discovery step,
// before normalization or allowlist checks. The publish date, themes and
// tone come straight from the discovery feed and are stored untouched.
type SeedRecord struct {
	URL         string     `json:"url"`
	Source      string     `json:"source,omitempty"`
	PublishDate *time.Time `json:"publish_date,omitempty"`
	Themes      string     `json:"themes,omitempty"`
	Tone        *float64   `json:"tone,omitempty"`
}

// SeedSource streams discovery candidates one at a time. Next returns
// io.EOF once the source is exhausted; any other error aborts seeding.
type SeedSource interface {
	Next(ctx context.Context) (*SeedRecord, error)
}

package domain

import "time"

// Status is the lifecycle state of a candidate URL.
type Status string

const (
	StatusPending          Status = "pending"
	StatusProcessing       Status = "processing"
	StatusSuccess          Status = "success"
	StatusDuplicate        Status = "duplicate"
	StatusPaywallSuspected Status = "paywall_suspected"
	StatusErrorParse       Status = "error_parse"
	StatusErrorNetwork     Status = "error_network"
	StatusSkipped          Status = "skipped"
	StatusDead             Status = "dead"
)

// Terminal reports whether the status ends processing for the current run.
// Pending and processing are the only states the claim loop will pick up.
func (s Status) Terminal() bool {
	switch s {
	case StatusPending, StatusProcessing:
		return false
	default:
		return true
	}
}

// Retryable reports whether a later run may claim the URL again after a
// reset. Success, duplicate, dead and skipped stay settled forever.
func (s Status) Retryable() bool {
	switch s {
	case StatusPaywallSuspected, StatusErrorParse, StatusErrorNetwork:
		return true
	default:
		return false
	}
}

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusSuccess, StatusDuplicate,
		StatusPaywallSuspected, StatusErrorParse, StatusErrorNetwork,
		StatusSkipped, StatusDead:
		return true
	default:
		return false
	}
}

// URLRecord is one row of the acquisition work queue. NormalizedURL is the
// primary key; OriginalURL preserves the form the URL was discovered in.
type URLRecord struct {
	NormalizedURL    string     `db:"normalized_url"`
	OriginalURL      string     `db:"original_url"`
	Source           string     `db:"source"`
	Status           Status     `db:"status"`
	Attempts         int        `db:"attempts"`
	LastAttemptAt    *time.Time `db:"last_attempt_at"`
	BlockReason      string     `db:"block_reason"`
	ErrorMessage     string     `db:"error_message"`
	ExtractorUsed    string     `db:"extractor_used"`
	GDELTPublishDate *time.Time `db:"gdelt_publish_date"`
	GDELTThemes      string     `db:"gdelt_themes"`
	GDELTTone        *float64   `db:"gdelt_tone"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

// ABOUTME: This file turns discovery-feed candidates into queued work rows.
// ABOUTME: Candidates are normalized and allowlist-filtered before batched inserts.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"news-harvester/domain"
)

// seedBatchSize is how many candidates go into one insert. Discovery
// feeds run to tens of thousands of rows per day.
const seedBatchSize = 500

// SeedStore is the slice of the state store the seeder writes through.
type SeedStore interface {
	Seed(ctx context.Context, records []domain.URLRecord) (int64, error)
}

// SeedReport tallies one seeding pass.
type SeedReport struct {
	Read         int64 `json:"read"`
	Seeded       int64 `json:"seeded"`
	AlreadyKnown int64 `json:"already_known"`
	Invalid      int64 `json:"invalid"`
	OffAllowlist int64 `json:"off_allowlist"`
	NonProse     int64 `json:"non_prose"`
}

// Seeder drains a discovery source into the work queue. URLs that fail
// normalization or point at unlisted publishers never reach the store;
// section and index pages are stored already skipped so reruns do not
// re-evaluate them.
type Seeder struct {
	store  SeedStore
	logger *slog.Logger
}

// NewSeeder creates a seeder.
func NewSeeder(seedStore SeedStore, logger *slog.Logger) *Seeder {
	return &Seeder{
		store:  seedStore,
		logger: logger,
	}
}

// Seed reads the source until io.EOF and inserts the survivors in batches.
// The report covers everything read before an error, so partial progress
// stays visible when a source dies mid-stream.
func (s *Seeder) Seed(ctx context.Context, source domain.SeedSource) (*SeedReport, error) {
	report := &SeedReport{}
	batch := make([]domain.URLRecord, 0, seedBatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}

		inserted, err := s.store.Seed(ctx, batch)
		if err != nil {
			return fmt.Errorf("seed batch: %w", err)
		}

		report.Seeded += inserted
		report.AlreadyKnown += int64(len(batch)) - inserted
		batch = batch[:0]

		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		seed, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			// Persist what the source produced before dying. Reruns
			// dedupe on the normalized URL anyway.
			readErr := fmt.Errorf("read seed record: %w", err)
			if flushErr := flush(); flushErr != nil {
				return report, errors.Join(readErr, flushErr)
			}

			return report, readErr
		}

		report.Read++

		record, ok := s.evaluate(report, seed)
		if !ok {
			continue
		}

		batch = append(batch, record)

		if len(batch) >= seedBatchSize {
			if err := flush(); err != nil {
				return report, err
			}
		}
	}

	if err := flush(); err != nil {
		return report, err
	}

	s.logger.Info("seeding finished",
		"read", report.Read,
		"seeded", report.Seeded,
		"already_known", report.AlreadyKnown,
		"invalid", report.Invalid,
		"off_allowlist", report.OffAllowlist,
		"non_prose", report.NonProse)

	return report, nil
}

// evaluate builds the URL record for one candidate, counting the rejects.
// The allowlist label always comes from the host, never from whatever the
// discovery feed claimed the source was.
func (s *Seeder) evaluate(report *SeedReport, seed *domain.SeedRecord) (domain.URLRecord, bool) {
	normalized, err := domain.NormalizeURL(seed.URL)
	if err != nil {
		report.Invalid++
		s.logger.Debug("dropping unusable seed url", "url", seed.URL, "error", err)

		return domain.URLRecord{}, false
	}

	source, err := domain.SourceForURL(normalized)
	if err != nil {
		report.OffAllowlist++

		return domain.URLRecord{}, false
	}

	record := domain.URLRecord{
		NormalizedURL:    normalized,
		OriginalURL:      seed.URL,
		Source:           source,
		Status:           domain.StatusPending,
		GDELTPublishDate: seed.PublishDate,
		GDELTThemes:      seed.Themes,
		GDELTTone:        seed.Tone,
	}

	parsed, err := url.Parse(normalized)
	if err == nil && domain.IsNonProsePath(parsed.Path) {
		report.NonProse++
		record.Status = domain.StatusSkipped
		record.BlockReason = domain.BlockNonProsePath
	}

	return record, true
}

// ABOUTME: This file implements row-level operations on the urls work table.
// ABOUTME: Every write is idempotent so the single-writer store can safely re-run it.
package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"news-harvester/domain"

	"github.com/jackc/pgx/v5"
)

const urlColumns = `normalized_url, original_url, source, status, attempts,
	last_attempt_at, block_reason, error_message, extractor_used,
	gdelt_publish_date, gdelt_themes, gdelt_tone, created_at, updated_at`

// SeedURLs inserts URL records as new work. Records without an explicit
// status start out pending; the seeder sets skipped for rows it has already
// ruled out. Rows whose normalized URL exists are left untouched. Returns
// the number of new rows.
func SeedURLs(ctx context.Context, q Queryer, records []domain.URLRecord) (int64, error) {
	if q == nil {
		return 0, fmt.Errorf("database connection not initialized")
	}

	if len(records) == 0 {
		return 0, nil
	}

	valueStrings := make([]string, 0, len(records))
	valueArgs := make([]interface{}, 0, len(records)*8)

	for i, record := range records {
		status := record.Status
		if status == "" {
			status = domain.StatusPending
		}

		valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			i*8+1, i*8+2, i*8+3, i*8+4, i*8+5, i*8+6, i*8+7, i*8+8))
		valueArgs = append(valueArgs,
			record.NormalizedURL,
			record.OriginalURL,
			record.Source,
			status,
			record.BlockReason,
			record.GDELTPublishDate,
			record.GDELTThemes,
			record.GDELTTone,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO urls (normalized_url, original_url, source, status, block_reason, gdelt_publish_date, gdelt_themes, gdelt_tone)
		VALUES %s
		ON CONFLICT (normalized_url) DO NOTHING`,
		strings.Join(valueStrings, ", "))

	tag, err := q.Exec(ctx, query, valueArgs...)
	if err != nil {
		return 0, fmt.Errorf("seed urls: %w", err)
	}

	return tag.RowsAffected(), nil
}

// ClaimPendingURLs atomically moves up to limit pending rows to processing
// and returns them. Competing claimers skip locked rows, so no URL is
// handed out twice.
func ClaimPendingURLs(ctx context.Context, q Queryer, limit int) ([]domain.URLRecord, error) {
	if q == nil {
		return nil, fmt.Errorf("database connection not initialized")
	}

	query := fmt.Sprintf(`
		UPDATE urls
		SET status = 'processing', attempts = attempts + 1, last_attempt_at = now(), updated_at = now()
		WHERE normalized_url IN (
			SELECT normalized_url FROM urls
			WHERE status = 'pending'
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING %s`, urlColumns)

	rows, err := q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("claim pending urls: %w", err)
	}
	defer rows.Close()

	return scanURLRecords(rows)
}

// ResetProcessingURLs returns rows stranded in processing by a previous
// run to the pending state. Called once at startup before workers spawn.
func ResetProcessingURLs(ctx context.Context, q Queryer) (int64, error) {
	if q == nil {
		return 0, fmt.Errorf("database connection not initialized")
	}

	tag, err := q.Exec(ctx, `
		UPDATE urls
		SET status = 'pending', updated_at = now()
		WHERE status = 'processing'`)
	if err != nil {
		return 0, fmt.Errorf("reset processing urls: %w", err)
	}

	return tag.RowsAffected(), nil
}

// ResetRetryableURLs returns retryable failures with attempts still below
// the cap to the pending state for another pass.
func ResetRetryableURLs(ctx context.Context, q Queryer, maxAttempts int) (int64, error) {
	if q == nil {
		return 0, fmt.Errorf("database connection not initialized")
	}

	tag, err := q.Exec(ctx, `
		UPDATE urls
		SET status = 'pending', block_reason = '', error_message = '', updated_at = now()
		WHERE status IN ('paywall_suspected', 'error_parse', 'error_network')
		  AND attempts < $1`, maxAttempts)
	if err != nil {
		return 0, fmt.Errorf("reset retryable urls: %w", err)
	}

	return tag.RowsAffected(), nil
}

// UpdateURLStatus moves a processing row to a terminal or failure status,
// recording the observable cause, the underlying error detail and which
// extractor produced the text. Rows no longer in processing are left
// untouched, which makes re-marking after a crash replay a no-op. Returns
// whether a row changed.
func UpdateURLStatus(ctx context.Context, q Queryer, normalizedURL string, status domain.Status, blockReason, errorMessage, extractorUsed string) (bool, error) {
	if q == nil {
		return false, fmt.Errorf("database connection not initialized")
	}

	tag, err := q.Exec(ctx, `
		UPDATE urls
		SET status = $2, block_reason = $3, error_message = $4, extractor_used = $5, updated_at = now()
		WHERE normalized_url = $1 AND status = 'processing'`,
		normalizedURL, string(status), blockReason, errorMessage, extractorUsed)
	if err != nil {
		return false, fmt.Errorf("update url status: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// GetURL fetches a single URL record by its normalized form.
func GetURL(ctx context.Context, q Queryer, normalizedURL string) (*domain.URLRecord, error) {
	if q == nil {
		return nil, fmt.Errorf("database connection not initialized")
	}

	query := fmt.Sprintf(`SELECT %s FROM urls WHERE normalized_url = $1`, urlColumns)

	record, err := scanURLRecord(q.QueryRow(ctx, query, normalizedURL))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}

		return nil, fmt.Errorf("get url: %w", err)
	}

	return record, nil
}

// CountURLsByStatus reports how many URL rows sit in each status.
func CountURLsByStatus(ctx context.Context, q Queryer) (map[domain.Status]int64, error) {
	if q == nil {
		return nil, fmt.Errorf("database connection not initialized")
	}

	rows, err := q.Query(ctx, `SELECT status, count(*) FROM urls GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count urls by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Status]int64)

	for rows.Next() {
		var (
			status string
			count  int64
		)

		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}

		counts[domain.Status(status)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count urls by status: %w", err)
	}

	return counts, nil
}

// CountURLsBySourceStatus breaks the status counts down per source domain.
func CountURLsBySourceStatus(ctx context.Context, q Queryer) (map[string]map[domain.Status]int64, error) {
	if q == nil {
		return nil, fmt.Errorf("database connection not initialized")
	}

	rows, err := q.Query(ctx, `SELECT source, status, count(*) FROM urls GROUP BY source, status`)
	if err != nil {
		return nil, fmt.Errorf("count urls by source and status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]map[domain.Status]int64)

	for rows.Next() {
		var (
			source string
			status string
			count  int64
		)

		if err := rows.Scan(&source, &status, &count); err != nil {
			return nil, fmt.Errorf("scan source status count: %w", err)
		}

		if counts[source] == nil {
			counts[source] = make(map[domain.Status]int64)
		}

		counts[source][domain.Status(status)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count urls by source and status: %w", err)
	}

	return counts, nil
}

func scanURLRecords(rows pgx.Rows) ([]domain.URLRecord, error) {
	var records []domain.URLRecord

	for rows.Next() {
		var record domain.URLRecord

		if err := rows.Scan(
			&record.NormalizedURL,
			&record.OriginalURL,
			&record.Source,
			&record.Status,
			&record.Attempts,
			&record.LastAttemptAt,
			&record.BlockReason,
			&record.ErrorMessage,
			&record.ExtractorUsed,
			&record.GDELTPublishDate,
			&record.GDELTThemes,
			&record.GDELTTone,
			&record.CreatedAt,
			&record.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan url record: %w", err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read url records: %w", err)
	}

	return records, nil
}

func scanURLRecord(row pgx.Row) (*domain.URLRecord, error) {
	var record domain.URLRecord

	if err := row.Scan(
		&record.NormalizedURL,
		&record.OriginalURL,
		&record.Source,
		&record.Status,
		&record.Attempts,
		&record.LastAttemptAt,
		&record.BlockReason,
		&record.ErrorMessage,
		&record.ExtractorUsed,
		&record.GDELTPublishDate,
		&record.GDELTThemes,
		&record.GDELTTone,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return &record, nil
}

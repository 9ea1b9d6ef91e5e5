// ABOUTME: This file creates the harvester schema on startup.
// ABOUTME: All statements are idempotent so repeated runs against an existing database are safe.
package driver

import (
	"context"
	"fmt"

	logger "news-harvester/utils/logger"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS urls (
		normalized_url     TEXT PRIMARY KEY,
		original_url       TEXT NOT NULL,
		source             TEXT NOT NULL,
		status             TEXT NOT NULL DEFAULT 'pending' CHECK (status IN (
			'pending', 'processing', 'success', 'duplicate', 'paywall_suspected',
			'error_parse', 'error_network', 'skipped', 'dead')),
		attempts           INTEGER NOT NULL DEFAULT 0,
		last_attempt_at    TIMESTAMPTZ,
		block_reason       TEXT NOT NULL DEFAULT '',
		error_message      TEXT NOT NULL DEFAULT '',
		extractor_used     TEXT NOT NULL DEFAULT '',
		gdelt_publish_date TIMESTAMPTZ,
		gdelt_themes       TEXT NOT NULL DEFAULT '',
		gdelt_tone         DOUBLE PRECISION,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_urls_status ON urls (status)`,
	`CREATE INDEX IF NOT EXISTS idx_urls_source_status ON urls (source, status)`,
	`CREATE TABLE IF NOT EXISTS articles (
		id                  BIGSERIAL PRIMARY KEY,
		url                 TEXT NOT NULL UNIQUE REFERENCES urls (normalized_url),
		source              TEXT NOT NULL,
		title               TEXT NOT NULL,
		authors             TEXT NOT NULL DEFAULT '',
		publish_date        TIMESTAMPTZ,
		publish_date_source TEXT NOT NULL DEFAULT '',
		full_text           TEXT NOT NULL,
		word_count          INTEGER NOT NULL,
		extractor           TEXT NOT NULL,
		content_hash        TEXT NOT NULL,
		fetched_at          TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_source ON articles (source)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_publish_date ON articles (publish_date)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_articles_content_hash ON articles (content_hash)`,
	`CREATE TABLE IF NOT EXISTS proxies (
		id                        BIGSERIAL PRIMARY KEY,
		host                      TEXT NOT NULL,
		port                      INTEGER NOT NULL,
		protocol                  TEXT NOT NULL DEFAULT 'http' CHECK (protocol IN ('http', 'https', 'socks5')),
		last_validated_at         TIMESTAMPTZ,
		success_count             INTEGER NOT NULL DEFAULT 0,
		consecutive_failure_count INTEGER NOT NULL DEFAULT 0,
		is_active                 BOOLEAN NOT NULL DEFAULT TRUE,
		UNIQUE (host, port)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_proxies_active ON proxies (is_active)`,
}

// Migrate creates the urls, articles and proxies tables and their indexes.
func Migrate(ctx context.Context, pool Pool) error {
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			logger.Logger.Error("schema migration failed", "error", err)
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	logger.Logger.Info("schema migration complete")

	return nil
}

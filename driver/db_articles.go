// ABOUTME: This file implements row-level operations on the articles corpus table.
// ABOUTME: Inserts are keyed on the normalized URL and tolerate replays after a crash.
package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"news-harvester/domain"

	"github.com/jackc/pgx/v5"
)

// FindArticleURLByHash returns the URL of the stored article with the given
// content hash, or domain.ErrNotFound when no article matches.
func FindArticleURLByHash(ctx context.Context, q Queryer, contentHash string) (string, error) {
	if q == nil {
		return "", fmt.Errorf("database connection not initialized")
	}

	var url string

	err := q.QueryRow(ctx,
		`SELECT url FROM articles WHERE content_hash = $1 LIMIT 1`,
		contentHash).Scan(&url)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}

		return "", fmt.Errorf("find article by hash: %w", err)
	}

	return url, nil
}

// InsertArticle stores an extracted article. A replayed insert for a URL
// that already has an article is a no-op. Returns whether a row was written.
func InsertArticle(ctx context.Context, q Queryer, article *domain.ArticleRecord) (bool, error) {
	if q == nil {
		return false, fmt.Errorf("database connection not initialized")
	}

	tag, err := q.Exec(ctx, `
		INSERT INTO articles (url, source, title, authors, publish_date, publish_date_source,
			full_text, word_count, extractor, content_hash, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (url) DO NOTHING`,
		article.URL,
		article.Source,
		article.Title,
		article.Authors,
		article.PublishDate,
		article.PublishDateSource,
		article.FullText,
		article.WordCount,
		article.Extractor,
		article.ContentHash,
		article.FetchedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert article: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// CountArticles reports the total number of stored articles.
func CountArticles(ctx context.Context, q Queryer) (int64, error) {
	if q == nil {
		return 0, fmt.Errorf("database connection not initialized")
	}

	var count int64

	if err := q.QueryRow(ctx, `SELECT count(*) FROM articles`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}

	return count, nil
}

// ArticleDateRange reports the earliest and latest publish dates in the
// corpus. Both are nil while the corpus is empty or dateless.
func ArticleDateRange(ctx context.Context, q Queryer) (*time.Time, *time.Time, error) {
	if q == nil {
		return nil, nil, fmt.Errorf("database connection not initialized")
	}

	var earliest, latest *time.Time

	err := q.QueryRow(ctx,
		`SELECT min(publish_date), max(publish_date) FROM articles`,
	).Scan(&earliest, &latest)
	if err != nil {
		return nil, nil, fmt.Errorf("article date range: %w", err)
	}

	return earliest, latest, nil
}

// CountArticlesBySource reports stored article counts per publisher.
func CountArticlesBySource(ctx context.Context, q Queryer) (map[string]int64, error) {
	if q == nil {
		return nil, fmt.Errorf("database connection not initialized")
	}

	rows, err := q.Query(ctx, `SELECT source, count(*) FROM articles GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("count articles by source: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)

	for rows.Next() {
		var (
			source string
			count  int64
		)

		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("scan source count: %w", err)
		}

		counts[source] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count articles by source: %w", err)
	}

	return counts, nil
}

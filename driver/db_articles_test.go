// ABOUTME: This file tests the articles table operations against a pgxmock pool.
// ABOUTME: It covers hash lookups for duplicate detection and replay-safe inserts.
package driver

import (
	"context"
	"testing"
	"time"

	"news-harvester/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindArticleURLByHash(t *testing.T) {
	tests := map[string]struct {
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantURL   string
		wantErr   error
	}{
		"returns the owning url when the hash exists": {
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows([]string{"url"}).
					AddRow("https://apnews.com/article/original")
				mock.ExpectQuery("SELECT url FROM articles").
					WithArgs("abc123").
					WillReturnRows(rows)
			},
			wantURL: "https://apnews.com/article/original",
		},
		"unknown hash yields not found": {
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("SELECT url FROM articles").
					WithArgs("abc123").
					WillReturnRows(pgxmock.NewRows([]string{"url"}))
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tc.mockSetup(mock)

			url, err := FindArticleURLByHash(context.Background(), mock, "abc123")
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantURL, url)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestInsertArticle(t *testing.T) {
	publishDate := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	fetchedAt := time.Date(2026, 2, 11, 9, 30, 0, 0, time.UTC)

	article := &domain.ArticleRecord{
		URL:               "https://reuters.com/world/example",
		Source:            "reuters",
		Title:             "Example headline",
		Authors:           "Jane Doe",
		PublishDate:       &publishDate,
		PublishDateSource: domain.DateSourceJSONLD,
		FullText:          "Body text long enough to have been validated upstream.",
		WordCount:         9,
		Extractor:         domain.ExtractorPrimary,
		ContentHash:       "deadbeef",
		FetchedAt:         fetchedAt,
	}

	tests := map[string]struct {
		mockSetup    func(mock pgxmock.PgxPoolIface)
		wantInserted bool
	}{
		"stores a new article": {
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec("INSERT INTO articles").
					WithArgs(article.URL, article.Source, article.Title, article.Authors,
						article.PublishDate, article.PublishDateSource, article.FullText,
						article.WordCount, article.Extractor, article.ContentHash, article.FetchedAt).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
			wantInserted: true,
		},
		"replayed insert is a no-op": {
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec("INSERT INTO articles").
					WithArgs(article.URL, article.Source, article.Title, article.Authors,
						article.PublishDate, article.PublishDateSource, article.FullText,
						article.WordCount, article.Extractor, article.ContentHash, article.FetchedAt).
					WillReturnResult(pgxmock.NewResult("INSERT", 0))
			},
			wantInserted: false,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tc.mockSetup(mock)

			inserted, err := InsertArticle(context.Background(), mock, article)
			require.NoError(t, err)
			assert.Equal(t, tc.wantInserted, inserted)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCountArticlesBySource(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"source", "count"}).
		AddRow("apnews", int64(12)).
		AddRow("nytimes", int64(5))
	mock.ExpectQuery("SELECT source, count").WillReturnRows(rows)

	counts, err := CountArticlesBySource(context.Background(), mock)
	require.NoError(t, err)
	assert.Equal(t, int64(12), counts["apnews"])
	assert.Equal(t, int64(5), counts["nytimes"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Publish date provenance labels, ordered from most to least trusted.
const (
	DateSourceJSONLD    = "json-ld"
	DateSourceOpenGraph = "opengraph"
	DateSourceSecondary = "secondary-extractor"
	DateSourceUpstream  = "upstream"
)

// ArticleRecord is an extracted article ready for persistence. Exactly one
// row exists per successful URLRecord; URL repeats the normalized key so the
// articles table can be queried without a join.
type ArticleRecord struct {
	URL               string     `db:"url"`
	Source            string     `db:"source"`
	Title             string     `db:"title"`
	Authors           string     `db:"authors"`
	PublishDate       *time.Time `db:"publish_date"`
	PublishDateSource string     `db:"publish_date_source"`
	FullText          string     `db:"full_text"`
	WordCount         int        `db:"word_count"`
	Extractor         string     `db:"extractor"`
	ContentHash       string     `db:"content_hash"`
	FetchedAt         time.Time  `db:"fetched_at"`
}

// Extractor labels recorded on successful articles.
const (
	ExtractorPrimary        = "primary"
	ExtractorSecondary      = "secondary"
	ExtractorBrowserPrimary = "browser+primary"
)

// ContentHash returns the duplicate-detection key for article body text:
// a hex SHA-256 over the text lowercased and with all whitespace runs
// collapsed to single spaces. Two scrapes of the same piece that differ
// only in formatting hash identically.
func ContentHash(text string) string {
	canonical := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// WordCount counts whitespace-separated tokens in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// JoinAuthors flattens extracted author names into the stored form.
// Empty names are dropped.
func JoinAuthors(names []string) string {
	kept := make([]string, 0, len(names))

	for _, name := range names {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}

	return strings.Join(kept, "; ")
}

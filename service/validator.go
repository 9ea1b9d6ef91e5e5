// ABOUTME: This file validates extracted body text and resolves publish dates.
// ABOUTME: Dates follow a trust cascade with divergence flagged against upstream.
package service

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"news-harvester/domain"
	"news-harvester/utils/html_parser"
)

// ErrTextTooShort marks candidate text that failed the final length floor.
var ErrTextTooShort = errors.New("extracted text below minimum length")

// ValidatedText is body text that passed validation, with its derived
// fields.
type ValidatedText struct {
	Text      string
	WordCount int
	Hash      string
}

// ValidateText normalizes candidate body text and enforces the length
// floor, counted in runes so non-Latin scripts are not penalized.
func ValidateText(text string, minLength int) (*ValidatedText, error) {
	normalized := html_parser.NormalizeText(text)

	if n := utf8.RuneCountInString(normalized); n < minLength {
		return nil, fmt.Errorf("%w: %d of %d chars", ErrTextTooShort, n, minLength)
	}

	return &ValidatedText{
		Text:      normalized,
		WordCount: domain.WordCount(normalized),
		Hash:      domain.ContentHash(normalized),
	}, nil
}

// ResolvePublishDate picks the publish date by provenance trust: JSON-LD,
// then OpenGraph, then the secondary extractor's guess, with the upstream
// date as last resort. When an extracted date wins and sits more than
// maxSkew from a provided upstream date, the divergence flag is raised; the
// upstream date itself never diverges from anything.
func ResolvePublishDate(jsonld, og, secondary, upstream *time.Time, maxSkew time.Duration) (*time.Time, string, bool) {
	candidates := []struct {
		date   *time.Time
		source string
	}{
		{jsonld, domain.DateSourceJSONLD},
		{og, domain.DateSourceOpenGraph},
		{secondary, domain.DateSourceSecondary},
	}

	for _, c := range candidates {
		if c.date == nil {
			continue
		}

		divergent := upstream != nil && absDuration(c.date.Sub(*upstream)) > maxSkew

		return c.date, c.source, divergent
	}

	if upstream != nil {
		return upstream, domain.DateSourceUpstream, false
	}

	return nil, "", false
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}

	return d
}

// ABOUTME: This file pulls structured metadata out of article HTML.
// ABOUTME: JSON-LD is trusted first for dates, OpenGraph first for titles.
package service

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
)

// PageMetadata carries what the metadata pass recovered. Absent fields stay
// zero valued; the caller decides fallbacks.
type PageMetadata struct {
	Title      string
	Authors    []string
	JSONLDDate *time.Time
	OGDate     *time.Time
}

// ExtractMetadata reads JSON-LD blocks, OpenGraph tags and title elements
// from article HTML. Title preference is og:title, JSON-LD headline, the
// title tag, then the first h1.
func ExtractMetadata(htmlStr string) *PageMetadata {
	meta := &PageMetadata{}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return meta
	}

	var jsonldTitle string

	doc.Find("script[type='application/ld+json']").Each(func(_ int, s *goquery.Selection) {
		var node any
		if err := json.Unmarshal([]byte(s.Text()), &node); err != nil {
			return
		}

		walkJSONLD(node, meta, &jsonldTitle)
	})

	if raw, ok := doc.Find("meta[property='article:published_time']").First().Attr("content"); ok {
		meta.OGDate = parseDate(raw)
	}

	ogTitle, _ := doc.Find("meta[property='og:title']").First().Attr("content")
	titleTag := doc.Find("title").First().Text()
	h1 := doc.Find("h1").First().Text()

	for _, candidate := range []string{ogTitle, jsonldTitle, titleTag, h1} {
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			meta.Title = candidate
			break
		}
	}

	return meta
}

// walkJSONLD recurses through arrays and @graph wrappers looking for
// Article-typed nodes carrying datePublished, headline or author. The first
// value found for each field wins.
func walkJSONLD(node any, meta *PageMetadata, title *string) {
	switch v := node.(type) {
	case []any:
		for _, item := range v {
			walkJSONLD(item, meta, title)
		}

	case map[string]any:
		if graph, ok := v["@graph"]; ok {
			walkJSONLD(graph, meta, title)
		}

		if !isArticleNode(v) {
			return
		}

		if meta.JSONLDDate == nil {
			if raw, ok := v["datePublished"].(string); ok {
				meta.JSONLDDate = parseDate(raw)
			}
		}

		if *title == "" {
			if headline, ok := v["headline"].(string); ok {
				*title = strings.TrimSpace(headline)
			}
		}

		if len(meta.Authors) == 0 {
			meta.Authors = collectAuthors(v["author"])
		}
	}
}

// isArticleNode matches Article and its subtypes (NewsArticle,
// ReportageNewsArticle) while ignoring WebPage, Organization and the other
// node types publishers bundle into the same script block.
func isArticleNode(node map[string]any) bool {
	switch t := node["@type"].(type) {
	case string:
		return strings.Contains(t, "Article")
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.Contains(s, "Article") {
				return true
			}
		}
	}

	return false
}

// collectAuthors flattens the author shapes seen in the wild: a bare string,
// a Person object, or an array mixing both.
func collectAuthors(node any) []string {
	switch v := node.(type) {
	case string:
		if name := strings.TrimSpace(v); name != "" {
			return []string{name}
		}

	case map[string]any:
		if name, ok := v["name"].(string); ok {
			if name = strings.TrimSpace(name); name != "" {
				return []string{name}
			}
		}

	case []any:
		var names []string
		for _, item := range v {
			names = append(names, collectAuthors(item)...)
		}

		return names
	}

	return nil
}

// parseDate tolerates the timestamp shapes publishers actually emit and
// returns nil rather than an error for garbage.
func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return nil
	}

	utc := t.UTC()

	return &utc
}

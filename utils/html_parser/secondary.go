package html_parser

import (
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

// SecondaryResult carries what the recall-oriented extractor recovered.
// PublishedAt and Byline are best guesses and may be empty.
type SecondaryResult struct {
	Title       string
	Byline      string
	Text        string
	PublishedAt *time.Time
}

// ExtractSecondary runs the recall extractor over the same HTML the
// precision pass saw. It trades cleanliness for coverage; when even it
// finds nothing, a raw paragraph walk is the last resort.
func ExtractSecondary(raw, pageURL string) *SecondaryResult {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return &SecondaryResult{}
	}

	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Host == "" {
		// The extractor only uses the URL to absolutize links, so any
		// well-formed base works when the page URL is unusable.
		parsed, _ = url.Parse("https://localhost/")
	}

	article, err := readability.FromReader(strings.NewReader(trimmed), parsed)
	if err == nil {
		text := strings.TrimSpace(article.TextContent)
		if text != "" {
			result := &SecondaryResult{
				Title:       strings.TrimSpace(article.Title),
				Byline:      strings.TrimSpace(article.Byline),
				Text:        paragraphsOrFlat(article.Content, text),
				PublishedAt: article.PublishedTime,
			}

			return result
		}
	}

	return &SecondaryResult{Text: ExtractParagraphs(trimmed)}
}

// paragraphsOrFlat renders extracted content HTML as paragraphs, falling
// back to the flat text when the HTML yields nothing.
func paragraphsOrFlat(contentHTML, flat string) string {
	if contentHTML != "" {
		if paragraphs := ExtractParagraphs(contentHTML); paragraphs != "" {
			return paragraphs
		}
	}

	return normalizeWhitespace(flat)
}

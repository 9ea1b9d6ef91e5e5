package html_parser

import (
	"encoding/json"
	"strings"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// ExtractPrimary runs the precision extractor over raw article HTML and
// returns plain text paragraphs separated by blank lines. An empty result
// means the strategy found no usable body; length judgment is left to the
// caller.
func ExtractPrimary(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	// Short-circuit if the payload is already plain text.
	if !strings.Contains(trimmed, "<") {
		return normalizeWhitespace(trimmed)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(trimmed))
	if err == nil {
		// Next.js sites often carry the full article body in the
		// __NEXT_DATA__ JSON blob. That beats any DOM heuristic.
		if text, ok := extractNextData(doc); ok {
			return text
		}

		if cleaned := cleanDocument(doc); cleaned != "" {
			trimmed = cleaned
		}
	}

	article, err := readability.FromReader(strings.NewReader(trimmed), nil)
	if err != nil {
		return ""
	}

	var textBuf strings.Builder
	if err := article.RenderText(&textBuf); err != nil {
		return ""
	}

	text := strings.TrimSpace(textBuf.String())
	if text == "" {
		return ""
	}

	// Prefer the extractor's cleaned HTML so paragraph boundaries survive,
	// then fall back to its flat text rendering.
	var htmlBuf strings.Builder
	if err := article.RenderHTML(&htmlBuf); err == nil {
		if html := strings.TrimSpace(htmlBuf.String()); html != "" {
			if paragraphs := ExtractParagraphs(html); paragraphs != "" {
				return paragraphs
			}
		}
	}

	return normalizeWhitespace(text)
}

// extractNextData pulls the article body out of a Next.js __NEXT_DATA__
// script when present. Traverses props -> pageProps -> article -> bodyHtml.
func extractNextData(doc *goquery.Document) (string, bool) {
	nextData := doc.Find("script[id='__NEXT_DATA__']")
	if nextData.Length() == 0 {
		return "", false
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(nextData.Text()), &data); err != nil {
		return "", false
	}

	props, ok := data["props"].(map[string]interface{})
	if !ok {
		return "", false
	}

	pageProps, ok := props["pageProps"].(map[string]interface{})
	if !ok {
		return "", false
	}

	articleData, ok := pageProps["article"].(map[string]interface{})
	if !ok {
		return "", false
	}

	bodyHTML, ok := articleData["bodyHtml"].(string)
	if !ok || bodyHTML == "" {
		return "", false
	}

	text := ExtractParagraphs(bodyHTML)
	if text == "" {
		return "", false
	}

	if title, _ := articleData["title"].(string); title != "" {
		return title + "\n\n" + text, true
	}

	return text, true
}

// cleanDocument strips non-content elements in place and returns the
// remaining HTML. Navigation, media embeds, social widgets, comment
// sections and inline event handlers all go.
func cleanDocument(doc *goquery.Document) string {
	doc.Find("head, script, style, noscript, title, aside, nav, header, footer").Remove()

	doc.Find("iframe, embed, object, video, audio, canvas").Remove()

	doc.Find("[class*='social'], [class*='share'], [class*='twitter'], [class*='facebook'], [class*='instagram'], [class*='linkedin']").Remove()
	doc.Find("[id*='social'], [id*='share'], [id*='twitter'], [id*='facebook']").Remove()

	doc.Find("[class*='comment'], [id*='comment'], [class*='discussion'], [id*='discussion']").Remove()

	doc.Find("meta, link[rel='stylesheet'], link[rel='preload'], link[rel='prefetch'], link[rel='dns-prefetch']").Remove()

	doc.Find("*").Each(func(i int, s *goquery.Selection) {
		s.RemoveAttr("style")
		s.RemoveAttr("onclick")
		s.RemoveAttr("onload")
		s.RemoveAttr("onerror")
		s.RemoveAttr("onmouseover")
		s.RemoveAttr("onmouseout")
		s.RemoveAttr("onfocus")
		s.RemoveAttr("onblur")
		s.RemoveAttr("onchange")
		s.RemoveAttr("onsubmit")
	})

	cleaned, _ := doc.Html()

	return cleaned
}

// ExtractParagraphs extracts text from HTML while preserving paragraph
// structure. Paragraphs are separated by double newlines. It extracts
// paragraphs, headers, code blocks, and list items.
func ExtractParagraphs(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return normalizeWhitespace(StripTags(html))
	}

	var paragraphs []string

	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	doc.Find("p").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	doc.Find("pre code, pre").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	doc.Find("li").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	// No structured content found. Try the big block elements, keeping
	// only ones with meaningful text.
	if len(paragraphs) == 0 {
		doc.Find("div, article, section").Each(func(i int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if text != "" && len(text) > 10 {
				paragraphs = append(paragraphs, text)
			}
		})
	}

	if len(paragraphs) == 0 {
		p := bluemonday.StrictPolicy()
		return normalizeWhitespace(p.Sanitize(html))
	}

	return strings.Join(paragraphs, "\n\n")
}

// StripTags removes HTML tags from a string and returns plain text.
// It uses bluemonday's strict policy which strips all tags.
func StripTags(raw string) string {
	p := bluemonday.StrictPolicy()
	return normalizeWhitespace(p.Sanitize(raw))
}

// normalizeWhitespace collapses whitespace runs to single spaces while
// preserving paragraph breaks already expressed as double newlines.
func normalizeWhitespace(s string) string {
	var paragraphs []string

	for _, block := range strings.Split(s, "\n\n") {
		fields := strings.Fields(block)
		if len(fields) > 0 {
			paragraphs = append(paragraphs, strings.Join(fields, " "))
		}
	}

	return strings.Join(paragraphs, "\n\n")
}

// ExtractTitle extracts the article title from HTML content.
// Priority order: <title> tag, og:title meta tag, first <h1> tag.
// Returns empty string if no title found.
func ExtractTitle(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(trimmed))
	if err != nil {
		return ""
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title != "" {
		return title
	}

	ogTitle, exists := doc.Find("meta[property='og:title']").First().Attr("content")
	if exists && strings.TrimSpace(ogTitle) != "" {
		return strings.TrimSpace(ogTitle)
	}

	h1Title := strings.TrimSpace(doc.Find("h1").First().Text())
	if h1Title != "" {
		return h1Title
	}

	return ""
}

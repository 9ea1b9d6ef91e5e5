package html_parser

import (
	"strings"
	"testing"
)

func TestExtractPrimary_PlainText(t *testing.T) {
	input := "This is plain text without any HTML tags."
	result := ExtractPrimary(input)
	if result != input {
		t.Errorf("Expected plain text to be returned as-is, got: %s", result)
	}
}

func TestExtractPrimary_EmptyString(t *testing.T) {
	result := ExtractPrimary("")
	if result != "" {
		t.Errorf("Expected empty string, got: %s", result)
	}
}

func TestExtractPrimary_NextJSData(t *testing.T) {
	input := `<html><body><script id="__NEXT_DATA__">{"props":{"pageProps":{"article":{"title":"Test Article","bodyHtml":"<p>Article body content</p>"}}}}</script><p>Fallback content</p></body></html>`
	result := ExtractPrimary(input)
	if !strings.Contains(result, "Test Article") {
		t.Errorf("Expected Next.js title in output, got: %s", result)
	}
	if !strings.Contains(result, "Article body content") {
		t.Errorf("Expected Next.js body in output, got: %s", result)
	}
}

func TestExtractPrimary_ReadabilityBody(t *testing.T) {
	bodyContent := strings.Repeat("Important content that must be extracted. ", 20)
	input := `<html>
		<head><title>Short Title</title><script>alert('test');</script></head>
		<body>
			<h1>Short Title</h1>
			<div class="social-share">Share buttons</div>
			<div class="comments">Comment section</div>
			<div class="content">
				<p>` + bodyContent + `</p>
			</div>
		</body>
	</html>`

	result := ExtractPrimary(input)

	if !strings.Contains(result, "Important content") {
		t.Errorf("Expected result to contain body content. Result start: %s...", result[:min(len(result), 50)])
	}
	if strings.Contains(result, "alert") {
		t.Errorf("Script content should be removed, got: %s", result)
	}
	if strings.Contains(result, "Share buttons") {
		t.Errorf("Social media elements should be removed, got: %s", result)
	}
	if strings.Contains(result, "Comment section") {
		t.Errorf("Comment sections should be removed, got: %s", result)
	}
	if len(result) < 100 {
		t.Errorf("Result too short: %d chars. Expected > 100.", len(result))
	}
}

func TestExtractParagraphs_SimpleHTML(t *testing.T) {
	input := "<html><body><p>This is a paragraph.</p><p>This is another paragraph.</p></body></html>"
	result := ExtractParagraphs(input)
	if !strings.Contains(result, "This is a paragraph") {
		t.Errorf("Expected to extract paragraph text, got: %s", result)
	}
	if !strings.Contains(result, "This is another paragraph") {
		t.Errorf("Expected to extract second paragraph text, got: %s", result)
	}
}

func TestExtractParagraphs_WithHeaders(t *testing.T) {
	input := "<html><body><h1>Main Title</h1><p>Paragraph text.</p><h2>Subtitle</h2></body></html>"
	result := ExtractParagraphs(input)
	if !strings.Contains(result, "Main Title") {
		t.Errorf("Expected to extract h1 text, got: %s", result)
	}
	if !strings.Contains(result, "Subtitle") {
		t.Errorf("Expected to extract h2 text, got: %s", result)
	}
	if !strings.Contains(result, "Paragraph text") {
		t.Errorf("Expected to extract paragraph text, got: %s", result)
	}
}

func TestExtractParagraphs_WithListItems(t *testing.T) {
	input := "<html><body><ul><li>First item</li><li>Second item</li></ul></body></html>"
	result := ExtractParagraphs(input)
	if !strings.Contains(result, "First item") {
		t.Errorf("Expected to extract first list item, got: %s", result)
	}
	if !strings.Contains(result, "Second item") {
		t.Errorf("Expected to extract second list item, got: %s", result)
	}
}

func TestStripTags_SimpleHTML(t *testing.T) {
	input := "<p>This is a <strong>test</strong> paragraph.</p>"
	result := StripTags(input)
	expected := "This is a test paragraph."
	if strings.TrimSpace(result) != expected {
		t.Errorf("Expected '%s', got '%s'", expected, result)
	}
}

func TestStripTags_WithScript(t *testing.T) {
	input := "<p>Content</p><script>alert('test');</script><p>More content</p>"
	result := StripTags(input)
	if strings.Contains(result, "alert") {
		t.Errorf("Script content should be removed, got: %s", result)
	}
	if !strings.Contains(result, "Content") {
		t.Errorf("Expected to keep paragraph content, got: %s", result)
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	input := "This   has    multiple     spaces"
	result := normalizeWhitespace(input)
	expected := "This has multiple spaces"
	if result != expected {
		t.Errorf("Expected '%s', got '%s'", expected, result)
	}
}

func TestExtractTitle_FromTitleTag(t *testing.T) {
	input := "<html><head><title>Test Title</title></head><body></body></html>"
	result := ExtractTitle(input)
	if result != "Test Title" {
		t.Errorf("Expected 'Test Title', got '%s'", result)
	}
}

func TestExtractTitle_FromOGTag(t *testing.T) {
	input := `<html><head><meta property="og:title" content="OG Title"></head><body></body></html>`
	result := ExtractTitle(input)
	if result != "OG Title" {
		t.Errorf("Expected 'OG Title', got '%s'", result)
	}
}

func TestExtractTitle_FromH1(t *testing.T) {
	input := "<html><body><h1>H1 Title</h1></body></html>"
	result := ExtractTitle(input)
	if result != "H1 Title" {
		t.Errorf("Expected 'H1 Title', got '%s'", result)
	}
}

func TestExtractTitle_NoTitle(t *testing.T) {
	input := "<html><body><p>No title here</p></body></html>"
	result := ExtractTitle(input)
	if result != "" {
		t.Errorf("Expected empty string, got '%s'", result)
	}
}

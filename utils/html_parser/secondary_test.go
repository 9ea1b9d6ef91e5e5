package html_parser

import (
	"strings"
	"testing"
)

func TestExtractSecondary_Article(t *testing.T) {
	bodyContent := strings.Repeat("Recall extraction should recover this sentence. ", 15)
	input := `<html>
		<head><title>Secondary Title</title></head>
		<body>
			<article>
				<h1>Secondary Title</h1>
				<p>` + bodyContent + `</p>
			</article>
		</body>
	</html>`

	result := ExtractSecondary(input, "https://apnews.com/article/example")
	if !strings.Contains(result.Text, "Recall extraction should recover") {
		t.Errorf("Expected body content in result, got: %s", result.Text)
	}
	if result.Title == "" {
		t.Errorf("Expected a title, got empty string")
	}
}

func TestExtractSecondary_EmptyInput(t *testing.T) {
	result := ExtractSecondary("", "https://apnews.com/article/example")
	if result.Text != "" {
		t.Errorf("Expected empty text for empty input, got: %s", result.Text)
	}
}

func TestExtractSecondary_ParagraphFallback(t *testing.T) {
	// Too little structure for readability, enough for the paragraph walk.
	input := "<div>A bare fragment with no article markup at all.</div>"
	result := ExtractSecondary(input, "not a url ::")
	if result.Text == "" {
		t.Errorf("Expected fallback paragraph extraction to produce text")
	}
	if !strings.Contains(result.Text, "bare fragment") {
		t.Errorf("Expected fragment text in result, got: %s", result.Text)
	}
}

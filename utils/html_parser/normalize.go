package html_parser

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/unicode/norm"
)

// DecodeToUTF8 converts a fetched response body to UTF-8, inferring the
// source encoding from the Content-Type header, a byte-order mark, or a
// meta tag in the first bytes of the document.
func DecodeToUTF8(body []byte, contentType string) (string, error) {
	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return "", fmt.Errorf("infer charset: %w", err)
	}

	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("decode body: %w", err)
	}

	return string(decoded), nil
}

// NormalizeText prepares extracted body text for validation and hashing.
// HTML entities are unescaped and null bytes dropped, then the result is
// NFC normalized so composed and decomposed forms hash identically.
func NormalizeText(text string) string {
	unescaped := html.UnescapeString(text)
	cleaned := strings.ReplaceAll(unescaped, "\x00", "")
	cleaned = strings.ToValidUTF8(cleaned, "")

	return strings.TrimSpace(norm.NFC.String(cleaned))
}

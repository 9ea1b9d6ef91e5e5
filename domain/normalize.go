package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// sourceByDomain maps the allowlisted registrable domains to the short
// source labels recorded on every row.
var sourceByDomain = map[string]string{
	"apnews.com":         "apnews",
	"nytimes.com":        "nytimes",
	"reuters.com":        "reuters",
	"washingtonpost.com": "washingtonpost",
	"wsj.com":            "wsj",
}

// Query parameters stripped during normalization. utm_* is handled as a
// prefix; the rest are exact keys.
var trackingParams = map[string]bool{
	"ref":    true,
	"s":      true,
	"ncid":   true,
	"fbclid": true,
	"mc_cid": true,
}

// nonProseSegments are path segments that mark video, audio and other
// non-article content worth skipping before any network traffic.
var nonProseSegments = map[string]bool{
	"video":       true,
	"podcast":     true,
	"interactive": true,
	"live":        true,
	"slideshow":   true,
	"graphic":     true,
}

// NormalizeURL canonicalizes a discovered URL into the form used as the
// store's primary key. The transform is idempotent: scheme forced to https,
// host lowercased with default ports dropped, fragment removed, tracking
// parameters stripped, AMP variants collapsed and the trailing slash
// trimmed. Surviving query parameters are re-encoded in sorted key order.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	u.Scheme = "https"
	u.Host = canonicalHost(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.User = nil

	path := u.EscapedPath()
	path = strings.TrimSuffix(path, "/")
	if strings.HasSuffix(path, "/amp") {
		path = strings.TrimSuffix(path, "/amp")
	}
	// Bare hosts keep a root slash so example.com and example.com/ share
	// one key.
	if path == "" {
		path = "/"
	}
	u.RawPath = ""
	u.Path = path

	if u.RawQuery != "" {
		values := u.Query()
		for key := range values {
			if strings.HasPrefix(key, "utm_") || trackingParams[key] || key == "amp" {
				values.Del(key)
			}
		}
		u.RawQuery = values.Encode()
	}

	return u.String(), nil
}

func canonicalHost(host string) string {
	host = strings.ToLower(host)
	host = strings.TrimSuffix(host, ":443")
	host = strings.TrimSuffix(host, ":80")
	return host
}

// SourceForURL resolves the source label for a URL, enforcing the publisher
// allowlist. Off-list hosts return ErrOffAllowlist.
func SourceForURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return SourceForHost(u.Host)
}

// SourceForHost maps a host to its allowlisted source label. Subdomains of
// an allowlisted domain match their parent.
func SourceForHost(host string) (string, error) {
	host = canonicalHost(host)
	for domain, source := range sourceByDomain {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return source, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrOffAllowlist, host)
}

// PublisherDomain returns the registrable domain used to key per-publisher
// rate limits. Allowlisted hosts map to their allowlist entry; anything
// else falls back to the last two host labels.
func PublisherDomain(host string) string {
	host = canonicalHost(host)
	for domain := range sourceByDomain {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return domain
		}
	}
	parts := strings.Split(host, ".")
	if len(parts) <= 2 {
		return host
	}
	return strings.Join(parts[len(parts)-2:], ".")
}

// IsNonProsePath reports whether a URL path contains a segment that marks
// non-article content such as video or podcast pages. Matching is by whole
// segment, so /live-updates/ is still prose while /live/ is not.
func IsNonProsePath(path string) bool {
	for _, segment := range strings.Split(path, "/") {
		if nonProseSegments[segment] {
			return true
		}
	}
	return false
}

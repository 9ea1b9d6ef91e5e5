// ABOUTME: This file loads candidate proxies from configured list sources.
// ABOUTME: Sources are newline-delimited host:port lists served locally or over HTTP.
package proxy

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"news-harvester/domain"
)

// listMaxBytes caps one proxy list read. Public lists occasionally serve
// junk far larger than any plausible proxy inventory.
const listMaxBytes = 4 << 20

var allowedProtocols = map[string]bool{
	"http":   true,
	"https":  true,
	"socks5": true,
}

// Loader turns configured proxy list sources into candidate records.
// Entries that fail to parse are dropped, not fatal; a source that cannot
// be read only costs its own entries.
type Loader struct {
	client *http.Client
	logger *slog.Logger
}

// NewLoader creates a proxy list loader with its own HTTP client.
func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// Load reads every source and returns the deduplicated candidates.
func (l *Loader) Load(ctx context.Context, sources []string) []domain.ProxyRecord {
	seen := make(map[string]bool)

	var candidates []domain.ProxyRecord

	for _, source := range sources {
		records, err := l.loadSource(ctx, source)
		if err != nil {
			l.logger.Warn("proxy source unreadable", "source", source, "error", err)
			continue
		}

		added := 0

		for _, record := range records {
			if seen[record.Addr()] {
				continue
			}

			seen[record.Addr()] = true
			candidates = append(candidates, record)
			added++
		}

		l.logger.Info("proxy source loaded", "source", source, "candidates", added)
	}

	return candidates
}

func (l *Loader) loadSource(ctx context.Context, source string) ([]domain.ProxyRecord, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return l.loadURL(ctx, source)
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open proxy list: %w", err)
	}

	defer func() { _ = f.Close() }()

	return l.parseList(f, source)
}

func (l *Loader) loadURL(ctx context.Context, source string) ([]domain.ProxyRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch proxy list: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch proxy list: HTTP %d", resp.StatusCode)
	}

	return l.parseList(io.LimitReader(resp.Body, listMaxBytes), source)
}

func (l *Loader) parseList(r io.Reader, source string) ([]domain.ProxyRecord, error) {
	var records []domain.ProxyRecord

	skipped := 0
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		record, err := parseProxyLine(line)
		if err != nil {
			skipped++
			continue
		}

		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read proxy list: %w", err)
	}

	if skipped > 0 {
		l.logger.Debug("proxy list entries skipped", "source", source, "skipped", skipped)
	}

	return records, nil
}

// parseProxyLine accepts host:port and scheme://host:port entries.
func parseProxyLine(line string) (domain.ProxyRecord, error) {
	protocol := domain.DefaultProxyProtocol
	hostPort := line

	if strings.Contains(line, "://") {
		parsed, err := url.Parse(line)
		if err != nil {
			return domain.ProxyRecord{}, fmt.Errorf("parse proxy entry: %w", err)
		}

		if !allowedProtocols[parsed.Scheme] {
			return domain.ProxyRecord{}, fmt.Errorf("unsupported proxy protocol %q", parsed.Scheme)
		}

		protocol = parsed.Scheme
		hostPort = parsed.Host
	}

	host, portStr, err := net.SplitHostPort(hostPort)
	if err != nil {
		return domain.ProxyRecord{}, fmt.Errorf("parse proxy entry: %w", err)
	}

	if host == "" {
		return domain.ProxyRecord{}, fmt.Errorf("proxy entry %q has no host", line)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return domain.ProxyRecord{}, fmt.Errorf("invalid proxy port %q", portStr)
	}

	return domain.ProxyRecord{
		Host:     host,
		Port:     port,
		Protocol: protocol,
	}, nil
}

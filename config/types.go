// ABOUTME: This file defines the harvester configuration blocks with env/default tags
// ABOUTME: Covers server, HTTP, retry, rate limit, extract, browser, proxy, and DLQ settings
package config

import (
	"strings"
	"time"
)

// Config aggregates all harvester configuration blocks.
type Config struct {
	Server    ServerConfig    `json:"server"`
	HTTP      HTTPConfig      `json:"http"`
	Retry     RetryConfig     `json:"retry"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Extract   ExtractConfig   `json:"extract"`
	Browser   BrowserConfig   `json:"browser"`
	Proxy     ProxyConfig     `json:"proxy"`
	Harvest   HarvestConfig   `json:"harvest"`
	DLQ       DLQConfig       `json:"dlq"`
}

type ServerConfig struct {
	Port            int           `json:"port" env:"SERVER_PORT" default:"9200"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	ReadTimeout     time.Duration `json:"read_timeout" env:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `json:"write_timeout" env:"SERVER_WRITE_TIMEOUT" default:"30s"`
}

type HTTPConfig struct {
	Timeout             time.Duration `json:"timeout" env:"HTTP_TIMEOUT" default:"15s"`
	MaxIdleConns        int           `json:"max_idle_conns" env:"HTTP_MAX_IDLE_CONNS" default:"40"`
	MaxIdleConnsPerHost int           `json:"max_idle_conns_per_host" env:"HTTP_MAX_IDLE_CONNS_PER_HOST" default:"4"`
	IdleConnTimeout     time.Duration `json:"idle_conn_timeout" env:"HTTP_IDLE_CONN_TIMEOUT" default:"90s"`
	TLSHandshakeTimeout time.Duration `json:"tls_handshake_timeout" env:"HTTP_TLS_HANDSHAKE_TIMEOUT" default:"10s"`
	UserAgent           string        `json:"user_agent" env:"HTTP_USER_AGENT"`
	// User-Agent rotation configuration
	UserAgentRotation bool     `json:"user_agent_rotation" env:"HTTP_USER_AGENT_ROTATION" default:"true"`
	UserAgents        []string `json:"user_agents" env:"HTTP_USER_AGENTS"`
	// Request headers configuration
	EnableBrowserHeaders bool `json:"enable_browser_headers" env:"HTTP_ENABLE_BROWSER_HEADERS" default:"true"`
	// Redirect handling configuration
	MaxRedirects    int  `json:"max_redirects" env:"HTTP_MAX_REDIRECTS" default:"5"`
	FollowRedirects bool `json:"follow_redirects" env:"HTTP_FOLLOW_REDIRECTS" default:"true"`
	// Response body cap in bytes
	MaxBodyBytes int64 `json:"max_body_bytes" env:"HTTP_MAX_BODY_BYTES" default:"8388608"`
}

type RetryConfig struct {
	MaxAttempts   int           `json:"max_attempts" env:"RETRY_MAX_ATTEMPTS" default:"3"`
	BaseDelay     time.Duration `json:"base_delay" env:"RETRY_BASE_DELAY" default:"1s"`
	MaxDelay      time.Duration `json:"max_delay" env:"RETRY_MAX_DELAY" default:"30s"`
	BackoffFactor float64       `json:"backoff_factor" env:"RETRY_BACKOFF_FACTOR" default:"2.0"`
	JitterMax     time.Duration `json:"jitter_max" env:"RETRY_JITTER_MAX" default:"1s"`
}

type RateLimitConfig struct {
	DefaultDelay time.Duration            `json:"default_delay" env:"RATE_LIMIT_DEFAULT_DELAY" default:"3s"`
	DomainDelays map[string]time.Duration `json:"domain_delays" env:"RATE_LIMIT_DOMAIN_DELAYS"`
}

// DelayFor resolves the minimum inter-request delay for a publisher domain.
func (cfg *RateLimitConfig) DelayFor(domain string) time.Duration {
	if delay, ok := cfg.DomainDelays[domain]; ok {
		return delay
	}
	return cfg.DefaultDelay
}

type ExtractConfig struct {
	MinTextLength      int           `json:"min_text_length" env:"EXTRACT_MIN_TEXT_LENGTH" default:"300"`
	StageMinTextLength int           `json:"stage_min_text_length" env:"EXTRACT_STAGE_MIN_TEXT_LENGTH" default:"150"`
	PaywallDomains     []string      `json:"paywall_domains" env:"EXTRACT_PAYWALL_DOMAINS"`
	MaxDateSkew        time.Duration `json:"max_date_skew" env:"EXTRACT_MAX_DATE_SKEW" default:"168h"`
	RespectRobots      bool          `json:"respect_robots" env:"EXTRACT_RESPECT_ROBOTS" default:"false"`
}

// IsPaywallDomain reports whether a publisher domain routes straight to the
// browser stage on short plain-fetch results.
func (cfg *ExtractConfig) IsPaywallDomain(domain string) bool {
	for _, d := range cfg.PaywallDomains {
		if d == domain {
			return true
		}
	}
	return false
}

type BrowserConfig struct {
	Enabled       bool          `json:"enabled" env:"BROWSER_ENABLED" default:"true"`
	RendererURL   string        `json:"renderer_url" env:"BROWSER_RENDERER_URL" default:"http://localhost:3000"`
	PoolSize      int           `json:"pool_size" env:"BROWSER_POOL_SIZE" default:"3"`
	NavTimeout    time.Duration `json:"nav_timeout" env:"BROWSER_NAV_TIMEOUT" default:"30s"`
	QueueCapacity int           `json:"queue_capacity" env:"BROWSER_QUEUE_CAPACITY" default:"64"`
}

type ProxyConfig struct {
	Sources          []string      `json:"sources" env:"PROXY_SOURCES"`
	ValidateURL      string        `json:"validate_url" env:"PROXY_VALIDATE_URL" default:"https://www.google.com/generate_204"`
	ValidateTimeout  time.Duration `json:"validate_timeout" env:"PROXY_VALIDATE_TIMEOUT" default:"5s"`
	FailureThreshold int           `json:"failure_threshold" env:"PROXY_FAILURE_THRESHOLD" default:"3"`
	MinActive        int           `json:"min_active" env:"PROXY_MIN_ACTIVE" default:"10"`
	RefreshInterval  time.Duration `json:"refresh_interval" env:"PROXY_REFRESH_INTERVAL" default:"5m"`
}

type HarvestConfig struct {
	WorkerCount      int           `json:"worker_count" env:"HARVEST_WORKER_COUNT" default:"20"`
	ClaimBatchSize   int           `json:"claim_batch_size" env:"HARVEST_CLAIM_BATCH_SIZE" default:"32"`
	IdlePollInterval time.Duration `json:"idle_poll_interval" env:"HARVEST_IDLE_POLL_INTERVAL" default:"2s"`
	SeedFile         string        `json:"seed_file" env:"HARVEST_SEED_FILE"`
	MaxURLAttempts   int           `json:"max_url_attempts" env:"HARVEST_MAX_URL_ATTEMPTS" default:"3"`
	ShutdownGrace    time.Duration `json:"shutdown_grace" env:"HARVEST_SHUTDOWN_GRACE" default:"30s"`
}

type DLQConfig struct {
	Enabled   bool          `json:"enabled" env:"DLQ_ENABLED" default:"true"`
	BasePath  string        `json:"base_path" env:"DLQ_BASE_PATH" default:"./dlq-data"`
	Retention time.Duration `json:"retention" env:"DLQ_RETENTION" default:"720h"`
}

// GetBrowserHeaders returns the request headers for a plain fetch. With
// browser headers enabled the set mimics what a desktop browser sends,
// including client hints matched to the User-Agent family.
func (config *HTTPConfig) GetBrowserHeaders(userAgent string) map[string]string {
	if !config.EnableBrowserHeaders {
		return map[string]string{
			"User-Agent": userAgent,
		}
	}

	// Accept-Encoding is left to the transport; setting it by hand would
	// turn off net/http's transparent gzip decompression.
	headers := map[string]string{
		"User-Agent":                userAgent,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.9",
		"DNT":                       "1",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
	}

	if strings.Contains(userAgent, "Chrome") {
		headers["sec-ch-ua"] = `"Chromium";v="131", "Not_A Brand";v="24", "Google Chrome";v="131"`
		headers["sec-ch-ua-mobile"] = "?0"
		headers["sec-ch-ua-platform"] = `"Windows"`
	} else if strings.Contains(userAgent, "Firefox") {
		headers["Cache-Control"] = "max-age=0"
	}

	return headers
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadConfig builds the configuration from defaults and overrides provided via environment variables.
func LoadConfig() (*Config, error) {
	config := defaultConfig()

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            9200,
			ShutdownTimeout: 30 * time.Second,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
		},
		HTTP: HTTPConfig{
			Timeout:              15 * time.Second,
			MaxIdleConns:         40,
			MaxIdleConnsPerHost:  4,
			IdleConnTimeout:      90 * time.Second,
			TLSHandshakeTimeout:  10 * time.Second,
			UserAgent:            "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
			UserAgentRotation:    true,
			UserAgents:           defaultUserAgents(),
			EnableBrowserHeaders: true,
			MaxRedirects:         5,
			FollowRedirects:      true,
			MaxBodyBytes:         8 << 20,
		},
		Retry: RetryConfig{
			MaxAttempts:   3,
			BaseDelay:     1 * time.Second,
			MaxDelay:      30 * time.Second,
			BackoffFactor: 2.0,
			JitterMax:     1 * time.Second,
		},
		RateLimit: RateLimitConfig{
			DefaultDelay: 3 * time.Second,
			DomainDelays: defaultDomainDelays(),
		},
		Extract: ExtractConfig{
			MinTextLength:      300,
			StageMinTextLength: 150,
			PaywallDomains:     []string{"nytimes.com", "washingtonpost.com", "wsj.com"},
			MaxDateSkew:        7 * 24 * time.Hour,
			RespectRobots:      false,
		},
		Browser: BrowserConfig{
			Enabled:       true,
			RendererURL:   "http://localhost:3000",
			PoolSize:      3,
			NavTimeout:    30 * time.Second,
			QueueCapacity: 64,
		},
		Proxy: ProxyConfig{
			ValidateURL:      "https://www.google.com/generate_204",
			ValidateTimeout:  5 * time.Second,
			FailureThreshold: 3,
			MinActive:        10,
			RefreshInterval:  5 * time.Minute,
		},
		Harvest: HarvestConfig{
			WorkerCount:      20,
			ClaimBatchSize:   32,
			IdlePollInterval: 2 * time.Second,
			MaxURLAttempts:   3,
			ShutdownGrace:    30 * time.Second,
		},
		DLQ: DLQConfig{
			Enabled:   true,
			BasePath:  "./dlq-data",
			Retention: 30 * 24 * time.Hour,
		},
	}
}

// defaultDomainDelays carries the per-publisher crawl courtesy intervals.
// Paywalled publishers get longer gaps than the wire services.
func defaultDomainDelays() map[string]time.Duration {
	return map[string]time.Duration{
		"apnews.com":         1500 * time.Millisecond,
		"reuters.com":        2 * time.Second,
		"nytimes.com":        4 * time.Second,
		"washingtonpost.com": 4 * time.Second,
		"wsj.com":            6 * time.Second,
	}
}

func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:132.0) Gecko/20100101 Firefox/132.0",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:128.0) Gecko/20100101 Firefox/128.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:133.0) Gecko/20100101 Firefox/133.0",
		"Mozilla/5.0 (X11; Linux x86_64; rv:133.0) Gecko/20100101 Firefox/133.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Safari/605.1.15",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.1 Safari/605.1.15",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.2903.70",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36 Edg/130.0.2849.80",
	}
}

func loadFromEnv(config *Config) error {
	if err := loadServerConfig(&config.Server); err != nil {
		return fmt.Errorf("failed to load server config: %w", err)
	}

	if err := loadHTTPConfig(&config.HTTP); err != nil {
		return fmt.Errorf("failed to load HTTP config: %w", err)
	}

	if err := loadRetryConfig(&config.Retry); err != nil {
		return fmt.Errorf("failed to load retry config: %w", err)
	}

	if err := loadRateLimitConfig(&config.RateLimit); err != nil {
		return fmt.Errorf("failed to load rate limit config: %w", err)
	}

	if err := loadExtractConfig(&config.Extract); err != nil {
		return fmt.Errorf("failed to load extract config: %w", err)
	}

	if err := loadBrowserConfig(&config.Browser); err != nil {
		return fmt.Errorf("failed to load browser config: %w", err)
	}

	if err := loadProxyConfig(&config.Proxy); err != nil {
		return fmt.Errorf("failed to load proxy config: %w", err)
	}

	if err := loadHarvestConfig(&config.Harvest); err != nil {
		return fmt.Errorf("failed to load harvest config: %w", err)
	}

	if err := loadDLQConfig(&config.DLQ); err != nil {
		return fmt.Errorf("failed to load DLQ config: %w", err)
	}

	return nil
}

// loadServerConfig loads server configuration from environment variables
func loadServerConfig(cfg *ServerConfig) error {
	var err error

	if cfg.Port, err = parseIntEnv("SERVER_PORT", cfg.Port); err != nil {
		return err
	}

	if cfg.ShutdownTimeout, err = parseDurationEnv("SERVER_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return err
	}

	if cfg.ReadTimeout, err = parseDurationEnv("SERVER_READ_TIMEOUT", cfg.ReadTimeout); err != nil {
		return err
	}

	if cfg.WriteTimeout, err = parseDurationEnv("SERVER_WRITE_TIMEOUT", cfg.WriteTimeout); err != nil {
		return err
	}

	return nil
}

// loadHTTPConfig loads HTTP configuration from environment variables
func loadHTTPConfig(cfg *HTTPConfig) error {
	var err error

	if cfg.Timeout, err = parseDurationEnv("HTTP_TIMEOUT", cfg.Timeout); err != nil {
		return err
	}

	if cfg.MaxIdleConns, err = parseIntEnv("HTTP_MAX_IDLE_CONNS", cfg.MaxIdleConns); err != nil {
		return err
	}

	if cfg.MaxIdleConnsPerHost, err = parseIntEnv("HTTP_MAX_IDLE_CONNS_PER_HOST", cfg.MaxIdleConnsPerHost); err != nil {
		return err
	}

	if cfg.IdleConnTimeout, err = parseDurationEnv("HTTP_IDLE_CONN_TIMEOUT", cfg.IdleConnTimeout); err != nil {
		return err
	}

	if cfg.TLSHandshakeTimeout, err = parseDurationEnv("HTTP_TLS_HANDSHAKE_TIMEOUT", cfg.TLSHandshakeTimeout); err != nil {
		return err
	}

	if agent := os.Getenv("HTTP_USER_AGENT"); agent != "" {
		cfg.UserAgent = agent
	}

	if cfg.UserAgentRotation, err = parseBoolEnv("HTTP_USER_AGENT_ROTATION", cfg.UserAgentRotation); err != nil {
		return err
	}

	if agents := os.Getenv("HTTP_USER_AGENTS"); agents != "" {
		cfg.UserAgents = splitList(agents)
	}

	if cfg.EnableBrowserHeaders, err = parseBoolEnv("HTTP_ENABLE_BROWSER_HEADERS", cfg.EnableBrowserHeaders); err != nil {
		return err
	}

	if cfg.MaxRedirects, err = parseIntEnv("HTTP_MAX_REDIRECTS", cfg.MaxRedirects); err != nil {
		return err
	}

	if cfg.FollowRedirects, err = parseBoolEnv("HTTP_FOLLOW_REDIRECTS", cfg.FollowRedirects); err != nil {
		return err
	}

	if cfg.MaxBodyBytes, err = parseInt64Env("HTTP_MAX_BODY_BYTES", cfg.MaxBodyBytes); err != nil {
		return err
	}

	return nil
}

// loadRetryConfig loads retry configuration from environment variables
func loadRetryConfig(cfg *RetryConfig) error {
	var err error

	if cfg.MaxAttempts, err = parseIntEnv("RETRY_MAX_ATTEMPTS", cfg.MaxAttempts); err != nil {
		return err
	}

	if cfg.BaseDelay, err = parseDurationEnv("RETRY_BASE_DELAY", cfg.BaseDelay); err != nil {
		return err
	}

	if cfg.MaxDelay, err = parseDurationEnv("RETRY_MAX_DELAY", cfg.MaxDelay); err != nil {
		return err
	}

	if cfg.BackoffFactor, err = parseFloatEnv("RETRY_BACKOFF_FACTOR", cfg.BackoffFactor); err != nil {
		return err
	}

	if cfg.JitterMax, err = parseDurationEnv("RETRY_JITTER_MAX", cfg.JitterMax); err != nil {
		return err
	}

	return nil
}

// loadRateLimitConfig loads rate limit configuration from environment variables
func loadRateLimitConfig(cfg *RateLimitConfig) error {
	var err error

	if cfg.DefaultDelay, err = parseDurationEnv("RATE_LIMIT_DEFAULT_DELAY", cfg.DefaultDelay); err != nil {
		return err
	}

	if raw := os.Getenv("RATE_LIMIT_DOMAIN_DELAYS"); raw != "" {
		delays, err := parseDomainDelays(raw)
		if err != nil {
			return err
		}
		cfg.DomainDelays = delays
	}

	return nil
}

// loadExtractConfig loads extraction configuration from environment variables
func loadExtractConfig(cfg *ExtractConfig) error {
	var err error

	if cfg.MinTextLength, err = parseIntEnv("EXTRACT_MIN_TEXT_LENGTH", cfg.MinTextLength); err != nil {
		return err
	}

	if cfg.StageMinTextLength, err = parseIntEnv("EXTRACT_STAGE_MIN_TEXT_LENGTH", cfg.StageMinTextLength); err != nil {
		return err
	}

	if domains := os.Getenv("EXTRACT_PAYWALL_DOMAINS"); domains != "" {
		cfg.PaywallDomains = splitList(domains)
	}

	if cfg.MaxDateSkew, err = parseDurationEnv("EXTRACT_MAX_DATE_SKEW", cfg.MaxDateSkew); err != nil {
		return err
	}

	if cfg.RespectRobots, err = parseBoolEnv("EXTRACT_RESPECT_ROBOTS", cfg.RespectRobots); err != nil {
		return err
	}

	return nil
}

// loadBrowserConfig loads browser pool configuration from environment variables
func loadBrowserConfig(cfg *BrowserConfig) error {
	var err error

	if cfg.Enabled, err = parseBoolEnv("BROWSER_ENABLED", cfg.Enabled); err != nil {
		return err
	}

	if u := os.Getenv("BROWSER_RENDERER_URL"); u != "" {
		cfg.RendererURL = u
	}

	if cfg.PoolSize, err = parseIntEnv("BROWSER_POOL_SIZE", cfg.PoolSize); err != nil {
		return err
	}

	if cfg.NavTimeout, err = parseDurationEnv("BROWSER_NAV_TIMEOUT", cfg.NavTimeout); err != nil {
		return err
	}

	if cfg.QueueCapacity, err = parseIntEnv("BROWSER_QUEUE_CAPACITY", cfg.QueueCapacity); err != nil {
		return err
	}

	return nil
}

// loadProxyConfig loads proxy pool configuration from environment variables
func loadProxyConfig(cfg *ProxyConfig) error {
	var err error

	if sources := os.Getenv("PROXY_SOURCES"); sources != "" {
		cfg.Sources = splitList(sources)
	}

	if u := os.Getenv("PROXY_VALIDATE_URL"); u != "" {
		cfg.ValidateURL = u
	}

	if cfg.ValidateTimeout, err = parseDurationEnv("PROXY_VALIDATE_TIMEOUT", cfg.ValidateTimeout); err != nil {
		return err
	}

	if cfg.FailureThreshold, err = parseIntEnv("PROXY_FAILURE_THRESHOLD", cfg.FailureThreshold); err != nil {
		return err
	}

	if cfg.MinActive, err = parseIntEnv("PROXY_MIN_ACTIVE", cfg.MinActive); err != nil {
		return err
	}

	if cfg.RefreshInterval, err = parseDurationEnv("PROXY_REFRESH_INTERVAL", cfg.RefreshInterval); err != nil {
		return err
	}

	return nil
}

// loadHarvestConfig loads orchestrator configuration from environment variables
func loadHarvestConfig(cfg *HarvestConfig) error {
	var err error

	if cfg.WorkerCount, err = parseIntEnv("HARVEST_WORKER_COUNT", cfg.WorkerCount); err != nil {
		return err
	}

	if cfg.ClaimBatchSize, err = parseIntEnv("HARVEST_CLAIM_BATCH_SIZE", cfg.ClaimBatchSize); err != nil {
		return err
	}

	if cfg.IdlePollInterval, err = parseDurationEnv("HARVEST_IDLE_POLL_INTERVAL", cfg.IdlePollInterval); err != nil {
		return err
	}

	if file := os.Getenv("HARVEST_SEED_FILE"); file != "" {
		cfg.SeedFile = file
	}

	if cfg.MaxURLAttempts, err = parseIntEnv("HARVEST_MAX_URL_ATTEMPTS", cfg.MaxURLAttempts); err != nil {
		return err
	}

	if cfg.ShutdownGrace, err = parseDurationEnv("HARVEST_SHUTDOWN_GRACE", cfg.ShutdownGrace); err != nil {
		return err
	}

	return nil
}

// loadDLQConfig loads DLQ configuration from environment variables
func loadDLQConfig(cfg *DLQConfig) error {
	var err error

	if cfg.Enabled, err = parseBoolEnv("DLQ_ENABLED", cfg.Enabled); err != nil {
		return err
	}

	if path := os.Getenv("DLQ_BASE_PATH"); path != "" {
		cfg.BasePath = path
	}

	if cfg.Retention, err = parseDurationEnv("DLQ_RETENTION", cfg.Retention); err != nil {
		return err
	}

	return nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseDomainDelays parses "apnews.com=1500ms,wsj.com=6s" into a delay map.
func parseDomainDelays(value string) (map[string]time.Duration, error) {
	delays := make(map[string]time.Duration)
	for _, pair := range splitList(value) {
		domain, raw, found := strings.Cut(pair, "=")
		if !found || domain == "" {
			return nil, fmt.Errorf("invalid RATE_LIMIT_DOMAIN_DELAYS entry: %s", pair)
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid RATE_LIMIT_DOMAIN_DELAYS entry: %s", pair)
		}
		delays[strings.ToLower(strings.TrimSpace(domain))] = d
	}
	return delays, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		return d, nil
	}
	return defaultValue, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		return i, nil
	}
	return defaultValue, nil
}

func parseInt64Env(key string, defaultValue int64) (int64, error) {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		return i, nil
	}
	return defaultValue, nil
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("invalid %s: %s", key, value)
		}
		return b, nil
	}
	return defaultValue, nil
}

func parseFloatEnv(key string, defaultValue float64) (float64, error) {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		return f, nil
	}
	return defaultValue, nil
}

package config

import (
	"fmt"
	"strings"
)

func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.HTTP.Timeout <= 0 {
		return fmt.Errorf("HTTP timeout must be positive: %v", config.HTTP.Timeout)
	}

	if config.HTTP.MaxRedirects < 0 {
		return fmt.Errorf("max redirects must be non-negative: %d", config.HTTP.MaxRedirects)
	}

	if config.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive: %d", config.HTTP.MaxBodyBytes)
	}

	if config.HTTP.UserAgentRotation && len(config.HTTP.UserAgents) == 0 {
		return fmt.Errorf("user agent rotation enabled but no user agents configured")
	}

	for i, agent := range config.HTTP.UserAgents {
		if strings.TrimSpace(agent) == "" {
			return fmt.Errorf("user agent at index %d cannot be empty", i)
		}
	}

	if config.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry max attempts must be positive: %d", config.Retry.MaxAttempts)
	}

	if config.Retry.BackoffFactor <= 1.0 {
		return fmt.Errorf("backoff factor must be greater than 1.0: %f", config.Retry.BackoffFactor)
	}

	if config.Retry.JitterMax < 0 {
		return fmt.Errorf("retry jitter must be non-negative: %v", config.Retry.JitterMax)
	}

	if config.RateLimit.DefaultDelay <= 0 {
		return fmt.Errorf("rate limit default delay must be positive: %v", config.RateLimit.DefaultDelay)
	}

	for domain, delay := range config.RateLimit.DomainDelays {
		if delay <= 0 {
			return fmt.Errorf("rate limit delay for %s must be positive: %v", domain, delay)
		}
	}

	if config.Extract.MinTextLength <= 0 {
		return fmt.Errorf("min text length must be positive: %d", config.Extract.MinTextLength)
	}

	if config.Extract.StageMinTextLength <= 0 || config.Extract.StageMinTextLength > config.Extract.MinTextLength {
		return fmt.Errorf("stage min text length must be in (0, %d]: %d",
			config.Extract.MinTextLength, config.Extract.StageMinTextLength)
	}

	if config.Browser.Enabled && config.Browser.RendererURL == "" {
		return fmt.Errorf("browser renderer URL cannot be empty when the browser pool is enabled")
	}

	if config.Browser.PoolSize <= 0 {
		return fmt.Errorf("browser pool size must be positive: %d", config.Browser.PoolSize)
	}

	if config.Browser.NavTimeout <= 0 {
		return fmt.Errorf("browser nav timeout must be positive: %v", config.Browser.NavTimeout)
	}

	if config.Browser.QueueCapacity <= 0 {
		return fmt.Errorf("browser queue capacity must be positive: %d", config.Browser.QueueCapacity)
	}

	if config.Proxy.ValidateTimeout <= 0 {
		return fmt.Errorf("proxy validate timeout must be positive: %v", config.Proxy.ValidateTimeout)
	}

	if config.Proxy.FailureThreshold <= 0 {
		return fmt.Errorf("proxy failure threshold must be positive: %d", config.Proxy.FailureThreshold)
	}

	if config.Proxy.MinActive < 0 {
		return fmt.Errorf("proxy min active must be non-negative: %d", config.Proxy.MinActive)
	}

	if config.Harvest.WorkerCount <= 0 {
		return fmt.Errorf("worker count must be positive: %d", config.Harvest.WorkerCount)
	}

	if config.Harvest.ClaimBatchSize <= 0 {
		return fmt.Errorf("claim batch size must be positive: %d", config.Harvest.ClaimBatchSize)
	}

	if config.Harvest.IdlePollInterval <= 0 {
		return fmt.Errorf("idle poll interval must be positive: %v", config.Harvest.IdlePollInterval)
	}

	if config.Harvest.MaxURLAttempts <= 0 {
		return fmt.Errorf("max url attempts must be positive: %d", config.Harvest.MaxURLAttempts)
	}

	if config.Harvest.ShutdownGrace < 0 {
		return fmt.Errorf("shutdown grace must be non-negative: %v", config.Harvest.ShutdownGrace)
	}

	if config.DLQ.Enabled && config.DLQ.BasePath == "" {
		return fmt.Errorf("DLQ base path cannot be empty when DLQ is enabled")
	}

	if config.DLQ.Enabled && config.DLQ.Retention <= 0 {
		return fmt.Errorf("DLQ retention must be positive: %v", config.DLQ.Retention)
	}

	return nil
}

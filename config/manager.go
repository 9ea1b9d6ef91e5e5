package config

import (
	"fmt"
	"sync"

	"log/slog"
)

// ConfigManager serves a consistent view of the configuration and accepts
// validated runtime updates, so operators can tune delays or worker counts
// without a restart.
type ConfigManager struct {
	config *Config
	mu     sync.RWMutex
	logger *slog.Logger
}

func NewConfigManager(config *Config, logger *slog.Logger) *ConfigManager {
	return &ConfigManager{
		config: config,
		logger: logger,
	}
}

func (cm *ConfigManager) GetConfig() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	configCopy := *cm.config
	return &configCopy
}

func (cm *ConfigManager) UpdateConfig(newConfig *Config) error {
	if err := validateConfig(newConfig); err != nil {
		return fmt.Errorf("new config validation failed: %w", err)
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	oldConfig := cm.config
	cm.config = newConfig

	if cm.logger != nil {
		cm.logger.Info("configuration updated",
			"old_worker_count", oldConfig.Harvest.WorkerCount,
			"new_worker_count", newConfig.Harvest.WorkerCount,
			"old_default_delay", oldConfig.RateLimit.DefaultDelay,
			"new_default_delay", newConfig.RateLimit.DefaultDelay)
	}

	return nil
}

// ABOUTME: This file provides logger configuration loaded from the environment.
// ABOUTME: Level and service name come from LOG_LEVEL and SERVICE_NAME.
package logger

import "os"

// UnifiedLoggerConfig represents logger configuration.
type UnifiedLoggerConfig struct {
	Level       string `env:"LOG_LEVEL" default:"info"`
	ServiceName string `env:"SERVICE_NAME" default:"news-harvester"`
}

// LoadUnifiedLoggerConfigFromEnv loads configuration from environment variables.
func LoadUnifiedLoggerConfigFromEnv() *UnifiedLoggerConfig {
	return &UnifiedLoggerConfig{
		Level:       getEnvOrDefault("LOG_LEVEL", "info"),
		ServiceName: getEnvOrDefault("SERVICE_NAME", "news-harvester"),
	}
}

// InitializeUnifiedLogger creates a UnifiedLogger based on configuration.
func InitializeUnifiedLogger(config *UnifiedLoggerConfig) *UnifiedLogger {
	return NewUnifiedLoggerWithOTel(config.ServiceName, config.Level, false)
}

// InitializeWithOTel creates a UnifiedLogger that also exports via OTel.
func InitializeWithOTel(config *UnifiedLoggerConfig) *UnifiedLogger {
	return NewUnifiedLoggerWithOTel(config.ServiceName, config.Level, true)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// ABOUTME: This file implements a JSON file-based dead letter queue for failed state writes.
// ABOUTME: Outcomes the writer could not persist are spilled here instead of being lost.
package dlq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FailedWriteMessage is one spilled state-store write.
type FailedWriteMessage struct {
	ID          string       `json:"id"`
	Operation   string       `json:"operation"`
	URL         string       `json:"url"`
	Attempts    int          `json:"attempts"`
	LastError   ErrorDetails `json:"last_error"`
	Timestamp   time.Time    `json:"timestamp"`
	ServiceName string       `json:"service_name"`
	Metadata    Metadata     `json:"metadata"`
}

// ErrorDetails captures what went wrong with the final attempt.
type ErrorDetails struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsRetryable bool   `json:"is_retryable"`
}

// Metadata carries recovery hints for the replay tooling.
type Metadata struct {
	Domain string `json:"domain"`
}

// FileDLQConfig tunes the on-disk queue.
type FileDLQConfig struct {
	BasePath      string        `json:"base_path"`
	Retention     time.Duration `json:"retention"`
	EnableCleanup bool          `json:"enable_cleanup"`
}

// FileDLQManager writes spilled messages as individual JSON files under
// date-partitioned directories.
type FileDLQManager struct {
	config  FileDLQConfig
	counter uint64
	mu      sync.Mutex
	logger  *slog.Logger
}

func NewFileDLQManager(config FileDLQConfig, logger *slog.Logger) *FileDLQManager {
	return &FileDLQManager{
		config: config,
		logger: logger,
	}
}

// PublishFailedWrite spills one failed state write to disk. The operation
// name and URL identify what was being recorded; attempts counts how often
// the writer tried before giving up.
func (dlq *FileDLQManager) PublishFailedWrite(ctx context.Context, operation, urlStr string, attempts int, lastError error) error {
	dlq.mu.Lock()
	dlq.counter++
	messageID := fmt.Sprintf("dlq_%s_%03d", time.Now().Format("20060102"), dlq.counter)
	dlq.mu.Unlock()

	domain := extractDomain(urlStr)

	message := FailedWriteMessage{
		ID:          messageID,
		Operation:   operation,
		URL:         urlStr,
		Attempts:    attempts,
		LastError:   dlq.analyzeError(lastError),
		Timestamp:   time.Now().UTC(),
		ServiceName: "news-harvester",
		Metadata: Metadata{
			Domain: domain,
		},
	}

	if err := dlq.writeMessageToFile(message); err != nil {
		dlq.logger.Error("DLQ publication failed",
			"message_id", messageID,
			"operation", operation,
			"url", urlStr,
			"error", err)

		return err
	}

	dlq.logger.Warn("state write spilled to DLQ",
		"message_id", messageID,
		"operation", operation,
		"url", urlStr,
		"domain", domain,
		"attempts", attempts,
		"error_type", message.LastError.Type)

	return nil
}

func (dlq *FileDLQManager) analyzeError(err error) ErrorDetails {
	details := ErrorDetails{}
	if err == nil {
		details.Type = "UnknownError"
		return details
	}

	details.Message = err.Error()

	var netErr net.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		details.Type = "TimeoutError"
		details.IsRetryable = true
	case errors.As(err, &netErr):
		details.Type = "NetworkError"
		details.IsRetryable = netErr.Timeout()
	case strings.Contains(err.Error(), "conn busy"):
		details.Type = "ConnBusyError"
		details.IsRetryable = true
	default:
		details.Type = "DatabaseError"
		details.IsRetryable = false
	}

	return details
}

func (dlq *FileDLQManager) writeMessageToFile(message FailedWriteMessage) error {
	dateDir := message.Timestamp.Format("2006-01-02")
	dir := filepath.Join(dlq.config.BasePath, "failed-writes", dateDir)

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create directory failed: %w", err)
	}

	filename := fmt.Sprintf("%s.json", message.ID)
	targetPath := filepath.Join(dir, filename)
	tempFile := targetPath + ".tmp"

	messageBytes, err := json.MarshalIndent(message, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	// Write-then-rename keeps half-written files out of the queue.
	if err := os.WriteFile(tempFile, messageBytes, 0600); err != nil {
		return fmt.Errorf("write temp file failed: %w", err)
	}

	if err := os.Rename(tempFile, targetPath); err != nil {
		if cleanupErr := os.Remove(tempFile); cleanupErr != nil {
			dlq.logger.Error("failed to cleanup temp file", "temp_file", tempFile, "error", cleanupErr)
		}

		return fmt.Errorf("rename file failed: %w", err)
	}

	return nil
}

// DLQStats summarizes the on-disk queue.
type DLQStats struct {
	TotalFailedItems int       `json:"total_failed_items"`
	OldestFailure    time.Time `json:"oldest_failure"`
	DiskUsage        int64     `json:"disk_usage_bytes"`
	DailyFailureRate float64   `json:"daily_failure_rate"`
}

func (dlq *FileDLQManager) GetStats() (DLQStats, error) {
	stats := DLQStats{}

	failedDir := filepath.Join(dlq.config.BasePath, "failed-writes")

	err := filepath.Walk(failedDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && filepath.Ext(path) == ".json" {
			stats.TotalFailedItems++
			stats.DiskUsage += info.Size()

			if stats.OldestFailure.IsZero() || info.ModTime().Before(stats.OldestFailure) {
				stats.OldestFailure = info.ModTime()
			}
		}

		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}

		return stats, fmt.Errorf("failed to calculate stats: %w", err)
	}

	if !stats.OldestFailure.IsZero() {
		daysSinceOldest := time.Since(stats.OldestFailure).Hours() / 24
		if daysSinceOldest > 0 {
			stats.DailyFailureRate = float64(stats.TotalFailedItems) / daysSinceOldest
		}
	}

	return stats, nil
}

// StartCleanup removes spilled files older than the retention window once
// a day until ctx is done. Blocks; run it on its own goroutine.
func (dlq *FileDLQManager) StartCleanup(ctx context.Context) {
	if !dlq.config.EnableCleanup {
		dlq.logger.Info("DLQ cleanup disabled")
		return
	}

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	dlq.logger.Info("DLQ cleanup started",
		"retention", dlq.config.Retention,
		"base_path", dlq.config.BasePath)

	for {
		select {
		case <-ctx.Done():
			dlq.logger.Info("DLQ cleanup stopped")
			return
		case <-ticker.C:
			if err := dlq.cleanup(); err != nil {
				dlq.logger.Error("DLQ cleanup failed", "error", err)
			}
		}
	}
}

func (dlq *FileDLQManager) cleanup() error {
	cutoff := time.Now().Add(-dlq.config.Retention)
	removedCount := 0
	removedSize := int64(0)

	failedDir := filepath.Join(dlq.config.BasePath, "failed-writes")

	err := filepath.Walk(failedDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && info.ModTime().Before(cutoff) {
			size := info.Size()
			if err := os.Remove(path); err != nil {
				dlq.logger.Warn("failed to remove old DLQ file",
					"file", path,
					"error", err)

				return nil
			}

			removedCount++
			removedSize += size
		}

		return nil
	})
	if err != nil && os.IsNotExist(err) {
		return nil
	}

	if removedCount > 0 {
		dlq.logger.Info("DLQ cleanup completed",
			"removed_files", removedCount,
			"removed_size_bytes", removedSize,
			"cutoff", cutoff)
	}

	return err
}

func extractDomain(urlStr string) string {
	if parsed, err := url.Parse(urlStr); err == nil && parsed.Hostname() != "" {
		return parsed.Hostname()
	}

	return "unknown"
}

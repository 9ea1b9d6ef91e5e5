// ABOUTME: This file tests the file-based dead letter queue.
// ABOUTME: It covers spilling, stats collection and retention cleanup.
package dlq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDLQ(t *testing.T) *FileDLQManager {
	t.Helper()

	return NewFileDLQManager(FileDLQConfig{
		BasePath:      t.TempDir(),
		Retention:     30 * 24 * time.Hour,
		EnableCleanup: true,
	}, testLogger())
}

func TestPublishFailedWrite(t *testing.T) {
	dlq := newTestDLQ(t)

	err := dlq.PublishFailedWrite(context.Background(), "fail",
		"https://apnews.com/article/a1", 3, errors.New("conn busy"))
	require.NoError(t, err)

	var files []string

	walkErr := filepath.Walk(dlq.config.BasePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".json" {
			files = append(files, path)
		}
		return nil
	})
	require.NoError(t, walkErr)
	require.Len(t, files, 1)

	raw, err := os.ReadFile(files[0])
	require.NoError(t, err)

	var message FailedWriteMessage

	require.NoError(t, json.Unmarshal(raw, &message))
	assert.Equal(t, "fail", message.Operation)
	assert.Equal(t, "https://apnews.com/article/a1", message.URL)
	assert.Equal(t, 3, message.Attempts)
	assert.Equal(t, "news-harvester", message.ServiceName)
	assert.Equal(t, "apnews.com", message.Metadata.Domain)
	assert.Equal(t, "ConnBusyError", message.LastError.Type)
	assert.True(t, message.LastError.IsRetryable)
}

func TestPublishFailedWriteUniqueIDs(t *testing.T) {
	dlq := newTestDLQ(t)

	require.NoError(t, dlq.PublishFailedWrite(context.Background(), "complete",
		"https://reuters.com/world/a", 1, errors.New("boom")))
	require.NoError(t, dlq.PublishFailedWrite(context.Background(), "complete",
		"https://reuters.com/world/b", 1, errors.New("boom")))

	stats, err := dlq.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalFailedItems)
	assert.Positive(t, stats.DiskUsage)
}

func TestGetStatsEmptyQueue(t *testing.T) {
	dlq := newTestDLQ(t)

	stats, err := dlq.GetStats()
	require.NoError(t, err)
	assert.Zero(t, stats.TotalFailedItems)
}

func TestCleanupRemovesExpiredFiles(t *testing.T) {
	dlq := newTestDLQ(t)
	dlq.config.Retention = time.Hour

	require.NoError(t, dlq.PublishFailedWrite(context.Background(), "fail",
		"https://apnews.com/article/old", 3, errors.New("boom")))

	// Backdate the spilled file past the retention window.
	old := time.Now().Add(-2 * time.Hour)

	walkErr := filepath.Walk(dlq.config.BasePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			require.NoError(t, os.Chtimes(path, old, old))
		}
		return nil
	})
	require.NoError(t, walkErr)

	require.NoError(t, dlq.cleanup())

	stats, err := dlq.GetStats()
	require.NoError(t, err)
	assert.Zero(t, stats.TotalFailedItems)
}

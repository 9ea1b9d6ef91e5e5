package logger

import (
	"log/slog"
	"os"
)

// Logger is the process-wide logger. Bootstrap replaces it with the
// configured unified logger during startup.
var Logger *slog.Logger

// init sets up a fallback logger so packages using logger.Logger before
// bootstrap runs, including tests, never hit a nil pointer.
func init() {
	if Logger == nil {
		Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{}))
	}
}

// SetGlobal installs the unified logger as the process-wide logger and the
// slog default.
func SetGlobal(ul *UnifiedLogger) {
	Logger = ul.Logger()
	slog.SetDefault(Logger)
}

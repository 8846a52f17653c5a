package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ParseLogLevel maps a config value to a slog level. An empty value means info.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (expected debug, info, warn or error)", level)
	}
}

// NewLogger returns a text logger on stdout that also publishes every record to broker.
// broker may be nil.
func NewLogger(level slog.Level, broker *LogBroker) *slog.Logger {
	return newLogger(os.Stdout, level, broker)
}

func newLogger(w io.Writer, level slog.Level, broker *LogBroker) *slog.Logger {
	text := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(newBrokerHandler(text, broker))
}

// NewJobLogger returns a logger whose records are tagged with jobID so job subscribers receive them.
func NewJobLogger(jobID string, level slog.Level, broker *LogBroker) *slog.Logger {
	return NewLogger(level, broker).With(jobIDKey, jobID)
}

// LogJobComplete logs the final success message of a job. Job streams end after it.
func LogJobComplete(logger *slog.Logger, jobID, message string, args ...any) {
	args = append(args, jobIDKey, jobID, jobCompleteKey, true)
	logger.Info(message, args...)
}

// LogJobFailed logs the failure of a job. Job streams end after it.
func LogJobFailed(logger *slog.Logger, jobID, message string, err error) {
	logger.Error(message, jobIDKey, jobID, jobFailedKey, true, "error", err)
}

// CleanOldFiles removes regular files in dir last modified more than maxAgeDays ago.
// It returns the number of files removed.
func CleanOldFiles(dir string, maxAgeDays int) (int, error) {
	if maxAgeDays <= 0 {
		return 0, nil
	}
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	cutoff := time.Now().AddDate(0, 0, -maxAgeDays)
	removed := 0
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, file.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

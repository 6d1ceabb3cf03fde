package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Version is reported in the CLI log
const Version = "0.1.0"

// SetupLogger sets up the internal logger for the CLI tool, logging to a file in the user's home directory.
// Logging is best effort: if the file cannot be opened the CLI runs with logging discarded.
func SetupLogger() *slog.Logger {
	// Logs will be saved at ~/.gh-relay/logs/gh-relay-cli.log
	f, err := openLogFile()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	handler := slog.NewTextHandler(f, opts)
	logger := slog.New(handler)

	logger.Info("gh-relay CLI started", "version", Version)

	return logger
}

func openLogFile() (*os.File, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error getting home directory: %w", err)
	}

	logsDir := filepath.Join(homeDir, ".gh-relay", "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("error creating logs directory: %w", err)
	}

	logFile := filepath.Join(logsDir, "gh-relay-cli.log")
	return os.OpenFile(logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
}

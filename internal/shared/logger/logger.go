package logger

import (
	"io"
	"log/slog"
	"os"
)

var (
	defaultLogger *slog.Logger
	logFile       *os.File
)

// Init initializes the default logger with appropriate handler based on
// environment. When logFilePath is non-empty, logs are teed to that file
// in addition to stdout, so the admin surface's "upload logs" operation
// (spec §6) has something on disk to read back.
func Init(env string, debug bool, logFilePath string) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	out := io.Writer(os.Stdout)
	if logFilePath != "" {
		f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			slog.Warn("failed to open log file, logging to stdout only", "path", logFilePath, "error", err)
		} else {
			logFile = f
			out = io.MultiWriter(os.Stdout, f)
		}
	}

	if debug || env == "development" {
		opts.Level = slog.LevelDebug
		// Use text handler for development (human-readable)
		handler = slog.NewTextHandler(out, opts)
	} else {
		// Use JSON handler for production (structured logging)
		handler = slog.NewJSONHandler(out, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// FilePath returns the path logs are being teed to, or "" if Init was
// never given one or it failed to open.
func FilePath() string {
	if logFile == nil {
		return ""
	}
	return logFile.Name()
}

// Default returns the default logger instance
func Default() *slog.Logger {
	if defaultLogger == nil {
		// Fallback to text handler if not initialized
		defaultLogger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	return defaultLogger
}

// With returns a logger with the given attributes
func With(args ...any) *slog.Logger {
	return Default().With(args...)
}

// Debug logs at debug level
func Debug(msg string, args ...any) {
	Default().Debug(msg, args...)
}

// Info logs at info level
func Info(msg string, args ...any) {
	Default().Info(msg, args...)
}

// Warn logs at warn level
func Warn(msg string, args ...any) {
	Default().Warn(msg, args...)
}

// Error logs at error level
func Error(msg string, args ...any) {
	Default().Error(msg, args...)
}

package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for --log-file.
const (
	maxSizeMB  = 10
	maxBackups = 3
	maxAgeDays = 28
)

// ParseLevel maps "debug", "info", "warn", "error" (case-insensitive) to a
// slog level. Unrecognized strings mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// New builds a logger writing to w. format is "json" or "text"; anything
// else means text.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Output returns stderr, or stderr plus a size-rotated file when file is
// set. The returned close func flushes the file and is always safe to call.
func Output(file string) (io.Writer, func() error, error) {
	if file == "" {
		return os.Stderr, func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return nil, nil, err
	}
	rotator := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
	return io.MultiWriter(os.Stderr, rotator), rotator.Close, nil
}

// Setup creates the server logger, sets it as the default, and returns it
// with a close func for the log file.
func Setup(level, format, file string) (*slog.Logger, func() error, error) {
	w, closeFn, err := Output(file)
	if err != nil {
		return nil, nil, err
	}
	logger := New(w, level, format)
	slog.SetDefault(logger)
	return logger, closeFn, nil
}

// NewConsole builds a human-oriented logger for interactive commands. It is
// a charm log handler behind the slog API so packages stay agnostic of it.
func NewConsole(w io.Writer, level string) *slog.Logger {
	handler := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(ParseLevel(level)),
		ReportTimestamp: false,
		Prefix:          "ppctl",
	})
	return slog.New(handler)
}

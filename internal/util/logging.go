package util

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type loggerContextKey struct{}

// LogOptions controls where InitLogger writes.
type LogOptions struct {
	Level   string
	Service string
	// Dir enables a rotating <service>.log file next to stdout output.
	Dir        string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// InitLogger installs a JSON slog logger as the process default and returns
// a cleanup that flushes the log file, if any.
func InitLogger(opts LogOptions) (*slog.Logger, func()) {
	var out io.Writer = os.Stdout
	cleanup := func() {}
	if dir := strings.TrimSpace(opts.Dir); dir != "" {
		name := strings.TrimSpace(opts.Service)
		if name == "" {
			name = "app"
		}
		file := &lumberjack.Logger{
			Filename:   filepath.Join(dir, name+".log"),
			MaxSize:    orDefault(opts.MaxSizeMB, 50),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			MaxAge:     orDefault(opts.MaxAgeDays, 14),
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, file)
		cleanup = func() { _ = file.Close() }
	}
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:     ParseLevel(opts.Level),
		AddSource: true,
	})
	logger := slog.New(handler)
	if opts.Service != "" {
		logger = logger.With("service", opts.Service)
	}
	slog.SetDefault(logger)
	return logger, cleanup
}

// ParseLevel maps debug/info/warn/error to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ContextWithLogger stores a request-scoped logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

// LoggerFromContext returns the request-scoped logger or slog.Default().
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	return slog.Default()
}

// Fatal logs at error level and exits the process.
func Fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

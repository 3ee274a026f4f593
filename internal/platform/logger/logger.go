package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/phrazzld/revision-scheduler/internal/config"
)

// Setup installs a JSON logger writing to stdout as the slog default.
func Setup(cfg config.ServerConfig) (*slog.Logger, error) {
	return SetupWithWriter(cfg, os.Stdout)
}

// SetupWithWriter is Setup writing to w. An unrecognised level falls back to
// info and is reported through the new logger.
func SetupWithWriter(cfg config.ServerConfig, w io.Writer) (*slog.Logger, error) {
	level, known := ParseLevel(cfg.LogLevel)

	l := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(l)

	if !known {
		l.Warn("unknown log level, using info", slog.String("configured_level", cfg.LogLevel))
	}
	return l, nil
}

// ParseLevel converts a case-insensitive level name to a slog.Level. Empty
// means info. Unknown names also map to info and report false.
func ParseLevel(name string) (slog.Level, bool) {
	levels := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	level, ok := levels[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return slog.LevelInfo, false
	}
	return level, true
}

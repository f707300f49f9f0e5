package logger

import (
	"io"
	"log/slog"
	"strings"

	gcplogger "github.com/kawabatas/bundle-publisher/internal/infra/platform/gcp/logger"
)

// New returns a logger writing to w. "gcp" は Cloud Logging 形式の JSON、それ以外はテキスト。
func New(provider string, level slog.Level, w io.Writer) *slog.Logger {
	switch strings.ToLower(provider) {
	case "gcp":
		return gcplogger.New(w, level)
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	}
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "-4", "debug":
		return slog.LevelDebug
	case "0", "info":
		return slog.LevelInfo
	case "4", "warn":
		return slog.LevelWarn
	case "8", "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

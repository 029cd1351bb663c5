package observability

import (
	"log/slog"
	"os"
	"strings"
)

// SetupLogger installs a slog.Logger as the process default, configured
// from the level and format strings carried in LoggingConfig.
func SetupLogger(level, format string) {
	slog.SetDefault(slog.New(newHandler(level, format)))
}

func newHandler(level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "text") {
		return slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.NewJSONHandler(os.Stdout, opts)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

package app

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the process logger. Local runs get readable text output;
// deployments set LOG_FORMAT=json and carry source attribution so log lines
// can be traced back through aggregation.
func NewLogger(cfg *Config) *slog.Logger {
	level := parseLogLevel(cfg)
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// parseLogLevel maps LOG_LEVEL onto slog. Unknown values fall back to info
// so a typo never silences the logs.
func parseLogLevel(cfg *Config) slog.Level {
	if cfg == nil {
		return slog.LevelInfo
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

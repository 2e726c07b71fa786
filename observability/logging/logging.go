package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

// LevelEnvVar selects the minimum log level for the service. Unset or
// unrecognized values fall back to info.
const LevelEnvVar = "JUDGED_LOG_LEVEL"

// Setup configures the process-wide logger to emit structured JSON on stdout
// and returns the slog.Logger the service components share. Every line
// carries the service name, and the environment when one is configured. The
// minimum level is read from JUDGED_LOG_LEVEL.
func Setup(service, env string) *slog.Logger {
	handler := newHandler(os.Stdout, levelFromEnv())

	attrs := []slog.Attr{
		slog.String("service", strings.TrimSpace(service)),
	}
	if env = strings.TrimSpace(env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}

	withArgs := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		withArgs = append(withArgs, attr)
	}

	base := slog.New(handler).With(withArgs...)
	slog.SetDefault(base)

	// Bridge the standard library logger so existing packages continue to work.
	stdBridge := slog.NewLogLogger(handler.WithAttrs(attrs), slog.LevelInfo)
	stdBridge.SetFlags(0)
	log.SetOutput(stdBridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return base
}

func newHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: false,
		Level:     level,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			return normalizeAttr(attr)
		},
	})
}

// normalizeAttr renames slog's default keys to the timestamp/severity/message
// triple the ingestion pipeline expects.
func normalizeAttr(attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		return slog.Attr{Key: "timestamp", Value: attr.Value}
	case slog.LevelKey:
		return slog.String("severity", strings.ToUpper(attr.Value.String()))
	case slog.MessageKey:
		return slog.Attr{Key: "message", Value: attr.Value}
	default:
		return attr
	}
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(LevelEnvVar))) {
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

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestHandlerRenamesDefaultKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, slog.LevelInfo)).With(slog.String("service", "judged"))

	logger.Warn("vault shortfall", "judge", "a1")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["message"] != "vault shortfall" {
		t.Fatalf("expected message key, got %v", line)
	}
	if line["severity"] != "WARN" {
		t.Fatalf("expected uppercase severity, got %v", line["severity"])
	}
	if _, ok := line["timestamp"]; !ok {
		t.Fatalf("expected timestamp key, got %v", line)
	}
	if line["service"] != "judged" || line["judge"] != "a1" {
		t.Fatalf("expected service and custom attrs preserved, got %v", line)
	}
}

func TestHandlerHonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, slog.LevelWarn))

	logger.Info("suppressed")
	if buf.Len() != 0 {
		t.Fatalf("expected info suppressed below warn, got %q", buf.String())
	}
	logger.Error("emitted")
	if buf.Len() == 0 {
		t.Fatalf("expected error line emitted")
	}
}

func TestLevelFromEnv(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"Warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for value, want := range cases {
		t.Setenv(LevelEnvVar, value)
		if got := levelFromEnv(); got != want {
			t.Fatalf("level for %q: expected %v, got %v", value, want, got)
		}
	}
}

func TestSetupInstallsDefaultLogger(t *testing.T) {
	t.Setenv(LevelEnvVar, "debug")
	logger := Setup("judged", "test")
	if logger == nil {
		t.Fatalf("expected logger")
	}
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatalf("expected debug enabled via %s", LevelEnvVar)
	}
}

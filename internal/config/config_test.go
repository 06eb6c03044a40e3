package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWhenEnvUnset(t *testing.T) {
	clearSentryEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.CTWebSocketURL != "ws://127.0.0.1:8080" {
		t.Fatalf("unexpected default CTWebSocketURL: %q", cfg.CTWebSocketURL)
	}
	if cfg.Tuning.WorkerCount != 10 {
		t.Fatalf("expected default WorkerCount=10, got %d", cfg.Tuning.WorkerCount)
	}
}

func TestLoad_EnvOverridesDefault(t *testing.T) {
	clearSentryEnv(t)
	t.Setenv("CT_WEBSOCKET_URL", "ws://firehose.internal:9999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.CTWebSocketURL != "ws://firehose.internal:9999" {
		t.Fatalf("expected env override, got %q", cfg.CTWebSocketURL)
	}
}

func TestLoad_TuningFileOverlayPartial(t *testing.T) {
	clearSentryEnv(t)

	path := filepath.Join(t.TempDir(), "tuning.yaml")
	os.WriteFile(path, []byte("tuning:\n  worker_count: 25\n"), 0o644)
	t.Setenv("SENTRY_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Tuning.WorkerCount != 25 {
		t.Fatalf("expected overlay worker_count=25, got %d", cfg.Tuning.WorkerCount)
	}
	if cfg.Tuning.WorkQueueCapacity != 5000 {
		t.Fatalf("expected untouched fields to keep defaults, got work_queue_capacity=%d", cfg.Tuning.WorkQueueCapacity)
	}
}

func clearSentryEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CT_WEBSOCKET_URL", "PERMUTATION_BASE_URL", "BRAND_LIST_PATH",
		"OUTPUT_CSV_PATH", "LOG_LEVEL", "LOG_FILE", "SENTRY_CONFIG",
	} {
		t.Setenv(key, "")
	}
}

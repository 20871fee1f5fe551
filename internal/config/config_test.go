package config

import (
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_DSN", "host=localhost user=test password=test dbname=test port=5432 sslmode=disable")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("PUSH_API_URL", "https://push.example.com/v2/send")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", cfg.APIPort)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %s, want info", cfg.LogLevel)
	}
	if cfg.DispatchConcurrency != 4 {
		t.Errorf("DispatchConcurrency = %d, want 4", cfg.DispatchConcurrency)
	}
	if cfg.DrainBatchSize != 10 {
		t.Errorf("DrainBatchSize = %d, want 10", cfg.DrainBatchSize)
	}
	if cfg.RateLimitPerSec != 100 {
		t.Errorf("RateLimitPerSec = %d, want 100", cfg.RateLimitPerSec)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("API_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DISPATCH_CONCURRENCY", "8")
	t.Setenv("DRAIN_INTERVAL_SEC", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", cfg.APIPort)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
	}
	if cfg.DispatchConcurrency != 8 {
		t.Errorf("DispatchConcurrency = %d, want 8", cfg.DispatchConcurrency)
	}
	if cfg.DrainIntervalSec != 5 {
		t.Errorf("DrainIntervalSec = %d, want 5", cfg.DrainIntervalSec)
	}
}

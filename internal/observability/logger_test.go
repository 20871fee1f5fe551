package observability

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_LevelMapping(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		level        string
		debugEnabled bool
	}{
		{name: "debug level", level: "debug", debugEnabled: true},
		{name: "info level", level: "info", debugEnabled: false},
		{name: "empty level defaults to info", level: "", debugEnabled: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			logger, err := NewLogger(tc.level)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if logger == nil {
				t.Fatal("logger should not be nil")
			}

			if got := logger.Core().Enabled(zapcore.DebugLevel); got != tc.debugEnabled {
				t.Fatalf("debug enabled=%v, want=%v", got, tc.debugEnabled)
			}
		})
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger("not-a-level")
	if err == nil {
		t.Fatal("expected error for invalid level")
	}
	if logger != nil {
		t.Fatal("expected nil logger for invalid level")
	}
}

func TestIntentID_ContextHelpers(t *testing.T) {
	t.Parallel()

	ctx := WithIntentID(context.Background(), "intent-42")

	intentID, ok := IntentIDFromContext(ctx)
	if !ok {
		t.Fatal("intent id should be present")
	}
	if intentID != "intent-42" {
		t.Fatalf("intent id = %q, want intent-42", intentID)
	}

	if _, ok := IntentIDFromContext(context.Background()); ok {
		t.Fatal("intent id should be absent on a fresh context")
	}
}

func TestWithContextLogger_AddsIntentField(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx := WithIntentID(context.Background(), "intent-7")
	WithContextLogger(base, ctx).Info("processing")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}

	fields := entries[0].ContextMap()
	if fields["intentId"] != "intent-7" {
		t.Fatalf("intentId field = %v, want intent-7", fields["intentId"])
	}
}

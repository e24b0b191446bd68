package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_RejectsBadLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "chatty")
	if _, err := New("dbcheck"); err == nil {
		t.Fatalf("expected error for bad LOG_LEVEL")
	}
}

func TestFrom_FallsBackAndRoundTrips(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := zap.New(core)

	if got := From(context.Background(), l); got != l {
		t.Fatalf("expected fallback logger")
	}

	ctx := With(context.Background(), l.With(zap.String("request_id", "r-1")))
	From(ctx, nil).Info("hello")

	if logs.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", logs.Len())
	}
	if got := logs.All()[0].ContextMap()["request_id"]; got != "r-1" {
		t.Fatalf("request_id=%v", got)
	}
}

func TestWithTrace_NoSpanIsNoop(t *testing.T) {
	l := zap.NewNop()
	if got := WithTrace(context.Background(), l); got != l {
		t.Fatalf("expected same logger without a span")
	}
}

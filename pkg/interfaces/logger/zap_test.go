package logger

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapForwardsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	lgr := NewZap(zap.New(core)).With(Field{Key: "store", Value: "notifications"})

	lgr.Warn("fetch failed", Err(errors.New("boom")), Field{Key: "key", Value: "unreadCount"})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["store"] != "notifications" {
		t.Fatalf("expected store field, got %+v", ctx)
	}
	if ctx["key"] != "unreadCount" {
		t.Fatalf("expected key field, got %+v", ctx)
	}
	if ctx["error"] != "boom" {
		t.Fatalf("expected error field, got %+v", ctx)
	}
}

func TestNewZapNil(t *testing.T) {
	lgr := NewZap(nil)
	lgr.Info("discarded")
	if lgr.Unwrap() == nil {
		t.Fatalf("expected nop logger")
	}
}

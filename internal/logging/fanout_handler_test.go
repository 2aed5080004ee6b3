package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}

	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner, nil); h != inner {
		t.Fatal("expected single non-nil handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRespectsPerHandlerLevel(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	infoHandler := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debugHandler := slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := slog.New(TeeHandler(infoHandler, debugHandler))
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug enabled when any handler accepts it")
	}

	logger.Debug("debug only")
	if infoBuf.Len() != 0 {
		t.Fatalf("info handler received debug record: %s", infoBuf.String())
	}
	if debugBuf.Len() == 0 {
		t.Fatal("debug handler did not receive debug record")
	}
}

func TestFanoutHandlerPropagatesAttrsAndGroups(t *testing.T) {
	var console, jsonBuf bytes.Buffer
	var lvl slog.LevelVar
	h := TeeHandler(newConsoleHandler(&console, &lvl, false), newJSONHandler(&jsonBuf, &lvl, false))

	logger := slog.New(h).With(String(FieldComponent, "sweeper")).WithGroup("sweep")
	logger.Info("expired items rejected", Int64("count", 2))

	if !strings.Contains(console.String(), "[sweeper]") || !strings.Contains(console.String(), "sweep.count=2") {
		t.Fatalf("unexpected console output %q", console.String())
	}
	if !strings.Contains(jsonBuf.String(), `"sweep":{"count":2}`) {
		t.Fatalf("unexpected json output %q", jsonBuf.String())
	}
}

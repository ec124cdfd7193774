package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/felixgeelhaar/mcp-toolbox/protocol"
)

func TestLogging(t *testing.T) {
	t.Run("logs successful requests", func(t *testing.T) {
		logger := &mockLogger{}
		ctx := ContextWithRequestID(context.Background(), "req-1")

		_, _ = Logging(logger)(okHandler)(ctx, toolCall("database-query"))

		if len(logger.entries) != 1 {
			t.Fatalf("got %d entries, want 1", len(logger.entries))
		}
		e := logger.entries[0]
		if e.level != "info" || e.message != "request completed" {
			t.Errorf("entry = %+v", e)
		}
		if v, _ := e.field("capability"); v != "database-query" {
			t.Errorf("capability = %v", v)
		}
		if v, _ := e.field("request_id"); v != "req-1" {
			t.Errorf("request_id = %v", v)
		}
		if _, ok := e.field("duration"); !ok {
			t.Error("duration missing")
		}
	})

	t.Run("logs handler errors", func(t *testing.T) {
		logger := &mockLogger{}
		h := Logging(logger)(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			return nil, errors.New("broken")
		})

		_, _ = h(context.Background(), &protocol.Request{Method: protocol.MethodToolsList})

		e := logger.entries[0]
		if e.level != "error" {
			t.Errorf("level = %q, want error", e.level)
		}
		if v, _ := e.field("error"); v != "broken" {
			t.Errorf("error field = %v", v)
		}
	})

	t.Run("logs JSON-RPC error responses", func(t *testing.T) {
		logger := &mockLogger{}
		h := Logging(logger)(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			return protocol.NewErrorResponse(req.ID, protocol.NewNotFound("missing")), nil
		})

		_, _ = h(context.Background(), &protocol.Request{ID: json.RawMessage(`1`), Method: protocol.MethodPromptsGet})

		if logger.entries[0].level != "error" {
			t.Errorf("level = %q, want error", logger.entries[0].level)
		}
	})
}

func TestSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger := NewSlogLogger(base)

	logger.Debug("hidden", F("k", 1))
	logger.Info("shown", F("tool", "cache-operation"), F("count", 2))
	logger.Warn("warned")
	logger.Error("failed", F("error", "boom"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatal(err)
	}
	if first["msg"] != "shown" || first["tool"] != "cache-operation" || first["count"] != float64(2) {
		t.Errorf("record = %v", first)
	}
	if !strings.Contains(lines[2], `"level":"ERROR"`) {
		t.Errorf("error line = %s", lines[2])
	}
	if logger.Slog() != base {
		t.Error("Slog() should return the wrapped logger")
	}
	if NewSlogLogger(nil).Slog() == nil {
		t.Error("nil logger should fall back to slog.Default")
	}
}

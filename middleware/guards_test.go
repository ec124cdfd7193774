package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/mcp-toolbox/protocol"
)

func TestRecover(t *testing.T) {
	panicky := func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
		panic("kaboom")
	}

	t.Run("default handler returns internal error", func(t *testing.T) {
		logger := &mockLogger{}
		_, err := Recover(WithRecoverLogger(logger))(panicky)(context.Background(), toolCall("x"))

		var rpcErr *protocol.Error
		if !errors.As(err, &rpcErr) || rpcErr.Code != protocol.CodeInternalError {
			t.Fatalf("err = %v, want internal error", err)
		}
		if !strings.Contains(rpcErr.Message, "kaboom") {
			t.Errorf("message = %q", rpcErr.Message)
		}
		if len(logger.entries) != 1 || logger.entries[0].message != "panic recovered" {
			t.Errorf("entries = %+v", logger.entries)
		}
	})

	t.Run("custom handler", func(t *testing.T) {
		h := Recover(WithPanicHandler(func(ctx context.Context, req *protocol.Request, v any) (*protocol.Response, error) {
			return protocol.NewResponse(req.ID, "recovered"), nil
		}))(panicky)

		resp, err := h(context.Background(), toolCall("x"))
		if err != nil || resp.Result != "recovered" {
			t.Fatalf("resp = %+v, err = %v", resp, err)
		}
	})

	t.Run("passes through without panic", func(t *testing.T) {
		resp, err := Recover()(okHandler)(context.Background(), toolCall("x"))
		if err != nil || resp.Result != "ok" {
			t.Fatalf("resp = %+v, err = %v", resp, err)
		}
	})
}

func TestRequestID(t *testing.T) {
	capture := func(got *string) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			*got = RequestIDFromContext(ctx)
			return nil, nil
		}
	}

	t.Run("generates a UUID", func(t *testing.T) {
		var got string
		_, _ = RequestID()(capture(&got))(context.Background(), &protocol.Request{})
		if len(got) != 36 {
			t.Errorf("request ID = %q, want a UUID", got)
		}
	})

	t.Run("honors transport header", func(t *testing.T) {
		var got string
		ctx := protocol.SetRequestMeta(context.Background(), "X-Request-ID", "from-client")
		_, _ = RequestID()(capture(&got))(ctx, &protocol.Request{})
		if got != "from-client" {
			t.Errorf("request ID = %q, want from-client", got)
		}
	})

	t.Run("keeps existing ID", func(t *testing.T) {
		var got string
		ctx := ContextWithRequestID(context.Background(), "existing")
		_, _ = RequestIDWithGenerator(func() string { return "new" })(capture(&got))(ctx, &protocol.Request{})
		if got != "existing" {
			t.Errorf("request ID = %q, want existing", got)
		}
	})

	t.Run("custom generator", func(t *testing.T) {
		var got string
		_, _ = RequestIDWithGenerator(func() string { return "fixed" })(capture(&got))(context.Background(), &protocol.Request{})
		if got != "fixed" {
			t.Errorf("request ID = %q, want fixed", got)
		}
	})
}

func TestTimeout(t *testing.T) {
	h := Timeout(10 * time.Millisecond)(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
			return nil, nil
		}
	})

	_, err := h(context.Background(), &protocol.Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestSizeLimit(t *testing.T) {
	logger := &mockLogger{}
	h := SizeLimit(16, logger)(okHandler)

	if _, err := h(context.Background(), &protocol.Request{Params: json.RawMessage(`{"a":1}`)}); err != nil {
		t.Fatalf("small request rejected: %v", err)
	}

	_, err := h(context.Background(), &protocol.Request{Params: json.RawMessage(`{"name":"a-very-long-tool-name"}`)})
	if !errors.Is(err, protocol.NewInvalidRequest("")) {
		t.Fatalf("err = %v, want invalid request", err)
	}
	if len(logger.entries) != 1 || logger.entries[0].level != "warn" {
		t.Errorf("entries = %+v", logger.entries)
	}
}

func TestRateLimit(t *testing.T) {
	t.Run("global key", func(t *testing.T) {
		h := RateLimit(1, 1)(okHandler)
		ctx := context.Background()

		if _, err := h(ctx, toolCall("a")); err != nil {
			t.Fatalf("first request: %v", err)
		}
		_, err := h(ctx, toolCall("b"))
		if !errors.Is(err, protocol.NewRateLimited("")) {
			t.Fatalf("err = %v, want rate limited", err)
		}
	})

	t.Run("capability key limits each tool separately", func(t *testing.T) {
		logger := &mockLogger{}
		h := RateLimit(1, 1, WithRateLimitKey(CapabilityKey), WithRateLimitLogger(logger))(okHandler)
		ctx := context.Background()

		if _, err := h(ctx, toolCall("a")); err != nil {
			t.Fatalf("tool a: %v", err)
		}
		if _, err := h(ctx, toolCall("b")); err != nil {
			t.Fatalf("tool b: %v", err)
		}
		if _, err := h(ctx, toolCall("a")); err == nil {
			t.Fatal("second call to tool a should be limited")
		}
		if len(logger.entries) != 1 {
			t.Fatalf("entries = %+v", logger.entries)
		}
		if key, _ := logger.entries[0].field("key"); key != "tools/call:a" {
			t.Errorf("key = %v", key)
		}
	})
}

func TestRateLimitKeys(t *testing.T) {
	ctx := context.Background()
	req := toolCall("cache-operation")

	if got := MethodKey(ctx, req); got != protocol.MethodToolsCall {
		t.Errorf("MethodKey = %q", got)
	}
	if got := CapabilityKey(ctx, &protocol.Request{Method: protocol.MethodToolsList}); got != protocol.MethodToolsList {
		t.Errorf("CapabilityKey without capability = %q", got)
	}
	if got := IdentityKey(ctx, req); got != "anonymous" {
		t.Errorf("IdentityKey anonymous = %q", got)
	}
	if got := IdentityKey(ContextWithIdentity(ctx, &Identity{ID: "u1"}), req); got != "identity:u1" {
		t.Errorf("IdentityKey = %q", got)
	}
}

package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/felixgeelhaar/mcp-toolbox/middleware"
	"github.com/felixgeelhaar/mcp-toolbox/schema"
	"github.com/felixgeelhaar/mcp-toolbox/server"
	"github.com/felixgeelhaar/mcp-toolbox/uri"
)

type mapConfig map[string]any

func (c mapConfig) Get(key string, def any) any {
	if v, ok := c[key]; ok {
		return v
	}
	return def
}

type logEntry struct {
	msg    string
	fields map[string]any
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) record(msg string, fields []middleware.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m := make(map[string]any, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	l.entries = append(l.entries, logEntry{msg: msg, fields: m})
}

func (l *recordingLogger) Info(msg string, fields ...middleware.Field)  { l.record(msg, fields) }
func (l *recordingLogger) Error(msg string, fields ...middleware.Field) { l.record(msg, fields) }
func (l *recordingLogger) Debug(msg string, fields ...middleware.Field) { l.record(msg, fields) }
func (l *recordingLogger) Warn(msg string, fields ...middleware.Field)  { l.record(msg, fields) }

func newTestServer(t *testing.T, calls *atomic.Int32) *server.Server {
	t.Helper()
	srv := server.New(server.Info{Name: "test", Version: "1.0.0"})

	b := srv.Tool("greet").
		Schema(map[string]any{
			"properties": map[string]any{
				"name":  map[string]any{"type": "string", "required": true},
				"times": map[string]any{"type": "integer", "default": 1},
			},
		}).
		Enabled("tools.greet.enabled").
		Handler(func(ctx context.Context, args schema.Arguments) (any, error) {
			calls.Add(1)
			return map[string]any{"greeting": "hello " + args.String("name"), "times": args["times"]}, nil
		})
	if err := b.Err(); err != nil {
		t.Fatal(err)
	}

	srv.Tool("fail").Handler(func(ctx context.Context, args schema.Arguments) (any, error) {
		calls.Add(1)
		return nil, errors.New("database unavailable")
	})
	srv.Tool("explode").Handler(func(ctx context.Context, args schema.Arguments) (any, error) {
		calls.Add(1)
		panic("boom")
	})
	srv.Tool("returns-validation").Handler(func(ctx context.Context, args schema.Arguments) (any, error) {
		return nil, schema.ValidationErrors{{Path: "x", Rule: schema.RuleType, Message: "bad"}}
	})

	srv.Resource("app://config").
		Enabled("resources.config.enabled").
		Handler(func(ctx context.Context, u *uri.URI) (*server.ResourceContent, error) {
			key, _ := u.Sub(uri.MustParse("app://config"))
			return server.TextContentOf(u, "text/plain", "key="+key), nil
		})

	srv.Prompt("debugging").
		Argument("error_message", "The error", true).
		Template("Debug: {{error_message}}", nil).
		Register()

	return srv
}

func TestDispatcher_Tool(t *testing.T) {
	t.Run("completes with handler value", func(t *testing.T) {
		var calls atomic.Int32
		d := New(newTestServer(t, &calls), mapConfig{})

		resp := d.CallTool(context.Background(), "greet", map[string]any{"name": "World", "extra": 1})
		if resp.IsError {
			t.Fatalf("unexpected failure: %+v", resp.Error)
		}
		want := map[string]any{"greeting": "hello World", "times": 1}
		if diff := cmp.Diff(want, resp.Value); diff != "" {
			t.Errorf("value mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("unknown capability is not found", func(t *testing.T) {
		var calls atomic.Int32
		d := New(newTestServer(t, &calls), mapConfig{})

		resp := d.CallTool(context.Background(), "ghost", nil)
		if !resp.IsError || resp.Error.Kind != FailureNotFound {
			t.Fatalf("response = %+v, want not_found", resp)
		}
		var nf *NotFoundError
		if !errors.As(resp.Err(), &nf) || nf.Name != "ghost" {
			t.Errorf("Err() = %v, want *NotFoundError", resp.Err())
		}
		if calls.Load() != 0 {
			t.Errorf("handler called %d times", calls.Load())
		}
	})

	t.Run("validation failure skips handler", func(t *testing.T) {
		var calls atomic.Int32
		d := New(newTestServer(t, &calls), mapConfig{})

		resp := d.CallTool(context.Background(), "greet", map[string]any{})
		if !resp.IsError || resp.Error.Kind != FailureValidation {
			t.Fatalf("response = %+v, want validation", resp)
		}
		if diff := cmp.Diff(map[string]string{"name": "required field is missing"}, resp.Error.Fields); diff != "" {
			t.Errorf("fields mismatch (-want +got):\n%s", diff)
		}
		if calls.Load() != 0 {
			t.Errorf("handler called %d times", calls.Load())
		}
	})

	t.Run("handler error is wrapped and logged", func(t *testing.T) {
		var calls atomic.Int32
		logger := &recordingLogger{}
		d := New(newTestServer(t, &calls), mapConfig{}, WithLogger(logger))

		args := map[string]any{"q": "x"}
		resp := d.CallTool(context.Background(), "fail", args)
		if !resp.IsError || resp.Error.Kind != FailureHandler {
			t.Fatalf("response = %+v, want handler", resp)
		}
		if !strings.Contains(resp.Error.Message, "database unavailable") {
			t.Errorf("Message = %q", resp.Error.Message)
		}
		var he *HandlerError
		if !errors.As(resp.Err(), &he) || he.Name != "fail" {
			t.Errorf("Err() = %v, want *HandlerError", resp.Err())
		}

		if len(logger.entries) != 1 {
			t.Fatalf("got %d log entries, want 1", len(logger.entries))
		}
		entry := logger.entries[0]
		if entry.fields["name"] != "fail" || entry.fields["kind"] != "tool" {
			t.Errorf("log fields = %v", entry.fields)
		}
		if diff := cmp.Diff(args, entry.fields["arguments"]); diff != "" {
			t.Errorf("logged arguments mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("panics become handler failures", func(t *testing.T) {
		var calls atomic.Int32
		d := New(newTestServer(t, &calls), mapConfig{})

		resp := d.CallTool(context.Background(), "explode", nil)
		if !resp.IsError || resp.Error.Kind != FailureHandler {
			t.Fatalf("response = %+v, want handler", resp)
		}
		var pe *PanicError
		if !errors.As(resp.Err(), &pe) || pe.Value != "boom" {
			t.Errorf("Err() = %v, want *PanicError", resp.Err())
		}
	})

	t.Run("errors raised by handlers stay handler failures", func(t *testing.T) {
		var calls atomic.Int32
		d := New(newTestServer(t, &calls), mapConfig{})

		resp := d.CallTool(context.Background(), "returns-validation", nil)
		if resp.Error.Kind != FailureHandler || resp.Error.Fields != nil {
			t.Errorf("Error = %+v, want handler failure without fields", resp.Error)
		}
	})
}

func TestDispatcher_Disabled(t *testing.T) {
	tests := []struct {
		name    string
		cfg     mapConfig
		wantKey string
	}{
		{"capability flag", mapConfig{"tools.greet.enabled": false}, "tools.greet.enabled"},
		{"capability flag as string", mapConfig{"tools.greet.enabled": "false"}, "tools.greet.enabled"},
		{"type flag", mapConfig{"tools.enabled": false}, "tools.enabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := newTestServer(t, &calls)
			d := New(srv, tt.cfg)

			resp := d.CallTool(context.Background(), "greet", map[string]any{"name": "World"})
			if !resp.IsError || resp.Error.Kind != FailureDisabled {
				t.Fatalf("response = %+v, want disabled", resp)
			}
			var de *DisabledError
			if !errors.As(resp.Err(), &de) || de.Key != tt.wantKey {
				t.Errorf("Err() = %v, want key %s", resp.Err(), tt.wantKey)
			}
			if calls.Load() != 0 {
				t.Errorf("handler called %d times, want 0", calls.Load())
			}
			if diff := cmp.Diff([]string{"greet", "fail", "explode", "returns-validation"}, srv.ListTools()); diff != "" {
				t.Errorf("disabled tool should stay listed (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("nil config enables everything", func(t *testing.T) {
		var calls atomic.Int32
		d := New(newTestServer(t, &calls), nil)
		if resp := d.CallTool(context.Background(), "greet", map[string]any{"name": "x"}); resp.IsError {
			t.Errorf("unexpected failure: %+v", resp.Error)
		}
	})
}

func TestDispatcher_Resource(t *testing.T) {
	var calls atomic.Int32
	d := New(newTestServer(t, &calls), mapConfig{})

	resp := d.ReadResource(context.Background(), "app://config/app.name")
	if resp.IsError {
		t.Fatalf("unexpected failure: %+v", resp.Error)
	}
	content := resp.Value.(*server.ResourceContent)
	if content.Text != "key=app.name" {
		t.Errorf("Text = %q", content.Text)
	}

	if resp := d.ReadResource(context.Background(), "not a uri"); resp.Error.Kind != FailureValidation {
		t.Errorf("invalid URI kind = %q, want validation", resp.Error.Kind)
	}
	if resp := d.ReadResource(context.Background(), "app://missing"); resp.Error.Kind != FailureNotFound {
		t.Errorf("missing resource kind = %q, want not_found", resp.Error.Kind)
	}

	disabled := New(newTestServer(t, &calls), mapConfig{"resources.enabled": "0"})
	if resp := disabled.ReadResource(context.Background(), "app://config"); resp.Error.Kind != FailureDisabled {
		t.Errorf("disabled resource kind = %q, want disabled", resp.Error.Kind)
	}
}

func TestDispatcher_Prompt(t *testing.T) {
	var calls atomic.Int32
	d := New(newTestServer(t, &calls), mapConfig{})

	resp := d.GetPrompt(context.Background(), "debugging", map[string]any{"error_message": "nil pointer"})
	if resp.IsError {
		t.Fatalf("unexpected failure: %+v", resp.Error)
	}
	result := resp.Value.(*server.PromptResult)
	text := result.Messages[0].Content.(server.TextContent).Text
	if text != "Debug: nil pointer" {
		t.Errorf("text = %q", text)
	}

	if resp := d.GetPrompt(context.Background(), "debugging", nil); resp.Error.Kind != FailureValidation {
		t.Errorf("kind = %q, want validation", resp.Error.Kind)
	}
	if resp := d.Dispatch(context.Background(), Request{Kind: "bogus", Name: "x"}); resp.Error.Kind != FailureNotFound {
		t.Errorf("unknown kind = %q, want not_found", resp.Error.Kind)
	}
}

func TestDispatcher_Concurrent(t *testing.T) {
	var calls atomic.Int32
	d := New(newTestServer(t, &calls), mapConfig{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if resp := d.CallTool(context.Background(), "greet", map[string]any{"name": "x"}); resp.IsError {
				t.Errorf("unexpected failure: %+v", resp.Error)
			}
		}()
	}
	wg.Wait()

	if calls.Load() != 50 {
		t.Errorf("calls = %d, want 50", calls.Load())
	}
}

func TestDispatcher_SpanAttributes(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	var calls atomic.Int32
	d := New(newTestServer(t, &calls), mapConfig{})

	ctx, span := tp.Tracer("test").Start(context.Background(), "call")
	d.CallTool(ctx, "ghost", nil)
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.AsString()
	}
	want := map[string]string{
		"mcp.capability.kind": "tool",
		"mcp.capability.name": "ghost",
		"mcp.failure.kind":    "not_found",
	}
	if diff := cmp.Diff(want, attrs); diff != "" {
		t.Errorf("attributes mismatch (-want +got):\n%s", diff)
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		value any
		want  bool
	}{
		{nil, false},
		{true, true},
		{false, false},
		{"true", true},
		{" 1 ", true},
		{"0", false},
		{"off", false},
		{1, true},
		{int32(0), false},
		{int64(-1), true},
		{uint(0), false},
		{uint8(3), true},
		{float32(0), false},
		{0.5, true},
		{0.0, false},
		{[]string{"x"}, true},
	}
	for _, tt := range tests {
		if got := truthy(tt.value); got != tt.want {
			t.Errorf("truthy(%#v) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestDispatch_ZeroOfAnyNumericTypeDisables(t *testing.T) {
	srv := server.New(server.Info{Name: "test"})
	if err := srv.Tool("echo").Enabled("tools.echo.enabled").Handler(func(context.Context, schema.Arguments) (any, error) {
		return "ok", nil
	}).Err(); err != nil {
		t.Fatal(err)
	}

	for _, zero := range []any{uint(0), float32(0), int32(0)} {
		d := New(srv, mapConfig{"tools.echo.enabled": zero})
		resp := d.CallTool(context.Background(), "echo", nil)
		if !resp.IsError || resp.Error.Kind != FailureDisabled {
			t.Errorf("enabled=%#v: got %+v, want disabled failure", zero, resp)
		}
	}
}

// Package dispatch routes capability requests to registered handlers.
//
// Every request walks the same path: look the capability up, check that
// configuration enables it, validate the arguments, then invoke the handler.
// Each step can end the request with a Failure; nothing a handler does,
// including panicking, escapes Dispatch.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/mcp-toolbox/middleware"
	"github.com/felixgeelhaar/mcp-toolbox/schema"
	"github.com/felixgeelhaar/mcp-toolbox/server"
	"github.com/felixgeelhaar/mcp-toolbox/uri"
)

// Kind identifies the capability type of a request.
type Kind string

// Capability kinds.
const (
	KindTool     Kind = "tool"
	KindResource Kind = "resource"
	KindPrompt   Kind = "prompt"
)

// enabledKey returns the type-level configuration key for k.
func (k Kind) enabledKey() string {
	return string(k) + "s.enabled"
}

// Config is the read side of the configuration store.
type Config interface {
	Get(key string, def any) any
}

// Request is an incoming capability invocation. For resources Name holds
// the URI.
type Request struct {
	Kind      Kind
	Name      string
	Arguments map[string]any
}

// Failure is the uniform error payload.
type Failure struct {
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Response is the outcome of a dispatch. Exactly one of Value and Error is
// meaningful, selected by IsError.
type Response struct {
	IsError bool     `json:"isError"`
	Value   any      `json:"value,omitempty"`
	Error   *Failure `json:"error,omitempty"`

	err error
}

// Err returns the typed error behind a failed response, or nil.
func (r *Response) Err() error {
	return r.err
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used for handler failures.
func WithLogger(logger middleware.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// Dispatcher invokes capabilities registered on a server. It holds no
// per-request state and is safe for concurrent use.
type Dispatcher struct {
	srv    *server.Server
	cfg    Config
	logger middleware.Logger
}

// New creates a dispatcher for srv. A nil cfg enables everything.
func New(srv *server.Server, cfg Config, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		srv:    srv,
		cfg:    cfg,
		logger: middleware.NopLogger{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// CallTool dispatches a tool call.
func (d *Dispatcher) CallTool(ctx context.Context, name string, args map[string]any) *Response {
	return d.Dispatch(ctx, Request{Kind: KindTool, Name: name, Arguments: args})
}

// ReadResource dispatches a resource read.
func (d *Dispatcher) ReadResource(ctx context.Context, rawURI string) *Response {
	return d.Dispatch(ctx, Request{Kind: KindResource, Name: rawURI})
}

// GetPrompt dispatches a prompt request.
func (d *Dispatcher) GetPrompt(ctx context.Context, name string, args map[string]any) *Response {
	return d.Dispatch(ctx, Request{Kind: KindPrompt, Name: name, Arguments: args})
}

// Dispatch runs req and converts every failure into a Response.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) *Response {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("mcp.capability.kind", string(req.Kind)),
		attribute.String("mcp.capability.name", req.Name),
	)

	value, err := d.dispatch(ctx, req)
	if err != nil {
		span.SetAttributes(attribute.String("mcp.failure.kind", failureKind(err)))
		return failed(err)
	}
	return &Response{Value: value}
}

func (d *Dispatcher) dispatch(ctx context.Context, req Request) (any, error) {
	switch req.Kind {
	case KindTool:
		tool, ok := d.srv.GetTool(req.Name)
		if !ok {
			return nil, &NotFoundError{Kind: req.Kind, Name: req.Name}
		}
		if err := d.checkEnabled(req, tool.EnabledKey()); err != nil {
			return nil, err
		}
		args, err := tool.InputSchema().Validate(req.Arguments)
		if err != nil {
			return nil, err
		}
		return d.invoke(req, func() (any, error) {
			return tool.Call(ctx, args)
		})

	case KindResource:
		u, err := uri.Parse(req.Name)
		if err != nil {
			return nil, schema.ValidationErrors{{Path: "uri", Rule: schema.RuleType, Message: err.Error()}}
		}
		res, ok := d.srv.FindResource(u)
		if !ok {
			return nil, &NotFoundError{Kind: req.Kind, Name: req.Name}
		}
		if err := d.checkEnabled(req, res.EnabledKey()); err != nil {
			return nil, err
		}
		return d.invoke(req, func() (any, error) {
			return res.Read(ctx, u)
		})

	case KindPrompt:
		prompt, ok := d.srv.GetPrompt(req.Name)
		if !ok {
			return nil, &NotFoundError{Kind: req.Kind, Name: req.Name}
		}
		if err := d.checkEnabled(req, prompt.EnabledKey()); err != nil {
			return nil, err
		}
		args, err := prompt.ArgumentSchema().Validate(req.Arguments)
		if err != nil {
			return nil, err
		}
		return d.invoke(req, func() (any, error) {
			return prompt.Get(ctx, args)
		})
	}

	return nil, &NotFoundError{Kind: req.Kind, Name: req.Name}
}

// checkEnabled consults the type-level flag, then the capability's own.
func (d *Dispatcher) checkEnabled(req Request, key string) error {
	for _, k := range []string{req.Kind.enabledKey(), key} {
		if k == "" || d.cfg == nil {
			continue
		}
		if !truthy(d.cfg.Get(k, true)) {
			return &DisabledError{Kind: req.Kind, Name: req.Name, Key: k}
		}
	}
	return nil
}

func (d *Dispatcher) invoke(req Request, fn func() (any, error)) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, &PanicError{Value: r}
		}
		if err != nil {
			d.logger.Error("capability handler failed",
				middleware.F("kind", string(req.Kind)),
				middleware.F("name", req.Name),
				middleware.F("arguments", req.Arguments),
				middleware.F("error", err.Error()),
			)
			err = &HandlerError{Kind: req.Kind, Name: req.Name, Err: err}
		}
	}()
	return fn()
}

func failed(err error) *Response {
	f := &Failure{Kind: failureKind(err), Message: err.Error()}

	var verrs schema.ValidationErrors
	if f.Kind == FailureValidation && errors.As(err, &verrs) {
		f.Fields = verrs.Fields()
	}
	return &Response{IsError: true, Error: f, err: err}
}

func failureKind(err error) string {
	var (
		handlerErr *HandlerError
		notFound   *NotFoundError
		disabled   *DisabledError
		verrs      schema.ValidationErrors
	)
	switch {
	case errors.As(err, &handlerErr):
		return FailureHandler
	case errors.As(err, &notFound):
		return FailureNotFound
	case errors.As(err, &disabled):
		return FailureDisabled
	case errors.As(err, &verrs):
		return FailureValidation
	default:
		return FailureHandler
	}
}

// truthy interprets configuration values as booleans.
func truthy(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return err == nil && parsed
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	}
	return fmt.Sprint(v) != ""
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/mcp-toolbox/schema"
)

// ToolHandler performs a tool's work on validated arguments.
type ToolHandler func(ctx context.Context, args schema.Arguments) (any, error)

// Tool represents a callable function exposed via MCP.
type Tool struct {
	name        string
	description string
	inputSchema *schema.Schema
	enabledKey  string
	annotations *ToolAnnotations
	handler     ToolHandler
}

// Name returns the tool name.
func (t *Tool) Name() string { return t.name }

// Description returns the tool description.
func (t *Tool) Description() string { return t.description }

// InputSchema returns the tool's input schema.
func (t *Tool) InputSchema() *schema.Schema { return t.inputSchema }

// EnabledKey returns the configuration key gating the tool, or "".
func (t *Tool) EnabledKey() string { return t.enabledKey }

// Annotations returns the tool's behavior hints, or nil.
func (t *Tool) Annotations() *ToolAnnotations { return t.annotations }

// Call runs the handler. Arguments must already be validated.
func (t *Tool) Call(ctx context.Context, args schema.Arguments) (any, error) {
	return t.handler(ctx, args)
}

// ToolBuilder provides a fluent API for building tools.
type ToolBuilder struct {
	tool   *Tool
	server *Server
	err    error
}

// Tool starts building a tool that is registered with s once its handler
// is set.
func (s *Server) Tool(name string) *ToolBuilder {
	b := NewTool(name)
	b.server = s
	return b
}

// NewTool starts building a standalone tool. Finish it with Build.
func NewTool(name string) *ToolBuilder {
	b := &ToolBuilder{tool: &Tool{name: name}}
	if name == "" {
		b.err = errors.New("tool name must not be empty")
	}
	return b
}

// Description sets the tool description.
func (b *ToolBuilder) Description(desc string) *ToolBuilder {
	if b.err != nil {
		return b
	}
	b.tool.description = desc
	return b
}

// Schema sets the input schema from a declaration accepted by schema.New.
func (b *ToolBuilder) Schema(decl map[string]any) *ToolBuilder {
	if b.err != nil {
		return b
	}
	s, err := schema.New(decl)
	if err != nil {
		b.err = fmt.Errorf("tool %q: %w", b.tool.name, err)
		return b
	}
	b.tool.inputSchema = s
	return b
}

// InputSchema sets an already built input schema.
func (b *ToolBuilder) InputSchema(s *schema.Schema) *ToolBuilder {
	if b.err != nil {
		return b
	}
	b.tool.inputSchema = s
	return b
}

// Enabled sets the configuration key that gates the tool.
func (b *ToolBuilder) Enabled(key string) *ToolBuilder {
	if b.err != nil {
		return b
	}
	b.tool.enabledKey = key
	return b
}

// Handler sets the tool handler and, for server builders, registers the
// tool.
func (b *ToolBuilder) Handler(fn ToolHandler) *ToolBuilder {
	if b.err != nil {
		return b
	}
	if fn == nil {
		b.err = fmt.Errorf("tool %q: handler must not be nil", b.tool.name)
		return b
	}
	b.tool.handler = fn
	if b.tool.inputSchema == nil {
		b.tool.inputSchema = &schema.Schema{Type: "object"}
	}
	if b.server != nil {
		b.server.RegisterTool(b.tool)
	}
	return b
}

// Build returns the finished tool.
func (b *ToolBuilder) Build() (*Tool, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.tool.handler == nil {
		return nil, fmt.Errorf("tool %q: handler must be set", b.tool.name)
	}
	return b.tool, nil
}

// Err returns any error that occurred during building.
func (b *ToolBuilder) Err() error {
	return b.err
}

// TypedHandler adapts a function taking a struct to a ToolHandler. The
// validated arguments are decoded into T through JSON.
func TypedHandler[T, R any](fn func(ctx context.Context, input T) (R, error)) ToolHandler {
	return func(ctx context.Context, args schema.Arguments) (any, error) {
		var input T
		raw, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("encode arguments: %w", err)
		}
		if err := json.Unmarshal(raw, &input); err != nil {
			return nil, fmt.Errorf("decode arguments: %w", err)
		}
		return fn(ctx, input)
	}
}

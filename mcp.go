// Package mcp serves a capability registry over the Model Context Protocol.
//
// A Handler speaks JSON-RPC on top of a dispatch.Dispatcher and plugs into
// any transport:
//
//	srv := mcp.NewServer(mcp.ServerInfo{Name: "toolbox", Version: "1.0.0"})
//	srv.Tool("echo").
//	    Schema(map[string]any{"properties": map[string]any{
//	        "text": map[string]any{"type": "string", "required": true},
//	    }}).
//	    Handler(func(ctx context.Context, args schema.Arguments) (any, error) {
//	        return args.String("text"), nil
//	    })
//
//	h := mcp.NewHandler(srv, dispatch.New(srv, cfg),
//	    mcp.WithMiddleware(middleware.DefaultStack(logger)...))
//	mcp.ServeStdio(ctx, h)
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/mcp-toolbox/dispatch"
	"github.com/felixgeelhaar/mcp-toolbox/middleware"
	"github.com/felixgeelhaar/mcp-toolbox/protocol"
	"github.com/felixgeelhaar/mcp-toolbox/server"
	"github.com/felixgeelhaar/mcp-toolbox/transport"
)

// ServerInfo contains server metadata exposed to clients.
type ServerInfo = server.Info

// Server is the capability registry.
type Server = server.Server

// NewServer creates a new capability registry.
func NewServer(info ServerInfo, opts ...server.Option) *Server {
	return server.New(info, opts...)
}

// HandlerOption configures a Handler.
type HandlerOption func(*handlerOptions)

type handlerOptions struct {
	middleware []middleware.Middleware
}

// WithMiddleware wraps request handling in m, outermost first.
func WithMiddleware(m ...middleware.Middleware) HandlerOption {
	return func(o *handlerOptions) {
		o.middleware = append(o.middleware, m...)
	}
}

// Handler maps MCP methods onto a registry and its dispatcher. It
// implements transport.Handler.
type Handler struct {
	srv        *Server
	dispatcher *dispatch.Dispatcher
	handle     middleware.HandlerFunc
}

var _ transport.Handler = (*Handler)(nil)

// NewHandler creates a Handler for srv. Capability invocations go through
// d; list methods read srv directly and include disabled capabilities.
func NewHandler(srv *Server, d *dispatch.Dispatcher, opts ...HandlerOption) *Handler {
	var o handlerOptions
	for _, opt := range opts {
		opt(&o)
	}

	h := &Handler{srv: srv, dispatcher: d}
	h.handle = h.route
	if len(o.middleware) > 0 {
		h.handle = middleware.Chain(o.middleware...)(h.route)
	}
	return h
}

// HandleRequest implements transport.Handler.
func (h *Handler) HandleRequest(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	return h.handle(ctx, req)
}

// ServeStdio serves h over line-delimited JSON on stdin and stdout until
// ctx is done.
func ServeStdio(ctx context.Context, h *Handler, opts ...transport.StdioOption) error {
	return transport.NewStdio(opts...).Serve(ctx, h)
}

// ServeHTTP serves h at POST /mcp on addr until ctx is done.
func ServeHTTP(ctx context.Context, h *Handler, addr string, opts ...transport.HTTPOption) error {
	return transport.NewHTTP(addr, opts...).Serve(ctx, h)
}

// ServeWebSocket serves h over WebSocket on addr until ctx is done.
func ServeWebSocket(ctx context.Context, h *Handler, addr string, opts ...transport.WebSocketOption) error {
	return transport.NewWebSocket(addr, opts...).Serve(ctx, h)
}

func (h *Handler) route(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	switch req.Method {
	case protocol.MethodInitialize:
		return protocol.NewResponse(req.ID, h.initialize()), nil
	case protocol.MethodInitialized:
		return nil, nil
	case protocol.MethodPing:
		return protocol.NewResponse(req.ID, map[string]any{}), nil
	case protocol.MethodToolsList:
		return protocol.NewResponse(req.ID, map[string]any{"tools": h.listTools()}), nil
	case protocol.MethodToolsCall:
		return h.callTool(ctx, req)
	case protocol.MethodResourcesList:
		return protocol.NewResponse(req.ID, map[string]any{"resources": h.listResources()}), nil
	case protocol.MethodResourcesRead:
		return h.readResource(ctx, req)
	case protocol.MethodPromptsList:
		return protocol.NewResponse(req.ID, map[string]any{"prompts": h.listPrompts()}), nil
	case protocol.MethodPromptsGet:
		return h.getPrompt(ctx, req)
	}
	if req.IsNotification() {
		return nil, nil
	}
	return nil, protocol.NewMethodNotFound("method not found: " + req.Method)
}

func (h *Handler) initialize() map[string]any {
	manifest := h.srv.Manifest()

	capabilities := make(map[string]any)
	if manifest.Capabilities.Tools {
		capabilities["tools"] = map[string]any{}
	}
	if manifest.Capabilities.Resources {
		capabilities["resources"] = map[string]any{}
	}
	if manifest.Capabilities.Prompts {
		capabilities["prompts"] = map[string]any{}
	}

	result := map[string]any{
		"protocolVersion": manifest.ProtocolVersion,
		"serverInfo": map[string]any{
			"name":    manifest.Name,
			"version": manifest.Version,
		},
		"capabilities": capabilities,
	}
	if manifest.Instructions != "" {
		result["instructions"] = manifest.Instructions
	}
	return result
}

func (h *Handler) listTools() []map[string]any {
	tools := h.srv.Tools()
	out := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		item := map[string]any{
			"name":        t.Name(),
			"inputSchema": t.InputSchema(),
		}
		if t.Description() != "" {
			item["description"] = t.Description()
		}
		if a := t.Annotations(); a != nil {
			item["annotations"] = a
		}
		out = append(out, item)
	}
	return out
}

func (h *Handler) listResources() []map[string]any {
	resources := h.srv.Resources()
	out := make([]map[string]any, 0, len(resources))
	for _, r := range resources {
		item := map[string]any{
			"uri":  r.URI().String(),
			"name": r.Name(),
		}
		if r.Description() != "" {
			item["description"] = r.Description()
		}
		if r.MimeType() != "" {
			item["mimeType"] = r.MimeType()
		}
		out = append(out, item)
	}
	return out
}

func (h *Handler) listPrompts() []map[string]any {
	prompts := h.srv.Prompts()
	out := make([]map[string]any, 0, len(prompts))
	for _, p := range prompts {
		item := map[string]any{"name": p.Name()}
		if p.Description() != "" {
			item["description"] = p.Description()
		}
		if args := p.Arguments(); len(args) > 0 {
			item["arguments"] = args
		}
		out = append(out, item)
	}
	return out
}

func (h *Handler) callTool(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	var params protocol.CallToolParams
	if err := req.DecodeParams(&params); err != nil {
		return nil, err
	}
	if params.Name == "" {
		return nil, protocol.NewInvalidParams("tool name is required")
	}

	resp := h.dispatcher.CallTool(ctx, params.Name, params.Arguments)
	if resp.IsError {
		return protocol.NewResponse(req.ID, map[string]any{
			"content":           []map[string]any{{"type": "text", "text": resp.Error.Message}},
			"isError":           true,
			"structuredContent": resp.Error,
		}), nil
	}

	text, err := textOf(resp.Value)
	if err != nil {
		return nil, protocol.NewInternalError(err.Error())
	}
	return protocol.NewResponse(req.ID, map[string]any{
		"content": []map[string]any{{"type": "text", "text": text}},
	}), nil
}

func (h *Handler) readResource(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	var params protocol.ReadResourceParams
	if err := req.DecodeParams(&params); err != nil {
		return nil, err
	}
	if params.URI == "" {
		return nil, protocol.NewInvalidParams("resource uri is required")
	}

	resp := h.dispatcher.ReadResource(ctx, params.URI)
	if resp.IsError {
		return nil, failureError(resp.Error)
	}

	var contents []*server.ResourceContent
	if c, ok := resp.Value.(*server.ResourceContent); ok && c != nil {
		contents = append(contents, c)
	}
	return protocol.NewResponse(req.ID, map[string]any{"contents": contents}), nil
}

func (h *Handler) getPrompt(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	var params protocol.GetPromptParams
	if err := req.DecodeParams(&params); err != nil {
		return nil, err
	}
	if params.Name == "" {
		return nil, protocol.NewInvalidParams("prompt name is required")
	}

	resp := h.dispatcher.GetPrompt(ctx, params.Name, params.Arguments)
	if resp.IsError {
		return nil, failureError(resp.Error)
	}
	result, ok := resp.Value.(*server.PromptResult)
	if !ok || result == nil {
		return nil, protocol.NewInternalError(fmt.Sprintf("prompt %q returned no result", params.Name))
	}
	return protocol.NewResponse(req.ID, result), nil
}

// failureError maps a dispatch failure to a JSON-RPC error whose data
// carries the failure kind and any field errors.
func failureError(f *dispatch.Failure) *protocol.Error {
	var e *protocol.Error
	switch f.Kind {
	case dispatch.FailureNotFound:
		e = protocol.NewNotFound(f.Message)
	case dispatch.FailureDisabled:
		e = protocol.NewCapabilityDisabled(f.Message)
	case dispatch.FailureValidation:
		e = protocol.NewValidationFailed(f.Message)
	default:
		e = protocol.NewInternalError(f.Message)
	}

	data := map[string]any{"kind": f.Kind}
	if len(f.Fields) > 0 {
		data["fields"] = f.Fields
	}
	return e.WithData(data)
}

// textOf renders a tool value as text content: strings pass through and
// everything else is encoded as JSON.
func textOf(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	return string(b), nil
}

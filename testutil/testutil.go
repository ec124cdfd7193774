// Package testutil drives a transport.Handler in-process the way an MCP
// client would, for tests of servers built on this module.
//
//	tc := testutil.NewClient(t, mcp.NewHandler(srv, d))
//	text, err := tc.CallTool("echo", map[string]any{"text": "hi"})
package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/felixgeelhaar/mcp-toolbox/protocol"
	"github.com/felixgeelhaar/mcp-toolbox/transport"
)

// Client sends JSON-RPC requests straight to a handler. Requests and
// responses pass through JSON so tests observe the wire shapes.
type Client struct {
	t       testing.TB
	handler transport.Handler
	ctx     context.Context

	mu    sync.Mutex
	reqID int64
}

// Option configures a Client.
type Option func(*Client)

// WithContext sets the context requests run under, for instance one
// carrying protocol.RequestMeta.
func WithContext(ctx context.Context) Option {
	return func(c *Client) {
		c.ctx = ctx
	}
}

// NewClient creates a client for handler.
func NewClient(t testing.TB, handler transport.Handler, opts ...Option) *Client {
	t.Helper()
	c := &Client{t: t, handler: handler, ctx: context.Background()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ToolError is returned by CallTool for results flagged isError.
type ToolError struct {
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool error (%s): %s", e.Kind, e.Message)
}

// Send issues method with params and decodes the result into out, which
// may be nil. A JSON-RPC error is returned as *protocol.Error.
func (c *Client) Send(method string, params, out any) error {
	c.t.Helper()

	c.mu.Lock()
	c.reqID++
	id := c.reqID
	c.mu.Unlock()

	req := &protocol.Request{
		JSONRPC: protocol.JSONRPCVersion,
		ID:      json.RawMessage(fmt.Sprintf("%d", id)),
		Method:  method,
	}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			c.t.Fatalf("encode params: %v", err)
		}
		req.Params = raw
	}

	resp, err := c.handler.HandleRequest(c.ctx, req)
	if err != nil {
		var rpcErr *protocol.Error
		if errors.As(err, &rpcErr) {
			return rpcErr
		}
		return protocol.NewInternalError(err.Error())
	}
	if resp == nil {
		c.t.Fatalf("%s: no response", method)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if out == nil {
		return nil
	}

	raw, err := json.Marshal(resp.Result)
	if err != nil {
		c.t.Fatalf("encode result: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.t.Fatalf("decode %s result: %v", method, err)
	}
	return nil
}

// Initialize performs the handshake and returns the result.
func (c *Client) Initialize() (map[string]any, error) {
	c.t.Helper()
	var out map[string]any
	err := c.Send(protocol.MethodInitialize, map[string]any{
		"protocolVersion": protocol.MCPVersion,
		"clientInfo":      map[string]any{"name": "testutil", "version": "1.0.0"},
	}, &out)
	return out, err
}

// ListTools returns the names of the listed tools.
func (c *Client) ListTools() ([]string, error) {
	c.t.Helper()
	var out struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	if err := c.Send(protocol.MethodToolsList, nil, &out); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(out.Tools))
	for _, t := range out.Tools {
		names = append(names, t.Name)
	}
	return names, nil
}

// CallTool calls name and returns the text of its first content item.
// Tool failures are returned as *ToolError.
func (c *Client) CallTool(name string, args map[string]any) (string, error) {
	c.t.Helper()
	var out struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		IsError           bool       `json:"isError"`
		StructuredContent *ToolError `json:"structuredContent"`
	}
	if err := c.Send(protocol.MethodToolsCall, map[string]any{"name": name, "arguments": args}, &out); err != nil {
		return "", err
	}
	if out.IsError {
		if out.StructuredContent == nil {
			return "", &ToolError{Kind: "unknown"}
		}
		return "", out.StructuredContent
	}
	if len(out.Content) == 0 {
		return "", nil
	}
	return out.Content[0].Text, nil
}

// CallToolJSON calls name and decodes its text content as JSON into v.
func (c *Client) CallToolJSON(name string, args map[string]any, v any) error {
	c.t.Helper()
	text, err := c.CallTool(name, args)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		c.t.Fatalf("decode %s result %q: %v", name, text, err)
	}
	return nil
}

// ReadResource reads uri and returns the text of its first content.
func (c *Client) ReadResource(uri string) (string, error) {
	c.t.Helper()
	var out struct {
		Contents []struct {
			Text string `json:"text"`
		} `json:"contents"`
	}
	if err := c.Send(protocol.MethodResourcesRead, map[string]any{"uri": uri}, &out); err != nil {
		return "", err
	}
	if len(out.Contents) == 0 {
		return "", nil
	}
	return out.Contents[0].Text, nil
}

// GetPrompt renders name and returns the text of its first message.
func (c *Client) GetPrompt(name string, args map[string]any) (string, error) {
	c.t.Helper()
	var out struct {
		Messages []struct {
			Content struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"messages"`
	}
	if err := c.Send(protocol.MethodPromptsGet, map[string]any{"name": name, "arguments": args}, &out); err != nil {
		return "", err
	}
	if len(out.Messages) == 0 {
		return "", nil
	}
	return out.Messages[0].Content.Text, nil
}

// Ping checks liveness.
func (c *Client) Ping() error {
	c.t.Helper()
	return c.Send(protocol.MethodPing, nil, nil)
}

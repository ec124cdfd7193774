// Package sdkbridge exposes a capability registry through the official MCP
// Go SDK server, so the SDK's transports can serve it.
//
// Every call goes through a dispatch.Dispatcher: validation, enablement
// and failure classification behave exactly as on the native transports.
package sdkbridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/felixgeelhaar/mcp-toolbox/dispatch"
	"github.com/felixgeelhaar/mcp-toolbox/schema"
	"github.com/felixgeelhaar/mcp-toolbox/server"
)

// NewServer creates an SDK server described by srv's info with every
// capability of srv mounted.
func NewServer(srv *server.Server, d *dispatch.Dispatcher) *mcp.Server {
	info := srv.Info()
	sdk := mcp.NewServer(&mcp.Implementation{Name: info.Name, Version: info.Version}, &mcp.ServerOptions{
		Instructions: info.Instructions,
	})
	Mount(sdk, srv, d)
	return sdk
}

// Mount registers srv's tools, resources and prompts on sdk. Resources are
// additionally registered as "{uri}/{+path}" templates so descendants of a
// base URI resolve.
func Mount(sdk *mcp.Server, srv *server.Server, d *dispatch.Dispatcher) {
	for _, t := range srv.Tools() {
		tool := &mcp.Tool{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: ToJSONSchema(t.InputSchema()),
		}
		if a := t.Annotations(); a != nil {
			tool.Title = a.Title
			tool.Annotations = &mcp.ToolAnnotations{
				Title:           a.Title,
				ReadOnlyHint:    a.ReadOnlyHint,
				DestructiveHint: a.DestructiveHint,
				IdempotentHint:  a.IdempotentHint,
				OpenWorldHint:   a.OpenWorldHint,
			}
		}
		sdk.AddTool(tool, toolHandler(d, t.Name()))
	}

	for _, r := range srv.Resources() {
		h := resourceHandler(d)
		sdk.AddResource(&mcp.Resource{
			URI:         r.URI().String(),
			Name:        r.Name(),
			Description: r.Description(),
			MIMEType:    r.MimeType(),
		}, h)
		sdk.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: r.URI().String() + "/{+path}",
			Name:        r.Name(),
			Description: r.Description(),
			MIMEType:    r.MimeType(),
		}, h)
	}

	for _, p := range srv.Prompts() {
		args := make([]*mcp.PromptArgument, 0, len(p.Arguments()))
		for _, a := range p.Arguments() {
			args = append(args, &mcp.PromptArgument{Name: a.Name, Description: a.Description, Required: a.Required})
		}
		sdk.AddPrompt(&mcp.Prompt{
			Name:        p.Name(),
			Description: p.Description(),
			Arguments:   args,
		}, promptHandler(d, p.Name()))
	}
}

// ToJSONSchema converts s into the SDK's schema representation.
func ToJSONSchema(s *schema.Schema) *jsonschema.Schema {
	if s == nil {
		return &jsonschema.Schema{Type: "object"}
	}
	js := &jsonschema.Schema{
		Type:        s.Type,
		Description: s.Description,
		Enum:        s.Enum,
		Minimum:     s.Minimum,
		Maximum:     s.Maximum,
	}
	if len(s.Required) > 0 {
		js.Required = append([]string(nil), s.Required...)
	}
	if s.Default != nil {
		if b, err := json.Marshal(s.Default); err == nil {
			js.Default = b
		}
	}
	if s.Items != nil {
		js.Items = ToJSONSchema(s.Items)
	}
	if len(s.Properties) > 0 {
		js.Properties = make(map[string]*jsonschema.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			js.Properties[name] = ToJSONSchema(prop)
		}
	}
	return js
}

func toolHandler(d *dispatch.Dispatcher, name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args map[string]any
		if raw := req.Params.Arguments; len(raw) > 0 {
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, fmt.Errorf("decode arguments: %w", err)
			}
		}

		resp := d.CallTool(ctx, name, args)
		if resp.IsError {
			return &mcp.CallToolResult{
				IsError:           true,
				Content:           []mcp.Content{&mcp.TextContent{Text: resp.Error.Message}},
				StructuredContent: resp.Error,
			}, nil
		}

		text, err := encodeValue(resp.Value)
		if err != nil {
			return nil, err
		}
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, nil
	}
}

func resourceHandler(d *dispatch.Dispatcher) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		resp := d.ReadResource(ctx, req.Params.URI)
		if resp.IsError {
			var notFound *dispatch.NotFoundError
			if errors.As(resp.Err(), &notFound) {
				return nil, mcp.ResourceNotFoundError(req.Params.URI)
			}
			return nil, resp.Err()
		}

		content, _ := resp.Value.(*server.ResourceContent)
		if content == nil {
			return &mcp.ReadResourceResult{}, nil
		}
		rc := &mcp.ResourceContents{URI: content.URI, MIMEType: content.MimeType, Text: content.Text}
		if content.Blob != "" {
			blob, err := base64.StdEncoding.DecodeString(content.Blob)
			if err != nil {
				return nil, fmt.Errorf("decode blob: %w", err)
			}
			rc.Text, rc.Blob = "", blob
		}
		return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{rc}}, nil
	}
}

func promptHandler(d *dispatch.Dispatcher, name string) mcp.PromptHandler {
	return func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		args := make(map[string]any, len(req.Params.Arguments))
		for k, v := range req.Params.Arguments {
			args[k] = v
		}

		resp := d.GetPrompt(ctx, name, args)
		if resp.IsError {
			return nil, resp.Err()
		}
		result, _ := resp.Value.(*server.PromptResult)
		if result == nil {
			return &mcp.GetPromptResult{}, nil
		}

		out := &mcp.GetPromptResult{Description: result.Description}
		for _, m := range result.Messages {
			text, err := encodeValue(m.Content)
			if tc, ok := m.Content.(server.TextContent); ok {
				text, err = tc.Text, nil
			}
			if err != nil {
				return nil, err
			}
			out.Messages = append(out.Messages, &mcp.PromptMessage{
				Role:    mcp.Role(m.Role),
				Content: &mcp.TextContent{Text: text},
			})
		}
		return out, nil
	}
}

// encodeValue renders a handler value as text: strings pass through,
// everything else is JSON.
func encodeValue(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(b), nil
}

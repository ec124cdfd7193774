package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/felixgeelhaar/mcp-toolbox/protocol"
	"github.com/felixgeelhaar/mcp-toolbox/transport"
)

// fakeHandler answers a fixed set of methods.
func fakeHandler() transport.HandlerFunc {
	return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
		switch req.Method {
		case protocol.MethodPing:
			return protocol.NewResponse(req.ID, map[string]any{}), nil
		case protocol.MethodToolsList:
			return protocol.NewResponse(req.ID, map[string]any{
				"tools": []map[string]any{{"name": "a"}, {"name": "b"}},
			}), nil
		case protocol.MethodToolsCall:
			var p protocol.CallToolParams
			if err := json.Unmarshal(req.Params, &p); err != nil {
				return nil, protocol.NewInvalidParams(err.Error())
			}
			if p.Name == "bad" {
				return protocol.NewResponse(req.ID, map[string]any{
					"isError":           true,
					"content":           []map[string]any{{"type": "text", "text": "nope"}},
					"structuredContent": map[string]any{"kind": "handler", "message": "nope"},
				}), nil
			}
			return protocol.NewResponse(req.ID, map[string]any{
				"content": []map[string]any{{"type": "text", "text": `{"meta":"` + protocol.GetRequestMeta(ctx, "x-test") + `"}`}},
			}), nil
		}
		return nil, protocol.NewMethodNotFound(req.Method)
	}
}

func TestClient(t *testing.T) {
	ctx := protocol.ContextWithRequestMeta(context.Background(), protocol.RequestMeta{"x-test": "yes"})
	tc := NewClient(t, fakeHandler(), WithContext(ctx))

	if err := tc.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	names, err := tc.ListTools()
	if err != nil || len(names) != 2 || names[1] != "b" {
		t.Fatalf("ListTools = %v, %v", names, err)
	}

	var out map[string]string
	if err := tc.CallToolJSON("ok", nil, &out); err != nil {
		t.Fatal(err)
	}
	if out["meta"] != "yes" {
		t.Errorf("request meta not propagated: %v", out)
	}

	_, err = tc.CallTool("bad", nil)
	var toolErr *ToolError
	if !errors.As(err, &toolErr) || toolErr.Kind != "handler" {
		t.Errorf("CallTool(bad) error = %v", err)
	}

	err = tc.Send("nope", nil, nil)
	if !errors.Is(err, protocol.NewMethodNotFound("")) {
		t.Errorf("Send(nope) error = %v", err)
	}
}

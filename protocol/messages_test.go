package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestRequest_IsNotification(t *testing.T) {
	if (&Request{ID: json.RawMessage(`1`)}).IsNotification() {
		t.Error("request with id should not be a notification")
	}
	if !(&Request{}).IsNotification() {
		t.Error("request without id should be a notification")
	}
}

func TestRequest_DecodeParams(t *testing.T) {
	t.Run("decodes tool call params", func(t *testing.T) {
		req := &Request{Params: json.RawMessage(`{"name":"cache-operation","arguments":{"operation":"get","key":"k"}}`)}

		var params CallToolParams
		if err := req.DecodeParams(&params); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if params.Name != "cache-operation" {
			t.Errorf("Name = %q, want %q", params.Name, "cache-operation")
		}
		if params.Arguments["key"] != "k" {
			t.Errorf("Arguments[key] = %v, want k", params.Arguments["key"])
		}
	})

	t.Run("empty params leave target untouched", func(t *testing.T) {
		req := &Request{}
		params := ReadResourceParams{URI: "app://logs"}
		if err := req.DecodeParams(&params); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if params.URI != "app://logs" {
			t.Errorf("URI = %q", params.URI)
		}
	})

	t.Run("malformed params are invalid params", func(t *testing.T) {
		req := &Request{Params: json.RawMessage(`{"name":`)}

		var params GetPromptParams
		err := req.DecodeParams(&params)
		if !errors.Is(err, NewInvalidParams("")) {
			t.Fatalf("err = %v, want invalid params", err)
		}
	})
}

func TestResponse_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		resp *Response
		want string
	}{
		{
			name: "success response",
			resp: NewResponse(json.RawMessage(`1`), map[string]string{"status": "ok"}),
			want: `{"jsonrpc":"2.0","id":1,"result":{"status":"ok"}}`,
		},
		{
			name: "error response",
			resp: NewErrorResponse(json.RawMessage(`1`), NewInternalError("failed")),
			want: `{"jsonrpc":"2.0","id":1,"error":{"code":-32603,"message":"failed"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.resp)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("MarshalJSON() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRequestMeta(t *testing.T) {
	ctx := ContextWithRequestMeta(context.Background(), RequestMeta{"Authorization": "Bearer abc"})

	if got := GetRequestMeta(ctx, "authorization"); got != "Bearer abc" {
		t.Errorf("GetRequestMeta = %q, want %q", got, "Bearer abc")
	}

	ctx2 := SetRequestMeta(ctx, "X-Api-Key", "k1")
	if got := GetRequestMeta(ctx2, "x-api-key"); got != "k1" {
		t.Errorf("GetRequestMeta = %q, want %q", got, "k1")
	}
	if got := GetRequestMeta(ctx, "x-api-key"); got != "" {
		t.Errorf("original context was mutated: %q", got)
	}
	if got := GetRequestMeta(context.Background(), "authorization"); got != "" {
		t.Errorf("empty context returned %q", got)
	}
}

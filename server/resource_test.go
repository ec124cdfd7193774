package server

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/felixgeelhaar/mcp-toolbox/uri"
)

func TestResourceBuilder(t *testing.T) {
	t.Run("builds resource", func(t *testing.T) {
		r, err := NewResource("app://routes").
			Name("Routes").
			Description("Registered HTTP routes").
			MimeType("application/json").
			Enabled("resources.route_list.enabled").
			Handler(noopResource).
			Build()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if r.URI().String() != "app://routes" || r.Name() != "Routes" {
			t.Errorf("resource = %s %q", r.URI(), r.Name())
		}
		if r.Description() != "Registered HTTP routes" || r.MimeType() != "application/json" {
			t.Errorf("description/mime = %q %q", r.Description(), r.MimeType())
		}
		if r.EnabledKey() != "resources.route_list.enabled" {
			t.Errorf("EnabledKey = %q", r.EnabledKey())
		}
	})

	t.Run("name defaults to URI", func(t *testing.T) {
		r, err := NewResource("app://logs").Handler(noopResource).Build()
		if err != nil {
			t.Fatal(err)
		}
		if r.Name() != "app://logs" {
			t.Errorf("Name() = %q", r.Name())
		}
	})

	t.Run("invalid URI is reported", func(t *testing.T) {
		srv := New(Info{Name: "test"})
		b := srv.Resource("not a uri").Handler(noopResource)

		var invalid *uri.InvalidError
		if !errors.As(b.Err(), &invalid) {
			t.Errorf("Err() = %v, want *uri.InvalidError", b.Err())
		}
		if srv.HasAnyCapability() {
			t.Error("invalid resource should not be registered")
		}
	})

	t.Run("missing handler is rejected", func(t *testing.T) {
		if _, err := NewResource("app://x").Build(); err == nil {
			t.Error("expected error")
		}
	})
}

func TestResource_Read(t *testing.T) {
	r, err := NewResource("app://config").
		MimeType("application/json").
		Handler(func(ctx context.Context, u *uri.URI) (*ResourceContent, error) {
			key, _ := u.Sub(uri.MustParse("app://config"))
			return &ResourceContent{URI: u.String(), Text: key}, nil
		}).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	content, err := r.Read(context.Background(), uri.MustParse("app://config/app.name"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content.Text != "app.name" {
		t.Errorf("Text = %q", content.Text)
	}
	if content.MimeType != "application/json" {
		t.Errorf("MimeType = %q, want inherited application/json", content.MimeType)
	}
}

func TestJSONContentOf(t *testing.T) {
	u := uri.MustParse("app://routes")

	content, err := JSONContentOf(u, map[string]any{"count": 2})
	if err != nil {
		t.Fatal(err)
	}
	if content.MimeType != "application/json" || !strings.Contains(content.Text, `"count": 2`) {
		t.Errorf("content = %+v", content)
	}

	if _, err := JSONContentOf(u, make(chan int)); err == nil {
		t.Error("expected encode error")
	}
}

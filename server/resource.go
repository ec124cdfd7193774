package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/mcp-toolbox/uri"
)

// ResourceContent represents the content returned by a resource read.
type ResourceContent struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"` // Base64 encoded binary data
}

// TextContentOf builds a text resource content.
func TextContentOf(u *uri.URI, mimeType, text string) *ResourceContent {
	return &ResourceContent{URI: u.String(), MimeType: mimeType, Text: text}
}

// JSONContentOf builds an indented application/json resource content.
func JSONContentOf(u *uri.URI, v any) (*ResourceContent, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode resource %s: %w", u, err)
	}
	return TextContentOf(u, "application/json", string(b)), nil
}

// ResourceHandler reads the resource at u. For base resources u may be a
// descendant of the registered URI.
type ResourceHandler func(ctx context.Context, u *uri.URI) (*ResourceContent, error)

// Resource represents a readable resource exposed via MCP.
type Resource struct {
	uri         *uri.URI
	name        string
	description string
	mimeType    string
	enabledKey  string
	handler     ResourceHandler
}

// URI returns the registered resource URI.
func (r *Resource) URI() *uri.URI { return r.uri }

// Name returns the resource name, defaulting to its URI.
func (r *Resource) Name() string {
	if r.name == "" {
		return r.uri.String()
	}
	return r.name
}

// Description returns the resource description.
func (r *Resource) Description() string { return r.description }

// MimeType returns the MIME type of the resource content.
func (r *Resource) MimeType() string { return r.mimeType }

// EnabledKey returns the configuration key gating the resource, or "".
func (r *Resource) EnabledKey() string { return r.enabledKey }

// Read executes the resource handler. Content without a MIME type inherits
// the resource's.
func (r *Resource) Read(ctx context.Context, u *uri.URI) (*ResourceContent, error) {
	content, err := r.handler(ctx, u)
	if err != nil {
		return nil, err
	}
	if content != nil && content.MimeType == "" {
		content.MimeType = r.mimeType
	}
	return content, nil
}

// ResourceBuilder provides a fluent API for building resources.
type ResourceBuilder struct {
	resource *Resource
	server   *Server
	err      error
}

// Resource starts building a resource that is registered with s once its
// handler is set.
func (s *Server) Resource(rawURI string) *ResourceBuilder {
	b := NewResource(rawURI)
	b.server = s
	return b
}

// NewResource starts building a standalone resource. Finish it with Build.
func NewResource(rawURI string) *ResourceBuilder {
	b := &ResourceBuilder{resource: &Resource{mimeType: "text/plain"}}
	u, err := uri.Parse(rawURI)
	if err != nil {
		b.err = err
		return b
	}
	b.resource.uri = u
	return b
}

// Name sets an optional human-readable name for the resource.
func (b *ResourceBuilder) Name(name string) *ResourceBuilder {
	if b.err != nil {
		return b
	}
	b.resource.name = name
	return b
}

// Description sets the resource description.
func (b *ResourceBuilder) Description(desc string) *ResourceBuilder {
	if b.err != nil {
		return b
	}
	b.resource.description = desc
	return b
}

// MimeType sets the MIME type of the resource content.
func (b *ResourceBuilder) MimeType(mimeType string) *ResourceBuilder {
	if b.err != nil {
		return b
	}
	b.resource.mimeType = mimeType
	return b
}

// Enabled sets the configuration key that gates the resource.
func (b *ResourceBuilder) Enabled(key string) *ResourceBuilder {
	if b.err != nil {
		return b
	}
	b.resource.enabledKey = key
	return b
}

// Handler sets the resource handler and, for server builders, registers
// the resource.
func (b *ResourceBuilder) Handler(fn ResourceHandler) *ResourceBuilder {
	if b.err != nil {
		return b
	}
	if fn == nil {
		b.err = fmt.Errorf("resource %s: handler must not be nil", b.resource.uri)
		return b
	}
	b.resource.handler = fn
	if b.server != nil {
		b.server.RegisterResource(b.resource)
	}
	return b
}

// Build returns the finished resource.
func (b *ResourceBuilder) Build() (*Resource, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.resource.handler == nil {
		return nil, fmt.Errorf("resource %s: handler must be set", b.resource.uri)
	}
	return b.resource, nil
}

// Err returns any error that occurred during building.
func (b *ResourceBuilder) Err() error {
	return b.err
}

package server

import (
	"sync"

	"github.com/felixgeelhaar/mcp-toolbox/protocol"
	"github.com/felixgeelhaar/mcp-toolbox/uri"
)

// Info contains server metadata exposed to clients.
type Info struct {
	Name    string
	Version string
	// Instructions is free-text guidance for the consuming agent.
	Instructions string
}

// Capabilities declares which capability types the server offers.
type Capabilities struct {
	Tools     bool `json:"tools"`
	Resources bool `json:"resources"`
	Prompts   bool `json:"prompts"`
}

// Manifest represents the server manifest returned to clients.
type Manifest struct {
	Name            string       `json:"name"`
	Version         string       `json:"version"`
	ProtocolVersion string       `json:"protocolVersion"`
	Instructions    string       `json:"instructions,omitempty"`
	Capabilities    Capabilities `json:"capabilities"`
}

// Option configures a Server.
type Option func(*Server)

// WithTools registers prebuilt tools.
func WithTools(tools ...*Tool) Option {
	return func(s *Server) {
		for _, t := range tools {
			s.RegisterTool(t)
		}
	}
}

// WithResources registers prebuilt resources.
func WithResources(resources ...*Resource) Option {
	return func(s *Server) {
		for _, r := range resources {
			s.RegisterResource(r)
		}
	}
}

// WithPrompts registers prebuilt prompts.
func WithPrompts(prompts ...*Prompt) Option {
	return func(s *Server) {
		for _, p := range prompts {
			s.RegisterPrompt(p)
		}
	}
}

// Server is the capability registry. Collections only grow, and keep the
// order of first registration.
type Server struct {
	mu sync.RWMutex

	info Info

	tools     []*Tool
	toolIndex map[string]*Tool

	resources     []*Resource
	resourceIndex map[string]*Resource

	prompts     []*Prompt
	promptIndex map[string]*Prompt
}

// New creates a new server with the given info and options.
func New(info Info, opts ...Option) *Server {
	s := &Server{
		info:          info,
		toolIndex:     make(map[string]*Tool),
		resourceIndex: make(map[string]*Resource),
		promptIndex:   make(map[string]*Prompt),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Info returns the server info.
func (s *Server) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

// Manifest returns the server manifest for MCP initialization.
func (s *Server) Manifest() Manifest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Manifest{
		Name:            s.info.Name,
		Version:         s.info.Version,
		ProtocolVersion: protocol.MCPVersion,
		Instructions:    s.info.Instructions,
		Capabilities: Capabilities{
			Tools:     len(s.tools) > 0,
			Resources: len(s.resources) > 0,
			Prompts:   len(s.prompts) > 0,
		},
	}
}

// RegisterTool adds t unless a tool with the same name exists.
// It reports whether t was added.
func (s *Server) RegisterTool(t *Tool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.toolIndex[t.name]; exists {
		return false
	}
	s.toolIndex[t.name] = t
	s.tools = append(s.tools, t)
	return true
}

// RegisterResource adds r unless a resource with the same URI exists.
// It reports whether r was added.
func (s *Server) RegisterResource(r *Resource) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := r.uri.String()
	if _, exists := s.resourceIndex[key]; exists {
		return false
	}
	s.resourceIndex[key] = r
	s.resources = append(s.resources, r)
	return true
}

// RegisterPrompt adds p unless a prompt with the same name exists.
// It reports whether p was added.
func (s *Server) RegisterPrompt(p *Prompt) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.promptIndex[p.name]; exists {
		return false
	}
	s.promptIndex[p.name] = p
	s.prompts = append(s.prompts, p)
	return true
}

// ListTools returns registered tool names in registration order.
func (s *Server) ListTools() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	for i, t := range s.tools {
		names[i] = t.name
	}
	return names
}

// ListResources returns registered resource URIs in registration order.
func (s *Server) ListResources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uris := make([]string, len(s.resources))
	for i, r := range s.resources {
		uris[i] = r.uri.String()
	}
	return uris
}

// ListPrompts returns registered prompt names in registration order.
func (s *Server) ListPrompts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.prompts))
	for i, p := range s.prompts {
		names[i] = p.name
	}
	return names
}

// Tools returns the registered tools in registration order.
func (s *Server) Tools() []*Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Tool(nil), s.tools...)
}

// Resources returns the registered resources in registration order.
func (s *Server) Resources() []*Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Resource(nil), s.resources...)
}

// Prompts returns the registered prompts in registration order.
func (s *Server) Prompts() []*Prompt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Prompt(nil), s.prompts...)
}

// GetTool retrieves a tool by name.
func (s *Server) GetTool(name string) (*Tool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.toolIndex[name]
	return t, ok
}

// GetPrompt retrieves a prompt by name.
func (s *Server) GetPrompt(name string) (*Prompt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.promptIndex[name]
	return p, ok
}

// FindResource finds the resource serving u. An exact URI match wins;
// otherwise the registered resource with the longest URI that u lies below
// is returned.
func (s *Server) FindResource(u *uri.URI) (*Resource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.resourceIndex[u.String()]; ok {
		return r, true
	}

	var best *Resource
	for _, r := range s.resources {
		if _, ok := u.Sub(r.uri); !ok {
			continue
		}
		if best == nil || len(r.uri.String()) > len(best.uri.String()) {
			best = r
		}
	}
	return best, best != nil
}

// HasAnyCapability reports whether at least one tool, resource or prompt
// is registered.
func (s *Server) HasAnyCapability() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tools) > 0 || len(s.resources) > 0 || len(s.prompts) > 0
}

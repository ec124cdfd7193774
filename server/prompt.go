package server

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/felixgeelhaar/mcp-toolbox/schema"
	"github.com/felixgeelhaar/mcp-toolbox/template"
)

// TextContent represents text content in a prompt message.
type TextContent struct {
	Type string `json:"type"` // Always "text"
	Text string `json:"text"`
}

// PromptMessage represents a message in a prompt result.
type PromptMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content any    `json:"content"`
}

// PromptResult is the result of getting a prompt.
type PromptResult struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

// UserText returns a result holding a single user text message.
func UserText(description, text string) *PromptResult {
	return &PromptResult{
		Description: description,
		Messages: []PromptMessage{{
			Role:    "user",
			Content: TextContent{Type: "text", Text: text},
		}},
	}
}

// PromptArgument describes an argument for a prompt.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// PromptHandler builds a prompt from validated arguments.
type PromptHandler func(ctx context.Context, args schema.Arguments) (*PromptResult, error)

// Prompt represents a prompt template exposed via MCP.
type Prompt struct {
	name        string
	description string
	arguments   []PromptArgument
	argSchema   *schema.Schema
	tmpl        *template.Template
	enabledKey  string
	handler     PromptHandler
}

// Name returns the prompt name.
func (p *Prompt) Name() string { return p.name }

// Description returns the prompt description.
func (p *Prompt) Description() string { return p.description }

// Arguments returns the declared arguments in declaration order.
func (p *Prompt) Arguments() []PromptArgument { return p.arguments }

// ArgumentSchema returns the flat schema the arguments validate against.
func (p *Prompt) ArgumentSchema() *schema.Schema { return p.argSchema }

// Template returns the prompt template, or nil.
func (p *Prompt) Template() *template.Template { return p.tmpl }

// EnabledKey returns the configuration key gating the prompt, or "".
func (p *Prompt) EnabledKey() string { return p.enabledKey }

// Get builds the prompt. Without a handler the template is rendered with
// args. Arguments must already be validated.
func (p *Prompt) Get(ctx context.Context, args schema.Arguments) (*PromptResult, error) {
	if p.handler != nil {
		return p.handler(ctx, args)
	}
	return UserText(p.description, p.tmpl.Render(args)), nil
}

// PromptBuilder provides a fluent API for building prompts.
type PromptBuilder struct {
	prompt *Prompt
	decl   map[string]any
	server *Server
	err    error
}

// Prompt starts building a prompt that is registered with s by Handler or
// Register.
func (s *Server) Prompt(name string) *PromptBuilder {
	b := NewPrompt(name)
	b.server = s
	return b
}

// NewPrompt starts building a standalone prompt. Finish it with Build.
func NewPrompt(name string) *PromptBuilder {
	b := &PromptBuilder{prompt: &Prompt{name: name}, decl: make(map[string]any)}
	if name == "" {
		b.err = errors.New("prompt name must not be empty")
	}
	return b
}

// Description sets the prompt description.
func (b *PromptBuilder) Description(desc string) *PromptBuilder {
	if b.err != nil {
		return b
	}
	b.prompt.description = desc
	return b
}

// Argument adds a string argument to the prompt.
func (b *PromptBuilder) Argument(name, description string, required bool) *PromptBuilder {
	if b.err != nil {
		return b
	}
	return b.addArgument(name, map[string]any{
		"type":        "string",
		"description": description,
		"required":    required,
	})
}

// Arguments adds arguments from a flat declaration accepted by
// schema.Flat. They are listed in name order.
func (b *PromptBuilder) Arguments(decl map[string]any) *PromptBuilder {
	if b.err != nil {
		return b
	}
	names := make([]string, 0, len(decl))
	for name := range decl {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.addArgument(name, decl[name])
	}
	return b
}

func (b *PromptBuilder) addArgument(name string, decl any) *PromptBuilder {
	if _, exists := b.decl[name]; exists {
		b.err = fmt.Errorf("prompt %q: duplicate argument %q", b.prompt.name, name)
		return b
	}
	b.decl[name] = decl

	arg := PromptArgument{Name: name}
	if m, ok := decl.(map[string]any); ok {
		arg.Description, _ = m["description"].(string)
		arg.Required, _ = m["required"].(bool)
	}
	b.prompt.arguments = append(b.prompt.arguments, arg)
	return b
}

// Template sets the prompt template and its default values.
func (b *PromptBuilder) Template(text string, defaults map[string]any) *PromptBuilder {
	if b.err != nil {
		return b
	}
	t, err := template.New(text, defaults)
	if err != nil {
		b.err = fmt.Errorf("prompt %q: %w", b.prompt.name, err)
		return b
	}
	b.prompt.tmpl = t
	return b
}

// Enabled sets the configuration key that gates the prompt.
func (b *PromptBuilder) Enabled(key string) *PromptBuilder {
	if b.err != nil {
		return b
	}
	b.prompt.enabledKey = key
	return b
}

// Handler sets the prompt handler and registers the prompt.
func (b *PromptBuilder) Handler(fn PromptHandler) *PromptBuilder {
	if b.err != nil {
		return b
	}
	if fn == nil {
		b.err = fmt.Errorf("prompt %q: handler must not be nil", b.prompt.name)
		return b
	}
	b.prompt.handler = fn
	return b.Register()
}

// Register finalizes a template-backed prompt and, for server builders,
// registers it.
func (b *PromptBuilder) Register() *PromptBuilder {
	if b.err != nil {
		return b
	}
	if err := b.finish(); err != nil {
		b.err = err
		return b
	}
	if b.server != nil {
		b.server.RegisterPrompt(b.prompt)
	}
	return b
}

// Build returns the finished prompt.
func (b *PromptBuilder) Build() (*Prompt, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.finish(); err != nil {
		return nil, err
	}
	return b.prompt, nil
}

// Err returns any error that occurred during building.
func (b *PromptBuilder) Err() error {
	return b.err
}

func (b *PromptBuilder) finish() error {
	if b.prompt.handler == nil && b.prompt.tmpl == nil {
		return fmt.Errorf("prompt %q: a handler or template must be set", b.prompt.name)
	}
	s, err := schema.Flat(b.decl)
	if err != nil {
		return fmt.Errorf("prompt %q: %w", b.prompt.name, err)
	}
	b.prompt.argSchema = s
	return nil
}

package server

// ToolAnnotations are behavior hints clients may use to decide whether a
// call needs confirmation. They are advisory and never enforced.
type ToolAnnotations struct {
	Title string `json:"title,omitempty"`
	// ReadOnlyHint marks a tool without side effects.
	ReadOnlyHint bool `json:"readOnlyHint,omitempty"`
	// DestructiveHint, when false, promises additive changes only.
	// Unset means potentially destructive.
	DestructiveHint *bool `json:"destructiveHint,omitempty"`
	// IdempotentHint marks repeated identical calls as having no extra
	// effect.
	IdempotentHint bool `json:"idempotentHint,omitempty"`
	// OpenWorldHint, when false, marks a tool confined to the host.
	OpenWorldHint *bool `json:"openWorldHint,omitempty"`
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}

func (b *ToolBuilder) annotate(fn func(a *ToolAnnotations)) *ToolBuilder {
	if b.err != nil {
		return b
	}
	if b.tool.annotations == nil {
		b.tool.annotations = &ToolAnnotations{}
	}
	fn(b.tool.annotations)
	return b
}

// Title sets a human-readable display name.
func (b *ToolBuilder) Title(title string) *ToolBuilder {
	return b.annotate(func(a *ToolAnnotations) { a.Title = title })
}

// ReadOnly marks the tool as free of side effects.
func (b *ToolBuilder) ReadOnly() *ToolBuilder {
	return b.annotate(func(a *ToolAnnotations) {
		a.ReadOnlyHint = true
		a.DestructiveHint = Bool(false)
	})
}

// Destructive marks the tool as able to delete or overwrite data.
func (b *ToolBuilder) Destructive() *ToolBuilder {
	return b.annotate(func(a *ToolAnnotations) {
		a.ReadOnlyHint = false
		a.DestructiveHint = Bool(true)
	})
}

// Idempotent marks repeated identical calls as safe.
func (b *ToolBuilder) Idempotent() *ToolBuilder {
	return b.annotate(func(a *ToolAnnotations) { a.IdempotentHint = true })
}

// ClosedWorld marks the tool as touching only the host environment.
func (b *ToolBuilder) ClosedWorld() *ToolBuilder {
	return b.annotate(func(a *ToolAnnotations) { a.OpenWorldHint = Bool(false) })
}

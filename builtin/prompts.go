package builtin

import (
	"context"

	"github.com/felixgeelhaar/mcp-toolbox/guidelines"
	"github.com/felixgeelhaar/mcp-toolbox/schema"
	"github.com/felixgeelhaar/mcp-toolbox/server"
	"github.com/felixgeelhaar/mcp-toolbox/template"
)

// Prompt names. Each doubles as the guideline context it pulls in.
const (
	PromptCodeGeneration = "code-generation"
	PromptDebugging      = "debugging"
	PromptDatabaseDesign = "database-design"
)

const codeGenerationText = `Generate {{type}} code for '{{name}}'.

Requirements:
{{requirements}}

Follow the project's conventions and best practices. Include the necessary imports, error handling and tests.`

const debuggingText = `Help me debug this issue:

Error: {{error_message}}

Context: {{context}}

{{#code_snippet}}Code:
{{code_snippet}}
{{/code_snippet}}

Please provide:
1. Analysis of the error
2. Possible causes
3. Step-by-step solution
4. Prevention tips`

const databaseDesignText = `Help me design a database schema:

Requirements:
{{requirements}}

{{#relationships}}Relationships:
{{relationships}}
{{/relationships}}

{{#existing_schema}}Existing Schema:
{{existing_schema}}
{{/existing_schema}}

Please provide:
1. Table structure with columns and types
2. Migration code
3. Model relationships
4. Indexes and constraints
5. Best practices recommendations`

type promptDef struct {
	name        string
	description string
	enabledKey  string
	args        map[string]any
	text        string
	defaults    map[string]any
}

var promptDefs = []promptDef{
	{
		name:        PromptCodeGeneration,
		description: "Generate code following project conventions",
		enabledKey:  "prompts.code_generation.enabled",
		args: map[string]any{
			"type":         map[string]any{"type": "string", "description": "Type of code to generate (model, controller, component, ...)"},
			"name":         map[string]any{"type": "string", "description": "Name of the thing to generate"},
			"requirements": map[string]any{"type": "string", "description": "Specific requirements or features"},
		},
		text: codeGenerationText,
		defaults: map[string]any{
			"type":         "component",
			"name":         "Component",
			"requirements": "No specific requirements",
		},
	},
	{
		name:        PromptDebugging,
		description: "Help debug errors and issues",
		enabledKey:  "prompts.debugging.enabled",
		args: map[string]any{
			"error_message": map[string]any{"type": "string", "description": "The error message or exception", "required": true},
			"context":       map[string]any{"type": "string", "description": "Additional context about when the error occurs"},
			"code_snippet":  map[string]any{"type": "string", "description": "Relevant code snippet"},
		},
		text: debuggingText,
		defaults: map[string]any{
			"error_message": "No error message provided",
			"context":       "No additional context",
			"code_snippet":  "",
		},
	},
	{
		name:        PromptDatabaseDesign,
		description: "Design database schemas and migrations",
		enabledKey:  "prompts.database_design.enabled",
		args: map[string]any{
			"requirements":    map[string]any{"type": "string", "description": "Database requirements and entities", "required": true},
			"existing_schema": map[string]any{"type": "string", "description": "Existing database schema, if any"},
			"relationships":   map[string]any{"type": "string", "description": "Relationships between entities"},
		},
		text: databaseDesignText,
		defaults: map[string]any{
			"requirements":    "No requirements specified",
			"existing_schema": "",
			"relationships":   "",
		},
	},
}

func (b *builtins) registerPrompts(srv *server.Server) error {
	errs := make([]error, 0, len(promptDefs))
	for _, def := range promptDefs {
		tmpl, err := template.New(def.text, def.defaults)
		if err != nil {
			return err
		}
		errs = append(errs, srv.Prompt(def.name).
			Description(def.description).
			Arguments(def.args).
			Template(def.text, def.defaults).
			Enabled(def.enabledKey).
			Handler(b.renderPrompt(def, tmpl)).Err())
	}
	return firstErr(errs...)
}

// renderPrompt renders the template and, when guidelines are enabled,
// appends those matching the prompt's context.
func (b *builtins) renderPrompt(def promptDef, tmpl *template.Template) server.PromptHandler {
	return func(_ context.Context, args schema.Arguments) (*server.PromptResult, error) {
		text := tmpl.Render(args)
		if svc := b.deps.Guidelines; svc != nil && b.deps.Config.Bool("boost.enabled", false) {
			text += guidelines.Format(svc.ForContext(def.name))
		}
		return server.UserText(def.description, text), nil
	}
}

package builtin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/felixgeelhaar/mcp-toolbox/server"
	"github.com/felixgeelhaar/mcp-toolbox/uri"
)

// Resource URIs.
const (
	ResourceModelSchema = "app://model-schema"
	ResourceRoutes      = "app://routes"
	ResourceConfig      = "app://config"
	ResourceLogs        = "app://logs"
)

const redacted = "[redacted]"

var secretKey = regexp.MustCompile(`(?i)(password|secret|token|dsn|api_?key|private_?key)`)

func (b *builtins) registerResources(srv *server.Server) error {
	return firstErr(
		srv.Resource(ResourceModelSchema).
			Name("Model Schema").
			Description("Database tables, or the columns of app://model-schema/{table}.").
			MimeType("application/json").
			Enabled("resources.model_schema.enabled").
			Handler(b.modelSchema).Err(),

		srv.Resource(ResourceRoutes).
			Name("Route List").
			Description("HTTP routes served by the running transport.").
			MimeType("application/json").
			Enabled("resources.route_list.enabled").
			Handler(b.routes).Err(),

		srv.Resource(ResourceConfig).
			Name("Configuration").
			Description("Configuration values. Address a key as app://config/{key}.").
			MimeType("application/json").
			Enabled("resources.config.enabled").
			Handler(b.config).Err(),

		srv.Resource(ResourceLogs).
			Name("Application Logs").
			Description("The most recent lines of the application log file.").
			MimeType("text/plain").
			Enabled("resources.log.enabled").
			Handler(b.logs).Err(),
	)
}

func (b *builtins) modelSchema(ctx context.Context, u *uri.URI) (*server.ResourceContent, error) {
	db := b.deps.DB
	if db == nil {
		return nil, unavailable(ResourceModelSchema)
	}

	table, _ := u.Sub(uri.MustParse(ResourceModelSchema))
	if table == "" {
		tables, err := db.Tables(ctx)
		if err != nil {
			return nil, err
		}
		return server.JSONContentOf(u, map[string]any{"tables": tables, "count": len(tables)})
	}

	columns, err := db.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	return server.JSONContentOf(u, map[string]any{"table": table, "columns": columns})
}

func (b *builtins) routes(_ context.Context, u *uri.URI) (*server.ResourceContent, error) {
	if b.deps.Routes == nil {
		return nil, unavailable(ResourceRoutes)
	}
	routes, err := b.deps.Routes()
	if err != nil {
		return nil, err
	}
	return server.JSONContentOf(u, map[string]any{"routes": routes, "count": len(routes)})
}

func (b *builtins) config(_ context.Context, u *uri.URI) (*server.ResourceContent, error) {
	key, _ := u.Sub(uri.MustParse(ResourceConfig))
	key = strings.Trim(strings.ReplaceAll(key, "/", "."), ".")
	if key == "" {
		return server.JSONContentOf(u, map[string]any{
			"message": "Use specific config key in URI to get values. Example: app://config/server.name",
			"keys":    b.deps.Config.Keys(),
		})
	}

	value, ok := b.deps.Config.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("config key %q not found", key)
	}
	return server.JSONContentOf(u, map[string]any{"key": key, "value": redact(key, value)})
}

// redact masks values stored under secret-looking keys, descending into
// nested maps.
func redact(key string, value any) any {
	if m, ok := value.(map[string]any); ok {
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = redact(k, v)
		}
		return out
	}
	last := key
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		last = key[i+1:]
	}
	if secretKey.MatchString(last) && value != "" {
		return redacted
	}
	return value
}

func (b *builtins) logs(_ context.Context, u *uri.URI) (*server.ResourceContent, error) {
	path := b.deps.Config.String("log.file", "")
	if path == "" {
		return server.TextContentOf(u, "text/plain", "No log file found."), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return server.TextContentOf(u, "text/plain", "No log file found."), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(data) == 0 {
		lines = nil
	}
	limit := b.deps.Config.Int("resources.log.max_lines", 100)
	shown := lines
	if limit > 0 && len(shown) > limit {
		shown = shown[len(shown)-limit:]
	}

	text := fmt.Sprintf("%s\n\n---\nShowing %d of %d lines", strings.Join(shown, "\n"), len(shown), len(lines))
	return server.TextContentOf(u, "text/plain", text), nil
}

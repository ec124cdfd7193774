// Package server holds the capability registry: the tools, resources and
// prompts a toolbox exposes, in registration order.
//
// Registration is idempotent. A second registration of the same name (or
// resource URI) is ignored and reported as false, so listings never contain
// duplicates. Whether a capability may run is decided at dispatch time from
// configuration; the registry keeps disabled capabilities listed.
//
// # Tools
//
//	srv := server.New(server.Info{Name: "toolbox", Version: "1.0.0"})
//
//	srv.Tool("cache-operation").
//	    Description("Get, set or forget cache entries").
//	    Schema(map[string]any{
//	        "type": "object",
//	        "properties": map[string]any{
//	            "operation": map[string]any{"type": "string", "enum": []any{"get", "set"}, "required": true},
//	            "key":       map[string]any{"type": "string"},
//	        },
//	    }).
//	    Enabled("tools.cache_operation.enabled").
//	    Handler(func(ctx context.Context, args schema.Arguments) (any, error) {
//	        return map[string]any{"key": args.String("key")}, nil
//	    })
//
// # Resources
//
// A resource registered as app://config also serves app://config/app.name;
// FindResource picks the longest registered base.
//
//	srv.Resource("app://config").
//	    MimeType("application/json").
//	    Handler(func(ctx context.Context, u *uri.URI) (*server.ResourceContent, error) {
//	        return server.TextContentOf(u, "application/json", "{}"), nil
//	    })
//
// # Prompts
//
// Prompts render their template with the validated arguments unless a
// handler is set:
//
//	srv.Prompt("greet").
//	    Argument("name", "Name to greet", true).
//	    Template("Hello {{name}}", nil).
//	    Register()
package server

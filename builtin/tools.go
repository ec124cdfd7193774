package builtin

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/felixgeelhaar/mcp-toolbox/backend/queue"
	"github.com/felixgeelhaar/mcp-toolbox/schema"
	"github.com/felixgeelhaar/mcp-toolbox/server"
)

// Tool names.
const (
	ToolDatabaseQuery  = "database-query"
	ToolModelOperation = "model-operation"
	ToolCommand        = "command"
	ToolCacheOperation = "cache-operation"
	ToolQueueJob       = "queue-job"
	ToolFileOperation  = "file-operation"
)

type commandArgs struct {
	Command   string   `json:"command" jsonschema:"required,description=The command to execute"`
	Arguments []string `json:"arguments,omitempty" jsonschema:"description=Command arguments"`
}

func (b *builtins) registerTools(srv *server.Server) error {
	return firstErr(
		srv.Tool(ToolDatabaseQuery).
			Description("Execute a database query and return the results. Supports SELECT queries only.").
			Title("Database Query").
			ReadOnly().
			ClosedWorld().
			Schema(map[string]any{
				"properties": map[string]any{
					"query":    map[string]any{"type": "string", "description": "The SQL query to execute (SELECT only)"},
					"bindings": map[string]any{"type": "array", "description": "Query parameter bindings"},
				},
				"required": []any{"query"},
			}).
			Enabled("tools.database_query.enabled").
			Handler(b.databaseQuery).Err(),

		srv.Tool(ToolModelOperation).
			Description("Perform CRUD operations on database models (create, read, update, delete).").
			Title("Model Operation").
			Destructive().
			ClosedWorld().
			Schema(map[string]any{
				"properties": map[string]any{
					"model":      map[string]any{"type": "string", "description": "The model table name"},
					"operation":  map[string]any{"type": "string", "enum": []any{"create", "read", "update", "delete"}, "description": "The operation to perform: create, read, update, delete"},
					"id":         map[string]any{"type": "integer", "minimum": 1, "description": "Model ID for read, update, or delete operations"},
					"attributes": map[string]any{"type": "object", "description": "Model attributes for create or update operations"},
				},
				"required": []any{"model", "operation"},
			}).
			Enabled("tools.model_operation.enabled").
			Handler(b.modelOperation).Err(),

		srv.Tool(ToolCommand).
			Description("Execute an allowed command. Only commands in the configured allow-list can run.").
			Title("Command").
			Destructive().
			InputSchema(schema.Reflect[commandArgs]()).
			Enabled("tools.command.enabled").
			Handler(b.command).Err(),

		srv.Tool(ToolCacheOperation).
			Description("Perform cache operations (get, set, forget, flush).").
			Title("Cache Operation").
			ClosedWorld().
			Schema(map[string]any{
				"properties": map[string]any{
					"operation": map[string]any{"type": "string", "enum": []any{"get", "set", "forget", "flush"}, "description": "The operation to perform: get, set, forget, flush"},
					"key":       map[string]any{"type": "string", "description": "Cache key (required for get, set, forget)"},
					"value":     map[string]any{"type": "string", "description": "Cache value (required for set)"},
					"ttl":       map[string]any{"type": "integer", "minimum": 0, "description": "Time to live in seconds (optional for set)"},
				},
				"required": []any{"operation"},
			}).
			Enabled("tools.cache_operation.enabled").
			Handler(b.cacheOperation).Err(),

		srv.Tool(ToolQueueJob).
			Description("Dispatch jobs to the queue or check queue status.").
			Title("Queue Job").
			Schema(map[string]any{
				"properties": map[string]any{
					"operation": map[string]any{"type": "string", "enum": []any{"dispatch", "status"}, "description": "The operation to perform: dispatch, status"},
					"job":       map[string]any{"type": "string", "description": "The job name (required for dispatch)"},
					"data":      map[string]any{"type": "object", "description": "Job data (optional for dispatch)"},
					"queue":     map[string]any{"type": "string", "description": "Queue name (optional)"},
				},
				"required": []any{"operation"},
			}).
			Enabled("tools.queue_job.enabled").
			Handler(b.queueJob).Err(),

		srv.Tool(ToolFileOperation).
			Description("Perform file system operations (read, write, delete, list). Only allowed paths can be accessed.").
			Title("File Operation").
			Destructive().
			ClosedWorld().
			Schema(map[string]any{
				"properties": map[string]any{
					"operation": map[string]any{"type": "string", "enum": []any{"read", "write", "delete", "list"}, "description": "The operation to perform: read, write, delete, list"},
					"path":      map[string]any{"type": "string", "description": "File or directory path"},
					"content":   map[string]any{"type": "string", "description": "File content (required for write)"},
				},
				"required": []any{"operation", "path"},
			}).
			Enabled("tools.file_operation.enabled").
			Handler(b.fileOperation).Err(),
	)
}

func (b *builtins) databaseQuery(ctx context.Context, args schema.Arguments) (any, error) {
	if b.deps.DB == nil {
		return nil, unavailable(ToolDatabaseQuery)
	}
	if d := b.deps.Config.Duration("tools.database_query.max_query_time", 30*time.Second); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	res, err := b.deps.DB.Select(ctx, args.String("query"), args.Slice("bindings"))
	if err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return res, nil
}

func (b *builtins) modelOperation(ctx context.Context, args schema.Arguments) (any, error) {
	db := b.deps.DB
	if db == nil {
		return nil, unavailable(ToolModelOperation)
	}

	model := args.String("model")
	if allowed := b.deps.Config.Strings("tools.model_operation.allowed_models"); len(allowed) > 0 && !slices.Contains(allowed, model) {
		return nil, fmt.Errorf("model %q is not in the allowed list", model)
	}
	id, hasID := args.Int("id")
	attrs := args.Map("attributes")
	if attrs == nil {
		attrs = map[string]any{}
	}

	requireID := func(op string) error {
		if !hasID {
			return fmt.Errorf("id is required for %s operation", op)
		}
		return nil
	}

	op := args.String("operation")
	switch op {
	case "create":
		row, err := db.Create(ctx, model, attrs)
		if err != nil {
			return nil, err
		}
		return map[string]any{"operation": op, "success": true, "model": row}, nil
	case "read":
		if !hasID {
			rows, err := db.All(ctx, model)
			if err != nil {
				return nil, err
			}
			return map[string]any{"operation": op, "success": true, "models": rows, "count": len(rows)}, nil
		}
		row, err := db.Find(ctx, model, id)
		if err != nil {
			return nil, err
		}
		return map[string]any{"operation": op, "success": true, "model": row}, nil
	case "update":
		if err := requireID(op); err != nil {
			return nil, err
		}
		row, err := db.Update(ctx, model, id, attrs)
		if err != nil {
			return nil, err
		}
		return map[string]any{"operation": op, "success": true, "model": row}, nil
	case "delete":
		if err := requireID(op); err != nil {
			return nil, err
		}
		if err := db.Delete(ctx, model, id); err != nil {
			return nil, err
		}
		return map[string]any{
			"operation": op,
			"success":   true,
			"message":   fmt.Sprintf("Model with ID %d deleted successfully.", id),
		}, nil
	}
	return nil, fmt.Errorf("unknown operation: %s", op)
}

func (b *builtins) command(ctx context.Context, args schema.Arguments) (any, error) {
	if b.deps.Commands == nil {
		return nil, unavailable(ToolCommand)
	}
	name := args.String("command")
	if allowed := b.deps.Config.Strings("tools.command.allowed_commands"); !slices.Contains(allowed, name) {
		return nil, fmt.Errorf("command %q is not in the allowed list", name)
	}

	var cmdArgs []string
	for _, a := range args.Slice("arguments") {
		if s, ok := a.(string); ok {
			cmdArgs = append(cmdArgs, s)
		}
	}
	return b.deps.Commands.Run(ctx, name, cmdArgs)
}

func (b *builtins) cacheOperation(ctx context.Context, args schema.Arguments) (any, error) {
	store := b.deps.Cache
	if store == nil {
		return nil, unavailable(ToolCacheOperation)
	}

	op := args.String("operation")
	key := args.String("key")
	if op != "flush" && key == "" {
		return nil, fmt.Errorf("key is required for %s operation", op)
	}

	switch op {
	case "get":
		value, found, err := store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		return map[string]any{"operation": op, "key": key, "value": value, "found": found}, nil
	case "set":
		if !args.Has("value") {
			return nil, errors.New("value is required for set operation")
		}
		ttl, _ := args.Int("ttl")
		if err := store.Set(ctx, key, args["value"], time.Duration(ttl)*time.Second); err != nil {
			return nil, err
		}
		return map[string]any{"operation": op, "key": key, "success": true}, nil
	case "forget":
		if _, err := store.Forget(ctx, key); err != nil {
			return nil, err
		}
		return map[string]any{"operation": op, "key": key, "success": true}, nil
	case "flush":
		if err := store.Flush(ctx); err != nil {
			return nil, err
		}
		return map[string]any{"operation": op, "success": true, "message": "All cache cleared."}, nil
	}
	return nil, fmt.Errorf("unknown operation: %s", op)
}

func (b *builtins) queueJob(ctx context.Context, args schema.Arguments) (any, error) {
	q := b.deps.Queue
	if q == nil {
		return nil, unavailable(ToolQueueJob)
	}

	op := args.String("operation")
	switch op {
	case "dispatch":
		job := queue.Job{Name: args.String("job"), Queue: args.String("queue"), Data: args.Map("data")}
		if job.Name == "" {
			return nil, errors.New("job is required for dispatch operation")
		}
		id, err := q.Dispatch(ctx, job)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"operation": op,
			"job":       job.Name,
			"id":        id,
			"success":   true,
			"message":   "Job dispatched successfully.",
		}, nil
	case "status":
		status, err := q.Status(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"operation": op, "status": status}, nil
	}
	return nil, fmt.Errorf("unknown operation: %s", op)
}

func (b *builtins) fileOperation(_ context.Context, args schema.Arguments) (any, error) {
	fs := b.deps.Files
	if fs == nil {
		return nil, unavailable(ToolFileOperation)
	}

	op := args.String("operation")
	path := args.String("path")
	switch op {
	case "read":
		content, err := fs.Read(path)
		if err != nil {
			return nil, err
		}
		return map[string]any{"operation": op, "path": path, "content": content.Content, "size": content.Size}, nil
	case "write":
		if !args.Has("content") {
			return nil, errors.New("content is required for write operation")
		}
		if err := fs.Write(path, args.String("content")); err != nil {
			return nil, err
		}
		return map[string]any{"operation": op, "path": path, "success": true}, nil
	case "delete":
		if err := fs.Delete(path); err != nil {
			return nil, err
		}
		return map[string]any{"operation": op, "path": path, "success": true}, nil
	case "list":
		listing, err := fs.List(path)
		if err != nil {
			return nil, err
		}
		return map[string]any{"operation": op, "path": path, "files": listing.Files, "directories": listing.Directories}, nil
	}
	return nil, fmt.Errorf("unknown operation: %s", op)
}

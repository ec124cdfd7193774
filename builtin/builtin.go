// Package builtin provides the stock tools, resources and prompts of the
// toolbox: SQL access, cache, queue, files and commands, plus schema, route,
// config and log resources and three prompt templates.
//
// Register installs all of them. Each is gated by its own configuration key
// (for example "tools.cache_operation.enabled") at dispatch time, so
// disabling one never removes it from listings.
package builtin

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/mcp-toolbox/backend/cache"
	"github.com/felixgeelhaar/mcp-toolbox/backend/command"
	"github.com/felixgeelhaar/mcp-toolbox/backend/files"
	"github.com/felixgeelhaar/mcp-toolbox/backend/queue"
	"github.com/felixgeelhaar/mcp-toolbox/backend/sqldb"
	"github.com/felixgeelhaar/mcp-toolbox/config"
	"github.com/felixgeelhaar/mcp-toolbox/guidelines"
	"github.com/felixgeelhaar/mcp-toolbox/server"
	"github.com/felixgeelhaar/mcp-toolbox/transport"
)

// ErrUnavailable is returned by a built-in whose backend was not provided.
var ErrUnavailable = errors.New("backend not configured")

// Deps are the collaborators built-ins call into. Any backend may be nil;
// the capabilities that need it then fail with ErrUnavailable.
type Deps struct {
	Config     *config.Store
	DB         *sqldb.DB
	Cache      cache.Store
	Queue      queue.Queue
	Files      *files.FS
	Commands   *command.Runner
	Guidelines *guidelines.Service
	// Routes lists the routes of the running HTTP transport.
	Routes func() ([]transport.Route, error)
}

// Register adds every built-in capability to srv.
func Register(srv *server.Server, deps Deps) error {
	if deps.Config == nil {
		deps.Config = config.NewStore(nil)
	}
	b := &builtins{deps: deps}

	for _, register := range []func(*server.Server) error{
		b.registerTools,
		b.registerResources,
		b.registerPrompts,
	} {
		if err := register(srv); err != nil {
			return fmt.Errorf("builtin: %w", err)
		}
	}
	return nil
}

type builtins struct {
	deps Deps
}

func unavailable(name string) error {
	return fmt.Errorf("%s: %w", name, ErrUnavailable)
}

// firstErr returns the first builder error.
func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

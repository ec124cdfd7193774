// Command mcp-toolbox serves the built-in application tools, resources and
// prompts over MCP. All settings come from the environment; see the config
// package.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	toolbox "github.com/felixgeelhaar/mcp-toolbox"
	"github.com/felixgeelhaar/mcp-toolbox/backend/cache"
	"github.com/felixgeelhaar/mcp-toolbox/backend/command"
	"github.com/felixgeelhaar/mcp-toolbox/backend/files"
	"github.com/felixgeelhaar/mcp-toolbox/backend/queue"
	"github.com/felixgeelhaar/mcp-toolbox/backend/sqldb"
	"github.com/felixgeelhaar/mcp-toolbox/builtin"
	"github.com/felixgeelhaar/mcp-toolbox/config"
	"github.com/felixgeelhaar/mcp-toolbox/dispatch"
	"github.com/felixgeelhaar/mcp-toolbox/guidelines"
	"github.com/felixgeelhaar/mcp-toolbox/middleware"
	"github.com/felixgeelhaar/mcp-toolbox/protocol"
	"github.com/felixgeelhaar/mcp-toolbox/sdkbridge"
	"github.com/felixgeelhaar/mcp-toolbox/server"
	"github.com/felixgeelhaar/mcp-toolbox/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mcp-toolbox: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store := cfg.Store()

	slogger, closeLog, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := middleware.NewSlogLogger(slogger)

	db, err := sqldb.Open(cfg.Database.Driver, cfg.Database.DSN, sqldb.WithMaxQueryTime(cfg.Tools.MaxQueryTime))
	if err != nil {
		return err
	}
	defer db.Close()

	fs, err := files.New(cfg.Files.Root, cfg.Tools.AllowedPaths)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	var (
		cacheStore cache.Store
		jobs       queue.Queue
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if cacheStore, err = cache.NewRedis(cache.RedisConfig{Client: rdb, KeyPrefix: cfg.Redis.KeyPrefix + "cache:"}); err != nil {
			return err
		}
		if jobs, err = queue.NewRedis(queue.RedisConfig{Client: rdb, KeyPrefix: cfg.Redis.KeyPrefix + "queue:"}); err != nil {
			return err
		}
		slogger.Info("using redis cache and queue", "addr", cfg.Redis.Addr)
	} else {
		mem := queue.NewMemory(queue.WithLogger(logger))
		for _, name := range cfg.Queue.Jobs {
			mem.Handle(name, logJob(logger))
		}
		g.Go(func() error { return mem.Run(ctx) })
		cacheStore, jobs = cache.NewMemory(), mem
	}

	var svc *guidelines.Service
	if cfg.Boost.Enabled {
		svc = guidelines.NewService()
		if err := svc.Load(cfg.Boost.GuidelinesPath); err != nil {
			return err
		}
		if info, err := os.Stat(cfg.Boost.GuidelinesPath); err == nil && info.IsDir() {
			g.Go(func() error { return guidelines.Watch(ctx, svc, cfg.Boost.GuidelinesPath, logger) })
		}
	}

	srv := server.New(server.Info{
		Name:         cfg.Server.Name,
		Version:      cfg.Server.Version,
		Instructions: cfg.Server.Instructions,
	})
	d := dispatch.New(srv, store, dispatch.WithLogger(logger))

	stack, err := middlewareStack(ctx, cfg, logger)
	if err != nil {
		return err
	}
	handler := toolbox.NewHandler(srv, d, toolbox.WithMiddleware(stack...))

	deps := builtin.Deps{
		Config:     store,
		DB:         db,
		Cache:      cacheStore,
		Queue:      jobs,
		Files:      fs,
		Commands:   command.New(cfg.Tools.AllowedCommands, command.WithDir(fs.Root())),
		Guidelines: svc,
	}

	var serve func(context.Context) error
	switch cfg.Transport.Kind {
	case "stdio":
		serve = func(ctx context.Context) error { return toolbox.ServeStdio(ctx, handler) }
	case "http":
		h := transport.NewHTTP(cfg.Transport.Addr, transport.WithMaxBodyBytes(cfg.Transport.MaxRequestBytes))
		deps.Routes = func() ([]transport.Route, error) { return transport.Routes(h.Router(handler)) }
		serve = func(ctx context.Context) error { return h.Serve(ctx, handler) }
	case "websocket":
		serve = func(ctx context.Context) error { return toolbox.ServeWebSocket(ctx, handler, cfg.Transport.Addr) }
	case "sdk-stdio":
		serve = func(ctx context.Context) error {
			return sdkbridge.NewServer(srv, d).Run(ctx, &mcp.StdioTransport{})
		}
	default:
		return fmt.Errorf("unknown transport %q", cfg.Transport.Kind)
	}

	if err := builtin.Register(srv, deps); err != nil {
		return err
	}

	slogger.Info("serving", "transport", cfg.Transport.Kind, "name", cfg.Server.Name, "version", cfg.Server.Version)
	g.Go(func() error {
		err := serve(ctx)
		stop()
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// middlewareStack assembles recovery, request IDs, timeouts, logging,
// size and rate limits, optional JWT auth and telemetry.
func middlewareStack(ctx context.Context, cfg *config.Config, logger middleware.Logger) ([]middleware.Middleware, error) {
	stack := middleware.DefaultStackWithTimeout(logger, cfg.Transport.RequestTimeout)
	stack = append(stack, middleware.SizeLimit(cfg.Transport.MaxRequestBytes, logger))

	if cfg.Transport.RateLimit > 0 {
		stack = append(stack, middleware.RateLimit(cfg.Transport.RateLimit, cfg.Transport.RateBurst,
			middleware.WithRateLimitKey(middleware.CapabilityKey),
			middleware.WithRateLimitLogger(logger),
		))
	}

	jwtCfg := middleware.JWTConfig{Issuer: cfg.Transport.JWTIssuer}
	var verifier *middleware.JWTVerifier
	var err error
	switch {
	case cfg.Transport.JWKSURL != "":
		verifier, err = middleware.NewJWKSVerifier(ctx, cfg.Transport.JWKSURL, jwtCfg)
	case cfg.Transport.JWTSecret != "":
		verifier, err = middleware.NewHMACVerifier([]byte(cfg.Transport.JWTSecret), jwtCfg)
	}
	if err != nil {
		return nil, err
	}
	if verifier != nil {
		stack = append(stack, middleware.Auth(
			middleware.BearerTokenAuthenticator(verifier.Verify),
			middleware.WithAuthLogger(logger),
			middleware.WithAuthSkipMethods(protocol.MethodInitialize, protocol.MethodInitialized, protocol.MethodPing),
		))
	}

	return append(stack, middleware.OTel(middleware.WithOTelServiceName(cfg.Server.Name))), nil
}

// newLogger writes JSON logs to stderr and, when configured, to the log
// file the app://logs resource reads.
func newLogger(cfg config.LogConfig) (*slog.Logger, func(), error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}

	var w io.Writer = os.Stderr
	closeFn := func() {}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(os.Stderr, f)
		closeFn = func() { _ = f.Close() }
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), closeFn, nil
}

func logJob(logger middleware.Logger) queue.Handler {
	return func(_ context.Context, env queue.Envelope) error {
		logger.Info("job processed",
			middleware.F("id", env.ID),
			middleware.F("job", env.Name),
			middleware.F("queue", env.Queue),
		)
		return nil
	}
}

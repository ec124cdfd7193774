// Package e2e exercises the assembled toolbox: built-in capabilities behind
// the middleware stack, served by the JSON-RPC handler.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	mcp "github.com/felixgeelhaar/mcp-toolbox"
	"github.com/felixgeelhaar/mcp-toolbox/backend/cache"
	"github.com/felixgeelhaar/mcp-toolbox/backend/command"
	"github.com/felixgeelhaar/mcp-toolbox/backend/files"
	"github.com/felixgeelhaar/mcp-toolbox/backend/queue"
	"github.com/felixgeelhaar/mcp-toolbox/backend/sqldb"
	"github.com/felixgeelhaar/mcp-toolbox/builtin"
	"github.com/felixgeelhaar/mcp-toolbox/config"
	"github.com/felixgeelhaar/mcp-toolbox/dispatch"
	"github.com/felixgeelhaar/mcp-toolbox/middleware"
	"github.com/felixgeelhaar/mcp-toolbox/protocol"
	"github.com/felixgeelhaar/mcp-toolbox/server"
	"github.com/felixgeelhaar/mcp-toolbox/testutil"
	"github.com/felixgeelhaar/mcp-toolbox/transport"
)

const token = "e2e-token"

type toolbox struct {
	handler *mcp.Handler
	http    *transport.HTTP
	cfg     *config.Store
}

func newToolbox(t *testing.T) *toolbox {
	t.Helper()
	ctx := context.Background()

	db, err := sqldb.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "e2e.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(ctx, `CREATE TABLE tasks (id INTEGER PRIMARY KEY AUTOINCREMENT, title TEXT NOT NULL, done INTEGER DEFAULT 0)`)
	require.NoError(t, err)

	fs, err := files.New(t.TempDir(), nil)
	require.NoError(t, err)

	q := queue.NewMemory()
	q.Handle("reindex", func(context.Context, queue.Envelope) error { return nil })

	cfg := config.NewStore(map[string]any{
		"server.name":          "e2e",
		"transport.jwt_secret": "do-not-leak",
	})

	srv := server.New(server.Info{Name: "e2e", Version: "0.0.1"})
	tb := &toolbox{http: transport.NewHTTP("127.0.0.1:0"), cfg: cfg}

	stack := append(middleware.DefaultStack(middleware.NopLogger{}),
		middleware.Auth(
			middleware.BearerTokenAuthenticator(middleware.StaticTokens(map[string]*middleware.Identity{
				token: {ID: "tester"},
			})),
			middleware.WithAuthSkipMethods(protocol.MethodInitialize, protocol.MethodPing),
		),
	)
	tb.handler = mcp.NewHandler(srv, dispatch.New(srv, cfg), mcp.WithMiddleware(stack...))

	require.NoError(t, builtin.Register(srv, builtin.Deps{
		Config:   cfg,
		DB:       db,
		Cache:    cache.NewMemory(),
		Queue:    q,
		Files:    fs,
		Commands: command.New(nil),
		Routes: func() ([]transport.Route, error) {
			return transport.Routes(tb.http.Router(tb.handler))
		},
	}))
	return tb
}

func (tb *toolbox) client(t *testing.T) *testutil.Client {
	ctx := protocol.ContextWithRequestMeta(context.Background(), protocol.RequestMeta{"authorization": "Bearer " + token})
	return testutil.NewClient(t, tb.handler, testutil.WithContext(ctx))
}

func TestHandshake(t *testing.T) {
	tb := newToolbox(t)
	anon := testutil.NewClient(t, tb.handler)

	out, err := anon.Initialize()
	require.NoError(t, err)
	require.Equal(t, protocol.MCPVersion, out["protocolVersion"])
	require.NoError(t, anon.Ping())

	_, err = anon.ListTools()
	require.ErrorIs(t, err, protocol.NewUnauthorized(""))

	names, err := tb.client(t).ListTools()
	require.NoError(t, err)
	require.Len(t, names, 6)
}

func TestModelLifecycle(t *testing.T) {
	tc := newToolbox(t).client(t)

	var created struct {
		Model map[string]any `json:"model"`
	}
	require.NoError(t, tc.CallToolJSON(builtin.ToolModelOperation, map[string]any{
		"model":      "tasks",
		"operation":  "create",
		"attributes": map[string]any{"title": "write tests"},
	}, &created))
	require.Equal(t, "write tests", created.Model["title"])

	var query struct {
		Results []map[string]any `json:"results"`
		Count   int              `json:"count"`
	}
	require.NoError(t, tc.CallToolJSON(builtin.ToolDatabaseQuery, map[string]any{
		"query": "SELECT title FROM tasks WHERE done = 0",
	}, &query))
	require.Equal(t, 1, query.Count)

	schemaText, err := tc.ReadResource("app://model-schema/tasks")
	require.NoError(t, err)
	require.Contains(t, schemaText, `"done"`)

	_, err = tc.CallTool(builtin.ToolDatabaseQuery, map[string]any{"query": "DROP TABLE tasks"})
	var toolErr *testutil.ToolError
	require.True(t, errors.As(err, &toolErr))
	require.Equal(t, dispatch.FailureHandler, toolErr.Kind)
}

func TestCapabilityGating(t *testing.T) {
	tb := newToolbox(t)
	tc := tb.client(t)

	tb.cfg.Set("tools.enabled", false)
	_, err := tc.CallTool(builtin.ToolCacheOperation, map[string]any{"operation": "flush"})
	var toolErr *testutil.ToolError
	require.True(t, errors.As(err, &toolErr))
	require.Equal(t, dispatch.FailureDisabled, toolErr.Kind)
	tb.cfg.Set("tools.enabled", true)

	_, err = tc.CallTool(builtin.ToolCommand, map[string]any{"command": "ls"})
	require.True(t, errors.As(err, &toolErr))
	require.Contains(t, toolErr.Message, "not in the allowed list")

	tb.cfg.Set("prompts.debugging.enabled", "false")
	_, err = tc.GetPrompt(builtin.PromptDebugging, map[string]any{"error_message": "x"})
	require.ErrorIs(t, err, protocol.NewCapabilityDisabled(""))
}

func TestResourcesOverHTTP(t *testing.T) {
	tb := newToolbox(t)
	ts := httptest.NewServer(tb.http.Router(tb.handler))
	defer ts.Close()

	post := func(method string, params any) map[string]any {
		body, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": 1, "method": method, "params": params})
		require.NoError(t, err)
		req, err := http.NewRequest(http.MethodPost, ts.URL+"/mcp", bytes.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out
	}

	contents := func(out map[string]any) string {
		result := out["result"].(map[string]any)
		return result["contents"].([]any)[0].(map[string]any)["text"].(string)
	}

	routes := contents(post("resources/read", map[string]any{"uri": "app://routes"}))
	require.Contains(t, routes, `"/mcp"`)
	require.Contains(t, routes, `"/health"`)

	secret := contents(post("resources/read", map[string]any{"uri": "app://config/transport/jwt_secret"}))
	require.NotContains(t, secret, "do-not-leak")

	missing := post("resources/read", map[string]any{"uri": "app://nowhere"})
	rpcErr := missing["error"].(map[string]any)
	require.Equal(t, float64(protocol.CodeNotFound), rpcErr["code"])
	require.Equal(t, dispatch.FailureNotFound, rpcErr["data"].(map[string]any)["kind"])
}

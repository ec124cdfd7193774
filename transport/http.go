package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/felixgeelhaar/mcp-toolbox/protocol"
)

var jsonMediaType = contenttype.NewMediaType("application/json")

// HTTP serves JSON-RPC requests posted to /mcp. Request headers are exposed
// to handlers as protocol.RequestMeta.
type HTTP struct {
	addr         string
	readTimeout  time.Duration
	writeTimeout time.Duration
	maxBodyBytes int64
	corsConfig   *CORSConfig
	shutdown     ShutdownConfig

	mu         sync.RWMutex
	listenAddr string
	server     *http.Server
}

// HTTPOption configures the HTTP transport.
type HTTPOption func(*HTTP)

// WithReadTimeout sets the read timeout for HTTP requests.
func WithReadTimeout(d time.Duration) HTTPOption {
	return func(h *HTTP) {
		h.readTimeout = d
	}
}

// WithWriteTimeout sets the write timeout for HTTP responses.
func WithWriteTimeout(d time.Duration) HTTPOption {
	return func(h *HTTP) {
		h.writeTimeout = d
	}
}

// WithMaxBodyBytes caps the size of a request body.
func WithMaxBodyBytes(n int64) HTTPOption {
	return func(h *HTTP) {
		h.maxBodyBytes = n
	}
}

// NewHTTP creates a new HTTP transport.
func NewHTTP(addr string, opts ...HTTPOption) *HTTP {
	h := &HTTP{
		addr:         addr,
		readTimeout:  30 * time.Second,
		writeTimeout: 30 * time.Second,
		maxBodyBytes: 4 << 20,
		shutdown:     DefaultShutdownConfig(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Addr returns the configured address.
func (h *HTTP) Addr() string {
	return h.addr
}

// ListenAddr returns the actual address the server is listening on.
func (h *HTTP) ListenAddr() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.listenAddr
}

// Serve starts the HTTP server. When ctx is done, in-flight requests are
// drained before the listener closes.
func (h *HTTP) Serve(ctx context.Context, handler Handler) error {
	sm := NewShutdownManager(h.shutdown)

	listener, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	h.mu.Lock()
	h.listenAddr = listener.Addr().String()
	h.server = &http.Server{
		Handler:      h.router(handler, sm),
		ReadTimeout:  h.readTimeout,
		WriteTimeout: h.writeTimeout,
	}
	server := h.server
	h.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		drainErr := sm.Shutdown(context.Background())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdown.Timeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return drainErr
	case err := <-errCh:
		return err
	}
}

// Router returns the chi router the transport serves, for mounting into
// another server or for tests.
func (h *HTTP) Router(handler Handler) chi.Router {
	return h.router(handler, NewShutdownManager(h.shutdown))
}

func (h *HTTP) router(handler Handler, sm *ShutdownManager) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	if h.corsConfig != nil {
		r.Use(CORS(*h.corsConfig))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		status, code := "ok", http.StatusOK
		if sm.IsDraining() {
			status, code = "draining", http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]string{"status": status})
	})
	r.Post("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if !sm.TrackRequest() {
			http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
			return
		}
		defer sm.CompleteRequest()
		h.handleMCP(w, r, handler)
	})
	return r
}

func (h *HTTP) handleMCP(w http.ResponseWriter, r *http.Request, handler Handler) {
	mediaType, err := contenttype.GetMediaType(r)
	if err != nil || !mediaType.Matches(jsonMediaType) {
		http.Error(w, "content type must be application/json", http.StatusUnsupportedMediaType)
		return
	}

	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	var req protocol.Request
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		writeJSON(w, http.StatusOK, protocol.NewErrorResponse(nil, protocol.NewParseError("invalid JSON")))
		return
	}

	ctx := protocol.ContextWithRequestMeta(r.Context(), headerMeta(r))
	resp := dispatch(ctx, handler, &req)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// headerMeta flattens request headers into lower-cased metadata, keeping
// the first value of each.
func headerMeta(r *http.Request) protocol.RequestMeta {
	meta := make(protocol.RequestMeta, len(r.Header)+1)
	for name, values := range r.Header {
		if len(values) > 0 {
			meta[strings.ToLower(name)] = values[0]
		}
	}
	meta["remote-addr"] = r.RemoteAddr
	return meta
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Route is one method and pattern registered on a router.
type Route struct {
	Method  string `json:"method"`
	Pattern string `json:"pattern"`
}

// Routes lists every route registered on r, sorted by pattern then method.
func Routes(r chi.Routes) ([]Route, error) {
	var routes []Route
	err := chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, Route{Method: method, Pattern: route})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Pattern != routes[j].Pattern {
			return routes[i].Pattern < routes[j].Pattern
		}
		return routes[i].Method < routes[j].Method
	})
	return routes, nil
}

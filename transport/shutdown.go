package transport

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// ShutdownConfig configures graceful shutdown of the HTTP transport.
type ShutdownConfig struct {
	// Timeout bounds the wait for in-flight requests. Default: 30 seconds.
	Timeout time.Duration

	// DrainDelay is waited before new requests are rejected, letting load
	// balancers take the instance out of rotation.
	DrainDelay time.Duration
}

// DefaultShutdownConfig returns the default shutdown settings.
func DefaultShutdownConfig() ShutdownConfig {
	return ShutdownConfig{Timeout: 30 * time.Second}
}

// ShutdownManager counts in-flight requests and rejects new ones once
// draining starts.
type ShutdownManager struct {
	config ShutdownConfig

	draining  atomic.Bool
	inFlight  atomic.Int64
	doneCh    chan struct{}
	closeOnce sync.Once
}

// NewShutdownManager creates a new shutdown manager.
func NewShutdownManager(config ShutdownConfig) *ShutdownManager {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &ShutdownManager{
		config: config,
		doneCh: make(chan struct{}),
	}
}

// IsDraining reports whether new requests are being rejected.
func (sm *ShutdownManager) IsDraining() bool {
	return sm.draining.Load()
}

// InFlightRequests returns the number of in-flight requests.
func (sm *ShutdownManager) InFlightRequests() int64 {
	return sm.inFlight.Load()
}

// TrackRequest registers a request. It returns false while draining.
func (sm *ShutdownManager) TrackRequest() bool {
	if sm.draining.Load() {
		return false
	}
	sm.inFlight.Add(1)
	return true
}

// CompleteRequest marks a tracked request as finished.
func (sm *ShutdownManager) CompleteRequest() {
	sm.inFlight.Add(-1)
}

// Shutdown starts draining and waits until no requests are in flight or
// the timeout passes.
func (sm *ShutdownManager) Shutdown(ctx context.Context) error {
	defer sm.closeOnce.Do(func() { close(sm.doneCh) })

	if sm.config.DrainDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sm.config.DrainDelay):
		}
	}
	sm.draining.Store(true)

	ctx, cancel := context.WithTimeout(ctx, sm.config.Timeout)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for sm.inFlight.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Done is closed once Shutdown returns.
func (sm *ShutdownManager) Done() <-chan struct{} {
	return sm.doneCh
}

// WithShutdown sets the drain behavior used when Serve's context ends.
func WithShutdown(config ShutdownConfig) HTTPOption {
	return func(h *HTTP) {
		if config.Timeout == 0 {
			config.Timeout = 30 * time.Second
		}
		h.shutdown = config
	}
}

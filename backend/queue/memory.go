package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/mcp-toolbox/middleware"
)

// Handler processes one job.
type Handler func(ctx context.Context, env Envelope) error

// Memory is an in-process Queue. Jobs are processed in dispatch order by
// Run; only job names with a registered Handler are accepted.
type Memory struct {
	logger middleware.Logger
	jobs   chan Envelope

	mu        sync.Mutex
	handlers  map[string]Handler
	pending   map[string]int64
	processed int64
	failed    int64
}

// MemoryOption configures a Memory queue.
type MemoryOption func(*Memory)

// WithLogger logs job failures.
func WithLogger(l middleware.Logger) MemoryOption {
	return func(m *Memory) {
		m.logger = l
	}
}

// WithCapacity sets how many jobs may wait before Dispatch blocks.
func WithCapacity(n int) MemoryOption {
	return func(m *Memory) {
		m.jobs = make(chan Envelope, n)
	}
}

// NewMemory creates an in-memory queue.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		logger:   middleware.NopLogger{},
		jobs:     make(chan Envelope, 1024),
		handlers: make(map[string]Handler),
		pending:  make(map[string]int64),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handle registers the handler for jobs called name.
func (m *Memory) Handle(name string, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[name] = h
}

// Dispatch enqueues job.
func (m *Memory) Dispatch(ctx context.Context, job Job) (string, error) {
	m.mu.Lock()
	_, ok := m.handlers[job.Name]
	m.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownJob, job.Name)
	}

	env := envelope(job, time.Now())
	m.mu.Lock()
	m.pending[env.Queue]++
	m.mu.Unlock()

	select {
	case m.jobs <- env:
		return env.ID, nil
	case <-ctx.Done():
		m.mu.Lock()
		m.pending[env.Queue]--
		m.mu.Unlock()
		return "", ctx.Err()
	}
}

// Status reports pending, processed and failed counts.
func (m *Memory) Status(context.Context) (*Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pending := make(map[string]int64, len(m.pending))
	for q, n := range m.pending {
		if n > 0 {
			pending[q] = n
		}
	}
	return &Status{
		Driver:    "memory",
		Pending:   pending,
		Processed: m.processed,
		Failed:    m.failed,
	}, nil
}

// Run processes jobs until ctx is done.
func (m *Memory) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case env := <-m.jobs:
			m.process(ctx, env)
		}
	}
}

func (m *Memory) process(ctx context.Context, env Envelope) {
	m.mu.Lock()
	h := m.handlers[env.Name]
	m.mu.Unlock()

	err := runHandler(ctx, h, env)

	m.mu.Lock()
	m.pending[env.Queue]--
	if err != nil {
		m.failed++
	} else {
		m.processed++
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.Error("job failed",
			middleware.F("job_id", env.ID),
			middleware.F("job", env.Name),
			middleware.F("queue", env.Queue),
			middleware.F("error", err.Error()),
		)
	}
}

func runHandler(ctx context.Context, h Handler, env Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(ctx, env)
}

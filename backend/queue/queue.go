// Package queue is the job backend behind the queue-job tool.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultQueue is used when a job names no queue.
const DefaultQueue = "default"

// ErrUnknownJob is returned when dispatching a job kind nobody handles.
var ErrUnknownJob = errors.New("queue: unknown job")

// Job is a unit of work to dispatch.
type Job struct {
	Name  string         `json:"job"`
	Queue string         `json:"queue,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// Envelope is a dispatched job as it sits on a queue.
type Envelope struct {
	ID           string         `json:"id"`
	Name         string         `json:"job"`
	Queue        string         `json:"queue"`
	Data         map[string]any `json:"data,omitempty"`
	DispatchedAt time.Time      `json:"dispatched_at"`
}

// Status summarizes a queue backend.
type Status struct {
	Driver    string           `json:"driver"`
	Pending   map[string]int64 `json:"pending"`
	Processed int64            `json:"processed"`
	Failed    int64            `json:"failed"`
}

// Queue accepts jobs for asynchronous processing.
type Queue interface {
	// Dispatch enqueues job and returns its ID.
	Dispatch(ctx context.Context, job Job) (string, error)
	// Status reports pending counts per queue.
	Status(ctx context.Context) (*Status, error)
}

// envelope stamps job with a ULID and the default queue when none is set.
func envelope(job Job, now time.Time) Envelope {
	q := job.Queue
	if q == "" {
		q = DefaultQueue
	}
	return Envelope{
		ID:           ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Name:         job.Name,
		Queue:        q,
		Data:         job.Data,
		DispatchedAt: now.UTC(),
	}
}

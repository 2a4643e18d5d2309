package port

import (
	"context"
	"time"
)

// Task is a background work item with a stable type identifier and opaque
// payload bytes. Payload encoding is up to callers.
type Task struct {
	Type    string
	Payload []byte
}

// Handler processes a Task. Returning a non-nil error signals the broker to
// redeliver per its retry policy, so handlers must be idempotent.
type Handler func(ctx context.Context, task Task) error

// EnqueueOption controls enqueue behavior. Zero values mean "unspecified";
// adapters map supported fields to the underlying backend as best-effort.
type EnqueueOption struct {
	Queue     string        // logical queue name
	MaxRetry  int           // redeliveries before the task is dead-lettered
	Retention time.Duration // keep result metadata for this duration
}

// Client enqueues tasks for background processing. Ping verifies broker
// connectivity so callers can fail closed before mutating their own state.
type Client interface {
	Enqueue(ctx context.Context, t Task, opts ...EnqueueOption) (id string, err error)
	Ping(ctx context.Context) error
	Close() error
}

// Server runs background workers that handle tasks. Run blocks until the
// context is canceled.
type Server interface {
	Register(taskType string, h Handler)
	Run(ctx context.Context) error
	Stop(ctx context.Context) error
}

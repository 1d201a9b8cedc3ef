// Package store holds completed asynchronous results between the worker's
// executor and the futures that collect them. Entries may be evicted by TTL
// (both backends) or by entry count (memory backend); resolving an evicted
// task fails explicitly rather than hanging or returning a stale value.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when no entry exists for the task id,
	// either because it was evicted or never stored.
	ErrNotFound = errors.New("result not found")

	// ErrDuplicate is returned by Put when a result already exists for the
	// task id. At most one result is ever produced per task; a duplicate
	// write is a bug in the runtime, not a user-facing condition.
	ErrDuplicate = errors.New("result already stored")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store closed")
)

// Result is one completed task outcome. Exactly one of Value/Error is
// meaningful, selected by OK.
type Result struct {
	OK    bool   `json:"ok"`
	Value any    `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// Store is the keyed result store contract shared by the in-process and
// Redis backends.
type Store interface {
	// Put stores the result for a task id. Putting twice for one id fails
	// with ErrDuplicate.
	Put(ctx context.Context, taskID string, res *Result) error

	// Get returns the stored result, or ErrNotFound when absent or evicted.
	Get(ctx context.Context, taskID string) (*Result, error)

	// Close releases backend resources.
	Close() error
}

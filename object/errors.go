package object

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection is returned when a worker cannot be started or reached.
	ErrConnection = errors.New("worker unreachable")

	// ErrNotFound is returned when a call references an object id the worker
	// does not know about (for example after deletion).
	ErrNotFound = errors.New("object not found")

	// ErrUnregisteredClass is returned when a creation request names a class
	// the target worker was not launched with.
	ErrUnregisteredClass = errors.New("class not registered")

	// ErrUnknownMethod is returned when an invocation names a method the
	// class does not declare.
	ErrUnknownMethod = errors.New("unknown method")

	// ErrPrivateMethod is returned when a remote call names a method marked
	// private. Private methods are never remotely invocable.
	ErrPrivateMethod = errors.New("method is private")

	// ErrEvicted is returned when a future is resolved after its result was
	// evicted from the worker's result store.
	ErrEvicted = errors.New("result evicted")

	// ErrSerialization is returned when arguments or results cannot cross
	// the transport boundary.
	ErrSerialization = errors.New("not serializable")
)

// RemoteError carries an error raised inside a relocated object's method.
// It is reported to the call site that triggered it; the hosting worker and
// its other objects are unaffected.
type RemoteError struct {
	Method  string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote method %s failed: %s", e.Method, e.Message)
}

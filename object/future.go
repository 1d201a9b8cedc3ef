package object

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tethergo-dev/tethergo/proto"
)

// Future represents the not-yet-available result of an asynchronous method
// call. It holds only (worker address, task id); the value lives in the
// worker's result store until fetched.
//
// Resolution blocks until the worker produces a value — there is no timeout
// at this layer. A remote method that never returns blocks the resolving
// caller forever; cancel the context to give up.
type Future struct {
	addr   string
	taskID string
	client proto.ObjectServiceClient

	mu   sync.Mutex
	done bool
	val  any
	err  error
}

// Polling starts tight and backs off; results are usually ready within a
// few round trips.
const (
	futurePollMin = 2 * time.Millisecond
	futurePollMax = 100 * time.Millisecond
)

// TaskID returns the pending task's id.
func (f *Future) TaskID() string { return f.taskID }

// Addr returns the worker the task runs on.
func (f *Future) Addr() string { return f.addr }

// Resolve blocks until the result is available and returns it. The value is
// cached: repeated calls return it immediately without touching the result
// store again. An evicted result fails with ErrEvicted; an error raised
// inside the remote method surfaces as *RemoteError.
func (f *Future) Resolve(ctx context.Context) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.done {
		return f.val, f.err
	}

	delay := futurePollMin
	for {
		resp, err := f.client.FetchResult(ctx, &proto.FetchRequest{TaskID: f.taskID})
		if err != nil {
			return nil, fromStatus(err, "fetch "+f.taskID)
		}

		switch resp.Status {
		case proto.TaskPending:
			// fall through to wait
		case proto.TaskOK:
			f.done, f.val = true, resp.Result
			return f.val, nil
		case proto.TaskFailed:
			f.done, f.err = true, &RemoteError{Method: "task " + f.taskID, Message: resp.Error}
			return nil, f.err
		case proto.TaskEvicted:
			f.done, f.err = true, fmt.Errorf("%w: task %s", ErrEvicted, f.taskID)
			return nil, f.err
		default:
			return nil, fmt.Errorf("task %s: unknown status %q", f.taskID, resp.Status)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		if delay *= 2; delay > futurePollMax {
			delay = futurePollMax
		}
	}
}

// Get resolves the future if needed and returns the named entry of a
// composite mapping result. Callers holding a future over a composite value
// never need to call Resolve themselves.
func (f *Future) Get(ctx context.Context, key string) (any, error) {
	val, err := f.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	m, ok := val.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("task %s: result is %T, not a mapping", f.taskID, val)
	}
	return m[key], nil
}

// Index resolves the future if needed and returns the i-th entry of a
// composite sequence result.
func (f *Future) Index(ctx context.Context, i int) (any, error) {
	val, err := f.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	s, ok := val.([]any)
	if !ok {
		return nil, fmt.Errorf("task %s: result is %T, not a sequence", f.taskID, val)
	}
	if i < 0 || i >= len(s) {
		return nil, fmt.Errorf("task %s: index %d out of range %d", f.taskID, i, len(s))
	}
	return s[i], nil
}

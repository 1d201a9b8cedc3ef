package worker_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tethergo-dev/tethergo/object"
)

// Five agents, one slow method each. Locally the calls run inline and the
// latencies add up; relocated to a worker they overlap and the wall time is
// roughly one method's latency.
func TestRelocatedAgentsRunInParallel(t *testing.T) {
	if testing.Short() {
		t.Skip("timing-sensitive")
	}

	ctx := context.Background()
	const agents = 5
	const delayMs = 150

	w, reg := startGadgetWorker(t)

	// Baseline: local handles, serial execution.
	start := time.Now()
	for i := 0; i < agents; i++ {
		local, err := reg.New(ctx, "Gadget", object.A(fmt.Sprintf("local-%d", i)))
		require.NoError(t, err)
		v, err := local.Call(ctx, "SlowEcho", object.A(i, delayMs))
		require.NoError(t, err)
		assert.EqualValues(t, i, v)
	}
	serial := time.Since(start)

	// Relocated: dispatch all five, then collect.
	start = time.Now()
	futures := make([]*object.Future, agents)
	for i := 0; i < agents; i++ {
		remote, err := reg.NewRemote(ctx, "Gadget", object.A(fmt.Sprintf("remote-%d", i)), object.ToWorker(w.Addr()))
		require.NoError(t, err)
		f, err := remote.CallFuture(ctx, "SlowEcho", object.A(i, delayMs))
		require.NoError(t, err)
		futures[i] = f
	}
	for i, f := range futures {
		v, err := f.Resolve(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, i, v)
	}
	parallel := time.Since(start)

	assert.GreaterOrEqual(t, serial, agents*delayMs*time.Millisecond)
	assert.Less(t, parallel, serial/2,
		"five overlapping calls must beat five serial ones: serial=%v parallel=%v", serial, parallel)
}

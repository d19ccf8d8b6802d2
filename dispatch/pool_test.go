package dispatch

import (
	"bytes"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamwoolhether/oneshot/observability"
)

func TestPool_MoreTasksThanWorkers(t *testing.T) {
	const workers, tasks = 2, 50

	p := NewPool(workers)
	t.Cleanup(p.Close)

	var (
		running, peak atomic.Int32
		done          atomic.Int32
		wg            sync.WaitGroup
	)

	wg.Add(tasks)
	for range tasks {
		err := p.Execute(func() {
			defer wg.Done()

			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			running.Add(-1)
			done.Add(1)
		})
		require.NoError(t, err)
	}

	waitOrFail(t, &wg, 5*time.Second)

	assert.EqualValues(t, tasks, done.Load())
	assert.LessOrEqual(t, peak.Load(), int32(workers), "more tasks ran at once than there are workers")
	assert.Zero(t, p.Pending())
}

func TestPool_FIFO(t *testing.T) {
	p := NewPool(1)
	t.Cleanup(p.Close)

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)

	gate, started := make(chan struct{}), make(chan struct{})
	wg.Add(1)
	require.NoError(t, p.Execute(func() {
		defer wg.Done()
		close(started)
		<-gate
	}))
	<-started

	for i := range 10 {
		wg.Add(1)
		require.NoError(t, p.Execute(func() {
			defer wg.Done()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
	}

	assert.Equal(t, 10, p.Pending())
	close(gate)
	waitOrFail(t, &wg, 5*time.Second)

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestPool_ExecuteDoesNotBlock(t *testing.T) {
	p := NewPool(1)

	gate := make(chan struct{})
	require.NoError(t, p.Execute(func() { <-gate }))

	start := time.Now()
	for range 1000 {
		require.NoError(t, p.Execute(func() {}))
	}
	assert.Less(t, time.Since(start), time.Second)

	close(gate)
	p.Close()
	assert.Zero(t, p.Pending())
}

func TestPool_Close(t *testing.T) {
	p := NewPool(2)

	var ran atomic.Int32
	for range 20 {
		require.NoError(t, p.Execute(func() { ran.Add(1) }))
	}

	p.Close()
	assert.EqualValues(t, 20, ran.Load(), "Close must drain queued tasks")

	assert.ErrorIs(t, p.Execute(func() {}), ErrPoolClosed)
	assert.ErrorIs(t, Submit(p, func() (int, error) { return 0, nil }).Err(), ErrPoolClosed)

	p.Close()
}

func TestPool_PanicDoesNotKillWorker(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)

	p := NewPool(1, WithLogger(logger), WithMetrics(m))
	t.Cleanup(p.Close)

	var wg sync.WaitGroup
	wg.Add(2)
	require.NoError(t, p.Execute(func() {
		defer wg.Done()
		panic("first")
	}))

	var ran atomic.Bool
	require.NoError(t, p.Execute(func() {
		defer wg.Done()
		ran.Store(true)
	}))

	waitOrFail(t, &wg, 5*time.Second)
	p.Close()

	assert.True(t, ran.Load())
	assert.Contains(t, buf.String(), "dispatched task panicked")

	const want = `
# HELP oneshot_dispatch_panics_total Tasks that panicked and were recovered.
# TYPE oneshot_dispatch_panics_total counter
oneshot_dispatch_panics_total{policy="bounded_pool"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, bytes.NewBufferString(want), "oneshot_dispatch_panics_total"))
}

func TestPool_Size(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		want    int
	}{
		{"positive", 3, 3},
		{"zero", 0, 1},
		{"negative", -4, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPool(tt.workers)
			defer p.Close()

			assert.Equal(t, tt.want, p.Size())
		})
	}
}

func TestShared(t *testing.T) {
	p := Shared()
	require.Same(t, p, Shared())
	assert.Equal(t, DefaultPoolSize(), p.Size())

	p.Close()

	f := Submit(p, func() (string, error) { return "still open", nil })
	got, err := f.Wait()
	require.NoError(t, err)
	assert.Equal(t, "still open", got)
}

func waitOrFail(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("tasks did not finish within %v", d)
	}
}

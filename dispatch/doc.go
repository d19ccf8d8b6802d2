// Package dispatch runs work off the caller's goroutine under one of two
// policies.
//
// # Low-priority dispatch
//
// [Go] starts a dedicated goroutine per call, pinned to its own OS thread
// with background scheduling priority where the platform allows it. It is
// fire-and-forget: there is no back-pressure and no limit, so a flood of
// calls creates a flood of threads. Use it for occasional background work
// that must not compete with latency-sensitive goroutines.
//
// # Bounded pool
//
// A [Pool] runs a fixed number of background-priority workers that drain
// an unbounded FIFO queue. Submitting never blocks the caller; work beyond
// the worker count waits in the queue. [Shared] returns the process-wide
// pool sized to the CPU count plus one.
//
// # Results
//
// [Async] and [Submit] wrap a function returning (T, error) in a [Future].
// A panic inside the function is recovered, delivered as a [*PanicError],
// and never takes down the worker.
//
// Neither policy offers cancellation; work that needs it must watch its
// own context.
package dispatch

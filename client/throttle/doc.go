// Package throttle rate-limits request execution with a token bucket from
// [golang.org/x/time/rate].
//
// A single [Limiter] is shared by every request of a client and wraps each
// per-call transport:
//
//	l, err := throttle.New(throttle.Config{RPS: 10, Burst: 5}, slog.Default())
//	rt := l.Wrap(http.DefaultTransport)
//
// When tokens are exhausted, a request blocks until one becomes available
// or its context ends.
package throttle

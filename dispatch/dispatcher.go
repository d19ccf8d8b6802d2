package dispatch

import (
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/adamwoolhether/oneshot/observability"
)

// Metric labels for the two dispatch policies.
const (
	PolicyLowPriority = "low_priority"
	PolicyBoundedPool = "bounded_pool"
)

// Dispatcher starts low-priority goroutines. The zero value is not usable;
// create one with [NewDispatcher] or use the package-level [Go].
type Dispatcher struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

func NewDispatcher(optFns ...Option) *Dispatcher {
	o := applyOptions(optFns)

	return &Dispatcher{
		logger:  o.logger,
		metrics: o.metrics,
	}
}

// Go runs fn on a new goroutine pinned to a background-priority OS thread
// and returns immediately. A panic in fn is recovered and logged.
func (d *Dispatcher) Go(fn func()) {
	if fn == nil {
		return
	}

	d.metrics.TaskStarted(PolicyLowPriority)

	go func() {
		lowerPriority(d.logger)

		panicked := run(d.logger, PolicyLowPriority, fn)
		d.metrics.TaskFinished(PolicyLowPriority, panicked)
	}()
}

var background = sync.OnceValue(func() *Dispatcher { return NewDispatcher() })

// Go runs fn with low priority using a dispatcher that logs to
// slog.Default and records no metrics.
func Go(fn func()) {
	background().Go(fn)
}

// run calls fn, reporting whether it panicked.
func run(logger *slog.Logger, policy string, fn func()) (panicked bool) {
	defer func() {
		if rec := recover(); rec != nil {
			panicked = true
			logger.Error("dispatched task panicked",
				"policy", policy,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
		}
	}()

	fn()

	return false
}

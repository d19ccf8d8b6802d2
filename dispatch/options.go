package dispatch

import (
	"log/slog"

	"github.com/adamwoolhether/oneshot/observability"
)

// Option configures a [Dispatcher] or [Pool].
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// WithLogger sets the logger used to report recovered panics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics records task counts, in-flight gauges and queue depth.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func applyOptions(optFns []Option) options {
	var o options
	for _, opt := range optFns {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

package client

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/oneshot/client/throttle"
	"github.com/adamwoolhether/oneshot/config"
	"github.com/adamwoolhether/oneshot/dispatch"
	"github.com/adamwoolhether/oneshot/observability"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error
type options struct {
	rt                http.RoundTripper
	timeout           *time.Duration
	userAgent         string
	connectTimeout    time.Duration
	readTimeout       time.Duration
	usesCache         bool
	throttle          *throttle.Config
	noFollowRedirects bool
	logger            *slog.Logger
	metrics           *observability.Metrics
	tracerProvider    trace.TracerProvider
	pool              *dispatch.Pool
	poolSize          int
}

// WithTransport replaces the per-call transport. Requests executed through
// rt ignore their connect and read timeouts and the process-wide TLS
// settings; rt is used as is.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		c.rt = rt
		return nil
	}
}

// WithTimeout bounds each execution, body read included, on top of the
// per-request connect and read timeouts.
func WithTimeout(d time.Duration) Option {
	return func(c *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		c.timeout = &d
		return nil
	}
}

// WithUserAgent sets the User-Agent preloaded into requests built with
// [Client.NewRequest].
func WithUserAgent(header string) Option {
	return func(c *options) error {
		c.userAgent = header
		return nil
	}
}

// WithThrottle enables token-bucket rate limiting with the given requests per second and burst capacity.
func WithThrottle(rps, burst int) Option {
	return func(c *options) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, throttle.ErrMustNotBeZero)
		}
		c.throttle = &throttle.Config{RPS: rps, Burst: burst}
		return nil
	}
}

// WithNoFollowRedirects returns 3xx responses to the caller instead of
// following them.
func WithNoFollowRedirects() Option {
	return func(c *options) error {
		c.noFollowRedirects = true
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(c *options) error {
		c.logger = logger
		return nil
	}
}

// WithMetrics records request and dispatch metrics into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *options) error {
		if m == nil {
			return errors.New("metrics must not be nil")
		}
		c.metrics = m
		return nil
	}
}

// WithTracerProvider opens a client span for every execution.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *options) error {
		c.tracerProvider = tp
		return nil
	}
}

// WithPool runs [Client.Submit] work on p instead of [dispatch.Shared].
// The caller keeps ownership of p.
func WithPool(p *dispatch.Pool) Option {
	return func(c *options) error {
		if p == nil {
			return errors.New("pool must not be nil")
		}
		c.pool = p
		return nil
	}
}

// WithConfig applies cfg's request defaults, redirect policy, throttle and
// pool size. Options after it override its values. cfg.KeepAlive only
// takes effect through [InitTransport].
func WithConfig(cfg config.Config) Option {
	return func(c *options) error {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("validating config: %w", err)
		}

		c.userAgent = cfg.UserAgent
		c.connectTimeout = cfg.ConnectTimeout
		c.readTimeout = cfg.ReadTimeout
		c.usesCache = cfg.UsesCache
		c.noFollowRedirects = !cfg.FollowRedirects
		c.poolSize = cfg.PoolSize

		if cfg.Throttle.Enabled() {
			tc := cfg.Throttle
			c.throttle = &tc
		}

		return nil
	}
}

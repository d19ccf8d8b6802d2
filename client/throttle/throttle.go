package throttle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrMustNotBeZero = errors.New("must be greater than zero")
	ErrWaitingFailed = errors.New("limiter waiting failed")
	ErrContextEnded  = errors.New("throttle context ended")
)

// Config defines the throttler's requests per second and burst size.
type Config struct {
	RPS   int `yaml:"rps"   envconfig:"RPS"   validate:"gte=0"`
	Burst int `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// Enabled reports whether both values are set.
func (c Config) Enabled() bool {
	return c.RPS > 0 && c.Burst > 0
}

// Limiter holds the token bucket shared across wrapped transports.
type Limiter struct {
	limiter *rate.Limiter
	cfg     Config
	logger  *slog.Logger
}

// New returns a Limiter for cfg. A nil logger silences the
// token-exhaustion logs.
func New(cfg Config, logger *slog.Logger) (*Limiter, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("rps[%d] and burst[%d] %w", cfg.RPS, cfg.Burst, ErrMustNotBeZero)
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// Wait blocks until a token is available or ctx ends.
func (l *Limiter) Wait(ctx context.Context, target string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	if l.logger != nil {
		if l.limiter.Allow() {
			return nil
		}

		start := time.Now()
		l.logger.Info("throttle tokens exhausted", "rate", l.cfg.RPS, "burst", l.cfg.Burst, "target", target)
		defer func() {
			l.logger.Info("throttle wait complete", "waited", time.Since(start).String(), "target", target)
		}()
	}

	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrWaitingFailed, err)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w post-wait: %w", ErrContextEnded, err)
	}

	return nil
}

// Wrap returns a RoundTripper that waits on l before delegating to next.
func (l *Limiter) Wrap(next http.RoundTripper) http.RoundTripper {
	return roundTripper{limiter: l, next: next}
}

type roundTripper struct {
	limiter *Limiter
	next    http.RoundTripper
}

func (rt roundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	if err := rt.limiter.Wait(r.Context(), r.URL.Host); err != nil {
		return nil, err
	}
	return rt.next.RoundTrip(r)
}

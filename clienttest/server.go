// Package clienttest provides an HTTP fixture server with endpoints that
// exercise client behaviour: echoing requests, arbitrary status codes,
// redirects, gzip and corrupt gzip bodies, slow and stalled responses, and
// truncated bodies.
package clienttest

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// Server is a running fixture server.
type Server struct {
	*httptest.Server
	hits atomic.Int64
}

// Option configures a [Server].
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger routes the fixture's request logs to logger. They are
// discarded by default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Handler returns the fixture endpoints as a plain http.Handler.
func Handler(optFns ...Option) http.Handler {
	var opts options
	for _, opt := range optFns {
		opt(&opts)
	}
	if opts.logger == nil {
		opts.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	a := newApp(opts.logger,
		logger(opts.logger),
		respondErrors(opts.logger),
		panics(),
	)
	routes(a)

	return a
}

// New starts a plain HTTP fixture server that is closed when tb ends.
func New(tb testing.TB, optFns ...Option) *Server {
	tb.Helper()

	s := &Server{}
	s.Server = httptest.NewServer(s.count(Handler(optFns...)))
	tb.Cleanup(s.Close)

	return s
}

// NewTLS starts an HTTPS fixture server with a self-signed certificate.
func NewTLS(tb testing.TB, optFns ...Option) *Server {
	tb.Helper()

	s := &Server{}
	s.Server = httptest.NewTLSServer(s.count(Handler(optFns...)))
	tb.Cleanup(s.Close)

	return s
}

// Endpoint returns the absolute URL of path on s.
func (s *Server) Endpoint(path string) string {
	return s.URL + path
}

// Hits returns the number of requests served so far.
func (s *Server) Hits() int64 {
	return s.hits.Load()
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		next.ServeHTTP(w, r)
	})
}

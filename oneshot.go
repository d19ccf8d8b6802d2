// Package oneshot executes single, independent HTTP requests without
// connection pooling, and dispatches them off the caller's goroutine when
// asked to.
//
// The package-level functions use a process default [client.Client]. It
// is built with defaults on first use, or from a [config.Config] by
// [Setup]. Build dedicated clients with [NewClient].
//
// SECURITY: every connection skips TLS certificate and hostname
// verification. See [client.InitTransport].
package oneshot

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/adamwoolhether/oneshot/client"
	"github.com/adamwoolhether/oneshot/config"
	"github.com/adamwoolhether/oneshot/dispatch"
)

// NewClient instantiates a new *Client with the provided options.
func NewClient(opts ...client.Option) (*client.Client, error) {
	return client.Build(opts...)
}

var current atomic.Pointer[client.Client]

// Setup installs the process-wide transport from cfg and replaces the
// default client with one built from cfg and opts. The transport is only
// installed by the first Setup, or by the first execution if that comes
// sooner. Logs go to stderr in the configured format unless opts sets a
// logger.
//
// Setup does not wait for the replaced client: its pool, if it owns one,
// drains queued work in the background. A Submit racing with Setup on the
// replaced client may still fail with [dispatch.ErrPoolClosed].
func Setup(cfg config.Config, opts ...client.Option) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	logger := cfg.Logger(os.Stderr)

	client.InitTransport(client.TransportSettings{
		KeepAlive: cfg.KeepAlive,
		Logger:    logger,
	})

	opts = append([]client.Option{client.WithLogger(logger), client.WithConfig(cfg)}, opts...)

	c, err := client.Build(opts...)
	if err != nil {
		return fmt.Errorf("building default client: %w", err)
	}

	if old := current.Swap(c); old != nil {
		go old.Close()
	}

	return nil
}

// Default returns the process default client.
func Default() *client.Client {
	if c := current.Load(); c != nil {
		return c
	}

	c, err := client.Build()
	if err != nil {
		panic(fmt.Sprintf("oneshot: building default client: %v", err))
	}

	if current.CompareAndSwap(nil, c) {
		return c
	}

	return current.Load()
}

// Execute runs req with the default client. See [client.Client.Execute].
func Execute(ctx context.Context, req *client.Request) (*client.Response, error) {
	return Default().Execute(ctx, req)
}

// Get executes a GET of url with the default client's request defaults.
func Get(ctx context.Context, url string) (*client.Response, error) {
	c := Default()
	return c.Execute(ctx, c.NewRequest(url).Build())
}

// ExecuteAsync runs req with the default client on a low-priority
// goroutine. See [client.Client.ExecuteAsync].
func ExecuteAsync(ctx context.Context, req *client.Request, fn func(*client.Response, error)) {
	Default().ExecuteAsync(ctx, req, fn)
}

// Submit queues req on the default client's pool. See
// [client.Client.Submit].
func Submit(ctx context.Context, req *client.Request) *dispatch.Future[*client.Response] {
	return Default().Submit(ctx, req)
}

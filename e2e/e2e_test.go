//go:build integration

package e2e_test

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/adamwoolhether/oneshot/client"
	"github.com/adamwoolhether/oneshot/clienttest"
	"github.com/adamwoolhether/oneshot/config"
	"github.com/adamwoolhether/oneshot/dispatch"
	"github.com/adamwoolhether/oneshot/observability"
)

// -------------------------------------------------------------------------
// Helpers
// -------------------------------------------------------------------------

const configYAML = `
user_agent: e2e-agent/1.0
connect_timeout: 2s
read_timeout: 2s
keep_alive: false
pool_size: 3
log:
  level: error
`

func newServer(t *testing.T, tls bool) *clienttest.Server {
	t.Helper()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	if tls {
		return clienttest.NewTLS(t, clienttest.WithLogger(log))
	}
	return clienttest.New(t, clienttest.WithLogger(log))
}

func newClient(t *testing.T, reg prometheus.Registerer, opts ...client.Option) *client.Client {
	t.Helper()

	cfg, err := config.Decode(strings.NewReader(configYAML))
	if err != nil {
		t.Fatalf("decoding config: %v", err)
	}

	client.InitTransport(client.TransportSettings{KeepAlive: cfg.KeepAlive, Logger: cfg.Logger(os.Stderr)})

	opts = append([]client.Option{
		client.WithConfig(cfg),
		client.WithLogger(cfg.Logger(os.Stderr)),
		client.WithMetrics(observability.NewMetrics(reg)),
	}, opts...)

	c, err := client.Build(opts...)
	if err != nil {
		t.Fatalf("building client: %v", err)
	}
	t.Cleanup(c.Close)

	return c
}

// -------------------------------------------------------------------------
// Tests
// -------------------------------------------------------------------------

func TestE2E_ConfiguredRoundTrip(t *testing.T) {
	for _, tls := range []bool{false, true} {
		t.Run(fmt.Sprintf("tls=%v", tls), func(t *testing.T) {
			srv := newServer(t, tls)
			c := newClient(t, prometheus.NewRegistry())

			req := c.NewRequest(srv.Endpoint("/echo")).
				Method(client.MethodPost).
				Param("id", 7).
				Body("application/json", []byte(`{"ok":true}`)).
				Build()

			resp, err := c.Execute(t.Context(), req)
			if err != nil {
				t.Fatalf("execute: %v", err)
			}
			defer resp.Close()

			doc, err := resp.JSON()
			if err != nil {
				t.Fatalf("json: %v", err)
			}

			checks := map[string]string{
				"method":         http.MethodPost,
				"userAgent":      "e2e-agent/1.0",
				"query.id":       "7",
				"cacheControl":   "no-cache",
				"acceptEncoding": "gzip",
				"body":           `{"ok":true}`,
			}
			for path, want := range checks {
				if got := doc.Get(path).String(); got != want {
					t.Errorf("%s: expected %q, got %q", path, want, got)
				}
			}
		})
	}
}

func TestE2E_PoolDrainsBacklog(t *testing.T) {
	srv := newServer(t, false)
	reg := prometheus.NewRegistry()
	c := newClient(t, reg)

	const n = 20
	futures := make([]*dispatch.Future[*client.Response], n)
	for i := range n {
		req := c.NewRequest(srv.Endpoint("/slow")).Param("delay", "20ms").Build()
		futures[i] = c.Submit(t.Context(), req)
	}

	for i, f := range futures {
		resp, err := f.Wait()
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if !resp.IsSuccess() {
			t.Errorf("request %d: unexpected status %d", i, resp.Code())
		}
		resp.Close()
	}

	const want = `
# HELP oneshot_dispatch_tasks_total Tasks accepted, by dispatch policy.
# TYPE oneshot_dispatch_tasks_total counter
oneshot_dispatch_tasks_total{policy="bounded_pool"} 20
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "oneshot_dispatch_tasks_total"); err != nil {
		t.Error(err)
	}

	if s := c.Stats(); s.Count != n || s.P50 < 20*time.Millisecond {
		t.Errorf("unexpected latency snapshot %+v", s)
	}
}

func TestE2E_LowPriorityDoesNotBlock(t *testing.T) {
	srv := newServer(t, false)
	c := newClient(t, prometheus.NewRegistry())

	var wg sync.WaitGroup
	start := time.Now()

	for range 5 {
		wg.Add(1)
		req := c.NewRequest(srv.Endpoint("/slow")).Param("delay", "200ms").Build()
		c.ExecuteAsync(t.Context(), req, func(resp *client.Response, err error) {
			defer wg.Done()
			if err != nil {
				t.Errorf("async execute: %v", err)
				return
			}
			resp.Close()
		})
	}

	if d := time.Since(start); d > 100*time.Millisecond {
		t.Errorf("dispatching blocked the caller for %v", d)
	}

	wg.Wait()
}

func TestE2E_ServerPanicIsAResponse(t *testing.T) {
	srv := newServer(t, false)
	c := newClient(t, prometheus.NewRegistry())

	resp, err := c.Execute(t.Context(), c.NewRequest(srv.Endpoint("/panic")).Build())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	defer resp.Close()

	if !resp.IsServerError() {
		t.Errorf("expected 5xx, got %d", resp.Code())
	}
	if got := resp.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("unexpected content type %q", got)
	}
}

func TestE2E_Throttled(t *testing.T) {
	srv := newServer(t, false)
	c := newClient(t, prometheus.NewRegistry(), client.WithThrottle(20, 1))

	start := time.Now()
	for range 5 {
		resp, err := c.Execute(t.Context(), c.NewRequest(srv.Endpoint("/status/204")).Build())
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		resp.Close()
	}

	// Four waits of 50ms each after the initial burst token.
	if d := time.Since(start); d < 150*time.Millisecond {
		t.Errorf("expected throttling to spread requests, took %v", d)
	}
}

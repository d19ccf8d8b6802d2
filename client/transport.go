package client

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// TransportSettings configures the process-wide base transport installed
// by [InitTransport].
type TransportSettings struct {
	// KeepAlive enables persistent connections. Disable it on platforms
	// whose proxies or servers mishandle connection reuse.
	KeepAlive bool
	// Logger receives initialisation events. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultTransportSettings returns the settings used when a request is
// executed before [InitTransport] was called.
func DefaultTransportSettings() TransportSettings {
	return TransportSettings{KeepAlive: true}
}

var (
	initOnce sync.Once
	base     *http.Transport
	insecure atomic.Bool
)

// InitTransport installs the base transport every [Client] in the process
// derives its per-call transports from. It runs at most once; later calls
// are ignored. If a request is executed first, [DefaultTransportSettings]
// are installed instead.
//
// SECURITY: the installed transport accepts every server certificate and
// every hostname. TLS verification is disabled for all connections opened
// by this package, for the lifetime of the process, and cannot be turned
// back on. This allows talking to self-signed and otherwise unverifiable
// endpoints. Do not use this package to reach endpoints whose identity
// matters.
func InitTransport(settings TransportSettings) {
	ran := false
	initOnce.Do(func() {
		ran = true
		install(settings)
	})

	if !ran {
		logger := settings.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Debug("transport already initialised, ignoring settings")
	}
}

// TransportInsecure reports whether the trust-all transport is installed.
func TransportInsecure() bool {
	return insecure.Load()
}

func install(settings TransportSettings) {
	logger := settings.Logger
	if logger == nil {
		logger = slog.Default()
	}

	t := http.DefaultTransport.(*http.Transport).Clone()
	t.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec
	}
	t.DisableKeepAlives = !settings.KeepAlive
	t.DisableCompression = true
	t.ForceAttemptHTTP2 = false
	t.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}

	base = t
	insecure.Store(true)

	logger.Warn("transport initialised: TLS certificate and hostname verification disabled process-wide",
		"keepAlive", settings.KeepAlive)
}

func baseTransport() *http.Transport {
	initOnce.Do(func() { install(DefaultTransportSettings()) })
	return base
}

// newCallTransport derives a single-use transport from the base one,
// applying the request's connect and read timeouts.
func newCallTransport(req *Request) *http.Transport {
	t := baseTransport().Clone()

	dialer := &net.Dialer{Timeout: req.connectTimeout}
	readTimeout := req.readTimeout
	t.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		return &readDeadlineConn{Conn: conn, timeout: readTimeout}, nil
	}
	t.TLSHandshakeTimeout = req.connectTimeout

	return t
}

// readDeadlineConn arms a fresh read deadline before every Read, so a
// stalled peer fails after timeout of silence rather than after a fixed
// total duration.
type readDeadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *readDeadlineConn) Read(p []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(p)
}

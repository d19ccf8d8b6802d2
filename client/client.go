package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adamwoolhether/oneshot/client/throttle"
	"github.com/adamwoolhether/oneshot/dispatch"
	"github.com/adamwoolhether/oneshot/observability"
)

// Client executes [Request] descriptors. Each execution dials through a
// fresh transport derived from the process-wide one, so nothing but the
// optional throttle is shared between calls. A Client is safe for
// concurrent use.
type Client struct {
	rt              http.RoundTripper
	timeout         time.Duration
	limiter         *throttle.Limiter
	followRedirects bool
	defaults        Request

	logger     *slog.Logger
	metrics    *observability.Metrics
	tracer     *observability.Tracer
	latency    *observability.Latency
	dispatcher *dispatch.Dispatcher
	pool       *dispatch.Pool
	ownsPool   bool
}

func Build(optFns ...Option) (*Client, error) {
	client := &Client{
		followRedirects: true,
		logger:          slog.Default(),
		latency:         observability.NewLatency(),
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	if opts.logger != nil {
		client.logger = opts.logger
	}

	if opts.timeout != nil {
		client.timeout = *opts.timeout
	}

	client.rt = opts.rt
	client.followRedirects = !opts.noFollowRedirects
	client.metrics = opts.metrics
	client.tracer = observability.NewTracer(opts.tracerProvider)

	client.defaults = NewRequest("").
		Timeout(opts.readTimeout, opts.connectTimeout).
		UsesCache(opts.usesCache).
		req
	if opts.userAgent != "" {
		client.defaults.userAgent = opts.userAgent
	}

	if opts.throttle != nil {
		l, err := throttle.New(*opts.throttle, client.logger)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		client.limiter = l
	}

	dispatchOpts := []dispatch.Option{
		dispatch.WithLogger(client.logger),
		dispatch.WithMetrics(client.metrics),
	}
	client.dispatcher = dispatch.NewDispatcher(dispatchOpts...)

	switch {
	case opts.pool != nil:
		client.pool = opts.pool
	case opts.poolSize > 0:
		client.pool = dispatch.NewPool(opts.poolSize, dispatchOpts...)
		client.ownsPool = true
	default:
		client.pool = dispatch.Shared()
	}

	return client, nil
}

// NewRequest returns a builder for url preloaded with the client's
// defaults rather than the package ones.
func (c *Client) NewRequest(url string) *RequestBuilder {
	b := &RequestBuilder{req: c.defaults}
	b.req.url = url
	return b
}

// Execute performs req and returns its response once the status line and
// headers have arrived. The body is left unread; the caller must Close the
// response.
//
// A failure to build the request, connect, or read the response headers is
// returned as a [*TransportError]. No retries are attempted.
func (c *Client) Execute(ctx context.Context, req *Request) (*Response, error) {
	execID := uuid.NewString()
	target := req.TargetURL()
	logger := c.logger.With("exec_id", execID)

	httpReq, err := c.newHTTPRequest(ctx, req, target)
	if err != nil {
		return nil, c.transportError(logger, req, target, err)
	}

	rt, release := c.transport(req)
	defer release()

	hc := &http.Client{
		Transport: rt,
		Timeout:   c.timeout,
	}
	if !c.followRedirects {
		hc.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	spanCtx, span := c.tracer.Start(httpReq.Context(), httpReq, execID)
	httpReq = httpReq.WithContext(spanCtx)

	logger.Debug("executing request", "method", req.method, "url", target)

	start := time.Now()
	resp, err := hc.Do(httpReq)
	elapsed := time.Since(start)
	if err != nil {
		c.tracer.End(span, 0, err)
		return nil, c.transportError(logger, req, target, err)
	}

	c.tracer.End(span, resp.StatusCode, nil)
	c.metrics.RecordResponse(string(req.method), resp.StatusCode, elapsed)
	c.latency.Record(elapsed)

	logger.Debug("response received", "status", resp.Status, "took", elapsed.String())

	var body io.ReadCloser = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		body = &gzipBody{rc: resp.Body}
	}

	r := newResponse(resp.StatusCode, reasonPhrase(resp), resp.Header, body, release, logger, target)
	r.onReadError = c.metrics.RecordBodyReadError

	return r, nil
}

// ExecuteAsync runs [Client.Execute] on a low-priority goroutine and hands
// the outcome to fn there. fn owns the response.
func (c *Client) ExecuteAsync(ctx context.Context, req *Request, fn func(*Response, error)) {
	c.dispatcher.Go(func() {
		fn(c.Execute(ctx, req))
	})
}

// Submit queues [Client.Execute] on the client's pool. The caller owns the
// response delivered by the future.
func (c *Client) Submit(ctx context.Context, req *Request) *dispatch.Future[*Response] {
	return dispatch.Submit(c.pool, func() (*Response, error) {
		return c.Execute(ctx, req)
	})
}

// Stats summarises the time to response headers of every successful
// execution so far.
func (c *Client) Stats() observability.LatencySnapshot {
	return c.latency.Snapshot()
}

// Close stops the pool the client created from its configuration, after
// queued work finishes. A pool passed with [WithPool] is left running.
func (c *Client) Close() {
	if c.ownsPool {
		c.pool.Close()
	}
}

func (c *Client) newHTTPRequest(ctx context.Context, req *Request, target string) (*http.Request, error) {
	var payload io.Reader
	if req.IsPost() {
		payload = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, strings.ToUpper(string(req.method)), target, payload)
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}

	if req.userAgent != "" {
		httpReq.Header.Set("User-Agent", req.userAgent)
	}
	httpReq.Header.Set("Accept-Encoding", "gzip")
	if !req.usesCache {
		httpReq.Header.Set("Cache-Control", "no-cache")
	}
	if req.IsPost() && req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	for k, v := range req.header {
		httpReq.Header[k] = append([]string(nil), v...)
	}

	return httpReq, nil
}

// transport returns the round tripper for one execution and the func that
// tears it down. The teardown is safe to call more than once.
func (c *Client) transport(req *Request) (http.RoundTripper, func()) {
	var (
		rt      http.RoundTripper
		release = func() {}
	)

	if c.rt != nil {
		rt = c.rt
	} else {
		t := newCallTransport(req)
		rt = t
		release = t.CloseIdleConnections
	}

	if c.limiter != nil {
		rt = c.limiter.Wrap(rt)
	}

	return rt, release
}

func (c *Client) transportError(logger *slog.Logger, req *Request, target string, err error) error {
	terr := &TransportError{Method: req.method, URL: target, Err: err}
	c.metrics.RecordTransportError(string(req.method), terr.Timeout())
	logger.Error("executing request", "method", req.method, "url", target, "error", err)
	return terr
}

// reasonPhrase strips the status code from resp.Status.
func reasonPhrase(resp *http.Response) string {
	msg := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))
	return strings.TrimSpace(msg)
}

package client

import (
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/adamwoolhether/oneshot/config"
)

// Method is an HTTP request method supported by the executor.
type Method string

const (
	MethodGet  Method = "GET"
	MethodPost Method = "POST"
)

const (
	// DefaultUserAgent is sent when a request does not set its own.
	DefaultUserAgent = config.DefaultUserAgent

	DefaultConnectTimeout = config.DefaultConnectTimeout
	DefaultReadTimeout    = config.DefaultReadTimeout
)

// Request describes a single HTTP exchange. It is immutable once built;
// use [NewRequest] to create one.
type Request struct {
	url            string
	method         Method
	userAgent      string
	connectTimeout time.Duration
	readTimeout    time.Duration
	usesCache      bool
	params         Params
	body           []byte
	contentType    string
	header         http.Header
}

// Get returns a GET request for url with default settings.
func Get(url string) *Request {
	return NewRequest(url).Method(MethodGet).Build()
}

// Post returns a POST request for url with default settings.
func Post(url string) *Request {
	return NewRequest(url).Method(MethodPost).Build()
}

func (r *Request) URL() string                   { return r.url }
func (r *Request) Method() Method                { return r.method }
func (r *Request) UserAgent() string             { return r.userAgent }
func (r *Request) ConnectTimeout() time.Duration { return r.connectTimeout }
func (r *Request) ReadTimeout() time.Duration    { return r.readTimeout }
func (r *Request) UsesCache() bool               { return r.usesCache }
func (r *Request) ContentType() string           { return r.contentType }

// Params returns a copy of the request's query parameters, or nil if none were set.
func (r *Request) Params() Params {
	if r.params == nil {
		return nil
	}
	return maps.Clone(r.params)
}

// Body returns a copy of the request payload.
func (r *Request) Body() []byte {
	return slices.Clone(r.body)
}

// Header returns a copy of the extra headers set with [RequestBuilder.Header].
func (r *Request) Header() http.Header {
	return r.header.Clone()
}

// TargetURL is the URL that will be dialled: the base URL joined with the
// params when any were set.
func (r *Request) TargetURL() string {
	if r.params == nil {
		return r.url
	}
	return Join(r.url, r.params)
}

// IsPost reports whether the method is POST, ignoring case.
func (r *Request) IsPost() bool {
	return strings.EqualFold(string(r.method), string(MethodPost))
}

// IsGet reports whether the method is GET, ignoring case.
func (r *Request) IsGet() bool {
	return strings.EqualFold(string(r.method), string(MethodGet))
}

// RequestBuilder accumulates settings for a [Request]. A builder can be
// reused; each Build call returns an independent descriptor.
type RequestBuilder struct {
	req Request
}

// NewRequest returns a builder for url preloaded with the defaults:
// GET, [DefaultUserAgent], 60s connect and read timeouts, caching disabled.
func NewRequest(url string) *RequestBuilder {
	return &RequestBuilder{
		req: Request{
			url:            url,
			method:         MethodGet,
			userAgent:      DefaultUserAgent,
			connectTimeout: DefaultConnectTimeout,
			readTimeout:    DefaultReadTimeout,
		},
	}
}

func (b *RequestBuilder) URL(url string) *RequestBuilder {
	b.req.url = url
	return b
}

func (b *RequestBuilder) Method(m Method) *RequestBuilder {
	b.req.method = m
	return b
}

func (b *RequestBuilder) UserAgent(ua string) *RequestBuilder {
	b.req.userAgent = ua
	return b
}

// Timeout sets the read and connect timeouts. A non-positive value keeps
// the current setting.
func (b *RequestBuilder) Timeout(read, connect time.Duration) *RequestBuilder {
	if read > 0 {
		b.req.readTimeout = read
	}
	if connect > 0 {
		b.req.connectTimeout = connect
	}
	return b
}

func (b *RequestBuilder) UsesCache(enabled bool) *RequestBuilder {
	b.req.usesCache = enabled
	return b
}

// Params replaces the query parameters.
func (b *RequestBuilder) Params(p Params) *RequestBuilder {
	b.req.params = maps.Clone(p)
	return b
}

// Param adds a single query parameter, coerced as in [Params.Set].
func (b *RequestBuilder) Param(key string, value any) *RequestBuilder {
	if b.req.params == nil {
		b.req.params = Params{}
	}
	b.req.params.Set(key, value)
	return b
}

// Body sets the payload written for POST requests. It is ignored for
// other methods.
func (b *RequestBuilder) Body(contentType string, body []byte) *RequestBuilder {
	b.req.contentType = contentType
	b.req.body = slices.Clone(body)
	return b
}

// Header adds an extra request header. Extra headers are sent after the
// defaults and replace any default of the same name.
func (b *RequestBuilder) Header(key, value string) *RequestBuilder {
	if b.req.header == nil {
		b.req.header = http.Header{}
	}
	b.req.header.Add(key, value)
	return b
}

// Build returns an immutable snapshot of the builder's settings.
func (b *RequestBuilder) Build() *Request {
	r := b.req
	r.params = maps.Clone(b.req.params)
	r.body = slices.Clone(b.req.body)
	r.header = b.req.header.Clone()
	return &r
}

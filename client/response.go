package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"strconv"

	"github.com/klauspost/compress/gzip"
	"github.com/tidwall/gjson"
	"golang.org/x/net/html/charset"
)

// Response is the result of [Client.Execute]. Status and headers are
// immutable; the body is a one-shot stream that may be read once and is
// then released.
//
// The owner must call Close when done, typically with defer, even if the
// body is never read. A Response must not be shared between goroutines
// without external synchronisation.
type Response struct {
	code    int
	message string
	header  http.Header
	body    *bodyHandle
	cause   error
	logger  *slog.Logger
	cleanup runtime.Cleanup

	// onReadError is told about swallowed body read failures.
	onReadError func()
}

// bodyHandle owns everything that has to be torn down with the body. It
// never references the Response so it can be handed to runtime.AddCleanup.
type bodyHandle struct {
	rc      io.ReadCloser
	release func()
	logger  *slog.Logger
	url     string
}

func (h *bodyHandle) close() error {
	err := h.rc.Close()
	if h.release != nil {
		h.release()
	}
	return err
}

func newResponse(code int, message string, header http.Header, body io.ReadCloser, release func(), logger *slog.Logger, url string) *Response {
	r := &Response{
		code:    code,
		message: message,
		header:  header,
		logger:  logger,
	}

	if body != nil {
		h := &bodyHandle{rc: body, release: release, logger: logger, url: url}
		r.body = h
		r.cleanup = runtime.AddCleanup(r, reclaim, h)
	}

	return r
}

// reclaim is the last-resort release for a Response dropped without Close.
func reclaim(h *bodyHandle) {
	h.logger.Warn("response garbage collected without Close", "url", h.url)
	if err := h.close(); err != nil {
		h.logger.Error("closing reclaimed response body", "error", err)
	}
}

// Failed returns a released Response that only carries err, for delivering
// transport failures through callbacks.
func Failed(err error) *Response {
	return &Response{
		code:   -1,
		cause:  err,
		logger: slog.Default(),
	}
}

// Code returns the status code, or -1 if it is unknown.
func (r *Response) Code() int { return r.code }

// Message returns the reason phrase (e.g. "Not Found"), or "" if unknown.
func (r *Response) Message() string { return r.message }

// Header returns the response headers.
func (r *Response) Header() http.Header { return r.header }

// StatusLine returns the code and message separated by a space, e.g. "200 OK".
func (r *Response) StatusLine() string {
	return strconv.Itoa(r.code) + " " + r.message
}

func (r *Response) IsSuccess() bool     { return r.code >= 200 && r.code < 300 }
func (r *Response) IsClientError() bool { return r.code >= 400 && r.code < 500 }
func (r *Response) IsServerError() bool { return r.code >= 500 && r.code < 600 }

// IsRedirect reports whether the code is one of 300, 301, 302, 303, 307 or 308.
func (r *Response) IsRedirect() bool {
	switch r.code {
	case http.StatusMultipleChoices,
		http.StatusMovedPermanently,
		http.StatusFound,
		http.StatusSeeOther,
		http.StatusTemporaryRedirect,
		http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

// Cause returns the error recorded for this response: the transport
// failure for a [Failed] response, or the I/O error hit while reading the
// body. Check it to tell an empty body from a failed read.
func (r *Response) Cause() error { return r.cause }

// IsReleased reports whether the body has been consumed or closed.
func (r *Response) IsReleased() bool { return r.body == nil }

// Content returns the body stream for incremental reads, or nil once
// released. The caller still owns Close.
func (r *Response) Content() io.Reader {
	if r.body == nil {
		return nil
	}
	return r.body.rc
}

// Bytes reads the whole body and releases it. Reading a released response
// returns [ErrReleased]. A read failure is not returned: the result is
// empty and the failure is available from [Response.Cause].
func (r *Response) Bytes() ([]byte, error) {
	if err := r.checkReleased(); err != nil {
		return nil, err
	}
	defer r.Close()

	b, err := io.ReadAll(r.body.rc)
	if err != nil {
		r.cause = fmt.Errorf("reading response body: %w", err)
		r.logger.Error("reading response body", "status", r.StatusLine(), "error", err)
		if r.onReadError != nil {
			r.onReadError()
		}
		return []byte{}, nil
	}

	return b, nil
}

// Text is [Response.Bytes] decoded as a UTF-8 string.
func (r *Response) Text() (string, error) {
	b, err := r.Bytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodedText is [Response.Bytes] converted to UTF-8 from the charset
// declared in Content-Type, or sniffed from the content when none is
// declared. Undecodable bytes are replaced rather than reported.
func (r *Response) DecodedText() (string, error) {
	b, err := r.Bytes()
	if err != nil {
		return "", err
	}

	cr, err := charset.NewReader(bytes.NewReader(b), r.header.Get("Content-Type"))
	if err != nil {
		r.logger.Debug("unknown response charset, assuming UTF-8", "contentType", r.header.Get("Content-Type"), "error", err)
		return string(b), nil
	}

	decoded, err := io.ReadAll(cr)
	if err != nil {
		return "", fmt.Errorf("decoding charset: %w", err)
	}

	return string(decoded), nil
}

// JSON parses the body. A body that is not valid JSON yields the zero
// [gjson.Result], whose Exists method reports false.
func (r *Response) JSON() (gjson.Result, error) {
	s, err := r.Text()
	if err != nil {
		return gjson.Result{}, err
	}

	if !gjson.Valid(s) {
		r.logger.Debug("response body is not valid JSON", "status", r.StatusLine(), "size", len(s))
		return gjson.Result{}, nil
	}

	return gjson.Parse(s), nil
}

// Decode unmarshals the JSON body into dest, which must be a pointer.
func (r *Response) Decode(dest any) error {
	b, err := r.Bytes()
	if err != nil {
		return err
	}

	if err := json.Unmarshal(b, dest); err != nil {
		return fmt.Errorf("decoding body: %w", err)
	}

	return nil
}

// Close releases the body. It is safe to call more than once and never
// returns an error; release failures are logged.
func (r *Response) Close() error {
	if r.body == nil {
		return nil
	}

	h := r.body
	r.body = nil
	r.cleanup.Stop()

	if err := h.close(); err != nil {
		r.logger.Warn("closing response body", "error", err)
	}

	return nil
}

func (r *Response) checkReleased() error {
	if r.IsReleased() {
		return ErrReleased
	}
	return nil
}

// gzipBody decompresses rc on demand. The gzip header is not read until
// the first Read, so a response that is closed unread costs nothing.
type gzipBody struct {
	rc  io.ReadCloser
	zr  *gzip.Reader
	err error
}

func (g *gzipBody) Read(p []byte) (int, error) {
	if g.zr == nil {
		if g.err != nil {
			return 0, g.err
		}

		zr, err := gzip.NewReader(g.rc)
		switch {
		case errors.Is(err, io.EOF):
			// An empty stream is an empty body, not a broken one.
			g.err = io.EOF
			return 0, g.err
		case err != nil:
			g.err = fmt.Errorf("opening gzip stream: %w", err)
			return 0, g.err
		}
		g.zr = zr
	}

	return g.zr.Read(p)
}

func (g *gzipBody) Close() error {
	var zerr error
	if g.zr != nil {
		zerr = g.zr.Close()
	}
	return errors.Join(zerr, g.rc.Close())
}

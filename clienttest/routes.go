package clienttest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Echo is the body served by the /echo endpoint.
type Echo struct {
	Method         string            `json:"method"`
	Path           string            `json:"path"`
	RawQuery       string            `json:"rawQuery"`
	Query          map[string]string `json:"query"`
	UserAgent      string            `json:"userAgent"`
	AcceptEncoding string            `json:"acceptEncoding"`
	CacheControl   string            `json:"cacheControl"`
	ContentType    string            `json:"contentType"`
	Headers        map[string]string `json:"headers"`
	Body           string            `json:"body"`
}

// GzipPayload is the decompressed body of the /gzip endpoint.
const GzipPayload = `{"compressed":true,"items":["a","b","c"]}`

// TruncatedPrefix is the part of the /truncated body that is actually sent.
const TruncatedPrefix = "only part of the body"

func routes(a *app) {
	a.get("/echo", echo)
	a.post("/echo", echo)
	a.get("/status/{code}", status)
	a.get("/redirect/{code}", redirect)
	a.get("/gzip", gzipped)
	a.get("/corrupt-gzip", corruptGzip)
	a.get("/empty-gzip", emptyGzip)
	a.get("/slow", slow)
	a.get("/stall", stall)
	a.get("/truncated", truncated)
	a.get("/text", text)
	a.get("/panic", func(context.Context, http.ResponseWriter, *http.Request) error {
		panic("fixture panic")
	})
}

func echo(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("reading request body: %w", err)
	}

	query := make(map[string]string)
	for k, v := range r.URL.Query() {
		query[k] = v[0]
	}

	headers := make(map[string]string)
	for k := range r.Header {
		headers[k] = r.Header.Get(k)
	}

	return respondJSON(ctx, w, http.StatusOK, Echo{
		Method:         r.Method,
		Path:           r.URL.Path,
		RawQuery:       r.URL.RawQuery,
		Query:          query,
		UserAgent:      r.UserAgent(),
		AcceptEncoding: r.Header.Get("Accept-Encoding"),
		CacheControl:   r.Header.Get("Cache-Control"),
		ContentType:    r.Header.Get("Content-Type"),
		Headers:        headers,
		Body:           string(body),
	})
}

// status answers with the code in the path and a short text body.
func status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	code, err := strconv.Atoi(r.PathValue("code"))
	if err != nil || code < 200 || code > 999 {
		return respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "bad status code"})
	}

	setStatusCode(ctx, code)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)

	if code == http.StatusNoContent || code == http.StatusNotModified {
		return nil
	}

	_, err = fmt.Fprintf(w, "status %d", code)
	return err
}

// redirect sends a redirect with the code in the path to /echo.
func redirect(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	code, err := strconv.Atoi(r.PathValue("code"))
	if err != nil || code < 300 || code > 399 {
		return respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "bad redirect code"})
	}

	setStatusCode(ctx, code)
	http.Redirect(w, r, "/echo?redirected=1", code)

	return nil
}

func gzipped(ctx context.Context, w http.ResponseWriter, _ *http.Request) error {
	setStatusCode(ctx, http.StatusOK)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Encoding", "gzip")
	w.WriteHeader(http.StatusOK)

	zw := gzip.NewWriter(w)
	if _, err := io.WriteString(zw, GzipPayload); err != nil {
		return err
	}

	return zw.Close()
}

// emptyGzip claims gzip encoding but has no content.
func emptyGzip(ctx context.Context, w http.ResponseWriter, _ *http.Request) error {
	setStatusCode(ctx, http.StatusNoContent)
	w.Header().Set("Content-Encoding", "gzip")
	w.WriteHeader(http.StatusNoContent)

	return nil
}

// corruptGzip claims gzip encoding but sends plain text.
func corruptGzip(ctx context.Context, w http.ResponseWriter, _ *http.Request) error {
	setStatusCode(ctx, http.StatusOK)
	w.Header().Set("Content-Encoding", "gzip")
	w.WriteHeader(http.StatusOK)

	_, err := io.WriteString(w, "this is not gzip")
	return err
}

// slow waits for the delay query parameter before sending headers.
func slow(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := sleep(ctx, r.URL.Query().Get("delay")); err != nil {
		return nil
	}

	return respondJSON(ctx, w, http.StatusOK, map[string]string{"slept": r.URL.Query().Get("delay")})
}

// stall sends headers and part of the body, then waits for the delay query
// parameter before finishing.
func stall(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	setStatusCode(ctx, http.StatusOK)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	if _, err := io.WriteString(w, "first part;"); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	if err := sleep(ctx, r.URL.Query().Get("delay")); err != nil {
		return nil
	}

	_, err := io.WriteString(w, "second part")
	return err
}

// truncated declares a longer body than it sends, so the client sees an
// unexpected EOF while reading.
func truncated(ctx context.Context, w http.ResponseWriter, _ *http.Request) error {
	setStatusCode(ctx, http.StatusOK)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(TruncatedPrefix)*10))
	w.WriteHeader(http.StatusOK)

	_, err := io.WriteString(w, TruncatedPrefix)
	return err
}

// text serves the body query parameter verbatim.
func text(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	setStatusCode(ctx, http.StatusOK)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	_, err := io.WriteString(w, r.URL.Query().Get("body"))
	return err
}

func sleep(ctx context.Context, delay string) error {
	d, err := time.ParseDuration(delay)
	if err != nil {
		d = 0
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

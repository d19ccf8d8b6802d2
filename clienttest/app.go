package clienttest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"time"

	"github.com/google/uuid"
)

// handlerFunc is a http.Handler that returns an error.
type handlerFunc func(ctx context.Context, w http.ResponseWriter, r *http.Request) error

// middleware defines a signature to chain handlerFunc together.
type middleware func(handler handlerFunc) handlerFunc

// app routes fixture endpoints through a shared middleware stack.
type app struct {
	mux    *http.ServeMux
	mw     []middleware
	logger *slog.Logger
}

func newApp(logger *slog.Logger, mw ...middleware) *app {
	return &app{
		mux:    http.NewServeMux(),
		mw:     mw,
		logger: logger,
	}
}

func (a *app) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

func (a *app) get(path string, fn handlerFunc) {
	a.handle(http.MethodGet, path, fn)
}

func (a *app) post(path string, fn handlerFunc) {
	a.handle(http.MethodPost, path, fn)
}

func (a *app) handle(method, path string, handler handlerFunc) {
	handler = wrap(a.mw, handler)

	h := func(w http.ResponseWriter, r *http.Request) {
		v := values{
			RequestID: uuid.NewString(),
			Now:       time.Now().UTC(),
		}
		w.Header().Set("X-Request-Id", v.RequestID)

		ctx := context.WithValue(r.Context(), valuesKey, &v)

		if err := handler(ctx, w, r.WithContext(ctx)); err != nil {
			a.logger.Error("fixture", "handle", err)
		}
	}

	a.mux.HandleFunc(fmt.Sprintf("%s %s", method, path), h)
}

// wrap middleware around the handler and execute in order given.
func wrap(mw []middleware, handler handlerFunc) handlerFunc {
	for _, mwFn := range slices.Backward(mw) {
		if mwFn != nil {
			handler = mwFn(handler)
		}
	}

	return handler
}

type ctxKey int

const valuesKey ctxKey = 1

// values are shared across the middleware for one request.
type values struct {
	RequestID  string
	Now        time.Time
	StatusCode int
}

func getValues(ctx context.Context) *values {
	v, ok := ctx.Value(valuesKey).(*values)
	if !ok {
		return &values{RequestID: uuid.Nil.String(), Now: time.Now()}
	}
	return v
}

func setStatusCode(ctx context.Context, code int) {
	getValues(ctx).StatusCode = code
}

// logger logs the start and end of each request.
func logger(log *slog.Logger) middleware {
	return func(handler handlerFunc) handlerFunc {
		return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			v := getValues(ctx)

			path := r.URL.Path
			if r.URL.RawQuery != "" {
				path = fmt.Sprintf("%s?%s", path, r.URL.RawQuery)
			}

			log.Info("request started", "method", r.Method, "path", path, "request_id", v.RequestID)

			err := handler(ctx, w, r)

			log.Info("request completed", "method", r.Method, "path", path, "request_id", v.RequestID,
				"statusCode", v.StatusCode, "since", time.Since(v.Now).String())

			return err
		}
	}
}

// respondErrors turns a handler error into a JSON 500.
func respondErrors(log *slog.Logger) middleware {
	return func(handler handlerFunc) handlerFunc {
		return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			err := handler(ctx, w, r)
			if err == nil {
				return nil
			}

			log.Error(err.Error(), "request_id", getValues(ctx).RequestID)

			return respondJSON(ctx, w, http.StatusInternalServerError, struct {
				Error string `json:"error"`
			}{Error: http.StatusText(http.StatusInternalServerError)})
		}
	}
}

// panics recovers from panics if they occur.
func panics() middleware {
	return func(handler handlerFunc) handlerFunc {
		return func(ctx context.Context, w http.ResponseWriter, r *http.Request) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("PANIC [%v] TRACE[%s]", rec, string(debug.Stack()))
				}
			}()

			return handler(ctx, w, r)
		}
	}
}

// respondJSON to an HTTP request, setting the status code and body if any.
func respondJSON(ctx context.Context, w http.ResponseWriter, statusCode int, data any) error {
	setStatusCode(ctx, statusCode)

	if statusCode == http.StatusNoContent {
		w.WriteHeader(statusCode)
		return nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if _, err = w.Write(jsonData); err != nil {
		return err
	}

	return nil
}

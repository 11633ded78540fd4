package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"auth-gateway/internal/gateway"
	apperrors "auth-gateway/pkg/errors"

	"github.com/labstack/echo/v4"
)

const (
	DefaultRequestTimeout = 30 * time.Second

	msgRequestTimeout = "Request timeout"
)

// timeoutWriter lets the deadline and a still running handler race for the
// response. Whoever writes first owns it; once the deadline wins, handler
// writes are discarded. The handler gets its own header map, copied to the
// real one when it commits.
type timeoutWriter struct {
	http.ResponseWriter

	header      http.Header
	mu          sync.Mutex
	wroteHeader bool
	timedOut    bool
}

func newTimeoutWriter(w http.ResponseWriter) *timeoutWriter {
	return &timeoutWriter{ResponseWriter: w, header: w.Header().Clone()}
}

func (w *timeoutWriter) Header() http.Header {
	return w.header
}

func (w *timeoutWriter) WriteHeader(code int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timedOut || w.wroteHeader {
		return
	}
	w.commit(code)
}

func (w *timeoutWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	if !w.wroteHeader {
		w.commit(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// commit must be called with mu held.
func (w *timeoutWriter) commit(code int) {
	dst := w.ResponseWriter.Header()
	for k := range dst {
		if _, ok := w.header[k]; !ok {
			delete(dst, k)
		}
	}
	for k, v := range w.header {
		dst[k] = v
	}
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *timeoutWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timedOut {
		return
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// release hands the writer back after the handler returned. Headers set
// without a commit are kept for whoever writes the response next.
func (w *timeoutWriter) release() http.ResponseWriter {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.wroteHeader && !w.timedOut {
		dst := w.ResponseWriter.Header()
		for k, v := range w.header {
			dst[k] = v
		}
	}
	return w.ResponseWriter
}

// expire claims the response for the deadline. It returns false when the
// handler already started writing.
func (w *timeoutWriter) expire(body []byte) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.wroteHeader {
		return false
	}
	w.timedOut = true
	if body != nil {
		w.ResponseWriter.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		w.ResponseWriter.WriteHeader(http.StatusRequestTimeout)
		_, _ = w.ResponseWriter.Write(body)
	}
	return true
}

type handlerResult struct {
	err       error
	recovered any
	panicked  bool
}

// Timeout bounds the gates and the handler with a request deadline. The
// handler runs on its own goroutine and observes the deadline through the
// request context. When the deadline passes before anything was written,
// the client gets a 408 right away and later handler writes are dropped.
// A handler that already started its response is left to finish it.
//
// A handler still running after the deadline shares the echo context with
// the middlewares above, so it should stop once its context is done.
func Timeout(timeout time.Duration) echo.MiddlewareFunc {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			res := c.Response()
			tw := newTimeoutWriter(res.Writer)
			res.Writer = tw

			done := make(chan handlerResult, 1)
			go func() {
				defer func() {
					if r := recover(); r != nil {
						done <- handlerResult{recovered: r, panicked: true}
					}
				}()
				done <- handlerResult{err: next(c)}
			}()

			select {
			case r := <-done:
				res.Writer = tw.release()
				return finish(ctx, c, r)

			case <-ctx.Done():
				var body []byte
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					body, _ = json.Marshal(gateway.ErrorBody(apperrors.ErrRequestTimeout, msgRequestTimeout, nil))
				}
				if !tw.expire(body) {
					r := <-done
					res.Writer = tw.release()
					return finish(ctx, c, r)
				}
				if body != nil {
					res.Status = http.StatusRequestTimeout
				}
				res.Committed = true
				return nil
			}
		}
	}
}

func finish(ctx context.Context, c echo.Context, r handlerResult) error {
	if r.panicked {
		panic(r.recovered)
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Response().Committed {
		return gateway.WriteError(c, http.StatusRequestTimeout, apperrors.ErrRequestTimeout, msgRequestTimeout, nil)
	}
	return r.err
}

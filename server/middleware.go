package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"rootserve/response"
)

type requestIDKey struct{}

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestIDHook adds the request id to every entry logged with a request
// context.
type RequestIDHook struct{}

func (RequestIDHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (RequestIDHook) Fire(e *logrus.Entry) error {
	if e.Context == nil {
		return nil
	}
	if id := RequestID(e.Context); id != "" {
		e.Data["request_id"] = id
	}
	return nil
}

// statusWriter records the status and body size written through it.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (sw *statusWriter) WriteHeader(status int) {
	if sw.status == 0 {
		sw.status = status
	}
	sw.ResponseWriter.WriteHeader(status)
}

func (sw *statusWriter) Write(p []byte) (int, error) {
	if sw.status == 0 {
		sw.status = http.StatusOK
	}
	n, err := sw.ResponseWriter.Write(p)
	sw.bytes += int64(n)
	return n, err
}

// ReadFrom keeps the underlying writer's fast path (sendfile, or the
// bandwidth limiter's throttled copy) visible to io.Copy.
func (sw *statusWriter) ReadFrom(src io.Reader) (int64, error) {
	if sw.status == 0 {
		sw.status = http.StatusOK
	}
	var n int64
	var err error
	if rf, ok := sw.ResponseWriter.(io.ReaderFrom); ok {
		n, err = rf.ReadFrom(src)
	} else {
		n, err = io.Copy(writerOnly{sw.ResponseWriter}, src)
	}
	sw.bytes += n
	return n, err
}

func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

// writerOnly hides any ReadFrom method so io.Copy cannot recurse.
type writerOnly struct {
	io.Writer
}

// logRequests assigns a request id and logs one line per request.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		r = r.WithContext(ctx)
		w.Header().Set("X-Request-Id", id)

		sw := &statusWriter{ResponseWriter: w}
		t0 := time.Now()
		next.ServeHTTP(sw, r)

		logrus.WithContext(ctx).WithFields(logrus.Fields{
			"ip":       r.RemoteAddr,
			"status":   sw.status,
			"bytes":    sw.bytes,
			"duration": time.Since(t0).Round(time.Millisecond),
		}).Debugf("%s %s", r.Method, r.RequestURI)
	})
}

// recoverPanics turns a panic in next into a 500, unless the response was
// already started.
func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			e := recover()
			if e == nil {
				return
			}
			if e == http.ErrAbortHandler {
				panic(e)
			}

			logrus.WithContext(r.Context()).Errorf("panic %s %s: %v", r.Method, r.RequestURI, e)
			if sw, ok := w.(*statusWriter); ok && sw.status != 0 {
				return
			}
			_ = response.NewWriter(w).Emit(response.Error(http.StatusInternalServerError), r)
		}()

		next.ServeHTTP(w, r)
	})
}

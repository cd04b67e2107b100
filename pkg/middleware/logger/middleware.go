package logger

import (
	"bytes"
	"io"
	"net/http"
	"time"

	chimd "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// InvocationHeader carries the id the function dispatcher assigns per call.
const InvocationHeader = "X-Invocation-Id"

type Middleware struct {
	// Logger overrides the package access logger when set.
	Logger *zap.Logger
}

func (m *Middleware) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := m.Logger
			if l == nil {
				l = accessLogger()
			}

			// Wrap writer
			ww := chimd.NewWrapResponseWriter(w, r.ProtoMajor)

			// Read and RESTORE request body so downstream can consume it
			var body []byte
			if r.Body != nil {
				if b, err := io.ReadAll(r.Body); err == nil {
					body = b
				}
				r.Body.Close()
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			scheme := "http"
			if r.TLS != nil {
				scheme = "https"
			}

			start := time.Now()
			defer func() {
				lat := time.Since(start)

				log := l.With(
					zap.String("dateTime", start.UTC().Format(time.RFC1123)),
					zap.String("requestId", chimd.GetReqID(r.Context())),
					zap.String("invocationId", ww.Header().Get(InvocationHeader)),
					zap.String("httpScheme", scheme),
					zap.String("httpProto", r.Proto),
					zap.String("httpMethod", r.Method),
					zap.String("remoteAddr", r.RemoteAddr),
					zap.String("uri", r.URL.Path),
					zap.Duration("lat", lat),
					zap.Int("responseSize", ww.BytesWritten()),
					zap.Int("status", ww.Status()),
				)

				// Redact by default; allowlist small JSON bodies only.
				if shouldLogBody(r, body) {
					log.Info("", zap.ByteString("requestData", body))
				} else {
					log.Info("")
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

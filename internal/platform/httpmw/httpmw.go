package httpmw

import (
	"net/http"
	"time"

	"dbcheck/internal/platform/logging"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Wrap adds OpenTelemetry spans and a structured access log. The request
// logger (trace ids, request id) is stored in the context for handlers.
func Wrap(service string, log *zap.Logger, next http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}

	accessLog := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		lg := logging.WithTrace(r.Context(), log)
		if rid := r.Header.Get(RequestIDHeader); rid != "" {
			lg = lg.With(zap.String("request_id", rid))
		}

		sw := &respWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r.WithContext(logging.With(r.Context(), lg)))

		fields := []zap.Field{
			zap.String("http.method", r.Method),
			zap.String("http.path", r.URL.Path),
			zap.Int("http.status", sw.status),
			zap.Duration("duration", time.Since(start)),
		}
		if ua := r.UserAgent(); ua != "" {
			fields = append(fields, zap.String("user_agent", ua))
		}
		if r.RemoteAddr != "" {
			fields = append(fields, zap.String("client.addr", r.RemoteAddr))
		}

		lg.Info("http", fields...)
	})

	// otelhttp must be outermost so r.Context() above carries the server span.
	return otelhttp.NewHandler(accessLog, service)
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *respWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

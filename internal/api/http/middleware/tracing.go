package middleware

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/serglom21/distributed-queue-instrumentation/internal/tracectx"
	"github.com/serglom21/distributed-queue-instrumentation/internal/tracing"
)

// Tracing establishes the propagation context for each request and records
// an OpenTelemetry server span around it.
//
// An inbound sentry-trace header continues the caller's trace; a missing one
// starts a fresh root so every request downstream of this middleware carries
// a usable context. A malformed header is logged and treated as missing,
// never failed.
func Tracing(tracer tracectx.Tracer, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			tc, ok, err := tracectx.ExtractHTTP(r.Header)
			if err != nil {
				log.Warn().
					Err(err).
					Str("path", r.URL.Path).
					Msg("Malformed trace header, starting fresh trace")
			}
			if !ok {
				tc = tracer.NewRootContext()
			}
			ctx = tracectx.NewContext(ctx, tc)
			ctx = tracing.ContextWithRemote(ctx, tc)

			otelTracer := otel.Tracer("queuedemo.http")

			spanName := "HTTP " + r.Method
			ctx, span := otelTracer.Start(ctx, spanName,
				trace.WithSpanKind(trace.SpanKindServer),
			)

			span.SetAttributes(
				attribute.String(tracing.AttrHTTPMethod, r.Method),
				attribute.String(tracing.AttrHTTPRoute, r.URL.Path),
				attribute.String("http.url", r.URL.String()),
				attribute.String("http.host", r.Host),
				attribute.String(tracing.AttrHTTPUserAgent, r.UserAgent()),
				attribute.String("http.remote_addr", r.RemoteAddr),
			)

			ww := &tracedResponseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(ww, r.WithContext(ctx))

			span.SetAttributes(
				attribute.Int(tracing.AttrHTTPStatusCode, ww.statusCode),
			)

			if ww.statusCode >= 400 {
				span.SetStatus(codes.Error, "HTTP "+strconv.Itoa(ww.statusCode))
			} else {
				span.SetStatus(codes.Ok, "")
			}

			span.End()
		})
	}
}

// tracedResponseWriter wraps http.ResponseWriter to capture status code
type tracedResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *tracedResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

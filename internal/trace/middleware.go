// Package trace carries the request-level middleware: panic recovery and
// span creation with trace context propagation.
package trace

import (
	"net/http"
	"runtime/debug"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Middleware struct {
	logger *zap.Logger
	debug  bool
	tracer trace.Tracer
}

func NewMiddleware(logger *zap.Logger, debug bool) *Middleware {
	return &Middleware{
		logger: logger,
		debug:  debug,
		tracer: otel.Tracer("trace/middleware"),
	}
}

// RecoverMiddleware converts handler panics into 500 responses instead of
// taking the process down.
func (m *Middleware) RecoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				fields := []zap.Field{
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				}
				if m.debug {
					fields = append(fields, zap.String("stack", string(debug.Stack())))
				}
				m.logger.Error("Recovered from panic in handler", fields...)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next(w, r)
	}
}

// TraceMiddleware opens a span per request, continuing any incoming trace
// context from the request headers.
func (m *Middleware) TraceMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		ctx, span := m.tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
			))
		defer span.End()

		logger := logutil.WithContext(ctx, m.logger)
		if m.debug {
			logger.Debug("Request received",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path))
		}

		next(w, r.WithContext(ctx))
	}
}

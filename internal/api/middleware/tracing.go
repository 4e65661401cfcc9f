package middleware

import (
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/fangstlog/fangstlog/internal/api/middleware"

// redactedParams never reach span attributes. Clients of the DMI proxy may
// still send their own api-key.
var redactedParams = []string{"api-key", "access_token"}

// Tracing starts a server span per request, continuing any W3C trace the
// client sent. The span is named after the chi route once it has matched,
// so trip and spot IDs stay out of span names.
func Tracing() func(http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			attrs := []attribute.KeyValue{
				attribute.String("http.request.method", r.Method),
				attribute.String("url.scheme", scheme(r)),
				attribute.String("url.path", r.URL.Path),
				attribute.String("server.address", r.Host),
				attribute.String("user_agent.original", r.UserAgent()),
				attribute.String("client.address", r.RemoteAddr),
			}
			if r.URL.RawQuery != "" {
				attrs = append(attrs, attribute.String("url.query", redactQuery(r.URL)))
			}
			if requestID := GetRequestID(ctx); requestID != "" {
				attrs = append(attrs, attribute.String("request.id", requestID))
			}

			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
			)
			defer span.End()

			rec := recordResponse(w)
			next.ServeHTTP(rec, r.WithContext(ctx))

			route := RoutePattern(r)
			span.SetName(r.Method + " " + route)
			span.SetAttributes(
				attribute.String("http.route", route),
				attribute.Int("http.response.status_code", rec.status),
				attribute.Int64("http.response.body.size", rec.bytes),
			)
			if userID := requestUser(ctx); userID != "" {
				span.SetAttributes(attribute.String("enduser.id", userID))
			}
			if rec.status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rec.status))
			}
		})
	}
}

func redactQuery(u *url.URL) string {
	q := u.Query()
	redacted := false
	for _, name := range redactedParams {
		if q.Has(name) {
			q.Set(name, "REDACTED")
			redacted = true
		}
	}
	if !redacted {
		return u.RawQuery
	}
	return q.Encode()
}

func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	return "http"
}

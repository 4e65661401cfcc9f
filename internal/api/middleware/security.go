package middleware

import (
	"net/http"

	"github.com/fangstlog/fangstlog/internal/api/models"
)

// securityHeaders are set on every response. The API serves JSON only, so
// nothing may be framed, sniffed or loaded from it. Responses carry trip
// data, so they are not cached unless a handler says otherwise.
var securityHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Strict-Transport-Security", "max-age=31536000; includeSubDomains"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Referrer-Policy", "no-referrer"},
	{"Cache-Control", "no-store"},
}

// SecurityHeaders adds securityHeaders to every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, kv := range securityHeaders {
			h.Set(kv[0], kv[1])
		}
		next.ServeHTTP(w, r)
	})
}

// RequireTLS refuses plain HTTP with a 403 when enabled. Behind Cloud Run
// TLS ends at the load balancer, so the forwarded protocol decides; a
// request without one is trusted.
func RequireTLS(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.TLS == nil {
				if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" && proto != "https" {
					problem := models.NewProblem(http.StatusForbidden, GetRequestID(r.Context()), "HTTPS is required")
					problem.Instance = r.URL.Path
					problem.Write(w)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

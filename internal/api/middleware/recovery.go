package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/fangstlog/fangstlog/internal/api/models"
)

// Recovery turns a handler panic into a 500 problem. http.ErrAbortHandler
// is re-raised so net/http can abort the connection as asked.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := recordResponse(w)

			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(v)
				}

				requestID := GetRequestID(r.Context())
				log.Error().
					Str("request_id", requestID).
					Str("route", RoutePattern(r)).
					Str("user_id", requestUser(r.Context())).
					Interface("panic", v).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")

				// Too late for a problem body once the handler started writing.
				if rec.wroteHeader {
					return
				}
				problem := models.NewProblem(http.StatusInternalServerError, requestID, "an unexpected error occurred")
				problem.Instance = r.URL.Path
				problem.Write(rec)
			}()

			next.ServeHTTP(rec, r)
		})
	}
}

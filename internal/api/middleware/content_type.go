package middleware

import (
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/fangstlog/fangstlog/internal/api/models"
)

// ContentTypeJSON defaults responses to application/json. Handlers that
// set their own type, such as the DMI proxy, override it.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// RequireJSON rejects request bodies that are not JSON with a 415. Bodies
// without a Content-Type are left to the decoder.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength == 0 {
			next.ServeHTTP(w, r)
			return
		}
		if ct := r.Header.Get("Content-Type"); ct != "" && !isJSONMediaType(ct) {
			problem := models.NewProblem(http.StatusUnsupportedMediaType, GetRequestID(r.Context()),
				fmt.Sprintf("content type %q is not JSON", ct))
			problem.Instance = r.URL.Path
			problem.Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isJSONMediaType accepts application/json and structured +json types.
func isJSONMediaType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

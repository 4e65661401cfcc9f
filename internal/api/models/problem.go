package models

import (
	"encoding/json"
	"net/http"
)

// ProblemContentType is the media type of every error body (RFC 7807).
const ProblemContentType = "application/problem+json"

const problemTypeBase = "https://api.fangstlog.dk/problems/"

// Problem is the body of every error response.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError points at one invalid field of a request body.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type problemKind struct {
	slug  string
	title string
}

// problemKinds lists the statuses the API answers with a documented type.
var problemKinds = map[int]problemKind{
	http.StatusBadRequest:            {"validation-error", "Validation error"},
	http.StatusUnauthorized:          {"unauthorized", "Unauthorized"},
	http.StatusForbidden:             {"forbidden", "Forbidden"},
	http.StatusNotFound:              {"not-found", "Not found"},
	http.StatusRequestEntityTooLarge: {"payload-too-large", "Payload too large"},
	http.StatusUnsupportedMediaType:  {"unsupported-media-type", "Unsupported media type"},
	http.StatusTooManyRequests:       {"too-many-requests", "Too many requests"},
	http.StatusInternalServerError:   {"internal-error", "Internal server error"},
	http.StatusBadGateway:            {"bad-gateway", "Bad gateway"},
	http.StatusServiceUnavailable:    {"service-unavailable", "Service unavailable"},
}

// ProblemType returns the type URI used for status, or about:blank when the
// API does not document one.
func ProblemType(status int) string {
	if kind, ok := problemKinds[status]; ok {
		return problemTypeBase + kind.slug
	}
	return "about:blank"
}

// NewProblem builds the problem for status.
func NewProblem(status int, traceID, detail string) *Problem {
	title := http.StatusText(status)
	if kind, ok := problemKinds[status]; ok {
		title = kind.title
	}
	return &Problem{
		Type:    ProblemType(status),
		Title:   title,
		Status:  status,
		Detail:  detail,
		TraceID: traceID,
	}
}

// NewValidationProblem builds a 400 carrying per-field errors.
func NewValidationProblem(traceID, detail string, errs []FieldError) *Problem {
	p := NewProblem(http.StatusBadRequest, traceID, detail)
	p.Errors = errs
	return p
}

// Write sends the problem. The trace ID doubles as the request ID header.
func (p *Problem) Write(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", ProblemContentType)
	if p.TraceID != "" {
		h.Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p) //nolint:errcheck // client went away
}

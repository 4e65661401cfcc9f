package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fangstlog/fangstlog/internal/api/middleware"
	"github.com/fangstlog/fangstlog/internal/api/models"
)

func TestRecovery_WritesProblem(t *testing.T) {
	var buf bytes.Buffer
	handler := middleware.RequestID(middleware.Recovery(zerolog.New(&buf))(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("nil spot") })))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/me/trips", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var problem models.Problem
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&problem))
	assert.Equal(t, "an unexpected error occurred", problem.Detail)
	assert.Equal(t, "/v1/me/trips", problem.Instance)
	assert.Equal(t, rec.Header().Get(middleware.RequestIDHeader), problem.TraceID)

	entry := logEntry(t, &buf)
	assert.Equal(t, "panic recovered", entry["message"])
	assert.Equal(t, "nil spot", entry["panic"])
	assert.NotEmpty(t, entry["stack"])
}

func TestRecovery_AfterHeaderWritten(t *testing.T) {
	handler := middleware.Recovery(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"type":"FeatureCollection"`))
		panic("upstream stream broke")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/dmi/x", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"type":"FeatureCollection"`, rec.Body.String())
}

func TestRecovery_ReraisesAbort(t *testing.T) {
	handler := middleware.Recovery(zerolog.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	})
}

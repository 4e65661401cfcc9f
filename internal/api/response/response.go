// Package response provides utilities for HTTP response handling.
package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/fangstlog/fangstlog/internal/api/middleware"
	"github.com/fangstlog/fangstlog/internal/api/models"
)

// MaxBodyBytes caps request bodies read by Decode. A trip with a long GPS
// track and many fish events fits comfortably.
const MaxBodyBytes = 4 << 20

// Errors returned by Decode.
var (
	ErrBodyTooLarge = errors.New("request body too large")
	ErrEmptyBody    = errors.New("request body is empty")
)

// Decode reads a JSON request body into v.
func Decode(r *http.Request, v any) error {
	body := io.LimitReader(r.Body, MaxBodyBytes+1)
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("reading body: %w", err)
	}
	if len(data) > MaxBodyBytes {
		return ErrBodyTooLarge
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return ErrEmptyBody
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding body: %w", err)
	}
	return nil
}

// setRequestID echoes the request ID for correlation.
func setRequestID(w http.ResponseWriter, r *http.Request) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	setRequestID(w, r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Created writes a 201 Created response with Location header.
func Created(w http.ResponseWriter, r *http.Request, location string, data any) {
	if location != "" {
		w.Header().Set("Location", location)
	}
	JSON(w, r, http.StatusCreated, data)
}

// NoContent writes a 204 No Content response.
func NoContent(w http.ResponseWriter, r *http.Request) {
	setRequestID(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// Error writes a Problem+JSON error response.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	setRequestID(w, r)
	problem.Instance = r.URL.Path
	problem.Write(w)
}

func problem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	Error(w, r, models.NewProblem(status, middleware.GetRequestID(r.Context()), detail))
}

// BadRequest writes a 400 with optional per-field errors.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, fieldErrors []models.FieldError) {
	Error(w, r, models.NewValidationProblem(middleware.GetRequestID(r.Context()), detail, fieldErrors))
}

// DecodeError answers a failed Decode: 413 for an oversized body, 400 otherwise.
func DecodeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrBodyTooLarge) {
		problem(w, r, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", MaxBodyBytes))
		return
	}
	BadRequest(w, r, "invalid JSON body", nil)
}

// Unauthorized writes a 401.
func Unauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	problem(w, r, http.StatusUnauthorized, detail)
}

// NotFound writes a 404.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	problem(w, r, http.StatusNotFound, detail)
}

// InternalError writes a 500. Keep detail free of internals; log the cause.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	problem(w, r, http.StatusInternalServerError, detail)
}

// BadGateway writes a 502 for a failed upstream call.
func BadGateway(w http.ResponseWriter, r *http.Request, detail string) {
	problem(w, r, http.StatusBadGateway, detail)
}

// ServiceUnavailable writes a 503.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string) {
	problem(w, r, http.StatusServiceUnavailable, detail)
}

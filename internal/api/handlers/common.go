// Package handlers provides HTTP request handlers for the zmapd API.
// This file contains response and parsing utilities shared across all
// handlers.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ostrand/zmapd/internal/errors"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response with the status code derived from
// the error taxonomy: configuration errors map to 4xx, execution and
// environment errors to 5xx.
func writeError(w http.ResponseWriter, err error) {
	statusCode := errors.HTTPStatus(err)
	writeErrorStatus(w, statusCode, err)
}

// writeErrorStatus writes an error response with an explicit status code.
func writeErrorStatus(w http.ResponseWriter, statusCode int, err error) {
	response := ErrorResponse{
		Error:     http.StatusText(statusCode),
		Code:      string(errors.GetCode(err)),
		Message:   err.Error(),
		Timestamp: time.Now().UTC(),
	}
	writeJSON(w, statusCode, response)
}

// parseJSON parses a JSON request body into the provided destination.
// Unknown fields are rejected and the body size is bounded.
func parseJSON(r *http.Request, dest interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("request body is empty")
	}

	// Bound request size to prevent memory exhaustion
	const maxRequestSize = 1 << 20
	r.Body = http.MaxBytesReader(nil, r.Body, maxRequestSize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// FileResponse reports a created file path.
type FileResponse struct {
	FilePath string `json:"file_path"`
	Message  string `json:"message"`
}

package httputil

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"
)

// successResponse wraps data in the standard {"data": ...} envelope.
type successResponse struct {
	Data interface{} `json:"data"`
}

// errorResponse is the standard error envelope.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JSON writes a success response with the given status code.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(successResponse{Data: data}); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// Error writes an error response with the given status code, error code, and message.
func Error(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error: errorBody{
			Code:    code,
			Message: message,
		},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// Unavailable writes a 503 error. A positive retryAfter is sent as a
// Retry-After header in whole seconds, rounded up.
func Unavailable(w http.ResponseWriter, code, message string, retryAfter time.Duration) {
	if retryAfter > 0 {
		secs := int(math.Ceil(retryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	Error(w, http.StatusServiceUnavailable, code, message)
}

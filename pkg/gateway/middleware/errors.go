package middleware

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the gateway's error body for requests it rejects
// itself. Upstream provider errors are never rewritten into this shape;
// they pass through byte for byte.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the error type and message.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response with the given status code.
func WriteError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: ErrorDetail{Type: errType, Message: message},
	})
}

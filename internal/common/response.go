package common

import (
	"encoding/json"
	"net/http"
)

// Error codes returned by the billing API. Clients switch on these rather
// than on HTTP status alone; the strings are part of the wire contract.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeNotFound           = "NOT_FOUND"
	CodeInternal           = "INTERNAL"
	CodeOrderLoadFailed    = "ORDER_LOAD_FAILED"
	CodeCatalogUnavailable = "CATALOG_UNAVAILABLE"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeSubmitFailed       = "SUBMIT_FAILED"
	CodeRateLimited        = "RATE_LIMITED"
	CodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
)

// ErrorBody represents a consistent error payload returned by the API.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON writes the provided value to the response writer as JSON.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONError renders an error response using the canonical error shape.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, map[string]any{
		"error": ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

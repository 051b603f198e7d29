// Package shared holds the JSON response helpers every handler package uses,
// so error envelopes stay uniform across features.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "chainalert/pkg/domain-errors"
)

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes a JSON body with the given status. Encoding failures after
// the header is committed can only be dropped.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// WriteError translates a domain error into its HTTP status and envelope.
// Non-domain errors collapse to a generic 500 so internals never leak.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	msg := ""
	var dErr *dErrors.Error
	if errors.As(err, &dErr) {
		msg = dErr.Message
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), ErrorResponse{
		Error:   string(code),
		Message: msg,
	})
}

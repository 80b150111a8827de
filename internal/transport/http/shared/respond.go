// Package shared holds the response helpers every HTTP handler uses, so the
// error envelope and status mapping stay identical across features.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "organlink/pkg/domain-errors"
)

// ErrorBody is the wire shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the machine-readable code and human message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error to its HTTP status and writes the error
// envelope. Errors without a code surface as 500 internal.
func WriteError(w http.ResponseWriter, err error) {
	status := dErrors.ToHTTPStatus(err)
	body := ErrorBody{Error: ErrorDetail{
		Code:    string(dErrors.CodeOf(err)),
		Message: err.Error(),
	}}
	WriteJSON(w, status, body)
}

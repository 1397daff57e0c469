package httputil

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the standard error envelope. Fields maps field name to a
// validation message; Hint carries a user-actionable suggestion such as a
// plan upgrade pointer.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Hint   string            `json:"hint,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a 200 response with JSON data.
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteErrorMessage writes a JSON error envelope with the given status.
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Error: message})
}

// WriteBadRequest writes a 400 error.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusBadRequest, message)
}

// WriteValidationError writes a 400 error with field-level messages.
func WriteValidationError(w http.ResponseWriter, message string, fields map[string]string) {
	WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: message, Fields: fields})
}

// WriteUnauthorized writes a 401 error.
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusUnauthorized, message)
}

// WritePaymentRequired writes a 402 error with an upgrade hint. This is the
// "not entitled" response and must never be used for backend outages.
func WritePaymentRequired(w http.ResponseWriter, message, hint string) {
	WriteJSON(w, http.StatusPaymentRequired, ErrorResponse{Error: message, Hint: hint})
}

// WriteNotFound writes a 404 error.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusNotFound, message)
}

// WriteInternalError writes a 500 error.
func WriteInternalError(w http.ResponseWriter, err error) {
	WriteErrorMessage(w, http.StatusInternalServerError, err.Error())
}

// WriteServiceUnavailable writes a 503 error. This is the "billing backend
// unreachable" response, kept distinct from 402.
func WriteServiceUnavailable(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusServiceUnavailable, message)
}

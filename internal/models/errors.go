package models

import (
	"encoding/json"
	"net/http"
)

type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
	SQL     string `json:"sql,omitempty"`
	Code    int    `json:"code,omitempty"`
}

func WriteError(w http.ResponseWriter, code int, message string) {
	WriteJSON(w, code, ErrorResponse{
		Status:  "error",
		Message: message,
		Code:    code,
	})
}

// WriteErrorKind writes an error response carrying the taxonomy kind and the
// last known SQL, so clients can show users what was attempted.
func WriteErrorKind(w http.ResponseWriter, code int, kind, message, sql string) {
	WriteJSON(w, code, ErrorResponse{
		Status:  "error",
		Message: message,
		Kind:    kind,
		SQL:     sql,
		Code:    code,
	})
}

func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Every handler in this application sends JSON back to the client.
// Rather than repeating the same three lines (set header, set status,
// encode JSON) in every handler, we centralise them here.
//
// Consistent response shapes also make life easier for API consumers —
// they always know what error responses look like.
package response

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// Error is the envelope for single-message failures:
//
//	{ "error": "Student not found" }
type Error struct {
	Error string `json:"error"`
}

// Errors is the envelope for validation failures, which are itemized so
// the frontend can show every problem at once:
//
//	{ "errors": ["Name is required", "Invalid email format"] }
type Errors struct {
	Errors []string `json:"errors"`
}

// WriteJSON writes a JSON-encoded response with the given HTTP status code.
//
// IMPORTANT ORDER: Header() → WriteHeader() → body writes.
// Once WriteHeader is called (or the first Write), headers are locked.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	// json.NewEncoder(w) streams directly into w, avoiding an
	// intermediate buffer.
	return json.NewEncoder(w).Encode(data)
}

// GeneralError wraps any Go error into the single-message envelope.
func GeneralError(err error) Error {
	return Error{Error: err.Error()}
}

// ValidationErrors converts go-playground/validator field errors into
// the itemized envelope. Each failing field becomes one plain-English
// message; the wording mirrors what the frontend already displays.
func ValidationErrors(errs validator.ValidationErrors) Errors {
	var messages []string

	for _, e := range errs {
		switch e.ActualTag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
		case "email":
			messages = append(messages, "Invalid email format")
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", e.Field()))
		}
	}

	return Errors{Errors: messages}
}

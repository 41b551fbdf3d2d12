package common

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the error envelope every endpoint answers with.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON writes v as the JSON response body.
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

// WriteAppError renders the AppError in err's chain and reports whether there
// was one. Missing fields fall back to fallbackStatus and a generic message.
func WriteAppError(w http.ResponseWriter, err error, fallbackStatus int) bool {
	appErr, ok := AsAppError(err)
	if !ok {
		return false
	}
	status := appErr.HTTPStatus
	if status == 0 {
		status = fallbackStatus
	}
	code := appErr.Code
	if code == "" {
		code = "INTERNAL"
	}
	message := appErr.Message
	if message == "" {
		message = http.StatusText(status)
	}
	JSONError(w, status, code, message, appErr.Details)
	return true
}

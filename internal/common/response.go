package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
)

// ErrorBody represents a consistent error payload returned by the API.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON writes the provided value wrapped in the success envelope.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    v,
	})
}

// JSONError renders an error response using the canonical error shape.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error": ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteError maps an error to the canonical error envelope. AppErrors keep
// their code and status; anything else becomes a 500 with the underlying
// detail exposed only outside production.
func WriteError(w http.ResponseWriter, err error) {
	if err == nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		code := appErr.Code
		if code == "" {
			code = "BAD_REQUEST"
		}
		details := appErr.Details
		if appErr.Err != nil && !isProduction() {
			details = mergeDetail(details, appErr.Err.Error())
		}
		JSONError(w, status, code, appErr.Message, details)
		return
	}
	if isProduction() {
		JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", map[string]any{"error": err.Error()})
}

func isProduction() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv("APP_ENV")), "production")
}

func mergeDetail(details any, cause string) any {
	m, ok := details.(map[string]any)
	if !ok {
		if details == nil {
			return map[string]any{"cause": cause}
		}
		return details
	}
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out["cause"] = cause
	return out
}

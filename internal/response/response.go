// Package response writes JSON bodies and maps domain errors to HTTP
// responses of the form {"status": "NOT_FOUND", "message": "..."}.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	domainerrors "github.com/bookshelf/backend/internal/errors"
)

// MsgInternal is the only message clients see for unexpected failures.
const MsgInternal = "Internal server error"

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// StatusName returns the upper snake case name of an HTTP status,
// e.g. 404 -> NOT_FOUND.
func StatusName(code int) string {
	text := http.StatusText(code)
	if text == "" {
		return "UNKNOWN"
	}
	text = strings.ReplaceAll(text, "-", " ")
	return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && logger != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}

// Error writes an error body with the given status code.
func Error(w http.ResponseWriter, status int, message string, logger *slog.Logger) {
	JSON(w, status, ErrorBody{Status: StatusName(status), Message: message}, logger)
}

// HandleError maps err to a response. Domain errors keep their message;
// anything else is logged and answered with a generic 500.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var domainErr *domainerrors.Error
	if domainerrors.As(err, &domainErr) && domainErr.Kind != domainerrors.KindInternal {
		Error(w, domainErr.HTTPStatus(), domainErr.Message, logger)
		return
	}

	if logger != nil {
		logger.Error("Unhandled error", "error", err)
	}
	Error(w, http.StatusInternalServerError, MsgInternal, logger)
}

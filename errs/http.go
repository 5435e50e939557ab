package errs

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// codeStatus maps application error codes to HTTP status codes.
var codeStatus = map[string]int{
	ECONFLICT:     http.StatusBadRequest,
	EINVALID:      http.StatusUnprocessableEntity,
	EFORBIDDEN:    http.StatusForbidden,
	ENOTFOUND:     http.StatusNotFound,
	EUNAUTHORIZED: http.StatusUnauthorized,
	EINTERNAL:     http.StatusInternalServerError,
}

// ErrorStatus returns the HTTP status code for any error.
func ErrorStatus(err error) int {
	if status, ok := codeStatus[ErrorCode(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// errorResponse is the JSON body for non-validation failures.
type errorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// validationResponse is the JSON body for validation failures:
// one message per violated field, keyed by the last path segment
// of the field name.
type validationResponse struct {
	Errors map[string]string `json:"errors"`
}

// ReturnError writes an error as JSON to the response. Validation errors
// are rendered as a per-field errors object, everything else as a single
// message/code pair. Internal errors are additionally logged.
func ReturnError(w http.ResponseWriter, r *http.Request, err error) {
	code := ErrorCode(err)
	if code == EINTERNAL {
		LogError(r, err)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(ErrorStatus(err))

	if fields := ErrorFields(err); code == EINVALID && len(fields) > 0 {
		out := make(map[string]string, len(fields))
		for field, message := range fields {
			parts := strings.Split(field, ".")
			out[parts[len(parts)-1]] = message
		}
		json.NewEncoder(w).Encode(validationResponse{Errors: out})
		return
	}

	json.NewEncoder(w).Encode(errorResponse{
		Message: ErrorMessage(err),
		Code:    code,
	})
}

// LogError logs an error together with the request it occurred on.
func LogError(r *http.Request, err error) {
	log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
}

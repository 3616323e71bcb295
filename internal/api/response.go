package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	jerrors "trade-journal/internal/errors"
)

// envelope is the body of every API response.
type envelope struct {
	Success  bool        `json:"success"`
	Data     interface{} `json:"data,omitempty"`
	Message  string      `json:"message,omitempty"`
	Error    string      `json:"error,omitempty"`
	Token    string      `json:"token,omitempty"`
	Username string      `json:"username,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: true, Message: msg})
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

// writeError maps err onto a status code and writes the failure envelope.
// Server errors are logged with the request's logger.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Msg("Request failed")
	}
	writeErrorMessage(w, status, messageFor(err, status))
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, jerrors.ErrInputValidation),
		errors.Is(err, jerrors.ErrDuplicateUsername),
		errors.Is(err, jerrors.ErrUserNotFound),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, jerrors.ErrUnauthorized),
		errors.Is(err, jerrors.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, jerrors.ErrForbidden),
		errors.Is(err, jerrors.ErrReadOnlyMode):
		return http.StatusForbidden
	case errors.Is(err, jerrors.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, jerrors.ErrDatabaseError):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error, status int) string {
	var ve *jerrors.ValidationError
	var de *jerrors.DataError
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case status == http.StatusNotFound && errors.As(err, &de):
		return de.Message
	case status == http.StatusRequestEntityTooLarge:
		return "Request body too large"
	default:
		return err.Error()
	}
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Dias221467/Chat_Manager/internal/apperrors"
	"github.com/Dias221467/Chat_Manager/internal/i18n"
	"github.com/Dias221467/Chat_Manager/internal/validation"
	"github.com/Dias221467/Chat_Manager/pkg/logger"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// WriteError renders err as JSON in the caller's language.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	tag := i18n.Match(r.Header.Get("Accept-Language"))

	resp := ErrorResponse{
		Error: i18n.Message(tag, err),
		Code:  apperrors.CodeOf(err),
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		resp.Fields = i18n.FieldMessages(tag, fieldErrs)
	}

	if status == http.StatusInternalServerError {
		logger.Log.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
	}

	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.WithError(err).Warn("Failed to encode response")
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logger.Log.WithError(err).Warn("Failed to decode request body")
		return apperrors.Validation("Invalid request payload")
	}
	return nil
}

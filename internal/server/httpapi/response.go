package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jkalnina/authgate/internal/common"
)

type errorBody struct {
	Error string `json:"error"`
}

type statusBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Distinct business errors stay distinguishable to the caller.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrInvalidInput),
		errors.Is(err, common.ErrAlreadyExists),
		errors.Is(err, common.ErrDuplicateEmail),
		errors.Is(err, common.ErrAlreadyVerified),
		errors.Is(err, common.ErrWrongFlow):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, common.ErrEmailNotVerified):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, common.ErrNotificationFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, common.ErrProviderUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

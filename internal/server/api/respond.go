package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/quietpage/quietpage/internal/common"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps a sentinel error to its HTTP status and serializes its
// message verbatim. Anything unmapped collapses to a plain internal error so
// database details never reach the wire.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		err = common.ErrInternal
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrEntryNotFound),
		errors.Is(err, common.ErrGoalNotFound),
		errors.Is(err, common.ErrPromptNotFound),
		errors.Is(err, common.ErrKeyNotFound),
		errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrProfessionalNotLinked),
		errors.Is(err, common.ErrUserAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, common.ErrUnauthenticated),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrRefreshTokenExpired):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

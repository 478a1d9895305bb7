package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/starford/vrindex/internal/apperr"
	"github.com/starford/vrindex/internal/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

func writeText(w http.ResponseWriter, status int, contentType, body string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
	Code  string `json:"code,omitempty" example:"name_not_found"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// errorKinds maps domain errors to a status and a stable code. The first
// match wins.
var errorKinds = []struct {
	err    error
	status int
	code   string
}{
	{apperr.ErrNameNotFound, http.StatusNotFound, "name_not_found"},
	{apperr.ErrNotFound, http.StatusNotFound, "not_found"},
	{os.ErrNotExist, http.StatusNotFound, "not_found"},
	{apperr.ErrDuplicateWrite, http.StatusConflict, "duplicate_write"},
	{apperr.ErrNoPushedState, http.StatusConflict, "no_pushed_state"},
	{apperr.ErrInvalidNamespace, http.StatusBadRequest, "invalid_namespace"},
	{apperr.ErrTypeMismatch, http.StatusBadRequest, "type_mismatch"},
	{apperr.ErrMalformedInput, http.StatusBadRequest, "malformed_input"},
	{apperr.ErrEmptyContainerRejected, http.StatusBadRequest, "empty_container_rejected"},
	{apperr.ErrCircularReference, http.StatusBadRequest, "circular_reference"},
	{apperr.ErrMalformedMix, http.StatusBadRequest, "malformed_mix"},
	{apperr.ErrCorruptQueue, http.StatusBadRequest, "corrupt_queue"},
	{apperr.ErrBadEnvironmentVariable, http.StatusBadRequest, "bad_environment_variable"},
	{storage.ErrNotSource, http.StatusBadRequest, "not_source"},
}

// classify maps err to an HTTP status and code; unknown errors are 500.
func classify(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, k.code
		}
	}
	return http.StatusInternalServerError, ""
}

func writeError(w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, status, errorBody("internal error"))
		return
	}
	writeJSON(w, status, errResponse{Error: err.Error(), Code: code})
}

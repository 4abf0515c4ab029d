package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"expense-api/internal/common"
)

// maxBodyBytes caps request bodies; expense payloads are tiny.
const maxBodyBytes = 1 << 20

// errorResponse is the uniform error body: a human-readable detail string.
type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed request body", common.ErrorValidation)
	}
	return nil
}

// isClientError reports whether err belongs to the 4xx half of the taxonomy,
// i.e. is expected and not worth an error-level log line.
func isClientError(err error) bool {
	return errors.Is(err, common.ErrorValidation) ||
		errors.Is(err, common.ErrorAlreadyExists) ||
		errors.Is(err, common.ErrorUnauthorized) ||
		errors.Is(err, common.ErrorForbidden) ||
		errors.Is(err, common.ErrorNotFound)
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Unrecognized errors become a generic 500 so internals never leak.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, common.ErrorAlreadyExists):
		writeError(w, http.StatusBadRequest, "user already exists")
	case errors.Is(err, common.ErrorUnauthorized):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, common.ErrorForbidden):
		writeError(w, http.StatusForbidden, "not allowed")
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "expense not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

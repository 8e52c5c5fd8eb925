package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/rawasy/aderlee/internal/core/domain"
	"github.com/rawasy/aderlee/pkg/securedata"
)

// Shared validator instance; handlers validate request payloads before
// anything reaches a service.
var validate = validator.New()

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

// HandleError maps service errors onto HTTP status codes. Anything
// unmapped deliberately collapses into a 500 without leaking details.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, domain.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, domain.ErrConflict):
		respondError(w, http.StatusConflict, "Version conflict, retry the request")
	case errors.Is(err, securedata.ErrChecksumMismatch),
		errors.Is(err, securedata.ErrInvalidInput),
		errors.Is(err, securedata.ErrInvalidKey):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &validationErrs):
		respondError(w, http.StatusBadRequest, validationErrs.Error())
	default:
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

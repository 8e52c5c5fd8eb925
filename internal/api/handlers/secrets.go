package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rawasy/aderlee/internal/core/services"
	"github.com/rawasy/aderlee/internal/worker"
)

// ==============================================================================
// 1. Request & Response Payloads
// ==============================================================================

// Value is not required: storing the empty string is legal.
type PutSecretRequest struct {
	Value string `json:"value"`
}

type RotateRequest struct {
	Master string `json:"master" validate:"max=512"`
}

type revealResponse struct {
	Name      string    `json:"name"`
	Value     string    `json:"value"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ==============================================================================
// 2. The Handler Struct (Dependency Injection)
// ==============================================================================

type SecretHandler struct {
	Service *services.SecretService
	Rotator *worker.RotationWorker
}

func NewSecretHandler(service *services.SecretService, rotator *worker.RotationWorker) *SecretHandler {
	return &SecretHandler{
		Service: service,
		Rotator: rotator,
	}
}

// secretName pulls the name out of the catch-all route segment, so
// names with slashes ("db/password") address naturally.
func secretName(r *http.Request) string {
	return chi.URLParam(r, "*")
}

// ==============================================================================
// 3. HTTP Methods
// ==============================================================================

// List handles GET /api/v1/secrets
func (h *SecretHandler) List(w http.ResponseWriter, r *http.Request) {
	secrets, err := h.Service.List(r.Context())
	if err != nil {
		HandleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, secrets)
}

// Put handles PUT /api/v1/secrets/*
func (h *SecretHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req PutSecretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	secret, err := h.Service.Put(r.Context(), secretName(r), req.Value)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	status := http.StatusOK
	if secret.Version == 1 {
		status = http.StatusCreated
	}

	// Metadata only; the payload never rides along.
	secret.Encoded = ""
	respondJSON(w, status, secret)
}

// Get handles GET /api/v1/secrets/*
func (h *SecretHandler) Get(w http.ResponseWriter, r *http.Request) {
	secret, value, err := h.Service.Reveal(r.Context(), secretName(r))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, revealResponse{
		Name:      secret.Name,
		Value:     value,
		Version:   secret.Version,
		CreatedAt: secret.CreatedAt,
		UpdatedAt: secret.UpdatedAt,
	})
}

// Delete handles DELETE /api/v1/secrets/*
func (h *SecretHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), secretName(r)); err != nil {
		HandleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Rotate handles POST /api/v1/secrets/rotate
func (h *SecretHandler) Rotate(w http.ResponseWriter, r *http.Request) {
	var req RotateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if err := validate.Struct(req); err != nil {
		HandleError(w, r, err)
		return
	}

	report, err := h.Rotator.Rotate(r.Context(), req.Master)
	switch {
	case errors.Is(err, worker.ErrRotationInProgress):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, worker.ErrRotationAborted):
		respondJSON(w, http.StatusConflict, map[string]any{
			"message": err.Error(),
			"report":  report,
		})
	case errors.Is(err, worker.ErrSameMaster):
		respondError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		HandleError(w, r, err)
	default:
		respondJSON(w, http.StatusOK, map[string]any{
			"message": "rotation complete",
			"report":  report,
		})
	}
}

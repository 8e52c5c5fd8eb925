package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rawasy/aderlee/internal/core/services"
)

// ==============================================================================
// 1. Request Payloads (Input Validation)
// ==============================================================================

// Value is deliberately not required: the empty string is a legal
// message and encodes to the bare checksum.
type EncodeRequest struct {
	Value string   `json:"value"`
	Keys  []string `json:"keys" validate:"omitempty,max=16,dive,min=1,max=512"`
}

type DecodeRequest struct {
	Encoded string   `json:"encoded" validate:"required"`
	Keys    []string `json:"keys" validate:"omitempty,max=16,dive,min=1,max=512"`
}

type ProbeRequest struct {
	Candidate string   `json:"candidate"`
	Keys      []string `json:"keys" validate:"omitempty,max=16,dive,min=1,max=512"`
}

// ==============================================================================
// 2. The Handler Struct (Dependency Injection)
// ==============================================================================

// CodecHandler exposes the raw codec for callers that manage their own
// key material, bypassing the stored secrets entirely.
type CodecHandler struct {
	Service *services.CodecService
}

func NewCodecHandler(service *services.CodecService) *CodecHandler {
	return &CodecHandler{
		Service: service,
	}
}

// ==============================================================================
// 3. HTTP Methods
// ==============================================================================

// Encode handles POST /api/v1/codec/encode
func (h *CodecHandler) Encode(w http.ResponseWriter, r *http.Request) {
	var req EncodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if err := validate.Struct(req); err != nil {
		HandleError(w, r, err)
		return
	}

	encoded, err := h.Service.Encode(r.Context(), req.Keys, req.Value)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"encoded": encoded})
}

// Decode handles POST /api/v1/codec/decode
func (h *CodecHandler) Decode(w http.ResponseWriter, r *http.Request) {
	var req DecodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if err := validate.Struct(req); err != nil {
		HandleError(w, r, err)
		return
	}

	value, err := h.Service.Decode(r.Context(), req.Keys, req.Encoded)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"value": value})
}

// Probe handles POST /api/v1/codec/probe
func (h *CodecHandler) Probe(w http.ResponseWriter, r *http.Request) {
	var req ProbeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if err := validate.Struct(req); err != nil {
		HandleError(w, r, err)
		return
	}

	recognized, err := h.Service.Probe(r.Context(), req.Keys, req.Candidate)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"recognized": recognized})
}

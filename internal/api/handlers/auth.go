package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rawasy/aderlee/internal/core/services"
)

// ==============================================================================
// 1. Request Payloads (Input Validation)
// ==============================================================================

type LoginRequest struct {
	APIKey string `json:"api_key" validate:"required,max=512"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ==============================================================================
// 2. The Handler Struct (Dependency Injection)
// ==============================================================================

type AuthHandler struct {
	Service *services.AuthService
}

func NewAuthHandler(service *services.AuthService) *AuthHandler {
	return &AuthHandler{
		Service: service,
	}
}

// ==============================================================================
// 3. HTTP Methods
// ==============================================================================

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if err := validate.Struct(req); err != nil {
		HandleError(w, r, err)
		return
	}

	access, refresh, err := h.Service.Login(r.Context(), req.APIKey)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	h.setSessionCookie(w, r, access)
	respondJSON(w, http.StatusOK, tokenPairResponse{AccessToken: access, RefreshToken: refresh})
}

// Refresh handles POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if err := validate.Struct(req); err != nil {
		HandleError(w, r, err)
		return
	}

	access, refresh, err := h.Service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	h.setSessionCookie(w, r, access)
	respondJSON(w, http.StatusOK, tokenPairResponse{AccessToken: access, RefreshToken: refresh})
}

// setSessionCookie mirrors the access token into an HttpOnly cookie so
// browser clients never have to store it in script-reachable state.
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, r *http.Request, access string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "aderlee_access_token",
		Value:    access,
		Path:     "/",
		MaxAge:   15 * 60,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
}

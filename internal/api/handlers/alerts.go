package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rawasy/aderlee/internal/core/domain"
)

// AlertHandler pages and resolves the alerts filed by the background
// sweeps. It talks to the repository directly; there is no business
// logic between the operator and the action center.
type AlertHandler struct {
	Repo domain.AlertRepository
}

func NewAlertHandler(repo domain.AlertRepository) *AlertHandler {
	return &AlertHandler{Repo: repo}
}

// List handles GET /api/v1/alerts with optional filters: resolved,
// severity, category, resource, limit, offset.
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.AlertFilter{
		Severity:   q.Get("severity"),
		Category:   q.Get("category"),
		ResourceID: q.Get("resource"),
	}
	if v := q.Get("resolved"); v != "" {
		resolved, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "resolved must be true or false")
			return
		}
		filter.IsResolved = &resolved
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			respondError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		filter.Offset = offset
	}

	alerts, total, err := h.Repo.GetFilteredAlerts(r.Context(), filter)
	if err != nil {
		HandleError(w, r, err)
		return
	}
	if alerts == nil {
		alerts = []domain.SystemAlert{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"total":  total,
	})
}

// Resolve handles POST /api/v1/alerts/{id}/resolve, recording the JWT
// subject as the resolver.
func (h *AlertHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	alertID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid alert id")
		return
	}

	resolvedBy := "operator"
	if claims, ok := r.Context().Value(domain.ClaimsContextKey).(*domain.VaultClaims); ok {
		resolvedBy = claims.Subject
	}

	if err := h.Repo.ResolveAlert(r.Context(), alertID, resolvedBy); err != nil {
		HandleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Alert resolved"})
}

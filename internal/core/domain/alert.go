package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Severities and categories the background sweeps file alerts under.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"

	CategoryIntegrity = "integrity"
	CategoryRotation  = "rotation"
)

// SystemAlert is a persisted operator notification: something a background
// sweep found that needs a human decision before it resolves itself.
type SystemAlert struct {
	ID         uuid.UUID      `json:"id" db:"id"`
	Severity   string         `json:"severity" db:"severity"`
	Category   string         `json:"category" db:"category"`
	ResourceID string         `json:"resource_id" db:"resource_id"`
	Message    string         `json:"message" db:"message"`
	IsResolved bool           `json:"is_resolved" db:"is_resolved"`
	Metadata   map[string]any `json:"metadata,omitempty" db:"metadata"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}

// AlertFilter narrows alert listings; zero values mean "no constraint".
type AlertFilter struct {
	IsResolved *bool
	Severity   string
	Category   string
	ResourceID string
	Limit      int
	Offset     int
}

// AlertRepository persists and pages operator alerts.
type AlertRepository interface {
	CreateAlert(ctx context.Context, alert *SystemAlert) error
	GetFilteredAlerts(ctx context.Context, filter AlertFilter) ([]SystemAlert, int, error)
	ResolveAlert(ctx context.Context, alertID uuid.UUID, resolvedBy string) error
}

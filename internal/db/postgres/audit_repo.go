package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rawasy/aderlee/internal/core/domain"
)

// AuditRepo persists the alerts filed by the integrity and rotation sweeps.
type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// CreateAlert persists a sweep finding with consistent metadata.
func (r *AuditRepo) CreateAlert(ctx context.Context, alert *domain.SystemAlert) error {
	query := `
		INSERT INTO system_alerts (severity, category, resource_id, message, metadata)
		VALUES ($1, $2, $3, $4, COALESCE($5, '{}'::jsonb))
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		alert.Severity,
		alert.Category,
		alert.ResourceID,
		alert.Message,
		alert.Metadata,
	).Scan(&alert.ID, &alert.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: creating alert: %w", err)
	}
	return nil
}

// GetFilteredAlerts builds a dynamic SQL query from the operator's filters
// and returns one page of alerts plus the unpaged total.
func (r *AuditRepo) GetFilteredAlerts(ctx context.Context, filter domain.AlertFilter) ([]domain.SystemAlert, int, error) {
	query := `SELECT id, severity, category, resource_id, message, is_resolved, metadata, created_at FROM system_alerts WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM system_alerts WHERE 1=1`

	filterParts := ""
	var args []any
	argCount := 1

	if filter.IsResolved != nil {
		filterParts += fmt.Sprintf(" AND is_resolved = $%d", argCount)
		args = append(args, *filter.IsResolved)
		argCount++
	}
	if filter.Severity != "" {
		filterParts += fmt.Sprintf(" AND severity = $%d", argCount)
		args = append(args, filter.Severity)
		argCount++
	}
	if filter.Category != "" {
		filterParts += fmt.Sprintf(" AND category = $%d", argCount)
		args = append(args, filter.Category)
		argCount++
	}
	if filter.ResourceID != "" {
		filterParts += fmt.Sprintf(" AND resource_id = $%d", argCount)
		args = append(args, filter.ResourceID)
		argCount++
	}

	query += filterParts
	countQuery += filterParts

	// Total count for UI pagination.
	var totalCount int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("postgres: counting alerts: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: fetching alerts: %w", err)
	}
	defer rows.Close()

	alerts, err := pgx.CollectRows(rows, pgx.RowToStructByName[domain.SystemAlert])
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: scanning alerts: %w", err)
	}
	return alerts, totalCount, nil
}

// ResolveAlert marks an alert handled, recording who closed it. Resolving an
// unknown or already-resolved alert reports ErrNotFound.
func (r *AuditRepo) ResolveAlert(ctx context.Context, alertID uuid.UUID, resolvedBy string) error {
	query := `
		UPDATE system_alerts
		SET is_resolved = true, resolved_at = NOW(), metadata = metadata || jsonb_build_object('resolved_by', $1::text)
		WHERE id = $2 AND is_resolved = false
	`
	tag, err := r.pool.Exec(ctx, query, resolvedBy, alertID)
	if err != nil {
		return fmt.Errorf("postgres: resolving alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: alert missing or already resolved: %w", domain.ErrNotFound)
	}
	return nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rawasy/aderlee/internal/core/domain"
)

type SecretRepo struct {
	pool *pgxpool.Pool
}

func NewSecretRepo(pool *pgxpool.Pool) *SecretRepo {
	return &SecretRepo{pool: pool}
}

// Upsert inserts the secret or replaces an existing name's payload in a
// single atomic statement, bumping the row version on replacement. The
// persisted row state is scanned back into secret.
func (r *SecretRepo) Upsert(ctx context.Context, secret *domain.Secret) error {
	if secret.ID == uuid.Nil {
		secret.ID = uuid.New()
	}

	query := `
		INSERT INTO secrets (id, name, encoded, version, created_at, updated_at)
		VALUES ($1, $2, $3, 1, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE
		SET encoded = EXCLUDED.encoded,
		    version = secrets.version + 1,
		    updated_at = NOW()
		RETURNING id, name, encoded, version, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query, secret.ID, secret.Name, secret.Encoded).Scan(
		&secret.ID, &secret.Name, &secret.Encoded, &secret.Version, &secret.CreatedAt, &secret.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert secret: %w", err)
	}

	return nil
}

func (r *SecretRepo) GetByName(ctx context.Context, name string) (*domain.Secret, error) {
	query := `
		SELECT id, name, encoded, version, created_at, updated_at
		FROM secrets
		WHERE name = $1
	`

	var secret domain.Secret
	err := r.pool.QueryRow(ctx, query, name).Scan(
		&secret.ID, &secret.Name, &secret.Encoded, &secret.Version, &secret.CreatedAt, &secret.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &secret, nil
}

func (r *SecretRepo) List(ctx context.Context) ([]domain.Secret, error) {
	query := `
		SELECT id, name, encoded, version, created_at, updated_at
		FROM secrets
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list secrets: %w", err)
	}
	defer rows.Close()

	var secrets []domain.Secret
	for rows.Next() {
		var s domain.Secret
		if err := rows.Scan(&s.ID, &s.Name, &s.Encoded, &s.Version, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan secret row: %w", err)
		}
		secrets = append(secrets, s)
	}

	return secrets, rows.Err()
}

func (r *SecretRepo) Delete(ctx context.Context, name string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM secrets WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete secret: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateEncoded replaces the payload only while the row still carries
// the expected version. Zero affected rows means the row moved on (or
// vanished) underneath the caller; ErrConflict lets it re-read and
// retry.
func (r *SecretRepo) UpdateEncoded(ctx context.Context, id uuid.UUID, encoded string, expectedVersion int) error {
	query := `
		UPDATE secrets
		SET encoded = $2, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $3
	`

	tag, err := r.pool.Exec(ctx, query, id, encoded, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update secret payload: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

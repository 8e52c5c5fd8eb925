package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Secret represents one named vault entry. The value is held in its
// encoded wire form; plaintext exists in memory only on the way in or
// out.
type Secret struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Encoded   string    `json:"encoded"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate ensures the entry is sound before it reaches the database.
func (s *Secret) Validate() error {
	if s.Name == "" {
		return errors.New("domain validation failed: secret name must not be empty")
	}
	if len(s.Name) > 255 {
		return errors.New("domain validation failed: secret name must be at most 255 characters")
	}
	if s.Name == "*" {
		return errors.New("domain validation failed: secret name \"*\" is reserved for watch subscriptions")
	}
	return nil
}

// SecretRepository defines the persistence contract for vault entries.
type SecretRepository interface {
	// Upsert inserts the secret or replaces the payload of an existing
	// name, bumping its version. The persisted row state is written
	// back into secret.
	Upsert(ctx context.Context, secret *Secret) error

	GetByName(ctx context.Context, name string) (*Secret, error)
	List(ctx context.Context) ([]Secret, error)
	Delete(ctx context.Context, name string) error

	// UpdateEncoded swaps the stored payload only while the row still
	// carries the expected version; ErrConflict otherwise.
	UpdateEncoded(ctx context.Context, id uuid.UUID, encoded string, expectedVersion int) error
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rawasy/aderlee/internal/core/domain"
	"github.com/rawasy/aderlee/internal/telemetry"
)

type SecretService struct {
	repo       domain.SecretRepository
	obfuscator domain.ObfuscationService
	hub        *telemetry.Hub
	logger     *slog.Logger
}

func NewSecretService(
	repo domain.SecretRepository,
	obfuscator domain.ObfuscationService,
	hub *telemetry.Hub,
	logger *slog.Logger,
) *SecretService {
	return &SecretService{
		repo:       repo,
		obfuscator: obfuscator,
		hub:        hub,
		logger:     logger,
	}
}

// Put obfuscates and persists a named value, then announces the change.
func (s *SecretService) Put(ctx context.Context, name, plaintext string) (*domain.Secret, error) {
	secret := &domain.Secret{Name: name}
	if err := secret.Validate(); err != nil {
		return nil, err
	}

	// 🛡️ Name binding: the payload is keyed to its own name, so a row
	// copied onto a different name can never decode.
	encoded, err := s.obfuscator.EncodeValue(ctx, name, plaintext)
	if err != nil {
		s.logger.Error("Encoding failure", slog.String("name", name))
		return nil, fmt.Errorf("failed to encode secret: %w", err)
	}
	secret.Encoded = encoded

	if err := s.repo.Upsert(ctx, secret); err != nil {
		return nil, err
	}

	s.hub.Broadcast(telemetry.ChangeEvent{
		Op:      telemetry.OpPut,
		Name:    secret.Name,
		Version: secret.Version,
		At:      time.Now(),
	})
	s.logger.Info("Secret stored", slog.String("name", secret.Name), slog.Int("version", secret.Version))

	return secret, nil
}

// Reveal fetches a secret and decodes its payload. Rows whose payload
// does not carry the wire format for this name (hand-seeded plaintext)
// pass through verbatim rather than failing.
func (s *SecretService) Reveal(ctx context.Context, name string) (*domain.Secret, string, error) {
	secret, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return nil, "", err
	}

	if !s.obfuscator.Recognizes(ctx, name, secret.Encoded) {
		s.logger.Warn("Revealing unrecognized payload verbatim", slog.String("name", name))
		return secret, secret.Encoded, nil
	}

	plaintext, err := s.obfuscator.DecodeValue(ctx, name, secret.Encoded)
	if err != nil {
		s.logger.Error("Decoding failure", slog.String("name", name))
		return nil, "", fmt.Errorf("failed to decode secret: %w", err)
	}

	return secret, plaintext, nil
}

// List returns metadata for every stored secret. Payloads are scrubbed;
// values only leave the vault through Reveal.
func (s *SecretService) List(ctx context.Context) ([]domain.Secret, error) {
	secrets, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	for i := range secrets {
		secrets[i].Encoded = ""
	}
	return secrets, nil
}

// Delete removes a named secret and announces the removal.
func (s *SecretService) Delete(ctx context.Context, name string) error {
	if err := s.repo.Delete(ctx, name); err != nil {
		return err
	}

	s.hub.Broadcast(telemetry.ChangeEvent{
		Op:   telemetry.OpDelete,
		Name: name,
		At:   time.Now(),
	})
	s.logger.Info("Secret deleted", slog.String("name", name))

	return nil
}

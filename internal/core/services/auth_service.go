package services

import (
	"context"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/rawasy/aderlee/internal/core/domain"
)

// AuthService exchanges the operator API key for a JWT session. The
// vault has exactly one principal; there is no user table to consult.
type AuthService struct {
	tokens     *TokenService
	apiKeyHash string
	logger     *slog.Logger
}

func NewAuthService(tokens *TokenService, apiKeyHash string, logger *slog.Logger) *AuthService {
	return &AuthService{
		tokens:     tokens,
		apiKeyHash: apiKeyHash,
		logger:     logger,
	}
}

// Login verifies the presented API key against the configured bcrypt
// hash and mints a token pair.
func (s *AuthService) Login(ctx context.Context, apiKey string) (string, string, error) {
	// 🛡️ With no hash configured, nobody can log in. Fail closed.
	if s.apiKeyHash == "" {
		s.logger.Warn("Login rejected: no API key hash configured")
		return "", "", domain.ErrInvalidCredentials
	}

	// Constant-time check
	if err := bcrypt.CompareHashAndPassword([]byte(s.apiKeyHash), []byte(apiKey)); err != nil {
		s.logger.Warn("Failed login attempt")
		return "", "", domain.ErrInvalidCredentials
	}

	return s.tokens.GenerateTokenPair()
}

// Refresh trades a still-valid refresh token for a fresh pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	if err := s.tokens.VerifyRefreshToken(refreshToken); err != nil {
		s.logger.Warn("Rejected refresh token", slog.String("reason", err.Error()))
		return "", "", domain.ErrInvalidCredentials
	}

	return s.tokens.GenerateTokenPair()
}

// ValidateAccessToken lets the middleware check bearer tokens without
// reaching into the token service directly.
func (s *AuthService) ValidateAccessToken(ctx context.Context, tokenString string) (*domain.VaultClaims, error) {
	return s.tokens.ValidateAccessToken(tokenString)
}

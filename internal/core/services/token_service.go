package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rawasy/aderlee/internal/core/domain"
)

const tokenIssuer = "aderlee-vault"

type TokenService struct {
	secret []byte
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// GenerateTokenPair mints both the short-lived access token and the long-lived refresh token
func (s *TokenService) GenerateTokenPair() (string, string, error) {
	// 1. 🛡️ Mint Access Token (15 Minutes)
	accessClaims := domain.VaultClaims{
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "operator",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    tokenIssuer,
		},
	}
	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims)
	signedAccess, err := accessToken.SignedString(s.secret)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign access token: %w", err)
	}

	// 2. 🛡️ Mint Refresh Token (7 Days)
	refreshClaims := domain.VaultClaims{
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "operator",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(7 * 24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    tokenIssuer,
			ID:        uuid.New().String(), // JTI for potential revocation tracking
		},
	}
	refreshToken := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims)
	signedRefresh, err := refreshToken.SignedString(s.secret)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return signedAccess, signedRefresh, nil
}

// ValidateAccessToken checks signature, expiry, and token type before
// letting a request through the auth middleware.
func (s *TokenService) ValidateAccessToken(tokenString string) (*domain.VaultClaims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}

	// 🛡️ Explicitly prevent a Refresh token from being used for API access
	if claims.TokenType != "access" {
		return nil, fmt.Errorf("invalid token type: expected access")
	}

	return claims, nil
}

// VerifyRefreshToken validates the signature, expiry, and token type
func (s *TokenService) VerifyRefreshToken(tokenString string) error {
	claims, err := s.parse(tokenString)
	if err != nil {
		return err
	}

	// 🛡️ Explicitly prevent an Access token from being used as a Refresh token
	if claims.TokenType != "refresh" {
		return fmt.Errorf("invalid token type: expected refresh")
	}

	return nil
}

func (s *TokenService) parse(tokenString string) (*domain.VaultClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &domain.VaultClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 🛡️ Zero-Trust: Force the signing method check
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token signature or expired: %w", err)
	}

	claims, ok := token.Claims.(*domain.VaultClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}

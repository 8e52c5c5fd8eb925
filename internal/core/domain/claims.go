package domain

import "github.com/golang-jwt/jwt/v5"

type contextKey string

// ClaimsContextKey carries the authenticated claims through the request
// context once the auth middleware has validated the bearer token.
const ClaimsContextKey contextKey = "vault_claims"

// VaultClaims holds the stateless authorization data
type VaultClaims struct {
	TokenType string `json:"token_type"` // 🛡️ Distinguish between 'access' and 'refresh'
	jwt.RegisteredClaims
}

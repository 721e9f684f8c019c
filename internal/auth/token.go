package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nadhifr/eventra/internal/models"
)

// TokenManager handles JWT token generation and validation for admin
// operators.
type TokenManager struct {
	secret            []byte
	accessTokenExpiry time.Duration
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, accessExpiry time.Duration) *TokenManager {
	return &TokenManager{
		secret:            []byte(secret),
		accessTokenExpiry: accessExpiry,
	}
}

// Generate mints a signed access token for an admin user.
func (tm *TokenManager) Generate(user *models.User) (string, error) {
	now := time.Now()
	claims := models.TokenClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.accessTokenExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies an access token, returning its claims.
func (tm *TokenManager) Validate(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, models.ErrUnauthorized
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid {
		return nil, models.ErrUnauthorized
	}
	return claims, nil
}

package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the JWT claims carried by admin access tokens.
type TokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

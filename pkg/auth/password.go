package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost     = 12
	MinPasswordLen = 8
	MaxPasswordLen = 128
)

// HashPassword hashes an operator password with bcrypt
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	if len(password) < MinPasswordLen || len(password) > MaxPasswordLen {
		return "", fmt.Errorf("password must be between %d and %d characters", MinPasswordLen, MaxPasswordLen)
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// DummyHash is a valid bcrypt hash of a random throwaway value. Comparing
// against it keeps login timing flat when the account does not exist.
const DummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// ComparePassword compares a bcrypt hash against a candidate password
func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

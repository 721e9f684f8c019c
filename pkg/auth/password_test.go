package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "correct-horse-battery", hash)
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}

func TestHashPassword_TooShort(t *testing.T) {
	_, err := HashPassword("short")
	assert.Error(t, err)
}

func TestComparePassword(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery")
	require.NoError(t, err)

	assert.NoError(t, ComparePassword(hash, "correct-horse-battery"))
	assert.Error(t, ComparePassword(hash, "wrong-password"))
}

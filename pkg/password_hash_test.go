package pkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	passwordHash, err := HashPassword("sr", 4)
	require.NoError(t, err)
	assert.NotEmpty(t, passwordHash)
	assert.True(t, CheckPasswordHash("sr", "$2a$14$z8cd4yJpzP40Qh2F2BhiMO.sOm4YAIaf30pmUKLOaISojD9HnXgaG"))
	assert.True(t, CheckPasswordHash("sr", passwordHash))
	assert.False(t, CheckPasswordHash("not-sr", passwordHash))
}

func TestHashPassword_saltUniqueness(t *testing.T) {
	hash1, err := HashPassword("R@bbitH0le#1", 4)
	require.NoError(t, err)
	hash2, err := HashPassword("R@bbitH0le#1", 4)
	require.NoError(t, err)

	// fresh salt per call, but both tokens verify
	assert.NotEqual(t, hash1, hash2)
	assert.True(t, CheckPasswordHash("R@bbitH0le#1", hash1))
	assert.True(t, CheckPasswordHash("R@bbitH0le#1", hash2))
}

func TestCheckPasswordHash_malformedHash(t *testing.T) {
	assert.False(t, CheckPasswordHash("whatever", ""))
	assert.False(t, CheckPasswordHash("whatever", "not-a-bcrypt-hash"))
}

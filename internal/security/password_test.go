package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_RoundTrip(t *testing.T) {
	h, err := NewHasher(bcrypt.MinCost)
	require.NoError(t, err)

	hash, err := h.HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)

	require.NoError(t, h.CheckPassword(hash, "secret1"))
	assert.ErrorIs(t, h.CheckPassword(hash, "wrongpass"), ErrPasswordMismatch)
}

func TestHasher_SaltsEachHash(t *testing.T) {
	h, err := NewHasher(bcrypt.MinCost)
	require.NoError(t, err)

	a, err := h.HashPassword("same")
	require.NoError(t, err)
	b, err := h.HashPassword("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHasher_EmptyHashNeverMatches(t *testing.T) {
	h, err := NewHasher(bcrypt.MinCost)
	require.NoError(t, err)

	assert.ErrorIs(t, h.CheckPassword("", "prefab-store-dummy-password"), ErrPasswordMismatch)
}

func TestNewHasher_RejectsBadCost(t *testing.T) {
	_, err := NewHasher(100)
	require.Error(t, err)
}

package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHashAndVerify(t *testing.T) {
	h, err := NewBcrypt(bcrypt.MinCost)
	require.NoError(t, err)

	hash, err := h.Hash("userpass")
	require.NoError(t, err)
	assert.True(t, h.Recognizes(hash))

	ok, err := h.Verify("userpass", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("nope", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcryptVerifyGarbage(t *testing.T) {
	h, err := NewBcrypt(bcrypt.MinCost)
	require.NoError(t, err)

	ok, err := h.Verify("x", "$2a$garbage")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestBcryptNeedsUpgrade(t *testing.T) {
	weak, err := NewBcrypt(bcrypt.MinCost)
	require.NoError(t, err)
	hash, err := weak.Hash("password123")
	require.NoError(t, err)

	strong, err := NewBcrypt(bcrypt.MinCost + 1)
	require.NoError(t, err)

	up, err := strong.NeedsUpgrade(hash)
	require.NoError(t, err)
	assert.True(t, up)

	up, err = weak.NeedsUpgrade(hash)
	require.NoError(t, err)
	assert.False(t, up)
}

func TestBcryptCostBounds(t *testing.T) {
	_, err := NewBcrypt(bcrypt.MaxCost + 1)
	assert.Error(t, err)
	_, err = NewBcrypt(1)
	assert.Error(t, err)

	h, err := NewBcrypt(0)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, h.cost)
}

func TestBcryptRejectsEmpty(t *testing.T) {
	h, err := NewBcrypt(bcrypt.MinCost)
	require.NoError(t, err)
	_, err = h.Hash("")
	assert.Error(t, err)
}

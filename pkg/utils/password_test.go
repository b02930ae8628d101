package utils

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcrypt_HashAndVerify(t *testing.T) {
	b := Bcrypt{Cost: 4}
	h, err := b.Hash("P!rates17")
	require.NoError(t, err)
	assert.NotEqual(t, "P!rates17", h)

	ok, err := b.Verify("P!rates17", h)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Verify("wrong", h)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcrypt_VerifyEmptyHash(t *testing.T) {
	ok, err := NewBcrypt().Verify("anything", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcrypt_VerifyMalformedHashIsBackendError(t *testing.T) {
	_, err := NewBcrypt().Verify("anything", "not-a-bcrypt-hash")
	assert.Error(t, err)
}

func TestBcrypt_Accepts2yPrefix(t *testing.T) {
	b := Bcrypt{Cost: 4}
	h, err := b.Hash("x")
	require.NoError(t, err)
	// $2a$ -> $2y$ 与身份提供方生成的格式一致
	h2y := "$2y$" + h[4:]
	ok, err := b.Verify("x", h2y)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBcrypt_LongPasswordClipped(t *testing.T) {
	b := Bcrypt{Cost: 4}
	long := strings.Repeat("a", MaxPasswordBytes+8)
	h, err := b.Hash(long)
	require.NoError(t, err)

	ok, err := b.Verify(long, h)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = b.Verify(long[:MaxPasswordBytes], h)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = b.Verify(long[:MaxPasswordBytes-1], h)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}

package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEncKey = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"

func TestSecretBoxSealOpen(t *testing.T) {
	box, err := NewSecretBox(testEncKey)
	require.NoError(t, err)

	sealed, err := box.Seal("api-secret-value")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "api-secret-value")

	plain, err := box.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "api-secret-value", plain)
}

func TestSecretBoxNonceIsRandom(t *testing.T) {
	box, err := NewSecretBox(testEncKey)
	require.NoError(t, err)

	a, err := box.Seal("same")
	require.NoError(t, err)
	b, err := box.Seal("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSecretBoxRejectsTampering(t *testing.T) {
	box, err := NewSecretBox(testEncKey)
	require.NoError(t, err)

	sealed, err := box.Seal("secret")
	require.NoError(t, err)

	other, err := NewSecretBox(strings.Repeat("ab", 32))
	require.NoError(t, err)
	_, err = other.Open(sealed)
	assert.Error(t, err)

	_, err = box.Open("!!!")
	assert.Error(t, err)
}

func TestNewSecretBoxValidatesKey(t *testing.T) {
	_, err := NewSecretBox("")
	assert.Error(t, err)
	_, err = NewSecretBox("zz")
	assert.Error(t, err)
	_, err = NewSecretBox("0011")
	assert.Error(t, err)
}

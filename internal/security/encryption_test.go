package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCipher_RoundTrip(t *testing.T) {
	cipher := NewTokenCipher("core-fingerprint-secret")

	sealed, err := cipher.Seal("eyJwcm9kdWN0IjoidGVycmFyZXBvcnQifQ.c2ln")
	require.NoError(t, err)
	require.NotEmpty(t, sealed)

	opened, err := cipher.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "eyJwcm9kdWN0IjoidGVycmFyZXBvcnQifQ.c2ln", opened)
}

func TestTokenCipher_SealIsRandomized(t *testing.T) {
	cipher := NewTokenCipher("secret")

	first, err := cipher.Seal("value")
	require.NoError(t, err)
	second, err := cipher.Seal("value")
	require.NoError(t, err)

	// Fresh salt and nonce per seal
	assert.NotEqual(t, first, second)
}

func TestTokenCipher_WrongKeyFails(t *testing.T) {
	sealed, err := NewTokenCipher("machine-a").Seal("value")
	require.NoError(t, err)

	_, err = NewTokenCipher("machine-b").Open(sealed)
	assert.Error(t, err)
}

func TestTokenCipher_GarbageInput(t *testing.T) {
	cipher := NewTokenCipher("secret")

	_, err := cipher.Open("not base64 !!!")
	assert.Error(t, err)

	_, err = cipher.Open("aGVsbG8=") // valid base64, not a payload
	assert.Error(t, err)
}

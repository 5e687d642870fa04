package crypto

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/schoolorbit-auth-api/pkg/errors"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, 32)
}

func TestHashLookupDeterministic(t *testing.T) {
	a := HashLookup("1-2345-67890-12-3", "default_salt")
	b := HashLookup("1-2345-67890-12-3", "default_salt")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestHashLookupSaltSeparatesTenants(t *testing.T) {
	a := HashLookup("1-2345-67890-12-3", "tenant_a")
	b := HashLookup("1-2345-67890-12-3", "tenant_b")
	assert.NotEqual(t, a, b)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := testKey()
	for _, plaintext := range []string{"", "x", "1-2345-67890-12-3", strings.Repeat("long", 512)} {
		blob, err := Encrypt([]byte(plaintext), key)
		require.NoError(t, err)

		out, err := Decrypt(blob, key)
		require.NoError(t, err)
		assert.Equal(t, plaintext, string(out))
	}
}

func TestEncryptNonceIsRandom(t *testing.T) {
	key := testKey()
	a, err := Encrypt([]byte("same input"), key)
	require.NoError(t, err)
	b, err := Encrypt([]byte("same input"), key)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDecryptRejectsTampering(t *testing.T) {
	key := testKey()
	blob, err := Encrypt([]byte("national-id"), key)
	require.NoError(t, err)

	for i := range blob {
		tampered := append([]byte(nil), blob...)
		tampered[i] ^= 0x01

		_, err := Decrypt(tampered, key)
		require.Error(t, err, "flipping byte %d must fail", i)
		assert.Equal(t, appErrors.ErrIntegrity.Code, appErrors.FromError(err).Code)
	}
}

func TestDecryptRejectsTruncatedBlob(t *testing.T) {
	_, err := Decrypt([]byte{0x01, 0x02, 0x03}, testKey())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrIntegrity.Code, appErrors.FromError(err).Code)
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	blob, err := Encrypt([]byte("secret"), testKey())
	require.NoError(t, err)

	other := bytes.Repeat([]byte{0x17}, 32)
	_, err = Decrypt(blob, other)
	require.Error(t, err)
}

func TestGenerateSecureToken(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 64; i++ {
		token, err := GenerateSecureToken()
		require.NoError(t, err)
		// 32 bytes of raw URL-safe base64 is always 43 chars, no padding.
		assert.Len(t, token, 43)
		assert.NotContains(t, token, "=")
		_, dup := seen[token]
		assert.False(t, dup)
		seen[token] = struct{}{}
	}
}

package secret

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassphrase = "0123456789abcdef0123456789abcdef"

func TestNewCipher_RejectsShortPassphrase(t *testing.T) {
	_, err := NewCipher("short")
	assert.Error(t, err)
}

func TestCipher_RoundTrip(t *testing.T) {
	c, err := NewCipher(testPassphrase)
	require.NoError(t, err)

	for _, plain := range []string{"", "kite-access-token", "ünïcødé ✓"} {
		payload, err := c.Encrypt(plain)
		require.NoError(t, err)
		assert.Len(t, strings.Split(payload, "."), 3)

		got, err := c.Decrypt(payload)
		require.NoError(t, err)
		assert.Equal(t, plain, got)
	}
}

func TestCipher_FreshNoncePerEncrypt(t *testing.T) {
	c, err := NewCipher(testPassphrase)
	require.NoError(t, err)

	a, err := c.Encrypt("same")
	require.NoError(t, err)
	b, err := c.Encrypt("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

// Payload produced by the previous Node.js deployment for the same passphrase.
func TestCipher_DecryptsExistingPayload(t *testing.T) {
	c, err := NewCipher(testPassphrase)
	require.NoError(t, err)

	got, err := c.Decrypt("AAECAwQFBgcICQoL.SWBjQvfg5KvEh8uxdG/wdg==.KocvJJFExJczgm1Nm/GDYFx7wibP")
	require.NoError(t, err)
	assert.Equal(t, "kite-access-token-123", got)

	nonce := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	assert.Equal(t, "AAECAwQFBgcICQoL.SWBjQvfg5KvEh8uxdG/wdg==.KocvJJFExJczgm1Nm/GDYFx7wibP",
		c.seal(nonce, "kite-access-token-123"))
}

func TestCipher_DecryptFailures(t *testing.T) {
	c, err := NewCipher(testPassphrase)
	require.NoError(t, err)
	other, err := NewCipher(strings.Repeat("x", 40))
	require.NoError(t, err)

	payload, err := c.Encrypt("secret")
	require.NoError(t, err)

	_, err = other.Decrypt(payload)
	assert.ErrorIs(t, err, ErrInvalidPayload, "wrong key")

	parts := strings.Split(payload, ".")
	tampered := parts[0] + "." + parts[1] + "." + "AAAA" + parts[2]
	_, err = c.Decrypt(tampered)
	assert.ErrorIs(t, err, ErrInvalidPayload, "tampered ciphertext")

	for _, bad := range []string{"", "abc", "a.b", "!!.??.==", "AAECAwQFBgcICQoL..abc"} {
		_, err := c.Decrypt(bad)
		assert.ErrorIs(t, err, ErrInvalidPayload, bad)
	}
}

func TestDeriveKey(t *testing.T) {
	a, err := DeriveKey(testPassphrase, PurposeOAuthState, 32)
	require.NoError(t, err)
	assert.Len(t, a, 32)

	again, err := DeriveKey(testPassphrase, PurposeOAuthState, 32)
	require.NoError(t, err)
	assert.Equal(t, a, again)

	other, err := DeriveKey(testPassphrase, "another-purpose", 32)
	require.NoError(t, err)
	assert.NotEqual(t, a, other)

	_, err = DeriveKey("", PurposeOAuthState, 32)
	assert.Error(t, err)
}

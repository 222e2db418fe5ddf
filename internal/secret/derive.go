package secret

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Key purposes. Each derived key is independent of the encryption key.
const (
	PurposeOAuthState = "folio/kite-oauth-state/v1"
)

// DeriveKey expands the passphrase into a size-byte key bound to purpose.
func DeriveKey(passphrase, purpose string, size int) ([]byte, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("derive %s: empty passphrase", purpose)
	}
	key := make([]byte, size)
	r := hkdf.New(sha256.New, []byte(passphrase), nil, []byte(purpose))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive %s: %w", purpose, err)
	}
	return key, nil
}

// Package secret encrypts values at rest and derives purpose-bound keys from
// the configured passphrase.
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// MinPassphraseLength is the shortest accepted passphrase.
const MinPassphraseLength = 32

const (
	nonceSize = 12
	tagSize   = 16
)

// ErrInvalidPayload is returned when a ciphertext is not in
// "nonce.tag.ciphertext" form or fails authentication.
var ErrInvalidPayload = errors.New("invalid encrypted payload")

// Cipher seals strings with AES-256-GCM. The key is SHA-256 of the
// passphrase and payloads are three base64 segments joined by dots:
// nonce, authentication tag, ciphertext.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a cipher from the passphrase.
func NewCipher(passphrase string) (*Cipher, error) {
	if len(passphrase) < MinPassphraseLength {
		return nil, fmt.Errorf("encryption key must be at least %d characters", MinPassphraseLength)
	}

	key := sha256.Sum256([]byte(passphrase))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create block cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return c.seal(nonce, plaintext), nil
}

func (c *Cipher) seal(nonce []byte, plaintext string) string {
	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	data, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	return strings.Join([]string{
		base64.StdEncoding.EncodeToString(nonce),
		base64.StdEncoding.EncodeToString(tag),
		base64.StdEncoding.EncodeToString(data),
	}, ".")
}

// Decrypt opens a payload produced by Encrypt.
func (c *Cipher) Decrypt(payload string) (string, error) {
	parts := strings.Split(payload, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return "", ErrInvalidPayload
	}

	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(nonce) != nonceSize {
		return "", ErrInvalidPayload
	}
	tag, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil || len(tag) != tagSize {
		return "", ErrInvalidPayload
	}
	data, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return "", ErrInvalidPayload
	}

	plain, err := c.aead.Open(nil, nonce, append(data, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return string(plain), nil
}

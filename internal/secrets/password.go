// Package secrets encrypts and decrypts stored authentication secrets
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// envelopePrefix marks a value produced by Cipher.Encrypt
const envelopePrefix = "v2:{"

// ErrNotEncrypted is returned by Decrypt for values without the envelope
var ErrNotEncrypted = errors.New("value is not encrypted")

// Decrypter turns a stored secret into plaintext.
// ok is false when the value is empty or encrypted but cannot be decrypted.
type Decrypter interface {
	DecryptIfEncrypted(value string) (plaintext string, ok bool)
}

// Encrypter produces the stored form of a plaintext secret
type Encrypter interface {
	Encrypt(plaintext string) (string, error)
}

// IsEncrypted reports whether value carries the v2:{...} envelope
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, envelopePrefix) && strings.HasSuffix(value, "}")
}

// Cipher is AES-256-GCM with a random nonce prepended to the ciphertext
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a Cipher from a 32-byte key
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to build AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to build GCM: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// NewCipherFromBase64 builds a Cipher from a standard base64 encoded 32-byte key
func NewCipherFromBase64(key string) (*Cipher, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(key))
	if err != nil {
		return nil, fmt.Errorf("encryption key is not valid base64: %w", err)
	}
	return NewCipher(raw)
}

// Encrypt seals plaintext into the v2:{base64} envelope
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return envelopePrefix + base64.StdEncoding.EncodeToString(sealed) + "}", nil
}

// Decrypt opens a v2:{base64} envelope
func (c *Cipher) Decrypt(value string) (string, error) {
	if !IsEncrypted(value) {
		return "", ErrNotEncrypted
	}
	encoded := strings.TrimSuffix(strings.TrimPrefix(value, envelopePrefix), "}")
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("malformed encrypted value: %w", err)
	}
	nonceSize := c.aead.NonceSize()
	if len(sealed) < nonceSize {
		return "", errors.New("malformed encrypted value: too short")
	}
	plaintext, err := c.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt value: %w", err)
	}
	return string(plaintext), nil
}

// DecryptIfEncrypted returns plaintext input unchanged and decrypts envelopes
func (c *Cipher) DecryptIfEncrypted(value string) (string, bool) {
	if value == "" {
		return "", false
	}
	if !IsEncrypted(value) {
		return value, true
	}
	plaintext, err := c.Decrypt(value)
	if err != nil {
		return "", false
	}
	return plaintext, true
}

// Plaintext is the Decrypter used when no encryption key is configured
type Plaintext struct{}

// DecryptIfEncrypted passes plaintext through; encrypted values are unusable without a key
func (Plaintext) DecryptIfEncrypted(value string) (string, bool) {
	if value == "" || IsEncrypted(value) {
		return "", false
	}
	return value, true
}

// Package crypto encrypts raw provider evidence before it is persisted.
// Evidence payloads contain personal data from the civil registry and the
// professional registry and must never be stored in plaintext in production.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// EvidenceEncryptor provides AES-256-GCM encryption for raw evidence blobs.
type EvidenceEncryptor struct {
	aead cipher.AEAD
}

// NewEvidenceEncryptor creates an encryptor from a hex-encoded 32-byte key.
func NewEvidenceEncryptor(keyHex string) (*EvidenceEncryptor, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("evidence encryptor: decode key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("evidence encryptor: key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("evidence encryptor: create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("evidence encryptor: create GCM: %w", err)
	}

	return &EvidenceEncryptor{aead: aead}, nil
}

// Encrypt seals data and returns the nonce prepended to the ciphertext.
func (e *EvidenceEncryptor) Encrypt(data []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("evidence encrypt: generate nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, so the result is nonce + ciphertext.
	return e.aead.Seal(nonce, nonce, data, nil), nil
}

// Decrypt extracts the nonce from the front of data and opens the remainder.
func (e *EvidenceEncryptor) Decrypt(data []byte) ([]byte, error) {
	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("evidence decrypt: ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("evidence decrypt: %w", err)
	}
	return plaintext, nil
}

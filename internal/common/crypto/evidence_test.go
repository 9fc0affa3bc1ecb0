package crypto

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestNewEvidenceEncryptor(t *testing.T) {
	tests := []struct {
		name    string
		keyHex  string
		wantErr string
	}{
		{"valid 32-byte key", testKeyHex, ""},
		{"not hex", "zz" + testKeyHex[2:], "decode key"},
		{"too short", testKeyHex[:32], "must be 32 bytes"},
		{"empty", "", "must be 32 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewEvidenceEncryptor(tt.keyHex)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.NotNil(t, enc)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	enc, err := NewEvidenceEncryptor(testKeyHex)
	require.NoError(t, err)

	plaintext := []byte(`{"identity":{"fullName":"Maria Gonzalez"},"professional":null}`)

	sealed, err := enc.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "Maria Gonzalez")

	opened, err := enc.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestEncrypt_NoncesAreUnique(t *testing.T) {
	enc, err := NewEvidenceEncryptor(testKeyHex)
	require.NoError(t, err)

	a, err := enc.Encrypt([]byte("same plaintext"))
	require.NoError(t, err)
	b, err := enc.Encrypt([]byte("same plaintext"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestDecrypt_Failures(t *testing.T) {
	enc, err := NewEvidenceEncryptor(testKeyHex)
	require.NoError(t, err)

	t.Run("too short", func(t *testing.T) {
		_, err := enc.Decrypt([]byte{0x01, 0x02})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too short")
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		sealed, err := enc.Encrypt([]byte("evidence"))
		require.NoError(t, err)
		sealed[len(sealed)-1] ^= 0xff

		_, err = enc.Decrypt(sealed)
		assert.Error(t, err)
	})

	t.Run("wrong key", func(t *testing.T) {
		sealed, err := enc.Encrypt([]byte("evidence"))
		require.NoError(t, err)

		otherKey := strings.Repeat("ab", 32)
		require.Len(t, otherKey, hex.EncodedLen(32))
		other, err := NewEvidenceEncryptor(otherKey)
		require.NoError(t, err)

		_, err = other.Decrypt(sealed)
		assert.Error(t, err)
	})
}

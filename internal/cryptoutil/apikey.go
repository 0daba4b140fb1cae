// Package cryptoutil implements AES-256-GCM encryption of API-alias
// credential material, with the ciphertext, per-row salt, and nonce stored
// as three separate columns rather than one combined prefixed string.
package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
)

const saltSize = 16

// DeriveKey derives a 32-byte AES-256 key from BODHI_ENCRYPTION_KEY and a
// per-row salt, so two rows encrypted under the same passphrase still use
// distinct derived keys.
func DeriveKey(passphrase string, salt []byte) ([]byte, error) {
	if passphrase == "" {
		return nil, errors.New("encryption key must not be empty")
	}
	h := sha256.New()
	h.Write([]byte(passphrase))
	h.Write(salt)
	return h.Sum(nil), nil
}

// NewSalt returns a fresh random per-row salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// Encrypt seals plaintext under a key derived from passphrase and a fresh
// salt, returning the ciphertext, salt, and nonce as three independent
// byte slices for separate-column storage.
func Encrypt(passphrase, plaintext string) (ciphertext, salt, nonce []byte, err error) {
	salt, err = NewSalt()
	if err != nil {
		return nil, nil, nil, err
	}
	key, err := DeriveKey(passphrase, salt)
	if err != nil {
		return nil, nil, nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create gcm: %w", err)
	}
	nonce = make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, nil, fmt.Errorf("generate nonce: %w", err)
	}
	ciphertext = gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return ciphertext, salt, nonce, nil
}

// Decrypt reverses Encrypt. Per the corruption invariant, callers must
// ensure ciphertext, salt and nonce are either all present or all absent
// before calling Decrypt -- ErrPartialCredential signals a violation of
// that invariant, distinct from a decryption/authentication failure.
var ErrPartialCredential = errors.New("partial encryption fields: ciphertext/salt/nonce must all be present or all absent")

// Validate checks the all-or-nothing invariant across the three fields.
func Validate(ciphertext, salt, nonce []byte) error {
	n := 0
	for _, f := range [][]byte{ciphertext, salt, nonce} {
		if len(f) > 0 {
			n++
		}
	}
	if n != 0 && n != 3 {
		return ErrPartialCredential
	}
	return nil
}

// Decrypt opens ciphertext using a key derived from passphrase and salt.
func Decrypt(passphrase string, ciphertext, salt, nonce []byte) (string, error) {
	if err := Validate(ciphertext, salt, nonce); err != nil {
		return "", err
	}
	if len(ciphertext) == 0 {
		return "", nil
	}
	key, err := DeriveKey(passphrase, salt)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("create gcm: %w", err)
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}

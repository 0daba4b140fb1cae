package cryptoutil

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	t.Parallel()
	ciphertext, salt, nonce, err := Encrypt("correct-horse-battery-staple", "sk-upstream-secret")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	got, err := Decrypt("correct-horse-battery-staple", ciphertext, salt, nonce)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if got != "sk-upstream-secret" {
		t.Errorf("got %q, want sk-upstream-secret", got)
	}
}

func TestDecryptWrongPassphraseFails(t *testing.T) {
	t.Parallel()
	ciphertext, salt, nonce, err := Encrypt("correct-horse-battery-staple", "sk-upstream-secret")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decrypt("wrong-passphrase", ciphertext, salt, nonce); err == nil {
		t.Error("expected error decrypting with wrong passphrase")
	}
}

func TestEncryptProducesDistinctSaltsAndNonces(t *testing.T) {
	t.Parallel()
	c1, s1, n1, err := Encrypt("pass", "secret")
	if err != nil {
		t.Fatal(err)
	}
	c2, s2, n2, err := Encrypt("pass", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(s1, s2) {
		t.Error("expected distinct salts across calls")
	}
	if bytes.Equal(n1, n2) {
		t.Error("expected distinct nonces across calls")
	}
	if bytes.Equal(c1, c2) {
		t.Error("expected distinct ciphertexts across calls")
	}
}

func TestValidatePartialCredentialRejected(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name                  string
		ciphertext, salt, nce []byte
		wantErr               bool
	}{
		{name: "all absent", wantErr: false},
		{name: "all present", ciphertext: []byte("c"), salt: []byte("s"), nce: []byte("n"), wantErr: false},
		{name: "missing salt", ciphertext: []byte("c"), nce: []byte("n"), wantErr: true},
		{name: "missing nonce only", ciphertext: []byte("c"), salt: []byte("s"), wantErr: true},
		{name: "ciphertext only", ciphertext: []byte("c"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(tt.ciphertext, tt.salt, tt.nce)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrPartialCredential) {
				t.Errorf("error = %v, want ErrPartialCredential", err)
			}
		})
	}
}

func TestDecryptNoCredentialConfigured(t *testing.T) {
	t.Parallel()
	got, err := Decrypt("pass", nil, nil, nil)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if got != "" {
		t.Errorf("got %q, want empty string for unconfigured key", got)
	}
}

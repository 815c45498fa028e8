// Package credentials seals per-tenant platform credentials at rest.
package credentials

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

type CipherType string

const (
	ChaCha20Poly1305  CipherType = "chacha20-poly1305"
	XChaCha20Poly1305 CipherType = "xchacha20-poly1305"
)

// Sealer encrypts with an AEAD, binding each ciphertext to caller-supplied
// associated data. Output format: [nonce][ciphertext+tag].
type Sealer struct {
	aead       cipher.AEAD
	cipherType CipherType
}

// NewSealer builds a sealer. key must be 32 bytes.
func NewSealer(kind CipherType, key []byte) (*Sealer, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(key), chacha20poly1305.KeySize)
	}

	var (
		aead cipher.AEAD
		err  error
	)
	switch kind {
	case ChaCha20Poly1305, "":
		kind = ChaCha20Poly1305
		aead, err = chacha20poly1305.New(key)
	case XChaCha20Poly1305:
		aead, err = chacha20poly1305.NewX(key)
	default:
		return nil, fmt.Errorf("unsupported cipher %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s cipher: %w", kind, err)
	}
	return &Sealer{aead: aead, cipherType: kind}, nil
}

func (s *Sealer) Type() CipherType { return s.cipherType }

func (s *Sealer) Seal(plaintext, associated []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, associated), nil
}

func (s *Sealer) Open(sealed, associated []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(sealed) < n {
		return nil, fmt.Errorf("ciphertext too short: got %d, need at least %d", len(sealed), n)
	}
	plaintext, err := s.aead.Open(nil, sealed[:n], sealed[n:], associated)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

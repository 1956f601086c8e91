package persistence

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// sealedPrefix marks a token column written by TokenSealer
const sealedPrefix = "xc1:"

var errMalformedSealedToken = errors.New("malformed sealed token")

// TokenSealer encrypts OAuth tokens before they reach the credential table.
// Values without the sealed prefix are returned unchanged by Open so rows
// written before a key was configured keep working.
type TokenSealer struct {
	aead cipher.AEAD
}

// NewTokenSealer derives an XChaCha20-Poly1305 key from secret
func NewTokenSealer(secret string) (*TokenSealer, error) {
	if secret == "" {
		return nil, errors.New("token sealer secret is empty")
	}
	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("salesos credential tokens"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive token key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &TokenSealer{aead: aead}, nil
}

// Seal encrypts token. An empty token stays empty; a nil sealer is a no-op.
func (s *TokenSealer) Seal(token string) (string, error) {
	if s == nil || token == "" {
		return token, nil
	}
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(token)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(token), nil)
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal
func (s *TokenSealer) Open(stored string) (string, error) {
	encoded, ok := strings.CutPrefix(stored, sealedPrefix)
	if !ok {
		return stored, nil
	}
	if s == nil {
		return "", errors.New("sealed token found but no token key is configured")
	}
	raw, err := base64.RawStdEncoding.DecodeString(encoded)
	if err != nil || len(raw) < s.aead.NonceSize() {
		return "", errMalformedSealedToken
	}
	nonce, ciphertext := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to open sealed token: %w", err)
	}
	return string(plain), nil
}

// TokenSealing returns the repository options for key. An empty key keeps
// tokens in plaintext.
func TokenSealing(key string) ([]CredentialRepositoryOption, error) {
	if key == "" {
		return nil, nil
	}
	sealer, err := NewTokenSealer(key)
	if err != nil {
		return nil, err
	}
	return []CredentialRepositoryOption{WithTokenSealer(sealer)}, nil
}

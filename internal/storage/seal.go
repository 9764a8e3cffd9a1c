package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const sealPrefix = "v1:"

// ErrSealedValue is returned when a stored value cannot be decrypted with the configured key.
var ErrSealedValue = errors.New("cannot open sealed preference value")

// Sealer encrypts preference values with AES-256-GCM under a key derived from a passphrase.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives an encryption key from secret using HKDF-SHA256.
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("store key must not be empty")
	}
	h := hkdf.New(sha256.New, []byte(secret), nil, []byte("wallet-preferences"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: gcm}, nil
}

// Seal encrypts value and returns it in printable form.
func (s *Sealer) Seal(value string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	ct := s.aead.Seal(nil, nonce, []byte(value), nil)
	return sealPrefix + base64.StdEncoding.EncodeToString(append(nonce, ct...)), nil
}

// Open decrypts a value produced by Seal. Values written without a sealer are returned as is.
func (s *Sealer) Open(value string) (string, error) {
	if !strings.HasPrefix(value, sealPrefix) {
		return value, nil
	}
	blob, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, sealPrefix))
	if err != nil {
		return "", ErrSealedValue
	}
	ns := s.aead.NonceSize()
	if len(blob) < ns {
		return "", ErrSealedValue
	}
	pt, err := s.aead.Open(nil, blob[:ns], blob[ns:], nil)
	if err != nil {
		return "", ErrSealedValue
	}
	return string(pt), nil
}

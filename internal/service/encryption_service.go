package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// sealedPrefix marks the ciphertext layout so a future key or cipher can coexist.
const sealedPrefix = "v1."

var errSealedFormat = errors.New("unrecognised sealed value")

// AESEncryptionService implements ports.EncryptionService with AES-256-GCM.
// Each value is bound to its owner through the GCM additional data, so a
// ciphertext copied onto another user's row does not open.
type AESEncryptionService struct {
	aead cipher.AEAD
}

// NewAESEncryptionService creates the service from a 64-character hex key.
func NewAESEncryptionService(hexKey string) (*AESEncryptionService, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode aes key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("aes key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return &AESEncryptionService{aead: aead}, nil
}

// Encrypt seals plaintext for owner as "v1." + base64url(nonce || ciphertext).
// The empty string stays empty.
func (s *AESEncryptionService) Encrypt(plaintext string, owner uuid.UUID) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}

	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), owner[:])
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt for the same owner.
func (s *AESEncryptionService) Decrypt(sealed string, owner uuid.UUID) (string, error) {
	if sealed == "" {
		return "", nil
	}

	body, ok := strings.CutPrefix(sealed, sealedPrefix)
	if !ok {
		return "", errSealedFormat
	}
	raw, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errSealedFormat, err)
	}

	n := s.aead.NonceSize()
	if len(raw) < n+s.aead.Overhead() {
		return "", fmt.Errorf("%w: too short", errSealedFormat)
	}
	plain, err := s.aead.Open(nil, raw[:n], raw[n:], owner[:])
	if err != nil {
		return "", fmt.Errorf("open sealed value: %w", err)
	}
	return string(plain), nil
}

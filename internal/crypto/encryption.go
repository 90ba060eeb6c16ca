package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	// ErrEncryptionFailed is returned when plaintext cannot be sealed.
	ErrEncryptionFailed = errors.New("failed to encrypt data")
	// ErrDecryptionFailed is returned when ciphertext cannot be opened,
	// whether from a wrong key, corruption, or truncation.
	ErrDecryptionFailed = errors.New("failed to decrypt data")
)

// Service provides symmetric encryption of opaque strings and structured
// values using a static process-wide key, plus a one-way fingerprint hash.
// Ciphertexts are base64 with the AEAD nonce prepended.
type Service struct {
	key []byte
}

// NewService creates an encryption service from a 32-byte key.
func NewService(key string) (*Service, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("invalid encryption key length: expected %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}

	return &Service{key: []byte(key)}, nil
}

// Encrypt seals plaintext with ChaCha20-Poly1305 under a fresh random nonce.
func (s *Service) Encrypt(plaintext string) (string, error) {
	aead, err := chacha20poly1305.New(s.key)
	if err != nil {
		return "", ErrEncryptionFailed
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", ErrEncryptionFailed
	}

	ciphertext := aead.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt opens a ciphertext produced by Encrypt. A wrong key, truncated
// input, or empty recovered plaintext all fail with ErrDecryptionFailed.
func (s *Service) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: invalid encoding", ErrDecryptionFailed)
	}

	aead, err := chacha20poly1305.New(s.key)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	if len(raw) < aead.NonceSize() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}

	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: invalid key or corrupted data", ErrDecryptionFailed)
	}

	if len(plaintext) == 0 {
		return "", fmt.Errorf("%w: empty plaintext", ErrDecryptionFailed)
	}

	return string(plaintext), nil
}

// EncryptObject JSON-serializes a value and encrypts the result.
func (s *Service) EncryptObject(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt object: %w", err)
	}

	return s.Encrypt(string(data))
}

// DecryptObject decrypts a ciphertext and JSON-parses it into out.
func (s *Service) DecryptObject(ciphertext string, out any) error {
	plaintext, err := s.Decrypt(ciphertext)
	if err != nil {
		return fmt.Errorf("failed to decrypt object: %w", err)
	}

	if err := json.Unmarshal([]byte(plaintext), out); err != nil {
		return fmt.Errorf("failed to decrypt object: %w", err)
	}

	return nil
}

// Hash returns the hex-encoded SHA-256 fingerprint of input.
func (s *Service) Hash(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

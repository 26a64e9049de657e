package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrKeyMismatch is returned by Verify when the key does not open the hash.
var ErrKeyMismatch = errors.New("auth: edit key does not match")

// keyBytes is the entropy of a generated edit key (32 base64url chars).
const keyBytes = 24

// KeyService creates and checks snippet edit keys.
//
// A key is shown to the author once, when the snippet is created; only its
// bcrypt hash is stored. Updating or deleting the snippet requires the key.
type KeyService struct {
	cost int
}

// NewKeyService uses bcrypt.DefaultCost.
func NewKeyService() *KeyService {
	return &KeyService{cost: bcrypt.DefaultCost}
}

// NewKeyServiceWithCost lets tests in other packages use bcrypt.MinCost.
func NewKeyServiceWithCost(cost int) *KeyService {
	return &KeyService{cost: cost}
}

// Generate returns a fresh random key and its hash.
func (k *KeyService) Generate() (key, hash string, err error) {
	buf := make([]byte, keyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("auth: reading random key: %w", err)
	}
	key = base64.RawURLEncoding.EncodeToString(buf)

	hash, err = k.Hash(key)
	if err != nil {
		return "", "", err
	}
	return key, hash, nil
}

// Hash hashes a key with bcrypt. Keys over bcrypt's 72-byte limit are
// rejected rather than silently truncated.
func (k *KeyService) Hash(key string) (string, error) {
	if len(key) > 72 {
		return "", fmt.Errorf("auth: edit key must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(key), k.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing edit key: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether key matches hash. A mismatch wraps ErrKeyMismatch.
func (k *KeyService) Verify(hash, key string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrKeyMismatch
	}
	return fmt.Errorf("auth: comparing edit key: %w", err)
}

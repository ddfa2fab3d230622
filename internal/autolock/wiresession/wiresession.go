// Package wiresession adds optional local-IPC confidentiality on top of a
// vault Session, independent of the master-password-derived key hierarchy.
// It is adapted from the teacher's session.SecureSession: HKDF-derived
// encrypt/sign keys over a random per-session seed, ChaCha20-Poly1305 AEAD.
// No other package in this module imports it: neither the SSH-agent socket
// nor the bridge's stdio is wrapped with it. It is not a substitute for the
// bridge's own HMAC auth scheme (§4.6) and is unrelated to wrapped_item_key.
package wiresession

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const seedLen = 32

// Keys holds the derived encryption/signing material for one session.
type Keys struct {
	seed       []byte
	encryptKey []byte
	signingKey []byte
	aead       interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
		NonceSize() int
	}
}

// New generates a fresh random seed and derives the session's wire keys.
func New(sessionID string) (*Keys, error) {
	seed := make([]byte, seedLen)
	if _, err := io.ReadFull(rand.Reader, seed); err != nil {
		return nil, fmt.Errorf("wiresession: generate seed: %w", err)
	}
	return FromSeed(sessionID, seed)
}

// FromSeed derives wire keys from a caller-supplied seed (e.g. recovered
// from persisted session state).
func FromSeed(sessionID string, seed []byte) (*Keys, error) {
	k := &Keys{seed: seed}
	if err := k.deriveKeys(sessionID); err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(k.encryptKey)
	if err != nil {
		return nil, fmt.Errorf("wiresession: new aead: %w", err)
	}
	k.aead = aead
	return k, nil
}

func (k *Keys) deriveKeys(sessionID string) error {
	salt := []byte(sessionID)

	hEnc := hkdf.New(sha256.New, k.seed, salt, []byte("encryption"))
	k.encryptKey = make([]byte, 32)
	if _, err := io.ReadFull(hEnc, k.encryptKey); err != nil {
		return fmt.Errorf("wiresession: derive encryption key: %w", err)
	}

	hSign := hkdf.New(sha256.New, k.seed, salt, []byte("signing"))
	k.signingKey = make([]byte, 32)
	if _, err := io.ReadFull(hSign, k.signingKey); err != nil {
		return fmt.Errorf("wiresession: derive signing key: %w", err)
	}
	return nil
}

// Encrypt seals plaintext, returning nonce‖ciphertext‖tag.
func (k *Keys) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, k.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("wiresession: generate nonce: %w", err)
	}
	ciphertext := k.aead.Seal(nil, nonce, plaintext, nil)
	out := make([]byte, len(nonce)+len(ciphertext))
	copy(out, nonce)
	copy(out[len(nonce):], ciphertext)
	return out, nil
}

// Decrypt opens data produced by Encrypt.
func (k *Keys) Decrypt(data []byte) ([]byte, error) {
	ns := k.aead.NonceSize()
	if len(data) < ns {
		return nil, fmt.Errorf("wiresession: ciphertext too short")
	}
	nonce, ciphertext := data[:ns], data[ns:]
	plaintext, err := k.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("wiresession: decrypt: %w", err)
	}
	return plaintext, nil
}

// Close zeroes the seed and the derived encryption and signing keys held by
// Keys. The AEAD instance keeps its own copy of the encryption key, which
// Close does not clear, so Encrypt and Decrypt still work after Close.
func (k *Keys) Close() {
	zero(k.seed)
	zero(k.encryptKey)
	zero(k.signingKey)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

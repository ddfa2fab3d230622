// Package vaultcrypto implements Persona's cryptographic key hierarchy: a
// master-password-derived key-encryption key wraps per-item data keys, which
// in turn encrypt credential payloads. One AEAD primitive (Seal/Open) backs
// every encryption layer.
package vaultcrypto

import (
	"crypto/rand"

	"golang.org/x/crypto/argon2"

	"github.com/persona-vault/persona/internal/perrors"
)

// Argon2id parameters for the master-password KEK. Fixed, not user tunable,
// so every vault on disk was derived the same way.
const (
	argonTime        = 3
	argonMemoryKiB   = 65536
	argonParallelism = 1
	kekLen           = 32
)

// KEK is the key-encryption key derived from the vault master password.
type KEK [32]byte

// Zero overwrites the key material in place.
func (k *KEK) Zero() {
	for i := range k {
		k[i] = 0
	}
}

// ItemKey is a per-credential data key.
type ItemKey [32]byte

// Zero overwrites the key material in place.
func (k *ItemKey) Zero() {
	for i := range k {
		k[i] = 0
	}
}

// DeriveKEK derives the key-encryption key from a master password and a
// per-vault 32-byte salt using Argon2id.
func DeriveKEK(password []byte, salt [32]byte) (KEK, error) {
	if len(password) == 0 {
		return KEK{}, &perrors.InvalidInput{Field: "password", Reason: "must not be empty"}
	}
	var kek KEK
	derived := argon2.IDKey(password, salt[:], argonTime, argonMemoryKiB, argonParallelism, kekLen)
	copy(kek[:], derived)
	for i := range derived {
		derived[i] = 0
	}
	return kek, nil
}

// GenerateSalt returns a fresh 32-byte CSPRNG salt for a new vault.
func GenerateSalt() ([32]byte, error) {
	var salt [32]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return salt, &perrors.CryptographicError{Kind: perrors.KindKDFFailure, Err: err}
	}
	return salt, nil
}

// GenerateItemKey returns a fresh CSPRNG 32-byte data key for one credential.
func GenerateItemKey() (ItemKey, error) {
	var ik ItemKey
	if _, err := rand.Read(ik[:]); err != nil {
		return ik, &perrors.CryptographicError{Kind: perrors.KindKDFFailure, Err: err}
	}
	return ik, nil
}

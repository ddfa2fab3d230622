package vaultcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"

	"github.com/persona-vault/persona/internal/perrors"
)

const nonceLen = 12

// Seal encrypts plaintext under key with AES-256-GCM, producing
// nonce(12) ‖ ciphertext ‖ tag(16). It is the single AEAD primitive used for
// item-key wrapping (WrapItemKey) and for credential payload encryption.
func Seal(key [32]byte, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, &perrors.CryptographicError{Kind: perrors.KindBadKeySize, Err: err}
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, &perrors.CryptographicError{Kind: perrors.KindBadKeySize, Err: err}
	}
	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, &perrors.CryptographicError{Kind: perrors.KindKDFFailure, Err: err}
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a Seal-produced blob, verifying the GCM tag.
func Open(key [32]byte, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, &perrors.CryptographicError{Kind: perrors.KindBadKeySize, Err: err}
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, &perrors.CryptographicError{Kind: perrors.KindBadKeySize, Err: err}
	}
	if len(ciphertext) < nonceLen+gcm.Overhead() {
		return nil, &perrors.CryptographicError{Kind: perrors.KindMalformedHeader}
	}
	nonce, ct := ciphertext[:nonceLen], ciphertext[nonceLen:]
	pt, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, &perrors.CryptographicError{Kind: perrors.KindAuthenticationFailed, Err: err}
	}
	return pt, nil
}

// WrapItemKey encrypts an item key under the vault KEK.
func WrapItemKey(kek KEK, ik ItemKey) ([]byte, error) {
	return Seal([32]byte(kek), ik[:])
}

// UnwrapItemKey decrypts an item key previously wrapped under the vault KEK.
func UnwrapItemKey(kek KEK, wrapped []byte) (ItemKey, error) {
	pt, err := Open([32]byte(kek), wrapped)
	if err != nil {
		return ItemKey{}, err
	}
	defer func() {
		for i := range pt {
			pt[i] = 0
		}
	}()
	if len(pt) != 32 {
		return ItemKey{}, &perrors.CryptographicError{Kind: perrors.KindBadKeySize}
	}
	var ik ItemKey
	copy(ik[:], pt)
	return ik, nil
}

package vaultcrypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"

	"golang.org/x/crypto/argon2"

	"github.com/persona-vault/persona/internal/perrors"
)

// fileMagic identifies a Persona file envelope: salt and nonce (each with a
// 1-byte length prefix), the Argon2id memory cost used to derive the file key
// (a fixed 4-byte field), and the AEAD ciphertext (8-byte length prefix), so a
// truncated or hostile file is rejected before any allocation proportional to
// an attacker-controlled length.
var fileMagic = []byte("PERSENC1")

const fileSaltLen = 32

// SealFile encrypts plaintext under a key derived from password with a fresh
// random salt, producing a self-contained PERSENC1 envelope. argonMemKiB lets
// callers tune the KDF cost (e.g. lower for automated export/import tooling
// than for the interactive master password), recorded in the envelope so
// OpenFile reproduces the same derivation.
func SealFile(password []byte, plaintext []byte, argonMemKiB uint32) ([]byte, error) {
	if len(password) == 0 {
		return nil, &perrors.InvalidInput{Field: "password", Reason: "must not be empty"}
	}
	var salt [fileSaltLen]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, &perrors.CryptographicError{Kind: perrors.KindKDFFailure, Err: err}
	}

	key := argon2.IDKey(password, salt[:], argonTime, argonMemKiB, argonParallelism, kekLen)
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &perrors.CryptographicError{Kind: perrors.KindBadKeySize, Err: err}
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, &perrors.CryptographicError{Kind: perrors.KindBadKeySize, Err: err}
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, &perrors.CryptographicError{Kind: perrors.KindKDFFailure, Err: err}
	}
	ct := gcm.Seal(nil, nonce, plaintext, nil)

	var buf bytes.Buffer
	buf.Write(fileMagic)
	writeLenPrefixed(&buf, salt[:])
	writeLenPrefixed(&buf, nonce)
	var memBuf [4]byte
	binary.LittleEndian.PutUint32(memBuf[:], argonMemKiB)
	buf.Write(memBuf[:])
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(ct)))
	buf.Write(lenBuf[:])
	buf.Write(ct)
	return buf.Bytes(), nil
}

// OpenFile decrypts a PERSENC1 envelope produced by SealFile. The salt and
// nonce length prefixes are checked against fixed caps, the ciphertext length
// against maxCiphertextLen, and each against the remaining buffer size before
// any slice is made from it; the recorded Argon2id memory cost must be between
// 1 and argonMemoryKiB before any key is derived. A crafted header therefore
// cannot force an out-of-memory allocation or an out-of-bounds read.
func OpenFile(password []byte, blob []byte, maxCiphertextLen int) ([]byte, error) {
	r := blob

	if len(r) < len(fileMagic) || !bytes.Equal(r[:len(fileMagic)], fileMagic) {
		return nil, &perrors.CryptographicError{Kind: perrors.KindMalformedHeader}
	}
	r = r[len(fileMagic):]

	salt, r, err := readLenPrefixed(r, fileSaltLen)
	if err != nil {
		return nil, err
	}
	nonce, r, err := readLenPrefixed(r, 64)
	if err != nil {
		return nil, err
	}

	if len(r) < 4 {
		return nil, &perrors.CryptographicError{Kind: perrors.KindMalformedHeader}
	}
	argonMemKiB := binary.LittleEndian.Uint32(r[:4])
	r = r[4:]
	if argonMemKiB == 0 || argonMemKiB > argonMemoryKiB {
		return nil, &perrors.CryptographicError{Kind: perrors.KindMalformedHeader}
	}

	if len(r) < 8 {
		return nil, &perrors.CryptographicError{Kind: perrors.KindMalformedHeader}
	}
	ctLen := binary.LittleEndian.Uint64(r[:8])
	r = r[8:]

	if ctLen > uint64(maxCiphertextLen) || ctLen > uint64(len(r)) {
		return nil, &perrors.CryptographicError{Kind: perrors.KindMalformedHeader}
	}
	ct := r[:ctLen]

	key := argon2.IDKey(password, salt, argonTime, argonMemKiB, argonParallelism, kekLen)
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &perrors.CryptographicError{Kind: perrors.KindBadKeySize, Err: err}
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, &perrors.CryptographicError{Kind: perrors.KindBadKeySize, Err: err}
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, &perrors.CryptographicError{Kind: perrors.KindMalformedHeader}
	}

	pt, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, &perrors.CryptographicError{Kind: perrors.KindAuthenticationFailed, Err: err}
	}
	return pt, nil
}

func writeLenPrefixed(buf *bytes.Buffer, data []byte) {
	buf.WriteByte(byte(len(data)))
	buf.Write(data)
}

// readLenPrefixed reads a single-byte length prefix followed by that many
// bytes, rejecting a declared length above maxLen or beyond the remaining
// buffer before slicing.
func readLenPrefixed(r []byte, maxLen uint32) (data []byte, rest []byte, err error) {
	if len(r) < 1 {
		return nil, nil, &perrors.CryptographicError{Kind: perrors.KindMalformedHeader}
	}
	n := uint32(r[0])
	r = r[1:]
	if n > maxLen || uint64(n) > uint64(len(r)) {
		return nil, nil, &perrors.CryptographicError{Kind: perrors.KindMalformedHeader}
	}
	return r[:n], r[n:], nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

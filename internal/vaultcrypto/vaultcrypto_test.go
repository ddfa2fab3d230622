package vaultcrypto

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKEKDeterministic(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	k1, err := DeriveKEK([]byte("correct horse battery staple"), salt)
	require.NoError(t, err)
	k2, err := DeriveKEK([]byte("correct horse battery staple"), salt)
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
}

func TestDeriveKEKRejectsEmptyPassword(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	_, err = DeriveKEK(nil, salt)
	assert.Error(t, err)
}

func TestWrapUnwrapItemKeyRoundTrip(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)
	kek, err := DeriveKEK([]byte("master-password"), salt)
	require.NoError(t, err)

	ik, err := GenerateItemKey()
	require.NoError(t, err)

	wrapped, err := WrapItemKey(kek, ik)
	require.NoError(t, err)

	unwrapped, err := UnwrapItemKey(kek, wrapped)
	require.NoError(t, err)
	assert.Equal(t, ik, unwrapped)
}

func TestUnwrapItemKeyRejectsWrongKEK(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)
	kek1, err := DeriveKEK([]byte("password-one"), salt)
	require.NoError(t, err)
	kek2, err := DeriveKEK([]byte("password-two"), salt)
	require.NoError(t, err)

	ik, err := GenerateItemKey()
	require.NoError(t, err)
	wrapped, err := WrapItemKey(kek1, ik)
	require.NoError(t, err)

	_, err = UnwrapItemKey(kek2, wrapped)
	assert.Error(t, err)
}

func TestSealOpenRoundTrip(t *testing.T) {
	var key [32]byte
	copy(key[:], []byte("0123456789abcdef0123456789abcdef"))

	plaintext := []byte("super secret credential payload")
	ct, err := Seal(key, plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ct)

	pt, err := Open(key, ct)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(plaintext, pt))
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	var key [32]byte
	copy(key[:], []byte("0123456789abcdef0123456789abcdef"))

	ct, err := Seal(key, []byte("hello"))
	require.NoError(t, err)
	ct[len(ct)-1] ^= 0xFF

	_, err = Open(key, ct)
	assert.Error(t, err)
}

func TestOpenRejectsShortCiphertext(t *testing.T) {
	var key [32]byte
	_, err := Open(key, []byte("short"))
	assert.Error(t, err)
}

func TestSealFileOpenFileRoundTrip(t *testing.T) {
	password := []byte("file envelope password")
	plaintext := []byte("this is exported vault content")

	blob, err := SealFile(password, plaintext, 8*1024)
	require.NoError(t, err)

	pt, err := OpenFile(password, blob, len(plaintext)+1024)
	require.NoError(t, err)
	assert.Equal(t, plaintext, pt)
}

func TestOpenFileRejectsWrongPassword(t *testing.T) {
	blob, err := SealFile([]byte("right"), []byte("data"), 8*1024)
	require.NoError(t, err)

	_, err = OpenFile([]byte("wrong"), blob, 1024)
	assert.Error(t, err)
}

func TestOpenFileRejectsBadMagic(t *testing.T) {
	_, err := OpenFile([]byte("pw"), []byte("NOTAPERSENCBLOB"), 1024)
	assert.Error(t, err)
}

func TestOpenFileRejectsOversizedCiphertextLenPrefix(t *testing.T) {
	blob, err := SealFile([]byte("pw"), []byte("small"), 8*1024)
	require.NoError(t, err)

	// maxCiphertextLen smaller than the true ciphertext must fail closed
	// before any decrypt attempt.
	_, err = OpenFile([]byte("pw"), blob, 0)
	assert.Error(t, err)
}

func TestOpenFileRejectsTruncatedHeader(t *testing.T) {
	_, err := OpenFile([]byte("pw"), fileMagic, 1024)
	assert.Error(t, err)
}

// TestSealFileEnvelopeLayout pins the PERSENC1 wire layout: magic, a
// single-byte salt_len, salt, a single-byte nonce_len, nonce,
// argon_memory_kib(4 LE), ct_len(8 LE), ct.
func TestSealFileEnvelopeLayout(t *testing.T) {
	blob, err := SealFile([]byte("pw"), []byte("hello"), 8*1024)
	require.NoError(t, err)

	off := 0
	assert.Equal(t, fileMagic, blob[off:off+len(fileMagic)])
	off += len(fileMagic)

	saltLen := int(blob[off])
	assert.Equal(t, fileSaltLen, saltLen)
	off++
	off += saltLen

	nonceLen := int(blob[off])
	assert.Equal(t, 12, nonceLen)
	off++
	off += nonceLen

	argonMemKiB := binary.LittleEndian.Uint32(blob[off : off+4])
	assert.Equal(t, uint32(8*1024), argonMemKiB)
	off += 4

	ctLen := binary.LittleEndian.Uint64(blob[off : off+8])
	off += 8
	assert.Equal(t, len(blob)-off, int(ctLen))
}

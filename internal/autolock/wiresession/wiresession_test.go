package wiresession

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	k, err := New("session-1")
	require.NoError(t, err)
	defer k.Close()

	plaintext := []byte("hello from the bridge")
	ct, err := k.Encrypt(plaintext)
	require.NoError(t, err)

	pt, err := k.Decrypt(ct)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(plaintext, pt))
}

func TestFromSeedIsDeterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{0x42}, 32)
	k1, err := FromSeed("session-1", seed)
	require.NoError(t, err)
	defer k1.Close()

	k2, err := FromSeed("session-1", append([]byte(nil), seed...))
	require.NoError(t, err)
	defer k2.Close()

	ct, err := k1.Encrypt([]byte("x"))
	require.NoError(t, err)
	_, err = k2.Decrypt(ct)
	require.NoError(t, err)
}

func TestDecryptRejectsShortCiphertext(t *testing.T) {
	k, err := New("session-1")
	require.NoError(t, err)
	defer k.Close()

	_, err = k.Decrypt([]byte("short"))
	assert.Error(t, err)
}

func TestDecryptRejectsWrongSession(t *testing.T) {
	k1, err := New("session-1")
	require.NoError(t, err)
	defer k1.Close()
	k2, err := New("session-2")
	require.NoError(t, err)
	defer k2.Close()

	ct, err := k1.Encrypt([]byte("secret"))
	require.NoError(t, err)

	_, err = k2.Decrypt(ct)
	assert.Error(t, err)
}

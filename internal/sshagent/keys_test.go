package sshagent

import (
	"crypto/ed25519"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestKeyFromSeedDerivesDeterministicKey(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}
	hexSeed := hex.EncodeToString(seed)

	ak, err := TestKeyFromSeed(hexSeed, "my-test-key")
	require.NoError(t, err)
	assert.Equal(t, "my-test-key", ak.Comment)
	assert.Equal(t, seed, ak.SecretSeed[:])

	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	ak2, err := TestKeyFromSeed(hexSeed, "")
	require.NoError(t, err)
	assert.Equal(t, ak.PublicBlob, ak2.PublicBlob)
	assert.Equal(t, "test-key", ak2.Comment)
	assert.NotEmpty(t, pub)
}

func TestTestKeyFromSeedRejectsBadHex(t *testing.T) {
	_, err := TestKeyFromSeed("not-hex", "c")
	assert.Error(t, err)
}

func TestTestKeyFromSeedRejectsWrongLength(t *testing.T) {
	_, err := TestKeyFromSeed(hex.EncodeToString([]byte("too short")), "c")
	assert.Error(t, err)
}

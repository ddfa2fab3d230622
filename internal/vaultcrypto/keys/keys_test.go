package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEd25519SignVerifyRoundTrip(t *testing.T) {
	kp, err := GenerateEd25519KeyPair()
	require.NoError(t, err)

	msg := []byte("sign this ssh challenge")
	sig, err := kp.Sign(msg)
	require.NoError(t, err)

	assert.NoError(t, kp.Verify(msg, sig))
	assert.Error(t, kp.Verify([]byte("different message"), sig))
}

func TestEd25519OpenSSHWireBlob(t *testing.T) {
	kp, err := GenerateEd25519KeyPair()
	require.NoError(t, err)

	blob := kp.OpenSSHWireBlob()
	// string("ssh-ed25519") = 4 + 11, string(pub[32]) = 4 + 32
	assert.Equal(t, 4+11+4+32, len(blob))

	line, err := kp.AuthorizedKeysLine("persona")
	require.NoError(t, err)
	assert.Contains(t, line, "ssh-ed25519")
	assert.Contains(t, line, "persona")
}

func TestSecp256k1SignVerifyRoundTrip(t *testing.T) {
	kp, err := GenerateSecp256k1KeyPair()
	require.NoError(t, err)

	msg := []byte("sign this transaction")
	sig, err := kp.Sign(msg)
	require.NoError(t, err)
	require.Len(t, sig, 64)

	assert.NoError(t, kp.Verify(msg, sig))
	assert.Error(t, kp.Verify([]byte("other"), sig))
}

func TestSecp256k1EthereumAddressFormat(t *testing.T) {
	kp, err := GenerateSecp256k1KeyPair()
	require.NoError(t, err)

	addr := kp.EthereumAddress()
	assert.True(t, len(addr) == 42)
	assert.Equal(t, "0x", addr[:2])
}

// TestGenerateTOTPRFC6238Vector checks the well-known RFC 6238 SHA1 test
// vector: secret "12345678901234567890" (ASCII), T=59, 6 digits -> "287082".
func TestGenerateTOTPRFC6238Vector(t *testing.T) {
	code, err := GenerateTOTP(TOTPParams{
		Secret:    []byte("12345678901234567890"),
		Algorithm: TOTPAlgorithmSHA1,
		Digits:    6,
		Period:    30,
	}, 59)
	require.NoError(t, err)
	assert.Equal(t, "287082", code)
}

func TestGenerateTOTPRejectsEmptySecret(t *testing.T) {
	_, err := GenerateTOTP(TOTPParams{}, 59)
	assert.Error(t, err)
}

func TestDecodeBase32SecretNormalizesInput(t *testing.T) {
	decoded, err := DecodeBase32Secret("jbsw y3dp ehpk 3pxp")
	require.NoError(t, err)
	assert.NotEmpty(t, decoded)
}

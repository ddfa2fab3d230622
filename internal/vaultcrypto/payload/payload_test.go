package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordRoundTrip(t *testing.T) {
	p := Password{Password: "hunter2", Email: "u@example.com"}
	enc, err := Encode(TagPassword, p)
	require.NoError(t, err)

	var got Password
	require.NoError(t, Decode(enc, TagPassword, &got))
	assert.Equal(t, p, got)
}

func TestDecodeRejectsMismatchedTag(t *testing.T) {
	enc, err := Encode(TagPassword, Password{Password: "x"})
	require.NoError(t, err)

	var got SshKey
	err = Decode(enc, TagSshKey, &got)
	assert.Error(t, err)
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	enc, err := Encode(TagPassword, Password{Password: "x"})
	require.NoError(t, err)
	enc[0] = 99

	var got Password
	err = Decode(enc, TagPassword, &got)
	assert.Error(t, err)
}

func TestDecodeRejectsTruncatedEnvelope(t *testing.T) {
	var got Password
	assert.Error(t, Decode([]byte{1}, TagPassword, &got))
}

func TestTagForCredentialType(t *testing.T) {
	tag, err := TagForCredentialType("SshKey")
	require.NoError(t, err)
	assert.Equal(t, TagSshKey, tag)

	tag, err = TagForCredentialType("Custom:loyalty_card")
	require.NoError(t, err)
	assert.Equal(t, TagCustom, tag)

	_, err = TagForCredentialType("NotAType")
	assert.Error(t, err)
}

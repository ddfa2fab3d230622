package sshagent

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("hello")))

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestEncodeIdentitiesAnswer(t *testing.T) {
	keys := []*AgentKey{
		{PublicBlob: []byte("blob1"), Comment: "key1"},
		{PublicBlob: []byte("blob2"), Comment: "key2"},
	}
	out := EncodeIdentitiesAnswer(keys)
	assert.Equal(t, byte(MsgIdentitiesAnswer), out[0])
}

func TestDecodeSignRequestRoundTrip(t *testing.T) {
	body := []byte{MsgSignRequest}
	body = appendString(body, []byte("key-blob"))
	body = appendString(body, []byte("data-to-sign"))
	body = append(body, 0, 0, 0, 0)

	req, err := decodeSignRequest(body)
	require.NoError(t, err)
	assert.Equal(t, []byte("key-blob"), req.KeyBlob)
	assert.Equal(t, []byte("data-to-sign"), req.Data)
}

func TestEncodeSignResponseWrapsEd25519Type(t *testing.T) {
	sig := bytes.Repeat([]byte{0x01}, 64)
	out := EncodeSignResponse(sig)
	assert.Equal(t, byte(MsgSignResponse), out[0])
}

func TestEncodeFailure(t *testing.T) {
	assert.Equal(t, []byte{MsgFailure}, EncodeFailure())
}

package bridge

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte(`{"hello":"world"}`)))

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hello":"world"}`, string(got))
}

func TestReadFrameRejectsOversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	oversized := make([]byte, MaxFrameLen+1)
	require.Error(t, WriteFrame(&buf, oversized))

	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], MaxFrameLen+1)
	_, err := ReadFrame(bytes.NewReader(header[:]))
	require.Error(t, err)
}

func TestRequestResponseRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	req := &Request{RequestID: "r1", Type: "status"}
	require.NoError(t, WriteFrame(&buf, mustMarshal(t, req)))

	got, err := ReadRequest(&buf)
	require.NoError(t, err)
	assert.Equal(t, "r1", got.RequestID)
	assert.Equal(t, "status", got.Type)

	var out bytes.Buffer
	resp := okResponse(got, map[string]bool{"locked": false})
	require.NoError(t, WriteResponse(&out, resp))

	roundTripped, err := ReadFrame(&out)
	require.NoError(t, err)
	assert.Contains(t, string(roundTripped), `"ok":true`)
}

func mustMarshal(t *testing.T, req *Request) []byte {
	t.Helper()
	b, err := json.Marshal(req)
	require.NoError(t, err)
	return b
}

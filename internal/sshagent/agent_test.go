package sshagent

import (
	"crypto/ed25519"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/persona-vault/persona/internal/policy"
)

func newTestKey(t *testing.T, comment string) (*AgentKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)

	ak := &AgentKey{
		PublicBlob:   sshPub.Marshal(),
		Comment:      comment,
		CredentialID: "cred-" + comment,
	}
	copy(ak.SecretSeed[:], priv.Seed())
	return ak, priv
}

func TestDispatchRequestIdentities(t *testing.T) {
	key, _ := newTestKey(t, "k1")
	a := New([]*AgentKey{key}, policy.New(policy.File{}), nil, nil)

	resp := a.dispatch([]byte{MsgRequestIdentities})
	assert.Equal(t, byte(MsgIdentitiesAnswer), resp[0])
	count := binary.BigEndian.Uint32(resp[1:5])
	assert.Equal(t, uint32(1), count)
}

func TestDispatchSignRequestSucceedsWhenAllowed(t *testing.T) {
	key, priv := newTestKey(t, "k1")
	a := New([]*AgentKey{key}, policy.New(policy.File{}), nil, nil)

	data := []byte("data to sign")
	body := []byte{MsgSignRequest}
	body = appendString(body, key.PublicBlob)
	body = appendString(body, data)
	body = append(body, 0, 0, 0, 0)

	resp := a.dispatch(body)
	require.Equal(t, byte(MsgSignResponse), resp[0])

	sigBlob, rest, err := readString(resp[1:])
	require.NoError(t, err)
	assert.Empty(t, rest)
	_, sigBytes, err := readString(sigBlob[4+11:])
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(priv.Public().(ed25519.PublicKey), data, sigBytes))
}

func TestDispatchSignRequestUnknownKeyFails(t *testing.T) {
	key, _ := newTestKey(t, "k1")
	a := New([]*AgentKey{key}, policy.New(policy.File{}), nil, nil)

	body := []byte{MsgSignRequest}
	body = appendString(body, []byte("not-a-real-blob"))
	body = appendString(body, []byte("data"))
	body = append(body, 0, 0, 0, 0)

	resp := a.dispatch(body)
	assert.Equal(t, []byte{MsgFailure}, resp)
}

func TestDispatchSignRequestDeniedByPolicy(t *testing.T) {
	key, _ := newTestKey(t, "k1")
	a := New([]*AgentKey{key}, policy.New(policy.File{Global: policy.GlobalPolicy{DenyAll: true}}), nil, nil)

	body := []byte{MsgSignRequest}
	body = appendString(body, key.PublicBlob)
	body = appendString(body, []byte("data"))
	body = append(body, 0, 0, 0, 0)

	resp := a.dispatch(body)
	assert.Equal(t, []byte{MsgFailure}, resp)
}

func TestDispatchSignRequestRequiresConfirm(t *testing.T) {
	key, priv := newTestKey(t, "k1")
	a := New([]*AgentKey{key}, policy.New(policy.File{Global: policy.GlobalPolicy{RequireConfirm: true}}), nil, nil)
	a.confirm = func(string) bool { return true }

	data := []byte("data")
	body := []byte{MsgSignRequest}
	body = appendString(body, key.PublicBlob)
	body = appendString(body, data)
	body = append(body, 0, 0, 0, 0)

	resp := a.dispatch(body)
	require.Equal(t, byte(MsgSignResponse), resp[0])

	a.confirm = func(string) bool { return false }
	resp = a.dispatch(body)
	assert.Equal(t, []byte{MsgFailure}, resp)
	_ = priv
}

func TestServeOverUnixSocket(t *testing.T) {
	key, _ := newTestKey(t, "k1")
	a := New([]*AgentKey{key}, policy.New(policy.File{}), nil, nil)

	ln, err := net.Listen("unix", t.TempDir()+"/agent.sock")
	require.NoError(t, err)
	defer ln.Close()
	go a.Serve(ln)

	conn, err := net.Dial("unix", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, WriteFrame(conn, []byte{MsgRequestIdentities}))
	resp, err := ReadFrame(conn)
	require.NoError(t, err)
	assert.Equal(t, byte(MsgIdentitiesAnswer), resp[0])
}

package bridge

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/persona-vault/persona/internal/perrors"
)

type fakeBackend struct {
	locked         bool
	activeIdentity string
	creds          map[string]CredentialSummary
	passwords      map[string][2]string
	totps          map[string]string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		creds:     make(map[string]CredentialSummary),
		passwords: make(map[string][2]string),
		totps:     make(map[string]string),
	}
}

func (f *fakeBackend) Status() (bool, string, error) { return f.locked, f.activeIdentity, nil }

func (f *fakeBackend) Suggestions() ([]CredentialSummary, error) {
	out := make([]CredentialSummary, 0, len(f.creds))
	for _, c := range f.creds {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeBackend) Credential(id string) (CredentialSummary, error) {
	c, ok := f.creds[id]
	if !ok {
		return CredentialSummary{}, &perrors.NotFound{Entity: "credential", ID: id}
	}
	return c, nil
}

func (f *fakeBackend) Fill(id string) (string, string, error) {
	p, ok := f.passwords[id]
	if !ok {
		return "", "", &perrors.NotFound{Entity: "credential", ID: id}
	}
	return p[0], p[1], nil
}

func (f *fakeBackend) TOTP(id string, now time.Time) (string, error) {
	code, ok := f.totps[id]
	if !ok {
		return "", &perrors.NotFound{Entity: "credential", ID: id}
	}
	return code, nil
}

func newTestServer(backend Backend) (*Server, *Pairing) {
	state := NewState()
	pairingKeyRaw := make([]byte, 32)
	for i := range pairingKeyRaw {
		pairingKeyRaw[i] = byte(i)
	}
	pairing := &Pairing{
		ExtensionID:      "ext1",
		ClientInstanceID: "client1",
		KeyB64:           base64.RawURLEncoding.EncodeToString(pairingKeyRaw),
		Session:          &BridgeSession{SessionID: "sess-1", ExpiresAt: time.Now().Add(time.Hour)},
	}
	state.Paired[pairingKey("ext1", "client1")] = pairing

	srv := NewServer(state, "", backend, DefaultOptions(), nil)
	return srv, pairing
}

func authedRequest(t *testing.T, pairing *Pairing, reqType string, payload interface{}) *Request {
	t.Helper()
	payloadJSON, err := json.Marshal(payload)
	require.NoError(t, err)

	req := &Request{
		RequestID: "r1",
		Type:      reqType,
		Payload:   payloadJSON,
		Auth: &RequestAuth{
			SessionID: pairing.Session.SessionID,
			TsMs:      time.Now().UnixMilli(),
			Nonce:     "nonce1",
		},
	}
	key, err := base64.RawURLEncoding.DecodeString(pairing.KeyB64)
	require.NoError(t, err)
	signingInput, err := SigningInput(req)
	require.NoError(t, err)
	mac := hmac.New(sha256.New, key)
	mac.Write(signingInput)
	req.Auth.Signature = base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return req
}

func TestDispatchStatusRequiresNoAuth(t *testing.T) {
	backend := newFakeBackend()
	backend.locked = true
	srv, _ := newTestServer(backend)

	resp := srv.Dispatch(&Request{Type: "status"})
	assert.True(t, resp.OK)
}

func TestDispatchHelloReusesExistingPairing(t *testing.T) {
	backend := newFakeBackend()
	srv, _ := newTestServer(backend)

	payload, _ := json.Marshal(map[string]string{"extension_id": "ext1", "client_instance_id": "client1"})
	resp := srv.Dispatch(&Request{Type: "hello", Payload: payload})
	require.True(t, resp.OK)
	m := resp.Payload.(map[string]interface{})
	assert.Equal(t, true, m["paired"])
}

func TestDispatchPairingRequestThenFinalize(t *testing.T) {
	backend := newFakeBackend()
	srv, _ := newTestServer(backend)

	payload, _ := json.Marshal(map[string]string{"extension_id": "ext2", "client_instance_id": "client2"})
	resp := srv.Dispatch(&Request{Type: "pairing_request", Payload: payload})
	require.True(t, resp.OK)

	srv.state.Pending[pairingKey("ext2", "client2")].Approved = true

	resp = srv.Dispatch(&Request{Type: "pairing_finalize", Payload: payload})
	require.True(t, resp.OK)
	m := resp.Payload.(map[string]interface{})
	assert.NotEmpty(t, m["session_id"])
}

func TestDispatchPairingFinalizeFailsWithoutApproval(t *testing.T) {
	backend := newFakeBackend()
	srv, _ := newTestServer(backend)

	payload, _ := json.Marshal(map[string]string{"extension_id": "ext3", "client_instance_id": "client3"})
	srv.Dispatch(&Request{Type: "pairing_request", Payload: payload})

	resp := srv.Dispatch(&Request{Type: "pairing_finalize", Payload: payload})
	assert.False(t, resp.OK)
}

func TestDispatchGetSuggestionsScoresAndSorts(t *testing.T) {
	backend := newFakeBackend()
	backend.creds["c1"] = CredentialSummary{ID: "c1", Type: "Password", URL: "https://example.com"}
	backend.creds["c2"] = CredentialSummary{ID: "c2", Type: "Password", URL: "https://accounts.example.com"}
	srv, pairing := newTestServer(backend)

	req := authedRequest(t, pairing, "get_suggestions", map[string]string{"host": "example.com"})
	resp := srv.Dispatch(req)
	require.True(t, resp.OK)

	raw, err := json.Marshal(resp.Payload)
	require.NoError(t, err)
	var got []struct {
		CredentialID string `json:"credential_id"`
		Strength     int    `json:"strength"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "c1", got[0].CredentialID)
	assert.Equal(t, 100, got[0].Strength)
	assert.Equal(t, "c2", got[1].CredentialID)
	assert.Equal(t, 90, got[1].Strength)
}

func TestDispatchRequestFillRequiresUserGesture(t *testing.T) {
	backend := newFakeBackend()
	backend.creds["c1"] = CredentialSummary{ID: "c1", Type: "Password", URL: "https://example.com"}
	backend.passwords["c1"] = [2]string{"alice", "hunter2"}
	srv, pairing := newTestServer(backend)

	req := authedRequest(t, pairing, "request_fill", map[string]interface{}{
		"credential_id": "c1", "host": "example.com", "user_gesture": false,
	})
	resp := srv.Dispatch(req)
	assert.False(t, resp.OK)

	req = authedRequest(t, pairing, "request_fill", map[string]interface{}{
		"credential_id": "c1", "host": "example.com", "user_gesture": true,
	})
	resp = srv.Dispatch(req)
	require.True(t, resp.OK)
	m := resp.Payload.(map[string]interface{})
	assert.Equal(t, "alice", m["username"])
	assert.Equal(t, "hunter2", m["password"])
}

func TestDispatchRequestFillRejectsWeakOriginBinding(t *testing.T) {
	backend := newFakeBackend()
	backend.creds["c1"] = CredentialSummary{ID: "c1", Type: "Password", URL: "https://example.com"}
	backend.passwords["c1"] = [2]string{"alice", "hunter2"}
	srv, pairing := newTestServer(backend)

	req := authedRequest(t, pairing, "request_fill", map[string]interface{}{
		"credential_id": "c1", "host": "totally-different.org", "user_gesture": true,
	})
	resp := srv.Dispatch(req)
	assert.False(t, resp.OK)
}

func TestDispatchGetTotpRequiresBoundURL(t *testing.T) {
	backend := newFakeBackend()
	backend.creds["c1"] = CredentialSummary{ID: "c1", Type: "TwoFactor", URL: ""}
	backend.totps["c1"] = "123456"
	srv, pairing := newTestServer(backend)

	req := authedRequest(t, pairing, "get_totp", map[string]interface{}{
		"credential_id": "c1", "host": "example.com", "user_gesture": true,
	})
	resp := srv.Dispatch(req)
	assert.False(t, resp.OK)
}

func TestDispatchCopyRoutesField(t *testing.T) {
	backend := newFakeBackend()
	backend.creds["c1"] = CredentialSummary{ID: "c1", Type: "Password", URL: "https://example.com"}
	backend.passwords["c1"] = [2]string{"alice", "hunter2"}
	srv, pairing := newTestServer(backend)

	req := authedRequest(t, pairing, "copy", map[string]interface{}{
		"credential_id": "c1", "host": "example.com", "field": "username", "user_gesture": true,
	})
	resp := srv.Dispatch(req)
	require.True(t, resp.OK)
	m := resp.Payload.(map[string]interface{})
	assert.Equal(t, "alice", m["value"])
}

func TestDispatchUnknownTypeFails(t *testing.T) {
	backend := newFakeBackend()
	srv, _ := newTestServer(backend)
	resp := srv.Dispatch(&Request{Type: "nonsense"})
	assert.False(t, resp.OK)
}

func TestDispatchRejectsBadSignature(t *testing.T) {
	backend := newFakeBackend()
	backend.creds["c1"] = CredentialSummary{ID: "c1", Type: "Password", URL: "https://example.com"}
	srv, pairing := newTestServer(backend)

	req := authedRequest(t, pairing, "get_suggestions", map[string]string{"host": "example.com"})
	req.Auth.Signature = "tampered"
	resp := srv.Dispatch(req)
	assert.False(t, resp.OK)
}

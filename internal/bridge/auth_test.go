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
)

func signedRequest(t *testing.T, key []byte, reqType, requestID string, payload interface{}, sessionID string, ts int64, nonce string) *Request {
	t.Helper()
	payloadJSON, err := json.Marshal(payload)
	require.NoError(t, err)

	req := &Request{
		RequestID: requestID,
		Type:      reqType,
		Payload:   payloadJSON,
		Auth: &RequestAuth{
			SessionID: sessionID,
			TsMs:      ts,
			Nonce:     nonce,
		},
	}
	signingInput, err := SigningInput(req)
	require.NoError(t, err)

	mac := hmac.New(sha256.New, key)
	mac.Write(signingInput)
	req.Auth.Signature = base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return req
}

func TestVerifyAuthAcceptsValidSignature(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcde")
	now := time.Now()
	pairing := &Pairing{
		KeyB64:  base64.RawURLEncoding.EncodeToString(key),
		Session: &BridgeSession{SessionID: "sess-1", ExpiresAt: now.Add(time.Hour)},
	}
	req := signedRequest(t, key, "status", "r1", map[string]string{"host": "example.com"}, "sess-1", now.UnixMilli(), "n1")

	assert.NoError(t, VerifyAuth(req, pairing, now, DefaultMaxSkew))
}

func TestVerifyAuthRejectsTamperedPayload(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcde")
	now := time.Now()
	pairing := &Pairing{
		KeyB64:  base64.RawURLEncoding.EncodeToString(key),
		Session: &BridgeSession{SessionID: "sess-1", ExpiresAt: now.Add(time.Hour)},
	}
	req := signedRequest(t, key, "status", "r1", map[string]string{"host": "example.com"}, "sess-1", now.UnixMilli(), "n1")
	req.Payload = []byte(`{"host":"evil.com"}`)

	assert.Error(t, VerifyAuth(req, pairing, now, DefaultMaxSkew))
}

func TestVerifyAuthRejectsStaleTimestamp(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcde")
	now := time.Now()
	pairing := &Pairing{
		KeyB64:  base64.RawURLEncoding.EncodeToString(key),
		Session: &BridgeSession{SessionID: "sess-1", ExpiresAt: now.Add(time.Hour)},
	}
	req := signedRequest(t, key, "status", "r1", map[string]string{}, "sess-1", now.Add(-10*time.Minute).UnixMilli(), "n1")

	assert.Error(t, VerifyAuth(req, pairing, now, DefaultMaxSkew))
}

func TestVerifyAuthRejectsExpiredSession(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcde")
	now := time.Now()
	pairing := &Pairing{
		KeyB64:  base64.RawURLEncoding.EncodeToString(key),
		Session: &BridgeSession{SessionID: "sess-1", ExpiresAt: now.Add(-time.Minute)},
	}
	req := signedRequest(t, key, "status", "r1", map[string]string{}, "sess-1", now.UnixMilli(), "n1")

	assert.Error(t, VerifyAuth(req, pairing, now, DefaultMaxSkew))
}

func TestVerifyAuthRejectsMissingPairing(t *testing.T) {
	req := &Request{Type: "status", Auth: &RequestAuth{SessionID: "unknown"}}
	assert.Error(t, VerifyAuth(req, nil, time.Now(), DefaultMaxSkew))
}

func TestVerifyAuthRejectsMissingAuth(t *testing.T) {
	req := &Request{Type: "status"}
	assert.Error(t, VerifyAuth(req, nil, time.Now(), DefaultMaxSkew))
}

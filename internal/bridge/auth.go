package bridge

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/persona-vault/persona/internal/canonjson"
	"github.com/persona-vault/persona/internal/perrors"
)

// DefaultMaxSkew is the default tolerance between a request's ts_ms and the
// server's clock.
const DefaultMaxSkew = 5 * time.Minute

func b64RawDecode(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}

// SigningInput builds the canonical HMAC signing input for an authenticated
// request, per spec: type‖"\n"‖request_id‖"\n"‖payload_json‖"\n"‖session_id‖
// "\n"‖ts_ms‖"\n"‖nonce, where payload_json is the recursive key-sorted
// canonical JSON encoding of the request payload.
func SigningInput(req *Request) ([]byte, error) {
	var decoded interface{}
	if len(req.Payload) > 0 {
		if err := json.Unmarshal(req.Payload, &decoded); err != nil {
			return nil, &perrors.InvalidInput{Field: "payload", Reason: "malformed payload json"}
		}
	}
	payloadJSON, err := canonjson.MarshalRaw(decoded)
	if err != nil {
		return nil, err
	}

	auth := req.Auth
	out := fmt.Sprintf("%s\n%s\n%s\n%s\n%d\n%s",
		req.Type, req.RequestID, payloadJSON, auth.SessionID, auth.TsMs, auth.Nonce)
	return []byte(out), nil
}

// VerifyAuth validates req.Auth against pairing's shared secret: checks the
// session binding, the timestamp skew, and the constant-time HMAC compare.
func VerifyAuth(req *Request, pairing *Pairing, now time.Time, maxSkew time.Duration) error {
	if req.Auth == nil {
		return &perrors.AuthenticationFailed{Reason: "pairing_required"}
	}
	if pairing == nil || pairing.Session == nil || pairing.Session.SessionID != req.Auth.SessionID {
		return &perrors.AuthenticationFailed{Reason: "session_expired"}
	}
	if !pairing.Session.ExpiresAt.After(now) {
		return &perrors.AuthenticationFailed{Reason: "session_expired"}
	}

	skew := now.Sub(time.UnixMilli(req.Auth.TsMs))
	if skew < 0 {
		skew = -skew
	}
	if skew > maxSkew {
		return &perrors.AuthenticationFailed{Reason: "stale timestamp"}
	}

	key, err := b64RawDecode(pairing.KeyB64)
	if err != nil {
		return &perrors.AuthenticationFailed{Reason: "authentication_failed"}
	}
	sig, err := b64RawDecode(req.Auth.Signature)
	if err != nil {
		return &perrors.AuthenticationFailed{Reason: "authentication_failed"}
	}

	signingInput, err := SigningInput(req)
	if err != nil {
		return err
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(signingInput)
	expected := mac.Sum(nil)

	if subtle.ConstantTimeCompare(expected, sig) != 1 {
		return &perrors.AuthenticationFailed{Reason: "authentication_failed"}
	}
	return nil
}

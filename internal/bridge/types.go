package bridge

import (
	"encoding/json"
	"time"
)

// RequestAuth carries the per-request HMAC authentication fields.
type RequestAuth struct {
	SessionID string `json:"session_id"`
	TsMs      int64  `json:"ts_ms"`
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
}

// Request is one native-messaging request envelope.
type Request struct {
	RequestID string          `json:"request_id,omitempty"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Auth      *RequestAuth    `json:"auth,omitempty"`
}

// Response is one native-messaging response envelope.
type Response struct {
	RequestID string      `json:"request_id,omitempty"`
	Type      string      `json:"type"`
	OK        bool        `json:"ok"`
	Error     string      `json:"error,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
}

func okResponse(req *Request, payload interface{}) *Response {
	return &Response{RequestID: req.RequestID, Type: req.Type, OK: true, Payload: payload}
}

func errResponse(req *Request, errString string) *Response {
	return &Response{RequestID: req.RequestID, Type: req.Type, OK: false, Error: errString}
}

// PendingPairing is an unapproved pairing request awaiting an out-of-band
// administrative approval.
type PendingPairing struct {
	Code             string    `json:"code"`
	ExtensionID      string    `json:"extension_id"`
	ClientInstanceID string    `json:"client_instance_id"`
	KeyB64           string    `json:"key_b64"`
	RequestedAt      time.Time `json:"requested_at"`
	ExpiresAt        time.Time `json:"expires_at"`
	Approved         bool      `json:"approved"`
}

// BridgeSession is the session minted once a pairing is finalized.
type BridgeSession struct {
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Pairing is an approved, finalized extension/device pairing.
type Pairing struct {
	ExtensionID      string         `json:"extension_id"`
	ClientInstanceID string         `json:"client_instance_id"`
	KeyB64           string         `json:"key_b64"`
	Session          *BridgeSession `json:"session,omitempty"`
}

func (p *Pairing) key() string { return pairingKey(p.ExtensionID, p.ClientInstanceID) }

func pairingKey(extensionID, clientInstanceID string) string {
	return extensionID + "\x00" + clientInstanceID
}

// State is the bridge's persisted state: pending and finalized pairings.
// Persisted as state.json via SaveState/LoadState.
type State struct {
	Pending  map[string]*PendingPairing `json:"pending"`
	Paired   map[string]*Pairing        `json:"paired"`
	Capacity int                        `json:"-"`
}

// NewState returns an empty, initialized State.
func NewState() *State {
	return &State{
		Pending: make(map[string]*PendingPairing),
		Paired:  make(map[string]*Pairing),
	}
}

// GC purges expired pending pairings and expired sessions, per spec's
// per-request garbage-collection rule.
func (s *State) GC(now time.Time) {
	for k, p := range s.Pending {
		if !p.ExpiresAt.After(now) {
			delete(s.Pending, k)
		}
	}
	for _, p := range s.Paired {
		if p.Session != nil && !p.Session.ExpiresAt.After(now) {
			p.Session = nil
		}
	}
}

// FindBySessionID locates the pairing whose active session matches
// sessionID.
func (s *State) FindBySessionID(sessionID string) *Pairing {
	for _, p := range s.Paired {
		if p.Session != nil && p.Session.SessionID == sessionID {
			return p
		}
	}
	return nil
}

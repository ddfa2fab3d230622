package bridge

import (
	"encoding/json"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/persona-vault/persona/internal/perrors"
	"github.com/persona-vault/persona/internal/personalog"
)

// Options configures a Server's protocol-level behavior.
type Options struct {
	Version            string
	Capabilities       []string
	MaxSkew            time.Duration
	RequireUserGesture bool
	PairingTTL         time.Duration
	SessionTTL         time.Duration
}

// DefaultOptions returns the spec's defaults: 5 minute clock skew tolerance,
// 10 minute pairing window, 24 hour session lifetime, user gesture required.
func DefaultOptions() Options {
	return Options{
		Version:            "1",
		Capabilities:       []string{"get_suggestions", "request_fill", "get_totp", "copy"},
		MaxSkew:            DefaultMaxSkew,
		RequireUserGesture: true,
		PairingTTL:         10 * time.Minute,
		SessionTTL:         24 * time.Hour,
	}
}

// Server drives the bridge's request/reply loop over stdio: it holds the
// persisted pairing/session State and dispatches authenticated requests into
// a Backend.
type Server struct {
	mu        sync.Mutex
	state     *State
	statePath string
	backend   Backend
	opts      Options
	log       personalog.Logger
	now       func() time.Time
}

// NewServer builds a Server. statePath may be empty, in which case state is
// held in memory only and never persisted.
func NewServer(state *State, statePath string, backend Backend, opts Options, log personalog.Logger) *Server {
	return &Server{
		state:     state,
		statePath: statePath,
		backend:   backend,
		opts:      opts,
		log:       log,
		now:       time.Now,
	}
}

// Serve runs the read-dispatch-write loop over r/w until r returns EOF or a
// framing error.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	for {
		req, err := ReadRequest(r)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		resp := s.Dispatch(req)
		if err := WriteResponse(w, resp); err != nil {
			return err
		}
	}
}

// Dispatch handles exactly one request and returns its response. It never
// panics on malformed input; every failure is surfaced as an error response.
func (s *Server) Dispatch(req *Request) *Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.state.GC(now)

	switch req.Type {
	case "hello":
		return s.handleHello(req, now)
	case "pairing_request":
		return s.handlePairingRequest(req, now)
	case "pairing_finalize":
		return s.handlePairingFinalize(req, now)
	case "status":
		return s.handleStatus(req)
	case "get_suggestions":
		return s.handleAuthenticated(req, now, s.handleGetSuggestions)
	case "request_fill":
		return s.handleAuthenticated(req, now, s.handleRequestFill)
	case "get_totp":
		return s.handleAuthenticated(req, now, s.handleGetTotp)
	case "copy":
		return s.handleAuthenticated(req, now, s.handleCopy)
	default:
		return errResponse(req, perrors.BridgeErrorString(&perrors.UnsupportedOperation{Operation: req.Type}))
	}
}

func (s *Server) persistLocked() {
	if s.statePath == "" {
		return
	}
	if err := SaveState(s.state, s.statePath); err != nil && s.log != nil {
		s.log.Warn("bridge: failed to persist state", personalog.Error(err))
	}
}

type helloPayload struct {
	ExtensionID      string `json:"extension_id"`
	ClientInstanceID string `json:"client_instance_id"`
}

func (s *Server) handleHello(req *Request, now time.Time) *Response {
	var p helloPayload
	_ = json.Unmarshal(req.Payload, &p)

	resp := map[string]interface{}{
		"version":          s.opts.Version,
		"capabilities":     s.opts.Capabilities,
		"pairing_required": true,
		"paired":           false,
	}

	if p.ExtensionID != "" && p.ClientInstanceID != "" {
		if pairing, ok := s.state.Paired[pairingKey(p.ExtensionID, p.ClientInstanceID)]; ok {
			resp["paired"] = true
			resp["pairing_required"] = false
			if pairing.Session == nil || !pairing.Session.ExpiresAt.After(now) {
				pairing.Session = &BridgeSession{SessionID: uuid.NewString(), ExpiresAt: now.Add(s.opts.SessionTTL)}
				s.persistLocked()
			}
			resp["session_id"] = pairing.Session.SessionID
			resp["session_expires_at_ms"] = pairing.Session.ExpiresAt.UnixMilli()
		}
	}
	return okResponse(req, resp)
}

type pairingRequestPayload struct {
	ExtensionID      string `json:"extension_id"`
	ClientInstanceID string `json:"client_instance_id"`
}

func (s *Server) handlePairingRequest(req *Request, now time.Time) *Response {
	var p pairingRequestPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		return errResponse(req, perrors.BridgeErrorString(&perrors.InvalidInput{Field: "payload"}))
	}

	key := pairingKey(p.ExtensionID, p.ClientInstanceID)
	if _, exists := s.state.Paired[key]; exists {
		return errResponse(req, "already_paired")
	}

	code, err := generatePairingCode()
	if err != nil {
		return errResponse(req, perrors.BridgeErrorString(err))
	}
	keyB64, err := generatePairingKey()
	if err != nil {
		return errResponse(req, perrors.BridgeErrorString(err))
	}

	pending := &PendingPairing{
		Code:             code,
		ExtensionID:      p.ExtensionID,
		ClientInstanceID: p.ClientInstanceID,
		KeyB64:           keyB64,
		RequestedAt:      now,
		ExpiresAt:        now.Add(s.opts.PairingTTL),
		Approved:         false,
	}
	s.state.Pending[key] = pending
	s.persistLocked()

	return okResponse(req, map[string]interface{}{
		"code":       pending.Code,
		"expires_at": pending.ExpiresAt.UnixMilli(),
	})
}

func (s *Server) handlePairingFinalize(req *Request, now time.Time) *Response {
	var p pairingRequestPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		return errResponse(req, perrors.BridgeErrorString(&perrors.InvalidInput{Field: "payload"}))
	}

	key := pairingKey(p.ExtensionID, p.ClientInstanceID)
	pending, ok := s.state.Pending[key]
	if !ok || !pending.ExpiresAt.After(now) || !pending.Approved {
		return errResponse(req, perrors.BridgeErrorString(&perrors.AuthenticationFailed{Reason: "pairing_not_approved"}))
	}

	pairing := &Pairing{
		ExtensionID:      pending.ExtensionID,
		ClientInstanceID: pending.ClientInstanceID,
		KeyB64:           pending.KeyB64,
		Session: &BridgeSession{
			SessionID: uuid.NewString(),
			ExpiresAt: now.Add(s.opts.SessionTTL),
		},
	}
	s.state.Paired[key] = pairing
	delete(s.state.Pending, key)
	s.persistLocked()

	return okResponse(req, map[string]interface{}{
		"session_id":            pairing.Session.SessionID,
		"session_expires_at_ms": pairing.Session.ExpiresAt.UnixMilli(),
	})
}

func (s *Server) handleStatus(req *Request) *Response {
	locked, activeIdentity, err := s.backend.Status()
	if err != nil {
		return errResponse(req, perrors.BridgeErrorString(err))
	}
	return okResponse(req, map[string]interface{}{
		"locked":          locked,
		"active_identity": activeIdentity,
	})
}

// handleAuthenticated locates the pairing referenced by req.Auth.SessionID,
// verifies the HMAC, and only then calls fn.
func (s *Server) handleAuthenticated(req *Request, now time.Time, fn func(*Request, *Pairing, time.Time) *Response) *Response {
	var pairing *Pairing
	if req.Auth != nil {
		pairing = s.state.FindBySessionID(req.Auth.SessionID)
	}
	if err := VerifyAuth(req, pairing, now, s.opts.MaxSkew); err != nil {
		return errResponse(req, perrors.BridgeErrorString(err))
	}
	return fn(req, pairing, now)
}

type suggestionsPayload struct {
	Host string `json:"host"`
}

func (s *Server) handleGetSuggestions(req *Request, _ *Pairing, _ time.Time) *Response {
	var p suggestionsPayload
	_ = json.Unmarshal(req.Payload, &p)

	creds, err := s.backend.Suggestions()
	if err != nil {
		return errResponse(req, perrors.BridgeErrorString(err))
	}

	type scored struct {
		CredentialID string `json:"credential_id"`
		Type         string `json:"type"`
		Strength     int    `json:"strength"`
	}
	var out []scored
	for _, c := range creds {
		strength := MatchStrength(c.URL, p.Host)
		if strength > 0 {
			out = append(out, scored{CredentialID: c.ID, Type: c.Type, Strength: strength})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Strength > out[j].Strength })

	return okResponse(req, out)
}

type fillPayload struct {
	CredentialID string `json:"credential_id"`
	Host         string `json:"host"`
	UserGesture  bool   `json:"user_gesture"`
}

func (s *Server) checkGestureAndBinding(req *Request, credentialID, host string, gesture bool, requireBoundURL bool) (CredentialSummary, error) {
	if s.opts.RequireUserGesture && !gesture {
		return CredentialSummary{}, &perrors.InvalidInput{Field: "user_gesture", Reason: "user gesture required"}
	}
	cred, err := s.backend.Credential(credentialID)
	if err != nil {
		return CredentialSummary{}, err
	}
	if cred.URL == "" && requireBoundURL {
		return CredentialSummary{}, &perrors.InvalidInput{Field: "origin", Reason: "credential has no bound url"}
	}
	if cred.URL != "" && MatchStrength(cred.URL, host) < 60 {
		return CredentialSummary{}, &perrors.InvalidInput{Field: "origin", Reason: "origin does not bind to credential url"}
	}
	return cred, nil
}

func (s *Server) handleRequestFill(req *Request, _ *Pairing, _ time.Time) *Response {
	var p fillPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		return errResponse(req, perrors.BridgeErrorString(&perrors.InvalidInput{Field: "payload"}))
	}
	if _, err := s.checkGestureAndBinding(req, p.CredentialID, p.Host, p.UserGesture, false); err != nil {
		return errResponse(req, perrors.BridgeErrorString(err))
	}
	username, password, err := s.backend.Fill(p.CredentialID)
	if err != nil {
		return errResponse(req, perrors.BridgeErrorString(err))
	}
	return okResponse(req, map[string]interface{}{"username": username, "password": password})
}

func (s *Server) handleGetTotp(req *Request, _ *Pairing, now time.Time) *Response {
	var p fillPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		return errResponse(req, perrors.BridgeErrorString(&perrors.InvalidInput{Field: "payload"}))
	}
	if _, err := s.checkGestureAndBinding(req, p.CredentialID, p.Host, p.UserGesture, true); err != nil {
		return errResponse(req, perrors.BridgeErrorString(err))
	}
	code, err := s.backend.TOTP(p.CredentialID, now)
	if err != nil {
		return errResponse(req, perrors.BridgeErrorString(err))
	}
	return okResponse(req, map[string]interface{}{"totp": code})
}

type copyPayload struct {
	CredentialID string `json:"credential_id"`
	Host         string `json:"host"`
	Field        string `json:"field"`
	UserGesture  bool   `json:"user_gesture"`
}

func (s *Server) handleCopy(req *Request, _ *Pairing, now time.Time) *Response {
	var p copyPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		return errResponse(req, perrors.BridgeErrorString(&perrors.InvalidInput{Field: "payload"}))
	}
	requireBoundURL := p.Field == "totp"
	if _, err := s.checkGestureAndBinding(req, p.CredentialID, p.Host, p.UserGesture, requireBoundURL); err != nil {
		return errResponse(req, perrors.BridgeErrorString(err))
	}

	var value string
	var err error
	switch p.Field {
	case "username":
		value, _, err = s.backend.Fill(p.CredentialID)
	case "password":
		_, value, err = s.backend.Fill(p.CredentialID)
	case "totp":
		value, err = s.backend.TOTP(p.CredentialID, now)
	default:
		err = &perrors.InvalidInput{Field: "field", Reason: "must be username, password, or totp"}
	}
	if err != nil {
		return errResponse(req, perrors.BridgeErrorString(err))
	}
	return okResponse(req, map[string]interface{}{"value": value})
}

// Package vaultservice orchestrates the key hierarchy, repositories, blob
// storage, authentication, and auto-lock engine behind one API surface:
// identity/credential CRUD with transparent encryption, session lifecycle,
// and the narrow read paths the SSH agent and native-messaging bridge call
// into.
package vaultservice

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/persona-vault/persona/internal/auth"
	"github.com/persona-vault/persona/internal/autolock"
	"github.com/persona-vault/persona/internal/blobstore"
	"github.com/persona-vault/persona/internal/perrors"
	"github.com/persona-vault/persona/internal/personalog"
	"github.com/persona-vault/persona/internal/store"
	"github.com/persona-vault/persona/internal/vaultcrypto"
)

// Service is the single-logical-mutator vault: one active session, one
// master key installed, one active identity at a time per instance.
type Service struct {
	store    *store.Store
	blobs    *blobstore.Store
	authn    *auth.Authenticator
	sessions *autolock.Manager
	log      personalog.Logger

	mu             sync.Mutex
	kek            *vaultcrypto.KEK
	currentUserID  string
	currentSession string
	workspaceID    string
	activeIdentity string
}

// New builds a Service over an already-open Store and blob Store.
// workspaceID identifies the single workspace this instance operates
// against.
func New(st *store.Store, blobs *blobstore.Store, authCfg auth.Config, tickInterval time.Duration, workspaceID string, log personalog.Logger) *Service {
	return &Service{
		store:       st,
		blobs:       blobs,
		authn:       auth.New(st.UserAuths, authCfg),
		sessions:    autolock.NewManager(tickInterval),
		log:         log,
		workspaceID: workspaceID,
	}
}

// Stop tears down the background auto-lock monitor. Callers must invoke
// this exactly once on shutdown; Go has no destructor to do it implicitly.
func (s *Service) Stop() {
	s.sessions.Stop()
}

// Unlock authenticates candidate against the single-user auth record and,
// on success, installs the KEK and mints a tracked session.
func (s *Service) Unlock(candidate []byte, policy autolock.Policy, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.store.UserAuths.FindSingle()
	if err != nil {
		return "", err
	}

	outcome, err := s.authn.Authenticate(u, candidate, now)
	if err != nil {
		return "", err
	}
	if outcome.Result != auth.Success {
		return "", &perrors.AuthenticationFailed{Reason: string(outcome.Result)}
	}

	sessionID := uuid.NewString()
	if err := s.sessions.AddSession(sessionID, u.UserID, now, policy); err != nil {
		return "", err
	}

	kek := outcome.KEK
	s.kek = &kek
	s.currentUserID = u.UserID
	s.currentSession = sessionID

	dbSession := &store.Session{
		ID:           sessionID,
		UserID:       u.UserID,
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(policy.AbsoluteTimeout),
	}
	if err := s.store.Sessions.Create(dbSession); err != nil {
		s.sessions.RemoveSession(sessionID)
		s.kek.Zero()
		s.kek = nil
		return "", err
	}

	return sessionID, nil
}

// Lock discards the installed KEK and marks the current session locked.
func (s *Service) Lock(reason autolock.LockReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lockLocked(reason)
}

func (s *Service) lockLocked(reason autolock.LockReason) {
	if s.kek != nil {
		s.kek.Zero()
		s.kek = nil
	}
	if s.currentSession != "" {
		s.sessions.Lock(s.currentSession, reason)
	}
	s.activeIdentity = ""
}

// IsLocked reports whether the vault currently has no installed KEK, or its
// session has expired/been locked by the auto-lock engine.
func (s *Service) IsLocked(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isLockedLocked(now)
}

func (s *Service) isLockedLocked(now time.Time) bool {
	if s.kek == nil || s.currentSession == "" {
		return true
	}
	valid, err := s.sessions.IsSessionValid(s.currentSession, now)
	if err != nil || !valid {
		return true
	}
	return false
}

// requireUnlocked returns the installed KEK or an error if the vault is
// locked, recording activity on the current session as a side effect.
func (s *Service) requireUnlocked(now time.Time) (vaultcrypto.KEK, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isLockedLocked(now) {
		return vaultcrypto.KEK{}, &perrors.AuthenticationFailed{Reason: "locked"}
	}
	s.sessions.UpdateActivity(s.currentSession, now)
	return *s.kek, nil
}

// Status reports the vault's lock state and active identity, for the
// bridge's `status` request.
func (s *Service) Status() (bool, string, error) {
	now := time.Now()
	if s.IsLocked(now) {
		return true, "", nil
	}
	s.mu.Lock()
	identityID := s.activeIdentity
	s.mu.Unlock()
	if identityID == "" {
		return false, "", nil
	}
	identity, err := s.store.Identities.FindByID(identityID)
	if err != nil {
		return false, "", nil
	}
	return false, identity.Name, nil
}

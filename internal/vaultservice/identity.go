package vaultservice

import (
	"time"

	"github.com/google/uuid"

	"github.com/persona-vault/persona/internal/store"
)

// CreateIdentity creates a new identity in the service's workspace. Identity
// metadata is not secret; this path does not require the vault to be
// unlocked.
func (s *Service) CreateIdentity(name, identityType string, description, email, phone *string, tags []string, attributes map[string]string) (*store.Identity, error) {
	now := time.Now()
	identity := &store.Identity{
		ID:           uuid.NewString(),
		WorkspaceID:  s.workspaceID,
		Name:         name,
		IdentityType: identityType,
		Description:  description,
		Email:        email,
		Phone:        phone,
		Tags:         tags,
		Attributes:   attributes,
		CreatedAt:    now,
		UpdatedAt:    now,
		IsActive:     true,
	}
	if err := s.store.Identities.Create(identity); err != nil {
		return nil, err
	}
	return identity, nil
}

// ListIdentities returns every identity in the service's workspace.
func (s *Service) ListIdentities() ([]*store.Identity, error) {
	return s.store.Identities.FindAll(s.workspaceID)
}

// SetActiveIdentity scopes subsequent Suggestions calls to identityID
// (CreateCredential takes its identity as an explicit argument). Requires the
// vault to be unlocked.
func (s *Service) SetActiveIdentity(identityID string, now time.Time) error {
	if _, err := s.requireUnlocked(now); err != nil {
		return err
	}
	if identityID != "" {
		if _, err := s.store.Identities.FindByID(identityID); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.activeIdentity = identityID
	s.mu.Unlock()
	return nil
}

// ActiveIdentity returns the currently scoped identity ID, or "" if none is
// set.
func (s *Service) ActiveIdentity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeIdentity
}

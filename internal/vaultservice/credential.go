package vaultservice

import (
	"time"

	"github.com/google/uuid"

	"github.com/persona-vault/persona/internal/bridge"
	"github.com/persona-vault/persona/internal/perrors"
	"github.com/persona-vault/persona/internal/store"
	"github.com/persona-vault/persona/internal/vaultcrypto"
	"github.com/persona-vault/persona/internal/vaultcrypto/keys"
	"github.com/persona-vault/persona/internal/vaultcrypto/payload"
)

var _ bridge.Backend = (*Service)(nil)

// CreateCredential encrypts plaintext under a freshly generated item key,
// wraps that item key under the installed KEK, and persists the result.
// credentialType must name one of payload's known tags (e.g. "Password",
// "SshKey", "TwoFactor").
func (s *Service) CreateCredential(identityID, name, credentialType string, url, username *string, tags []string, metadata map[string]string, plaintext interface{}, now time.Time) (*store.Credential, error) {
	kek, err := s.requireUnlocked(now)
	if err != nil {
		return nil, err
	}

	tag, err := payload.TagForCredentialType(credentialType)
	if err != nil {
		return nil, err
	}
	envelope, err := payload.Encode(tag, plaintext)
	if err != nil {
		return nil, err
	}

	itemKey, err := vaultcrypto.GenerateItemKey()
	if err != nil {
		return nil, err
	}
	encrypted, err := vaultcrypto.Seal([32]byte(itemKey), envelope)
	if err != nil {
		return nil, err
	}
	wrapped, err := vaultcrypto.WrapItemKey(kek, itemKey)
	if err != nil {
		return nil, err
	}

	cred := &store.Credential{
		ID:             uuid.NewString(),
		IdentityID:     identityID,
		Name:           name,
		CredentialType: credentialType,
		SecurityLevel:  "Standard",
		URL:            url,
		Username:       username,
		Tags:           tags,
		Metadata:       metadata,
		EncryptedData:  encrypted,
		WrappedItemKey: wrapped,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
		IsActive:       true,
	}
	if err := s.store.Credentials.Create(cred); err != nil {
		return nil, err
	}
	return cred, nil
}

// decryptEnvelope unwraps a credential's item key under the installed KEK
// and decrypts its payload envelope.
func (s *Service) decryptEnvelope(cred *store.Credential, kek vaultcrypto.KEK) ([]byte, payload.Tag, error) {
	itemKey, err := vaultcrypto.UnwrapItemKey(kek, cred.WrappedItemKey)
	if err != nil {
		return nil, 0, err
	}
	defer itemKey.Zero()

	envelope, err := vaultcrypto.Open([32]byte(itemKey), cred.EncryptedData)
	if err != nil {
		return nil, 0, err
	}
	tag, err := payload.TagForCredentialType(cred.CredentialType)
	if err != nil {
		return nil, 0, err
	}
	return envelope, tag, nil
}

// Fill decrypts a Password credential's username/password, implementing
// bridge.Backend.Fill.
func (s *Service) Fill(credentialID string) (string, string, error) {
	now := time.Now()
	kek, err := s.requireUnlocked(now)
	if err != nil {
		return "", "", err
	}
	cred, err := s.store.Credentials.FindByID(credentialID)
	if err != nil {
		return "", "", err
	}
	envelope, tag, err := s.decryptEnvelope(cred, kek)
	if err != nil {
		return "", "", err
	}
	var pw payload.Password
	if err := payload.Decode(envelope, tag, &pw); err != nil {
		return "", "", err
	}
	username := ""
	if cred.Username != nil {
		username = *cred.Username
	}
	_ = s.store.Credentials.TouchLastAccessed(credentialID, now)
	return username, pw.Password, nil
}

// TOTP generates the current TOTP code for a TwoFactor credential,
// implementing bridge.Backend.TOTP.
func (s *Service) TOTP(credentialID string, now time.Time) (string, error) {
	kek, err := s.requireUnlocked(now)
	if err != nil {
		return "", err
	}
	cred, err := s.store.Credentials.FindByID(credentialID)
	if err != nil {
		return "", err
	}
	envelope, tag, err := s.decryptEnvelope(cred, kek)
	if err != nil {
		return "", err
	}
	var tf payload.TwoFactor
	if err := payload.Decode(envelope, tag, &tf); err != nil {
		return "", err
	}
	secret, err := keys.DecodeBase32Secret(tf.SecretKey)
	if err != nil {
		return "", err
	}
	code, err := keys.GenerateTOTP(keys.TOTPParams{
		Secret:    secret,
		Algorithm: keys.TOTPAlgorithm(tf.Algorithm),
		Digits:    tf.Digits,
		Period:    tf.Period,
	}, now.Unix())
	if err != nil {
		return "", err
	}
	_ = s.store.Credentials.TouchLastAccessed(credentialID, now)
	return code, nil
}

// Credential returns a bridge.CredentialSummary for origin-binding checks,
// implementing bridge.Backend.Credential.
func (s *Service) Credential(credentialID string) (bridge.CredentialSummary, error) {
	cred, err := s.store.Credentials.FindByID(credentialID)
	if err != nil {
		return bridge.CredentialSummary{}, err
	}
	return toCredentialSummary(cred), nil
}

// Suggestions returns Password/TwoFactor credentials scoped to the active
// identity (if any is set), implementing bridge.Backend.Suggestions.
func (s *Service) Suggestions() ([]bridge.CredentialSummary, error) {
	identityID := s.ActiveIdentity()

	var creds []*store.Credential
	var err error
	if identityID != "" {
		creds, err = s.store.Credentials.FindAll(identityID)
	} else {
		var passwords, totps []*store.Credential
		if passwords, err = s.store.Credentials.FindByType("Password"); err == nil {
			totps, err = s.store.Credentials.FindByType("TwoFactor")
		}
		creds = append(passwords, totps...)
	}
	if err != nil {
		return nil, err
	}

	out := make([]bridge.CredentialSummary, 0, len(creds))
	for _, c := range creds {
		if c.CredentialType != "Password" && c.CredentialType != "TwoFactor" {
			continue
		}
		out = append(out, toCredentialSummary(c))
	}
	return out, nil
}

func toCredentialSummary(c *store.Credential) bridge.CredentialSummary {
	url := ""
	if c.URL != nil {
		url = *c.URL
	}
	return bridge.CredentialSummary{ID: c.ID, Type: c.CredentialType, URL: url}
}

// DecryptSSHKey is the sshagent.LoadKeys decrypt callback: it unwraps an
// SshKey credential's item key and returns its base64 private seed and
// OpenSSH public-key text.
func (s *Service) DecryptSSHKey(cred *store.Credential) (string, string, error) {
	kek, err := s.requireUnlocked(time.Now())
	if err != nil {
		return "", "", err
	}
	if cred.CredentialType != "SshKey" {
		return "", "", &perrors.UnsupportedOperation{Operation: "credential_type:" + cred.CredentialType}
	}
	envelope, tag, err := s.decryptEnvelope(cred, kek)
	if err != nil {
		return "", "", err
	}
	var sshKey payload.SshKey
	if err := payload.Decode(envelope, tag, &sshKey); err != nil {
		return "", "", err
	}
	return sshKey.PrivateKey, sshKey.PublicKey, nil
}

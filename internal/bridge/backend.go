package bridge

import "time"

// CredentialSummary is the subset of a credential the bridge needs to score
// and serve suggestions, without ever holding decrypted secret material
// itself.
type CredentialSummary struct {
	ID   string
	Type string // "Password" or "TwoFactor"
	URL  string // empty if the credential has no bound URL
}

// Backend is the vault-side dependency the bridge dispatches into. It is
// implemented by the vault service, which owns the key hierarchy, the
// repositories, and the active-identity/lock state the bridge itself does
// not hold.
type Backend interface {
	// Status reports whether the vault is locked and, if unlocked, the
	// active identity's display name (empty if none is active).
	Status() (locked bool, activeIdentity string, err error)

	// Suggestions returns Password/TwoFactor credentials scoped to the
	// active identity (if any is set) for the caller to further filter by
	// URL match strength.
	Suggestions() ([]CredentialSummary, error)

	// Credential looks up one credential's summary, for origin-binding
	// checks ahead of Fill/TOTP/Copy.
	Credential(credentialID string) (CredentialSummary, error)

	// Fill decrypts a Password credential's username/password.
	Fill(credentialID string) (username, password string, err error)

	// TOTP generates the current TOTP code for a TwoFactor credential.
	TOTP(credentialID string, now time.Time) (code string, err error)
}

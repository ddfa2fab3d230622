// Package auth implements the password authentication state machine: Argon2id
// verification against a stored UserAuth row, failed-attempt tracking, and
// account lockout.
package auth

import (
	"crypto/subtle"
	"time"

	"github.com/persona-vault/persona/internal/perrors"
	"github.com/persona-vault/persona/internal/store"
	"github.com/persona-vault/persona/internal/vaultcrypto"
)

// Result is the outcome of a password authentication attempt.
type Result string

const (
	Success                Result = "Success"
	InvalidCredentials     Result = "InvalidCredentials"
	AccountLocked          Result = "AccountLocked"
	PasswordChangeRequired Result = "PasswordChangeRequired"
)

// Config controls lockout behavior.
type Config struct {
	FailureThreshold int
	LockoutDuration  time.Duration
}

// DefaultConfig matches spec.md §4.3's illustrative defaults.
func DefaultConfig() Config {
	return Config{FailureThreshold: 5, LockoutDuration: 15 * time.Minute}
}

// Authenticator runs the password authentication procedure against a single
// UserAuth row, persisting attempt/lockout state back through repo.
type Authenticator struct {
	repo *store.UserAuthRepo
	cfg  Config
}

func New(repo *store.UserAuthRepo, cfg Config) *Authenticator {
	return &Authenticator{repo: repo, cfg: cfg}
}

// Outcome carries the authentication result and, on Success, the derived KEK.
type Outcome struct {
	Result Result
	KEK    vaultcrypto.KEK
}

// Authenticate runs the password authentication procedure described in
// spec.md §4.3 against the given candidate password and stored UserAuth row.
func (a *Authenticator) Authenticate(u *store.UserAuth, candidate []byte, now time.Time) (Outcome, error) {
	if u.LockedUntil != nil && now.Before(*u.LockedUntil) {
		return Outcome{Result: AccountLocked}, &perrors.AccountLocked{Until: u.LockedUntil.Format(time.RFC3339)}
	}

	var salt [32]byte
	copy(salt[:], u.MasterKeySalt)

	ok, kek, err := verifyPassword(candidate, u.PasswordHash, salt)
	if err != nil {
		return Outcome{}, err
	}

	if !ok {
		u.FailedAttempts++
		if u.FailedAttempts >= a.cfg.FailureThreshold {
			until := now.Add(a.cfg.LockoutDuration)
			u.LockedUntil = &until
		}
		if updErr := a.repo.Update(u); updErr != nil {
			return Outcome{}, updErr
		}
		return Outcome{Result: InvalidCredentials}, &perrors.AuthenticationFailed{Reason: "invalid password"}
	}

	u.FailedAttempts = 0
	u.LockedUntil = nil
	if updErr := a.repo.Update(u); updErr != nil {
		return Outcome{}, updErr
	}
	return Outcome{Result: Success, KEK: kek}, nil
}

// verifyPassword re-derives the KEK from candidate+salt and compares it in
// constant time against the stored Argon2id hash (the stored hash IS the
// derived KEK itself, per spec.md §4.1 — there is no separate password
// hash algorithm, Argon2id does double duty as KDF and verifier).
func verifyPassword(candidate, storedHash []byte, salt [32]byte) (bool, vaultcrypto.KEK, error) {
	kek, err := vaultcrypto.DeriveKEK(candidate, salt)
	if err != nil {
		return false, vaultcrypto.KEK{}, err
	}
	if len(storedHash) != len(kek) {
		return false, kek, nil
	}
	return subtle.ConstantTimeCompare(kek[:], storedHash) == 1, kek, nil
}

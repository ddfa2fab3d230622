package auth

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/persona-vault/persona/internal/store"
	"github.com/persona-vault/persona/internal/vaultcrypto"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedUser(t *testing.T, s *store.Store, password []byte) *store.UserAuth {
	t.Helper()
	salt, err := vaultcrypto.GenerateSalt()
	require.NoError(t, err)
	kek, err := vaultcrypto.DeriveKEK(password, salt)
	require.NoError(t, err)

	u := &store.UserAuth{
		UserID:            "u-1",
		PasswordHash:      kek[:],
		MasterKeySalt:     salt[:],
		PasswordChangedAt: time.Now().UTC(),
	}
	require.NoError(t, s.UserAuths.Create(u))
	return u
}

func TestAuthenticateSuccess(t *testing.T) {
	s := newTestStore(t)
	u := seedUser(t, s, []byte("correct horse battery staple"))

	a := New(s.UserAuths, DefaultConfig())
	out, err := a.Authenticate(u, []byte("correct horse battery staple"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, Success, out.Result)

	reread, err := s.UserAuths.FindSingle()
	require.NoError(t, err)
	assert.Equal(t, 0, reread.FailedAttempts)
	assert.Nil(t, reread.LockedUntil)
}

func TestAuthenticateInvalidPasswordIncrementsFailures(t *testing.T) {
	s := newTestStore(t)
	u := seedUser(t, s, []byte("right-password"))

	a := New(s.UserAuths, DefaultConfig())
	out, err := a.Authenticate(u, []byte("wrong-password"), time.Now())
	require.Error(t, err)
	assert.Equal(t, InvalidCredentials, out.Result)

	reread, err := s.UserAuths.FindSingle()
	require.NoError(t, err)
	assert.Equal(t, 1, reread.FailedAttempts)
}

func TestAuthenticateLocksAccountAfterThreshold(t *testing.T) {
	s := newTestStore(t)
	u := seedUser(t, s, []byte("right-password"))

	cfg := Config{FailureThreshold: 3, LockoutDuration: time.Minute}
	a := New(s.UserAuths, cfg)

	now := time.Now()
	for i := 0; i < 3; i++ {
		u, _ = s.UserAuths.FindSingle()
		_, err := a.Authenticate(u, []byte("wrong"), now)
		require.Error(t, err)
	}

	reread, err := s.UserAuths.FindSingle()
	require.NoError(t, err)
	require.NotNil(t, reread.LockedUntil)

	out, err := a.Authenticate(reread, []byte("right-password"), now)
	require.Error(t, err)
	assert.Equal(t, AccountLocked, out.Result)
}

func TestAuthenticateUnlocksAfterLockoutElapses(t *testing.T) {
	s := newTestStore(t)
	u := seedUser(t, s, []byte("right-password"))

	cfg := Config{FailureThreshold: 1, LockoutDuration: time.Minute}
	a := New(s.UserAuths, cfg)

	now := time.Now()
	_, err := a.Authenticate(u, []byte("wrong"), now)
	require.Error(t, err)

	reread, err := s.UserAuths.FindSingle()
	require.NoError(t, err)

	later := now.Add(2 * time.Minute)
	out, err := a.Authenticate(reread, []byte("right-password"), later)
	require.NoError(t, err)
	assert.Equal(t, Success, out.Result)
}

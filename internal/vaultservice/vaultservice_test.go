package vaultservice

import (
	"encoding/base32"
	"encoding/base64"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/persona-vault/persona/internal/auth"
	"github.com/persona-vault/persona/internal/autolock"
	"github.com/persona-vault/persona/internal/blobstore"
	"github.com/persona-vault/persona/internal/store"
	"github.com/persona-vault/persona/internal/vaultcrypto"
	"github.com/persona-vault/persona/internal/vaultcrypto/keys"
	"github.com/persona-vault/persona/internal/vaultcrypto/payload"
)

const testPassword = "correct horse battery staple"

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	blobs, err := blobstore.New(t.TempDir())
	require.NoError(t, err)

	salt, err := vaultcrypto.GenerateSalt()
	require.NoError(t, err)
	kek, err := vaultcrypto.DeriveKEK([]byte(testPassword), salt)
	require.NoError(t, err)
	require.NoError(t, st.UserAuths.Create(&store.UserAuth{
		UserID:            "u-1",
		PasswordHash:      kek[:],
		MasterKeySalt:     salt[:],
		PasswordChangedAt: time.Now().UTC(),
	}))

	ws := &store.Workspace{ID: "ws-1", Path: t.TempDir(), Name: "default"}
	require.NoError(t, st.Workspaces.Create(ws))

	svc := New(st, blobs, auth.DefaultConfig(), autolock.DefaultTickInterval, ws.ID, nil)
	t.Cleanup(svc.Stop)
	return svc
}

func testPolicy() autolock.Policy {
	return autolock.Policy{
		InactivityTimeout:     time.Hour,
		AbsoluteTimeout:       24 * time.Hour,
		MaxConcurrentSessions: 5,
	}
}

func TestUnlockThenLock(t *testing.T) {
	svc := newTestService(t)
	now := time.Now()

	sessionID, err := svc.Unlock([]byte(testPassword), testPolicy(), now)
	require.NoError(t, err)
	assert.NotEmpty(t, sessionID)
	assert.False(t, svc.IsLocked(now))

	svc.Lock(autolock.Manual)
	assert.True(t, svc.IsLocked(now))
}

func TestUnlockRejectsWrongPassword(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Unlock([]byte("wrong password"), testPolicy(), time.Now())
	assert.Error(t, err)
}

func TestCreateCredentialAndFillRoundTrip(t *testing.T) {
	svc := newTestService(t)
	now := time.Now()
	_, err := svc.Unlock([]byte(testPassword), testPolicy(), now)
	require.NoError(t, err)

	identity, err := svc.CreateIdentity("Personal", "Individual", nil, nil, nil, nil, nil)
	require.NoError(t, err)

	username := "alice"
	cred, err := svc.CreateCredential(identity.ID, "Example Login", "Password", strPtr("https://example.com"), &username, nil, nil,
		payload.Password{Password: "hunter2"}, now)
	require.NoError(t, err)

	gotUsername, gotPassword, err := svc.Fill(cred.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", gotUsername)
	assert.Equal(t, "hunter2", gotPassword)
}

func TestTOTPMatchesRFC6238Vector(t *testing.T) {
	svc := newTestService(t)
	now := time.Now()
	_, err := svc.Unlock([]byte(testPassword), testPolicy(), now)
	require.NoError(t, err)

	identity, err := svc.CreateIdentity("Personal", "Individual", nil, nil, nil, nil, nil)
	require.NoError(t, err)

	secret := base32Of(t, "12345678901234567890")
	cred, err := svc.CreateCredential(identity.ID, "Example 2FA", "TwoFactor", strPtr("https://example.com"), nil, nil, nil,
		payload.TwoFactor{SecretKey: secret, Algorithm: "SHA1", Digits: 6, Period: 30}, now)
	require.NoError(t, err)

	code, err := svc.TOTP(cred.ID, time.Unix(59, 0))
	require.NoError(t, err)
	assert.Equal(t, "287082", code)
}

func TestSuggestionsScopedToActiveIdentity(t *testing.T) {
	svc := newTestService(t)
	now := time.Now()
	_, err := svc.Unlock([]byte(testPassword), testPolicy(), now)
	require.NoError(t, err)

	id1, err := svc.CreateIdentity("Work", "Individual", nil, nil, nil, nil, nil)
	require.NoError(t, err)
	id2, err := svc.CreateIdentity("Personal", "Individual", nil, nil, nil, nil, nil)
	require.NoError(t, err)

	_, err = svc.CreateCredential(id1.ID, "Work Login", "Password", strPtr("https://work.example.com"), nil, nil, nil,
		payload.Password{Password: "p1"}, now)
	require.NoError(t, err)
	_, err = svc.CreateCredential(id2.ID, "Personal Login", "Password", strPtr("https://personal.example.com"), nil, nil, nil,
		payload.Password{Password: "p2"}, now)
	require.NoError(t, err)

	require.NoError(t, svc.SetActiveIdentity(id1.ID, now))
	creds, err := svc.Suggestions()
	require.NoError(t, err)
	assert.Len(t, creds, 1)
	assert.Equal(t, "https://work.example.com", creds[0].URL)
}

func TestLoadSSHKeysDecryptsStoredKey(t *testing.T) {
	svc := newTestService(t)
	now := time.Now()
	_, err := svc.Unlock([]byte(testPassword), testPolicy(), now)
	require.NoError(t, err)

	identity, err := svc.CreateIdentity("Personal", "Individual", nil, nil, nil, nil, nil)
	require.NoError(t, err)

	kp, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)
	authLine, err := kp.AuthorizedKeysLine("test-key")
	require.NoError(t, err)

	_, err = svc.CreateCredential(identity.ID, "My SSH Key", "SshKey", nil, nil, nil, nil,
		payload.SshKey{PublicKey: authLine, PrivateKey: seedB64(t, kp)}, now)
	require.NoError(t, err)

	agentKeys, err := svc.LoadSSHKeys()
	require.NoError(t, err)
	require.Len(t, agentKeys, 1)
	assert.Equal(t, "My SSH Key", agentKeys[0].Comment)
}

func strPtr(s string) *string { return &s }

func base32Of(t *testing.T, raw string) string {
	t.Helper()
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(raw))
}

func seedB64(t *testing.T, kp *keys.Ed25519KeyPair) string {
	t.Helper()
	return base64.StdEncoding.EncodeToString(kp.PrivateKey.Seed())
}

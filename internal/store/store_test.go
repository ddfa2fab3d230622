package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenAppliesMigrationsIdempotently(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vault.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	require.NoError(t, s2.Ping())
}

func TestWorkspaceIdentityCredentialLifecycle(t *testing.T) {
	s := openTestStore(t)

	ws := &Workspace{ID: "ws-1", Path: "/tmp/persona-ws-1", Name: "default"}
	require.NoError(t, s.Workspaces.Create(ws))

	now := time.Now().UTC()
	ident := &Identity{
		ID: "id-1", WorkspaceID: ws.ID, Name: "work", IdentityType: "Work",
		Tags: []string{"a", "b"}, Attributes: map[string]string{"k": "v"},
		CreatedAt: now, UpdatedAt: now, IsActive: true,
	}
	require.NoError(t, s.Identities.Create(ident))

	got, err := s.Identities.FindByID(ident.ID)
	require.NoError(t, err)
	assert.Equal(t, ident.Name, got.Name)
	assert.Equal(t, []string{"a", "b"}, got.Tags)

	_, err = s.Identities.FindByID("missing")
	assert.Error(t, err)

	cred := &Credential{
		ID: "cred-1", IdentityID: ident.ID, Name: "gh", CredentialType: "Password",
		SecurityLevel: "High", EncryptedData: []byte("ciphertext"), Version: 1,
		CreatedAt: now, UpdatedAt: now, IsActive: true,
	}
	require.NoError(t, s.Credentials.Create(cred))

	gotCred, err := s.Credentials.FindByID(cred.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("ciphertext"), gotCred.EncryptedData)
	assert.Equal(t, 1, gotCred.Version)

	gotCred.EncryptedData = []byte("new-ciphertext")
	gotCred.UpdatedAt = time.Now().UTC()
	require.NoError(t, s.Credentials.Update(gotCred, 1))

	reread, err := s.Credentials.FindByID(cred.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reread.Version)

	// stale version must be rejected (optimistic concurrency)
	err = s.Credentials.Update(reread, 1)
	assert.Error(t, err)

	require.NoError(t, s.Identities.Delete(ident.ID))
	_, err = s.Credentials.FindByID(cred.ID)
	assert.Error(t, err)
}

func TestChangeHistoryVersionsAreOrdered(t *testing.T) {
	s := openTestStore(t)

	for v := 1; v <= 3; v++ {
		require.NoError(t, s.ChangeHistory.Create(&ChangeHistory{
			ID: time.Now().UTC().Format(time.RFC3339Nano) + string(rune(v)),
			EntityType: "credential", EntityID: "cred-1", Version: v,
			ChangeType: "Update", Timestamp: time.Now().UTC(),
		}))
	}

	latest, err := s.ChangeHistory.LatestVersion("credential", "cred-1")
	require.NoError(t, err)
	assert.Equal(t, 3, latest)

	history, err := s.ChangeHistory.FindAll("credential", "cred-1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 1, history[0].Version)
	assert.Equal(t, 3, history[2].Version)
}

func TestUserAuthLockout(t *testing.T) {
	s := openTestStore(t)

	now := time.Now().UTC()
	u := &UserAuth{
		UserID: "u-1", PasswordHash: []byte("hash"), MasterKeySalt: []byte("salt"),
		PasswordChangedAt: now,
	}
	require.NoError(t, s.UserAuths.Create(u))

	u.FailedAttempts = 3
	locked := now.Add(5 * time.Minute)
	u.LockedUntil = &locked
	require.NoError(t, s.UserAuths.Update(u))

	got, err := s.UserAuths.FindSingle()
	require.NoError(t, err)
	assert.Equal(t, 3, got.FailedAttempts)
	require.NotNil(t, got.LockedUntil)
}

package bridge

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	st := NewState()
	st.Pending["ext\x00client"] = &PendingPairing{
		Code: "123-456", ExtensionID: "ext", ClientInstanceID: "client",
		KeyB64: "abc", RequestedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour),
	}

	require.NoError(t, SaveState(st, path))

	loaded, err := LoadState(path)
	require.NoError(t, err)
	assert.Len(t, loaded.Pending, 1)
	assert.Equal(t, "123-456", loaded.Pending["ext\x00client"].Code)
}

func TestLoadStateMissingFileReturnsEmptyState(t *testing.T) {
	st, err := LoadState(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Empty(t, st.Pending)
	assert.Empty(t, st.Paired)
}

func TestStateGCPurgesExpiredPendingAndSessions(t *testing.T) {
	now := time.Now()
	st := NewState()
	st.Pending["a"] = &PendingPairing{ExpiresAt: now.Add(-time.Minute)}
	st.Pending["b"] = &PendingPairing{ExpiresAt: now.Add(time.Minute)}
	st.Paired["c"] = &Pairing{Session: &BridgeSession{SessionID: "s1", ExpiresAt: now.Add(-time.Minute)}}

	st.GC(now)

	assert.Len(t, st.Pending, 1)
	_, stillPending := st.Pending["b"]
	assert.True(t, stillPending)
	assert.Nil(t, st.Paired["c"].Session)
}

package sshagent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadKnownHostsParsesCommaSeparatedHosts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "known_hosts")
	content := "github.com,140.82.121.3 ssh-ed25519 AAAAC3Nz\n# comment\n\nexample.com ssh-rsa AAAAB3Nz\n|1|abcd|efgh= ssh-ed25519 AAAAC3Nz\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	hosts, err := LoadKnownHosts(path)
	require.NoError(t, err)
	assert.True(t, hosts["github.com"])
	assert.True(t, hosts["140.82.121.3"])
	assert.True(t, hosts["example.com"])
	assert.False(t, hosts["hashed-host"])
}

func TestKnownHostsCheckerTreatsUnreadableFileAsUnknown(t *testing.T) {
	checker := KnownHostsChecker(filepath.Join(t.TempDir(), "missing"))
	assert.False(t, checker("anything.example.com"))
}

func TestKnownHostsCheckerMatchesLoadedHost(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "known_hosts")
	require.NoError(t, os.WriteFile(path, []byte("good.example.com ssh-ed25519 AAAAC3Nz\n"), 0600))

	checker := KnownHostsChecker(path)
	assert.True(t, checker("good.example.com"))
	assert.False(t, checker("bad.example.com"))
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFallsBackToDefaultsWithNoFiles(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(LoaderOptions{ConfigDir: dir})
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Vault.DatabasePath)
}

func TestLoadPrefersEnvironmentSpecificFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.yaml"), []byte("environment: development\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "staging.yaml"), []byte("environment: staging\n"), 0644))

	cfg, err := Load(LoaderOptions{ConfigDir: dir, Environment: "staging"})
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Environment)
}

func TestLoadAppliesPersonaEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PERSONA_DB_PATH", "/override/identities.db")
	t.Setenv("PERSONA_BRIDGE_REQUIRE_PAIRING", "true")
	t.Setenv("PERSONA_BRIDGE_AUTH_MAX_SKEW_MS", "120000")

	cfg, err := Load(LoaderOptions{ConfigDir: dir})
	require.NoError(t, err)
	assert.Equal(t, "/override/identities.db", cfg.Vault.DatabasePath)
	assert.True(t, cfg.Bridge.RequirePairing)
	assert.EqualValues(t, 120000, cfg.Bridge.AuthMaxSkewMs)
}

func TestMustLoadPanicsNever(t *testing.T) {
	dir := t.TempDir()
	assert.NotPanics(t, func() { MustLoad(LoaderOptions{ConfigDir: dir}) })
}

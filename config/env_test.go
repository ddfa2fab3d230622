package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("PERSONA_TEST_VAR", "resolved")

	assert.Equal(t, "resolved", SubstituteEnvVars("${PERSONA_TEST_VAR}"))
	assert.Equal(t, "fallback", SubstituteEnvVars("${PERSONA_TEST_UNSET:fallback}"))
	assert.Equal(t, "prefix-resolved-suffix", SubstituteEnvVars("prefix-${PERSONA_TEST_VAR}-suffix"))
	assert.Equal(t, "plain", SubstituteEnvVars("plain"))
}

func TestSubstituteEnvVarsInConfig(t *testing.T) {
	t.Setenv("PERSONA_TEST_DB", "/override/db.sqlite")

	cfg := &Config{Vault: &VaultConfig{DatabasePath: "${PERSONA_TEST_DB}"}}
	SubstituteEnvVarsInConfig(cfg)
	assert.Equal(t, "/override/db.sqlite", cfg.Vault.DatabasePath)
}

func TestSubstituteEnvVarsInConfigNilSafe(t *testing.T) {
	assert.NotPanics(t, func() { SubstituteEnvVarsInConfig(nil) })
	assert.NotPanics(t, func() { SubstituteEnvVarsInConfig(&Config{}) })
}

func TestGetEnvironmentDefaultsToDevelopment(t *testing.T) {
	t.Setenv("PERSONA_ENV", "")
	t.Setenv("ENVIRONMENT", "")
	assert.Equal(t, "development", GetEnvironment())
}

func TestGetEnvironmentReadsPersonaEnv(t *testing.T) {
	t.Setenv("PERSONA_ENV", "Production")
	assert.Equal(t, "production", GetEnvironment())
	assert.True(t, IsProduction())
	assert.False(t, IsDevelopment())
}

func TestIsDevelopmentAcceptsLocal(t *testing.T) {
	t.Setenv("PERSONA_ENV", "local")
	assert.True(t, IsDevelopment())
}

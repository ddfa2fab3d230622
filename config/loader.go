// SAGE - Secure Agent Guarantee Engine
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of SAGE.
//
// SAGE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SAGE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with SAGE. If not, see <https://www.gnu.org/licenses/>.


package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// LoaderOptions configures the configuration loader
type LoaderOptions struct {
	// ConfigDir is the directory containing config files (default: ./config)
	ConfigDir string
	// Environment overrides automatic environment detection
	Environment string
	// SkipEnvSubstitution disables environment variable substitution
	SkipEnvSubstitution bool
}

// DefaultLoaderOptions returns default loader options
func DefaultLoaderOptions() LoaderOptions {
	return LoaderOptions{
		ConfigDir:           "config",
		Environment:         "",
		SkipEnvSubstitution: false,
	}
}

// Load loads configuration with automatic environment detection, the
// ${VAR} substitution syntax, and finally the PERSONA_* environment
// variables enumerated in spec.md §6 (highest priority).
func Load(opts ...LoaderOptions) (*Config, error) {
	options := DefaultLoaderOptions()
	if len(opts) > 0 {
		options = opts[0]
	}

	// Determine environment
	env := options.Environment
	if env == "" {
		env = GetEnvironment()
	}

	// Try to load environment-specific config file
	envConfigPath := filepath.Join(options.ConfigDir, fmt.Sprintf("%s.yaml", env))
	cfg, err := loadConfigFile(envConfigPath)
	if err != nil {
		// Fall back to default config file
		defaultConfigPath := filepath.Join(options.ConfigDir, "default.yaml")
		cfg, err = loadConfigFile(defaultConfigPath)
		if err != nil {
			// Fall back to config.yaml
			configPath := filepath.Join(options.ConfigDir, "config.yaml")
			cfg, err = loadConfigFile(configPath)
			if err != nil {
				// Return empty config with defaults
				cfg = &Config{}
			}
		}
	}

	if cfg.Environment == "" {
		cfg.Environment = env
	}
	setDefaults(cfg)

	if !options.SkipEnvSubstitution {
		SubstituteEnvVarsInConfig(cfg)
	}

	applyEnvironmentOverrides(cfg)
	return cfg, nil
}

// loadConfigFile loads a single config file
func loadConfigFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	return LoadFromFile(path)
}

// applyEnvironmentOverrides applies the spec.md §6 PERSONA_* variables
// that address configuration-file-held settings (highest priority). The
// per-invocation agent/bridge variables (target host resolution, test key
// injection, policy knobs) are read directly at each cmd entrypoint, not
// here, per spec.md §9's "read at clearly defined boundaries" note.
func applyEnvironmentOverrides(cfg *Config) {
	if dbPath := os.Getenv("PERSONA_DB_PATH"); dbPath != "" && cfg.Vault != nil {
		cfg.Vault.DatabasePath = dbPath
	}

	if stateDir := os.Getenv("PERSONA_AGENT_STATE_DIR"); stateDir != "" && cfg.Agent != nil {
		cfg.Agent.StateDir = stateDir
	}
	if policyFile := os.Getenv("PERSONA_AGENT_POLICY_FILE"); policyFile != "" && cfg.Agent != nil {
		cfg.Agent.PolicyFile = policyFile
	}
	if knownHosts := os.Getenv("PERSONA_KNOWN_HOSTS_FILE"); knownHosts != "" && cfg.Agent != nil {
		cfg.Agent.KnownHostsFile = knownHosts
	}

	if stateDir := os.Getenv("PERSONA_BRIDGE_STATE_DIR"); stateDir != "" && cfg.Bridge != nil {
		cfg.Bridge.StateDir = stateDir
	}
	if v := os.Getenv("PERSONA_BRIDGE_REQUIRE_PAIRING"); v != "" && cfg.Bridge != nil {
		cfg.Bridge.RequirePairing = isTruthy(v)
	}
	if v := os.Getenv("PERSONA_BRIDGE_REQUIRE_GESTURE"); v != "" && cfg.Bridge != nil {
		cfg.Bridge.RequireGesture = isTruthy(v)
	}
	if v := os.Getenv("PERSONA_BRIDGE_AUTH_MAX_SKEW_MS"); v != "" && cfg.Bridge != nil {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Bridge.AuthMaxSkewMs = ms
		}
	}

	if logLevel := os.Getenv("PERSONA_LOG_LEVEL"); logLevel != "" && cfg.Logging != nil {
		cfg.Logging.Level = logLevel
	}
	if logFormat := os.Getenv("PERSONA_LOG_FORMAT"); logFormat != "" && cfg.Logging != nil {
		cfg.Logging.Format = logFormat
	}
}

// isTruthy matches spec.md §6's "1/true enables" convention.
func isTruthy(v string) bool {
	return v == "1" || v == "true" || v == "TRUE" || v == "True"
}

// LoadForEnvironment loads configuration for a specific environment
func LoadForEnvironment(environment string) (*Config, error) {
	return Load(LoaderOptions{
		ConfigDir:   "config",
		Environment: environment,
	})
}

// MustLoad loads configuration or panics on error
func MustLoad(opts ...LoaderOptions) *Config {
	cfg, err := Load(opts...)
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}
	return cfg
}

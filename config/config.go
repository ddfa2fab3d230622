// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultHomeDir returns the directory under which Persona's default paths
// are rooted, falling back to "." if the OS can't resolve a home directory.
func defaultHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".persona")
}

// LoadFromFile loads configuration from a file, trying YAML then JSON.
func LoadFromFile(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file (tried YAML and JSON): %w", err)
		}
	}

	setDefaults(cfg)
	return cfg, nil
}

// SaveToFile saves configuration to a file, choosing the format by
// extension (".json" vs anything else, which is written as YAML).
func SaveToFile(cfg *Config, path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setDefaults fills in the values a fresh installation needs, matching
// spec.md §6's default paths and §4.1/§4.3's illustrative defaults.
func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	home := defaultHomeDir()

	if cfg.Vault == nil {
		cfg.Vault = &VaultConfig{}
	}
	if cfg.Vault.DatabasePath == "" {
		cfg.Vault.DatabasePath = filepath.Join(home, "identities.db")
	}
	if cfg.Vault.BlobRoot == "" {
		cfg.Vault.BlobRoot = filepath.Join(home, "blobs")
	}
	if cfg.Vault.ChunkSize == 0 {
		cfg.Vault.ChunkSize = 1 << 20
	}

	if cfg.Agent == nil {
		cfg.Agent = &AgentConfig{}
	}
	if cfg.Agent.SocketPath == "" {
		cfg.Agent.SocketPath = filepath.Join(home, "ssh-agent.sock")
	}
	if cfg.Agent.StateDir == "" {
		cfg.Agent.StateDir = home
	}
	if cfg.Agent.PolicyFile == "" {
		cfg.Agent.PolicyFile = filepath.Join(home, "policy.yaml")
	}
	if cfg.Agent.KnownHostsFile == "" {
		if rawHome, err := os.UserHomeDir(); err == nil && rawHome != "" {
			cfg.Agent.KnownHostsFile = filepath.Join(rawHome, ".ssh", "known_hosts")
		}
	}

	if cfg.Bridge == nil {
		cfg.Bridge = &BridgeConfig{}
	}
	if cfg.Bridge.StateDir == "" {
		cfg.Bridge.StateDir = filepath.Join(home, "bridge")
	}
	if cfg.Bridge.AuthMaxSkewMs == 0 {
		cfg.Bridge.AuthMaxSkewMs = int64(5 * time.Minute / time.Millisecond)
	}

	if cfg.AutoLock == nil {
		cfg.AutoLock = &AutoLockConfig{}
	}
	if cfg.AutoLock.InactivityTimeout == 0 {
		cfg.AutoLock.InactivityTimeout = 15 * time.Minute
	}
	if cfg.AutoLock.AbsoluteTimeout == 0 {
		cfg.AutoLock.AbsoluteTimeout = 12 * time.Hour
	}
	if cfg.AutoLock.MaxConcurrentSessions == 0 {
		cfg.AutoLock.MaxConcurrentSessions = 3
	}

	if cfg.Auth == nil {
		cfg.Auth = &AuthConfig{}
	}
	if cfg.Auth.FailureThreshold == 0 {
		cfg.Auth.FailureThreshold = 5
	}
	if cfg.Auth.LockoutDuration == 0 {
		cfg.Auth.LockoutDuration = 15 * time.Minute
	}

	if cfg.Logging == nil {
		cfg.Logging = &LoggingConfig{}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

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

// Package config provides configuration management for Persona.
package config

import "time"

// Config is the top-level configuration document for every Persona binary
// (vault, agent, bridge). Each section is optional; setDefaults fills in
// the values a fresh installation needs.
type Config struct {
	Environment string          `yaml:"environment" json:"environment"`
	Vault       *VaultConfig    `yaml:"vault" json:"vault"`
	Agent       *AgentConfig    `yaml:"agent" json:"agent"`
	Bridge      *BridgeConfig   `yaml:"bridge" json:"bridge"`
	AutoLock    *AutoLockConfig `yaml:"auto_lock" json:"auto_lock"`
	Auth        *AuthConfig     `yaml:"auth" json:"auth"`
	Logging     *LoggingConfig  `yaml:"logging" json:"logging"`
}

// VaultConfig locates the embedded database and blob storage root.
type VaultConfig struct {
	DatabasePath string `yaml:"database_path" json:"database_path"`
	BlobRoot     string `yaml:"blob_root" json:"blob_root"`
	ChunkSize    int    `yaml:"chunk_size" json:"chunk_size"`
}

// AgentConfig configures the SSH agent's socket, state directory, and
// policy/known_hosts file locations.
type AgentConfig struct {
	SocketPath     string `yaml:"socket_path" json:"socket_path"`
	StateDir       string `yaml:"state_dir" json:"state_dir"`
	PolicyFile     string `yaml:"policy_file" json:"policy_file"`
	KnownHostsFile string `yaml:"known_hosts_file" json:"known_hosts_file"`
}

// BridgeConfig configures the native-messaging bridge's persisted state
// and authentication defaults.
type BridgeConfig struct {
	StateDir       string `yaml:"state_dir" json:"state_dir"`
	RequirePairing bool   `yaml:"require_pairing" json:"require_pairing"`
	RequireGesture bool   `yaml:"require_gesture" json:"require_gesture"`
	AuthMaxSkewMs  int64  `yaml:"auth_max_skew_ms" json:"auth_max_skew_ms"`
}

// AutoLockConfig mirrors internal/autolock.Policy's fields that are
// meaningful as installation-wide defaults.
type AutoLockConfig struct {
	InactivityTimeout     time.Duration `yaml:"inactivity_timeout" json:"inactivity_timeout"`
	AbsoluteTimeout       time.Duration `yaml:"absolute_timeout" json:"absolute_timeout"`
	MaxConcurrentSessions int           `yaml:"max_concurrent_sessions" json:"max_concurrent_sessions"`
}

// AuthConfig mirrors internal/auth.Config's lockout parameters.
type AuthConfig struct {
	FailureThreshold int           `yaml:"failure_threshold" json:"failure_threshold"`
	LockoutDuration  time.Duration `yaml:"lockout_duration" json:"lockout_duration"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

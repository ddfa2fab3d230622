// Package policy implements the signing policy enforcer used by the SSH agent
// (spec.md §4.5); the native-messaging bridge does not consult it. Global,
// per-key, and per-host rules are evaluated in a fixed decision order against
// rolling-window usage counters.
package policy

// Decision is the outcome of Enforcer.Check.
type Decision string

const (
	Allowed          Decision = "Allowed"
	Denied           Decision = "Denied"
	RequireConfirm   Decision = "RequireConfirm"
	RequireBiometric Decision = "RequireBiometric"
)

// GlobalPolicy is the top-level policy record.
type GlobalPolicy struct {
	RequireConfirm       bool  `yaml:"require_confirm"`
	MinIntervalMs        int64 `yaml:"min_interval_ms"`
	EnforceKnownHosts    bool  `yaml:"enforce_known_hosts"`
	ConfirmOnUnknownHost bool  `yaml:"confirm_on_unknown_host"`
	MaxSignaturesPerHour int   `yaml:"max_signatures_per_hour"`
	DenyAll              bool  `yaml:"deny_all"`
}

// KeyPolicy governs one credential_id's per-key rules.
type KeyPolicy struct {
	Enabled          bool     `yaml:"enabled"`
	AllowedHosts     []string `yaml:"allowed_hosts"`
	DeniedHosts      []string `yaml:"denied_hosts"`
	RequireConfirm   bool     `yaml:"require_confirm"`
	RequireBiometric bool     `yaml:"require_biometric"`
	MaxUsesPerDay    int      `yaml:"max_uses_per_day"`
	AllowedTimeRange string   `yaml:"allowed_time_range,omitempty"`
}

// HostPolicy governs one hostname/glob pattern's per-host rules.
type HostPolicy struct {
	Enabled               bool     `yaml:"enabled"`
	AllowedKeys           []string `yaml:"allowed_keys"`
	RequireConfirm        bool     `yaml:"require_confirm"`
	MaxConnectionsPerHour int      `yaml:"max_connections_per_hour"`
}

// File is the on-disk policy document shape from spec.md §6.
type File struct {
	Global       GlobalPolicy          `yaml:"global"`
	KeyPolicies  map[string]KeyPolicy  `yaml:"key_policies"`
	HostPolicies map[string]HostPolicy `yaml:"host_policies"`
}

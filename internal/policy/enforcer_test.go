package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCheckDeniesGlobalDenyAll(t *testing.T) {
	e := New(File{Global: GlobalPolicy{DenyAll: true}})
	assert.Equal(t, Denied, e.Check("cred-1", "host", time.Now()))
}

func TestCheckDeniesMinInterval(t *testing.T) {
	e := New(File{Global: GlobalPolicy{MinIntervalMs: 1000}})
	now := time.Now()
	e.Record("cred-1", "host", now)
	assert.Equal(t, Denied, e.Check("cred-1", "host", now.Add(500*time.Millisecond)))
	assert.Equal(t, Allowed, e.Check("cred-1", "host", now.Add(2*time.Second)))
}

func TestCheckDeniesGlobalHourlyCap(t *testing.T) {
	e := New(File{Global: GlobalPolicy{MaxSignaturesPerHour: 2}})
	now := time.Now()
	e.Record("cred-1", "host", now)
	e.Record("cred-1", "host", now.Add(time.Second))
	assert.Equal(t, Denied, e.Check("cred-1", "host", now.Add(2*time.Second)))
}

func TestCheckKeyPolicyDeniedHost(t *testing.T) {
	e := New(File{KeyPolicies: map[string]KeyPolicy{
		"cred-1": {Enabled: true, DeniedHosts: []string{"*.evil.com"}},
	}})
	assert.Equal(t, Denied, e.Check("cred-1", "sub.evil.com", time.Now()))
}

func TestCheckKeyPolicyAllowedHostsRestricts(t *testing.T) {
	e := New(File{KeyPolicies: map[string]KeyPolicy{
		"cred-1": {Enabled: true, AllowedHosts: []string{"good.com"}},
	}})
	assert.Equal(t, Denied, e.Check("cred-1", "other.com", time.Now()))
	assert.Equal(t, Allowed, e.Check("cred-1", "good.com", time.Now()))
}

func TestCheckKeyPolicyDailyCap(t *testing.T) {
	e := New(File{KeyPolicies: map[string]KeyPolicy{
		"cred-1": {Enabled: true, MaxUsesPerDay: 1},
	}})
	now := time.Now()
	e.Record("cred-1", "", now)
	assert.Equal(t, Denied, e.Check("cred-1", "", now.Add(time.Minute)))
	assert.Equal(t, Allowed, e.Check("cred-1", "", now.Add(25*time.Hour)))
}

func TestCheckKeyPolicyTimeRange(t *testing.T) {
	e := New(File{KeyPolicies: map[string]KeyPolicy{
		"cred-1": {Enabled: true, AllowedTimeRange: "09:00-17:00"},
	}})
	morning := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	night := time.Date(2026, 1, 1, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, Allowed, e.Check("cred-1", "", morning))
	assert.Equal(t, Denied, e.Check("cred-1", "", night))
}

func TestCheckKeyPolicyOvernightTimeRangeWraps(t *testing.T) {
	e := New(File{KeyPolicies: map[string]KeyPolicy{
		"cred-1": {Enabled: true, AllowedTimeRange: "22:00-06:00"},
	}})
	lateNight := time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC)
	midday := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, Allowed, e.Check("cred-1", "", lateNight))
	assert.Equal(t, Denied, e.Check("cred-1", "", midday))
}

func TestCheckHostPolicyRequiresConfirm(t *testing.T) {
	e := New(File{HostPolicies: map[string]HostPolicy{
		"*.example.com": {Enabled: true, RequireConfirm: true},
	}})
	assert.Equal(t, RequireConfirm, e.Check("cred-1", "api.example.com", time.Now()))
}

func TestCheckKeyPolicyRequireBiometric(t *testing.T) {
	e := New(File{KeyPolicies: map[string]KeyPolicy{
		"cred-1": {Enabled: true, RequireBiometric: true},
	}})
	assert.Equal(t, RequireBiometric, e.Check("cred-1", "", time.Now()))
}

func TestCheckEnforceKnownHostsConfirmsUnknown(t *testing.T) {
	e := New(File{Global: GlobalPolicy{EnforceKnownHosts: true, ConfirmOnUnknownHost: true}})
	assert.Equal(t, RequireConfirm, e.Check("cred-1", "unknown.example.com", time.Now()))
}

func TestCheckEnforceKnownHostsDeniesUnknownWithoutConfirm(t *testing.T) {
	e := New(File{Global: GlobalPolicy{EnforceKnownHosts: true}})
	assert.Equal(t, Denied, e.Check("cred-1", "unknown.example.com", time.Now()))
}

func TestCheckEnforceKnownHostsAllowsKnown(t *testing.T) {
	e := New(File{Global: GlobalPolicy{EnforceKnownHosts: true}})
	e.SetKnownHostsChecker(func(h string) bool { return h == "known.example.com" })
	assert.Equal(t, Allowed, e.Check("cred-1", "known.example.com", time.Now()))
}

func TestCheckDisabledKeyPolicyDenies(t *testing.T) {
	e := New(File{KeyPolicies: map[string]KeyPolicy{
		"cred-1": {Enabled: false},
	}})
	assert.Equal(t, Denied, e.Check("cred-1", "", time.Now()))
}

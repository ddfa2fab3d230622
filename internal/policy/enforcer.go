package policy

import (
	"errors"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

var errMalformedRange = errors.New("policy: malformed allowed_time_range")

// counters tracks the rolling-window usage state for one Enforcer.
type counters struct {
	globalSignTimes []time.Time
	lastSignAt      time.Time

	keyDailyCount map[string]int
	keyDayStart   map[string]time.Time

	hostHourlyCount map[string]int
	hostHourStart   map[string]time.Time
}

// Enforcer evaluates signing requests against a loaded policy File. Per
// spec.md §9's lock-discipline note, the mutex is held only across the
// decision/bookkeeping computation, never across I/O, signing, or a
// user-facing confirmation prompt: callers call Check, perform the gated
// operation, then call Record.
type Enforcer struct {
	mu        sync.Mutex
	file      File
	counts    counters
	knownHost func(hostname string) bool
}

// New constructs an Enforcer over a loaded policy file.
func New(f File) *Enforcer {
	return &Enforcer{
		file: f,
		counts: counters{
			keyDailyCount:   make(map[string]int),
			keyDayStart:     make(map[string]time.Time),
			hostHourlyCount: make(map[string]int),
			hostHourStart:   make(map[string]time.Time),
		},
	}
}

// SetKnownHostsChecker installs the host-known predicate consulted when
// global.enforce_known_hosts is set. A nil checker (the default) treats
// every host as unknown.
func (e *Enforcer) SetKnownHostsChecker(fn func(hostname string) bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.knownHost = fn
}

// Check evaluates the decision order from spec.md §4.5 for an optional
// credentialID and hostname, without mutating any counters.
func (e *Enforcer) Check(credentialID, hostname string, now time.Time) Decision {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.checkLocked(credentialID, hostname, now)
}

func (e *Enforcer) checkLocked(credentialID, hostname string, now time.Time) Decision {
	g := e.file.Global

	// 1. Global deny_all.
	if g.DenyAll {
		return Denied
	}

	// 2. Global minimum inter-signature interval.
	if g.MinIntervalMs > 0 && !e.counts.lastSignAt.IsZero() {
		if now.Sub(e.counts.lastSignAt) < time.Duration(g.MinIntervalMs)*time.Millisecond {
			return Denied
		}
	}

	// 3. Global hourly cap.
	if g.MaxSignaturesPerHour > 0 {
		pruned := pruneOlderThan(e.counts.globalSignTimes, now, time.Hour)
		e.counts.globalSignTimes = pruned
		if len(pruned) >= g.MaxSignaturesPerHour {
			return Denied
		}
	}

	requireConfirm := g.RequireConfirm
	requireBiometric := false

	// 4. Per-key policy.
	if kp, ok := e.file.KeyPolicies[credentialID]; ok {
		if !kp.Enabled {
			return Denied
		}
		if hostname != "" && matchesAny(kp.DeniedHosts, hostname) {
			return Denied
		}
		if hostname != "" && len(kp.AllowedHosts) > 0 && !matchesAny(kp.AllowedHosts, hostname) {
			return Denied
		}
		if kp.MaxUsesPerDay > 0 {
			count, start := e.counts.keyDailyCount[credentialID], e.counts.keyDayStart[credentialID]
			if start.IsZero() || now.Sub(start) >= 24*time.Hour {
				count, start = 0, now
			}
			if count >= kp.MaxUsesPerDay {
				return Denied
			}
		}
		if kp.AllowedTimeRange != "" {
			ok, err := withinTimeRange(kp.AllowedTimeRange, now)
			if err != nil || !ok {
				return Denied
			}
		}
		if kp.RequireConfirm {
			requireConfirm = true
		}
		requireBiometric = kp.RequireBiometric
	}

	// Known-hosts lookup (spec.md §9 design note): with EnforceKnownHosts on,
	// an unknown host yields RequireConfirm when ConfirmOnUnknownHost is set
	// and Denied otherwise.
	if g.EnforceKnownHosts && hostname != "" {
		known := e.knownHost != nil && e.knownHost(hostname)
		if !known && g.ConfirmOnUnknownHost {
			requireConfirm = true
		} else if !known {
			return Denied
		}
	}

	// 5. Per-host policy.
	if hostname != "" {
		if hp, ok := e.lookupHostPolicy(hostname); ok {
			if !hp.Enabled {
				return Denied
			}
			if len(hp.AllowedKeys) > 0 && !contains(hp.AllowedKeys, credentialID) {
				return Denied
			}
			if hp.MaxConnectionsPerHour > 0 {
				count, start := e.counts.hostHourlyCount[hostname], e.counts.hostHourStart[hostname]
				if start.IsZero() || now.Sub(start) >= time.Hour {
					count, start = 0, now
				}
				if count >= hp.MaxConnectionsPerHour {
					return Denied
				}
			}
			if hp.RequireConfirm {
				requireConfirm = true
			}
		}
	}

	// 6 & 7.
	if requireBiometric {
		return RequireBiometric
	}
	if requireConfirm {
		return RequireConfirm
	}
	return Allowed
}

// Record is called after a signing decision has been honored, to advance the
// rolling-window counters. It briefly reacquires the lock rather than being
// called while the lock from Check is held.
func (e *Enforcer) Record(credentialID, hostname string, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.counts.lastSignAt = now
	e.counts.globalSignTimes = append(pruneOlderThan(e.counts.globalSignTimes, now, time.Hour), now)

	if credentialID != "" {
		start, ok := e.counts.keyDayStart[credentialID]
		if !ok || now.Sub(start) >= 24*time.Hour {
			e.counts.keyDayStart[credentialID] = now
			e.counts.keyDailyCount[credentialID] = 0
		}
		e.counts.keyDailyCount[credentialID]++
	}

	if hostname != "" {
		start, ok := e.counts.hostHourStart[hostname]
		if !ok || now.Sub(start) >= time.Hour {
			e.counts.hostHourStart[hostname] = now
			e.counts.hostHourlyCount[hostname] = 0
		}
		e.counts.hostHourlyCount[hostname]++
	}
}

// lookupHostPolicy implements spec.md §4.5 step 5: exact name match, else the
// first glob match in a deterministic (lexically sorted pattern) order, so
// two overlapping glob patterns in a policy file always resolve the same way
// regardless of map iteration order.
func (e *Enforcer) lookupHostPolicy(hostname string) (HostPolicy, bool) {
	if hp, ok := e.file.HostPolicies[hostname]; ok {
		return hp, true
	}
	patterns := make([]string, 0, len(e.file.HostPolicies))
	for pattern := range e.file.HostPolicies {
		patterns = append(patterns, pattern)
	}
	sort.Strings(patterns)
	for _, pattern := range patterns {
		if matched, _ := path.Match(pattern, hostname); matched {
			return e.file.HostPolicies[pattern], true
		}
	}
	return HostPolicy{}, false
}

func matchesAny(patterns []string, hostname string) bool {
	for _, p := range patterns {
		if p == hostname {
			return true
		}
		if matched, _ := path.Match(p, hostname); matched {
			return true
		}
	}
	return false
}

func contains(items []string, target string) bool {
	for _, i := range items {
		if i == target {
			return true
		}
	}
	return false
}

func pruneOlderThan(times []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// withinTimeRange parses an "HH:MM-HH:MM" range (overnight ranges wrap) and
// reports whether now's time-of-day falls inside it. Malformed ranges are
// already rejected at load time (LoadFile), so this only returns an error as
// a defensive guard for callers constructing a File programmatically.
func withinTimeRange(rangeStr string, now time.Time) (bool, error) {
	if !timeRangePattern.MatchString(rangeStr) {
		return false, errMalformedRange
	}
	parts := strings.SplitN(rangeStr, "-", 2)
	startMin, err := minutesOfDay(parts[0])
	if err != nil {
		return false, err
	}
	endMin, err := minutesOfDay(parts[1])
	if err != nil {
		return false, err
	}
	nowMin := now.Hour()*60 + now.Minute()

	if startMin <= endMin {
		return nowMin >= startMin && nowMin < endMin, nil
	}
	// overnight wrap, e.g. 22:00-06:00
	return nowMin >= startMin || nowMin < endMin, nil
}

func minutesOfDay(hhmm string) (int, error) {
	parts := strings.SplitN(hhmm, ":", 2)
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	return h*60 + m, nil
}

// Package autolock implements the session lifecycle and auto-lock engine
// from spec.md §4.3: the auto-lock engine is the single source of truth for
// whether a session is still valid.
package autolock

import (
	"sync"
	"time"

	"github.com/persona-vault/persona/internal/perrors"
	"github.com/persona-vault/persona/internal/store"
)

// Policy is the subset of store.AutoLockPolicy the engine evaluates against.
type Policy struct {
	InactivityTimeout         time.Duration
	AbsoluteTimeout           time.Duration
	SensitiveOperationTimeout time.Duration
	MaxConcurrentSessions     int
	EnableWarnings            bool
	WarningTime               time.Duration
	ForceLockSensitive        bool
	RequireReauthSensitive    bool
	ActivityGracePeriod       time.Duration
}

// PolicyFromStore converts a persisted AutoLockPolicy row into the engine's
// duration-typed Policy.
func PolicyFromStore(p *store.AutoLockPolicy) Policy {
	return Policy{
		InactivityTimeout:         time.Duration(p.InactivityTimeoutSecs) * time.Second,
		AbsoluteTimeout:           time.Duration(p.AbsoluteTimeoutSecs) * time.Second,
		SensitiveOperationTimeout: time.Duration(p.SensitiveOperationTimeoutSecs) * time.Second,
		MaxConcurrentSessions:     p.MaxConcurrentSessions,
		EnableWarnings:            p.EnableWarnings,
		WarningTime:               time.Duration(p.WarningTimeSecs) * time.Second,
		ForceLockSensitive:        p.ForceLockSensitive,
		RequireReauthSensitive:    true,
		ActivityGracePeriod:       time.Duration(p.ActivityGracePeriodSecs) * time.Second,
	}
}

type trackedSession struct {
	userID                string
	createdAt             time.Time
	lastActivity          time.Time
	lastSensitiveActivity time.Time
	expiresAt             time.Time
	locked                bool
	warningSent           bool
	reauthRequired        bool
	policy                Policy
}

// Manager tracks sessions and evaluates auto-lock rules against a tick
// interval, mirroring the teacher's session.Manager cleanup-ticker shape
// generalized to lock-in-place instead of evict-from-map.
type Manager struct {
	mu           sync.Mutex
	sessions     map[string]*trackedSession
	listeners    []Listener
	tickInterval time.Duration
	ticker       *time.Ticker
	stop         chan struct{}
	stopped      bool

	eventMu      sync.Mutex
	eventCond    *sync.Cond
	eventQueue   []AutoLockEvent
	eventClosing bool
	eventsDone   chan struct{}
}

// DefaultTickInterval is the background evaluation cadence from spec.md §4.3.
const DefaultTickInterval = 30 * time.Second

// NewManager constructs a Manager and starts its background tick loop.
// Callers MUST call Stop when finished; the returned Manager has no garbage
// collector finalizer (Go has no weak references), so Stop is the explicit
// lifecycle boundary.
func NewManager(tickInterval time.Duration) *Manager {
	if tickInterval <= 0 {
		tickInterval = DefaultTickInterval
	}
	m := &Manager{
		sessions:     make(map[string]*trackedSession),
		tickInterval: tickInterval,
		stop:         make(chan struct{}),
		eventsDone:   make(chan struct{}),
	}
	m.eventCond = sync.NewCond(&m.eventMu)
	m.ticker = time.NewTicker(tickInterval)
	go m.run()
	go m.deliverEvents()
	return m
}

// Listen registers a fire-and-forget event listener.
func (m *Manager) Listen(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// AddSession begins tracking a freshly authenticated session. Rejects with
// ConcurrencyLimitExceeded (via perrors.RateLimited) when the user already
// has >= policy.MaxConcurrentSessions valid sessions.
func (m *Manager) AddSession(sessionID, userID string, now time.Time, policy Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if policy.MaxConcurrentSessions > 0 {
		active := 0
		for _, s := range m.sessions {
			if s.userID == userID && m.isValidLocked(s, now) {
				active++
			}
		}
		if active >= policy.MaxConcurrentSessions {
			return &perrors.RateLimited{Reason: "ConcurrencyLimitExceeded"}
		}
	}

	m.sessions[sessionID] = &trackedSession{
		userID:                userID,
		createdAt:             now,
		lastActivity:          now,
		lastSensitiveActivity: now,
		expiresAt:             now.Add(policy.AbsoluteTimeout),
		policy:                policy,
	}
	return nil
}

// RemoveSession stops tracking a session (e.g. explicit logout/expiry reap).
func (m *Manager) RemoveSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// IsSessionValid evaluates the spec.md §4.3 validity rules for sessionID
// as of now, emitting LockPending/Locked events as a side effect.
func (m *Manager) IsSessionValid(sessionID string, now time.Time) (bool, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return false, &perrors.NotFound{Entity: "session", ID: sessionID}
	}
	valid := m.evaluateLocked(sessionID, s, now)
	m.mu.Unlock()
	return valid, nil
}

func (m *Manager) isValidLocked(s *trackedSession, now time.Time) bool {
	if s.locked {
		return false
	}
	if !now.Before(s.expiresAt) {
		return false
	}
	if s.policy.InactivityTimeout > 0 && now.Sub(s.lastActivity) >= s.policy.InactivityTimeout {
		return false
	}
	return true
}

// evaluateLocked runs the ordered evaluation from spec.md §4.3 steps 1-4 and
// emits events; caller holds m.mu.
func (m *Manager) evaluateLocked(sessionID string, s *trackedSession, now time.Time) bool {
	if s.locked {
		return false
	}
	if !now.Before(s.expiresAt) {
		s.locked = true
		m.emit(AutoLockEvent{Kind: EventLocked, SessionID: sessionID, Reason: ReasonAbsoluteTimeout})
		return false
	}
	if s.policy.InactivityTimeout > 0 && now.Sub(s.lastActivity) >= s.policy.InactivityTimeout {
		s.locked = true
		m.emit(AutoLockEvent{Kind: EventLocked, SessionID: sessionID, Reason: ReasonInactivity})
		return false
	}
	if s.policy.EnableWarnings && s.policy.WarningTime > 0 && !s.warningSent {
		remaining := s.policy.InactivityTimeout - now.Sub(s.lastActivity)
		if remaining <= s.policy.WarningTime {
			s.warningSent = true
			m.emit(AutoLockEvent{Kind: EventLockPending, SessionID: sessionID, SecondsRemaining: int64(remaining.Seconds())})
		}
	}
	return true
}

// UpdateActivity bumps last_activity (subject to ActivityGracePeriod
// coalescing) and clears warning_sent.
func (m *Manager) UpdateActivity(sessionID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return &perrors.NotFound{Entity: "session", ID: sessionID}
	}
	if s.policy.ActivityGracePeriod > 0 && now.Sub(s.lastActivity) < s.policy.ActivityGracePeriod {
		return nil
	}
	s.lastActivity = now
	s.warningSent = false
	m.emit(AutoLockEvent{Kind: EventActivity, SessionID: sessionID})
	return nil
}

// UpdateSensitiveActivity bumps last_sensitive_activity in addition to
// last_activity, and enforces the force_lock_sensitive pre-check: if a
// sensitive-timeout violation is already in effect, the session is locked
// immediately rather than merely flagged for re-auth.
func (m *Manager) UpdateSensitiveActivity(sessionID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return &perrors.NotFound{Entity: "session", ID: sessionID}
	}
	if s.policy.RequireReauthSensitive && s.policy.SensitiveOperationTimeout > 0 &&
		now.Sub(s.lastSensitiveActivity) >= s.policy.SensitiveOperationTimeout {
		if s.policy.ForceLockSensitive {
			s.locked = true
			m.emit(AutoLockEvent{Kind: EventLocked, SessionID: sessionID, Reason: ReasonSecurityViolation})
			return &perrors.AuthenticationFailed{Reason: "session_expired"}
		}
		s.reauthRequired = true
		return &perrors.AuthenticationFailed{Reason: "reauth_required"}
	}
	s.lastActivity = now
	s.lastSensitiveActivity = now
	s.warningSent = false
	s.reauthRequired = false
	m.emit(AutoLockEvent{Kind: EventActivity, SessionID: sessionID})
	return nil
}

// Lock transitions a session to locked, e.g. for a manual lock request or a
// policy-enforced violation.
func (m *Manager) Lock(sessionID string, reason LockReason) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return &perrors.NotFound{Entity: "session", ID: sessionID}
	}
	s.locked = true
	m.emit(AutoLockEvent{Kind: EventLocked, SessionID: sessionID, Reason: reason})
	return nil
}

// Unlock transitions Locked back to Active. Callers MUST have already
// re-verified credentials (via internal/auth) before calling this.
func (m *Manager) Unlock(sessionID string, now time.Time, policy Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return &perrors.NotFound{Entity: "session", ID: sessionID}
	}
	s.locked = false
	s.warningSent = false
	s.reauthRequired = false
	s.lastActivity = now
	s.lastSensitiveActivity = now
	s.expiresAt = now.Add(policy.AbsoluteTimeout)
	m.emit(AutoLockEvent{Kind: EventUnlocked, SessionID: sessionID})
	return nil
}

func (m *Manager) run() {
	for {
		select {
		case <-m.ticker.C:
			m.tick()
		case <-m.stop:
			return
		}
	}
}

func (m *Manager) tick() {
	now := time.Now()
	m.mu.Lock()
	for id, s := range m.sessions {
		m.evaluateLocked(id, s, now)
	}
	m.mu.Unlock()
}

// emit enqueues an event for delivery on deliverEvents' single goroutine,
// fulfilling spec.md §4.3's non-blocking delivery requirement without
// reordering two events for the same session. Caller holds m.mu; listeners
// must not re-enter the Manager synchronously from within the callback.
func (m *Manager) emit(ev AutoLockEvent) {
	m.eventMu.Lock()
	m.eventQueue = append(m.eventQueue, ev)
	m.eventCond.Signal()
	m.eventMu.Unlock()
}

// deliverEvents runs for the Manager's lifetime on its own goroutine,
// delivering queued events to listeners strictly in emit order — so two
// events emitted for one session are never reordered by goroutine
// scheduling. Listener callbacks run synchronously here; a listener that
// wants to do slow or async work must spawn its own goroutine.
func (m *Manager) deliverEvents() {
	for {
		m.eventMu.Lock()
		for len(m.eventQueue) == 0 && !m.eventClosing {
			m.eventCond.Wait()
		}
		if len(m.eventQueue) == 0 {
			m.eventMu.Unlock()
			close(m.eventsDone)
			return
		}
		ev := m.eventQueue[0]
		m.eventQueue = m.eventQueue[1:]
		m.eventMu.Unlock()

		m.mu.Lock()
		listeners := make([]Listener, len(m.listeners))
		copy(listeners, m.listeners)
		m.mu.Unlock()

		for _, l := range listeners {
			l(ev)
		}
	}
}

// Stop aborts the background tick loop, drains any queued events through
// deliverEvents, and returns once delivery has stopped. This is the
// explicit, Go-idiomatic equivalent of the weak-reference auto-lock monitor
// description in spec.md §4.3: Go has no finalizer-driven teardown, so
// callers must call Stop themselves when they own the Manager's lifecycle.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.ticker.Stop()
	close(m.stop)
	m.mu.Unlock()

	m.eventMu.Lock()
	m.eventClosing = true
	m.eventCond.Broadcast()
	m.eventMu.Unlock()
	<-m.eventsDone
}

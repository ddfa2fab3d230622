package autolock

// LockReason enumerates why a session transitioned to locked.
type LockReason string

const (
	ReasonInactivity        LockReason = "Inactivity"
	ReasonAbsoluteTimeout   LockReason = "AbsoluteTimeout"
	ReasonManual            LockReason = "Manual"
	ReasonSecurityViolation LockReason = "SecurityViolation"
	ReasonSystemShutdown    LockReason = "SystemShutdown"
)

// EventKind discriminates the AutoLockEvent variants from spec.md §4.3.
type EventKind string

const (
	EventLockPending EventKind = "LockPending"
	EventLocked      EventKind = "Locked"
	EventUnlocked    EventKind = "Unlocked"
	EventActivity    EventKind = "Activity"
)

// AutoLockEvent is delivered fire-and-forget to registered listeners.
// Delivery order within a single session is preserved; across sessions it is
// unordered.
type AutoLockEvent struct {
	Kind             EventKind
	SessionID        string
	SecondsRemaining int64
	Reason           LockReason
}

// Listener receives AutoLockEvents. The manager calls every listener
// synchronously, in emit order, on one delivery goroutine, so a listener that
// blocks delays every later event; Stop waits for that goroutine to drain.
type Listener func(AutoLockEvent)

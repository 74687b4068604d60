package services

import (
	"sync"

	"github.com/ersonp/realmforge/internal/domain/entities"
)

// SyncState is a point-in-time copy of the tracker's flags.
type SyncState struct {
	Loading bool
	// Error is the most recent failure message of any kind, or "".
	Error string
	// Errors holds the current failure message per kind.
	Errors map[entities.Kind]string
}

// SyncStateTracker holds the loading flag and error messages shared by all
// ContentRepository operations. The loading flag is advisory, not a lock.
type SyncStateTracker struct {
	mu        sync.RWMutex
	inFlight  int
	lastErr   string
	errs      map[entities.Kind]string
	listeners []func(SyncState)
}

// NewSyncStateTracker creates an idle tracker.
func NewSyncStateTracker() *SyncStateTracker {
	return &SyncStateTracker{
		errs: make(map[entities.Kind]string),
	}
}

// Begin marks an operation on kind as started and clears its previous error.
// The returned func must be deferred; it ends the operation exactly once.
func (t *SyncStateTracker) Begin(kind entities.Kind) (end func()) {
	t.mu.Lock()
	t.inFlight++
	t.lastErr = ""
	delete(t.errs, kind)
	t.mu.Unlock()
	t.notify()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			if t.inFlight > 0 {
				t.inFlight--
			}
			t.mu.Unlock()
			t.notify()
		})
	}
}

// Fail records msg as the failure of the current operation on kind.
func (t *SyncStateTracker) Fail(kind entities.Kind, msg string) {
	t.mu.Lock()
	t.lastErr = msg
	t.errs[kind] = msg
	t.mu.Unlock()
	t.notify()
}

// Loading reports whether any operation is in flight.
func (t *SyncStateTracker) Loading() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.inFlight > 0
}

// Err returns the failure message for kind, or "".
func (t *SyncStateTracker) Err(kind entities.Kind) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.errs[kind]
}

// LastError returns the most recent failure message, or "".
func (t *SyncStateTracker) LastError() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastErr
}

// Snapshot returns a copy of the current state.
func (t *SyncStateTracker) Snapshot() SyncState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

// OnChange registers fn to run after every state change.
// Listeners run synchronously on the goroutine that changed the state.
func (t *SyncStateTracker) OnChange(fn func(SyncState)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, fn)
}

func (t *SyncStateTracker) snapshotLocked() SyncState {
	errs := make(map[entities.Kind]string, len(t.errs))
	for k, v := range t.errs {
		errs[k] = v
	}
	return SyncState{
		Loading: t.inFlight > 0,
		Error:   t.lastErr,
		Errors:  errs,
	}
}

func (t *SyncStateTracker) notify() {
	t.mu.RLock()
	if len(t.listeners) == 0 {
		t.mu.RUnlock()
		return
	}
	state := t.snapshotLocked()
	listeners := make([]func(SyncState), len(t.listeners))
	copy(listeners, t.listeners)
	t.mu.RUnlock()

	for _, fn := range listeners {
		fn(state)
	}
}

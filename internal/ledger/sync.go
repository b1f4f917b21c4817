package ledger

import (
    "sync"

    "github.com/openhoops/court-reservation/internal/docstore"
)

// Synchronizer owns one live ledger subscription per court of current
// interest and funnels every snapshot into a single onChange callback.
// It replaces ad-hoc global listener maps: the component that needs live
// courts owns a Synchronizer and must call DetachAll exactly once at
// teardown so no subscription leaks.
type Synchronizer struct {
    ledger   *Ledger
    onChange func(Snapshot)

    mu      sync.Mutex
    handles map[string]docstore.UnsubscribeFunc
}

// NewSynchronizer returns a Synchronizer delivering snapshots to onChange.
// onChange must not call back into the Synchronizer.
func NewSynchronizer(l *Ledger, onChange func(Snapshot)) *Synchronizer {
    return &Synchronizer{
        ledger:   l,
        onChange: onChange,
        handles:  make(map[string]docstore.UnsubscribeFunc),
    }
}

// Attach subscribes to a court.  Attaching a court that is already
// attached is a no-op, so the number of live subscriptions never exceeds
// the number of distinct courts of interest.
func (s *Synchronizer) Attach(courtID string) {
    s.mu.Lock()
    if _, ok := s.handles[courtID]; ok {
        s.mu.Unlock()
        return
    }
    // Reserve the entry before subscribing so a concurrent Attach for the
    // same court no-ops, and a concurrent Detach can cancel us below.
    s.handles[courtID] = nil
    s.mu.Unlock()

    unsub := s.ledger.Subscribe(courtID, s.onChange)

    s.mu.Lock()
    if _, ok := s.handles[courtID]; !ok {
        // Detached while we were attaching; drop the fresh subscription.
        s.mu.Unlock()
        unsub()
        return
    }
    s.handles[courtID] = unsub
    s.mu.Unlock()
}

// Detach unsubscribes from a court.  Detaching a court that is not
// attached is a no-op.  The detachment is synchronous: once Detach
// returns, onChange will not fire again for this court.
func (s *Synchronizer) Detach(courtID string) {
    s.mu.Lock()
    unsub, ok := s.handles[courtID]
    delete(s.handles, courtID)
    s.mu.Unlock()
    if ok && unsub != nil {
        unsub()
    }
}

// DetachAll unsubscribes from every attached court and clears the
// registry.  Call it exactly once when the owning component tears down.
func (s *Synchronizer) DetachAll() {
    s.mu.Lock()
    handles := s.handles
    s.handles = make(map[string]docstore.UnsubscribeFunc)
    s.mu.Unlock()
    for _, unsub := range handles {
        if unsub != nil {
            unsub()
        }
    }
}

// Attached reports whether a live subscription exists for the court.
func (s *Synchronizer) Attached(courtID string) bool {
    s.mu.Lock()
    defer s.mu.Unlock()
    _, ok := s.handles[courtID]
    return ok
}

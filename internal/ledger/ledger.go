// Package ledger implements the per-court reservation ledger: a live view
// of every slot's participant set, signup/cancel mutations with optimistic
// local application, and the subscription plumbing that fans court changes
// out to observers.
package ledger

import (
    "context"
    "errors"
    "fmt"
    "sync"

    "github.com/openhoops/court-reservation/internal/docstore"
)

// courtsCollection is the document collection holding one document per
// court, whose "slots" field maps slot keys to participant id arrays.
const courtsCollection = "courts"

// ErrValidation is returned when a mutation is rejected before any remote
// call, e.g. an empty slot key or participant id.
var ErrValidation = errors.New("invalid input")

// ErrAlreadyReserved is returned when the participant is already present
// in the slot's set according to the local optimistic view.
var ErrAlreadyReserved = errors.New("already signed up for this slot")

// ErrNotReserved is returned when cancelling a slot the participant is not
// signed up for.
var ErrNotReserved = errors.New("not signed up for this slot")

// ErrWriteFailed is returned when the remote write fails for a reason
// other than unavailability.  The optimistic local change has been rolled
// back by the time this is returned.
var ErrWriteFailed = errors.New("write failed")

// Snapshot is the full current slot map of one court, delivered to
// subscribers on every change.  Latest wins; no gap or duplicate
// suppression is guaranteed.
type Snapshot struct {
    CourtID string              `json:"court_id"`
    Slots   map[string][]string `json:"slots"`
}

type observer struct {
    fn func(Snapshot)

    mu   sync.Mutex
    dead bool
}

func (o *observer) deliver(snap Snapshot) {
    o.mu.Lock()
    defer o.mu.Unlock()
    if o.dead {
        return
    }
    o.fn(snap)
}

// courtView is the ledger's local state for one court: the last confirmed
// remote slot map with optimistic mutations applied on top, plus the
// observers watching it.  The view outlives its observers so signup checks
// stay warm after a detail view closes.
type courtView struct {
    slots      map[string][]string
    observers  map[int]*observer
    nextID     int
    storeUnsub docstore.UnsubscribeFunc
    attaching  bool
    seeded     bool
}

// Ledger coordinates reservations for all courts against the document
// store.  One instance is shared process-wide; independent processes
// coordinate purely through the store's additive array merges.
type Ledger struct {
    store docstore.Store

    mu    sync.Mutex
    views map[string]*courtView
}

// New returns a Ledger backed by the given document store.
func New(store docstore.Store) *Ledger {
    return &Ledger{store: store, views: make(map[string]*courtView)}
}

// Subscribe registers an observer for one court.  The current snapshot is
// delivered immediately (empty when the court has never been touched),
// followed by a live stream of every local and remote change.  The
// returned function detaches the observer; after it returns no further
// delivery reaches fn, even for a change already in flight.
func (l *Ledger) Subscribe(courtID string, fn func(Snapshot)) docstore.UnsubscribeFunc {
    ob := &observer{fn: fn}

    l.mu.Lock()
    v := l.viewLocked(courtID)
    key := v.nextID
    v.nextID++
    v.observers[key] = ob
    attach := v.storeUnsub == nil && !v.attaching
    if attach {
        v.attaching = true
    }
    snap := snapshotLocked(courtID, v)
    l.mu.Unlock()

    ob.deliver(snap)

    if attach {
        unsub := l.store.Subscribe(courtsCollection, courtID, func(s docstore.Snapshot) {
            l.onRemote(courtID, s)
        })
        l.mu.Lock()
        v.storeUnsub = unsub
        v.attaching = false
        drop := len(v.observers) == 0
        if drop {
            v.storeUnsub = nil
        }
        l.mu.Unlock()
        if drop {
            unsub()
        }
    }

    return func() {
        ob.mu.Lock()
        ob.dead = true
        ob.mu.Unlock()

        l.mu.Lock()
        delete(v.observers, key)
        var unsub docstore.UnsubscribeFunc
        if len(v.observers) == 0 && v.storeUnsub != nil {
            unsub = v.storeUnsub
            v.storeUnsub = nil
        }
        l.mu.Unlock()
        if unsub != nil {
            unsub()
        }
    }
}

// Signup adds the participant to a slot's set.  The local view is updated
// optimistically before the remote write; on failure the addition is
// reverted and the error distinguishes docstore.ErrUnavailable from a
// generic ErrWriteFailed.  A participant already present in the local view
// is rejected with ErrAlreadyReserved before any remote call.
func (l *Ledger) Signup(ctx context.Context, courtID, slotKey, participantID string) error {
    if err := validate(courtID, slotKey, participantID); err != nil {
        return err
    }
    if err := l.ensureSeeded(ctx, courtID); err != nil {
        return err
    }

    l.mu.Lock()
    v := l.views[courtID]
    if containsID(v.slots[slotKey], participantID) {
        l.mu.Unlock()
        return ErrAlreadyReserved
    }
    compensate := addLocked(v, slotKey, participantID)
    snap, obs := changedLocked(courtID, v)
    l.mu.Unlock()
    notify(obs, snap)

    err := l.store.Update(ctx, courtsCollection, courtID,
        docstore.ArrayUnion("slots."+slotKey, participantID))
    if err == nil {
        return nil
    }

    l.mu.Lock()
    compensate()
    snap, obs = changedLocked(courtID, v)
    l.mu.Unlock()
    notify(obs, snap)

    if errors.Is(err, docstore.ErrUnavailable) {
        return err
    }
    return fmt.Errorf("%w: %v", ErrWriteFailed, err)
}

// Cancel removes the participant from a slot's set with the same
// optimistic-apply/rollback discipline as Signup.  A participant absent
// from the local view is rejected with ErrNotReserved.
func (l *Ledger) Cancel(ctx context.Context, courtID, slotKey, participantID string) error {
    if err := validate(courtID, slotKey, participantID); err != nil {
        return err
    }
    if err := l.ensureSeeded(ctx, courtID); err != nil {
        return err
    }

    l.mu.Lock()
    v := l.views[courtID]
    if !containsID(v.slots[slotKey], participantID) {
        l.mu.Unlock()
        return ErrNotReserved
    }
    compensate := removeLocked(v, slotKey, participantID)
    snap, obs := changedLocked(courtID, v)
    l.mu.Unlock()
    notify(obs, snap)

    err := l.store.Update(ctx, courtsCollection, courtID,
        docstore.ArrayRemove("slots."+slotKey, participantID))
    if err == nil {
        return nil
    }

    l.mu.Lock()
    compensate()
    snap, obs = changedLocked(courtID, v)
    l.mu.Unlock()
    notify(obs, snap)

    if errors.Is(err, docstore.ErrUnavailable) {
        return err
    }
    return fmt.Errorf("%w: %v", ErrWriteFailed, err)
}

// View returns a copy of the current local slot map for a court, seeding
// it from the store when the court has not been looked at yet.
func (l *Ledger) View(ctx context.Context, courtID string) (Snapshot, error) {
    if courtID == "" {
        return Snapshot{}, fmt.Errorf("%w: empty court id", ErrValidation)
    }
    if err := l.ensureSeeded(ctx, courtID); err != nil {
        return Snapshot{}, err
    }
    l.mu.Lock()
    defer l.mu.Unlock()
    return snapshotLocked(courtID, l.views[courtID]), nil
}

func validate(courtID, slotKey, participantID string) error {
    switch {
    case courtID == "":
        return fmt.Errorf("%w: empty court id", ErrValidation)
    case slotKey == "":
        return fmt.Errorf("%w: empty slot key", ErrValidation)
    case participantID == "":
        return fmt.Errorf("%w: empty participant id", ErrValidation)
    }
    return nil
}

// ensureSeeded makes sure a local view exists and has been primed from the
// store.  A court touched for the very first time is created with an
// empty slots map; the remote subscription (when one is live) keeps the
// view current afterwards.
func (l *Ledger) ensureSeeded(ctx context.Context, courtID string) error {
    l.mu.Lock()
    v := l.viewLocked(courtID)
    if v.seeded {
        l.mu.Unlock()
        return nil
    }
    l.mu.Unlock()

    doc, err := l.store.Get(ctx, courtsCollection, courtID)
    switch {
    case errors.Is(err, docstore.ErrNotFound):
        // First touch: initialize the document with an empty ledger.  A
        // merge write keeps metadata another writer may have raced in.
        if err := l.store.Set(ctx, courtsCollection, courtID, map[string]any{"slots": map[string]any{}}, true); err != nil {
            return err
        }
    case err != nil:
        return err
    }

    l.mu.Lock()
    v = l.viewLocked(courtID)
    if !v.seeded {
        v.slots = slotsFromDoc(doc.Data)
        v.seeded = true
    }
    l.mu.Unlock()
    return nil
}

func (l *Ledger) onRemote(courtID string, s docstore.Snapshot) {
    slots := slotsFromDoc(s.Doc.Data)

    l.mu.Lock()
    v, ok := l.views[courtID]
    if !ok {
        l.mu.Unlock()
        return
    }
    v.slots = slots
    v.seeded = true
    snap, obs := changedLocked(courtID, v)
    l.mu.Unlock()
    notify(obs, snap)
}

func (l *Ledger) viewLocked(courtID string) *courtView {
    v, ok := l.views[courtID]
    if !ok {
        v = &courtView{
            slots:     make(map[string][]string),
            observers: make(map[int]*observer),
        }
        l.views[courtID] = v
    }
    return v
}

// addLocked applies the optimistic addition and returns the compensating
// rollback.  Both run under l.mu.
func addLocked(v *courtView, slotKey, participantID string) func() {
    v.slots[slotKey] = append(v.slots[slotKey], participantID)
    return func() {
        v.slots[slotKey] = removeID(v.slots[slotKey], participantID)
    }
}

// removeLocked applies the optimistic removal and returns the compensating
// rollback.  Both run under l.mu.
func removeLocked(v *courtView, slotKey, participantID string) func() {
    v.slots[slotKey] = removeID(v.slots[slotKey], participantID)
    return func() {
        v.slots[slotKey] = append(v.slots[slotKey], participantID)
    }
}

func changedLocked(courtID string, v *courtView) (Snapshot, []*observer) {
    obs := make([]*observer, 0, len(v.observers))
    for _, o := range v.observers {
        obs = append(obs, o)
    }
    return snapshotLocked(courtID, v), obs
}

func notify(obs []*observer, snap Snapshot) {
    for _, o := range obs {
        o.deliver(snap)
    }
}

func snapshotLocked(courtID string, v *courtView) Snapshot {
    return Snapshot{CourtID: courtID, Slots: copySlots(v.slots)}
}

func copySlots(slots map[string][]string) map[string][]string {
    out := make(map[string][]string, len(slots))
    for k, ids := range slots {
        out[k] = append([]string(nil), ids...)
    }
    return out
}

func containsID(ids []string, id string) bool {
    for _, existing := range ids {
        if existing == id {
            return true
        }
    }
    return false
}

func removeID(ids []string, id string) []string {
    out := ids[:0]
    for _, existing := range ids {
        if existing != id {
            out = append(out, existing)
        }
    }
    return out
}

// slotsFromDoc extracts the slot map from a raw court document.  Unknown
// shapes degrade to an empty map rather than failing; the ledger only
// trusts string participant ids.
func slotsFromDoc(data map[string]any) map[string][]string {
    out := make(map[string][]string)
    raw, ok := data["slots"].(map[string]any)
    if !ok {
        return out
    }
    for key, v := range raw {
        var ids []string
        switch arr := v.(type) {
        case []any:
            for _, item := range arr {
                if s, ok := item.(string); ok {
                    ids = append(ids, s)
                }
            }
        case []string:
            ids = append(ids, arr...)
        }
        out[key] = ids
    }
    return out
}

package ledger

import (
    "context"
    "testing"

    "github.com/openhoops/court-reservation/internal/docstore"
)

func TestSynchronizerAttachDetach(t *testing.T) {
    t.Parallel()
    ctx := context.Background()
    store := docstore.NewMemoryStore()
    l := New(store)

    var snaps []Snapshot
    s := NewSynchronizer(l, func(snap Snapshot) { snaps = append(snaps, snap) })

    s.Attach("c1")
    if !s.Attached("c1") {
        t.Fatal("Attached(c1) = false after Attach")
    }
    // Re-attaching the same court must not add a second subscription; the
    // next change would otherwise be delivered twice.
    s.Attach("c1")

    before := len(snaps)
    if err := l.Signup(ctx, "c1", testSlot, "u1"); err != nil {
        t.Fatalf("Signup() error: %v", err)
    }
    // One signup yields the optimistic apply and the confirmed remote
    // state.  A duplicate subscription would double that.
    if got := len(snaps) - before; got != 2 {
        t.Fatalf("got %d deliveries for one signup, want 2", got)
    }

    s.Detach("c1")
    if s.Attached("c1") {
        t.Fatal("Attached(c1) = true after Detach")
    }
    seen := len(snaps)
    if err := l.Signup(ctx, "c1", testSlot, "u2"); err != nil {
        t.Fatalf("Signup() error: %v", err)
    }
    if len(snaps) != seen {
        t.Fatal("onChange fired after Detach")
    }

    // Detaching again is a no-op.
    s.Detach("c1")
}

func TestSynchronizerDetachAll(t *testing.T) {
    t.Parallel()
    ctx := context.Background()
    store := docstore.NewMemoryStore()
    l := New(store)

    count := 0
    s := NewSynchronizer(l, func(Snapshot) { count++ })
    s.Attach("c1")
    s.Attach("c2")
    s.Attach("c3")

    s.DetachAll()
    for _, id := range []string{"c1", "c2", "c3"} {
        if s.Attached(id) {
            t.Errorf("Attached(%s) = true after DetachAll", id)
        }
    }

    seen := count
    if err := l.Signup(ctx, "c2", testSlot, "u1"); err != nil {
        t.Fatalf("Signup() error: %v", err)
    }
    if count != seen {
        t.Fatal("onChange fired after DetachAll")
    }
}

func TestSynchronizerSnapshotsCarryCourtID(t *testing.T) {
    t.Parallel()
    ctx := context.Background()
    store := docstore.NewMemoryStore()
    l := New(store)

    byCourt := map[string]int{}
    s := NewSynchronizer(l, func(snap Snapshot) { byCourt[snap.CourtID]++ })
    defer s.DetachAll()

    s.Attach("c1")
    s.Attach("c2")
    if err := l.Signup(ctx, "c1", testSlot, "u1"); err != nil {
        t.Fatalf("Signup() error: %v", err)
    }
    if byCourt["c1"] < 2 { // initial snapshot plus the signup
        t.Errorf("c1 deliveries = %d, want at least 2", byCourt["c1"])
    }
    if byCourt["c2"] != 1 { // only the initial snapshot
        t.Errorf("c2 deliveries = %d, want 1", byCourt["c2"])
    }
}

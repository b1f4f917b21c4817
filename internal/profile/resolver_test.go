package profile

import (
    "context"
    "testing"
    "time"

    "github.com/openhoops/court-reservation/internal/docstore"
    "github.com/openhoops/court-reservation/internal/model"
)

// The cache path needs a live Redis; these tests exercise the store path
// with a nil client, which is also the degraded production mode.

func seedUser(t *testing.T, store docstore.Store, id, email, name string) {
    t.Helper()
    err := store.Set(context.Background(), "users", id, map[string]any{
        "email":       email,
        "displayName": name,
        "createdAt":   time.Now().UTC().Format(time.RFC3339),
    }, false)
    if err != nil {
        t.Fatalf("Set() error: %v", err)
    }
}

func TestGetResolvesProfile(t *testing.T) {
    t.Parallel()
    store := docstore.NewMemoryStore()
    seedUser(t, store, "u1", "alice@example.com", "Alice")
    r := NewResolver(store, nil, 0)

    p, err := r.Get(context.Background(), "u1")
    if err != nil {
        t.Fatalf("Get() error: %v", err)
    }
    if p.DisplayName != "Alice" || p.Email != "alice@example.com" {
        t.Errorf("profile = %+v, want Alice", p)
    }
}

func TestGetFallsBackToAnonymous(t *testing.T) {
    t.Parallel()
    store := docstore.NewMemoryStore()
    r := NewResolver(store, nil, 0)

    p, err := r.Get(context.Background(), "ghost")
    if err != nil {
        t.Fatalf("Get() error: %v", err)
    }
    if p.DisplayName != AnonymousName {
        t.Errorf("display name = %q, want %q", p.DisplayName, AnonymousName)
    }
    if p.ID != "ghost" {
        t.Errorf("id = %q, want ghost", p.ID)
    }

    // A document without a display name gets the same placeholder.
    if err := store.Set(context.Background(), "users", "blank", map[string]any{"email": "x@example.com"}, false); err != nil {
        t.Fatalf("Set() error: %v", err)
    }
    p, err = r.Get(context.Background(), "blank")
    if err != nil {
        t.Fatalf("Get() error: %v", err)
    }
    if p.DisplayName != AnonymousName {
        t.Errorf("blank display name = %q, want %q", p.DisplayName, AnonymousName)
    }
}

func TestGetPropagatesStoreOutage(t *testing.T) {
    t.Parallel()
    store := docstore.NewMemoryStore()
    store.SetOffline(true)
    r := NewResolver(store, nil, 0)

    if _, err := r.Get(context.Background(), "u1"); err == nil {
        t.Fatal("Get() on offline store succeeded, want error")
    }
}

func TestGetManyPreservesOrder(t *testing.T) {
    t.Parallel()
    store := docstore.NewMemoryStore()
    seedUser(t, store, "u1", "alice@example.com", "Alice")
    seedUser(t, store, "u2", "bob@example.com", "Bob")
    r := NewResolver(store, nil, 0)

    ps, err := r.GetMany(context.Background(), []string{"u2", "ghost", "u1"})
    if err != nil {
        t.Fatalf("GetMany() error: %v", err)
    }
    want := []string{"Bob", AnonymousName, "Alice"}
    if len(ps) != len(want) {
        t.Fatalf("got %d profiles, want %d", len(ps), len(want))
    }
    for i, name := range want {
        if ps[i].DisplayName != name {
            t.Errorf("profile[%d] = %q, want %q", i, ps[i].DisplayName, name)
        }
    }
}

func TestSubscribeTracksRename(t *testing.T) {
    t.Parallel()
    ctx := context.Background()
    store := docstore.NewMemoryStore()
    seedUser(t, store, "u1", "alice@example.com", "Alice")
    r := NewResolver(store, nil, 0)

    var last model.Profile
    unsub := r.Subscribe("u1", func(p model.Profile) { last = p })
    defer unsub()

    if last.DisplayName != "Alice" {
        t.Fatalf("initial delivery = %+v, want Alice", last)
    }

    if err := store.Set(ctx, "users", "u1", map[string]any{"displayName": "Allie"}, true); err != nil {
        t.Fatalf("Set() error: %v", err)
    }
    if last.DisplayName != "Allie" {
        t.Errorf("after rename = %q, want Allie", last.DisplayName)
    }

    if err := store.Delete(ctx, "users", "u1"); err != nil {
        t.Fatalf("Delete() error: %v", err)
    }
    if last.DisplayName != AnonymousName {
        t.Errorf("after delete = %q, want %q", last.DisplayName, AnonymousName)
    }
}

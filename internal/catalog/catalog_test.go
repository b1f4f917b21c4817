package catalog

import (
    "context"
    "errors"
    "testing"

    "github.com/openhoops/court-reservation/internal/docstore"
    "github.com/openhoops/court-reservation/internal/places"
)

// fakeSearcher serves a canned result set.
type fakeSearcher struct {
    results []places.Place
    err     error
    calls   int
}

func (f *fakeSearcher) NearbySearch(context.Context, float64, float64, int, string) ([]places.Place, error) {
    f.calls++
    return f.results, f.err
}

func rating(v float64) *float64 { return &v }

func TestRefreshNearInsertsNewCourts(t *testing.T) {
    t.Parallel()
    ctx := context.Background()
    store := docstore.NewMemoryStore()
    search := &fakeSearcher{results: []places.Place{
        {ID: "p1", Name: "Riverside Court", Address: "12 River Rd", Latitude: 40.1, Longitude: -74.2, Rating: rating(4.5)},
        {ID: "p2", Name: "Hill Park", Address: "3 Hill St"},
    }}
    s := NewSync(store, search, "")

    n, err := s.RefreshNear(ctx, 40.0, -74.0, 5000)
    if err != nil {
        t.Fatalf("RefreshNear() error: %v", err)
    }
    if n != 2 {
        t.Fatalf("upserted = %d, want 2", n)
    }

    c, err := s.Get(ctx, "p1")
    if err != nil {
        t.Fatalf("Get() error: %v", err)
    }
    if c.Name != "Riverside Court" || c.Address != "12 River Rd" {
        t.Errorf("court = %+v", c)
    }
    if c.Rating == nil || *c.Rating != 4.5 {
        t.Errorf("rating = %v, want 4.5", c.Rating)
    }
    if len(c.Slots) != 0 {
        t.Errorf("new court slots = %v, want empty", c.Slots)
    }
}

func TestRefreshNearPreservesReservations(t *testing.T) {
    t.Parallel()
    ctx := context.Background()
    store := docstore.NewMemoryStore()
    search := &fakeSearcher{results: []places.Place{
        {ID: "p1", Name: "Riverside Court", Address: "12 River Rd"},
    }}
    s := NewSync(store, search, "")

    if _, err := s.RefreshNear(ctx, 0, 0, 1000); err != nil {
        t.Fatalf("RefreshNear() error: %v", err)
    }
    // Someone signs up between refreshes.
    err := store.Update(ctx, "courts", "p1",
        docstore.ArrayUnion("slots.2024-06-01_10:00 AM", "u1"))
    if err != nil {
        t.Fatalf("Update() error: %v", err)
    }

    // The provider renames the court; the reservation must survive.
    search.results[0].Name = "Riverside Court (renovated)"
    if _, err := s.RefreshNear(ctx, 0, 0, 1000); err != nil {
        t.Fatalf("second RefreshNear() error: %v", err)
    }

    c, err := s.Get(ctx, "p1")
    if err != nil {
        t.Fatalf("Get() error: %v", err)
    }
    if c.Name != "Riverside Court (renovated)" {
        t.Errorf("name = %q, want the renamed court", c.Name)
    }
    got := c.Slots["2024-06-01_10:00 AM"]
    if len(got) != 1 || got[0] != "u1" {
        t.Errorf("slots after refresh = %v, want [u1]", got)
    }
}

func TestRefreshNearPropagatesProviderError(t *testing.T) {
    t.Parallel()
    s := NewSync(docstore.NewMemoryStore(), &fakeSearcher{err: errors.New("quota exceeded")}, "")
    if _, err := s.RefreshNear(context.Background(), 0, 0, 1000); err == nil {
        t.Fatal("want provider error")
    }
}

func TestSearch(t *testing.T) {
    t.Parallel()
    ctx := context.Background()
    store := docstore.NewMemoryStore()
    search := &fakeSearcher{results: []places.Place{
        {ID: "p1", Name: "Riverside Court", Address: "12 River Rd"},
        {ID: "p2", Name: "Hill Park", Address: "3 Hill St"},
        {ID: "p3", Name: "Riverview Gym", Address: "99 Ocean Ave"},
    }}
    s := NewSync(store, search, "")
    if _, err := s.RefreshNear(ctx, 0, 0, 1000); err != nil {
        t.Fatalf("RefreshNear() error: %v", err)
    }

    for _, tc := range []struct {
        query string
        want  []string
    }{
        {"river", []string{"Riverside Court", "Riverview Gym"}},
        {"RIVERSIDE", []string{"Riverside Court"}},
        {"3 hill", []string{"Hill Park"}}, // address prefix
        {"", []string{"Hill Park", "Riverside Court", "Riverview Gym"}},
        {"nothing", nil},
    } {
        got, err := s.Search(ctx, tc.query)
        if err != nil {
            t.Fatalf("Search(%q) error: %v", tc.query, err)
        }
        if len(got) != len(tc.want) {
            t.Errorf("Search(%q) = %d courts, want %d", tc.query, len(got), len(tc.want))
            continue
        }
        for i, name := range tc.want {
            if got[i].Name != name {
                t.Errorf("Search(%q)[%d] = %q, want %q", tc.query, i, got[i].Name, name)
            }
        }
    }
}

func TestSearchDeduplicatesNameAndAddressHits(t *testing.T) {
    t.Parallel()
    ctx := context.Background()
    store := docstore.NewMemoryStore()
    // Name and address share the prefix; the court must appear once.
    search := &fakeSearcher{results: []places.Place{
        {ID: "p1", Name: "Main Street Court", Address: "Main Street 5"},
    }}
    s := NewSync(store, search, "")
    if _, err := s.RefreshNear(ctx, 0, 0, 1000); err != nil {
        t.Fatalf("RefreshNear() error: %v", err)
    }

    got, err := s.Search(ctx, "main")
    if err != nil {
        t.Fatalf("Search() error: %v", err)
    }
    if len(got) != 1 {
        t.Fatalf("Search() = %d courts, want 1", len(got))
    }
}

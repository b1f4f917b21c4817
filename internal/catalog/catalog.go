// Package catalog keeps the court collection in sync with the places
// provider and serves text search over it.  Court metadata is refreshed
// from the provider; the reservation ledger living under each court's
// "slots" field is never touched by a refresh.
package catalog

import (
    "context"
    "errors"
    "log"
    "sort"
    "strings"
    "time"

    "github.com/openhoops/court-reservation/internal/docstore"
    "github.com/openhoops/court-reservation/internal/model"
    "github.com/openhoops/court-reservation/internal/places"
)

const courtsCollection = "courts"

// Searcher is the part of the places client the catalog consumes.
type Searcher interface {
    NearbySearch(ctx context.Context, lat, lng float64, radius int, keyword string) ([]places.Place, error)
}

// Sync mirrors provider results into the court collection.
type Sync struct {
    store   docstore.Store
    places  Searcher
    keyword string
}

// NewSync returns a Sync searching the provider with the given keyword.
func NewSync(store docstore.Store, p Searcher, keyword string) *Sync {
    if keyword == "" {
        keyword = "basketball court"
    }
    return &Sync{store: store, places: p, keyword: keyword}
}

// RefreshNear fetches courts near (lat, lng) and upserts each into the
// collection under its provider id.  New courts start with an empty slots
// map; existing courts get their metadata replaced by a merge write that
// leaves the slots field alone.  A court that fails to upsert is logged
// and skipped so one bad document cannot starve the rest; the number of
// successful upserts is returned.
func (s *Sync) RefreshNear(ctx context.Context, lat, lng float64, radius int) (int, error) {
    if s.places == nil {
        return 0, errors.New("no places provider configured")
    }
    found, err := s.places.NearbySearch(ctx, lat, lng, radius, s.keyword)
    if err != nil {
        return 0, err
    }

    n := 0
    for _, p := range found {
        if err := s.upsert(ctx, p); err != nil {
            log.Printf("catalog: upsert court %s: %v", p.ID, err)
            continue
        }
        n++
    }
    return n, nil
}

func (s *Sync) upsert(ctx context.Context, p places.Place) error {
    data := map[string]any{
        "name":         p.Name,
        "address":      p.Address,
        "latitude":     p.Latitude,
        "longitude":    p.Longitude,
        "nameLower":    strings.ToLower(p.Name),
        "addressLower": strings.ToLower(p.Address),
        "updatedAt":    time.Now().UTC().Format(time.RFC3339),
    }
    if p.Rating != nil {
        data["rating"] = *p.Rating
    }

    _, err := s.store.Get(ctx, courtsCollection, p.ID)
    if errors.Is(err, docstore.ErrNotFound) {
        // First sighting: the court starts with an empty ledger.
        data["slots"] = map[string]any{}
        return s.store.Set(ctx, courtsCollection, p.ID, data, false)
    }
    if err != nil {
        return err
    }
    // Merge keeps the existing slots field and any reservations in it.
    return s.store.Set(ctx, courtsCollection, p.ID, data, true)
}

// Search returns courts whose name or address starts with the query,
// case-insensitively, ordered by name.  An empty query returns every
// court.
func (s *Sync) Search(ctx context.Context, query string) ([]model.Court, error) {
    query = strings.ToLower(strings.TrimSpace(query))

    var (
        docs []docstore.Document
        err  error
    )
    if query == "" {
        docs, err = s.store.Query(ctx, courtsCollection)
        if err != nil {
            return nil, err
        }
    } else {
        byName, err := s.store.Query(ctx, courtsCollection,
            docstore.Where("nameLower", "prefix", query))
        if err != nil {
            return nil, err
        }
        byAddress, err := s.store.Query(ctx, courtsCollection,
            docstore.Where("addressLower", "prefix", query))
        if err != nil {
            return nil, err
        }
        seen := make(map[string]bool, len(byName))
        for _, d := range byName {
            seen[d.ID] = true
            docs = append(docs, d)
        }
        for _, d := range byAddress {
            if !seen[d.ID] {
                docs = append(docs, d)
            }
        }
    }

    out := make([]model.Court, 0, len(docs))
    for _, d := range docs {
        out = append(out, CourtFromDoc(d))
    }
    sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
    return out, nil
}

// Get returns one court by id.
func (s *Sync) Get(ctx context.Context, id string) (model.Court, error) {
    doc, err := s.store.Get(ctx, courtsCollection, id)
    if err != nil {
        return model.Court{}, err
    }
    return CourtFromDoc(doc), nil
}

// StartRefresher refreshes the catalog around a fixed point at the given
// interval until ctx is cancelled.  Refresh errors are logged, never
// fatal.  It blocks; run it on its own goroutine.
func (s *Sync) StartRefresher(ctx context.Context, lat, lng float64, radius int, interval time.Duration) {
    ticker := time.NewTicker(interval)
    defer ticker.Stop()
    for {
        if n, err := s.RefreshNear(ctx, lat, lng, radius); err != nil {
            log.Printf("catalog: refresh: %v", err)
        } else {
            log.Printf("catalog: refreshed %d courts", n)
        }
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
        }
    }
}

// CourtFromDoc maps a raw court document to the model type.  Missing or
// mistyped fields degrade to zero values.
func CourtFromDoc(doc docstore.Document) model.Court {
    c := model.Court{ID: doc.ID, Slots: make(map[string][]string)}
    c.Name, _ = doc.Data["name"].(string)
    c.Address, _ = doc.Data["address"].(string)
    c.Latitude = toFloat(doc.Data["latitude"])
    c.Longitude = toFloat(doc.Data["longitude"])
    if r, ok := doc.Data["rating"]; ok {
        v := toFloat(r)
        c.Rating = &v
    }
    if slots, ok := doc.Data["slots"].(map[string]any); ok {
        for key, raw := range slots {
            var ids []string
            switch arr := raw.(type) {
            case []any:
                for _, v := range arr {
                    if s, ok := v.(string); ok {
                        ids = append(ids, s)
                    }
                }
            case []string:
                ids = append(ids, arr...)
            }
            c.Slots[key] = ids
        }
    }
    return c
}

func toFloat(v any) float64 {
    switch n := v.(type) {
    case float64:
        return n
    case float32:
        return float64(n)
    case int:
        return float64(n)
    case int64:
        return float64(n)
    }
    return 0
}

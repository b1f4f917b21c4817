// Package profile resolves user ids to display profiles.  Lookups go
// through an optional Redis cache; a missing or unreadable account
// degrades to an anonymous placeholder instead of failing the caller,
// since profiles decorate other data and are never the primary payload.
package profile

import (
    "context"
    "encoding/json"
    "errors"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/openhoops/court-reservation/internal/docstore"
    "github.com/openhoops/court-reservation/internal/model"
)

const usersCollection = "users"

// AnonymousName is the display name substituted for unresolvable users.
const AnonymousName = "Anonymous Player"

// Resolver reads profiles from the document store with a Redis
// read-through cache in front.  A nil Redis client disables caching and
// every lookup hits the store.
type Resolver struct {
    store docstore.Store
    rdb   *redis.Client
    ttl   time.Duration
}

// NewResolver returns a Resolver.  rdb may be nil.
func NewResolver(store docstore.Store, rdb *redis.Client, ttl time.Duration) *Resolver {
    if ttl <= 0 {
        ttl = 5 * time.Minute
    }
    return &Resolver{store: store, rdb: rdb, ttl: ttl}
}

// cached is the Redis representation of a profile.
type cached struct {
    Email       string `json:"email"`
    DisplayName string `json:"display_name"`
}

func cacheKey(id string) string { return "profile:" + id }

// Get returns the profile for a user id, or an anonymous placeholder when
// the account does not exist.  Cache failures fall through to the store;
// only store errors other than not-found are returned.
func (r *Resolver) Get(ctx context.Context, id string) (model.Profile, error) {
    if id == "" {
        return anonymous(id), nil
    }
    if r.rdb != nil {
        if raw, err := r.rdb.Get(ctx, cacheKey(id)).Result(); err == nil {
            var c cached
            if json.Unmarshal([]byte(raw), &c) == nil {
                return model.Profile{ID: id, Email: c.Email, DisplayName: c.DisplayName}, nil
            }
        }
    }

    doc, err := r.store.Get(ctx, usersCollection, id)
    if errors.Is(err, docstore.ErrNotFound) {
        return anonymous(id), nil
    }
    if err != nil {
        return model.Profile{}, err
    }
    p := fromDoc(doc)
    if p.DisplayName == "" {
        p.DisplayName = AnonymousName
    }

    if r.rdb != nil {
        if raw, err := json.Marshal(cached{Email: p.Email, DisplayName: p.DisplayName}); err == nil {
            // Cache write failures are invisible to the caller.
            r.rdb.Set(ctx, cacheKey(id), raw, r.ttl)
        }
    }
    return p, nil
}

// GetMany resolves a batch of ids, preserving order.  Each unresolvable
// id yields an anonymous entry.
func (r *Resolver) GetMany(ctx context.Context, ids []string) ([]model.Profile, error) {
    out := make([]model.Profile, 0, len(ids))
    for _, id := range ids {
        p, err := r.Get(ctx, id)
        if err != nil {
            return nil, err
        }
        out = append(out, p)
    }
    return out, nil
}

// Invalidate drops the cached entry for a user.  No-op without Redis.
func (r *Resolver) Invalidate(ctx context.Context, id string) {
    if r.rdb != nil {
        r.rdb.Del(ctx, cacheKey(id))
    }
}

// Subscribe watches a user's profile document and delivers the resolved
// profile on every change, starting with the current state.  The cache
// entry is invalidated on each delivery so subsequent Gets see the update.
func (r *Resolver) Subscribe(id string, fn func(model.Profile)) docstore.UnsubscribeFunc {
    return r.store.Subscribe(usersCollection, id, func(snap docstore.Snapshot) {
        r.Invalidate(context.Background(), id)
        if !snap.Exists {
            fn(anonymous(id))
            return
        }
        p := fromDoc(snap.Doc)
        if p.DisplayName == "" {
            p.DisplayName = AnonymousName
        }
        fn(p)
    })
}

func anonymous(id string) model.Profile {
    return model.Profile{ID: id, DisplayName: AnonymousName}
}

func fromDoc(doc docstore.Document) model.Profile {
    p := model.Profile{ID: doc.ID}
    p.Email, _ = doc.Data["email"].(string)
    p.DisplayName, _ = doc.Data["displayName"].(string)
    if raw, ok := doc.Data["createdAt"].(string); ok {
        if t, err := time.Parse(time.RFC3339, raw); err == nil {
            p.CreatedAt = t
        }
    }
    return p
}

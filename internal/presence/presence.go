// Package presence answers "which of my friends are playing right now":
// it joins the viewer's friend set against every court's reservation
// ledger and keeps the matches whose slot window covers the given
// instant.
package presence

import (
    "context"
    "sort"
    "time"

    "github.com/openhoops/court-reservation/internal/catalog"
    "github.com/openhoops/court-reservation/internal/docstore"
    "github.com/openhoops/court-reservation/internal/model"
    "github.com/openhoops/court-reservation/internal/profile"
    "github.com/openhoops/court-reservation/internal/slot"
    "github.com/openhoops/court-reservation/internal/social"
)

const courtsCollection = "courts"

// Aggregator computes friend presence.  It reads the social graph and the
// court documents directly; no per-court subscriptions are held, the
// computation is on demand.
type Aggregator struct {
    store    docstore.Store
    social   *social.Workflow
    profiles *profile.Resolver
}

// NewAggregator returns an Aggregator.
func NewAggregator(store docstore.Store, w *social.Workflow, r *profile.Resolver) *Aggregator {
    return &Aggregator{store: store, social: w, profiles: r}
}

// ActiveFriends returns every (friend, court, slot) where a friend of
// viewerID holds a reservation whose window contains now.  A friend at
// two courts, or two friends at one court, produce separate entries.
// Results are ordered by window start, then court name, then friend name.
func (a *Aggregator) ActiveFriends(ctx context.Context, viewerID string, now time.Time) ([]model.ActiveFriend, error) {
    friendIDs, err := a.social.FriendIDs(ctx, viewerID)
    if err != nil {
        return nil, err
    }
    if len(friendIDs) == 0 {
        return []model.ActiveFriend{}, nil
    }
    friends := make(map[string]bool, len(friendIDs))
    for _, id := range friendIDs {
        friends[id] = true
    }

    courts, err := a.store.Query(ctx, courtsCollection)
    if err != nil {
        return nil, err
    }

    // Collect matches first, resolve profiles in one batch after: a busy
    // court page would otherwise hit the resolver once per entry.
    type match struct {
        friendID string
        court    model.Court
        key      string
    }
    var matches []match
    var resolveIDs []string
    seen := make(map[string]bool)
    for _, doc := range courts {
        court := catalog.CourtFromDoc(doc)
        for key, ids := range court.Slots {
            if !slot.Contains(key, now) {
                continue
            }
            for _, id := range ids {
                if !friends[id] {
                    continue
                }
                matches = append(matches, match{friendID: id, court: court, key: key})
                if !seen[id] {
                    seen[id] = true
                    resolveIDs = append(resolveIDs, id)
                }
            }
        }
    }

    profiles, err := a.profiles.GetMany(ctx, resolveIDs)
    if err != nil {
        return nil, err
    }
    byID := make(map[string]model.Profile, len(profiles))
    for _, p := range profiles {
        byID[p.ID] = p
    }

    out := make([]model.ActiveFriend, 0, len(matches))
    for _, m := range matches {
        start, end, _ := slot.Window(m.key)
        out = append(out, model.ActiveFriend{
            Friend:      byID[m.friendID],
            Court:       m.court,
            SlotKey:     m.key,
            WindowStart: start,
            WindowEnd:   end,
        })
    }

    sort.Slice(out, func(i, j int) bool {
        if !out[i].WindowStart.Equal(out[j].WindowStart) {
            return out[i].WindowStart.Before(out[j].WindowStart)
        }
        if out[i].Court.Name != out[j].Court.Name {
            return out[i].Court.Name < out[j].Court.Name
        }
        return out[i].Friend.DisplayName < out[j].Friend.DisplayName
    })
    return out, nil
}

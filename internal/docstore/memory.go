package docstore

import (
    "context"
    "fmt"
    "sync"

    "github.com/google/uuid"
)

// MemoryStore is the in-process Store engine.  It backs tests and
// single-node deployments.  All snapshots handed out are deep copies, and
// subscription delivery is synchronous with the mutating call, so a caller
// that has seen an operation return observes its own write on the next
// read.
//
// SetOffline simulates the remote store becoming unreachable: every
// subsequent operation fails with ErrUnavailable until connectivity is
// restored.  Tests use this to exercise optimistic rollback paths.
type MemoryStore struct {
    mu      sync.RWMutex
    data    map[string]map[string]map[string]any // collection -> id -> document
    offline bool

    notifier *notifier
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
    return &MemoryStore{
        data:     make(map[string]map[string]map[string]any),
        notifier: newNotifier(),
    }
}

// SetOffline toggles simulated unavailability.
func (s *MemoryStore) SetOffline(offline bool) {
    s.mu.Lock()
    s.offline = offline
    s.mu.Unlock()
}

func (s *MemoryStore) checkUp(ctx context.Context) error {
    if err := ctx.Err(); err != nil {
        return err
    }
    if s.offline {
        return ErrUnavailable
    }
    return nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    if err := s.checkUp(ctx); err != nil {
        return Document{}, err
    }
    doc, ok := s.data[collection][id]
    if !ok {
        return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
    }
    return Document{ID: id, Data: copyData(doc)}, nil
}

// Set implements Store.
func (s *MemoryStore) Set(ctx context.Context, collection, id string, data map[string]any, merge bool) error {
    s.mu.Lock()
    if err := s.checkUp(ctx); err != nil {
        s.mu.Unlock()
        return err
    }
    col := s.ensureCollection(collection)
    existing, ok := col[id]
    if merge && ok {
        for k, v := range data {
            existing[k] = copyValue(v)
        }
    } else {
        col[id] = copyData(data)
    }
    snap := s.snapshotLocked(collection, id)
    s.mu.Unlock()

    s.fanOut(collection, id, snap)
    return nil
}

// Add implements Store.  Document ids are random UUIDs.
func (s *MemoryStore) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
    id := uuid.NewString()
    if err := s.Set(ctx, collection, id, data, false); err != nil {
        return "", err
    }
    return id, nil
}

// Update implements Store.
func (s *MemoryStore) Update(ctx context.Context, collection, id string, ops ...FieldOp) error {
    s.mu.Lock()
    if err := s.checkUp(ctx); err != nil {
        s.mu.Unlock()
        return err
    }
    doc, ok := s.data[collection][id]
    if !ok {
        s.mu.Unlock()
        return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
    }
    applyFieldOps(doc, ops)
    snap := s.snapshotLocked(collection, id)
    s.mu.Unlock()

    s.fanOut(collection, id, snap)
    return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
    s.mu.Lock()
    if err := s.checkUp(ctx); err != nil {
        s.mu.Unlock()
        return err
    }
    if _, ok := s.data[collection][id]; !ok {
        s.mu.Unlock()
        return nil
    }
    delete(s.data[collection], id)
    snap := Snapshot{Doc: Document{ID: id}}
    s.mu.Unlock()

    s.fanOut(collection, id, snap)
    return nil
}

// Query implements Store.
func (s *MemoryStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    if err := s.checkUp(ctx); err != nil {
        return nil, err
    }
    return s.queryLocked(collection, filters), nil
}

// Subscribe implements Store.  The initial snapshot is delivered before
// Subscribe returns.
func (s *MemoryStore) Subscribe(collection, id string, fn func(Snapshot)) UnsubscribeFunc {
    sub, unsub := s.notifier.addDocSub(collection, id, fn)

    s.mu.RLock()
    snap := s.snapshotLocked(collection, id)
    s.mu.RUnlock()
    sub.deliver(snap)

    return unsub
}

// SubscribeQuery implements Store.  The initial result set is delivered
// before SubscribeQuery returns.
func (s *MemoryStore) SubscribeQuery(collection string, filters []Filter, fn func([]Document)) UnsubscribeFunc {
    sub, unsub := s.notifier.addQuerySub(collection, filters, fn)

    s.mu.RLock()
    docs := s.queryLocked(collection, filters)
    s.mu.RUnlock()
    sub.deliver(docs)

    return unsub
}

func (s *MemoryStore) ensureCollection(collection string) map[string]map[string]any {
    col, ok := s.data[collection]
    if !ok {
        col = make(map[string]map[string]any)
        s.data[collection] = col
    }
    return col
}

func (s *MemoryStore) snapshotLocked(collection, id string) Snapshot {
    doc, ok := s.data[collection][id]
    if !ok {
        return Snapshot{Doc: Document{ID: id}}
    }
    return Snapshot{Doc: Document{ID: id, Data: copyData(doc)}, Exists: true}
}

func (s *MemoryStore) queryLocked(collection string, filters []Filter) []Document {
    out := make([]Document, 0)
    for id, doc := range s.data[collection] {
        if matchFilters(doc, filters) {
            out = append(out, Document{ID: id, Data: copyData(doc)})
        }
    }
    return out
}

func (s *MemoryStore) fanOut(collection, id string, snap Snapshot) {
    s.notifier.docChanged(collection, id, snap, func(filters []Filter) []Document {
        s.mu.RLock()
        defer s.mu.RUnlock()
        return s.queryLocked(collection, filters)
    })
}

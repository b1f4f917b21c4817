package docstore

import "sync"

// docSub is one per-document subscription.  Its own mutex serializes
// deliveries against detachment: unsubscribe marks the handle dead under
// the lock, so a notification that was already on its way to this
// subscriber is dropped instead of delivered late.
type docSub struct {
    collection string
    id         string
    fn         func(Snapshot)

    mu   sync.Mutex
    dead bool
}

func (s *docSub) deliver(snap Snapshot) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.dead {
        return
    }
    s.fn(snap)
}

// querySub is one live-query subscription, same lifecycle as docSub.
type querySub struct {
    collection string
    filters    []Filter
    fn         func([]Document)

    mu   sync.Mutex
    dead bool
}

func (s *querySub) deliver(docs []Document) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.dead {
        return
    }
    s.fn(docs)
}

// notifier holds the subscriber registry shared by both store engines.
// Engines call docChanged after every successful mutation; the notifier
// fans the fresh state out to every matching live subscription.
type notifier struct {
    mu        sync.RWMutex
    nextID    int
    docSubs   map[int]*docSub
    querySubs map[int]*querySub
}

func newNotifier() *notifier {
    return &notifier{
        docSubs:   make(map[int]*docSub),
        querySubs: make(map[int]*querySub),
    }
}

func (n *notifier) addDocSub(collection, id string, fn func(Snapshot)) (*docSub, UnsubscribeFunc) {
    sub := &docSub{collection: collection, id: id, fn: fn}
    n.mu.Lock()
    key := n.nextID
    n.nextID++
    n.docSubs[key] = sub
    n.mu.Unlock()
    return sub, func() {
        sub.mu.Lock()
        sub.dead = true
        sub.mu.Unlock()
        n.mu.Lock()
        delete(n.docSubs, key)
        n.mu.Unlock()
    }
}

func (n *notifier) addQuerySub(collection string, filters []Filter, fn func([]Document)) (*querySub, UnsubscribeFunc) {
    sub := &querySub{collection: collection, filters: filters, fn: fn}
    n.mu.Lock()
    key := n.nextID
    n.nextID++
    n.querySubs[key] = sub
    n.mu.Unlock()
    return sub, func() {
        sub.mu.Lock()
        sub.dead = true
        sub.mu.Unlock()
        n.mu.Lock()
        delete(n.querySubs, key)
        n.mu.Unlock()
    }
}

// docChanged fans a document change out to matching subscribers.  snap must
// already be a caller-isolated copy.  queryDocs re-reads the collection for
// a live query; it is invoked once per matching query subscription so each
// receives the result set filtered by its own predicates.
func (n *notifier) docChanged(collection, id string, snap Snapshot, queryDocs func(filters []Filter) []Document) {
    n.mu.RLock()
    var docs []*docSub
    var queries []*querySub
    for _, s := range n.docSubs {
        if s.collection == collection && s.id == id {
            docs = append(docs, s)
        }
    }
    for _, s := range n.querySubs {
        if s.collection == collection {
            queries = append(queries, s)
        }
    }
    n.mu.RUnlock()

    for _, s := range docs {
        s.deliver(snap)
    }
    for _, s := range queries {
        s.deliver(queryDocs(s.filters))
    }
}

package docstore

import (
    "context"
    "database/sql"
    "database/sql/driver"
    "encoding/json"
    "errors"
    "fmt"
    "net"

    "github.com/google/uuid"
)

// MySQLStore persists documents as JSON rows in a single `documents` table
// keyed by (collection, doc_id).  Field operations run inside a
// transaction with the row locked, so concurrent array unions against the
// same document serialize at the database instead of overwriting each
// other.  Change notifications fan out to in-process subscribers after the
// transaction commits; cross-process subscribers are out of scope for this
// engine.
type MySQLStore struct {
    db       *sql.DB
    notifier *notifier
}

// NewMySQLStore returns a MySQL-backed store bound to the given database.
func NewMySQLStore(db *sql.DB) *MySQLStore {
    return &MySQLStore{db: db, notifier: newNotifier()}
}

// EnsureSchema creates the documents table when it does not exist yet.
func (s *MySQLStore) EnsureSchema(ctx context.Context) error {
    const q = `CREATE TABLE IF NOT EXISTS documents (
        collection VARCHAR(64)  NOT NULL,
        doc_id     VARCHAR(128) NOT NULL,
        data       JSON         NOT NULL,
        updated_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        PRIMARY KEY (collection, doc_id)
    )`
    _, err := s.db.ExecContext(ctx, q)
    return translateErr(err)
}

// translateErr maps connectivity failures onto ErrUnavailable so callers
// can distinguish "store unreachable" from a genuine write failure.
func translateErr(err error) error {
    if err == nil {
        return nil
    }
    var netErr net.Error
    if errors.Is(err, driver.ErrBadConn) || errors.As(err, &netErr) {
        return fmt.Errorf("%w: %v", ErrUnavailable, err)
    }
    return err
}

// Get implements Store.
func (s *MySQLStore) Get(ctx context.Context, collection, id string) (Document, error) {
    const q = `SELECT data FROM documents WHERE collection = ? AND doc_id = ?`
    var raw []byte
    err := s.db.QueryRowContext(ctx, q, collection, id).Scan(&raw)
    if errors.Is(err, sql.ErrNoRows) {
        return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
    }
    if err != nil {
        return Document{}, translateErr(err)
    }
    data, err := decodeDoc(raw)
    if err != nil {
        return Document{}, err
    }
    return Document{ID: id, Data: data}, nil
}

// Set implements Store.
func (s *MySQLStore) Set(ctx context.Context, collection, id string, data map[string]any, merge bool) error {
    snap, err := s.mutate(ctx, collection, id, func(existing map[string]any, exists bool) (map[string]any, error) {
        if merge && exists {
            for k, v := range data {
                existing[k] = copyValue(v)
            }
            return existing, nil
        }
        return copyData(data), nil
    })
    if err != nil {
        return err
    }
    s.fanOut(ctx, collection, id, snap)
    return nil
}

// Add implements Store.  Document ids are random UUIDs.
func (s *MySQLStore) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
    id := uuid.NewString()
    if err := s.Set(ctx, collection, id, data, false); err != nil {
        return "", err
    }
    return id, nil
}

// Update implements Store.
func (s *MySQLStore) Update(ctx context.Context, collection, id string, ops ...FieldOp) error {
    snap, err := s.mutate(ctx, collection, id, func(existing map[string]any, exists bool) (map[string]any, error) {
        if !exists {
            return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
        }
        applyFieldOps(existing, ops)
        return existing, nil
    })
    if err != nil {
        return err
    }
    s.fanOut(ctx, collection, id, snap)
    return nil
}

// Delete implements Store.
func (s *MySQLStore) Delete(ctx context.Context, collection, id string) error {
    const q = `DELETE FROM documents WHERE collection = ? AND doc_id = ?`
    res, err := s.db.ExecContext(ctx, q, collection, id)
    if err != nil {
        return translateErr(err)
    }
    if n, err := res.RowsAffected(); err == nil && n == 0 {
        return nil
    }
    s.fanOut(ctx, collection, id, Snapshot{Doc: Document{ID: id}})
    return nil
}

// Query implements Store.  Rows are filtered in process: field paths here
// contain characters (spaces, colons) that make JSON path expressions
// fragile, and the collections this system queries stay small.
func (s *MySQLStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
    const q = `SELECT doc_id, data FROM documents WHERE collection = ?`
    rows, err := s.db.QueryContext(ctx, q, collection)
    if err != nil {
        return nil, translateErr(err)
    }
    defer rows.Close()
    out := make([]Document, 0)
    for rows.Next() {
        var id string
        var raw []byte
        if err := rows.Scan(&id, &raw); err != nil {
            return nil, err
        }
        data, err := decodeDoc(raw)
        if err != nil {
            return nil, err
        }
        if matchFilters(data, filters) {
            out = append(out, Document{ID: id, Data: data})
        }
    }
    if err := rows.Err(); err != nil {
        return nil, translateErr(err)
    }
    return out, nil
}

// Subscribe implements Store.
func (s *MySQLStore) Subscribe(collection, id string, fn func(Snapshot)) UnsubscribeFunc {
    sub, unsub := s.notifier.addDocSub(collection, id, fn)

    snap := Snapshot{Doc: Document{ID: id}}
    if doc, err := s.Get(context.Background(), collection, id); err == nil {
        snap = Snapshot{Doc: doc, Exists: true}
    }
    sub.deliver(snap)

    return unsub
}

// SubscribeQuery implements Store.
func (s *MySQLStore) SubscribeQuery(collection string, filters []Filter, fn func([]Document)) UnsubscribeFunc {
    sub, unsub := s.notifier.addQuerySub(collection, filters, fn)

    docs, err := s.Query(context.Background(), collection, filters...)
    if err != nil {
        docs = []Document{}
    }
    sub.deliver(docs)

    return unsub
}

// mutate runs a read-modify-write cycle on one document with the row
// locked.  apply receives the decoded document (nil map when absent) and
// returns the full replacement value.  On success the fresh snapshot is
// returned for fan-out.
func (s *MySQLStore) mutate(ctx context.Context, collection, id string, apply func(existing map[string]any, exists bool) (map[string]any, error)) (Snapshot, error) {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return Snapshot{}, translateErr(err)
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    const sel = `SELECT data FROM documents WHERE collection = ? AND doc_id = ? FOR UPDATE`
    var raw []byte
    existing := map[string]any{}
    exists := true
    err = tx.QueryRowContext(ctx, sel, collection, id).Scan(&raw)
    switch {
    case errors.Is(err, sql.ErrNoRows):
        exists = false
    case err != nil:
        return Snapshot{}, translateErr(err)
    default:
        existing, err = decodeDoc(raw)
        if err != nil {
            return Snapshot{}, err
        }
    }

    next, err := apply(existing, exists)
    if err != nil {
        return Snapshot{}, err
    }
    encoded, err := json.Marshal(next)
    if err != nil {
        return Snapshot{}, fmt.Errorf("encode document %s/%s: %w", collection, id, err)
    }

    const upsert = `INSERT INTO documents (collection, doc_id, data) VALUES (?, ?, ?)
                    ON DUPLICATE KEY UPDATE data = VALUES(data)`
    if _, err := tx.ExecContext(ctx, upsert, collection, id, encoded); err != nil {
        return Snapshot{}, translateErr(err)
    }
    if err := tx.Commit(); err != nil {
        return Snapshot{}, translateErr(err)
    }
    committed = true
    return Snapshot{Doc: Document{ID: id, Data: next}, Exists: true}, nil
}

func (s *MySQLStore) fanOut(ctx context.Context, collection, id string, snap Snapshot) {
    s.notifier.docChanged(collection, id, snap, func(filters []Filter) []Document {
        docs, err := s.Query(ctx, collection, filters...)
        if err != nil {
            return []Document{}
        }
        return docs
    })
}

func decodeDoc(raw []byte) (map[string]any, error) {
    var data map[string]any
    if err := json.Unmarshal(raw, &data); err != nil {
        return nil, fmt.Errorf("decode document: %w", err)
    }
    return data, nil
}

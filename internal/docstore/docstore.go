// Package docstore defines the document-store collaborator the booking core
// is layered on: collections of schemaless documents with per-document
// subscription streams, merge writes, and field-level atomic array
// union/removal.  Two engines implement the contract: an in-process memory
// engine and a MySQL-backed engine persisting documents as JSON rows.
package docstore

import (
    "context"
    "errors"
    "strings"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("document not found")

// ErrUnavailable signals a transient failure: the backing store could not
// be reached.  Callers may retry; optimistic local state must be rolled
// back when an operation fails with this error.
var ErrUnavailable = errors.New("store unavailable")

// Document is a snapshot of one stored document.  Data is a deep copy;
// mutating it never affects the store.
type Document struct {
    ID   string
    Data map[string]any
}

// Snapshot is delivered to per-document subscribers.  Exists is false when
// the document has not been created yet or has been deleted; Doc.Data is
// nil in that case.
type Snapshot struct {
    Doc    Document
    Exists bool
}

// UnsubscribeFunc detaches a subscription.  It is safe to call more than
// once.  After it returns, the subscriber callback will not be invoked
// again, even for a notification that was already in flight.
type UnsubscribeFunc func()

// OpKind enumerates the supported field operations.
type OpKind int

const (
    // OpSet overwrites the value at a field path.
    OpSet OpKind = iota
    // OpArrayUnion appends each value missing from the array at a field
    // path.  Values already present are left alone, so concurrent unions
    // of different values never lose data.
    OpArrayUnion
    // OpArrayRemove removes each matching value from the array at a field
    // path.
    OpArrayRemove
)

// FieldOp describes one mutation applied by Update.  Path is a dotted
// field path ("slots.2024-06-01_10:00 AM"); intermediate maps are created
// as needed.
type FieldOp struct {
    Path   string
    Kind   OpKind
    Value  any   // OpSet payload
    Values []any // OpArrayUnion / OpArrayRemove payload
}

// SetField builds an OpSet field operation.
func SetField(path string, value any) FieldOp {
    return FieldOp{Path: path, Kind: OpSet, Value: value}
}

// ArrayUnion builds an OpArrayUnion field operation.
func ArrayUnion(path string, values ...any) FieldOp {
    return FieldOp{Path: path, Kind: OpArrayUnion, Values: values}
}

// ArrayRemove builds an OpArrayRemove field operation.
func ArrayRemove(path string, values ...any) FieldOp {
    return FieldOp{Path: path, Kind: OpArrayRemove, Values: values}
}

// Filter restricts a Query.  Supported operators are "==" (field equals
// value), "array-contains" (array field contains value) and "prefix"
// (string field starts with value).
type Filter struct {
    Field string
    Op    string
    Value any
}

// Where builds a query filter.
func Where(field, op string, value any) Filter {
    return Filter{Field: field, Op: op, Value: value}
}

// Store is the document-store contract.  All mutating and reading methods
// honour the passed context; subscriptions live until their unsubscribe
// function is called.
type Store interface {
    // Get returns a snapshot of one document, or ErrNotFound.
    Get(ctx context.Context, collection, id string) (Document, error)
    // Set writes a document.  With merge true, top-level fields in data
    // are merged over the existing document and absent fields are left
    // untouched; with merge false the document is replaced wholesale.
    Set(ctx context.Context, collection, id string, data map[string]any, merge bool) error
    // Add creates a document under a freshly generated id and returns it.
    Add(ctx context.Context, collection string, data map[string]any) (string, error)
    // Update applies field operations to an existing document.  It fails
    // with ErrNotFound when the document does not exist.
    Update(ctx context.Context, collection, id string, ops ...FieldOp) error
    // Delete removes a document.  Deleting an absent document is a no-op.
    Delete(ctx context.Context, collection, id string) error
    // Query returns every document in the collection matching all filters.
    Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error)
    // Subscribe registers a per-document observer.  The current snapshot
    // is delivered immediately (Exists false when absent), then again on
    // every change.
    Subscribe(collection, id string, fn func(Snapshot)) UnsubscribeFunc
    // SubscribeQuery registers a live query.  The current result set is
    // delivered immediately, then again whenever the collection changes.
    SubscribeQuery(collection string, filters []Filter, fn func([]Document)) UnsubscribeFunc
}

// splitPath splits a dotted field path into its segments.
func splitPath(path string) []string {
    return strings.Split(path, ".")
}

// lookupPath walks a dotted path through nested maps.  The second return
// is false when any segment is missing or not a map.
func lookupPath(data map[string]any, path string) (any, bool) {
    segs := splitPath(path)
    cur := any(data)
    for _, seg := range segs {
        m, ok := cur.(map[string]any)
        if !ok {
            return nil, false
        }
        cur, ok = m[seg]
        if !ok {
            return nil, false
        }
    }
    return cur, true
}

// applyFieldOps mutates data in place according to ops.  Intermediate maps
// are created on demand.  Array values must be comparable; participant ids
// and the other array payloads in this system are strings.
func applyFieldOps(data map[string]any, ops []FieldOp) {
    for _, op := range ops {
        segs := splitPath(op.Path)
        parent := data
        for _, seg := range segs[:len(segs)-1] {
            next, ok := parent[seg].(map[string]any)
            if !ok {
                next = map[string]any{}
                parent[seg] = next
            }
            parent = next
        }
        leaf := segs[len(segs)-1]
        switch op.Kind {
        case OpSet:
            parent[leaf] = op.Value
        case OpArrayUnion:
            arr := toAnySlice(parent[leaf])
            for _, v := range op.Values {
                if !sliceContains(arr, v) {
                    arr = append(arr, v)
                }
            }
            parent[leaf] = arr
        case OpArrayRemove:
            arr := toAnySlice(parent[leaf])
            kept := arr[:0]
            for _, existing := range arr {
                if !sliceContains(op.Values, existing) {
                    kept = append(kept, existing)
                }
            }
            parent[leaf] = append([]any{}, kept...)
        }
    }
}

// matchFilters reports whether a document satisfies every filter.
func matchFilters(data map[string]any, filters []Filter) bool {
    for _, f := range filters {
        val, ok := lookupPath(data, f.Field)
        if !ok {
            return false
        }
        switch f.Op {
        case "==":
            if !valuesEqual(val, f.Value) {
                return false
            }
        case "array-contains":
            if !sliceContains(toAnySlice(val), f.Value) {
                return false
            }
        case "prefix":
            s, sok := val.(string)
            want, wok := f.Value.(string)
            if !sok || !wok || !strings.HasPrefix(s, want) {
                return false
            }
        default:
            return false
        }
    }
    return true
}

func toAnySlice(v any) []any {
    switch arr := v.(type) {
    case nil:
        return []any{}
    case []any:
        return arr
    case []string:
        out := make([]any, len(arr))
        for i, s := range arr {
            out[i] = s
        }
        return out
    default:
        return []any{}
    }
}

func sliceContains(arr []any, v any) bool {
    for _, existing := range arr {
        if valuesEqual(existing, v) {
            return true
        }
    }
    return false
}

// valuesEqual compares two scalar values, treating every numeric type as
// float64 so that values round-tripped through JSON still match their
// in-memory counterparts.
func valuesEqual(a, b any) bool {
    if fa, ok := toFloat(a); ok {
        if fb, ok := toFloat(b); ok {
            return fa == fb
        }
        return false
    }
    return a == b
}

func toFloat(v any) (float64, bool) {
    switch n := v.(type) {
    case float64:
        return n, true
    case float32:
        return float64(n), true
    case int:
        return float64(n), true
    case int32:
        return float64(n), true
    case int64:
        return float64(n), true
    case uint64:
        return float64(n), true
    default:
        return 0, false
    }
}

// copyValue deep-copies a document value so snapshots handed to callers
// and subscribers are isolated from the store's internal state.
func copyValue(v any) any {
    switch val := v.(type) {
    case map[string]any:
        out := make(map[string]any, len(val))
        for k, inner := range val {
            out[k] = copyValue(inner)
        }
        return out
    case []any:
        out := make([]any, len(val))
        for i, inner := range val {
            out[i] = copyValue(inner)
        }
        return out
    default:
        return val
    }
}

func copyData(data map[string]any) map[string]any {
    if data == nil {
        return nil
    }
    return copyValue(data).(map[string]any)
}

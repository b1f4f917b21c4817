// Package queue defines message payloads exchanged over the message broker.
package queue

// SlotActivityEvent is published when a slot signup or cancellation has
// been confirmed against the store. It contains enough information for
// downstream consumers to log, notify, or trigger analytics without
// querying the document store.
type SlotActivityEvent struct {
    CourtID    string `json:"court_id"`
    CourtName  string `json:"court_name"`
    SlotKey    string `json:"slot_key"`
    UserID     string `json:"user_id"`
    Action     string `json:"action"` // "signup" or "cancel"
    OccurredAt string `json:"occurred_at"`
}

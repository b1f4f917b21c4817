package model

import "time"

// FriendRequest is a directed, pending proposal from one user to another.
// At most one pending request exists per ordered (sender, receiver) pair,
// and a request in the reverse direction blocks creation of a new one.
// Requests are destroyed, not archived, on accept or reject.
//
// Fields:
//  ID         – document id in the `friendRequests` collection.
//  SenderID   – user who sent the request.
//  ReceiverID – user the request is addressed to.
//  Status     – always "pending"; terminal transitions delete the record.
//  CreatedAt  – when the request was sent.
//  Sender     – resolved sender profile, populated for incoming listings.
type FriendRequest struct {
    ID         string    `json:"id"`
    SenderID   string    `json:"sender_id"`
    ReceiverID string    `json:"receiver_id"`
    Status     string    `json:"status"`
    CreatedAt  time.Time `json:"created_at"`
    Sender     *Profile  `json:"sender,omitempty"`
}

// Friendship is a confirmed, symmetric relationship.  Users holds the
// unordered pair; querying by either member must surface the record, and
// at most one accepted friendship exists per pair.
//
// Fields:
//  ID        – document id in the `friendships` collection.
//  Users     – the two member user ids, order not significant.
//  Status    – always "accepted".
//  CreatedAt – when the originating request was accepted.
type Friendship struct {
    ID        string    `json:"id"`
    Users     [2]string `json:"users"`
    Status    string    `json:"status"`
    CreatedAt time.Time `json:"created_at"`
}

// Other returns the member of the pair that is not userID, or "" when
// userID is not a member.
func (f Friendship) Other(userID string) string {
    switch userID {
    case f.Users[0]:
        return f.Users[1]
    case f.Users[1]:
        return f.Users[0]
    }
    return ""
}

// ActiveFriend is the derived, non-persistent presence view: one friend
// currently signed up for a slot whose time window contains "now".  Its
// correctness depends only on the ledger and friendship state at query
// time; it is recomputed on demand and never stored.
//
// Fields:
//  Friend      – the friend's resolved profile.
//  Court       – where the friend is playing.
//  SlotKey     – the matching slot.
//  WindowStart – start of the slot's time window.
//  WindowEnd   – end of the slot's time window.
type ActiveFriend struct {
    Friend      Profile   `json:"friend"`
    Court       Court     `json:"court"`
    SlotKey     string    `json:"slot_key"`
    WindowStart time.Time `json:"window_start"`
    WindowEnd   time.Time `json:"window_end"`
}

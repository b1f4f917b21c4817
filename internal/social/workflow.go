// Package social implements the friend-request workflow: a state machine
// per user pair over {none, pending-outgoing, pending-incoming, friends},
// stored as two document collections.  Requests are directed and pending;
// friendships are symmetric and accepted.  Accepting deletes the request
// and creates the friendship; the transition spans two writes and is
// designed to be re-driven to convergence rather than rolled back.
package social

import (
    "context"
    "errors"
    "fmt"
    "sort"
    "strings"
    "time"

    "github.com/openhoops/court-reservation/internal/docstore"
    "github.com/openhoops/court-reservation/internal/model"
)

const (
    requestsCollection    = "friendRequests"
    friendshipsCollection = "friendships"

    statusPending  = "pending"
    statusAccepted = "accepted"
)

// ErrUserNotFound is returned when no account matches the given email.
var ErrUserNotFound = errors.New("user not found")

// ErrSelfRequest is returned when a user tries to befriend themselves.
var ErrSelfRequest = errors.New("cannot send a friend request to yourself")

// ErrAlreadyFriends is returned when a friendship already exists for the
// pair.
var ErrAlreadyFriends = errors.New("already friends")

// ErrDuplicateRequest is returned when a pending request already exists in
// the same direction.
var ErrDuplicateRequest = errors.New("friend request already sent")

// ErrReciprocalRequest is returned when the receiver has already sent the
// sender a pending request.  The caller should accept that request instead
// of creating a second pending record.
var ErrReciprocalRequest = errors.New("this user has already sent you a friend request")

// ErrRequestNotFound is returned by Accept when the request is absent.
var ErrRequestNotFound = errors.New("friend request not found")

// ErrFriendshipNotFound is returned by Remove when the pair has no
// friendship.
var ErrFriendshipNotFound = errors.New("friendship not found")

// Directory resolves user accounts.  The identity registry implements it;
// tests substitute a fixture.  FindByEmail reports an absent account with
// an error matching docstore.ErrNotFound.
type Directory interface {
    FindByEmail(ctx context.Context, email string) (model.Profile, error)
    Get(ctx context.Context, id string) (model.Profile, error)
}

// Workflow drives all friend-graph transitions against the document store.
type Workflow struct {
    store docstore.Store
    dir   Directory
}

// NewWorkflow returns a Workflow over the given store and directory.
func NewWorkflow(store docstore.Store, dir Directory) *Workflow {
    return &Workflow{store: store, dir: dir}
}

// SendRequest creates a pending friend request from sender to the user
// registered under receiverEmail.  It enforces, in order: the receiver
// exists (ErrUserNotFound), is not the sender (ErrSelfRequest), is not
// already a friend (ErrAlreadyFriends), has no pending request from the
// sender (ErrDuplicateRequest) and has not already sent one back
// (ErrReciprocalRequest).  On success the receiver's profile is returned.
func (w *Workflow) SendRequest(ctx context.Context, senderID, receiverEmail string) (model.Profile, error) {
    if senderID == "" || strings.TrimSpace(receiverEmail) == "" {
        return model.Profile{}, fmt.Errorf("sender id and receiver email are required")
    }
    receiver, err := w.dir.FindByEmail(ctx, receiverEmail)
    if errors.Is(err, docstore.ErrNotFound) {
        return model.Profile{}, ErrUserNotFound
    }
    if err != nil {
        return model.Profile{}, err
    }
    if receiver.ID == senderID {
        return model.Profile{}, ErrSelfRequest
    }

    if _, err := w.friendshipFor(ctx, senderID, receiver.ID); err == nil {
        return model.Profile{}, ErrAlreadyFriends
    } else if !errors.Is(err, ErrFriendshipNotFound) {
        return model.Profile{}, err
    }

    outgoing, err := w.pendingBetween(ctx, senderID, receiver.ID)
    if err != nil {
        return model.Profile{}, err
    }
    if len(outgoing) > 0 {
        return model.Profile{}, ErrDuplicateRequest
    }
    incoming, err := w.pendingBetween(ctx, receiver.ID, senderID)
    if err != nil {
        return model.Profile{}, err
    }
    if len(incoming) > 0 {
        return model.Profile{}, ErrReciprocalRequest
    }

    _, err = w.store.Add(ctx, requestsCollection, map[string]any{
        "senderId":   senderID,
        "receiverId": receiver.ID,
        "status":     statusPending,
        "createdAt":  time.Now().UTC().Format(time.RFC3339),
    })
    if err != nil {
        return model.Profile{}, err
    }
    return receiver, nil
}

// Accept turns a pending request into a friendship.  The transition is
// two writes with no transaction spanning them: create the friendship,
// then delete the request.  Partial completion self-heals — re-running
// Accept on a pair that already has a friendship only deletes the stale
// request, never creates a second friendship.  An absent request yields
// ErrRequestNotFound.
func (w *Workflow) Accept(ctx context.Context, requestID string) error {
    doc, err := w.store.Get(ctx, requestsCollection, requestID)
    if errors.Is(err, docstore.ErrNotFound) {
        return ErrRequestNotFound
    }
    if err != nil {
        return err
    }
    senderID, _ := doc.Data["senderId"].(string)
    receiverID, _ := doc.Data["receiverId"].(string)

    if _, err := w.friendshipFor(ctx, senderID, receiverID); errors.Is(err, ErrFriendshipNotFound) {
        _, err = w.store.Add(ctx, friendshipsCollection, map[string]any{
            "users":     []any{senderID, receiverID},
            "status":    statusAccepted,
            "createdAt": time.Now().UTC().Format(time.RFC3339),
        })
        if err != nil {
            return err
        }
    } else if err != nil {
        return err
    }

    return w.store.Delete(ctx, requestsCollection, requestID)
}

// Reject deletes a pending request without creating a friendship.
// Rejecting an already-gone request is a no-op success.
func (w *Workflow) Reject(ctx context.Context, requestID string) error {
    return w.store.Delete(ctx, requestsCollection, requestID)
}

// Remove deletes the friendship containing both users, returning the pair
// to the no-relationship state.  Either member may remove it.
func (w *Workflow) Remove(ctx context.Context, userID, friendID string) error {
    f, err := w.friendshipFor(ctx, userID, friendID)
    if err != nil {
        return err
    }
    return w.store.Delete(ctx, friendshipsCollection, f.ID)
}

// ListFriends returns the resolved profiles of every friend of userID,
// sorted by display name for deterministic output.  Pure projection, no
// side effects.
func (w *Workflow) ListFriends(ctx context.Context, userID string) ([]model.Profile, error) {
    docs, err := w.store.Query(ctx, friendshipsCollection,
        docstore.Where("users", "array-contains", userID),
        docstore.Where("status", "==", statusAccepted),
    )
    if err != nil {
        return nil, err
    }
    friends := make([]model.Profile, 0, len(docs))
    for _, doc := range docs {
        f := friendshipFromDoc(doc)
        otherID := f.Other(userID)
        if otherID == "" {
            continue
        }
        p, err := w.dir.Get(ctx, otherID)
        if err != nil {
            return nil, err
        }
        friends = append(friends, p)
    }
    sort.Slice(friends, func(i, j int) bool { return friends[i].DisplayName < friends[j].DisplayName })
    return friends, nil
}

// FriendIDs returns just the friend user ids for userID.  The presence
// aggregator joins this set against live reservations.
func (w *Workflow) FriendIDs(ctx context.Context, userID string) ([]string, error) {
    docs, err := w.store.Query(ctx, friendshipsCollection,
        docstore.Where("users", "array-contains", userID),
        docstore.Where("status", "==", statusAccepted),
    )
    if err != nil {
        return nil, err
    }
    ids := make([]string, 0, len(docs))
    for _, doc := range docs {
        if other := friendshipFromDoc(doc).Other(userID); other != "" {
            ids = append(ids, other)
        }
    }
    sort.Strings(ids)
    return ids, nil
}

// ListPendingIncoming returns the pending requests addressed to userID
// with sender profiles resolved, newest first.
func (w *Workflow) ListPendingIncoming(ctx context.Context, userID string) ([]model.FriendRequest, error) {
    docs, err := w.store.Query(ctx, requestsCollection,
        docstore.Where("receiverId", "==", userID),
        docstore.Where("status", "==", statusPending),
    )
    if err != nil {
        return nil, err
    }
    return w.resolveRequests(ctx, docs), nil
}

// SubscribePendingIncoming delivers the current pending incoming set for
// userID immediately and again whenever requests are created or removed.
func (w *Workflow) SubscribePendingIncoming(userID string, fn func([]model.FriendRequest)) docstore.UnsubscribeFunc {
    filters := []docstore.Filter{
        docstore.Where("receiverId", "==", userID),
        docstore.Where("status", "==", statusPending),
    }
    return w.store.SubscribeQuery(requestsCollection, filters, func(docs []docstore.Document) {
        fn(w.resolveRequests(context.Background(), docs))
    })
}

func (w *Workflow) resolveRequests(ctx context.Context, docs []docstore.Document) []model.FriendRequest {
    out := make([]model.FriendRequest, 0, len(docs))
    for _, doc := range docs {
        req := requestFromDoc(doc)
        if p, err := w.dir.Get(ctx, req.SenderID); err == nil {
            req.Sender = &p
        }
        out = append(out, req)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
    return out
}

// friendshipFor finds the accepted friendship containing both users, or
// ErrFriendshipNotFound.
func (w *Workflow) friendshipFor(ctx context.Context, userID, friendID string) (model.Friendship, error) {
    docs, err := w.store.Query(ctx, friendshipsCollection,
        docstore.Where("users", "array-contains", userID),
        docstore.Where("status", "==", statusAccepted),
    )
    if err != nil {
        return model.Friendship{}, err
    }
    for _, doc := range docs {
        f := friendshipFromDoc(doc)
        if f.Other(userID) == friendID {
            return f, nil
        }
    }
    return model.Friendship{}, ErrFriendshipNotFound
}

func (w *Workflow) pendingBetween(ctx context.Context, senderID, receiverID string) ([]docstore.Document, error) {
    return w.store.Query(ctx, requestsCollection,
        docstore.Where("senderId", "==", senderID),
        docstore.Where("receiverId", "==", receiverID),
        docstore.Where("status", "==", statusPending),
    )
}

func requestFromDoc(doc docstore.Document) model.FriendRequest {
    req := model.FriendRequest{ID: doc.ID, Status: statusPending}
    req.SenderID, _ = doc.Data["senderId"].(string)
    req.ReceiverID, _ = doc.Data["receiverId"].(string)
    if raw, ok := doc.Data["createdAt"].(string); ok {
        if t, err := time.Parse(time.RFC3339, raw); err == nil {
            req.CreatedAt = t
        }
    }
    return req
}

func friendshipFromDoc(doc docstore.Document) model.Friendship {
    f := model.Friendship{ID: doc.ID, Status: statusAccepted}
    users := make([]string, 0, 2)
    switch arr := doc.Data["users"].(type) {
    case []any:
        for _, v := range arr {
            if s, ok := v.(string); ok {
                users = append(users, s)
            }
        }
    case []string:
        users = append(users, arr...)
    }
    if len(users) == 2 {
        f.Users = [2]string{users[0], users[1]}
    }
    if raw, ok := doc.Data["createdAt"].(string); ok {
        if t, err := time.Parse(time.RFC3339, raw); err == nil {
            f.CreatedAt = t
        }
    }
    return f
}

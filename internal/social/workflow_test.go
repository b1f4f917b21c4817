package social

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "testing"

    "github.com/openhoops/court-reservation/internal/docstore"
    "github.com/openhoops/court-reservation/internal/model"
)

// fakeDirectory serves a fixed set of profiles keyed by id.
type fakeDirectory struct {
    users map[string]model.Profile
}

func newFakeDirectory(profiles ...model.Profile) *fakeDirectory {
    d := &fakeDirectory{users: make(map[string]model.Profile)}
    for _, p := range profiles {
        d.users[p.ID] = p
    }
    return d
}

func (d *fakeDirectory) FindByEmail(_ context.Context, email string) (model.Profile, error) {
    for _, p := range d.users {
        if strings.EqualFold(p.Email, email) {
            return p, nil
        }
    }
    return model.Profile{}, fmt.Errorf("%w: email %s", docstore.ErrNotFound, email)
}

func (d *fakeDirectory) Get(_ context.Context, id string) (model.Profile, error) {
    p, ok := d.users[id]
    if !ok {
        return model.Profile{}, fmt.Errorf("%w: user %s", docstore.ErrNotFound, id)
    }
    return p, nil
}

func testWorkflow(t *testing.T) (*Workflow, docstore.Store) {
    t.Helper()
    store := docstore.NewMemoryStore()
    dir := newFakeDirectory(
        model.Profile{ID: "alice", Email: "alice@example.com", DisplayName: "Alice"},
        model.Profile{ID: "bob", Email: "bob@example.com", DisplayName: "Bob"},
        model.Profile{ID: "carol", Email: "carol@example.com", DisplayName: "Carol"},
    )
    return NewWorkflow(store, dir), store
}

// sendAndAccept drives the happy path: alice asks, bob accepts.
func sendAndAccept(t *testing.T, w *Workflow, senderID, receiverEmail, receiverID string) {
    t.Helper()
    ctx := context.Background()
    if _, err := w.SendRequest(ctx, senderID, receiverEmail); err != nil {
        t.Fatalf("SendRequest() error: %v", err)
    }
    reqs, err := w.ListPendingIncoming(ctx, receiverID)
    if err != nil {
        t.Fatalf("ListPendingIncoming() error: %v", err)
    }
    if len(reqs) != 1 {
        t.Fatalf("pending requests = %d, want 1", len(reqs))
    }
    if err := w.Accept(ctx, reqs[0].ID); err != nil {
        t.Fatalf("Accept() error: %v", err)
    }
}

func TestSendRequestValidation(t *testing.T) {
    t.Parallel()
    ctx := context.Background()
    w, _ := testWorkflow(t)

    if _, err := w.SendRequest(ctx, "alice", "nobody@example.com"); !errors.Is(err, ErrUserNotFound) {
        t.Errorf("unknown email: got %v, want ErrUserNotFound", err)
    }
    if _, err := w.SendRequest(ctx, "alice", "alice@example.com"); !errors.Is(err, ErrSelfRequest) {
        t.Errorf("self request: got %v, want ErrSelfRequest", err)
    }
}

func TestSendRequestDuplicateAndReciprocal(t *testing.T) {
    t.Parallel()
    ctx := context.Background()
    w, _ := testWorkflow(t)

    if _, err := w.SendRequest(ctx, "alice", "bob@example.com"); err != nil {
        t.Fatalf("SendRequest() error: %v", err)
    }
    if _, err := w.SendRequest(ctx, "alice", "bob@example.com"); !errors.Is(err, ErrDuplicateRequest) {
        t.Errorf("repeat send: got %v, want ErrDuplicateRequest", err)
    }
    if _, err := w.SendRequest(ctx, "bob", "alice@example.com"); !errors.Is(err, ErrReciprocalRequest) {
        t.Errorf("reverse send: got %v, want ErrReciprocalRequest", err)
    }
}

func TestAcceptCreatesFriendship(t *testing.T) {
    t.Parallel()
    ctx := context.Background()
    w, _ := testWorkflow(t)

    sendAndAccept(t, w, "alice", "bob@example.com", "bob")

    for _, tc := range []struct{ user, friend string }{
        {"alice", "Bob"},
        {"bob", "Alice"},
    } {
        friends, err := w.ListFriends(ctx, tc.user)
        if err != nil {
            t.Fatalf("ListFriends(%s) error: %v", tc.user, err)
        }
        if len(friends) != 1 || friends[0].DisplayName != tc.friend {
            t.Errorf("ListFriends(%s) = %v, want [%s]", tc.user, friends, tc.friend)
        }
    }

    // The request is consumed.
    reqs, err := w.ListPendingIncoming(ctx, "bob")
    if err != nil {
        t.Fatalf("ListPendingIncoming() error: %v", err)
    }
    if len(reqs) != 0 {
        t.Errorf("pending after accept = %d, want 0", len(reqs))
    }

    // Further requests in either direction are rejected.
    if _, err := w.SendRequest(ctx, "alice", "bob@example.com"); !errors.Is(err, ErrAlreadyFriends) {
        t.Errorf("send to friend: got %v, want ErrAlreadyFriends", err)
    }
    if _, err := w.SendRequest(ctx, "bob", "alice@example.com"); !errors.Is(err, ErrAlreadyFriends) {
        t.Errorf("send to friend (reverse): got %v, want ErrAlreadyFriends", err)
    }
}

func TestAcceptMissingRequest(t *testing.T) {
    t.Parallel()
    w, _ := testWorkflow(t)
    if err := w.Accept(context.Background(), "no-such-request"); !errors.Is(err, ErrRequestNotFound) {
        t.Fatalf("Accept() = %v, want ErrRequestNotFound", err)
    }
}

func TestAcceptIsSelfHealing(t *testing.T) {
    t.Parallel()
    ctx := context.Background()
    w, store := testWorkflow(t)

    if _, err := w.SendRequest(ctx, "alice", "bob@example.com"); err != nil {
        t.Fatalf("SendRequest() error: %v", err)
    }
    reqs, _ := w.ListPendingIncoming(ctx, "bob")
    if len(reqs) != 1 {
        t.Fatalf("pending requests = %d, want 1", len(reqs))
    }

    // Simulate a crash between the two Accept writes: the friendship is
    // created but the request survives.
    if _, err := store.Add(ctx, "friendships", map[string]any{
        "users":  []any{"alice", "bob"},
        "status": "accepted",
    }); err != nil {
        t.Fatalf("Add() error: %v", err)
    }

    // Re-driving Accept converges: it deletes the stale request without
    // duplicating the friendship.
    if err := w.Accept(ctx, reqs[0].ID); err != nil {
        t.Fatalf("Accept() error: %v", err)
    }
    docs, err := store.Query(ctx, "friendships", docstore.Where("users", "array-contains", "alice"))
    if err != nil {
        t.Fatalf("Query() error: %v", err)
    }
    if len(docs) != 1 {
        t.Fatalf("friendships = %d, want 1", len(docs))
    }
    left, _ := w.ListPendingIncoming(ctx, "bob")
    if len(left) != 0 {
        t.Fatalf("pending after accept = %d, want 0", len(left))
    }
}

func TestRejectDropsRequest(t *testing.T) {
    t.Parallel()
    ctx := context.Background()
    w, _ := testWorkflow(t)

    if _, err := w.SendRequest(ctx, "alice", "bob@example.com"); err != nil {
        t.Fatalf("SendRequest() error: %v", err)
    }
    reqs, _ := w.ListPendingIncoming(ctx, "bob")
    if err := w.Reject(ctx, reqs[0].ID); err != nil {
        t.Fatalf("Reject() error: %v", err)
    }
    left, _ := w.ListPendingIncoming(ctx, "bob")
    if len(left) != 0 {
        t.Errorf("pending after reject = %d, want 0", len(left))
    }
    friends, _ := w.ListFriends(ctx, "bob")
    if len(friends) != 0 {
        t.Errorf("friends after reject = %v, want none", friends)
    }
    // The pair can try again.
    if _, err := w.SendRequest(ctx, "alice", "bob@example.com"); err != nil {
        t.Errorf("SendRequest() after reject error: %v", err)
    }
    // Rejecting an already-gone request is fine.
    if err := w.Reject(ctx, reqs[0].ID); err != nil {
        t.Errorf("repeat Reject() error: %v", err)
    }
}

func TestRemoveFriendship(t *testing.T) {
    t.Parallel()
    ctx := context.Background()
    w, _ := testWorkflow(t)

    sendAndAccept(t, w, "alice", "bob@example.com", "bob")

    if err := w.Remove(ctx, "bob", "alice"); err != nil {
        t.Fatalf("Remove() error: %v", err)
    }
    for _, user := range []string{"alice", "bob"} {
        friends, _ := w.ListFriends(ctx, user)
        if len(friends) != 0 {
            t.Errorf("ListFriends(%s) after remove = %v, want none", user, friends)
        }
    }
    if err := w.Remove(ctx, "bob", "alice"); !errors.Is(err, ErrFriendshipNotFound) {
        t.Errorf("repeat Remove() = %v, want ErrFriendshipNotFound", err)
    }
    // The pair may start over.
    if _, err := w.SendRequest(ctx, "bob", "alice@example.com"); err != nil {
        t.Errorf("SendRequest() after remove error: %v", err)
    }
}

func TestListFriendsSortedAcrossPairs(t *testing.T) {
    t.Parallel()
    ctx := context.Background()
    w, _ := testWorkflow(t)

    sendAndAccept(t, w, "carol", "alice@example.com", "alice")
    sendAndAccept(t, w, "bob", "alice@example.com", "alice")

    friends, err := w.ListFriends(ctx, "alice")
    if err != nil {
        t.Fatalf("ListFriends() error: %v", err)
    }
    if len(friends) != 2 || friends[0].DisplayName != "Bob" || friends[1].DisplayName != "Carol" {
        t.Fatalf("ListFriends(alice) = %v, want [Bob Carol]", friends)
    }

    ids, err := w.FriendIDs(ctx, "alice")
    if err != nil {
        t.Fatalf("FriendIDs() error: %v", err)
    }
    if len(ids) != 2 || ids[0] != "bob" || ids[1] != "carol" {
        t.Fatalf("FriendIDs(alice) = %v, want [bob carol]", ids)
    }
}

func TestListPendingIncomingResolvesSenders(t *testing.T) {
    t.Parallel()
    ctx := context.Background()
    w, _ := testWorkflow(t)

    if _, err := w.SendRequest(ctx, "bob", "alice@example.com"); err != nil {
        t.Fatalf("SendRequest() error: %v", err)
    }
    if _, err := w.SendRequest(ctx, "carol", "alice@example.com"); err != nil {
        t.Fatalf("SendRequest() error: %v", err)
    }

    reqs, err := w.ListPendingIncoming(ctx, "alice")
    if err != nil {
        t.Fatalf("ListPendingIncoming() error: %v", err)
    }
    if len(reqs) != 2 {
        t.Fatalf("pending = %d, want 2", len(reqs))
    }
    for _, r := range reqs {
        if r.Sender == nil {
            t.Errorf("request %s has no resolved sender", r.ID)
        } else if r.Sender.ID != r.SenderID {
            t.Errorf("sender profile %s does not match senderId %s", r.Sender.ID, r.SenderID)
        }
    }
    // The sender sees nothing incoming.
    out, _ := w.ListPendingIncoming(ctx, "bob")
    if len(out) != 0 {
        t.Errorf("bob pending = %d, want 0", len(out))
    }
}

func TestSubscribePendingIncoming(t *testing.T) {
    t.Parallel()
    ctx := context.Background()
    w, _ := testWorkflow(t)

    var last []model.FriendRequest
    calls := 0
    unsub := w.SubscribePendingIncoming("bob", func(reqs []model.FriendRequest) {
        last = reqs
        calls++
    })
    defer unsub()

    if calls == 0 {
        t.Fatal("no initial delivery")
    }
    if len(last) != 0 {
        t.Fatalf("initial pending = %v, want empty", last)
    }

    if _, err := w.SendRequest(ctx, "alice", "bob@example.com"); err != nil {
        t.Fatalf("SendRequest() error: %v", err)
    }
    if len(last) != 1 || last[0].SenderID != "alice" {
        t.Fatalf("pending after send = %v, want one from alice", last)
    }

    if err := w.Accept(ctx, last[0].ID); err != nil {
        t.Fatalf("Accept() error: %v", err)
    }
    if len(last) != 0 {
        t.Fatalf("pending after accept = %v, want empty", last)
    }

    unsub()
    seen := calls
    if _, err := w.SendRequest(ctx, "carol", "bob@example.com"); err != nil {
        t.Fatalf("SendRequest() error: %v", err)
    }
    if calls != seen {
        t.Fatal("callback fired after unsubscribe")
    }
}

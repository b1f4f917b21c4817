package identity

import (
    "context"
    "errors"
    "testing"

    "github.com/openhoops/court-reservation/internal/docstore"
)

// A low bcrypt cost keeps the suite fast; production cost comes from
// configuration.
func testRegistry() *Registry {
    return NewRegistry(docstore.NewMemoryStore(), 4, 30)
}

func TestRegisterAndAuthenticate(t *testing.T) {
    t.Parallel()
    ctx := context.Background()
    r := testRegistry()

    p, err := r.Register(ctx, "Alice@Example.com", "Alice", "hunter2hunter2")
    if err != nil {
        t.Fatalf("Register() error: %v", err)
    }
    if p.Email != "alice@example.com" {
        t.Errorf("email = %q, want lowercased", p.Email)
    }
    if p.ID == "" {
        t.Error("empty profile id")
    }

    got, err := r.Authenticate(ctx, "alice@example.com", "hunter2hunter2")
    if err != nil {
        t.Fatalf("Authenticate() error: %v", err)
    }
    if got.ID != p.ID {
        t.Errorf("authenticated id = %q, want %q", got.ID, p.ID)
    }

    if _, err := r.Authenticate(ctx, "alice@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
        t.Errorf("wrong password: got %v, want ErrInvalidCredentials", err)
    }
    if _, err := r.Authenticate(ctx, "nobody@example.com", "hunter2hunter2"); !errors.Is(err, ErrInvalidCredentials) {
        t.Errorf("unknown email: got %v, want ErrInvalidCredentials", err)
    }
}

func TestRegisterRejectsBadInput(t *testing.T) {
    t.Parallel()
    ctx := context.Background()
    r := testRegistry()

    if _, err := r.Register(ctx, "alice@example.com", "", "short"); !errors.Is(err, ErrWeakPassword) {
        t.Errorf("short password: got %v, want ErrWeakPassword", err)
    }
    if _, err := r.Register(ctx, "not-an-email", "", "hunter2hunter2"); err == nil {
        t.Error("invalid email accepted")
    }

    if _, err := r.Register(ctx, "alice@example.com", "", "hunter2hunter2"); err != nil {
        t.Fatalf("Register() error: %v", err)
    }
    if _, err := r.Register(ctx, "ALICE@example.com", "", "hunter2hunter2"); !errors.Is(err, ErrEmailExists) {
        t.Errorf("duplicate email: got %v, want ErrEmailExists", err)
    }
}

func TestRegisterDefaultsDisplayName(t *testing.T) {
    t.Parallel()
    p, err := testRegistry().Register(context.Background(), "bob@example.com", "  ", "hunter2hunter2")
    if err != nil {
        t.Fatalf("Register() error: %v", err)
    }
    if p.DisplayName != "bob" {
        t.Errorf("display name = %q, want %q", p.DisplayName, "bob")
    }
}

func TestLookup(t *testing.T) {
    t.Parallel()
    ctx := context.Background()
    r := testRegistry()

    p, err := r.Register(ctx, "alice@example.com", "Alice", "hunter2hunter2")
    if err != nil {
        t.Fatalf("Register() error: %v", err)
    }

    byEmail, err := r.FindByEmail(ctx, " ALICE@example.com ")
    if err != nil {
        t.Fatalf("FindByEmail() error: %v", err)
    }
    if byEmail.ID != p.ID {
        t.Errorf("FindByEmail id = %q, want %q", byEmail.ID, p.ID)
    }
    if _, err := r.FindByEmail(ctx, "nobody@example.com"); !errors.Is(err, docstore.ErrNotFound) {
        t.Errorf("unknown email: got %v, want ErrNotFound", err)
    }

    byID, err := r.Get(ctx, p.ID)
    if err != nil {
        t.Fatalf("Get() error: %v", err)
    }
    if byID.DisplayName != "Alice" {
        t.Errorf("display name = %q, want Alice", byID.DisplayName)
    }
    if _, err := r.Get(ctx, "no-such-id"); !errors.Is(err, docstore.ErrNotFound) {
        t.Errorf("unknown id: got %v, want ErrNotFound", err)
    }
}

func TestSessionLifecycle(t *testing.T) {
    t.Parallel()
    ctx := context.Background()
    r := testRegistry()

    tok, err := r.CreateSession(ctx, "u1")
    if err != nil {
        t.Fatalf("CreateSession() error: %v", err)
    }
    if tok.Raw == "" {
        t.Fatal("empty refresh token")
    }

    userID, next, err := r.Refresh(ctx, tok.Raw)
    if err != nil {
        t.Fatalf("Refresh() error: %v", err)
    }
    if userID != "u1" {
        t.Errorf("refreshed user = %q, want u1", userID)
    }
    if next.Raw == tok.Raw {
        t.Error("refresh did not rotate the token")
    }

    // The consumed token is gone.
    if _, _, err := r.Refresh(ctx, tok.Raw); !errors.Is(err, ErrSessionExpired) {
        t.Errorf("reused token: got %v, want ErrSessionExpired", err)
    }

    if err := r.RevokeSession(ctx, next.Raw); err != nil {
        t.Fatalf("RevokeSession() error: %v", err)
    }
    if _, _, err := r.Refresh(ctx, next.Raw); !errors.Is(err, ErrSessionExpired) {
        t.Errorf("revoked token: got %v, want ErrSessionExpired", err)
    }
    // Revoking twice is fine.
    if err := r.RevokeSession(ctx, next.Raw); err != nil {
        t.Errorf("repeat RevokeSession() error: %v", err)
    }
}

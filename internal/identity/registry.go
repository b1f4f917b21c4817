// Package identity manages user accounts and sessions on top of the
// document store: registration with bcrypt-hashed passwords, credential
// checks, refresh-token sessions and profile lookup by id or email.
package identity

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/openhoops/court-reservation/internal/docstore"
    "github.com/openhoops/court-reservation/internal/model"
    "github.com/openhoops/court-reservation/internal/utils"
)

const (
    usersCollection    = "users"
    sessionsCollection = "sessions"
)

// ErrEmailExists is returned by Register when the email is already taken.
var ErrEmailExists = errors.New("email already registered")

// ErrInvalidCredentials is returned by Authenticate on a bad email or
// password, without revealing which.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrWeakPassword is returned by Register when the password is shorter
// than eight characters.
var ErrWeakPassword = errors.New("password must be at least 8 characters")

// ErrSessionExpired is returned by Refresh when the refresh token is
// unknown or past its expiry.
var ErrSessionExpired = errors.New("session expired")

// Registry performs all account operations.  BcryptCost and the refresh
// TTL come from configuration; the zero values are not usable, construct
// with NewRegistry.
type Registry struct {
    store      docstore.Store
    bcryptCost int
    refreshTTL int // days
}

// NewRegistry returns a Registry over the given store.
func NewRegistry(store docstore.Store, bcryptCost, refreshTTLDays int) *Registry {
    return &Registry{store: store, bcryptCost: bcryptCost, refreshTTL: refreshTTLDays}
}

// Register creates an account.  The email is normalized to lower case and
// must be unique; the display name defaults to the part of the email
// before the @ when blank.
func (r *Registry) Register(ctx context.Context, email, displayName, password string) (model.Profile, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    if email == "" || !strings.Contains(email, "@") {
        return model.Profile{}, fmt.Errorf("invalid email %q", email)
    }
    if len(password) < 8 {
        return model.Profile{}, ErrWeakPassword
    }
    if _, err := r.FindByEmail(ctx, email); err == nil {
        return model.Profile{}, ErrEmailExists
    } else if !errors.Is(err, docstore.ErrNotFound) {
        return model.Profile{}, err
    }

    displayName = strings.TrimSpace(displayName)
    if displayName == "" {
        displayName, _, _ = strings.Cut(email, "@")
    }
    hash, err := utils.HashPassword(password, r.bcryptCost)
    if err != nil {
        return model.Profile{}, err
    }

    now := time.Now().UTC()
    id := uuid.NewString()
    err = r.store.Set(ctx, usersCollection, id, map[string]any{
        "email":        email,
        "displayName":  displayName,
        "passwordHash": hash,
        "createdAt":    now.Format(time.RFC3339),
    }, false)
    if err != nil {
        return model.Profile{}, err
    }
    return model.Profile{ID: id, Email: email, DisplayName: displayName, CreatedAt: now}, nil
}

// Authenticate checks the credentials and returns the account's profile.
// Unknown email and wrong password are indistinguishable to the caller.
func (r *Registry) Authenticate(ctx context.Context, email, password string) (model.Profile, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    docs, err := r.store.Query(ctx, usersCollection, docstore.Where("email", "==", email))
    if err != nil {
        return model.Profile{}, err
    }
    if len(docs) == 0 {
        return model.Profile{}, ErrInvalidCredentials
    }
    hash, _ := docs[0].Data["passwordHash"].(string)
    if !utils.VerifyPassword(hash, password) {
        return model.Profile{}, ErrInvalidCredentials
    }
    return profileFromDoc(docs[0]), nil
}

// CreateSession mints a refresh token for the user and stores its hash.
func (r *Registry) CreateSession(ctx context.Context, userID string) (utils.RefreshToken, error) {
    tok, err := utils.NewRefreshToken(r.refreshTTL)
    if err != nil {
        return utils.RefreshToken{}, err
    }
    _, err = r.store.Add(ctx, sessionsCollection, map[string]any{
        "userId":    userID,
        "tokenHash": utils.HashRefreshRaw(tok.Raw),
        "expiresAt": tok.Exp.Format(time.RFC3339),
    })
    if err != nil {
        return utils.RefreshToken{}, err
    }
    return tok, nil
}

// Refresh resolves a raw refresh token to its user id, rotating the
// session: the old token is consumed and a new one is returned.  Expired
// or unknown tokens yield ErrSessionExpired.
func (r *Registry) Refresh(ctx context.Context, raw string) (string, utils.RefreshToken, error) {
    docs, err := r.store.Query(ctx, sessionsCollection,
        docstore.Where("tokenHash", "==", utils.HashRefreshRaw(raw)))
    if err != nil {
        return "", utils.RefreshToken{}, err
    }
    if len(docs) == 0 {
        return "", utils.RefreshToken{}, ErrSessionExpired
    }
    sess := docs[0]
    if rawExp, ok := sess.Data["expiresAt"].(string); ok {
        if exp, err := time.Parse(time.RFC3339, rawExp); err != nil || time.Now().UTC().After(exp) {
            _ = r.store.Delete(ctx, sessionsCollection, sess.ID)
            return "", utils.RefreshToken{}, ErrSessionExpired
        }
    }
    userID, _ := sess.Data["userId"].(string)
    if err := r.store.Delete(ctx, sessionsCollection, sess.ID); err != nil {
        return "", utils.RefreshToken{}, err
    }
    tok, err := r.CreateSession(ctx, userID)
    if err != nil {
        return "", utils.RefreshToken{}, err
    }
    return userID, tok, nil
}

// RevokeSession deletes the session matching the raw refresh token.
// Revoking an unknown token is a no-op.
func (r *Registry) RevokeSession(ctx context.Context, raw string) error {
    docs, err := r.store.Query(ctx, sessionsCollection,
        docstore.Where("tokenHash", "==", utils.HashRefreshRaw(raw)))
    if err != nil {
        return err
    }
    for _, d := range docs {
        if err := r.store.Delete(ctx, sessionsCollection, d.ID); err != nil {
            return err
        }
    }
    return nil
}

// FindByEmail returns the profile registered under email.  The not-found
// case matches docstore.ErrNotFound.
func (r *Registry) FindByEmail(ctx context.Context, email string) (model.Profile, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    docs, err := r.store.Query(ctx, usersCollection, docstore.Where("email", "==", email))
    if err != nil {
        return model.Profile{}, err
    }
    if len(docs) == 0 {
        return model.Profile{}, fmt.Errorf("%w: email %s", docstore.ErrNotFound, email)
    }
    return profileFromDoc(docs[0]), nil
}

// Get returns the profile for a user id.
func (r *Registry) Get(ctx context.Context, id string) (model.Profile, error) {
    doc, err := r.store.Get(ctx, usersCollection, id)
    if err != nil {
        return model.Profile{}, err
    }
    return profileFromDoc(doc), nil
}

func profileFromDoc(doc docstore.Document) model.Profile {
    p := model.Profile{ID: doc.ID}
    p.Email, _ = doc.Data["email"].(string)
    p.DisplayName, _ = doc.Data["displayName"].(string)
    if raw, ok := doc.Data["createdAt"].(string); ok {
        if t, err := time.Parse(time.RFC3339, raw); err == nil {
            p.CreatedAt = t
        }
    }
    return p
}

package handler

import (
    "context"  // provides context with cancellation for store calls
    "errors"   // sentinel error matching
    "net/http" // HTTP status codes and primitives
    "strings"  // string manipulation utilities
    "time"     // timeouts for store calls

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing

    "github.com/openhoops/court-reservation/internal/config"   // app configuration
    "github.com/openhoops/court-reservation/internal/docstore" // store sentinel errors
    "github.com/openhoops/court-reservation/internal/identity" // account registry
    "github.com/openhoops/court-reservation/internal/utils"    // helper functions (hashing, token issuing)
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Cfg   config.Config
    Users *identity.Registry
}

func NewAuthHandler(cfg config.Config, users *identity.Registry) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Users: users}
}

// ----- DTOs -----

type registerReq struct {
    Email       string `json:"email"`
    DisplayName string `json:"display_name"`
    Password    string `json:"password"`
}
type loginReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}
type refreshReq struct {
    RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}
type userPart struct {
    ID          string `json:"id"`
    Email       string `json:"email"`
    DisplayName string `json:"display_name"`
}
type authResp struct {
    User    userPart  `json:"user"`
    Access  tokenPart `json:"access"`
    Refresh tokenPart `json:"refresh"`
}

// Register: create user and return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if req.Email == "" || req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    p, err := h.Users.Register(ctx, req.Email, req.DisplayName, req.Password)
    if err != nil {
        switch {
        case errors.Is(err, identity.ErrEmailExists):
            return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
        case errors.Is(err, identity.ErrWeakPassword):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
        case errors.Is(err, docstore.ErrUnavailable):
            return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "store unavailable"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
    }

    return h.issueTokens(c, ctx, http.StatusCreated, p.ID, p.Email, p.DisplayName)
}

// Login: verify and return a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if req.Email == "" || req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    p, err := h.Users.Authenticate(ctx, req.Email, req.Password)
    if err != nil {
        if errors.Is(err, identity.ErrInvalidCredentials) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
        }
        if errors.Is(err, docstore.ErrUnavailable) {
            return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "store unavailable"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }

    return h.issueTokens(c, ctx, http.StatusOK, p.ID, p.Email, p.DisplayName)
}

// Refresh: validate by hash, revoke old, issue new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    userID, next, err := h.Users.Refresh(ctx, req.RefreshToken)
    if err != nil {
        if errors.Is(err, identity.ErrSessionExpired) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "session expired"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
    }

    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, userID, h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "access":  tokenPart{Token: access.Token, Expires: access.Exp},
        "refresh": tokenPart{Token: next.Raw, Expires: next.Exp},
    })
}

// Logout: invalidate the refresh token.  Always returns 204 for a
// well-formed request so logout is idempotent.
func (h *AuthHandler) Logout(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Users.RevokeSession(ctx, req.RefreshToken); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
    }
    return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
    userID, _ := c.Get("user_id").(string)
    if userID == "" {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    p, err := h.Users.Get(ctx, userID)
    if err != nil {
        if errors.Is(err, docstore.ErrNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, userPart{ID: p.ID, Email: p.Email, DisplayName: p.DisplayName})
}

// issueTokens mints the access/refresh pair and writes the auth response.
func (h *AuthHandler) issueTokens(c echo.Context, ctx context.Context, status int, id, email, name string) error {
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, id, h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    refresh, err := h.Users.CreateSession(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save refresh failed"})
    }
    return c.JSON(status, authResp{
        User:    userPart{ID: id, Email: email, DisplayName: name},
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
        Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
    })
}

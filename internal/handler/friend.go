package handler

import (
    "context"
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/openhoops/court-reservation/internal/middleware"
    "github.com/openhoops/court-reservation/internal/model"
    "github.com/openhoops/court-reservation/internal/presence"
    "github.com/openhoops/court-reservation/internal/social"
    "github.com/openhoops/court-reservation/internal/ws"
)

// FriendHandler serves the friend graph and presence endpoints.  Hub is
// optional; when present, friends are annotated with connection state
// and new requests are announced to the receiver's live connections.
type FriendHandler struct {
    Social   *social.Workflow
    Presence *presence.Aggregator
    Hub      *ws.Hub
}

func NewFriendHandler(w *social.Workflow, p *presence.Aggregator, hub *ws.Hub) *FriendHandler {
    return &FriendHandler{Social: w, Presence: p, Hub: hub}
}

type sendRequestReq struct {
    Email string `json:"email"`
}

// friendView is one friend in the listing, with live connection state.
type friendView struct {
    model.Profile
    Online bool `json:"online"`
}

// List returns the authenticated user's friends.
func (h *FriendHandler) List(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    friends, err := h.Social.ListFriends(ctx, middleware.UserID(c))
    if err != nil {
        return storeErr(c, err, "query failed")
    }
    views := make([]friendView, 0, len(friends))
    for _, f := range friends {
        views = append(views, friendView{
            Profile: f,
            Online:  h.Hub != nil && h.Hub.IsOnline(f.ID),
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"friends": views})
}

// Send creates a friend request addressed by email.
func (h *FriendHandler) Send(c echo.Context) error {
    var req sendRequestReq
    if err := c.Bind(&req); err != nil || req.Email == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    receiver, err := h.Social.SendRequest(ctx, middleware.UserID(c), req.Email)
    if err != nil {
        switch {
        case errors.Is(err, social.ErrUserNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
        case errors.Is(err, social.ErrSelfRequest):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
        case errors.Is(err, social.ErrAlreadyFriends),
            errors.Is(err, social.ErrDuplicateRequest),
            errors.Is(err, social.ErrReciprocalRequest):
            return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
        }
        return storeErr(c, err, "send failed")
    }

    // Nudge the receiver's live connections; their pending-request feed
    // carries the full record, this is just the knock on the door.
    if h.Hub != nil {
        h.Hub.SendToUser(receiver.ID, &ws.Message{
            Event: "friend_request_received",
            Data:  echo.Map{"sender_id": middleware.UserID(c)},
        })
    }
    return c.JSON(http.StatusCreated, echo.Map{"receiver": receiver})
}

// Pending returns the requests waiting for the authenticated user.
func (h *FriendHandler) Pending(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    reqs, err := h.Social.ListPendingIncoming(ctx, middleware.UserID(c))
    if err != nil {
        return storeErr(c, err, "query failed")
    }
    return c.JSON(http.StatusOK, echo.Map{"requests": reqs})
}

// Accept turns a pending request into a friendship.
func (h *FriendHandler) Accept(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Social.Accept(ctx, c.Param("id")); err != nil {
        if errors.Is(err, social.ErrRequestNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "friend request not found"})
        }
        return storeErr(c, err, "accept failed")
    }
    return c.NoContent(http.StatusNoContent)
}

// Reject drops a pending request.
func (h *FriendHandler) Reject(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Social.Reject(ctx, c.Param("id")); err != nil {
        return storeErr(c, err, "reject failed")
    }
    return c.NoContent(http.StatusNoContent)
}

// Remove deletes the friendship with the given user.
func (h *FriendHandler) Remove(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Social.Remove(ctx, middleware.UserID(c), c.Param("id")); err != nil {
        if errors.Is(err, social.ErrFriendshipNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "friendship not found"})
        }
        return storeErr(c, err, "remove failed")
    }
    return c.NoContent(http.StatusNoContent)
}

// Active returns friends currently signed up for a slot whose window
// contains the present moment.
func (h *FriendHandler) Active(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    active, err := h.Presence.ActiveFriends(ctx, middleware.UserID(c), time.Now().UTC())
    if err != nil {
        return storeErr(c, err, "query failed")
    }
    return c.JSON(http.StatusOK, echo.Map{"active": active})
}

package handler

import (
    "log"

    "github.com/labstack/echo/v4"

    "github.com/openhoops/court-reservation/internal/ledger"
    "github.com/openhoops/court-reservation/internal/middleware"
    "github.com/openhoops/court-reservation/internal/social"
    "github.com/openhoops/court-reservation/internal/ws"
)

// LiveHandler upgrades authenticated requests to websocket connections
// that stream court snapshots and pending friend requests.
type LiveHandler struct {
    Hub    *ws.Hub
    Ledger *ledger.Ledger
    Social *social.Workflow
}

func NewLiveHandler(hub *ws.Hub, l *ledger.Ledger, w *social.Workflow) *LiveHandler {
    return &LiveHandler{Hub: hub, Ledger: l, Social: w}
}

// Serve upgrades the connection.  JWT middleware must have run; the user
// id drives the friend-request feed and identifies the connection.
func (h *LiveHandler) Serve(c echo.Context) error {
    userID := middleware.UserID(c)
    if userID == "" {
        return echo.ErrUnauthorized
    }

    conn, err := ws.Upgrader.Upgrade(c.Response(), c.Request(), nil)
    if err != nil {
        log.Printf("websocket upgrade error: %v", err)
        return nil
    }

    client := ws.NewClient(h.Hub, conn, userID, h.Ledger, h.Social)
    h.Hub.Register(client)

    go client.WritePump()
    go client.ReadPump()
    return nil
}

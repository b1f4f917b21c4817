package handler

import (
    "context"
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/openhoops/court-reservation/internal/catalog"
    "github.com/openhoops/court-reservation/internal/docstore"
    "github.com/openhoops/court-reservation/internal/ledger"
    "github.com/openhoops/court-reservation/internal/middleware"
    "github.com/openhoops/court-reservation/internal/queue"
    queue_publisher "github.com/openhoops/court-reservation/internal/service"
)

// CourtHandler serves the court catalog and the slot reservation
// endpoints.
type CourtHandler struct {
    Catalog *catalog.Sync
    Ledger  *ledger.Ledger
    // PublishEvents enables best-effort slot activity publishing to the
    // message broker.
    PublishEvents bool
}

func NewCourtHandler(cat *catalog.Sync, l *ledger.Ledger, publish bool) *CourtHandler {
    return &CourtHandler{Catalog: cat, Ledger: l, PublishEvents: publish}
}

type refreshCatalogReq struct {
    Latitude  float64 `json:"latitude"`
    Longitude float64 `json:"longitude"`
    RadiusM   int     `json:"radius_m"`
}

// List returns courts matching the optional ?q= prefix query.
func (h *CourtHandler) List(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    courts, err := h.Catalog.Search(ctx, c.QueryParam("q"))
    if err != nil {
        return storeErr(c, err, "search failed")
    }
    return c.JSON(http.StatusOK, echo.Map{"courts": courts})
}

// Get returns one court with its full slot map.
func (h *CourtHandler) Get(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    court, err := h.Catalog.Get(ctx, c.Param("id"))
    if err != nil {
        if errors.Is(err, docstore.ErrNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "court not found"})
        }
        return storeErr(c, err, "query failed")
    }
    return c.JSON(http.StatusOK, court)
}

// Signup adds the authenticated user to a slot's participant set.
func (h *CourtHandler) Signup(c echo.Context) error {
    return h.mutate(c, "signup")
}

// Cancel removes the authenticated user from a slot's participant set.
func (h *CourtHandler) Cancel(c echo.Context) error {
    return h.mutate(c, "cancel")
}

func (h *CourtHandler) mutate(c echo.Context, action string) error {
    userID := middleware.UserID(c)
    courtID := c.Param("id")
    slotKey := c.Param("key")

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    var err error
    if action == "signup" {
        err = h.Ledger.Signup(ctx, courtID, slotKey, userID)
    } else {
        err = h.Ledger.Cancel(ctx, courtID, slotKey, userID)
    }
    if err != nil {
        switch {
        case errors.Is(err, ledger.ErrValidation):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
        case errors.Is(err, ledger.ErrAlreadyReserved), errors.Is(err, ledger.ErrNotReserved):
            return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
        case errors.Is(err, docstore.ErrUnavailable):
            return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "store unavailable"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": action + " failed"})
    }

    if h.PublishEvents {
        h.publishActivity(courtID, slotKey, userID, action)
    }

    snap, err := h.Ledger.View(ctx, courtID)
    if err != nil {
        return storeErr(c, err, "query failed")
    }
    return c.JSON(http.StatusOK, snap)
}

// publishActivity emits the slot event on a background goroutine; a broker
// outage must never fail the request.
func (h *CourtHandler) publishActivity(courtID, slotKey, userID, action string) {
    go func() {
        ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()

        name := ""
        if court, err := h.Catalog.Get(ctx, courtID); err == nil {
            name = court.Name
        }
        _ = queue_publisher.PublishSlotActivity(ctx, queue.SlotActivityEvent{
            CourtID:    courtID,
            CourtName:  name,
            SlotKey:    slotKey,
            UserID:     userID,
            Action:     action,
            OccurredAt: time.Now().UTC().Format(time.RFC3339),
        })
    }()
}

// Refresh pulls the catalog from the places provider around the given
// point.
func (h *CourtHandler) Refresh(c echo.Context) error {
    var req refreshCatalogReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.RadiusM <= 0 {
        req.RadiusM = 5000
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
    defer cancel()

    n, err := h.Catalog.RefreshNear(ctx, req.Latitude, req.Longitude, req.RadiusM)
    if err != nil {
        return c.JSON(http.StatusBadGateway, echo.Map{"error": "places provider failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"refreshed": n})
}

// storeErr maps a store failure to 503 or 500.
func storeErr(c echo.Context, err error, msg string) error {
    if errors.Is(err, docstore.ErrUnavailable) {
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "store unavailable"})
    }
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": msg})
}

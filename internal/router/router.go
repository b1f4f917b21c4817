package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing

    "github.com/openhoops/court-reservation/internal/handler"    // import the handlers that implement business logic
    "github.com/openhoops/court-reservation/internal/middleware" // import middleware for JWT authentication
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
    // The /healthz endpoint can be used by load balancers or monitoring
    // systems to verify that the service is up and running.
    e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes.  Unauthenticated
// operations live under /v1/auth, while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    g := e.Group("/v1/auth")
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)
    // Refresh rotates the refresh token and issues a new access token.
    g.POST("/refresh", a.Refresh)
    // Logout accepts a JSON body containing a `refresh_token` and
    // invalidates that token.  It does not require JWT authentication.
    g.POST("/logout", a.Logout)

    auth := e.Group("/v1")
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.GET("/me", a.Me)
}

// RegisterCourts registers the court catalog and reservation endpoints.
// Browsing is public; reserving requires a valid access token.
func RegisterCourts(e *echo.Echo, h *handler.CourtHandler, jwtSecret string) {
    // Public browse endpoints, no JWT required so guests can look around.
    e.GET("/v1/courts", h.List)
    e.GET("/v1/courts/:id", h.Get)

    auth := e.Group("/v1/courts")
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.POST("/refresh", h.Refresh)
    auth.POST("/:id/slots/:key/signup", h.Signup)
    auth.DELETE("/:id/slots/:key/signup", h.Cancel)
}

// RegisterFriends registers the friend graph and presence endpoints.
// Everything here is personal to the caller and requires a token.
func RegisterFriends(e *echo.Echo, h *handler.FriendHandler, jwtSecret string) {
    g := e.Group("/v1/friends")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.GET("", h.List)
    g.DELETE("/:id", h.Remove)
    g.GET("/active", h.Active)
    g.GET("/requests", h.Pending)
    g.POST("/requests", h.Send)
    g.POST("/requests/:id/accept", h.Accept)
    g.POST("/requests/:id/reject", h.Reject)
}

// RegisterLive registers the websocket endpoint streaming court snapshots
// and pending friend requests to the authenticated user.
func RegisterLive(e *echo.Echo, h *handler.LiveHandler, jwtSecret string) {
    g := e.Group("/v1/live")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.GET("", h.Serve)
}

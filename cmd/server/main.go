package main // Entry point package

import (
    "context"
    "log"  // Logging library
    "time" // Durations for background refresh

    "github.com/joho/godotenv"    // Load .env files in development
    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/openhoops/court-reservation/internal/catalog"
    "github.com/openhoops/court-reservation/internal/config"
    "github.com/openhoops/court-reservation/internal/database"
    "github.com/openhoops/court-reservation/internal/docstore"
    "github.com/openhoops/court-reservation/internal/handler"
    "github.com/openhoops/court-reservation/internal/identity"
    "github.com/openhoops/court-reservation/internal/ledger"
    "github.com/openhoops/court-reservation/internal/middleware"
    "github.com/openhoops/court-reservation/internal/places"
    "github.com/openhoops/court-reservation/internal/presence"
    "github.com/openhoops/court-reservation/internal/profile"
    "github.com/openhoops/court-reservation/internal/queue"
    "github.com/openhoops/court-reservation/internal/router"
    "github.com/openhoops/court-reservation/internal/social"
    "github.com/openhoops/court-reservation/internal/ws"
)

func main() {
    // Load .env when present; real deployments set env vars directly.
    _ = godotenv.Load()
    cfg := config.Load()

    store := openStore(cfg)

    // Redis is optional: a nil client disables profile caching.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Println("redis unavailable; profile caching disabled")
    }

    users := identity.NewRegistry(store, cfg.BcryptCost, cfg.RefreshTTLDays)
    profiles := profile.NewResolver(store, rdb, time.Duration(cfg.ProfileCacheTTLMin)*time.Minute)
    graph := social.NewWorkflow(store, users)
    courts := ledger.New(store)
    active := presence.NewAggregator(store, graph, profiles)

    var cat *catalog.Sync
    if cfg.PlacesBaseURL != "" {
        cat = catalog.NewSync(store, places.NewClient(cfg.PlacesBaseURL, cfg.PlacesAPIKey, nil), "")
    } else {
        // No provider configured: the catalog still serves search and
        // lookups over whatever courts exist in the store.
        cat = catalog.NewSync(store, nil, "")
        log.Println("places provider not configured; catalog refresh disabled")
    }

    hub := ws.NewHub()
    go hub.Run()

    // Background slot.activity consumer writes logs/slot.log.  It runs a
    // reconnect loop internally and never takes the server down.
    go func() {
        if err := queue.StartSlotConsumer(); err != nil {
            log.Printf("slot consumer stopped: %v", err)
        }
    }()

    if cfg.RefreshMin > 0 && cfg.PlacesBaseURL != "" {
        go cat.StartRefresher(context.Background(), cfg.HomeLat, cfg.HomeLng,
            cfg.SearchRadiusM, time.Duration(cfg.RefreshMin)*time.Minute)
    }

    e := echo.New()
    // Token-bucket rate limiting over Redis; a nil client turns it into a
    // pass-through.
    e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
    router.RegisterRoutes(e)
    router.RegisterAuth(e, handler.NewAuthHandler(cfg, users), cfg.JWTSecret)
    router.RegisterCourts(e, handler.NewCourtHandler(cat, courts, true), cfg.JWTSecret)
    router.RegisterFriends(e, handler.NewFriendHandler(graph, active, hub), cfg.JWTSecret)
    router.RegisterLive(e, handler.NewLiveHandler(hub, courts, graph), cfg.JWTSecret)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s, store=%s)", addr, cfg.Env, cfg.StoreEngine)

    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}

// openStore selects the document store engine from configuration.  The
// memory engine suits development and tests; mysql persists documents in
// a JSON column.
func openStore(cfg config.Config) docstore.Store {
    switch cfg.StoreEngine {
    case "mysql":
        db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
        if err != nil {
            log.Fatalf("open mysql: %v", err)
        }
        store := docstore.NewMySQLStore(db)
        ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        defer cancel()
        if err := store.EnsureSchema(ctx); err != nil {
            log.Fatalf("ensure schema: %v", err)
        }
        return store
    case "memory":
        return docstore.NewMemoryStore()
    default:
        log.Fatalf("unknown STORE_ENGINE %q (want memory or mysql)", cfg.StoreEngine)
        return nil
    }
}

package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and costs, floats for coordinates.
type Config struct {
    Env            string // application environment (e.g. "dev", "prod")
    Port           string // HTTP port to listen on
    StoreEngine    string // document store engine: "memory" or "mysql"
    DBUser         string // database username (mysql engine only)
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    JWTSecret      string // secret used to sign JWTs
    AccessTTLMin   int    // access token time‑to‑live in minutes
    RefreshTTLDays int    // refresh token time‑to‑live in days
    BcryptCost     int    // bcrypt cost for password hashing

    PlacesBaseURL string  // nearby-search endpoint of the places provider
    PlacesAPIKey  string  // API key for the places provider
    HomeLat       float64 // latitude the periodic catalog refresh centers on
    HomeLng       float64 // longitude the periodic catalog refresh centers on
    SearchRadiusM int     // catalog refresh radius in meters
    RefreshMin    int     // catalog refresh interval in minutes, 0 disables

    ProfileCacheTTLMin int // Redis profile cache TTL in minutes
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  The MySQL variables
// are only required when STORE_ENGINE selects the mysql engine, and the
// places variables only when a base URL is configured at all.
func Load() Config {
    cfg := Config{
        Env:            must("APP_ENV"),  // environment (dev/test/prod)
        Port:           must("APP_PORT"), // port to bind the HTTP server
        StoreEngine:    getenv("STORE_ENGINE", "memory"),
        JWTSecret:      must("JWT_SECRET"),                // secret used for signing JWTs
        AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),   // TTL for access tokens in minutes
        RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"), // TTL for refresh tokens in days
        BcryptCost:     mustInt("BCRYPT_COST"),            // bcrypt cost factor

        PlacesBaseURL: os.Getenv("PLACES_BASE_URL"),
        PlacesAPIKey:  os.Getenv("PLACES_API_KEY"),
        HomeLat:       getfloat("HOME_LAT", 0),
        HomeLng:       getfloat("HOME_LNG", 0),
        SearchRadiusM: getint("SEARCH_RADIUS_M", 5000),
        RefreshMin:    getint("CATALOG_REFRESH_MIN", 0),

        ProfileCacheTTLMin: getint("PROFILE_CACHE_TTL_MIN", 5),
    }
    if cfg.StoreEngine == "mysql" {
        cfg.DBUser = must("DB_USER") // database user
        cfg.DBPass = os.Getenv("DB_PASS")
        cfg.DBHost = must("DB_HOST") // database host
        cfg.DBPort = must("DB_PORT") // database port
        cfg.DBName = must("DB_NAME") // database name
    }
    return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}

// getenv returns the value of an optional variable, or def when unset.
func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

// getint parses an optional integer variable, falling back to def when
// unset or unparsable.
func getint(key string, def int) int {
    if v := os.Getenv(key); v != "" {
        if n, err := strconv.Atoi(v); err == nil {
            return n
        }
        log.Printf("config: ignoring invalid int for %s: %q", key, v)
    }
    return def
}

// getfloat parses an optional float variable, falling back to def when
// unset or unparsable.
func getfloat(key string, def float64) float64 {
    if v := os.Getenv(key); v != "" {
        if f, err := strconv.ParseFloat(v, 64); err == nil {
            return f
        }
        log.Printf("config: ignoring invalid float for %s: %q", key, v)
    }
    return def
}

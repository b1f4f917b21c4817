// Package places is a thin client for a Google-Places-compatible nearby
// search API.  It only models the fields the catalog needs; everything
// else in the response is ignored.
package places

import (
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "net/url"
    "strconv"
    "time"
)

// Place is one search result.
type Place struct {
    ID        string   // stable provider id, used as the court document id
    Name      string
    Address   string
    Latitude  float64
    Longitude float64
    Rating    *float64 // nil when the provider has no rating
}

// Client calls the nearby-search endpoint.  The zero value is not usable;
// construct with NewClient.
type Client struct {
    baseURL string
    apiKey  string
    http    *http.Client
}

// NewClient returns a Client for the given endpoint base URL and API key.
// httpClient may be nil, in which case a 10s-timeout client is used.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
    if httpClient == nil {
        httpClient = &http.Client{Timeout: 10 * time.Second}
    }
    return &Client{baseURL: baseURL, apiKey: apiKey, http: httpClient}
}

// response mirrors the provider's JSON envelope.
type response struct {
    Results []struct {
        PlaceID  string `json:"place_id"`
        Name     string `json:"name"`
        Vicinity string `json:"vicinity"`
        Geometry struct {
            Location struct {
                Lat float64 `json:"lat"`
                Lng float64 `json:"lng"`
            } `json:"location"`
        } `json:"geometry"`
        Rating *float64 `json:"rating"`
    } `json:"results"`
    Status       string `json:"status"`
    ErrorMessage string `json:"error_message"`
}

// NearbySearch returns the places matching keyword within radius meters
// of (lat, lng).  A "ZERO_RESULTS" status is an empty result, not an
// error.
func (c *Client) NearbySearch(ctx context.Context, lat, lng float64, radius int, keyword string) ([]Place, error) {
    q := url.Values{}
    q.Set("location", fmt.Sprintf("%f,%f", lat, lng))
    q.Set("radius", strconv.Itoa(radius))
    q.Set("keyword", keyword)
    q.Set("key", c.apiKey)

    req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
    if err != nil {
        return nil, err
    }
    resp, err := c.http.Do(req)
    if err != nil {
        return nil, fmt.Errorf("places request: %w", err)
    }
    defer resp.Body.Close()

    if resp.StatusCode != http.StatusOK {
        return nil, fmt.Errorf("places request: unexpected status %s", resp.Status)
    }
    var body response
    if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
        return nil, fmt.Errorf("places response: %w", err)
    }
    switch body.Status {
    case "OK":
    case "ZERO_RESULTS":
        return []Place{}, nil
    default:
        return nil, fmt.Errorf("places response: status %s: %s", body.Status, body.ErrorMessage)
    }

    out := make([]Place, 0, len(body.Results))
    for _, r := range body.Results {
        if r.PlaceID == "" {
            continue
        }
        out = append(out, Place{
            ID:        r.PlaceID,
            Name:      r.Name,
            Address:   r.Vicinity,
            Latitude:  r.Geometry.Location.Lat,
            Longitude: r.Geometry.Location.Lng,
            Rating:    r.Rating,
        })
    }
    return out, nil
}

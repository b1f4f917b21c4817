package model

// Court represents one bookable court in the catalog.  Courts are stored
// as documents in the `courts` collection, keyed by the external place id
// that first discovered them.  The Slots map is the reservation ledger:
// slot key -> set of participant user ids.  Metadata fields are refreshed
// by the search index sync; Slots is only ever touched through field-level
// array operations so concurrent writers never clobber each other.
//
// Fields:
//  ID        – external place identifier, also the document id.
//  Name      – court name as reported by the POI source.
//  Address   – street address or vicinity description.
//  Latitude  – WGS84 latitude.
//  Longitude – WGS84 longitude.
//  Rating    – optional POI rating (nil when the source reports none).
//  Slots     – slot key -> participant ids signed up for that slot.
type Court struct {
    ID        string              `json:"id"`
    Name      string              `json:"name"`
    Address   string              `json:"address"`
    Latitude  float64             `json:"latitude"`
    Longitude float64             `json:"longitude"`
    Rating    *float64            `json:"rating,omitempty"`
    Slots     map[string][]string `json:"slots"`
}

package model

import "time"

// Profile is the externally owned identity record for a participant.
// The ledger never embeds profile copies; it stores user ids only and
// resolves display data through an independently cached lookup, so a
// renamed player is never shown under a stale name.
//
// Fields:
//  ID          – stable user id issued at registration.
//  Email       – unique, lower-cased email address.
//  DisplayName – name shown next to reservations.
//  CreatedAt   – when the account was created.
type Profile struct {
    ID          string    `json:"id"`
    Email       string    `json:"email"`
    DisplayName string    `json:"display_name"`
    CreatedAt   time.Time `json:"created_at"`
}

// Package slot derives canonical keys for bookable time slots.  A slot is
// one (calendar date, time label) unit within a court.  Keys are pure
// derived strings; they are never stored as standalone entities.
package slot

import (
    "errors"
    "fmt"
    "strings"
    "time"
)

// labels is the fixed set of bookable time labels, in chronological order.
// The label text doubles as the display value, so the 12-hour clock format
// is part of the key format and must not change.
var labels = []string{
    "9:00 AM",
    "10:00 AM",
    "11:00 AM",
    "12:00 PM",
    "1:00 PM",
    "2:00 PM",
    "3:00 PM",
    "4:00 PM",
    "5:00 PM",
}

const (
    dateLayout  = "2006-01-02"
    labelLayout = "3:04 PM"
)

// WindowDuration is the length of every bookable slot.
const WindowDuration = time.Hour

// ErrBadKey is returned when a slot key cannot be parsed back into its
// date and time label parts.
var ErrBadKey = errors.New("malformed slot key")

// Labels returns the bookable time labels in chronological order.  The
// returned slice is a copy; callers may modify it freely.
func Labels() []string {
    out := make([]string, len(labels))
    copy(out, labels)
    return out
}

// ValidLabel reports whether the given time label is one of the fixed
// bookable labels.
func ValidLabel(label string) bool {
    return labelIndex(label) >= 0
}

func labelIndex(label string) int {
    for i, l := range labels {
        if l == label {
            return i
        }
    }
    return -1
}

// Key builds the canonical slot key for a date and time label, e.g.
// "2024-06-01_10:00 AM".  Uniqueness is scoped to a single court; two
// courts may both carry the same key.
func Key(date time.Time, label string) string {
    return fmt.Sprintf("%s_%s", date.UTC().Format(dateLayout), label)
}

// ParseKey splits a slot key into its calendar date and time label.  The
// label must be one of the fixed bookable labels and the date must be a
// valid YYYY-MM-DD string, otherwise ErrBadKey is returned.
func ParseKey(key string) (time.Time, string, error) {
    datePart, label, ok := strings.Cut(key, "_")
    if !ok {
        return time.Time{}, "", fmt.Errorf("%w: %q", ErrBadKey, key)
    }
    date, err := time.ParseInLocation(dateLayout, datePart, time.UTC)
    if err != nil {
        return time.Time{}, "", fmt.Errorf("%w: %q", ErrBadKey, key)
    }
    if !ValidLabel(label) {
        return time.Time{}, "", fmt.Errorf("%w: unknown time label in %q", ErrBadKey, key)
    }
    return date, label, nil
}

// Window returns the start and end instants of the slot identified by key.
// Slots are one hour long, anchored at the time label on the key's date.
func Window(key string) (time.Time, time.Time, error) {
    date, label, err := ParseKey(key)
    if err != nil {
        return time.Time{}, time.Time{}, err
    }
    t, err := time.ParseInLocation(labelLayout, label, time.UTC)
    if err != nil {
        return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrBadKey, key)
    }
    start := time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
    return start, start.Add(WindowDuration), nil
}

// Contains reports whether the slot's time window contains the given
// instant.  Malformed keys never contain anything.
func Contains(key string, now time.Time) bool {
    start, end, err := Window(key)
    if err != nil {
        return false
    }
    now = now.UTC()
    return !now.Before(start) && now.Before(end)
}

// Less orders slot keys by calendar date first, then by the position of
// the time label within the bookable day.  Malformed keys sort after
// well-formed ones, in plain string order among themselves, so sorting a
// mixed slice stays deterministic.
func Less(a, b string) bool {
    dateA, labelA, errA := ParseKey(a)
    dateB, labelB, errB := ParseKey(b)
    if errA != nil || errB != nil {
        if (errA == nil) != (errB == nil) {
            return errA == nil
        }
        return a < b
    }
    if !dateA.Equal(dateB) {
        return dateA.Before(dateB)
    }
    return labelIndex(labelA) < labelIndex(labelB)
}

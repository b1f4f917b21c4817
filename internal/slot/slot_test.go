package slot

import (
    "errors"
    "sort"
    "testing"
    "time"
)

func TestKeyRoundTrip(t *testing.T) {
    t.Parallel()
    date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
    key := Key(date, "10:00 AM")
    if key != "2024-06-01_10:00 AM" {
        t.Fatalf("Key() = %q, want %q", key, "2024-06-01_10:00 AM")
    }
    gotDate, gotLabel, err := ParseKey(key)
    if err != nil {
        t.Fatalf("ParseKey() error: %v", err)
    }
    if !gotDate.Equal(date) {
        t.Errorf("got date %v, want %v", gotDate, date)
    }
    if gotLabel != "10:00 AM" {
        t.Errorf("got label %q, want %q", gotLabel, "10:00 AM")
    }
}

func TestParseKeyRejectsMalformed(t *testing.T) {
    t.Parallel()
    for _, key := range []string{
        "",
        "2024-06-01",
        "2024-06-01_",
        "2024-06-01_25:00 AM",
        "06/01/2024_10:00 AM",
        "2024-06-01_10:30 AM", // not a bookable label
    } {
        if _, _, err := ParseKey(key); !errors.Is(err, ErrBadKey) {
            t.Errorf("ParseKey(%q) error = %v, want ErrBadKey", key, err)
        }
    }
}

func TestWindow(t *testing.T) {
    t.Parallel()
    start, end, err := Window("2024-06-01_1:00 PM")
    if err != nil {
        t.Fatalf("Window() error: %v", err)
    }
    wantStart := time.Date(2024, 6, 1, 13, 0, 0, 0, time.UTC)
    if !start.Equal(wantStart) {
        t.Errorf("got start %v, want %v", start, wantStart)
    }
    if !end.Equal(wantStart.Add(time.Hour)) {
        t.Errorf("got end %v, want %v", end, wantStart.Add(time.Hour))
    }
}

func TestContains(t *testing.T) {
    t.Parallel()
    key := "2024-06-01_10:00 AM"
    cases := []struct {
        name string
        now  time.Time
        want bool
    }{
        {"window start", time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), true},
        {"mid window", time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC), true},
        {"window end excluded", time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC), false},
        {"before", time.Date(2024, 6, 1, 9, 59, 59, 0, time.UTC), false},
        {"other day", time.Date(2024, 6, 2, 10, 30, 0, 0, time.UTC), false},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            if got := Contains(key, tc.now); got != tc.want {
                t.Errorf("Contains(%q, %v) = %v, want %v", key, tc.now, got, tc.want)
            }
        })
    }
    if Contains("garbage", time.Now()) {
        t.Error("Contains() on a malformed key = true, want false")
    }
}

func TestLessOrdersByDateThenLabel(t *testing.T) {
    t.Parallel()
    keys := []string{
        "2024-06-02_9:00 AM",
        "2024-06-01_1:00 PM",
        "2024-06-01_9:00 AM",
        "2024-06-01_11:00 AM",
    }
    sort.Slice(keys, func(i, j int) bool { return Less(keys[i], keys[j]) })
    want := []string{
        "2024-06-01_9:00 AM",
        "2024-06-01_11:00 AM",
        "2024-06-01_1:00 PM",
        "2024-06-02_9:00 AM",
    }
    for i := range want {
        if keys[i] != want[i] {
            t.Fatalf("sorted[%d] = %q, want %q (full: %v)", i, keys[i], want[i], keys)
        }
    }
}

func TestLabelsReturnsCopy(t *testing.T) {
    t.Parallel()
    got := Labels()
    if len(got) != 9 {
        t.Fatalf("got %d labels, want 9", len(got))
    }
    got[0] = "mutated"
    if Labels()[0] != "9:00 AM" {
        t.Error("mutating the returned slice leaked into the package")
    }
}

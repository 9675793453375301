package timeutil

import (
	"sync"
	"time"
)

// Common layouts
const (
	DateLayout     = "2006-01-02"
	DateCodeLayout = "060102"
	DateTimeLayout = "2006-01-02 15:04:05"
	DisplayLayout  = "02 Jan 2006, 03:04 PM"
)

var (
	mu  sync.RWMutex
	loc = time.Local
	now = time.Now
)

// SetLocation switches the zone that calendar dates are interpreted in.
// An empty or unknown name leaves the current location in place.
func SetLocation(name string) error {
	if name == "" {
		return nil
	}
	l, err := time.LoadLocation(name)
	if err != nil {
		return err
	}
	mu.Lock()
	loc = l
	mu.Unlock()
	return nil
}

// Location returns the configured zone.
func Location() *time.Location {
	mu.RLock()
	defer mu.RUnlock()
	return loc
}

// SetClock overrides the time source. Returns a func restoring the previous one.
func SetClock(fn func() time.Time) func() {
	mu.Lock()
	prev := now
	now = fn
	mu.Unlock()
	return func() {
		mu.Lock()
		now = prev
		mu.Unlock()
	}
}

// Now returns the current time in the configured zone
func Now() time.Time {
	mu.RLock()
	fn := now
	mu.RUnlock()
	return fn().In(Location())
}

// ParseDate parses a YYYY-MM-DD calendar date at midnight in the configured zone.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, Location())
}

// FormatDate formats t as YYYY-MM-DD in the configured zone.
func FormatDate(t time.Time) string {
	return t.In(Location()).Format(DateLayout)
}

// Today returns the current calendar date as YYYY-MM-DD.
func Today() string {
	return Now().Format(DateLayout)
}

// StartOfDay returns the start of day (00:00:00) for the given time
func StartOfDay(t time.Time) time.Time {
	l := t.In(Location())
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, Location())
}

// EndOfDay returns the last millisecond of the day (23:59:59.999) for the given time
func EndOfDay(t time.Time) time.Time {
	l := t.In(Location())
	return time.Date(l.Year(), l.Month(), l.Day(), 23, 59, 59, int(999*time.Millisecond), Location())
}

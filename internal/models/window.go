package models

import "time"

// Window is a half-open [Start, End) time interval. Touching endpoints do
// not overlap: a stay ending at noon and one starting at noon can share a
// room.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether two half-open windows share any instant.
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && w.End.After(o.Start)
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// IsZero reports whether both endpoints are unset.
func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Nights returns the number of whole days spanned, at least 1 for any
// valid window.
func (w Window) Nights() int64 {
	n := int64(w.End.Sub(w.Start) / (24 * time.Hour))
	if n < 1 {
		n = 1
	}
	return n
}

// DateOnly truncates t to midnight UTC. Single-date bookings are stored
// as full-day windows anchored here so the same overlap predicate applies
// everywhere.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayWindow returns the [midnight, midnight+24h) window covering t's date.
func DayWindow(t time.Time) Window {
	d := DateOnly(t)
	return Window{Start: d, End: d.Add(24 * time.Hour)}
}

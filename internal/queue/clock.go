package queue

import "time"

// Clock supplies the current time. The engine, the token allocator, and both
// stores all derive "today" from the same Clock so day boundaries cannot
// drift between components; tests swap in a fake to control rollover.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func SystemClock() Clock { return systemClock{} }

// DayWindow returns the [start, end) bounds of the calendar day containing t,
// in t's location.
func DayWindow(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.Add(24 * time.Hour)
}

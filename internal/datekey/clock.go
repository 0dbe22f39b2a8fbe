package datekey

import "time"

// Clock supplies the current time. Stores take one so "today" is injectable in tests.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always reports the same instant.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// Today returns the calendar day of c.Now() in the clock's own location.
func Today(c Clock) Date {
	return FromTime(c.Now())
}

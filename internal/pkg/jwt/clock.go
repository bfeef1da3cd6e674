package jwt

import "time"

// Clock supplies "now" for issuance and expiry checks. Tests inject a fixed
// or stepping clock instead of time.Now.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock is the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

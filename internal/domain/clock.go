package domain

import "time"

// Clock supplies the current UTC calendar day. Quota rollover depends on
// "today", so it is injected rather than read from the wall clock directly.
type Clock interface {
	Today() string
}

// SystemClock reads the real wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Today() string {
	return time.Now().UTC().Format(DayFormat)
}

// FixedClock always reports the same day. Test helper.
type FixedClock string

func (c FixedClock) Today() string { return string(c) }

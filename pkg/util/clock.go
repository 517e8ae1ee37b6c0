package util

import (
	"time"
)

// Clock is the source of "now" for time sync writes and alarm validation
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// OffsetClock follows a reference clock shifted by a fixed offset. The peripheral
// keeps one of these, re-based whenever the controller writes its timestamp.
type OffsetClock struct {
	Base   Clock
	offset time.Duration
}

// Sync makes the clock report ts from now on
func (c *OffsetClock) Sync(ts time.Time) {
	c.offset = ts.Sub(c.base().Now())
}

func (c *OffsetClock) Now() time.Time {
	return c.base().Now().Add(c.offset)
}

func (c *OffsetClock) base() Clock {
	if c.Base == nil {
		return SystemClock{}
	}
	return c.Base
}

package domain

import "github.com/jonboulle/clockwork"

// clock decides what "yesterday" is when the date picker is seeded.
var clock = clockwork.NewRealClock()

// SetClock replaces the clock behind Yesterday. nil restores wall time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	clock = c
}

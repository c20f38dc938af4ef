package config

import "time"

// Clock supplies server-assigned timestamps. Checkpoint creation and session
// activity tracking must never read the wall clock directly so tests can pin
// time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

var clock Clock = systemClock{}

func GetClock() Clock {
	return clock
}

// SetClock swaps the process clock. Returns the previous clock so tests can
// restore it.
func SetClock(c Clock) Clock {
	prev := clock
	if c == nil {
		c = systemClock{}
	}
	clock = c
	return prev
}

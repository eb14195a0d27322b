// Package clock abstracts time so that delayed work can be driven deterministically in tests.
package clock

import "time"

// Timer is the handle returned by AfterFunc.
type Timer interface {
	// Stop prevents the callback from firing. It returns false if the timer already fired
	// or was stopped before.
	Stop() bool
}

// Clock is the subset of the time package used by components that schedule work.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// New returns a Clock backed by the time package.
func New() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

package chathub

import "time"

// Scheduler abstracts deferred execution so timer-driven state (typing
// expiry) can be tested without real wall-clock waits.
type Scheduler interface {
	// AfterFunc runs fn after d on an arbitrary goroutine and returns a
	// handle that cancels the pending run.
	AfterFunc(d time.Duration, fn func()) CancelFunc
}

// CancelFunc cancels a scheduled function. It reports whether the call
// stopped the run before it fired.
type CancelFunc func() bool

type wallClockScheduler struct{}

// NewScheduler returns the production Scheduler backed by time.AfterFunc.
func NewScheduler() Scheduler {
	return wallClockScheduler{}
}

func (wallClockScheduler) AfterFunc(d time.Duration, fn func()) CancelFunc {
	t := time.AfterFunc(d, fn)
	return t.Stop
}

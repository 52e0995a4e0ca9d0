package session

import "time"

// Timer is a cancellable pending callback.
type Timer interface {
	// Stop prevents the callback from firing. Reports whether it was still
	// pending.
	Stop() bool
}

// Clock abstracts time for the engine so tests can drive the debounce with a
// fake clock instead of sleeping.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// NewClock returns the wall clock.
func NewClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{t: time.AfterFunc(d, f)}
}

type realTimer struct {
	t *time.Timer
}

func (r realTimer) Stop() bool { return r.t.Stop() }

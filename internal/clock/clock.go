package clock

import (
	"sync"
	"time"
)

// Clock abstracts the time source so TTLs, date windows and tickers can be
// driven deterministically in tests.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) *time.Ticker
}

type realClock struct{}

// Real returns the wall clock.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) *time.Ticker { return time.NewTicker(d) }

// Fake is a manually advanced clock. Tickers it returns never fire on their
// own; callers that need ticks in tests invoke the tick handler directly.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake returns a Fake clock positioned at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// Set positions the clock at t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// NewTicker returns a stopped ticker with an hour-long period.
func (f *Fake) NewTicker(time.Duration) *time.Ticker {
	t := time.NewTicker(time.Hour)
	t.Stop()
	return t
}

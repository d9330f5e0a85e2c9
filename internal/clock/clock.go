// Package clock abstracts wall time so the node loop and the command session
// can be driven by a simulated clock in tests.
package clock

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// System is the real clock.
type System struct{}

func (System) Now() time.Time        { return time.Now() }
func (System) Sleep(d time.Duration) { time.Sleep(d) }

// Manual only moves when told to. Sleep advances it instantly.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(start time.Time) *Manual { return &Manual{now: start} }

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Sleep(d time.Duration) { m.Advance(d) }

func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Uptime reports milliseconds elapsed since boot, the timestamp unit carried
// by readings.
type Uptime struct {
	boot time.Time
}

func NewUptime(c Clock) Uptime { return Uptime{boot: c.Now()} }

func (u Uptime) Millis(now time.Time) int64 { return now.Sub(u.boot).Milliseconds() }

package syncengine

import (
	"sync"
	"time"
)

// TimeProvider provides time-related functionality for dependency injection.
type TimeProvider interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the part of time.Timer the sequencer uses.
type Timer interface {
	Stop() bool
}

// RealTimeProvider implements TimeProvider using real time functions.
type RealTimeProvider struct{}

// AfterFunc calls f in its own goroutine after d.
func (RealTimeProvider) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Now returns the current time.
func (RealTimeProvider) Now() time.Time {
	return time.Now()
}

// MockTimeProvider is a manually driven TimeProvider for tests.
// Timers only fire when Fire is called.
type MockTimeProvider struct {
	mu     sync.Mutex
	now    time.Time
	timers []*MockTimer
}

// NewMockTimeProvider returns a provider frozen at now.
func NewMockTimeProvider(now time.Time) *MockTimeProvider {
	return &MockTimeProvider{now: now}
}

// AfterFunc registers f without scheduling it.
func (m *MockTimeProvider) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	timer := &MockTimer{Delay: d, f: f}
	m.timers = append(m.timers, timer)

	return timer
}

// Fire runs every pending timer and returns how many ran.
func (m *MockTimeProvider) Fire() int {
	m.mu.Lock()
	pending := m.timers
	m.timers = nil
	m.mu.Unlock()

	fired := 0

	for _, timer := range pending {
		if timer.fire() {
			fired++
		}
	}

	return fired
}

// Now returns the frozen time.
func (m *MockTimeProvider) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.now
}

// Pending returns the number of timers that are neither fired nor stopped.
func (m *MockTimeProvider) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0

	for _, timer := range m.timers {
		if timer.active() {
			count++
		}
	}

	return count
}

// Set moves the frozen clock.
func (m *MockTimeProvider) Set(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now = now
}

// MockTimer is a timer created by MockTimeProvider.
type MockTimer struct {
	Delay time.Duration

	mu      sync.Mutex
	f       func()
	done    bool
	stopped bool
}

// Stop prevents the timer from firing.
func (t *MockTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	wasActive := !t.done && !t.stopped
	t.stopped = true

	return wasActive
}

func (t *MockTimer) active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return !t.done && !t.stopped
}

func (t *MockTimer) fire() bool {
	t.mu.Lock()
	if t.done || t.stopped {
		t.mu.Unlock()

		return false
	}

	t.done = true
	t.mu.Unlock()

	t.f()

	return true
}

// Package schedulertest provides test doubles for the scheduler package.
package schedulertest

import (
	"context"
	"sync"
	"time"

	"github.com/amir-mohammad-HP/sugarnexus/internal/scheduler"
)

// FakeClock is a settable scheduler.Clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// Compile-time interface check.
var _ scheduler.Clock = (*FakeClock)(nil)

func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

// Now implements scheduler.Clock.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d and returns the new time.
func (c *FakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// MockAction is a configurable scheduler.Action that counts its calls.
type MockAction struct {
	RunFunc func(ctx context.Context) (scheduler.JobResult, error)

	mu    sync.Mutex
	calls int
}

// Run is the scheduler.Action; pass m.Run when registering.
func (m *MockAction) Run(ctx context.Context) (scheduler.JobResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx)
	}
	return scheduler.Success(map[string]int{"calls": 1}), nil
}

// CallCount returns the number of times Run was called.
func (m *MockAction) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// StaticCheck returns a FreshnessCheck with a fixed answer and a call counter.
func StaticCheck(stale bool, err error) (scheduler.FreshnessCheck, func() int) {
	var mu sync.Mutex
	calls := 0
	check := func(context.Context) (bool, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return stale, err
	}
	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return calls
	}
	return check, count
}

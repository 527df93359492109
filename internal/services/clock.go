package services

import (
	"sort"
	"sync"
	"time"
)

type Timer interface {
	Stop() bool
}

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ManualClock only moves when told to. Timers fire synchronously inside Set
// and Advance, in deadline order.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
	nextID int
}

type manualTimer struct {
	clock    *ManualClock
	id       int
	deadline time.Time
	fn       func()
	stopped  bool
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (clock *ManualClock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.now
}

func (clock *ManualClock) AfterFunc(d time.Duration, f func()) Timer {
	clock.mu.Lock()
	defer clock.mu.Unlock()

	clock.nextID++
	timer := &manualTimer{clock: clock, id: clock.nextID, deadline: clock.now.Add(d), fn: f}
	clock.timers = append(clock.timers, timer)
	return timer
}

func (clock *ManualClock) Advance(d time.Duration) {
	clock.Set(clock.Now().Add(d))
}

// Set moves the clock to target, firing every timer due on the way with the
// clock positioned at that timer's deadline.
func (clock *ManualClock) Set(target time.Time) {
	for {
		clock.mu.Lock()
		due := clock.nextDueLocked(target)
		if due == nil {
			if target.After(clock.now) {
				clock.now = target
			}
			clock.mu.Unlock()
			return
		}
		due.stopped = true
		clock.removeLocked(due)
		if due.deadline.After(clock.now) {
			clock.now = due.deadline
		}
		clock.mu.Unlock()

		due.fn()
	}
}

// PendingTimers returns the number of timers that are armed and not yet fired.
func (clock *ManualClock) PendingTimers() int {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return len(clock.timers)
}

// Deadlines lists pending timer deadlines in ascending order.
func (clock *ManualClock) Deadlines() []time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()

	deadlines := make([]time.Time, 0, len(clock.timers))
	for _, timer := range clock.timers {
		deadlines = append(deadlines, timer.deadline)
	}
	sort.Slice(deadlines, func(i, j int) bool {
		return deadlines[i].Before(deadlines[j])
	})
	return deadlines
}

func (clock *ManualClock) nextDueLocked(target time.Time) *manualTimer {
	var due *manualTimer
	for _, timer := range clock.timers {
		if timer.deadline.After(target) {
			continue
		}
		if due == nil || timer.deadline.Before(due.deadline) ||
			(timer.deadline.Equal(due.deadline) && timer.id < due.id) {
			due = timer
		}
	}
	return due
}

func (clock *ManualClock) removeLocked(target *manualTimer) {
	for index, timer := range clock.timers {
		if timer == target {
			clock.timers = append(clock.timers[:index], clock.timers[index+1:]...)
			return
		}
	}
}

func (timer *manualTimer) Stop() bool {
	timer.clock.mu.Lock()
	defer timer.clock.mu.Unlock()

	if timer.stopped {
		return false
	}
	timer.stopped = true
	timer.clock.removeLocked(timer)
	return true
}

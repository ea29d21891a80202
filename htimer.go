// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

// Package htimer provides a fixed-capacity timer manager on a hashed
// timing wheel, driven by a coarse tick. Timer records are
// preallocated in a pool, a single wheel of WheelSize buckets maps
// expire ticks to record lists and one dispatcher goroutine advances
// the tick counter and fires due callbacks. The fire path performs no
// heap allocation after Init.
package htimer

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

const NAME = "htimer"

var BuildTags []string

// DefaultTickPeriod is the recommended tick duration for hosts with
// no special precision needs.
const DefaultTickPeriod = 100 * time.Millisecond

// HTimer implements the timer manager. The zero value must be
// initialised with Init() before use; Start() launches the
// dispatcher.
type HTimer struct {
	opLock sync.Mutex // wheel lock: buckets + state transitions
	wheel  timerWheel
	pool   timerPool

	tickDuration time.Duration
	nowTicks     uint64 // current tick counter (atomic access)

	tickS tickSem // counting semaphore posted by the tick source

	snap []*Timer // dispatcher bucket snapshot buffer

	tickerSt tickerState // built-in tick source state (see StartTicker)

	wg     sync.WaitGroup // wait group for all the go routines started
	cancel chan struct{}  // used to stop all go routines
}

// Init initialises the timer manager: capacity records are allocated
// and placed on the pool free list and the wheel is emptied. td is
// the tick duration; note that tick durations that are too low would
// cause high cpu usage when idle (too many wakeups).
// Calling Init on an already initialised engine fails with
// ErrInitialised and changes nothing.
func (ht *HTimer) Init(capacity uint32, td time.Duration) error {
	if td < time.Microsecond {
		return errors.New("htimer.Init: tick duration too small")
	} else if td > (time.Hour * 24) {
		// probably an error
		return errors.New("htimer.Init: tick duration too high")
	}
	if err := ht.pool.init(capacity); err != nil {
		return err
	}
	ht.tickDuration = td
	ht.wheel.init()
	ht.tickS.init()
	ht.snap = make([]*Timer, 0, capacity)
	return nil
}

// Now returns the current tick counter value.
func (ht *HTimer) Now() Ticks {
	return NewTicks(atomic.LoadUint64(&ht.nowTicks))
}

// Ticks returns the duration d converted to Ticks (round-down) and
// the rest (if the passed duration is not an integer number of ticks).
func (ht *HTimer) Ticks(d time.Duration) (Ticks, time.Duration) {
	if ht.tickDuration != 0 {
		t := d / ht.tickDuration
		return NewTicks(uint64(t)), d % ht.tickDuration
	}
	return NewTicks(0), d
}

// Duration converts a tick number to a time.Duration
// (according to the configured tick length).
func (ht *HTimer) Duration(t Ticks) time.Duration {
	return time.Duration(t.Val()) * ht.tickDuration
}

// TicksRoundUp converts a duration into a tick number rounding-up
// if the duration is less then 1 tick or if the rest is >= 0.5 ticks.
// This is also the way timer delays and periods are converted
// internally: better to expire 1 tick later then 1 tick too soon.
func (ht *HTimer) TicksRoundUp(d time.Duration) Ticks {
	dticks, rest := ht.Ticks(d)
	if dticks.Val() == 0 || rest >= 50*ht.tickDuration/100 {
		return dticks.AddUint64(1)
	}
	return dticks
}

// TicksPerSecond returns how many ticks fit in one second at the
// configured tick duration.
func (ht *HTimer) TicksPerSecond() uint64 {
	if ht.tickDuration == 0 {
		return 0
	}
	return uint64(time.Second / ht.tickDuration)
}

// TickDuration returns the configured tick duration.
func (ht *HTimer) TickDuration() time.Duration {
	return ht.tickDuration
}

func (ht *HTimer) lock() {
	ht.opLock.Lock()
}

func (ht *HTimer) unlock() {
	ht.opLock.Unlock()
}

// checkHandle validates a timer handle before any other field is
// touched: non-nil first, then the pool magic. On failure the handle
// is not dereferenced further.
func checkHandle(tm *Timer) error {
	if tm == nil {
		return ErrInvalidTimer
	}
	if !tm.valid() {
		return ErrInvalidType
	}
	return nil
}

// Create allocates a timer record from the pool and configures it.
// The new timer is STOPPED; it does not fire before StartTimer().
//
// delay is the wait before the first fire. For OneShot timers it must
// be at least one tick. For Periodic timers it may be 0, meaning the
// first fire happens one full period after the start; period is the
// gap between fires and must be at least one tick.
// f may be nil (a timer with no callback still expires; it just
// cannot be stopped with a callback option).
// On pool exhaustion it returns nil and ErrNoTimersAvail.
func (ht *HTimer) Create(delay, period time.Duration, kind TimerKind,
	f TimerF, arg interface{}, name string) (*Timer, error) {
	if delay < 0 {
		return nil, ErrInvalidDelay
	}
	if period < 0 {
		return nil, ErrInvalidPeriod
	}
	var delayT, periodT Ticks
	if delay > 0 {
		delayT = ht.TicksRoundUp(delay)
	}
	if period > 0 {
		periodT = ht.TicksRoundUp(period)
	}
	return ht.CreateT(delayT, periodT, kind, f, arg, name)
}

// CreateT is the tick-granularity variant of Create: the delay and
// the period are passed directly in ticks.
func (ht *HTimer) CreateT(delayT, periodT Ticks, kind TimerKind,
	f TimerF, arg interface{}, name string) (*Timer, error) {
	switch kind {
	case Periodic:
		if periodT.Val() < 1 {
			return nil, ErrInvalidPeriod
		}
	case OneShot:
		if delayT.Val() < 1 {
			return nil, ErrInvalidDelay
		}
	default:
		return nil, ErrInvalidOpt
	}

	tm := ht.pool.alloc()
	if tm == nil {
		if DBGon() {
			DBG("Create: pool exhausted (capacity %d)\n",
				ht.pool.capacity())
		}
		return nil, ErrNoTimersAvail
	}

	ht.lock()
	tm.kind = kind
	tm.delayT = delayT
	tm.periodT = periodT
	tm.match = NewTicks(0)
	tm.f = f
	tm.arg = arg
	tm.name = name
	tm.info.setState(StateStopped)
	ht.unlock()
	return tm, nil
}

// StartTimer arms a STOPPED or COMPLETED timer: it computes the next
// expire tick and links the record into the wheel.
//
// The first wait is the configured delay; a Periodic timer with no
// remaining delay waits one full period. The initial delay of a
// Periodic timer is consumed by its first start, so re-starting it
// after a stop always uses the period. A re-started OneShot uses its
// configured delay again.
func (ht *HTimer) StartTimer(tm *Timer) error {
	if err := checkHandle(tm); err != nil {
		return err
	}
	ht.lock()
	switch tm.info.state() {
	case StateUnused:
		ht.unlock()
		return ErrInactiveTimer
	case StateRunning:
		ht.unlock()
		return ErrInvalidState
	}
	firstWait := tm.delayT
	if firstWait.Val() == 0 {
		// Periodic with its initial delay consumed (or none
		// configured); OneShot delays are validated at create and
		// never cleared.
		firstWait = tm.periodT
	}
	if firstWait.Val() == 0 {
		ht.unlock()
		BUG("StartTimer: timer %p (%q) has no delay and no period\n",
			tm, tm.name)
		return ErrInvalidState
	}
	// The tick counter must be read under the wheel lock: the
	// dispatcher increments it before taking the lock for the bucket
	// snapshot, so a timer armed here for the very next tick is
	// always inserted before that bucket is scanned.
	tm.match = ht.Now().Add(firstWait)
	if tm.kind == Periodic {
		tm.delayT = NewTicks(0)
	}
	tm.info.setState(StateRunning)
	ht.wheel.insert(tm)
	ht.unlock()
	return nil
}

// StopTimer disarms a RUNNING timer (COMPLETED ones are accepted
// too). opt selects what happens after the record left the wheel:
// StopOptNone invokes nothing, StopOptCallback invokes the stored
// callback with the stored argument and StopOptCallbackArg invokes it
// with arg instead (arg must be non-nil). The callback runs after all
// locks were released.
// Stopping an already stopped timer changes nothing and returns
// ErrAlreadyStopped.
func (ht *HTimer) StopTimer(tm *Timer, opt StopOpt, arg interface{}) error {
	if err := checkHandle(tm); err != nil {
		return err
	}
	ht.lock()
	st := tm.info.state()
	if st == StateUnused {
		ht.unlock()
		return ErrInactiveTimer
	}
	if opt > StopOptCallbackArg {
		ht.unlock()
		return ErrInvalidOpt
	}
	if st == StateStopped {
		ht.unlock()
		return ErrAlreadyStopped
	}
	cbF := tm.f
	cbArg := tm.arg
	if opt == StopOptCallback && cbF == nil {
		ht.unlock()
		return ErrNoCallback
	}
	if opt == StopOptCallbackArg && (cbF == nil || arg == nil) {
		ht.unlock()
		return ErrNoCallback
	}
	if st == StateRunning {
		ht.wheel.rm(tm)
	}
	tm.info.setState(StateStopped)
	ht.unlock()

	switch opt {
	case StopOptCallback:
		cbF(cbArg)
	case StopOptCallbackArg:
		cbF(arg)
	}
	return nil
}

// Del stops the timer if needed (without invoking any callback) and
// returns the record to the pool. The handle must not be used again
// after a successful Del.
func (ht *HTimer) Del(tm *Timer) error {
	if err := checkHandle(tm); err != nil {
		return err
	}
	ht.lock()
	st := tm.info.state()
	if st == StateUnused {
		ht.unlock()
		return ErrInactiveTimer
	}
	if st == StateRunning {
		ht.wheel.rm(tm)
	}
	// Mark the record UNUSED before it can reach the free list, so a
	// racing second Del fails with ErrInactiveTimer instead of
	// double-releasing it.
	tm.f = nil
	tm.arg = nil
	tm.info.setState(StateUnused)
	ht.unlock()
	ht.pool.release(tm)
	return nil
}

// State returns the current state of the timer. Pure read.
func (ht *HTimer) State(tm *Timer) (TimerState, error) {
	if err := checkHandle(tm); err != nil {
		return StateUnused, err
	}
	st := tm.info.state()
	if st == StateUnused {
		return StateUnused, ErrInactiveTimer
	}
	return st, nil
}

// Name returns the label the timer was created with.
func (ht *HTimer) Name(tm *Timer) (string, error) {
	if err := checkHandle(tm); err != nil {
		return "", err
	}
	ht.lock()
	if tm.info.state() == StateUnused {
		ht.unlock()
		return "", ErrInactiveTimer
	}
	n := tm.name
	ht.unlock()
	return n, nil
}

// Remaining returns the number of ticks left until the next fire:
// the distance from the current tick to the expire tick while
// RUNNING, 0 for STOPPED or COMPLETED timers.
func (ht *HTimer) Remaining(tm *Timer) (Ticks, error) {
	if err := checkHandle(tm); err != nil {
		return NewTicks(0), err
	}
	ht.lock()
	st := tm.info.state()
	if st == StateUnused {
		ht.unlock()
		return NewTicks(0), ErrInactiveTimer
	}
	var left Ticks
	if st == StateRunning {
		left = tm.match.Sub(ht.Now())
	}
	ht.unlock()
	return left, nil
}

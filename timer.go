// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package htimer

import (
	"sync/atomic"
)

// TimerKind selects the firing mode of a timer.
type TimerKind uint8

const (
	// OneShot timers fire once and move to COMPLETED.
	OneShot TimerKind = iota + 1
	// Periodic timers are re-armed after every fire.
	Periodic
)

// StopOpt selects what StopTimer does after the timer left the wheel.
type StopOpt uint8

const (
	// StopOptNone invokes nothing.
	StopOptNone StopOpt = iota
	// StopOptCallback invokes the stored callback with the stored arg.
	StopOptCallback
	// StopOptCallbackArg invokes the stored callback with the arg
	// supplied to StopTimer instead of the stored one.
	StopOptCallbackArg
)

// TimerState is the lifecycle state of a timer record.
type TimerState uint8

const (
	// StateUnused records live on the pool free list.
	StateUnused TimerState = iota
	// StateStopped records are configured but not armed.
	StateStopped
	// StateRunning records are linked in a wheel bucket.
	StateRunning
	// StateCompleted is reached by a ONE_SHOT timer after its fire
	// (and transiently by a PERIODIC one while its callback runs).
	StateCompleted
)

func (s TimerState) String() string {
	switch s {
	case StateUnused:
		return "UNUSED"
	case StateStopped:
		return "STOPPED"
	case StateRunning:
		return "RUNNING"
	case StateCompleted:
		return "COMPLETED"
	case stateHead:
		return "LSTHEAD"
	}
	return "UNKNOWN"
}

// A TimerF is the callback invoked when a timer expires or, on
// request, from StopTimer. It runs on the dispatcher goroutine (or on
// the StopTimer caller) with no engine lock held, so it may call any
// API operation, including Del on its own timer. Long running
// callbacks delay every subsequent expiry and must be avoided.
type TimerF func(arg interface{})

// A Timer is one preallocated timer record. Records are obtained from
// Create() and handed back with Del(); they are never allocated on
// the fire path. The intrusive links place a record either on the
// pool free list or on one wheel bucket, never on both.
type Timer struct {
	next *Timer
	prev *Timer

	match   Ticks // absolute expire tick, meaningful only while RUNNING
	delayT  Ticks // ticks to wait before the first fire
	periodT Ticks // gap between periodic fires

	f    TimerF
	arg  interface{}
	name string
	kind TimerKind

	info  tState // state + owning list index, atomic access
	magic uint32 // set while the record belongs to a live pool, atomic access
}

// Detached checks if the record is part of a list and returns true
// if not.
func (tm *Timer) Detached() bool {
	return tm == tm.next || (tm.next == nil && tm.prev == nil)
}

// Kind returns the firing mode the timer was created with.
func (tm *Timer) Kind() TimerKind {
	return tm.kind
}

// Exp returns the set expire tick (debugging use).
func (tm *Timer) Exp() Ticks {
	return tm.match
}

// valid reports whether the handle refers to a record of a live pool.
func (tm *Timer) valid() bool {
	return atomic.LoadUint32(&tm.magic) == timerMagic
}

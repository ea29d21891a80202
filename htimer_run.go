// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package htimer

import (
	"sync"
	"sync/atomic"
)

// tickSem is the counting semaphore between the tick source and the
// dispatcher: every post represents exactly one tick and posts made
// while the dispatcher is still busy with a previous tick are not
// lost. post() takes only the semaphore lock, so any tick source may
// call it.
type tickSem struct {
	lock    sync.Mutex
	cond    *sync.Cond
	pending uint64
	closed  bool
}

func (s *tickSem) init() {
	s.cond = sync.NewCond(&s.lock)
}

// post signals one tick.
func (s *tickSem) post() {
	s.lock.Lock()
	s.pending++
	s.lock.Unlock()
	s.cond.Signal()
}

// close wakes up the dispatcher for shutdown. Already posted ticks
// are still consumed first.
func (s *tickSem) close() {
	s.lock.Lock()
	s.closed = true
	s.lock.Unlock()
	s.cond.Broadcast()
}

// wait blocks until a tick was posted (consuming it and returning
// true) or until the semaphore was closed and drained (returning
// false).
func (s *tickSem) wait() bool {
	s.lock.Lock()
	for s.pending == 0 && !s.closed {
		s.cond.Wait()
	}
	ok := s.pending > 0
	if ok {
		s.pending--
	}
	s.lock.Unlock()
	return ok
}

// OnTick signals one elapsed tick to the dispatcher. It is the entry
// point for host tick sources and takes no engine lock, so it may be
// called from any context that can run Go code.
func (ht *HTimer) OnTick() {
	ht.tickS.post()
}

// Start launches the dispatcher goroutine. No timer fires before
// Start() was called. Use StartTicker() afterwards for the built-in
// tick source, or drive the engine by calling OnTick() once per tick
// period from the host's own source.
func (ht *HTimer) Start() {
	ht.cancel = make(chan struct{})
	ht.wg.Add(1)
	go func() {
		defer ht.wg.Done()
		ht.dispatch()
	}()
}

// Shutdown stops the tick source and the dispatcher, waits for them
// to finish and invalidates all the pool records (stale handles fail
// the magic check afterwards).
func (ht *HTimer) Shutdown() {
	if ht.cancel != nil {
		close(ht.cancel)
	}
	ht.tickS.close()
	ht.wg.Wait()
	ht.pool.teardown()
}

// dispatch is the dispatcher loop: one step per posted tick, until
// shutdown.
func (ht *HTimer) dispatch() {
	for ht.tickS.wait() {
		ht.step()
	}
}

// step processes one tick: advance the counter, snapshot the bucket
// the new tick hashes to and fire every record that matches it
// exactly. The snapshot is taken under the wheel lock and the lock is
// released before any callback runs.
func (ht *HTimer) step() {
	now := NewTicks(atomic.AddUint64(&ht.nowTicks, 1))
	idx := bucketIdx(now)
	ht.lock()
	ht.snap = ht.wheel.snapshot(idx, ht.snap[:0])
	ht.unlock()
	for _, tm := range ht.snap {
		ht.fire(tm, now)
	}
}

// fire runs one snapshot entry. Records that expire on a later turn
// of the wheel (match != now) stay in place. Due records are
// unlinked, moved to COMPLETED and their callback is invoked with no
// lock held. Periodic timers are then re-armed at now + period,
// unless the callback (or a concurrent API call) moved the record out
// of COMPLETED in the meantime: a stop, delete or re-start from
// inside the callback suppresses or supersedes the re-arm.
func (ht *HTimer) fire(tm *Timer, now Ticks) {
	ht.lock()
	st := tm.info.state()
	if st != StateRunning || tm.match.NE(now) {
		// stopped, deleted or re-armed since the snapshot was taken,
		// or a colliding entry for a future turn of the wheel
		ht.unlock()
		return
	}
	ht.wheel.rm(tm)
	tm.info.setState(StateCompleted)
	kind := tm.kind
	cbF := tm.f
	cbArg := tm.arg
	ht.unlock()

	if cbF != nil {
		cbF(cbArg)
	}
	if kind != Periodic {
		return
	}
	ht.lock()
	if tm.info.state() == StateCompleted {
		tm.match = now.Add(tm.periodT)
		tm.info.setState(StateRunning)
		ht.wheel.insert(tm)
	}
	ht.unlock()
}

// advanceTo advances the tick counter up to t, processing every tick
// in between. Simulation/test use; it must not run in parallel with
// the dispatcher.
func (ht *HTimer) advanceTo(t Ticks) {
	if ht.Now().GT(t) {
		BUG("advanceTo: target %s is in the past (now %s)\n",
			t, ht.Now())
		return
	}
	for ht.Now().NE(t) {
		ht.step()
	}
}

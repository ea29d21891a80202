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

// timerMagic marks a record as belonging to a live pool. It is
// stamped on every record at pool construction and cleared at
// teardown; handle validation checks it before touching any other
// field.
const timerMagic uint32 = 0x68746d72 // "htmr"

// timerPool is a fixed capacity store of timer records: one backing
// array allocated at init and a free list threaded through the
// records. Allocation and release are O(1) under the pool lock.
type timerPool struct {
	lock    sync.Mutex
	timers  []Timer
	free    timerLst
	freeCnt uint32
}

// init allocates capacity records, all UNUSED on the free list.
// A second init on the same pool is reported with ErrInitialised.
func (p *timerPool) init(capacity uint32) error {
	if p.timers != nil {
		return ErrInitialised
	}
	if capacity == 0 {
		return ErrInvalidParameters
	}
	p.free.init(idxFree)
	p.timers = make([]Timer, capacity)
	for i := int(capacity) - 1; i >= 0; i-- {
		tm := &p.timers[i]
		tm.info.setAll(StateUnused, idxNone)
		atomic.StoreUint32(&tm.magic, timerMagic)
		p.free.insert(tm)
	}
	p.freeCnt = capacity
	return nil
}

// alloc hands out a free record, or nil when the pool is exhausted.
func (p *timerPool) alloc() *Timer {
	p.lock.Lock()
	if p.freeCnt == 0 {
		p.lock.Unlock()
		return nil
	}
	tm := p.free.head.next
	p.free.rm(tm)
	p.freeCnt--
	p.lock.Unlock()
	return tm
}

// release clears the transient configuration of a record and prepends
// it to the free list. The record must be detached (not linked in any
// wheel bucket).
func (p *timerPool) release(tm *Timer) {
	if !tm.Detached() {
		PANIC("pool release of a linked timer %p (n: %p p: %p) %s\n",
			tm, tm.next, tm.prev, tm.info)
	}
	p.lock.Lock()
	tm.delayT = NewTicks(0)
	tm.periodT = NewTicks(0)
	tm.name = ""
	tm.info.setState(StateUnused)
	p.free.insert(tm)
	p.freeCnt++
	p.lock.Unlock()
}

// freeCount returns the number of records currently on the free list.
func (p *timerPool) freeCount() uint32 {
	p.lock.Lock()
	n := p.freeCnt
	p.lock.Unlock()
	return n
}

// capacity returns the fixed pool size.
func (p *timerPool) capacity() uint32 {
	return uint32(len(p.timers))
}

// teardown invalidates every record of the pool: any later API call
// on a stale handle fails the magic check.
func (p *timerPool) teardown() {
	for i := range p.timers {
		atomic.StoreUint32(&p.timers[i].magic, 0)
	}
}

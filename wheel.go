// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package htimer

const (
	WheelBits = 6
	// WheelSize is the number of buckets of the timing wheel.
	WheelSize = 1 << WheelBits
	WheelMask = WheelSize - 1
)

// bucketIdx maps an absolute expire tick to its wheel bucket.
// The same computation is used on the insert and the remove path.
func bucketIdx(t Ticks) uint16 {
	return uint16(t.Val() & WheelMask)
}

// timerWheel is a hashed timing wheel: WheelSize bucket lists keyed
// by expire tick modulo WheelSize. A bucket can hold records whose
// expiries differ by multiples of WheelSize; the dispatcher filters
// on the exact match tick. All mutation is serialised by the engine
// wheel lock; the methods themselves do not lock.
type timerWheel struct {
	buckets [WheelSize]timerLst
}

func (w *timerWheel) init() {
	for i := 0; i < len(w.buckets); i++ {
		w.buckets[i].init(uint16(i))
	}
}

// insert links tm into the bucket derived from tm.match.
// tm.match must already be set to a future tick.
func (w *timerWheel) insert(tm *Timer) {
	w.buckets[bucketIdx(tm.match)].insert(tm)
}

// rm unlinks tm from its bucket, recomputed from tm.match.
func (w *timerWheel) rm(tm *Timer) {
	idx := bucketIdx(tm.match)
	if lidx := tm.info.idx(); lidx != idx {
		PANIC("wheel rm: timer %p match %s owned by list %d,"+
			" expected bucket %d (%s)\n",
			tm, tm.match, lidx, idx, tm.info)
	}
	w.buckets[idx].rm(tm)
}

// snapshot appends the records currently linked in bucket idx to buf
// and returns it. The caller must hold the wheel lock; the collected
// references are re-checked under the lock before every fire, so the
// snapshot stays safe against concurrent API mutation for one
// dispatcher pass.
func (w *timerWheel) snapshot(idx uint16, buf []*Timer) []*Timer {
	w.buckets[idx].forEach(func(e *Timer) bool {
		buf = append(buf, e)
		return true
	})
	return buf
}

// runningCount returns the total number of linked records.
func (w *timerWheel) runningCount() uint32 {
	var n uint32
	for i := 0; i < len(w.buckets); i++ {
		n += w.buckets[i].size
	}
	return n
}

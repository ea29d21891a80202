// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package htimer

// timerLst is an intrusive circular doubly-linked list of timer
// records, used both for the pool free list and for the wheel
// buckets. The links live inside the records, so membership moves are
// allocation-free. There is no internal locking.
type timerLst struct {
	head Timer  // used only as list head (only next, prev & info)
	idx  uint16 // owning list index, stamped on every member
	size uint32 // current number of members
}

// init initialises a list head (circular list).
func (lst *timerLst) init(idx uint16) {
	lst.forceEmpty()
	lst.idx = idx
	lst.size = 0
	lst.head.info.setAll(stateHead, idx)
}

// forceEmpty will completely empty the list (re-init the list head).
func (lst *timerLst) forceEmpty() {
	lst.head.next = &lst.head
	lst.head.prev = &lst.head
}

// isEmpty returns true if the list is empty.
func (lst *timerLst) isEmpty() bool {
	return lst.head.next == &lst.head
}

// insert adds a detached record at the head of the list.
func (lst *timerLst) insert(e *Timer) {
	if !e.Detached() {
		PANIC("timerLst insert called on an entry not detached:"+
			" %p %s on lst %d, next %p prev %p\n",
			e, e.info, lst.idx, e.next, e.prev)
	}
	if idx := e.info.idx(); idx != idxNone {
		PANIC("timerLst insert called on an entry already owned by"+
			" list %d: %p %s, lst %d\n",
			idx, e, e.info, lst.idx)
	}

	e.prev = &lst.head
	e.next = lst.head.next
	e.next.prev = e
	lst.head.next = e
	lst.size++
	e.info.setIdx(lst.idx)
}

// rm removes a record from the list.
func (lst *timerLst) rm(e *Timer) {
	if e == nil || e.next == nil || e.prev == nil {
		PANIC("timerLst rm called with nil-detached element %p\n", e)
	}
	if e.next == e || e.prev == e {
		if e == &lst.head {
			PANIC("timerLst trying to rm the list head %p\n", e)
		} else {
			PANIC("timerLst rm called with detached element %p:"+
				" match %s %s\n", e, e.match, e.info)
		}
	}
	if idx := e.info.idx(); idx != lst.idx {
		PANIC("timerLst rm called on an entry from a different list:"+
			" %d, lst %d (%p %s)\n", idx, lst.idx, e, e.info)
	}
	e.prev.next = e.next
	e.next.prev = e.prev
	// "mark" e as detached
	e.next = e
	e.prev = e
	lst.size--
	e.info.setIdx(idxNone)
}

// forEach iterates on the entire list calling f(e) for each element.
// It stops immediately if f() returns false.
// WARNING: it does not support removing the current list element
// from f().
func (lst *timerLst) forEach(f func(e *Timer) bool) {
	cont := true
	for v := lst.head.next; v != &lst.head && cont; v = v.next {
		cont = f(v)
	}
}

// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package htimer

import (
	"time"

	"github.com/intuitivelabs/timestamp"
)

// tickerState holds the built-in tick source bookkeeping. Only the
// ticker goroutine touches it.
type tickerState struct {
	lastTickT timestamp.TS // last time the tick counter was fed
	refTS     timestamp.TS // reference time stamp (for refTicks)
	refTicks  Ticks        // tick counter value at refTS
	badTime   uint32       // count time going backwards
}

// StartTicker launches the built-in tick source: a goroutine that
// posts one tick per elapsed tick period, catching up on periods lost
// to scheduling latency. Call it after Start(); it stops together
// with the dispatcher on Shutdown(). Any host source that calls
// OnTick() once per period can be used instead.
func (ht *HTimer) StartTicker() {
	ht.tickerSt.lastTickT = timestamp.Now()
	ht.tickerSt.refTS = ht.tickerSt.lastTickT
	ht.tickerSt.refTicks = ht.Now()
	ht.wg.Add(1)
	go func() {
		defer ht.wg.Done()
		if DBGon() {
			DBG("starting ticker with %s at %s\n",
				ht.tickDuration, time.Now())
		}
		ticker := time.NewTicker(ht.tickDuration)
	loop:
		for {
			select {
			case <-ht.cancel:
				break loop
			case _, ok := <-ticker.C:
				if !ok {
					break loop
				}
				ht.ticker()
			}
		}
		ticker.Stop()
	}()
}

// ticker computes how many tick periods elapsed since the last call
// and posts one tick for each. It must not be called in parallel.
// It returns the number of ticks posted.
func (ht *HTimer) ticker() uint64 {
	ts := &ht.tickerSt
	now := timestamp.Now()
	if now.Before(ts.lastTickT) {
		// time going backwards!!
		ts.badTime++
		if ts.badTime > 10 {
			// re-init
			if ERRon() {
				ERR("trying to recover after time going backward"+
					" %d times with %s\n",
					ts.badTime, ts.lastTickT.Sub(now))
			}
			ts.lastTickT = now
			ts.refTS = now
			ts.refTicks = ht.Now()
		} else if DBGon() {
			DBG("ticker: time going backward with %s (%d times)\n",
				ts.lastTickT.Sub(now), ts.badTime)
		}
		return 0
	}
	ts.badTime = 0

	runTime := now.Sub(ts.refTS)
	runTicks := ht.Now().Sub(ts.refTicks)
	if runTime > ht.Duration(runTicks.AddUint64(1+20)) {
		if DBGon() {
			lost, _ := ht.Ticks(runTime - ht.Duration(runTicks))
			DBG("ticker: %d ticks (%s) behind wall time after %s\n",
				lost.Val(), ht.Duration(lost), runTime)
		}
	}

	diff := now.Sub(ts.lastTickT)
	if diff < ht.tickDuration {
		// too little time has passed
		return 0
	}
	ticks, rest := ht.Ticks(diff)
	ts.lastTickT = now.Add(-rest)
	for i := uint64(0); i < ticks.Val(); i++ {
		ht.OnTick()
	}
	return ticks.Val()
}

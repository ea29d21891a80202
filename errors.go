// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package htimer

import (
	"errors"
)

var ErrInvalidTimer = errors.New("invalid (nil) timer handle")
var ErrInvalidType = errors.New("handle does not refer to a pool timer")
var ErrInactiveTimer = errors.New("called on an unused timer")
var ErrInvalidState = errors.New("operation not permitted in the current state")
var ErrInvalidDelay = errors.New("invalid timer delay")
var ErrInvalidPeriod = errors.New("invalid timer period")
var ErrInvalidOpt = errors.New("invalid option")
var ErrNoTimersAvail = errors.New("no free timers in the pool")
var ErrAlreadyStopped = errors.New("timer already stopped")
var ErrNoCallback = errors.New("timer has no callback set")
var ErrInitialised = errors.New("already initialised")
var ErrInvalidParameters = errors.New("invalid parameters")

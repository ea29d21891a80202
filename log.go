// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package htimer

import (
	"github.com/intuitivelabs/slog"
)

// Log is the package log handle. The default level logs notices and
// above; it can be changed with slog.SetLevel(&Log, ...).
var Log slog.Log

func init() {
	slog.Init(&Log, slog.LNOTICE, slog.LOptNone, slog.LStdErr)
}

// level checks, used to avoid formatting work when the corresponding
// level is disabled
func DBGon() bool  { return Log.DBGon() }
func WARNon() bool { return Log.WARNon() }
func ERRon() bool  { return Log.ERRon() }

func DBG(f string, a ...interface{})  { Log.DBG(f, a...) }
func WARN(f string, a ...interface{}) { Log.WARN(f, a...) }
func ERR(f string, a ...interface{})  { Log.ERR(f, a...) }

// BUG reports an internal error that should never happen.
func BUG(f string, a ...interface{}) { Log.BUG(f, a...) }

// PANIC reports an internal consistency violation and aborts.
// Silent corruption is never an option.
func PANIC(f string, a ...interface{}) { Log.PANIC(f, a...) }

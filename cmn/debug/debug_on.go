//go:build debug

// Package provides debug utilities
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package debug

import (
	"fmt"
	"net/http"
	"sync"
)

func ON() bool { return true }

func Infof(format string, a ...any) { fmt.Printf("[debug] "+format+"\n", a...) }

func Func(f func()) { f() }

func Assert(cond bool, a ...any) {
	if !cond {
		panic(fmt.Sprint("assertion failed", fmt.Sprint(a...)))
	}
}

func AssertFunc(f func() bool, a ...any) { Assert(f(), a...) }
func AssertNoErr(err error)              { Assert(err == nil, err) }
func Assertf(cond bool, format string, a ...any) {
	if !cond {
		panic(fmt.Sprintf(format, a...))
	}
}

func AssertNotPstr(v any) { Assert(v != nil, "unexpected nil pointer/string") }
func FailTypeCast(v any)  { panic(fmt.Sprintf("unexpected type %T", v)) }

// AssertMutexLocked and friends are best-effort: sync.Mutex does not expose
// lock state, so these only catch the trivially-unlocked case via TryLock,
// releasing it immediately if it succeeded (meaning the mutex was NOT held).
func AssertMutexLocked(m *sync.Mutex) {
	if m.TryLock() {
		m.Unlock()
		panic("assertion failed: mutex not locked")
	}
}

func AssertRWMutexLocked(m *sync.RWMutex) {
	if m.TryLock() {
		m.Unlock()
		panic("assertion failed: rwmutex not locked")
	}
}

func AssertRWMutexRLocked(m *sync.RWMutex) {
	if m.TryLock() {
		m.Unlock()
		panic("assertion failed: rwmutex not r-locked")
	}
}

func Handlers() map[string]http.HandlerFunc {
	return nil
}

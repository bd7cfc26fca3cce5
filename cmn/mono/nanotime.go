//go:build !mono

// Package mono provides low-level monotonic time
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package mono

import "time"

// NanoTime returns the current time in nanoseconds. This portable fallback
// reads the wall clock (time.Now().UnixNano()), so it is not monotonic; the
// `mono` build tag swaps in the runtime's monotonic clock (fast_nanotime.go).
func NanoTime() int64 { return time.Now().UnixNano() }

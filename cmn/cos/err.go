// Package cos provides common low-level types and utilities shared across
// cascade's packages.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	ratomic "sync/atomic"
	"syscall"

	"github.com/cascadedb/cascade/cmn/debug"
)

// Errs accumulates up to maxErrs distinct errors, de-duplicated by message,
// and joins them into a single error on demand.
type Errs struct {
	errs []error
	cnt  int64
	mu   sync.Mutex
}

const maxErrs = 4

func (e *Errs) Add(err error) {
	debug.Assert(err != nil)
	e.mu.Lock()
	for _, added := range e.errs {
		if added.Error() == err.Error() {
			e.mu.Unlock()
			return
		}
	}
	if len(e.errs) < maxErrs {
		e.errs = append(e.errs, err)
		ratomic.StoreInt64(&e.cnt, int64(len(e.errs)))
	}
	e.mu.Unlock()
}

func (e *Errs) Cnt() int { return int(ratomic.LoadInt64(&e.cnt)) }

func (e *Errs) JoinErr() (cnt int, err error) {
	if cnt = e.Cnt(); cnt > 0 {
		e.mu.Lock()
		err = errors.Join(e.errs...)
		e.mu.Unlock()
	}
	return
}

// Error makes Errs itself an error: the first accumulated error plus a count
// of how many more followed it.
func (e *Errs) Error() (s string) {
	var (
		err error
		cnt = e.Cnt()
	)
	if cnt == 0 {
		return
	}
	e.mu.Lock()
	if cnt = len(e.errs); cnt > 0 {
		err = e.errs[0]
	}
	e.mu.Unlock()
	if err == nil {
		return
	}
	if cnt > 1 {
		err = fmt.Errorf("%v (and %d more error%s)", err, cnt-1, plural(cnt-1))
	}
	s = err.Error()
	return
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

//
// conn-error classifiers — exchange/remote uses IsUnreachable only to decide
// whether to log a warning for a failed take request (no retry loop).
//

func IsErrConnectionRefused(err error) bool { return errors.Is(err, syscall.ECONNREFUSED) }
func IsErrConnectionReset(err error) bool   { return errors.Is(err, syscall.ECONNRESET) }
func IsErrBrokenPipe(err error) bool        { return errors.Is(err, syscall.EPIPE) }

func IsRetriableConnErr(err error) bool {
	return IsErrConnectionRefused(err) || IsErrConnectionReset(err) || IsErrBrokenPipe(err)
}

func isErrDNSLookup(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// IsUnreachable reports whether err (optionally paired with an HTTP status)
// indicates the remote shuffle endpoint could not be reached at all, as
// opposed to reaching it and getting an application-level error back.
func IsUnreachable(err error, status int) bool {
	return IsErrConnectionRefused(err) ||
		isErrDNSLookup(err) ||
		errors.Is(err, context.DeadlineExceeded) ||
		status == http.StatusRequestTimeout ||
		status == http.StatusServiceUnavailable ||
		status == http.StatusBadGateway
}

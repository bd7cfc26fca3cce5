// Package cos provides common low-level types and utilities shared across
// cascade's packages.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import (
	"sync/atomic"

	"github.com/teris-io/shortid"
)

// Alphabet for generating short, URL-safe request/session IDs.
const uuidABC = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"

const LenShortID = 9 // as per https://github.com/teris-io/shortid#id-length

var (
	sid  *shortid.Shortid
	rtie atomic.Uint32
)

// InitShortID seeds the package-wide shortid generator. Must be called once
// at process startup before GenUUID is used.
func InitShortID(seed uint64) {
	sid = shortid.MustNew(4 /*worker*/, uuidABC, seed)
}

// GenUUID generates a short unique identifier, used for exchange source
// request IDs and block-cache loader trace IDs. Tie-broken at both ends so
// that the result never starts or ends with a character that reads oddly
// when embedded in log lines or URLs.
func GenUUID() (uuid string) {
	var h, t string
	uuid = sid.MustGenerate()
	if !isAlpha(uuid[0]) {
		tie := int(rtie.Add(1))
		h = string(rune('A' + tie%26))
	}
	c := uuid[len(uuid)-1]
	if c == '-' || c == '_' {
		tie := int(rtie.Add(1))
		t = string(rune('a' + tie%26))
	}
	return h + uuid + t
}

func IsValidUUID(uuid string) bool {
	return len(uuid) >= LenShortID && isAlphaNice(uuid)
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

const tooLongID = 32

func isAlphaNice(s string) bool {
	l := len(s)
	if l > tooLongID {
		return false
	}
	for i := range l {
		c := s[i]
		if isAlpha(c) || (c >= '0' && c <= '9') {
			continue
		}
		if c != '-' && c != '_' {
			return false
		}
		if i == 0 || i == l-1 {
			return false
		}
	}
	return true
}

// GenTie returns a 3-character tie breaker, fast enough to call on every
// retry of a colliding ID.
func GenTie() string {
	tie := rtie.Add(1)
	b0 := uuidABC[tie&0x3f]
	b1 := uuidABC[-tie&0x3f]
	b2 := uuidABC[(tie>>2)&0x3f]
	return string([]byte{b0, b1, b2})
}

func init() {
	// default seed so GenUUID works out of the box in tests; production
	// call sites should InitShortID with a real seed at startup.
	InitShortID(1)
}

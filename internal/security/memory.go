// Package security provides memory-hygiene and validation utilities for
// components that handle raw share material.
package security

import (
	"crypto/subtle"
	"math/big"
	"runtime"
)

// Wipe zeroes a byte slice holding secret material.
// subtle.ConstantTimeCopy is used so the compiler cannot elide the store.
func Wipe(data []byte) {
	if len(data) == 0 {
		return
	}

	zeros := make([]byte, len(data))
	subtle.ConstantTimeCopy(1, data, zeros)

	runtime.KeepAlive(data)
}

// WipeBigInt clears a big.Int that held a secret scalar.
// Go's big.Int does not expose its internal buffer, so the value is
// overwritten with zero and the old limbs are left to the collector.
func WipeBigInt(b *big.Int) {
	if b == nil {
		return
	}

	b.SetInt64(0)
	runtime.KeepAlive(b)
}

// WipeAll wipes every supplied buffer. Intended for use in a single defer
// covering all ephemeral material of one operation.
func WipeAll(buffers ...[]byte) {
	for _, buf := range buffers {
		Wipe(buf)
	}
}

// ConstantTimeCompare reports whether a and b are equal without leaking
// the position of the first difference.
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// CompareScalars compares two non-negative scalars in constant time with
// respect to their values. Nil scalars are never equal to anything.
func CompareScalars(a, b *big.Int) bool {
	if a == nil || b == nil {
		return false
	}

	aBytes := a.Bytes()
	bBytes := b.Bytes()

	// Pad to equal length so the comparison is length-independent
	maxLen := len(aBytes)
	if len(bBytes) > maxLen {
		maxLen = len(bBytes)
	}

	aPadded := make([]byte, maxLen)
	bPadded := make([]byte, maxLen)
	copy(aPadded[maxLen-len(aBytes):], aBytes)
	copy(bPadded[maxLen-len(bBytes):], bBytes)

	return subtle.ConstantTimeCompare(aPadded, bPadded) == 1
}

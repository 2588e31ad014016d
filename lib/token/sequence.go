// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package token

import (
	"encoding/binary"

	"github.com/bureau-foundation/msl/lib/mslerror"
	"github.com/bureau-foundation/msl/lib/primitive"
)

// MaxLongValue is the largest sequence or serial number. It is the
// largest integer every JSON implementation represents exactly.
const MaxLongValue int64 = 1 << 53

// sequenceWrapWindow is how far past the wrap point a small sequence
// number is still treated as newer than a large one.
const sequenceWrapWindow = 127

// CheckSequenceNumber rejects sequence numbers outside
// [0, MaxLongValue].
func CheckSequenceNumber(sequenceNumber int64) error {
	if sequenceNumber < 0 || sequenceNumber > MaxLongValue {
		return mslerror.New(mslerror.SequenceNumberOutOfRange, "sequence number %d", sequenceNumber)
	}
	return nil
}

// CheckSerialNumber rejects serial numbers outside [0, MaxLongValue].
func CheckSerialNumber(serialNumber int64) error {
	if serialNumber < 0 || serialNumber > MaxLongValue {
		return mslerror.New(mslerror.SerialNumberOutOfRange, "serial number %d", serialNumber)
	}
	return nil
}

// NextSequence returns the sequence number following n, wrapping
// MaxLongValue to zero.
func NextSequence(n int64) int64 {
	if n >= MaxLongValue {
		return 0
	}
	return n + 1
}

// SequenceNewer reports whether sequence number a is strictly newer
// than b, accounting for wrap-around. Equal numbers are not newer;
// callers break the tie on expiration.
func SequenceNewer(a, b int64) bool {
	switch {
	case a == b:
		return false
	case a > b:
		cutoff := a - MaxLongValue + sequenceWrapWindow
		return b >= cutoff
	default:
		cutoff := b - MaxLongValue + sequenceWrapWindow
		return a < cutoff
	}
}

// RandomSerial returns a uniformly random serial number in
// [0, MaxLongValue].
func RandomSerial(provider primitive.Provider) (int64, error) {
	const mask = uint64(1)<<54 - 1
	for {
		random, err := provider.Random(8)
		if err != nil {
			return 0, mslerror.Wrap(mslerror.RandomError, err, "generating serial number")
		}
		candidate := binary.BigEndian.Uint64(random) & mask
		if candidate <= uint64(MaxLongValue) {
			return int64(candidate), nil
		}
	}
}

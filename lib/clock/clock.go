// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts the current time. Production code injects Real();
// tests inject Fake() to pin token windows to known instants.
//
// Token predicates (IsRenewable, IsExpired) take an explicit time
// argument instead of a Clock, so that a caller evaluating one message
// evaluates every token in it against the same instant. Components
// that mint tokens hold a Clock.
type Clock interface {
	Now() time.Time
}

// Real returns the wall clock.
func Real() Clock { return wallClock{} }

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

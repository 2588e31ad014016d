// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"time"
)

// FakeClock is a Clock that only moves when told to. It is safe for
// concurrent use, so one FakeClock can drive an issuer under test
// while other goroutines renew against it.
type FakeClock struct {
	lock sync.Mutex
	now  time.Time
}

// Fake returns a FakeClock stopped at start.
func Fake(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (fake *FakeClock) Now() time.Time {
	fake.lock.Lock()
	defer fake.lock.Unlock()
	return fake.now
}

// Advance steps the clock by delta. A negative delta steps it back,
// which simulates an issuer whose clock is behind the client's.
func (fake *FakeClock) Advance(delta time.Duration) {
	fake.lock.Lock()
	fake.now = fake.now.Add(delta)
	fake.lock.Unlock()
}

// Set jumps the clock to instant.
func (fake *FakeClock) Set(instant time.Time) {
	fake.lock.Lock()
	fake.now = instant
	fake.lock.Unlock()
}

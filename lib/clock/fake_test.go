// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"testing"
	"time"
)

var epoch = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func TestFakeAdvanceAndSet(t *testing.T) {
	c := Fake(epoch)
	if !c.Now().Equal(epoch) {
		t.Fatalf("Now = %v, want %v", c.Now(), epoch)
	}

	c.Advance(10 * time.Second)
	if want := epoch.Add(10 * time.Second); !c.Now().Equal(want) {
		t.Errorf("after Advance: Now = %v, want %v", c.Now(), want)
	}

	c.Advance(-20 * time.Second)
	if want := epoch.Add(-10 * time.Second); !c.Now().Equal(want) {
		t.Errorf("after negative Advance: Now = %v, want %v", c.Now(), want)
	}

	c.Set(epoch)
	if !c.Now().Equal(epoch) {
		t.Errorf("after Set: Now = %v, want %v", c.Now(), epoch)
	}
}

func TestFakeConcurrentAdvance(t *testing.T) {
	c := Fake(epoch)
	var group sync.WaitGroup
	for i := 0; i < 50; i++ {
		group.Add(1)
		go func() {
			defer group.Done()
			c.Advance(time.Second)
			_ = c.Now()
		}()
	}
	group.Wait()

	if want := epoch.Add(50 * time.Second); !c.Now().Equal(want) {
		t.Errorf("Now = %v, want %v", c.Now(), want)
	}
}

func TestRealIsMonotonicEnough(t *testing.T) {
	c := Real()
	first := c.Now()
	second := c.Now()
	if second.Before(first) {
		t.Errorf("Real clock went backwards: %v then %v", first, second)
	}
}

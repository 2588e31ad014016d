// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package servicetoken

import (
	"cmp"
	"slices"
	"sync"

	"github.com/bureau-foundation/msl/lib/mastertoken"
	"github.com/bureau-foundation/msl/lib/useridtoken"
)

// Key identifies a service token: its name and its bindings. Unbound
// serials are -1. Two tokens with equal keys are the same token for
// storage purposes even when their data differs.
type Key struct {
	Name              string
	MasterTokenSerial int64
	UserIdTokenSerial int64
}

func compareKeys(a, b Key) int {
	return cmp.Or(
		cmp.Compare(a.Name, b.Name),
		cmp.Compare(a.MasterTokenSerial, b.MasterTokenSerial),
		cmp.Compare(a.UserIdTokenSerial, b.UserIdTokenSerial),
	)
}

// Set is a thread-safe collection of service tokens holding at most
// one token per Key.
type Set struct {
	mu     sync.RWMutex
	tokens map[Key]*ServiceToken
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{
		tokens: make(map[Key]*ServiceToken),
	}
}

// Put stores serviceToken, replacing any token with the same key.
// Returns whether a token was replaced.
func (s *Set) Put(serviceToken *ServiceToken) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := serviceToken.Key()
	_, replaced := s.tokens[key]
	s.tokens[key] = serviceToken
	return replaced
}

// Get returns the token with key.
func (s *Set) Get(key Key) (*ServiceToken, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	serviceToken, ok := s.tokens[key]
	return serviceToken, ok
}

// Delete removes the token with key and reports whether it existed.
func (s *Set) Delete(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[key]
	delete(s.tokens, key)
	return ok
}

// Len returns the number of tokens.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

// Tokens returns every token ordered by key.
func (s *Set) Tokens() []*ServiceToken {
	return s.collect(func(*ServiceToken) bool { return true })
}

// Applicable returns the tokens a message carrying master and user may
// include: unbound tokens, tokens bound to master's lineage without a
// user binding, and tokens bound to both master and user. Either
// argument may be nil.
func (s *Set) Applicable(master *mastertoken.MasterToken, user *useridtoken.UserIdToken) []*ServiceToken {
	return s.collect(func(serviceToken *ServiceToken) bool {
		switch {
		case serviceToken.IsUnbound():
			return true
		case !serviceToken.IsBoundTo(master):
			return false
		case !serviceToken.IsUserIdTokenBound():
			return true
		default:
			return serviceToken.IsUserBoundTo(user)
		}
	})
}

// RemoveBoundTo removes every token bound to the master token serial
// number and returns how many were removed.
func (s *Set) RemoveBoundTo(masterTokenSerial int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.tokens {
		if key.MasterTokenSerial == masterTokenSerial {
			delete(s.tokens, key)
			removed++
		}
	}
	return removed
}

func (s *Set) collect(keep func(*ServiceToken) bool) []*ServiceToken {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*ServiceToken
	for _, serviceToken := range s.tokens {
		if keep(serviceToken) {
			result = append(result, serviceToken)
		}
	}
	slices.SortFunc(result, func(a, b *ServiceToken) int {
		return compareKeys(a.Key(), b.Key())
	})
	return result
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tokenstore

import (
	"context"
	"sync"
	"time"

	"github.com/bureau-foundation/msl/lib/mastertoken"
)

// Memory is an in-process Store.
type Memory struct {
	mu      sync.Mutex
	records map[int64]Record
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[int64]Record)}
}

func (m *Memory) Accept(_ context.Context, masterToken *mastertoken.MasterToken) (bool, error) {
	if err := checkTrusted(masterToken); err != nil {
		return false, err
	}
	offered := RecordOf(masterToken)

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.records[offered.SerialNumber]; ok && !offered.IsNewerThan(existing) {
		return false, nil
	}
	m.records[offered.SerialNumber] = offered
	return true, nil
}

func (m *Memory) Newest(_ context.Context, serialNumber int64) (Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[serialNumber]
	return record, ok, nil
}

func (m *Memory) Purge(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for serial, record := range m.records {
		if !now.Before(record.Expiration) {
			delete(m.records, serial)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of recorded lineages.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

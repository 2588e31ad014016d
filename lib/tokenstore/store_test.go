// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tokenstore

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/msl/lib/codec"
	"github.com/bureau-foundation/msl/lib/cryptocontext"
	"github.com/bureau-foundation/msl/lib/mastertoken"
	"github.com/bureau-foundation/msl/lib/mslerror"
	"github.com/bureau-foundation/msl/lib/primitive"
	"github.com/bureau-foundation/msl/lib/token"
)

var (
	_ Store = (*Memory)(nil)
	_ Store = (*SQLite)(nil)
)

var epoch = time.Unix(1_800_000_000, 0)

type minter struct {
	t      *testing.T
	issuer *cryptocontext.Symmetric
	keys   mastertoken.SessionKeys
}

func newMinter(t *testing.T) *minter {
	t.Helper()
	secret := func(algorithm primitive.Algorithm, fill byte, size int) primitive.SecretKey {
		key, err := primitive.NewSecretKey(algorithm, bytes.Repeat([]byte{fill}, size))
		if err != nil {
			t.Fatalf("NewSecretKey: %v", err)
		}
		return key
	}
	issuer, err := cryptocontext.NewSymmetric(nil, "issuer", cryptocontext.SymmetricKeys{
		Encryption: secret(primitive.AES, 1, 16),
		HMAC:       secret(primitive.HMACSHA256, 2, 32),
	})
	if err != nil {
		t.Fatalf("NewSymmetric: %v", err)
	}
	return &minter{
		t:      t,
		issuer: issuer,
		keys: mastertoken.SessionKeys{
			Encryption: secret(primitive.AES, 3, 16),
			HMAC:       secret(primitive.HMACSHA256, 4, 32),
		},
	}
}

func (m *minter) mint(serial, sequence int64, expiration time.Duration) *mastertoken.MasterToken {
	m.t.Helper()
	masterToken, err := mastertoken.Create(m.issuer, codec.CBOR, mastertoken.Params{
		RenewalWindow:  epoch,
		Expiration:     epoch.Add(expiration),
		SequenceNumber: sequence,
		SerialNumber:   serial,
		Identity:       "device-1",
		SessionKeys:    m.keys,
	})
	if err != nil {
		m.t.Fatalf("mastertoken.Create: %v", err)
	}
	return masterToken
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	sqliteStore, err := OpenSQLite(context.Background(), SQLiteConfig{Path: filepath.Join(t.TempDir(), "tokens.db")})
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		if err := sqliteStore.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": sqliteStore,
	}
}

func TestAcceptSupersession(t *testing.T) {
	m := newMinter(t)
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			steps := []struct {
				name   string
				token  *mastertoken.MasterToken
				accept bool
				newest int64
			}{
				{"first", m.mint(10, 5, time.Hour), true, 5},
				{"replay", m.mint(10, 5, time.Hour), false, 5},
				{"older", m.mint(10, 4, 2*time.Hour), false, 5},
				{"renewal", m.mint(10, 6, time.Hour), true, 6},
				{"same sequence later expiration", m.mint(10, 6, 2*time.Hour), true, 6},
			}
			for _, step := range steps {
				accepted, err := store.Accept(ctx, step.token)
				if err != nil {
					t.Fatalf("%s: Accept: %v", step.name, err)
				}
				if accepted != step.accept {
					t.Errorf("%s: Accept = %v, want %v", step.name, accepted, step.accept)
				}
				record, found, err := store.Newest(ctx, 10)
				if err != nil || !found {
					t.Fatalf("%s: Newest = %v, %v", step.name, found, err)
				}
				if record.SequenceNumber != step.newest {
					t.Errorf("%s: newest sequence = %d, want %d", step.name, record.SequenceNumber, step.newest)
				}
			}
			record, _, _ := store.Newest(ctx, 10)
			if !record.Expiration.Equal(epoch.Add(2 * time.Hour)) {
				t.Errorf("newest expiration = %s, want +2h", record.Expiration)
			}
		})
	}
}

func TestAcceptAcrossSequenceWrap(t *testing.T) {
	m := newMinter(t)
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Accept(ctx, m.mint(3, token.MaxLongValue, time.Hour)); err != nil {
				t.Fatalf("Accept: %v", err)
			}
			accepted, err := store.Accept(ctx, m.mint(3, token.NextSequence(token.MaxLongValue), time.Hour))
			if err != nil {
				t.Fatalf("Accept: %v", err)
			}
			if !accepted {
				t.Error("wrapped sequence number not accepted as newer")
			}
		})
	}
}

func TestAcceptRefusesUntrusted(t *testing.T) {
	m := newMinter(t)
	encoded, err := m.mint(1, 1, time.Hour).Encode(codec.CBOR)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	untrusted, err := mastertoken.Parse(codec.CBOR, encoded, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for name, store := range backends(t) {
		if _, err := store.Accept(context.Background(), untrusted); !errors.Is(err, mslerror.MasterTokenUntrusted) {
			t.Errorf("%s: Accept(untrusted) error = %v, want MASTERTOKEN_UNTRUSTED", name, err)
		}
	}
}

func TestPurge(t *testing.T) {
	m := newMinter(t)
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for serial, lifetime := range map[int64]time.Duration{1: time.Minute, 2: time.Hour, 3: 2 * time.Hour} {
				if _, err := store.Accept(ctx, m.mint(serial, 1, lifetime)); err != nil {
					t.Fatalf("Accept: %v", err)
				}
			}
			removed, err := store.Purge(ctx, epoch.Add(time.Hour))
			if err != nil {
				t.Fatalf("Purge: %v", err)
			}
			if removed != 2 {
				t.Errorf("Purge removed %d, want 2", removed)
			}
			if _, found, _ := store.Newest(ctx, 3); !found {
				t.Error("unexpired lineage purged")
			}
			if _, found, _ := store.Newest(ctx, 1); found {
				t.Error("expired lineage kept")
			}
		})
	}
}

func TestConcurrentRenewalsOneWinner(t *testing.T) {
	m := newMinter(t)
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Accept(ctx, m.mint(9, 1, time.Hour)); err != nil {
				t.Fatalf("Accept: %v", err)
			}
			renewal := m.mint(9, 2, time.Hour)

			var waitGroup sync.WaitGroup
			var mu sync.Mutex
			winners := 0
			for range 8 {
				waitGroup.Add(1)
				go func() {
					defer waitGroup.Done()
					accepted, err := store.Accept(ctx, renewal)
					if err != nil {
						t.Errorf("Accept: %v", err)
						return
					}
					if accepted {
						mu.Lock()
						winners++
						mu.Unlock()
					}
				}()
			}
			waitGroup.Wait()
			if winners != 1 {
				t.Errorf("%d concurrent renewals accepted, want 1", winners)
			}
		})
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tokenstore records the newest master token the issuer has
// accepted for each serial number lineage.
//
// Master tokens are immutable, so "renewal" issues a new token with
// the next sequence number. Two renewals racing against one lineage
// must not both win: [Store.Accept] is a compare-and-swap that records
// the offered token only when no token for its serial number is known
// or the offered token is newer than the recorded one (sequence number
// with wrap-around, ties broken by later expiration). The issuer uses
// the recorded sequence number to refuse renewal of a token that has
// already been superseded.
//
// Two backends: [Memory] for tests and single-process issuers, and
// [SQLite] over lib/sqlitepool for issuers that must survive restart.
package tokenstore

import (
	"context"
	"time"

	"github.com/bureau-foundation/msl/lib/mastertoken"
	"github.com/bureau-foundation/msl/lib/mslerror"
	"github.com/bureau-foundation/msl/lib/token"
)

// Record is what the store keeps about a master token. Session keys
// and identity are never stored.
type Record struct {
	SerialNumber   int64
	SequenceNumber int64
	RenewalWindow  time.Time
	Expiration     time.Time
}

// RecordOf extracts the record of masterToken.
func RecordOf(masterToken *mastertoken.MasterToken) Record {
	return Record{
		SerialNumber:   masterToken.SerialNumber(),
		SequenceNumber: masterToken.SequenceNumber(),
		RenewalWindow:  masterToken.RenewalWindow(),
		Expiration:     masterToken.Expiration(),
	}
}

// IsNewerThan orders two records of the same lineage the way
// MasterToken.IsNewerThan orders tokens.
func (record Record) IsNewerThan(other Record) bool {
	if record.SequenceNumber == other.SequenceNumber {
		return record.Expiration.After(other.Expiration)
	}
	return token.SequenceNewer(record.SequenceNumber, other.SequenceNumber)
}

// Store is the supersession store.
type Store interface {
	// Accept records masterToken if it is the newest of its lineage
	// and reports whether it did. Untrusted tokens are refused with
	// MASTERTOKEN_UNTRUSTED.
	Accept(ctx context.Context, masterToken *mastertoken.MasterToken) (bool, error)

	// Newest returns the recorded token of a lineage.
	Newest(ctx context.Context, serialNumber int64) (Record, bool, error)

	// Purge forgets every lineage whose newest token expired at or
	// before now and returns how many were removed.
	Purge(ctx context.Context, now time.Time) (int, error)
}

func checkTrusted(masterToken *mastertoken.MasterToken) error {
	if !masterToken.Verified() {
		return mslerror.New(mslerror.MasterTokenUntrusted,
			"refusing to record master token %d/%d (%s)", masterToken.SerialNumber(), masterToken.SequenceNumber(), masterToken.State())
	}
	return nil
}

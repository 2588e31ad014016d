// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// The issuer stamps renewal windows and expirations from a Clock so
// tests can mint tokens at fixed instants and step across window
// boundaries:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	iss, _ := issuer.New(issuer.Config{Clock: c, ...})
//	master, _ := iss.CreateMasterToken(ctx, entity, nil)
//	c.Advance(13 * time.Hour)
//	master.Token().IsRenewable(c.Now()) // true with the 12h default window
package clock

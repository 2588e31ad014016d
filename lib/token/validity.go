// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package token

import (
	"time"

	"github.com/bureau-foundation/msl/lib/mslerror"
)

// Validity is the renewal window and expiration of a token. Both are
// carried on the wire as Unix seconds, so [NewValidity] truncates to
// whole seconds and a parsed token compares equal to the one that was
// issued.
type Validity struct {
	RenewalWindow time.Time
	Expiration    time.Time
}

// NewValidity returns a Validity truncated to whole seconds and checks
// that expiration is not before the renewal window.
func NewValidity(renewalWindow, expiration time.Time) (Validity, error) {
	validity := Validity{
		RenewalWindow: time.Unix(renewalWindow.Unix(), 0),
		Expiration:    time.Unix(expiration.Unix(), 0),
	}
	return validity, validity.Check()
}

// ValidityFromUnix builds a Validity from wire timestamps.
func ValidityFromUnix(renewalWindow, expiration int64) (Validity, error) {
	return NewValidity(time.Unix(renewalWindow, 0), time.Unix(expiration, 0))
}

// Check reports EXPIRATION_BEFORE_RENEWAL when the window is inverted.
func (validity Validity) Check() error {
	if validity.Expiration.Before(validity.RenewalWindow) {
		return mslerror.New(mslerror.ExpirationBeforeRenewal,
			"expiration %s is before renewal window %s",
			validity.Expiration.UTC().Format(time.RFC3339), validity.RenewalWindow.UTC().Format(time.RFC3339))
	}
	return nil
}

// IsRenewable reports whether now is at or past the renewal window.
func (validity Validity) IsRenewable(now time.Time) bool {
	return !now.Before(validity.RenewalWindow)
}

// IsExpired reports whether now is at or past the expiration.
func (validity Validity) IsExpired(now time.Time) bool {
	return !now.Before(validity.Expiration)
}

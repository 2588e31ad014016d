// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package mslerror defines the error taxonomy surfaced by the trust
// core. Every failure is one of three kinds:
//
//   - [KindEncoding]: malformed or missing wire fields. Never retried.
//   - [KindCrypto]: a capability is absent (SIGN_NOT_SUPPORTED and
//     friends), key material failed to import, or a primitive failed.
//   - [KindProtocol]: a structurally valid token violates an
//     invariant (expiration before renewal window, broken binding,
//     out-of-range serial number).
//
// Each error carries a stable [Code]. Callers match with errors.Is
// against the code sentinels:
//
//	if errors.Is(err, mslerror.SignNotSupported) {
//	    // only the public half of the keypair is held
//	}
//
// Signature mismatch is not an error anywhere in the core: Verify
// returns false. The kinds are never coerced into one another.
package mslerror

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package token holds what master tokens, user ID tokens and service
// tokens share: the signed envelope, the renewal/expiration window,
// sequence and serial number arithmetic, and the trust states a token
// moves through.
//
// # Envelope
//
// Every token is encoded as {tokendata, signature}. The tokendata
// bytes are the encoded token fields; the signature covers exactly
// those bytes and is produced by the issuing CryptoContext. A parser
// keeps the original tokendata bytes so re-encoding a parsed token
// reproduces the signed bytes exactly.
//
// # Trust
//
// A token built by its issuer is [ConstructedTrusted]. A token parsed
// from bytes is [ParsedTrusted] when the signature verified and
// [ParsedUntrusted] otherwise. Untrusted tokens still parse into
// queryable objects; they are never authentication evidence.
// [VerifyEnvelope] encodes the rule for which verification outcomes
// mean "untrusted" rather than "error".
//
// # Sequence numbers
//
// Sequence numbers count renewals within one serial-number lineage
// and wrap from [MaxLongValue] to zero. [SequenceNewer] compares two
// sequence numbers across the wrap: within 127 of the wrap point a
// small number is newer than a large one.
package token

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package servicetoken implements service tokens: named, opaque
// application state that a service asks a client to carry and return
// on later messages, like an HTTP cookie with integrity and optional
// confidentiality.
//
// A service token may be bound to a master token lineage, to a
// master token lineage and a user, or to neither. Bindings are by
// serial number and are encoded as -1 when absent. The binding is
// part of the token's identity: a [Set] holds at most one token per
// (name, master serial, user serial) [Key], and a later token with the
// same key replaces the earlier one.
//
// # Wire format
//
//	envelope   {tokendata, signature}
//	tokendata  {name, mtserialnumber, uitserialnumber, encrypted, compressionalgo?, servicedata}
//
// On creation the service data is compressed (when compression is
// requested and the result is smaller), then encrypted (when
// requested), then the token data is signed. Parsing reverses those
// steps.
//
// # Trust
//
// Service tokens are protected by a context chosen by the service,
// which need not be the master token issuer's. A client that does not
// hold that context still parses the token, verifies nothing, and
// returns it unchanged. Such a parsed-untrusted token exposes its data
// only when the data was not encrypted. A token that verifies but
// whose context cannot decrypt is trusted with its data unavailable.
//
// # Binding checks
//
// Parse rejects a token bound to a master token lineage unless the
// matching master token is supplied (SERVICETOKEN_MASTERTOKEN_MISMATCH),
// likewise for the user binding (SERVICETOKEN_USERIDTOKEN_MISMATCH),
// and rejects any token with a user binding but no master binding
// (SERVICETOKEN_USERIDTOKEN_WITHOUT_MASTERTOKEN).
package servicetoken

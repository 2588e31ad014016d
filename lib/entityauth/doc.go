// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package entityauth implements entity authentication data: the
// identity claim a master token is issued against.
//
// Each scheme is one concrete [Data] type. All of them expose a
// deterministic [Data.Identity]:
//
//	PSK            {identity}                pre-shared keys
//	MGK            {identity}                model-group keys
//	RSA            {identity, pubkeyid}      RSA signature
//	ECC            {identity, pubkeyid}      ECDSA signature
//	X509           {x509certificate}         certificate; identity is the subject DN
//	NONE           {identity}                unauthenticated
//	NONE_SUFFIXED  {root, suffix}            unauthenticated; identity is root.suffix
//
// On the wire a claim is {"scheme": ..., "authdata": {...}}. Parsing
// is two-pass: the scheme is decoded first, then authdata is decoded
// into the scheme's own schema. A [Registry] maps schemes to parsers
// and to the [Factory] that turns a claim into the CryptoContext used
// to authenticate that entity.
package entityauth

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec encodes and decodes the wire objects of the trust core
// (token envelopes, token data, entity authentication data) in one of
// two formats:
//
//   - [JSON] for interoperability with peers that speak the JSON
//     dialect of the protocol.
//   - [CBOR] for compact binary transports. The encoder uses Core
//     Deterministic Encoding (RFC 8949 §4.2) so that signed token data
//     is byte-stable.
//
// Wire structs carry `json` tags only. fxamacker/cbor v2 reads `json`
// tags as a fallback when `cbor` tags are absent, so a single tag set
// defines field names for both formats. Required fields are pointers:
// a nil pointer after decoding means the field was absent and the
// caller reports [Missing].
//
//	data, err := codec.Marshal(codec.CBOR, &tokenData)
//	err = codec.Unmarshal(codec.JSON, data, &tokenData, "master token data")
//
// Decode errors are always *mslerror.Error values of kind encoding:
// INVALID_FIELD_TYPE for type mismatches and PARSE_ERROR otherwise.
// Decoding is total over arbitrary input.
package codec

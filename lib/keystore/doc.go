// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package keystore holds the keys an issuer uses to authenticate
// entities: pre-shared and model-group symmetric keys by identity, and
// RSA or ECDSA public keys by key id.
//
// [Memory] implements both entityauth.PresharedStore and
// entityauth.PublicKeyStore. Stores are usually loaded from a YAML
// file:
//
//	preshared:
//	  - identity: device-1
//	    encryption_key: <base64, 16/24/32 bytes>
//	    hmac_key: <base64, at least 16 bytes>
//	    wrapping_key: <base64, optional>
//	public_keys:
//	  - id: signer-1            # optional, defaults to Fingerprint
//	    format: SPKI            # SPKI (PEM or base64 DER) or JWK
//	    key: |
//	      -----BEGIN PUBLIC KEY-----
//	      ...
//
// A production deployment keeps the file encrypted with age and loads
// it with [LoadSealed].
package keystore

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed encrypts key-store files at rest with age. It wraps
// filippo.io/age for the operations the key store and msl-token need:
// generate x25519 keypairs, encrypt to one or more recipients, and
// decrypt with the identities in an identity file.
//
// Ciphertext is ASCII-armored so sealed key stores can live next to
// plaintext configuration. [Decrypt] accepts armored or binary input.
//
// Key exports:
//
//   - [GenerateKeypair] / [WriteIdentityFile] -- new x25519 identity
//   - [Encrypt] -- encrypt to age public key recipients
//   - [Decrypt] / [ReadIdentityFile] -- decrypt with an identity file
//   - [ParsePublicKey] -- recipient validation
package sealed

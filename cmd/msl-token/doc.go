// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Msl-token is the operator tool for an MSL issuer. It generates and
// loads issuer keys, generates entity keys for the key store, mints
// master, user ID and service tokens from the command line, and
// inspects encoded tokens.
// Subcommands: keygen, age-keygen, psk-keygen, derive-wrap-key, issue,
// service-token, inspect, version.
package main

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] bounds a channel receive with a wall-clock timeout
// so a test that deadlocks fails with a message instead of hanging
// until the test binary's global timeout.
//
// Helpers call t.Fatalf on failure rather than returning errors.
package testutil

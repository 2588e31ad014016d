// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports what build of msl-token is running.
//
// Release builds stamp [GitCommit], [GitDirty], [BuildTime] and
// [Version] with -ldflags -X. A plain "go build" leaves them empty, in
// which case [Commit] falls back to the VCS revision the toolchain
// embeds in the binary.
package version

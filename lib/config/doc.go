// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the MSL
// issuer and the msl-token tool.
//
// Configuration is loaded from a single file specified by either the
// MSL_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks, no ~/.config discovery,
// and no automatic file search.
//
// The configuration file supports environment-specific sections
// (development, staging, production) that override base values when
// [Config].Environment matches. Production defaults are stricter: the
// key store must be sealed with age.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${MSL_STATE_DIR}, and ${VAR:-default} patterns are
// expanded. No other environment variables override config values.
//
// This package depends on no other MSL packages.
package config

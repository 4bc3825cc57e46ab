// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and validates the rexpro configuration from
// ~/.rexpro/config.toml, applies environment overrides, and optionally
// watches the file for changes. The thinking budget table lives here:
// per-model reasoning token budgets are configuration data, not code.
package config

// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package config loads the decision engine's bootstrap configuration: the
initial Plex/Jellyfin connection, the Store's DuckDB path and credential
encryption key, the ControlLoop's tick cadence, the management API's HTTP
settings and optional Basic Auth gate, and logging.

# Configuration Sources

Koanf v2 layers three sources, each overriding the last:
 1. Built-in defaults (koanf.go's defaultConfig)
 2. An optional YAML file (config.yaml, or CONFIG_PATH)
 3. Environment variables — the names recognised are listed in §6.7 of
    SPEC_FULL.md and mapped in koanf.go's envTransformFunc

# What lives here vs. in the Store

Everything an operator can change at runtime — server URLs and tokens,
categories, schedules, genre maps, filler behavior — lives in the Setting
singleton in internal/store, not in this package. Config only covers what
must exist before the Store can even be opened, plus ambient operational
knobs that aren't part of the domain model.

# Credential encryption

Plex tokens and Jellyfin API keys are encrypted at rest (AES-256-GCM, key
derived via HKDF from Store.CredentialSecret) before the Store ever writes
them — see encryption.go and internal/store's CredentialEncryptor wiring.
*/
package config

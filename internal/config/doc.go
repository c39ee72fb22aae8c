// SPDX-License-Identifier: MPL-2.0

// Package config handles modload's configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/modload/config.cue (or the XDG equivalent on Linux,
// ~/Library/Application Support/modload/config.cue on macOS, %APPDATA%\modload\config.cue
// on Windows), then from config.cue in the working directory. It sets the loader's search
// path, suffixes, manifest alias lookup, cycle policy, tracing verbosity and log format.
// The MODLOAD_PATH environment variable overrides the configured search path.
//
// Files are validated against an embedded CUE schema (config_schema.cue).
package config

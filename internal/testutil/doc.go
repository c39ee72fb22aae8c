// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers that fail the test on error instead of
// returning it: environment and config-home redirection, working directory
// changes, and writing module trees to real or in-memory filesystems.
package testutil

// SPDX-License-Identifier: MPL-2.0

// Package issue turns loader and configuration failures into user-facing
// errors: an ActionableError carries the failed operation, the module or file
// involved and remediation hints, and a Guide renders longer Markdown help for
// a failure class.
package issue

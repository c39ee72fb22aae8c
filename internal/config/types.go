// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/invowk/modload/pkg/modload"
)

const (
	// LogFormatText writes human-readable log lines.
	LogFormatText LogFormat = "text"
	// LogFormatJSON writes one JSON object per log record.
	LogFormatJSON LogFormat = "json"
	// LogFormatLogfmt writes key=value log lines.
	LogFormatLogfmt LogFormat = "logfmt"

	// MaxVerbosity is the highest tracing level the loader understands.
	MaxVerbosity Verbosity = 2
)

var (
	// ErrInvalidLogFormat is returned when a LogFormat value is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format")
	// ErrInvalidSuffix is returned when a Suffix value is malformed.
	ErrInvalidSuffix = errors.New("invalid suffix")
	// ErrInvalidVerbosity is returned when a Verbosity is out of range.
	ErrInvalidVerbosity = errors.New("invalid verbosity")
	// ErrInvalidManifestConfig is the sentinel error wrapped by InvalidManifestConfigError.
	ErrInvalidManifestConfig = errors.New("invalid manifest config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogFormat selects the diagnostic log formatter.
	LogFormat string

	// InvalidLogFormatError is returned when a LogFormat value is not recognized.
	// It wraps ErrInvalidLogFormat for errors.Is() compatibility.
	InvalidLogFormatError struct {
		Value LogFormat
	}

	// Suffix is appended to a candidate path while probing the filesystem.
	// A valid suffix starts with '.' (extension) or '/' (directory index).
	Suffix string

	// InvalidSuffixError is returned when a Suffix value is malformed.
	InvalidSuffixError struct {
		Value Suffix
	}

	// Verbosity is the loader tracing level, 0 to MaxVerbosity.
	Verbosity int

	// InvalidVerbosityError is returned when a Verbosity is out of range.
	InvalidVerbosityError struct {
		Value Verbosity
	}

	// InvalidManifestConfigError collects field errors of a ManifestConfig.
	InvalidManifestConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// SearchPath lists the directories probed for bare specifiers, in order.
		SearchPath []string `json:"search_path" mapstructure:"search_path"`
		// Suffixes are tried, in order, after the bare path.
		Suffixes []Suffix `json:"suffixes" mapstructure:"suffixes"`
		// NativeExt marks files loaded through the native opener.
		NativeExt Suffix `json:"native_ext" mapstructure:"native_ext"`
		// Manifest configures alias lookup.
		Manifest ManifestConfig `json:"manifest" mapstructure:"manifest"`
		// OnCycle is the circular-dependency policy.
		OnCycle modload.CyclePolicy `json:"on_cycle" mapstructure:"on_cycle"`
		// Verbosity is the loader tracing level.
		Verbosity Verbosity `json:"verbosity" mapstructure:"verbosity"`
		// Log configures diagnostics output.
		Log LogConfig `json:"log" mapstructure:"log"`

		// Source is the file the configuration was read from, empty for
		// built-in defaults.
		Source string `json:"-" mapstructure:"-"`
	}

	// ManifestConfig names the manifest file and the object holding aliases.
	ManifestConfig struct {
		File     string `json:"file" mapstructure:"file"`
		AliasKey string `json:"alias_key" mapstructure:"alias_key"`
	}

	// LogConfig configures diagnostics output.
	LogConfig struct {
		Format LogFormat `json:"format" mapstructure:"format"`
	}
)

// String returns the string representation of the LogFormat.
func (f LogFormat) String() string { return string(f) }

// IsValid returns whether the LogFormat is one of the defined formats.
func (f LogFormat) IsValid() (bool, []error) {
	switch f {
	case LogFormatText, LogFormatJSON, LogFormatLogfmt:
		return true, nil
	default:
		return false, []error{&InvalidLogFormatError{Value: f}}
	}
}

// Error implements the error interface for InvalidLogFormatError.
func (e *InvalidLogFormatError) Error() string {
	return fmt.Sprintf("invalid log format %q (valid: text, json, logfmt)", e.Value)
}

// Unwrap returns ErrInvalidLogFormat for errors.Is() compatibility.
func (e *InvalidLogFormatError) Unwrap() error { return ErrInvalidLogFormat }

// IsValid returns whether the Suffix starts with '.' or '/' and has more
// than that one character.
func (s Suffix) IsValid() (bool, []error) {
	if len(s) < 2 || (s[0] != '.' && s[0] != '/') || strings.ContainsAny(string(s), " \t\n") {
		return false, []error{&InvalidSuffixError{Value: s}}
	}
	return true, nil
}

// Error implements the error interface for InvalidSuffixError.
func (e *InvalidSuffixError) Error() string {
	return fmt.Sprintf("invalid suffix %q (must start with '.' or '/')", e.Value)
}

// Unwrap returns ErrInvalidSuffix for errors.Is() compatibility.
func (e *InvalidSuffixError) Unwrap() error { return ErrInvalidSuffix }

// IsValid returns whether the Verbosity is within 0..MaxVerbosity.
func (v Verbosity) IsValid() (bool, []error) {
	if v < 0 || v > MaxVerbosity {
		return false, []error{&InvalidVerbosityError{Value: v}}
	}
	return true, nil
}

// Error implements the error interface for InvalidVerbosityError.
func (e *InvalidVerbosityError) Error() string {
	return fmt.Sprintf("invalid verbosity %d (valid: 0-%d)", e.Value, MaxVerbosity)
}

// Unwrap returns ErrInvalidVerbosity for errors.Is() compatibility.
func (e *InvalidVerbosityError) Unwrap() error { return ErrInvalidVerbosity }

// Options converts the manifest settings for the loader.
func (c ManifestConfig) Options() modload.ManifestOptions {
	return modload.ManifestOptions{File: c.File, AliasKey: c.AliasKey}
}

// IsValid returns whether both manifest fields are non-blank.
func (c ManifestConfig) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(c.File) == "" {
		errs = append(errs, errors.New("manifest.file must not be empty"))
	}
	if strings.TrimSpace(c.AliasKey) == "" {
		errs = append(errs, errors.New("manifest.alias_key must not be empty"))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidManifestConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidManifestConfigError.
func (e *InvalidManifestConfigError) Error() string {
	return fmt.Sprintf("invalid manifest config: %v", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidManifestConfig for errors.Is() compatibility.
func (e *InvalidManifestConfigError) Unwrap() error { return ErrInvalidManifestConfig }

// SuffixStrings returns the suffixes as plain strings for the loader.
func (c *Config) SuffixStrings() []string {
	out := make([]string, len(c.Suffixes))
	for i, s := range c.Suffixes {
		out[i] = string(s)
	}
	return out
}

// IsValid returns whether every field of the Config is valid.
func (c *Config) IsValid() (bool, []error) {
	var errs []error
	for _, s := range c.Suffixes {
		if valid, fieldErrs := s.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
	}
	if valid, fieldErrs := c.NativeExt.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Manifest.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.OnCycle.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Verbosity.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Log.Format.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	suffixes := make([]Suffix, len(modload.DefaultSuffixes))
	for i, s := range modload.DefaultSuffixes {
		suffixes[i] = Suffix(s)
	}
	return &Config{
		SearchPath: append([]string(nil), modload.DefaultSearchPath...),
		Suffixes:   suffixes,
		NativeExt:  modload.DefaultNativeExt,
		Manifest: ManifestConfig{
			File:     modload.DefaultManifestFile,
			AliasKey: modload.DefaultAliasKey,
		},
		OnCycle:   modload.CycleWarn,
		Verbosity: 0,
		Log:       LogConfig{Format: LogFormatText},
	}
}

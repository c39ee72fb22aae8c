// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"log/slog"

	"github.com/invowk/modload/internal/config"

	"github.com/charmbracelet/log"
)

// newLogger returns the diagnostics logger. The loader emits warnings
// unconditionally and traces at Info (verbosity 1) and Debug (verbosity 2),
// so the handler level follows the verbosity.
func newLogger(w io.Writer, format config.LogFormat, verbosity config.Verbosity) *slog.Logger {
	handler := log.NewWithOptions(w, log.Options{
		Prefix:    "modload",
		Level:     logLevel(verbosity),
		Formatter: logFormatter(format),
	})
	return slog.New(handler)
}

func logLevel(verbosity config.Verbosity) log.Level {
	switch {
	case verbosity >= 2:
		return log.DebugLevel
	case verbosity == 1:
		return log.InfoLevel
	default:
		return log.WarnLevel
	}
}

func logFormatter(format config.LogFormat) log.Formatter {
	switch format {
	case config.LogFormatJSON:
		return log.JSONFormatter
	case config.LogFormatLogfmt:
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}

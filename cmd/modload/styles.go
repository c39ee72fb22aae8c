// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/invowk/modload/pkg/modload"

	"github.com/charmbracelet/lipgloss"
)

// Color palette shared by all CLI output, tuned for dark terminal backgrounds.
const (
	// ColorPrimary is purple, for titles and headers.
	ColorPrimary = lipgloss.Color("#7C3AED")
	// ColorMuted is gray, for subtitles and secondary text.
	ColorMuted = lipgloss.Color("#6B7280")
	// ColorSuccess is green, for evaluated modules.
	ColorSuccess = lipgloss.Color("#10B981")
	// ColorError is red, for errors and failed modules.
	ColorError = lipgloss.Color("#EF4444")
	// ColorWarning is amber, for warnings and in-flight modules.
	ColorWarning = lipgloss.Color("#F59E0B")
	// ColorHighlight is blue, for specifiers and canonical paths.
	ColorHighlight = lipgloss.Color("#3B82F6")
)

var (
	// TitleStyle is for primary headers and section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// SubtitleStyle is for secondary headers and descriptions.
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// SuccessStyle is for success messages and positive indicators.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// ErrorStyle is for error messages and failure indicators.
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError)

	// WarningStyle is for warning messages and caution indicators.
	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// PathStyle is for specifiers and canonical paths.
	PathStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight)

	// kindStyle pads the kind column of module listings.
	kindStyle = lipgloss.NewStyle().
			Width(9).
			Foreground(ColorMuted)
)

// stateStyle colors a module state in listings.
func stateStyle(s modload.State) lipgloss.Style {
	base := lipgloss.NewStyle().Width(18)
	switch {
	case s == modload.StateEvaluated:
		return base.Inherit(SuccessStyle)
	case s == modload.StateEvaluationFailed:
		return base.Inherit(ErrorStyle)
	case s.InFlight():
		return base.Inherit(WarningStyle)
	default:
		return base.Inherit(SubtitleStyle)
	}
}

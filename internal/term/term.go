// Package term provides color state, lipgloss styles and terminal detection.
//
// Styles are package-level variables because multiple packages (logging,
// display) need them for output formatting. [Configure] sets them once
// during startup; when colors are disabled the styles render plain text.
package term

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/backmassage/tiffexport/internal/config"
)

// Level and banner styles. Plain until Configure enables colors.
var (
	Info    = lipgloss.NewStyle()
	Success = lipgloss.NewStyle()
	Warn    = lipgloss.NewStyle()
	Error   = lipgloss.NewStyle()
	Dry     = lipgloss.NewStyle()
	Debug   = lipgloss.NewStyle()
	Banner  = lipgloss.NewStyle()
)

var enabled bool

// Configure resolves the color mode against stdout and sets the styles.
// Call once during startup (from [logging.NewLogger]).
func Configure(mode config.ColorMode) {
	profile := termenv.Ascii
	if resolve(mode) {
		profile = termenv.NewOutput(os.Stdout).ColorProfile()
		if profile == termenv.Ascii {
			// Forced on but stdout is not a terminal.
			profile = termenv.ANSI
		}
	}
	SetProfile(profile)
}

// SetProfile builds the styles for an explicit color profile.
// termenv.Ascii disables colors.
func SetProfile(p termenv.Profile) {
	r := lipgloss.NewRenderer(os.Stdout)
	r.SetColorProfile(p)
	enabled = p != termenv.Ascii

	bold := func(c string) lipgloss.Style {
		return r.NewStyle().Bold(true).Foreground(lipgloss.Color(c))
	}
	Info = bold("12")    // bright blue
	Success = bold("10") // bright green
	Warn = bold("11")    // bright yellow
	Error = bold("9")    // bright red
	Dry = bold("208")    // orange
	Debug = bold("14")   // bright cyan
	Banner = bold("13")  // bright magenta
}

// Enabled reports whether colors are currently active.
func Enabled() bool { return enabled }

// Render applies s when colors are enabled and returns text unchanged
// otherwise.
func Render(s lipgloss.Style, text string) string {
	if !enabled {
		return text
	}
	return s.Render(text)
}

// resolve determines whether colors should be enabled based on the configured
// mode, TTY detection, and the NO_COLOR env var (https://no-color.org).
func resolve(mode config.ColorMode) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	default: // ColorAuto
		return IsTerminal(os.Stdout) &&
			os.Getenv("NO_COLOR") == "" &&
			strings.ToLower(os.Getenv("TERM")) != "dumb"
	}
}

// IsTerminal reports whether f is attached to a TTY (character device).
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

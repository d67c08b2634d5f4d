package ui

import (
	"fmt"

	"github.com/alfredjeanlab/guestwall/internal/model"
)

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent   = 74  // blue
	colorCmd      = 250 // light gray
	colorMuted    = 245 // medium gray
	colorPending  = 179 // amber
	colorApproved = 114 // green
	colorRejected = 167 // red
)

var noColor bool

func paint(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string {
	return paint(colorAccent, s)
}

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string {
	return paint(colorMuted, s)
}

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string {
	return paint(colorCmd, s)
}

// RenderStatus returns the status name colored by moderation state.
func RenderStatus(s model.Status) string {
	switch s {
	case model.StatusPending:
		return paint(colorPending, s.String())
	case model.StatusApproved:
		return paint(colorApproved, s.String())
	case model.StatusRejected:
		return paint(colorRejected, s.String())
	}
	return s.String()
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

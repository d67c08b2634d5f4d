package main

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/guestwall/internal/model"
	"github.com/alfredjeanlab/guestwall/internal/ui"
)

// helpRule restyles every match of re in Cobra's plain help text.
type helpRule struct {
	re    *regexp.Regexp
	style func(groups []string) string
}

var helpRules = []helpRule{
	// Section headers: unindented line ending with ":" (e.g. "Moderation:").
	{regexp.MustCompile(`(?m)^([A-Z][^\n]*:)\s*$`), func(g []string) string {
		return ui.RenderAccent(strings.TrimSpace(g[0]))
	}},
	// Command names: two-space indent, a word, then two or more spaces.
	{regexp.MustCompile(`(?m)^(  )(\S+)(  )`), func(g []string) string {
		return g[1] + ui.RenderCommand(g[2]) + g[3]
	}},
	// Flag types, e.g. "--url string", "--status strings".
	{regexp.MustCompile(`(--?\S+\s+)(string|strings|int|duration|stringSlice)\b`), func(g []string) string {
		return g[1] + ui.RenderMuted(g[2])
	}},
	// Defaults, e.g. (default "http://localhost:8080").
	{regexp.MustCompile(`\(default [^)]*\)`), func(g []string) string {
		return ui.RenderMuted(g[0])
	}},
	// Message statuses in command descriptions.
	{regexp.MustCompile(`\b(pending|approved|rejected)\b`), func(g []string) string {
		return ui.RenderStatus(model.Status(g[1]))
	}},
}

// colorizedHelpFunc returns a Cobra help function that styles the default
// help text when the terminal supports color.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		orig := cmd.OutOrStdout()
		if !ui.ShouldUseColor() {
			_ = cmd.Usage()
			return
		}

		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(orig)

		fmt.Fprint(orig, colorizeHelpOutput(buf.String()))
	}
}

// colorizeHelpOutput applies every helpRule in order.
func colorizeHelpOutput(s string) string {
	for _, rule := range helpRules {
		s = rule.re.ReplaceAllStringFunc(s, func(match string) string {
			return rule.style(rule.re.FindStringSubmatch(match))
		})
	}
	return s
}

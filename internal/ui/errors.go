package ui

import (
	"fmt"
	"io"
	"strings"
)

// ErrorMessage represents a structured, actionable error to present to users.
type ErrorMessage struct {
	Problem string   // one-line problem statement
	Causes  []string // possible causes
	Actions []string // actionable steps to resolve
}

// Format renders the error using the color theme. It does not include ANSI
// codes when colors are disabled (NO_COLOR or dumb terminal).
func (e ErrorMessage) Format(c *ColorConfig) string {
	var b strings.Builder
	b.WriteString(c.Error("✗ "))
	b.WriteString(c.Header("Error"))
	b.WriteString("\n")
	if e.Problem != "" {
		fmt.Fprintf(&b, "  %s: %s\n", c.Label("Problem"), e.Problem)
	}
	if len(e.Causes) > 0 {
		fmt.Fprintf(&b, "  %s:\n", c.Label("Possible causes"))
		for _, it := range e.Causes {
			b.WriteString("   • " + it + "\n")
		}
	}
	if len(e.Actions) > 0 {
		fmt.Fprintf(&b, "  %s:\n", c.Label("Try"))
		for _, it := range e.Actions {
			b.WriteString("   → " + it + "\n")
		}
	}
	return b.String()
}

// PrintError writes the structured error to w using the global theme.
func PrintError(w io.Writer, e ErrorMessage) {
	fmt.Fprintln(w, e.Format(NewColorConfigFromGlobal()))
}

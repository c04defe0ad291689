package output

import (
	"fmt"
	"strings"

	"github.com/FryrAI/keel/internal/graph"
)

// ANSI SGR codes for the human render shape. Deliberately plain escape
// sequences rather than a TUI styling library (see DESIGN.md internal/output:
// a single-column diagnostic printer has no layout-composition need that
// would justify pulling one in).
const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiBold   = "\x1b[1m"
	ansiDim    = "\x1b[2m"
)

// RenderHuman renders a Result as colored plain-text lines grouped under
// Errors and Warnings headings (§4.9). Colors are only emitted when color is true (callers should gate
// this on terminal detection / --no-color, not this package's concern).
func RenderHuman(r Result, color bool) string {
	if r.IsClean() {
		if r.Verbose && r.Info != nil {
			return renderInfo(*r.Info, color)
		}
		return paint(color, ansiBold+ansiBlue, "keel: clean") + "\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", paint(color, ansiBold, fmt.Sprintf("keel %s", r.Command)))

	if len(r.Errors) > 0 {
		fmt.Fprintf(&b, "%s\n", paint(color, ansiBold+ansiRed, fmt.Sprintf("Errors (%d)", len(r.Errors))))
		for _, v := range r.Errors {
			b.WriteString(renderViolationLine(v, color, ansiRed))
		}
		b.WriteByte('\n')
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(&b, "%s\n", paint(color, ansiBold+ansiYellow, fmt.Sprintf("Warnings (%d)", len(r.Warnings))))
		for _, v := range r.Warnings {
			b.WriteString(renderViolationLine(v, color, ansiYellow))
		}
		b.WriteByte('\n')
	}

	if r.Verbose && r.Info != nil {
		b.WriteString(renderInfo(*r.Info, color))
	}
	return b.String()
}

func renderViolationLine(v graph.Violation, color bool, code string) string {
	var b strings.Builder
	loc := fmt.Sprintf("%s:%d", v.File, v.Line)
	fmt.Fprintf(&b, "  %s %s %s\n", paint(color, ansiBold+code, v.Code), paint(color, ansiDim, loc), v.Message)
	if v.FixHint != "" {
		fmt.Fprintf(&b, "      %s %s\n", paint(color, ansiDim, "fix:"), v.FixHint)
	}
	for _, a := range v.Affected {
		fmt.Fprintf(&b, "      %s %s:%d (%s)\n", paint(color, ansiDim, "->"), a.File, a.Line, a.Name)
	}
	return b.String()
}

func renderInfo(info Info, color bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s nodes=%d edges=%d hashes_changed=%d\n",
		paint(color, ansiDim, "info:"), info.NodesUpdated, info.EdgesUpdated, len(info.HashesChanged))
	return b.String()
}

func paint(color bool, code, text string) string {
	if !color {
		return text
	}
	return code + text + ansiReset
}

// Package diagnostics renders the three disjoint error taxonomies produced
// by this toolchain — the parser's PARSE_*, the semantic analyzer's SEM_*,
// and the VM's RT_* codes — through one shared caret-style source-context
// formatter, the way compilation failures are reported to the terminal.
package diagnostics

import (
	"fmt"
	"strings"

	"github.com/thirawat27/QB-COM/pkg/token"
)

// SourceError is one reportable problem, normalized from whichever stage
// produced it (parser, semantic pass, or VM) into a single shape the
// formatter below doesn't need to know the origin of.
type SourceError struct {
	Code    string
	Message string
	Pos     token.Position
	Length  int // caret span in columns; 0 renders a single caret
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s at %s: %s", e.Code, e.Pos, e.Message)
}

// Format renders e with a line/column header, the offending source line,
// and a caret (or caret span) under the exact column the error starts at.
// source is the original program text; pass "" to fall back to the
// header-only rendering a host file read failure would still want.
func (e *SourceError) Format(source string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: line %d, col %d: %s\n", e.Code, e.Pos.Line, e.Pos.Column, e.Message)

	line := sourceLine(source, e.Pos.Line)
	if line == "" {
		return sb.String()
	}
	lineNumPrefix := fmt.Sprintf("%5d | ", e.Pos.Line)
	sb.WriteString(lineNumPrefix)
	sb.WriteString(line)
	sb.WriteString("\n")

	span := e.Length
	if span < 1 {
		span = 1
	}
	col := e.Pos.Column - 1
	if col < 0 {
		col = 0
	}
	sb.WriteString(strings.Repeat(" ", len(lineNumPrefix)+col))
	sb.WriteString(strings.Repeat("^", span))
	sb.WriteString("\n")
	return sb.String()
}

func sourceLine(source string, lineNum int) string {
	if source == "" || lineNum < 1 {
		return ""
	}
	lines := strings.Split(source, "\n")
	if lineNum > len(lines) {
		return ""
	}
	return lines[lineNum-1]
}

// FormatErrors renders every error in errs against source, numbering them
// when there's more than one so a terminal scroll-back still makes sense
// of a multi-error compile failure.
func FormatErrors(errs []*SourceError, source string) string {
	if len(errs) == 0 {
		return ""
	}
	if len(errs) == 1 {
		return errs[0].Format(source)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d errors:\n\n", len(errs))
	for i, e := range errs {
		fmt.Fprintf(&sb, "[%d/%d] ", i+1, len(errs))
		sb.WriteString(e.Format(source))
		if i < len(errs)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

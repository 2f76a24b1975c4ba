package diagnostics

import (
	"strings"
	"testing"

	"github.com/thirawat27/QB-COM/pkg/token"
)

func TestFormatIncludesSourceLineAndCaret(t *testing.T) {
	source := "DIM x AS INTEGER\nx = 1 +\nPRINT x\n"
	e := &SourceError{
		Code:    "PARSE_UNEXPECTED_TOKEN",
		Message: "unexpected end of line",
		Pos:     token.Position{Line: 2, Column: 8, Offset: 0},
		Length:  1,
	}
	out := e.Format(source)
	if !strings.Contains(out, "PARSE_UNEXPECTED_TOKEN") {
		t.Fatalf("expected code in output, got:\n%s", out)
	}
	if !strings.Contains(out, "x = 1 +") {
		t.Fatalf("expected the offending source line in output, got:\n%s", out)
	}
	if !strings.Contains(out, "^") {
		t.Fatalf("expected a caret marker in output, got:\n%s", out)
	}
}

func TestFormatWithoutSourceOmitsLineAndCaret(t *testing.T) {
	e := &SourceError{Code: "RT_INTERNAL", Message: "boom", Pos: token.Position{Line: 1, Column: 1}}
	out := e.Format("")
	if strings.Contains(out, "^") {
		t.Fatalf("expected no caret when source is unavailable, got:\n%s", out)
	}
	if !strings.Contains(out, "boom") {
		t.Fatalf("expected message in header-only output, got:\n%s", out)
	}
}

func TestFormatErrorsNumbersMultipleErrors(t *testing.T) {
	errs := []*SourceError{
		{Code: "SEM_A", Message: "first", Pos: token.Position{Line: 1, Column: 1}},
		{Code: "SEM_B", Message: "second", Pos: token.Position{Line: 2, Column: 1}},
	}
	out := FormatErrors(errs, "")
	if !strings.Contains(out, "2 errors:") {
		t.Fatalf("expected an error count header, got:\n%s", out)
	}
	if !strings.Contains(out, "[1/2]") || !strings.Contains(out, "[2/2]") {
		t.Fatalf("expected numbered entries, got:\n%s", out)
	}
}

func TestFormatErrorsSingleErrorIsUnnumbered(t *testing.T) {
	errs := []*SourceError{{Code: "SEM_A", Message: "only one", Pos: token.Position{Line: 1, Column: 1}}}
	out := FormatErrors(errs, "")
	if strings.Contains(out, "errors:") {
		t.Fatalf("single error should not get a count header, got:\n%s", out)
	}
}

func TestFormatErrorsEmptyIsEmpty(t *testing.T) {
	if out := FormatErrors(nil, "source"); out != "" {
		t.Fatalf("expected empty output for no errors, got %q", out)
	}
}

package diagnostics

import (
	"testing"

	"github.com/thirawat27/QB-COM/internal/bytecode"
	"github.com/thirawat27/QB-COM/internal/lexer"
	"github.com/thirawat27/QB-COM/internal/parser"
	"github.com/thirawat27/QB-COM/internal/semantic"
	"github.com/thirawat27/QB-COM/pkg/token"
)

func token1(line, col int) token.Position {
	return token.Position{Line: line, Column: col}
}

func TestFromLexErrors(t *testing.T) {
	errs := []lexer.LexError{{Message: "bad char", Pos: token1(3, 4)}}
	out := FromLexErrors(errs)
	if len(out) != 1 {
		t.Fatalf("expected 1 error, got %d", len(out))
	}
	if out[0].Code != "LEX_ERROR" {
		t.Fatalf("expected LEX_ERROR code, got %q", out[0].Code)
	}
	if out[0].Message != "bad char" {
		t.Fatalf("expected message to pass through, got %q", out[0].Message)
	}
}

func TestFromParserErrors(t *testing.T) {
	errs := []*parser.ParserError{parser.NewParserError(token1(1, 1), 2, "unexpected token", parser.ErrUnexpectedToken)}
	out := FromParserErrors(errs)
	if len(out) != 1 {
		t.Fatalf("expected 1 error, got %d", len(out))
	}
	if out[0].Code != parser.ErrUnexpectedToken {
		t.Fatalf("expected code to pass through, got %q", out[0].Code)
	}
	if out[0].Length != 2 {
		t.Fatalf("expected length to pass through, got %d", out[0].Length)
	}
}

func TestFromDiagnosticsFiltersWarnings(t *testing.T) {
	diags := []*semantic.Diagnostic{
		{Pos: token1(1, 1), Message: "an error", Code: semantic.ErrTypeMismatch, Severity: semantic.SeverityError},
		{Pos: token1(2, 1), Message: "a warning", Code: semantic.ErrUnreachable, Severity: semantic.SeverityWarning},
	}
	out := FromDiagnostics(diags)
	if len(out) != 1 {
		t.Fatalf("expected only the hard error to survive, got %d", len(out))
	}
	if out[0].Message != "an error" {
		t.Fatalf("expected the error diagnostic, got %q", out[0].Message)
	}
}

func TestFromRuntimeErrorHasLineOnlyPosition(t *testing.T) {
	rerr := &bytecode.RuntimeError{Code: bytecode.ErrDivisionByZero, Message: "division by zero", Line: 7}
	out := FromRuntimeError(rerr)
	if out.Pos.Line != 7 {
		t.Fatalf("expected line 7, got %d", out.Pos.Line)
	}
	if out.Pos.Column != 0 {
		t.Fatalf("expected no column precision from a runtime error, got %d", out.Pos.Column)
	}
	if out.Code != bytecode.ErrDivisionByZero {
		t.Fatalf("expected code to pass through, got %q", out.Code)
	}
}

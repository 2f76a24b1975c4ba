package diagnostics

import (
	"github.com/thirawat27/QB-COM/internal/bytecode"
	"github.com/thirawat27/QB-COM/internal/lexer"
	"github.com/thirawat27/QB-COM/internal/parser"
	"github.com/thirawat27/QB-COM/internal/semantic"
	"github.com/thirawat27/QB-COM/pkg/token"
)

// FromLexError normalizes a lexer.LexError, which carries no error code of
// its own, into a SourceError tagged LEX_ERROR.
func FromLexError(e *lexer.LexError) *SourceError {
	return &SourceError{Code: "LEX_ERROR", Message: e.Message, Pos: e.Pos}
}

// FromLexErrors normalizes a whole lexer error list, in order.
func FromLexErrors(errs []lexer.LexError) []*SourceError {
	out := make([]*SourceError, len(errs))
	for i := range errs {
		out[i] = FromLexError(&errs[i])
	}
	return out
}

// FromParserError normalizes a parser.ParserError into a SourceError.
func FromParserError(e *parser.ParserError) *SourceError {
	return &SourceError{Code: e.Code, Message: e.Message, Pos: e.Pos, Length: e.Length}
}

// FromParserErrors normalizes a whole parser error list, in order.
func FromParserErrors(errs []*parser.ParserError) []*SourceError {
	out := make([]*SourceError, len(errs))
	for i, e := range errs {
		out[i] = FromParserError(e)
	}
	return out
}

// FromDiagnostic normalizes a semantic.Diagnostic into a SourceError.
// Warnings are included too — callers that only want hard failures should
// filter on diag.Severity before calling this.
func FromDiagnostic(d *semantic.Diagnostic) *SourceError {
	return &SourceError{Code: d.Code, Message: d.Message, Pos: d.Pos}
}

// FromDiagnostics normalizes every hard error (not warnings) out of a
// PassContext's accumulated diagnostic list.
func FromDiagnostics(diags []*semantic.Diagnostic) []*SourceError {
	var out []*SourceError
	for _, d := range diags {
		if d.Severity != semantic.SeverityError {
			continue
		}
		out = append(out, FromDiagnostic(d))
	}
	return out
}

// FromRuntimeError normalizes a bytecode.RuntimeError. A RuntimeError only
// carries a line, not a column, since it reports against compiled
// instructions rather than an AST node with column precision.
func FromRuntimeError(e *bytecode.RuntimeError) *SourceError {
	return &SourceError{Code: e.Code, Message: e.Message, Pos: token.Position{Line: e.Line}}
}

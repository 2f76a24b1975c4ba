package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/thirawat27/QB-COM/internal/ast"
	"github.com/thirawat27/QB-COM/internal/diagnostics"
	"github.com/thirawat27/QB-COM/internal/lexer"
	"github.com/thirawat27/QB-COM/internal/parser"
	"github.com/thirawat27/QB-COM/internal/semantic"
	"github.com/thirawat27/QB-COM/internal/semantic/passes"
)

// readSource reads filename, or "-" for stdin.
func readSource(filename string) (string, error) {
	if filename == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", filename, err)
	}
	return string(data), nil
}

// parseSource lexes and parses source, reporting any lexer/parser
// diagnostics to stderr. ok is false when the caller should stop — a
// program with lex or parse errors has no reliable AST to analyze further.
func parseSource(filename, source string) (*ast.Program, bool) {
	l := lexer.New(source)
	p := parser.New(l)
	program := p.ParseProgram()

	var errs []*diagnostics.SourceError
	errs = append(errs, diagnostics.FromLexErrors(l.Errors())...)
	errs = append(errs, diagnostics.FromParserErrors(p.Errors())...)
	if len(errs) > 0 {
		fmt.Fprint(os.Stderr, diagnostics.FormatErrors(errs, source))
		return nil, false
	}
	return program, true
}

// analyzeSource runs the standard declaration/type-resolution/validation
// pass sequence over program, reporting any hard errors to stderr.
func analyzeSource(source string, program *ast.Program) (*semantic.PassContext, bool) {
	analyzer := semantic.NewAnalyzer(
		&passes.DeclarationPass{},
		&passes.TypeResolutionPass{},
		&passes.ValidationPass{},
	)
	diags, err := analyzer.Analyze(program)
	if err != nil {
		fmt.Fprintf(os.Stderr, "internal analysis error: %v\n", err)
		return nil, false
	}
	if hardErrs := diagnostics.FromDiagnostics(diags); len(hardErrs) > 0 {
		fmt.Fprint(os.Stderr, diagnostics.FormatErrors(hardErrs, source))
		return nil, false
	}
	return analyzer.Context(), true
}

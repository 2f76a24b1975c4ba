package semantic_test

import (
	"testing"

	"github.com/thirawat27/QB-COM/internal/lexer"
	"github.com/thirawat27/QB-COM/internal/parser"
	"github.com/thirawat27/QB-COM/internal/semantic"
	"github.com/thirawat27/QB-COM/internal/semantic/passes"
)

func analyze(t *testing.T, source string) []*semantic.Diagnostic {
	t.Helper()
	l := lexer.New(source)
	p := parser.New(l)
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	a := semantic.NewAnalyzer(&passes.DeclarationPass{}, &passes.TypeResolutionPass{}, &passes.ValidationPass{})
	diags, err := a.Analyze(program)
	if err != nil {
		t.Fatalf("analyzer internal error: %v", err)
	}
	return diags
}

func errorsOf(diags []*semantic.Diagnostic) []*semantic.Diagnostic {
	var out []*semantic.Diagnostic
	for _, d := range diags {
		if d.Severity == semantic.SeverityError {
			out = append(out, d)
		}
	}
	return out
}

func TestAnalyzeCleanProgramHasNoErrors(t *testing.T) {
	diags := analyze(t, "DIM x AS INTEGER\nx = 1 + 2\nPRINT x\n")
	if errs := errorsOf(diags); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestAnalyzeDuplicateDeclarationIsError(t *testing.T) {
	diags := analyze(t, "DIM x AS INTEGER\nDIM x AS STRING\n")
	errs := errorsOf(diags)
	if len(errs) == 0 {
		t.Fatalf("expected a duplicate-declaration error")
	}
	found := false
	for _, e := range errs {
		if e.Code == semantic.ErrDuplicateDeclaration {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected SEM_DUPLICATE_DECLARATION among %v", errs)
	}
}

func TestAnalyzeBareIdentifierIsImplicitlyDeclared(t *testing.T) {
	// Classic BASIC declares a scalar on first reference; this must not
	// be reported as an unknown identifier.
	diags := analyze(t, "PRINT undeclaredVariable\n")
	if errs := errorsOf(diags); len(errs) != 0 {
		t.Fatalf("expected implicit declaration to be error-free, got %v", errs)
	}
}

func TestAnalyzeUnknownRecordFieldIsError(t *testing.T) {
	diags := analyze(t, "TYPE Point\nx AS INTEGER\ny AS INTEGER\nEND TYPE\nDIM p AS Point\nPRINT p.z\n")
	errs := errorsOf(diags)
	if len(errs) == 0 {
		t.Fatalf("expected an unknown-field error")
	}
	found := false
	for _, e := range errs {
		if e.Code == semantic.ErrUnknownIdentifier {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected SEM_UNKNOWN_IDENTIFIER among %v", errs)
	}
}

func TestAnalyzeReRunClearsPreviousErrors(t *testing.T) {
	l := lexer.New("DIM x AS INTEGER\nDIM x AS STRING\n")
	p := parser.New(l)
	program := p.ParseProgram()
	a := semantic.NewAnalyzer(&passes.DeclarationPass{}, &passes.TypeResolutionPass{}, &passes.ValidationPass{})
	first, err := a.Analyze(program)
	if err != nil {
		t.Fatalf("analyzer internal error: %v", err)
	}
	if len(errorsOf(first)) == 0 {
		t.Fatalf("expected the first run to report an error")
	}

	l2 := lexer.New("DIM y AS INTEGER\ny = 1\n")
	p2 := parser.New(l2)
	program2 := p2.ParseProgram()
	second, err := a.Analyze(program2)
	if err != nil {
		t.Fatalf("analyzer internal error: %v", err)
	}
	if len(errorsOf(second)) != 0 {
		t.Fatalf("expected a clean second run, got %v", errorsOf(second))
	}
}

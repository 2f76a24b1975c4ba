package semantic

import (
	"github.com/thirawat27/QB-COM/internal/ast"
)

// Analyzer owns the shared PassContext across repeated calls to Analyze,
// so a REPL session can keep accumulating CONST/TYPE/SUB/FUNCTION
// declarations across inputs instead of starting from a blank scope every
// time.
type Analyzer struct {
	ctx *PassContext
	pm  *PassManager
}

// NewAnalyzer builds an analyzer with a fresh global scope and the
// standard declaration/type-resolution/validation pass sequence. passes is
// supplied by the caller (internal/semantic/passes) to avoid an import
// cycle between this package and its own pass implementations.
func NewAnalyzer(passesInOrder ...Pass) *Analyzer {
	return &Analyzer{
		ctx: NewPassContext(),
		pm:  NewPassManager(passesInOrder...),
	}
}

// Context exposes the shared PassContext so a caller (e.g. the bytecode
// compiler) can read the resolved symbol table, label table, and DATA
// list after a successful Analyze.
func (a *Analyzer) Context() *PassContext { return a.ctx }

// Analyze runs every registered pass over program, accumulating into the
// analyzer's persistent PassContext, and returns the diagnostics produced
// by this call (earlier calls' diagnostics are cleared first).
func (a *Analyzer) Analyze(program *ast.Program) ([]*Diagnostic, error) {
	a.ctx.Errors = nil
	if err := a.pm.RunAll(program, a.ctx); err != nil {
		return a.ctx.Errors, err
	}
	return a.ctx.Errors, nil
}

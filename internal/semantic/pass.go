// Package semantic implements the multi-pass semantic analyzer: a
// declaration-collection pass that gathers CONST/TYPE/SUB/FUNCTION
// signatures, labels, and the flattened DATA list, followed by a
// type-resolution pass that resolves every identifier and a validation
// pass that checks EXIT nesting and jump targets. The concrete passes live
// in the passes subpackage.
package semantic

import (
	"github.com/thirawat27/QB-COM/internal/ast"
)

// Pass is a single semantic analysis pass over the whole program.
type Pass interface {
	// Name identifies the pass for diagnostics and tracing.
	Name() string

	// Run executes the pass. It must not restructure the AST — only read
	// it and annotate the shared PassContext. A non-nil error return is
	// reserved for fatal internal errors, not semantic diagnostics (those
	// go into ctx.Errors).
	Run(program *ast.Program, ctx *PassContext) error
}

// PassManager runs a fixed sequence of passes, stopping early if a pass
// reports a critical error that would make later passes meaningless (e.g.
// an unparseable DATA list size mismatch is not critical; a missing
// symbol table is).
type PassManager struct {
	passes []Pass
}

// NewPassManager builds a manager that runs passes in the given order.
func NewPassManager(passes ...Pass) *PassManager {
	return &PassManager{passes: passes}
}

// AddPass appends a pass to run after every pass already registered.
func (pm *PassManager) AddPass(pass Pass) {
	pm.passes = append(pm.passes, pass)
}

// Passes returns the registered passes in run order.
func (pm *PassManager) Passes() []Pass { return pm.passes }

// RunAll runs every pass in order, stopping after a pass whose errors make
// further analysis unreliable.
func (pm *PassManager) RunAll(program *ast.Program, ctx *PassContext) error {
	for _, pass := range pm.passes {
		if err := pass.Run(program, ctx); err != nil {
			return err
		}
		if ctx.HasCriticalErrors() {
			break
		}
	}
	return nil
}

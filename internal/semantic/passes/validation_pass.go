package passes

import (
	"fmt"

	"github.com/thirawat27/QB-COM/internal/ast"
	"github.com/thirawat27/QB-COM/internal/semantic"
	"github.com/thirawat27/QB-COM/pkg/token"
)

// ValidationPass checks invariants that need the full label table and
// signature set already in place but don't require re-walking types:
// EXIT binds to an enclosing construct of the matching kind, and GOTO/
// GOSUB/RETURN/RESTORE targets exist. Argument counts are checked by
// TypeResolutionPass, not here.
type ValidationPass struct{}

func (p *ValidationPass) Name() string { return "validation" }

func (p *ValidationPass) Run(program *ast.Program, ctx *semantic.PassContext) error {
	v := &validator{ctx: ctx}
	v.checkStatements(program.Statements)
	return nil
}

// construct is one entry in the nesting stack EXIT is checked against.
type construct int

const (
	constructFor construct = iota
	constructDo
	constructSub
	constructFunction
)

type validator struct {
	ctx   *semantic.PassContext
	stack []construct
}

func (v *validator) push(c construct) { v.stack = append(v.stack, c) }
func (v *validator) pop()             { v.stack = v.stack[:len(v.stack)-1] }

func (v *validator) encloses(c construct) bool {
	for i := len(v.stack) - 1; i >= 0; i-- {
		if v.stack[i] == c {
			return true
		}
	}
	return false
}

func (v *validator) checkStatements(stmts []ast.Statement) {
	for _, s := range stmts {
		v.checkStatement(s)
	}
}

func (v *validator) checkStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.IfStatement:
		v.checkStatements(s.Then)
		for _, ei := range s.ElseIfs {
			v.checkStatements(ei.Body)
		}
		v.checkStatements(s.Else)
	case *ast.SelectCaseStatement:
		v.checkSelectCase(s)
	case *ast.ForStatement:
		v.push(constructFor)
		v.checkStatements(s.Body)
		v.pop()
	case *ast.WhileStatement:
		v.push(constructDo)
		v.checkStatements(s.Body)
		v.pop()
	case *ast.DoLoopStatement:
		v.push(constructDo)
		v.checkStatements(s.Body)
		v.pop()
	case *ast.SubDeclStatement:
		v.push(constructSub)
		v.checkStatements(s.Body)
		v.pop()
	case *ast.FunctionDeclStatement:
		v.push(constructFunction)
		v.checkStatements(s.Body)
		v.pop()
	case *ast.ExitStatement:
		v.checkExit(s)
	case *ast.GotoStatement:
		v.checkLabel(s.Pos(), s.Target)
	case *ast.GosubStatement:
		v.checkLabel(s.Pos(), s.Target)
	case *ast.ReturnStatement:
		if s.Target != "" {
			v.checkLabel(s.Pos(), s.Target)
		}
	case *ast.RestoreStatement:
		if s.Label != "" {
			v.checkLabel(s.Pos(), s.Label)
		}
	}
}

func (v *validator) checkSelectCase(s *ast.SelectCaseStatement) {
	for _, c := range s.Cases {
		v.checkStatements(c.Body)
	}
	v.checkStatements(s.ElseBody)
}

func (v *validator) checkExit(s *ast.ExitStatement) {
	var want construct
	var label string
	switch s.Kind {
	case ast.ExitFor:
		want, label = constructFor, "FOR"
	case ast.ExitDo:
		want, label = constructDo, "DO"
	case ast.ExitSub:
		want, label = constructSub, "SUB"
	case ast.ExitFunction:
		want, label = constructFunction, "FUNCTION"
	}
	if !v.encloses(want) {
		v.ctx.AddError(s.Pos(), fmt.Sprintf("EXIT %s outside of a %s", label, label), semantic.ErrInvalidExit)
	}
}

func (v *validator) checkLabel(pos token.Position, target string) {
	if _, ok := v.ctx.Labels[target]; !ok {
		v.ctx.AddError(pos, fmt.Sprintf("undefined label %q", target), semantic.ErrUndefinedLabel)
	}
}

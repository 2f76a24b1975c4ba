package passes

import (
	"fmt"

	"github.com/thirawat27/QB-COM/internal/ast"
	"github.com/thirawat27/QB-COM/internal/semantic"
)

// TypeResolutionPass walks every statement body, opening a local scope for
// each SUB/FUNCTION, and resolves every identifier reference: DIM'd
// variables are defined, bare references infer their type from a sigil (or
// are defined on first use — classic BASIC has no mandatory DIM), and
// record field accesses are checked against the owning record's fields.
type TypeResolutionPass struct{}

func (p *TypeResolutionPass) Name() string { return "type-resolution" }

func (p *TypeResolutionPass) Run(program *ast.Program, ctx *semantic.PassContext) error {
	r := &resolver{ctx: ctx, scope: ctx.Global}
	r.resolveStatements(program.Statements)
	return nil
}

type resolver struct {
	ctx   *semantic.PassContext
	scope *semantic.SymbolTable
}

func (r *resolver) resolveStatements(stmts []ast.Statement) {
	for _, s := range stmts {
		r.resolveStatement(s)
	}
}

func (r *resolver) resolveStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.DimStatement:
		r.resolveDim(s)
	case *ast.AssignStatement:
		r.resolveLValue(s.Target)
		r.resolveExpr(s.Value)
	case *ast.ExpressionStatement:
		// A SUB may be invoked only as a statement (CALL Name(args) or
		// Name(args)); check its arity here instead of rejecting it as an
		// expression in resolveInvocation.
		if inv, ok := s.Expr.(*ast.InvocationExpression); ok {
			if sym, found := r.scope.Resolve(inv.Callee.Value); found && sym.Kind == semantic.SymSub {
				for _, a := range inv.Args {
					r.resolveExpr(a)
				}
				if len(inv.Args) != len(sym.Params) {
					r.ctx.AddError(inv.Pos(), fmt.Sprintf("%q expects %d argument(s), got %d", sym.Name, len(sym.Params), len(inv.Args)), semantic.ErrArityMismatch)
				}
				break
			}
		}
		if s.Expr != nil {
			r.resolveExpr(s.Expr)
		}
	case *ast.PrintStatement:
		if s.Channel != nil {
			r.resolveExpr(s.Channel)
		}
		for _, it := range s.Items {
			r.resolveExpr(it.Expr)
		}
	case *ast.InputStatement:
		if s.Channel != nil {
			r.resolveExpr(s.Channel)
		}
		for _, t := range s.Targets {
			r.resolveLValue(t)
		}
	case *ast.ReadStatement:
		for _, t := range s.Targets {
			r.resolveLValue(t)
		}
	case *ast.RandomizeStatement:
		if s.Seed != nil {
			r.resolveExpr(s.Seed)
		}
	case *ast.OpenStatement:
		r.resolveExpr(s.Path)
		r.resolveExpr(s.Channel)
	case *ast.CloseStatement:
		for _, c := range s.Channels {
			r.resolveExpr(c)
		}
	case *ast.IfStatement:
		r.resolveExpr(s.Cond)
		r.resolveStatements(s.Then)
		for _, ei := range s.ElseIfs {
			r.resolveExpr(ei.Cond)
			r.resolveStatements(ei.Body)
		}
		r.resolveStatements(s.Else)
	case *ast.SelectCaseStatement:
		r.resolveExpr(s.Subject)
		for _, c := range s.Cases {
			for _, g := range c.Guards {
				if g.Value != nil {
					r.resolveExpr(g.Value)
				}
				if g.RangeEnd != nil {
					r.resolveExpr(g.RangeEnd)
				}
			}
			r.resolveStatements(c.Body)
		}
		r.resolveStatements(s.ElseBody)
	case *ast.ForStatement:
		r.resolveLValue(s.Var)
		r.resolveExpr(s.Start)
		r.resolveExpr(s.End)
		if s.Step != nil {
			r.resolveExpr(s.Step)
		}
		r.resolveStatements(s.Body)
	case *ast.WhileStatement:
		r.resolveExpr(s.Cond)
		r.resolveStatements(s.Body)
	case *ast.DoLoopStatement:
		if s.PreCond != nil {
			r.resolveExpr(s.PreCond)
		}
		r.resolveStatements(s.Body)
		if s.PostCond != nil {
			r.resolveExpr(s.PostCond)
		}
	case *ast.SubDeclStatement:
		r.resolveProcBody(s.Name.Value, s.Params, s.Body)
	case *ast.FunctionDeclStatement:
		r.resolveFunctionBody(s)
	}
}

// resolveDim defines each declared name in the current scope, inferring
// array element types and record types from the declaration.
func (r *resolver) resolveDim(s *ast.DimStatement) {
	for _, decl := range s.Decls {
		t := resolveDeclaredType(decl.Name, decl.TypeName, r.ctx)
		if decl.Bounds != nil {
			for _, b := range decl.Bounds {
				if b.Lower != nil {
					r.resolveExpr(b.Lower)
				}
				r.resolveExpr(b.Upper)
			}
			t = semantic.Type{IsArray: true, ElemKind: t.Kind, RecordName: t.RecordName}
		}
		scope := r.scope
		if s.Shared {
			scope = r.ctx.Global
		}
		if _, exists := scope.ResolveLocal(decl.Name.Value); exists {
			r.ctx.AddError(decl.Name.Pos(), fmt.Sprintf("%q is already declared in this scope", decl.Name.Value), semantic.ErrDuplicateDeclaration)
			continue
		}
		scope.Define(&semantic.Symbol{Name: decl.Name.Value, Kind: semantic.SymVar, Type: t, IsShared: s.Shared})
	}
}

// resolveProcBody opens an enclosed scope seeded with the procedure's
// parameters and resolves its body within it.
func (r *resolver) resolveProcBody(_ string, params []ast.Param, body []ast.Statement) {
	outer := r.scope
	r.scope = semantic.NewEnclosedSymbolTable(outer)
	for _, prm := range params {
		t := resolveDeclaredType(prm.Name, prm.TypeName, r.ctx)
		if prm.IsArray {
			t = semantic.Type{IsArray: true, ElemKind: t.Kind, RecordName: t.RecordName}
		}
		r.scope.Define(&semantic.Symbol{Name: prm.Name.Value, Kind: semantic.SymVar, Type: t})
	}
	r.resolveStatements(body)
	r.scope = outer
}

// resolveFunctionBody additionally seeds the function's own name as a
// local variable, since the return value is produced by assigning to it.
func (r *resolver) resolveFunctionBody(s *ast.FunctionDeclStatement) {
	outer := r.scope
	r.scope = semantic.NewEnclosedSymbolTable(outer)
	for _, prm := range s.Params {
		t := resolveDeclaredType(prm.Name, prm.TypeName, r.ctx)
		if prm.IsArray {
			t = semantic.Type{IsArray: true, ElemKind: t.Kind, RecordName: t.RecordName}
		}
		r.scope.Define(&semantic.Symbol{Name: prm.Name.Value, Kind: semantic.SymVar, Type: t})
	}
	retType := resolveDeclaredType(s.Name, s.ReturnType, r.ctx)
	r.scope.Define(&semantic.Symbol{Name: s.Name.Value, Kind: semantic.SymVar, Type: retType})
	r.resolveStatements(s.Body)
	r.scope = outer
}

// resolveLValue resolves (or implicitly defines) an assignment target:
// a bare identifier, an array element, or a record field.
func (r *resolver) resolveLValue(expr ast.Expression) {
	switch e := expr.(type) {
	case *ast.Identifier:
		r.resolveIdentifier(e)
	case *ast.InvocationExpression:
		r.resolveIdentifier(e.Callee)
		for _, a := range e.Args {
			r.resolveExpr(a)
		}
	case *ast.FieldAccessExpression:
		r.resolveExpr(e.Base)
		r.checkFieldAccess(e)
	default:
		r.ctx.AddError(expr.Pos(), "invalid assignment target", semantic.ErrInvalidLValue)
	}
}

func (r *resolver) resolveExpr(expr ast.Expression) {
	switch e := expr.(type) {
	case *ast.Identifier:
		r.resolveIdentifier(e)
	case *ast.BinaryExpression:
		r.resolveExpr(e.Left)
		r.resolveExpr(e.Right)
	case *ast.UnaryExpression:
		r.resolveExpr(e.Right)
	case *ast.GroupedExpression:
		r.resolveExpr(e.Inner)
	case *ast.InvocationExpression:
		r.resolveInvocation(e)
	case *ast.FieldAccessExpression:
		r.resolveExpr(e.Base)
		r.checkFieldAccess(e)
	case *ast.IntegerLiteral, *ast.FloatLiteral, *ast.StringLiteral:
		// literals need no resolution
	}
}

// resolveIdentifier defines a previously-unseen bare variable name on
// first reference, the way undeclared-is-implicit-DIM works in classic
// BASIC, rather than treating it as an error.
func (r *resolver) resolveIdentifier(id *ast.Identifier) {
	if _, ok := r.scope.Resolve(id.Value); ok {
		return
	}
	t := semantic.ScalarType(semantic.KindForSigil(id.Sigil()))
	r.ctx.Global.Define(&semantic.Symbol{Name: id.Value, Kind: semantic.SymVar, Type: t})
}

// resolveInvocation resolves a NAME(args) expression, which is ambiguous
// at parse time between a function call and an array index; the symbol
// kind in scope disambiguates it here.
func (r *resolver) resolveInvocation(e *ast.InvocationExpression) {
	sym, ok := r.scope.Resolve(e.Callee.Value)
	if !ok {
		// Could be an array referenced before any DIM; treat the call as an
		// array index against an implicitly-sized array of the sigil's type.
		r.resolveIdentifier(e.Callee)
		sym, _ = r.scope.Resolve(e.Callee.Value)
	}
	for _, a := range e.Args {
		r.resolveExpr(a)
	}
	if sym == nil {
		return
	}
	switch sym.Kind {
	case semantic.SymFunction:
		if len(e.Args) != len(sym.Params) {
			r.ctx.AddError(e.Pos(), fmt.Sprintf("%q expects %d argument(s), got %d", sym.Name, len(sym.Params), len(e.Args)), semantic.ErrArityMismatch)
		}
	case semantic.SymVar:
		if !sym.Type.IsArray {
			r.ctx.AddError(e.Pos(), fmt.Sprintf("%q is not an array or function", sym.Name), semantic.ErrNotAnArray)
		}
	case semantic.SymSub:
		r.ctx.AddError(e.Pos(), fmt.Sprintf("%q is a SUB and cannot be used in an expression", sym.Name), semantic.ErrNotCallable)
	}
}

func (r *resolver) checkFieldAccess(e *ast.FieldAccessExpression) {
	id, ok := e.Base.(*ast.Identifier)
	if !ok {
		return
	}
	sym, ok := r.scope.Resolve(id.Value)
	if !ok || sym.Type.RecordName == "" {
		r.ctx.AddError(e.Pos(), fmt.Sprintf("%q is not a record", id.Value), semantic.ErrTypeMismatch)
		return
	}
	rec, ok := r.ctx.RecordTypes[normalizeKey(sym.Type.RecordName)]
	if !ok {
		return
	}
	for _, f := range rec.Fields {
		if lowerASCII(f.Name) == lowerASCII(e.Field.Value) {
			return
		}
	}
	r.ctx.AddError(e.Field.Pos(), fmt.Sprintf("record %q has no field %q", sym.Type.RecordName, e.Field.Value), semantic.ErrUnknownIdentifier)
}

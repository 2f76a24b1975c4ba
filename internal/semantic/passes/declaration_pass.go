// Package passes holds the concrete semantic.Pass implementations run in
// sequence by the Analyzer: declaration collection, type resolution, and
// final validation.
package passes

import (
	"fmt"

	"github.com/thirawat27/QB-COM/internal/ast"
	"github.com/thirawat27/QB-COM/internal/semantic"
)

// DeclarationPass collects everything that can be forward-referenced:
// record types, compile-time constants, SUB/FUNCTION signatures, labels,
// and the flattened DATA list. It never resolves ordinary variable
// identifiers — that's TypeResolutionPass's job, once every signature it
// might need is already in scope.
type DeclarationPass struct{}

func (p *DeclarationPass) Name() string { return "declaration-collection" }

func (p *DeclarationPass) Run(program *ast.Program, ctx *semantic.PassContext) error {
	// Record types first, so CONST/DIM/param type annotations that name a
	// record can resolve against them.
	for _, stmt := range program.Statements {
		if td, ok := stmt.(*ast.TypeDeclStatement); ok {
			p.collectRecordType(td, ctx)
		}
	}

	for _, stmt := range program.Statements {
		switch s := stmt.(type) {
		case *ast.ConstStatement:
			p.collectConst(s, ctx)
		case *ast.SubDeclStatement:
			p.collectSub(s, ctx)
		case *ast.FunctionDeclStatement:
			p.collectFunction(s, ctx)
		case *ast.DeclareStatement:
			p.collectDeclare(s, ctx)
		case *ast.OptionBaseStatement:
			ctx.OptionBase = s.Base
		}
	}

	p.collectLabelsAndData(program.Statements, ctx)
	return nil
}

func (p *DeclarationPass) collectRecordType(td *ast.TypeDeclStatement, ctx *semantic.PassContext) {
	name := td.Name.Value
	if _, exists := ctx.RecordTypes[normalizeKey(name)]; exists {
		ctx.AddError(td.Pos(), fmt.Sprintf("record type %q is already declared", name), semantic.ErrDuplicateDeclaration)
		return
	}
	sym := &semantic.Symbol{Name: name, Kind: semantic.SymRecordType}
	for _, f := range td.Fields {
		ft, ok := fieldType(f, ctx)
		if !ok {
			ctx.AddError(f.Name.Pos(), fmt.Sprintf("unknown type for field %q", f.Name.Value), semantic.ErrUnknownType)
			continue
		}
		sym.Fields = append(sym.Fields, semantic.FieldSig{Name: f.Name.Value, Type: ft})
	}
	ctx.RecordTypes[normalizeKey(name)] = sym
	ctx.Global.Define(sym)
}

func fieldType(f ast.FieldDecl, ctx *semantic.PassContext) (semantic.Type, bool) {
	if f.TypeName == nil {
		return semantic.Type{}, false
	}
	if kind, ok := semantic.KindForTypeName(f.TypeName.Value); ok {
		if kind == semantic.KindString && f.FixedLen != nil {
			t := semantic.Type{Kind: semantic.KindFixedString}
			if v, _, err := EvalConstExpr(f.FixedLen, ctx); err == nil {
				if n, ok := v.(int64); ok {
					t.FixedLen = int(n)
				}
			}
			return t, true
		}
		return semantic.ScalarType(kind), true
	}
	if _, ok := ctx.RecordTypes[normalizeKey(f.TypeName.Value)]; ok {
		return semantic.Type{Kind: semantic.KindRecord, RecordName: f.TypeName.Value}, true
	}
	return semantic.Type{}, false
}

func (p *DeclarationPass) collectConst(s *ast.ConstStatement, ctx *semantic.PassContext) {
	for i, name := range s.Names {
		if _, exists := ctx.Global.ResolveLocal(name.Value); exists {
			ctx.AddError(name.Pos(), fmt.Sprintf("%q is already declared", name.Value), semantic.ErrDuplicateDeclaration)
			continue
		}
		val, kind, err := EvalConstExpr(s.Values[i], ctx)
		if err != nil {
			ctx.AddError(s.Values[i].Pos(), err.Error(), semantic.ErrConstNotConstant)
			continue
		}
		ctx.Global.Define(&semantic.Symbol{
			Name: name.Value, Kind: semantic.SymConst, Const: true,
			Type: semantic.ScalarType(kind), Value: val,
		})
	}
}

func paramSigs(params []ast.Param, ctx *semantic.PassContext) []semantic.ParamSig {
	sigs := make([]semantic.ParamSig, 0, len(params))
	for _, prm := range params {
		t := resolveDeclaredType(prm.Name, prm.TypeName, ctx)
		sigs = append(sigs, semantic.ParamSig{Name: prm.Name.Value, ByVal: prm.ByVal, IsArray: prm.IsArray, Type: t})
	}
	return sigs
}

// resolveDeclaredType determines a variable's type from an explicit "AS
// type" annotation if present, otherwise from the identifier's sigil.
func resolveDeclaredType(name *ast.Identifier, typeName *ast.Identifier, ctx *semantic.PassContext) semantic.Type {
	if typeName != nil {
		if kind, ok := semantic.KindForTypeName(typeName.Value); ok {
			return semantic.ScalarType(kind)
		}
		if _, ok := ctx.RecordTypes[normalizeKey(typeName.Value)]; ok {
			return semantic.Type{Kind: semantic.KindRecord, RecordName: typeName.Value}
		}
		ctx.AddError(typeName.Pos(), fmt.Sprintf("unknown type %q", typeName.Value), semantic.ErrUnknownType)
		return semantic.Type{}
	}
	return semantic.ScalarType(semantic.KindForSigil(name.Sigil()))
}

func (p *DeclarationPass) collectSub(s *ast.SubDeclStatement, ctx *semantic.PassContext) {
	if _, exists := ctx.Global.ResolveLocal(s.Name.Value); exists {
		ctx.AddError(s.Name.Pos(), fmt.Sprintf("%q is already declared", s.Name.Value), semantic.ErrDuplicateDeclaration)
		return
	}
	ctx.Global.Define(&semantic.Symbol{Name: s.Name.Value, Kind: semantic.SymSub, Params: paramSigs(s.Params, ctx)})
}

func (p *DeclarationPass) collectFunction(s *ast.FunctionDeclStatement, ctx *semantic.PassContext) {
	if _, exists := ctx.Global.ResolveLocal(s.Name.Value); exists {
		ctx.AddError(s.Name.Pos(), fmt.Sprintf("%q is already declared", s.Name.Value), semantic.ErrDuplicateDeclaration)
		return
	}
	ctx.Global.Define(&semantic.Symbol{
		Name: s.Name.Value, Kind: semantic.SymFunction, Params: paramSigs(s.Params, ctx),
		Type: resolveDeclaredType(s.Name, s.ReturnType, ctx),
	})
}

func (p *DeclarationPass) collectDeclare(s *ast.DeclareStatement, ctx *semantic.PassContext) {
	if _, exists := ctx.Global.ResolveLocal(s.Name.Value); exists {
		return // a later real SUB/FUNCTION definition satisfies the forward declaration
	}
	kind := semantic.SymSub
	var t semantic.Type
	if s.IsFunction {
		kind = semantic.SymFunction
		t = resolveDeclaredType(s.Name, s.ReturnType, ctx)
	}
	ctx.Global.Define(&semantic.Symbol{Name: s.Name.Value, Kind: kind, Params: paramSigs(s.Params, ctx), Type: t})
}

// collectLabelsAndData walks every statement, including nested block
// bodies, because labels and GOTO/GOSUB targets are module-global in this
// dialect regardless of lexical nesting.
func (p *DeclarationPass) collectLabelsAndData(stmts []ast.Statement, ctx *semantic.PassContext) {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.LabelStatement:
			if _, exists := ctx.Labels[s.Name]; exists {
				ctx.AddError(s.Pos(), fmt.Sprintf("label %q is already defined", s.Name), semantic.ErrDuplicateDeclaration)
			} else {
				ctx.Labels[s.Name] = s.Pos()
			}
		case *ast.DataStatement:
			for _, item := range s.Items {
				ctx.DataItems = append(ctx.DataItems, semantic.DataValue{
					IsString: item.Kind == ast.DataString,
					Raw:      item.Raw,
				})
			}
		case *ast.IfStatement:
			p.collectLabelsAndData(s.Then, ctx)
			for _, ei := range s.ElseIfs {
				p.collectLabelsAndData(ei.Body, ctx)
			}
			p.collectLabelsAndData(s.Else, ctx)
		case *ast.SelectCaseStatement:
			for _, c := range s.Cases {
				p.collectLabelsAndData(c.Body, ctx)
			}
			p.collectLabelsAndData(s.ElseBody, ctx)
		case *ast.ForStatement:
			p.collectLabelsAndData(s.Body, ctx)
		case *ast.WhileStatement:
			p.collectLabelsAndData(s.Body, ctx)
		case *ast.DoLoopStatement:
			p.collectLabelsAndData(s.Body, ctx)
		case *ast.SubDeclStatement:
			p.collectLabelsAndData(s.Body, ctx)
		case *ast.FunctionDeclStatement:
			p.collectLabelsAndData(s.Body, ctx)
		}
	}
}

func normalizeKey(s string) string {
	return lowerASCII(s)
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

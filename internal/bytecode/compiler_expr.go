package bytecode

import (
	"fmt"
	"strings"

	"github.com/thirawat27/QB-COM/internal/ast"
	"github.com/thirawat27/QB-COM/internal/semantic"
)

// compileExpression emits the instructions that leave e's value, in its
// own natural type, on top of the stack.
func (c *Compiler) compileExpression(e ast.Expression) error {
	line := e.Pos().Line
	switch expr := e.(type) {
	case *ast.IntegerLiteral:
		c.emit(Make(OpLoadConst, 0, c.chunk.AddConstant(intLiteralValue(expr))), line)
		return nil
	case *ast.FloatLiteral:
		c.emit(Make(OpLoadConst, 0, c.chunk.AddConstant(floatLiteralValue(expr))), line)
		return nil
	case *ast.StringLiteral:
		c.emit(Make(OpLoadConst, 0, c.chunk.AddConstant(StringValue(expr.Value))), line)
		return nil
	case *ast.Identifier:
		return c.compileIdentifier(expr, line)
	case *ast.GroupedExpression:
		return c.compileExpression(expr.Inner)
	case *ast.UnaryExpression:
		return c.compileUnary(expr, line)
	case *ast.BinaryExpression:
		return c.compileBinary(expr, line)
	case *ast.InvocationExpression:
		return c.compileInvocationExpr(expr, line)
	case *ast.FieldAccessExpression:
		return c.compileFieldRead(expr, line)
	default:
		return &CompileError{Message: fmt.Sprintf("internal: no compiler for expression %T", e)}
	}
}

func intLiteralValue(lit *ast.IntegerLiteral) Value {
	switch {
	case strings.HasSuffix(lit.Raw, "&&"):
		return Int64Value(lit.Value)
	case strings.HasSuffix(lit.Raw, "&"):
		return Int32Value(lit.Value)
	case strings.HasSuffix(lit.Raw, "%"):
		return Int16Value(lit.Value)
	case lit.Value < -32768 || lit.Value > 32767:
		return Int32Value(lit.Value)
	default:
		return Int16Value(lit.Value)
	}
}

func floatLiteralValue(lit *ast.FloatLiteral) Value {
	if strings.HasSuffix(lit.Raw, "#") {
		return DoubleValue(lit.Value)
	}
	return SingleValue(lit.Value)
}

// compileIdentifier loads a scalar variable or compile-time constant. A
// bare array/function name with no '(' never reaches here as a value
// producer except the classic "assign to FUNCTION name" case, which the
// function-body compiler routes through compileAssign directly.
func (c *Compiler) compileIdentifier(id *ast.Identifier, line int) error {
	name := strings.ToLower(id.Value)
	if c.proc != nil {
		if slot, ok := c.proc.localSlots[name]; ok {
			c.emit(Make(OpLoadLocal, 0, uint16(slot)), line)
			return nil
		}
	}
	sym, ok := c.ctx.Global.Resolve(id.Value)
	if !ok {
		return &CompileError{Message: fmt.Sprintf("internal: unresolved identifier %q survived validation", id.Value)}
	}
	if sym.Kind == semantic.SymConst {
		c.emit(Make(OpLoadConst, 0, c.chunk.AddConstant(constValueFromSymbol(sym))), line)
		return nil
	}
	slot, ok := c.globalSlots[name]
	if !ok {
		return &CompileError{Message: fmt.Sprintf("internal: %q has no assigned global slot", id.Value)}
	}
	c.emit(Make(OpLoadGlobal, 0, uint16(slot)), line)
	return nil
}

func constValueFromSymbol(sym *semantic.Symbol) Value {
	switch sym.Type.Kind {
	case semantic.KindString:
		s, _ := sym.Value.(string)
		return StringValue(s)
	case semantic.KindSingle:
		return SingleValue(toF64(sym.Value))
	case semantic.KindDouble:
		return DoubleValue(toF64(sym.Value))
	case semantic.KindInt64:
		return Int64Value(int64(toF64(sym.Value)))
	case semantic.KindUInt32:
		return UInt32Value(int64(toF64(sym.Value)))
	case semantic.KindInt32:
		return Int32Value(int64(toF64(sym.Value)))
	default:
		return Int16Value(int64(toF64(sym.Value)))
	}
}

func toF64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}

func (c *Compiler) compileUnary(e *ast.UnaryExpression, line int) error {
	if err := c.compileExpression(e.Right); err != nil {
		return err
	}
	t := c.typeOf(e.Right)
	switch e.Operator {
	case "-":
		if isFloatKind(t.Kind) {
			c.emit(MakeSimple(OpNegateFloat), line)
		} else {
			c.emit(MakeSimple(OpNegateInt), line)
		}
	case "+":
		// unary plus is a no-op
	case "NOT":
		c.emit(MakeSimple(OpNot), line)
	default:
		return &CompileError{Message: "internal: unknown unary operator " + e.Operator}
	}
	return nil
}

func (c *Compiler) compileBinary(e *ast.BinaryExpression, line int) error {
	leftType := c.typeOf(e.Left)
	rightType := c.typeOf(e.Right)

	if e.Operator == "+" && (leftType.Kind == semantic.KindString || leftType.Kind == semantic.KindFixedString) {
		if err := c.compileExpression(e.Left); err != nil {
			return err
		}
		if err := c.compileExpression(e.Right); err != nil {
			return err
		}
		c.emit(MakeSimple(OpStringConcat), line)
		return nil
	}

	if err := c.compileExpression(e.Left); err != nil {
		return err
	}
	if err := c.compileExpression(e.Right); err != nil {
		return err
	}

	switch e.Operator {
	case "=", "<>", "<", "<=", ">", ">=":
		c.emit(MakeSimple(compareOp(e.Operator)), line)
		return nil
	case "AND":
		c.emit(MakeSimple(OpAnd), line)
		return nil
	case "OR":
		c.emit(MakeSimple(OpOr), line)
		return nil
	}

	resultFloat := isFloatKind(semantic.WidenNumeric(leftType.Kind, rightType.Kind))
	switch e.Operator {
	case "+":
		c.emit(MakeSimple(pick(resultFloat, OpAddFloat, OpAddInt)), line)
	case "-":
		c.emit(MakeSimple(pick(resultFloat, OpSubFloat, OpSubInt)), line)
	case "*":
		c.emit(MakeSimple(pick(resultFloat, OpMulFloat, OpMulInt)), line)
	case "/":
		// BASIC's "/" always produces a floating-point quotient.
		c.emit(MakeSimple(OpDivFloat), line)
	case `\`:
		c.emit(MakeSimple(OpDivInt), line)
	case "MOD":
		c.emit(MakeSimple(OpModInt), line)
	case "^":
		c.emit(MakeSimple(pick(resultFloat, OpPowFloat, OpPowInt)), line)
	default:
		return &CompileError{Message: "internal: unknown binary operator " + e.Operator}
	}
	return nil
}

func pick(cond bool, a, b OpCode) OpCode {
	if cond {
		return a
	}
	return b
}

func compareOp(op string) OpCode {
	switch op {
	case "=":
		return OpEqual
	case "<>":
		return OpNotEqual
	case "<":
		return OpLess
	case "<=":
		return OpLessEqual
	case ">":
		return OpGreater
	default:
		return OpGreaterEqual
	}
}

// compileInvocationExpr compiles a NAME(args) expression used as a value:
// a FUNCTION call or an array index, disambiguated by the callee's symbol
// kind exactly as the semantic analyzer resolved it.
func (c *Compiler) compileInvocationExpr(e *ast.InvocationExpression, line int) error {
	kind, _ := c.symbolKindOf(e.Callee.Value)
	if kind == semantic.SymFunction {
		return c.compileCall(e, line)
	}
	return c.compileArrayRead(e, line)
}

func (c *Compiler) compileArrayRead(e *ast.InvocationExpression, line int) error {
	if err := c.compileExpression(e.Callee); err != nil {
		return err
	}
	if err := c.compileExpression(e.Args[0]); err != nil {
		return err
	}
	c.emit(MakeSimple(OpArrayGet), line)
	return nil
}

// compileCall evaluates arguments left to right, widening each to its
// parameter's declared type, then invokes the FUNCTION/SUB by its
// procedure-table index.
func (c *Compiler) compileCall(e *ast.InvocationExpression, line int) error {
	name := strings.ToLower(e.Callee.Value)
	idx, ok := c.procIdx[name]
	if !ok {
		if bidx, ok := BuiltinIndex(e.Callee.Value); ok {
			for _, a := range e.Args {
				if err := c.compileExpression(a); err != nil {
					return err
				}
			}
			c.emit(Make(OpCallBuiltin, byte(len(e.Args)), uint16(bidx)), line)
			return nil
		}
		return &CompileError{Message: fmt.Sprintf("internal: unresolved call to %q", e.Callee.Value)}
	}
	sym, _ := c.ctx.Global.Resolve(e.Callee.Value)
	for i, a := range e.Args {
		if err := c.compileExpression(a); err != nil {
			return err
		}
		if sym != nil && i < len(sym.Params) {
			c.emitWiden(c.typeOf(a), sym.Params[i].Type, line)
		}
	}
	c.emit(Make(OpCall, byte(len(e.Args)), uint16(idx)), line)
	return nil
}

func (c *Compiler) compileFieldRead(e *ast.FieldAccessExpression, line int) error {
	if err := c.compileExpression(e.Base); err != nil {
		return err
	}
	name := StringValue(e.Field.Value)
	c.emit(Make(OpGetField, 0, c.chunk.AddConstant(name)), line)
	return nil
}

// emitWiden inserts an OpWiden if from and to don't already share a
// runtime representation, so the stored/passed Value carries the target's
// type tag rather than the expression's own natural type.
func (c *Compiler) emitWiden(from, to semantic.Type, line int) {
	if to.IsArray || to.Kind == semantic.KindRecord {
		return
	}
	if valueTypeOf(from) == valueTypeOf(to) {
		return
	}
	c.emit(Make(OpWiden, byte(valueTypeOf(to)), 0), line)
}

func isFloatKind(k semantic.ValueKind) bool {
	return k == semantic.KindSingle || k == semantic.KindDouble
}

// symbolKindOf reports the SymbolKind of name as seen from the current
// compile position — a local parameter/return-name is always SymVar.
func (c *Compiler) symbolKindOf(name string) (semantic.SymbolKind, bool) {
	lname := strings.ToLower(name)
	if c.proc != nil {
		if _, ok := c.proc.localSlots[lname]; ok {
			return semantic.SymVar, true
		}
	}
	sym, ok := c.ctx.Global.Resolve(name)
	if !ok {
		return 0, false
	}
	return sym.Kind, true
}

// typeOf infers e's static type, duplicating just enough of the semantic
// analyzer's type resolution to pick opcodes and widen targets — the
// per-procedure symbol tables built during analysis aren't retained past
// that pass, so the compiler re-derives types from the AST and the
// persistent global/record tables instead.
func (c *Compiler) typeOf(e ast.Expression) semantic.Type {
	switch expr := e.(type) {
	case *ast.IntegerLiteral:
		return semantic.ScalarType(valueKindOf(intLiteralValue(expr).Type))
	case *ast.FloatLiteral:
		return semantic.ScalarType(valueKindOf(floatLiteralValue(expr).Type))
	case *ast.StringLiteral:
		return semantic.ScalarType(semantic.KindString)
	case *ast.GroupedExpression:
		return c.typeOf(expr.Inner)
	case *ast.UnaryExpression:
		if expr.Operator == "NOT" {
			return semantic.ScalarType(semantic.KindInt32)
		}
		return c.typeOf(expr.Right)
	case *ast.Identifier:
		return c.typeOfIdentifier(expr)
	case *ast.BinaryExpression:
		switch expr.Operator {
		case "=", "<>", "<", "<=", ">", ">=", "AND", "OR":
			return semantic.ScalarType(semantic.KindInt32)
		case "+":
			lt := c.typeOf(expr.Left)
			if lt.Kind == semantic.KindString || lt.Kind == semantic.KindFixedString {
				return semantic.ScalarType(semantic.KindString)
			}
			return semantic.ScalarType(semantic.WidenNumeric(lt.Kind, c.typeOf(expr.Right).Kind))
		case "/":
			return semantic.ScalarType(semantic.KindDouble)
		case `\`, "MOD":
			return semantic.ScalarType(semantic.KindInt32)
		default:
			return semantic.ScalarType(semantic.WidenNumeric(c.typeOf(expr.Left).Kind, c.typeOf(expr.Right).Kind))
		}
	case *ast.InvocationExpression:
		return c.typeOfInvocation(expr)
	case *ast.FieldAccessExpression:
		return c.typeOfField(expr)
	default:
		return semantic.ScalarType(semantic.KindSingle)
	}
}

func (c *Compiler) typeOfIdentifier(id *ast.Identifier) semantic.Type {
	name := strings.ToLower(id.Value)
	if c.proc != nil {
		if t, ok := c.proc.localTypes[name]; ok {
			return t
		}
	}
	if sym, ok := c.ctx.Global.Resolve(id.Value); ok {
		return sym.Type
	}
	return semantic.ScalarType(semantic.KindForSigil(id.Sigil()))
}

func (c *Compiler) typeOfInvocation(e *ast.InvocationExpression) semantic.Type {
	kind, ok := c.symbolKindOf(e.Callee.Value)
	if ok && kind == semantic.SymFunction {
		if sym, ok := c.ctx.Global.Resolve(e.Callee.Value); ok {
			return sym.Type
		}
	}
	t := c.typeOfIdentifier(e.Callee)
	if t.IsArray {
		return semantic.Type{Kind: t.ElemKind, RecordName: t.RecordName}
	}
	return t
}

func (c *Compiler) typeOfField(e *ast.FieldAccessExpression) semantic.Type {
	baseType := c.typeOf(e.Base)
	rec, ok := c.ctx.RecordTypes[strings.ToLower(baseType.RecordName)]
	if !ok {
		return semantic.Type{}
	}
	for _, f := range rec.Fields {
		if strings.EqualFold(f.Name, e.Field.Value) {
			return f.Type
		}
	}
	return semantic.Type{}
}

func valueKindOf(t ValueType) semantic.ValueKind {
	switch t {
	case TypeInt16:
		return semantic.KindInt16
	case TypeInt32:
		return semantic.KindInt32
	case TypeInt64:
		return semantic.KindInt64
	case TypeUInt32:
		return semantic.KindUInt32
	case TypeSingle:
		return semantic.KindSingle
	case TypeDouble:
		return semantic.KindDouble
	case TypeString, TypeFixedString:
		return semantic.KindString
	default:
		return semantic.KindSingle
	}
}

package bytecode

import (
	"fmt"
	"strings"

	"github.com/thirawat27/QB-COM/internal/ast"
	"github.com/thirawat27/QB-COM/internal/semantic"
	"github.com/thirawat27/QB-COM/pkg/token"
)

// emitGlobalInit zero-initializes every scalar global to its declared
// type's zero value before the main program body runs. Without this, a
// global's slot would carry Go's own zero Value ({Type: TypeEmpty}) until
// first assigned, which PRINTs as an empty string rather than the "0" a
// fresh INTEGER should show. Arrays are left unset until their own DIM
// executes; record scalars need a real RecordInstance, which zeroValue
// has no case for, so OpNewRecord stands in for it here.
func (c *Compiler) emitGlobalInit() {
	for _, sym := range c.ctx.Global.Symbols() {
		if sym.Kind != semantic.SymVar || sym.Type.IsArray {
			continue
		}
		slot, ok := c.globalSlots[strings.ToLower(sym.Name)]
		if !ok {
			continue
		}
		if sym.Type.Kind == semantic.KindRecord {
			if ridx, ok := c.recordIdx[strings.ToLower(sym.Type.RecordName)]; ok {
				c.emit(Make(OpNewRecord, 0, uint16(ridx)), 0)
				c.emit(Make(OpStoreGlobal, 0, uint16(slot)), 0)
				c.emit(MakeSimple(OpPop), 0)
			}
			continue
		}
		c.emit(Make(OpLoadConst, 0, c.chunk.AddConstant(zeroValue(valueTypeOf(sym.Type)))), 0)
		c.emit(Make(OpStoreGlobal, 0, uint16(slot)), 0)
		c.emit(MakeSimple(OpPop), 0)
	}
}

// dimDeclType determines a DIM'd name's (element, for an array) type from
// its "AS type" annotation if present, otherwise from its sigil — the
// compiler's own copy of the same rule the type-resolution pass already
// applied and proved sound.
func (c *Compiler) dimDeclType(decl ast.VarDecl) semantic.Type {
	if decl.TypeName != nil {
		if kind, ok := semantic.KindForTypeName(decl.TypeName.Value); ok {
			return semantic.ScalarType(kind)
		}
		if _, ok := c.ctx.RecordTypes[strings.ToLower(decl.TypeName.Value)]; ok {
			return semantic.Type{Kind: semantic.KindRecord, RecordName: decl.TypeName.Value}
		}
		return semantic.Type{}
	}
	return semantic.ScalarType(semantic.KindForSigil(decl.Name.Sigil()))
}

// collectLocalDim walks a procedure body for non-SHARED DIM statements,
// assigning each a fresh local slot after the parameter slots (and, for a
// FUNCTION, its own name's slot). Every implicitly-used bare name a
// procedure body touches already lives in a global slot (see
// resolveIdentifier in the type-resolution pass); apart from parameters
// and the FUNCTION name, only an explicit local DIM carves out a true local.
func (c *Compiler) collectLocalDim(stmts []ast.Statement, slots map[string]int, types map[string]semantic.Type, next *int, extraSlots *[]int, extraTypes *[]semantic.Type) {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.DimStatement:
			if s.Shared {
				continue
			}
			for _, decl := range s.Decls {
				name := strings.ToLower(decl.Name.Value)
				if _, exists := slots[name]; exists {
					continue
				}
				t := c.dimDeclType(decl)
				if len(decl.Bounds) > 0 {
					t = semantic.Type{IsArray: true, ElemKind: t.Kind, RecordName: t.RecordName}
				}
				slots[name] = *next
				types[name] = t
				*extraSlots = append(*extraSlots, *next)
				*extraTypes = append(*extraTypes, t)
				*next++
			}
		case *ast.IfStatement:
			c.collectLocalDim(s.Then, slots, types, next, extraSlots, extraTypes)
			for _, ei := range s.ElseIfs {
				c.collectLocalDim(ei.Body, slots, types, next, extraSlots, extraTypes)
			}
			c.collectLocalDim(s.Else, slots, types, next, extraSlots, extraTypes)
		case *ast.SelectCaseStatement:
			for _, cc := range s.Cases {
				c.collectLocalDim(cc.Body, slots, types, next, extraSlots, extraTypes)
			}
			c.collectLocalDim(s.ElseBody, slots, types, next, extraSlots, extraTypes)
		case *ast.ForStatement:
			c.collectLocalDim(s.Body, slots, types, next, extraSlots, extraTypes)
		case *ast.WhileStatement:
			c.collectLocalDim(s.Body, slots, types, next, extraSlots, extraTypes)
		case *ast.DoLoopStatement:
			c.collectLocalDim(s.Body, slots, types, next, extraSlots, extraTypes)
		}
	}
}

// identifierSlot reports where name lives: a local frame slot if the
// current procedure binds it (parameter, own name, or a local DIM), a
// global slot otherwise.
func (c *Compiler) identifierSlot(name string) (isLocal bool, slot int, declType semantic.Type, ok bool) {
	lname := strings.ToLower(name)
	if c.proc != nil {
		if s, exists := c.proc.localSlots[lname]; exists {
			return true, s, c.proc.localTypes[lname], true
		}
	}
	slot, exists := c.globalSlots[lname]
	if !exists {
		return false, 0, semantic.Type{}, false
	}
	var t semantic.Type
	if sym, ok2 := c.ctx.Global.Resolve(name); ok2 {
		t = sym.Type
	}
	return false, slot, t, true
}

func (c *Compiler) appendArraySpec(elemType ValueType) int {
	idx := len(c.chunk.Arrays)
	c.chunk.Arrays = append(c.chunk.Arrays, ArraySpec{ElemType: elemType, Dims: 1})
	return idx
}

func oneValueOf(t semantic.Type) Value {
	vt := valueTypeOf(t)
	if vt == TypeSingle || vt == TypeDouble {
		return Value{Type: vt, Flt: 1}
	}
	return Value{Type: vt, Int: 1}
}

// compileStore emits an assignment into target, invoking pushValue at
// exactly the point in the instruction sequence the target kind
// requires: after the base+index (or base record) is already on the
// stack for an array/field target, so the VM never has to reorder a
// fully-consumed operand stack. A plain identifier target needs an
// explicit trailing OpPop, since OpStoreGlobal/OpStoreLocal peek rather
// than pop, leaving the stored value sitting on the stack; OpArraySet and
// OpSetField consume every operand themselves.
func (c *Compiler) compileStore(target ast.Expression, pushValue func() (semantic.Type, error), line int) error {
	switch t := target.(type) {
	case *ast.Identifier:
		valType, err := pushValue()
		if err != nil {
			return err
		}
		isLocal, slot, declType, ok := c.identifierSlot(t.Value)
		if !ok {
			return &CompileError{Message: fmt.Sprintf("internal: %q has no assigned slot", t.Value)}
		}
		c.emitWiden(valType, declType, line)
		if isLocal {
			c.emit(Make(OpStoreLocal, 0, uint16(slot)), line)
		} else {
			c.emit(Make(OpStoreGlobal, 0, uint16(slot)), line)
		}
		c.emit(MakeSimple(OpPop), line)
		return nil
	case *ast.InvocationExpression:
		if err := c.compileExpression(t.Callee); err != nil {
			return err
		}
		if err := c.compileExpression(t.Args[0]); err != nil {
			return err
		}
		valType, err := pushValue()
		if err != nil {
			return err
		}
		c.emitWiden(valType, c.typeOf(t), line)
		c.emit(MakeSimple(OpArraySet), line)
		return nil
	case *ast.FieldAccessExpression:
		if err := c.compileExpression(t.Base); err != nil {
			return err
		}
		valType, err := pushValue()
		if err != nil {
			return err
		}
		c.emitWiden(valType, c.typeOfField(t), line)
		name := StringValue(t.Field.Value)
		c.emit(Make(OpSetField, 0, c.chunk.AddConstant(name)), line)
		return nil
	}
	return &CompileError{Message: "internal: invalid assignment target"}
}

func (c *Compiler) compileAssign(s *ast.AssignStatement) error {
	line := s.Pos().Line
	return c.compileStore(s.Target, func() (semantic.Type, error) {
		if err := c.compileExpression(s.Value); err != nil {
			return semantic.Type{}, err
		}
		return c.typeOf(s.Value), nil
	}, line)
}

func (c *Compiler) compileStatements(stmts []ast.Statement) error {
	for _, stmt := range stmts {
		if err := c.compileStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

// compileStatement dispatches to the compiler for stmt's concrete type.
// SUB/FUNCTION declarations are compiled separately by compileProc, after
// the main program body, so they're a no-op here.
func (c *Compiler) compileStatement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.DimStatement:
		return c.compileDim(s)
	case *ast.ConstStatement, *ast.TypeDeclStatement, *ast.DeclareStatement, *ast.OptionBaseStatement, *ast.DataStatement:
		return nil
	case *ast.AssignStatement:
		return c.compileAssign(s)
	case *ast.ExpressionStatement:
		return c.compileExpressionStatement(s)
	case *ast.PrintStatement:
		return c.compilePrint(s)
	case *ast.InputStatement:
		return c.compileInput(s)
	case *ast.ReadStatement:
		return c.compileRead(s)
	case *ast.RestoreStatement:
		return c.compileRestore(s)
	case *ast.RandomizeStatement:
		return c.compileRandomize(s)
	case *ast.OpenStatement:
		return c.compileOpen(s)
	case *ast.CloseStatement:
		return c.compileClose(s)
	case *ast.EndStatement:
		c.emit(MakeSimple(OpEnd), s.Pos().Line)
		return nil
	case *ast.IfStatement:
		return c.compileIf(s)
	case *ast.SelectCaseStatement:
		return c.compileSelectCase(s)
	case *ast.ForStatement:
		return c.compileFor(s)
	case *ast.WhileStatement:
		return c.compileWhile(s)
	case *ast.DoLoopStatement:
		return c.compileDoLoop(s)
	case *ast.ExitStatement:
		return c.compileExit(s)
	case *ast.GotoStatement:
		c.jumpTo(OpGoto, s.Target, s.Pos().Line)
		return nil
	case *ast.GosubStatement:
		c.jumpTo(OpGosub, s.Target, s.Pos().Line)
		return nil
	case *ast.ReturnStatement:
		return c.compileReturn(s)
	case *ast.LabelStatement:
		c.label(s.Name)
		return nil
	case *ast.SubDeclStatement, *ast.FunctionDeclStatement:
		return nil
	default:
		return &CompileError{Message: fmt.Sprintf("internal: no compiler for statement %T", stmt)}
	}
}

func (c *Compiler) compileReturn(s *ast.ReturnStatement) error {
	if s.Target == "" {
		c.emit(MakeSimple(OpReturnSub), s.Pos().Line)
		return nil
	}
	c.jumpTo(OpReturnSubTo, s.Target, s.Pos().Line)
	return nil
}

func (c *Compiler) compileDim(s *ast.DimStatement) error {
	line := s.Pos().Line
	for _, decl := range s.Decls {
		if len(decl.Bounds) == 0 {
			continue // scalar: slot already reserved and zero-initialized
		}
		if len(decl.Bounds) > 1 {
			return &CompileError{Message: fmt.Sprintf("%q: multi-dimensional arrays are not supported", decl.Name.Value)}
		}
		elemType := c.dimDeclType(decl)
		bound := decl.Bounds[0]
		if bound.Lower != nil {
			if err := c.compileExpression(bound.Lower); err != nil {
				return err
			}
		} else {
			c.emit(Make(OpLoadConst, 0, c.chunk.AddConstant(Int32Value(int64(c.ctx.OptionBase)))), line)
		}
		if err := c.compileExpression(bound.Upper); err != nil {
			return err
		}
		specIdx := c.appendArraySpec(valueTypeOf(elemType))
		c.emit(Make(OpNewArray, 0, uint16(specIdx)), line)

		isLocal, slot, _, ok := c.identifierSlot(decl.Name.Value)
		if !ok {
			return &CompileError{Message: fmt.Sprintf("internal: %q has no assigned slot", decl.Name.Value)}
		}
		if isLocal {
			c.emit(Make(OpStoreLocal, 0, uint16(slot)), line)
		} else {
			c.emit(Make(OpStoreGlobal, 0, uint16(slot)), line)
		}
		c.emit(MakeSimple(OpPop), line)
	}
	return nil
}

// compileExpressionStatement handles both "CALL Name(args)"/"Name(args)"
// and a bare "Name" statement with no arguments or parens — the two
// surface forms a SUB or zero-arg FUNCTION call can take as a statement.
func (c *Compiler) compileExpressionStatement(s *ast.ExpressionStatement) error {
	line := s.Pos().Line
	switch e := s.Expr.(type) {
	case *ast.InvocationExpression:
		return c.compileCallForEffect(e, line)
	case *ast.Identifier:
		return c.compileBareCallForEffect(e, line)
	default:
		if err := c.compileExpression(s.Expr); err != nil {
			return err
		}
		c.emit(MakeSimple(OpPop), line)
		return nil
	}
}

// compileCallForEffect compiles a call made for its side effect rather
// than its value, discarding whatever the callee leaves behind: a FUNCTION
// call or a builtin always pushes a result; a SUB call pushes nothing
// (execReturn only pushes a value for frame.proc.IsFunction).
func (c *Compiler) compileCallForEffect(e *ast.InvocationExpression, line int) error {
	kind, ok := c.symbolKindOf(e.Callee.Value)
	if err := c.compileCall(e, line); err != nil {
		return err
	}
	if !ok || kind == semantic.SymFunction {
		c.emit(MakeSimple(OpPop), line)
	}
	return nil
}

func (c *Compiler) compileBareCallForEffect(e *ast.Identifier, line int) error {
	name := strings.ToLower(e.Value)
	if idx, ok := c.procIdx[name]; ok {
		c.emit(Make(OpCall, 0, uint16(idx)), line)
		if sym, _ := c.ctx.Global.Resolve(e.Value); sym != nil && sym.Kind == semantic.SymFunction {
			c.emit(MakeSimple(OpPop), line)
		}
		return nil
	}
	if bidx, ok := BuiltinIndex(e.Value); ok {
		c.emit(Make(OpCallBuiltin, 0, uint16(bidx)), line)
		c.emit(MakeSimple(OpPop), line)
		return nil
	}
	return &CompileError{Message: fmt.Sprintf("internal: unresolved call to %q", e.Value)}
}

func printSepByte(s ast.PrintSeparator) byte {
	switch s {
	case ast.SepSemicolon:
		return ';'
	case ast.SepComma:
		return ','
	default:
		return 0
	}
}

// compilePrint pushes an optional channel number first (so it ends up
// deepest on the stack, popped last), then each item's value immediately
// followed by its separator code. A PRINT with no items and no trailing
// punctuation needs no special-casing — an empty item list already makes
// execPrint fall through to a bare newline — but "PRINT ;" has to fake a
// single empty item so its trailing ';' survives to suppress that
// newline, since OpPrint has nowhere else to carry that bit when the item
// list is empty.
func (c *Compiler) compilePrint(s *ast.PrintStatement) error {
	line := s.Pos().Line
	hasChannel := s.Channel != nil
	if hasChannel {
		if err := c.compileExpression(s.Channel); err != nil {
			return err
		}
	}

	itemCount := len(s.Items)
	if itemCount == 0 {
		if s.SuppressNewline {
			c.emit(Make(OpLoadConst, 0, c.chunk.AddConstant(StringValue(""))), line)
			c.emit(Make(OpLoadConst, 0, c.chunk.AddConstant(Int16Value(int64(';')))), line)
			itemCount = 1
		}
	} else {
		for _, it := range s.Items {
			if err := c.compileExpression(it.Expr); err != nil {
				return err
			}
			c.emit(Make(OpLoadConst, 0, c.chunk.AddConstant(Int16Value(int64(printSepByte(it.Sep))))), line)
		}
	}

	b := uint16(0)
	if hasChannel {
		b = 1
	}
	c.emit(Make(OpPrint, byte(itemCount), b), line)
	return nil
}

// compileInput optionally prints a prompt on the same line (classic
// BASIC appends "? " to a plain prompt; a prompt ending in ';' suppresses
// the mark), then reads one line per target — this dialect gives up on
// comma-splitting a single INPUT line across multiple targets, since
// execInputLine reads exactly one host line per call. A numeric target
// routes the raw input text through VAL before it's stored.
func (c *Compiler) compileInput(s *ast.InputStatement) error {
	line := s.Pos().Line
	if s.Prompt != nil {
		text := s.Prompt.Value
		if !s.PromptNoMark {
			text += "? "
		}
		c.emit(Make(OpLoadConst, 0, c.chunk.AddConstant(StringValue(text))), line)
		c.emit(Make(OpLoadConst, 0, c.chunk.AddConstant(Int16Value(int64(';')))), line)
		c.emit(Make(OpPrint, 1, 0), line)
	}

	valIdx, hasVal := BuiltinIndex("VAL")
	for _, target := range s.Targets {
		targetType := c.typeOf(target)
		numeric := targetType.Kind.IsNumeric()
		channel := s.Channel
		if err := c.compileStore(target, func() (semantic.Type, error) {
			a := byte(0)
			if channel != nil {
				if err := c.compileExpression(channel); err != nil {
					return semantic.Type{}, err
				}
				a = 1
			}
			c.emit(Make(OpInputLine, a, 0), line)
			if numeric && hasVal {
				c.emit(Make(OpCallBuiltin, 1, uint16(valIdx)), line)
				return semantic.ScalarType(semantic.KindDouble), nil
			}
			return semantic.ScalarType(semantic.KindString), nil
		}, line); err != nil {
			return err
		}
	}
	return nil
}

// compileRead mirrors compileInput's VAL-coercion for numeric targets,
// pulling raw text from the DATA pool (OpRead) instead of a host line.
func (c *Compiler) compileRead(s *ast.ReadStatement) error {
	line := s.Pos().Line
	valIdx, hasVal := BuiltinIndex("VAL")
	for _, target := range s.Targets {
		targetType := c.typeOf(target)
		numeric := targetType.Kind.IsNumeric()
		if err := c.compileStore(target, func() (semantic.Type, error) {
			c.emit(MakeSimple(OpRead), line)
			if numeric && hasVal {
				c.emit(Make(OpCallBuiltin, 1, uint16(valIdx)), line)
				return semantic.ScalarType(semantic.KindDouble), nil
			}
			return semantic.ScalarType(semantic.KindString), nil
		}, line); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileRestore(s *ast.RestoreStatement) error {
	idx := 0
	if s.Label != "" {
		idx = c.labelDataIndex[strings.ToLower(s.Label)]
	}
	c.emit(Make(OpRestore, 0, uint16(idx)), s.Pos().Line)
	return nil
}

func (c *Compiler) compileRandomize(s *ast.RandomizeStatement) error {
	line := s.Pos().Line
	if s.Seed == nil {
		c.emit(Make(OpRandomize, 0, 1), line)
		return nil
	}
	if err := c.compileExpression(s.Seed); err != nil {
		return err
	}
	c.emit(Make(OpRandomize, 0, 0), line)
	return nil
}

// compileOpen pushes Path then Channel — execOpenFile pops channel first,
// so channel has to be the last thing pushed — and interns the mode
// keyword as a string constant indexed by B, matching execOpenFile's
// actual operand layout rather than this opcode's once-stale comment.
func (c *Compiler) compileOpen(s *ast.OpenStatement) error {
	line := s.Pos().Line
	if err := c.compileExpression(s.Path); err != nil {
		return err
	}
	if err := c.compileExpression(s.Channel); err != nil {
		return err
	}
	modeIdx := c.chunk.AddConstant(StringValue(strings.ToUpper(s.Mode)))
	c.emit(Make(OpOpenFile, 0, modeIdx), line)
	return nil
}

func (c *Compiler) compileClose(s *ast.CloseStatement) error {
	line := s.Pos().Line
	if len(s.Channels) == 0 {
		c.emit(Make(OpCloseFile, 1, 0), line)
		return nil
	}
	for _, ch := range s.Channels {
		if err := c.compileExpression(ch); err != nil {
			return err
		}
		c.emit(Make(OpCloseFile, 0, 0), line)
	}
	return nil
}

func (c *Compiler) compileIf(s *ast.IfStatement) error {
	line := s.Pos().Line
	var endJumps []int

	if err := c.compileExpression(s.Cond); err != nil {
		return err
	}
	falseJump := c.emit(Make(OpJumpIfFalse, 0, 0), line)
	if err := c.compileStatements(s.Then); err != nil {
		return err
	}
	endJumps = append(endJumps, c.emit(Make(OpJump, 0, 0), line))
	c.chunk.Patch(falseJump, uint16(len(c.chunk.Code)))

	for _, ei := range s.ElseIfs {
		eline := ei.Cond.Pos().Line
		if err := c.compileExpression(ei.Cond); err != nil {
			return err
		}
		fj := c.emit(Make(OpJumpIfFalse, 0, 0), eline)
		if err := c.compileStatements(ei.Body); err != nil {
			return err
		}
		endJumps = append(endJumps, c.emit(Make(OpJump, 0, 0), eline))
		c.chunk.Patch(fj, uint16(len(c.chunk.Code)))
	}

	if err := c.compileStatements(s.Else); err != nil {
		return err
	}

	end := len(c.chunk.Code)
	for _, j := range endJumps {
		c.chunk.Patch(j, uint16(end))
	}
	return nil
}

// relOpCode maps a CASE IS <op> guard's comparison token to its opcode.
func relOpCode(t token.Type) OpCode {
	switch t {
	case token.EQ:
		return OpEqual
	case token.NOT_EQ:
		return OpNotEqual
	case token.LESS:
		return OpLess
	case token.LESS_EQ:
		return OpLessEqual
	case token.GREATER:
		return OpGreater
	default:
		return OpGreaterEqual
	}
}

// compileSelectCase compiles the subject once and keeps it (P) on the
// stack for the whole construct. Each guard tests a disposable OpDup'd
// copy of P, leaving a bool in its place; a true guard jumps straight to
// its clause's body (which pops P, no longer needed once matched), a
// false last guard in a clause falls through to the next clause's test
// (or to the shared ElseBody, also preceded by a pop of P).
func (c *Compiler) compileSelectCase(s *ast.SelectCaseStatement) error {
	line := s.Pos().Line
	if err := c.compileExpression(s.Subject); err != nil {
		return err
	}

	var endJumps []int
	var clauseSkip []int
	for _, cc := range s.Cases {
		for _, j := range clauseSkip {
			c.chunk.Patch(j, uint16(len(c.chunk.Code)))
		}
		clauseSkip = nil

		var toBody []int
		for _, g := range cc.Guards {
			c.emit(MakeSimple(OpDup), line)
			if err := c.compileGuardTest(g, line); err != nil {
				return err
			}
			toBody = append(toBody, c.emit(Make(OpJumpIfTrue, 0, 0), line))
		}
		clauseSkip = append(clauseSkip, c.emit(Make(OpJump, 0, 0), line))

		for _, j := range toBody {
			c.chunk.Patch(j, uint16(len(c.chunk.Code)))
		}
		c.emit(MakeSimple(OpPop), line)
		if err := c.compileStatements(cc.Body); err != nil {
			return err
		}
		endJumps = append(endJumps, c.emit(Make(OpJump, 0, 0), line))
	}

	for _, j := range clauseSkip {
		c.chunk.Patch(j, uint16(len(c.chunk.Code)))
	}
	c.emit(MakeSimple(OpPop), line)
	if err := c.compileStatements(s.ElseBody); err != nil {
		return err
	}

	end := len(c.chunk.Code)
	for _, j := range endJumps {
		c.chunk.Patch(j, uint16(end))
	}
	return nil
}

// compileGuardTest consumes the disposable subject copy OpDup left on top
// of the stack and leaves exactly one bool in its place.
//
// CaseGuardRange needs the subject twice (once against each end of the
// range) but there's no Swap opcode to retrieve a value buried under an
// intermediate comparison result, so it takes a second OpDup up front and
// leans on JumpIfFalse popping its own operand to get back to the
// surviving copy: Dup the subject again, test against Lo; if that fails,
// pop the now-exposed original copy and push FALSE directly; if it
// succeeds, JumpIfFalse has already consumed the failing bool and
// restored the original copy to the top, ready for the Hi test.
func (c *Compiler) compileGuardTest(g ast.CaseGuard, line int) error {
	switch g.Kind {
	case ast.CaseGuardValue:
		if err := c.compileExpression(g.Value); err != nil {
			return err
		}
		c.emit(MakeSimple(OpEqual), line)
		return nil

	case ast.CaseGuardRange:
		c.emit(MakeSimple(OpDup), line)
		if err := c.compileExpression(g.Value); err != nil {
			return err
		}
		c.emit(MakeSimple(OpGreaterEqual), line)
		failJump := c.emit(Make(OpJumpIfFalse, 0, 0), line)
		if err := c.compileExpression(g.RangeEnd); err != nil {
			return err
		}
		c.emit(MakeSimple(OpLessEqual), line)
		doneJump := c.emit(Make(OpJump, 0, 0), line)
		c.chunk.Patch(failJump, uint16(len(c.chunk.Code)))
		c.emit(MakeSimple(OpPop), line)
		c.emit(Make(OpLoadConst, 0, c.chunk.AddConstant(Int32Value(0))), line)
		c.chunk.Patch(doneJump, uint16(len(c.chunk.Code)))
		return nil

	case ast.CaseGuardRelational:
		if err := c.compileExpression(g.Value); err != nil {
			return err
		}
		c.emit(MakeSimple(relOpCode(g.RelOp)), line)
		return nil
	}
	return &CompileError{Message: "internal: unknown case guard kind"}
}

// compileFor never emits OpForPrep/OpForLoop: both hardcode the loop
// variable to a global slot via their A operand, which breaks the moment
// the loop variable is a local (a SUB/FUNCTION parameter, or itself
// DIM'd locally). Instead it lowers FOR entirely with ordinary stack
// arithmetic, stashing the end/step values in two synthetic global slots
// that never collide with a source-level name, and tests continuation
// with (step>=0 AND var<=end) OR (step<0 AND var>=end) — sound because
// classic BASIC's TRUE is all-bits-set, so OpAnd/OpOr's bitwise
// implementation already behaves like logical and/or on them.
func (c *Compiler) compileFor(s *ast.ForStatement) error {
	line := s.Pos().Line
	varType := c.typeOfIdentifier(s.Var)
	endSlot := c.newSyntheticGlobal("forend")
	stepSlot := c.newSyntheticGlobal("forstep")

	if err := c.compileStore(s.Var, func() (semantic.Type, error) {
		if err := c.compileExpression(s.Start); err != nil {
			return semantic.Type{}, err
		}
		return c.typeOf(s.Start), nil
	}, line); err != nil {
		return err
	}

	if err := c.compileExpression(s.End); err != nil {
		return err
	}
	c.emitWiden(c.typeOf(s.End), varType, line)
	c.emit(Make(OpStoreGlobal, 0, uint16(endSlot)), line)
	c.emit(MakeSimple(OpPop), line)

	if s.Step != nil {
		if err := c.compileExpression(s.Step); err != nil {
			return err
		}
		c.emitWiden(c.typeOf(s.Step), varType, line)
	} else {
		c.emit(Make(OpLoadConst, 0, c.chunk.AddConstant(oneValueOf(varType))), line)
	}
	c.emit(Make(OpStoreGlobal, 0, uint16(stepSlot)), line)
	c.emit(MakeSimple(OpPop), line)

	checkAddr := len(c.chunk.Code)

	if err := c.compileIdentifier(s.Var, line); err != nil {
		return err
	}
	c.emit(Make(OpLoadGlobal, 0, uint16(endSlot)), line)
	c.emit(MakeSimple(OpLessEqual), line)
	c.emit(Make(OpLoadGlobal, 0, uint16(stepSlot)), line)
	c.emit(Make(OpLoadConst, 0, c.chunk.AddConstant(Int32Value(0))), line)
	c.emit(MakeSimple(OpGreaterEqual), line)
	c.emit(MakeSimple(OpAnd), line)

	if err := c.compileIdentifier(s.Var, line); err != nil {
		return err
	}
	c.emit(Make(OpLoadGlobal, 0, uint16(endSlot)), line)
	c.emit(MakeSimple(OpGreaterEqual), line)
	c.emit(Make(OpLoadGlobal, 0, uint16(stepSlot)), line)
	c.emit(Make(OpLoadConst, 0, c.chunk.AddConstant(Int32Value(0))), line)
	c.emit(MakeSimple(OpLess), line)
	c.emit(MakeSimple(OpAnd), line)

	c.emit(MakeSimple(OpOr), line)
	exitJump := c.emit(Make(OpJumpIfFalse, 0, 0), line)

	ef := c.pushExit("FOR")
	if err := c.compileStatements(s.Body); err != nil {
		return err
	}
	c.popExit()

	if err := c.compileStore(s.Var, func() (semantic.Type, error) {
		if err := c.compileIdentifier(s.Var, line); err != nil {
			return semantic.Type{}, err
		}
		c.emit(Make(OpLoadGlobal, 0, uint16(stepSlot)), line)
		if isFloatKind(varType.Kind) {
			c.emit(MakeSimple(OpAddFloat), line)
		} else {
			c.emit(MakeSimple(OpAddInt), line)
		}
		return varType, nil
	}, line); err != nil {
		return err
	}

	c.emit(Make(OpJump, 0, uint16(checkAddr)), line)
	exitAddr := len(c.chunk.Code)
	c.chunk.Patch(exitJump, uint16(exitAddr))
	for _, j := range ef.jumps {
		c.chunk.Patch(j, uint16(exitAddr))
	}
	return nil
}

// compileWhile: classic WHILE/WEND has no EXIT of its own in this
// dialect's grammar (ExitKind only names FOR/DO/SUB/FUNCTION), so no exit
// frame is pushed around its body — an EXIT DO written inside a WHILE
// binds to an enclosing DO...LOOP, never to the WHILE.
func (c *Compiler) compileWhile(s *ast.WhileStatement) error {
	line := s.Pos().Line
	checkAddr := len(c.chunk.Code)
	if err := c.compileExpression(s.Cond); err != nil {
		return err
	}
	exitJump := c.emit(Make(OpJumpIfFalse, 0, 0), line)
	if err := c.compileStatements(s.Body); err != nil {
		return err
	}
	c.emit(Make(OpJump, 0, uint16(checkAddr)), line)
	c.chunk.Patch(exitJump, uint16(len(c.chunk.Code)))
	return nil
}

// compileDoLoop covers all four DO/LOOP forms via one shared shape: an
// optional pre-test guard, the body, and an optional post-test guard that
// jumps back to the top — DoLoopNone on both ends is an infinite loop,
// broken only by EXIT DO or GOTO.
func (c *Compiler) compileDoLoop(s *ast.DoLoopStatement) error {
	line := s.Pos().Line
	startAddr := len(c.chunk.Code)

	var preExit int
	hasPreExit := false
	if s.PreKind != ast.DoLoopNone {
		if err := c.compileExpression(s.PreCond); err != nil {
			return err
		}
		if s.PreKind == ast.DoLoopUntil {
			c.emit(MakeSimple(OpNot), line)
		}
		preExit = c.emit(Make(OpJumpIfFalse, 0, 0), line)
		hasPreExit = true
	}

	ef := c.pushExit("DO")
	if err := c.compileStatements(s.Body); err != nil {
		return err
	}
	c.popExit()

	if s.PostKind != ast.DoLoopNone {
		if err := c.compileExpression(s.PostCond); err != nil {
			return err
		}
		if s.PostKind == ast.DoLoopUntil {
			c.emit(MakeSimple(OpNot), line)
		}
		c.emit(Make(OpJumpIfTrue, 0, uint16(startAddr)), line)
	} else {
		c.emit(Make(OpJump, 0, uint16(startAddr)), line)
	}

	exitAddr := len(c.chunk.Code)
	if hasPreExit {
		c.chunk.Patch(preExit, uint16(exitAddr))
	}
	for _, j := range ef.jumps {
		c.chunk.Patch(j, uint16(exitAddr))
	}
	return nil
}

func exitKindName(k ast.ExitKind) string {
	switch k {
	case ast.ExitFor:
		return "FOR"
	case ast.ExitDo:
		return "DO"
	case ast.ExitSub:
		return "SUB"
	default:
		return "FUNCTION"
	}
}

func (c *Compiler) compileExit(s *ast.ExitStatement) error {
	kind := exitKindName(s.Kind)
	ef := c.findExit(kind)
	if ef == nil {
		return &CompileError{Message: fmt.Sprintf("internal: EXIT %s has no enclosing construct", kind)}
	}
	j := c.emit(Make(OpJump, 0, 0), s.Pos().Line)
	ef.jumps = append(ef.jumps, j)
	return nil
}

// compileProc compiles one SUB or FUNCTION body, called after the main
// program body so every label/GOTO target across the whole module has
// already been through collectLabelDataIndex/declareProcs.
func (c *Compiler) compileProc(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.SubDeclStatement:
		return c.compileProcBody(s.Name.Value, s.Params, s.Body, false)
	case *ast.FunctionDeclStatement:
		return c.compileProcBody(s.Name.Value, s.Params, s.Body, true)
	}
	return nil
}

// compileProcBody binds parameters to local slots 0..n-1 by construction
// (execCall copies its popped arguments straight into locals[0:argCount],
// with no BYREF/BYVAL distinction at runtime — every parameter is
// effectively passed by value), a FUNCTION's own name to the slot right
// after its parameters, and every non-SHARED local DIM to the slots after
// that.
func (c *Compiler) compileProcBody(name string, params []ast.Param, body []ast.Statement, isFunction bool) error {
	lname := strings.ToLower(name)
	idx, ok := c.procIdx[lname]
	if !ok {
		return &CompileError{Message: fmt.Sprintf("internal: %q was never declared", name)}
	}
	sym, _ := c.ctx.Global.Resolve(name)

	entry := len(c.chunk.Code)
	localSlots := make(map[string]int, len(params)+1)
	localTypes := make(map[string]semantic.Type, len(params)+1)
	byVal := make([]bool, len(params))
	paramSlots := make([]int, len(params))
	for i, p := range params {
		key := strings.ToLower(p.Name.Value)
		localSlots[key] = i
		if sym != nil && i < len(sym.Params) {
			localTypes[key] = sym.Params[i].Type
		}
		byVal[i] = p.ByVal
		paramSlots[i] = i
	}

	next := len(params)
	returnSlot := 0
	var extraSlots []int
	var extraTypes []semantic.Type
	if isFunction {
		returnSlot = next
		localSlots[lname] = returnSlot
		if sym != nil {
			localTypes[lname] = sym.Type
			extraTypes = append(extraTypes, sym.Type)
		} else {
			extraTypes = append(extraTypes, semantic.Type{})
		}
		extraSlots = append(extraSlots, returnSlot)
		next++
	}

	c.collectLocalDim(body, localSlots, localTypes, &next, &extraSlots, &extraTypes)

	c.proc = &procContext{localSlots: localSlots, localTypes: localTypes}

	for i, slot := range extraSlots {
		t := extraTypes[i]
		if t.IsArray {
			continue
		}
		if t.Kind == semantic.KindRecord {
			if ridx, ok := c.recordIdx[strings.ToLower(t.RecordName)]; ok {
				c.emit(Make(OpNewRecord, 0, uint16(ridx)), 0)
				c.emit(Make(OpStoreLocal, 0, uint16(slot)), 0)
				c.emit(MakeSimple(OpPop), 0)
			}
			continue
		}
		c.emit(Make(OpLoadConst, 0, c.chunk.AddConstant(zeroValue(valueTypeOf(t)))), 0)
		c.emit(Make(OpStoreLocal, 0, uint16(slot)), 0)
		c.emit(MakeSimple(OpPop), 0)
	}

	exitKind := "SUB"
	if isFunction {
		exitKind = "FUNCTION"
	}
	ef := c.pushExit(exitKind)
	if err := c.compileStatements(body); err != nil {
		return err
	}
	c.popExit()

	exitAddr := len(c.chunk.Code)
	for _, j := range ef.jumps {
		c.chunk.Patch(j, uint16(exitAddr))
	}
	c.emit(MakeSimple(OpReturn), 0)

	c.chunk.Procs[idx] = ProcSpec{
		Name:       name,
		Entry:      entry,
		ParamSlots: paramSlots,
		ByVal:      byVal,
		IsFunction: isFunction,
		ReturnSlot: returnSlot,
		LocalCount: next,
	}
	c.proc = nil
	return nil
}

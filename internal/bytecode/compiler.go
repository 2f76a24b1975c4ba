package bytecode

import (
	"fmt"
	"sort"
	"strings"

	"github.com/thirawat27/QB-COM/internal/ast"
	"github.com/thirawat27/QB-COM/internal/semantic"
)

// CompileError is a fatal problem found while lowering the AST — one that
// the semantic analyzer's passes couldn't have caught (an opcode gap, an
// internal invariant violation), not an ordinary diagnostic.
type CompileError struct {
	Message string
}

func (e *CompileError) Error() string { return e.Message }

// procContext is the compile-time view of the procedure currently being
// compiled: its parameters, (for a FUNCTION) its own name, and each
// non-SHARED DIM in its body, each bound to a local frame slot. Every
// other variable reference compiles to a
// global load/store — a deliberate simplification from true per-call
// lexical locals, documented in DESIGN.md.
type procContext struct {
	spec       *ProcSpec
	localSlots map[string]int // lower-cased name -> local slot
	localTypes map[string]semantic.Type
}

// Compiler lowers a resolved AST into a single flat Chunk: the main
// program body, immediately followed by every SUB/FUNCTION body back to
// back, with GOTO/GOSUB/RESTORE targets patched once every label's final
// address is known.
type Compiler struct {
	chunk *Chunk
	ctx   *semantic.PassContext

	globalSlots map[string]int
	recordIdx   map[string]int
	procIdx     map[string]int

	proc *procContext // nil while compiling the main program body

	labelAddr    map[string]int
	pendingJumps []pendingJump

	// labelDataIndex maps a label name to how many DATA items textually
	// precede it, flattened in program order, so RESTORE <label> can rewind
	// the read cursor without a runtime search.
	labelDataIndex map[string]int

	// exitStack holds one exitFrame per enclosing FOR/DO/SUB/FUNCTION, so
	// EXIT FOR/DO/SUB/FUNCTION can find the innermost construct of the
	// matching kind and record a jump to be patched at that construct's end.
	exitStack []*exitFrame
}

// exitFrame tracks the pending EXIT jumps for one enclosing loop or
// procedure body, to be patched once that construct's exit point is known.
type exitFrame struct {
	kind  string // "FOR", "DO", "SUB", "FUNCTION"
	jumps []int
}

func (c *Compiler) pushExit(kind string) *exitFrame {
	f := &exitFrame{kind: kind}
	c.exitStack = append(c.exitStack, f)
	return f
}

func (c *Compiler) popExit() {
	c.exitStack = c.exitStack[:len(c.exitStack)-1]
}

// findExit locates the innermost exitFrame matching kind, searching from
// the top of the stack down. SUB and FUNCTION both stop an EXIT SUB/EXIT
// FUNCTION search at the first procedure frame, but the ValidationPass has
// already proven the kind matches the enclosing procedure type, so a plain
// name match is enough here.
func (c *Compiler) findExit(kind string) *exitFrame {
	for i := len(c.exitStack) - 1; i >= 0; i-- {
		if c.exitStack[i].kind == kind {
			return c.exitStack[i]
		}
	}
	return nil
}

// newSyntheticGlobal reserves a fresh global slot for compiler-generated
// bookkeeping (FOR loop end/step temporaries) that has no source-level
// name. The slot still lives in vm.globals like any other global, just
// under a placeholder name that can never collide with a BASIC identifier.
func (c *Compiler) newSyntheticGlobal(label string) int {
	slot := len(c.chunk.GlobalNames)
	c.chunk.GlobalNames = append(c.chunk.GlobalNames, fmt.Sprintf("$%s%d", label, slot))
	return slot
}

type pendingJump struct {
	offset int
	label  string
}

// Compile lowers program into a Chunk, using ctx's resolved symbol table,
// record types, and label set from a prior successful Analyze call.
func Compile(program *ast.Program, ctx *semantic.PassContext) (*Chunk, error) {
	c := &Compiler{
		chunk:          NewChunk("main"),
		ctx:            ctx,
		globalSlots:    make(map[string]int),
		recordIdx:      make(map[string]int),
		procIdx:        make(map[string]int),
		labelAddr:      make(map[string]int),
		labelDataIndex: make(map[string]int),
	}
	c.assignGlobalSlots()
	c.buildRecordSpecs()
	c.declareProcs(program.Statements)
	c.collectLabelDataIndex(program.Statements, 0)
	c.emitGlobalInit()

	var procDecls []ast.Statement
	for _, stmt := range program.Statements {
		switch stmt.(type) {
		case *ast.SubDeclStatement, *ast.FunctionDeclStatement:
			procDecls = append(procDecls, stmt)
			continue
		}
		if err := c.compileStatement(stmt); err != nil {
			return nil, err
		}
	}
	c.emit(MakeSimple(OpEnd), 0)

	for _, stmt := range procDecls {
		if err := c.compileProc(stmt); err != nil {
			return nil, err
		}
	}

	if err := c.resolvePendingJumps(); err != nil {
		return nil, err
	}
	c.chunk.DataPool = buildDataPool(ctx.DataItems)
	return c.chunk, nil
}

func (c *Compiler) assignGlobalSlots() {
	for _, sym := range c.ctx.Global.Symbols() {
		if sym.Kind != semantic.SymVar {
			continue
		}
		slot := len(c.chunk.GlobalNames)
		c.globalSlots[strings.ToLower(sym.Name)] = slot
		c.chunk.GlobalNames = append(c.chunk.GlobalNames, sym.Name)
	}
}

func (c *Compiler) buildRecordSpecs() {
	names := make([]string, 0, len(c.ctx.RecordTypes))
	for k := range c.ctx.RecordTypes {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		sym := c.ctx.RecordTypes[k]
		spec := RecordSpec{Name: sym.Name}
		for _, f := range sym.Fields {
			spec.Fields = append(spec.Fields, FieldSpec{Name: f.Name, Type: valueTypeOf(f.Type)})
		}
		c.recordIdx[k] = len(c.chunk.Records)
		c.chunk.Records = append(c.chunk.Records, spec)
	}
}

func (c *Compiler) declareProcs(stmts []ast.Statement) {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.SubDeclStatement:
			c.procIdx[strings.ToLower(s.Name.Value)] = len(c.chunk.Procs)
			c.chunk.Procs = append(c.chunk.Procs, ProcSpec{Name: s.Name.Value})
		case *ast.FunctionDeclStatement:
			c.procIdx[strings.ToLower(s.Name.Value)] = len(c.chunk.Procs)
			c.chunk.Procs = append(c.chunk.Procs, ProcSpec{Name: s.Name.Value, IsFunction: true})
		}
	}
}

func valueTypeOf(t semantic.Type) ValueType {
	switch t.Kind {
	case semantic.KindInt16:
		return TypeInt16
	case semantic.KindInt32:
		return TypeInt32
	case semantic.KindInt64:
		return TypeInt64
	case semantic.KindUInt32:
		return TypeUInt32
	case semantic.KindSingle:
		return TypeSingle
	case semantic.KindDouble:
		return TypeDouble
	case semantic.KindFixedString:
		return TypeFixedString
	case semantic.KindString:
		return TypeString
	case semantic.KindRecord:
		return TypeRecord
	default:
		return TypeSingle
	}
}

func (c *Compiler) emit(inst Instruction, line int) int { return c.chunk.Emit(inst, line) }

func (c *Compiler) label(name string) {
	c.labelAddr[strings.ToLower(name)] = len(c.chunk.Code)
}

func (c *Compiler) jumpTo(op OpCode, label string, line int) {
	offset := c.emit(Make(op, 0, 0), line)
	c.pendingJumps = append(c.pendingJumps, pendingJump{offset: offset, label: strings.ToLower(label)})
}

func (c *Compiler) resolvePendingJumps() error {
	for _, pj := range c.pendingJumps {
		addr, ok := c.labelAddr[pj.label]
		if !ok {
			return &CompileError{Message: fmt.Sprintf("internal: unresolved label %q survived validation", pj.label)}
		}
		c.chunk.Patch(pj.offset, uint16(addr))
	}
	return nil
}

// collectLabelDataIndex walks the program in exactly the same order and
// shape as the semantic analyzer's label/DATA collection pass, recording at
// each label how many DATA items have been seen so far. RESTORE <label>
// needs this to rewind the read cursor to the right spot at compile time.
func (c *Compiler) collectLabelDataIndex(stmts []ast.Statement, count int) int {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.LabelStatement:
			c.labelDataIndex[strings.ToLower(s.Name)] = count
		case *ast.DataStatement:
			count += len(s.Items)
		case *ast.IfStatement:
			count = c.collectLabelDataIndex(s.Then, count)
			for _, ei := range s.ElseIfs {
				count = c.collectLabelDataIndex(ei.Body, count)
			}
			count = c.collectLabelDataIndex(s.Else, count)
		case *ast.SelectCaseStatement:
			for _, cc := range s.Cases {
				count = c.collectLabelDataIndex(cc.Body, count)
			}
			count = c.collectLabelDataIndex(s.ElseBody, count)
		case *ast.ForStatement:
			count = c.collectLabelDataIndex(s.Body, count)
		case *ast.WhileStatement:
			count = c.collectLabelDataIndex(s.Body, count)
		case *ast.DoLoopStatement:
			count = c.collectLabelDataIndex(s.Body, count)
		case *ast.SubDeclStatement:
			count = c.collectLabelDataIndex(s.Body, count)
		case *ast.FunctionDeclStatement:
			count = c.collectLabelDataIndex(s.Body, count)
		}
	}
	return count
}

// buildDataPool stores every DATA item as its raw text, uniformly. Which
// type a READ actually wants depends on the target variable, not on how the
// literal was written in the DATA statement, so coercion happens at READ
// time via VAL rather than here.
func buildDataPool(items []semantic.DataValue) []Value {
	pool := make([]Value, 0, len(items))
	for _, it := range items {
		pool = append(pool, StringValue(it.Raw))
	}
	return pool
}

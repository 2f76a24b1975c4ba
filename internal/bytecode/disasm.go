package bytecode

import (
	"fmt"
	"io"
	"strings"
)

// Disassembler renders a Chunk's bytecode as human-readable text, for the
// `qbc build --disasm` / `qbc disasm` developer commands.
type Disassembler struct {
	writer io.Writer
	chunk  *Chunk
}

func NewDisassembler(chunk *Chunk, writer io.Writer) *Disassembler {
	return &Disassembler{writer: writer, chunk: chunk}
}

// Disassemble prints a complete disassembly of the chunk: a header, the
// constant pool, and every instruction in program order.
func (d *Disassembler) Disassemble() {
	fmt.Fprintf(d.writer, "== %s ==\n", d.chunk.Name)
	fmt.Fprintf(d.writer, "Instructions: %d, Constants: %d, Procs: %d\n\n",
		len(d.chunk.Code), len(d.chunk.Constants), len(d.chunk.Procs))

	if len(d.chunk.Constants) > 0 {
		fmt.Fprintf(d.writer, "Constants Pool:\n")
		for i, c := range d.chunk.Constants {
			fmt.Fprintf(d.writer, "  [%04d] %s %s\n", i, c.Type, strings.TrimSpace(c.String()))
		}
		fmt.Fprintf(d.writer, "\n")
	}

	if len(d.chunk.Procs) > 0 {
		fmt.Fprintf(d.writer, "Procedures:\n")
		for i, p := range d.chunk.Procs {
			kind := "SUB"
			if p.IsFunction {
				kind = "FUNCTION"
			}
			fmt.Fprintf(d.writer, "  [%04d] %s %s @%04d (locals=%d)\n", i, kind, p.Name, p.Entry, p.LocalCount)
		}
		fmt.Fprintf(d.writer, "\n")
	}

	fmt.Fprintf(d.writer, "Bytecode:\n")
	for offset := 0; offset < len(d.chunk.Code); offset++ {
		d.DisassembleInstruction(offset)
	}
}

// DisassembleInstruction prints the single instruction at offset, prefixed
// by its offset and source line.
func (d *Disassembler) DisassembleInstruction(offset int) {
	if offset < 0 || offset >= len(d.chunk.Code) {
		fmt.Fprintf(d.writer, "invalid offset: %d\n", offset)
		return
	}
	inst := d.chunk.Code[offset]
	op := inst.Op()

	d.printInstructionHeader(offset)

	switch op {
	case OpLoadConst:
		d.constantInstruction(inst)
	case OpLoadGlobal, OpStoreGlobal:
		d.globalInstruction(inst)
	case OpLoadLocal, OpStoreLocal:
		d.byteInstruction(inst, "local")
	case OpJump, OpJumpIfFalse, OpJumpIfTrue:
		d.jumpInstruction(inst, offset)
	case OpGosub, OpGoto, OpReturnSubTo:
		d.absJumpInstruction(inst)
	case OpForPrep, OpForLoop:
		d.forInstruction(inst, offset)
	case OpCall:
		d.callInstruction(inst)
	case OpCallBuiltin:
		d.builtinInstruction(inst)
	case OpWiden:
		fmt.Fprintf(d.writer, "%-16s -> %s\n", inst.String(), ValueType(inst.A()))
	case OpNewArray:
		d.arraySpecInstruction(inst)
	case OpNewRecord:
		d.recordSpecInstruction(inst)
	case OpGetField, OpSetField:
		d.fieldInstruction(inst)
	case OpPrint:
		fmt.Fprintf(d.writer, "%-16s items=%d hasChannel=%d\n", inst.String(), inst.A(), inst.B())
	case OpInputLine:
		fmt.Fprintf(d.writer, "%-16s hasChannel=%d\n", inst.String(), inst.A())
	case OpRestore:
		fmt.Fprintf(d.writer, "%-16s dataIndex=%d\n", inst.String(), inst.B())
	case OpRandomize:
		fmt.Fprintf(d.writer, "%-16s fromClock=%d\n", inst.String(), inst.B())
	case OpOpenFile:
		d.modeInstruction(inst)
	case OpCloseFile:
		fmt.Fprintf(d.writer, "%-16s all=%d\n", inst.String(), inst.A())
	default:
		d.simpleInstruction(inst)
	}
}

func (d *Disassembler) printInstructionHeader(offset int) {
	line := d.chunk.LineForOffset(offset)
	if offset > 0 && line == d.chunk.LineForOffset(offset-1) {
		fmt.Fprintf(d.writer, "%04d    | ", offset)
	} else {
		fmt.Fprintf(d.writer, "%04d %4d ", offset, line)
	}
}

func (d *Disassembler) simpleInstruction(inst Instruction) {
	fmt.Fprintf(d.writer, "%s\n", inst.String())
}

func (d *Disassembler) constantInstruction(inst Instruction) {
	idx := int(inst.B())
	var rendered string
	if idx >= 0 && idx < len(d.chunk.Constants) {
		c := d.chunk.Constants[idx]
		rendered = strings.TrimSpace(c.String())
	} else {
		rendered = "<out of range>"
	}
	fmt.Fprintf(d.writer, "%-16s %4d '%s'\n", inst.String(), idx, rendered)
}

func (d *Disassembler) globalInstruction(inst Instruction) {
	idx := int(inst.B())
	name := "?"
	if idx >= 0 && idx < len(d.chunk.GlobalNames) {
		name = d.chunk.GlobalNames[idx]
	}
	fmt.Fprintf(d.writer, "%-16s %4d ; %s\n", inst.String(), idx, name)
}

func (d *Disassembler) byteInstruction(inst Instruction, operandName string) {
	fmt.Fprintf(d.writer, "%-16s %4d ; %s\n", inst.String(), inst.B(), operandName)
}

func (d *Disassembler) jumpInstruction(inst Instruction, offset int) {
	target := int(inst.B())
	fmt.Fprintf(d.writer, "%-16s -> %04d\n", inst.String(), target)
	_ = offset
}

func (d *Disassembler) absJumpInstruction(inst Instruction) {
	fmt.Fprintf(d.writer, "%-16s -> %04d\n", inst.String(), inst.B())
}

func (d *Disassembler) forInstruction(inst Instruction, offset int) {
	target := offset + 1 - int(inst.SignedB())
	fmt.Fprintf(d.writer, "%-16s var=%d -> %04d\n", inst.String(), inst.A(), target)
}

func (d *Disassembler) callInstruction(inst Instruction) {
	argCount := inst.A()
	procIdx := int(inst.B())
	name := "?"
	if procIdx >= 0 && procIdx < len(d.chunk.Procs) {
		name = d.chunk.Procs[procIdx].Name
	}
	fmt.Fprintf(d.writer, "%-16s args=%d proc=%d ; %s\n", inst.String(), argCount, procIdx, name)
}

func (d *Disassembler) builtinInstruction(inst Instruction) {
	argCount := inst.A()
	idx := int(inst.B())
	name := "?"
	if idx >= 0 && idx < len(BuiltinNames) {
		name = BuiltinNames[idx]
	}
	fmt.Fprintf(d.writer, "%-16s args=%d builtin=%d ; %s\n", inst.String(), argCount, idx, name)
}

func (d *Disassembler) arraySpecInstruction(inst Instruction) {
	idx := int(inst.B())
	if idx >= 0 && idx < len(d.chunk.Arrays) {
		spec := d.chunk.Arrays[idx]
		fmt.Fprintf(d.writer, "%-16s %4d ; elem=%s dims=%d\n", inst.String(), idx, spec.ElemType, spec.Dims)
		return
	}
	fmt.Fprintf(d.writer, "%-16s %4d\n", inst.String(), idx)
}

func (d *Disassembler) recordSpecInstruction(inst Instruction) {
	idx := int(inst.B())
	name := "?"
	if idx >= 0 && idx < len(d.chunk.Records) {
		name = d.chunk.Records[idx].Name
	}
	fmt.Fprintf(d.writer, "%-16s %4d ; %s\n", inst.String(), idx, name)
}

func (d *Disassembler) fieldInstruction(inst Instruction) {
	idx := int(inst.B())
	var rendered string
	if idx >= 0 && idx < len(d.chunk.Constants) {
		rendered = d.chunk.Constants[idx].Str
	}
	fmt.Fprintf(d.writer, "%-16s %4d ; %s\n", inst.String(), idx, rendered)
}

func (d *Disassembler) modeInstruction(inst Instruction) {
	idx := int(inst.B())
	var mode string
	if idx >= 0 && idx < len(d.chunk.Constants) {
		mode = d.chunk.Constants[idx].Str
	}
	fmt.Fprintf(d.writer, "%-16s mode=%d ; %s\n", inst.String(), idx, mode)
}

// DisassembleRange disassembles only [start, end), e.g. to show a few
// instructions around a crash site.
func (d *Disassembler) DisassembleRange(start, end int) {
	if start < 0 {
		start = 0
	}
	if end > len(d.chunk.Code) {
		end = len(d.chunk.Code)
	}
	fmt.Fprintf(d.writer, "== %s (instructions %d-%d) ==\n\n", d.chunk.Name, start, end-1)
	for offset := start; offset < end; offset++ {
		d.DisassembleInstruction(offset)
	}
}

// DisassembleToString is a convenience wrapper for callers that just want
// the whole chunk rendered to a string (tests, the CLI's --disasm flag).
func DisassembleToString(chunk *Chunk) string {
	var sb strings.Builder
	NewDisassembler(chunk, &sb).Disassemble()
	return sb.String()
}

// DisassembleInstructionToString renders a single instruction to a string.
func DisassembleInstructionToString(chunk *Chunk, offset int) string {
	var sb strings.Builder
	NewDisassembler(chunk, &sb).DisassembleInstruction(offset)
	return sb.String()
}

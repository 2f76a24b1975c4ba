package bytecode

import (
	"fmt"
	"math"
	"time"
)

func (vm *VM) execIntBinary(op OpCode, ip, line int) (int, *RuntimeError) {
	b, a := vm.pop(), vm.pop()
	kind := a.Type
	if b.Type > kind {
		kind = b.Type
	}
	switch op {
	case OpAddInt:
		vm.push(widenInt(kind, a.Int+b.Int))
	case OpSubInt:
		vm.push(widenInt(kind, a.Int-b.Int))
	case OpMulInt:
		vm.push(widenInt(kind, a.Int*b.Int))
	case OpDivInt:
		if b.Int == 0 {
			return ip, vm.fail(ErrDivisionByZero, "division by zero", line)
		}
		vm.push(widenInt(kind, a.Int/b.Int))
	case OpModInt:
		if b.Int == 0 {
			return ip, vm.fail(ErrDivisionByZero, "division by zero in MOD", line)
		}
		vm.push(widenInt(kind, a.Int%b.Int))
	case OpPowInt:
		vm.push(widenInt(kind, int64(math.Pow(float64(a.Int), float64(b.Int)))))
	}
	return ip + 1, nil
}

func widenInt(kind ValueType, v int64) Value {
	return Value{Type: kind, Int: v}
}

func (vm *VM) execFloatBinary(op OpCode, ip, line int) (int, *RuntimeError) {
	b, a := vm.pop(), vm.pop()
	kind := a.Type
	if b.Type > kind {
		kind = b.Type
	}
	af, bf := a.AsFloat64(), b.AsFloat64()
	switch op {
	case OpAddFloat:
		vm.push(Value{Type: kind, Flt: af + bf})
	case OpSubFloat:
		vm.push(Value{Type: kind, Flt: af - bf})
	case OpMulFloat:
		vm.push(Value{Type: kind, Flt: af * bf})
	case OpDivFloat:
		if bf == 0 {
			return ip, vm.fail(ErrDivisionByZero, "division by zero", line)
		}
		vm.push(Value{Type: kind, Flt: af / bf})
	case OpPowFloat:
		vm.push(Value{Type: kind, Flt: math.Pow(af, bf)})
	}
	return ip + 1, nil
}

func (vm *VM) execCompare(op OpCode, ip int) (int, *RuntimeError) {
	b, a := vm.pop(), vm.pop()
	var result bool
	if a.Type == TypeString || a.Type == TypeFixedString {
		switch op {
		case OpEqual:
			result = a.Str == b.Str
		case OpNotEqual:
			result = a.Str != b.Str
		case OpLess:
			result = a.Str < b.Str
		case OpLessEqual:
			result = a.Str <= b.Str
		case OpGreater:
			result = a.Str > b.Str
		case OpGreaterEqual:
			result = a.Str >= b.Str
		}
	} else {
		af, bf := a.AsFloat64(), b.AsFloat64()
		switch op {
		case OpEqual:
			result = af == bf
		case OpNotEqual:
			result = af != bf
		case OpLess:
			result = af < bf
		case OpLessEqual:
			result = af <= bf
		case OpGreater:
			result = af > bf
		case OpGreaterEqual:
			result = af >= bf
		}
	}
	vm.push(boolInt(result))
	return ip + 1, nil
}

// execWiden coerces the top-of-stack value to the ValueType the compiler
// recorded in the instruction's A operand, for an assignment or argument
// pass whose static type differs from the expression's natural type.
// Despite the name this also narrows (INTEGER <- LONG, INTEGER <- DOUBLE,
// ...): narrowing a fractional value rounds to the nearest even integer,
// distinct from FIX's truncation toward zero, and narrowing a value that
// doesn't fit the target width fails with Overflow rather than wrapping.
func (vm *VM) execWiden(inst Instruction, ip, line int) (int, *RuntimeError) {
	target := ValueType(inst.A())
	v := vm.pop()
	switch target {
	case TypeSingle, TypeDouble:
		vm.push(Value{Type: target, Flt: v.AsFloat64()})
	case TypeString, TypeFixedString:
		vm.push(Value{Type: target, Str: v.Str})
	default:
		// v may be float-tagged (e.g. READ/INPUT coercing through VAL, which
		// always yields a DOUBLE) widening down into an integer slot, so go
		// through AsFloat64 rather than assuming v.Int already holds the value.
		n := math.RoundToEven(v.AsFloat64())
		i, ok := narrowToIntWidth(target, n)
		if !ok {
			return ip, vm.fail(ErrOverflow, fmt.Sprintf("%v does not fit in %s", n, target), line)
		}
		vm.push(Value{Type: target, Int: i})
	}
	return ip + 1, nil
}

// narrowToIntWidth reports whether n (already rounded to an integer)
// fits target's signed range, returning the truncated int64 when it does.
func narrowToIntWidth(target ValueType, n float64) (int64, bool) {
	switch target {
	case TypeInt16:
		if n < math.MinInt16 || n > math.MaxInt16 {
			return 0, false
		}
	case TypeInt32:
		if n < math.MinInt32 || n > math.MaxInt32 {
			return 0, false
		}
	case TypeUInt32:
		if n < 0 || n > math.MaxUint32 {
			return 0, false
		}
	case TypeInt64:
		if n < math.MinInt64 || n > math.MaxInt64 {
			return 0, false
		}
	}
	return int64(n), true
}

// execForPrep primes a FOR loop: pops step, end, start (pushed in that
// order by the compiler), stores start into the loop variable's global
// slot, and jumps past the body if the loop would not execute even once.
func (vm *VM) execForPrep(inst Instruction, ip int) (int, *RuntimeError) {
	step := vm.pop()
	end := vm.pop()
	start := vm.pop()
	slot := inst.A()
	vm.globals[slot] = start
	vm.push(end)
	vm.push(step)
	if (step.AsFloat64() >= 0 && start.AsFloat64() > end.AsFloat64()) ||
		(step.AsFloat64() < 0 && start.AsFloat64() < end.AsFloat64()) {
		vm.pop()
		vm.pop()
		return int(inst.B()), nil
	}
	return ip + 1, nil
}

// execForLoop advances the loop variable by step and jumps back to the
// body's start if the loop should continue; otherwise falls through,
// discarding the saved end/step pair.
func (vm *VM) execForLoop(inst Instruction, ip int) (int, *RuntimeError) {
	slot := inst.A()
	step := vm.peek()
	end := vm.stack[len(vm.stack)-2]
	cur := vm.globals[slot]
	next := Value{Type: cur.Type, Int: cur.Int + step.Int, Flt: cur.Flt + step.Flt}
	vm.globals[slot] = next
	if (step.AsFloat64() >= 0 && next.AsFloat64() > end.AsFloat64()) ||
		(step.AsFloat64() < 0 && next.AsFloat64() < end.AsFloat64()) {
		vm.pop()
		vm.pop()
		return ip + 1, nil
	}
	return int(inst.B()), nil
}

// execCall invokes a SUB/FUNCTION: pops argCount values (already in
// left-to-right order thanks to the compiler's emission order), binds
// them into a fresh local frame, and jumps to the procedure's entry.
func (vm *VM) execCall(inst Instruction, ip int) (int, *RuntimeError) {
	argCount := int(inst.A())
	proc := vm.chunk.Procs[inst.B()]
	args := make([]Value, argCount)
	for i := argCount - 1; i >= 0; i-- {
		args[i] = vm.pop()
	}
	locals := make([]Value, proc.LocalCount)
	copy(locals, args)
	vm.frames = append(vm.frames, callFrame{proc: &vm.chunk.Procs[inst.B()], returnIP: ip + 1, locals: locals})
	return proc.Entry, nil
}

func (vm *VM) execReturn(ip int) (int, *RuntimeError) {
	frame := vm.frames[len(vm.frames)-1]
	vm.frames = vm.frames[:len(vm.frames)-1]
	if frame.proc.IsFunction {
		vm.push(frame.locals[frame.proc.ReturnSlot])
	}
	return frame.returnIP, nil
}

func (vm *VM) execNewArray(inst Instruction, ip, line int) (int, *RuntimeError) {
	spec := vm.chunk.Arrays[inst.B()]
	bounds := make([][2]int, spec.Dims)
	for i := spec.Dims - 1; i >= 0; i-- {
		upper := vm.pop()
		lower := vm.pop()
		bounds[i] = [2]int{int(lower.Int), int(upper.Int)}
	}
	if spec.Dims != 1 {
		return ip, vm.fail(ErrInternal, "multi-dimensional arrays are not supported", line)
	}
	vm.push(ArrayValue(NewArrayInstance(spec.ElemType, bounds[0][0], bounds[0][1])))
	return ip + 1, nil
}

func (vm *VM) execArrayGet(ip, line int) (int, *RuntimeError) {
	idx := vm.pop()
	arr := vm.pop()
	if arr.Arr == nil {
		return ip, vm.fail(ErrTypeMismatch, "array reference is empty", line)
	}
	i := int(idx.Int) - arr.Arr.Lower
	if i < 0 || i >= len(arr.Arr.Elems) {
		return ip, vm.fail(ErrIndexOutOfBounds, fmt.Sprintf("index %d out of bounds", idx.Int), line)
	}
	vm.push(arr.Arr.Elems[i])
	return ip + 1, nil
}

func (vm *VM) execArraySet(ip, line int) (int, *RuntimeError) {
	val := vm.pop()
	idx := vm.pop()
	arr := vm.pop()
	if arr.Arr == nil {
		return ip, vm.fail(ErrTypeMismatch, "array reference is empty", line)
	}
	i := int(idx.Int) - arr.Arr.Lower
	if i < 0 || i >= len(arr.Arr.Elems) {
		return ip, vm.fail(ErrIndexOutOfBounds, fmt.Sprintf("index %d out of bounds", idx.Int), line)
	}
	arr.Arr.Elems[i] = val
	return ip + 1, nil
}

// execPrint pops itemCount (value, separator) pairs pushed by the compiler in source
// order (so it pops them in reverse and must un-reverse before writing),
// applies the PRINT column-zone rule for comma separators, and writes
// through the host.
func (vm *VM) execPrint(inst Instruction, ip, line int) (int, *RuntimeError) {
	itemCount := int(inst.A())
	hasChannel := inst.B() == 1
	type printItem struct {
		val Value
		sep byte // 0 = none, ';' = semicolon, ',' = comma
	}
	items := make([]printItem, itemCount)
	for i := itemCount - 1; i >= 0; i-- {
		sepVal := vm.pop()
		val := vm.pop()
		items[i] = printItem{val: val, sep: byte(sepVal.Int)}
	}
	var channel int
	if hasChannel {
		channel = int(vm.pop().Int)
	}
	var out string
	col := 0
	for _, it := range items {
		s := it.val.String()
		out += s
		col += len(s)
		switch it.sep {
		case ';':
			// no movement
		case ',':
			pad := 14 - (col % 14)
			out += spaces(pad)
			col += pad
		}
	}
	trailingSep := byte(0)
	if itemCount > 0 {
		trailingSep = items[len(items)-1].sep
	}
	if trailingSep == 0 {
		out += "\n"
	}
	if hasChannel {
		// WriteChannel writes one whole line, terminator included.
		if n := len(out); n > 0 && out[n-1] == '\n' {
			out = out[:n-1]
		}
		if err := vm.host.WriteChannel(channel, out); err != nil {
			return ip, vm.fail(ErrChannelNotOpen, err.Error(), line)
		}
	} else {
		vm.host.Print(out)
	}
	return ip + 1, nil
}

func spaces(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

func (vm *VM) execInputLine(inst Instruction, ip, line int) (int, *RuntimeError) {
	hasChannel := inst.A() == 1
	var (
		s   string
		err error
	)
	if hasChannel {
		channel := int(vm.pop().Int)
		s, err = vm.host.ReadChannelLine(channel)
	} else {
		s, err = vm.host.ReadLine()
	}
	if err != nil {
		return ip, vm.fail(ErrChannelNotOpen, err.Error(), line)
	}
	vm.push(StringValue(s))
	return ip + 1, nil
}

// execRead pushes the next DATA literal as its raw string, uncoerced; for a
// numeric target the compiler follows OpRead with VAL and OpWiden, the way
// a READ into a numeric variable parses a "123" DATA item as a number.
func (vm *VM) execRead(ip, line int) (int, *RuntimeError) {
	if vm.dataCursor >= len(vm.chunk.DataPool) {
		return ip, vm.fail(ErrOutOfData, "READ past the end of DATA", line)
	}
	vm.push(vm.chunk.DataPool[vm.dataCursor])
	vm.dataCursor++
	return ip + 1, nil
}

func (vm *VM) execRandomize(inst Instruction, ip int) (int, *RuntimeError) {
	if inst.B() == 1 {
		vm.rng = newSeededRand(time.Now().UnixNano())
	} else {
		seed := vm.pop()
		vm.rng = newSeededRand(int64(seed.Int))
	}
	return ip + 1, nil
}

func (vm *VM) execOpenFile(inst Instruction, ip, line int) (int, *RuntimeError) {
	channel := vm.pop()
	path := vm.pop()
	mode := vm.chunk.Constants[inst.B()].Str
	if err := vm.host.OpenChannel(int(channel.Int), path.Str, mode); err != nil {
		return ip, vm.fail(ErrFileNotFound, err.Error(), line)
	}
	return ip + 1, nil
}

func (vm *VM) execCloseFile(inst Instruction, ip, line int) (int, *RuntimeError) {
	if inst.A() == 1 {
		vm.host.CloseAllChannels()
		return ip + 1, nil
	}
	channel := vm.pop()
	if err := vm.host.CloseChannel(int(channel.Int)); err != nil {
		return ip, vm.fail(ErrChannelNotOpen, err.Error(), line)
	}
	return ip + 1, nil
}

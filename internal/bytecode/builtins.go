package bytecode

import (
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Builtin is a built-in function's implementation: given the VM (for RND/
// TIMER's stateful behavior) and its arguments in left-to-right order, it
// returns the single result value BASIC built-ins always produce.
type Builtin func(vm *VM, args []Value) (Value, *RuntimeError)

// BuiltinNames is the fixed, index-stable table OpCallBuiltin's B operand
// indexes into; the compiler resolves a call's builtin name to its index
// here at compile time.
var BuiltinNames = []string{
	"ABS", "SGN", "SQR", "INT", "FIX", "SIN", "COS", "TAN", "ATN", "EXP", "LOG",
	"RND", "TIMER",
	"LEN", "LEFT$", "RIGHT$", "MID$", "INSTR", "STR$", "VAL", "CHR$", "ASC",
	"UCASE$", "LCASE$", "LTRIM$", "RTRIM$", "SPACE$", "STRING$",
	"STRCOMP",
}

var builtinIndex = func() map[string]int {
	m := make(map[string]int, len(BuiltinNames))
	for i, n := range BuiltinNames {
		m[n] = i
	}
	return m
}()

// BuiltinIndex returns the OpCallBuiltin B operand for name, or false if
// name isn't a recognized built-in.
func BuiltinIndex(name string) (int, bool) {
	i, ok := builtinIndex[strings.ToUpper(name)]
	return i, ok
}

var builtinImpls = []Builtin{
	biAbs, biSgn, biSqr, biInt, biFix, biSin, biCos, biTan, biAtn, biExp, biLog,
	biRnd, biTimer,
	biLen, biLeft, biRight, biMid, biInstr, biStrDollar, biVal, biChr, biAsc,
	biUCase, biLCase, biLTrim, biRTrim, biSpace, biStringDollar,
	biStrComp,
}

var (
	upperFolder = cases.Upper(language.Und)
	lowerFolder = cases.Lower(language.Und)
)

func (vm *VM) execCallBuiltin(inst Instruction, ip, line int) (int, *RuntimeError) {
	argCount := int(inst.A())
	idx := int(inst.B())
	args := make([]Value, argCount)
	for i := argCount - 1; i >= 0; i-- {
		args[i] = vm.pop()
	}
	if idx < 0 || idx >= len(builtinImpls) {
		return ip, vm.fail(ErrInternal, "unknown builtin index", line)
	}
	result, rerr := builtinImpls[idx](vm, args)
	if rerr != nil {
		rerr.Line = line
		return ip, rerr
	}
	vm.push(result)
	return ip + 1, nil
}

func biAbs(vm *VM, a []Value) (Value, *RuntimeError) {
	v := a[0]
	if v.IsFloat() {
		return Value{Type: v.Type, Flt: math.Abs(v.Flt)}, nil
	}
	n := v.Int
	if n < 0 {
		n = -n
	}
	return Value{Type: v.Type, Int: n}, nil
}

func biSgn(_ *VM, a []Value) (Value, *RuntimeError) {
	f := a[0].AsFloat64()
	switch {
	case f > 0:
		return Int16Value(1), nil
	case f < 0:
		return Int16Value(-1), nil
	default:
		return Int16Value(0), nil
	}
}

func biSqr(_ *VM, a []Value) (Value, *RuntimeError) {
	f := a[0].AsFloat64()
	if f < 0 {
		return Value{}, &RuntimeError{Code: ErrOverflow, Message: "SQR of a negative number"}
	}
	return DoubleValue(math.Sqrt(f)), nil
}

func biInt(_ *VM, a []Value) (Value, *RuntimeError) { return Int32Value(int64(math.Floor(a[0].AsFloat64()))), nil }
func biFix(_ *VM, a []Value) (Value, *RuntimeError) { return Int32Value(int64(a[0].AsFloat64())), nil }
func biSin(_ *VM, a []Value) (Value, *RuntimeError) { return DoubleValue(math.Sin(a[0].AsFloat64())), nil }
func biCos(_ *VM, a []Value) (Value, *RuntimeError) { return DoubleValue(math.Cos(a[0].AsFloat64())), nil }
func biTan(_ *VM, a []Value) (Value, *RuntimeError) { return DoubleValue(math.Tan(a[0].AsFloat64())), nil }
func biAtn(_ *VM, a []Value) (Value, *RuntimeError) { return DoubleValue(math.Atan(a[0].AsFloat64())), nil }
func biExp(_ *VM, a []Value) (Value, *RuntimeError) { return DoubleValue(math.Exp(a[0].AsFloat64())), nil }

func biLog(_ *VM, a []Value) (Value, *RuntimeError) {
	f := a[0].AsFloat64()
	if f <= 0 {
		return Value{}, &RuntimeError{Code: ErrOverflow, Message: "LOG of a non-positive number"}
	}
	return DoubleValue(math.Log(f)), nil
}

// biRnd implements RND(n): n<0 reseeds deterministically from n, n=0
// repeats the last value, n>0 (or no argument, which biRnd treats as 1)
// draws the next uniform value in [0,1).
func biRnd(vm *VM, a []Value) (Value, *RuntimeError) {
	n := 1.0
	if len(a) > 0 {
		n = a[0].AsFloat64()
	}
	switch {
	case n < 0:
		vm.rng = newSeededRand(int64(n))
		vm.lastRand = vm.rng.Float64()
	case n == 0:
		// repeats lastRand
	default:
		vm.lastRand = vm.rng.Float64()
	}
	return SingleValue(vm.lastRand), nil
}

func biTimer(vm *VM, _ []Value) (Value, *RuntimeError) {
	now := vm.host.Now()
	midnight := now.Truncate(24 * 60 * 60 * 1e9)
	return SingleValue(now.Sub(midnight).Seconds()), nil
}

func biLen(_ *VM, a []Value) (Value, *RuntimeError) { return Int32Value(int64(len(a[0].Str))), nil }

func biLeft(_ *VM, a []Value) (Value, *RuntimeError) {
	s, n := a[0].Str, int(a[1].Int)
	if n < 0 {
		n = 0
	}
	if n > len(s) {
		n = len(s)
	}
	return StringValue(s[:n]), nil
}

func biRight(_ *VM, a []Value) (Value, *RuntimeError) {
	s, n := a[0].Str, int(a[1].Int)
	if n < 0 {
		n = 0
	}
	if n > len(s) {
		n = len(s)
	}
	return StringValue(s[len(s)-n:]), nil
}

func biMid(_ *VM, a []Value) (Value, *RuntimeError) {
	s := a[0].Str
	start := int(a[1].Int) - 1
	if start < 0 {
		start = 0
	}
	if start > len(s) {
		start = len(s)
	}
	length := len(s) - start
	if len(a) > 2 {
		length = int(a[2].Int)
	}
	if length < 0 {
		length = 0
	}
	if start+length > len(s) {
		length = len(s) - start
	}
	return StringValue(s[start : start+length]), nil
}

func biInstr(_ *VM, a []Value) (Value, *RuntimeError) {
	start := 0
	hay, needle := a[0].Str, a[1].Str
	if len(a) == 3 {
		start = int(a[0].Int) - 1
		hay, needle = a[1].Str, a[2].Str
	}
	if start < 0 {
		start = 0
	}
	if start > len(hay) {
		return Int32Value(0), nil
	}
	idx := strings.Index(hay[start:], needle)
	if idx < 0 {
		return Int32Value(0), nil
	}
	return Int32Value(int64(start + idx + 1)), nil
}

func biStrDollar(_ *VM, a []Value) (Value, *RuntimeError) { return StringValue(strings.TrimSpace(a[0].String())), nil }
func biVal(_ *VM, a []Value) (Value, *RuntimeError)       { return DoubleValue(parseFloatLoose(a[0].Str)), nil }
func biChr(_ *VM, a []Value) (Value, *RuntimeError)       { return StringValue(string(rune(a[0].Int))), nil }
func biAsc(_ *VM, a []Value) (Value, *RuntimeError) {
	if a[0].Str == "" {
		return Value{}, &RuntimeError{Code: ErrTypeMismatch, Message: "ASC of an empty string"}
	}
	return Int32Value(int64(a[0].Str[0])), nil
}
func biUCase(_ *VM, a []Value) (Value, *RuntimeError) { return StringValue(upperFolder.String(a[0].Str)), nil }
func biLCase(_ *VM, a []Value) (Value, *RuntimeError) { return StringValue(lowerFolder.String(a[0].Str)), nil }
func biLTrim(_ *VM, a []Value) (Value, *RuntimeError) { return StringValue(strings.TrimLeft(a[0].Str, " ")), nil }
func biRTrim(_ *VM, a []Value) (Value, *RuntimeError) { return StringValue(strings.TrimRight(a[0].Str, " ")), nil }

func biSpace(_ *VM, a []Value) (Value, *RuntimeError) {
	return StringValue(strings.Repeat(" ", int(a[0].Int))), nil
}

func biStringDollar(_ *VM, a []Value) (Value, *RuntimeError) {
	n := int(a[0].Int)
	var ch byte
	if a[1].Type == TypeString || a[1].Type == TypeFixedString {
		if a[1].Str != "" {
			ch = a[1].Str[0]
		}
	} else {
		ch = byte(a[1].Int)
	}
	return StringValue(strings.Repeat(string(ch), n)), nil
}

// biStrComp implements STRCOMP(s1$, s2$ [, compare%]): compare=0 (the
// default, vbBinaryCompare) orders by Unicode collation weight, compare=1
// (vbTextCompare) folds case first. Either way the ordering comes from
// x/text/collate rather than a byte-wise strings.Compare, so multi-byte
// UTF-8 text collates the way a locale-aware BASIC STRCOMP would.
func biStrComp(_ *VM, a []Value) (Value, *RuntimeError) {
	s1, s2 := a[0].Str, a[1].Str
	textCompare := len(a) > 2 && a[2].Int != 0
	var col *collate.Collator
	if textCompare {
		col = collate.New(language.Und, collate.IgnoreCase)
	} else {
		col = collate.New(language.Und)
	}
	return Int16Value(int64(col.CompareString(s1, s2))), nil
}

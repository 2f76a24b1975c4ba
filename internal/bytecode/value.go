// Package bytecode implements a stack-based bytecode virtual machine for
// the compiled BASIC program: instruction encoding, the compiler that
// lowers the AST into a Chunk, the VM that executes a Chunk, and the
// binary image serializer/disassembler.
package bytecode

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueType is the runtime tag of a Value.
type ValueType byte

const (
	TypeEmpty ValueType = iota
	TypeInt16
	TypeInt32
	TypeInt64
	TypeUInt32
	TypeSingle
	TypeDouble
	TypeString
	TypeFixedString
	TypeArray
	TypeRecord
)

func (t ValueType) String() string {
	switch t {
	case TypeInt16:
		return "INTEGER"
	case TypeInt32:
		return "LONG"
	case TypeInt64:
		return "_INTEGER64"
	case TypeUInt32:
		return "_UNSIGNED LONG"
	case TypeSingle:
		return "SINGLE"
	case TypeDouble:
		return "DOUBLE"
	case TypeString, TypeFixedString:
		return "STRING"
	case TypeArray:
		return "array"
	case TypeRecord:
		return "record"
	default:
		return "EMPTY"
	}
}

// Value is the tagged-union runtime representation every VM stack slot,
// global, local, and array element carries. Integer kinds are held in Int
// and floating kinds in Flt — integers stay exact in an int64 so
// bitwise/integer-division ops never round-trip through floats.
type Value struct {
	Type ValueType
	Int  int64
	Flt  float64
	Str  string
	Arr  *ArrayInstance
	Rec  *RecordInstance
}

func EmptyValue() Value                 { return Value{Type: TypeEmpty} }
func Int16Value(i int64) Value          { return Value{Type: TypeInt16, Int: int64(int16(i))} }
func Int32Value(i int64) Value          { return Value{Type: TypeInt32, Int: int64(int32(i))} }
func Int64Value(i int64) Value          { return Value{Type: TypeInt64, Int: i} }
func UInt32Value(i int64) Value         { return Value{Type: TypeUInt32, Int: int64(uint32(i))} }
func SingleValue(f float64) Value       { return Value{Type: TypeSingle, Flt: f} }
func DoubleValue(f float64) Value       { return Value{Type: TypeDouble, Flt: f} }
func StringValue(s string) Value        { return Value{Type: TypeString, Str: s} }
func FixedStringValue(s string) Value   { return Value{Type: TypeFixedString, Str: s} }
func ArrayValue(a *ArrayInstance) Value { return Value{Type: TypeArray, Arr: a} }
func RecordValue(r *RecordInstance) Value { return Value{Type: TypeRecord, Rec: r} }

// ArrayInstance is a dense, zero-based-storage BASIC array. Lower/Upper
// record the DIM'd bounds (which may not start at zero, per OPTION BASE
// or an explicit "DIM A(5 TO 10)") so index validation and FOR EACH-style
// iteration can report the user-visible bounds.
type ArrayInstance struct {
	ElemType ValueType
	Lower    int
	Upper    int
	Elems    []Value
}

func NewArrayInstance(elemType ValueType, lower, upper int) *ArrayInstance {
	n := upper - lower + 1
	if n < 0 {
		n = 0
	}
	elems := make([]Value, n)
	for i := range elems {
		elems[i] = zeroValue(elemType)
	}
	return &ArrayInstance{ElemType: elemType, Lower: lower, Upper: upper, Elems: elems}
}

func zeroValue(t ValueType) Value {
	switch t {
	case TypeString, TypeFixedString:
		return StringValue("")
	case TypeSingle:
		return SingleValue(0)
	case TypeDouble:
		return DoubleValue(0)
	case TypeInt64:
		return Int64Value(0)
	case TypeUInt32:
		return UInt32Value(0)
	case TypeInt32:
		return Int32Value(0)
	default:
		return Int16Value(0)
	}
}

// RecordInstance is an instance of a TYPE...END TYPE record: field values
// keyed by lower-cased field name, plus the ordered names for iteration
// and disassembly.
type RecordInstance struct {
	TypeName   string
	FieldOrder []string
	Fields     map[string]Value
}

func NewRecordInstance(typeName string, fields []FieldSpec) *RecordInstance {
	r := &RecordInstance{TypeName: typeName, Fields: make(map[string]Value, len(fields))}
	for _, f := range fields {
		r.FieldOrder = append(r.FieldOrder, f.Name)
		r.Fields[strings.ToLower(f.Name)] = zeroValue(f.Type)
	}
	return r
}

// FieldSpec describes one record field for RecordInstance construction.
type FieldSpec struct {
	Name string
	Type ValueType
}

// cloneForAssignment deep-copies v's record payload so that plain
// assignment (b = a) copies the record's field values rather than
// aliasing the same *RecordInstance through both variables — classic
// BASIC TYPE variables have value semantics, not reference semantics.
// Arrays keep their existing reference semantics (REDIM/passing an array
// to a SUB shares storage with the caller, as QuickBASIC arrays do).
func (v Value) cloneForAssignment() Value {
	if v.Type != TypeRecord || v.Rec == nil {
		return v
	}
	fields := make(map[string]Value, len(v.Rec.Fields))
	for name, fv := range v.Rec.Fields {
		fields[name] = fv.cloneForAssignment()
	}
	order := make([]string, len(v.Rec.FieldOrder))
	copy(order, v.Rec.FieldOrder)
	return Value{Type: v.Type, Rec: &RecordInstance{
		TypeName:   v.Rec.TypeName,
		FieldOrder: order,
		Fields:     fields,
	}}
}

// IsNumeric reports whether v participates in arithmetic.
func (v Value) IsNumeric() bool {
	switch v.Type {
	case TypeInt16, TypeInt32, TypeInt64, TypeUInt32, TypeSingle, TypeDouble:
		return true
	default:
		return false
	}
}

// IsFloat reports whether v is stored in the Flt field.
func (v Value) IsFloat() bool {
	return v.Type == TypeSingle || v.Type == TypeDouble
}

// AsFloat64 returns v's numeric value widened to float64, for arithmetic
// that has already been decided (by the compiler's type resolution) to
// produce a floating-point result.
func (v Value) AsFloat64() float64 {
	if v.IsFloat() {
		return v.Flt
	}
	return float64(v.Int)
}

// Truthy applies BASIC's "zero is false, nonzero is true" rule.
func (v Value) Truthy() bool {
	if v.IsFloat() {
		return v.Flt != 0
	}
	if v.Type == TypeString || v.Type == TypeFixedString {
		return v.Str != ""
	}
	return v.Int != 0
}

// String renders v the way PRINT would: numbers without a trailing sigil,
// a leading space reserved for the sign of nonnegative numbers (classic
// BASIC convention), strings verbatim.
func (v Value) String() string {
	switch v.Type {
	case TypeString, TypeFixedString:
		return v.Str
	case TypeSingle, TypeDouble:
		return formatFloat(v.Flt)
	case TypeEmpty:
		return ""
	case TypeRecord:
		if v.Rec == nil {
			return ""
		}
		parts := make([]string, 0, len(v.Rec.FieldOrder))
		for _, name := range v.Rec.FieldOrder {
			parts = append(parts, name+"="+v.Rec.Fields[strings.ToLower(name)].String())
		}
		return v.Rec.TypeName + "{" + strings.Join(parts, ", ") + "}"
	case TypeArray:
		return fmt.Sprintf("array(%d TO %d)", v.Arr.Lower, v.Arr.Upper)
	default:
		if v.Int >= 0 {
			return " " + strconv.FormatInt(v.Int, 10)
		}
		return strconv.FormatInt(v.Int, 10)
	}
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if f >= 0 {
		return " " + s
	}
	return s
}

package semantic

import "strings"

// ValueKind enumerates the runtime representations a BASIC value can take.
// This is the compile-time counterpart of the tagged union the VM carries
// at runtime (internal/bytecode.Value).
type ValueKind int

const (
	KindEmpty ValueKind = iota
	KindInt16
	KindInt32
	KindInt64
	KindUInt32
	KindSingle
	KindDouble
	KindString
	KindFixedString
	KindRecord
	KindArray
)

func (k ValueKind) String() string {
	switch k {
	case KindInt16:
		return "INTEGER"
	case KindInt32:
		return "LONG"
	case KindInt64:
		return "_INTEGER64"
	case KindUInt32:
		return "_UNSIGNED LONG"
	case KindSingle:
		return "SINGLE"
	case KindDouble:
		return "DOUBLE"
	case KindString:
		return "STRING"
	case KindFixedString:
		return "FIXED STRING"
	case KindRecord:
		return "record"
	case KindArray:
		return "array"
	default:
		return "EMPTY"
	}
}

// IsNumeric reports whether the kind participates in the numeric widening
// lattice (INTEGER < LONG < _INTEGER64 < SINGLE < DOUBLE, with _UNSIGNED
// LONG widening to DOUBLE alongside LONG).
func (k ValueKind) IsNumeric() bool {
	switch k {
	case KindInt16, KindInt32, KindInt64, KindUInt32, KindSingle, KindDouble:
		return true
	default:
		return false
	}
}

// numericRank orders the numeric kinds for widening: the wider operand's
// kind wins a binary arithmetic expression.
var numericRank = map[ValueKind]int{
	KindInt16:  0,
	KindInt32:  1,
	KindUInt32: 2,
	KindInt64:  3,
	KindSingle: 4,
	KindDouble: 5,
}

// WidenNumeric returns the common kind two numeric operands coerce to.
func WidenNumeric(a, b ValueKind) ValueKind {
	if numericRank[b] > numericRank[a] {
		return b
	}
	return a
}

// Type describes the full compile-time type of a symbol: a scalar kind, or
// an array of a kind, or a named record.
type Type struct {
	Kind       ValueKind
	IsArray    bool
	ElemKind   ValueKind // meaningful when IsArray
	RecordName string // set when Kind == KindRecord or ElemKind == KindRecord
	FixedLen   int    // set for KindFixedString (STRING * n)
}

func ScalarType(k ValueKind) Type { return Type{Kind: k} }

func (t Type) String() string {
	if t.IsArray {
		return t.ElemKind.String() + "()"
	}
	return t.Kind.String()
}

// KindForSigil maps a trailing type sigil to its default value kind.
// '&&' (forced Int64) is handled separately by the lexer/parser emitting a
// literal whose Raw spelling ends in "&&"; the sigil byte alone cannot
// distinguish it from the single-'&' LONG sigil, so callers that need the
// Int64 case inspect the literal text directly.
func KindForSigil(sigil byte) ValueKind {
	switch sigil {
	case '%':
		return KindInt16
	case '&':
		return KindInt32
	case '!':
		return KindSingle
	case '#':
		return KindDouble
	case '$':
		return KindString
	default:
		return KindSingle // QuickBASIC's default type for unsuffixed names
	}
}

// KindForTypeName maps an "AS <name>" type annotation keyword to its kind;
// ok is false for a record type name, which the caller resolves against
// the record table instead.
func KindForTypeName(name string) (ValueKind, bool) {
	switch strings.ToUpper(name) {
	case "INTEGER":
		return KindInt16, true
	case "LONG":
		return KindInt32, true
	case "SINGLE":
		return KindSingle, true
	case "DOUBLE":
		return KindDouble, true
	case "STRING", "STRING_TYPE":
		return KindString, true
	case "_INTEGER64":
		return KindInt64, true
	case "_UNSIGNED":
		return KindUInt32, true
	default:
		return KindEmpty, false
	}
}

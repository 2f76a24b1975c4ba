package ast

import (
	"bytes"
	"strings"

	"github.com/thirawat27/QB-COM/pkg/token"
)

// ArrayBound is one dimension of a DIM'd array: LBOUND TO UBOUND. Lower is
// nil when the dimension was written as a bare upper bound (the default
// lower bound, normally 0, applies — see OPTION BASE).
type ArrayBound struct {
	Lower Expression
	Upper Expression
}

// VarDecl is one name in a DIM/SHARED/STATIC declaration list.
type VarDecl struct {
	Name     *Identifier
	Bounds   []ArrayBound // nil for a scalar
	TypeName *Identifier  // nil when the sigil alone determines the type
}

// DimStatement declares one or more scalars or arrays.
type DimStatement struct {
	Token  token.Token
	Shared bool
	Decls  []VarDecl
}

func (n *DimStatement) statementNode()       {}
func (n *DimStatement) TokenLiteral() string { return n.Token.Literal }
func (n *DimStatement) Pos() token.Position  { return n.Token.Pos }
func (n *DimStatement) String() string {
	var out bytes.Buffer
	if n.Shared {
		out.WriteString("DIM SHARED ")
	} else {
		out.WriteString("DIM ")
	}
	parts := make([]string, len(n.Decls))
	for i, d := range n.Decls {
		parts[i] = d.Name.String()
	}
	out.WriteString(strings.Join(parts, ", "))
	return out.String()
}

// ConstStatement binds one or more names to compile-time constant
// expressions.
type ConstStatement struct {
	Token  token.Token
	Names  []*Identifier
	Values []Expression
}

func (n *ConstStatement) statementNode()       {}
func (n *ConstStatement) TokenLiteral() string { return n.Token.Literal }
func (n *ConstStatement) Pos() token.Position  { return n.Token.Pos }
func (n *ConstStatement) String() string {
	var out bytes.Buffer
	out.WriteString("CONST ")
	for i, name := range n.Names {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(name.String())
		out.WriteString(" = ")
		out.WriteString(n.Values[i].String())
	}
	return out.String()
}

// FieldDecl is one member of a TYPE...END TYPE record.
type FieldDecl struct {
	Name     *Identifier
	TypeName *Identifier
	FixedLen Expression // non-nil for "AS STRING * n" fixed-length members
}

// TypeDeclStatement is a TYPE...END TYPE record declaration.
type TypeDeclStatement struct {
	Token  token.Token
	Name   *Identifier
	Fields []FieldDecl
}

func (n *TypeDeclStatement) statementNode()       {}
func (n *TypeDeclStatement) TokenLiteral() string { return n.Token.Literal }
func (n *TypeDeclStatement) Pos() token.Position  { return n.Token.Pos }
func (n *TypeDeclStatement) String() string {
	return "TYPE " + n.Name.String() + " ... END TYPE"
}

// Param is one SUB/FUNCTION parameter.
type Param struct {
	Name     *Identifier
	ByVal    bool
	IsArray  bool
	TypeName *Identifier
}

// SubDeclStatement is a SUB declaration with a body.
type SubDeclStatement struct {
	Token  token.Token
	Name   *Identifier
	Params []Param
	Body   []Statement
	Static bool
}

func (n *SubDeclStatement) statementNode()       {}
func (n *SubDeclStatement) TokenLiteral() string { return n.Token.Literal }
func (n *SubDeclStatement) Pos() token.Position  { return n.Token.Pos }
func (n *SubDeclStatement) String() string {
	return "SUB " + n.Name.String() + "(...)"
}

// FunctionDeclStatement is a FUNCTION declaration with a body. The return
// value is produced by assigning to an identifier equal to the function's
// own name (classic BASIC convention), not by a distinct return statement.
type FunctionDeclStatement struct {
	Token      token.Token
	Name       *Identifier
	Params     []Param
	Body       []Statement
	ReturnType *Identifier // nil when the sigil on Name determines the type
	Static     bool
}

func (n *FunctionDeclStatement) statementNode()       {}
func (n *FunctionDeclStatement) TokenLiteral() string { return n.Token.Literal }
func (n *FunctionDeclStatement) Pos() token.Position  { return n.Token.Pos }
func (n *FunctionDeclStatement) String() string {
	return "FUNCTION " + n.Name.String() + "(...)"
}

// DeclareStatement is a forward DECLARE SUB/FUNCTION signature with no
// body; it lets code call a procedure defined later in the same module.
type DeclareStatement struct {
	Token      token.Token
	Name       *Identifier
	Params     []Param
	IsFunction bool
	ReturnType *Identifier
}

func (n *DeclareStatement) statementNode()       {}
func (n *DeclareStatement) TokenLiteral() string { return n.Token.Literal }
func (n *DeclareStatement) Pos() token.Position  { return n.Token.Pos }
func (n *DeclareStatement) String() string {
	if n.IsFunction {
		return "DECLARE FUNCTION " + n.Name.String()
	}
	return "DECLARE SUB " + n.Name.String()
}

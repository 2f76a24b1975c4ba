package ast

import (
	"bytes"
	"strings"

	"github.com/thirawat27/QB-COM/pkg/token"
)

// InvocationExpression is a parenthesized call, ambiguous between a
// function call and an array index until the semantic analyzer resolves
// Callee's symbol kind.
type InvocationExpression struct {
	Token  token.Token
	Callee *Identifier
	Args   []Expression
}

func (n *InvocationExpression) expressionNode()      {}
func (n *InvocationExpression) TokenLiteral() string { return n.Token.Literal }
func (n *InvocationExpression) Pos() token.Position  { return n.Token.Pos }
func (n *InvocationExpression) String() string {
	var out bytes.Buffer
	out.WriteString(n.Callee.String())
	out.WriteString("(")
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	out.WriteString(strings.Join(args, ", "))
	out.WriteString(")")
	return out.String()
}

// FieldAccessExpression is record.field access.
type FieldAccessExpression struct {
	Token token.Token
	Base  Expression
	Field *Identifier
}

func (n *FieldAccessExpression) expressionNode()      {}
func (n *FieldAccessExpression) TokenLiteral() string { return n.Token.Literal }
func (n *FieldAccessExpression) Pos() token.Position  { return n.Token.Pos }
func (n *FieldAccessExpression) String() string {
	return n.Base.String() + "." + n.Field.String()
}

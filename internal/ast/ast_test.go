package ast

import (
	"testing"

	"github.com/thirawat27/QB-COM/pkg/token"
)

func TestIdentifierSigilAndBaseName(t *testing.T) {
	id := &Identifier{Token: token.Token{Literal: "count%"}, Value: "count%"}
	if got := id.Sigil(); got != '%' {
		t.Errorf("expected sigil '%%', got %q", got)
	}
	if got := id.BaseName(); got != "count" {
		t.Errorf("expected base name 'count', got %q", got)
	}
}

func TestIdentifierWithoutSigil(t *testing.T) {
	id := &Identifier{Token: token.Token{Literal: "total"}, Value: "total"}
	if got := id.Sigil(); got != 0 {
		t.Errorf("expected no sigil, got %q", got)
	}
	if got := id.BaseName(); got != "total" {
		t.Errorf("expected base name 'total', got %q", got)
	}
}

func TestBinaryExpressionString(t *testing.T) {
	left := &IntegerLiteral{Token: token.Token{Literal: "1"}, Value: 1}
	right := &IntegerLiteral{Token: token.Token{Literal: "2"}, Value: 2}
	bin := &BinaryExpression{Token: token.Token{Literal: "+"}, Left: left, Operator: "+", Right: right}
	if got := bin.String(); got != "(1 + 2)" {
		t.Errorf("expected '(1 + 2)', got %q", got)
	}
}

func TestProgramStringJoinsStatements(t *testing.T) {
	prog := &Program{Statements: []Statement{
		&ExpressionStatement{Token: token.Token{Literal: "1"}, Expr: &IntegerLiteral{Token: token.Token{Literal: "1"}, Value: 1}},
		&ExpressionStatement{Token: token.Token{Literal: "2"}, Expr: &IntegerLiteral{Token: token.Token{Literal: "2"}, Value: 2}},
	}}
	got := prog.String()
	want := "1\n2\n"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestEmptyProgramPos(t *testing.T) {
	prog := &Program{}
	pos := prog.Pos()
	if pos.Line != 1 || pos.Column != 1 {
		t.Errorf("expected default position 1:1 for an empty program, got %v", pos)
	}
}

package parser

import (
	"testing"

	"github.com/thirawat27/QB-COM/internal/ast"
	"github.com/thirawat27/QB-COM/internal/lexer"
)

func parseProgram(t *testing.T, input string) *ast.Program {
	t.Helper()
	l := lexer.New(input)
	p := New(l)
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		for _, e := range errs {
			t.Errorf("parser error: %s", e.Error())
		}
		t.FailNow()
	}
	return program
}

func TestParseDimStatement(t *testing.T) {
	program := parseProgram(t, "DIM x AS INTEGER, arr(10) AS STRING\n")
	if len(program.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(program.Statements))
	}
	stmt, ok := program.Statements[0].(*ast.DimStatement)
	if !ok {
		t.Fatalf("expected *ast.DimStatement, got %T", program.Statements[0])
	}
	if len(stmt.Decls) != 2 {
		t.Fatalf("expected 2 decls, got %d", len(stmt.Decls))
	}
	if stmt.Decls[0].Name.Value != "x" {
		t.Errorf("expected first decl 'x', got %q", stmt.Decls[0].Name.Value)
	}
	if stmt.Decls[1].Name.Value != "arr" {
		t.Errorf("expected second decl 'arr', got %q", stmt.Decls[1].Name.Value)
	}
	if len(stmt.Decls[1].Bounds) != 1 {
		t.Errorf("expected arr to have 1 dimension, got %d", len(stmt.Decls[1].Bounds))
	}
}

func TestParseAssignStatement(t *testing.T) {
	program := parseProgram(t, "x% = 1 + 2 * 3\n")
	stmt, ok := program.Statements[0].(*ast.AssignStatement)
	if !ok {
		t.Fatalf("expected *ast.AssignStatement, got %T", program.Statements[0])
	}
	target, ok := stmt.Target.(*ast.Identifier)
	if !ok || target.Value != "x%" {
		t.Fatalf("expected target identifier 'x%%', got %#v", stmt.Target)
	}
	bin, ok := stmt.Value.(*ast.BinaryExpression)
	if !ok {
		t.Fatalf("expected top-level value to be a binary expression, got %T", stmt.Value)
	}
	if bin.Operator != "+" {
		t.Fatalf("expected '+' to bind loosest (precedence), got %q", bin.Operator)
	}
	if _, ok := bin.Right.(*ast.BinaryExpression); !ok {
		t.Fatalf("expected right side of '+' to be the '*' subexpression, got %T", bin.Right)
	}
}

func TestParseIfStatement(t *testing.T) {
	program := parseProgram(t, "IF x > 0 THEN\nPRINT \"positive\"\nELSE\nPRINT \"non-positive\"\nEND IF\n")
	stmt, ok := program.Statements[0].(*ast.IfStatement)
	if !ok {
		t.Fatalf("expected *ast.IfStatement, got %T", program.Statements[0])
	}
	if len(stmt.Then) != 1 {
		t.Fatalf("expected 1 then-statement, got %d", len(stmt.Then))
	}
	if len(stmt.Else) != 1 {
		t.Fatalf("expected 1 else-statement, got %d", len(stmt.Else))
	}
}

func TestParseForLoop(t *testing.T) {
	program := parseProgram(t, "FOR i = 1 TO 10 STEP 2\nPRINT i\nNEXT i\n")
	stmt, ok := program.Statements[0].(*ast.ForStatement)
	if !ok {
		t.Fatalf("expected *ast.ForStatement, got %T", program.Statements[0])
	}
	if stmt.Var.Value != "i" {
		t.Errorf("expected loop var 'i', got %q", stmt.Var.Value)
	}
	if stmt.Step == nil {
		t.Errorf("expected explicit STEP to be parsed")
	}
	if len(stmt.Body) != 1 {
		t.Fatalf("expected 1 body statement, got %d", len(stmt.Body))
	}
}

func TestParsePrintWithSeparators(t *testing.T) {
	program := parseProgram(t, `PRINT "a"; "b", "c"`)
	stmt, ok := program.Statements[0].(*ast.PrintStatement)
	if !ok {
		t.Fatalf("expected *ast.PrintStatement, got %T", program.Statements[0])
	}
	if len(stmt.Items) != 3 {
		t.Fatalf("expected 3 print items, got %d", len(stmt.Items))
	}
	if stmt.Items[0].Sep != ast.SepSemicolon {
		t.Errorf("expected first separator to be semicolon")
	}
	if stmt.Items[1].Sep != ast.SepComma {
		t.Errorf("expected second separator to be comma")
	}
}

func TestParseErrorOnUnexpectedToken(t *testing.T) {
	l := lexer.New("DIM = 5\n")
	p := New(l)
	p.ParseProgram()
	if len(p.Errors()) == 0 {
		t.Fatalf("expected parse errors for malformed DIM statement")
	}
}

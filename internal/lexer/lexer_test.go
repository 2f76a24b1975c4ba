package lexer

import (
	"testing"

	"github.com/thirawat27/QB-COM/pkg/token"
)

func TestNextTokenKeywordsAndIdentifiers(t *testing.T) {
	input := `DIM x%, y AS INTEGER
if x% Then Print "hi"
ENDIF`

	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.DIM, "DIM"},
		{token.IDENT, "x%"},
		{token.COMMA, ","},
		{token.IDENT, "y"},
		{token.AS, "AS"},
		{token.KwInteger, "INTEGER"},
		{token.EOL, "\n"},
		{token.IF, "if"},
		{token.IDENT, "x%"},
		{token.THEN, "Then"},
		{token.PRINT, "Print"},
		{token.STRING, "hi"},
		{token.EOL, "\n"},
		{token.IDENT, "ENDIF"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%v, got=%v (%q)", i, tt.expectedType, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestNextTokenNumbers(t *testing.T) {
	input := `10 3.14 1.5e10 &HFF &O17 42% 7& 9! 2#`

	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.INT, "10"},
		{token.FLOAT, "3.14"},
		{token.FLOAT, "1.5e10"},
		{token.INT, "&HFF"},
		{token.INT, "&O17"},
		{token.INT, "42%"},
		{token.INT, "7&"},
		{token.INT, "9!"},
		{token.INT, "2#"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%v, got=%v (%q)", i, tt.expectedType, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
	if len(l.Errors()) != 0 {
		t.Fatalf("unexpected lex errors: %v", l.Errors())
	}
}

func TestNextTokenStringEscapes(t *testing.T) {
	input := `"she said ""hi"" to me"`
	l := New(input)
	tok := l.NextToken()
	if tok.Type != token.STRING {
		t.Fatalf("expected STRING, got %v", tok.Type)
	}
	want := `she said "hi" to me`
	if tok.Literal != want {
		t.Fatalf("expected %q, got %q", want, tok.Literal)
	}
}

func TestNextTokenUnterminatedString(t *testing.T) {
	l := New(`"oops`)
	l.NextToken()
	if len(l.Errors()) != 1 {
		t.Fatalf("expected 1 lex error, got %d", len(l.Errors()))
	}
}

func TestNextTokenOperatorsAndPunctuation(t *testing.T) {
	input := `( ) , : ; . # + - * / \ ^ = <> <= < >= > "" `
	tests := []token.Type{
		token.LPAREN, token.RPAREN, token.COMMA, token.COLON, token.SEMICOLON,
		token.DOT, token.HASH, token.PLUS, token.MINUS, token.ASTERISK,
		token.SLASH, token.BACKSLASH, token.CARET, token.EQ, token.NOT_EQ,
		token.LESS_EQ, token.LESS, token.GREATER_EQ, token.GREATER, token.STRING,
		token.EOF,
	}
	l := New(input)
	for i, want := range tests {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%v, got=%v (%q)", i, want, tok.Type, tok.Literal)
		}
	}
}

func TestNextTokenRemComment(t *testing.T) {
	input := "PRINT 1 REM this is ignored\nPRINT 2"
	l := New(input)
	var got []token.Type
	for {
		tok := l.NextToken()
		got = append(got, tok.Type)
		if tok.Type == token.EOF {
			break
		}
	}
	want := []token.Type{token.PRINT, token.INT, token.EOL, token.PRINT, token.INT, token.EOF}
	if len(got) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token[%d]: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestNextTokenMetacommand(t *testing.T) {
	l := New(`$INCLUDE:"util.bas"`)
	tok := l.NextToken()
	if tok.Type != token.METACOMMAND {
		t.Fatalf("expected METACOMMAND, got %v", tok.Type)
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	l := New("10 20")
	first := l.Peek(0)
	if first.Literal != "10" {
		t.Fatalf("expected peek to see '10', got %q", first.Literal)
	}
	tok := l.NextToken()
	if tok.Literal != "10" {
		t.Fatalf("expected NextToken to still return '10', got %q", tok.Literal)
	}
	second := l.NextToken()
	if second.Literal != "20" {
		t.Fatalf("expected '20', got %q", second.Literal)
	}
}

func TestSaveRestoreState(t *testing.T) {
	l := New("10 20 30")
	_ = l.NextToken() // 10
	saved := l.SaveState()
	_ = l.NextToken() // 20
	l.RestoreState(saved)
	tok := l.NextToken()
	if tok.Literal != "20" {
		t.Fatalf("expected restore to rewind to '20', got %q", tok.Literal)
	}
}

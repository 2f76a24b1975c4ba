package token

import "testing"

func TestLookupIdentIsCaseInsensitive(t *testing.T) {
	cases := []struct {
		literal string
		want    Type
	}{
		{"PRINT", PRINT},
		{"print", PRINT},
		{"Print", PRINT},
		{"If", IF},
		{"end", END},
		{"notAKeyword", IDENT},
	}
	for _, c := range cases {
		if got := LookupIdent(c.literal); got != c.want {
			t.Errorf("LookupIdent(%q) = %v, want %v", c.literal, got, c.want)
		}
	}
}

func TestIsKeywordRange(t *testing.T) {
	if !IsKeyword(PRINT) {
		t.Errorf("expected PRINT to be a keyword")
	}
	if !IsKeyword(KwInteger) {
		t.Errorf("expected KwInteger to be a keyword")
	}
	if IsKeyword(IDENT) {
		t.Errorf("expected IDENT not to be a keyword")
	}
	if IsKeyword(PLUS) {
		t.Errorf("expected PLUS not to be a keyword")
	}
}

func TestTokenLength(t *testing.T) {
	tok := NewToken(IDENT, "héllo", Position{Line: 1, Column: 1})
	if got := tok.Length(); got != 5 {
		t.Errorf("expected rune length 5 for %q, got %d", tok.Literal, got)
	}
}

func TestPositionString(t *testing.T) {
	p := Position{Line: 3, Column: 7, Offset: 42}
	if got := p.String(); got != "3:7" {
		t.Errorf("expected %q, got %q", "3:7", got)
	}
}

func TestPositionIsValid(t *testing.T) {
	if (Position{}).IsValid() {
		t.Errorf("expected zero-value Position to be invalid")
	}
	if !(Position{Line: 1, Column: 1}).IsValid() {
		t.Errorf("expected Line:1 Column:1 to be valid")
	}
}

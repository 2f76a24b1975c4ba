package ast

import (
	"bytes"
	"strings"

	"github.com/thirawat27/QB-COM/pkg/token"
)

// AssignStatement is LET target = value, or a bare "target = value" (LET is
// optional in this dialect).
type AssignStatement struct {
	Token  token.Token
	Target Expression
	Value  Expression
}

func (n *AssignStatement) statementNode()       {}
func (n *AssignStatement) TokenLiteral() string { return n.Token.Literal }
func (n *AssignStatement) Pos() token.Position  { return n.Token.Pos }
func (n *AssignStatement) String() string {
	return n.Target.String() + " = " + n.Value.String()
}

// PrintSeparator is the punctuation that followed a PRINT item, controlling
// column placement of the next item.
type PrintSeparator int

const (
	SepNone      PrintSeparator = iota // last item, newline follows
	SepSemicolon                       // immediate, no column movement
	SepComma                           // advance to next 14-column print zone
)

// PrintItem is one expression in a PRINT list together with the separator
// that followed it.
type PrintItem struct {
	Expr Expression
	Sep  PrintSeparator
}

// PrintStatement is PRINT [#channel,] [items...][;]. An empty Items list
// with SuppressNewline false prints a bare blank line.
type PrintStatement struct {
	Token            token.Token
	Channel          Expression // nil for console output
	Items            []PrintItem
	SuppressNewline  bool // trailing ';' or ',' suppresses the line break on the console; PRINT # always ends the line
}

func (n *PrintStatement) statementNode()       {}
func (n *PrintStatement) TokenLiteral() string { return n.Token.Literal }
func (n *PrintStatement) Pos() token.Position  { return n.Token.Pos }
func (n *PrintStatement) String() string {
	var out bytes.Buffer
	out.WriteString("PRINT ")
	parts := make([]string, len(n.Items))
	for i, it := range n.Items {
		parts[i] = it.Expr.String()
	}
	out.WriteString(strings.Join(parts, "; "))
	return out.String()
}

// InputStatement is INPUT/LINE INPUT [#channel,] ["prompt";] targets...
type InputStatement struct {
	Token        token.Token
	Channel      Expression
	Prompt       *StringLiteral
	PromptNoMark bool // prompt suffixed with ';' (no '?' appended) vs ','
	LineInput    bool
	Targets      []Expression
}

func (n *InputStatement) statementNode()       {}
func (n *InputStatement) TokenLiteral() string { return n.Token.Literal }
func (n *InputStatement) Pos() token.Position  { return n.Token.Pos }
func (n *InputStatement) String() string {
	if n.LineInput {
		return "LINE INPUT ..."
	}
	return "INPUT ..."
}

// DataKind distinguishes a DATA literal's lexical form so READ can coerce
// it to the target's type the way the original text would have been typed.
type DataKind int

const (
	DataNumber DataKind = iota
	DataString
)

// DataItem is one literal in a DATA statement.
type DataItem struct {
	Kind DataKind
	Raw  string
}

// DataStatement holds a run of literals consumed sequentially by READ.
type DataStatement struct {
	Token token.Token
	Items []DataItem
}

func (n *DataStatement) statementNode()       {}
func (n *DataStatement) TokenLiteral() string { return n.Token.Literal }
func (n *DataStatement) Pos() token.Position  { return n.Token.Pos }
func (n *DataStatement) String() string {
	parts := make([]string, len(n.Items))
	for i, it := range n.Items {
		parts[i] = it.Raw
	}
	return "DATA " + strings.Join(parts, ", ")
}

// ReadStatement assigns the next items from the program's DATA cursor to
// each target in order.
type ReadStatement struct {
	Token   token.Token
	Targets []Expression
}

func (n *ReadStatement) statementNode()       {}
func (n *ReadStatement) TokenLiteral() string { return n.Token.Literal }
func (n *ReadStatement) Pos() token.Position  { return n.Token.Pos }
func (n *ReadStatement) String() string {
	parts := make([]string, len(n.Targets))
	for i, t := range n.Targets {
		parts[i] = t.String()
	}
	return "READ " + strings.Join(parts, ", ")
}

// RestoreStatement rewinds the DATA cursor to the start, or to a label.
type RestoreStatement struct {
	Token token.Token
	Label string // empty means restore to the very first DATA item
}

func (n *RestoreStatement) statementNode()       {}
func (n *RestoreStatement) TokenLiteral() string { return n.Token.Literal }
func (n *RestoreStatement) Pos() token.Position  { return n.Token.Pos }
func (n *RestoreStatement) String() string       { return "RESTORE " + n.Label }

// RandomizeStatement reseeds the pseudo-random generator.
type RandomizeStatement struct {
	Token token.Token
	Seed  Expression // nil means seed from the clock
}

func (n *RandomizeStatement) statementNode()       {}
func (n *RandomizeStatement) TokenLiteral() string { return n.Token.Literal }
func (n *RandomizeStatement) Pos() token.Position  { return n.Token.Pos }
func (n *RandomizeStatement) String() string       { return "RANDOMIZE" }

// OpenStatement opens a host file channel: OPEN path FOR mode AS #channel.
type OpenStatement struct {
	Token   token.Token
	Path    Expression
	Mode    string // INPUT, OUTPUT, APPEND, BINARY, RANDOM
	Channel Expression
}

func (n *OpenStatement) statementNode()       {}
func (n *OpenStatement) TokenLiteral() string { return n.Token.Literal }
func (n *OpenStatement) Pos() token.Position  { return n.Token.Pos }
func (n *OpenStatement) String() string {
	return "OPEN " + n.Path.String() + " FOR " + n.Mode + " AS " + n.Channel.String()
}

// CloseStatement closes one or more channels; an empty Channels list closes
// every open channel.
type CloseStatement struct {
	Token    token.Token
	Channels []Expression
}

func (n *CloseStatement) statementNode()       {}
func (n *CloseStatement) TokenLiteral() string { return n.Token.Literal }
func (n *CloseStatement) Pos() token.Position  { return n.Token.Pos }
func (n *CloseStatement) String() string       { return "CLOSE" }

// EndStatement is the bare END statement, which terminates the program.
type EndStatement struct {
	Token token.Token
}

func (n *EndStatement) statementNode()       {}
func (n *EndStatement) TokenLiteral() string { return n.Token.Literal }
func (n *EndStatement) Pos() token.Position  { return n.Token.Pos }
func (n *EndStatement) String() string       { return "END" }

// OptionBaseStatement sets the default array lower bound (0 or 1) for
// every subsequent DIM without an explicit lower bound.
type OptionBaseStatement struct {
	Token token.Token
	Base  int
}

func (n *OptionBaseStatement) statementNode()       {}
func (n *OptionBaseStatement) TokenLiteral() string { return n.Token.Literal }
func (n *OptionBaseStatement) Pos() token.Position  { return n.Token.Pos }
func (n *OptionBaseStatement) String() string       { return "OPTION BASE ..." }

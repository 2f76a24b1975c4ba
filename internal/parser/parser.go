// Package parser implements a recursive-descent statement parser with a
// Pratt expression parser for the BASIC dialect. Statements are separated
// by EOL or ':' tokens; block constructs (IF/FOR/WHILE/DO/SELECT CASE/
// SUB/FUNCTION/TYPE) are closed by their matching keyword rather than by
// indentation.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/thirawat27/QB-COM/internal/ast"
	"github.com/thirawat27/QB-COM/internal/lexer"
	"github.com/thirawat27/QB-COM/pkg/token"
)

// Precedence levels, lowest to highest. NOT is parsed as a prefix operator
// at PREFIX precedence, like unary minus, so "NOT A = B" parses as
// "(NOT A) = B"; NOT_PREC is not used by the parser.
const (
	_ int = iota
	LOWEST
	OR_PREC
	AND_PREC
	NOT_PREC
	EQUALS
	LESSGREATER
	SUM
	PRODUCT
	MOD_PREC
	INTDIV_PREC
	PREFIX
	POWER
	CALL_PREC
	MEMBER
)

var precedences = map[token.Type]int{
	token.OR:          OR_PREC,
	token.AND:         AND_PREC,
	token.EQ:          EQUALS,
	token.NOT_EQ:      EQUALS,
	token.LESS:        LESSGREATER,
	token.GREATER:     LESSGREATER,
	token.LESS_EQ:     LESSGREATER,
	token.GREATER_EQ:  LESSGREATER,
	token.PLUS:        SUM,
	token.MINUS:       SUM,
	token.ASTERISK:    PRODUCT,
	token.SLASH:       PRODUCT,
	token.BACKSLASH:   INTDIV_PREC,
	token.MOD:         MOD_PREC,
	token.CARET:       POWER,
	token.LPAREN:      CALL_PREC,
	token.DOT:         MEMBER,
}

type prefixParseFn func() ast.Expression
type infixParseFn func(ast.Expression) ast.Expression

// blockContext records what kind of block is currently open, so an
// unexpected EOF or mismatched terminator can name the block it belongs to.
type blockContext struct {
	kind     string
	startPos token.Position
}

// Parser consumes a lexer.Lexer and produces an *ast.Program.
type Parser struct {
	l         *lexer.Lexer
	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.Type]prefixParseFn
	infixParseFns  map[token.Type]infixParseFn

	errors     []*ParserError
	blockStack []blockContext
}

// New creates a Parser reading from l and primes the two-token lookahead.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}

	p.prefixParseFns = make(map[token.Type]prefixParseFn)
	p.registerPrefix(token.IDENT, p.parseIdentifierExpr)
	p.registerPrefix(token.INT, p.parseIntegerLiteral)
	p.registerPrefix(token.FLOAT, p.parseFloatLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.MINUS, p.parsePrefixExpression)
	p.registerPrefix(token.PLUS, p.parsePrefixExpression)
	p.registerPrefix(token.NOT, p.parsePrefixExpression)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(token.TIMER, p.parseIdentifierExpr)

	p.infixParseFns = make(map[token.Type]infixParseFn)
	for _, t := range []token.Type{
		token.PLUS, token.MINUS, token.ASTERISK, token.SLASH, token.BACKSLASH,
		token.MOD, token.CARET, token.EQ, token.NOT_EQ, token.LESS,
		token.GREATER, token.LESS_EQ, token.GREATER_EQ, token.AND, token.OR,
	} {
		p.registerInfix(t, p.parseInfixExpression)
	}
	p.registerInfix(token.LPAREN, p.parseInvocationExpression)
	p.registerInfix(token.DOT, p.parseFieldAccessExpression)

	p.nextToken()
	p.nextToken()
	return p
}

// Errors returns every diagnostic accumulated while parsing.
func (p *Parser) Errors() []*ParserError { return p.errors }

func (p *Parser) registerPrefix(t token.Type, fn prefixParseFn) { p.prefixParseFns[t] = fn }
func (p *Parser) registerInfix(t token.Type, fn infixParseFn)   { p.infixParseFns[t] = fn }

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t token.Type) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.Type) bool { return p.peekToken.Type == t }

// curIdentIs reports whether the current token is IDENT with the given
// case-insensitive spelling. No statement parser calls it: STEP, WHILE,
// UNTIL and ELSE are keyword tokens matched by type.
func (p *Parser) curIdentIs(word string) bool {
	return (p.curToken.Type == token.IDENT) && strings.EqualFold(p.curToken.Literal, word)
}

func (p *Parser) expectPeek(t token.Type) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekError(t token.Type) {
	msg := fmt.Sprintf("expected next token to be %s, got %s instead", t, p.peekToken.Type)
	p.errors = append(p.errors, NewParserError(p.peekToken.Pos, p.peekToken.Length(), msg, ErrUnexpectedToken))
}

func (p *Parser) addError(msg string, code string) {
	p.errors = append(p.errors, NewParserError(p.curToken.Pos, p.curToken.Length(), msg, code))
}

func (p *Parser) noPrefixParseFnError(t token.Type) {
	p.addError(fmt.Sprintf("no prefix parse function for %s found", t), ErrNoPrefixParse)
}

func getPrecedence(t token.Type) int {
	if prec, ok := precedences[t]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) pushBlock(kind string, pos token.Position) {
	p.blockStack = append(p.blockStack, blockContext{kind: kind, startPos: pos})
}

func (p *Parser) popBlock() {
	if len(p.blockStack) > 0 {
		p.blockStack = p.blockStack[:len(p.blockStack)-1]
	}
}

func (p *Parser) currentBlock() string {
	if len(p.blockStack) == 0 {
		return ""
	}
	return p.blockStack[len(p.blockStack)-1].kind
}

// skipStatementSeparators consumes EOL/COLON tokens between statements.
func (p *Parser) skipStatementSeparators() {
	for p.curTokenIs(token.EOL) || p.curTokenIs(token.COLON) {
		p.nextToken()
	}
}

// atBlockEnd reports whether the current token is one of the given
// case-insensitive keywords/identifiers, used to detect block terminators
// like END IF, WEND, LOOP, NEXT, END SELECT, END SUB, END FUNCTION.
func (p *Parser) atBlockEnd(words ...token.Type) bool {
	for _, w := range words {
		if p.curTokenIs(w) {
			return true
		}
	}
	return false
}

// ParseProgram parses the whole token stream into a Program.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{Statements: []ast.Statement{}}

	p.skipStatementSeparators()
	for !p.curTokenIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		if !p.curTokenIs(token.EOL) && !p.curTokenIs(token.COLON) && !p.curTokenIs(token.EOF) {
			// parseStatement should leave us on a separator or EOF; if a
			// statement parser failed to consume its full form, advance to
			// resynchronize rather than loop forever.
			p.nextToken()
		}
		p.skipStatementSeparators()
	}
	return program
}

// parseBlockBody parses statements until the current token matches one of
// the given terminator words (left unconsumed for the caller to check/
// consume), used by every block construct.
func (p *Parser) parseBlockBody(terminators ...token.Type) []ast.Statement {
	var stmts []ast.Statement
	p.skipStatementSeparators()
	for !p.curTokenIs(token.EOF) && !p.atBlockEnd(terminators...) {
		stmt := p.parseStatement()
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
		if !p.curTokenIs(token.EOL) && !p.curTokenIs(token.COLON) &&
			!p.curTokenIs(token.EOF) && !p.atBlockEnd(terminators...) {
			p.nextToken()
		}
		p.skipStatementSeparators()
	}
	return stmts
}

func parseIntLiteralValue(raw string) (int64, error) {
	s := strings.TrimRight(raw, "%&!#")
	s = strings.TrimSuffix(s, "&")
	base := 10
	switch {
	case strings.HasPrefix(strings.ToUpper(s), "&H"):
		base = 16
		s = s[2:]
	case strings.HasPrefix(strings.ToUpper(s), "&O"):
		base = 8
		s = s[2:]
	}
	return strconv.ParseInt(s, base, 64)
}

func parseFloatLiteralValue(raw string) (float64, error) {
	s := strings.TrimRight(raw, "!#")
	return strconv.ParseFloat(s, 64)
}

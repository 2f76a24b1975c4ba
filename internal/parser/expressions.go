package parser

import (
	"fmt"

	"github.com/thirawat27/QB-COM/internal/ast"
	"github.com/thirawat27/QB-COM/pkg/token"
)

// parseExpression is the Pratt parser core: parse a prefix, then keep
// folding in infix operators whose precedence exceeds the floor.
func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix, ok := p.prefixParseFns[p.curToken.Type]
	if !ok {
		p.noPrefixParseFnError(p.curToken.Type)
		return nil
	}
	left := prefix()

	for !p.peekTokenIs(token.EOL) && !p.peekTokenIs(token.EOF) && precedence < getPrecedence(p.peekToken.Type) {
		infix, ok := p.infixParseFns[p.peekToken.Type]
		if !ok {
			return left
		}
		p.nextToken()
		left = infix(left)
	}
	return left
}

func (p *Parser) parseIdentifierExpr() ast.Expression {
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	tok := p.curToken
	v, err := parseIntLiteralValue(tok.Literal)
	if err != nil {
		p.addError(fmt.Sprintf("could not parse %q as an integer literal", tok.Literal), ErrInvalidStatement)
		return nil
	}
	return &ast.IntegerLiteral{Token: tok, Value: v, Raw: tok.Literal}
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	tok := p.curToken
	v, err := parseFloatLiteralValue(tok.Literal)
	if err != nil {
		p.addError(fmt.Sprintf("could not parse %q as a floating-point literal", tok.Literal), ErrInvalidStatement)
		return nil
	}
	return &ast.FloatLiteral{Token: tok, Value: v, Raw: tok.Literal}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	tok := p.curToken
	op := tok.Literal
	if tok.Type == token.NOT {
		op = "NOT"
	}
	p.nextToken()
	right := p.parseExpression(PREFIX)
	return &ast.UnaryExpression{Token: tok, Operator: op, Right: right}
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	tok := p.curToken
	op := tok.Literal
	switch tok.Type {
	case token.AND:
		op = "AND"
	case token.OR:
		op = "OR"
	case token.MOD:
		op = "MOD"
	}
	precedence := getPrecedence(tok.Type)
	p.nextToken()
	right := p.parseExpression(precedence)
	return &ast.BinaryExpression{Token: tok, Left: left, Operator: op, Right: right}
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	tok := p.curToken
	p.nextToken()
	inner := p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return &ast.GroupedExpression{Token: tok, Inner: inner}
}

// parseInvocationExpression handles NAME(args...), ambiguous between a
// function/SUB call and an array index until semantic analysis resolves
// NAME's symbol kind.
func (p *Parser) parseInvocationExpression(left ast.Expression) ast.Expression {
	ident, ok := left.(*ast.Identifier)
	if !ok {
		p.addError("'(' may only follow an identifier", ErrInvalidStatement)
		return nil
	}
	tok := p.curToken // LPAREN
	args := p.parseExpressionList(token.RPAREN)
	return &ast.InvocationExpression{Token: tok, Callee: ident, Args: args}
}

func (p *Parser) parseFieldAccessExpression(left ast.Expression) ast.Expression {
	tok := p.curToken // DOT
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	field := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	return &ast.FieldAccessExpression{Token: tok, Base: left, Field: field}
}

// parseExpressionList parses a comma-separated expression list up to and
// including the given closing token. Entry: curToken is the opening token.
func (p *Parser) parseExpressionList(end token.Type) []ast.Expression {
	var list []ast.Expression
	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}
	p.nextToken()
	list = append(list, p.parseExpression(LOWEST))
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		list = append(list, p.parseExpression(LOWEST))
	}
	if !p.expectPeek(end) {
		return list
	}
	return list
}

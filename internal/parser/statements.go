package parser

import (
	"fmt"
	"strings"

	"github.com/thirawat27/QB-COM/internal/ast"
	"github.com/thirawat27/QB-COM/pkg/token"
)

// parseStatement dispatches on the current token to the statement-specific
// parser. Entry: curToken is the first token of the statement. Exit:
// curToken is the last token consumed by the statement (never the
// following separator) so callers can uniformly advance onto it.
func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.EOL, token.COLON:
		return nil
	case token.INT:
		return p.parseLineNumberLabel()
	case token.IDENT:
		if p.peekTokenIs(token.COLON) {
			return p.parseLabelStatement()
		}
		return p.parseIdentifierStatement()
	case token.PRINT:
		return p.parsePrintStatement()
	case token.INPUT:
		return p.parseInputStatement()
	case token.LINE:
		return p.parseLineInputStatement()
	case token.DIM:
		return p.parseDimStatement()
	case token.CONST:
		return p.parseConstStatement()
	case token.TYPE:
		return p.parseTypeDeclStatement()
	case token.SUB:
		return p.parseSubDeclStatement()
	case token.FUNCTION:
		return p.parseFunctionDeclStatement()
	case token.DECLARE:
		return p.parseDeclareStatement()
	case token.CALL:
		return p.parseCallStatement()
	case token.IF:
		return p.parseIfStatement()
	case token.SELECT:
		return p.parseSelectCaseStatement()
	case token.FOR:
		return p.parseForStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.DO:
		return p.parseDoLoopStatement()
	case token.EXIT:
		return p.parseExitStatement()
	case token.GOTO:
		return p.parseGotoStatement()
	case token.GOSUB:
		return p.parseGosubStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.DATA:
		return p.parseDataStatement()
	case token.READ:
		return p.parseReadStatement()
	case token.RESTORE:
		return p.parseRestoreStatement()
	case token.RANDOMIZE:
		return p.parseRandomizeStatement()
	case token.OPEN:
		return p.parseOpenStatement()
	case token.CLOSE:
		return p.parseCloseStatement()
	case token.END:
		return p.parseEndStatement()
	case token.OPTION:
		return p.parseOptionBaseStatement()
	default:
		p.addError(fmt.Sprintf("unexpected token %s at start of statement", p.curToken.Type), ErrUnexpectedToken)
		return nil
	}
}

func (p *Parser) parseLabelStatement() ast.Statement {
	tok := p.curToken
	name := tok.Literal
	if !p.expectPeek(token.COLON) {
		return nil
	}
	return &ast.LabelStatement{Token: tok, Name: name}
}

func (p *Parser) parseLineNumberLabel() ast.Statement {
	tok := p.curToken
	return &ast.LabelStatement{Token: tok, Name: tok.Literal}
}

// parsePrimaryChain parses an identifier optionally followed by an
// invocation (array index or call) and/or field accesses, stopping before
// any binary operator. Statement-level targets (assignment left sides,
// READ/INPUT targets, CALL callees) are always one of these, never a full
// arithmetic expression.
func (p *Parser) parsePrimaryChain() ast.Expression {
	var left ast.Expression = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	for {
		switch {
		case p.peekTokenIs(token.LPAREN):
			p.nextToken()
			left = p.parseInvocationExpression(left)
		case p.peekTokenIs(token.DOT):
			p.nextToken()
			left = p.parseFieldAccessExpression(left)
		default:
			return left
		}
	}
}

// parseIdentifierStatement parses "target = value" or a bare call/array
// reference used as a statement.
func (p *Parser) parseIdentifierStatement() ast.Statement {
	startTok := p.curToken
	target := p.parsePrimaryChain()
	if p.peekTokenIs(token.EQ) {
		p.nextToken()
		p.nextToken()
		val := p.parseExpression(LOWEST)
		return &ast.AssignStatement{Token: startTok, Target: target, Value: val}
	}
	return &ast.ExpressionStatement{Token: startTok, Expr: target}
}

// parseCallStatement parses CALL Name(args) or CALL Name arg1, arg2 (the
// parenthesis-free form).
func (p *Parser) parseCallStatement() ast.Statement {
	tok := p.curToken
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	ident := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	var args []ast.Expression
	if p.peekTokenIs(token.LPAREN) {
		p.nextToken()
		args = p.parseExpressionList(token.RPAREN)
	} else if !p.peekTokenIs(token.EOL) && !p.peekTokenIs(token.COLON) && !p.peekTokenIs(token.EOF) {
		p.nextToken()
		args = append(args, p.parseExpression(LOWEST))
		for p.peekTokenIs(token.COMMA) {
			p.nextToken()
			p.nextToken()
			args = append(args, p.parseExpression(LOWEST))
		}
	}
	return &ast.ExpressionStatement{Token: tok, Expr: &ast.InvocationExpression{Token: tok, Callee: ident, Args: args}}
}

func (p *Parser) parseTypeNameAfterAs() *ast.Identifier {
	p.nextToken()
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseOneArrayBound() ast.ArrayBound {
	first := p.parseExpression(LOWEST)
	if p.peekTokenIs(token.TO) {
		p.nextToken()
		p.nextToken()
		upper := p.parseExpression(LOWEST)
		return ast.ArrayBound{Lower: first, Upper: upper}
	}
	return ast.ArrayBound{Upper: first}
}

// parseArrayBounds parses "(b1, b2, ...)". Entry: curToken is LPAREN.
func (p *Parser) parseArrayBounds() []ast.ArrayBound {
	var bounds []ast.ArrayBound
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return bounds
	}
	p.nextToken()
	for {
		bounds = append(bounds, p.parseOneArrayBound())
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			p.nextToken()
			continue
		}
		break
	}
	p.expectPeek(token.RPAREN)
	return bounds
}

func (p *Parser) parseVarDecl() (ast.VarDecl, bool) {
	if !p.curTokenIs(token.IDENT) {
		p.addError("expected identifier in DIM declaration", ErrInvalidStatement)
		return ast.VarDecl{}, false
	}
	decl := ast.VarDecl{Name: &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}}
	if p.peekTokenIs(token.LPAREN) {
		p.nextToken()
		decl.Bounds = p.parseArrayBounds()
	}
	if p.peekTokenIs(token.AS) {
		p.nextToken()
		decl.TypeName = p.parseTypeNameAfterAs()
	}
	return decl, true
}

func (p *Parser) parseDimStatement() ast.Statement {
	tok := p.curToken
	shared := false
	if p.peekTokenIs(token.SHARED) {
		p.nextToken()
		shared = true
	}
	stmt := &ast.DimStatement{Token: tok, Shared: shared}
	p.nextToken()
	for {
		decl, ok := p.parseVarDecl()
		if !ok {
			break
		}
		stmt.Decls = append(stmt.Decls, decl)
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			p.nextToken()
			continue
		}
		break
	}
	return stmt
}

func (p *Parser) parseConstStatement() ast.Statement {
	tok := p.curToken
	stmt := &ast.ConstStatement{Token: tok}
	p.nextToken()
	for {
		if !p.curTokenIs(token.IDENT) {
			p.addError("expected identifier after CONST", ErrInvalidStatement)
			break
		}
		name := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
		if !p.expectPeek(token.EQ) {
			break
		}
		p.nextToken()
		val := p.parseExpression(LOWEST)
		stmt.Names = append(stmt.Names, name)
		stmt.Values = append(stmt.Values, val)
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			p.nextToken()
			continue
		}
		break
	}
	return stmt
}

func (p *Parser) parseTypeDeclStatement() ast.Statement {
	tok := p.curToken
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	name := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	stmt := &ast.TypeDeclStatement{Token: tok, Name: name}
	p.nextToken()
	p.skipStatementSeparators()
	for !p.curTokenIs(token.END) && !p.curTokenIs(token.EOF) {
		if !p.curTokenIs(token.IDENT) {
			p.addError("expected field name in TYPE declaration", ErrInvalidStatement)
			break
		}
		fname := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
		if !p.expectPeek(token.AS) {
			break
		}
		ftype := p.parseTypeNameAfterAs()
		field := ast.FieldDecl{Name: fname, TypeName: ftype}
		if ftype.Token.Type == token.KwString && p.peekTokenIs(token.ASTERISK) {
			p.nextToken()
			p.nextToken()
			field.FixedLen = p.parseExpression(LOWEST)
		}
		stmt.Fields = append(stmt.Fields, field)
		p.nextToken()
		p.skipStatementSeparators()
	}
	if p.curTokenIs(token.END) {
		if !p.expectPeek(token.TYPE) {
			p.addError("expected TYPE after END", ErrUnexpectedToken)
		}
	} else {
		p.addError("unterminated TYPE block", ErrUnterminatedBlock)
	}
	return stmt
}

func (p *Parser) parseParamList() []ast.Param {
	var params []ast.Param
	if !p.expectPeek(token.LPAREN) {
		return params
	}
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return params
	}
	p.nextToken()
	for {
		param := ast.Param{}
		if p.curTokenIs(token.BYVAL) {
			param.ByVal = true
			p.nextToken()
		}
		if !p.curTokenIs(token.IDENT) {
			p.addError("expected parameter name", ErrInvalidStatement)
			break
		}
		param.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
		if p.peekTokenIs(token.LPAREN) {
			param.IsArray = true
			p.nextToken()
			p.expectPeek(token.RPAREN)
		}
		if p.peekTokenIs(token.AS) {
			p.nextToken()
			param.TypeName = p.parseTypeNameAfterAs()
		}
		params = append(params, param)
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			p.nextToken()
			continue
		}
		break
	}
	p.expectPeek(token.RPAREN)
	return params
}

func (p *Parser) parseSubDeclStatement() ast.Statement {
	tok := p.curToken
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	name := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	params := p.parseParamList()
	stmt := &ast.SubDeclStatement{Token: tok, Name: name, Params: params}
	p.pushBlock("SUB", tok.Pos)
	p.nextToken()
	stmt.Body = p.parseBlockBody(token.END)
	p.popBlock()
	if p.curTokenIs(token.END) {
		if !p.expectPeek(token.SUB) {
			p.addError("expected SUB after END", ErrUnexpectedToken)
		}
	} else {
		p.addError("unterminated SUB block", ErrUnterminatedBlock)
	}
	return stmt
}

func (p *Parser) parseFunctionDeclStatement() ast.Statement {
	tok := p.curToken
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	name := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	params := p.parseParamList()
	stmt := &ast.FunctionDeclStatement{Token: tok, Name: name, Params: params}
	if p.peekTokenIs(token.AS) {
		p.nextToken()
		stmt.ReturnType = p.parseTypeNameAfterAs()
	}
	p.pushBlock("FUNCTION", tok.Pos)
	p.nextToken()
	stmt.Body = p.parseBlockBody(token.END)
	p.popBlock()
	if p.curTokenIs(token.END) {
		if !p.expectPeek(token.FUNCTION) {
			p.addError("expected FUNCTION after END", ErrUnexpectedToken)
		}
	} else {
		p.addError("unterminated FUNCTION block", ErrUnterminatedBlock)
	}
	return stmt
}

func (p *Parser) parseDeclareStatement() ast.Statement {
	tok := p.curToken
	isFunc := false
	if p.peekTokenIs(token.FUNCTION) {
		isFunc = true
		p.nextToken()
	} else if !p.expectPeek(token.SUB) {
		return nil
	}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	name := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	params := p.parseParamList()
	stmt := &ast.DeclareStatement{Token: tok, Name: name, Params: params, IsFunction: isFunc}
	if isFunc && p.peekTokenIs(token.AS) {
		p.nextToken()
		stmt.ReturnType = p.parseTypeNameAfterAs()
	}
	return stmt
}

func (p *Parser) parsePrintStatement() ast.Statement {
	tok := p.curToken
	stmt := &ast.PrintStatement{Token: tok}
	if p.peekTokenIs(token.HASH) {
		p.nextToken()
		p.nextToken()
		stmt.Channel = p.parseExpression(LOWEST)
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
		}
	}
	if p.peekTokenIs(token.EOL) || p.peekTokenIs(token.COLON) || p.peekTokenIs(token.EOF) {
		return stmt
	}
	for {
		p.nextToken()
		expr := p.parseExpression(LOWEST)
		sep := ast.SepNone
		if p.peekTokenIs(token.SEMICOLON) {
			sep = ast.SepSemicolon
			p.nextToken()
		} else if p.peekTokenIs(token.COMMA) {
			sep = ast.SepComma
			p.nextToken()
		}
		stmt.Items = append(stmt.Items, ast.PrintItem{Expr: expr, Sep: sep})
		if sep == ast.SepNone {
			break
		}
		if p.peekTokenIs(token.EOL) || p.peekTokenIs(token.COLON) || p.peekTokenIs(token.EOF) {
			stmt.SuppressNewline = true
			break
		}
	}
	return stmt
}

func (p *Parser) parseInputStatement() ast.Statement {
	tok := p.curToken
	stmt := &ast.InputStatement{Token: tok}
	if p.peekTokenIs(token.HASH) {
		p.nextToken()
		p.nextToken()
		stmt.Channel = p.parseExpression(LOWEST)
		p.expectPeek(token.COMMA)
	}
	if p.peekTokenIs(token.STRING) {
		p.nextToken()
		stmt.Prompt = &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
		if p.peekTokenIs(token.SEMICOLON) {
			stmt.PromptNoMark = true
			p.nextToken()
		} else if p.peekTokenIs(token.COMMA) {
			p.nextToken()
		}
	}
	p.nextToken()
	stmt.Targets = append(stmt.Targets, p.parsePrimaryChain())
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		stmt.Targets = append(stmt.Targets, p.parsePrimaryChain())
	}
	return stmt
}

func (p *Parser) parseLineInputStatement() ast.Statement {
	tok := p.curToken
	if !p.expectPeek(token.INPUT) {
		return nil
	}
	stmt := p.parseInputStatement().(*ast.InputStatement)
	stmt.Token = tok
	stmt.LineInput = true
	return stmt
}

func (p *Parser) parseDataStatement() ast.Statement {
	tok := p.curToken
	stmt := &ast.DataStatement{Token: tok}
	for {
		p.nextToken()
		item := ast.DataItem{}
		switch p.curToken.Type {
		case token.STRING:
			item.Kind = ast.DataString
			item.Raw = p.curToken.Literal
		case token.IDENT:
			item.Kind = ast.DataString
			item.Raw = p.curToken.Literal
		case token.MINUS:
			p.nextToken()
			item.Kind = ast.DataNumber
			item.Raw = "-" + p.curToken.Literal
		default:
			item.Kind = ast.DataNumber
			item.Raw = p.curToken.Literal
		}
		stmt.Items = append(stmt.Items, item)
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}
	return stmt
}

func (p *Parser) parseReadStatement() ast.Statement {
	tok := p.curToken
	stmt := &ast.ReadStatement{Token: tok}
	p.nextToken()
	stmt.Targets = append(stmt.Targets, p.parsePrimaryChain())
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		stmt.Targets = append(stmt.Targets, p.parsePrimaryChain())
	}
	return stmt
}

func (p *Parser) parseRestoreStatement() ast.Statement {
	tok := p.curToken
	stmt := &ast.RestoreStatement{Token: tok}
	if p.peekTokenIs(token.IDENT) || p.peekTokenIs(token.INT) {
		p.nextToken()
		stmt.Label = p.curToken.Literal
	}
	return stmt
}

func (p *Parser) parseRandomizeStatement() ast.Statement {
	tok := p.curToken
	stmt := &ast.RandomizeStatement{Token: tok}
	if !p.peekTokenIs(token.EOL) && !p.peekTokenIs(token.COLON) && !p.peekTokenIs(token.EOF) {
		p.nextToken()
		stmt.Seed = p.parseExpression(LOWEST)
	}
	return stmt
}

func (p *Parser) parseOpenStatement() ast.Statement {
	tok := p.curToken
	p.nextToken()
	path := p.parseExpression(LOWEST)
	if !p.expectPeek(token.FOR) {
		return nil
	}
	p.nextToken()
	mode := strings.ToUpper(p.curToken.Literal)
	if !p.expectPeek(token.AS) {
		return nil
	}
	if p.peekTokenIs(token.HASH) {
		p.nextToken()
	}
	p.nextToken()
	channel := p.parseExpression(LOWEST)
	return &ast.OpenStatement{Token: tok, Path: path, Mode: mode, Channel: channel}
}

func (p *Parser) parseCloseStatement() ast.Statement {
	tok := p.curToken
	stmt := &ast.CloseStatement{Token: tok}
	if p.peekTokenIs(token.EOL) || p.peekTokenIs(token.COLON) || p.peekTokenIs(token.EOF) {
		return stmt
	}
	for {
		if p.peekTokenIs(token.HASH) {
			p.nextToken()
		}
		p.nextToken()
		stmt.Channels = append(stmt.Channels, p.parseExpression(LOWEST))
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}
	return stmt
}

func (p *Parser) parseEndStatement() ast.Statement {
	return &ast.EndStatement{Token: p.curToken}
}

func (p *Parser) parseOptionBaseStatement() ast.Statement {
	tok := p.curToken
	if !p.expectPeek(token.BASE) {
		return nil
	}
	if !p.expectPeek(token.INT) {
		return nil
	}
	v, err := parseIntLiteralValue(p.curToken.Literal)
	if err != nil || (v != 0 && v != 1) {
		p.addError("OPTION BASE must be 0 or 1", ErrInvalidStatement)
	}
	return &ast.OptionBaseStatement{Token: tok, Base: int(v)}
}

package parser

import (
	"github.com/thirawat27/QB-COM/internal/ast"
	"github.com/thirawat27/QB-COM/pkg/token"
)

// parseSingleLineStatements parses a run of COLON-separated statements on
// one logical line, stopping at EOL, EOF, or ELSE without consuming it.
func (p *Parser) parseSingleLineStatements() []ast.Statement {
	var stmts []ast.Statement
	for {
		if p.curTokenIs(token.EOL) || p.curTokenIs(token.EOF) || p.curTokenIs(token.ELSE) {
			break
		}
		stmt := p.parseStatement()
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
		if !p.curTokenIs(token.EOL) && !p.curTokenIs(token.COLON) &&
			!p.curTokenIs(token.EOF) && !p.curTokenIs(token.ELSE) {
			p.nextToken()
		}
		if p.curTokenIs(token.COLON) {
			p.nextToken()
			continue
		}
		break
	}
	return stmts
}

// parseIfStatement handles both IF...THEN stmt [ELSE stmt] on one line and
// the block IF...THEN / ELSEIF / ELSE / END IF form; which applies is
// decided by whether THEN is immediately followed by end-of-line.
func (p *Parser) parseIfStatement() ast.Statement {
	tok := p.curToken
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	if !p.expectPeek(token.THEN) {
		return nil
	}
	stmt := &ast.IfStatement{Token: tok, Cond: cond}

	if p.peekTokenIs(token.EOL) {
		p.pushBlock("IF", tok.Pos)
		p.nextToken()
		stmt.Then = p.parseBlockBody(token.ELSEIF, token.ELSE, token.END)
		for p.curTokenIs(token.ELSEIF) {
			p.nextToken()
			eCond := p.parseExpression(LOWEST)
			if !p.expectPeek(token.THEN) {
				break
			}
			p.nextToken()
			body := p.parseBlockBody(token.ELSEIF, token.ELSE, token.END)
			stmt.ElseIfs = append(stmt.ElseIfs, ast.ElseIfClause{Cond: eCond, Body: body})
		}
		if p.curTokenIs(token.ELSE) {
			p.nextToken()
			stmt.Else = p.parseBlockBody(token.END)
		}
		p.popBlock()
		if p.curTokenIs(token.END) {
			if !p.expectPeek(token.IF) {
				p.addError("expected IF after END", ErrUnexpectedToken)
			}
		} else {
			p.addError("unterminated IF block: expected END IF", ErrUnterminatedBlock)
		}
		return stmt
	}

	stmt.SingleLine = true
	p.nextToken()
	stmt.Then = p.parseSingleLineStatements()
	if p.curTokenIs(token.ELSE) {
		p.nextToken()
		stmt.Else = p.parseSingleLineStatements()
	}
	return stmt
}

func (p *Parser) parseCaseGuard() ast.CaseGuard {
	if p.curTokenIs(token.IS) {
		p.nextToken()
		op := p.curToken.Type
		p.nextToken()
		val := p.parseExpression(LOWEST)
		return ast.CaseGuard{Kind: ast.CaseGuardRelational, RelOp: op, Value: val}
	}
	val := p.parseExpression(LOWEST)
	if p.peekTokenIs(token.TO) {
		p.nextToken()
		p.nextToken()
		end := p.parseExpression(LOWEST)
		return ast.CaseGuard{Kind: ast.CaseGuardRange, Value: val, RangeEnd: end}
	}
	return ast.CaseGuard{Kind: ast.CaseGuardValue, Value: val}
}

func (p *Parser) parseSelectCaseStatement() ast.Statement {
	tok := p.curToken
	if !p.expectPeek(token.CASE) {
		return nil
	}
	p.nextToken()
	subject := p.parseExpression(LOWEST)
	stmt := &ast.SelectCaseStatement{Token: tok, Subject: subject}
	p.pushBlock("SELECT CASE", tok.Pos)
	p.nextToken()
	p.skipStatementSeparators()
	for p.curTokenIs(token.CASE) {
		if p.peekTokenIs(token.ELSE) {
			p.nextToken()
			p.nextToken()
			stmt.ElseBody = p.parseBlockBody(token.END)
			break
		}
		p.nextToken()
		clause := ast.CaseClause{}
		for {
			clause.Guards = append(clause.Guards, p.parseCaseGuard())
			if p.peekTokenIs(token.COMMA) {
				p.nextToken()
				p.nextToken()
				continue
			}
			break
		}
		p.nextToken()
		clause.Body = p.parseBlockBody(token.CASE, token.END)
		stmt.Cases = append(stmt.Cases, clause)
	}
	p.popBlock()
	if p.curTokenIs(token.END) {
		if !p.expectPeek(token.SELECT) {
			p.addError("expected SELECT after END", ErrUnexpectedToken)
		}
	} else {
		p.addError("unterminated SELECT CASE block: expected END SELECT", ErrUnterminatedBlock)
	}
	return stmt
}

func (p *Parser) parseForStatement() ast.Statement {
	tok := p.curToken
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	varIdent := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	if !p.expectPeek(token.EQ) {
		return nil
	}
	p.nextToken()
	start := p.parseExpression(LOWEST)
	if !p.expectPeek(token.TO) {
		return nil
	}
	p.nextToken()
	end := p.parseExpression(LOWEST)
	stmt := &ast.ForStatement{Token: tok, Var: varIdent, Start: start, End: end}
	if p.peekTokenIs(token.STEP) {
		p.nextToken()
		p.nextToken()
		stmt.Step = p.parseExpression(LOWEST)
	}
	p.pushBlock("FOR", tok.Pos)
	p.nextToken()
	stmt.Body = p.parseBlockBody(token.NEXT)
	p.popBlock()
	if p.curTokenIs(token.NEXT) {
		if p.peekTokenIs(token.IDENT) {
			p.nextToken()
		}
	} else {
		p.addError("unterminated FOR block: expected NEXT", ErrUnterminatedBlock)
	}
	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	tok := p.curToken
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	stmt := &ast.WhileStatement{Token: tok, Cond: cond}
	p.pushBlock("WHILE", tok.Pos)
	p.nextToken()
	stmt.Body = p.parseBlockBody(token.WEND)
	p.popBlock()
	if !p.curTokenIs(token.WEND) {
		p.addError("unterminated WHILE block: expected WEND", ErrUnterminatedBlock)
	}
	return stmt
}

func (p *Parser) parseDoLoopStatement() ast.Statement {
	tok := p.curToken
	stmt := &ast.DoLoopStatement{Token: tok}
	switch {
	case p.peekTokenIs(token.WHILE):
		p.nextToken()
		p.nextToken()
		stmt.PreKind = ast.DoLoopWhile
		stmt.PreCond = p.parseExpression(LOWEST)
	case p.peekTokenIs(token.UNTIL):
		p.nextToken()
		p.nextToken()
		stmt.PreKind = ast.DoLoopUntil
		stmt.PreCond = p.parseExpression(LOWEST)
	}
	p.pushBlock("DO", tok.Pos)
	p.nextToken()
	stmt.Body = p.parseBlockBody(token.LOOP)
	p.popBlock()
	if !p.curTokenIs(token.LOOP) {
		p.addError("unterminated DO block: expected LOOP", ErrUnterminatedBlock)
		return stmt
	}
	switch {
	case p.peekTokenIs(token.WHILE):
		p.nextToken()
		p.nextToken()
		stmt.PostKind = ast.DoLoopWhile
		stmt.PostCond = p.parseExpression(LOWEST)
	case p.peekTokenIs(token.UNTIL):
		p.nextToken()
		p.nextToken()
		stmt.PostKind = ast.DoLoopUntil
		stmt.PostCond = p.parseExpression(LOWEST)
	}
	return stmt
}

func (p *Parser) parseExitStatement() ast.Statement {
	tok := p.curToken
	stmt := &ast.ExitStatement{Token: tok}
	switch {
	case p.peekTokenIs(token.FOR):
		p.nextToken()
		stmt.Kind = ast.ExitFor
	case p.peekTokenIs(token.DO):
		p.nextToken()
		stmt.Kind = ast.ExitDo
	case p.peekTokenIs(token.SUB):
		p.nextToken()
		stmt.Kind = ast.ExitSub
	case p.peekTokenIs(token.FUNCTION):
		p.nextToken()
		stmt.Kind = ast.ExitFunction
	default:
		p.addError("expected FOR, DO, SUB, or FUNCTION after EXIT", ErrUnexpectedToken)
	}
	return stmt
}

func (p *Parser) parseGotoStatement() ast.Statement {
	tok := p.curToken
	if !p.peekTokenIs(token.IDENT) && !p.peekTokenIs(token.INT) {
		p.addError("expected a label or line number after GOTO", ErrUnexpectedToken)
		return &ast.GotoStatement{Token: tok}
	}
	p.nextToken()
	return &ast.GotoStatement{Token: tok, Target: p.curToken.Literal}
}

func (p *Parser) parseGosubStatement() ast.Statement {
	tok := p.curToken
	if !p.peekTokenIs(token.IDENT) && !p.peekTokenIs(token.INT) {
		p.addError("expected a label or line number after GOSUB", ErrUnexpectedToken)
		return &ast.GosubStatement{Token: tok}
	}
	p.nextToken()
	return &ast.GosubStatement{Token: tok, Target: p.curToken.Literal}
}

func (p *Parser) parseReturnStatement() ast.Statement {
	tok := p.curToken
	stmt := &ast.ReturnStatement{Token: tok}
	if p.peekTokenIs(token.IDENT) || p.peekTokenIs(token.INT) {
		p.nextToken()
		stmt.Target = p.curToken.Literal
	}
	return stmt
}

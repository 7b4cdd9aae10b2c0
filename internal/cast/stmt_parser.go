package cast

import "github.com/hkoba/libperl-macrogen-sub001/internal/token"

// parseTopLevelStmt is the entry point used when a macro body fails to
// parse as a single expression. It also unwraps the STMT_START { ... }
// STMT_END and do { ... } while (0) idioms into a plain CompoundStmt, since
// neither wrapper carries any control-flow meaning of its own.
func (p *parser) parseTopLevelStmt() Stmt {
	if s, ok := p.tryStmtStartWrapper(); ok {
		return s
	}
	if s, ok := p.tryDoWhileZero(); ok {
		return s
	}
	return p.parseStmt()
}

func (p *parser) tryStmtStartWrapper() (Stmt, bool) {
	if !p.isKeyword("STMT_START") {
		return nil, false
	}
	save := p.pos
	p.next()
	if p.peek().Kind != token.LBrace {
		p.pos = save
		return nil, false
	}
	body := p.parseCompound()
	if !p.isKeyword("STMT_END") {
		p.pos = save
		return nil, false
	}
	p.next()
	return body, true
}

func (p *parser) tryDoWhileZero() (Stmt, bool) {
	if !p.isKeyword("do") {
		return nil, false
	}
	save := p.pos
	p.next()
	if p.peek().Kind != token.LBrace {
		p.pos = save
		return nil, false
	}
	body := p.parseCompound()
	if !p.isKeyword("while") {
		p.pos = save
		return nil, false
	}
	p.next()
	if p.peek().Kind != token.LParen {
		p.pos = save
		return nil, false
	}
	p.next()
	cond := p.parseComma()
	p.expect(token.RParen)
	lit, isZero := cond.(*IntLitExpr)
	if !isZero || (lit.Text != "0" && lit.Text != "0L" && lit.Text != "0UL") {
		p.pos = save
		return nil, false
	}
	if p.peek().Kind == token.Semicolon {
		p.next()
	}
	return body, true
}

func (p *parser) parseStmt() Stmt {
	t := p.peek()
	switch {
	case t.Kind == token.LBrace:
		return p.parseCompound()
	case t.Kind == token.Semicolon:
		p.next()
		return &ExprStmt{Id: p.stmtID(), Loc: t.Loc.Position}
	case t.Kind == token.Ident && t.Text == "if":
		return p.parseIf()
	case t.Kind == token.Ident && t.Text == "while":
		return p.parseWhile()
	case t.Kind == token.Ident && t.Text == "do":
		return p.parseDoWhile()
	case t.Kind == token.Ident && t.Text == "for":
		return p.parseFor()
	case t.Kind == token.Ident && t.Text == "switch":
		return p.parseSwitch()
	case t.Kind == token.Ident && t.Text == "case":
		return p.parseCase()
	case t.Kind == token.Ident && t.Text == "default":
		return p.parseDefault()
	case t.Kind == token.Ident && t.Text == "return":
		return p.parseReturn()
	case t.Kind == token.Ident && t.Text == "break":
		p.next()
		p.consumeSemicolon()
		return &BreakStmt{Id: p.stmtID(), Loc: t.Loc.Position}
	case t.Kind == token.Ident && t.Text == "continue":
		p.next()
		p.consumeSemicolon()
		return &ContinueStmt{Id: p.stmtID(), Loc: t.Loc.Position}
	case t.Kind == token.Ident && t.Text == "goto":
		p.next()
		label := p.expect(token.Ident)
		p.consumeSemicolon()
		return &GotoStmt{Id: p.stmtID(), Loc: t.Loc.Position, Label: label.Text}
	case t.Kind == token.Ident && p.peekAt(1).Kind == token.Colon && !isStmtKeyword(t.Text):
		p.next()
		p.next() // ':'
		inner := p.parseStmt()
		return &LabelStmt{Id: p.stmtID(), Loc: t.Loc.Position, Name: t.Text, Inner: inner}
	}
	if d, ok := p.tryDecl(); ok {
		return d
	}
	e := p.parseComma()
	p.consumeSemicolon()
	return &ExprStmt{Id: p.stmtID(), Loc: exprLoc(e), X: e}
}

func isStmtKeyword(s string) bool {
	switch s {
	case "if", "while", "do", "for", "switch", "case", "default", "return",
		"break", "continue", "goto", "sizeof":
		return true
	}
	return false
}

func (p *parser) consumeSemicolon() {
	if p.peek().Kind == token.Semicolon {
		p.next()
	}
}

func (p *parser) parseCompound() Stmt {
	loc := p.peek().Loc.Position
	p.expect(token.LBrace)
	var items []Stmt
	for p.peek().Kind != token.RBrace {
		if p.atEnd() {
			fail("unterminated compound statement")
		}
		items = append(items, p.parseStmt())
	}
	p.expect(token.RBrace)
	return &CompoundStmt{Id: p.stmtID(), Loc: loc, Items: items}
}

func (p *parser) parseIf() Stmt {
	loc := p.peek().Loc.Position
	p.next() // "if"
	p.expect(token.LParen)
	cond := p.parseComma()
	p.expect(token.RParen)
	then := p.parseStmt()
	var els Stmt
	if p.isKeyword("else") {
		p.next()
		els = p.parseStmt()
	}
	return &IfStmt{Id: p.stmtID(), Loc: loc, Cond: cond, Then: then, Else: els}
}

func (p *parser) parseWhile() Stmt {
	loc := p.peek().Loc.Position
	p.next() // "while"
	p.expect(token.LParen)
	cond := p.parseComma()
	p.expect(token.RParen)
	body := p.parseStmt()
	return &WhileStmt{Id: p.stmtID(), Loc: loc, Cond: cond, Body: body}
}

func (p *parser) parseDoWhile() Stmt {
	loc := p.peek().Loc.Position
	p.next() // "do"
	body := p.parseStmt()
	if !p.isKeyword("while") {
		fail("expected 'while' after do-statement body")
	}
	p.next()
	p.expect(token.LParen)
	cond := p.parseComma()
	p.expect(token.RParen)
	p.consumeSemicolon()
	return &DoWhileStmt{Id: p.stmtID(), Loc: loc, Body: body, Cond: cond}
}

func (p *parser) parseFor() Stmt {
	loc := p.peek().Loc.Position
	p.next() // "for"
	p.expect(token.LParen)

	var init Stmt
	if p.peek().Kind != token.Semicolon {
		if d, ok := p.tryDecl(); ok {
			init = d
		} else {
			e := p.parseComma()
			init = &ExprStmt{Id: p.stmtID(), Loc: exprLoc(e), X: e}
			p.expect(token.Semicolon)
		}
	} else {
		p.next()
	}

	var cond Expr
	if p.peek().Kind != token.Semicolon {
		cond = p.parseComma()
	}
	p.expect(token.Semicolon)

	var post Expr
	if p.peek().Kind != token.RParen {
		post = p.parseComma()
	}
	p.expect(token.RParen)

	body := p.parseStmt()
	return &ForStmt{Id: p.stmtID(), Loc: loc, Init: init, Cond: cond, Post: post, Body: body}
}

func (p *parser) parseSwitch() Stmt {
	loc := p.peek().Loc.Position
	p.next() // "switch"
	p.expect(token.LParen)
	tag := p.parseComma()
	p.expect(token.RParen)
	body := p.parseStmt()
	return &SwitchStmt{Id: p.stmtID(), Loc: loc, Tag: tag, Body: body}
}

func (p *parser) parseCase() Stmt {
	loc := p.peek().Loc.Position
	p.next() // "case"
	val := p.parseConditional()
	p.expect(token.Colon)
	body := p.parseStmt()
	return &CaseStmt{Id: p.stmtID(), Loc: loc, Value: val, Body: body}
}

func (p *parser) parseDefault() Stmt {
	loc := p.peek().Loc.Position
	p.next() // "default"
	p.expect(token.Colon)
	body := p.parseStmt()
	return &CaseStmt{Id: p.stmtID(), Loc: loc, Body: body}
}

func (p *parser) parseReturn() Stmt {
	loc := p.peek().Loc.Position
	p.next() // "return"
	var x Expr
	if p.peek().Kind != token.Semicolon {
		x = p.parseComma()
	}
	p.consumeSemicolon()
	return &ReturnStmt{Id: p.stmtID(), Loc: loc, X: x}
}

// tryDecl recognizes a minimal declaration shape: one or more type-like
// identifiers, a name, and an optional initializer. It is intentionally
// narrow (spec.md §2 Non-goals: no arbitrary C declarator grammar).
func (p *parser) tryDecl() (Stmt, bool) {
	save := p.pos
	loc := p.peek().Loc.Position
	var typeParts []string
	for p.peek().Kind == token.Ident && looksTypeLike(append(append([]string{}, typeParts...), p.peek().Text)) {
		typeParts = append(typeParts, p.peek().Text)
		p.next()
		for p.peek().Kind == token.Star {
			typeParts = append(typeParts, "*")
			p.next()
		}
	}
	if len(typeParts) == 0 || p.peek().Kind != token.Ident {
		p.pos = save
		return nil, false
	}
	name := p.next()
	var init Expr
	if p.peek().Kind == token.Assign {
		p.next()
		init = p.parseAssign()
	}
	if p.peek().Kind != token.Semicolon {
		p.pos = save
		return nil, false
	}
	p.next()
	return &DeclStmt{
		Id:       p.stmtID(),
		Loc:      loc,
		TypeName: joinTypeName(typeParts),
		Name:     p.ident(name.Text),
		Init:     init,
	}, true
}

func joinTypeName(parts []string) string {
	out := ""
	for i, s := range parts {
		if i > 0 && s != "*" {
			out += " "
		}
		out += s
	}
	return out
}

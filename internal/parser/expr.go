package parser

import (
	"strconv"

	"bmb/internal/ast"
	"bmb/internal/token"
)

// precedence table, low to high:
//   || , && , ==/!= , </>/<=/>= , <</>> , +/- , */  %, unary -/!, postfix . [] ()
func binOpPrec(k token.Kind) (prec int, ok bool) {
	switch k {
	case token.OROR:
		return 1, true
	case token.ANDAND:
		return 2, true
	case token.EQEQ, token.NEQ:
		return 3, true
	case token.Kind('<'), token.Kind('>'), token.LE, token.GE:
		return 4, true
	case token.SHL, token.SHR:
		return 5, true
	case token.Kind('+'), token.Kind('-'):
		return 6, true
	case token.Kind('*'), token.Kind('/'), token.Kind('%'):
		return 7, true
	}
	return 0, false
}

func opText(k token.Kind) string {
	if k < 256 {
		return string(rune(k))
	}
	return k.String()
}

// parseExpr parses a full expression via precedence climbing.
func (p *Parser) parseExpr() ast.Expr {
	return p.parseBinary(1)
}

func (p *Parser) parseBinary(minPrec int) ast.Expr {
	left := p.parseUnary()
	for {
		prec, ok := binOpPrec(p.cur().Kind)
		if !ok || prec < minPrec {
			return left
		}
		opTok := p.advance()
		right := p.parseBinary(prec + 1)
		left = &ast.Binary{
			Base: ast.Spanned(joinSpan(left.Span(), right.Span())),
			Op:   opText(opTok.Kind),
			L:    left,
			R:    right,
		}
	}
}

func (p *Parser) parseUnary() ast.Expr {
	if p.check(token.Kind('-')) || p.check(token.Kind('!')) {
		opTok := p.advance()
		x := p.parseUnary()
		return &ast.Unary{Base: ast.Spanned(joinSpan(opTok.Span, x.Span())), Op: opText(opTok.Kind), X: x}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Expr {
	e := p.parsePrimary()
	for {
		switch {
		case p.check(token.Kind('.')):
			p.advance()
			field := p.expect(token.IDENT, "field name")
			e = &ast.FieldAccess{Base: ast.Spanned(joinSpan(e.Span(), field.Span)), X: e, Field: field.Lexeme}
		case p.check(token.Kind('[')):
			p.advance()
			idx := p.parseExpr()
			end := p.expect(token.Kind(']'), "']'")
			e = &ast.Index{Base: ast.Spanned(joinSpan(e.Span(), end.Span)), X: e, Idx: idx}
		case p.check(token.Kind('(')):
			p.advance()
			var args []ast.Expr
			for !p.check(token.Kind(')')) && !p.atEOF() {
				args = append(args, p.parseExpr())
				if _, ok := p.accept(token.Kind(',')); !ok {
					break
				}
			}
			end := p.expect(token.Kind(')'), "')'")
			e = &ast.Call{Base: ast.Spanned(joinSpan(e.Span(), end.Span)), Callee: e, Args: args}
		default:
			return e
		}
	}
}

func (p *Parser) parsePrimary() ast.Expr {
	switch p.cur().Kind {
	case token.INT:
		t := p.advance()
		v, _ := strconv.ParseInt(t.Lexeme, 10, 64)
		return &ast.IntLit{Base: ast.Spanned(t.Span), Value: v}
	case token.FLOAT:
		t := p.advance()
		v, _ := strconv.ParseFloat(t.Lexeme, 64)
		return &ast.FloatLit{Base: ast.Spanned(t.Span), Value: v}
	case token.TRUE:
		t := p.advance()
		return &ast.BoolLit{Base: ast.Spanned(t.Span), Value: true}
	case token.FALSE:
		t := p.advance()
		return &ast.BoolLit{Base: ast.Spanned(t.Span), Value: false}
	case token.STRING:
		t := p.advance()
		return &ast.StringLit{Base: ast.Spanned(t.Span), Value: unescape(t.Lexeme)}
	case token.IDENT:
		return p.parseIdentStartExpr()
	case token.Kind('('):
		p.advance()
		e := p.parseExpr()
		if _, ok := p.accept(token.Kind(')')); !ok {
			p.expect(token.Kind(')'), "')'")
		}
		return e
	case token.Kind('{'):
		return p.parseBlock()
	case token.IF:
		return p.parseIf()
	case token.MATCH:
		return p.parseMatch()
	case token.LET, token.VAR:
		return p.parseLet()
	case token.FN:
		return p.parseClosureFnForm()
	case token.Kind('|'):
		return p.parseClosurePipeForm()
	default:
		p.unexpected("expression")
		t := p.advance()
		return &ast.UnitLit{Base: ast.Spanned(t.Span)}
	}
}

// parseIdentStartExpr handles the ambiguity between a plain identifier,
// `Enum::Variant(args)` constructors, and `Name { field: val, … }` struct
// literals — all of which begin with IDENT.
func (p *Parser) parseIdentStartExpr() ast.Expr {
	first := p.advance()
	if _, ok := p.accept(token.PATHSEP); ok {
		variant := p.expect(token.IDENT, "enum variant name")
		var args []ast.Expr
		if _, ok := p.accept(token.Kind('(')); ok {
			for !p.check(token.Kind(')')) && !p.atEOF() {
				args = append(args, p.parseExpr())
				if _, ok := p.accept(token.Kind(',')); !ok {
					break
				}
			}
			p.expect(token.Kind(')'), "')'")
		}
		return &ast.EnumCtor{Base: ast.Spanned(joinSpan(first.Span, p.lastSpan())), Enum: first.Lexeme, Variant: variant.Lexeme, Args: args}
	}
	if first.Lexeme == "Some" || first.Lexeme == "None" {
		var args []ast.Expr
		if _, ok := p.accept(token.Kind('(')); ok {
			for !p.check(token.Kind(')')) && !p.atEOF() {
				args = append(args, p.parseExpr())
				if _, ok := p.accept(token.Kind(',')); !ok {
					break
				}
			}
			p.expect(token.Kind(')'), "')'")
		}
		return &ast.EnumCtor{Base: ast.Spanned(joinSpan(first.Span, p.lastSpan())), Enum: "Option", Variant: first.Lexeme, Args: args}
	}
	if p.check(token.Kind('{')) && p.isStructLitLookahead() {
		return p.parseStructLit(first)
	}
	return &ast.Var{Base: ast.Spanned(first.Span), Name: first.Lexeme}
}

// isStructLitLookahead disambiguates `Name { … }` struct literals from a
// following block belonging to e.g. an if-condition identifier; a struct
// literal's brace is immediately followed by `ident :` or `}`.
func (p *Parser) isStructLitLookahead() bool {
	if p.noStructLit > 0 {
		return false
	}
	if p.peekAt(1).Kind == token.Kind('}') {
		return true
	}
	return p.peekAt(1).Kind == token.IDENT && p.peekAt(2).Kind == token.Kind(':')
}

func (p *Parser) parseStructLit(name token.Token) ast.Expr {
	p.expect(token.Kind('{'), "'{'")
	var fields []ast.FieldInit
	for !p.check(token.Kind('}')) && !p.atEOF() {
		fname := p.expect(token.IDENT, "field name").Lexeme
		p.expect(token.Kind(':'), "':'")
		val := p.parseExpr()
		fields = append(fields, ast.FieldInit{Name: fname, Value: val})
		if _, ok := p.accept(token.Kind(',')); !ok {
			break
		}
	}
	end := p.expect(token.Kind('}'), "'}'")
	return &ast.StructLit{Base: ast.Spanned(joinSpan(name.Span, end.Span)), Name: name.Lexeme, Fields: fields}
}

// parseBlock parses a brace-delimited sequence of expressions, e.g.
// `{ println(1); 0 }`. Each statement but the last is typically separated by
// `;`; the last expression (if any) is the block's value.
func (p *Parser) parseBlock() *ast.Block {
	start := p.span()
	p.expect(token.Kind('{'), "'{'")
	var stmts []ast.Expr
	for !p.check(token.Kind('}')) && !p.atEOF() && !isItemStart(p.cur().Kind) {
		// `let`/`var` thread the rest of the block into their Body, so when
		// one appears mid-block it swallows everything after it.
		if p.check(token.LET) || p.check(token.VAR) {
			stmts = append(stmts, p.parseLetInBlock())
			break
		}
		stmts = append(stmts, p.parseExpr())
		if _, ok := p.accept(token.Kind(';')); !ok {
			break
		}
	}
	end := p.expect(token.Kind('}'), "'}' to close block")
	return &ast.Block{Base: ast.Spanned(joinSpan(start, end.Span)), Stmts: stmts}
}

// parseLetInBlock parses a `let`/`var` binding whose Body is the remainder
// of the enclosing block.
func (p *Parser) parseLetInBlock() ast.Expr {
	start := p.span()
	mutable := p.check(token.VAR)
	p.advance() // 'let' or 'var'
	name := p.expect(token.IDENT, "binding name").Lexeme
	var typeAnn ast.TypeExpr
	if _, ok := p.accept(token.Kind(':')); ok {
		typeAnn = p.parseType()
	}
	p.expect(token.Kind('='), "'=' in binding")
	value := p.parseExpr()
	p.accept(token.Kind(';'))

	var rest []ast.Expr
	for !p.check(token.Kind('}')) && !p.atEOF() && !isItemStart(p.cur().Kind) {
		if p.check(token.LET) || p.check(token.VAR) {
			rest = append(rest, p.parseLetInBlock())
			break
		}
		rest = append(rest, p.parseExpr())
		if _, ok := p.accept(token.Kind(';')); !ok {
			break
		}
	}
	var body ast.Expr
	switch len(rest) {
	case 0:
		body = &ast.UnitLit{Base: ast.Spanned(p.span())}
	case 1:
		body = rest[0]
	default:
		body = &ast.Block{Base: ast.Spanned(joinSpan(rest[0].Span(), rest[len(rest)-1].Span())), Stmts: rest}
	}
	return &ast.Let{
		Base: ast.Spanned(joinSpan(start, body.Span())),
		Name: name, Mutable: mutable, TypeAnn: typeAnn, Value: value, Body: body,
	}
}

// parseLet parses a standalone `let`/`var` expression outside block context
// (e.g. as a function's whole single-expression body); the remainder is
// taken to be a trailing `;`-separated expression if present, else unit.
func (p *Parser) parseLet() ast.Expr { return p.parseLetInBlock() }

func (p *Parser) parseIf() ast.Expr {
	start := p.span()
	p.expect(token.IF, "'if'")
	cond := p.parseExprNoStructLit()
	then := p.parseBlock()
	var els ast.Expr
	if _, ok := p.accept(token.ELSE); ok {
		if p.check(token.IF) {
			els = p.parseIf()
		} else {
			els = p.parseBlock()
		}
	}
	end := p.lastSpan()
	return &ast.If{Base: ast.Spanned(joinSpan(start, end)), Cond: cond, Then: then, Else: els}
}

// parseExprNoStructLit parses an expression while suppressing the
// `Name { … }` struct-literal interpretation, so `if cond { … }` doesn't
// misparse `cond {` as a struct literal.
func (p *Parser) parseExprNoStructLit() ast.Expr {
	p.noStructLit++
	defer func() { p.noStructLit-- }()
	return p.parseExpr()
}

func (p *Parser) parseMatch() ast.Expr {
	start := p.span()
	p.expect(token.MATCH, "'match'")
	scrutinee := p.parseExprNoStructLit()
	p.expect(token.Kind('{'), "'{' to start match arms")
	var arms []ast.MatchArm
	for !p.check(token.Kind('}')) && !p.atEOF() {
		pat := p.parsePattern()
		p.expect(token.FATARR, "'=>'")
		body := p.parseExpr()
		arms = append(arms, ast.MatchArm{Pat: pat, Body: body})
		if _, ok := p.accept(token.Kind(',')); !ok {
			break
		}
	}
	end := p.expect(token.Kind('}'), "'}' to close match")
	return &ast.Match{Base: ast.Spanned(joinSpan(start, end.Span)), Scrutinee: scrutinee, Arms: arms}
}

func (p *Parser) parsePattern() ast.Pattern {
	start := p.span()
	if p.check(token.IDENT) && p.cur().Lexeme == "_" {
		p.advance()
		return &ast.WildcardPattern{Base: ast.Spanned(start)}
	}
	switch p.cur().Kind {
	case token.INT, token.FLOAT, token.STRING, token.TRUE, token.FALSE:
		v := p.parsePrimary()
		return &ast.LitPattern{Base: ast.Spanned(joinSpan(start, v.Span())), Value: v}
	case token.IDENT:
		name := p.advance()
		if _, ok := p.accept(token.Kind('(')); ok {
			var binds []string
			for !p.check(token.Kind(')')) && !p.atEOF() {
				binds = append(binds, p.expect(token.IDENT, "bind name").Lexeme)
				if _, ok := p.accept(token.Kind(',')); !ok {
					break
				}
			}
			end := p.expect(token.Kind(')'), "')'")
			return &ast.CtorPattern{Base: ast.Spanned(joinSpan(start, end.Span)), Variant: name.Lexeme, Binds: binds}
		}
		return &ast.VarPattern{Base: ast.Spanned(name.Span), Name: name.Lexeme}
	default:
		p.unexpected("pattern")
		t := p.advance()
		return &ast.WildcardPattern{Base: ast.Spanned(t.Span)}
	}
}

// parseClosureFnForm parses `fn(params) -> ret = body` as an expression
// (anonymous, no name).
func (p *Parser) parseClosureFnForm() ast.Expr {
	start := p.span()
	p.expect(token.FN, "'fn'")
	params := p.parseParams()
	var ret ast.TypeExpr
	if _, ok := p.accept(token.ARROW); ok {
		ret = p.parseType()
	}
	p.expect(token.Kind('='), "'=' before closure body")
	body := p.parseFnBody()
	return &ast.Closure{Base: ast.Spanned(joinSpan(start, body.Span())), Params: params, RetType: ret, Body: body}
}

// parseClosurePipeForm parses `|params| body`.
func (p *Parser) parseClosurePipeForm() ast.Expr {
	start := p.span()
	p.expect(token.Kind('|'), "'|'")
	var params []ast.Param
	for !p.check(token.Kind('|')) && !p.atEOF() {
		name := p.expect(token.IDENT, "parameter name").Lexeme
		var typ ast.TypeExpr
		if _, ok := p.accept(token.Kind(':')); ok {
			typ = p.parseType()
		}
		params = append(params, ast.Param{Name: name, Type: typ})
		if _, ok := p.accept(token.Kind(',')); !ok {
			break
		}
	}
	p.expect(token.Kind('|'), "closing '|'")
	body := p.parseExpr()
	return &ast.Closure{Base: ast.Spanned(joinSpan(start, body.Span())), Params: params, Body: body}
}

func unescape(s string) string {
	var out []rune
	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		if rs[i] == '\\' && i+1 < len(rs) {
			i++
			switch rs[i] {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case '"':
				out = append(out, '"')
			case '\\':
				out = append(out, '\\')
			default:
				out = append(out, rs[i])
			}
			continue
		}
		out = append(out, rs[i])
	}
	return string(out)
}

// Package parser turns a BMB token stream into an AST using a hand-written
// recursive-descent parser with Pratt-style precedence climbing for
// expressions. Parse errors are collected as diagnostics rather than
// raised as panics; on a malformed item the parser recovers by skipping
// forward to the next top-level item boundary so one bad declaration
// doesn't abort the whole parse.
package parser

import (
	"bmb/internal/ast"
	"bmb/internal/diag"
	"bmb/internal/lexer"
	"bmb/internal/token"
)

// Parser holds the token buffer and parse position.
type Parser struct {
	toks []token.Token
	pos  int
	rep  *diag.Report

	// noStructLit suppresses `Name { … }` struct-literal parsing while
	// parsing an if/match condition, where `{` instead opens the branch
	// block or arm list.
	noStructLit int
}

// Parse lexes and parses src, returning the AST and a diagnostic report.
// The AST returned may be partial if the report has fatal errors.
func Parse(src string) (*ast.Program, *diag.Report) {
	rep := diag.NewReport()
	toks, err := lexer.All(src)
	if err != nil {
		rep.Errorf(diag.Lex, diag.UnknownCharacter, token.Span{}, "%s", err)
		return nil, rep
	}
	p := &Parser{toks: toks, rep: rep}
	return p.parseProgram(), rep
}

func (p *Parser) parseProgram() *ast.Program {
	start := p.span()
	var items []ast.Item
	for !p.atEOF() {
		it := p.parseItem()
		if it != nil {
			items = append(items, it)
		}
	}
	return ast.NewProgram(joinSpan(start, p.span()), items)
}

// ---- token stream helpers -------------------------------------------------

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) peekAt(n int) token.Token {
	idx := p.pos + n
	if idx >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[idx]
}

func (p *Parser) span() token.Span { return p.cur().Span }

func (p *Parser) atEOF() bool { return p.cur().Kind == token.EOF }

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) check(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) accept(k token.Kind) (token.Token, bool) {
	if p.check(k) {
		return p.advance(), true
	}
	return token.Token{}, false
}

// expect consumes a token of kind k or records an ExpectedToken diagnostic.
func (p *Parser) expect(k token.Kind, what string) token.Token {
	if t, ok := p.accept(k); ok {
		return t
	}
	p.rep.Errorf(diag.Parse, diag.ExpectedToken, p.span(), "expected %s, found %s %q", what, p.cur().Kind, p.cur().Lexeme)
	return p.cur()
}

func (p *Parser) unexpected(what string) {
	p.rep.Errorf(diag.Parse, diag.UnexpectedToken, p.span(), "unexpected %s while parsing %s", p.cur().Kind, what)
}

// syncToNextItem recovers from a malformed item by skipping tokens until
// one that can start a new item, or EOF.
func (p *Parser) syncToNextItem() {
	for !p.atEOF() {
		switch p.cur().Kind {
		case token.FN, token.STRUCT, token.ENUM, token.TRAIT, token.IMPL, token.TYPE_KW:
			return
		}
		p.advance()
	}
}

// isItemStart reports whether k can begin a top-level item; used as a
// safety net so a `let` body without an enclosing brace never swallows a
// following top-level declaration.
func isItemStart(k token.Kind) bool {
	switch k {
	case token.FN, token.STRUCT, token.ENUM, token.TRAIT, token.IMPL, token.TYPE_KW:
		return true
	}
	return false
}

func joinSpan(a, b token.Span) token.Span {
	return token.Span{Start: a.Start, End: b.End, Line: a.Line, Col: a.Col}
}

// ---- items -----------------------------------------------------------

func (p *Parser) parseItem() ast.Item {
	start := p.span()
	switch p.cur().Kind {
	case token.FN:
		return p.parseFnDef()
	case token.STRUCT:
		return p.parseStructDef()
	case token.ENUM:
		return p.parseEnumDef()
	case token.TRAIT:
		return p.parseTraitDef()
	case token.IMPL:
		return p.parseImplBlock()
	case token.TYPE_KW:
		return p.parseTypeAlias()
	default:
		p.rep.Errorf(diag.Parse, diag.MalformedItem, start, "expected item (fn, struct, enum, trait, impl, type), found %s", p.cur().Kind)
		p.advance()
		p.syncToNextItem()
		return nil
	}
}

func (p *Parser) parseGenerics() []ast.GenericParam {
	if _, ok := p.accept(token.Kind('<')); !ok {
		return nil
	}
	var gens []ast.GenericParam
	for !p.check(token.Kind('>')) && !p.atEOF() {
		name := p.expect(token.IDENT, "generic parameter name").Lexeme
		var bounds []string
		if _, ok := p.accept(token.Kind(':')); ok {
			bounds = append(bounds, p.expect(token.IDENT, "trait bound").Lexeme)
			for {
				if _, ok := p.accept(token.Kind('+')); !ok {
					break
				}
				bounds = append(bounds, p.expect(token.IDENT, "trait bound").Lexeme)
			}
		}
		gens = append(gens, ast.GenericParam{Name: name, Bounds: bounds})
		if _, ok := p.accept(token.Kind(',')); !ok {
			break
		}
	}
	p.expect(token.Kind('>'), "'>' to close generic parameter list")
	return gens
}

func (p *Parser) parseParams() []ast.Param {
	p.expect(token.Kind('('), "'(' to start parameter list")
	var params []ast.Param
	for !p.check(token.Kind(')')) && !p.atEOF() {
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
	p.expect(token.Kind(')'), "')' to close parameter list")
	return params
}

// parseFnDef parses `fn name<generics>(params) -> retType (pre e)? (post e)? = body;`.
func (p *Parser) parseFnDef() *ast.FnDef {
	start := p.span()
	p.expect(token.FN, "'fn'")
	name := p.expect(token.IDENT, "function name").Lexeme
	generics := p.parseGenerics()
	params := p.parseParams()

	var ret ast.TypeExpr
	if _, ok := p.accept(token.ARROW); ok {
		ret = p.parseType()
	}

	var pre, post ast.Expr
	if _, ok := p.accept(token.PRE); ok {
		pre = p.parseExpr()
	}
	if _, ok := p.accept(token.POST); ok {
		post = p.parseExpr()
	}

	p.expect(token.Kind('='), "'=' before function body")
	body := p.parseFnBody()
	p.accept(token.Kind(';'))

	return &ast.FnDef{
		Base: ast.Spanned(joinSpan(start, p.lastSpan())),
		Name: name, Generics: generics, Params: params, RetType: ret,
		Pre: pre, Post: post, Body: body,
	}
}

// parseFnBody parses either a brace block or a single expression body.
func (p *Parser) parseFnBody() ast.Expr {
	if p.check(token.Kind('{')) {
		return p.parseBlock()
	}
	return p.parseExpr()
}

func (p *Parser) lastSpan() token.Span {
	if p.pos == 0 {
		return p.span()
	}
	return p.toks[p.pos-1].Span
}

func (p *Parser) parseStructDef() *ast.StructDef {
	start := p.span()
	p.expect(token.STRUCT, "'struct'")
	name := p.expect(token.IDENT, "struct name").Lexeme
	var generics []string
	if _, ok := p.accept(token.Kind('<')); ok {
		for !p.check(token.Kind('>')) && !p.atEOF() {
			generics = append(generics, p.expect(token.IDENT, "generic parameter").Lexeme)
			if _, ok := p.accept(token.Kind(',')); !ok {
				break
			}
		}
		p.expect(token.Kind('>'), "'>'")
	}
	p.expect(token.Kind('{'), "'{' to start struct body")
	var fields []ast.Param
	for !p.check(token.Kind('}')) && !p.atEOF() {
		fname := p.expect(token.IDENT, "field name").Lexeme
		p.expect(token.Kind(':'), "':'")
		ftyp := p.parseType()
		fields = append(fields, ast.Param{Name: fname, Type: ftyp})
		if _, ok := p.accept(token.Kind(',')); !ok {
			break
		}
	}
	p.expect(token.Kind('}'), "'}' to close struct body")
	return (&ast.StructDef{Base: ast.Spanned(joinSpan(start, p.lastSpan())), Name: name, Generics: generics, Fields: fields})
}

func (p *Parser) parseEnumDef() *ast.EnumDef {
	start := p.span()
	p.expect(token.ENUM, "'enum'")
	name := p.expect(token.IDENT, "enum name").Lexeme
	var generics []string
	if _, ok := p.accept(token.Kind('<')); ok {
		for !p.check(token.Kind('>')) && !p.atEOF() {
			generics = append(generics, p.expect(token.IDENT, "generic parameter").Lexeme)
			if _, ok := p.accept(token.Kind(',')); !ok {
				break
			}
		}
		p.expect(token.Kind('>'), "'>'")
	}
	p.expect(token.Kind('{'), "'{' to start enum body")
	var variants []ast.EnumVariant
	for !p.check(token.Kind('}')) && !p.atEOF() {
		vname := p.expect(token.IDENT, "variant name").Lexeme
		var payload []ast.TypeExpr
		if _, ok := p.accept(token.Kind('(')); ok {
			for !p.check(token.Kind(')')) && !p.atEOF() {
				payload = append(payload, p.parseType())
				if _, ok := p.accept(token.Kind(',')); !ok {
					break
				}
			}
			p.expect(token.Kind(')'), "')'")
		}
		variants = append(variants, ast.EnumVariant{Name: vname, Payload: payload})
		if _, ok := p.accept(token.Kind(',')); !ok {
			break
		}
	}
	p.expect(token.Kind('}'), "'}' to close enum body")
	return (&ast.EnumDef{Base: ast.Spanned(joinSpan(start, p.lastSpan())), Name: name, Generics: generics, Variants: variants})
}

func (p *Parser) parseTraitDef() *ast.TraitDef {
	start := p.span()
	p.expect(token.TRAIT, "'trait'")
	name := p.expect(token.IDENT, "trait name").Lexeme
	p.expect(token.Kind('{'), "'{' to start trait body")
	var methods []ast.MethodSig
	for p.check(token.FN) {
		p.advance()
		mname := p.expect(token.IDENT, "method name").Lexeme
		params := p.parseParams()
		var ret ast.TypeExpr
		if _, ok := p.accept(token.ARROW); ok {
			ret = p.parseType()
		}
		p.accept(token.Kind(';'))
		methods = append(methods, ast.MethodSig{Name: mname, Params: params, RetType: ret})
	}
	p.expect(token.Kind('}'), "'}' to close trait body")
	return (&ast.TraitDef{Base: ast.Spanned(joinSpan(start, p.lastSpan())), Name: name, Methods: methods})
}

// parseImplBlock parses both `impl Type { … }` (inherent impl) and
// `impl Trait for Type { … }` (trait impl). `for` is a contextual keyword,
// not reserved by the lexer: it is recognized here as an identifier whose
// lexeme is "for" immediately following the first named type.
func (p *Parser) parseImplBlock() *ast.ImplBlock {
	start := p.span()
	p.expect(token.IMPL, "'impl'")
	first := p.parseType()
	var traitName string
	forType := first
	if p.check(token.IDENT) && p.cur().Lexeme == "for" {
		p.advance()
		traitName = typeExprName(first)
		forType = p.parseType()
	}
	p.expect(token.Kind('{'), "'{' to start impl body")
	var methods []*ast.FnDef
	for p.check(token.FN) {
		methods = append(methods, p.parseFnDef())
	}
	p.expect(token.Kind('}'), "'}' to close impl body")
	return &ast.ImplBlock{Base: ast.Spanned(joinSpan(start, p.lastSpan())), TraitName: traitName, TypeName: forType, Methods: methods}
}

func typeExprName(t ast.TypeExpr) string {
	if n, ok := t.(*ast.NamedType); ok {
		return n.Name
	}
	return ""
}

func (p *Parser) parseTypeAlias() *ast.TypeAlias {
	start := p.span()
	p.expect(token.TYPE_KW, "'type'")
	name := p.expect(token.IDENT, "type alias name").Lexeme
	p.expect(token.Kind('='), "'='")
	target := p.parseType()
	p.accept(token.Kind(';'))
	return (&ast.TypeAlias{Base: ast.Spanned(joinSpan(start, p.lastSpan())), Name: name, Target: target})
}


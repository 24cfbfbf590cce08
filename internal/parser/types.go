package parser

import (
	"bmb/internal/ast"
	"bmb/internal/token"
)

var primitiveNames = map[token.Kind]string{
	token.I64:       "i64",
	token.F64:       "f64",
	token.BOOL_TY:   "bool",
	token.UNIT_TY:   "unit",
	token.STRING_TY: "string",
}

// parseType parses a type expression. `T?` parses as Nullable(T) wherever a
// type is expected; the suffix binds as tightly as possible so `(A, B)?`
// requires the parens.
func (p *Parser) parseType() ast.TypeExpr {
	base := p.parseTypeAtom()
	for p.check(token.QMARK) {
		q := p.advance()
		base = &ast.NullableType{Base: ast.Spanned(joinSpan(base.Span(), q.Span)), Inner: base}
	}
	return base
}

func (p *Parser) parseTypeAtom() ast.TypeExpr {
	start := p.span()
	if name, ok := primitiveNames[p.cur().Kind]; ok {
		t := p.advance()
		return &ast.PrimitiveType{Base: ast.Spanned(t.Span), Name: name}
	}
	switch p.cur().Kind {
	case token.Kind('('):
		p.advance()
		var elems []ast.TypeExpr
		for !p.check(token.Kind(')')) && !p.atEOF() {
			elems = append(elems, p.parseType())
			if _, ok := p.accept(token.Kind(',')); !ok {
				break
			}
		}
		end := p.expect(token.Kind(')'), "')'")
		if len(elems) == 1 {
			return elems[0]
		}
		return &ast.TupleType{Base: ast.Spanned(joinSpan(start, end.Span)), Elems: elems}
	case token.FN:
		p.advance()
		p.expect(token.Kind('('), "'(' in function type")
		var params []ast.TypeExpr
		for !p.check(token.Kind(')')) && !p.atEOF() {
			params = append(params, p.parseType())
			if _, ok := p.accept(token.Kind(',')); !ok {
				break
			}
		}
		end := p.expect(token.Kind(')'), "')'")
		var ret ast.TypeExpr
		if _, ok := p.accept(token.ARROW); ok {
			ret = p.parseType()
		}
		return &ast.FuncType{Base: ast.Spanned(joinSpan(start, end.Span)), Params: params, Ret: ret}
	case token.IDENT:
		name := p.advance()
		var args []ast.TypeExpr
		if _, ok := p.accept(token.Kind('<')); ok {
			for !p.check(token.Kind('>')) && !p.atEOF() {
				args = append(args, p.parseType())
				if _, ok := p.accept(token.Kind(',')); !ok {
					break
				}
			}
			end := p.expect(token.Kind('>'), "'>'")
			return &ast.NamedType{Base: ast.Spanned(joinSpan(name.Span, end.Span)), Name: name.Lexeme, TypeArgs: args}
		}
		return &ast.NamedType{Base: ast.Spanned(name.Span), Name: name.Lexeme}
	default:
		p.unexpected("type")
		t := p.advance()
		return &ast.NamedType{Base: ast.Spanned(t.Span), Name: "<error>"}
	}
}

package lexer

import "bmb/internal/token"

type reservedWord struct {
	val string
	typ token.Kind
}

// keywordsByLength buckets reserved words by length so isKeyword only has to
// scan the bucket matching the candidate identifier's length, rather than a
// full keyword set.
var keywordsByLength = [...][]reservedWord{
	// 1
	{},
	// 2
	{
		{"fn", token.FN},
		{"if", token.IF},
	},
	// 3
	{
		{"let", token.LET},
		{"var", token.VAR},
		{"pre", token.PRE},
		{"i64", token.I64},
		{"f64", token.F64},
	},
	// 4
	{
		{"else", token.ELSE},
		{"enum", token.ENUM},
		{"true", token.TRUE},
		{"post", token.POST},
		{"bool", token.BOOL_TY},
		{"unit", token.UNIT_TY},
		{"impl", token.IMPL},
		{"type", token.TYPE_KW},
	},
	// 5
	{
		{"match", token.MATCH},
		{"trait", token.TRAIT},
		{"false", token.FALSE},
	},
	// 6
	{
		{"struct", token.STRUCT},
		{"return", token.RETURN},
		{"string", token.STRING_TY},
	},
}

// logicalSynonyms maps the `and`/`or`/`not` keyword synonyms to their
// operator kinds regardless of length-bucket placement above; §4.1 requires
// these to remain accepted as synonyms for &&, || and !.
var logicalSynonyms = map[string]token.Kind{
	"and": token.ANDAND,
	"or":  token.OROR,
	"not": '!',
}

// isKeyword reports whether s is a reserved BMB word, and if so its token kind.
func isKeyword(s string) (bool, token.Kind) {
	if len(s) == 0 {
		return false, token.ERROR
	}
	if typ, ok := logicalSynonyms[s]; ok {
		return true, typ
	}
	if len(s) > len(keywordsByLength) {
		return false, token.IDENT
	}
	for _, e := range keywordsByLength[len(s)-1] {
		if e.val == s {
			return true, e.typ
		}
	}
	return false, token.IDENT
}

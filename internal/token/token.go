// Package token defines the lexical tokens produced by the BMB lexer.
package token

import "fmt"

// Kind differentiates the tokens scanned from BMB source text.
type Kind int

// Span is a byte-offset range into the source buffer a token or AST node
// came from. Spans are stripped before structural AST comparisons (the
// parse-print round-trip property ignores them).
type Span struct {
	Start, End int // Byte offsets, End exclusive.
	Line, Col  int // 1-indexed line and column of Start.
}

// Token is a single lexeme with its kind, literal text and source span.
type Token struct {
	Kind   Kind
	Lexeme string
	Span   Span
}

// Named kinds start at 256 so they never equal the rune value of an ASCII
// single-char token such as '!' or '%'.
const (
	EOF Kind = iota + 256
	ERROR

	IDENT
	INT
	FLOAT
	STRING
	CHAR

	// Keywords.
	FN
	LET
	VAR
	IF
	ELSE
	MATCH
	PRE
	POST
	TRAIT
	IMPL
	STRUCT
	ENUM
	TRUE
	FALSE
	RETURN
	TYPE_KW

	// Primitive type names, lexed as keywords so the parser can recognize
	// them without a symbol-table lookup.
	I64
	F64
	BOOL_TY
	UNIT_TY
	STRING_TY

	// Multi-char operators.
	EQEQ   // ==
	NEQ    // !=
	LE     // <=
	GE     // >=
	ARROW  // ->
	FATARR // =>
	ANDAND // &&
	OROR   // ||
	SHL    // <<
	SHR    // >>
	PATHSEP // ::

	// Single-char punctuation and operators are carried as their own rune
	// value rather than a dedicated name. QMARK is named because it has
	// grammar significance (nullable sugar) beyond a bare rune literal.
	QMARK // ?
)

var names = [...]string{
	EOF:       "EOF",
	ERROR:     "ERROR",
	IDENT:     "identifier",
	INT:       "integer",
	FLOAT:     "float",
	STRING:    "string",
	CHAR:      "char",
	FN:        "fn",
	LET:       "let",
	VAR:       "var",
	IF:        "if",
	ELSE:      "else",
	MATCH:     "match",
	PRE:       "pre",
	POST:      "post",
	TRAIT:     "trait",
	IMPL:      "impl",
	STRUCT:    "struct",
	ENUM:      "enum",
	TRUE:      "true",
	FALSE:     "false",
	RETURN:    "return",
	TYPE_KW:   "type",
	I64:       "i64",
	F64:       "f64",
	BOOL_TY:   "bool",
	UNIT_TY:   "unit",
	STRING_TY: "string",
	EQEQ:      "==",
	NEQ:       "!=",
	LE:        "<=",
	GE:        ">=",
	ARROW:     "->",
	FATARR:    "=>",
	ANDAND:    "&&",
	OROR:      "||",
	SHL:       "<<",
	SHR:       ">>",
	PATHSEP:   "::",
	QMARK:     "?",
}

// String returns a print-friendly name for the token kind, falling back to
// the literal rune for single-character punctuation passed through as-is.
func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(names) && names[k] != "" {
		return names[k]
	}
	if k > 0 && k < 0x110000 {
		return fmt.Sprintf("%q", rune(k))
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// String renders the token for diagnostics and the -ts style token dump.
func (t Token) String() string {
	if len(t.Lexeme) > 20 {
		return fmt.Sprintf("%.17q... (%s) [%d:%d]", t.Lexeme, t.Kind, t.Span.Line, t.Span.Col)
	}
	return fmt.Sprintf("%q (%s) [%d:%d]", t.Lexeme, t.Kind, t.Span.Line, t.Span.Col)
}

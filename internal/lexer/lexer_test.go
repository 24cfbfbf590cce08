package lexer

import (
	"testing"

	"bmb/internal/token"
)

// TestLexerBasics verifies that a small sample program is tokenized in the
// expected order, asserting each token's kind and lexeme.
func TestLexerBasics(t *testing.T) {
	src := "fn add(a: i64, b: i64) -> i64 = a + b;\n"

	exp := []struct {
		kind token.Kind
		val  string
	}{
		{token.FN, "fn"},
		{token.IDENT, "add"},
		{token.Kind('('), "("},
		{token.IDENT, "a"},
		{token.Kind(':'), ":"},
		{token.I64, "i64"},
		{token.Kind(','), ","},
		{token.IDENT, "b"},
		{token.Kind(':'), ":"},
		{token.I64, "i64"},
		{token.Kind(')'), ")"},
		{token.ARROW, "->"},
		{token.I64, "i64"},
		{token.Kind('='), "="},
		{token.IDENT, "a"},
		{token.Kind('+'), "+"},
		{token.IDENT, "b"},
		{token.Kind(';'), ";"},
		{token.EOF, ""},
	}

	toks, err := All(src)
	if err != nil {
		t.Fatalf("unexpected lex error: %s", err)
	}
	if len(toks) != len(exp) {
		t.Fatalf("expected %d tokens, got %d: %v", len(exp), len(toks), toks)
	}
	for i, e := range exp {
		if toks[i].Kind != e.kind || toks[i].Lexeme != e.val {
			t.Errorf("token %d: expected %s %q, got %s %q", i, e.kind, e.val, toks[i].Kind, toks[i].Lexeme)
		}
	}
}

func TestLexerNullableSuffix(t *testing.T) {
	toks, err := All("i64?")
	if err != nil {
		t.Fatal(err)
	}
	if len(toks) != 3 || toks[0].Kind != token.I64 || toks[1].Kind != token.QMARK {
		t.Fatalf("expected I64 QMARK EOF, got %v", toks)
	}
}

func TestLexerLogicalSynonyms(t *testing.T) {
	toks, err := All("a and b or not c")
	if err != nil {
		t.Fatal(err)
	}
	want := []token.Kind{token.IDENT, token.ANDAND, token.IDENT, token.OROR, token.Kind('!'), token.IDENT, token.EOF}
	if len(toks) != len(want) {
		t.Fatalf("expected %d tokens, got %d", len(want), len(toks))
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: expected %s, got %s", i, k, toks[i].Kind)
		}
	}
}

func TestLexerUnterminatedString(t *testing.T) {
	_, err := All(`"abc`)
	if err == nil {
		t.Fatal("expected unterminated string error")
	}
}

func TestLexerInvalidEscape(t *testing.T) {
	_, err := All(`"a\qb"`)
	if err == nil {
		t.Fatal("expected invalid escape error")
	}
}

func TestLexerFloatRequiresDecimalPoint(t *testing.T) {
	toks, err := All("42")
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Kind != token.INT {
		t.Fatalf("expected INT, got %s", toks[0].Kind)
	}
	toks, err = All("42.5")
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Kind != token.FLOAT {
		t.Fatalf("expected FLOAT, got %s", toks[0].Kind)
	}
}

package parser_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"bmb/internal/ast"
	"bmb/internal/parser"
)

// ignoreSpans drops every embedded ast.Base (and bare token.Span) field
// before comparison: the round-trip property of §8 is defined modulo
// spans, since re-printed source never has the same byte offsets as the
// original.
var ignoreSpans = cmp.FilterPath(func(p cmp.Path) bool {
	if sf, ok := p.Last().(cmp.StructField); ok {
		return sf.Name() == "Base" || sf.Name() == "Sp"
	}
	return false
}, cmp.Ignore())

// assertRoundTrips parses src, pretty-prints the AST back to source with
// ast.Source, re-parses that, and asserts the two trees are structurally
// equal ignoring spans — the parse-print round-trip property of §8.
func assertRoundTrips(t *testing.T, src string) {
	t.Helper()
	prog1, rep1 := parser.Parse(src)
	if rep1.HasFatal() {
		t.Fatalf("unexpected parse errors for %q", src)
	}

	printed := ast.Source(prog1)
	prog2, rep2 := parser.Parse(printed)
	if rep2.HasFatal() {
		t.Fatalf("re-parsing printed source failed for %q\nprinted:\n%s", src, printed)
	}

	if diff := cmp.Diff(prog1, prog2, ignoreSpans); diff != "" {
		t.Errorf("round-trip mismatch for %q\nprinted:\n%s\n(-original +reparsed):\n%s", src, printed, diff)
	}
}

func TestParsePrintRoundTrip(t *testing.T) {
	cases := []string{
		`fn main() -> i64 = { println(1 + 2); 0 }`,
		`fn fact(n: i64) -> i64 = if n <= 1 { 1 } else { n * fact(n - 1) };`,
		`fn ack(m: i64, n: i64) -> i64 = if m == 0 { n + 1 } else if n == 0 { ack(m - 1, 1) } else { ack(m - 1, ack(m, n - 1)) };`,
		`fn abs(x: i64) -> i64 pre true post result >= 0 = if x < 0 { 0 - x } else { x };`,
		`fn find(n: i64) -> i64? = if n > 0 { Some(n) } else { None };`,
		`fn main() -> i64 = match find(5) { Some(x) => x, None => 1 };`,
		`struct Point { x: i64, y: i64 }`,
		`enum Shape { Circle(i64), Square(i64), Unit }`,
		`trait Show { fn show(self) -> string; }`,
		`impl Show for Point { fn show(self) -> string = "pt"; }`,
		`type Pair = (i64, i64);`,
		`fn sumTo(n: i64, acc: i64) -> i64 = { let step = n + acc; if n <= 0 { acc } else { sumTo(n - 1, step) } };`,
		`fn add<T: Show>(a: T, b: T) -> T = a;`,
		`fn avg(a: f64, b: f64) -> f64 = (a + b) / 2.0;`,
	}
	for _, src := range cases {
		assertRoundTrips(t, src)
	}
}

package parser

import (
	"testing"

	"bmb/internal/ast"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, rep := Parse(src)
	if rep.HasFatal() {
		for _, d := range rep.Sorted() {
			t.Logf("%s", d.Error())
		}
		t.Fatalf("unexpected parse errors for %q", src)
	}
	return prog
}

func TestParseSimpleFunction(t *testing.T) {
	prog := mustParse(t, "fn add(a: i64, b: i64) -> i64 = a + b;")
	if len(prog.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(prog.Items))
	}
	fn, ok := prog.Items[0].(*ast.FnDef)
	if !ok {
		t.Fatalf("expected *ast.FnDef, got %T", prog.Items[0])
	}
	if fn.Name != "add" || len(fn.Params) != 2 {
		t.Fatalf("unexpected fn shape: %+v", fn)
	}
	bin, ok := fn.Body.(*ast.Binary)
	if !ok || bin.Op != "+" {
		t.Fatalf("expected Binary '+', got %#v", fn.Body)
	}
}

func TestParseEndToEndScenario1(t *testing.T) {
	prog := mustParse(t, "fn main() -> i64 = { println(1 + 2); 0 }")
	fn := prog.Items[0].(*ast.FnDef)
	block, ok := fn.Body.(*ast.Block)
	if !ok || len(block.Stmts) != 2 {
		t.Fatalf("expected a 2-statement block, got %#v", fn.Body)
	}
}

func TestParseIfElseChain(t *testing.T) {
	prog := mustParse(t, `fn ack(m: i64, n: i64) -> i64 = if m == 0 { n + 1 } else if n == 0 { ack(m - 1, 1) } else { ack(m - 1, ack(m, n - 1)) };`)
	fn := prog.Items[0].(*ast.FnDef)
	top, ok := fn.Body.(*ast.If)
	if !ok {
		t.Fatalf("expected top-level If, got %T", fn.Body)
	}
	if _, ok := top.Else.(*ast.If); !ok {
		t.Fatalf("expected else-if to nest as If, got %T", top.Else)
	}
}

func TestParseContractFunction(t *testing.T) {
	prog := mustParse(t, `fn abs(x: i64) -> i64 pre true post result >= 0 = if x < 0 { 0 - x } else { x };`)
	fn := prog.Items[0].(*ast.FnDef)
	if fn.Pre == nil || fn.Post == nil {
		t.Fatalf("expected pre/post contracts to be parsed")
	}
}

func TestParseNullableAndMatch(t *testing.T) {
	prog := mustParse(t, `fn find(n: i64) -> i64? = if n > 0 { Some(n) } else { None };`)
	fn := prog.Items[0].(*ast.FnDef)
	if _, ok := fn.RetType.(*ast.NullableType); !ok {
		t.Fatalf("expected nullable return type, got %#v", fn.RetType)
	}
	top := fn.Body.(*ast.If)
	then := top.Then.(*ast.Block)
	ctor, ok := then.Stmts[0].(*ast.EnumCtor)
	if !ok || ctor.Enum != "Option" || ctor.Variant != "Some" {
		t.Fatalf("expected Option::Some ctor, got %#v", then.Stmts[0])
	}
}

func TestParseMatchArms(t *testing.T) {
	prog := mustParse(t, `fn main() -> i64 = match find(5) { Some(x) => { println(x); 0 }, None => 1 };`)
	fn := prog.Items[0].(*ast.FnDef)
	m, ok := fn.Body.(*ast.Match)
	if !ok || len(m.Arms) != 2 {
		t.Fatalf("expected a 2-arm match, got %#v", fn.Body)
	}
	if _, ok := m.Arms[0].Pat.(*ast.CtorPattern); !ok {
		t.Fatalf("expected CtorPattern, got %T", m.Arms[0].Pat)
	}
}

func TestParseStructEnumTraitImpl(t *testing.T) {
	prog := mustParse(t, `
struct Point { x: i64, y: i64 }
enum Shape { Circle(i64), Square(i64) }
trait Area { fn area() -> i64; }
impl Area for Shape { fn area() -> i64 = 0; }
`)
	if len(prog.Items) != 4 {
		t.Fatalf("expected 4 items, got %d", len(prog.Items))
	}
	if _, ok := prog.Items[0].(*ast.StructDef); !ok {
		t.Fatalf("expected StructDef first, got %T", prog.Items[0])
	}
	if _, ok := prog.Items[1].(*ast.EnumDef); !ok {
		t.Fatalf("expected EnumDef second, got %T", prog.Items[1])
	}
	if _, ok := prog.Items[2].(*ast.TraitDef); !ok {
		t.Fatalf("expected TraitDef third, got %T", prog.Items[2])
	}
	impl, ok := prog.Items[3].(*ast.ImplBlock)
	if !ok {
		t.Fatalf("expected ImplBlock fourth, got %T", prog.Items[3])
	}
	if impl.TraitName != "Area" {
		t.Fatalf("expected TraitName Area, got %q", impl.TraitName)
	}
}

func TestParseGenericsAndBounds(t *testing.T) {
	prog := mustParse(t, `fn identity<T>(x: T) -> T = x;`)
	fn := prog.Items[0].(*ast.FnDef)
	if len(fn.Generics) != 1 || fn.Generics[0].Name != "T" {
		t.Fatalf("unexpected generics: %#v", fn.Generics)
	}
}

func TestParseClosureForms(t *testing.T) {
	prog := mustParse(t, `fn main() -> i64 = { let f = |x| x + 1; f(2) }`)
	fn := prog.Items[0].(*ast.FnDef)
	block := fn.Body.(*ast.Block)
	let, ok := block.Stmts[0].(*ast.Let)
	if !ok {
		t.Fatalf("expected Let, got %T", block.Stmts[0])
	}
	if _, ok := let.Value.(*ast.Closure); !ok {
		t.Fatalf("expected Closure value, got %T", let.Value)
	}
}

func TestParseErrorRecoverySkipsToNextItem(t *testing.T) {
	_, rep := Parse("fn bad( -> ; fn good() -> i64 = 1;")
	if !rep.HasFatal() {
		t.Fatalf("expected a parse error to be reported")
	}
}

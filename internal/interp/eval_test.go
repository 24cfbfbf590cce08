package interp

import (
	"bytes"
	"testing"

	"bmb/internal/parser"
)

func run(t *testing.T, src string) (string, int64) {
	t.Helper()
	prog, rep := parser.Parse(src)
	if rep.HasFatal() {
		for _, d := range rep.Sorted() {
			t.Logf("%s", d.Error())
		}
		t.Fatalf("unexpected parse errors for %q", src)
	}
	var buf bytes.Buffer
	code, err := New(prog, &buf).RunMain()
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	return buf.String(), code
}

func TestEndToEndScenario1(t *testing.T) {
	out, code := run(t, `fn main() -> i64 = { println(1 + 2); 0 }`)
	if out != "3\n" || code != 0 {
		t.Fatalf("got (%q, %d), want (%q, 0)", out, code, "3\n")
	}
}

func TestEndToEndFactorial(t *testing.T) {
	src := `fn fact(n: i64) -> i64 = if n <= 1 { 1 } else { n * fact(n - 1) };
fn main() -> i64 = { println(fact(10)); 0 }`
	out, code := run(t, src)
	if out != "3628800\n" || code != 0 {
		t.Fatalf("got (%q, %d)", out, code)
	}
}

func TestEndToEndAckermann(t *testing.T) {
	src := `fn ack(m: i64, n: i64) -> i64 =
  if m == 0 { n + 1 }
  else if n == 0 { ack(m - 1, 1) }
  else { ack(m - 1, ack(m, n - 1)) };
fn main() -> i64 = { println(ack(3, 6)); 0 }`
	out, code := run(t, src)
	if out != "509\n" || code != 0 {
		t.Fatalf("got (%q, %d)", out, code)
	}
}

func TestContractSatisfiedRunsNormally(t *testing.T) {
	src := `fn abs(x: i64) -> i64 pre true post result >= 0 = if x < 0 { 0 - x } else { x };
fn main() -> i64 = { println(abs(0 - 5)); 0 }`
	out, code := run(t, src)
	if out != "5\n" || code != 0 {
		t.Fatalf("got (%q, %d)", out, code)
	}
}

func TestMatchOnEnum(t *testing.T) {
	src := `enum Option<T> { Some(T), None }
fn find(x: i64) -> Option<i64> = if x > 0 { Some(x) } else { None };
fn main() -> i64 = {
  match find(7) {
    Some(v) => { println(v); 0 },
    None => { println(0 - 1); 1 },
  }
};`
	out, code := run(t, src)
	if out != "7\n" || code != 0 {
		t.Fatalf("got (%q, %d)", out, code)
	}
}

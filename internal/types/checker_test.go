package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bmb/internal/diag"
	"bmb/internal/parser"
	"bmb/internal/types"
)

// checkSource parses and type-checks src, failing the test if parsing
// itself produced fatal diagnostics (a checker test isn't interested in
// parse errors).
func checkSource(t *testing.T, src string) *diag.Report {
	t.Helper()
	prog, perr := parser.Parse(src)
	require.False(t, perr.HasFatal(), "unexpected parse errors for %q", src)
	rep, _ := types.Check(prog)
	return rep
}

func TestCheckerAcceptsWellTypedPrograms(t *testing.T) {
	cases := []string{
		`fn add(a: i64, b: i64) -> i64 = a + b;`,
		`fn main() -> i64 = { println(1 + 2); 0 }`,
		`fn abs(x: i64) -> i64 pre true post result >= 0 = if x < 0 { 0 - x } else { x };`,
		`fn find(n: i64) -> i64? = if n > 0 { Some(n) } else { None };`,
	}
	for _, src := range cases {
		rep := checkSource(t, src)
		assert.False(t, rep.HasFatal(), "expected %q to type-check cleanly", src)
	}
}

func TestCheckerTypeMismatch(t *testing.T) {
	rep := checkSource(t, `fn f() -> i64 = true;`)
	require.True(t, rep.HasFatal())
	kinds := diagnosticKinds(rep)
	assert.Contains(t, kinds, diag.TypeMismatch)
}

func TestCheckerUndefinedVariable(t *testing.T) {
	rep := checkSource(t, `fn f() -> i64 = y;`)
	require.True(t, rep.HasFatal())
	assert.Contains(t, diagnosticKinds(rep), diag.UndefinedVariable)
}

func TestCheckerArityMismatch(t *testing.T) {
	rep := checkSource(t, `fn add(a: i64, b: i64) -> i64 = a + b; fn main() -> i64 = add(1);`)
	require.True(t, rep.HasFatal())
	assert.Contains(t, diagnosticKinds(rep), diag.ArityMismatch)
}

func TestCheckerNonBoolContract(t *testing.T) {
	rep := checkSource(t, `fn f(x: i64) -> i64 pre 1 = x;`)
	require.True(t, rep.HasFatal())
	assert.Contains(t, diagnosticKinds(rep), diag.NonBoolContract)
}

func TestCheckerNullableSugarRoundTrips(t *testing.T) {
	rep := checkSource(t, `fn find(n: i64) -> i64? = if n > 0 { Some(n) } else { None };`)
	assert.False(t, rep.HasFatal())
}

func TestCheckerAmbiguousGeneric(t *testing.T) {
	// A generic with no argument and nothing to infer it from: the
	// instantiation's fresh type variable never gets solved.
	rep := checkSource(t, `fn id<T>(x: T) -> T = x; fn f() -> i64 = { id(); 0 }`)
	require.True(t, rep.HasFatal())
}

func diagnosticKinds(rep *diag.Report) []diag.Kind {
	var out []diag.Kind
	for _, d := range rep.Diagnostics() {
		out = append(out, d.Kind)
	}
	return out
}

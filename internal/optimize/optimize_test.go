package optimize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bmb/internal/mir"
	"bmb/internal/optimize"
	"bmb/internal/parser"
	"bmb/internal/types"
)

// lowerSource runs the front half of the pipeline (parse, check, lower) so
// optimizer tests exercise real MIR rather than hand-built fixtures.
func lowerSource(t *testing.T, src string) *mir.Program {
	t.Helper()
	prog, perr := parser.Parse(src)
	require.False(t, perr.HasFatal(), "parse errors for %q", src)
	rep, info := types.Check(prog)
	require.False(t, rep.HasFatal(), "type errors for %q", src)
	return mir.Lower(prog, info)
}

func findFunc(p *mir.Program, name string) *mir.Function {
	for _, fn := range p.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

func hasConstInt(fn *mir.Function, v int64) bool {
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			if c, ok := in.(*mir.InstrConst); ok && c.Value.Kind == mir.ConstInt && c.Value.I == v {
				return true
			}
		}
	}
	return false
}

func hasBinOp(fn *mir.Function) bool {
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			if _, ok := in.(*mir.InstrBinOp); ok {
				return true
			}
		}
	}
	return false
}

func hasCallTo(fn *mir.Function, name string) bool {
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			if c, ok := in.(*mir.InstrCall); ok && c.Name == name {
				return true
			}
		}
	}
	return false
}

func TestConstantFoldingEliminatesBinOp(t *testing.T) {
	prog := lowerSource(t, `fn main() -> i64 = { println(1 + 2); 0 }`)
	fn := findFunc(prog, "main")
	require.NotNil(t, fn)

	optimize.Run(prog, optimize.Options{})

	assert.True(t, hasConstInt(fn, 3), "expected the folded constant 3 to appear")
	assert.False(t, hasBinOp(fn), "expected constant folding to remove the BinOp")
}

func TestTailCallToLoopRewritesSelfRecursion(t *testing.T) {
	prog := lowerSource(t, `fn sumTo(n: i64, acc: i64) -> i64 = if n <= 0 { acc } else { sumTo(n - 1, acc + n) };`)
	fn := findFunc(prog, "sumTo")
	require.NotNil(t, fn)
	require.True(t, hasCallTo(fn, "sumTo"), "expected a self-call before optimization")

	optimize.Run(prog, optimize.Options{})

	assert.False(t, hasCallTo(fn, "sumTo"), "expected tail-call-to-loop to remove the self-call")
}

func TestOptimizerIsDeterministicAcrossRuns(t *testing.T) {
	src := `fn fact(n: i64) -> i64 = if n <= 1 { 1 } else { n * fact(n - 1) }; fn main() -> i64 = { println(fact(10)); 0 }`

	progA := lowerSource(t, src)
	optimize.Run(progA, optimize.Options{Threads: 4})

	progB := lowerSource(t, src)
	optimize.Run(progB, optimize.Options{Threads: 1})

	require.Equal(t, len(progA.Functions), len(progB.Functions))
	for i := range progA.Functions {
		assert.Equal(t, progA.Functions[i].Name, progB.Functions[i].Name)
		assert.Equal(t, len(progA.Functions[i].Blocks), len(progB.Functions[i].Blocks),
			"function %s should have the same block count regardless of worker count", progA.Functions[i].Name)
	}
}

func TestDeadCodeEliminationDropsUnusedPureValues(t *testing.T) {
	prog := lowerSource(t, `fn main() -> i64 = { let x = 1 + 2; 0 }`)
	fn := findFunc(prog, "main")
	require.NotNil(t, fn)

	optimize.Run(prog, optimize.Options{})

	assert.False(t, hasBinOp(fn), "expected the unused binding's BinOp to be dead-code eliminated")
}

// Package optimize implements BMB's MIR optimizer: the fixed pass
// ordering of §4.5, repeated to a fixpoint (or a configured iteration
// cap), run independently per function. Optimization is scoped per
// function — CSE is per-block, nothing crosses function boundaries — so
// the teacher's worker-pool shape (ir/optimise.go's goroutine-per-slice
// split, synchronized with a util.Perror-style error collector) is safe
// to reuse here without breaking §5's single-threaded-determinism
// requirement: only completion order varies across goroutines, and
// completion order is invisible once functions are reassembled by
// declaration index rather than completion order.
//
// Inlining is the one pass that reads sibling functions rather than just
// its own: it runs as its own sequential pre-pass, before the parallel
// per-function fixpoint loop starts, so no worker ever reads a callee
// another worker is concurrently rewriting.
package optimize

import (
	"sync"

	"bmb/internal/mir"
)

// Options configures one optimizer run.
type Options struct {
	Threads    int // worker count; <=1 runs sequentially
	MaxIters   int // fixpoint cap per function; 0 means a sane default
	Aggressive bool // enables inlining and LICM (maps to --aggressive/--release)
}

const defaultMaxIters = 8
const inlineRounds = 3

// Run optimizes every function of prog in place and returns prog for
// chaining. Per-function passes are optimized independently and
// reassembled by their original index, so the *set* of rewrites is a pure
// function of the input regardless of how many worker goroutines ran —
// the determinism property §4.5 and §8's bootstrap fixed point require.
func Run(prog *mir.Program, opt Options) *mir.Program {
	maxIters := opt.MaxIters
	if maxIters <= 0 {
		maxIters = defaultMaxIters
	}

	n := len(prog.Functions)
	if n == 0 {
		return prog
	}

	if opt.Aggressive {
		for round := 0; round < inlineRounds; round++ {
			changed := false
			for _, fn := range prog.Functions {
				changed = inlineCalls(fn, prog.Functions) || changed
			}
			if !changed {
				break
			}
		}
	}

	threads := opt.Threads
	if threads < 1 {
		threads = 1
	}
	if threads > n {
		threads = n
	}

	if threads == 1 {
		for _, fn := range prog.Functions {
			optimizeFunction(fn, maxIters, opt.Aggressive)
		}
		return prog
	}

	perJob := n / threads
	residual := n % threads
	start := 0
	var wg sync.WaitGroup
	wg.Add(threads)
	for i := 0; i < threads; i++ {
		end := start + perJob
		if i < residual {
			end++
		}
		go func(lo, hi int) {
			defer wg.Done()
			for _, fn := range prog.Functions[lo:hi] {
				optimizeFunction(fn, maxIters, opt.Aggressive)
			}
		}(start, end)
		start = end
	}
	wg.Wait()
	return prog
}

// optimizeFunction applies the fixed pass ordering to fn until no pass
// reports a change or maxIters rounds have run, whichever comes first.
// Inlining has already run as a sequential pre-pass in Run, so it is not
// repeated here — everything below only ever touches fn itself, which is
// what makes per-function parallelism safe.
func optimizeFunction(fn *mir.Function, maxIters int, aggressive bool) {
	for iter := 0; iter < maxIters; iter++ {
		changed := false
		changed = constantFold(fn) || changed
		changed = copyPropagate(fn) || changed
		changed = cseBlocks(fn) || changed
		changed = deadCodeEliminate(fn) || changed
		if aggressive {
			changed = licm(fn) || changed
		}
		changed = tailCallToLoop(fn) || changed
		changed = contractUnreachable(fn) || changed
		if !changed {
			break
		}
	}
}

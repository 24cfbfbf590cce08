package optimize

import (
	"bmb/internal/mir"
)

// ---- 1. constant folding ---------------------------------------------------

// constantFold evaluates BinOp/UnaryOp instructions whose operands are
// both traceable to a prior Const in the same function (SSA means a
// Place's defining Const, once found, holds for every later use). It
// replaces the instruction with an equivalent Const and reports whether
// anything changed so the fixpoint loop knows to run another round.
func constantFold(fn *mir.Function) bool {
	consts := collectConsts(fn)
	changed := false
	walkInstrs(fn, func(b *mir.BasicBlock, i int) {
		switch in := b.Instrs[i].(type) {
		case *mir.InstrBinOp:
			lc, lok := consts[in.L.Name]
			rc, rok := consts[in.R.Name]
			if !lok || !rok {
				return
			}
			if folded, ok := foldBinOp(in.Op, lc, rc); ok {
				b.Instrs[i] = &mir.InstrConst{Dest: in.Dest, Value: folded}
				consts[in.Dest.Name] = folded
				changed = true
			}
		case *mir.InstrUnaryOp:
			xc, ok := consts[in.X.Name]
			if !ok {
				return
			}
			if folded, ok := foldUnaryOp(in.Op, xc); ok {
				b.Instrs[i] = &mir.InstrConst{Dest: in.Dest, Value: folded}
				consts[in.Dest.Name] = folded
				changed = true
			}
		}
	})
	return changed
}

func collectConsts(fn *mir.Function) map[string]mir.Const {
	out := make(map[string]mir.Const)
	walkInstrs(fn, func(b *mir.BasicBlock, i int) {
		if c, ok := b.Instrs[i].(*mir.InstrConst); ok {
			out[c.Dest.Name] = c.Value
		}
	})
	return out
}

func foldBinOp(op string, l, r mir.Const) (mir.Const, bool) {
	switch op {
	case "i+":
		return mir.IntConst(l.I + r.I), true
	case "i-":
		return mir.IntConst(l.I - r.I), true
	case "i*":
		return mir.IntConst(l.I * r.I), true
	case "i/":
		if r.I == 0 {
			return mir.Const{}, false
		}
		return mir.IntConst(l.I / r.I), true
	case "i%":
		if r.I == 0 {
			return mir.Const{}, false
		}
		return mir.IntConst(l.I % r.I), true
	case "i<<":
		return mir.IntConst(l.I << uint(r.I)), true
	case "i>>":
		return mir.IntConst(l.I >> uint(r.I)), true
	case "i==":
		return mir.BoolConst(l.I == r.I), true
	case "i!=":
		return mir.BoolConst(l.I != r.I), true
	case "i<":
		return mir.BoolConst(l.I < r.I), true
	case "i>":
		return mir.BoolConst(l.I > r.I), true
	case "i<=":
		return mir.BoolConst(l.I <= r.I), true
	case "i>=":
		return mir.BoolConst(l.I >= r.I), true
	case "f+":
		return mir.FloatConst(l.F + r.F), true
	case "f-":
		return mir.FloatConst(l.F - r.F), true
	case "f*":
		return mir.FloatConst(l.F * r.F), true
	case "f/":
		if r.F == 0 {
			return mir.Const{}, false
		}
		return mir.FloatConst(l.F / r.F), true
	case "f==":
		return mir.BoolConst(l.F == r.F), true
	case "f!=":
		return mir.BoolConst(l.F != r.F), true
	case "f<":
		return mir.BoolConst(l.F < r.F), true
	case "f>":
		return mir.BoolConst(l.F > r.F), true
	case "f<=":
		return mir.BoolConst(l.F <= r.F), true
	case "f>=":
		return mir.BoolConst(l.F >= r.F), true
	}
	return mir.Const{}, false
}

func foldUnaryOp(op string, x mir.Const) (mir.Const, bool) {
	switch op {
	case "ineg":
		return mir.IntConst(-x.I), true
	case "fneg":
		return mir.FloatConst(-x.F), true
	case "!":
		return mir.BoolConst(!x.B), true
	}
	return mir.Const{}, false
}

// ---- 2. copy propagation ----------------------------------------------------

// copyPropagate replaces every use of a Copy's destination with its
// source, transitively, then drops the now-unused Copy instructions
// (DCE would remove them anyway, but dropping them here keeps later
// passes' instruction counts accurate for the inlining size threshold).
func copyPropagate(fn *mir.Function) bool {
	aliases := make(map[string]mir.Place)
	walkInstrs(fn, func(b *mir.BasicBlock, i int) {
		if c, ok := b.Instrs[i].(*mir.InstrCopy); ok {
			aliases[c.Dest.Name] = resolveAlias(aliases, c.Src)
		}
	})
	if len(aliases) == 0 {
		return false
	}
	changed := false
	for _, b := range fn.Blocks {
		kept := b.Instrs[:0]
		for _, in := range b.Instrs {
			if _, ok := in.(*mir.InstrCopy); ok {
				changed = true
				continue
			}
			rewriteOperands(in, func(p mir.Place) mir.Place { return resolveAlias(aliases, p) })
			kept = append(kept, in)
		}
		b.Instrs = kept
		rewriteTermOperands(b.Term, func(p mir.Place) mir.Place { return resolveAlias(aliases, p) })
	}
	return changed
}

func resolveAlias(aliases map[string]mir.Place, p mir.Place) mir.Place {
	for {
		next, ok := aliases[p.Name]
		if !ok || next.Name == p.Name {
			return p
		}
		p = next
	}
}

// ---- 3. common subexpression elimination (per block) -----------------------

// cseBlocks deduplicates pure, identical BinOp/UnaryOp computations within
// a single block. The expression map is cleared on entry to each block:
// cross-block CSE broke SSA dominance when sibling branches reused a
// subexpression, so per-block scoping is load-bearing here, not an
// optimization left on the table (§4.5 step 3).
func cseBlocks(fn *mir.Function) bool {
	changed := false
	for _, b := range fn.Blocks {
		seen := make(map[string]mir.Place)
		aliases := make(map[string]mir.Place)
		kept := b.Instrs[:0]
		for _, in := range b.Instrs {
			rewriteOperands(in, func(p mir.Place) mir.Place { return resolveAlias(aliases, p) })
			key, dest, ok := cseKey(in)
			if !ok {
				kept = append(kept, in)
				continue
			}
			if prior, ok := seen[key]; ok {
				aliases[dest.Name] = prior
				changed = true
				continue
			}
			seen[key] = dest
			kept = append(kept, in)
		}
		b.Instrs = kept
		rewriteTermOperands(b.Term, func(p mir.Place) mir.Place { return resolveAlias(aliases, p) })
	}
	return changed
}

func cseKey(in mir.Instr) (string, mir.Place, bool) {
	switch v := in.(type) {
	case *mir.InstrBinOp:
		return "bin:" + v.Op + ":" + v.L.Name + ":" + v.R.Name, v.Dest, true
	case *mir.InstrUnaryOp:
		return "un:" + v.Op + ":" + v.X.Name, v.Dest, true
	case *mir.InstrGEP:
		return "gep:" + v.Base.Name + ":" + itoa(v.Index), v.Dest, true
	}
	return "", mir.Place{}, false
}

// ---- 4. dead code elimination -----------------------------------------------

// deadCodeEliminate removes instructions whose result is never used and
// that have no side effects. Call, ClosureCall and Store are never
// removed even when unused — they may be the program's only observable
// effect.
func deadCodeEliminate(fn *mir.Function) bool {
	used := usedNames(fn)
	changed := false
	for _, b := range fn.Blocks {
		kept := b.Instrs[:0]
		for _, in := range b.Instrs {
			dest, ok := destOf(in)
			if ok && !used[dest.Name] && isPure(in) {
				changed = true
				continue
			}
			kept = append(kept, in)
		}
		b.Instrs = kept
	}
	return changed
}

func destOf(in mir.Instr) (mir.Place, bool) {
	switch v := in.(type) {
	case *mir.InstrConst:
		return v.Dest, true
	case *mir.InstrCopy:
		return v.Dest, true
	case *mir.InstrBinOp:
		return v.Dest, true
	case *mir.InstrUnaryOp:
		return v.Dest, true
	case *mir.InstrCall:
		if v.Dest != nil {
			return *v.Dest, true
		}
	case *mir.InstrClosureAlloc:
		return v.Dest, true
	case *mir.InstrClosureCall:
		return v.Dest, true
	case *mir.InstrLoad:
		return v.Dest, true
	case *mir.InstrGEP:
		return v.Dest, true
	case *mir.InstrRecordAlloc:
		return v.Dest, true
	}
	return mir.Place{}, false
}

func isPure(in mir.Instr) bool {
	switch in.(type) {
	case *mir.InstrCall, *mir.InstrClosureCall, *mir.InstrStore:
		return false
	default:
		return true
	}
}

func usedNames(fn *mir.Function) map[string]bool {
	used := make(map[string]bool)
	mark := func(p mir.Place) mir.Place { used[p.Name] = true; return p }
	walkInstrs(fn, func(b *mir.BasicBlock, i int) { rewriteOperands(b.Instrs[i], mark) })
	for _, b := range fn.Blocks {
		rewriteTermOperands(b.Term, mark)
	}
	if fn.Post != nil {
		for _, in := range fn.Post.Instrs {
			rewriteOperands(in, mark)
		}
		used[fn.Post.Result.Name] = true
	}
	return used
}

// ---- 5. inlining -------------------------------------------------------------

const inlineSizeThreshold = 6 // instructions; only single-block, side-effect-light callees qualify
const inlinePerFunctionCap = 32

// inlineCalls inlines direct calls to small, single-block, non-recursive
// callees at their call sites. Multi-block callees (anything with its own
// branches) are left uninlined: splicing control flow into a call site
// while preserving SSA dominance needs a real CFG-splice, which is out of
// scope for this pass — a limitation, not an oversight.
func inlineCalls(fn *mir.Function, siblings []*mir.Function) bool {
	budget := inlinePerFunctionCap
	changed := false
	for _, b := range fn.Blocks {
		var kept []mir.Instr
		for _, in := range b.Instrs {
			call, ok := in.(*mir.InstrCall)
			if !ok || call.Name == fn.Name || budget <= 0 {
				kept = append(kept, in)
				continue
			}
			callee := lookupCallee(siblings, call.Name)
			if callee == nil || len(callee.Blocks) != 1 || len(callee.Blocks[0].Instrs) > inlineSizeThreshold {
				kept = append(kept, in)
				continue
			}
			ret, ok := callee.Blocks[0].Term.(*mir.TermReturn)
			if !ok {
				kept = append(kept, in)
				continue
			}
			subst := make(map[string]mir.Place, len(callee.Params))
			for i, p := range callee.Params {
				if i < len(call.Args) {
					subst[p.Name] = call.Args[i]
				}
			}
			prefix := fn.Name + ".inl."
			for _, ci := range callee.Blocks[0].Instrs {
				kept = append(kept, cloneRenamed(ci, subst, prefix))
			}
			if call.Dest != nil && ret.Value != nil {
				src := renamePlace(*ret.Value, subst, prefix)
				kept = append(kept, &mir.InstrCopy{Dest: *call.Dest, Src: src})
			}
			budget--
			changed = true
		}
		b.Instrs = kept
	}
	return changed
}

func lookupCallee(siblings []*mir.Function, name string) *mir.Function {
	for _, f := range siblings {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func cloneRenamed(in mir.Instr, subst map[string]mir.Place, prefix string) mir.Instr {
	rn := func(p mir.Place) mir.Place { return renamePlace(p, subst, prefix) }
	switch v := in.(type) {
	case *mir.InstrConst:
		return &mir.InstrConst{Dest: rn(v.Dest), Value: v.Value}
	case *mir.InstrCopy:
		return &mir.InstrCopy{Dest: rn(v.Dest), Src: rn(v.Src)}
	case *mir.InstrBinOp:
		return &mir.InstrBinOp{Dest: rn(v.Dest), Op: v.Op, L: rn(v.L), R: rn(v.R)}
	case *mir.InstrUnaryOp:
		return &mir.InstrUnaryOp{Dest: rn(v.Dest), Op: v.Op, X: rn(v.X)}
	case *mir.InstrGEP:
		return &mir.InstrGEP{Dest: rn(v.Dest), Base: rn(v.Base), Index: v.Index, ElemType: v.ElemType}
	case *mir.InstrLoad:
		return &mir.InstrLoad{Dest: rn(v.Dest), Addr: rn(v.Addr)}
	case *mir.InstrStore:
		return &mir.InstrStore{Addr: rn(v.Addr), Value: rn(v.Value)}
	case *mir.InstrCall:
		args := make([]mir.Place, len(v.Args))
		for i, a := range v.Args {
			args[i] = rn(a)
		}
		var dest *mir.Place
		if v.Dest != nil {
			d := rn(*v.Dest)
			dest = &d
		}
		return &mir.InstrCall{Dest: dest, Name: v.Name, Args: args, Tail: v.Tail}
	case *mir.InstrClosureAlloc:
		caps := make([]mir.Place, len(v.Captures))
		for i, c := range v.Captures {
			caps[i] = rn(c)
		}
		return &mir.InstrClosureAlloc{Dest: rn(v.Dest), FnName: v.FnName, Captures: caps}
	case *mir.InstrClosureCall:
		args := make([]mir.Place, len(v.Args))
		for i, a := range v.Args {
			args[i] = rn(a)
		}
		return &mir.InstrClosureCall{Dest: rn(v.Dest), Closure: rn(v.Closure), Args: args}
	case *mir.InstrRecordAlloc:
		fields := make([]mir.Place, len(v.Fields))
		for i, fld := range v.Fields {
			fields[i] = rn(fld)
		}
		return &mir.InstrRecordAlloc{Dest: rn(v.Dest), TypeName: v.TypeName, Fields: fields}
	default:
		return in
	}
}

func renamePlace(p mir.Place, subst map[string]mir.Place, prefix string) mir.Place {
	if mapped, ok := subst[p.Name]; ok {
		return mapped
	}
	return mir.Place{Name: prefix + p.Name, Type: p.Type}
}

// ---- 6. LICM -----------------------------------------------------------------

// licm hoists loop-invariant pure instructions above their loop header.
// Loops are identified by back-edges in the CFG (a Goto/Branch target
// whose block appears at or before the current block in declaration
// order, the shape tail-call-to-loop produces). An instruction is
// invariant if every operand it reads is defined outside the loop body.
func licm(fn *mir.Function) bool {
	changed := false
	index := make(map[string]int, len(fn.Blocks))
	for i, b := range fn.Blocks {
		index[b.Label] = i
	}
	for i, b := range fn.Blocks {
		for _, target := range termTargets(b.Term) {
			if j, ok := index[target]; ok && j <= i {
				if hoistLoop(fn, j, i) {
					changed = true
				}
			}
		}
	}
	return changed
}

func termTargets(t mir.Term) []string {
	switch v := t.(type) {
	case *mir.TermGoto:
		return []string{v.Target}
	case *mir.TermBranch:
		return []string{v.Then, v.Else}
	}
	return nil
}

// hoistLoop moves pure instructions from the loop body (blocks header..tail
// inclusive) into a synthesized preheader spliced just before header, when
// their operands are defined entirely outside that range.
func hoistLoop(fn *mir.Function, header, tail int) bool {
	definedInLoop := make(map[string]bool)
	for i := header; i <= tail; i++ {
		for _, in := range fn.Blocks[i].Instrs {
			if d, ok := destOf(in); ok {
				definedInLoop[d.Name] = true
			}
		}
		for _, p := range fn.Blocks[i].Params {
			definedInLoop[p.Name] = true
		}
	}

	var hoisted []mir.Instr
	changed := false
	body := fn.Blocks[header]
	var kept []mir.Instr
	for _, in := range body.Instrs {
		if isPure(in) && !readsAny(in, definedInLoop) {
			hoisted = append(hoisted, in)
			changed = true
			continue
		}
		kept = append(kept, in)
	}
	body.Instrs = kept
	if len(hoisted) == 0 {
		return false
	}

	preheader := &mir.BasicBlock{
		Label:  body.Label + ".preheader",
		Instrs: hoisted,
		Term:   &mir.TermGoto{Target: body.Label},
	}
	grown := make([]*mir.BasicBlock, 0, len(fn.Blocks)+1)
	grown = append(grown, fn.Blocks[:header]...)
	grown = append(grown, preheader)
	grown = append(grown, fn.Blocks[header:]...)
	fn.Blocks = grown

	// Retarget every predecessor strictly before the loop (the only ones
	// that can reach it from outside); the loop's own back-edges at
	// index > header must keep targeting body.Label directly, not
	// re-enter through the preheader on every iteration.
	for i := 0; i < header; i++ {
		retarget(fn.Blocks[i].Term, body.Label, preheader.Label)
	}
	return changed
}

func retarget(t mir.Term, from, to string) {
	switch v := t.(type) {
	case *mir.TermGoto:
		if v.Target == from {
			v.Target = to
		}
	case *mir.TermBranch:
		if v.Then == from {
			v.Then = to
		}
		if v.Else == from {
			v.Else = to
		}
	}
}

func readsAny(in mir.Instr, names map[string]bool) bool {
	found := false
	rewriteOperands(in, func(p mir.Place) mir.Place {
		if names[p.Name] {
			found = true
		}
		return p
	})
	return found
}

// ---- 7. tail-call-to-loop -----------------------------------------------------

// tailCallToLoop rewrites a self-tail-recursive function whose tail calls
// match the parameter list into a loop: a synthesized header block whose
// parameters are the original argument places, entered once from the real
// entry with the incoming arguments and re-entered via a back-edge from
// every tail call site, replacing the call+return with a branch (§4.5
// step 7, §8 property 7). This is the optimization behind BMB's reported
// speedups on ackermann, nqueen, and sorting.
func tailCallToLoop(fn *mir.Function) bool {
	if len(fn.Blocks) == 0 {
		return false
	}
	sites := findSelfTailCalls(fn)
	if len(sites) == 0 {
		return false
	}

	headerLabel := fn.Blocks[0].Label + ".loop"
	loopParams := make([]mir.Place, len(fn.Params))
	for i, p := range fn.Params {
		loopParams[i] = mir.Place{Name: "loop." + p.Name, Type: p.Type}
	}
	subst := make(map[string]mir.Place, len(fn.Params))
	for i, p := range fn.Params {
		subst[p.Name] = loopParams[i]
	}
	rename := func(p mir.Place) mir.Place { return resolveAlias(subst, p) }
	for _, b := range fn.Blocks {
		// In-place operand rewriting (not cloneRenamed): every instruction
		// here belongs solely to fn, and rewriteOperands covers every
		// instruction kind including closure/record/store forms that
		// cloneRenamed only partially handles for its inlining use case.
		for _, in := range b.Instrs {
			rewriteOperands(in, rename)
		}
		rewriteTermOperands(b.Term, rename)
	}

	for _, site := range sites {
		b := fn.Blocks[site.blockIdx]
		call := b.Instrs[site.instrIdx].(*mir.InstrCall)
		args := make([]mir.Place, len(call.Args))
		copy(args, call.Args)
		b.Instrs = append(b.Instrs[:site.instrIdx], b.Instrs[site.instrIdx+1:]...)
		b.Term = &mir.TermGoto{Target: headerLabel, Args: args}
	}

	header := &mir.BasicBlock{Label: headerLabel, Params: loopParams, Term: &mir.TermGoto{Target: fn.Blocks[0].Label}}
	entryArgs := make([]mir.Place, len(fn.Params))
	copy(entryArgs, fn.Params)
	realEntry := &mir.BasicBlock{Label: fn.Name + ".entry", Term: &mir.TermGoto{Target: headerLabel, Args: entryArgs}}
	fn.Blocks = append([]*mir.BasicBlock{realEntry, header}, fn.Blocks...)
	return true
}

type tailSite struct{ blockIdx, instrIdx int }

func findSelfTailCalls(fn *mir.Function) []tailSite {
	var out []tailSite
	for bi, b := range fn.Blocks {
		ret, ok := b.Term.(*mir.TermReturn)
		if !ok || len(b.Instrs) == 0 {
			continue
		}
		li := len(b.Instrs) - 1
		call, ok := b.Instrs[li].(*mir.InstrCall)
		if !ok || !call.Tail || call.Name != fn.Name || len(call.Args) != len(fn.Params) {
			continue
		}
		if call.Dest == nil && ret.Value != nil {
			continue
		}
		if call.Dest != nil && (ret.Value == nil || ret.Value.Name != call.Dest.Name) {
			continue
		}
		out = append(out, tailSite{blockIdx: bi, instrIdx: li})
	}
	return out
}

// ---- 8. contract-unreachable elimination -------------------------------------

// contractUnreachable drops a pre/post contract whose result constant-folds
// to true: the runtime bmb_assert it would otherwise lower to is pruned
// because the condition is already proven (§4.5 step 8).
func contractUnreachable(fn *mir.Function) bool {
	changed := false
	if fn.Pre != nil && contractProvenTrue(fn.Pre) {
		fn.Pre = nil
		changed = true
	}
	if fn.Post != nil && contractProvenTrue(fn.Post) {
		fn.Post = nil
		changed = true
	}
	return changed
}

func contractProvenTrue(c *mir.Contract) bool {
	consts := make(map[string]mir.Const)
	for _, in := range c.Instrs {
		switch v := in.(type) {
		case *mir.InstrConst:
			consts[v.Dest.Name] = v.Value
		case *mir.InstrBinOp:
			if l, lok := consts[v.L.Name]; lok {
				if r, rok := consts[v.R.Name]; rok {
					if folded, ok := foldBinOp(v.Op, l, r); ok {
						consts[v.Dest.Name] = folded
					}
				}
			}
		case *mir.InstrUnaryOp:
			if x, ok := consts[v.X.Name]; ok {
				if folded, ok := foldUnaryOp(v.Op, x); ok {
					consts[v.Dest.Name] = folded
				}
			}
		}
	}
	c2, ok := consts[c.Result.Name]
	return ok && c2.Kind == mir.ConstBool && c2.B
}

// ---- shared traversal helpers -------------------------------------------------

func walkInstrs(fn *mir.Function, f func(b *mir.BasicBlock, i int)) {
	for _, b := range fn.Blocks {
		for i := range b.Instrs {
			f(b, i)
		}
	}
}

// rewriteOperands applies f to every Place an instruction reads (not the
// Dest it writes) and writes the (possibly unchanged) result back.
func rewriteOperands(in mir.Instr, f func(mir.Place) mir.Place) {
	switch v := in.(type) {
	case *mir.InstrCopy:
		v.Src = f(v.Src)
	case *mir.InstrBinOp:
		v.L, v.R = f(v.L), f(v.R)
	case *mir.InstrUnaryOp:
		v.X = f(v.X)
	case *mir.InstrCall:
		for i := range v.Args {
			v.Args[i] = f(v.Args[i])
		}
	case *mir.InstrClosureAlloc:
		for i := range v.Captures {
			v.Captures[i] = f(v.Captures[i])
		}
	case *mir.InstrClosureCall:
		v.Closure = f(v.Closure)
		for i := range v.Args {
			v.Args[i] = f(v.Args[i])
		}
	case *mir.InstrLoad:
		v.Addr = f(v.Addr)
	case *mir.InstrStore:
		v.Addr = f(v.Addr)
		v.Value = f(v.Value)
	case *mir.InstrGEP:
		v.Base = f(v.Base)
	case *mir.InstrRecordAlloc:
		for i := range v.Fields {
			v.Fields[i] = f(v.Fields[i])
		}
	}
}

func rewriteTermOperands(t mir.Term, f func(mir.Place) mir.Place) {
	switch v := t.(type) {
	case *mir.TermReturn:
		if v.Value != nil {
			nv := f(*v.Value)
			v.Value = &nv
		}
	case *mir.TermGoto:
		for i := range v.Args {
			v.Args[i] = f(v.Args[i])
		}
	case *mir.TermBranch:
		v.Cond = f(v.Cond)
		for i := range v.ThenArgs {
			v.ThenArgs[i] = f(v.ThenArgs[i])
		}
		for i := range v.ElseArgs {
			v.ElseArgs[i] = f(v.ElseArgs[i])
		}
	}
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

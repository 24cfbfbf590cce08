package mir

import (
	"fmt"

	"bmb/internal/ast"
	"bmb/internal/support"
	"bmb/internal/types"
)

// binding is what a lexical name resolves to during lowering: either an
// SSA value already computed (a `let`), or the address of a `var` local
// that must be loaded on every use and stored on assignment (§4.4).
type binding struct {
	place Place
	isVar bool
}

// Lower converts an elaborated Program into a whole MIR Program. info must
// come from a types.Check run that reported no fatal diagnostics: lowering
// assumes the input already type-checks and does not re-validate it.
func Lower(prog *ast.Program, info *types.Info) *Program {
	l := &lowerer{prog: &Program{}, info: info}
	for _, it := range prog.Items {
		switch n := it.(type) {
		case *ast.FnDef:
			l.prog.Functions = append(l.prog.Functions, l.lowerFn(n.Name, n))
		case *ast.ImplBlock:
			selfType := l.resolveSelfTypeName(n.TypeName)
			for _, m := range n.Methods {
				qualified := "@impl." + selfType + "." + m.Name
				l.prog.Functions = append(l.prog.Functions, l.lowerFn(qualified, m))
			}
		}
	}
	return l.prog
}

type lowerer struct {
	prog       *Program
	info       *types.Info
	fn         *Function
	cur        *BasicBlock
	scopes     support.Stack[map[string]binding]
	tmp        int
	blockSeq   int
	closureSeq int
}

func (l *lowerer) resolveSelfTypeName(te ast.TypeExpr) string {
	switch n := te.(type) {
	case *ast.NamedType:
		return n.Name
	case *ast.PrimitiveType:
		return n.Name
	default:
		return "?"
	}
}

// ---- scope handling -------------------------------------------------------

func (l *lowerer) pushScope() { l.scopes.Push(make(map[string]binding)) }
func (l *lowerer) popScope()  { l.scopes.Pop() }

func (l *lowerer) define(name string, b binding) {
	if s, ok := l.scopes.Peek(); ok {
		s[name] = b
	}
}

func (l *lowerer) lookup(name string) (binding, bool) {
	for i := 1; i <= l.scopes.Size(); i++ {
		s, ok := l.scopes.Get(i)
		if !ok {
			continue
		}
		if b, ok := s[name]; ok {
			return b, true
		}
	}
	return binding{}, false
}

// ---- fresh names -----------------------------------------------------------

func (l *lowerer) freshPlace(prefix string, t types.Type) Place {
	l.tmp++
	return Place{Name: fmt.Sprintf("%s%d", prefix, l.tmp), Type: t}
}

func (l *lowerer) freshLabel(prefix string) string {
	l.blockSeq++
	return fmt.Sprintf("%s%d", prefix, l.blockSeq)
}

func (l *lowerer) newBlock(label string) *BasicBlock {
	b := &BasicBlock{Label: label}
	l.fn.Blocks = append(l.fn.Blocks, b)
	return b
}

func (l *lowerer) emit(i Instr) { l.cur.Emit(i) }

// ---- function-level lowering ------------------------------------------------

func (l *lowerer) lowerFn(name string, n *ast.FnDef) *Function {
	sig := l.info.Env.Functions[name]
	if sig == nil {
		// impl methods are registered under the qualified name directly.
		sig = l.info.Env.Functions[n.Name]
	}
	var ret types.Type = types.Unit
	var paramTypes []types.Type
	if sig != nil {
		ret = sig.Ret
		paramTypes = sig.Params
	}

	f := &Function{Name: name, Ret: ret}
	l.fn = f
	l.tmp, l.blockSeq = 0, 0
	l.pushScope()
	defer l.popScope()

	for i, p := range n.Params {
		var pt types.Type = types.Unit
		if i < len(paramTypes) {
			pt = paramTypes[i]
		}
		place := Place{Name: "arg." + p.Name, Type: pt}
		f.Params = append(f.Params, place)
		l.define(p.Name, binding{place: place})
	}

	entry := l.newBlock(l.freshLabel("entry"))
	l.cur = entry

	if n.Pre != nil {
		f.Pre = l.lowerContract(n.Pre)
	}

	result := l.lowerExpr(n.Body, true)
	if result.Type == types.Unit {
		l.cur.Term = &TermReturn{}
	} else {
		r := result
		l.cur.Term = &TermReturn{Value: &r}
	}

	if n.Post != nil {
		l.pushScope()
		l.define("result", binding{place: result})
		f.Post = l.lowerContract(n.Post)
		l.popScope()
	}

	return f
}

// lowerContract lowers a pre/post boolean expression into its own
// straight-line instruction list, independent of the function's basic
// blocks: contracts never branch (the checker already proved they
// synthesize to bool), so no control flow is needed here.
func (l *lowerer) lowerContract(e ast.Expr) *Contract {
	save := l.cur
	block := &BasicBlock{Label: l.freshLabel("contract")}
	l.cur = block
	result := l.lowerExpr(e, false)
	l.cur = save
	return &Contract{Instrs: block.Instrs, Result: result}
}

// ---- expression lowering ----------------------------------------------------

// lowerExpr lowers e into the current block, returning the Place holding
// its value. tail is true when e occupies tail position in its enclosing
// function (the final value returned), which matters only for Call: a
// call lowered with tail=true is marked for the optimizer's
// tail-call-to-loop pass.
func (l *lowerer) lowerExpr(e ast.Expr, tail bool) Place {
	switch n := e.(type) {
	case *ast.IntLit:
		return l.lowerConst(IntConst(n.Value), types.I64)
	case *ast.FloatLit:
		return l.lowerConst(FloatConst(n.Value), types.F64)
	case *ast.BoolLit:
		return l.lowerConst(BoolConst(n.Value), types.Bool)
	case *ast.StringLit:
		id := l.prog.StringID(n.Value)
		return l.lowerConst(Const{Kind: ConstStr, I: int64(id), S: n.Value}, types.Str)
	case *ast.UnitLit:
		return l.lowerConst(UnitConst(), types.Unit)
	case *ast.Var:
		return l.lowerVar(n)
	case *ast.Binary:
		return l.lowerBinary(n)
	case *ast.Unary:
		return l.lowerUnary(n)
	case *ast.If:
		return l.lowerIf(n, tail)
	case *ast.Let:
		return l.lowerLet(n, tail)
	case *ast.Call:
		return l.lowerCall(n, tail)
	case *ast.Block:
		return l.lowerBlock(n, tail)
	case *ast.Match:
		return l.lowerMatch(n, tail)
	case *ast.Closure:
		return l.lowerClosure(n)
	case *ast.FieldAccess:
		return l.lowerFieldAccess(n)
	case *ast.Index:
		return l.lowerIndex(n)
	case *ast.StructLit:
		return l.lowerStructLit(n)
	case *ast.EnumCtor:
		return l.lowerEnumCtor(n)
	}
	return l.lowerConst(UnitConst(), types.Unit)
}

func (l *lowerer) lowerConst(c Const, t types.Type) Place {
	dst := l.freshPlace("t", t)
	l.emit(&InstrConst{Dest: dst, Value: c})
	return dst
}

func (l *lowerer) lowerVar(n *ast.Var) Place {
	if b, ok := l.lookup(n.Name); ok {
		if !b.isVar {
			return b.place
		}
		dst := l.freshPlace("t", derefType(b.place.Type))
		l.emit(&InstrLoad{Dest: dst, Addr: b.place})
		return dst
	}
	// A bare reference to a top-level function used as a value (passed
	// around, not called directly) — treated as a zero-capture closure.
	if sig, ok := l.info.Env.Functions[n.Name]; ok {
		dst := l.freshPlace("t", types.Function{Params: sig.Params, Ret: sig.Ret})
		l.emit(&InstrClosureAlloc{Dest: dst, FnName: n.Name})
		return dst
	}
	return l.lowerConst(UnitConst(), types.Unit)
}

var intBinOps = map[string]string{
	"+": "i+", "-": "i-", "*": "i*", "/": "i/", "%": "i%",
	"<<": "i<<", ">>": "i>>",
	"==": "i==", "!=": "i!=", "<": "i<", ">": "i>", "<=": "i<=", ">=": "i>=",
}

var floatBinOps = map[string]string{
	"+": "f+", "-": "f-", "*": "f*", "/": "f/",
	"==": "f==", "!=": "f!=", "<": "f<", ">": "f>", "<=": "f<=", ">=": "f>=",
}

// lowerBinary type-tags the opcode by operand type per §4.4: integer
// operands select "i+ i- i* i/ …", float operands select "f+ f- f* f/ …".
// && and || are handed to lowerShortCircuit, which lowers them to branches.
func (l *lowerer) lowerBinary(n *ast.Binary) Place {
	if n.Op == "&&" || n.Op == "||" {
		return l.lowerShortCircuit(n)
	}
	lp := l.lowerExpr(n.L, false)
	rp := l.lowerExpr(n.R, false)
	var op string
	var resT types.Type
	if types.Equal(lp.Type, types.F64) {
		op = floatBinOps[n.Op]
		resT = lp.Type
	} else {
		op = intBinOps[n.Op]
		resT = lp.Type
	}
	switch n.Op {
	case "==", "!=", "<", ">", "<=", ">=":
		resT = types.Bool
	}
	dst := l.freshPlace("t", resT)
	l.emit(&InstrBinOp{Dest: dst, Op: op, L: lp, R: rp})
	return dst
}

// lowerShortCircuit lowers && and || to branching rather than BinOp, per
// §4.4: `a && b` only evaluates b when a is true; `a || b` only evaluates
// b when a is false.
func (l *lowerer) lowerShortCircuit(n *ast.Binary) Place {
	lp := l.lowerExpr(n.L, false)
	rhsLabel := l.freshLabel("sc.rhs")
	joinLabel := l.freshLabel("sc.join")
	shortLabel := l.freshLabel("sc.short")

	entry := l.cur
	shortVal := n.Op == "||" // || short-circuits to true, && to false
	if n.Op == "&&" {
		entry.Term = &TermBranch{Cond: lp, Then: rhsLabel, Else: shortLabel}
	} else {
		entry.Term = &TermBranch{Cond: lp, Then: shortLabel, Else: rhsLabel}
	}

	rhsBlock := l.newBlock(rhsLabel)
	l.cur = rhsBlock
	rp := l.lowerExpr(n.R, false)
	rhsBlock.Term = &TermGoto{Target: joinLabel, Args: []Place{rp}}

	shortBlock := l.newBlock(shortLabel)
	shortConst := l.freshPlace("t", types.Bool)
	shortBlock.Emit(&InstrConst{Dest: shortConst, Value: BoolConst(shortVal)})
	shortBlock.Term = &TermGoto{Target: joinLabel, Args: []Place{shortConst}}

	join := l.newBlock(joinLabel)
	param := l.freshPlace("t", types.Bool)
	join.Params = []Place{param}
	l.cur = join
	return param
}

func (l *lowerer) lowerUnary(n *ast.Unary) Place {
	xp := l.lowerExpr(n.X, false)
	op := n.Op
	if n.Op == "-" {
		if types.Equal(xp.Type, types.F64) {
			op = "fneg"
		} else {
			op = "ineg"
		}
	}
	dst := l.freshPlace("t", xp.Type)
	l.emit(&InstrUnaryOp{Dest: dst, Op: op, X: xp})
	return dst
}

// lowerIf lowers to two successor blocks joined by a common block with one
// parameter holding the if's value (§4.4).
func (l *lowerer) lowerIf(n *ast.If, tail bool) Place {
	cond := l.lowerExpr(n.Cond, false)
	thenLabel := l.freshLabel("if.then")
	elseLabel := l.freshLabel("if.else")
	joinLabel := l.freshLabel("if.join")
	resT := l.info.TypeOf(n)

	l.cur.Term = &TermBranch{Cond: cond, Then: thenLabel, Else: elseLabel}

	thenBlock := l.newBlock(thenLabel)
	l.cur = thenBlock
	thenVal := l.lowerExpr(n.Then, tail)
	if l.cur.Term == nil {
		l.cur.Term = &TermGoto{Target: joinLabel, Args: []Place{thenVal}}
	}

	elseBlock := l.newBlock(elseLabel)
	l.cur = elseBlock
	var elseVal Place
	if n.Else != nil {
		elseVal = l.lowerExpr(n.Else, tail)
	} else {
		elseVal = l.lowerConst(UnitConst(), types.Unit)
	}
	if l.cur.Term == nil {
		l.cur.Term = &TermGoto{Target: joinLabel, Args: []Place{elseVal}}
	}

	join := l.newBlock(joinLabel)
	param := l.freshPlace("t", resT)
	join.Params = []Place{param}
	l.cur = join
	return param
}

func (l *lowerer) lowerLet(n *ast.Let, tail bool) Place {
	valT := l.info.TypeOf(n.Value)
	if n.Mutable {
		val := l.lowerExpr(n.Value, false)
		addr := l.freshPlace("local."+n.Name, types.Named{Name: "ptr", Args: []types.Type{valT}})
		l.fn.Locals = append(l.fn.Locals, Local{Name: addr.Name, Type: valT})
		l.emit(&InstrStore{Addr: addr, Value: val})
		l.pushScope()
		l.define(n.Name, binding{place: addr, isVar: true})
		result := l.lowerExpr(n.Body, tail)
		l.popScope()
		return result
	}
	val := l.lowerExpr(n.Value, false)
	l.pushScope()
	l.define(n.Name, binding{place: val})
	result := l.lowerExpr(n.Body, tail)
	l.popScope()
	return result
}

func (l *lowerer) lowerBlock(n *ast.Block, tail bool) Place {
	l.pushScope()
	defer l.popScope()
	if len(n.Stmts) == 0 {
		return l.lowerConst(UnitConst(), types.Unit)
	}
	var last Place
	for i, s := range n.Stmts {
		last = l.lowerExpr(s, tail && i == len(n.Stmts)-1)
	}
	return last
}

// lowerCall distinguishes a direct call to a named top-level function
// (InstrCall, eligible for tail-call-to-loop when self-recursive) from an
// invocation of a closure value held in a local (InstrClosureCall, which
// threads the capture record as the synthesized function's first
// argument).
func (l *lowerer) lowerCall(n *ast.Call, tail bool) Place {
	resT := l.info.TypeOf(n)
	if va, ok := n.Callee.(*ast.Var); ok {
		if _, shadowed := l.lookup(va.Name); !shadowed {
			if IsRuntimeBuiltin(va.Name) {
				var argT types.Type = types.Unit
				if len(n.Args) > 0 {
					argT = l.info.TypeOf(n.Args[0])
				}
				sym, ok := ResolveRuntimeCall(va.Name, argT)
				if ok {
					args := l.lowerArgs(n.Args)
					return l.emitDirectCall(sym, args, resT, false)
				}
			}
			if _, ok := l.info.Env.Functions[va.Name]; ok {
				args := l.lowerArgs(n.Args)
				return l.emitDirectCall(va.Name, args, resT, tail)
			}
		}
	}
	closure := l.lowerExpr(n.Callee, false)
	args := l.lowerArgs(n.Args)
	dst := l.freshPlace("t", resT)
	l.emit(&InstrClosureCall{Dest: dst, Closure: closure, Args: args})
	return dst
}

func (l *lowerer) lowerArgs(args []ast.Expr) []Place {
	out := make([]Place, len(args))
	for i, a := range args {
		out[i] = l.lowerExpr(a, false)
	}
	return out
}

// emitDirectCall marks Tail whenever the call sits in tail position
// (§4.4); the optimizer's tail-call-to-loop pass further restricts itself
// to the self-recursive subset it can rewrite as a back-edge.
func (l *lowerer) emitDirectCall(name string, args []Place, resT types.Type, tail bool) Place {
	if types.Equal(resT, types.Unit) {
		l.emit(&InstrCall{Name: name, Args: args, Tail: tail})
		return l.lowerConst(UnitConst(), types.Unit)
	}
	dst := l.freshPlace("t", resT)
	l.emit(&InstrCall{Dest: &dst, Name: name, Args: args, Tail: tail})
	return dst
}

// ---- match lowering ---------------------------------------------------------

// lowerMatch lowers to a decision chain: one comparison-and-branch per
// arm, testing the scrutinee's tag, falling through to the next arm on
// mismatch, and joining every arm's body at a common block (§4.4). The
// checker has already rejected a non-exhaustive match over a closed enum,
// so the final arm (wildcard, variable, or the last declared variant) is
// always reachable as the chain's fallthrough.
func (l *lowerer) lowerMatch(n *ast.Match, tail bool) Place {
	scrutT := l.info.TypeOf(n.Scrutinee)
	scrut := l.lowerExpr(n.Scrutinee, false)
	joinLabel := l.freshLabel("match.join")
	resT := l.info.TypeOf(n)

	named, isEnum := types.ToOption(scrutT).(types.Named)
	var enumInfo *types.EnumInfo
	if isEnum {
		enumInfo, isEnum = l.info.Env.Enums[named.Name]
	}

	for i, arm := range n.Arms {
		last := i == len(n.Arms)-1
		var bodyLabel, nextLabel string
		if ctor, ok := arm.Pat.(*ast.CtorPattern); ok && isEnum {
			bodyLabel = l.freshLabel("match.arm")
			nextLabel = l.freshLabel("match.next")
			tagPlace := l.lowerTagOf(scrut)
			variantIdx := variantIndex(enumInfo, ctor.Variant)
			tagConst := l.freshPlace("t", types.I64)
			l.emit(&InstrConst{Dest: tagConst, Value: IntConst(int64(variantIdx))})
			eq := l.freshPlace("t", types.Bool)
			l.emit(&InstrBinOp{Dest: eq, Op: "i==", L: tagPlace, R: tagConst})
			l.cur.Term = &TermBranch{Cond: eq, Then: bodyLabel, Else: nextLabel}

			arm := l.newBlock(bodyLabel)
			l.cur = arm
			l.pushScope()
			l.bindCtorPayload(ctor, scrut, enumInfo, variantIdx)
			val := l.lowerExpr(arm0Body(n.Arms[i]), tail)
			l.popScope()
			if l.cur.Term == nil {
				l.cur.Term = &TermGoto{Target: joinLabel, Args: []Place{val}}
			}

			l.cur = l.newBlock(nextLabel)
			if last {
				l.cur.Term = &TermUnreachable{}
			}
			continue
		}

		// Wildcard/variable arm: matches unconditionally, binds the
		// whole scrutinee if it's a VarPattern, and is always the last
		// reachable arm the checker allows without exhaustiveness cover.
		l.pushScope()
		if vp, ok := arm.Pat.(*ast.VarPattern); ok {
			l.define(vp.Name, binding{place: scrut})
		}
		val := l.lowerExpr(arm.Body, tail)
		l.popScope()
		if l.cur.Term == nil {
			l.cur.Term = &TermGoto{Target: joinLabel, Args: []Place{val}}
		}
		break
	}

	join := l.newBlock(joinLabel)
	param := l.freshPlace("t", resT)
	join.Params = []Place{param}
	l.cur = join
	return param
}

func arm0Body(arm ast.MatchArm) ast.Expr { return arm.Body }

func (l *lowerer) lowerTagOf(scrut Place) Place {
	dst := l.freshPlace("t", types.I64)
	l.emit(&InstrGEP{Dest: dst, Base: scrut, Index: 0, ElemType: types.I64})
	loaded := l.freshPlace("t", types.I64)
	l.emit(&InstrLoad{Dest: loaded, Addr: dst})
	return loaded
}

func variantIndex(info *types.EnumInfo, variant string) int {
	for i, v := range info.VariantOrder {
		if v == variant {
			return i
		}
	}
	return -1
}

// bindCtorPayload binds a CtorPattern's payload names to GEP+Load places
// computed from the enum's flattened field layout: field slots are laid
// out contiguously per variant after the tag (slot 0), so each variant's
// payload has a fixed absolute offset regardless of which variant is
// active. This trades density for a representation simple enough to
// express without a true tagged union in the SSA type system.
func (l *lowerer) bindCtorPayload(ctor *ast.CtorPattern, scrut Place, info *types.EnumInfo, variantIdx int) {
	offset := 1
	for i := 0; i < variantIdx; i++ {
		offset += len(info.Variants[info.VariantOrder[i]])
	}
	payload := info.Variants[info.VariantOrder[variantIdx]]
	for i, name := range ctor.Binds {
		if i >= len(payload) {
			break
		}
		addr := l.freshPlace("t", payload[i])
		l.emit(&InstrGEP{Dest: addr, Base: scrut, Index: offset + i, ElemType: payload[i]})
		val := l.freshPlace("t", payload[i])
		l.emit(&InstrLoad{Dest: val, Addr: addr})
		l.define(name, binding{place: val})
	}
}

// ---- closures ---------------------------------------------------------------

// lowerClosure performs free-variable capture analysis, synthesizes a
// top-level function taking a leading environment parameter, and emits a
// ClosureAlloc packaging the function pointer with the captured values
// (snapshotted by value, per the design notes on captured mutable state).
func (l *lowerer) lowerClosure(n *ast.Closure) Place {
	free := freeVars(n, paramNames(n.Params))
	var captureNames []string
	var captures []Place
	for _, name := range free {
		if b, ok := l.lookup(name); ok {
			place := b.place
			if b.isVar {
				loaded := l.freshPlace("t", derefType(place.Type))
				l.emit(&InstrLoad{Dest: loaded, Addr: place})
				place = loaded
			}
			captureNames = append(captureNames, name)
			captures = append(captures, place)
		}
	}
	n.Captures = captureNames

	l.closureSeq++
	fnName := fmt.Sprintf("closure$%d", l.closureSeq)

	fnType, _ := l.info.TypeOf(n).(types.Function)

	// Lower the synthesized body in its own function, with env.<name>
	// params standing in for the captures ahead of the closure's own
	// declared parameters.
	saveFn, saveCur, saveScopes, saveTmp, saveBlockSeq := l.fn, l.cur, l.scopes, l.tmp, l.blockSeq
	l.scopes = support.Stack[map[string]binding]{}
	l.tmp, l.blockSeq = 0, 0

	newFn := &Function{Name: fnName, Ret: fnType.Ret, ClosureOf: fnName}
	l.fn = newFn
	l.pushScope()
	for i, name := range captureNames {
		place := Place{Name: "env." + name, Type: captures[i].Type}
		newFn.Params = append(newFn.Params, place)
		l.define(name, binding{place: place})
	}
	for i, p := range n.Params {
		var pt types.Type = types.Unit
		if i < len(fnType.Params) {
			pt = fnType.Params[i]
		}
		place := Place{Name: "arg." + p.Name, Type: pt}
		newFn.Params = append(newFn.Params, place)
		l.define(p.Name, binding{place: place})
	}
	entry := &BasicBlock{Label: l.freshLabel("entry")}
	newFn.Blocks = append(newFn.Blocks, entry)
	l.cur = entry
	bodyVal := l.lowerExpr(n.Body, true)
	if types.Equal(bodyVal.Type, types.Unit) {
		l.cur.Term = &TermReturn{}
	} else {
		v := bodyVal
		l.cur.Term = &TermReturn{Value: &v}
	}
	l.popScope()
	l.prog.Functions = append(l.prog.Functions, newFn)

	l.fn, l.cur, l.scopes, l.tmp, l.blockSeq = saveFn, saveCur, saveScopes, saveTmp, saveBlockSeq

	dst := l.freshPlace("t", l.info.TypeOf(n))
	l.emit(&InstrClosureAlloc{Dest: dst, FnName: fnName, Captures: captures})
	return dst
}

func paramNames(params []ast.Param) map[string]bool {
	m := make(map[string]bool, len(params))
	for _, p := range params {
		m[p.Name] = true
	}
	return m
}

// freeVars walks a closure body collecting variable references not bound
// by its own parameters, in first-use order (determinism matters: capture
// order becomes the synthesized environment's field order, which must be
// stable for bootstrap fixed point).
func freeVars(n *ast.Closure, bound map[string]bool) []string {
	var order []string
	seen := make(map[string]bool)
	var walk func(e ast.Expr, bound map[string]bool)
	record := func(name string, bound map[string]bool) {
		if bound[name] || seen[name] {
			return
		}
		seen[name] = true
		order = append(order, name)
	}
	walk = func(e ast.Expr, bound map[string]bool) {
		switch x := e.(type) {
		case *ast.Var:
			record(x.Name, bound)
		case *ast.Binary:
			walk(x.L, bound)
			walk(x.R, bound)
		case *ast.Unary:
			walk(x.X, bound)
		case *ast.If:
			walk(x.Cond, bound)
			walk(x.Then, bound)
			if x.Else != nil {
				walk(x.Else, bound)
			}
		case *ast.Let:
			walk(x.Value, bound)
			inner := cloneSet(bound)
			inner[x.Name] = true
			walk(x.Body, inner)
		case *ast.Call:
			walk(x.Callee, bound)
			for _, a := range x.Args {
				walk(a, bound)
			}
		case *ast.Block:
			cur := bound
			for _, s := range x.Stmts {
				walk(s, cur)
				if lt, ok := s.(*ast.Let); ok {
					cur = cloneSet(cur)
					cur[lt.Name] = true
				}
			}
		case *ast.Match:
			walk(x.Scrutinee, bound)
			for _, arm := range x.Arms {
				inner := cloneSet(bound)
				bindPatternNames(arm.Pat, inner)
				walk(arm.Body, inner)
			}
		case *ast.Closure:
			inner := cloneSet(bound)
			for _, p := range x.Params {
				inner[p.Name] = true
			}
			walk(x.Body, inner)
		case *ast.FieldAccess:
			walk(x.X, bound)
		case *ast.Index:
			walk(x.X, bound)
			walk(x.Idx, bound)
		case *ast.StructLit:
			for _, f := range x.Fields {
				walk(f.Value, bound)
			}
		case *ast.EnumCtor:
			for _, a := range x.Args {
				walk(a, bound)
			}
		}
	}
	walk(n.Body, bound)
	return order
}

func bindPatternNames(p ast.Pattern, into map[string]bool) {
	switch pat := p.(type) {
	case *ast.VarPattern:
		into[pat.Name] = true
	case *ast.CtorPattern:
		for _, b := range pat.Binds {
			into[b] = true
		}
	}
}

func cloneSet(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ---- structs, tuples, enums --------------------------------------------------

func (l *lowerer) lowerFieldAccess(n *ast.FieldAccess) Place {
	xT := l.info.TypeOf(n.X)
	x := l.lowerExpr(n.X, false)
	named, _ := xT.(types.Named)
	info := l.info.Env.Structs[named.Name]
	idx := 0
	for i, fname := range info.FieldOrder {
		if fname == n.Field {
			idx = i
			break
		}
	}
	fieldT := l.info.TypeOf(n)
	addr := l.freshPlace("t", fieldT)
	l.emit(&InstrGEP{Dest: addr, Base: x, Index: idx, ElemType: fieldT})
	val := l.freshPlace("t", fieldT)
	l.emit(&InstrLoad{Dest: val, Addr: addr})
	return val
}

func (l *lowerer) lowerIndex(n *ast.Index) Place {
	x := l.lowerExpr(n.X, false)
	lit := n.Idx.(*ast.IntLit)
	elemT := l.info.TypeOf(n)
	addr := l.freshPlace("t", elemT)
	l.emit(&InstrGEP{Dest: addr, Base: x, Index: int(lit.Value), ElemType: elemT})
	val := l.freshPlace("t", elemT)
	l.emit(&InstrLoad{Dest: val, Addr: addr})
	return val
}

func (l *lowerer) lowerStructLit(n *ast.StructLit) Place {
	info := l.info.Env.Structs[n.Name]
	values := make([]Place, len(info.FieldOrder))
	for _, f := range n.Fields {
		v := l.lowerExpr(f.Value, false)
		for i, fname := range info.FieldOrder {
			if fname == f.Name {
				values[i] = v
			}
		}
	}
	dst := l.freshPlace("t", types.Named{Name: n.Name})
	l.emit(&InstrRecordAlloc{Dest: dst, TypeName: n.Name, Fields: values})
	return dst
}

// lowerEnumCtor materializes an enum value as a tagged record: slot 0
// holds the variant tag, subsequent slots hold this variant's payload at
// its fixed offset in the enum's flattened layout (see bindCtorPayload).
func (l *lowerer) lowerEnumCtor(n *ast.EnumCtor) Place {
	info := l.info.Env.Enums[n.Enum]
	variantIdx := variantIndex(info, n.Variant)
	args := l.lowerArgs(n.Args)
	tag := l.lowerConst(IntConst(int64(variantIdx)), types.I64)
	vals := append([]Place{tag}, args...)
	dst := l.freshPlace("t", l.info.TypeOf(n))
	l.emit(&InstrRecordAlloc{Dest: dst, TypeName: n.Enum, Fields: vals})
	return dst
}

// derefType strips one level of the synthetic ptr<T> wrapper lowerLet uses
// to type a `var` local's address Place.
func derefType(t types.Type) types.Type {
	if n, ok := t.(types.Named); ok && n.Name == "ptr" && len(n.Args) == 1 {
		return n.Args[0]
	}
	return t
}

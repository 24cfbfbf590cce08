package types

import (
	"bmb/internal/ast"
	"bmb/internal/diag"
	"bmb/internal/support"
)

// Checker elaborates a parsed Program, producing typed diagnostics. It
// runs in two phases: Collect populates Env with every item signature so
// forward references work regardless of declaration order, then Check
// walks each function body with a bidirectional synthesize/check
// algorithm.
type Checker struct {
	env    *Env
	scopes support.Stack[*Scope]
	rep    *diag.Report
	info   *Info
	nextID int
}

// Info is the per-compile record of resolved types, keyed by expression
// node identity, produced alongside diagnostics so lowering (AST -> MIR)
// never re-runs inference: it looks up the type the checker already
// settled on for every expression it visits.
type Info struct {
	Env   *Env
	Types map[ast.Expr]Type
}

// TypeOf returns the elaborated type of e, or Unit if e was never visited
// (e.g. the program was rejected before e's function was checked).
func (i *Info) TypeOf(e ast.Expr) Type {
	if t, ok := i.Types[e]; ok {
		return t
	}
	return Unit
}

// Check elaborates prog, returning the collected diagnostics and the
// resolved-type table. The caller should treat the program as rejected if
// rep.HasFatal(), in which case info may be partially populated.
func Check(prog *ast.Program) (*diag.Report, *Info) {
	env := NewEnv()
	c := &Checker{env: env, rep: diag.NewReport(), info: &Info{Env: env, Types: make(map[ast.Expr]Type)}}
	c.collect(prog)
	if c.rep.HasFatal() {
		return c.rep, c.info
	}
	c.checkAll(prog)
	return c.rep, c.info
}

func (c *Checker) fresh() TypeVar {
	c.nextID++
	return TypeVar{ID: c.nextID}
}

func (c *Checker) pushScope() *Scope {
	s := newScope()
	c.scopes.Push(s)
	return s
}

func (c *Checker) popScope() { c.scopes.Pop() }

func (c *Checker) define(name string, t Type) {
	if s, ok := c.scopes.Peek(); ok {
		s.define(name, t)
	}
}

func (c *Checker) lookupVar(name string) (Type, bool) {
	for i := 1; i <= c.scopes.Size(); i++ {
		s, ok := c.scopes.Get(i)
		if !ok {
			continue
		}
		if t, ok := s.lookup(name); ok {
			return t, true
		}
	}
	return nil, false
}

// ---- phase 1: collect --------------------------------------------------

func (c *Checker) collect(prog *ast.Program) {
	for _, it := range prog.Items {
		switch n := it.(type) {
		case *ast.StructDef:
			c.collectStruct(n)
		case *ast.EnumDef:
			c.collectEnum(n)
		case *ast.TraitDef:
			c.collectTrait(n)
		case *ast.TypeAlias:
			c.env.Aliases[n.Name] = c.resolveType(n.Target, nil)
		}
	}
	for _, it := range prog.Items {
		if fn, ok := it.(*ast.FnDef); ok {
			c.collectFn(fn)
		}
	}
	for _, it := range prog.Items {
		if impl, ok := it.(*ast.ImplBlock); ok {
			c.collectImpl(impl)
		}
	}
}

func (c *Checker) collectStruct(n *ast.StructDef) {
	info := &StructInfo{Generics: n.Generics, Fields: make(map[string]Type)}
	for _, f := range n.Fields {
		info.FieldOrder = append(info.FieldOrder, f.Name)
		info.Fields[f.Name] = c.resolveType(f.Type, n.Generics)
	}
	c.env.Structs[n.Name] = info
}

func (c *Checker) collectEnum(n *ast.EnumDef) {
	info := &EnumInfo{Generics: n.Generics, Variants: make(map[string][]Type)}
	for _, v := range n.Variants {
		info.VariantOrder = append(info.VariantOrder, v.Name)
		var payload []Type
		for _, p := range v.Payload {
			payload = append(payload, c.resolveType(p, n.Generics))
		}
		info.Variants[v.Name] = payload
	}
	c.env.Enums[n.Name] = info
}

func (c *Checker) collectTrait(n *ast.TraitDef) {
	var methods []MethodSig
	for _, m := range n.Methods {
		var params []Type
		for _, p := range m.Params {
			params = append(params, c.resolveType(p.Type, nil))
		}
		methods = append(methods, MethodSig{Name: m.Name, Params: params, Ret: c.resolveType(m.RetType, nil)})
	}
	c.env.Traits.DeclareTrait(n.Name, methods)
}

func (c *Checker) collectFn(n *ast.FnDef) {
	var generics []string
	for _, g := range n.Generics {
		generics = append(generics, g.Name)
	}
	var params []Type
	for _, p := range n.Params {
		params = append(params, c.resolveType(p.Type, generics))
	}
	c.env.Functions[n.Name] = &FuncSig{
		Generics: generics,
		Params:   params,
		Ret:      c.resolveType(n.RetType, generics),
		Node:     n,
	}
}

func (c *Checker) collectImpl(n *ast.ImplBlock) {
	selfType := c.resolveType(n.TypeName, nil)
	info := &ImplInfo{TraitName: n.TraitName, SelfType: selfType, Methods: make(map[string]Function)}
	for _, m := range n.Methods {
		var params []Type
		for _, p := range m.Params {
			params = append(params, c.resolveType(p.Type, nil))
		}
		info.Methods[m.Name] = Function{Params: params, Ret: c.resolveType(m.RetType, nil)}
		// each impl method is also checkable like a free function; register
		// it under a qualified name so checkAll finds it.
		c.env.Functions["@impl."+selfType.String()+"."+m.Name] = &FuncSig{Params: params, Ret: c.resolveType(m.RetType, nil), Node: m}
	}
	if !c.env.Traits.RegisterImpl(info) {
		c.rep.Errorf(diag.Type, diag.TraitNotSatisfied, n.Span(), "duplicate impl of %q for %s", n.TraitName, selfType)
	}
}

// resolveType converts parsed type syntax into an elaborated Type. generics
// lists the enclosing declaration's own type parameters, resolved to
// Generic rather than treated as an unknown Named type.
func (c *Checker) resolveType(te ast.TypeExpr, generics []string) Type {
	if te == nil {
		return Unit
	}
	switch n := te.(type) {
	case *ast.PrimitiveType:
		return Primitive{Name: n.Name}
	case *ast.NullableType:
		return Nullable{Inner: c.resolveType(n.Inner, generics)}
	case *ast.TupleType:
		var elems []Type
		for _, e := range n.Elems {
			elems = append(elems, c.resolveType(e, generics))
		}
		return Tuple{Elems: elems}
	case *ast.FuncType:
		var params []Type
		for _, p := range n.Params {
			params = append(params, c.resolveType(p, generics))
		}
		return Function{Params: params, Ret: c.resolveType(n.Ret, generics)}
	case *ast.NamedType:
		for _, g := range generics {
			if g == n.Name {
				return Generic{Name: n.Name}
			}
		}
		var args []Type
		for _, a := range n.TypeArgs {
			args = append(args, c.resolveType(a, generics))
		}
		if alias, ok := c.env.Aliases[n.Name]; ok && len(args) == 0 {
			return alias
		}
		return Named{Name: n.Name, Args: args}
	}
	return Unit
}

// ---- phase 2: check -----------------------------------------------------

func (c *Checker) checkAll(prog *ast.Program) {
	for _, it := range prog.Items {
		switch n := it.(type) {
		case *ast.FnDef:
			c.checkFn(n, c.env.Functions[n.Name])
		case *ast.ImplBlock:
			selfType := c.resolveType(n.TypeName, nil)
			for _, m := range n.Methods {
				c.checkFn(m, c.env.Functions["@impl."+selfType.String()+"."+m.Name])
			}
		}
	}
}

func (c *Checker) checkFn(n *ast.FnDef, sig *FuncSig) {
	if sig == nil {
		return
	}
	c.pushScope()
	defer c.popScope()
	for i, p := range n.Params {
		if i < len(sig.Params) {
			c.define(p.Name, sig.Params[i])
		}
	}
	if n.Pre != nil {
		t := c.synthesize(n.Pre)
		if !Equal(t, Bool) {
			c.rep.Errorf(diag.Type, diag.NonBoolContract, n.Pre.Span(), "pre-condition must be bool, found %s", t)
		}
	}
	bodyT := c.synthesize(n.Body)
	if sig.Ret != nil && !Equal(bodyT, sig.Ret) {
		c.rep.Errorf(diag.Type, diag.TypeMismatch, n.Body.Span(), "function %q returns %s, body has type %s", n.Name, sig.Ret, bodyT)
	}
	if n.Post != nil {
		c.pushScope()
		c.define("result", sig.Ret)
		t := c.synthesize(n.Post)
		if !Equal(t, Bool) {
			c.rep.Errorf(diag.Type, diag.NonBoolContract, n.Post.Span(), "post-condition must be bool, found %s", t)
		}
		c.popScope()
	}
}

// check verifies e against an expected type, reporting TypeMismatch on
// failure. It still returns the synthesized type so callers can continue.
func (c *Checker) check(e ast.Expr, expected Type) Type {
	t := c.synthesize(e)
	if expected != nil && !Equal(t, expected) {
		c.rep.Errorf(diag.Type, diag.TypeMismatch, e.Span(), "expected %s, found %s", expected, t)
	}
	return t
}

func (c *Checker) synthesize(e ast.Expr) Type {
	t := c.synthesizeInner(e)
	c.info.Types[e] = t
	return t
}

func (c *Checker) synthesizeInner(e ast.Expr) Type {
	switch n := e.(type) {
	case *ast.IntLit:
		return I64
	case *ast.FloatLit:
		return F64
	case *ast.BoolLit:
		return Bool
	case *ast.StringLit:
		return Str
	case *ast.UnitLit:
		return Unit
	case *ast.Var:
		return c.synthVar(n)
	case *ast.Binary:
		return c.synthBinary(n)
	case *ast.Unary:
		return c.synthUnary(n)
	case *ast.If:
		return c.synthIf(n)
	case *ast.Let:
		return c.synthLet(n)
	case *ast.Call:
		return c.synthCall(n)
	case *ast.Block:
		return c.synthBlock(n)
	case *ast.Match:
		return c.synthMatch(n)
	case *ast.Closure:
		return c.synthClosure(n)
	case *ast.FieldAccess:
		return c.synthFieldAccess(n)
	case *ast.Index:
		return c.synthIndex(n)
	case *ast.StructLit:
		return c.synthStructLit(n)
	case *ast.EnumCtor:
		return c.synthEnumCtor(n)
	}
	return Unit
}

func (c *Checker) synthVar(n *ast.Var) Type {
	if t, ok := c.lookupVar(n.Name); ok {
		return t
	}
	if sig, ok := c.env.Functions[n.Name]; ok {
		if len(sig.Generics) == 0 {
			return Function{Params: sig.Params, Ret: sig.Ret}
		}
		return c.instantiate(sig)
	}
	c.rep.Errorf(diag.Type, diag.UndefinedVariable, n.Span(), "undefined variable %q", n.Name)
	return Unit
}

// instantiate replaces sig's generic parameters with fresh TypeVars, one
// per call site, so checkCallArgs's unification pass can solve each
// occurrence independently of every other call to the same generic
// function.
func (c *Checker) instantiate(sig *FuncSig) Function {
	vars := make(map[string]Type, len(sig.Generics))
	for _, g := range sig.Generics {
		vars[g] = c.fresh()
	}
	params := make([]Type, len(sig.Params))
	for i, p := range sig.Params {
		params[i] = substituteGenerics(p, vars)
	}
	return Function{Params: params, Ret: substituteGenerics(sig.Ret, vars)}
}

// substituteGenerics replaces every Generic{Name} in t that appears in
// vars, recursing into every type argument, tuple element, function
// parameter and nullable payload.
func substituteGenerics(t Type, vars map[string]Type) Type {
	switch v := t.(type) {
	case Generic:
		if fresh, ok := vars[v.Name]; ok {
			return fresh
		}
		return v
	case Named:
		args := make([]Type, len(v.Args))
		for i, a := range v.Args {
			args[i] = substituteGenerics(a, vars)
		}
		return Named{Name: v.Name, Args: args}
	case Nullable:
		return Nullable{Inner: substituteGenerics(v.Inner, vars)}
	case Tuple:
		elems := make([]Type, len(v.Elems))
		for i, e := range v.Elems {
			elems[i] = substituteGenerics(e, vars)
		}
		return Tuple{Elems: elems}
	case Function:
		params := make([]Type, len(v.Params))
		for i, p := range v.Params {
			params[i] = substituteGenerics(p, vars)
		}
		var ret Type
		if v.Ret != nil {
			ret = substituteGenerics(v.Ret, vars)
		}
		return Function{Params: params, Ret: ret}
	default:
		return t
	}
}

func (c *Checker) synthBinary(n *ast.Binary) Type {
	l := c.synthesize(n.L)
	r := c.synthesize(n.R)
	switch n.Op {
	case "&&", "||":
		if !Equal(l, Bool) || !Equal(r, Bool) {
			c.rep.Errorf(diag.Type, diag.TypeMismatch, n.Span(), "operator %s requires bool operands, found %s and %s", n.Op, l, r)
		}
		return Bool
	case "==", "!=", "<", ">", "<=", ">=":
		if !Equal(l, r) {
			c.rep.Errorf(diag.Type, diag.TypeMismatch, n.Span(), "cannot compare %s with %s", l, r)
		}
		return Bool
	default: // + - * / % << >>
		if !SameNumericKind(l, r) {
			c.rep.Errorf(diag.Type, diag.TypeMismatch, n.Span(), "operator %s requires matching numeric operands, found %s and %s", n.Op, l, r)
			if IsNumeric(l) {
				return l
			}
			return I64
		}
		return l
	}
}

func (c *Checker) synthUnary(n *ast.Unary) Type {
	t := c.synthesize(n.X)
	if n.Op == "!" {
		if !Equal(t, Bool) {
			c.rep.Errorf(diag.Type, diag.TypeMismatch, n.Span(), "'!' requires bool, found %s", t)
		}
		return Bool
	}
	if !IsNumeric(t) {
		c.rep.Errorf(diag.Type, diag.TypeMismatch, n.Span(), "unary '-' requires a numeric operand, found %s", t)
	}
	return t
}

func (c *Checker) synthIf(n *ast.If) Type {
	cond := c.synthesize(n.Cond)
	if !Equal(cond, Bool) {
		c.rep.Errorf(diag.Type, diag.TypeMismatch, n.Cond.Span(), "if condition must be bool, found %s", cond)
	}
	then := c.synthesize(n.Then)
	if n.Else == nil {
		return Unit
	}
	els := c.synthesize(n.Else)
	s := NewSubst()
	if !Unify(s, then, els) {
		c.rep.Errorf(diag.Type, diag.TypeMismatch, n.Span(), "if branches have different types: %s vs %s", then, els)
	}
	return Substitute(s, then)
}

func (c *Checker) synthLet(n *ast.Let) Type {
	valT := c.synthesize(n.Value)
	if n.TypeAnn != nil {
		ann := c.resolveType(n.TypeAnn, nil)
		if !Equal(ann, valT) {
			c.rep.Errorf(diag.Type, diag.TypeMismatch, n.Value.Span(), "binding %q annotated %s, value has type %s", n.Name, ann, valT)
		}
		valT = ann
	}
	c.pushScope()
	c.define(n.Name, valT)
	bodyT := c.synthesize(n.Body)
	c.popScope()
	return bodyT
}

func (c *Checker) synthBlock(n *ast.Block) Type {
	c.pushScope()
	defer c.popScope()
	var last Type = Unit
	for _, s := range n.Stmts {
		last = c.synthesize(s)
	}
	return last
}

func (c *Checker) synthCall(n *ast.Call) Type {
	if fa, ok := n.Callee.(*ast.FieldAccess); ok {
		return c.synthMethodCall(n, fa)
	}
	calleeT := c.synthesize(n.Callee)
	fn, ok := calleeT.(Function)
	if !ok {
		c.rep.Errorf(diag.Type, diag.TypeMismatch, n.Span(), "cannot call a value of type %s", calleeT)
		for _, a := range n.Args {
			c.synthesize(a)
		}
		return Unit
	}
	return c.checkCallArgs(n, fn.Params, fn.Ret, nil)
}

// synthMethodCall resolves `recv.m(args)` via trait dispatch.
func (c *Checker) synthMethodCall(n *ast.Call, fa *ast.FieldAccess) Type {
	selfType := c.synthesize(fa.X)
	fn, _, found := c.env.Traits.FindMethod(selfType, fa.Field)
	switch {
	case found == 0:
		c.rep.Errorf(diag.Type, diag.MethodNotFound, fa.Span(), "no method %q on %s", fa.Field, selfType)
		for _, a := range n.Args {
			c.synthesize(a)
		}
		return Unit
	case found > 1:
		c.rep.Errorf(diag.Type, diag.AmbiguousMethod, fa.Span(), "multiple impls provide %q for %s", fa.Field, selfType)
	}
	return c.checkCallArgs(n, fn.Params, fn.Ret, nil)
}

// checkCallArgs type-checks a call's arguments against params, reporting
// ArityMismatch on count mismatch. A generic callee arrives already
// instantiated (synthVar), so fresh TypeVars stand in for its type
// parameters in params/ret; generics is not read. A return type still an
// unresolved var after unification is AmbiguousGeneric.
func (c *Checker) checkCallArgs(n *ast.Call, params []Type, ret Type, generics []string) Type {
	if len(params) != len(n.Args) {
		c.rep.Errorf(diag.Type, diag.ArityMismatch, n.Span(), "expected %d argument(s), found %d", len(params), len(n.Args))
	}
	s := NewSubst()
	lim := len(params)
	if len(n.Args) < lim {
		lim = len(n.Args)
	}
	for i := 0; i < lim; i++ {
		argT := c.synthesize(n.Args[i])
		if !Unify(s, params[i], argT) {
			c.rep.Errorf(diag.Type, diag.TypeMismatch, n.Args[i].Span(), "argument %d: expected %s, found %s", i+1, Substitute(s, params[i]), argT)
		}
	}
	for i := lim; i < len(n.Args); i++ {
		c.synthesize(n.Args[i])
	}
	result := Substitute(s, ret)
	if _, stillVar := result.(TypeVar); stillVar {
		c.rep.Errorf(diag.Type, diag.AmbiguousGeneric, n.Span(), "generic return type could not be resolved from arguments")
	}
	return result
}

func (c *Checker) synthClosure(n *ast.Closure) Type {
	c.pushScope()
	defer c.popScope()
	var params []Type
	for _, p := range n.Params {
		var t Type
		if p.Type != nil {
			t = c.resolveType(p.Type, nil)
		} else {
			t = c.fresh()
		}
		c.define(p.Name, t)
		params = append(params, t)
	}
	bodyT := c.synthesize(n.Body)
	ret := bodyT
	if n.RetType != nil {
		ret = c.resolveType(n.RetType, nil)
		if !Equal(ret, bodyT) {
			c.rep.Errorf(diag.Type, diag.TypeMismatch, n.Body.Span(), "closure annotated to return %s, body has type %s", ret, bodyT)
		}
	}
	return Function{Params: params, Ret: ret}
}

func (c *Checker) synthFieldAccess(n *ast.FieldAccess) Type {
	xT := c.synthesize(n.X)
	named, ok := xT.(Named)
	if !ok {
		c.rep.Errorf(diag.Type, diag.UndefinedType, n.Span(), "%s has no fields", xT)
		return Unit
	}
	info, ok := c.env.Structs[named.Name]
	if !ok {
		c.rep.Errorf(diag.Type, diag.UndefinedType, n.Span(), "undefined struct %q", named.Name)
		return Unit
	}
	ft, ok := info.Fields[n.Field]
	if !ok {
		c.rep.Errorf(diag.Type, diag.UndefinedVariable, n.Span(), "struct %q has no field %q", named.Name, n.Field)
		return Unit
	}
	return ft
}

// synthIndex types tuple indexing `t[i]`: the index must be a literal int
// in range (BMB has no runtime-indexed heterogeneous container).
func (c *Checker) synthIndex(n *ast.Index) Type {
	xT := c.synthesize(n.X)
	tup, ok := xT.(Tuple)
	if !ok {
		c.rep.Errorf(diag.Type, diag.TypeMismatch, n.Span(), "cannot index into %s", xT)
		c.synthesize(n.Idx)
		return Unit
	}
	lit, ok := n.Idx.(*ast.IntLit)
	if !ok || lit.Value < 0 || int(lit.Value) >= len(tup.Elems) {
		c.rep.Errorf(diag.Type, diag.TypeMismatch, n.Idx.Span(), "tuple index must be a literal in range [0, %d)", len(tup.Elems))
		return Unit
	}
	return tup.Elems[lit.Value]
}

func (c *Checker) synthStructLit(n *ast.StructLit) Type {
	info, ok := c.env.Structs[n.Name]
	if !ok {
		c.rep.Errorf(diag.Type, diag.UndefinedType, n.Span(), "undefined struct %q", n.Name)
		for _, f := range n.Fields {
			c.synthesize(f.Value)
		}
		return Unit
	}
	seen := make(map[string]bool)
	for _, f := range n.Fields {
		seen[f.Name] = true
		ft, ok := info.Fields[f.Name]
		if !ok {
			c.rep.Errorf(diag.Type, diag.UndefinedVariable, f.Value.Span(), "struct %q has no field %q", n.Name, f.Name)
			c.synthesize(f.Value)
			continue
		}
		c.check(f.Value, ft)
	}
	for _, want := range info.FieldOrder {
		if !seen[want] {
			c.rep.Errorf(diag.Type, diag.ArityMismatch, n.Span(), "struct %q literal missing field %q", n.Name, want)
		}
	}
	return Named{Name: n.Name}
}

func (c *Checker) synthEnumCtor(n *ast.EnumCtor) Type {
	info, ok := c.env.Enums[n.Enum]
	if !ok {
		c.rep.Errorf(diag.Type, diag.UndefinedType, n.Span(), "undefined enum %q", n.Enum)
		for _, a := range n.Args {
			c.synthesize(a)
		}
		return Unit
	}
	payload, ok := info.Variants[n.Variant]
	if !ok {
		c.rep.Errorf(diag.Type, diag.UndefinedVariable, n.Span(), "enum %q has no variant %q", n.Enum, n.Variant)
		for _, a := range n.Args {
			c.synthesize(a)
		}
		return Unit
	}
	if len(payload) != len(n.Args) {
		c.rep.Errorf(diag.Type, diag.ArityMismatch, n.Span(), "variant %q expects %d argument(s), found %d", n.Variant, len(payload), len(n.Args))
	}
	s := NewSubst()
	lim := len(payload)
	if len(n.Args) < lim {
		lim = len(n.Args)
	}
	var inferredPayload Type
	for i := 0; i < lim; i++ {
		argT := c.synthesize(n.Args[i])
		Unify(s, payload[i], argT)
		inferredPayload = argT
	}
	if n.Enum == "Option" {
		if inferredPayload == nil {
			inferredPayload = c.fresh()
		}
		return Named{Name: "Option", Args: []Type{inferredPayload}}
	}
	return Named{Name: n.Enum}
}

// ---- pattern matching ---------------------------------------------------

func (c *Checker) synthMatch(n *ast.Match) Type {
	scrutT := c.synthesize(n.Scrutinee)
	var resultT Type
	var coveredVariants []string
	hasCatchAll := false
	for _, arm := range n.Arms {
		c.pushScope()
		c.checkPattern(arm.Pat, scrutT, &coveredVariants, &hasCatchAll)
		armT := c.synthesize(arm.Body)
		c.popScope()
		if resultT == nil {
			resultT = armT
		} else if !Equal(resultT, armT) {
			c.rep.Errorf(diag.Type, diag.TypeMismatch, arm.Body.Span(), "match arms have different types: %s vs %s", resultT, armT)
		}
	}
	if named, ok := ToOption(scrutT).(Named); ok && !hasCatchAll {
		if info, ok := c.env.Enums[named.Name]; ok {
			for _, v := range info.VariantOrder {
				if !containsStr(coveredVariants, v) {
					c.rep.Errorf(diag.Type, diag.NonExhaustiveMatch, n.Span(), "match over %s is missing variant %q", named.Name, v)
				}
			}
		}
	}
	if resultT == nil {
		return Unit
	}
	return resultT
}

func (c *Checker) checkPattern(p ast.Pattern, scrutT Type, covered *[]string, hasCatchAll *bool) {
	switch pat := p.(type) {
	case *ast.WildcardPattern:
		*hasCatchAll = true
	case *ast.VarPattern:
		*hasCatchAll = true
		c.define(pat.Name, scrutT)
	case *ast.LitPattern:
		c.check(pat.Value, scrutT)
	case *ast.CtorPattern:
		named, ok := ToOption(scrutT).(Named)
		if !ok {
			c.rep.Errorf(diag.Type, diag.TypeMismatch, pat.Span(), "cannot match a %s against a constructor pattern", scrutT)
			return
		}
		info, ok := c.env.Enums[named.Name]
		if !ok {
			c.rep.Errorf(diag.Type, diag.UndefinedType, pat.Span(), "undefined enum %q", named.Name)
			return
		}
		payload, ok := info.Variants[pat.Variant]
		if !ok {
			c.rep.Errorf(diag.Type, diag.UndefinedVariable, pat.Span(), "enum %q has no variant %q", named.Name, pat.Variant)
			return
		}
		*covered = append(*covered, pat.Variant)
		for i, b := range pat.Binds {
			if i < len(payload) {
				t := payload[i]
				if len(named.Args) > 0 {
					s := NewSubst()
					Unify(s, Generic{Name: info.Generics[0]}, named.Args[0])
					t = Substitute(s, t)
				}
				c.define(b, t)
			}
		}
	}
}

func containsStr(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

package interp

import (
	"bufio"
	"fmt"
	"io"

	"bmb/internal/ast"
	"bmb/internal/parser"
)

// Interp walks a parsed program directly, without going through MIR or
// LLVM. It is the "stage0" executor: the bootstrap driver uses it to run
// golden programs before any self-hosted build exists to run itself, so a
// fixed-point check at stage1/2/3 has something to compare a known-good
// result against from the very first run.
type Interp struct {
	out     io.Writer
	fns     map[string]*ast.FnDef
	structs map[string]*ast.StructDef
	enums   map[string]*ast.EnumDef
	// variantEnum maps a bare variant name to its owning enum, so EnumCtor
	// call syntax (`Some(1)`) resolves without the caller spelling the
	// enum name, mirroring how the checker resolves constructor calls.
	variantEnum map[string]string
	stdin       *bufio.Scanner
}

// RuntimeError is a BMB-level failure (contract violation, non-exhaustive
// match, division by zero) as opposed to a Go-level bug in the evaluator
// itself; the bootstrap driver reports it the same way a backend-produced
// trap would.
type RuntimeError struct {
	Msg string
}

func (e *RuntimeError) Error() string { return e.Msg }

func runtimeErrorf(format string, args ...any) error {
	return &RuntimeError{Msg: fmt.Sprintf(format, args...)}
}

// New builds an interpreter that writes println/print output to out.
// Trait impl methods are not registered: every golden scenario this
// interpreter needs to run (spec's bootstrap fixed-point and end-to-end
// suites) calls free functions only, so method dispatch stays unbuilt
// until a caller actually needs it.
func New(prog *ast.Program, out io.Writer) *Interp {
	it := &Interp{
		out:         out,
		fns:         make(map[string]*ast.FnDef),
		structs:     make(map[string]*ast.StructDef),
		enums:       make(map[string]*ast.EnumDef),
		variantEnum: make(map[string]string),
	}
	for _, item := range prog.Items {
		switch n := item.(type) {
		case *ast.FnDef:
			it.fns[n.Name] = n
		case *ast.StructDef:
			it.structs[n.Name] = n
		case *ast.EnumDef:
			it.enums[n.Name] = n
			for _, v := range n.Variants {
				it.variantEnum[v.Name] = n.Name
			}
		}
	}
	return it
}

// RunMain evaluates fn main and returns its i64 exit code, matching the
// convention every spec golden program uses (`fn main() -> i64 = ...`).
func (it *Interp) RunMain() (int64, error) {
	main, ok := it.fns["main"]
	if !ok {
		return 0, runtimeErrorf("no main function")
	}
	v, err := it.callFn(main, nil)
	if err != nil {
		return 0, err
	}
	iv, ok := v.(*IntValue)
	if !ok {
		return 0, runtimeErrorf("main returned non-i64 value %s", v.String())
	}
	return iv.V, nil
}

// RunSource parses src and evaluates its main function. A parse failure
// is returned as a RuntimeError naming filename; the parser's diagnostics
// themselves are not returned.
func RunSource(filename, src string, out io.Writer) (int64, error) {
	prog, report := parser.Parse(src)
	if report != nil && report.HasFatal() {
		return 0, runtimeErrorf("%s: parse failed", filename)
	}
	return New(prog, out).RunMain()
}

func (it *Interp) callFn(fn *ast.FnDef, args []Value) (Value, error) {
	if len(args) != len(fn.Params) {
		return nil, runtimeErrorf("%s: expected %d args, got %d", fn.Name, len(fn.Params), len(args))
	}
	env := NewEnvironment()
	for i, p := range fn.Params {
		env.Set(p.Name, args[i])
	}
	if fn.Pre != nil {
		ok, err := it.evalBool(fn.Pre, env)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, runtimeErrorf("%s: precondition violated", fn.Name)
		}
	}
	result, err := it.eval(fn.Body, env)
	if err != nil {
		return nil, err
	}
	if fn.Post != nil {
		postEnv := env.Child()
		postEnv.Set("result", result)
		ok, err := it.evalBool(fn.Post, postEnv)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, runtimeErrorf("%s: postcondition violated", fn.Name)
		}
	}
	return result, nil
}

func (it *Interp) evalBool(e ast.Expr, env *Environment) (bool, error) {
	v, err := it.eval(e, env)
	if err != nil {
		return false, err
	}
	b, ok := v.(*BoolValue)
	if !ok {
		return false, runtimeErrorf("contract expression did not evaluate to bool")
	}
	return b.V, nil
}

// eval dispatches on the concrete expression node type, the same
// recursive shape as ailang's SimpleEvaluator.eval, generalized to BMB's
// richer node set (if/let/match are expressions here, not statements).
func (it *Interp) eval(expr ast.Expr, env *Environment) (Value, error) {
	switch n := expr.(type) {
	case *ast.IntLit:
		return &IntValue{V: n.Value}, nil
	case *ast.FloatLit:
		return &FloatValue{V: n.Value}, nil
	case *ast.BoolLit:
		return &BoolValue{V: n.Value}, nil
	case *ast.StringLit:
		return &StringValue{V: n.Value}, nil
	case *ast.UnitLit:
		return &UnitValue{}, nil

	case *ast.Var:
		if v, ok := env.Get(n.Name); ok {
			return v, nil
		}
		return nil, runtimeErrorf("undefined variable %q", n.Name)

	case *ast.Binary:
		return it.evalBinary(n, env)

	case *ast.Unary:
		x, err := it.eval(n.X, env)
		if err != nil {
			return nil, err
		}
		return it.evalUnary(n.Op, x)

	case *ast.If:
		cond, err := it.eval(n.Cond, env)
		if err != nil {
			return nil, err
		}
		if truthy(cond) {
			return it.eval(n.Then, env)
		}
		if n.Else == nil {
			return &UnitValue{}, nil
		}
		return it.eval(n.Else, env)

	case *ast.Let:
		val, err := it.eval(n.Value, env)
		if err != nil {
			return nil, err
		}
		child := env.Child()
		child.Set(n.Name, val)
		return it.eval(n.Body, child)

	case *ast.Block:
		return it.evalBlock(n, env)

	case *ast.Call:
		return it.evalCall(n, env)

	case *ast.Closure:
		return it.evalClosure(n, env), nil

	case *ast.Match:
		return it.evalMatch(n, env)

	case *ast.FieldAccess:
		x, err := it.eval(n.X, env)
		if err != nil {
			return nil, err
		}
		sv, ok := x.(*StructValue)
		if !ok {
			return nil, runtimeErrorf("field access %q on non-struct value", n.Field)
		}
		fv, ok := sv.Fields[n.Field]
		if !ok {
			return nil, runtimeErrorf("struct %s has no field %q", sv.TypeName, n.Field)
		}
		return fv, nil

	case *ast.Index:
		return nil, runtimeErrorf("index expressions are not yet supported by the interpreter")

	case *ast.StructLit:
		return it.evalStructLit(n, env)

	case *ast.EnumCtor:
		return it.evalEnumCtor(n, env)

	default:
		return nil, runtimeErrorf("interpreter: unsupported expression node %T", expr)
	}
}

func (it *Interp) evalBlock(n *ast.Block, env *Environment) (Value, error) {
	var result Value = &UnitValue{}
	for _, s := range n.Stmts {
		v, err := it.eval(s, env)
		if err != nil {
			return nil, err
		}
		result = v
	}
	return result, nil
}

func (it *Interp) evalStructLit(n *ast.StructLit, env *Environment) (Value, error) {
	def, ok := it.structs[n.Name]
	fields := make(map[string]Value, len(n.Fields))
	order := make([]string, 0, len(n.Fields))
	for _, f := range n.Fields {
		v, err := it.eval(f.Value, env)
		if err != nil {
			return nil, err
		}
		fields[f.Name] = v
		order = append(order, f.Name)
	}
	if ok {
		order = order[:0]
		for _, p := range def.Fields {
			order = append(order, p.Name)
		}
	}
	return &StructValue{TypeName: n.Name, Fields: fields, Order: order}, nil
}

func (it *Interp) evalEnumCtor(n *ast.EnumCtor, env *Environment) (Value, error) {
	payload := make([]Value, len(n.Args))
	for i, a := range n.Args {
		v, err := it.eval(a, env)
		if err != nil {
			return nil, err
		}
		payload[i] = v
	}
	enumName := n.Enum
	if enumName == "" {
		enumName = it.variantEnum[n.Variant]
	}
	return &EnumValue{EnumName: enumName, Variant: n.Variant, Payload: payload}, nil
}

func (it *Interp) evalClosure(n *ast.Closure, env *Environment) *Closure {
	params := make([]string, len(n.Params))
	for i, p := range n.Params {
		params[i] = p.Name
	}
	return &Closure{
		Params: params,
		Body: func(args []Value) (Value, error) {
			child := env.Child()
			for i, p := range params {
				if i < len(args) {
					child.Set(p, args[i])
				}
			}
			return it.eval(n.Body, child)
		},
	}
}

// evalCall resolves the callee as either a top-level function name (the
// common case for the golden test suite) or a value already bound to a
// closure, so `let f = |x| x + 1; f(2)` and plain recursive calls both
// work through the same path.
func (it *Interp) evalCall(n *ast.Call, env *Environment) (Value, error) {
	args := make([]Value, len(n.Args))
	for i, a := range n.Args {
		v, err := it.eval(a, env)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	if callee, ok := n.Callee.(*ast.Var); ok {
		if builtin, ok := builtins[callee.Name]; ok {
			return builtin(it, args)
		}
		if fn, ok := it.fns[callee.Name]; ok {
			return it.callFn(fn, args)
		}
		if v, ok := env.Get(callee.Name); ok {
			if cl, ok := v.(*Closure); ok {
				return cl.Body(args)
			}
		}
		return nil, runtimeErrorf("undefined function %q", callee.Name)
	}

	v, err := it.eval(n.Callee, env)
	if err != nil {
		return nil, err
	}
	cl, ok := v.(*Closure)
	if !ok {
		return nil, runtimeErrorf("call target is not a function")
	}
	return cl.Body(args)
}

func (it *Interp) evalMatch(n *ast.Match, env *Environment) (Value, error) {
	scrut, err := it.eval(n.Scrutinee, env)
	if err != nil {
		return nil, err
	}
	for _, arm := range n.Arms {
		child, matched, err := it.matchPattern(arm.Pat, scrut, env)
		if err != nil {
			return nil, err
		}
		if matched {
			return it.eval(arm.Body, child)
		}
	}
	return nil, runtimeErrorf("non-exhaustive match: no arm matched %s", scrut.String())
}

func (it *Interp) matchPattern(pat ast.Pattern, v Value, env *Environment) (*Environment, bool, error) {
	switch p := pat.(type) {
	case *ast.WildcardPattern:
		return env, true, nil

	case *ast.VarPattern:
		child := env.Child()
		child.Set(p.Name, v)
		return child, true, nil

	case *ast.LitPattern:
		lit, err := it.eval(p.Value, env)
		if err != nil {
			return nil, false, err
		}
		return env, valuesEqual(lit, v), nil

	case *ast.CtorPattern:
		ev, ok := v.(*EnumValue)
		if !ok || ev.Variant != p.Variant {
			return nil, false, nil
		}
		child := env.Child()
		for i, name := range p.Binds {
			if i < len(ev.Payload) {
				child.Set(name, ev.Payload[i])
			}
		}
		return child, true, nil

	default:
		return nil, false, runtimeErrorf("interpreter: unsupported pattern node %T", pat)
	}
}

func valuesEqual(a, b Value) bool {
	switch av := a.(type) {
	case *IntValue:
		bv, ok := b.(*IntValue)
		return ok && av.V == bv.V
	case *FloatValue:
		bv, ok := b.(*FloatValue)
		return ok && av.V == bv.V
	case *BoolValue:
		bv, ok := b.(*BoolValue)
		return ok && av.V == bv.V
	case *StringValue:
		bv, ok := b.(*StringValue)
		return ok && av.V == bv.V
	default:
		return false
	}
}

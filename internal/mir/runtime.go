package mir

import "bmb/internal/types"

// RuntimeDecl is one extern runtime-library symbol (§6's "Runtime library
// interface") the emitter declares before any function body can call it.
type RuntimeDecl struct {
	Name   string
	Params []types.Type
	Ret    types.Type
}

// RuntimeDecls lists every runtime ABI symbol in a fixed order, so
// internal/emit never has to iterate a map to declare them (§4.6).
func RuntimeDecls() []RuntimeDecl {
	return []RuntimeDecl{
		{Name: "bmb_print_i64", Params: []types.Type{types.I64}, Ret: types.Unit},
		{Name: "bmb_print_f64", Params: []types.Type{types.F64}, Ret: types.Unit},
		{Name: "bmb_print_bool", Params: []types.Type{types.Bool}, Ret: types.Unit},
		{Name: "bmb_print_str", Params: []types.Type{types.Str}, Ret: types.Unit},
		{Name: "bmb_println_i64", Params: []types.Type{types.I64}, Ret: types.Unit},
		{Name: "bmb_println_f64", Params: []types.Type{types.F64}, Ret: types.Unit},
		{Name: "bmb_println_bool", Params: []types.Type{types.Bool}, Ret: types.Unit},
		{Name: "bmb_println_str", Params: []types.Type{types.Str}, Ret: types.Unit},
		{Name: "bmb_read_int", Ret: types.I64},
		{Name: "bmb_assert", Params: []types.Type{types.Bool}, Ret: types.Unit},
	}
}

// runtimeOverloads maps a surface builtin name to its per-primitive-kind
// concrete symbol. BMB source calls one overloaded `println`; LLVM has no
// function overloading, so lowering picks the concrete extern up front
// from the argument's elaborated type.
var runtimeOverloads = map[string]map[string]string{
	"print":   {"i64": "bmb_print_i64", "f64": "bmb_print_f64", "bool": "bmb_print_bool", "string": "bmb_print_str"},
	"println": {"i64": "bmb_println_i64", "f64": "bmb_println_f64", "bool": "bmb_println_bool", "string": "bmb_println_str"},
}

var runtimeDirect = map[string]string{
	"read_int": "bmb_read_int",
	"assert":   "bmb_assert",
}

// IsRuntimeBuiltin reports whether name refers to one of §6's runtime
// library functions rather than a user-defined one.
func IsRuntimeBuiltin(name string) bool {
	if _, ok := runtimeOverloads[name]; ok {
		return true
	}
	_, ok := runtimeDirect[name]
	return ok
}

// ResolveRuntimeCall picks the concrete extern symbol a builtin call
// lowers to. argT is the sole argument's elaborated type, used to pick an
// overload for print/println; it is ignored for read_int/assert, which
// take no or fixed-type arguments.
func ResolveRuntimeCall(name string, argT types.Type) (string, bool) {
	if sym, ok := runtimeDirect[name]; ok {
		return sym, true
	}
	overloads, ok := runtimeOverloads[name]
	if !ok {
		return "", false
	}
	kind := "unit"
	if p, ok := types.ToOption(argT).(types.Primitive); ok {
		kind = p.Name
	}
	sym, ok := overloads[kind]
	return sym, ok
}

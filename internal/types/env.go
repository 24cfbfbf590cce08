package types

import "bmb/internal/ast"

// FuncSig is a collected function signature, generic parameters kept
// unresolved (as Generic) until a call site instantiates them.
type FuncSig struct {
	Generics []string
	Params   []Type
	Ret      Type
	Node     *ast.FnDef
}

type StructInfo struct {
	Generics   []string
	FieldOrder []string
	Fields     map[string]Type
}

type EnumInfo struct {
	Generics     []string
	VariantOrder []string
	Variants     map[string][]Type
}

// Env is the global environment collected in the type checker's first
// phase: every function, struct, enum, trait and alias signature, visible
// to every other item regardless of declaration order.
type Env struct {
	Functions map[string]*FuncSig
	Structs   map[string]*StructInfo
	Enums     map[string]*EnumInfo
	Aliases   map[string]Type
	Traits    *TraitRegistry
}

func NewEnv() *Env {
	e := &Env{
		Functions: make(map[string]*FuncSig),
		Structs:   make(map[string]*StructInfo),
		Enums:     make(map[string]*EnumInfo),
		Aliases:   make(map[string]Type),
		Traits:    NewTraitRegistry(),
	}
	// Option is a built-in closed enum backing `T?` nullable sugar.
	e.Enums["Option"] = &EnumInfo{
		Generics:     []string{"T"},
		VariantOrder: []string{"Some", "None"},
		Variants: map[string][]Type{
			"Some": {Generic{Name: "T"}},
			"None": nil,
		},
	}
	registerBuiltins(e)
	return e
}

// registerBuiltins seeds §6's runtime library interface into Env.Functions
// so synthVar/synthCall resolve println/print/read_int/assert the same
// way they resolve a user-defined function, instead of only being known to
// internal/interp at evaluation time. println/print are generic over one
// type parameter (BMB has no call-site overloading, so this is what lets
// them accept i64, f64, bool or string); internal/mir picks the concrete
// runtime extern (bmb_println_i64, ...) once the argument's elaborated
// type is known. These entries carry no Node, so checkAll — which only
// walks FnDef items found in the parsed program — never tries to check a
// body for them.
func registerBuiltins(e *Env) {
	e.Functions["println"] = &FuncSig{Generics: []string{"T"}, Params: []Type{Generic{Name: "T"}}, Ret: Unit}
	e.Functions["print"] = &FuncSig{Generics: []string{"T"}, Params: []Type{Generic{Name: "T"}}, Ret: Unit}
	e.Functions["read_int"] = &FuncSig{Ret: I64}
	e.Functions["assert"] = &FuncSig{Params: []Type{Bool}, Ret: Unit}
}

// Scope is one lexical block of variable bindings.
type Scope struct {
	vars map[string]Type
}

func newScope() *Scope { return &Scope{vars: make(map[string]Type)} }

func (s *Scope) define(name string, t Type) { s.vars[name] = t }

func (s *Scope) lookup(name string) (Type, bool) {
	t, ok := s.vars[name]
	return t, ok
}

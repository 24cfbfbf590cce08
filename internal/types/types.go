// Package types implements BMB's elaborated type representation and the
// bidirectional type checker that walks a parsed program.
package types

import (
	"fmt"
	"strings"
)

// Type is the elaborated type of an expression or declaration.
type Type interface {
	typeNode()
	String() string
}

// Primitive covers i64, f64, bool, unit, string.
type Primitive struct{ Name string }

// Named is a user struct/enum type, optionally instantiated with type
// arguments.
type Named struct {
	Name string
	Args []Type
}

// Nullable is the elaborated form of `T?`: sugar for Option<T>. The checker
// keeps Nullable as a distinct wrapper rather than immediately rewriting to
// Named{"Option", []Type{T}} so diagnostics can still say "T?" to the user;
// ToOption below treats the two as equivalent for unification purposes.
type Nullable struct{ Inner Type }

type Tuple struct{ Elems []Type }

type Function struct {
	Params []Type
	Ret    Type
}

// TypeVar is a fresh unification variable, introduced per generic
// instantiation call site.
type TypeVar struct{ ID int }

// Generic is an unresolved reference to a function or struct's own type
// parameter, only meaningful inside the generic declaration's own body
// before instantiation.
type Generic struct{ Name string }

func (Primitive) typeNode() {}
func (Named) typeNode()     {}
func (Nullable) typeNode()  {}
func (Tuple) typeNode()     {}
func (Function) typeNode()  {}
func (TypeVar) typeNode()   {}
func (Generic) typeNode()   {}

func (p Primitive) String() string { return p.Name }

func (n Named) String() string {
	if len(n.Args) == 0 {
		return n.Name
	}
	parts := make([]string, len(n.Args))
	for i, a := range n.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s<%s>", n.Name, strings.Join(parts, ", "))
}

func (n Nullable) String() string { return n.Inner.String() + "?" }

func (t Tuple) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (f Function) String() string {
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		parts[i] = p.String()
	}
	ret := "unit"
	if f.Ret != nil {
		ret = f.Ret.String()
	}
	return fmt.Sprintf("fn(%s) -> %s", strings.Join(parts, ", "), ret)
}

func (v TypeVar) String() string { return fmt.Sprintf("?%d", v.ID) }
func (g Generic) String() string { return g.Name }

var (
	I64    = Primitive{"i64"}
	F64    = Primitive{"f64"}
	Bool   = Primitive{"bool"}
	Unit   = Primitive{"unit"}
	Str    = Primitive{"string"}
)

// AsOptionPayload returns the payload type and true if t is Option<T> in
// either its Nullable sugar form or its fully elaborated Named form.
func AsOptionPayload(t Type) (Type, bool) {
	switch v := t.(type) {
	case Nullable:
		return v.Inner, true
	case Named:
		if v.Name == "Option" && len(v.Args) == 1 {
			return v.Args[0], true
		}
	}
	return nil, false
}

// ToOption normalizes a Nullable into its elaborated Named("Option", [T])
// form, so sugared and expanded Option types compare and unify equal.
func ToOption(t Type) Type {
	if n, ok := t.(Nullable); ok {
		return Named{Name: "Option", Args: []Type{n.Inner}}
	}
	return t
}

// Equal reports structural equality without unification (no variable
// binding side effects).
func Equal(a, b Type) bool {
	a, b = ToOption(a), ToOption(b)
	switch av := a.(type) {
	case Primitive:
		bv, ok := b.(Primitive)
		return ok && av.Name == bv.Name
	case Named:
		bv, ok := b.(Named)
		if !ok || av.Name != bv.Name || len(av.Args) != len(bv.Args) {
			return false
		}
		for i := range av.Args {
			if !Equal(av.Args[i], bv.Args[i]) {
				return false
			}
		}
		return true
	case Tuple:
		bv, ok := b.(Tuple)
		if !ok || len(av.Elems) != len(bv.Elems) {
			return false
		}
		for i := range av.Elems {
			if !Equal(av.Elems[i], bv.Elems[i]) {
				return false
			}
		}
		return true
	case Function:
		bv, ok := b.(Function)
		if !ok || len(av.Params) != len(bv.Params) {
			return false
		}
		for i := range av.Params {
			if !Equal(av.Params[i], bv.Params[i]) {
				return false
			}
		}
		return Equal(av.Ret, bv.Ret)
	case TypeVar:
		bv, ok := b.(TypeVar)
		return ok && av.ID == bv.ID
	case Generic:
		bv, ok := b.(Generic)
		return ok && av.Name == bv.Name
	}
	return false
}

// IsNumeric reports whether t is one of BMB's two numeric primitives.
func IsNumeric(t Type) bool {
	p, ok := t.(Primitive)
	return ok && (p.Name == "i64" || p.Name == "f64")
}

// SameNumericKind reports whether a and b are both i64 or both f64.
// Mixed-kind arithmetic is rejected here so later lowering can pick an
// integer or float opcode without re-checking operand kinds.
func SameNumericKind(a, b Type) bool {
	pa, oka := a.(Primitive)
	pb, okb := b.(Primitive)
	return oka && okb && pa.Name == pb.Name && IsNumeric(pa)
}

package types

// Subst is a unification variable substitution, built incrementally as
// unify walks two types. Unification here is syntactic, not full
// Hindley-Milner: generics are resolved per call site, so a Subst's
// lifetime is exactly one call's instantiation.
type Subst struct {
	m map[int]Type
}

func NewSubst() *Subst { return &Subst{m: make(map[int]Type)} }

// Resolve follows variable bindings to a fixed point.
func (s *Subst) Resolve(t Type) Type {
	for {
		v, ok := t.(TypeVar)
		if !ok {
			return t
		}
		bound, ok := s.m[v.ID]
		if !ok {
			return t
		}
		t = bound
	}
}

func (s *Subst) bind(id int, t Type) { s.m[id] = t }

// occurs reports whether variable id appears free in t, preventing cyclic
// substitutions.
func (s *Subst) occurs(id int, t Type) bool {
	t = s.Resolve(t)
	switch v := t.(type) {
	case TypeVar:
		return v.ID == id
	case Named:
		for _, a := range v.Args {
			if s.occurs(id, a) {
				return true
			}
		}
		return false
	case Nullable:
		return s.occurs(id, v.Inner)
	case Tuple:
		for _, e := range v.Elems {
			if s.occurs(id, e) {
				return true
			}
		}
		return false
	case Function:
		for _, p := range v.Params {
			if s.occurs(id, p) {
				return true
			}
		}
		if v.Ret != nil {
			return s.occurs(id, v.Ret)
		}
		return false
	}
	return false
}

// Unify attempts to make a and b equal under s, recursing into every type
// argument, tuple element, function parameter and nullable payload. It
// returns false (leaving s partially updated) on mismatch or an
// occurs-check violation.
func Unify(s *Subst, a, b Type) bool {
	a = s.Resolve(ToOption(a))
	b = s.Resolve(ToOption(b))

	if av, ok := a.(TypeVar); ok {
		if bv, ok := b.(TypeVar); ok && av.ID == bv.ID {
			return true
		}
		if s.occurs(av.ID, b) {
			return false
		}
		s.bind(av.ID, b)
		return true
	}
	if bv, ok := b.(TypeVar); ok {
		if s.occurs(bv.ID, a) {
			return false
		}
		s.bind(bv.ID, a)
		return true
	}

	switch av := a.(type) {
	case Primitive:
		bv, ok := b.(Primitive)
		return ok && av.Name == bv.Name
	case Generic:
		bv, ok := b.(Generic)
		return ok && av.Name == bv.Name
	case Named:
		bv, ok := b.(Named)
		if !ok || av.Name != bv.Name || len(av.Args) != len(bv.Args) {
			return false
		}
		for i := range av.Args {
			if !Unify(s, av.Args[i], bv.Args[i]) {
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
			if !Unify(s, av.Elems[i], bv.Elems[i]) {
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
			if !Unify(s, av.Params[i], bv.Params[i]) {
				return false
			}
		}
		return Unify(s, av.Ret, bv.Ret)
	}
	return false
}

// Substitute applies s to every variable occurrence in t, recursively.
func Substitute(s *Subst, t Type) Type {
	t = s.Resolve(t)
	switch v := t.(type) {
	case Named:
		args := make([]Type, len(v.Args))
		for i, a := range v.Args {
			args[i] = Substitute(s, a)
		}
		return Named{Name: v.Name, Args: args}
	case Nullable:
		return Nullable{Inner: Substitute(s, v.Inner)}
	case Tuple:
		elems := make([]Type, len(v.Elems))
		for i, e := range v.Elems {
			elems[i] = Substitute(s, e)
		}
		return Tuple{Elems: elems}
	case Function:
		params := make([]Type, len(v.Params))
		for i, p := range v.Params {
			params[i] = Substitute(s, p)
		}
		var ret Type
		if v.Ret != nil {
			ret = Substitute(s, v.Ret)
		}
		return Function{Params: params, Ret: ret}
	default:
		return t
	}
}

// Package interp is a tree-walking evaluator over BMB's AST, grounded on
// ailang's internal/eval.SimpleEvaluator: a Value interface with one
// concrete type per runtime kind, an Environment chaining child scopes to
// their parent, and a recursive eval dispatch by AST node type. It exists
// to run golden programs before a self-hosted BMB build can run itself
// (the bootstrap driver's stage0), not as a production execution engine —
// it is deliberately not optimized and has no tail-call handling of its
// own; Go's call stack absorbs the recursion depth these test programs need.
package interp

import (
	"fmt"
	"strings"
)

// Value is implemented by every runtime value kind.
type Value interface {
	valueNode()
	String() string
}

type IntValue struct{ V int64 }
type FloatValue struct{ V float64 }
type BoolValue struct{ V bool }
type StringValue struct{ V string }
type UnitValue struct{}

// StructValue holds field values in the struct definition's declared
// order, keyed by name for FieldAccess.
type StructValue struct {
	TypeName string
	Fields   map[string]Value
	Order    []string
}

// EnumValue holds a constructed variant and its bound payload values.
type EnumValue struct {
	EnumName string
	Variant  string
	Payload  []Value
}

// Closure pairs a function literal with the environment it closed over.
type Closure struct {
	Params []string
	Body   func(args []Value) (Value, error)
}

func (*IntValue) valueNode()    {}
func (*FloatValue) valueNode()  {}
func (*BoolValue) valueNode()   {}
func (*StringValue) valueNode() {}
func (*UnitValue) valueNode()   {}
func (*StructValue) valueNode() {}
func (*EnumValue) valueNode()   {}
func (*Closure) valueNode()     {}

func (v *IntValue) String() string   { return fmt.Sprintf("%d", v.V) }
func (v *FloatValue) String() string { return fmt.Sprintf("%g", v.V) }
func (v *BoolValue) String() string  { return fmt.Sprintf("%t", v.V) }
func (v *StringValue) String() string { return v.V }
func (v *UnitValue) String() string   { return "()" }

func (v *StructValue) String() string {
	parts := make([]string, len(v.Order))
	for i, name := range v.Order {
		parts[i] = fmt.Sprintf("%s: %s", name, v.Fields[name].String())
	}
	return fmt.Sprintf("%s { %s }", v.TypeName, strings.Join(parts, ", "))
}

func (v *EnumValue) String() string {
	if len(v.Payload) == 0 {
		return v.Variant
	}
	parts := make([]string, len(v.Payload))
	for i, p := range v.Payload {
		parts[i] = p.String()
	}
	return fmt.Sprintf("%s(%s)", v.Variant, strings.Join(parts, ", "))
}

func (v *Closure) String() string { return "<closure>" }

func truthy(v Value) bool {
	b, ok := v.(*BoolValue)
	return ok && b.V
}

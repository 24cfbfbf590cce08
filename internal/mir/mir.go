// Package mir defines BMB's middle intermediate representation: SSA basic
// blocks with explicit terminators and block parameters standing in for
// phi nodes at join points. Lowering (internal/mir.Lower) builds it from
// the elaborated AST; internal/optimize rewrites it in place; internal/emit
// prints it as textual low-level SSA.
package mir

import (
	"fmt"

	"bmb/internal/types"
)

// Place is a named SSA value. Every Place is assigned exactly once within
// a function: a second assignment to the same name would violate the SSA
// invariant lowering and the optimizer both rely on.
type Place struct {
	Name string
	Type types.Type
}

func (p Place) String() string { return "%" + p.Name }

// ConstKind tags the payload carried by a Const instruction.
type ConstKind int

const (
	ConstInt ConstKind = iota
	ConstFloat
	ConstBool
	ConstStr
	ConstUnit
)

// Const is a literal value materialized by an InstrConst.
type Const struct {
	Kind ConstKind
	I    int64
	F    float64
	B    bool
	S    string
}

func IntConst(v int64) Const   { return Const{Kind: ConstInt, I: v} }
func FloatConst(v float64) Const { return Const{Kind: ConstFloat, F: v} }
func BoolConst(v bool) Const   { return Const{Kind: ConstBool, B: v} }
func StrConst(v string) Const  { return Const{Kind: ConstStr, S: v} }
func UnitConst() Const         { return Const{Kind: ConstUnit} }

// Instr is implemented by every MIR instruction variant of §3.
type Instr interface{ instrNode() }

type InstrConst struct {
	Dest  Place
	Value Const
}

type InstrCopy struct{ Dest, Src Place }

// InstrBinOp's Op is type-tagged by lowering: integer operands select
// "i+ i- i* i/ i% i<< i>> i== i!= i< i> i<= i>=", float operands select
// "f+ f- f* f/ f== f!= f< f> f<= f>=". Mixed operands never reach here —
// the type checker rejects them upstream (ISSUE-20260209).
type InstrBinOp struct {
	Dest Place
	Op   string
	L, R Place
}

type InstrUnaryOp struct {
	Dest Place
	Op   string
	X    Place
}

// InstrCall invokes a named top-level function. Dest is nil for a
// unit-returning call used only for side effects. Tail is set by the
// lowering pass's tail-position analysis and may be acted on by the
// tail-call-to-loop optimizer pass.
type InstrCall struct {
	Dest *Place
	Name string
	Args []Place
	Tail bool
}

// InstrClosureAlloc packages a synthesized function pointer with a
// heap-allocated capture record.
type InstrClosureAlloc struct {
	Dest     Place
	FnName   string
	Captures []Place
}

// InstrClosureCall invokes a closure value, passing its capture record as
// the synthesized function's leading argument.
type InstrClosureCall struct {
	Dest    Place
	Closure Place
	Args    []Place
}

type InstrLoad struct {
	Dest Place
	Addr Place
}

type InstrStore struct {
	Addr  Place
	Value Place
}

// InstrGEP computes the address of one field/element of Base: struct
// field access, tuple indexing, and enum payload extraction all lower to
// a GEP plus a Load.
type InstrGEP struct {
	Dest     Place
	Base     Place
	Index    int
	ElemType types.Type
}

// InstrRecordAlloc allocates a flat record of values: the backing
// representation for struct literals and tagged enum constructors alike
// (the enum's tag occupies field 0 when TypeName names an enum). Field
// access/pattern binding later reads it back out with InstrGEP+InstrLoad.
type InstrRecordAlloc struct {
	Dest     Place
	TypeName string
	Fields   []Place
}

func (*InstrConst) instrNode()        {}
func (*InstrCopy) instrNode()         {}
func (*InstrBinOp) instrNode()        {}
func (*InstrUnaryOp) instrNode()      {}
func (*InstrCall) instrNode()         {}
func (*InstrClosureAlloc) instrNode() {}
func (*InstrClosureCall) instrNode()  {}
func (*InstrLoad) instrNode()         {}
func (*InstrStore) instrNode()        {}
func (*InstrGEP) instrNode()          {}
func (*InstrRecordAlloc) instrNode()  {}

// Term is implemented by the four terminator variants; every basic block
// ends in exactly one.
type Term interface{ termNode() }

// TermReturn's Value is nil for a unit-returning function.
type TermReturn struct{ Value *Place }

// TermGoto transfers to Target, supplying Args for its block parameters.
type TermGoto struct {
	Target string
	Args   []Place
}

type TermBranch struct {
	Cond     Place
	Then     string
	ThenArgs []Place
	Else     string
	ElseArgs []Place
}

type TermUnreachable struct{}

func (*TermReturn) termNode()      {}
func (*TermGoto) termNode()        {}
func (*TermBranch) termNode()      {}
func (*TermUnreachable) termNode() {}

// BasicBlock is a label, an ordered instruction list, block parameters
// (the join-point substitute for phi nodes described in §3), and exactly
// one terminator.
type BasicBlock struct {
	Label  string
	Params []Place
	Instrs []Instr
	Term   Term
}

func (b *BasicBlock) Emit(i Instr) { b.Instrs = append(b.Instrs, i) }

// Local is a `var`-introduced mutable binding, allocated with alloca and
// accessed through Load/Store rather than SSA Copy.
type Local struct {
	Name string
	Type types.Type
}

// Contract is the lowered form of a `pre` or `post` expression: a small
// straight-line computation ending in a boolean Result. The optimizer's
// contract-unreachable pass (§4.5 step 8) may prove Result constant true
// and elide the runtime bmb_assert.
type Contract struct {
	Instrs []Instr
	Result Place
}

// Function is one MIR function: name, typed parameters, return type, its
// basic blocks in declaration-reachable order, and the locals backing its
// `var` bindings.
type Function struct {
	Name     string
	Params   []Place
	Ret      types.Type
	Blocks   []*BasicBlock
	Locals   []Local
	Pre      *Contract
	Post     *Contract
	ClosureOf string // non-empty if this is a synthesized closure body; names the originating closure.
}

func (f *Function) Block(label string) *BasicBlock {
	for _, b := range f.Blocks {
		if b.Label == label {
			return b
		}
	}
	return nil
}

// ClosureEnv is the synthesized record type backing one closure's capture
// list, in the order free-variable analysis discovered them.
type ClosureEnv struct {
	Name   string
	Fields []Place
}

// Program is a whole lowered compilation unit: every function (including
// synthesized closure bodies) in source declaration order, the closure
// environment records they reference, and the single-pass-collected
// string literal pool (§4.6: "single-pass collection, not repeated
// scans").
type Program struct {
	Functions []*Function
	Envs      []*ClosureEnv
	Strings   []string
}

// StringID interns s into the literal pool, returning its stable index.
// Collection happens once, during lowering, as each StringLit is visited
// in AST traversal order — never rescanned later.
func (p *Program) StringID(s string) int {
	for i, existing := range p.Strings {
		if existing == s {
			return i
		}
	}
	p.Strings = append(p.Strings, s)
	return len(p.Strings) - 1
}

func (f *Function) String() string {
	return fmt.Sprintf("fn %s/%d", f.Name, len(f.Params))
}

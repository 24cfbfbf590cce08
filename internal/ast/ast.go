// Package ast defines the BMB abstract syntax tree produced by the parser.
//
// Each syntactic form gets its own concrete struct rather than one generic
// node tagged by a kind enum: BMB's grammar carries enough distinct
// per-node shapes (Binary(op,l,r), Let(name,typeOpt,value,body), Closure
// with a capture list, …) that a typed field set pays for itself over an
// untyped Data/Children pair. Every node embeds Base for its source span
// and supports a recursive indented Print.
package ast

import "bmb/internal/token"

// Node is implemented by every AST node.
type Node interface {
	Span() token.Span
}

// Expr is implemented by expression nodes. BMB is expression-oriented: if,
// let, match and blocks are all expressions.
type Expr interface {
	Node
	exprNode()
}

// Item is implemented by top-level declarations.
type Item interface {
	Node
	itemNode()
}

// TypeExpr is implemented by the type syntax the parser produces, distinct
// from the elaborated types.Type the checker resolves them to.
type TypeExpr interface {
	Node
	typeNode()
}

// Pattern is implemented by match-arm patterns.
type Pattern interface {
	Node
	patternNode()
}

// Base embeds a span into every concrete node without repeating the method.
// It is exported so the parser can set it directly in struct literals.
type Base struct{ Sp token.Span }

func (b Base) Span() token.Span { return b.Sp }

// Spanned constructs a Base from a span; a small convenience for call sites
// that would otherwise write ast.Base{Sp: span} repeatedly.
func Spanned(span token.Span) Base { return Base{Sp: span} }

// ---- Program -------------------------------------------------------------

// Program is the root of a parsed compilation unit.
type Program struct {
	Base
	Items []Item
}

func NewProgram(span token.Span, items []Item) *Program { return &Program{Base{span}, items} }

// ---- Expressions ----------------------------------------------------------

type IntLit struct {
	Base
	Value int64
}

type FloatLit struct {
	Base
	Value float64
}

type BoolLit struct {
	Base
	Value bool
}

type StringLit struct {
	Base
	Value string
}

type UnitLit struct{ Base }

type Var struct {
	Base
	Name string
}

type Binary struct {
	Base
	Op   string
	L, R Expr
}

type Unary struct {
	Base
	Op string
	X  Expr
}

type If struct {
	Base
	Cond, Then, Else Expr
}

// Let models both `let` (immutable) and `var` (mutable) bindings; BMB's
// `let name = value; body` is an expression, so Body is always present (the
// parser threads the rest of a block into it).
type Let struct {
	Base
	Name     string
	Mutable  bool
	TypeAnn  TypeExpr // optional, nil if omitted
	Value    Expr
	Body     Expr
}

type Call struct {
	Base
	Callee Expr
	Args   []Expr
}

type Block struct {
	Base
	Stmts []Expr
}

type MatchArm struct {
	Pat  Pattern
	Body Expr
}

type Match struct {
	Base
	Scrutinee Expr
	Arms      []MatchArm
}

type Param struct {
	Name string
	Type TypeExpr // may be nil for closures relying on inference
}

// Closure covers both `fn(params) -> ret = body` and `|params| body` forms.
// Captures is populated by the lowering pass's free-variable analysis, not
// by the parser.
type Closure struct {
	Base
	Params   []Param
	RetType  TypeExpr // optional
	Body     Expr
	Captures []string
}

type FieldAccess struct {
	Base
	X     Expr
	Field string
}

type Index struct {
	Base
	X, Idx Expr
}

type FieldInit struct {
	Name  string
	Value Expr
}

type StructLit struct {
	Base
	Name   string
	Fields []FieldInit
}

type EnumCtor struct {
	Base
	Enum    string
	Variant string
	Args    []Expr
}

func (*IntLit) exprNode()      {}
func (*FloatLit) exprNode()    {}
func (*BoolLit) exprNode()     {}
func (*StringLit) exprNode()   {}
func (*UnitLit) exprNode()     {}
func (*Var) exprNode()         {}
func (*Binary) exprNode()      {}
func (*Unary) exprNode()       {}
func (*If) exprNode()          {}
func (*Let) exprNode()         {}
func (*Call) exprNode()        {}
func (*Block) exprNode()       {}
func (*Match) exprNode()       {}
func (*Closure) exprNode()     {}
func (*FieldAccess) exprNode() {}
func (*Index) exprNode()       {}
func (*StructLit) exprNode()   {}
func (*EnumCtor) exprNode()    {}

// ---- Patterns ---------------------------------------------------------

type LitPattern struct {
	Base
	Value Expr
}

type WildcardPattern struct{ Base }

type VarPattern struct {
	Base
	Name string
}

// CtorPattern matches an enum constructor, optionally binding its payload,
// e.g. `Some(x)` or `None`.
type CtorPattern struct {
	Base
	Variant string
	Binds   []string
}

func (*LitPattern) patternNode()      {}
func (*WildcardPattern) patternNode() {}
func (*VarPattern) patternNode()      {}
func (*CtorPattern) patternNode()     {}

// ---- Type syntax --------------------------------------------------------

type PrimitiveType struct {
	Base
	Name string // i64, f64, bool, unit, string
}

type NamedType struct {
	Base
	Name     string
	TypeArgs []TypeExpr
}

// NullableType is the parser's representation of `T?`, expanded by the
// checker into Option<T>.
type NullableType struct {
	Base
	Inner TypeExpr
}

type TupleType struct {
	Base
	Elems []TypeExpr
}

type FuncType struct {
	Base
	Params []TypeExpr
	Ret    TypeExpr
}

func (*PrimitiveType) typeNode()  {}
func (*NamedType) typeNode()      {}
func (*NullableType) typeNode()   {}
func (*TupleType) typeNode()      {}
func (*FuncType) typeNode()       {}

// ---- Items --------------------------------------------------------------

type GenericParam struct {
	Name   string
	Bounds []string // trait names this type parameter must satisfy
}

type FnDef struct {
	Base
	Name     string
	Generics []GenericParam
	Params   []Param
	RetType  TypeExpr
	Pre      Expr // optional contract
	Post     Expr // optional contract; `result` is bound in scope
	Body     Expr
}

func (*FnDef) itemNode() {}

type StructDef struct {
	Base
	Name     string
	Generics []string
	Fields   []Param
}

func (*StructDef) itemNode() {}

type EnumVariant struct {
	Name    string
	Payload []TypeExpr
}

type EnumDef struct {
	Base
	Name     string
	Generics []string
	Variants []EnumVariant
}

func (*EnumDef) itemNode() {}

type MethodSig struct {
	Name    string
	Params  []Param
	RetType TypeExpr
}

type TraitDef struct {
	Base
	Name    string
	Methods []MethodSig
}

func (*TraitDef) itemNode() {}

// ImplBlock implements TraitName for TypeName. TraitName is empty for an
// inherent impl (no trait, just methods attached to a type).
type ImplBlock struct {
	Base
	TraitName string
	TypeName  TypeExpr
	Methods   []*FnDef
}

func (*ImplBlock) itemNode() {}

type TypeAlias struct {
	Base
	Name   string
	Target TypeExpr
}

func (*TypeAlias) itemNode() {}


// Package filter implements the jq-compatible filter language: the AST
// (this file), the persistent environment (env.go) and the generator-style
// evaluator (eval.go). Building the AST from jq source text is out of
// scope here - callers construct Filter trees directly, the way a parser
// produced elsewhere in the toolchain would.
package filter

import "github.com/jqstream/jqstream/value"

// CompareOp identifies one of jq's six comparison operators.
type CompareOp int

const (
	Eq CompareOp = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

// BoolOp identifies jq's two short-circuiting boolean connectives.
type BoolOp int

const (
	And BoolOp = iota
	Or
)

// ObjectKey is one key of an ObjectConstruct pair: either a literal name, a
// filter producing the key dynamically ({(expr): v}), or a variable-shorthand
// key ({$x} / {a}) resolved at eval time against VarName/FieldName.
type ObjectKey struct {
	Name     string
	KeyExpr  Filter
	VarName  string
	FieldName string
}

// StringPart is one piece of a string interpolation: either a literal
// run of text or an embedded filter expression.
type StringPart struct {
	Literal string
	Expr    Filter
	IsExpr  bool
}

// Filter is a node of the filter AST. It is a closed set of concrete types
// below; the evaluator type-switches over them. Filters are immutable and
// safely shared (read-only) across NDJSON worker goroutines once built.
type Filter interface {
	isFilter()
}

type Identity struct{}

type Field struct {
	Name string
}

type Index struct {
	Expr Filter
}

type Slice struct {
	From Filter // nil means unspecified
	To   Filter // nil means unspecified
}

type Iterate struct{}

type Pipe struct {
	Left, Right Filter
}

type Comma struct {
	Items []Filter
}

type Literal struct {
	Value value.Value
}

type ObjectConstruct struct {
	Pairs []ObjectPair
}

type ObjectPair struct {
	Key ObjectKey
	Val Filter // nil means "value is the key's own field/var lookup"
}

type ArrayConstruct struct {
	Inner Filter // nil means empty array literal []
}

type Select struct {
	Cond Filter
}

type Compare struct {
	Left, Right Filter
	Op          CompareOp
}

type Arith struct {
	Left, Right Filter
	Op          value.ArithOp
}

type Bool struct {
	Left, Right Filter
	Op          BoolOp
}

type Not struct {
	Inner Filter
}

type Neg struct {
	Inner Filter
}

type IfThenElse struct {
	Cond Filter
	Then Filter
	Else Filter // nil means "pass input through unchanged"
}

type Alternative struct {
	Left, Right Filter
}

type Try struct {
	Inner Filter
	Catch Filter // nil for bare try/?
}

type Recurse struct{}

type StringInterp struct {
	Parts []StringPart
	// Format, when non-empty, is an @-format name (e.g. "base64", "csv")
	// applied to each interpolated expression's result before concatenation.
	Format string
}

type Builtin struct {
	Name string
	Args []Filter
}

// Var reads a variable bound by bind_var (as-pattern bindings, function
// parameters prefixed with $, or `... as $x`).
type Var struct {
	Name string
}

// FuncCall invokes a user-defined function (def ...) visible in the
// current environment, as opposed to Builtin which names a library
// function.
type FuncCall struct {
	Name string
	Args []Filter
}

// Def introduces a function definition visible in Body's environment.
type Def struct {
	Name   string
	Params []string // variable params are prefixed with '$' by convention
	Body   Filter
	Rest   Filter // the filter evaluated with this def in scope
}

// Bind implements `EXPR as $x | REST` (and multi-pattern destructuring via
// Patterns, for the common case Patterns has exactly one simple Var name).
type Bind struct {
	Source   Filter
	Patterns []string
	Rest     Filter
}

// Reduce implements `reduce SOURCE as $x (INIT; UPDATE)`.
type Reduce struct {
	Source Filter
	Var    string
	Init   Filter
	Update Filter
}

// Foreach implements `foreach SOURCE as $x (INIT; UPDATE; EXTRACT)`.
type Foreach struct {
	Source  Filter
	Var     string
	Init    Filter
	Update  Filter
	Extract Filter // nil means emit Update's result directly
}

// Label / Break implement jq's `label $out | ... break $out`.
type Label struct {
	Name string
	Body Filter
}

type Break struct {
	Name string
}

func (Identity) isFilter()        {}
func (Field) isFilter()           {}
func (Index) isFilter()           {}
func (Slice) isFilter()           {}
func (Iterate) isFilter()         {}
func (Pipe) isFilter()            {}
func (Comma) isFilter()           {}
func (Literal) isFilter()         {}
func (ObjectConstruct) isFilter() {}
func (ArrayConstruct) isFilter()  {}
func (Select) isFilter()          {}
func (Compare) isFilter()         {}
func (Arith) isFilter()           {}
func (Bool) isFilter()            {}
func (Not) isFilter()             {}
func (Neg) isFilter()             {}
func (IfThenElse) isFilter()      {}
func (Alternative) isFilter()     {}
func (Try) isFilter()             {}
func (Recurse) isFilter()         {}
func (StringInterp) isFilter()    {}
func (Builtin) isFilter()         {}
func (Var) isFilter()             {}
func (FuncCall) isFilter()        {}
func (Def) isFilter()             {}
func (Bind) isFilter()            {}
func (Reduce) isFilter()          {}
func (Foreach) isFilter()         {}
func (Label) isFilter()           {}
func (Break) isFilter()           {}

package query

import (
	"errors"
	"strings"
)

// RootAlias is the table alias of the root entity of a select.
const RootAlias = "%root"

// Renderer renders expression nodes and select specifications to SQL text.
// It is implemented by the dialects.
type Renderer interface {
	Field(*Field) string
	Literal(Literal) string
	Binary(*BinaryOp) string
	Unary(*UnaryOp) string
	Func(*Func) string
	Tuple(*TupleNode) string
	Aliased(*AliasedColumn) string
	Select(*SelectSpec) string
}

// Expr is a value-producing SQL fragment. The set of implementations is
// closed: Field, Literal, BinaryOp, UnaryOp, Func, TupleNode, AliasedColumn
// and sub-select Builders.
type Expr interface {
	SQL(Renderer) string
	// exprErr returns the first construction error in the subtree.
	exprErr() error
}

// Op is a binary or unary operator.
type Op string

// Binary operators.
const (
	OpAnd  Op = "AND"
	OpOr   Op = "OR"
	OpEQ   Op = "="
	OpGT   Op = ">"
	OpLT   Op = "<"
	OpLike Op = "LIKE"
	OpIn   Op = "IN"
)

// Unary operators.
const (
	OpNot    Op = "NOT"
	OpIsNull Op = "IS NULL"
)

// Agg is an aggregate function.
type Agg string

// Aggregate functions.
const (
	AggCount Agg = "COUNT"
	AggSum   Agg = "SUM"
	AggAvg   Agg = "AVG"
	AggMin   Agg = "MIN"
	AggMax   Agg = "MAX"
)

// comparisons carries the fluent comparison methods of an operand.
type comparisons struct {
	self Expr
}

// EQ returns self = v.
func (c comparisons) EQ(v any) *BinaryOp { return EQ(c.self, operand(v)) }

// NEQ returns NOT (self = v).
func (c comparisons) NEQ(v any) *UnaryOp { return Not(EQ(c.self, operand(v))) }

// GT returns self > v.
func (c comparisons) GT(v any) *BinaryOp { return GT(c.self, operand(v)) }

// GTE returns NOT (self < v).
func (c comparisons) GTE(v any) *UnaryOp { return Not(LT(c.self, operand(v))) }

// LT returns self < v.
func (c comparisons) LT(v any) *BinaryOp { return LT(c.self, operand(v)) }

// LTE returns NOT (self > v).
func (c comparisons) LTE(v any) *UnaryOp { return Not(GT(c.self, operand(v))) }

// Like returns self LIKE pattern.
func (c comparisons) Like(pattern string) *BinaryOp { return Like(c.self, pattern) }

// In returns self IN (vs...). A single sub-select argument is used as the
// right operand directly.
func (c comparisons) In(vs ...any) *BinaryOp {
	if len(vs) == 1 {
		if sub, ok := vs[0].(*Builder); ok {
			return In(c.self, sub)
		}
	}
	items := make([]Expr, len(vs))
	for i, v := range vs {
		items[i] = operand(v)
	}
	return In(c.self, Tuple(items...))
}

// IsNull returns self IS NULL.
func (c comparisons) IsNull() *UnaryOp { return IsNull(c.self) }

// NotNull returns NOT (self IS NULL).
func (c comparisons) NotNull() *UnaryOp { return Not(IsNull(c.self)) }

// operand returns v as an expression, converting plain values to literals.
func operand(v any) Expr {
	if e, ok := v.(Expr); ok && e != nil {
		return e
	}
	return Lit(v)
}

// Field references a column of a table alias.
type Field struct {
	comparisons
	Alias  string
	Column string
	err    error
}

// F returns a field reference from a dot-separated path. The last segment is
// the column name and the rest is the join path of its table. A bare column
// name refers to the root entity.
//
//	F("first_name")            // "%root"."first_name"
//	F("department.manager_id") // "department"."manager_id"
func F(path string) *Field {
	alias, column := RootAlias, path
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		alias, column = path[:i], path[i+1:]
	}
	return FieldOf(alias, column)
}

// FieldOf returns a field reference to column of the given table alias.
func FieldOf(alias, column string) *Field {
	f := &Field{Alias: alias, Column: column}
	f.self = f
	if alias == "" || column == "" {
		f.err = errors.New("loom: field reference requires a table alias and a column")
	}
	return f
}

// Path returns the compound name of the field, used as the output alias of
// projected columns.
func (f *Field) Path() string { return f.Alias + "." + f.Column }

// SQL implements Expr.
func (f *Field) SQL(r Renderer) string { return r.Field(f) }

func (f *Field) exprErr() error { return f.err }

// BinaryOp applies a binary operator to two operands.
type BinaryOp struct {
	Left, Right Expr
	Op          Op
}

// SQL implements Expr.
func (b *BinaryOp) SQL(r Renderer) string { return r.Binary(b) }

func (b *BinaryOp) exprErr() error { return firstErr(b.Left, b.Right) }

// UnaryOp applies a unary operator to an operand.
type UnaryOp struct {
	Operand Expr
	Op      Op
}

// SQL implements Expr.
func (u *UnaryOp) SQL(r Renderer) string { return r.Unary(u) }

func (u *UnaryOp) exprErr() error { return firstErr(u.Operand) }

// Func is an aggregate function call. A nil Operand renders as COUNT(*).
type Func struct {
	comparisons
	Operand  Expr
	Agg      Agg
	Distinct bool
}

func newFunc(agg Agg, e Expr, distinct bool) *Func {
	f := &Func{Operand: e, Agg: agg, Distinct: distinct}
	f.self = f
	return f
}

// SQL implements Expr.
func (f *Func) SQL(r Renderer) string { return r.Func(f) }

func (f *Func) exprErr() error {
	if f.Operand == nil {
		return nil
	}
	return f.Operand.exprErr()
}

// TupleNode is a parenthesized list of operands, the right side of IN.
type TupleNode struct {
	Items []Expr
}

// SQL implements Expr.
func (t *TupleNode) SQL(r Renderer) string { return r.Tuple(t) }

func (t *TupleNode) exprErr() error { return firstErr(t.Items...) }

// AliasedColumn names the output column of a projected expression.
type AliasedColumn struct {
	Expr  Expr
	Alias string
}

// SQL implements Expr.
func (a *AliasedColumn) SQL(r Renderer) string { return r.Aliased(a) }

func (a *AliasedColumn) exprErr() error {
	if a.Alias == "" {
		return errors.New("loom: empty column alias")
	}
	return firstErr(a.Expr)
}

func firstErr(es ...Expr) error {
	for _, e := range es {
		if e == nil {
			return errors.New("loom: nil expression operand")
		}
		if err := e.exprErr(); err != nil {
			return err
		}
	}
	return nil
}

// Tuple returns a tuple of the given operands.
func Tuple(items ...Expr) *TupleNode { return &TupleNode{Items: items} }

// As names the output column of e.
func As(e Expr, alias string) *AliasedColumn { return &AliasedColumn{Expr: e, Alias: alias} }

// Count returns COUNT(e).
func Count(e Expr) *Func { return newFunc(AggCount, e, false) }

// CountDistinct returns COUNT(DISTINCT e).
func CountDistinct(e Expr) *Func { return newFunc(AggCount, e, true) }

// CountAll returns COUNT(*).
func CountAll() *Func { return newFunc(AggCount, nil, false) }

// Sum returns SUM(e).
func Sum(e Expr) *Func { return newFunc(AggSum, e, false) }

// Avg returns AVG(e).
func Avg(e Expr) *Func { return newFunc(AggAvg, e, false) }

// Min returns MIN(e).
func Min(e Expr) *Func { return newFunc(AggMin, e, false) }

// Max returns MAX(e).
func Max(e Expr) *Func { return newFunc(AggMax, e, false) }

// And joins the given predicates with AND, nesting to the right. Nil
// predicates are skipped; And returns nil if none remain.
func And(preds ...Expr) Expr { return join(OpAnd, preds) }

// Or joins the given predicates with OR, nesting to the right.
func Or(preds ...Expr) Expr { return join(OpOr, preds) }

func join(op Op, preds []Expr) Expr {
	var acc Expr
	for i := len(preds) - 1; i >= 0; i-- {
		switch p := preds[i]; {
		case p == nil:
		case acc == nil:
			acc = p
		default:
			acc = &BinaryOp{Left: p, Right: acc, Op: op}
		}
	}
	return acc
}

// Not returns NOT (e).
func Not(e Expr) *UnaryOp { return &UnaryOp{Operand: e, Op: OpNot} }

// IsNull returns (e) IS NULL.
func IsNull(e Expr) *UnaryOp { return &UnaryOp{Operand: e, Op: OpIsNull} }

// EQ returns (l) = (r).
func EQ(l, r Expr) *BinaryOp { return &BinaryOp{Left: l, Right: r, Op: OpEQ} }

// GT returns (l) > (r).
func GT(l, r Expr) *BinaryOp { return &BinaryOp{Left: l, Right: r, Op: OpGT} }

// LT returns (l) < (r).
func LT(l, r Expr) *BinaryOp { return &BinaryOp{Left: l, Right: r, Op: OpLT} }

// Like returns (e) LIKE 'pattern'.
func Like(e Expr, pattern string) *BinaryOp {
	return &BinaryOp{Left: e, Right: String(pattern), Op: OpLike}
}

// In returns (e) IN set, where set is a tuple or a sub-select.
func In(e Expr, set Expr) *BinaryOp { return &BinaryOp{Left: e, Right: set, Op: OpIn} }

// Order is an ORDER BY term.
type Order struct {
	Expr Expr
	Desc bool
}

// Asc orders by e ascending.
func Asc(e Expr) Order { return Order{Expr: e} }

// Desc orders by e descending.
func Desc(e Expr) Order { return Order{Expr: e, Desc: true} }

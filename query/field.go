package query

import "time"

// StringField is a string column path that produces predicates with string
// literals.
//
// Usage:
//
//	var LastName = query.StringField("last_name")
//	b.Where(LastName.Like("K%"))
type StringField string

// Name returns the field path.
func (f StringField) Name() string { return string(f) }

// Expr returns the field reference.
func (f StringField) Expr() *Field { return F(string(f)) }

// EQ returns a predicate that checks if the field equals the given value.
func (f StringField) EQ(v string) Expr { return EQ(f.Expr(), String(v)) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f StringField) NEQ(v string) Expr { return Not(f.EQ(v)) }

// In returns a predicate that checks if the field value is in the given list.
func (f StringField) In(vs ...string) Expr { return In(f.Expr(), tupleOf(vs, String)) }

// NotIn returns a predicate that checks if the field value is not in the given list.
func (f StringField) NotIn(vs ...string) Expr { return Not(f.In(vs...)) }

// GT returns a predicate that checks if the field is greater than the given value.
func (f StringField) GT(v string) Expr { return GT(f.Expr(), String(v)) }

// LT returns a predicate that checks if the field is less than the given value.
func (f StringField) LT(v string) Expr { return LT(f.Expr(), String(v)) }

// Like returns a predicate that matches the field against a LIKE pattern.
func (f StringField) Like(pattern string) Expr { return Like(f.Expr(), pattern) }

// IsNull returns a predicate that checks if the field is NULL.
func (f StringField) IsNull() Expr { return IsNull(f.Expr()) }

// NotNull returns a predicate that checks if the field is not NULL.
func (f StringField) NotNull() Expr { return Not(IsNull(f.Expr())) }

// IntField is an integer column path.
type IntField string

// Name returns the field path.
func (f IntField) Name() string { return string(f) }

// Expr returns the field reference.
func (f IntField) Expr() *Field { return F(string(f)) }

// EQ returns a predicate that checks if the field equals the given value.
func (f IntField) EQ(v int) Expr { return EQ(f.Expr(), Int(int64(v))) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f IntField) NEQ(v int) Expr { return Not(f.EQ(v)) }

// In returns a predicate that checks if the field value is in the given list.
func (f IntField) In(vs ...int) Expr {
	return In(f.Expr(), tupleOf(vs, func(v int) Literal { return Int(int64(v)) }))
}

// GT returns a predicate that checks if the field is greater than the given value.
func (f IntField) GT(v int) Expr { return GT(f.Expr(), Int(int64(v))) }

// GTE returns a predicate that checks if the field is greater than or equal to the given value.
func (f IntField) GTE(v int) Expr { return Not(LT(f.Expr(), Int(int64(v)))) }

// LT returns a predicate that checks if the field is less than the given value.
func (f IntField) LT(v int) Expr { return LT(f.Expr(), Int(int64(v))) }

// LTE returns a predicate that checks if the field is less than or equal to the given value.
func (f IntField) LTE(v int) Expr { return Not(GT(f.Expr(), Int(int64(v)))) }

// IsNull returns a predicate that checks if the field is NULL.
func (f IntField) IsNull() Expr { return IsNull(f.Expr()) }

// NotNull returns a predicate that checks if the field is not NULL.
func (f IntField) NotNull() Expr { return Not(IsNull(f.Expr())) }

// Int64Field is an int64 column path.
type Int64Field string

// Name returns the field path.
func (f Int64Field) Name() string { return string(f) }

// Expr returns the field reference.
func (f Int64Field) Expr() *Field { return F(string(f)) }

// EQ returns a predicate that checks if the field equals the given value.
func (f Int64Field) EQ(v int64) Expr { return EQ(f.Expr(), Int(v)) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f Int64Field) NEQ(v int64) Expr { return Not(f.EQ(v)) }

// In returns a predicate that checks if the field value is in the given list.
func (f Int64Field) In(vs ...int64) Expr { return In(f.Expr(), tupleOf(vs, Int)) }

// GT returns a predicate that checks if the field is greater than the given value.
func (f Int64Field) GT(v int64) Expr { return GT(f.Expr(), Int(v)) }

// GTE returns a predicate that checks if the field is greater than or equal to the given value.
func (f Int64Field) GTE(v int64) Expr { return Not(LT(f.Expr(), Int(v))) }

// LT returns a predicate that checks if the field is less than the given value.
func (f Int64Field) LT(v int64) Expr { return LT(f.Expr(), Int(v)) }

// LTE returns a predicate that checks if the field is less than or equal to the given value.
func (f Int64Field) LTE(v int64) Expr { return Not(GT(f.Expr(), Int(v))) }

// IsNull returns a predicate that checks if the field is NULL.
func (f Int64Field) IsNull() Expr { return IsNull(f.Expr()) }

// NotNull returns a predicate that checks if the field is not NULL.
func (f Int64Field) NotNull() Expr { return Not(IsNull(f.Expr())) }

// Float64Field is a floating-point column path.
type Float64Field string

// Name returns the field path.
func (f Float64Field) Name() string { return string(f) }

// Expr returns the field reference.
func (f Float64Field) Expr() *Field { return F(string(f)) }

// EQ returns a predicate that checks if the field equals the given value.
func (f Float64Field) EQ(v float64) Expr { return EQ(f.Expr(), Double(v)) }

// GT returns a predicate that checks if the field is greater than the given value.
func (f Float64Field) GT(v float64) Expr { return GT(f.Expr(), Double(v)) }

// LT returns a predicate that checks if the field is less than the given value.
func (f Float64Field) LT(v float64) Expr { return LT(f.Expr(), Double(v)) }

// IsNull returns a predicate that checks if the field is NULL.
func (f Float64Field) IsNull() Expr { return IsNull(f.Expr()) }

// NotNull returns a predicate that checks if the field is not NULL.
func (f Float64Field) NotNull() Expr { return Not(IsNull(f.Expr())) }

// BoolField is a boolean column path.
type BoolField string

// Name returns the field path.
func (f BoolField) Name() string { return string(f) }

// Expr returns the field reference.
func (f BoolField) Expr() *Field { return F(string(f)) }

// EQ returns a predicate that checks if the field equals the given value.
func (f BoolField) EQ(v bool) Expr { return EQ(f.Expr(), Bool(v)) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f BoolField) NEQ(v bool) Expr { return Not(f.EQ(v)) }

// IsNull returns a predicate that checks if the field is NULL.
func (f BoolField) IsNull() Expr { return IsNull(f.Expr()) }

// NotNull returns a predicate that checks if the field is not NULL.
func (f BoolField) NotNull() Expr { return Not(IsNull(f.Expr())) }

// TimeField is a temporal column path. The literal kind of its operands
// follows the column type.
type TimeField struct {
	path string
	lit  func(time.Time) Literal
}

// DateField returns a field of a DATE column.
func DateField(path string) TimeField { return TimeField{path: path, lit: Date} }

// DateTimeField returns a field of a TIMESTAMP column.
func DateTimeField(path string) TimeField { return TimeField{path: path, lit: DateTime} }

// TimeOfDayField returns a field of a TIME column.
func TimeOfDayField(path string) TimeField { return TimeField{path: path, lit: Time} }

// Name returns the field path.
func (f TimeField) Name() string { return f.path }

// Expr returns the field reference.
func (f TimeField) Expr() *Field { return F(f.path) }

// EQ returns a predicate that checks if the field equals the given value.
func (f TimeField) EQ(v time.Time) Expr { return EQ(f.Expr(), f.lit(v)) }

// GT returns a predicate that checks if the field is after the given value.
func (f TimeField) GT(v time.Time) Expr { return GT(f.Expr(), f.lit(v)) }

// LT returns a predicate that checks if the field is before the given value.
func (f TimeField) LT(v time.Time) Expr { return LT(f.Expr(), f.lit(v)) }

// Between returns a predicate that checks if the field is within [from, to].
func (f TimeField) Between(from, to time.Time) Expr {
	return And(Not(LT(f.Expr(), f.lit(from))), Not(GT(f.Expr(), f.lit(to))))
}

// IsNull returns a predicate that checks if the field is NULL.
func (f TimeField) IsNull() Expr { return IsNull(f.Expr()) }

// NotNull returns a predicate that checks if the field is not NULL.
func (f TimeField) NotNull() Expr { return Not(IsNull(f.Expr())) }

func tupleOf[T any](vs []T, lit func(T) Literal) *TupleNode {
	items := make([]Expr, len(vs))
	for i, v := range vs {
		items[i] = lit(v)
	}
	return Tuple(items...)
}

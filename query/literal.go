package query

import (
	"database/sql/driver"
	"encoding"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/syssam/loom"
)

// Kind is the tag of a Literal.
type Kind uint8

// Literal kinds.
const (
	KindNull Kind = iota
	KindInt
	KindDouble
	KindString
	KindBool
	KindDate
	KindDateTime
	KindTime
	kindInvalid
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	case KindDateTime:
		return "datetime"
	case KindTime:
		return "time"
	}
	return "invalid"
}

// Literal is a constant value with exactly one active kind. It is used both
// as an expression operand and as a bound statement parameter.
type Literal struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    bool
	t    time.Time
	err  error
}

// Null returns the NULL literal.
func Null() Literal { return Literal{kind: KindNull} }

// Int returns an integer literal.
func Int(v int64) Literal { return Literal{kind: KindInt, i: v} }

// Double returns a floating-point literal.
func Double(v float64) Literal { return Literal{kind: KindDouble, f: v} }

// String returns a string literal.
func String(v string) Literal { return Literal{kind: KindString, s: v} }

// Bool returns a boolean literal.
func Bool(v bool) Literal { return Literal{kind: KindBool, b: v} }

// Date returns a calendar date literal. The time of day is ignored.
func Date(v time.Time) Literal { return Literal{kind: KindDate, t: v} }

// DateTime returns a timestamp literal.
func DateTime(v time.Time) Literal { return Literal{kind: KindDateTime, t: v} }

// Time returns a time-of-day literal. The date is ignored.
func Time(v time.Time) Literal { return Literal{kind: KindTime, t: v} }

// Kind returns the active kind.
func (l Literal) Kind() Kind { return l.kind }

// IsNull reports whether l is the NULL literal.
func (l Literal) IsNull() bool { return l.kind == KindNull }

// IntValue returns the payload of an integer literal.
func (l Literal) IntValue() int64 { return l.i }

// DoubleValue returns the payload of a floating-point literal.
func (l Literal) DoubleValue() float64 { return l.f }

// StringValue returns the payload of a string literal.
func (l Literal) StringValue() string { return l.s }

// BoolValue returns the payload of a boolean literal.
func (l Literal) BoolValue() bool { return l.b }

// TimeValue returns the payload of a date, datetime or time literal.
func (l Literal) TimeValue() time.Time { return l.t }

// Interface returns the payload as a Go value, nil for NULL.
func (l Literal) Interface() any {
	switch l.kind {
	case KindInt:
		return l.i
	case KindDouble:
		return l.f
	case KindString:
		return l.s
	case KindBool:
		return l.b
	case KindDate, KindDateTime, KindTime:
		return l.t
	}
	return nil
}

// GoString formats the literal for debugging and test failure output.
func (l Literal) GoString() string {
	if l.kind == KindNull {
		return "NULL"
	}
	return fmt.Sprintf("%s(%v)", l.kind, l.Interface())
}

// SQL implements Expr.
func (l Literal) SQL(r Renderer) string { return r.Literal(l) }

func (l Literal) exprErr() error { return l.err }

// Lit converts v to a literal expression. Unsupported values produce an
// expression that fails the enclosing Build.
func Lit(v any) Literal {
	l, err := LiteralOf(v)
	if err != nil {
		return Literal{kind: kindInvalid, err: err}
	}
	return l
}

var timeType = reflect.TypeOf(time.Time{})

// LiteralOf converts a Go value to a Literal. Named types are converted by
// their underlying kind, so string enumerations become string literals.
// time.Time values become datetime literals.
func LiteralOf(v any) (Literal, error) {
	switch v := v.(type) {
	case nil:
		return Null(), nil
	case Literal:
		return v, v.err
	case int:
		return Int(int64(v)), nil
	case int8:
		return Int(int64(v)), nil
	case int16:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint8:
		return Int(int64(v)), nil
	case uint16:
		return Int(int64(v)), nil
	case uint32:
		return Int(int64(v)), nil
	case float32:
		return Double(float64(v)), nil
	case float64:
		return Double(v), nil
	case string:
		return String(v), nil
	case []byte:
		return String(string(v)), nil
	case bool:
		return Bool(v), nil
	case time.Time:
		return DateTime(v), nil
	case driver.Valuer:
		if isNilPointer(v) {
			return Null(), nil
		}
		dv, err := v.Value()
		if err != nil {
			return Literal{}, err
		}
		if _, ok := dv.(driver.Valuer); ok {
			return Literal{}, loom.NewUnsupportedLiteralError(v)
		}
		return LiteralOf(dv)
	case encoding.TextMarshaler:
		if isNilPointer(v) {
			return Null(), nil
		}
		text, err := v.MarshalText()
		if err != nil {
			return Literal{}, err
		}
		return String(string(text)), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return Null(), nil
		}
		return LiteralOf(rv.Elem().Interface())
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if u := rv.Uint(); u <= math.MaxInt64 {
			return Int(int64(u)), nil
		}
	case reflect.Float32, reflect.Float64:
		return Double(rv.Float()), nil
	case reflect.Struct:
		if rv.Type().ConvertibleTo(timeType) {
			return DateTime(rv.Convert(timeType).Interface().(time.Time)), nil
		}
	}
	return Literal{}, loom.NewUnsupportedLiteralError(v)
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

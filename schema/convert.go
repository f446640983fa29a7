package schema

import (
	"database/sql"
	"encoding"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

// Setter converts a value returned by a database driver and assigns it to
// a struct field. The field must be settable.
type Setter func(field reflect.Value, v any) error

var (
	timeType            = reflect.TypeOf(time.Time{})
	bytesType           = reflect.TypeOf([]byte(nil))
	scannerType         = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// timeLayouts are tried in order when a temporal value arrives as text.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
	"15:04:05.999999999",
}

// NewSetter returns the Setter for fields of type t. It fails if no
// conversion into t is known.
func NewSetter(t reflect.Type) (Setter, error) {
	switch {
	case t.Kind() == reflect.Pointer:
		elem, err := NewSetter(t.Elem())
		if err != nil {
			return nil, err
		}
		return func(field reflect.Value, v any) error {
			if v == nil {
				field.SetZero()
				return nil
			}
			p := reflect.New(t.Elem())
			if err := elem(p.Elem(), v); err != nil {
				return err
			}
			field.Set(p)
			return nil
		}, nil
	case t == timeType:
		return setTime, nil
	case reflect.PointerTo(t).Implements(scannerType):
		return func(field reflect.Value, v any) error {
			return field.Addr().Interface().(sql.Scanner).Scan(v)
		}, nil
	case reflect.PointerTo(t).Implements(textUnmarshalerType):
		return nullable(func(field reflect.Value, v any) error {
			s, err := asString(v)
			if err != nil {
				return err
			}
			return field.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s))
		}), nil
	case t == bytesType:
		return nullable(func(field reflect.Value, v any) error {
			switch v := v.(type) {
			case []byte:
				field.SetBytes(append([]byte(nil), v...))
			case string:
				field.SetBytes([]byte(v))
			default:
				return fmt.Errorf("unsupported source type %T", v)
			}
			return nil
		}), nil
	}
	switch t.Kind() {
	case reflect.String:
		return nullable(func(field reflect.Value, v any) error {
			s, err := asString(v)
			if err != nil {
				return err
			}
			field.SetString(s)
			return nil
		}), nil
	case reflect.Bool:
		return nullable(setBool), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return nullable(setInt), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return nullable(setUint), nil
	case reflect.Float32, reflect.Float64:
		return nullable(setFloat), nil
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return func(field reflect.Value, v any) error {
				if v == nil {
					field.SetZero()
					return nil
				}
				field.Set(reflect.ValueOf(v))
				return nil
			}, nil
		}
	}
	return nil, fmt.Errorf("unsupported field type %s", t)
}

// nullable wraps a setter so that NULL resets the field to its zero value.
func nullable(set Setter) Setter {
	return func(field reflect.Value, v any) error {
		if v == nil {
			field.SetZero()
			return nil
		}
		return set(field, v)
	}
}

func asString(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return "", fmt.Errorf("unsupported source type %T", v)
}

func setTime(field reflect.Value, v any) error {
	switch v := v.(type) {
	case nil:
		field.SetZero()
	case time.Time:
		field.Set(reflect.ValueOf(v))
	case string, []byte:
		s, _ := asString(v)
		t, err := parseTime(s)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(t))
	default:
		return fmt.Errorf("unsupported source type %T", v)
	}
	return nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format %q", s)
}

func setBool(field reflect.Value, v any) error {
	switch v := v.(type) {
	case bool:
		field.SetBool(v)
		return nil
	case string, []byte:
		s, _ := asString(v)
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		field.SetBool(b)
		return nil
	}
	i, err := toInt64(v)
	if err != nil {
		return err
	}
	field.SetBool(i != 0)
	return nil
}

func setInt(field reflect.Value, v any) error {
	i, err := toInt64(v)
	if err != nil {
		return err
	}
	if field.OverflowInt(i) {
		return fmt.Errorf("value %d overflows %s", i, field.Type())
	}
	field.SetInt(i)
	return nil
}

func setUint(field reflect.Value, v any) error {
	i, err := toInt64(v)
	if err != nil {
		return err
	}
	if i < 0 || field.OverflowUint(uint64(i)) {
		return fmt.Errorf("value %d overflows %s", i, field.Type())
	}
	field.SetUint(uint64(i))
	return nil
}

func setFloat(field reflect.Value, v any) error {
	var f float64
	switch v := v.(type) {
	case string, []byte:
		s, _ := asString(v)
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		f = p
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Float32, reflect.Float64:
			f = rv.Float()
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			f = float64(rv.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			f = float64(rv.Uint())
		default:
			return fmt.Errorf("unsupported source type %T", v)
		}
	}
	if field.OverflowFloat(f) {
		return fmt.Errorf("value %v overflows %s", f, field.Type())
	}
	field.SetFloat(f)
	return nil
}

func toInt64(v any) (int64, error) {
	switch v := v.(type) {
	case string, []byte:
		s, _ := asString(v)
		return strconv.ParseInt(s, 10, 64)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
			return 0, fmt.Errorf("value %v is not an integer", f)
		}
		return int64(f), nil
	case reflect.Bool:
		if rv.Bool() {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("unsupported source type %T", v)
}

package schema

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/syssam/loom"
)

// Temporal tells which SQL temporal type a time.Time column stores.
type Temporal uint8

// Temporal kinds.
const (
	DateTime Temporal = iota // Date and time of day. Default for time.Time.
	Date                     // Calendar date only.
	Time                     // Time of day only.
)

// String returns the temporal kind name.
func (t Temporal) String() string {
	switch t {
	case Date:
		return "date"
	case Time:
		return "time"
	default:
		return "datetime"
	}
}

// Column maps one struct field to a table column.
type Column struct {
	Name      string
	Field     string
	Type      reflect.Type
	Key       bool
	Generated bool
	Temporal  Temporal

	index []int
	set   Setter
}

// Get returns the field value of obj as an interface. obj must be a struct
// value of the owner type.
func (c *Column) Get(obj reflect.Value) any {
	return obj.FieldByIndex(c.index).Interface()
}

// IsNull reports whether the field of obj holds SQL NULL: a nil pointer,
// slice, map or interface.
func (c *Column) IsNull(obj reflect.Value) bool {
	f := obj.FieldByIndex(c.index)
	switch f.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return f.IsNil()
	}
	return false
}

// IsZero reports whether the field of obj is NULL or the zero value.
func (c *Column) IsZero(obj reflect.Value) bool {
	return obj.FieldByIndex(c.index).IsZero()
}

// Set converts v and assigns it to the field of obj. obj must be addressable.
func (c *Column) Set(obj reflect.Value, v any) error {
	if err := c.set(obj.FieldByIndex(c.index), v); err != nil {
		return &loom.ConversionError{Column: c.Name, Target: c.Type, Value: v, Err: err}
	}
	return nil
}

// Entity describes the mapping of one struct type to a table.
type Entity struct {
	Name      string
	Table     string
	Type      reflect.Type
	Columns   []*Column
	Keys      []*Column
	Relations []*Relation

	columns   map[string]*Column
	relations map[string]*Relation
}

// Column returns the column with the given name. The lookup is case-insensitive.
func (e *Entity) Column(name string) (*Column, bool) {
	c, ok := e.columns[fold(name)]
	return c, ok
}

// Relation returns the relation with the given name.
func (e *Entity) Relation(name string) (*Relation, bool) {
	r, ok := e.relations[name]
	return r, ok
}

// ColumnNames returns the column names in declaration order.
func (e *Entity) ColumnNames() []string {
	names := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		names[i] = c.Name
	}
	return names
}

// KeyNames returns the primary-key column names in key order.
func (e *Entity) KeyNames() []string {
	names := make([]string, len(e.Keys))
	for i, c := range e.Keys {
		names[i] = c.Name
	}
	return names
}

// New returns a pointer to a new zero instance of the entity.
func (e *Entity) New() reflect.Value {
	return reflect.New(e.Type)
}

// Indirect returns the addressable struct value behind v, which must be a
// non-nil pointer to the entity type or a reflect.Value of one.
func (e *Entity) Indirect(v any) (reflect.Value, error) {
	rv, ok := v.(reflect.Value)
	if !ok {
		rv = reflect.ValueOf(v)
	}
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Type() != e.Type {
		return reflect.Value{}, fmt.Errorf("loom: expect non-nil *%s, got %s", e.Type, typeString(rv))
	}
	return rv.Elem(), nil
}

// Key returns the primary-key values of obj in key order. It fails with a
// MissingIdentityError if any key field is NULL or holds its zero value.
func (e *Entity) Key(obj reflect.Value) ([]any, error) {
	values := make([]any, len(e.Keys))
	for i, c := range e.Keys {
		if c.IsZero(obj) {
			return nil, loom.NewMissingIdentityError(e.Table, c.Name)
		}
		values[i] = c.Get(obj)
	}
	return values, nil
}

// KeyString returns a hashable representation of a primary-key tuple, used
// to deduplicate instances of this entity. Values are normalized so that
// driver-specific representations of the same key collide.
func (e *Entity) KeyString(values []any) string {
	var b strings.Builder
	b.WriteString(e.Table)
	for _, v := range values {
		b.WriteByte(0x1f)
		switch v := v.(type) {
		case []byte:
			b.Write(v)
		default:
			rv := reflect.ValueOf(v)
			for rv.Kind() == reflect.Pointer && !rv.IsNil() {
				rv = rv.Elem()
			}
			switch rv.Kind() {
			case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
				fmt.Fprint(&b, rv.Int())
			case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
				fmt.Fprint(&b, rv.Uint())
			case reflect.Invalid:
			default:
				fmt.Fprint(&b, rv.Interface())
			}
		}
	}
	return b.String()
}

func typeString(rv reflect.Value) string {
	if !rv.IsValid() {
		return "<nil>"
	}
	return rv.Type().String()
}

package schema

import (
	"fmt"
	"reflect"

	"github.com/syssam/loom"
)

// Registry holds the metadata of every mapped entity. It is immutable once
// built and safe for concurrent use without locking.
type Registry struct {
	entities []*Entity
	byType   map[reflect.Type]*Entity
	byTable  map[string]*Entity
}

// Entity returns the metadata of the struct type t.
func (r *Registry) Entity(t reflect.Type) (*Entity, error) {
	if e, ok := r.byType[t]; ok {
		return e, nil
	}
	return nil, loom.NewEntityRequiredError(t)
}

// EntityOf returns the metadata of the entity type of v. v may be a value,
// a pointer, a slice of either, or a reflect.Type.
func (r *Registry) EntityOf(v any) (*Entity, error) {
	var t reflect.Type
	switch v := v.(type) {
	case nil:
		return nil, loom.NewEntityRequiredError(nil)
	case reflect.Type:
		t = v
	case reflect.Value:
		t = v.Type()
	default:
		t = reflect.TypeOf(v)
	}
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	return r.Entity(t)
}

// EntityByTable returns the entity mapped to the given table name.
func (r *Registry) EntityByTable(name string) (*Entity, bool) {
	e, ok := r.byTable[fold(name)]
	return e, ok
}

// Entities returns all entities in registration order.
func (r *Registry) Entities() []*Entity {
	return append([]*Entity(nil), r.entities...)
}

// Option configures the mapping of one entity type.
type Option func(*entityConfig)

type entityConfig struct {
	table string
}

// Table overrides the table name of the entity.
func Table(name string) Option {
	return func(c *entityConfig) {
		c.table = name
	}
}

// Builder collects entity types and builds an immutable Registry.
//
//	reg, err := schema.NewBuilder().
//	    Add(Department{}).
//	    Add(Employee{}).
//	    Add(TypeTest{}, schema.Table("enum_time_test")).
//	    Build()
type Builder struct {
	entries []builderEntry
	errs    []error
}

type builderEntry struct {
	typ reflect.Type
	cfg entityConfig
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add registers the struct type of v (a value or a pointer).
func (b *Builder) Add(v any, opts ...Option) *Builder {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct || t.Name() == "" {
		b.errs = append(b.errs, loom.NewEntityRequiredError(t))
		return b
	}
	var cfg entityConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	b.entries = append(b.entries, builderEntry{typ: t, cfg: cfg})
	return b
}

// Build inspects every added type, resolves relation defaults and validates
// the result. A failed validation is returned as a *ValidationResult.
func (b *Builder) Build() (*Registry, error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}
	var (
		result = &ValidationResult{}
		reg    = &Registry{
			byType:  make(map[reflect.Type]*Entity, len(b.entries)),
			byTable: make(map[string]*Entity, len(b.entries)),
		}
	)
	for _, entry := range b.entries {
		if _, ok := reg.byType[entry.typ]; ok {
			return nil, fmt.Errorf("loom: %s registered twice", entry.typ)
		}
		e := inspect(entry.typ, entry.cfg, result)
		reg.entities = append(reg.entities, e)
		reg.byType[e.Type] = e
		reg.byTable[fold(e.Table)] = e
	}
	for _, e := range reg.entities {
		for _, r := range e.Relations {
			r.target = reg.byType[r.typ]
			if r.target != nil {
				resolveDefaults(r)
			}
		}
	}
	v := Validate(reg.entities)
	result.Errors = append(result.Errors, v.Errors...)
	result.Warnings = append(result.Warnings, v.Warnings...)
	if result.HasErrors() {
		return nil, result
	}
	return reg, nil
}

// Register builds a registry from the given entity values.
func Register(vs ...any) (*Registry, error) {
	b := NewBuilder()
	for _, v := range vs {
		b.Add(v)
	}
	return b.Build()
}

// MustRegister is like Register but panics on error.
func MustRegister(vs ...any) *Registry {
	reg, err := Register(vs...)
	if err != nil {
		panic(err)
	}
	return reg
}

// Projection maps a plain struct type that is not registered as an entity,
// such as the row type of an aggregate query. The result has columns only;
// relation fields are ignored and no key is required.
func Projection(t reflect.Type) (*Entity, error) {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, loom.NewEntityRequiredError(t)
	}
	result := &ValidationResult{}
	e := inspect(t, entityConfig{table: t.Name()}, result)
	e.Relations, e.relations = nil, nil
	if result.HasErrors() {
		return nil, result
	}
	return e, nil
}

// inspect reads the struct fields of t into an Entity with unresolved
// relation targets.
func inspect(t reflect.Type, cfg entityConfig, result *ValidationResult) *Entity {
	e := &Entity{
		Name:      t.Name(),
		Table:     cfg.table,
		Type:      t,
		columns:   make(map[string]*Column),
		relations: make(map[string]*Relation),
	}
	if e.Table == "" {
		e.Table = tableOf(t)
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Anonymous {
			continue
		}
		tg, err := parseTag(f.Tag.Get(TagName))
		if err != nil {
			result.errorf(e.Table, f.Name, "invalid tag: %v", err)
			continue
		}
		switch {
		case tg.skip:
		case tg.rel != Unk:
			if r := newRelation(e, f, tg, result); r != nil {
				e.Relations = append(e.Relations, r)
				e.relations[r.Name] = r
			}
		default:
			if c := newColumn(e, f, tg, result); c != nil {
				e.Columns = append(e.Columns, c)
				e.columns[fold(c.Name)] = c
				if c.Key {
					e.Keys = append(e.Keys, c)
				}
			}
		}
	}
	return e
}

func newColumn(e *Entity, f reflect.StructField, tg tag, result *ValidationResult) *Column {
	set, err := NewSetter(f.Type)
	if err != nil {
		result.errorf(e.Table, f.Name, "%v; tag it as a relation or with %q", err, "-")
		return nil
	}
	c := &Column{
		Name:      tg.name,
		Field:     f.Name,
		Type:      f.Type,
		Key:       tg.key,
		Generated: tg.generated,
		Temporal:  tg.temporal,
		index:     f.Index,
		set:       set,
	}
	if c.Name == "" {
		c.Name = snake(f.Name)
	}
	if base := indirectType(f.Type); tg.temporal != DateTime && base != timeType {
		result.errorf(e.Table, f.Name, "temporal option %s on non-time field", tg.temporal)
	}
	return c
}

func newRelation(e *Entity, f reflect.StructField, tg tag, result *ValidationResult) *Relation {
	r := &Relation{
		Name:          tg.name,
		Rel:           tg.rel,
		Inverse:       tg.inverse,
		Columns:       tg.fk,
		Table:         tg.join,
		SourceColumns: tg.source,
		owner:         e,
		field:         f.Name,
		index:         f.Index,
	}
	if r.Name == "" {
		r.Name = snake(f.Name)
	}
	if tg.rel == M2M {
		r.Columns = tg.target
	}
	t := f.Type
	if r.Many() {
		if t.Kind() != reflect.Slice {
			result.errorf(e.Table, f.Name, "%s relation field must be a slice of struct pointers, got %s", r.Rel, t)
			return nil
		}
		t = t.Elem()
	}
	if t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		result.errorf(e.Table, f.Name, "%s relation field must reference a struct pointer, got %s", r.Rel, f.Type)
		return nil
	}
	r.typ = t.Elem()
	return r
}

// resolveDefaults fills unspecified foreign-key columns with the names of
// the key they reference.
func resolveDefaults(r *Relation) {
	if r.Rel == M2M {
		if r.Table == "" {
			r.Table = defaultJoinTable(r.owner.Table, r.target.Table)
		}
		if len(r.SourceColumns) == 0 {
			r.SourceColumns = r.owner.KeyNames()
		}
	}
	if len(r.Columns) == 0 {
		r.Columns = r.ReferencedKeys()
	}
}

func indirectType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

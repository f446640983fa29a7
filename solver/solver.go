package solver

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/syssam/loom"
	"github.com/syssam/loom/dialect"
	"github.com/syssam/loom/query"
	"github.com/syssam/loom/schema"
)

// ErrNothingToUpdate is returned by Update when no column is left to set.
var ErrNothingToUpdate = errors.New("loom: nothing to update")

// Statement is a rendered write statement and its parameters, in
// placeholder order.
type Statement struct {
	Query string
	Args  []query.Literal
	// Returning holds the key columns fetched back by an insert, if any.
	Returning []string
}

// Solver computes the write statements that persist entity values.
type Solver struct {
	reg     *schema.Registry
	dialect dialect.Dialect
}

// New returns a Solver rendering statements for d.
func New(reg *schema.Registry, d dialect.Dialect) *Solver {
	return &Solver{reg: reg, dialect: d}
}

// Dialect returns the dialect statements are rendered for.
func (s *Solver) Dialect() dialect.Dialect { return s.dialect }

// Insert returns the insert of obj. Generated columns are left to the
// database; their values are fetched back through Returning when the dialect
// supports it. Foreign keys held by obj (many-to-one and owning one-to-one
// relations) are taken from the keys of the linked objects.
func (s *Solver) Insert(obj any) (*Statement, error) {
	e, rv, err := s.entity(obj)
	if err != nil {
		return nil, err
	}
	var (
		columns   []string
		args      []query.Literal
		generated bool
	)
	for _, c := range e.Columns {
		if c.Generated {
			generated = generated || c.Key
			continue
		}
		l, err := columnValue(c, rv)
		if err != nil {
			return nil, err
		}
		columns = append(columns, c.Name)
		args = append(args, l)
	}
	for _, rel := range e.Relations {
		if !rel.OwnFK() {
			continue
		}
		linked := rel.Linked(rv)
		if len(linked) == 0 {
			continue
		}
		keys, err := keyValues(rel.Target(), linked[0].Elem())
		if err != nil {
			return nil, err
		}
		columns = append(columns, rel.Columns...)
		args = append(args, keys...)
	}
	var returning []string
	if generated && s.dialect.ReturnsKeys() {
		returning = e.KeyNames()
	}
	return &Statement{
		Query:     s.dialect.Insert(e.Table, columns, returning),
		Args:      args,
		Returning: returning,
	}, nil
}

// ManyToManyInserts returns one join-table insert per object linked to obj
// through its many-to-many relations. The key of obj must be known, so they
// run after the insert of obj has produced its generated key.
func (s *Solver) ManyToManyInserts(obj any) ([]*Statement, error) {
	e, rv, err := s.entity(obj)
	if err != nil {
		return nil, err
	}
	var stmts []*Statement
	for _, rel := range e.Relations {
		if rel.Rel != schema.M2M {
			continue
		}
		for _, linked := range rel.Linked(rv) {
			stmt, err := s.link(rel, rv, linked.Elem())
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, stmt)
		}
	}
	return stmts, nil
}

// UpdateOption configures an update statement.
type UpdateOption func(*updateConfig)

type updateConfig struct {
	ignoreNull bool
}

// IgnoreNull leaves the columns whose field is NULL untouched instead of
// setting them to NULL.
func IgnoreNull() UpdateOption {
	return func(c *updateConfig) {
		c.ignoreNull = true
	}
}

// Update returns the update of the row of obj. Key columns select the row;
// every other column is set. Relations are not written; use Connect and
// Disconnect to change them.
func (s *Solver) Update(obj any, opts ...UpdateOption) (*Statement, error) {
	var cfg updateConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	e, rv, err := s.entity(obj)
	if err != nil {
		return nil, err
	}
	keys, err := keyValues(e, rv)
	if err != nil {
		return nil, err
	}
	var (
		set  []string
		args []query.Literal
	)
	for _, c := range e.Columns {
		if c.Key || cfg.ignoreNull && c.IsNull(rv) {
			continue
		}
		l, err := columnValue(c, rv)
		if err != nil {
			return nil, err
		}
		set = append(set, c.Name)
		args = append(args, l)
	}
	if len(set) == 0 {
		return nil, ErrNothingToUpdate
	}
	return &Statement{
		Query: s.dialect.Update(e.Table, set, e.KeyNames()),
		Args:  append(args, keys...),
	}, nil
}

// Delete returns the delete of the row of obj.
func (s *Solver) Delete(obj any) (*Statement, error) {
	e, rv, err := s.entity(obj)
	if err != nil {
		return nil, err
	}
	keys, err := keyValues(e, rv)
	if err != nil {
		return nil, err
	}
	return &Statement{
		Query: s.dialect.Delete(e.Table, e.KeyNames()),
		Args:  keys,
	}, nil
}

// Connect returns the statement that links a to b through the relation
// named rel of a. The side that is written depends on the relation:
//
//	M2O, O2O          the foreign key of a is set to the key of b
//	O2M, inverse O2O  the foreign key of b is set to the key of a
//	M2M               a join-table row holding both keys is inserted
//
// Both objects must have a key.
func (s *Solver) Connect(a, b any, rel string) (*Statement, error) {
	r, av, err := s.relation(a, rel)
	if err != nil {
		return nil, err
	}
	bv, err := s.target(r, b)
	if err != nil {
		return nil, err
	}
	switch {
	case r.Rel == schema.M2M:
		return s.link(r, av, bv)
	case r.OwnFK():
		return s.setForeignKey(r, r.Owner(), av, r.Target(), bv)
	default:
		return s.setForeignKey(r, r.Target(), bv, r.Owner(), av)
	}
}

// Disconnect returns the statement that unlinks a from b through the
// relation named rel of a. Foreign keys are set to NULL and join-table rows
// are deleted. b may be nil only when the foreign key is held by a.
func (s *Solver) Disconnect(a, b any, rel string) (*Statement, error) {
	r, av, err := s.relation(a, rel)
	if err != nil {
		return nil, err
	}
	if r.OwnFK() {
		return s.setForeignKey(r, r.Owner(), av, nil, reflect.Value{})
	}
	bv, err := s.target(r, b)
	if err != nil {
		return nil, err
	}
	if r.Rel != schema.M2M {
		return s.setForeignKey(r, r.Target(), bv, nil, reflect.Value{})
	}
	args, err := joinKeys(r, av, bv)
	if err != nil {
		return nil, err
	}
	return &Statement{
		Query: s.dialect.Delete(r.Table, append(append([]string(nil), r.SourceColumns...), r.Columns...)),
		Args:  args,
	}, nil
}

// setForeignKey updates the foreign-key columns of rel in the row of obj to
// the key of ref, or to NULL if ref is nil.
func (s *Solver) setForeignKey(rel *schema.Relation, e *schema.Entity, obj reflect.Value, ref *schema.Entity, rv reflect.Value) (*Statement, error) {
	where, err := keyValues(e, obj)
	if err != nil {
		return nil, err
	}
	args := make([]query.Literal, 0, len(rel.Columns)+len(where))
	if ref == nil {
		for range rel.Columns {
			args = append(args, query.Null())
		}
	} else {
		keys, err := keyValues(ref, rv)
		if err != nil {
			return nil, err
		}
		args = append(args, keys...)
	}
	return &Statement{
		Query: s.dialect.Update(e.Table, rel.Columns, e.KeyNames()),
		Args:  append(args, where...),
	}, nil
}

// link returns the insert of the join-table row of a many-to-many relation.
func (s *Solver) link(rel *schema.Relation, owner, target reflect.Value) (*Statement, error) {
	args, err := joinKeys(rel, owner, target)
	if err != nil {
		return nil, err
	}
	columns := append(append([]string(nil), rel.SourceColumns...), rel.Columns...)
	return &Statement{
		Query: s.dialect.Insert(rel.Table, columns, nil),
		Args:  args,
	}, nil
}

func joinKeys(rel *schema.Relation, owner, target reflect.Value) ([]query.Literal, error) {
	ok, err := keyValues(rel.Owner(), owner)
	if err != nil {
		return nil, err
	}
	tk, err := keyValues(rel.Target(), target)
	if err != nil {
		return nil, err
	}
	return append(ok, tk...), nil
}

// entity returns the entity of obj and the struct value behind it.
func (s *Solver) entity(obj any) (*schema.Entity, reflect.Value, error) {
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, reflect.Value{}, loom.NewEntityRequiredError(rv.Type())
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil, reflect.Value{}, loom.NewEntityRequiredError(nil)
	}
	e, err := s.reg.Entity(rv.Type())
	if err != nil {
		return nil, reflect.Value{}, err
	}
	return e, rv, nil
}

func (s *Solver) relation(obj any, name string) (*schema.Relation, reflect.Value, error) {
	e, rv, err := s.entity(obj)
	if err != nil {
		return nil, reflect.Value{}, err
	}
	r, ok := e.Relation(name)
	if !ok {
		return nil, reflect.Value{}, loom.NewRelationNotFoundError(e.Table, name)
	}
	return r, rv, nil
}

// target returns the struct value of obj, which must be an instance of the
// target entity of rel.
func (s *Solver) target(rel *schema.Relation, obj any) (reflect.Value, error) {
	e, rv, err := s.entity(obj)
	if err != nil {
		return reflect.Value{}, err
	}
	if e != rel.Target() {
		return reflect.Value{}, fmt.Errorf("loom: relation %q of %s links %s, got %s",
			rel.Name, rel.Owner().Name, rel.Target().Name, e.Name)
	}
	return rv, nil
}

// keyValues returns the key of obj as literals. It fails with a
// MissingIdentityError if the key is not set.
func keyValues(e *schema.Entity, obj reflect.Value) ([]query.Literal, error) {
	if _, err := e.Key(obj); err != nil {
		return nil, err
	}
	args := make([]query.Literal, len(e.Keys))
	for i, c := range e.Keys {
		l, err := columnValue(c, obj)
		if err != nil {
			return nil, err
		}
		args[i] = l
	}
	return args, nil
}

// columnValue returns the field of c in obj as a literal, typed by the
// temporal kind of the column.
func columnValue(c *schema.Column, obj reflect.Value) (query.Literal, error) {
	l, err := query.LiteralOf(c.Get(obj))
	if err != nil {
		return query.Literal{}, fmt.Errorf("loom: column %q: %w", c.Name, err)
	}
	if l.Kind() == query.KindDateTime {
		switch c.Temporal {
		case schema.Date:
			return query.Date(l.TimeValue()), nil
		case schema.Time:
			return query.Time(l.TimeValue()), nil
		}
	}
	return l, nil
}

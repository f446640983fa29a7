package mapper

import (
	"reflect"
	"strings"
	"sync"

	"github.com/syssam/loom"
	"github.com/syssam/loom/query"
	"github.com/syssam/loom/schema"

	"go.uber.org/zap"
)

// Rows is the result cursor read by the mapper. *sql.Rows and the Rows of
// package dialect/sql implement it.
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// Mapper converts result rows to entity values. A Mapper is safe for
// concurrent use; the state of one mapping call is never shared.
type Mapper struct {
	reg  *schema.Registry
	log  *zap.Logger
	flat sync.Map // reflect.Type => *schema.Entity, for unregistered row types
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithLogger sets the logger that reports skipped columns.
func WithLogger(l *zap.Logger) Option {
	return func(m *Mapper) {
		if l != nil {
			m.log = l
		}
	}
}

// New returns a Mapper over the entities of reg.
func New(reg *schema.Registry, opts ...Option) *Mapper {
	m := &Mapper{reg: reg, log: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Registry returns the registry of the mapper.
func (m *Mapper) Registry() *schema.Registry { return m.reg }

// Map reads every row and reassembles the object graph of the entity T: the
// columns of each joined path populate one instance per distinct key, and
// instances are linked through the relations named by the path. The roots
// are returned in the order of their first row.
func Map[T any](m *Mapper, rows Rows) ([]*T, error) {
	if m.reg == nil {
		return nil, loom.NewEntityRequiredError(reflect.TypeFor[T]())
	}
	e, err := m.reg.Entity(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	p, err := m.compile(e, columns)
	if err != nil {
		return nil, err
	}
	var (
		out   []*T
		roots = make(map[*T]struct{})
		g     = newGraph()
		scan  = newScanRow(len(columns))
	)
	for rows.Next() {
		if err := rows.Scan(scan.ptrs...); err != nil {
			return nil, err
		}
		root, err := g.add(p, scan.values)
		if err != nil {
			return nil, err
		}
		if !root.IsValid() {
			continue
		}
		obj := root.Interface().(*T)
		if _, ok := roots[obj]; !ok {
			roots[obj] = struct{}{}
			out = append(out, obj)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// List maps every row to a new T, matching each column by the last segment
// of its name. T may be a registered entity or a plain struct. Relations are
// not populated.
func List[T any](m *Mapper, rows Rows) ([]*T, error) {
	var out []*T
	err := m.each(reflect.TypeFor[T](), rows, func(v reflect.Value) bool {
		out = append(out, v.Interface().(*T))
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// One maps the first row to a T like List. It returns a NotFoundError if
// there are no rows.
func One[T any](m *Mapper, rows Rows) (*T, error) {
	var (
		t   = reflect.TypeFor[T]()
		out *T
	)
	err := m.each(t, rows, func(v reflect.Value) bool {
		out = v.Interface().(*T)
		return false
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, loom.NewNotFoundError(m.label(t))
	}
	return out, nil
}

// Only maps the single row of the result to a T like List. It returns a
// NotFoundError if there are no rows and a NotSingularError if there is more
// than one.
func Only[T any](m *Mapper, rows Rows) (*T, error) {
	var (
		t   = reflect.TypeFor[T]()
		out *T
		n   int
	)
	err := m.each(t, rows, func(v reflect.Value) bool {
		if n == 0 {
			out = v.Interface().(*T)
		}
		n++
		return true
	})
	if err != nil {
		return nil, err
	}
	switch n {
	case 0:
		return nil, loom.NewNotFoundError(m.label(t))
	case 1:
		return out, nil
	default:
		return nil, loom.NewNotSingularError(m.label(t), n)
	}
}

// Fill assigns the columns of the first row to the existing object v, a
// pointer to a registered entity or a plain struct. It reports whether a
// row was read.
func (m *Mapper) Fill(rows Rows, v any) (bool, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return false, loom.NewEntityRequiredError(reflect.TypeOf(v))
	}
	e, err := m.rowType(rv.Type().Elem())
	if err != nil {
		return false, err
	}
	columns, err := rows.Columns()
	if err != nil {
		return false, err
	}
	var (
		slots = m.columns(e, columns)
		scan  = newScanRow(len(columns))
	)
	if !rows.Next() {
		return false, rows.Err()
	}
	if err := rows.Scan(scan.ptrs...); err != nil {
		return false, err
	}
	for _, s := range slots {
		if err := s.col.Set(rv.Elem(), scan.values[s.idx]); err != nil {
			return false, err
		}
	}
	return true, nil
}

// each maps rows to new values of t until fn returns false.
func (m *Mapper) each(t reflect.Type, rows Rows, fn func(reflect.Value) bool) error {
	e, err := m.rowType(t)
	if err != nil {
		return err
	}
	columns, err := rows.Columns()
	if err != nil {
		return err
	}
	var (
		slots = m.columns(e, columns)
		scan  = newScanRow(len(columns))
	)
	for rows.Next() {
		if err := rows.Scan(scan.ptrs...); err != nil {
			return err
		}
		v := e.New()
		for _, s := range slots {
			if err := s.col.Set(v.Elem(), scan.values[s.idx]); err != nil {
				return err
			}
		}
		if !fn(v) {
			return nil
		}
	}
	return rows.Err()
}

// rowType returns the entity of t, or its column-only projection when t is
// not registered.
func (m *Mapper) rowType(t reflect.Type) (*schema.Entity, error) {
	if m.reg != nil {
		if e, err := m.reg.Entity(t); err == nil {
			return e, nil
		}
	}
	if e, ok := m.flat.Load(t); ok {
		return e.(*schema.Entity), nil
	}
	e, err := schema.Projection(t)
	if err != nil {
		return nil, err
	}
	actual, _ := m.flat.LoadOrStore(t, e)
	return actual.(*schema.Entity), nil
}

// columns matches result columns to the columns of e by their last name
// segment. A field is assigned from the first column that matches it.
func (m *Mapper) columns(e *schema.Entity, columns []string) []slot {
	var (
		slots   = make([]slot, 0, len(columns))
		claimed = make(map[*schema.Column]bool, len(columns))
	)
	for i, alias := range columns {
		path, name := splitAlias(alias)
		c, ok := e.Column(name)
		if !ok || claimed[c] {
			m.skip(alias, path, e)
			continue
		}
		claimed[c] = true
		slots = append(slots, slot{idx: i, col: c})
	}
	return slots
}

func (m *Mapper) skip(alias, path string, e *schema.Entity) {
	m.log.Warn("skipping unmapped column",
		zap.String("alias", alias),
		zap.String("path", path),
		zap.String("entity", e.Name),
	)
}

func (m *Mapper) label(t reflect.Type) string {
	if e, err := m.rowType(t); err == nil {
		return e.Table
	}
	return t.String()
}

// splitAlias splits a compound column alias into its relation path and
// column name. The root alias and a bare name both denote the root path "".
func splitAlias(alias string) (path, name string) {
	i := strings.LastIndexByte(alias, '.')
	if i < 0 {
		return "", alias
	}
	path, name = alias[:i], alias[i+1:]
	if path == query.RootAlias {
		path = ""
	}
	return path, name
}

// scanRow holds the destinations of one row scan.
type scanRow struct {
	values []any
	ptrs   []any
}

func newScanRow(n int) *scanRow {
	s := &scanRow{values: make([]any, n), ptrs: make([]any, n)}
	for i := range s.values {
		s.ptrs[i] = &s.values[i]
	}
	return s
}

package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/loom"
	"github.com/syssam/loom/schema"
)

// JoinKind is the kind of a join clause.
type JoinKind string

// Join kinds.
const (
	Inner JoinKind = "INNER"
	Left  JoinKind = "LEFT"
	Right JoinKind = "RIGHT"
	Full  JoinKind = "FULL"
)

// Join is one physical join of a select: Alias.Columns are matched with
// RefAlias.RefColumns pairwise.
type Join struct {
	Kind       JoinKind
	Table      string
	Alias      string
	Columns    []string
	RefAlias   string
	RefColumns []string
}

// SelectSpec is a built select statement, ready to be rendered.
type SelectSpec struct {
	Table    string
	Alias    string
	Distinct bool
	Columns  []Expr
	Joins    []*Join
	Where    Expr
	Having   Expr
	GroupBy  []Expr
	OrderBy  []Order
	Limit    *int
	Offset   *int
	// Sub marks a nested select. It renders parenthesized and unterminated.
	Sub bool
}

// Builder assembles a select rooted at one entity. Joins are declared by
// relation paths and resolved against the registry.
//
//	b := query.Select(reg, Department{}).
//	    Join("employees", query.Left).
//	    Where(query.F("department_name").EQ("Administration"))
//	stmt, err := b.Build(dialect.Postgres)
//
// A Builder is not safe for concurrent modification. Once built, Build and
// SQL may be called concurrently.
type Builder struct {
	entity   *schema.Entity
	alias    string
	fixed    bool
	sub      bool
	columns  []Expr
	joins    []*Join
	paths    map[string]*schema.Entity
	jtables  map[string]bool
	distinct bool
	where    Expr
	having   Expr
	groupBy  []Expr
	orderBy  []Order
	limit    *int
	offset   *int
	err      error
}

// Select returns a builder projecting every column of the entity of v and of
// every entity joined later.
func Select(reg *schema.Registry, v any) *Builder {
	return newBuilder(reg, v, false)
}

// SelectColumns returns a builder with a fixed projection. Joins do not add
// columns to it.
func SelectColumns(reg *schema.Registry, v any, cols ...Expr) *Builder {
	b := newBuilder(reg, v, false)
	b.fixed = true
	b.Columns(cols...)
	return b
}

// SubSelect returns a nested select usable as an expression operand. Without
// columns it projects the entity columns like Select.
func SubSelect(reg *schema.Registry, v any, cols ...Expr) *Builder {
	b := newBuilder(reg, v, true)
	if len(cols) > 0 {
		b.fixed = true
		b.Columns(cols...)
	}
	return b
}

func newBuilder(reg *schema.Registry, v any, sub bool) *Builder {
	b := &Builder{
		alias:   RootAlias,
		sub:     sub,
		paths:   make(map[string]*schema.Entity),
		jtables: make(map[string]bool),
	}
	if reg == nil {
		b.err = loom.NewEntityRequiredError(nil)
		return b
	}
	e, err := reg.EntityOf(v)
	if err != nil {
		b.err = err
		return b
	}
	b.entity = e
	return b
}

// Entity returns the root entity, nil if the builder failed to resolve it.
func (b *Builder) Entity() *schema.Entity { return b.entity }

// Err returns the first error recorded while building.
func (b *Builder) Err() error { return b.err }

// As renames the root alias of a sub-select. Inside an aliased sub-select,
// F refers to the enclosing select's root, which allows correlation. The root
// alias of a top-level select is always RootAlias.
func (b *Builder) As(alias string) *Builder {
	if !b.sub {
		b.addErr(fmt.Errorf("loom: table alias %q on a top-level select", alias))
		return b
	}
	if alias == "" || strings.Contains(alias, ".") {
		b.addErr(fmt.Errorf("loom: invalid table alias %q", alias))
		return b
	}
	b.alias = alias
	return b
}

// Columns appends expressions to a fixed projection.
func (b *Builder) Columns(cols ...Expr) *Builder {
	for _, c := range cols {
		b.check(c)
	}
	b.columns = append(b.columns, cols...)
	return b
}

// Distinct sets the DISTINCT flag.
func (b *Builder) Distinct() *Builder {
	b.distinct = true
	return b
}

// Join joins the relation path with the given kind (INNER by default). Every
// missing prefix of the path is joined too, and joining a path twice is a
// no-op. The alias of a joined table is its path.
func (b *Builder) Join(path string, kind ...JoinKind) *Builder {
	if b.entity == nil {
		return b
	}
	k := Inner
	if len(kind) > 0 {
		k = kind[0]
	}
	var (
		owner = b.entity
		ref   string // "" stands for the root alias
		cur   string
	)
	for _, name := range strings.Split(path, ".") {
		rel, ok := owner.Relation(name)
		if !ok {
			b.addErr(loom.NewRelationNotFoundError(b.entity.Table, path))
			return b
		}
		if cur == "" {
			cur = name
		} else {
			cur += "." + name
		}
		if target, ok := b.paths[cur]; ok {
			owner, ref = target, cur
			continue
		}
		b.joinRelation(rel, k, ref, cur)
		b.paths[cur] = rel.Target()
		if !b.fixed {
			for _, c := range rel.Target().Columns {
				b.columns = append(b.columns, FieldOf(cur, c.Name))
			}
		}
		owner, ref = rel.Target(), cur
	}
	return b
}

func (b *Builder) joinRelation(rel *schema.Relation, k JoinKind, ref, alias string) {
	var (
		owner  = rel.Owner()
		target = rel.Target()
	)
	switch {
	case rel.Rel == schema.M2M:
		jt := b.joinTableAlias(rel.Table)
		b.joins = append(b.joins,
			&Join{Kind: k, Table: rel.Table, Alias: jt, Columns: rel.SourceColumns, RefAlias: ref, RefColumns: owner.KeyNames()},
			&Join{Kind: k, Table: target.Table, Alias: alias, Columns: target.KeyNames(), RefAlias: jt, RefColumns: rel.Columns},
		)
	case rel.OwnFK():
		b.joins = append(b.joins, &Join{Kind: k, Table: target.Table, Alias: alias, Columns: target.KeyNames(), RefAlias: ref, RefColumns: rel.Columns})
	default:
		b.joins = append(b.joins, &Join{Kind: k, Table: target.Table, Alias: alias, Columns: rel.Columns, RefAlias: ref, RefColumns: owner.KeyNames()})
	}
}

// joinTableAlias registers an alias for a join table. The first use of a
// table is aliased by its name, later uses get a numeric suffix.
func (b *Builder) joinTableAlias(table string) string {
	alias := table
	for i := 2; b.jtables[alias]; i++ {
		alias = table + "_" + strconv.Itoa(i)
	}
	b.jtables[alias] = true
	return alias
}

// Where adds a predicate. Multiple predicates are joined with AND.
func (b *Builder) Where(p Expr) *Builder {
	b.check(p)
	b.where = And(b.where, p)
	return b
}

// Having adds a HAVING predicate. Multiple predicates are joined with AND.
func (b *Builder) Having(p Expr) *Builder {
	b.check(p)
	b.having = And(b.having, p)
	return b
}

// GroupBy appends GROUP BY expressions.
func (b *Builder) GroupBy(es ...Expr) *Builder {
	for _, e := range es {
		b.check(e)
	}
	b.groupBy = append(b.groupBy, es...)
	return b
}

// OrderBy appends ORDER BY terms.
func (b *Builder) OrderBy(terms ...Order) *Builder {
	for _, t := range terms {
		b.check(t.Expr)
	}
	b.orderBy = append(b.orderBy, terms...)
	return b
}

// Limit limits the number of returned rows.
func (b *Builder) Limit(n int) *Builder {
	if n < 0 {
		b.addErr(fmt.Errorf("loom: negative limit %d", n))
		return b
	}
	b.limit = &n
	return b
}

// Offset skips the first n rows.
func (b *Builder) Offset(n int) *Builder {
	if n < 0 {
		b.addErr(fmt.Errorf("loom: negative offset %d", n))
		return b
	}
	b.offset = &n
	return b
}

// Spec returns the select specification. The returned value shares no
// mutable state with the builder.
func (b *Builder) Spec() (*SelectSpec, error) {
	if b.err != nil {
		return nil, b.err
	}
	spec := &SelectSpec{
		Table:    b.entity.Table,
		Alias:    b.alias,
		Distinct: b.distinct,
		Where:    b.where,
		Having:   b.having,
		GroupBy:  append([]Expr(nil), b.groupBy...),
		OrderBy:  append([]Order(nil), b.orderBy...),
		Limit:    b.limit,
		Offset:   b.offset,
		Sub:      b.sub,
	}
	if !b.fixed {
		for _, c := range b.entity.Columns {
			spec.Columns = append(spec.Columns, FieldOf(b.alias, c.Name))
		}
	}
	spec.Columns = append(spec.Columns, b.columns...)
	if len(spec.Columns) == 0 {
		return nil, fmt.Errorf("loom: select from %s has no columns", b.entity.Table)
	}
	for _, j := range b.joins {
		j := *j
		if j.RefAlias == "" {
			j.RefAlias = b.alias
		}
		spec.Joins = append(spec.Joins, &j)
	}
	return spec, nil
}

// Build renders the statement with the given renderer.
func (b *Builder) Build(r Renderer) (string, error) {
	spec, err := b.Spec()
	if err != nil {
		return "", err
	}
	return r.Select(spec), nil
}

// SQL implements Expr for sub-selects.
func (b *Builder) SQL(r Renderer) string {
	spec, err := b.Spec()
	if err != nil {
		return ""
	}
	spec.Sub = true
	return r.Select(spec)
}

func (b *Builder) exprErr() error { return b.err }

func (b *Builder) check(e Expr) {
	if e == nil {
		b.addErr(fmt.Errorf("loom: nil expression"))
		return
	}
	if err := e.exprErr(); err != nil {
		b.addErr(err)
	}
}

func (b *Builder) addErr(err error) {
	if b.err == nil {
		b.err = err
	}
}

package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/loom/query"
)

// Layouts of temporal literals.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05.999999999"
	TimeLayout     = "15:04:05.999999999"
)

// vendor holds the rendering steps a vendor dialect may override.
type vendor interface {
	Dialect
	quoteString(s string) string
	temporal(l query.Literal) string
	boolean(v bool) string
	paginate(b *strings.Builder, spec *query.SelectSpec)
	insertKeys(returning []string) (before, after string)
	emptyValues() string
}

// ANSIDialect renders standard SQL. Vendor dialects embed it and override
// the steps that differ.
type ANSIDialect struct {
	self vendor
}

// NewANSI returns the standard SQL dialect.
func NewANSI() *ANSIDialect {
	d := &ANSIDialect{}
	d.self = d
	return d
}

// Name implements Dialect.
func (*ANSIDialect) Name() string { return ANSI }

// Quote implements Dialect.
func (*ANSIDialect) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// Placeholder implements Dialect.
func (*ANSIDialect) Placeholder(int) string { return "?" }

// ReturnsKeys implements Dialect.
func (*ANSIDialect) ReturnsKeys() bool { return false }

// Arg implements Dialect.
func (*ANSIDialect) Arg(l query.Literal) any {
	switch l.Kind() {
	case query.KindNull:
		return nil
	case query.KindInt:
		return l.IntValue()
	case query.KindDouble:
		return l.DoubleValue()
	case query.KindString:
		return l.StringValue()
	case query.KindBool:
		return l.BoolValue()
	case query.KindDate, query.KindDateTime:
		return l.TimeValue()
	case query.KindTime:
		return l.TimeValue().Format(TimeLayout)
	default:
		panic(fmt.Sprintf("dialect: unexpected literal kind %s", l.Kind()))
	}
}

// Field implements query.Renderer.
func (d *ANSIDialect) Field(f *query.Field) string {
	return d.self.Quote(f.Alias) + "." + d.self.Quote(f.Column)
}

// Literal implements query.Renderer.
func (d *ANSIDialect) Literal(l query.Literal) string {
	switch l.Kind() {
	case query.KindNull:
		return "NULL"
	case query.KindInt:
		return strconv.FormatInt(l.IntValue(), 10)
	case query.KindDouble:
		return strconv.FormatFloat(l.DoubleValue(), 'g', -1, 64)
	case query.KindString:
		return d.self.quoteString(l.StringValue())
	case query.KindBool:
		return d.self.boolean(l.BoolValue())
	case query.KindDate, query.KindDateTime, query.KindTime:
		return d.self.temporal(l)
	default:
		panic(fmt.Sprintf("dialect: unexpected literal kind %s", l.Kind()))
	}
}

// Binary implements query.Renderer.
func (d *ANSIDialect) Binary(op *query.BinaryOp) string {
	left := "(" + op.Left.SQL(d.self) + ")"
	if op.Op == query.OpIn {
		return left + " IN " + op.Right.SQL(d.self)
	}
	return left + " " + string(op.Op) + " (" + op.Right.SQL(d.self) + ")"
}

// Unary implements query.Renderer.
func (d *ANSIDialect) Unary(op *query.UnaryOp) string {
	if op.Op == query.OpIsNull {
		return "(" + op.Operand.SQL(d.self) + ") IS NULL"
	}
	return string(op.Op) + " (" + op.Operand.SQL(d.self) + ")"
}

// Func implements query.Renderer.
func (d *ANSIDialect) Func(f *query.Func) string {
	if f.Operand == nil {
		return string(f.Agg) + "(*)"
	}
	var distinct string
	if f.Distinct {
		distinct = "DISTINCT "
	}
	return string(f.Agg) + "(" + distinct + f.Operand.SQL(d.self) + ")"
}

// Tuple implements query.Renderer. An empty tuple renders as (NULL), which
// matches nothing.
func (d *ANSIDialect) Tuple(t *query.TupleNode) string {
	if len(t.Items) == 0 {
		return "(NULL)"
	}
	items := make([]string, len(t.Items))
	for i, e := range t.Items {
		items[i] = e.SQL(d.self)
	}
	return "(" + strings.Join(items, ", ") + ")"
}

// Aliased implements query.Renderer.
func (d *ANSIDialect) Aliased(a *query.AliasedColumn) string {
	return a.Expr.SQL(d.self) + " AS " + d.self.Quote(a.Alias)
}

// Select implements query.Renderer. Projected fields are aliased with their
// compound path ("alias.column"), which is the contract of the row mapper.
func (d *ANSIDialect) Select(spec *query.SelectSpec) string {
	var b strings.Builder
	if spec.Sub {
		b.WriteByte('(')
	}
	b.WriteString("SELECT ")
	if spec.Distinct {
		b.WriteString("DISTINCT ")
	}
	for i, c := range spec.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.SQL(d.self))
		if f, ok := c.(*query.Field); ok {
			b.WriteString(" AS " + d.self.Quote(f.Path()))
		}
	}
	b.WriteString(" FROM " + d.self.Quote(spec.Table) + " " + d.self.Quote(spec.Alias))
	for _, j := range spec.Joins {
		b.WriteString(" " + string(j.Kind) + " JOIN " + d.self.Quote(j.Table) + " " + d.self.Quote(j.Alias) + " ON (")
		for i := range j.Columns {
			if i > 0 {
				b.WriteString(" AND ")
			}
			b.WriteString(d.Field(query.FieldOf(j.Alias, j.Columns[i])) + " = " + d.Field(query.FieldOf(j.RefAlias, j.RefColumns[i])))
		}
		b.WriteByte(')')
	}
	if spec.Where != nil {
		b.WriteString(" WHERE " + spec.Where.SQL(d.self))
	}
	if len(spec.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		for i, e := range spec.GroupBy {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(e.SQL(d.self))
		}
	}
	if spec.Having != nil {
		b.WriteString(" HAVING " + spec.Having.SQL(d.self))
	}
	if len(spec.OrderBy) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range spec.OrderBy {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(o.Expr.SQL(d.self))
			if o.Desc {
				b.WriteString(" DESC")
			} else {
				b.WriteString(" ASC")
			}
		}
	}
	d.self.paginate(&b, spec)
	if spec.Sub {
		b.WriteByte(')')
	} else {
		b.WriteByte(';')
	}
	return b.String()
}

// Insert implements Dialect.
func (d *ANSIDialect) Insert(table string, columns, returning []string) string {
	if !d.self.ReturnsKeys() {
		returning = nil
	}
	before, after := d.self.insertKeys(returning)
	var b strings.Builder
	b.WriteString("INSERT INTO " + d.self.Quote(table))
	if len(columns) == 0 {
		b.WriteString(before + d.self.emptyValues() + after + ";")
		return b.String()
	}
	b.WriteString(" (" + d.join(columns, ", ") + ")" + before + " VALUES (")
	for i := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.self.Placeholder(i + 1))
	}
	b.WriteString(")" + after + ";")
	return b.String()
}

// Update implements Dialect.
func (d *ANSIDialect) Update(table string, set, where []string) string {
	var b strings.Builder
	b.WriteString("UPDATE " + d.self.Quote(table) + " SET ")
	n := d.assign(&b, set, 1, ", ")
	d.where(&b, where, n)
	b.WriteByte(';')
	return b.String()
}

// Delete implements Dialect.
func (d *ANSIDialect) Delete(table string, where []string) string {
	var b strings.Builder
	b.WriteString("DELETE FROM " + d.self.Quote(table))
	d.where(&b, where, 1)
	b.WriteByte(';')
	return b.String()
}

func (d *ANSIDialect) where(b *strings.Builder, columns []string, n int) {
	if len(columns) > 0 {
		b.WriteString(" WHERE ")
		d.assign(b, columns, n, " AND ")
	}
}

// assign writes `col = placeholder` pairs numbered from n and returns the
// next placeholder number.
func (d *ANSIDialect) assign(b *strings.Builder, columns []string, n int, sep string) int {
	for i, c := range columns {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString(d.self.Quote(c) + " = " + d.self.Placeholder(n))
		n++
	}
	return n
}

func (d *ANSIDialect) join(idents []string, sep string) string {
	quoted := make([]string, len(idents))
	for i, s := range idents {
		quoted[i] = d.self.Quote(s)
	}
	return strings.Join(quoted, sep)
}

func (*ANSIDialect) quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (d *ANSIDialect) temporal(l query.Literal) string {
	t := l.TimeValue()
	switch l.Kind() {
	case query.KindDate:
		return "DATE " + d.self.quoteString(t.Format(DateLayout))
	case query.KindTime:
		return "TIME " + d.self.quoteString(t.Format(TimeLayout))
	default:
		return "TIMESTAMP " + d.self.quoteString(t.Format(DateTimeLayout))
	}
}

func (*ANSIDialect) boolean(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

// paginate writes the standard OFFSET / FETCH clause.
func (*ANSIDialect) paginate(b *strings.Builder, spec *query.SelectSpec) {
	if spec.Limit == nil && spec.Offset == nil {
		return
	}
	offset := 0
	if spec.Offset != nil {
		offset = *spec.Offset
	}
	fmt.Fprintf(b, " OFFSET %d ROWS", offset)
	if spec.Limit != nil {
		fmt.Fprintf(b, " FETCH NEXT %d ROWS ONLY", *spec.Limit)
	}
}

// insertKeys returns the RETURNING clause of the generated keys.
func (d *ANSIDialect) insertKeys(returning []string) (string, string) {
	if len(returning) == 0 {
		return "", ""
	}
	return "", " RETURNING " + d.join(returning, ", ")
}

func (*ANSIDialect) emptyValues() string { return " DEFAULT VALUES" }

// plainTemporal renders temporal literals as plain strings, for vendors
// without typed literals.
func plainTemporal(quote func(string) string, l query.Literal) string {
	var layout string
	switch l.Kind() {
	case query.KindDate:
		layout = DateLayout
	case query.KindTime:
		layout = TimeLayout
	default:
		layout = DateTimeLayout
	}
	return quote(l.TimeValue().Format(layout))
}

package dialect

import (
	"strconv"
	"strings"

	"github.com/syssam/loom/query"
)

// SQLServerDialect renders SQL for Microsoft SQL Server.
type SQLServerDialect struct {
	*ANSIDialect
}

// NewSQLServer returns the SQL Server dialect.
func NewSQLServer() *SQLServerDialect {
	d := &SQLServerDialect{ANSIDialect: &ANSIDialect{}}
	d.self = d
	return d
}

// Name implements Dialect.
func (*SQLServerDialect) Name() string { return SQLServer }

// Placeholder implements Dialect.
func (*SQLServerDialect) Placeholder(i int) string { return "@p" + strconv.Itoa(i) }

// ReturnsKeys implements Dialect.
func (*SQLServerDialect) ReturnsKeys() bool { return true }

func (d *SQLServerDialect) temporal(l query.Literal) string {
	return plainTemporal(d.quoteString, l)
}

func (*SQLServerDialect) boolean(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// paginate writes OFFSET / FETCH, which SQL Server accepts only after an
// ORDER BY clause.
func (d *SQLServerDialect) paginate(b *strings.Builder, spec *query.SelectSpec) {
	if (spec.Limit != nil || spec.Offset != nil) && len(spec.OrderBy) == 0 {
		b.WriteString(" ORDER BY (SELECT NULL)")
	}
	d.ANSIDialect.paginate(b, spec)
}

// insertKeys returns the OUTPUT clause that precedes VALUES.
func (d *SQLServerDialect) insertKeys(returning []string) (string, string) {
	if len(returning) == 0 {
		return "", ""
	}
	cols := make([]string, len(returning))
	for i, c := range returning {
		cols[i] = "INSERTED." + d.Quote(c)
	}
	return " OUTPUT " + strings.Join(cols, ", "), ""
}

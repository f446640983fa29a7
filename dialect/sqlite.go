package dialect

import (
	"fmt"
	"strings"

	"github.com/syssam/loom/query"
)

// SQLiteDialect renders SQL for SQLite. SQLite has no temporal types, so
// temporal literals and arguments are ISO-formatted strings.
type SQLiteDialect struct {
	*ANSIDialect
}

// NewSQLite returns the SQLite dialect.
func NewSQLite() *SQLiteDialect {
	d := &SQLiteDialect{ANSIDialect: &ANSIDialect{}}
	d.self = d
	return d
}

// Name implements Dialect.
func (*SQLiteDialect) Name() string { return SQLite }

// ReturnsKeys implements Dialect.
func (*SQLiteDialect) ReturnsKeys() bool { return true }

// Arg implements Dialect.
func (d *SQLiteDialect) Arg(l query.Literal) any {
	switch l.Kind() {
	case query.KindDate:
		return l.TimeValue().Format(DateLayout)
	case query.KindDateTime:
		return l.TimeValue().Format(DateTimeLayout)
	case query.KindTime:
		return l.TimeValue().Format(TimeLayout)
	}
	return d.ANSIDialect.Arg(l)
}

func (d *SQLiteDialect) temporal(l query.Literal) string {
	return plainTemporal(d.quoteString, l)
}

// paginate writes LIMIT / OFFSET. LIMIT -1 means no limit.
func (*SQLiteDialect) paginate(b *strings.Builder, spec *query.SelectSpec) {
	switch {
	case spec.Limit != nil:
		fmt.Fprintf(b, " LIMIT %d", *spec.Limit)
	case spec.Offset != nil:
		b.WriteString(" LIMIT -1")
	default:
		return
	}
	if spec.Offset != nil {
		fmt.Fprintf(b, " OFFSET %d", *spec.Offset)
	}
}

package dialect

import (
	"fmt"
	"strings"

	"github.com/syssam/loom/query"
)

// MySQLDialect renders SQL for MySQL: backtick quoting, backslash escaping in
// strings and LIMIT pagination. Generated keys are read with LastInsertId.
type MySQLDialect struct {
	*ANSIDialect
}

// NewMySQL returns the MySQL dialect.
func NewMySQL() *MySQLDialect {
	d := &MySQLDialect{ANSIDialect: &ANSIDialect{}}
	d.self = d
	return d
}

// Name implements Dialect.
func (*MySQLDialect) Name() string { return MySQL }

// Quote implements Dialect.
func (*MySQLDialect) Quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// quoteString escapes both single quotes (by doubling) and backslashes.
func (*MySQLDialect) quoteString(s string) string {
	if !strings.ContainsAny(s, `'\`) {
		return "'" + s + "'"
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", "''")
	return "'" + s + "'"
}

// paginate writes LIMIT / OFFSET. An offset without a limit uses the largest
// row count MySQL accepts.
func (*MySQLDialect) paginate(b *strings.Builder, spec *query.SelectSpec) {
	switch {
	case spec.Limit != nil:
		fmt.Fprintf(b, " LIMIT %d", *spec.Limit)
	case spec.Offset != nil:
		b.WriteString(" LIMIT 18446744073709551615")
	default:
		return
	}
	if spec.Offset != nil {
		fmt.Fprintf(b, " OFFSET %d", *spec.Offset)
	}
}

func (*MySQLDialect) emptyValues() string { return " () VALUES ()" }

// MariaDBDialect renders SQL for MariaDB. It extends MySQLDialect with
// RETURNING support for generated keys.
type MariaDBDialect struct {
	*MySQLDialect
}

// NewMariaDB returns the MariaDB dialect.
func NewMariaDB() *MariaDBDialect {
	d := &MariaDBDialect{MySQLDialect: &MySQLDialect{ANSIDialect: &ANSIDialect{}}}
	d.self = d
	return d
}

// Name implements Dialect.
func (*MariaDBDialect) Name() string { return MariaDB }

// ReturnsKeys implements Dialect.
func (*MariaDBDialect) ReturnsKeys() bool { return true }

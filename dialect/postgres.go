package dialect

import "strconv"

// PostgresDialect renders SQL for PostgreSQL. It uses numbered placeholders
// and returns generated keys with RETURNING.
type PostgresDialect struct {
	*ANSIDialect
}

// NewPostgres returns the PostgreSQL dialect.
func NewPostgres() *PostgresDialect {
	d := &PostgresDialect{ANSIDialect: &ANSIDialect{}}
	d.self = d
	return d
}

// Name implements Dialect.
func (*PostgresDialect) Name() string { return Postgres }

// Placeholder implements Dialect.
func (*PostgresDialect) Placeholder(i int) string { return "$" + strconv.Itoa(i) }

// ReturnsKeys implements Dialect.
func (*PostgresDialect) ReturnsKeys() bool { return true }

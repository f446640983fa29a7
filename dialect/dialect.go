package dialect

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/syssam/loom/query"
)

// Dialect names.
const (
	ANSI      = "ansi"
	Postgres  = "postgres"
	MySQL     = "mysql"
	MariaDB   = "mariadb"
	SQLite    = "sqlite"
	SQLServer = "sqlserver"
)

// ExecQuerier wraps the 2 database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL, INSERT or UPDATE.
	// It scans the result into the pointer v. For SQL drivers, it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for session clients.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	// The provided context is used until the transaction is committed or rolled back.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in transaction.
type Tx interface {
	ExecQuerier
	driver.Tx
}

// Dialect renders select specifications and write statements for one
// database family. Implementations are stateless and safe for concurrent use.
//
// Write statements use positional placeholders. Their parameters are
// numbered in column order: the SET columns of an update come before its
// WHERE columns.
type Dialect interface {
	query.Renderer
	// Name returns the dialect name.
	Name() string
	// Quote quotes an identifier.
	Quote(ident string) string
	// Placeholder returns the i-th (1-based) parameter placeholder.
	Placeholder(i int) string
	// Insert renders an insert of the given columns. The returning columns
	// are fetched back with the inserted row if the dialect ReturnsKeys.
	Insert(table string, columns, returning []string) string
	// Update renders an update setting the set columns on the rows matching
	// the where columns.
	Update(table string, set, where []string) string
	// Delete renders a delete of the rows matching the where columns.
	Delete(table string, where []string) string
	// ReturnsKeys reports whether inserts can return generated keys in a
	// result row. Otherwise, the driver's LastInsertId is used.
	ReturnsKeys() bool
	// Arg converts a literal to a parameter value for the vendor's driver.
	Arg(query.Literal) any
}

// ByName returns the dialect with the given name. Driver names with a
// dialect prefix ("pgx", "sqlite3") resolve to the dialect.
func ByName(name string) (Dialect, error) {
	switch n := strings.ToLower(name); {
	case n == ANSI:
		return NewANSI(), nil
	case n == Postgres, n == "postgresql", n == "pgx":
		return NewPostgres(), nil
	case n == MariaDB:
		return NewMariaDB(), nil
	case n == MySQL:
		return NewMySQL(), nil
	case strings.HasPrefix(n, SQLite):
		return NewSQLite(), nil
	case n == SQLServer, n == "mssql":
		return NewSQLServer(), nil
	}
	return nil, fmt.Errorf("loom: unknown dialect %q", name)
}

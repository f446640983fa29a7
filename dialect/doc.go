// Package dialect provides database dialect abstraction for Loom.
//
// This package defines the interfaces used to talk to a database and the
// renderers that turn select specifications and write statements into SQL
// text for a database family.
//
// # Supported Dialects
//
// The following dialects are supported:
//
//   - ANSI: standard SQL, the base of every vendor dialect
//   - Postgres: PostgreSQL database
//   - MySQL: MySQL database
//   - MariaDB: MariaDB database
//   - SQLite: SQLite database
//   - SQLServer: Microsoft SQL Server database
//
// Each dialect is identified by a constant string:
//
//	dialect.Postgres  = "postgres"
//	dialect.MySQL     = "mysql"
//	dialect.SQLite    = "sqlite"
//
// # Rendering
//
// A Dialect renders every node of the expression tree and every statement.
// Vendors only change the textual form, never the semantics:
//
//	Vendor      Quoting   Placeholders  Pagination                 Generated keys
//	ANSI        "ident"   ?             OFFSET n ROWS FETCH NEXT   LastInsertId
//	Postgres    "ident"   $1            OFFSET n ROWS FETCH NEXT   RETURNING
//	MySQL       `ident`   ?             LIMIT m OFFSET n           LastInsertId
//	MariaDB     `ident`   ?             LIMIT m OFFSET n           RETURNING
//	SQLite      "ident"   ?             LIMIT m OFFSET n           RETURNING
//	SQLServer   "ident"   @p1           OFFSET n ROWS FETCH NEXT   OUTPUT INSERTED
//
// Projected entity columns are aliased with their compound path, for example
// "employees.department_id". The row mapper depends on this alias.
//
// # Driver Interface
//
// The package defines the Driver interface for database operations:
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Transaction Interface
//
// The Tx interface extends ExecQuerier with transaction methods:
//
//	type Tx interface {
//	    ExecQuerier
//	    Commit() error
//	    Rollback() error
//	}
//
// # Sub-packages
//
//   - dialect/sql: database/sql backed driver, statistics and constraint errors
package dialect

// Package sql implements dialect.Driver on top of database/sql.
//
// # Drivers
//
// Driver wraps a *sql.DB and Tx wraps a *sql.Tx. Both implement the
// Exec / Query contract of package dialect:
//
//	drv, err := sql.Open("pgx", dsn)
//	if err != nil {
//	    return err
//	}
//	var res sql.Result
//	err = drv.Exec(ctx, `DELETE FROM "projects" WHERE "project_id" = $1;`, []any{5}, &res)
//
//	rows := &sql.Rows{}
//	err = drv.Query(ctx, `SELECT 1;`, []any{}, rows)
//	defer rows.Close()
//
// Errors returned by the database are passed through unmodified.
//
// # Decorators
//
// StatsDriver counts statements by kind (select, insert, update, delete),
// their errors and durations, and the commits and rollbacks of its
// transactions. Statements above its threshold go to slow query hooks.
// DebugDriver logs every statement after it ran. Both wrap any
// dialect.Driver and can be stacked.
//
// # Constraint Errors
//
// IsUniqueConstraintError, IsForeignKeyConstraintError and
// IsCheckConstraintError classify the errors of the PostgreSQL (lib/pq and
// pgx), MySQL and SQLite drivers.
package sql

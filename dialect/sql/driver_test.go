package sql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/syssam/loom/dialect"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestOpenDB(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		dialect string
	}{
		{"Postgres", dialect.Postgres, dialect.Postgres},
		{"PGX", "pgx", dialect.Postgres},
		{"MySQL", dialect.MySQL, dialect.MySQL},
		{"MariaDB", dialect.MariaDB, dialect.MariaDB},
		{"SQLite", dialect.SQLite, dialect.SQLite},
		{"SQLite3", "sqlite3", dialect.SQLite},
		{"SQLServer", dialect.SQLServer, dialect.SQLServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, _, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			drv := OpenDB(tt.driver, db)
			assert.NotNil(t, drv)
			assert.Equal(t, tt.dialect, drv.Dialect())
			assert.Same(t, db, drv.DB())
		})
	}
}

// TestDriverQuery tests query operations.
func TestDriverQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.Postgres, db)

	t.Run("query_with_args", func(t *testing.T) {
		mock.ExpectQuery(`SELECT "%root"."first_name" AS "%root.first_name" FROM "employees" "%root" WHERE \("%root"."employee_id"\) = \(\$1\)`).
			WithArgs(int64(100)).
			WillReturnRows(sqlmock.NewRows([]string{"%root.first_name"}).AddRow("Steven"))

		rows := &Rows{}
		err := drv.Query(context.Background(),
			`SELECT "%root"."first_name" AS "%root.first_name" FROM "employees" "%root" WHERE ("%root"."employee_id") = ($1)`,
			[]any{int64(100)}, rows)
		require.NoError(t, err)
		columns, err := rows.Columns()
		require.NoError(t, err)
		assert.Equal(t, []string{"%root.first_name"}, columns)
		require.True(t, rows.Next())
		var name string
		require.NoError(t, rows.Scan(&name))
		assert.Equal(t, "Steven", name)
		require.NoError(t, rows.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error_passthrough", func(t *testing.T) {
		expectedErr := errors.New("database error")
		mock.ExpectQuery("SELECT").WillReturnError(expectedErr)

		rows := &Rows{}
		err := drv.Query(context.Background(), "SELECT 1", []any{}, rows)
		assert.Same(t, expectedErr, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid_types", func(t *testing.T) {
		err := drv.Query(context.Background(), "SELECT 1", []any{}, new(int))
		assert.ErrorContains(t, err, "expect *sql.Rows")
		err = drv.Query(context.Background(), "SELECT 1", "args", &Rows{})
		assert.ErrorContains(t, err, "expect []any for args")
	})
}

// TestDriverExec tests execute operations.
func TestDriverExec(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.Postgres, db)

	t.Run("exec_with_result", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO "departments" \("department_id", "department_name"\) VALUES \(\$1, \$2\)`).
			WithArgs(int64(50), "Shipping").
			WillReturnResult(sqlmock.NewResult(50, 1))

		var res Result
		err := drv.Exec(context.Background(),
			`INSERT INTO "departments" ("department_id", "department_name") VALUES ($1, $2);`,
			[]any{int64(50), "Shipping"}, &res)
		require.NoError(t, err)
		n, err := res.RowsAffected()
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error_passthrough", func(t *testing.T) {
		expectedErr := errors.New("constraint violation")
		mock.ExpectExec("DELETE").WillReturnError(expectedErr)

		err := drv.Exec(context.Background(), `DELETE FROM "departments";`, []any{}, nil)
		assert.Same(t, expectedErr, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid_result", func(t *testing.T) {
		err := drv.Exec(context.Background(), "DELETE", []any{}, new(int))
		assert.ErrorContains(t, err, "expect *sql.Result")
	})
}

// TestDriverTransaction tests transaction operations.
func TestDriverTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.SQLite, db)

	t.Run("successful_commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)
		require.NoError(t, tx.Exec(context.Background(), `INSERT INTO "projects" DEFAULT VALUES;`, []any{}, nil))
		require.NoError(t, tx.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO").WillReturnError(errors.New("error"))
		mock.ExpectRollback()

		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)
		require.Error(t, tx.Exec(context.Background(), `INSERT INTO "projects" DEFAULT VALUES;`, []any{}, nil))
		require.NoError(t, tx.Rollback())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin_error", func(t *testing.T) {
		mock.ExpectBegin().WillReturnError(errors.New("busy"))
		_, err := drv.Tx(context.Background())
		require.EqualError(t, err, "busy")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

// TestContextCancellation tests that context cancellation is respected.
func TestContextCancellation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.Postgres, db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock.ExpectQuery("SELECT").WillReturnError(context.Canceled)
	rows := &Rows{}
	err = drv.Query(ctx, "SELECT 1", []any{}, rows)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		query string
		kind  Kind
	}{
		{`SELECT "%root"."project_id" FROM "projects" AS "%root";`, KindSelect},
		{"  select 1", KindSelect},
		{"(SELECT 1) UNION (SELECT 2)", KindSelect},
		{"WITH t AS (SELECT 1) SELECT * FROM t", KindSelect},
		{`INSERT INTO "projects" DEFAULT VALUES;`, KindInsert},
		{"update employees set last_name = ?", KindUpdate},
		{"DELETE FROM projects", KindDelete},
		{"PRAGMA foreign_keys = ON", KindOther},
		{"", KindOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.kind, KindOf(tt.query), tt.query)
	}
	assert.Equal(t, "delete", KindDelete.String())
}

func TestStatsDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var (
		ctx        = context.Background()
		core, logs = observer.New(zapcore.WarnLevel)
		hooked     []string
	)
	drv := NewStatsDriver(OpenDB(dialect.SQLite, db),
		WithSlowThreshold(-1),
		WithSlowQueryLog(zap.New(core)),
		WithSlowQueryHook(func(_ context.Context, query string, _ []any, _ time.Duration) {
			hooked = append(hooked, query)
		}),
	)

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE").WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec("INSERT").WillReturnResult(sqlmock.NewResult(6, 1))
	mock.ExpectCommit()

	rows := &Rows{}
	require.NoError(t, drv.Query(ctx, "SELECT 1", []any{}, rows))
	require.NoError(t, rows.Close())

	tx, err := drv.Tx(ctx)
	require.NoError(t, err)
	require.Error(t, tx.Exec(ctx, "UPDATE projects SET project_name = ?", []any{"x"}, nil))
	require.NoError(t, tx.Rollback())

	tx, err = drv.Tx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Exec(ctx, "INSERT INTO projects (project_name) VALUES (?)", []any{"x"}, nil))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())

	snap := drv.QueryStats().Snapshot()
	assert.Len(t, snap.Kinds, 3)
	assert.Equal(t, int64(1), snap.Kinds[KindUpdate].Errors)
	assert.Equal(t, int64(1), snap.Kinds[KindInsert].Slow)
	assert.Equal(t, int64(3), snap.Total().Count)
	assert.Equal(t, int64(1), snap.Commits)
	assert.Equal(t, int64(1), snap.Rollbacks)
	assert.Equal(t, "select=1 insert=1 update=1 errors=1 slow=3 commits=1 rollbacks=1", snap.String())
	assert.Len(t, hooked, 3)

	require.Equal(t, 3, logs.Len())
	entry := logs.All()[1]
	assert.Equal(t, "slow statement", entry.Message)
	assert.Equal(t, "update", entry.ContextMap()["kind"])
	assert.Equal(t, "UPDATE projects SET project_name = ?", entry.ContextMap()["query"])

	drv.QueryStats().Reset()
	snap = drv.QueryStats().Snapshot()
	assert.Empty(t, snap.Kinds)
	assert.Zero(t, snap.Total().Avg())
}

func TestDebugDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	drv := NewDebugDriver(OpenDB(dialect.Postgres, db), zap.New(core))

	mock.ExpectBegin()
	mock.ExpectExec("DELETE").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec("UPDATE").WillReturnError(errors.New("deadlock detected"))

	ctx := context.Background()
	tx, err := drv.Tx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Exec(ctx, `DELETE FROM "projects" WHERE "project_id" = $1;`, []any{int64(5)}, nil))
	require.NoError(t, tx.Commit())
	require.Error(t, drv.Exec(ctx, `UPDATE "projects" SET "project_name" = $1;`, []any{"x"}, nil))
	require.NoError(t, mock.ExpectationsWereMet())

	var messages []string
	for _, e := range logs.All() {
		messages = append(messages, e.Message)
	}
	assert.Equal(t, []string{"begin transaction", "exec", "commit transaction", "exec"}, messages)

	del := logs.All()[1].ContextMap()
	assert.Equal(t, `DELETE FROM "projects" WHERE "project_id" = $1;`, del["query"])
	assert.Equal(t, "delete", del["kind"])
	assert.Equal(t, true, del["in_tx"])
	assert.NotContains(t, del, "error")

	upd := logs.All()[3].ContextMap()
	assert.Equal(t, "deadlock detected", upd["error"])
	assert.NotContains(t, upd, "in_tx")
}

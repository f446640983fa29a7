package solver_test

import (
	"testing"
	"time"

	"github.com/syssam/loom"
	"github.com/syssam/loom/dialect"
	"github.com/syssam/loom/internal/hrtest"
	"github.com/syssam/loom/query"
	"github.com/syssam/loom/schema"
	"github.com/syssam/loom/solver"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsert(t *testing.T) {
	reg := hrtest.Registry()

	t.Run("foreign_keys", func(t *testing.T) {
		s := solver.New(reg, dialect.NewANSI())
		austin := &hrtest.Employee{
			ID:         105,
			FirstName:  "David",
			LastName:   "Austin",
			HireDate:   hrtest.Day(2005, 6, 25),
			Department: &hrtest.Department{ID: 20},
			Manager:    &hrtest.Employee{ID: 103},
		}
		stmt, err := s.Insert(austin)
		require.NoError(t, err)
		assert.Equal(t, `INSERT INTO "employees" ("employee_id", "first_name", "last_name", "hire_date", "department_id", "manager_id") VALUES (?, ?, ?, ?, ?, ?);`, stmt.Query)
		assert.Equal(t, []query.Literal{
			query.Int(105), query.String("David"), query.String("Austin"),
			query.Date(hrtest.Day(2005, 6, 25)), query.Int(20), query.Int(103),
		}, stmt.Args)
		assert.Empty(t, stmt.Returning)
	})

	t.Run("nil_relation", func(t *testing.T) {
		s := solver.New(reg, dialect.NewANSI())
		stmt, err := s.Insert(hrtest.Performance{ID: 4, Score: 3.5})
		require.NoError(t, err)
		assert.Equal(t, `INSERT INTO "performances" ("performance_id", "score") VALUES (?, ?);`, stmt.Query)
		assert.Equal(t, []query.Literal{query.Int(4), query.Double(3.5)}, stmt.Args)
	})

	t.Run("generated_key", func(t *testing.T) {
		tests := []struct {
			dialect   dialect.Dialect
			query     string
			returning []string
		}{
			{dialect.NewANSI(), `INSERT INTO "projects" ("project_name") VALUES (?);`, nil},
			{dialect.NewMySQL(), "INSERT INTO `projects` (`project_name`) VALUES (?);", nil},
			{dialect.NewPostgres(), `INSERT INTO "projects" ("project_name") VALUES ($1) RETURNING "project_id";`, []string{"project_id"}},
			{dialect.NewSQLServer(), `INSERT INTO "projects" ("project_name") OUTPUT INSERTED."project_id" VALUES (@p1);`, []string{"project_id"}},
		}
		for _, tt := range tests {
			t.Run(tt.dialect.Name(), func(t *testing.T) {
				stmt, err := solver.New(reg, tt.dialect).Insert(&hrtest.Project{Name: "Data Warehouse"})
				require.NoError(t, err)
				assert.Equal(t, tt.query, stmt.Query)
				assert.Equal(t, []query.Literal{query.String("Data Warehouse")}, stmt.Args)
				assert.Equal(t, tt.returning, stmt.Returning)
			})
		}
	})

	t.Run("temporal_columns", func(t *testing.T) {
		var (
			created = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
			run     = time.Date(0, 1, 1, 6, 15, 0, 0, time.UTC)
		)
		stmt, err := solver.New(reg, dialect.NewSQLite()).Insert(&hrtest.TypeTest{
			ID: 3, Status: hrtest.StatusActive, CreatedAt: created, RunTime: run,
		})
		require.NoError(t, err)
		assert.Equal(t, `INSERT INTO "enum_time_test" ("id", "status", "created_at", "run_time") VALUES (?, ?, ?, ?);`, stmt.Query)
		assert.Equal(t, []query.Literal{
			query.Int(3), query.String("ACTIVE"), query.DateTime(created), query.Time(run),
		}, stmt.Args)
	})

	t.Run("unsaved_target", func(t *testing.T) {
		_, err := solver.New(reg, dialect.NewANSI()).Insert(&hrtest.Employee{
			ID: 105, Department: &hrtest.Department{Name: "Shipping"},
		})
		assert.True(t, loom.IsMissingIdentity(err))
		assert.EqualError(t, err, `loom: departments has no identity (key column "department_id" is not set)`)
	})

	t.Run("not_an_entity", func(t *testing.T) {
		s := solver.New(reg, dialect.NewANSI())
		_, err := s.Insert(hrtest.DepartmentStats{})
		assert.True(t, loom.IsEntityRequired(err))
		_, err = s.Insert((*hrtest.Project)(nil))
		assert.True(t, loom.IsEntityRequired(err))
		_, err = s.Insert(nil)
		assert.True(t, loom.IsEntityRequired(err))
	})
}

func TestManyToManyInserts(t *testing.T) {
	s := solver.New(hrtest.Registry(), dialect.NewPostgres())
	austin := &hrtest.Employee{
		ID:       105,
		Projects: []*hrtest.Project{{ID: 1}, nil, {ID: 5}},
	}
	stmts, err := s.ManyToManyInserts(austin)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	for i, id := range []int64{1, 5} {
		assert.Equal(t, `INSERT INTO "employee_projects" ("employee_id", "project_id") VALUES ($1, $2);`, stmts[i].Query)
		assert.Equal(t, []query.Literal{query.Int(105), query.Int(id)}, stmts[i].Args)
		assert.Empty(t, stmts[i].Returning)
	}

	// The inverse side writes the same join table, owner key first.
	stmts, err = s.ManyToManyInserts(&hrtest.Project{ID: 6, Employees: []*hrtest.Employee{{ID: 100}}})
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t, `INSERT INTO "employee_projects" ("project_id", "employee_id") VALUES ($1, $2);`, stmts[0].Query)
	assert.Equal(t, []query.Literal{query.Int(6), query.Int(100)}, stmts[0].Args)

	_, err = s.ManyToManyInserts(&hrtest.Project{Employees: []*hrtest.Employee{{ID: 100}}})
	assert.True(t, loom.IsMissingIdentity(err))

	stmts, err = s.ManyToManyInserts(&hrtest.Department{ID: 10})
	require.NoError(t, err)
	assert.Empty(t, stmts)
}

type badge struct {
	ID    int64            `loom:"badge_id,pk"`
	Title *string          `loom:"title"`
	Bonus *decimal.Decimal `loom:"bonus"`
}

func TestUpdate(t *testing.T) {
	reg := hrtest.Registry()
	s := solver.New(reg, dialect.NewPostgres())

	t.Run("null_overwrites", func(t *testing.T) {
		stmt, err := s.Update(&hrtest.Department{ID: 10, Name: "Administration"})
		require.NoError(t, err)
		assert.Equal(t, `UPDATE "departments" SET "department_name" = $1, "manager_id" = $2 WHERE "department_id" = $3;`, stmt.Query)
		assert.Equal(t, []query.Literal{query.String("Administration"), query.Null(), query.Int(10)}, stmt.Args)
	})

	t.Run("ignore_null", func(t *testing.T) {
		stmt, err := s.Update(&hrtest.Department{ID: 10, Name: "Administration"}, solver.IgnoreNull())
		require.NoError(t, err)
		assert.Equal(t, `UPDATE "departments" SET "department_name" = $1 WHERE "department_id" = $2;`, stmt.Query)
		assert.Equal(t, []query.Literal{query.String("Administration"), query.Int(10)}, stmt.Args)
	})

	t.Run("ignore_null_keeps_set_pointers", func(t *testing.T) {
		manager := int64(101)
		stmt, err := s.Update(&hrtest.Department{ID: 20, Name: "Marketing", ManagerID: &manager}, solver.IgnoreNull())
		require.NoError(t, err)
		assert.Equal(t, `UPDATE "departments" SET "department_name" = $1, "manager_id" = $2 WHERE "department_id" = $3;`, stmt.Query)
		assert.Equal(t, []query.Literal{query.String("Marketing"), query.Int(101), query.Int(20)}, stmt.Args)
	})

	t.Run("relations_untouched", func(t *testing.T) {
		stmt, err := s.Update(&hrtest.Employee{ID: 104, FirstName: "Bruce", LastName: "Ernst", HireDate: hrtest.Day(2007, 5, 21)})
		require.NoError(t, err)
		assert.Equal(t, `UPDATE "employees" SET "first_name" = $1, "last_name" = $2, "hire_date" = $3 WHERE "employee_id" = $4;`, stmt.Query)
	})

	t.Run("nothing_to_update", func(t *testing.T) {
		s := solver.New(schema.MustRegister(badge{}), dialect.NewANSI())
		_, err := s.Update(&badge{ID: 1}, solver.IgnoreNull())
		assert.ErrorIs(t, err, solver.ErrNothingToUpdate)

		bonus := decimal.RequireFromString("12.50")
		stmt, err := s.Update(&badge{ID: 1, Bonus: &bonus}, solver.IgnoreNull())
		require.NoError(t, err)
		assert.Equal(t, `UPDATE "badges" SET "bonus" = ? WHERE "badge_id" = ?;`, stmt.Query)
		assert.Equal(t, []query.Literal{query.String("12.5"), query.Int(1)}, stmt.Args)
	})

	t.Run("missing_identity", func(t *testing.T) {
		_, err := s.Update(&hrtest.Department{Name: "Shipping"})
		assert.True(t, loom.IsMissingIdentity(err))
	})
}

func TestDelete(t *testing.T) {
	s := solver.New(hrtest.Registry(), dialect.NewSQLServer())
	stmt, err := s.Delete(&hrtest.Project{ID: 4, Name: "Customer Portal"})
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "projects" WHERE "project_id" = @p1;`, stmt.Query)
	assert.Equal(t, []query.Literal{query.Int(4)}, stmt.Args)

	_, err = s.Delete(&hrtest.Project{Name: "Customer Portal"})
	assert.True(t, loom.IsMissingIdentity(err))
	assert.EqualError(t, err, `loom: projects has no identity (key column "project_id" is not set)`)
}

func TestConnect(t *testing.T) {
	var (
		s     = solver.New(hrtest.Registry(), dialect.NewANSI())
		ernst = &hrtest.Employee{ID: 104}
		it    = &hrtest.Department{ID: 30}
		lex   = &hrtest.Employee{ID: 102}
		perf  = &hrtest.Performance{ID: 3}
	)
	tests := []struct {
		name  string
		a, b  any
		rel   string
		query string
		args  []query.Literal
	}{
		{
			name:  "many_to_one",
			a:     ernst,
			b:     it,
			rel:   "department",
			query: `UPDATE "employees" SET "department_id" = ? WHERE "employee_id" = ?;`,
			args:  []query.Literal{query.Int(30), query.Int(104)},
		},
		{
			name:  "one_to_many",
			a:     it,
			b:     ernst,
			rel:   "employees",
			query: `UPDATE "employees" SET "department_id" = ? WHERE "employee_id" = ?;`,
			args:  []query.Literal{query.Int(30), query.Int(104)},
		},
		{
			name:  "owning_one_to_one",
			a:     perf,
			b:     lex,
			rel:   "employee",
			query: `UPDATE "performances" SET "employee_id" = ? WHERE "performance_id" = ?;`,
			args:  []query.Literal{query.Int(102), query.Int(3)},
		},
		{
			name:  "inverse_one_to_one",
			a:     lex,
			b:     perf,
			rel:   "performance",
			query: `UPDATE "performances" SET "employee_id" = ? WHERE "performance_id" = ?;`,
			args:  []query.Literal{query.Int(102), query.Int(3)},
		},
		{
			name:  "many_to_many",
			a:     ernst,
			b:     &hrtest.Project{ID: 5},
			rel:   "projects",
			query: `INSERT INTO "employee_projects" ("employee_id", "project_id") VALUES (?, ?);`,
			args:  []query.Literal{query.Int(104), query.Int(5)},
		},
		{
			name:  "self_reference",
			a:     ernst,
			b:     lex,
			rel:   "manager",
			query: `UPDATE "employees" SET "manager_id" = ? WHERE "employee_id" = ?;`,
			args:  []query.Literal{query.Int(102), query.Int(104)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := s.Connect(tt.a, tt.b, tt.rel)
			require.NoError(t, err)
			assert.Equal(t, tt.query, stmt.Query)
			assert.Equal(t, tt.args, stmt.Args)
		})
	}
}

func TestDisconnect(t *testing.T) {
	var (
		s     = solver.New(hrtest.Registry(), dialect.NewPostgres())
		ernst = &hrtest.Employee{ID: 104}
	)

	t.Run("many_to_one", func(t *testing.T) {
		stmt, err := s.Disconnect(ernst, nil, "manager")
		require.NoError(t, err)
		assert.Equal(t, `UPDATE "employees" SET "manager_id" = $1 WHERE "employee_id" = $2;`, stmt.Query)
		assert.Equal(t, []query.Literal{query.Null(), query.Int(104)}, stmt.Args)
	})

	t.Run("one_to_many", func(t *testing.T) {
		stmt, err := s.Disconnect(&hrtest.Department{ID: 20}, ernst, "employees")
		require.NoError(t, err)
		assert.Equal(t, `UPDATE "employees" SET "department_id" = $1 WHERE "employee_id" = $2;`, stmt.Query)
		assert.Equal(t, []query.Literal{query.Null(), query.Int(104)}, stmt.Args)
	})

	t.Run("inverse_requires_target", func(t *testing.T) {
		_, err := s.Disconnect(&hrtest.Department{ID: 20}, nil, "employees")
		assert.True(t, loom.IsEntityRequired(err))
		_, err = s.Disconnect(&hrtest.Employee{ID: 100}, nil, "performance")
		assert.True(t, loom.IsEntityRequired(err))
	})

	t.Run("many_to_many", func(t *testing.T) {
		stmt, err := s.Disconnect(ernst, &hrtest.Project{ID: 2}, "projects")
		require.NoError(t, err)
		assert.Equal(t, `DELETE FROM "employee_projects" WHERE "employee_id" = $1 AND "project_id" = $2;`, stmt.Query)
		assert.Equal(t, []query.Literal{query.Int(104), query.Int(2)}, stmt.Args)
	})
}

func TestRelationErrors(t *testing.T) {
	s := solver.New(hrtest.Registry(), dialect.NewANSI())

	_, err := s.Connect(&hrtest.Employee{ID: 100}, &hrtest.Department{ID: 10}, "salary")
	assert.True(t, loom.IsRelationNotFound(err))
	assert.EqualError(t, err, `loom: relation "salary" not found on employees`)

	_, err = s.Connect(&hrtest.Employee{ID: 100}, &hrtest.Project{ID: 1}, "department")
	assert.EqualError(t, err, `loom: relation "department" of Employee links Department, got Project`)

	_, err = s.Connect(&hrtest.Employee{ID: 100}, &hrtest.Department{}, "department")
	assert.True(t, loom.IsMissingIdentity(err))

	_, err = s.Connect(&hrtest.Employee{}, &hrtest.Department{ID: 10}, "department")
	assert.True(t, loom.IsMissingIdentity(err))

	_, err = s.Disconnect(&hrtest.Employee{}, &hrtest.Project{ID: 1}, "projects")
	assert.True(t, loom.IsMissingIdentity(err))
}

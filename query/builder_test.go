package query_test

import (
	"testing"

	"github.com/syssam/loom"
	"github.com/syssam/loom/internal/hrtest"
	"github.com/syssam/loom/query"
	"github.com/syssam/loom/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func columnPaths(t *testing.T, spec *query.SelectSpec) []string {
	t.Helper()
	paths := make([]string, len(spec.Columns))
	for i, c := range spec.Columns {
		f, ok := c.(*query.Field)
		require.True(t, ok, "column %d is %T", i, c)
		paths[i] = f.Path()
	}
	return paths
}

func TestSelectEntity(t *testing.T) {
	spec, err := query.Select(hrtest.Registry(), &hrtest.Department{}).Spec()
	require.NoError(t, err)
	assert.Equal(t, "departments", spec.Table)
	assert.Equal(t, query.RootAlias, spec.Alias)
	assert.Empty(t, spec.Joins)
	assert.Equal(t, []string{"%root.department_id", "%root.department_name", "%root.manager_id"}, columnPaths(t, spec))
	assert.Nil(t, spec.Where)
	assert.Nil(t, spec.Limit)
	assert.False(t, spec.Sub)
}

func TestJoinStructure(t *testing.T) {
	reg := hrtest.Registry()
	tests := []struct {
		name    string
		b       *query.Builder
		joins   []*query.Join
		columns int
	}{
		{
			name: "many_to_one",
			b:    query.Select(reg, hrtest.Employee{}).Join("department", query.Left),
			joins: []*query.Join{
				{Kind: query.Left, Table: "departments", Alias: "department", Columns: []string{"department_id"}, RefAlias: "%root", RefColumns: []string{"department_id"}},
			},
			columns: 7,
		},
		{
			name: "nested_prefix",
			b:    query.Select(reg, hrtest.Employee{}).Join("department.employees"),
			joins: []*query.Join{
				{Kind: query.Inner, Table: "departments", Alias: "department", Columns: []string{"department_id"}, RefAlias: "%root", RefColumns: []string{"department_id"}},
				{Kind: query.Inner, Table: "employees", Alias: "department.employees", Columns: []string{"department_id"}, RefAlias: "department", RefColumns: []string{"department_id"}},
			},
			columns: 11,
		},
		{
			name: "repeated_path",
			b:    query.Select(reg, hrtest.Employee{}).Join("manager").Join("manager").Join("manager.department").Join("manager"),
			joins: []*query.Join{
				{Kind: query.Inner, Table: "employees", Alias: "manager", Columns: []string{"employee_id"}, RefAlias: "%root", RefColumns: []string{"manager_id"}},
				{Kind: query.Inner, Table: "departments", Alias: "manager.department", Columns: []string{"department_id"}, RefAlias: "manager", RefColumns: []string{"department_id"}},
			},
			columns: 11,
		},
		{
			name: "inverse_one_to_one",
			b:    query.Select(reg, hrtest.Employee{}).Join("performance", query.Left),
			joins: []*query.Join{
				{Kind: query.Left, Table: "performances", Alias: "performance", Columns: []string{"employee_id"}, RefAlias: "%root", RefColumns: []string{"employee_id"}},
			},
			columns: 6,
		},
		{
			name: "owning_one_to_one",
			b:    query.Select(reg, hrtest.Performance{}).Join("employee", query.Right),
			joins: []*query.Join{
				{Kind: query.Right, Table: "employees", Alias: "employee", Columns: []string{"employee_id"}, RefAlias: "%root", RefColumns: []string{"employee_id"}},
			},
			columns: 6,
		},
		{
			name: "many_to_many",
			b:    query.Select(reg, hrtest.Project{}).Join("employees", query.Full),
			joins: []*query.Join{
				{Kind: query.Full, Table: "employee_projects", Alias: "employee_projects", Columns: []string{"project_id"}, RefAlias: "%root", RefColumns: []string{"project_id"}},
				{Kind: query.Full, Table: "employees", Alias: "employees", Columns: []string{"employee_id"}, RefAlias: "employee_projects", RefColumns: []string{"employee_id"}},
			},
			columns: 6,
		},
		{
			name: "join_table_reused",
			b:    query.Select(reg, hrtest.Employee{}).Join("projects").Join("projects.employees"),
			joins: []*query.Join{
				{Kind: query.Inner, Table: "employee_projects", Alias: "employee_projects", Columns: []string{"employee_id"}, RefAlias: "%root", RefColumns: []string{"employee_id"}},
				{Kind: query.Inner, Table: "projects", Alias: "projects", Columns: []string{"project_id"}, RefAlias: "employee_projects", RefColumns: []string{"project_id"}},
				{Kind: query.Inner, Table: "employee_projects", Alias: "employee_projects_2", Columns: []string{"project_id"}, RefAlias: "projects", RefColumns: []string{"project_id"}},
				{Kind: query.Inner, Table: "employees", Alias: "projects.employees", Columns: []string{"employee_id"}, RefAlias: "employee_projects_2", RefColumns: []string{"employee_id"}},
			},
			columns: 10,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := tt.b.Spec()
			require.NoError(t, err)
			assert.Equal(t, tt.joins, spec.Joins)
			assert.Len(t, spec.Columns, tt.columns)
		})
	}
}

func TestJoinColumns(t *testing.T) {
	spec, err := query.Select(hrtest.Registry(), hrtest.Department{}).Join("employees.projects", query.Left).Spec()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"%root.department_id", "%root.department_name", "%root.manager_id",
		"employees.employee_id", "employees.first_name", "employees.last_name", "employees.hire_date",
		"employees.projects.project_id", "employees.projects.project_name",
	}, columnPaths(t, spec))

	fixed, err := query.SelectColumns(hrtest.Registry(), hrtest.Department{}, query.F("department_name")).
		Join("employees.projects", query.Left).
		Spec()
	require.NoError(t, err)
	assert.Equal(t, []string{"%root.department_name"}, columnPaths(t, fixed))
	assert.Len(t, fixed.Joins, 3)
}

func TestAliasAfterJoin(t *testing.T) {
	spec, err := query.SubSelect(hrtest.Registry(), hrtest.Employee{}).
		Join("department").
		As("e").
		Spec()
	require.NoError(t, err)
	assert.Equal(t, "e", spec.Alias)
	assert.Equal(t, "e", spec.Joins[0].RefAlias)
	assert.Equal(t, "e.employee_id", columnPaths(t, spec)[0])
}

func TestSpecIsolation(t *testing.T) {
	b := query.Select(hrtest.Registry(), hrtest.Employee{}).Limit(2).OrderBy(query.Asc(query.F("employee_id")))
	spec, err := b.Spec()
	require.NoError(t, err)

	b.Limit(5).OrderBy(query.Desc(query.F("last_name"))).Join("department")
	assert.Equal(t, 2, *spec.Limit)
	assert.Len(t, spec.OrderBy, 1)
	assert.Empty(t, spec.Joins)
}

func TestWhereAccumulates(t *testing.T) {
	spec, err := query.Select(hrtest.Registry(), hrtest.Employee{}).
		Where(query.F("first_name").EQ("Steven")).
		Where(query.F("last_name").EQ("King")).
		Spec()
	require.NoError(t, err)
	and, ok := spec.Where.(*query.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, query.OpAnd, and.Op)
}

func TestBuilderErrors(t *testing.T) {
	reg := hrtest.Registry()
	tests := []struct {
		name  string
		b     *query.Builder
		check func(*testing.T, error)
	}{
		{
			name: "nil_registry",
			b:    query.Select(nil, hrtest.Employee{}),
			check: func(t *testing.T, err error) {
				assert.True(t, loom.IsEntityRequired(err))
			},
		},
		{
			name: "unregistered",
			b:    query.Select(reg, hrtest.DepartmentStats{}).Join("employees"),
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, loom.ErrEntityRequired)
			},
		},
		{
			name: "relation_not_found",
			b:    query.Select(reg, hrtest.Employee{}).Join("department.budget"),
			check: func(t *testing.T, err error) {
				assert.True(t, loom.IsRelationNotFound(err))
				assert.EqualError(t, err, `loom: relation "department.budget" not found on employees`)
			},
		},
		{
			name: "negative_limit",
			b:    query.Select(reg, hrtest.Employee{}).Limit(-1),
			check: func(t *testing.T, err error) {
				assert.EqualError(t, err, "loom: negative limit -1")
			},
		},
		{
			name: "negative_offset",
			b:    query.Select(reg, hrtest.Employee{}).Offset(-2),
			check: func(t *testing.T, err error) {
				assert.EqualError(t, err, "loom: negative offset -2")
			},
		},
		{
			name: "invalid_alias",
			b:    query.SubSelect(reg, hrtest.Employee{}).As("a.b"),
			check: func(t *testing.T, err error) {
				assert.EqualError(t, err, `loom: invalid table alias "a.b"`)
			},
		},
		{
			name: "alias_on_top_level_select",
			b:    query.Select(reg, hrtest.Employee{}).As("emp"),
			check: func(t *testing.T, err error) {
				assert.EqualError(t, err, `loom: table alias "emp" on a top-level select`)
			},
		},
		{
			name: "first_error_wins",
			b:    query.Select(reg, hrtest.Employee{}).Limit(-1).Offset(-1),
			check: func(t *testing.T, err error) {
				assert.EqualError(t, err, "loom: negative limit -1")
			},
		},
		{
			name: "empty_field",
			b:    query.Select(reg, hrtest.Employee{}).Where(query.FieldOf("", "x").IsNull()),
			check: func(t *testing.T, err error) {
				assert.EqualError(t, err, "loom: field reference requires a table alias and a column")
			},
		},
		{
			name: "empty_column_alias",
			b:    query.SelectColumns(reg, hrtest.Employee{}, query.As(query.F("last_name"), "")),
			check: func(t *testing.T, err error) {
				assert.EqualError(t, err, "loom: empty column alias")
			},
		},
		{
			name: "nil_operand",
			b:    query.Select(reg, hrtest.Employee{}).Where(query.EQ(query.F("last_name"), nil)),
			check: func(t *testing.T, err error) {
				assert.EqualError(t, err, "loom: nil expression operand")
			},
		},
		{
			name: "no_columns",
			b:    query.SelectColumns(reg, hrtest.Employee{}),
			check: func(t *testing.T, err error) {
				assert.EqualError(t, err, "loom: select from employees has no columns")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.b.Spec()
			require.Error(t, err)
			tt.check(t, err)
			assert.Equal(t, err, tt.b.Err())
		})
	}
}

func TestFieldPath(t *testing.T) {
	tests := []struct {
		in     string
		alias  string
		column string
	}{
		{"first_name", query.RootAlias, "first_name"},
		{"department.manager_id", "department", "manager_id"},
		{"department.employees.last_name", "department.employees", "last_name"},
	}
	for _, tt := range tests {
		f := query.F(tt.in)
		assert.Equal(t, tt.alias, f.Alias)
		assert.Equal(t, tt.column, f.Column)
	}
}

func TestSelectAcceptsSlices(t *testing.T) {
	for _, v := range []any{hrtest.Employee{}, &hrtest.Employee{}, []hrtest.Employee{}, []*hrtest.Employee{}} {
		b := query.Select(hrtest.Registry(), v)
		require.NoError(t, b.Err())
		assert.Equal(t, "employees", b.Entity().Table)
	}
	var e *schema.Entity = query.Select(hrtest.Registry(), hrtest.Project{}).Entity()
	assert.Equal(t, "Project", e.Name)
}

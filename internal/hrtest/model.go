// Package hrtest provides the HR domain model and an in-memory fixture
// database shared by the package tests.
package hrtest

import (
	"sync"
	"time"

	"github.com/syssam/loom/schema"
)

// Department is mapped to the departments table.
type Department struct {
	ID        int64       `loom:"department_id,pk"`
	Name      string      `loom:"department_name"`
	ManagerID *int64      `loom:"manager_id"`
	Employees []*Employee `loom:"employees,o2m,fk=department_id"`
}

// Employee is mapped to the employees table.
type Employee struct {
	ID          int64        `loom:"employee_id,pk"`
	FirstName   string       `loom:"first_name"`
	LastName    string       `loom:"last_name"`
	HireDate    time.Time    `loom:"hire_date,date"`
	Department  *Department  `loom:"department,m2o,fk=department_id"`
	Manager     *Employee    `loom:"manager,m2o,fk=manager_id"`
	Projects    []*Project   `loom:"projects,m2m,join=employee_projects,source=employee_id,target=project_id"`
	Performance *Performance `loom:"performance,o2o,inverse,fk=employee_id"`
}

// Project is mapped to the projects table. Its key is generated by the database.
type Project struct {
	ID        int64       `loom:"project_id,pk,generated"`
	Name      string      `loom:"project_name"`
	Employees []*Employee `loom:"employees,m2m,join=employee_projects,source=project_id,target=employee_id"`
}

// Performance holds the foreign key of its one-to-one link to Employee.
type Performance struct {
	ID       int64     `loom:"performance_id,pk"`
	Score    float64   `loom:"score"`
	Employee *Employee `loom:"employee,o2o,fk=employee_id"`
}

// Status is an enumeration stored as text.
type Status string

// Status values.
const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// TypeTest exercises enumeration and temporal column mapping.
type TypeTest struct {
	ID        int64     `loom:"id,pk"`
	Status    Status    `loom:"status"`
	CreatedAt time.Time `loom:"created_at"`
	RunTime   time.Time `loom:"run_time,time"`
}

// TableName overrides the default table name.
func (TypeTest) TableName() string { return "enum_time_test" }

// DepartmentStats is a projection result, not an entity.
type DepartmentStats struct {
	DepartmentID  int64 `loom:"department_id"`
	MaxEmployeeID int64 `loom:"max_employee_id"`
}

var registry = sync.OnceValue(func() *schema.Registry {
	return schema.MustRegister(Department{}, Employee{}, Project{}, Performance{}, TypeTest{})
})

// Registry returns the registry of the HR model.
func Registry() *schema.Registry {
	return registry()
}

// Day returns midnight UTC of the given date.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

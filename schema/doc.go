// Package schema describes how Go struct types map to relational tables.
//
// An Entity lists the columns, the primary-key columns and the relations of
// one struct type. A Relation links an owning entity to a target entity with
// one of four kinds (M2O, O2O, O2M, M2M) and records which table holds the
// foreign-key columns.
//
// Entities are discovered from `loom` struct tags and collected by a Builder
// into an immutable Registry:
//
//	type Employee struct {
//	    ID         int64       `loom:"employee_id,pk"`
//	    FirstName  string      `loom:"first_name"`
//	    Department *Department `loom:"department,m2o,fk=department_id"`
//	}
//
//	reg, err := schema.NewBuilder().
//	    Add(Department{}).
//	    Add(Employee{}).
//	    Build()
//
// Untagged exported fields are mapped to snake_case columns and table names
// default to the plural of the snake_case type name. Unspecified foreign-key
// columns default to the names of the key they reference.
//
// Column setters are resolved once per field when the registry is built, so
// mapping rows never looks fields up by name.
package schema

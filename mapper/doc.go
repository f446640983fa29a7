// Package mapper converts query results to entity values.
//
// Map reassembles object graphs from joined results. Every projected column
// is named "<path>.<column>", where path is the relation path of the joined
// table ("%root" for the root entity):
//
//	%root.department_id | %root.department_name | employees.employee_id | employees.last_name
//	10                  | Administration        | 100                   | King
//	20                  | Marketing             | 101                   | Kochhar
//	20                  | Marketing             | 104                   | Ernst
//
// Each path yields one instance per row. Instances are deduplicated by entity
// and key for the whole result, so the two Marketing rows above produce one
// Department holding two employees. A path whose key columns are NULL, as
// produced by an outer join without a match, yields no instance. Collection
// links are made once per parent, child and relation.
//
//	rows, err := db.QueryContext(ctx, stmt)
//	if err != nil {
//	    return err
//	}
//	defer rows.Close()
//	departments, err := mapper.Map[Department](m, rows)
//
// List, One and Only map each row to a single value without relations. The target
// type may be a plain struct; columns are matched by the last segment of
// their name:
//
//	type DepartmentStats struct {
//	    DepartmentID  int64 `loom:"department_id"`
//	    MaxEmployeeID int64 `loom:"max_employee_id"`
//	}
//	stats, err := mapper.List[DepartmentStats](m, rows)
//
// Columns that match no field are logged at warn level and skipped.
package mapper

// Package loom is a lightweight object-relational mapper.
//
// Entities are plain structs described with `loom` struct tags and collected
// in a schema.Registry. Queries are assembled with package query, rendered
// for a database by package dialect, and their results are turned back into
// object graphs by package mapper. Package solver computes the statements
// that persist entities and their relations, and package session executes
// both over a database/sql connection.
//
//	type Department struct {
//	    ID        int64       `loom:"department_id,pk"`
//	    Name      string      `loom:"department_name"`
//	    Employees []*Employee `loom:"employees,o2m,fk=department_id"`
//	}
//
//	reg := schema.MustRegister(Department{}, Employee{})
//	s := session.New(sql.OpenDB(dialect.Postgres, db), dialect.NewPostgres(), reg)
//	departments, err := session.Select[Department](ctx, s,
//	    query.Select(reg, Department{}).
//	        Join("employees", query.Left).
//	        Where(query.F("department_name").Like("M%")),
//	)
//
// This package holds the errors shared by all of them.
package loom

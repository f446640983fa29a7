// Package solver computes the parameterized write statements that persist
// entity values: inserts, updates and deletes of rows, and the statements
// that connect or disconnect two persisted objects through a relation.
//
//	s := solver.New(reg, dialect.NewPostgres())
//	stmt, err := s.Insert(&Project{Name: "Data Warehouse"})
//	// INSERT INTO "projects" ("project_name") VALUES ($1) RETURNING "project_id";
//
// Statements are not executed here; Args are bound in placeholder order by
// the caller.
package solver

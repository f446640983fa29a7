// Package session executes queries and write statements against a database.
//
// A Session combines a driver, a dialect and an entity registry. Reads run
// a query.Builder and map the result:
//
//	s := session.New(sql.OpenDB(dialect.Postgres, db), dialect.NewPostgres(), reg)
//	departments, err := session.Select[Department](ctx, s,
//	    query.Select(reg, Department{}).Join("employees", query.Left))
//
// Writes persist entity values through the statements of package solver:
//
//	p := &Project{Name: "Data Warehouse", Employees: []*Employee{{ID: 100}}}
//	if err := s.Insert(ctx, p); err != nil {
//	    return err
//	}
//	// p.ID holds the generated key.
//
// Open builds a Session from a config.Config. The PostgreSQL (pgx and lib/pq),
// MySQL and SQLite drivers are registered by this package.
package session

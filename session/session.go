package session

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"reflect"
	"time"

	"github.com/syssam/loom"
	"github.com/syssam/loom/config"
	"github.com/syssam/loom/dialect"
	"github.com/syssam/loom/dialect/sql"
	"github.com/syssam/loom/mapper"
	"github.com/syssam/loom/query"
	"github.com/syssam/loom/schema"
	"github.com/syssam/loom/solver"

	"github.com/google/uuid"
	"go.uber.org/zap"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Session executes queries and write statements over a driver. A Session
// is safe for concurrent use, except for the transaction-bound sessions
// passed to Transaction callbacks.
type Session struct {
	options
}

type options struct {
	driver  dialect.Driver
	dialect dialect.Dialect
	reg     *schema.Registry
	mapper  *mapper.Mapper
	solver  *solver.Solver
	log     *zap.Logger
	debug   bool
	slow    time.Duration
}

// Option configures a Session.
type Option func(*options)

// WithLogger sets the logger of the session.
func WithLogger(l *zap.Logger) Option {
	return func(c *options) {
		if l != nil {
			c.log = l
		}
	}
}

// Debug logs every statement at debug level.
func Debug() Option {
	return func(c *options) {
		c.debug = true
	}
}

// WithSlowThreshold logs statements slower than d at warn level.
func WithSlowThreshold(d time.Duration) Option {
	return func(c *options) {
		c.slow = d
	}
}

// New returns a Session executing statements rendered for d over drv.
func New(drv dialect.Driver, d dialect.Dialect, reg *schema.Registry, opts ...Option) *Session {
	c := options{driver: drv, dialect: d, reg: reg, log: zap.NewNop()}
	for _, opt := range opts {
		opt(&c)
	}
	if c.slow > 0 {
		c.driver = sql.NewStatsDriver(c.driver, sql.WithSlowThreshold(c.slow), sql.WithSlowQueryLog(c.log))
	}
	if c.debug {
		c.driver = sql.NewDebugDriver(c.driver, c.log)
	}
	c.mapper = mapper.New(reg, mapper.WithLogger(c.log))
	c.solver = solver.New(reg, d)
	return &Session{options: c}
}

// Open connects to the database described by cfg. Options override the
// logger and the statement logging of the configuration.
func Open(ctx context.Context, cfg *config.Config, reg *schema.Registry, opts ...Option) (*Session, error) {
	d, err := dialect.ByName(cfg.Database.DialectName())
	if err != nil {
		return nil, err
	}
	log, err := cfg.Log.Build()
	if err != nil {
		return nil, err
	}
	db, err := stdsql.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("loom: connecting to %s: %w", cfg.Database.Driver, err)
	}
	base := []Option{WithLogger(log), WithSlowThreshold(cfg.Session.SlowThreshold)}
	if cfg.Session.Debug {
		base = append(base, Debug())
	}
	return New(sql.OpenDB(cfg.Database.Driver, db), d, reg, append(base, opts...)...), nil
}

// Dialect returns the dialect statements are rendered for.
func (s *Session) Dialect() dialect.Dialect { return s.dialect }

// Registry returns the entity registry of the session.
func (s *Session) Registry() *schema.Registry { return s.reg }

// Close closes the underlying driver. Closing a transaction-bound session is
// a no-op.
func (s *Session) Close() error { return s.driver.Close() }

// Select runs the query built by b and reassembles the object graph of T
// from its joined result.
func Select[T any](ctx context.Context, s *Session, b *query.Builder) ([]*T, error) {
	rows, err := s.query(ctx, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return mapper.Map[T](s.mapper, rows)
}

// List runs the query built by b and maps every row to a new T.
func List[T any](ctx context.Context, s *Session, b *query.Builder) ([]*T, error) {
	rows, err := s.query(ctx, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return mapper.List[T](s.mapper, rows)
}

// One runs the query built by b and maps its first row. It returns a
// NotFoundError if there are no rows.
func One[T any](ctx context.Context, s *Session, b *query.Builder) (*T, error) {
	rows, err := s.query(ctx, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return mapper.One[T](s.mapper, rows)
}

// Only runs the query built by b and maps its single row. It returns a
// NotFoundError if there are no rows and a NotSingularError if there is more
// than one.
func Only[T any](ctx context.Context, s *Session, b *query.Builder) (*T, error) {
	rows, err := s.query(ctx, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return mapper.Only[T](s.mapper, rows)
}

// SelectSQL runs a hand-written query and reassembles the object graph of T
// like Select. Its columns must be named "<path>.<column>", with the root
// entity under "%root":
//
//	employees, err := session.SelectSQL[Employee](ctx, s,
//	    `SELECT e.employee_id AS "%root.employee_id", d.department_id AS "department.department_id"
//	     FROM employees e JOIN departments d ON d.department_id = e.department_id
//	     WHERE e.last_name LIKE ?`, "K%")
func SelectSQL[T any](ctx context.Context, s *Session, stmt string, args ...any) ([]*T, error) {
	rows, err := s.rawQuery(ctx, stmt, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return mapper.Map[T](s.mapper, rows)
}

// ListSQL runs a hand-written query and maps every row to a new T.
func ListSQL[T any](ctx context.Context, s *Session, stmt string, args ...any) ([]*T, error) {
	rows, err := s.rawQuery(ctx, stmt, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return mapper.List[T](s.mapper, rows)
}

// OneSQL runs a hand-written query and maps its first row.
func OneSQL[T any](ctx context.Context, s *Session, stmt string, args ...any) (*T, error) {
	rows, err := s.rawQuery(ctx, stmt, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return mapper.One[T](s.mapper, rows)
}

func (s *Session) query(ctx context.Context, b *query.Builder) (*sql.Rows, error) {
	stmt, err := b.Build(s.dialect)
	if err != nil {
		return nil, err
	}
	return s.rawQuery(ctx, stmt, nil)
}

func (s *Session) rawQuery(ctx context.Context, stmt string, args []any) (*sql.Rows, error) {
	if args == nil {
		args = []any{}
	}
	rows := &sql.Rows{}
	if err := s.driver.Query(ctx, stmt, args, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Insert inserts obj, a pointer to an entity, followed by the join-table
// rows of its many-to-many relations, in one transaction. Generated keys
// are assigned to obj.
func (s *Session) Insert(ctx context.Context, obj any) error {
	e, err := s.reg.EntityOf(obj)
	if err != nil {
		return err
	}
	rv, err := e.Indirect(obj)
	if err != nil {
		return err
	}
	stmt, err := s.solver.Insert(obj)
	if err != nil {
		return err
	}
	return s.atomic(ctx, func(tx *Session) error {
		if err := tx.insert(ctx, e, rv, stmt); err != nil {
			return err
		}
		links, err := tx.solver.ManyToManyInserts(obj)
		if err != nil {
			return err
		}
		for _, link := range links {
			if _, err := tx.Exec(ctx, link); err != nil {
				return err
			}
		}
		return nil
	})
}

// insert executes the insert of rv and assigns its generated key, read from
// the returned row or from the driver's last insert id.
func (s *Session) insert(ctx context.Context, e *schema.Entity, rv reflect.Value, stmt *solver.Statement) error {
	if len(stmt.Returning) > 0 {
		rows := &sql.Rows{}
		if err := s.driver.Query(ctx, stmt.Query, s.args(stmt.Args), rows); err != nil {
			return err
		}
		defer rows.Close()
		ok, err := s.mapper.Fill(rows, rv.Addr().Interface())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("loom: insert into %s returned no row", e.Table)
		}
		return nil
	}
	res, err := s.Exec(ctx, stmt)
	if err != nil {
		return err
	}
	key := generatedKey(e)
	if key == nil {
		return nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	return key.Set(rv, id)
}

// generatedKey returns the key column of e if it is a single generated
// integer, the only kind of key reported by LastInsertId.
func generatedKey(e *schema.Entity) *schema.Column {
	if len(e.Keys) != 1 || !e.Keys[0].Generated {
		return nil
	}
	switch k := e.Keys[0].Type.Kind(); {
	case k >= reflect.Int && k <= reflect.Int64, k >= reflect.Uint && k <= reflect.Uint64:
		return e.Keys[0]
	}
	return nil
}

// Update writes the columns of obj to its row.
func (s *Session) Update(ctx context.Context, obj any, opts ...solver.UpdateOption) error {
	stmt, err := s.solver.Update(obj, opts...)
	if err != nil {
		return err
	}
	_, err = s.Exec(ctx, stmt)
	return err
}

// Delete deletes the row of obj. It returns a NotFoundError if no row was
// deleted.
func (s *Session) Delete(ctx context.Context, obj any) error {
	stmt, err := s.solver.Delete(obj)
	if err != nil {
		return err
	}
	res, err := s.Exec(ctx, stmt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		e, _ := s.reg.EntityOf(obj)
		return loom.NewNotFoundError(e.Table)
	}
	return nil
}

// Connect links a to b through the relation named rel of a.
func (s *Session) Connect(ctx context.Context, a, b any, rel string) error {
	stmt, err := s.solver.Connect(a, b, rel)
	if err != nil {
		return err
	}
	_, err = s.Exec(ctx, stmt)
	return err
}

// Disconnect unlinks a from b through the relation named rel of a.
func (s *Session) Disconnect(ctx context.Context, a, b any, rel string) error {
	stmt, err := s.solver.Disconnect(a, b, rel)
	if err != nil {
		return err
	}
	_, err = s.Exec(ctx, stmt)
	return err
}

// Exec executes a write statement, binding its arguments for the dialect.
func (s *Session) Exec(ctx context.Context, stmt *solver.Statement) (sql.Result, error) {
	var res sql.Result
	if err := s.driver.Exec(ctx, stmt.Query, s.args(stmt.Args), &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Session) args(literals []query.Literal) []any {
	args := make([]any, len(literals))
	for i, l := range literals {
		args[i] = s.dialect.Arg(l)
	}
	return args
}

// Transaction runs fn with a session bound to a new transaction. The
// transaction is rolled back if fn returns an error or panics, and committed
// otherwise. Starting a transaction from a transaction-bound session fails
// with ErrTxStarted.
//
//	err := s.Transaction(ctx, func(tx *session.Session) error {
//	    if err := tx.Insert(ctx, project); err != nil {
//	        return err
//	    }
//	    return tx.Connect(ctx, lead, project, "projects")
//	})
func (s *Session) Transaction(ctx context.Context, fn func(tx *Session) error) error {
	if _, ok := s.driver.(*txDriver); ok {
		return loom.ErrTxStarted
	}
	tx, err := s.driver.Tx(ctx)
	if err != nil {
		return fmt.Errorf("loom: starting a transaction: %w", err)
	}
	log := s.log.With(zap.String("tx", uuid.NewString()))
	log.Debug("transaction started")
	txs := &Session{options: s.options}
	txs.driver = &txDriver{tx: tx, dialect: s.driver.Dialect()}
	txs.log = log
	defer func() {
		if v := recover(); v != nil {
			if err := tx.Rollback(); err != nil {
				log.Error("rollback failed", zap.Error(err))
			}
			log.Warn("transaction rolled back", zap.Any("panic", v))
			panic(v)
		}
	}()
	if err := fn(txs); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			log.Error("rollback failed", zap.Error(rerr))
			return fmt.Errorf("%w: %w", err, &loom.RollbackError{Err: rerr})
		}
		log.Debug("transaction rolled back", zap.Error(err))
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("loom: committing transaction: %w", err)
	}
	log.Debug("transaction committed")
	return nil
}

// atomic runs fn in the current transaction, or in a new one.
func (s *Session) atomic(ctx context.Context, fn func(*Session) error) error {
	if _, ok := s.driver.(*txDriver); ok {
		return fn(s)
	}
	return s.Transaction(ctx, fn)
}

// txDriver binds a session to one transaction.
type txDriver struct {
	tx      dialect.Tx
	dialect string
}

// Exec calls tx.Exec.
func (d *txDriver) Exec(ctx context.Context, query string, args, v any) error {
	return d.tx.Exec(ctx, query, args, v)
}

// Query calls tx.Query.
func (d *txDriver) Query(ctx context.Context, query string, args, v any) error {
	return d.tx.Query(ctx, query, args, v)
}

// Tx fails; transactions do not nest.
func (*txDriver) Tx(context.Context) (dialect.Tx, error) { return nil, loom.ErrTxStarted }

// Close is a no-op. The transaction ends with Transaction.
func (*txDriver) Close() error { return nil }

// Dialect returns the dialect name of the underlying driver.
func (d *txDriver) Dialect() string { return d.dialect }

var _ dialect.Driver = (*txDriver)(nil)

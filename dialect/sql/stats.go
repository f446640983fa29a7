package sql

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/syssam/loom/dialect"

	"go.uber.org/zap"
)

// Kind classifies a statement by its leading keyword.
type Kind uint8

// Statement kinds.
const (
	KindOther Kind = iota
	KindSelect
	KindInsert
	KindUpdate
	KindDelete
	kindCount
)

// String returns the lower-case keyword of the kind.
func (k Kind) String() string {
	switch k {
	case KindSelect:
		return "select"
	case KindInsert:
		return "insert"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	}
	return "other"
}

// KindOf returns the kind of the statement query. Common table expressions
// count as selects.
func KindOf(query string) Kind {
	query = strings.TrimLeft(query, " \t\r\n(")
	word := query
	if i := strings.IndexAny(query, " \t\r\n("); i >= 0 {
		word = query[:i]
	}
	switch strings.ToUpper(word) {
	case "SELECT", "WITH":
		return KindSelect
	case "INSERT":
		return KindInsert
	case "UPDATE":
		return KindUpdate
	case "DELETE":
		return KindDelete
	}
	return KindOther
}

type counter struct {
	count   atomic.Int64
	errors  atomic.Int64
	slow    atomic.Int64
	elapsed atomic.Int64 // nanoseconds
}

// QueryStats counts the statements executed through a StatsDriver by kind,
// and the outcome of its transactions. It is safe for concurrent use.
type QueryStats struct {
	kinds     [kindCount]counter
	commits   atomic.Int64
	rollbacks atomic.Int64
}

func (s *QueryStats) record(k Kind, elapsed time.Duration, failed, slow bool) {
	c := &s.kinds[k]
	c.count.Add(1)
	c.elapsed.Add(int64(elapsed))
	if failed {
		c.errors.Add(1)
	}
	if slow {
		c.slow.Add(1)
	}
}

// Snapshot returns the current counters.
func (s *QueryStats) Snapshot() Snapshot {
	snap := Snapshot{
		Kinds:     make(map[Kind]KindStats),
		Commits:   s.commits.Load(),
		Rollbacks: s.rollbacks.Load(),
	}
	for k := range s.kinds {
		c := &s.kinds[k]
		if n := c.count.Load(); n > 0 {
			snap.Kinds[Kind(k)] = KindStats{
				Count:   n,
				Errors:  c.errors.Load(),
				Slow:    c.slow.Load(),
				Elapsed: time.Duration(c.elapsed.Load()),
			}
		}
	}
	return snap
}

// Reset sets every counter to zero.
func (s *QueryStats) Reset() {
	for k := range s.kinds {
		c := &s.kinds[k]
		c.count.Store(0)
		c.errors.Store(0)
		c.slow.Store(0)
		c.elapsed.Store(0)
	}
	s.commits.Store(0)
	s.rollbacks.Store(0)
}

// KindStats holds the counters of one statement kind.
type KindStats struct {
	Count   int64
	Errors  int64
	Slow    int64
	Elapsed time.Duration
}

// Avg returns the mean duration of the statements.
func (k KindStats) Avg() time.Duration {
	if k.Count == 0 {
		return 0
	}
	return k.Elapsed / time.Duration(k.Count)
}

// Snapshot is a point-in-time copy of QueryStats. Kinds holds only the
// kinds that were executed.
type Snapshot struct {
	Kinds     map[Kind]KindStats
	Commits   int64
	Rollbacks int64
}

// Total sums the counters of all kinds.
func (s Snapshot) Total() KindStats {
	var t KindStats
	for _, k := range s.Kinds {
		t.Count += k.Count
		t.Errors += k.Errors
		t.Slow += k.Slow
		t.Elapsed += k.Elapsed
	}
	return t
}

// String summarizes the snapshot, for example
// "select=3 insert=1 errors=0 slow=1 commits=1 rollbacks=0".
func (s Snapshot) String() string {
	var b strings.Builder
	for k := Kind(0); k < kindCount; k++ {
		if ks, ok := s.Kinds[k]; ok {
			fmt.Fprintf(&b, "%s=%d ", k, ks.Count)
		}
	}
	t := s.Total()
	fmt.Fprintf(&b, "errors=%d slow=%d commits=%d rollbacks=%d", t.Errors, t.Slow, s.Commits, s.Rollbacks)
	return b.String()
}

// SlowQueryHook is called with every statement slower than the threshold
// of a StatsDriver.
type SlowQueryHook func(ctx context.Context, query string, args []any, elapsed time.Duration)

// StatsDriver is a dialect.Driver that counts statements and reports slow
// ones.
type StatsDriver struct {
	dialect.Driver
	stats     *QueryStats
	threshold time.Duration
	hooks     []SlowQueryHook
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the duration above which a statement is slow.
// The default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.threshold = d
	}
}

// WithSlowQueryHook adds a hook called with every slow statement.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsDriver) {
		s.hooks = append(s.hooks, hook)
	}
}

// WithSlowQueryLog logs slow statements at warn level.
func WithSlowQueryLog(log *zap.Logger) StatsOption {
	return WithSlowQueryHook(func(_ context.Context, query string, args []any, elapsed time.Duration) {
		log.Warn("slow statement",
			zap.Stringer("kind", KindOf(query)),
			zap.Duration("elapsed", elapsed),
			zap.String("query", query),
			zap.Any("args", args),
		)
	})
}

// NewStatsDriver wraps drv with statement statistics.
//
//	drv := sql.NewStatsDriver(sql.OpenDB(dialect.Postgres, db),
//	    sql.WithSlowThreshold(200*time.Millisecond),
//	    sql.WithSlowQueryLog(logger),
//	)
//	s := session.New(drv, dialect.NewPostgres(), reg)
//	...
//	logger.Info("statements", zap.Stringer("stats", drv.QueryStats().Snapshot()))
func NewStatsDriver(drv dialect.Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{
		Driver:    drv,
		stats:     &QueryStats{},
		threshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryStats returns the statistics of the driver and its transactions.
func (d *StatsDriver) QueryStats() *QueryStats {
	return d.stats
}

// Query records the statistics of a query.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	return d.observe(ctx, query, args, func() error {
		return d.Driver.Query(ctx, query, args, v)
	})
}

// Exec records the statistics of a statement.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	return d.observe(ctx, query, args, func() error {
		return d.Driver.Exec(ctx, query, args, v)
	})
}

func (d *StatsDriver) observe(ctx context.Context, query string, args any, run func() error) error {
	start := time.Now()
	err := run()
	elapsed := time.Since(start)
	slow := elapsed > d.threshold
	d.stats.record(KindOf(query), elapsed, err != nil, slow)
	if slow {
		argv, _ := args.([]any)
		for _, hook := range d.hooks {
			hook(ctx, query, argv, elapsed)
		}
	}
	return err
}

// Tx starts a transaction whose statements and outcome are recorded.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &StatsTx{Tx: tx, driver: d}, nil
}

// StatsTx is a transaction of a StatsDriver.
type StatsTx struct {
	dialect.Tx
	driver *StatsDriver
}

// Query records the statistics of a query.
func (tx *StatsTx) Query(ctx context.Context, query string, args, v any) error {
	return tx.driver.observe(ctx, query, args, func() error {
		return tx.Tx.Query(ctx, query, args, v)
	})
}

// Exec records the statistics of a statement.
func (tx *StatsTx) Exec(ctx context.Context, query string, args, v any) error {
	return tx.driver.observe(ctx, query, args, func() error {
		return tx.Tx.Exec(ctx, query, args, v)
	})
}

// Commit commits the transaction and counts it.
func (tx *StatsTx) Commit() error {
	if err := tx.Tx.Commit(); err != nil {
		return err
	}
	tx.driver.stats.commits.Add(1)
	return nil
}

// Rollback rolls back the transaction and counts it.
func (tx *StatsTx) Rollback() error {
	if err := tx.Tx.Rollback(); err != nil {
		return err
	}
	tx.driver.stats.rollbacks.Add(1)
	return nil
}

// DebugDriver is a dialect.Driver that logs every statement at debug level,
// after it ran, with its kind, arguments, duration and error.
type DebugDriver struct {
	dialect.Driver
	log *zap.Logger
}

// NewDebugDriver wraps drv with statement logging.
func NewDebugDriver(drv dialect.Driver, log *zap.Logger) *DebugDriver {
	if log == nil {
		log = zap.NewNop()
	}
	return &DebugDriver{Driver: drv, log: log}
}

// Query logs a query.
func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	return debug(d.log, "query", query, args, func() error {
		return d.Driver.Query(ctx, query, args, v)
	})
}

// Exec logs a statement.
func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	return debug(d.log, "exec", query, args, func() error {
		return d.Driver.Exec(ctx, query, args, v)
	})
}

// Tx starts a transaction whose statements are logged with in_tx set.
func (d *DebugDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		d.log.Debug("begin transaction", zap.Error(err))
		return nil, err
	}
	d.log.Debug("begin transaction")
	return &DebugTx{Tx: tx, log: d.log.With(zap.Bool("in_tx", true))}, nil
}

// DebugTx is a transaction of a DebugDriver.
type DebugTx struct {
	dialect.Tx
	log *zap.Logger
}

// Query logs a query.
func (tx *DebugTx) Query(ctx context.Context, query string, args, v any) error {
	return debug(tx.log, "query", query, args, func() error {
		return tx.Tx.Query(ctx, query, args, v)
	})
}

// Exec logs a statement.
func (tx *DebugTx) Exec(ctx context.Context, query string, args, v any) error {
	return debug(tx.log, "exec", query, args, func() error {
		return tx.Tx.Exec(ctx, query, args, v)
	})
}

// Commit logs the commit.
func (tx *DebugTx) Commit() error {
	err := tx.Tx.Commit()
	tx.log.Debug("commit transaction", zap.Error(err))
	return err
}

// Rollback logs the rollback.
func (tx *DebugTx) Rollback() error {
	err := tx.Tx.Rollback()
	tx.log.Debug("rollback transaction", zap.Error(err))
	return err
}

func debug(log *zap.Logger, msg, query string, args any, run func() error) error {
	start := time.Now()
	err := run()
	log.Debug(msg,
		zap.Stringer("kind", KindOf(query)),
		zap.String("query", query),
		zap.Any("args", args),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err),
	)
	return err
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*StatsTx)(nil)
	_ dialect.Driver = (*DebugDriver)(nil)
	_ dialect.Tx     = (*DebugTx)(nil)
)

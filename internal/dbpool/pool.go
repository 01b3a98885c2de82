// Package dbpool owns every connection pool in the process. No other
// package constructs a pool directly.
package dbpool

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dbquery-gateway/gateway/internal/dbregistry"
	"github.com/dbquery-gateway/gateway/internal/errs"
)

// Connection is the capability-style handle returned by Acquire. Callers
// borrow it for exactly one execute call and then Release it; the pool
// remains the sole owner.
type Connection struct {
	Dialect dbregistry.Dialect
	PG      *pgxpool.Conn // set when Dialect == postgres
	SQL     *sql.Conn     // set when Dialect == mysql
	pool    *dbPool
}

func (c *Connection) release() {
	if c.PG != nil {
		c.PG.Release()
	}
	if c.SQL != nil {
		c.SQL.Close()
	}
}

type dbPool struct {
	desc dbregistry.Descriptor

	// ctx is the pool's own lifetime context, independent of any single
	// request that happens to trigger creation. pgxpool keeps it for its
	// background health-check loop and in-progress connection
	// construction; cancel forces both to abort instead of outliving a
	// shutdown deadline.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pg      *pgxpool.Pool
	sqldb   *sql.DB
	closing bool
	created bool
	inUse   int
}

// CloseOutcome reports the result of closing a single pool during
// shutdown.
type CloseOutcome struct {
	Name     string
	Graceful bool
	Err      error
}

// Manager lazily creates one pool per registered database and owns its
// entire lifecycle.
type Manager struct {
	registry *dbregistry.Registry

	mu    sync.Mutex
	pools map[string]*dbPool
}

func NewManager(registry *dbregistry.Registry) *Manager {
	return &Manager{registry: registry, pools: make(map[string]*dbPool)}
}

func (m *Manager) poolFor(name string) (*dbPool, *errs.Error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.pools[name]; ok {
		return p, nil
	}
	desc, ok := m.registry.Get(name)
	if !ok {
		return nil, errs.New(errs.KindUnknownDB, fmt.Sprintf("database %q is not registered", name))
	}
	poolCtx, cancel := context.WithCancel(context.Background())
	p := &dbPool{desc: desc, ctx: poolCtx, cancel: cancel}
	m.pools[name] = p
	return p, nil
}

func (m *Manager) ensureCreated(ctx context.Context, p *dbPool, dbName string) *errs.Error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closing {
		return errs.New(errs.KindPoolClosing, fmt.Sprintf("pool for %q is shutting down", dbName))
	}
	if !p.created {
		if err := createPool(ctx, p); err != nil {
			return errs.Wrap(errs.KindConnectFailed, err, fmt.Sprintf("failed to connect to %q", dbName))
		}
		p.created = true
	}
	return nil
}

// Acquire lazily creates the pool for db_name on first use, then borrows
// one connection from it.
func (m *Manager) Acquire(ctx context.Context, dbName string) (*Connection, *errs.Error) {
	p, gerr := m.poolFor(dbName)
	if gerr != nil {
		return nil, gerr
	}

	if gerr := m.ensureCreated(ctx, p, dbName); gerr != nil {
		return nil, gerr
	}

	switch p.desc.Dialect {
	case dbregistry.DialectPostgres:
		conn, err := p.pg.Acquire(ctx)
		if err != nil {
			return nil, classifyAcquireErr(err, dbName)
		}
		p.mu.Lock()
		p.inUse++
		p.mu.Unlock()
		return &Connection{Dialect: dbregistry.DialectPostgres, PG: conn, pool: p}, nil
	case dbregistry.DialectMySQL:
		conn, err := p.sqldb.Conn(ctx)
		if err != nil {
			return nil, classifyAcquireErr(err, dbName)
		}
		p.mu.Lock()
		p.inUse++
		p.mu.Unlock()
		return &Connection{Dialect: dbregistry.DialectMySQL, SQL: conn, pool: p}, nil
	default:
		return nil, errs.New(errs.KindInternalError, "unknown dialect in pool")
	}
}

// RawHandles lazily creates the pool for dbName and returns its
// driver-native handle, for use by the schema introspector: exactly one
// of the two return values is non-nil depending on dialect.
func (m *Manager) RawHandles(ctx context.Context, dbName string) (*pgxpool.Pool, *sql.DB, *errs.Error) {
	p, gerr := m.poolFor(dbName)
	if gerr != nil {
		return nil, nil, gerr
	}
	if gerr := m.ensureCreated(ctx, p, dbName); gerr != nil {
		return nil, nil, gerr
	}
	return p.pg, p.sqldb, nil
}

func classifyAcquireErr(err error, dbName string) *errs.Error {
	if err == context.DeadlineExceeded {
		return errs.Wrap(errs.KindTimeout, err, fmt.Sprintf("timed out acquiring connection for %q", dbName))
	}
	return errs.Wrap(errs.KindPoolExhausted, err, fmt.Sprintf("could not acquire connection for %q", dbName))
}

func createPool(ctx context.Context, p *dbPool) error {
	switch p.desc.Dialect {
	case dbregistry.DialectPostgres:
		cfg, err := pgxpool.ParseConfig(p.desc.URI)
		if err != nil {
			return err
		}
		cfg.MinConns = int32(p.desc.PoolMin)
		cfg.MaxConns = int32(p.desc.PoolMax)
		pool, err := pgxpool.NewWithConfig(p.ctx, cfg)
		if err != nil {
			return err
		}
		p.pg = pool
		return nil
	case dbregistry.DialectMySQL:
		db, err := sql.Open("mysql", p.desc.URI)
		if err != nil {
			return err
		}
		db.SetMaxOpenConns(p.desc.PoolMax)
		db.SetMaxIdleConns(p.desc.PoolMin)
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return err
		}
		p.sqldb = db
		return nil
	default:
		return fmt.Errorf("unsupported dialect %q", p.desc.Dialect)
	}
}

// Release returns a connection to its pool. Idempotent: releasing an
// already-released connection is a no-op.
func (m *Manager) Release(c *Connection) {
	if c == nil || c.pool == nil {
		return
	}
	c.release()
	c.pool.mu.Lock()
	if c.pool.inUse > 0 {
		c.pool.inUse--
	}
	c.pool.mu.Unlock()
	c.pool = nil
}

// PoolStat is a health-check snapshot of one pool.
type PoolStat struct {
	Name   string
	Open   int
	InUse  int
}

func (m *Manager) Stats() []PoolStat {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PoolStat, 0, len(m.pools))
	for name, p := range m.pools {
		p.mu.Lock()
		stat := PoolStat{Name: name, InUse: p.inUse}
		if p.desc.Dialect == dbregistry.DialectPostgres && p.pg != nil {
			st := p.pg.Stat()
			stat.Open = int(st.TotalConns())
		} else if p.sqldb != nil {
			stat.Open = p.sqldb.Stats().OpenConnections
		}
		p.mu.Unlock()
		out = append(out, stat)
	}
	return out
}

// CloseAll marks every pool closing (new acquires fail immediately with
// pool_closing), then drains each pool gracefully up to deadline/pool
// count, forcibly terminating any that don't drain in time.
func (m *Manager) CloseAll(ctx context.Context, deadline time.Duration) []CloseOutcome {
	m.mu.Lock()
	pools := make(map[string]*dbPool, len(m.pools))
	for k, v := range m.pools {
		v.mu.Lock()
		v.closing = true
		v.mu.Unlock()
		pools[k] = v
	}
	m.mu.Unlock()

	if len(pools) == 0 {
		return nil
	}

	perPool := deadline / time.Duration(len(pools))
	if perPool <= 0 {
		perPool = deadline
	}

	var wg sync.WaitGroup
	outcomes := make([]CloseOutcome, len(pools))
	i := 0
	for name, p := range pools {
		wg.Add(1)
		go func(i int, name string, p *dbPool) {
			defer wg.Done()
			outcomes[i] = closeOnePool(ctx, name, p, perPool)
		}(i, name, p)
		i++
	}
	wg.Wait()
	return outcomes
}

func closeOnePool(ctx context.Context, name string, p *dbPool, timeout time.Duration) CloseOutcome {
	if !p.created {
		return CloseOutcome{Name: name, Graceful: true}
	}

	done := make(chan struct{})
	go func() {
		if p.desc.Dialect == dbregistry.DialectPostgres && p.pg != nil {
			p.pg.Close()
		} else if p.sqldb != nil {
			p.sqldb.Close()
		}
		close(done)
	}()

	select {
	case <-done:
		return CloseOutcome{Name: name, Graceful: true}
	case <-time.After(timeout):
		// Cancel the pool's own context: this aborts its background
		// health-check loop and any connection construction still in
		// flight immediately, rather than leaving Close() to drain on
		// its own schedule after this call has already given up on it.
		if p.cancel != nil {
			p.cancel()
		}
		return CloseOutcome{Name: name, Graceful: false, Err: fmt.Errorf("pool %q did not drain within %s", name, timeout)}
	}
}

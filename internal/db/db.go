package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/vbonduro/jartrack/internal/domain"
	_ "modernc.org/sqlite"
)

// errHandleClosed mirrors the message database/sql uses for a closed pool.
var errHandleClosed = errors.New("sql: database is closed")

// Queryer is satisfied by both *sql.DB and *sql.Tx.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Handle owns the single connection to the local store. Mutations are
// serialized behind one writer lock; reads share the lock. An invalidated
// connection is reopened and the operation retried once.
type Handle struct {
	path   string
	logger *slog.Logger

	rw sync.RWMutex

	mu       sync.Mutex
	db       *sql.DB
	onReopen []func()
}

type Option func(*Handle)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handle) { h.logger = logger }
}

// Open opens (creating if needed) the database at dbPath and brings its
// schema up to date.
func Open(dbPath string, opts ...Option) (*Handle, error) {
	h := &Handle{path: dbPath, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}

	db, err := openConn(dbPath)
	if err != nil {
		return nil, err
	}
	if err := runMigrations(db); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("failed to run migrations: %w (also failed to close db: %v)", err, cerr)
		}
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	h.db = db
	return h, nil
}

// OpenForTesting opens a fresh in-memory database with the full schema.
func OpenForTesting() (*Handle, error) {
	return Open(":memory:")
}

func openConn(dbPath string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: pragmas are per connection and an in-memory database
	// lives only as long as its connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// DB returns the current underlying connection pool.
func (h *Handle) DB() *sql.DB {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.db
}

// OnReopen registers fn to run after every successful reopen.
func (h *Handle) OnReopen(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onReopen = append(h.onReopen, fn)
}

// Read runs fn against the connection. fn may be called twice if the first
// attempt hits an invalidated handle, so it must not leak partial results.
func (h *Handle) Read(ctx context.Context, fn func(q Queryer) error) error {
	h.rw.RLock()
	defer h.rw.RUnlock()
	return h.withRetry(func(db *sql.DB) error { return fn(db) })
}

// Write runs fn inside a single transaction while holding the writer lock.
// Any error from fn rolls the whole transaction back. Like Read, fn may be
// retried once after a reopen.
func (h *Handle) Write(ctx context.Context, fn func(tx *sql.Tx) error) error {
	h.rw.Lock()
	defer h.rw.Unlock()
	return h.withRetry(func(db *sql.DB) error { return h.runTx(ctx, db, fn) })
}

func (h *Handle) runTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
			h.logger.Error("failed to roll back transaction", "error", rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (h *Handle) withRetry(op func(db *sql.DB) error) error {
	current := h.DB()
	err := errHandleClosed
	if current != nil {
		err = op(current)
	}
	if err == nil || !isUnavailable(err) {
		return err
	}

	h.logger.Warn("storage handle invalidated, reopening", "path", h.path, "error", err)
	if rerr := h.reopen(current); rerr != nil {
		return domain.StorageUnavailable(errors.Join(err, rerr))
	}

	retry := h.DB()
	if retry == nil {
		return domain.StorageUnavailable(errHandleClosed)
	}
	if err := op(retry); err != nil {
		if isUnavailable(err) {
			return domain.StorageUnavailable(err)
		}
		return err
	}
	return nil
}

// Reopen discards the current connection and opens a new one.
func (h *Handle) Reopen() error {
	return h.reopen(h.DB())
}

// reopen replaces stale with a fresh connection. It is a no-op when another
// caller already replaced it.
func (h *Handle) reopen(stale *sql.DB) error {
	h.mu.Lock()
	if h.db != stale {
		h.mu.Unlock()
		return nil
	}
	if stale != nil {
		_ = stale.Close()
	}

	db, err := openConn(h.path)
	if err != nil {
		h.mu.Unlock()
		return err
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		h.mu.Unlock()
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	h.db = db
	callbacks := append([]func(){}, h.onReopen...)
	h.mu.Unlock()

	h.logger.Info("storage handle reopened", "path", h.path)
	for _, fn := range callbacks {
		fn()
	}
	return nil
}

func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.db == nil {
		return nil
	}
	err := h.db.Close()
	h.db = nil
	return err
}

// isUnavailable reports whether err means the connection itself is gone, as
// opposed to a failed statement.
func isUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	return strings.Contains(err.Error(), "sql: database is closed")
}

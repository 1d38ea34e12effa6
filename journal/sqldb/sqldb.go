/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package sqldb provides a journal.Client backed by a relational database through database/sql.
//
// The client pins a single connection. Transactions are native database transactions, so the
// isolation between the working view and other readers is the engine's own. The journal is a
// physical table with the columns timestamp (primary key), operation, migration_id and
// migration_name. Table names are passed through to the statements without validation.
//
// Supported dialects: PostgreSQL (lib/pq and pgx), MySQL, SQLite (mattn/go-sqlite3 and the
// cgo-free modernc.org/sqlite) and SQL Server. Importing this package registers all drivers.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/acronis/go-appkit/log"

	"github.com/acronis/go-dbjournal"
	"github.com/acronis/go-dbjournal/journal"
)

// BackendName identifies the backend in errors.
const BackendName = "sql"

// Statements reported in errors for transaction control.
const (
	beginStatement    = "BEGIN"
	commitStatement   = "COMMIT"
	rollbackStatement = "ROLLBACK"
)

// Operation names used as metrics labels.
const (
	opBegin           = "begin"
	opCommit          = "commit"
	opRollback        = "rollback"
	opEnsureJournal   = "ensure_journal"
	opAppendJournal   = "append_journal"
	opReadJournal     = "read_journal"
	opRunMigrationSQL = "run_migration_sql"
)

type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Client is a journal.Client working over a single pinned database connection.
type Client struct {
	db      *sql.DB
	ownsDB  bool
	conn    *sql.Conn
	tx      *sql.Tx
	closed  bool
	dialect dbjournal.Dialect
	queries dbQueries
	clock   hostClock

	txOptions *sql.TxOptions
	logger    log.FieldLogger
	metrics   *dbjournal.PrometheusMetrics
}

var _ journal.Client = (*Client)(nil)

// Option is a functional option for the relational Client.
type Option func(*clientOptions)

type clientOptions struct {
	txIsolationLevel sql.IsolationLevel
	logger           log.FieldLogger
	metrics          *dbjournal.PrometheusMetrics
	now              func() time.Time
}

// WithTxIsolationLevel sets the isolation level of transactions started by BeginTx.
// Connect sets it from the config, the driver default is used otherwise.
func WithTxIsolationLevel(level sql.IsolationLevel) Option {
	return func(o *clientOptions) {
		o.txIsolationLevel = level
	}
}

// WithLogger sets a logger for transaction lifecycle and statement debug messages.
func WithLogger(logger log.FieldLogger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithMetrics enables collecting statement durations.
func WithMetrics(metrics *dbjournal.PrometheusMetrics) Option {
	return func(o *clientOptions) {
		o.metrics = metrics
	}
}

// WithHostClock sets the clock used to stamp entries for embedded engines (SQLite). time.Now is used by default.
func WithHostClock(now func() time.Time) Option {
	return func(o *clientOptions) {
		o.now = now
	}
}

// Connect opens the database described by cfg and pins a connection for the client.
// Any failure is returned as *journal.ConnectionError.
func Connect(ctx context.Context, cfg *dbjournal.Config, options ...Option) (*Client, error) {
	db, err := dbjournal.Open(cfg, false)
	if err != nil {
		return nil, &journal.ConnectionError{Backend: BackendName, Err: err}
	}
	opts := append([]Option{WithTxIsolationLevel(cfg.TxIsolationLevel())}, options...)
	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeoutOrDefault())
	defer cancel()
	c, err := newClient(connectCtx, db, cfg.Dialect, true, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// New pins a connection from an existing pool. The caller keeps ownership of db:
// Close returns the connection to the pool but doesn't close it.
func New(ctx context.Context, db *sql.DB, dialect dbjournal.Dialect, options ...Option) (*Client, error) {
	return newClient(ctx, db, dialect, false, options...)
}

func newClient(ctx context.Context, db *sql.DB, dialect dbjournal.Dialect, ownsDB bool, options ...Option) (*Client, error) {
	var opts clientOptions
	for _, opt := range options {
		opt(&opts)
	}
	if opts.logger == nil {
		opts.logger = log.NewDisabledLogger()
	}
	if opts.now == nil {
		opts.now = time.Now
	}

	queries, err := newDBQueries(dialect)
	if err != nil {
		return nil, &journal.ConnectionError{Backend: BackendName, Err: err}
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, &journal.ConnectionError{Backend: BackendName, Err: fmt.Errorf("get connection: %w", err)}
	}
	if err = conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, &journal.ConnectionError{Backend: BackendName, Err: fmt.Errorf("ping database: %w", err)}
	}

	c := &Client{
		db:      db,
		ownsDB:  ownsDB,
		conn:    conn,
		dialect: dialect,
		queries: queries,
		clock:   hostClock{now: opts.now},
		logger:  opts.logger.With(log.String("dialect", string(dialect))),
		metrics: opts.metrics,
	}
	// Drivers reject explicit isolation levels they don't implement, so the default one is never sent.
	if opts.txIsolationLevel != sql.LevelDefault {
		c.txOptions = &sql.TxOptions{Isolation: opts.txIsolationLevel}
	}
	return c, nil
}

// Dialect returns the SQL dialect of the client.
func (c *Client) Dialect() dbjournal.Dialect {
	return c.dialect
}

// Close rolls back an open transaction and releases the pinned connection.
// The pool is closed too when the client was created by Connect.
func (c *Client) Close(ctx context.Context) error {
	if c.closed {
		return journal.ErrClosed
	}
	c.closed = true

	var errs []error
	if c.tx != nil {
		c.logger.Warn("closing journal client with an open transaction, rolling back")
		if err := c.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			errs = append(errs, newStatementError(rollbackStatement, err))
		}
		c.tx = nil
	}
	if err := c.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		errs = append(errs, fmt.Errorf("close connection: %w", err))
	}
	if c.ownsDB {
		if err := c.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

// BeginTx starts a native transaction on the pinned connection.
func (c *Client) BeginTx(ctx context.Context) error {
	if c.closed {
		return journal.ErrClosed
	}
	if c.tx != nil {
		return &journal.TransactionError{Op: "begin transaction", Err: journal.ErrTxInProgress}
	}
	defer c.observe(opBegin, time.Now())
	// The transaction outlives ctx and ends only on Commit, Rollback or Close.
	tx, err := c.conn.BeginTx(context.WithoutCancel(ctx), c.txOptions)
	if err != nil {
		return newStatementError(beginStatement, err)
	}
	c.tx = tx
	c.logger.Debug("journal transaction started")
	return nil
}

// Commit commits the open transaction. The client leaves the transaction state even if the commit fails.
func (c *Client) Commit(ctx context.Context) error {
	tx, err := c.finishTx("commit transaction")
	if err != nil {
		return err
	}
	defer c.observe(opCommit, time.Now())
	if err = tx.Commit(); err != nil {
		return newStatementError(commitStatement, err)
	}
	c.logger.Debug("journal transaction committed")
	return nil
}

// Rollback rolls back the open transaction.
func (c *Client) Rollback(ctx context.Context) error {
	tx, err := c.finishTx("rollback transaction")
	if err != nil {
		return err
	}
	defer c.observe(opRollback, time.Now())
	if err = tx.Rollback(); err != nil {
		return newStatementError(rollbackStatement, err)
	}
	c.logger.Debug("journal transaction rolled back")
	return nil
}

func (c *Client) finishTx(op string) (*sql.Tx, error) {
	if c.closed {
		return nil, journal.ErrClosed
	}
	if c.tx == nil {
		return nil, &journal.TransactionError{Op: op, Err: journal.ErrNoTx}
	}
	tx := c.tx
	c.tx = nil
	return tx, nil
}

// InTx reports whether a transaction is open.
func (c *Client) InTx() bool {
	return c.tx != nil
}

// EnsureJournal creates the journal table unless it exists.
func (c *Client) EnsureJournal(ctx context.Context, table string) error {
	if c.closed {
		return journal.ErrClosed
	}
	defer c.observe(opEnsureJournal, time.Now())
	query := c.queries.createTableSQL(table)
	if _, err := c.executor().ExecContext(ctx, query); err != nil {
		// A concurrent creator won the race. Inside a transaction the error has already
		// poisoned it on some engines, so it is reported as is.
		if c.tx == nil && classifyError(err).duplicateTable {
			return nil
		}
		return newStatementError(query, err)
	}
	return nil
}

// AppendJournal inserts an entry stamped with the engine's current time.
func (c *Client) AppendJournal(ctx context.Context, table string, in journal.EntryIn) (journal.Entry, error) {
	if c.closed {
		return journal.Entry{}, journal.ErrClosed
	}
	if !in.Operation.Valid() {
		return journal.Entry{}, &journal.OperationDecodeError{Value: in.Operation.String()}
	}
	defer c.observe(opAppendJournal, time.Now())

	var boundTS interface{}
	var entryTS time.Time
	switch c.queries.tsSource {
	case timestampHostClock:
		entryTS = c.clock.next()
		boundTS = entryTS.Format(sqliteTimestampLayout)
	case timestampEngineQuery:
		var ts timestampValue
		if err := c.executor().QueryRowContext(ctx, c.queries.clockQuery).Scan(&ts); err != nil {
			return journal.Entry{}, newStatementError(c.queries.clockQuery, err)
		}
		entryTS = ts.Time
		boundTS = ts.Time
	}

	query, args, err := c.queries.insertSQL(table, boundTS, in.Operation.String(), in.MigrationID, in.MigrationName)
	if err != nil {
		return journal.Entry{}, fmt.Errorf("build insert statement: %w", err)
	}
	if c.queries.tsSource == timestampReturning {
		var ts timestampValue
		if err = c.executor().QueryRowContext(ctx, query, args...).Scan(&ts); err != nil {
			return journal.Entry{}, newTableStatementError(table, query, err)
		}
		entryTS = ts.Time
	} else if _, err = c.executor().ExecContext(ctx, query, args...); err != nil {
		return journal.Entry{}, newTableStatementError(table, query, err)
	}
	return journal.NewEntry(entryTS, in), nil
}

// ReadJournal selects the whole journal ordered by timestamp ascending.
func (c *Client) ReadJournal(ctx context.Context, table string) ([]journal.Entry, error) {
	if c.closed {
		return nil, journal.ErrClosed
	}
	defer c.observe(opReadJournal, time.Now())

	query, args, err := c.queries.selectSQL(table)
	if err != nil {
		return nil, fmt.Errorf("build select statement: %w", err)
	}
	rows, err := c.executor().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, newTableStatementError(table, query, err)
	}
	defer rows.Close() // nolint: errcheck

	entries := []journal.Entry{}
	for rows.Next() {
		var ts timestampValue
		var opLabel string
		var entry journal.Entry
		if err = rows.Scan(&ts, &opLabel, &entry.MigrationID, &entry.MigrationName); err != nil {
			return nil, newStatementError(query, err)
		}
		if entry.Operation, err = journal.ParseOperation(opLabel); err != nil {
			return nil, err
		}
		entry.Timestamp = ts.Time
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, newTableStatementError(table, query, err)
	}
	return entries, nil
}

// RunMigrationSQL executes a raw statement in the open transaction or on the connection.
func (c *Client) RunMigrationSQL(ctx context.Context, statement string) error {
	if c.closed {
		return journal.ErrClosed
	}
	defer c.observe(opRunMigrationSQL, time.Now())
	if _, err := c.executor().ExecContext(ctx, statement); err != nil {
		c.logger.Debug("migration statement failed", log.String("statement", statement), log.Error(err))
		return newStatementError(statement, err)
	}
	return nil
}

func (c *Client) executor() executor {
	if c.tx != nil {
		return c.tx
	}
	return c.conn
}

func (c *Client) observe(op string, start time.Time) {
	if c.metrics != nil {
		c.metrics.ObserveQueryDuration(c.dialect, op, time.Since(start))
	}
}

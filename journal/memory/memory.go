/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package memory provides an in-memory journal.Client.
//
// The backend keeps a DataSet (journal tables plus the history of raw statements) in process
// memory and simulates transactions by deep-copying it: BeginTx takes a working copy and
// remembers the size of every table, Commit appends what the transaction added to the live
// state, Rollback drops the working copy. Each transaction costs O(dataset size), which is
// fine for tests and dry-runs.
//
// Raw statements are never parsed or executed, only recorded. A statement starting with
// FailureMarker fails deterministically, which lets engines exercise their error paths.
package memory

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/acronis/go-dbjournal/journal"
)

// BackendName identifies the backend in errors.
const BackendName = "memory"

// FailureMarker is the prefix of raw statements that the backend rejects.
const FailureMarker = "ERROR"

// DataSet is the entire persisted state of the backend.
type DataSet struct {
	Tables map[string][]journal.Entry
	SQL    []string

	mu sync.Mutex
}

// NewDataSet creates an empty DataSet.
func NewDataSet() *DataSet {
	return &DataSet{Tables: make(map[string][]journal.Entry)}
}

func (ds *DataSet) clone() *DataSet {
	c := &DataSet{
		Tables: make(map[string][]journal.Entry, len(ds.Tables)),
		SQL:    slices.Clone(ds.SQL),
	}
	for name, entries := range ds.Tables {
		// Entry has no reference fields, so cloning the slice is a deep copy.
		c.Tables[name] = append(make([]journal.Entry, 0, len(entries)), entries...)
	}
	return c
}

// txBase is the shape of the live state at BeginTx.
type txBase struct {
	tables map[string]int
	sql    int
}

// Client is an in-memory journal.Client.
type Client struct {
	live        *DataSet
	transaction *DataSet
	base        txBase
	now         func() time.Time
	closed      bool
}

var _ journal.Client = (*Client)(nil)

// Option is a functional option for the in-memory Client.
type Option func(*Client)

// WithClock sets the function used to stamp appended entries. time.Now is used by default.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// Connect creates a Client whose live state is a private deep copy of the seeds in cfg.
func Connect(ctx context.Context, cfg Config, options ...Option) (*Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, &journal.ConnectionError{Backend: BackendName, Err: err}
	}
	seed := &DataSet{Tables: cfg.Tables, SQL: cfg.SQL}
	live := seed.clone()
	return newClient(live, options...), nil
}

// NewShared creates a Client on top of a caller-owned DataSet.
// Several clients created on the same DataSet see each other's committed changes.
func NewShared(ds *DataSet, options ...Option) *Client {
	if ds.Tables == nil {
		ds.Tables = make(map[string][]journal.Entry)
	}
	return newClient(ds, options...)
}

func newClient(live *DataSet, options ...Option) *Client {
	c := &Client{live: live, now: time.Now}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Close releases the client. An open transaction is discarded; committed state is kept.
func (c *Client) Close(ctx context.Context) error {
	c.live.mu.Lock()
	defer c.live.mu.Unlock()
	c.transaction, c.base = nil, txBase{}
	c.closed = true
	return nil
}

// BeginTx takes a working copy of the live state.
func (c *Client) BeginTx(ctx context.Context) error {
	c.live.mu.Lock()
	defer c.live.mu.Unlock()
	if err := c.checkUsable(); err != nil {
		return err
	}
	if c.transaction != nil {
		return &journal.TransactionError{Op: "begin transaction", Err: journal.ErrTxInProgress}
	}
	base := txBase{tables: make(map[string]int, len(c.live.Tables)), sql: len(c.live.SQL)}
	for name, entries := range c.live.Tables {
		base.tables[name] = len(entries)
	}
	c.transaction, c.base = c.live.clone(), base
	return nil
}

// Commit applies the tables, entries and statements added by the transaction to the live state.
// Changes committed meanwhile by other clients sharing the DataSet are kept.
func (c *Client) Commit(ctx context.Context) error {
	return c.finishTx("commit transaction", c.applyTx)
}

// Rollback discards the working copy.
func (c *Client) Rollback(ctx context.Context) error {
	return c.finishTx("rollback transaction", func() {})
}

func (c *Client) finishTx(op string, apply func()) error {
	c.live.mu.Lock()
	defer c.live.mu.Unlock()
	if err := c.checkUsable(); err != nil {
		return err
	}
	if c.transaction == nil {
		return &journal.TransactionError{Op: op, Err: journal.ErrNoTx}
	}
	apply()
	c.transaction, c.base = nil, txBase{}
	return nil
}

// applyTx must be called with the live lock held.
func (c *Client) applyTx() {
	for name, entries := range c.transaction.Tables {
		added := entries[c.base.tables[name]:]
		live, ok := c.live.Tables[name]
		if !ok {
			live = []journal.Entry{}
		}
		c.live.Tables[name] = append(live, added...)
	}
	c.live.SQL = append(c.live.SQL, c.transaction.SQL[c.base.sql:]...)
}

// InTx reports whether a transaction is open.
func (c *Client) InTx() bool {
	c.live.mu.Lock()
	defer c.live.mu.Unlock()
	return c.transaction != nil
}

// EnsureJournal creates an empty journal table unless it exists.
func (c *Client) EnsureJournal(ctx context.Context, table string) error {
	c.live.mu.Lock()
	defer c.live.mu.Unlock()
	if err := c.checkUsable(); err != nil {
		return err
	}
	view := c.view()
	if _, ok := view.Tables[table]; !ok {
		view.Tables[table] = []journal.Entry{}
	}
	return nil
}

// AppendJournal stamps the entry with the client clock and appends it to the table.
// Timestamps never go backwards within a table even if the clock does.
func (c *Client) AppendJournal(ctx context.Context, table string, in journal.EntryIn) (journal.Entry, error) {
	c.live.mu.Lock()
	defer c.live.mu.Unlock()
	if err := c.checkUsable(); err != nil {
		return journal.Entry{}, err
	}
	if !in.Operation.Valid() {
		return journal.Entry{}, &journal.OperationDecodeError{Value: in.Operation.String()}
	}
	view := c.view()
	entries, ok := view.Tables[table]
	if !ok {
		return journal.Entry{}, &journal.NoSuchJournalError{Table: table}
	}
	ts := c.now()
	if n := len(entries); n > 0 && ts.Before(entries[n-1].Timestamp) {
		ts = entries[n-1].Timestamp
	}
	entry := journal.NewEntry(ts, in)
	view.Tables[table] = append(entries, entry)
	return entry, nil
}

// ReadJournal returns a copy of the table ordered by timestamp ascending.
func (c *Client) ReadJournal(ctx context.Context, table string) ([]journal.Entry, error) {
	c.live.mu.Lock()
	defer c.live.mu.Unlock()
	if err := c.checkUsable(); err != nil {
		return nil, err
	}
	entries, ok := c.view().Tables[table]
	if !ok {
		return nil, &journal.NoSuchJournalError{Table: table}
	}
	result := slices.Clone(entries)
	slices.SortStableFunc(result, func(a, b journal.Entry) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	if result == nil {
		result = []journal.Entry{}
	}
	return result, nil
}

// RunMigrationSQL records the statement in the history.
// Statements starting with FailureMarker are rejected and not recorded.
func (c *Client) RunMigrationSQL(ctx context.Context, statement string) error {
	c.live.mu.Lock()
	defer c.live.mu.Unlock()
	if err := c.checkUsable(); err != nil {
		return err
	}
	if strings.HasPrefix(statement, FailureMarker) {
		return &journal.StatementError{Statement: statement, Err: errors.New(statement)}
	}
	view := c.view()
	view.SQL = append(view.SQL, statement)
	return nil
}

// Statements returns the raw statement history of the current view.
func (c *Client) Statements() []string {
	c.live.mu.Lock()
	defer c.live.mu.Unlock()
	return slices.Clone(c.view().SQL)
}

// Snapshot returns a deep copy of the current view, i.e. the working copy inside a transaction
// and the live state otherwise.
func (c *Client) Snapshot() *DataSet {
	c.live.mu.Lock()
	defer c.live.mu.Unlock()
	return c.view().clone()
}

// view must be called with the live lock held.
func (c *Client) view() *DataSet {
	if c.transaction != nil {
		return c.transaction
	}
	return c.live
}

func (c *Client) checkUsable() error {
	if c.closed {
		return journal.ErrClosed
	}
	return nil
}

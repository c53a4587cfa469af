// Package fakedb provides an in-memory pgjson.DBConnection for unit tests.
// It records executed statements and answers queries through hooks.
package fakedb

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vvka-141/pgjson/pkg/pgjson"
)

// Conn is a scripted session. Unset hooks succeed with zero values.
type Conn struct {
	ExecFunc     func(sql string, args []any) (pgconn.CommandTag, error)
	QueryRowFunc func(sql string, args []any) pgx.Row
	CopyFromFunc func(table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
	BeginErr     error
	CommitErr    error

	mu         sync.Mutex
	statements []string
	commits    int
	rollbacks  int
}

var _ pgjson.DBConnection = (*Conn)(nil)

func (c *Conn) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.record(sql)
	if c.ExecFunc != nil {
		return c.ExecFunc(sql, args)
	}
	return pgconn.NewCommandTag(""), nil
}

func (c *Conn) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	c.record(sql)
	if c.QueryRowFunc != nil {
		return c.QueryRowFunc(sql, args)
	}
	return Row{Err: pgx.ErrNoRows}
}

func (c *Conn) CopyFrom(_ context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	c.record("COPY " + table.Sanitize())
	if c.CopyFromFunc != nil {
		return c.CopyFromFunc(table, columns, src)
	}
	var n int64
	for src.Next() {
		if _, err := src.Values(); err != nil {
			return n, err
		}
		n++
	}
	return n, src.Err()
}

func (c *Conn) Begin(context.Context) (pgx.Tx, error) {
	c.record("BEGIN")
	if c.BeginErr != nil {
		return nil, c.BeginErr
	}
	return &Tx{conn: c}, nil
}

// Statements returns a copy of everything executed so far, in order.
func (c *Conn) Statements() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.statements...)
}

// Executed reports whether any recorded statement contains fragment.
func (c *Conn) Executed(fragment string) bool {
	for _, s := range c.Statements() {
		if strings.Contains(s, fragment) {
			return true
		}
	}
	return false
}

func (c *Conn) Commits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commits
}

func (c *Conn) Rollbacks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollbacks
}

func (c *Conn) record(sql string) {
	c.mu.Lock()
	c.statements = append(c.statements, sql)
	c.mu.Unlock()
}

// Tx routes statements to its Conn. Only the methods pgjson uses are
// implemented; the embedded nil pgx.Tx panics on anything else.
type Tx struct {
	pgx.Tx
	conn *Conn
	done bool
}

func (t *Tx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.conn.Exec(ctx, sql, args...)
}

func (t *Tx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.conn.QueryRow(ctx, sql, args...)
}

func (t *Tx) CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	return t.conn.CopyFrom(ctx, table, columns, src)
}

func (t *Tx) Begin(ctx context.Context) (pgx.Tx, error) {
	return t.conn.Begin(ctx)
}

func (t *Tx) Commit(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.conn.record("COMMIT")
	if t.conn.CommitErr != nil {
		t.conn.mu.Lock()
		t.conn.rollbacks++
		t.conn.mu.Unlock()
		return t.conn.CommitErr
	}
	t.conn.mu.Lock()
	t.conn.commits++
	t.conn.mu.Unlock()
	return nil
}

func (t *Tx) Rollback(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.conn.record("ROLLBACK")
	t.conn.mu.Lock()
	t.conn.rollbacks++
	t.conn.mu.Unlock()
	return nil
}

// Row is a canned pgx.Row. Scan copies Values into the destinations in
// order, or returns Err.
type Row struct {
	Values []any
	Err    error
}

// RowOf returns a Row that scans values.
func RowOf(values ...any) Row {
	return Row{Values: values}
}

// ErrRow returns a Row whose Scan fails with err.
func ErrRow(err error) Row {
	return Row{Err: err}
}

func (r Row) Scan(dest ...any) error {
	if r.Err != nil {
		return r.Err
	}
	if len(dest) != len(r.Values) {
		return fmt.Errorf("fakedb: scan into %d destinations, row has %d values", len(dest), len(r.Values))
	}
	for i, d := range dest {
		dv := reflect.ValueOf(d)
		if dv.Kind() != reflect.Pointer || dv.IsNil() {
			return fmt.Errorf("fakedb: destination %d is not a non-nil pointer", i)
		}
		v := reflect.ValueOf(r.Values[i])
		if !v.IsValid() {
			dv.Elem().Set(reflect.Zero(dv.Elem().Type()))
			continue
		}
		if !v.Type().AssignableTo(dv.Elem().Type()) {
			return fmt.Errorf("fakedb: cannot scan %T into %s", r.Values[i], dv.Elem().Type())
		}
		dv.Elem().Set(v)
	}
	return nil
}

// PgError builds a server error with the given SQLSTATE.
func PgError(code, message string) *pgconn.PgError {
	return &pgconn.PgError{Severity: "ERROR", Code: code, Message: message}
}

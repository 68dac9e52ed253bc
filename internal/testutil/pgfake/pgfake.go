// Package pgfake provides hermetic test doubles for the pgx seams used by
// the bulk writer: a connection, a transaction, result rows and a provider.
//
// The fakes never touch a socket. They record every call for assertions and
// drain CopyFromSource implementations exactly the way pgx does: Next/Values
// until Next reports false, then Err.
package pgfake

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"dataflow/internal/storage/postgres"
)

// Call is one recorded Exec or Query.
type Call struct {
	SQL  string
	Args []any
}

// Copy is one recorded CopyFrom. Rows hold the values accepted before the
// source stopped; Err is the error CopyFrom returned.
type Copy struct {
	Table   pgx.Identifier
	Columns []string
	Rows    [][]any
	Err     error
	InTx    bool
}

// Conn implements postgres.Conn. Hooks left nil succeed with empty results.
type Conn struct {
	QueryFn  func(sql string, args []any) (pgx.Rows, error)
	ExecFn   func(sql string, args []any) (pgconn.CommandTag, error)
	CopyErr  error // returned after the source is fully drained
	// DrainErr replaces whatever the drained source reported, the way a
	// connection dropped while ending the COPY would.
	DrainErr error
	BeginErr error

	CommitErr error

	mu       sync.Mutex
	Execs    []Call
	Queries  []Call
	Copies   []Copy
	Txs      []*Tx
	Released int
}

var _ postgres.Conn = (*Conn)(nil)

func (c *Conn) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.mu.Lock()
	c.Execs = append(c.Execs, Call{SQL: sql, Args: args})
	c.mu.Unlock()
	if c.ExecFn != nil {
		return c.ExecFn(sql, args)
	}
	return pgconn.CommandTag{}, nil
}

func (c *Conn) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	c.mu.Lock()
	c.Queries = append(c.Queries, Call{SQL: sql, Args: args})
	c.mu.Unlock()
	if c.QueryFn != nil {
		return c.QueryFn(sql, args)
	}
	return &Rows{}, nil
}

func (c *Conn) CopyFrom(ctx context.Context, table pgx.Identifier, cols []string, src pgx.CopyFromSource) (int64, error) {
	return c.copyFrom(ctx, table, cols, src, false)
}

func (c *Conn) copyFrom(ctx context.Context, table pgx.Identifier, cols []string, src pgx.CopyFromSource, inTx bool) (int64, error) {
	cp := Copy{Table: table, Columns: cols, InTx: inTx}
	n, err := drain(ctx, src, &cp)
	if err == nil && c.CopyErr != nil {
		err = c.CopyErr
		n = 0
	}
	if c.DrainErr != nil {
		err = c.DrainErr
		n = 0
	}
	cp.Err = err
	c.mu.Lock()
	c.Copies = append(c.Copies, cp)
	c.mu.Unlock()
	return n, err
}

// drain mirrors pgx: values are copied because sources may reuse buffers.
func drain(ctx context.Context, src pgx.CopyFromSource, cp *Copy) (int64, error) {
	var n int64
	for src.Next() {
		vals, err := src.Values()
		if err != nil {
			return 0, err
		}
		if len(vals) != len(cp.Columns) {
			return 0, fmt.Errorf("pgfake: row %d has %d values, want %d", n, len(vals), len(cp.Columns))
		}
		cp.Rows = append(cp.Rows, append([]any(nil), vals...))
		n++
	}
	if err := src.Err(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return n, nil
}

func (c *Conn) Begin(context.Context) (pgx.Tx, error) {
	if c.BeginErr != nil {
		return nil, c.BeginErr
	}
	tx := &Tx{conn: c}
	c.mu.Lock()
	c.Txs = append(c.Txs, tx)
	c.mu.Unlock()
	return tx, nil
}

func (c *Conn) Release() {
	c.mu.Lock()
	c.Released++
	c.mu.Unlock()
}

// ReleasedCount is Released read under the lock.
func (c *Conn) ReleasedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Released
}

// CopyCalls returns a snapshot of recorded copies.
func (c *Conn) CopyCalls() []Copy {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Copy(nil), c.Copies...)
}

// Tx implements pgx.Tx. Exec and CopyFrom are recorded on the owning Conn.
type Tx struct {
	conn       *Conn
	Committed  bool
	RolledBack bool
}

var _ pgx.Tx = (*Tx)(nil)

func (t *Tx) Begin(context.Context) (pgx.Tx, error) { return t, nil }

func (t *Tx) Commit(context.Context) error {
	if t.conn.CommitErr != nil {
		return t.conn.CommitErr
	}
	t.Committed = true
	return nil
}

// Rollback after Commit is a no-op, like pgx.
func (t *Tx) Rollback(context.Context) error {
	if t.Committed {
		return pgx.ErrTxClosed
	}
	t.RolledBack = true
	return nil
}

func (t *Tx) CopyFrom(ctx context.Context, table pgx.Identifier, cols []string, src pgx.CopyFromSource) (int64, error) {
	return t.conn.copyFrom(ctx, table, cols, src, true)
}

func (t *Tx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.conn.Exec(ctx, sql, args...)
}

func (t *Tx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.conn.Query(ctx, sql, args...)
}

func (t *Tx) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

func (t *Tx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t *Tx) LargeObjects() pgx.LargeObjects                       { return pgx.LargeObjects{} }
func (t *Tx) Conn() *pgx.Conn                                      { return nil }

func (t *Tx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

// Rows implements pgx.Rows over in-memory data. Scan assigns each value to
// the matching destination pointer by reflection.
type Rows struct {
	Fields []pgconn.FieldDescription
	Data   [][]any
	Error  error // reported by Err after iteration

	i      int
	closed bool
}

var _ pgx.Rows = (*Rows)(nil)

// Field names one probe column and its type OID.
type Field struct {
	Name string
	OID  uint32
}

// Columns builds probe rows whose field descriptions carry names and OIDs.
func Columns(fields ...Field) *Rows {
	r := &Rows{}
	for _, f := range fields {
		r.Fields = append(r.Fields, pgconn.FieldDescription{Name: f.Name, DataTypeOID: f.OID})
	}
	return r
}

func (r *Rows) Close()                                       { r.closed = true }
func (r *Rows) Err() error                                   { return r.Error }
func (r *Rows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *Rows) FieldDescriptions() []pgconn.FieldDescription { return r.Fields }
func (r *Rows) RawValues() [][]byte                          { return nil }
func (r *Rows) Conn() *pgx.Conn                              { return nil }

func (r *Rows) Next() bool {
	if r.closed || r.i >= len(r.Data) {
		r.closed = true
		return false
	}
	r.i++
	return true
}

func (r *Rows) Values() ([]any, error) {
	if r.i == 0 || r.i > len(r.Data) {
		return nil, errors.New("pgfake: no current row")
	}
	return r.Data[r.i-1], nil
}

func (r *Rows) Scan(dest ...any) error {
	row, err := r.Values()
	if err != nil {
		return err
	}
	if len(dest) != len(row) {
		return fmt.Errorf("pgfake: scan %d values into %d targets", len(row), len(dest))
	}
	for i, d := range dest {
		dv := reflect.ValueOf(d)
		if dv.Kind() != reflect.Pointer || dv.IsNil() {
			return fmt.Errorf("pgfake: target %d is not a non-nil pointer", i)
		}
		if row[i] == nil {
			dv.Elem().SetZero()
			continue
		}
		sv := reflect.ValueOf(row[i])
		if !sv.Type().AssignableTo(dv.Elem().Type()) {
			return fmt.Errorf("pgfake: cannot scan %T into %s", row[i], dv.Elem().Type())
		}
		dv.Elem().Set(sv)
	}
	return nil
}

// Provider hands out the same Conn on every Acquire.
type Provider struct {
	Conn *Conn
	Err  error

	mu       sync.Mutex
	Acquired int
}

var _ postgres.Provider = (*Provider)(nil)

func (p *Provider) Acquire(ctx context.Context) (postgres.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Err != nil {
		return nil, p.Err
	}
	p.mu.Lock()
	p.Acquired++
	p.mu.Unlock()
	return p.Conn, nil
}

// AcquiredCount is Acquired read under the lock.
func (p *Provider) AcquiredCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Acquired
}

// Package bulk loads batches of Go records into a PostgreSQL table through
// binary COPY, after reconciling the record type with the live table once.
//
// A Writer is bound at construction: the destination table is introspected,
// the record type is reflected, and every column is paired with a field and
// a compiled accessor. The binding is immutable afterwards and safe for
// concurrent use; each write acquires its own connection from the Provider
// and releases it on every exit path.
//
// The binding is never refreshed. If the table changes after New, call
// Rebind for a fresh Writer; writes through a stale Writer fail on the
// server or load wrong columns.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"dataflow/internal/binder"
	"dataflow/internal/metrics"
	"dataflow/internal/model"
	"dataflow/internal/schema"
	"dataflow/internal/storage/postgres"
)

// Writer writes records of type T to the table named by T's TableName.
type Writer[T any] struct {
	provider Provider
	opts     options
	log      *slog.Logger

	model *model.Model
	table *schema.Table
	plan  *binder.Plan

	ident  pgx.Identifier
	insert []*binder.Binding // COPY columns, in plan.Insertable order
	guard  []*binder.Binding // generated columns
}

// New introspects T's table on one connection from p and binds T to it.
func New[T any](ctx context.Context, p Provider, opts ...Option) (*Writer[T], error) {
	o := defaults()
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = model.NewRegistry()
	}
	return build[T](ctx, p, o)
}

func build[T any](ctx context.Context, p Provider, o options) (w *Writer[T], err error) {
	start := time.Now()

	m, err := model.Of[T](o.registry)
	if err != nil {
		return nil, err
	}
	defer func() {
		metrics.RecordStep(o.job, m.TableName, metrics.StepBind, err, time.Since(start))
	}()

	conn, err := acquire(ctx, p)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tbl, err := schema.Introspect(ctx, conn, m.TableName)
	if err != nil {
		return nil, err
	}
	plan, err := binder.Bind(m, tbl)
	if err != nil {
		return nil, err
	}

	w = &Writer[T]{
		provider: p,
		opts:     o,
		log:      o.log.With("table", m.TableName),
		model:    m,
		table:    tbl,
		plan:     plan,
		ident:    postgres.Identifier(m.TableName),
	}
	for i := range plan.Bindings {
		b := &plan.Bindings[i]
		if b.Insertable() {
			w.insert = append(w.insert, b)
		} else {
			w.guard = append(w.guard, b)
		}
	}

	w.log.Info("bulk: writer bound",
		"type", m.Type.String(),
		"columns", len(plan.Bindings),
		"insertable", len(plan.Insertable),
		"generated", len(w.guard),
		"primary_key", tbl.PrimaryKey,
		"elapsed", time.Since(start).Truncate(time.Microsecond),
	)
	return w, nil
}

// Rebind introspects the table again and returns a new Writer with the same
// options. w itself is unchanged.
func (w *Writer[T]) Rebind(ctx context.Context) (*Writer[T], error) {
	return build[T](ctx, w.provider, w.opts)
}

// Table returns the destination table name as declared by T.
func (w *Writer[T]) Table() string { return w.plan.Table }

// Columns returns the insertable column names in COPY order.
func (w *Writer[T]) Columns() []string {
	return append([]string(nil), w.plan.Insertable...)
}

// ColumnInfo describes one bound column.
type ColumnInfo struct {
	Name       string
	Field      string // Go field name
	WireType   string
	TypeName   string // database rendering, e.g. "numeric(10,2)"
	Nullable   bool
	Generated  bool
	PrimaryKey bool
}

// Bindings returns one entry per table column, in table order. The index of
// an entry is the columnIndex accepted by UpdateColumnBulk.
func (w *Writer[T]) Bindings() []ColumnInfo {
	out := make([]ColumnInfo, len(w.plan.Bindings))
	for i, b := range w.plan.Bindings {
		out[i] = ColumnInfo{
			Name:       b.Column.Name,
			Field:      b.Field.Name,
			WireType:   b.Wire.String(),
			TypeName:   b.Column.TypeName,
			Nullable:   b.Column.Nullable,
			Generated:  b.Column.Generated,
			PrimaryKey: i == w.plan.PrimaryKey,
		}
	}
	return out
}

// ColumnIndex returns the binding index of column name, or -1.
func (w *Writer[T]) ColumnIndex(name string) int { return w.plan.ColumnIndex(name) }

// CreateBulk copies records into the table in one COPY. Either every record
// is committed or none is. An empty batch returns (0, nil) without touching
// the database.
func (w *Writer[T]) CreateBulk(ctx context.Context, records []T) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	return w.copyRecords(ctx, records, false)
}

// SimulateBulk encodes records exactly like CreateBulk, then abandons the
// COPY so nothing is persisted. It returns the number of rows encoded.
func (w *Writer[T]) SimulateBulk(ctx context.Context, records []T) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	return w.copyRecords(ctx, records, true)
}

func (w *Writer[T]) copyRecords(ctx context.Context, records []T, simulate bool) (n int64, err error) {
	step := metrics.StepCopy
	if simulate {
		step = metrics.StepSimulate
	}
	start := time.Now()
	defer func() {
		metrics.RecordStep(w.opts.job, w.plan.Table, step, err, time.Since(start))
	}()

	conn, err := acquire(ctx, w.provider)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	src := newRowSource(ctx, records, w.insert, w.guard, simulate)
	n, err = conn.CopyFrom(ctx, w.ident, w.plan.Insertable, src)

	if simulate && src.abandoned() && copyAbandoned(err) {
		metrics.RecordRow(w.opts.job, w.plan.Table, metrics.KindEncoded, src.encoded())
		w.log.Debug("bulk: simulated copy", "rows", src.encoded(), "elapsed", time.Since(start))
		return src.encoded(), nil
	}
	if err != nil {
		return 0, classify("copy", src.failure(), err)
	}
	if simulate {
		return 0, &TransportError{Op: "simulate", Err: errors.New("copy completed instead of being abandoned")}
	}

	metrics.RecordRow(w.opts.job, w.plan.Table, metrics.KindInserted, n)
	metrics.RecordBatches(w.opts.job, w.plan.Table, 1)
	w.log.Debug("bulk: copy committed", "rows", n, "elapsed", time.Since(start))
	return n, nil
}

const sqlStateQueryCanceled = "57014"

// copyAbandoned reports whether err is pgx confirming the CopyFail sent for
// the simulate sentinel: the server answers query_canceled (57014), and
// pgx may also surface the source error itself. Anything else, including a
// nil error, means the abandon was not acknowledged.
func copyAbandoned(err error) bool {
	if errors.Is(err, errSimulated) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == sqlStateQueryCanceled
}

func acquire(ctx context.Context, p Provider) (Conn, error) {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return nil, classify("acquire", nil, err)
	}
	return conn, nil
}

// classify maps a write-path failure. An error recorded by the copy source
// wins, since pgx reports it wrapped in its own CopyFail handling. Server
// data exceptions (class 22) become EncodingError; other server errors are
// wrapped; everything else is a TransportError.
func classify(op string, srcErr, err error) error {
	if srcErr != nil {
		return srcErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if strings.HasPrefix(pgErr.Code, "22") {
			return &EncodingError{Row: -1, Column: pgErr.ColumnName, Err: err}
		}
		return fmt.Errorf("bulk: %s: %w", op, err)
	}
	return &TransportError{Op: op, Err: err}
}

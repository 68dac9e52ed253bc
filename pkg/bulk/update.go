package bulk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"dataflow/internal/binder"
	"dataflow/internal/metrics"
	"dataflow/internal/storage/postgres"
)

// ErrInvalidUpdateColumn is returned, wrapped, when UpdateColumnBulk targets
// a column it cannot update.
var ErrInvalidUpdateColumn = errors.New("bulk: invalid update column")

// UpdateColumnBulk sets one column of existing rows, matched by primary key,
// to the values in records. columnIndex indexes Bindings(). All other
// columns and all unmatched rows are left untouched. It returns the number
// of rows updated.
//
// The pairs (key, value) are copied into a temporary staging table and
// applied with a single UPDATE ... FROM, all in one transaction; the
// staging table is dropped at commit.
func (w *Writer[T]) UpdateColumnBulk(ctx context.Context, records []T, columnIndex int) (n int64, err error) {
	target, err := w.updateTarget(columnIndex)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	start := time.Now()
	defer func() {
		metrics.RecordStep(w.opts.job, w.plan.Table, metrics.StepUpdate, err, time.Since(start))
	}()

	conn, err := acquire(ctx, w.provider)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, classify("begin", nil, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	n, err = w.stageAndUpdate(ctx, tx, records, target)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, classify("commit", nil, err)
	}

	metrics.RecordRow(w.opts.job, w.plan.Table, metrics.KindUpdated, n)
	w.log.Debug("bulk: column updated",
		"column", target.Column.Name,
		"records", len(records),
		"rows", n,
		"elapsed", time.Since(start),
	)
	return n, nil
}

// UpdateColumnBulkByName is UpdateColumnBulk addressed by column name.
func (w *Writer[T]) UpdateColumnBulkByName(ctx context.Context, records []T, column string) (int64, error) {
	i := w.plan.ColumnIndex(column)
	if i < 0 {
		return 0, fmt.Errorf("%w: no column %q in %s", ErrInvalidUpdateColumn, column, w.plan.Table)
	}
	return w.UpdateColumnBulk(ctx, records, i)
}

func (w *Writer[T]) updateTarget(columnIndex int) (*binder.Binding, error) {
	if columnIndex < 0 || columnIndex >= len(w.plan.Bindings) {
		return nil, fmt.Errorf("%w: index %d out of range [0,%d)", ErrInvalidUpdateColumn, columnIndex, len(w.plan.Bindings))
	}
	if columnIndex == w.plan.PrimaryKey {
		return nil, fmt.Errorf("%w: %s is the primary key", ErrInvalidUpdateColumn, w.plan.Bindings[columnIndex].Column.Name)
	}
	target := &w.plan.Bindings[columnIndex]
	if !target.Insertable() {
		return nil, fmt.Errorf("%w: %s is generated", ErrInvalidUpdateColumn, target.Column.Name)
	}
	if w.plan.Key().Encode == nil {
		key := w.plan.Key()
		return nil, fmt.Errorf("%w: key field %s (%s) cannot encode column %s",
			ErrInvalidUpdateColumn, key.Field.Name, key.Field.HostType, key.Column.Name)
	}
	return target, nil
}

func (w *Writer[T]) stageAndUpdate(ctx context.Context, tx pgx.Tx, records []T, target *binder.Binding) (int64, error) {
	key := w.plan.Key()
	stage := postgres.StagingName(w.plan.Table, target.Column.Name)

	ddl := postgres.BuildStagingTableSQL(stage, stagingType(key), stagingType(target))
	if _, err := tx.Exec(ctx, ddl); err != nil {
		return 0, classify("create staging", nil, err)
	}

	src := newRowSource(ctx, records, []*binder.Binding{key, target}, nil, false)
	cols := []string{postgres.StagePKColumn, postgres.StageValueColumn}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{stage}, cols, src); err != nil {
		return 0, classify("copy staging", src.failure(), err)
	}

	tag, err := tx.Exec(ctx, postgres.BuildUpdateFromSQL(w.plan.Table, key.Column.Name, target.Column.Name, stage))
	if err != nil {
		return 0, classify("update", nil, err)
	}
	return tag.RowsAffected(), nil
}

// stagingType prefers the catalog rendering so typmods such as
// numeric(10,2) or varchar(32) carry over to the staging column.
func stagingType(b *binder.Binding) string {
	if b.Column.TypeName != "" {
		return b.Column.TypeName
	}
	return b.Wire.String()
}

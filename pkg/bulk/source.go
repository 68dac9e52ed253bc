package bulk

import (
	"context"
	"errors"
	"unsafe"

	"github.com/jackc/pgx/v5"

	"dataflow/internal/binder"
	"dataflow/internal/bulkerr"
)

// errSimulated makes pgx abandon the COPY with CopyFail after every row has
// been encoded. It never reaches callers.
var errSimulated = errors.New("bulk: simulated copy abandoned")

// rowSource streams records into pgx.CopyFrom, encoding one row per Next.
// The first failure is kept in err; pgx then sends CopyFail so nothing from
// the batch is committed.
type rowSource[T any] struct {
	ctx      context.Context
	records  []T
	emit     []*binder.Binding // one per COPY column, in order
	guard    []*binder.Binding // generated columns whose values must be default
	simulate bool

	next int
	vals []any
	err  error
}

var _ pgx.CopyFromSource = (*rowSource[struct{}])(nil)

func newRowSource[T any](ctx context.Context, records []T, emit, guard []*binder.Binding, simulate bool) *rowSource[T] {
	return &rowSource[T]{
		ctx:      ctx,
		records:  records,
		emit:     emit,
		guard:    guard,
		simulate: simulate,
		vals:     make([]any, len(emit)),
	}
}

func (s *rowSource[T]) Next() bool {
	if s.err != nil {
		return false
	}
	if s.next >= len(s.records) {
		if s.simulate {
			s.err = errSimulated
		}
		return false
	}
	// Cancellation is honoured between rows only.
	if err := s.ctx.Err(); err != nil {
		s.err = err
		return false
	}

	row := s.next
	rec := unsafe.Pointer(&s.records[row])

	for _, b := range s.guard {
		if !b.Accessor.IsZero(rec) {
			s.err = &bulkerr.GeneratedColumnViolationError{Row: row, Field: b.Field.Name, Column: b.Column.Name}
			return false
		}
	}

	for i, b := range s.emit {
		v := b.Accessor.Read(rec)
		if v == nil {
			s.vals[i] = nil
			continue
		}
		enc, err := b.Encode(v)
		if err != nil {
			s.err = &bulkerr.EncodingError{Row: row, Column: b.Column.Name, WireType: b.Wire.String(), Err: err}
			return false
		}
		s.vals[i] = enc
	}

	s.next++
	return true
}

// Values returns the row encoded by the last Next. The slice is reused.
func (s *rowSource[T]) Values() ([]any, error) { return s.vals, nil }

func (s *rowSource[T]) Err() error { return s.err }

// encoded is the number of rows fully encoded so far.
func (s *rowSource[T]) encoded() int64 { return int64(s.next) }

// failure is the source's own error, excluding the simulate sentinel.
func (s *rowSource[T]) failure() error {
	if errors.Is(s.err, errSimulated) {
		return nil
	}
	return s.err
}

func (s *rowSource[T]) abandoned() bool { return errors.Is(s.err, errSimulated) }

package wiretype

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"dataflow/internal/bulkerr"
)

// Encoder converts a non-nil host value into the value handed to pgx for one
// wire type. It never receives nil; absent values are written as NULL by
// the caller.
type Encoder func(v any) (any, error)

var encoders = [numWireTypes]Encoder{
	Bool:        encodeBool,
	Int2:        encodeInt2,
	Int4:        encodeInt4,
	Int8:        encodeInt8,
	Float4:      encodeFloat4,
	Float8:      encodeFloat8,
	Numeric:     encodeNumeric,
	QChar:       encodeQChar,
	BPChar:      encodeBPChar,
	Varchar:     encodeString,
	Text:        encodeString,
	Date:        encodeDate,
	Timestamp:   encodeTimestamp,
	Timestamptz: encodeTimestamptz,
	Interval:    encodeInterval,
	Bytea:       encodeBytea,
	UUID:        encodeUUID,
	JSON:        encodeJSON,
	JSONB:       encodeJSON,
}

// EncoderFor returns the encoder for w. Unknown wire types are a bind-time
// *bulkerr.UnsupportedTypeError, never a silent pass-through.
func EncoderFor(w WireType) (Encoder, error) {
	if !w.Valid() || encoders[w] == nil {
		return nil, &bulkerr.UnsupportedTypeError{WireType: w.String()}
	}
	return encoders[w], nil
}

func mismatch(want string, v any) error {
	return fmt.Errorf("expected %s, got %T", want, v)
}

func encodeBool(v any) (any, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return nil, mismatch("bool", v)
}

func encodeInt2(v any) (any, error) {
	if n, ok := v.(int16); ok {
		return n, nil
	}
	return nil, mismatch("int16", v)
}

func encodeInt4(v any) (any, error) {
	if n, ok := v.(int32); ok {
		return n, nil
	}
	return nil, mismatch("int32", v)
}

func encodeInt8(v any) (any, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	}
	return nil, mismatch("int64", v)
}

func encodeFloat4(v any) (any, error) {
	if f, ok := v.(float32); ok {
		return f, nil
	}
	return nil, mismatch("float32", v)
}

func encodeFloat8(v any) (any, error) {
	if f, ok := v.(float64); ok {
		return f, nil
	}
	return nil, mismatch("float64", v)
}

func encodeNumeric(v any) (any, error) {
	n, ok := v.(pgtype.Numeric)
	if !ok {
		return nil, mismatch("pgtype.Numeric", v)
	}
	if !n.Valid {
		return nil, nil
	}
	return n, nil
}

func encodeQChar(v any) (any, error) {
	if b, ok := v.(byte); ok {
		return b, nil
	}
	return nil, mismatch("byte", v)
}

func encodeBPChar(v any) (any, error) {
	switch c := v.(type) {
	case byte:
		return string(rune(c)), nil
	case string:
		return c, nil
	}
	return nil, mismatch("byte or string", v)
}

func encodeString(v any) (any, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return nil, mismatch("string", v)
}

func asTime(v any) (time.Time, error) {
	if t, ok := v.(time.Time); ok {
		return t, nil
	}
	return time.Time{}, mismatch("time.Time", v)
}

func encodeDate(v any) (any, error) {
	t, err := asTime(v)
	if err != nil {
		return nil, err
	}
	return pgtype.Date{Time: t, Valid: true}, nil
}

// timestamp has no zone and pgx writes the wall clock as given, so the
// instant is normalized to UTC first. Reads return UTC wall clocks.
func encodeTimestamp(v any) (any, error) {
	t, err := asTime(v)
	if err != nil {
		return nil, err
	}
	return pgtype.Timestamp{Time: t.UTC(), Valid: true}, nil
}

func encodeTimestamptz(v any) (any, error) {
	t, err := asTime(v)
	if err != nil {
		return nil, err
	}
	return pgtype.Timestamptz{Time: t, Valid: true}, nil
}

func encodeInterval(v any) (any, error) {
	d, ok := v.(time.Duration)
	if !ok {
		return nil, mismatch("time.Duration", v)
	}
	return pgtype.Interval{Microseconds: d.Microseconds(), Valid: true}, nil
}

func encodeBytea(v any) (any, error) {
	if b, ok := v.([]byte); ok {
		return b, nil
	}
	return nil, mismatch("[]byte", v)
}

func encodeUUID(v any) (any, error) {
	if u, ok := v.(uuid.UUID); ok {
		return pgtype.UUID{Bytes: u, Valid: true}, nil
	}
	return nil, mismatch("uuid.UUID", v)
}

func encodeJSON(v any) (any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, mismatch("map[string]any", v)
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return b, nil
}

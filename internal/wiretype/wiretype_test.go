package wiretype

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"dataflow/internal/bulkerr"
)

func TestAcceptableWireTypes_TimeHasAllThreeVariants(t *testing.T) {
	t.Parallel()

	wires, err := AcceptableWireTypes(reflect.TypeFor[time.Time]())
	require.NoError(t, err)
	require.Contains(t, wires, Date)
	require.Contains(t, wires, Timestamp)
	require.Contains(t, wires, Timestamptz)
}

func TestAcceptableWireTypes_UnwrapsPointer(t *testing.T) {
	t.Parallel()

	wires, err := AcceptableWireTypes(reflect.TypeFor[*int32]())
	require.NoError(t, err)
	require.Equal(t, []WireType{Int4}, wires)
}

func TestAcceptableWireTypes_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := AcceptableWireTypes(reflect.TypeFor[complex128]())
	var ute *bulkerr.UnsupportedTypeError
	require.True(t, errors.As(err, &ute))
	require.Equal(t, "complex128", ute.HostType)
}

func TestAccepts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		host reflect.Type
		wire WireType
		want bool
	}{
		{"string as varchar", reflect.TypeFor[string](), Varchar, true},
		{"string as bpchar", reflect.TypeFor[string](), BPChar, true},
		{"int32 as int8", reflect.TypeFor[int32](), Int8, false},
		{"int as int8", reflect.TypeFor[int](), Int8, true},
		{"byte as qchar", reflect.TypeFor[byte](), QChar, true},
		{"nullable time as date", reflect.TypeFor[*time.Time](), Date, true},
		{"uuid as text", reflect.TypeFor[uuid.UUID](), Text, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Accepts(tc.host, tc.wire)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestRepresentativeHostType(t *testing.T) {
	t.Parallel()

	got, err := RepresentativeHostType(Timestamptz)
	require.NoError(t, err)
	require.Equal(t, reflect.TypeFor[time.Time](), got)

	got, err = RepresentativeHostType(Varchar)
	require.NoError(t, err)
	require.Equal(t, reflect.TypeFor[string](), got)

	_, err = RepresentativeHostType(Unknown)
	var ute *bulkerr.UnsupportedTypeError
	require.ErrorAs(t, err, &ute)
}

func TestFromOID(t *testing.T) {
	t.Parallel()

	for w := Bool; w < numWireTypes; w++ {
		got, err := FromOID(w.OID())
		require.NoError(t, err, w.String())
		require.Equal(t, w, got)
	}

	_, err := FromOID(pgtype.PointOID)
	var ute *bulkerr.UnsupportedTypeError
	require.ErrorAs(t, err, &ute)
	require.Contains(t, ute.WireType, "600")
}

func TestEncoderFor_EveryWireTypeHasEncoder(t *testing.T) {
	t.Parallel()

	for w := Bool; w < numWireTypes; w++ {
		enc, err := EncoderFor(w)
		require.NoError(t, err, w.String())
		require.NotNil(t, enc, w.String())
	}
	_, err := EncoderFor(Unknown)
	require.Error(t, err)
}

func TestEncoders(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 9, 10, 11, 12, 0, time.UTC)
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	tests := []struct {
		name string
		wire WireType
		in   any
		want any
	}{
		{"bool", Bool, true, true},
		{"int2", Int2, int16(7), int16(7)},
		{"int4", Int4, int32(7), int32(7)},
		{"int8 from int", Int8, 7, int64(7)},
		{"float8", Float8, 1.5, 1.5},
		{"qchar", QChar, byte('x'), byte('x')},
		{"bpchar from byte", BPChar, byte('x'), "x"},
		{"text", Text, "abc", "abc"},
		{"date", Date, ts, pgtype.Date{Time: ts, Valid: true}},
		{"timestamp", Timestamp, ts, pgtype.Timestamp{Time: ts, Valid: true}},
		{"timestamptz", Timestamptz, ts, pgtype.Timestamptz{Time: ts, Valid: true}},
		{"interval", Interval, 90 * time.Second, pgtype.Interval{Microseconds: 90_000_000, Valid: true}},
		{"bytea", Bytea, []byte{1, 2}, []byte{1, 2}},
		{"uuid", UUID, id, pgtype.UUID{Bytes: id, Valid: true}},
		{"jsonb", JSONB, map[string]any{"a": 1}, []byte(`{"a":1}`)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			enc, err := EncoderFor(tc.wire)
			require.NoError(t, err)
			got, err := enc(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestEncoders_RejectWrongHostValue(t *testing.T) {
	t.Parallel()

	enc, err := EncoderFor(Int4)
	require.NoError(t, err)
	_, err = enc(int64(1))
	require.ErrorContains(t, err, "expected int32, got int64")

	enc, err = EncoderFor(Timestamptz)
	require.NoError(t, err)
	_, err = enc("2024-01-01")
	require.Error(t, err)
}

func TestEncodeTimestamp_NormalizesToUTC(t *testing.T) {
	t.Parallel()

	zone := time.FixedZone("UTC+2", 2*60*60)
	local := time.Date(2024, 3, 9, 12, 0, 0, 0, zone)

	enc, err := EncoderFor(Timestamp)
	require.NoError(t, err)
	got, err := enc(local)
	require.NoError(t, err)

	ts := got.(pgtype.Timestamp)
	require.Equal(t, time.UTC, ts.Time.Location())
	require.Equal(t, 10, ts.Time.Hour())
	require.True(t, ts.Time.Equal(local))
}

func TestEncodeNumeric_InvalidIsNull(t *testing.T) {
	t.Parallel()

	enc, err := EncoderFor(Numeric)
	require.NoError(t, err)
	got, err := enc(pgtype.Numeric{})
	require.NoError(t, err)
	require.Nil(t, got)
}

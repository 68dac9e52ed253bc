// Package wiretype maps Go host types to the PostgreSQL wire types used by
// binary COPY, and dispatches host values to the typed values pgx encodes for
// each wire type.
//
// The relation host type -> wire types is one-to-many (time.Time may back a
// date, timestamp or timestamptz column). The reverse lookup returns a single
// representative host type and exists for diagnostics only.
//
// Values bound to timestamp (without time zone) columns are stored as their
// UTC wall clock, so a time.Time in any location round-trips to the same
// instant.
package wiretype

import (
	"strconv"

	"github.com/jackc/pgx/v5/pgtype"

	"dataflow/internal/bulkerr"
)

// WireType is the closed set of column types the engine can bind and encode.
type WireType uint8

const (
	Unknown WireType = iota
	Bool
	Int2
	Int4
	Int8
	Float4
	Float8
	Numeric
	QChar // "char": single byte
	BPChar
	Varchar
	Text
	Date
	Timestamp
	Timestamptz
	Interval
	Bytea
	UUID
	JSON
	JSONB

	numWireTypes
)

var wireInfo = [numWireTypes]struct {
	name string
	oid  uint32
}{
	Unknown:     {"unknown", 0},
	Bool:        {"bool", pgtype.BoolOID},
	Int2:        {"int2", pgtype.Int2OID},
	Int4:        {"int4", pgtype.Int4OID},
	Int8:        {"int8", pgtype.Int8OID},
	Float4:      {"float4", pgtype.Float4OID},
	Float8:      {"float8", pgtype.Float8OID},
	Numeric:     {"numeric", pgtype.NumericOID},
	QChar:       {`"char"`, pgtype.QCharOID},
	BPChar:      {"bpchar", pgtype.BPCharOID},
	Varchar:     {"varchar", pgtype.VarcharOID},
	Text:        {"text", pgtype.TextOID},
	Date:        {"date", pgtype.DateOID},
	Timestamp:   {"timestamp", pgtype.TimestampOID},
	Timestamptz: {"timestamptz", pgtype.TimestamptzOID},
	Interval:    {"interval", pgtype.IntervalOID},
	Bytea:       {"bytea", pgtype.ByteaOID},
	UUID:        {"uuid", pgtype.UUIDOID},
	JSON:        {"json", pgtype.JSONOID},
	JSONB:       {"jsonb", pgtype.JSONBOID},
}

var byOID = func() map[uint32]WireType {
	m := make(map[uint32]WireType, numWireTypes)
	for w := Bool; w < numWireTypes; w++ {
		m[wireInfo[w].oid] = w
	}
	return m
}()

// FromOID resolves a PostgreSQL type OID. Unknown OIDs fail with
// *bulkerr.UnsupportedTypeError.
func FromOID(oid uint32) (WireType, error) {
	if w, ok := byOID[oid]; ok {
		return w, nil
	}
	return Unknown, &bulkerr.UnsupportedTypeError{WireType: "oid " + strconv.FormatUint(uint64(oid), 10)}
}

// OID returns the PostgreSQL type OID, or 0 for Unknown.
func (w WireType) OID() uint32 {
	if w >= numWireTypes {
		return 0
	}
	return wireInfo[w].oid
}

func (w WireType) String() string {
	if w >= numWireTypes {
		return "wiretype(" + strconv.Itoa(int(w)) + ")"
	}
	return wireInfo[w].name
}

// Valid reports whether w is a member of the enumeration other than Unknown.
func (w WireType) Valid() bool { return w > Unknown && w < numWireTypes }

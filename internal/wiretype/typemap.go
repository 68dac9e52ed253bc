package wiretype

import (
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"dataflow/internal/bulkerr"
)

type entry struct {
	host  reflect.Type
	wires []WireType
}

// typeMap is ordered; RepresentativeHostType returns the first match.
var typeMap = []entry{
	{reflect.TypeFor[bool](), []WireType{Bool}},
	{reflect.TypeFor[int16](), []WireType{Int2}},
	{reflect.TypeFor[int32](), []WireType{Int4}},
	{reflect.TypeFor[int64](), []WireType{Int8}},
	{reflect.TypeFor[int](), []WireType{Int8}},
	{reflect.TypeFor[float32](), []WireType{Float4}},
	{reflect.TypeFor[float64](), []WireType{Float8}},
	{reflect.TypeFor[pgtype.Numeric](), []WireType{Numeric}},
	{reflect.TypeFor[byte](), []WireType{QChar, BPChar}},
	{reflect.TypeFor[string](), []WireType{Text, Varchar, BPChar}},
	{reflect.TypeFor[time.Time](), []WireType{Timestamp, Date, Timestamptz}},
	{reflect.TypeFor[time.Duration](), []WireType{Interval}},
	{reflect.TypeFor[[]byte](), []WireType{Bytea}},
	{reflect.TypeFor[uuid.UUID](), []WireType{UUID}},
	{reflect.TypeFor[map[string]any](), []WireType{JSONB, JSON}},
}

var byHost = func() map[reflect.Type][]WireType {
	m := make(map[reflect.Type][]WireType, len(typeMap))
	for _, e := range typeMap {
		m[e.host] = e.wires
	}
	return m
}()

// Unwrap strips one pointer level, which is how a record field declares
// itself nullable. It reports whether t was a pointer.
func Unwrap(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() == reflect.Pointer {
		return t.Elem(), true
	}
	return t, false
}

// AcceptableWireTypes returns the wire types a host type may be written as.
// Pointer types are unwrapped first. The returned slice must not be modified.
func AcceptableWireTypes(host reflect.Type) ([]WireType, error) {
	host, _ = Unwrap(host)
	if wires, ok := byHost[host]; ok {
		return wires, nil
	}
	return nil, &bulkerr.UnsupportedTypeError{HostType: host.String()}
}

// Accepts reports whether host may be written as w.
func Accepts(host reflect.Type, w WireType) (bool, error) {
	wires, err := AcceptableWireTypes(host)
	if err != nil {
		return false, err
	}
	for _, x := range wires {
		if x == w {
			return true, nil
		}
	}
	return false, nil
}

// RepresentativeHostType returns one host type that can back w.
func RepresentativeHostType(w WireType) (reflect.Type, error) {
	for _, e := range typeMap {
		for _, x := range e.wires {
			if x == w {
				return e.host, nil
			}
		}
	}
	return nil, &bulkerr.UnsupportedTypeError{WireType: w.String()}
}

// Names renders wire types for diagnostics.
func Names(wires []WireType) []string {
	out := make([]string, len(wires))
	for i, w := range wires {
		out[i] = w.String()
	}
	return out
}

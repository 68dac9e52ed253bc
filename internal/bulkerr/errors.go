// Package bulkerr defines the named failures reported by the bulk loading
// engine. Construction-time failures (schema reconciliation) and write-time
// failures (COPY streaming) are distinct types so callers can branch with
// errors.As without parsing messages.
//
// None of these errors are retried inside the engine.
package bulkerr

import (
	"fmt"
	"strings"
)

// TableNameMissingError reports a record type that does not declare its
// destination table via a TableName() string method.
type TableNameMissingError struct {
	Type string
}

func (e *TableNameMissingError) Error() string {
	return fmt.Sprintf("bulk: type %s does not declare a table name (missing TableName() string)", e.Type)
}

// TableNotFoundError reports that the schema probe could not resolve Table.
type TableNotFoundError struct {
	Table string
	Err   error
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("bulk: table %q not found: %v", e.Table, e.Err)
}

func (e *TableNotFoundError) Unwrap() error { return e.Err }

// Primary-key sides reported by PrimaryKeyMissingError.
const (
	SideModel = "model"
	SideTable = "table"
)

// PrimaryKeyMissingError reports a missing (or unusable) primary key on
// either the record type or the live table.
type PrimaryKeyMissingError struct {
	Side   string // SideModel or SideTable
	Name   string // type name or table name
	Reason string // optional detail, e.g. composite key
}

func (e *PrimaryKeyMissingError) Error() string {
	msg := fmt.Sprintf("bulk: %s %s has no primary key", e.Side, e.Name)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// SchemaMismatchError reports that a record type and a table cannot be
// reconciled as a whole (empty model, column count mismatch, disagreeing keys).
type SchemaMismatchError struct {
	Table   string
	Fields  int
	Columns int
	Reason  string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("bulk: schema mismatch for %s (fields=%d columns=%d): %s",
		e.Table, e.Fields, e.Columns, e.Reason)
}

// FieldNotFoundError names a table column that no record field is mapped to.
type FieldNotFoundError struct {
	Table  string
	Column string
}

func (e *FieldNotFoundError) Error() string {
	return fmt.Sprintf("bulk: no field mapped to column %s.%s", e.Table, e.Column)
}

// TypeMismatchError reports a field whose host type cannot back the bound
// column's wire type.
type TypeMismatchError struct {
	Field    string
	HostType string
	Column   string
	WireType string
	Accepted []string // wire types legal for HostType
	Expects  string   // a host type that can back WireType, if any
}

func (e *TypeMismatchError) Error() string {
	msg := fmt.Sprintf("bulk: field %s (%s) cannot be written to column %s (%s); %s maps to [%s]",
		e.Field, e.HostType, e.Column, e.WireType, e.HostType, strings.Join(e.Accepted, ", "))
	if e.Expects != "" {
		msg += fmt.Sprintf("; column %s expects e.g. %s", e.WireType, e.Expects)
	}
	return msg
}

// UnsupportedTypeError reports a host type or wire type outside the type map.
// Exactly one of HostType and WireType is set.
type UnsupportedTypeError struct {
	HostType string
	WireType string
}

func (e *UnsupportedTypeError) Error() string {
	if e.HostType != "" {
		return fmt.Sprintf("bulk: host type %s is not supported", e.HostType)
	}
	return fmt.Sprintf("bulk: wire type %s is not supported", e.WireType)
}

// NoColumnsError reports a table whose insertable column list is empty.
type NoColumnsError struct {
	Table string
}

func (e *NoColumnsError) Error() string {
	return fmt.Sprintf("bulk: table %s has no insertable columns", e.Table)
}

// GeneratedColumnViolationError reports a record that supplies a non-default
// value for a database-generated column.
type GeneratedColumnViolationError struct {
	Row    int
	Field  string
	Column string
}

func (e *GeneratedColumnViolationError) Error() string {
	return fmt.Sprintf("bulk: row %d: field %s sets generated column %s", e.Row, e.Field, e.Column)
}

// EncodingError reports a value that cannot be converted to its bound wire
// representation. Row is -1 when the failing row is unknown (server-side
// data exception).
type EncodingError struct {
	Row      int
	Column   string
	WireType string
	Err      error
}

func (e *EncodingError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("bulk: encode: %v", e.Err)
	}
	return fmt.Sprintf("bulk: row %d: encode column %s as %s: %v", e.Row, e.Column, e.WireType, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// TransportError reports a connection-level failure during Op.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("bulk: %s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Package model reflects Go record types into field descriptors and compiles
// per-field accessors, once per type.
//
// A record type is annotated like this:
//
//	type Event struct {
//		ID      int64     `db:"id,pk"`
//		Name    string    `db:"name"`
//		Seen    *time.Time `db:"seen_at"`
//		scratch int       // unexported: ignored
//	}
//
//	func (Event) TableName() string { return "public.events" }
//
// Only exported, tagged, top-level fields are persisted. A pointer field is
// the nullable form of its element type.
package model

import (
	"fmt"
	"reflect"
	"strings"

	"dataflow/internal/bulkerr"
	"dataflow/internal/wiretype"
)

// TagName is the struct tag key read by Reflect.
const TagName = "db"

// Tabler is implemented by record types to declare their destination table.
type Tabler interface {
	TableName() string
}

// Field describes one persisted struct field.
type Field struct {
	Name       string       // Go field name
	Column     string       // declared column name
	HostType   reflect.Type // declared type, possibly a pointer
	Underlying reflect.Type // HostType with nullability unwrapped
	Nullable   bool
	PrimaryKey bool
	Offset     uintptr
}

// Model is the reflected, immutable description of a record type.
type Model struct {
	Type       reflect.Type
	TableName  string
	Fields     []Field
	PrimaryKey string              // Go field name of the primary key
	Accessors  map[string]Accessor // keyed by Go field name
}

// Field returns the field with the given Go name.
func (m *Model) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Reflect inspects a struct type and compiles its accessors.
func Reflect(t reflect.Type) (*Model, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("model: %s is not a struct", t)
	}

	table, ok := tableName(t)
	if !ok {
		return nil, &bulkerr.TableNameMissingError{Type: t.String()}
	}

	m := &Model{
		Type:      t,
		TableName: table,
		Accessors: make(map[string]Accessor, t.NumField()),
	}
	seen := make(map[string]string, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		col, pk, ok := parseTag(sf.Tag.Get(TagName))
		if !ok {
			continue
		}
		if prev, dup := seen[col]; dup {
			return nil, fmt.Errorf("model: %s: fields %s and %s both map to column %q", t, prev, sf.Name, col)
		}
		seen[col] = sf.Name

		under, nullable := wiretype.Unwrap(sf.Type)
		if k := under.Kind(); k == reflect.Slice || k == reflect.Map {
			nullable = true
		}
		f := Field{
			Name:       sf.Name,
			Column:     col,
			HostType:   sf.Type,
			Underlying: under,
			Nullable:   nullable,
			PrimaryKey: pk,
			Offset:     sf.Offset,
		}
		if pk {
			if m.PrimaryKey != "" {
				return nil, fmt.Errorf("model: %s: more than one primary key field (%s, %s)", t, m.PrimaryKey, sf.Name)
			}
			m.PrimaryKey = sf.Name
		}

		acc, err := Compile(f)
		if err != nil {
			return nil, err
		}
		m.Fields = append(m.Fields, f)
		m.Accessors[f.Name] = acc
	}

	if m.PrimaryKey == "" {
		return nil, &bulkerr.PrimaryKeyMissingError{Side: bulkerr.SideModel, Name: t.String()}
	}
	return m, nil
}

// tableName asks a new *T for its table; the pointer method set covers
// value receivers too.
func tableName(t reflect.Type) (string, bool) {
	tb, ok := reflect.New(t).Interface().(Tabler)
	if !ok {
		return "", false
	}
	name := strings.TrimSpace(tb.TableName())
	return name, name != ""
}

// parseTag splits `db:"name,pk"`. ok is false for absent or "-" tags.
func parseTag(tag string) (col string, pk, ok bool) {
	if tag == "" || tag == "-" {
		return "", false, false
	}
	parts := strings.Split(tag, ",")
	col = strings.TrimSpace(parts[0])
	if col == "" {
		return "", false, false
	}
	for _, opt := range parts[1:] {
		if strings.TrimSpace(opt) == "pk" {
			pk = true
		}
	}
	return col, pk, true
}

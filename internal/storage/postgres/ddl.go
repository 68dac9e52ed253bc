package postgres

import (
	"fmt"
	"strings"

	"dataflow/internal/model"
	"dataflow/internal/wiretype"
)

// ColumnDef is one column of a generated CREATE TABLE.
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Identity   bool // GENERATED BY DEFAULT AS IDENTITY
}

// TableDef is a table definition derived from a record model.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

var sqlTypes = map[wiretype.WireType]string{
	wiretype.Bool:        "boolean",
	wiretype.Int2:        "smallint",
	wiretype.Int4:        "integer",
	wiretype.Int8:        "bigint",
	wiretype.Float4:      "real",
	wiretype.Float8:      "double precision",
	wiretype.Numeric:     "numeric",
	wiretype.QChar:       `"char"`,
	wiretype.BPChar:      "character(1)",
	wiretype.Varchar:     "varchar",
	wiretype.Text:        "text",
	wiretype.Date:        "date",
	wiretype.Timestamp:   "timestamp",
	wiretype.Timestamptz: "timestamptz",
	wiretype.Interval:    "interval",
	wiretype.Bytea:       "bytea",
	wiretype.UUID:        "uuid",
	wiretype.JSON:        "json",
	wiretype.JSONB:       "jsonb",
}

// TableDefFromModel picks, per field, the first acceptable wire type of its
// host type. With identityPK an integer primary key becomes an identity column.
func TableDefFromModel(m *model.Model, identityPK bool) (TableDef, error) {
	td := TableDef{FQN: m.TableName, Columns: make([]ColumnDef, 0, len(m.Fields))}
	for _, f := range m.Fields {
		wires, err := wiretype.AcceptableWireTypes(f.Underlying)
		if err != nil {
			return TableDef{}, err
		}
		w := wires[0]
		cd := ColumnDef{
			Name:       f.Column,
			SQLType:    sqlTypes[w],
			Nullable:   f.Nullable,
			PrimaryKey: f.PrimaryKey,
		}
		if f.PrimaryKey && identityPK {
			switch w {
			case wiretype.Int2, wiretype.Int4, wiretype.Int8:
				cd.Identity = true
			default:
				return TableDef{}, fmt.Errorf("postgres ddl: identity key %s must be an integer, got %s", f.Column, w)
			}
		}
		td.Columns = append(td.Columns, cd)
	}
	return td, nil
}

// BuildCreateTableSQL builds a deterministic CREATE TABLE IF NOT EXISTS.
// Primary-key columns are always NOT NULL; the key is rendered as a
// separate constraint clause.
func BuildCreateTableSQL(t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("postgres ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("postgres ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+1)
	var pk string
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("postgres ddl: column with empty name in table %s", fqn)
		}
		if strings.TrimSpace(c.SQLType) == "" {
			return "", fmt.Errorf("postgres ddl: column %s missing SQLType", name)
		}

		var sb strings.Builder
		sb.WriteString(QuoteIdent(name))
		sb.WriteByte(' ')
		sb.WriteString(c.SQLType)
		if c.Identity {
			sb.WriteString(" GENERATED BY DEFAULT AS IDENTITY")
		}
		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			if pk != "" {
				return "", fmt.Errorf("postgres ddl: table %s has more than one primary key column", fqn)
			}
			pk = QuoteIdent(name)
		}
	}
	if pk != "" {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", pk))
	}

	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
		QuoteFQN(fqn),
		strings.Join(cols, ",\n  "),
	), nil
}

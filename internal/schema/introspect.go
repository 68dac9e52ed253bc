// Package schema reads the live shape of a destination table: column order,
// wire type OIDs, nullability, generated flags and the primary key.
//
// Results are captured once per call and never refreshed.
package schema

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"dataflow/internal/bulkerr"
	"dataflow/internal/storage/postgres"
)

// Querier is the subset of a pgx connection used for introspection.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Column describes one live table column.
type Column struct {
	Name       string
	OID        uint32 // type OID from the probe's field description
	TypeName   string // format_type() rendering, e.g. "numeric(10,2)"
	Nullable   bool
	Generated  bool // identity, stored generated, or serial default
	PrimaryKey bool
}

// Table is an ordered column list plus the primary-key column name.
type Table struct {
	Name       string
	Columns    []Column
	PrimaryKey string
}

// Column returns the column named name.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

const catalogSQL = `SELECT a.attname,
       a.attnotnull,
       format_type(a.atttypid, a.atttypmod),
       a.attidentity <> '' OR a.attgenerated <> ''
         OR COALESCE(pg_get_expr(d.adbin, d.adrelid) LIKE 'nextval(%', false)
FROM pg_attribute a
LEFT JOIN pg_attrdef d ON d.adrelid = a.attrelid AND d.adnum = a.attnum
WHERE a.attrelid = $1::regclass AND a.attnum > 0 AND NOT a.attisdropped
ORDER BY a.attnum`

const primaryKeySQL = `SELECT a.attname
FROM pg_index i
JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
WHERE i.indrelid = $1::regclass AND i.indisprimary
ORDER BY a.attnum`

// Introspect runs the probe, catalog and primary-key queries for table.
func Introspect(ctx context.Context, q Querier, table string) (*Table, error) {
	fqn := postgres.QuoteFQN(table)

	cols, err := probe(ctx, q, table, fqn)
	if err != nil {
		return nil, err
	}

	if err := annotate(ctx, q, table, fqn, cols); err != nil {
		return nil, err
	}

	pk, err := primaryKey(ctx, q, table, fqn)
	if err != nil {
		return nil, err
	}
	found := false
	for i := range cols {
		if cols[i].Name == pk {
			cols[i].PrimaryKey = true
			found = true
		}
	}
	if !found {
		return nil, &bulkerr.PrimaryKeyMissingError{
			Side:   bulkerr.SideTable,
			Name:   table,
			Reason: fmt.Sprintf("key column %q not in probe result", pk),
		}
	}

	return &Table{Name: table, Columns: cols, PrimaryKey: pk}, nil
}

// probe runs SELECT * ... LIMIT 0 and reads the field descriptions.
func probe(ctx context.Context, q Querier, table, fqn string) ([]Column, error) {
	rows, err := q.Query(ctx, "SELECT * FROM "+fqn+" LIMIT 0")
	if err != nil {
		return nil, classify(table, "probe", err)
	}
	fds := rows.FieldDescriptions()
	cols := make([]Column, 0, len(fds))
	for _, fd := range fds {
		cols = append(cols, Column{Name: fd.Name, OID: fd.DataTypeOID, Nullable: true})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, classify(table, "probe", err)
	}
	return cols, nil
}

// annotate fills nullability, type names and generated flags from the catalog.
func annotate(ctx context.Context, q Querier, table, fqn string, cols []Column) error {
	rows, err := q.Query(ctx, catalogSQL, fqn)
	if err != nil {
		return classify(table, "catalog", err)
	}
	defer rows.Close()

	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		idx[c.Name] = i
	}
	for rows.Next() {
		var (
			name, typeName     string
			notNull, generated bool
		)
		if err := rows.Scan(&name, &notNull, &typeName, &generated); err != nil {
			return fmt.Errorf("schema: scan catalog row for %s: %w", table, err)
		}
		i, ok := idx[name]
		if !ok {
			continue
		}
		cols[i].Nullable = !notNull
		cols[i].TypeName = typeName
		cols[i].Generated = generated
	}
	if err := rows.Err(); err != nil {
		return classify(table, "catalog", err)
	}
	return nil
}

func primaryKey(ctx context.Context, q Querier, table, fqn string) (string, error) {
	rows, err := q.Query(ctx, primaryKeySQL, fqn)
	if err != nil {
		return "", classify(table, "primary key", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", fmt.Errorf("schema: scan primary key for %s: %w", table, err)
		}
		keys = append(keys, name)
	}
	if err := rows.Err(); err != nil {
		return "", classify(table, "primary key", err)
	}

	switch len(keys) {
	case 0:
		return "", &bulkerr.PrimaryKeyMissingError{Side: bulkerr.SideTable, Name: table}
	case 1:
		return keys[0], nil
	default:
		return "", &bulkerr.PrimaryKeyMissingError{
			Side:   bulkerr.SideTable,
			Name:   table,
			Reason: fmt.Sprintf("composite key %v is not supported", keys),
		}
	}
}

// classify maps a probe-time server error to TableNotFoundError. Later
// server errors are wrapped as-is; non-server failures become TransportError.
func classify(table, op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if op == "probe" {
			return &bulkerr.TableNotFoundError{Table: table, Err: err}
		}
		return fmt.Errorf("schema: %s query for %s: %w", op, table, err)
	}
	return &bulkerr.TransportError{Op: "introspect " + op, Err: err}
}

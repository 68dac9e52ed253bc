package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/zeebo/xxh3"
)

// Staging column names used by the partial update path.
const (
	StagePKColumn    = "pk_temp"
	StageValueColumn = "col_temp"
)

// QuoteIdent quotes a single identifier segment for Postgres.
func QuoteIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// QuoteFQN quotes a possibly schema-qualified name like "public.events" to
// "public"."events". Empty segments are ignored.
func QuoteFQN(name string) string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, QuoteIdent(p))
	}
	return strings.Join(out, ".")
}

// Identifier converts "schema.table" into a pgx.Identifier {"schema","table"}.
func Identifier(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}

// StagingName derives a connection-local staging table name for (table,
// column). The hash keeps the name short and stable for any input.
func StagingName(table, column string) string {
	h := xxh3.HashString(table + "\x00" + column)
	return "dataflow_stage_" + strconv.FormatUint(h, 16)
}

// BuildStagingTableSQL returns the DDL for a two-column temporary table that
// is dropped when the enclosing transaction commits or rolls back.
func BuildStagingTableSQL(stage, pkType, valueType string) string {
	return fmt.Sprintf(
		"CREATE TEMPORARY TABLE %s (%s %s, %s %s) ON COMMIT DROP",
		QuoteIdent(stage),
		QuoteIdent(StagePKColumn), pkType,
		QuoteIdent(StageValueColumn), valueType,
	)
}

// BuildUpdateFromSQL returns the join update that copies staged values into
// column of table, matching table.pk to the staged key.
func BuildUpdateFromSQL(table, pk, column, stage string) string {
	return fmt.Sprintf(
		"UPDATE %s AS T SET %s = S.%s FROM %s AS S WHERE T.%s = S.%s",
		QuoteFQN(table),
		QuoteIdent(column), QuoteIdent(StageValueColumn),
		QuoteIdent(stage),
		QuoteIdent(pk), QuoteIdent(StagePKColumn),
	)
}

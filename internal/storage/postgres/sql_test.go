package postgres

import (
	"strings"
	"testing"
	"time"

	"dataflow/internal/model"
)

// TestQuoteIdent verifies Postgres identifier quoting and escaping for single
// identifier segments.
func TestQuoteIdent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "simple", in: "name", want: `"name"`},
		{name: "empty", in: "", want: `""`},
		{name: "with space", in: "user name", want: `"user name"`},
		{name: "with double quote", in: `weird"name`, want: `"weird""name"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := QuoteIdent(tt.in); got != tt.want {
				t.Fatalf("QuoteIdent(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestQuoteFQNAndIdentifier(t *testing.T) {
	t.Parallel()

	if got, want := QuoteFQN("public.events"), `"public"."events"`; got != want {
		t.Fatalf("QuoteFQN = %q, want %q", got, want)
	}
	if got, want := QuoteFQN("events"), `"events"`; got != want {
		t.Fatalf("QuoteFQN = %q, want %q", got, want)
	}
	id := Identifier("public.events")
	if len(id) != 2 || id[0] != "public" || id[1] != "events" {
		t.Fatalf("Identifier = %#v", id)
	}
	if got := Identifier("events"); len(got) != 1 || got[0] != "events" {
		t.Fatalf("Identifier = %#v", got)
	}
}

func TestStagingName_StableAndDistinct(t *testing.T) {
	t.Parallel()

	a := StagingName("public.events", "score")
	if a != StagingName("public.events", "score") {
		t.Fatalf("StagingName not stable")
	}
	if a == StagingName("public.events", "name") {
		t.Fatalf("StagingName collides across columns")
	}
	if !strings.HasPrefix(a, "dataflow_stage_") || len(a) > 63 {
		t.Fatalf("StagingName = %q, want dataflow_stage_ prefix within 63 bytes", a)
	}
}

func TestBuildStagingAndUpdateSQL(t *testing.T) {
	t.Parallel()

	got := BuildStagingTableSQL("stage", "bigint", "numeric(10,2)")
	want := `CREATE TEMPORARY TABLE "stage" ("pk_temp" bigint, "col_temp" numeric(10,2)) ON COMMIT DROP`
	if got != want {
		t.Fatalf("BuildStagingTableSQL =\n%s\nwant\n%s", got, want)
	}

	got = BuildUpdateFromSQL("public.t", "pk", "b", "stage")
	want = `UPDATE "public"."t" AS T SET "b" = S."col_temp" FROM "stage" AS S WHERE T."pk" = S."pk_temp"`
	if got != want {
		t.Fatalf("BuildUpdateFromSQL =\n%s\nwant\n%s", got, want)
	}
}

type ddlRecord struct {
	ID      int64      `db:"id,pk"`
	Name    string     `db:"name"`
	Seen    *time.Time `db:"seen_at"`
	Payload []byte     `db:"payload"`
}

func (ddlRecord) TableName() string { return "public.ddl_record" }

func TestTableDefFromModel_AndCreateSQL(t *testing.T) {
	t.Parallel()

	m, err := model.Of[ddlRecord](model.NewRegistry())
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	td, err := TableDefFromModel(m, true)
	if err != nil {
		t.Fatalf("TableDefFromModel: %v", err)
	}
	got, err := BuildCreateTableSQL(td)
	if err != nil {
		t.Fatalf("BuildCreateTableSQL: %v", err)
	}
	want := `CREATE TABLE IF NOT EXISTS "public"."ddl_record" (
  "id" bigint GENERATED BY DEFAULT AS IDENTITY NOT NULL,
  "name" text NOT NULL,
  "seen_at" timestamp,
  "payload" bytea,
  PRIMARY KEY ("id")
);`
	if got != want {
		t.Fatalf("CREATE SQL =\n%s\nwant\n%s", got, want)
	}
}

func TestBuildCreateTableSQL_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		def  TableDef
	}{
		{name: "empty fqn", def: TableDef{Columns: []ColumnDef{{Name: "a", SQLType: "int"}}}},
		{name: "no columns", def: TableDef{FQN: "t"}},
		{name: "empty column name", def: TableDef{FQN: "t", Columns: []ColumnDef{{SQLType: "int"}}}},
		{name: "missing type", def: TableDef{FQN: "t", Columns: []ColumnDef{{Name: "a"}}}},
		{name: "two keys", def: TableDef{FQN: "t", Columns: []ColumnDef{
			{Name: "a", SQLType: "int", PrimaryKey: true},
			{Name: "b", SQLType: "int", PrimaryKey: true},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := BuildCreateTableSQL(tt.def); err == nil {
				t.Fatalf("BuildCreateTableSQL(%+v) error = nil, want non-nil", tt.def)
			}
		})
	}
}

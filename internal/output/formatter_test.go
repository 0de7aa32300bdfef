package output

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqliteadmin/internal/core"
	"sqliteadmin/internal/diff"
	"sqliteadmin/internal/migration"
)

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		name string
		want Formatter
	}{
		{"", sqlFormatter{}},
		{"sql", sqlFormatter{}},
		{"SQL", sqlFormatter{}},
		{"  sql  ", sqlFormatter{}},
		{"json", jsonFormatter{}},
		{"JSON", jsonFormatter{}},
		{"summary", summaryFormatter{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFormatter(tt.name)
			require.NoError(t, err)
			assert.IsType(t, tt.want, f)
		})
	}
}

func TestNewFormatterInvalidFormat(t *testing.T) {
	f, err := NewFormatter("invalid")
	require.Error(t, err)
	assert.Nil(t, f)
	assert.Contains(t, err.Error(), "unsupported format")
}

func sampleMigration() *migration.Migration {
	m := migration.New("users")
	m.AddBestEffortStep(core.StepCleanup, `DROP TABLE IF EXISTS "temp_users"`)
	m.AddStep(core.StepCreateShadow, `CREATE TABLE "temp_users" ("id" INTEGER PRIMARY KEY AUTOINCREMENT)`)
	m.AddStep(core.StepCopyRows, `INSERT INTO "temp_users" ("id") SELECT "id" FROM "users"`)
	m.AddRiskyStep(core.StepDropOriginal, `DROP TABLE "users"`, core.RiskWarning)
	m.AddStep(core.StepRenameShadow, `ALTER TABLE "temp_users" RENAME TO "users"`)
	m.AddBreaking(`column "name" and its data will be removed`)
	m.AddNote(`index "idx_users_name" is not recreated: column "name" no longer exists`)
	return m
}

func sampleDiff() *diff.TableDiff {
	oldCols := []*core.Column{
		{Name: "id", Type: "INTEGER", PrimaryKey: true, PKPosition: 1, AutoIncrement: true},
		{Name: "name", Type: "TEXT"},
	}
	newCols := []*core.Column{
		{Name: "id", Type: "INTEGER", PrimaryKey: true, PKPosition: 1, AutoIncrement: true},
		{Name: "name", Type: "VARCHAR", Length: 50, NotNull: true},
		{Name: "age", Type: "INTEGER", Default: core.StringPtr("0")},
	}
	return diff.Columns("users", oldCols, newCols, nil)
}

func TestSQLFormatterFormatMigration(t *testing.T) {
	out, err := sqlFormatter{}.FormatMigration(sampleMigration())
	require.NoError(t, err)

	assert.Contains(t, out, "-- sqliteadmin mutation of users")
	assert.Contains(t, out, "-- BREAKING CHANGES (data will be lost)")
	assert.Contains(t, out, `-- - column "name" and its data will be removed`)
	assert.Contains(t, out, "BEGIN;\n")
	assert.Contains(t, out, "-- cleanup (best effort)\nDROP TABLE IF EXISTS \"temp_users\";\n")
	assert.Contains(t, out, "-- drop_original [WARNING]\nDROP TABLE \"users\";\n")
	assert.Contains(t, out, "COMMIT;\n")
	assert.Less(t, strings.Index(out, "BEGIN;"), strings.Index(out, "COMMIT;"))
}

func TestSQLFormatterEmptyMigration(t *testing.T) {
	out, err := sqlFormatter{}.FormatMigration(migration.New("users"))
	require.NoError(t, err)
	assert.Contains(t, out, "No SQL statements generated.")

	out, err = sqlFormatter{}.FormatMigration(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSQLFormatterFormatTable(t *testing.T) {
	tbl := &core.Table{
		Name: "users",
		SQL:  "CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT)",
		Indexes: []*core.Index{
			{Name: "idx_users_name", Columns: []string{"name"}, SQL: "CREATE INDEX idx_users_name ON users (name)"},
		},
		Triggers: []*core.Trigger{
			{Name: "trg_users", SQL: "CREATE TRIGGER trg_users AFTER INSERT ON users BEGIN SELECT 1; END"},
		},
	}
	out, err := sqlFormatter{}.FormatTable(tbl)
	require.NoError(t, err)
	assert.Equal(t,
		"CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT);\n"+
			"CREATE INDEX idx_users_name ON users (name);\n"+
			"CREATE TRIGGER trg_users AFTER INSERT ON users BEGIN SELECT 1; END;\n",
		out)
}

func TestJSONFormatterFormatMigration(t *testing.T) {
	out, err := jsonFormatter{}.FormatMigration(sampleMigration())
	require.NoError(t, err)

	var payload migrationPayload
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, "json", payload.Format)
	assert.Equal(t, "users", payload.Table)
	assert.Equal(t, 5, payload.Summary.SQLStatements)
	assert.Equal(t, 1, payload.Summary.BreakingChanges)
	assert.Equal(t, 1, payload.Summary.Notes)
	require.Len(t, payload.Steps, 5)
	assert.True(t, payload.Steps[0].BestEffort)
	assert.Equal(t, `DROP TABLE "users";`, payload.SQL[3])
}

func TestJSONFormatterFormatDiff(t *testing.T) {
	out, err := jsonFormatter{}.FormatDiff(sampleDiff())
	require.NoError(t, err)

	var payload diffPayload
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	require.NotNil(t, payload.Diff)
	assert.Equal(t, "users", payload.Diff.Name)
	require.Len(t, payload.Diff.AddedColumns, 1)
	assert.Equal(t, "age", payload.Diff.AddedColumns[0].Name)
	assert.NotEmpty(t, payload.BreakingChanges)
}

func TestJSONFormatterNilDiff(t *testing.T) {
	out, err := jsonFormatter{}.FormatDiff(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"format":"json"}`, out)
}

func TestSummaryFormatterFormatDiff(t *testing.T) {
	out, err := summaryFormatter{}.FormatDiff(sampleDiff())
	require.NoError(t, err)
	assert.Contains(t, out, "Table users")
	assert.Contains(t, out, "Columns:   +1, ~1, -0, renamed 0")
	assert.Contains(t, out, "+ age INTEGER DEFAULT '0'")
	assert.Contains(t, out, "~ name.type: TEXT -> VARCHAR(50)")
	assert.Contains(t, out, "~ name.not_null: false -> true")
	assert.Contains(t, out, "[WARNING]")

	out, err = summaryFormatter{}.FormatDiff(nil)
	require.NoError(t, err)
	assert.Equal(t, "No changes detected.\n", out)
}

func TestSummaryFormatterFormatMigration(t *testing.T) {
	out, err := summaryFormatter{}.FormatMigration(sampleMigration())
	require.NoError(t, err)
	assert.Contains(t, out, "Mutation Summary")
	assert.Contains(t, out, "SQL Statements: 5")
	assert.Contains(t, out, "   create_shadow\n")
	assert.Contains(t, out, "Breaking Changes: 1")
	assert.Contains(t, out, "Notes: 1")

	out, err = summaryFormatter{}.FormatMigration(nil)
	require.NoError(t, err)
	assert.Equal(t, "No migration operations.\n", out)
}

func TestSummaryFormatterFormatTable(t *testing.T) {
	tbl := &core.Table{
		Name: "users",
		Columns: []*core.Column{
			{Name: "id", Type: "INTEGER", PrimaryKey: true, PKPosition: 1, AutoIncrement: true},
			{Name: "name", Type: "VARCHAR(50)", NotNull: true, Default: core.StringPtr("unknown")},
		},
		Indexes:  []*core.Index{{Name: "idx_users_name", Unique: true, Columns: []string{"name"}}},
		Triggers: []*core.Trigger{{Name: "trg_users"}},
	}
	out, err := summaryFormatter{}.FormatTable(tbl)
	require.NoError(t, err)
	assert.Contains(t, out, "Table users (2 columns, 1 indexes)")
	assert.Contains(t, out, "  id INTEGER PRIMARY KEY AUTOINCREMENT\n")
	assert.Contains(t, out, "  name VARCHAR(50) NOT NULL DEFAULT 'unknown'\n")
	assert.Contains(t, out, "  UNIQUE INDEX idx_users_name (name)\n")
	assert.Contains(t, out, "  TRIGGER trg_users\n")
}

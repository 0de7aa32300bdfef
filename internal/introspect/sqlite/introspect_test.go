package sqlite

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqliteadmin/internal/core"
	"sqliteadmin/internal/introspect"
	"sqliteadmin/internal/sqlitedb"
)

func openDB(t *testing.T, stmts ...string) *sql.DB {
	t.Helper()
	db, err := sqlitedb.OpenMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	for _, s := range stmts {
		_, err := db.Exec(s)
		require.NoError(t, err, s)
	}
	return db
}

func TestIntrospect(t *testing.T) {
	db := openDB(t,
		`CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			email VARCHAR(100) DEFAULT 'none',
			score REAL DEFAULT 0,
			note TEXT DEFAULT NULL
		)`,
		`CREATE UNIQUE INDEX idx_users_email ON users (email)`,
		`CREATE INDEX idx_users_name_score ON users (name, score)`,
	)

	in, err := introspect.NewIntrospecter(core.DialectSQLite)
	require.NoError(t, err)

	table, err := in.Introspect(context.Background(), db, "USERS")
	require.NoError(t, err)
	assert.Equal(t, "users", table.Name)
	assert.Contains(t, table.SQL, "AUTOINCREMENT")
	require.Len(t, table.Columns, 5)

	id := table.Columns[0]
	assert.Equal(t, "id", id.Name)
	assert.Equal(t, "INTEGER", id.Type)
	assert.True(t, id.PrimaryKey)
	assert.Equal(t, 1, id.PKPosition)
	assert.True(t, id.AutoIncrement)

	name := table.Columns[1]
	assert.True(t, name.NotNull)
	assert.False(t, name.PrimaryKey)
	assert.Nil(t, name.Default)

	email := table.Columns[2]
	assert.Equal(t, "VARCHAR(100)", email.Type)
	require.NotNil(t, email.Default)
	assert.Equal(t, "none", *email.Default)

	score := table.Columns[3]
	require.NotNil(t, score.Default)
	assert.Equal(t, "0", *score.Default)

	assert.Nil(t, table.Columns[4].Default)

	require.Len(t, table.Indexes, 2)
	assert.Equal(t, "idx_users_email", table.Indexes[0].Name)
	assert.True(t, table.Indexes[0].Unique)
	assert.Equal(t, []string{"email"}, table.Indexes[0].Columns)
	assert.Equal(t, "idx_users_name_score", table.Indexes[1].Name)
	assert.False(t, table.Indexes[1].Unique)
	assert.Equal(t, []string{"name", "score"}, table.Indexes[1].Columns)
}

func TestIntrospectCompositeKey(t *testing.T) {
	db := openDB(t, `CREATE TABLE memberships (user_id INTEGER, group_id INTEGER, role TEXT, PRIMARY KEY (group_id, user_id))`)

	table, err := New().Introspect(context.Background(), db, "memberships")
	require.NoError(t, err)
	require.Len(t, table.Columns, 3)
	assert.Equal(t, 2, table.Columns[0].PKPosition)
	assert.Equal(t, 1, table.Columns[1].PKPosition)
	assert.False(t, table.Columns[2].PrimaryKey)
	assert.False(t, table.Columns[0].AutoIncrement)
	assert.Empty(t, table.Indexes, "automatic key indexes have no stored SQL")
}

func TestIntrospectTriggersAndSequence(t *testing.T) {
	db := openDB(t,
		`CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT)`,
		`CREATE TABLE audit (user_id INTEGER)`,
		`CREATE TRIGGER trg_users_insert AFTER INSERT ON users BEGIN INSERT INTO audit VALUES (new.id); END`,
		`CREATE TRIGGER trg_audit_insert AFTER INSERT ON audit BEGIN SELECT 1; END`,
		`INSERT INTO users (name) VALUES ('a'), ('b'), ('c')`,
		`DELETE FROM users WHERE id = 3`,
	)

	tests := []struct {
		table    string
		triggers []string
		sequence int64
	}{
		{table: "users", triggers: []string{"trg_users_insert"}, sequence: 3},
		{table: "audit", triggers: []string{"trg_audit_insert"}, sequence: 0},
	}
	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			table, err := New().Introspect(context.Background(), db, tt.table)
			require.NoError(t, err)

			var names []string
			for _, trg := range table.Triggers {
				names = append(names, trg.Name)
				assert.Contains(t, trg.SQL, "CREATE TRIGGER")
			}
			assert.Equal(t, tt.triggers, names)
			assert.Equal(t, tt.sequence, table.Sequence)
		})
	}
}

func TestIntrospectMissingTable(t *testing.T) {
	db := openDB(t)
	_, err := New().Introspect(context.Background(), db, "ghosts")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestIntrospectStorageError(t *testing.T) {
	db := openDB(t)
	require.NoError(t, db.Close())

	_, err := New().Introspect(context.Background(), db, "users")
	require.Error(t, err)
	assert.True(t, core.IsStorageError(err))
}

func TestTables(t *testing.T) {
	db := openDB(t,
		`CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT)`,
		`CREATE TABLE accounts (id INTEGER)`,
		`CREATE VIEW v_users AS SELECT id FROM users`,
		`INSERT INTO users DEFAULT VALUES`,
	)

	names, err := New().Tables(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, []string{"accounts", "users"}, names, "views and sqlite_sequence are excluded")
}

func TestHasAutoIncrement(t *testing.T) {
	tests := []struct {
		name   string
		sql    string
		column string
		want   bool
	}{
		{name: "plain", sql: `CREATE TABLE t (id INTEGER PRIMARY KEY AUTOINCREMENT, n TEXT)`, column: "id", want: true},
		{name: "lowercase", sql: `create table t (id integer primary key autoincrement)`, column: "id", want: true},
		{name: "double quoted", sql: `CREATE TABLE "t" ("id" INTEGER PRIMARY KEY AUTOINCREMENT)`, column: "id", want: true},
		{name: "backticks", sql: "CREATE TABLE t (`id` INTEGER PRIMARY KEY AUTOINCREMENT)", column: "id", want: true},
		{name: "brackets", sql: `CREATE TABLE t ([id] INTEGER PRIMARY KEY AUTOINCREMENT)`, column: "id", want: true},
		{name: "constraint in between", sql: `CREATE TABLE t (id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT)`, column: "id", want: true},
		{name: "multiline", sql: "CREATE TABLE t (\n  id INTEGER\n  PRIMARY KEY\n  AUTOINCREMENT\n)", column: "id", want: true},
		{name: "no autoincrement", sql: `CREATE TABLE t (id INTEGER PRIMARY KEY, n TEXT)`, column: "id", want: false},
		{name: "other column", sql: `CREATE TABLE t (id INTEGER PRIMARY KEY AUTOINCREMENT, n TEXT)`, column: "n", want: false},
		{name: "suffix of another name", sql: `CREATE TABLE t (user_id INTEGER PRIMARY KEY AUTOINCREMENT, id INTEGER)`, column: "id", want: false},
		{name: "comma ends the clause", sql: `CREATE TABLE t (id INTEGER PRIMARY KEY, seq INTEGER AUTOINCREMENT)`, column: "id", want: false},
		{name: "empty sql", sql: "", column: "id", want: false},
		{name: "empty column", sql: `CREATE TABLE t (id INTEGER PRIMARY KEY AUTOINCREMENT)`, column: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasAutoIncrement(tt.sql, tt.column))
		})
	}
}

func TestParseDefault(t *testing.T) {
	tests := []struct {
		raw  string
		want *string
	}{
		{raw: "'active'", want: core.StringPtr("active")},
		{raw: "'it''s'", want: core.StringPtr("it's")},
		{raw: "''", want: core.StringPtr("")},
		{raw: "0", want: core.StringPtr("0")},
		{raw: "CURRENT_TIMESTAMP", want: core.StringPtr("CURRENT_TIMESTAMP")},
		{raw: "NULL", want: nil},
		{raw: "null", want: nil},
		{raw: "  ", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDefault(tt.raw))
		})
	}
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqliteadmin/internal/sqlitedb"
)

func seedDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.db")
	db, err := sqlitedb.Open(context.Background(), path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, email TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO users (name, email) VALUES ('Alice', 'alice@example.com'), ('Bob', NULL)`)
	require.NoError(t, err)
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cfg := filepath.Join(t.TempDir(), "settings.toml")
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", cfg}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func columns(t *testing.T, path, table string) []string {
	t.Helper()
	db, err := sqlitedb.Open(context.Background(), path)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query(`SELECT name FROM pragma_table_info(?) ORDER BY cid`, table)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	require.NoError(t, rows.Err())
	return names
}

func TestColumnCommands(t *testing.T) {
	path := seedDB(t)

	out, stderr, err := run(t, "column", "add", path, "users", "age", "--type", "integer", "--default", "0")
	require.NoError(t, err)
	assert.Contains(t, out, `CREATE TABLE "temp_users"`)
	assert.Contains(t, out, "COMMIT;")
	assert.Contains(t, stderr, "Column age added to users")
	assert.Equal(t, []string{"id", "name", "email", "age"}, columns(t, path, "users"))

	_, _, err = run(t, "column", "rename", path, "users", "email", "mail")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "mail", "age"}, columns(t, path, "users"))

	_, _, err = run(t, "column", "modify", path, "users", "name", "--name", "full_name", "--type", "VARCHAR", "--length", "80")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "full_name", "mail", "age"}, columns(t, path, "users"))

	_, _, err = run(t, "column", "delete", path, "users", "age")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "full_name", "mail"}, columns(t, path, "users"))
}

func TestColumnAddDryRun(t *testing.T) {
	path := seedDB(t)

	out, stderr, err := run(t, "column", "add", path, "users", "age", "--type", "INTEGER", "--dry-run", "--format", "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "+ age INTEGER")
	assert.Contains(t, stderr, "Dry run: nothing was changed")
	assert.Equal(t, []string{"id", "name", "email"}, columns(t, path, "users"))
}

func TestColumnCommandErrors(t *testing.T) {
	path := seedDB(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing type", args: []string{"column", "add", path, "users", "age"}},
		{name: "unknown table", args: []string{"column", "delete", path, "ghosts", "name"}},
		{name: "unknown column", args: []string{"column", "delete", path, "users", "ghost"}},
		{name: "duplicate column", args: []string{"column", "add", path, "users", "email", "--type", "TEXT"}},
		{name: "bad format", args: []string{"column", "delete", path, "users", "email", "--format", "xml"}},
		{name: "bad rename", args: []string{"table", "rename", path, "users", "9people"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			require.Error(t, err)
		})
	}
	assert.Equal(t, []string{"id", "name", "email"}, columns(t, path, "users"))
}

func TestTableRenameJSON(t *testing.T) {
	path := seedDB(t)

	out, stderr, err := run(t, "table", "rename", path, "users", "people", "--format", "json")
	require.NoError(t, err)
	assert.NotContains(t, stderr, "Table users renamed")

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Contains(t, res, "plan")
	assert.Contains(t, out, `ALTER TABLE \"users\" RENAME TO \"people\"`)

	out, _, err = run(t, "structure", path)
	require.NoError(t, err)
	assert.Equal(t, "people\n", out)
}

func TestStructure(t *testing.T) {
	path := seedDB(t)

	out, _, err := run(t, "structure", path, "users")
	require.NoError(t, err)
	assert.Contains(t, out, "Table users (3 columns, 0 indexes)")

	out, _, err = run(t, "structure", path, "users", "--format", "sql")
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE users")

	_, _, err = run(t, "structure", path, "ghosts")
	require.Error(t, err)
}

func TestImport(t *testing.T) {
	path := seedDB(t)
	dir := t.TempDir()

	script := filepath.Join(dir, "schema.sql")
	require.NoError(t, os.WriteFile(script, []byte(`
CREATE TABLE posts (id INTEGER PRIMARY KEY, title TEXT);
INSERT INTO posts (title) VALUES ('hello; world');
`), 0o600))

	destructive := filepath.Join(dir, "cleanup.sql")
	require.NoError(t, os.WriteFile(destructive, []byte(`DROP TABLE users;`), 0o600))

	t.Run("dry run", func(t *testing.T) {
		out, _, err := run(t, "import", path, script, "--dry-run")
		require.NoError(t, err)
		assert.Contains(t, out, "=== DRY RUN MODE ===")
		_, _, err = run(t, "structure", path, "posts")
		require.Error(t, err)
	})

	t.Run("transaction", func(t *testing.T) {
		out, _, err := run(t, "import", path, script, "--transaction")
		require.NoError(t, err)
		assert.Contains(t, out, "Successfully applied 2 statements")
		assert.Equal(t, []string{"id", "title"}, columns(t, path, "posts"))
	})

	t.Run("destructive needs unsafe", func(t *testing.T) {
		_, _, err := run(t, "import", path, destructive)
		require.Error(t, err)

		_, _, err = run(t, "import", path, destructive, "--unsafe")
		require.NoError(t, err)
		assert.Empty(t, columns(t, path, "users"))
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := run(t, "import", path, filepath.Join(dir, "nope.sql"))
		require.Error(t, err)
	})
}

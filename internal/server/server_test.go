package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"sqliteadmin/internal/browse"
	"sqliteadmin/internal/config"
	"sqliteadmin/internal/core"
	"sqliteadmin/internal/engine"
	"sqliteadmin/internal/engine/mocks"
	"sqliteadmin/internal/logging"
	"sqliteadmin/internal/migration"
	"sqliteadmin/internal/sqlitedb"
)

type fixture struct {
	mutator  *mocks.MockMutator
	planner  *mocks.MockMutator
	db       *sql.DB
	settings *config.Store
	handler  http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	db, err := sqlitedb.OpenMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, email TEXT);
		INSERT INTO users (name, email) VALUES ('Alice', 'alice@example.com'), ('Bob', 'bob@example.com');`)
	require.NoError(t, err)

	data, err := browse.New(db, browse.Options{})
	require.NoError(t, err)

	f := &fixture{
		mutator:  mocks.NewMockMutator(ctrl),
		planner:  mocks.NewMockMutator(ctrl),
		db:       db,
		settings: config.NewStore("", config.Defaults()),
	}
	srv, err := New(Options{
		Mutator:  f.mutator,
		Planner:  f.planner,
		Browse:   data,
		DB:       db,
		Settings: f.settings,
		Database: ":memory:",
		Logger:   logging.New(&strings.Builder{}, logging.LevelError, logging.FormatText),
	})
	require.NoError(t, err)
	f.handler = srv.Handler()
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)

	var resp Response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") && strings.HasPrefix(w.Body.String(), "{") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, w.Header().Get(logging.RequestIDHeader))

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ok", data["status"])
}

func TestListTables(t *testing.T) {
	f := newFixture(t)
	f.mutator.EXPECT().Tables(gomock.Any()).Return([]string{"posts", "users"}, nil)

	w, resp := f.do(t, http.MethodGet, "/api/tables", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"posts", "users"}, resp.Data)
}

func TestAddColumn(t *testing.T) {
	f := newFixture(t)
	want := core.AddColumnRequest{Table: "users", Column: "age", Type: "INTEGER", NotNull: true, Default: core.StringPtr("0")}
	f.mutator.EXPECT().AddColumn(gomock.Any(), want).Return(&engine.Result{Plan: migration.New("users")}, nil)

	w, resp := f.do(t, http.MethodPost, "/api/tables/users/columns",
		`{"column":"age","type":"INTEGER","notNull":true,"default":"0"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "Column added successfully", resp.Message)
}

func TestDryRunUsesPlanner(t *testing.T) {
	f := newFixture(t)
	f.planner.EXPECT().DeleteColumn(gomock.Any(), core.DeleteColumnRequest{Table: "users", Column: "email"}).
		Return(&engine.Result{Plan: migration.New("users"), DryRun: true}, nil)

	w, resp := f.do(t, http.MethodDelete, "/api/tables/users/columns/email?dry_run=true", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Mutation planned, nothing was changed", resp.Message)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, data["dryRun"])
}

func TestModifyAndRenameColumn(t *testing.T) {
	f := newFixture(t)
	f.mutator.EXPECT().ModifyColumn(gomock.Any(), core.ModifyColumnRequest{
		Table: "users", Column: "name", NewType: "VARCHAR", Length: 50, NotNull: true,
	}).Return(&engine.Result{Plan: migration.New("users")}, nil)
	f.mutator.EXPECT().RenameColumn(gomock.Any(), core.RenameColumnRequest{
		Table: "users", Column: "name", NewName: "full_name",
	}).Return(&engine.Result{Plan: migration.New("users")}, nil)
	f.mutator.EXPECT().RenameTable(gomock.Any(), core.RenameTableRequest{
		Table: "users", NewName: "people",
	}).Return(&engine.Result{Plan: migration.New("people")}, nil)

	w, _ := f.do(t, http.MethodPut, "/api/tables/users/columns/name", `{"newType":"VARCHAR","length":50,"notNull":true}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = f.do(t, http.MethodPost, "/api/tables/users/columns/name/rename", `{"newName":"full_name"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp := f.do(t, http.MethodPost, "/api/tables/users/rename", `{"newName":"people"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Table renamed successfully", resp.Message)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", core.NotFoundf("column %q", "ghost"), http.StatusNotFound},
		{"validation", core.Invalidf("invalid column name %q", "bad name"), http.StatusBadRequest},
		{"storage", &core.StorageError{Op: "copy_rows", Err: errors.New("NOT NULL constraint failed: temp_users.age")}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.mutator.EXPECT().DeleteColumn(gomock.Any(), gomock.Any()).Return(nil, tt.err)

			w, resp := f.do(t, http.MethodDelete, "/api/tables/users/columns/ghost", "")
			assert.Equal(t, tt.status, w.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.err.Error(), resp.Error)
		})
	}
}

func TestBadBodyNeverReachesEngine(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(t, http.MethodPost, "/api/tables/users/columns", `{"column":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, resp.Error, "invalid request body")

	w, _ = f.do(t, http.MethodPost, "/api/tables/users/columns", `{"column":"a","type":"TEXT","colour":"red"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStructure(t *testing.T) {
	f := newFixture(t)
	f.mutator.EXPECT().Describe(gomock.Any(), "users").Return(&core.Table{
		Name:    "users",
		Columns: []*core.Column{{Name: "id", Type: "INTEGER", PrimaryKey: true, PKPosition: 1}},
	}, nil)

	w, resp := f.do(t, http.MethodGet, "/api/tables/users/structure", "")
	assert.Equal(t, http.StatusOK, w.Code)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "users", data["name"])
}

func TestTableLifecycle(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(t, http.MethodPost, "/api/tables",
		`{"name":"posts","columns":[{"column":"id","type":"integer","autoIncrement":true},{"column":"title","type":"TEXT","notNull":true}]}`)
	require.Equal(t, http.StatusOK, w.Code, resp.Error)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, data["sql"], `"id" INTEGER PRIMARY KEY AUTOINCREMENT`)

	w, _ = f.do(t, http.MethodPost, "/api/tables", `{"name":"bad","columns":[{"column":"x"}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = f.do(t, http.MethodDelete, "/api/tables/posts", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var n int
	require.NoError(t, f.db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE name = 'posts'`).Scan(&n))
	assert.Zero(t, n)
}

func TestRowEndpoints(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(t, http.MethodGet, "/api/tables/users/rows?limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]any)
	assert.Len(t, data["rows"], 1)

	w, _ = f.do(t, http.MethodGet, "/api/tables/users/rows?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = f.do(t, http.MethodPost, "/api/tables/users/rows", `{"name":"Carol","email":null}`)
	require.Equal(t, http.StatusOK, w.Code, resp.Error)
	assert.Equal(t, map[string]any{"id": float64(3)}, resp.Data)

	w, _ = f.do(t, http.MethodPut, "/api/tables/users/rows/3", `{"email":"carol@example.com"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	var email string
	require.NoError(t, f.db.QueryRow(`SELECT email FROM users WHERE id = 3`).Scan(&email))
	assert.Equal(t, "carol@example.com", email)

	w, _ = f.do(t, http.MethodDelete, "/api/tables/users/rows/3", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = f.do(t, http.MethodDelete, "/api/tables/users/rows/3", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = f.do(t, http.MethodGet, "/api/tables/ghosts/rows", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportAndImport(t *testing.T) {
	f := newFixture(t)

	w, _ := f.do(t, http.MethodGet, "/api/tables/users/export.csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="users.csv"`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "id,name,email\n1,Alice,"))

	w, _ = f.do(t, http.MethodGet, "/api/tables/users/export.json", "")
	require.Equal(t, http.StatusOK, w.Code)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	assert.Len(t, rows, 2)

	w, resp := f.do(t, http.MethodPost, "/api/tables/users/import", "name,email\nDan,dan@example.com\n")
	require.Equal(t, http.StatusOK, w.Code, resp.Error)
	assert.Equal(t, map[string]any{"rows": float64(1)}, resp.Data)
}

func TestQueryEndpoint(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(t, http.MethodPost, "/api/query", `{"query":"SELECT count(*) AS n FROM users"}`)
	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]any)
	assert.Equal(t, []any{"n"}, data["columns"])

	w, _ = f.do(t, http.MethodPost, "/api/query", `{"query":"SELECT * FROM nowhere"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestImportSQL(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(t, http.MethodPost, "/api/import-sql",
		`{"sql":"CREATE TABLE tags (label TEXT); INSERT INTO tags VALUES ('a'); INSERT INTO nowhere VALUES (1);"}`)
	require.Equal(t, http.StatusOK, w.Code, resp.Error)
	data := resp.Data.(map[string]any)
	results := data["results"].([]any)
	require.Len(t, results, 3)
	assert.Equal(t, false, results[2].(map[string]any)["ok"])

	w, resp = f.do(t, http.MethodPost, "/api/import-sql", `{"sql":"DROP TABLE tags"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, resp.Error, "destructive")

	w, _ = f.do(t, http.MethodPost, "/api/import-sql", `{"sql":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSettings(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(t, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(50), resp.Data.(map[string]any)["rowsPerPage"])

	w, resp = f.do(t, http.MethodPost, "/api/settings", `{"darkMode":true,"rowsPerPage":20}`)
	require.Equal(t, http.StatusOK, w.Code, resp.Error)
	assert.True(t, f.settings.Get().DarkMode)
	assert.Equal(t, 20, f.settings.Get().RowsPerPage)

	w, _ = f.do(t, http.MethodPost, "/api/settings", `{"rowsPerPage":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 20, f.settings.Get().RowsPerPage)
}

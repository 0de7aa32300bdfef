package server

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sqliteadmin/internal/apply"
	"sqliteadmin/internal/config"
	"sqliteadmin/internal/core"
	"sqliteadmin/internal/engine"
	"sqliteadmin/internal/sqlitedb"
)

type renameBody struct {
	NewName string `json:"newName"`
}

type createTableBody struct {
	Name    string                  `json:"name"`
	Columns []core.AddColumnRequest `json:"columns"`
}

type queryBody struct {
	Query string `json:"query"`
}

type importSQLBody struct {
	SQL         string `json:"sql"`
	Transaction bool   `json:"transaction"`
	Unsafe      bool   `json:"unsafe"`
	DryRun      bool   `json:"dryRun"`
}

type importSQLResult struct {
	Results []apply.StatementResult `json:"results,omitempty"`
	Report  string                  `json:"report,omitempty"`
}

type settingsPatch struct {
	DarkMode      *bool `json:"darkMode"`
	ConfirmDelete *bool `json:"confirmDelete"`
	RowsPerPage   *int  `json:"rowsPerPage"`
	OpenBrowser   *bool `json:"openBrowser"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondOK(w, "", map[string]any{
		"status":   "ok",
		"database": s.database,
		"driver":   sqlitedb.GetInfo(),
		"uptime":   time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.mutator.Tables(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if tables == nil {
		tables = []string{}
	}
	respondOK(w, "", tables)
}

func (s *Server) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	var body createTableBody
	if err := decode(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}

	naming := core.Naming{Strict: s.settings.Get().StrictIdentifiers}
	cols := make([]*core.Column, 0, len(body.Columns))
	pkPos := 0
	for _, spec := range body.Columns {
		spec.Table = body.Name
		if err := spec.Validate(naming); err != nil {
			s.fail(w, r, err)
			return
		}
		c := spec.ColumnDescriptor()
		if c.PrimaryKey {
			pkPos++
			c.PKPosition = pkPos
		}
		cols = append(cols, c)
	}

	t, err := s.data.CreateTable(r.Context(), body.Name, cols)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondOK(w, "Table created successfully", t)
}

func (s *Server) handleDropTable(w http.ResponseWriter, r *http.Request) {
	if err := s.data.DropTable(r.Context(), r.PathValue("name")); err != nil {
		s.fail(w, r, err)
		return
	}
	respondOK(w, "Table removed successfully", nil)
}

func (s *Server) handleStructure(w http.ResponseWriter, r *http.Request) {
	t, err := s.mutator.Describe(r.Context(), r.PathValue("name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondOK(w, "", t)
}

// mutate runs fn against the planner for dry runs and the mutator otherwise.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, done string, fn func(engine.Mutator) (*engine.Result, error)) {
	m, msg := s.mutator, done
	if queryBool(r, "dry_run") {
		m, msg = s.planner, "Mutation planned, nothing was changed"
	}
	res, err := fn(m)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondOK(w, msg, res)
}

func (s *Server) handleRenameTable(w http.ResponseWriter, r *http.Request) {
	var body renameBody
	if err := decode(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	req := core.RenameTableRequest{Table: r.PathValue("name"), NewName: body.NewName}
	s.mutate(w, r, "Table renamed successfully", func(m engine.Mutator) (*engine.Result, error) {
		return m.RenameTable(r.Context(), req)
	})
}

func (s *Server) handleAddColumn(w http.ResponseWriter, r *http.Request) {
	var req core.AddColumnRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	req.Table = r.PathValue("name")
	s.mutate(w, r, "Column added successfully", func(m engine.Mutator) (*engine.Result, error) {
		return m.AddColumn(r.Context(), req)
	})
}

func (s *Server) handleModifyColumn(w http.ResponseWriter, r *http.Request) {
	var req core.ModifyColumnRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	req.Table = r.PathValue("name")
	req.Column = r.PathValue("column")
	s.mutate(w, r, "Column modified successfully", func(m engine.Mutator) (*engine.Result, error) {
		return m.ModifyColumn(r.Context(), req)
	})
}

func (s *Server) handleDeleteColumn(w http.ResponseWriter, r *http.Request) {
	req := core.DeleteColumnRequest{Table: r.PathValue("name"), Column: r.PathValue("column")}
	s.mutate(w, r, "Column deleted successfully", func(m engine.Mutator) (*engine.Result, error) {
		return m.DeleteColumn(r.Context(), req)
	})
}

func (s *Server) handleRenameColumn(w http.ResponseWriter, r *http.Request) {
	var body renameBody
	if err := decode(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	req := core.RenameColumnRequest{Table: r.PathValue("name"), Column: r.PathValue("column"), NewName: body.NewName}
	s.mutate(w, r, "Column renamed successfully", func(m engine.Mutator) (*engine.Result, error) {
		return m.RenameColumn(r.Context(), req)
	})
}

// rowLimit is ?limit when given, otherwise the rows_per_page setting.
func (s *Server) rowLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return s.settings.Get().RowsPerPage, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, core.Invalidf("limit must be a positive integer")
	}
	return n, nil
}

func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	limit, err := s.rowLimit(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rs, err := s.data.Rows(r.Context(), r.PathValue("name"), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondOK(w, "", rs)
}

func (s *Server) handleInsertRow(w http.ResponseWriter, r *http.Request) {
	var values map[string]any
	if err := decode(w, r, &values); err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := s.data.InsertRow(r.Context(), r.PathValue("name"), stringValues(values))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondOK(w, "Row inserted successfully", map[string]int64{"id": id})
}

func (s *Server) handleUpdateRow(w http.ResponseWriter, r *http.Request) {
	var values map[string]any
	if err := decode(w, r, &values); err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := s.data.UpdateRow(r.Context(), r.PathValue("name"), r.PathValue("id"), stringValues(values))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if n == 0 {
		respondError(w, http.StatusNotFound, "row not found")
		return
	}
	respondOK(w, "Row updated successfully", nil)
}

func (s *Server) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
	n, err := s.data.DeleteRow(r.Context(), r.PathValue("name"), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if n == 0 {
		respondError(w, http.StatusNotFound, "row not found")
		return
	}
	respondOK(w, "Row deleted successfully", nil)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var buf bytes.Buffer
	if err := s.data.ExportCSV(r.Context(), name, s.settings.Get().RowsPerPage, &buf); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", contentDisposition(name+".csv"))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var buf bytes.Buffer
	if err := s.data.ExportJSON(r.Context(), name, s.settings.Get().RowsPerPage, &buf); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", contentDisposition(name+".json"))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	n, err := s.data.ImportCSV(r.Context(), r.PathValue("name"), http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondOK(w, "CSV imported successfully", map[string]int{"rows": n})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var body queryBody
	if err := decode(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	rs, err := s.data.Query(r.Context(), body.Query)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondOK(w, "", rs)
}

func (s *Server) handleImportSQL(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		respondError(w, http.StatusInternalServerError, "sql import is not configured")
		return
	}
	var body importSQLBody
	if err := decode(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(body.SQL) == "" {
		s.fail(w, r, core.Invalidf("sql is required"))
		return
	}

	var report bytes.Buffer
	a := apply.NewApplier(s.db, apply.Options{
		DryRun:      body.DryRun,
		Transaction: body.Transaction,
		Unsafe:      body.Unsafe,
		Out:         &report,
	})
	stmts := a.ParseStatements(body.SQL)
	results, err := a.Apply(r.Context(), stmts, nil)
	data := importSQLResult{Results: results, Report: report.String()}
	if err != nil {
		respond(w, http.StatusBadRequest, Response{Error: err.Error(), Data: data})
		return
	}

	msg := "SQL imported successfully"
	if body.DryRun {
		msg = "Dry run complete, nothing was changed"
	}
	respondOK(w, msg, data)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	respondOK(w, "", s.settings.Get())
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var patch settingsPatch
	if err := decode(w, r, &patch); err != nil {
		s.fail(w, r, err)
		return
	}
	saved, err := s.settings.Update(func(st *config.Settings) {
		if patch.DarkMode != nil {
			st.DarkMode = *patch.DarkMode
		}
		if patch.ConfirmDelete != nil {
			st.ConfirmDelete = *patch.ConfirmDelete
		}
		if patch.RowsPerPage != nil {
			st.RowsPerPage = *patch.RowsPerPage
		}
		if patch.OpenBrowser != nil {
			st.OpenBrowser = *patch.OpenBrowser
		}
	})
	if errors.Is(err, config.ErrInvalid) {
		err = core.Invalidf("%v", err)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondOK(w, "Settings saved successfully", saved)
}

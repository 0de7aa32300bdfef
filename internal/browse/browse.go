// Package browse implements the data side of the admin tool: listing tables and
// rows, row edits keyed by the id column, table creation and removal, CSV and JSON
// export, CSV import and ad-hoc queries.
package browse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"sqliteadmin/internal/core"
	"sqliteadmin/internal/dialect"
	_ "sqliteadmin/internal/dialect/sqlite" // registers the SQLite generator
	"sqliteadmin/internal/introspect"
	_ "sqliteadmin/internal/introspect/sqlite" // registers the SQLite introspecter
	"sqliteadmin/internal/lock"
	"sqliteadmin/internal/logging"
)

// RowIDColumn keys row updates and deletions.
const RowIDColumn = "id"

// ResultSet holds rows in column order.
type ResultSet struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Maps returns the rows as column-keyed objects.
func (rs *ResultSet) Maps() []map[string]any {
	out := make([]map[string]any, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		m := make(map[string]any, len(rs.Columns))
		for i, c := range rs.Columns {
			m[c] = row[i]
		}
		out = append(out, m)
	}
	return out
}

// Options configures a Service.
type Options struct {
	// Naming applies the strict identifier grammar when set.
	Naming core.Naming
	Logger *slog.Logger
	// Locks is shared with the mutation engine so table creation and removal never
	// interleave with a rebuild of the same table.
	Locks *lock.Tables
}

// Service serves data requests over one database handle.
type Service struct {
	db           *sql.DB
	gen          dialect.Generator
	introspecter introspect.Introspecter
	locks        *lock.Tables
	naming       core.Naming
	logger       *slog.Logger
}

// New creates a Service over db. The caller owns db.
func New(db *sql.DB, opts Options) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("browse: database handle is nil")
	}
	in, err := introspect.NewIntrospecter(core.DialectSQLite)
	if err != nil {
		return nil, err
	}
	d := dialect.GetDialect(dialect.SQLite)
	if d == nil {
		return nil, fmt.Errorf("browse: dialect %q is not registered", dialect.SQLite)
	}

	locks := opts.Locks
	if locks == nil {
		locks = lock.NewTables()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Service{db: db, gen: d.Generator(), introspecter: in, locks: locks, naming: opts.Naming, logger: logger}, nil
}

// Tables lists the user tables.
func (s *Service) Tables(ctx context.Context) ([]string, error) {
	return s.introspecter.Tables(ctx, s.db)
}

// Rows returns up to limit rows of table. An empty table still reports its columns.
func (s *Service) Rows(ctx context.Context, table string, limit int) (*ResultSet, error) {
	t, err := s.describe(ctx, table)
	if err != nil {
		return nil, err
	}
	query := "SELECT * FROM " + s.gen.QuoteIdentifier(t.Name)
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rs, err := s.query(ctx, "select rows", query, args...)
	if err != nil {
		return nil, err
	}
	if len(rs.Columns) == 0 {
		rs.Columns = t.ColumnNames()
	}
	return rs, nil
}

// InsertRow inserts one row. Empty-string values are left out so the column
// default applies.
func (s *Service) InsertRow(ctx context.Context, table string, values map[string]string) (int64, error) {
	if err := s.validate("table", table); err != nil {
		return 0, err
	}
	cols, args, err := s.assignments(values, true)
	if err != nil {
		return 0, err
	}

	var query string
	if len(cols) == 0 {
		query = "INSERT INTO " + s.gen.QuoteIdentifier(table) + " DEFAULT VALUES"
	} else {
		quoted := make([]string, len(cols))
		for i, c := range cols {
			quoted[i] = s.gen.QuoteIdentifier(c)
		}
		query = "INSERT INTO " + s.gen.QuoteIdentifier(table) + " (" + strings.Join(quoted, ", ") +
			") VALUES (" + placeholders(len(cols)) + ")"
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, core.NewStorageError("insert row", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, core.NewStorageError("insert row", err)
	}
	return id, nil
}

// UpdateRow sets values on the row whose id column equals id.
func (s *Service) UpdateRow(ctx context.Context, table, id string, values map[string]string) (int64, error) {
	if err := s.validate("table", table); err != nil {
		return 0, err
	}
	cols, args, err := s.assignments(values, false)
	if err != nil {
		return 0, err
	}
	if len(cols) == 0 {
		return 0, core.Invalidf("no values to update")
	}

	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = s.gen.QuoteIdentifier(c) + " = ?"
	}
	query := "UPDATE " + s.gen.QuoteIdentifier(table) + " SET " + strings.Join(sets, ", ") +
		" WHERE " + s.gen.QuoteIdentifier(RowIDColumn) + " = ?"
	args = append(args, id)

	return s.exec(ctx, "update row", query, args...)
}

// DeleteRow removes the row whose id column equals id.
func (s *Service) DeleteRow(ctx context.Context, table, id string) (int64, error) {
	if err := s.validate("table", table); err != nil {
		return 0, err
	}
	query := "DELETE FROM " + s.gen.QuoteIdentifier(table) + " WHERE " + s.gen.QuoteIdentifier(RowIDColumn) + " = ?"
	return s.exec(ctx, "delete row", query, id)
}

// CreateTable creates table name with cols.
func (s *Service) CreateTable(ctx context.Context, name string, cols []*core.Column) (*core.Table, error) {
	if err := s.validate("table", name); err != nil {
		return nil, err
	}
	if err := core.ValidateColumns(cols, s.naming); err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, name)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := s.db.ExecContext(ctx, s.gen.CreateTable(name, cols)); err != nil {
		return nil, core.NewStorageError("create table", err)
	}
	s.logger.Info("table created", "table", name, "columns", len(cols))
	return s.describe(ctx, name)
}

// DropTable removes table name and its data. Removing a missing table is not an error.
func (s *Service) DropTable(ctx context.Context, name string) error {
	if err := s.validate("table", name); err != nil {
		return err
	}

	unlock, err := s.locks.Lock(ctx, name)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := s.db.ExecContext(ctx, s.gen.DropTable(name, true)); err != nil {
		return core.NewStorageError("drop table", err)
	}
	s.logger.Info("table dropped", "table", name)
	return nil
}

// Query runs an arbitrary statement and returns whatever rows it produces.
func (s *Service) Query(ctx context.Context, query string) (*ResultSet, error) {
	if strings.TrimSpace(query) == "" {
		return nil, core.Invalidf("query is required")
	}
	return s.query(ctx, "query", query)
}

func (s *Service) describe(ctx context.Context, table string) (*core.Table, error) {
	if err := s.validate("table", table); err != nil {
		return nil, err
	}
	return s.introspecter.Introspect(ctx, s.db, table)
}

func (s *Service) validate(kind, name string) error {
	return core.ValidateIdentifier(kind, name, s.naming.Grammar(core.GrammarName))
}

// assignments validates column names and returns them sorted with their values.
func (s *Service) assignments(values map[string]string, skipEmpty bool) ([]string, []any, error) {
	cols := make([]string, 0, len(values))
	for c, v := range values {
		if skipEmpty && v == "" {
			continue
		}
		if c == RowIDColumn && !skipEmpty {
			continue
		}
		if err := s.validate("column", c); err != nil {
			return nil, nil, err
		}
		cols = append(cols, c)
	}
	sort.Strings(cols)

	args := make([]any, len(cols))
	for i, c := range cols {
		args[i] = values[c]
	}
	return cols, args, nil
}

func (s *Service) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, core.NewStorageError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, core.NewStorageError(op, err)
	}
	return n, nil
}

func (s *Service) query(ctx context.Context, op, query string, args ...any) (*ResultSet, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.NewStorageError(op, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, core.NewStorageError(op, err)
	}

	rs := &ResultSet{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, core.NewStorageError(op, err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		rs.Rows = append(rs.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStorageError(op, err)
	}
	return rs, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

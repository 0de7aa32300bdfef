// Package engine is the schema mutation engine. It adds, removes, redefines and
// renames columns and tables of a SQLite database. Mutations SQLite cannot express
// natively are synthesized as a rebuild-and-swap: create a shadow table with the new
// schema, copy the rows positionally, drop the original and rename the shadow into
// its place, all inside one transaction. A failed mutation leaves the table exactly
// as it was.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"sqliteadmin/internal/core"
	"sqliteadmin/internal/dialect"
	_ "sqliteadmin/internal/dialect/sqlite" // registers the SQLite generator
	"sqliteadmin/internal/diff"
	"sqliteadmin/internal/introspect"
	_ "sqliteadmin/internal/introspect/sqlite" // registers the SQLite introspecter
	"sqliteadmin/internal/lock"
	"sqliteadmin/internal/logging"
	"sqliteadmin/internal/migration"
)

// Options configures an Engine.
type Options struct {
	// StrictIdentifiers applies the rename grammar (no leading digit) to every path.
	StrictIdentifiers bool
	Logger            *slog.Logger
	// Locks is shared with other engines on the same database; nil creates a private set.
	Locks *lock.Tables
}

// Result describes a mutation: the plan that was (or would be) executed, the column
// diff it produces and, for executed mutations, the resulting table descriptor.
type Result struct {
	Plan   *migration.Migration `json:"plan"`
	Diff   *diff.TableDiff      `json:"diff,omitempty"`
	Table  *core.Table          `json:"table,omitempty"`
	DryRun bool                 `json:"dryRun,omitempty"`
}

// Engine executes schema mutations against one database handle.
type Engine struct {
	db           *sql.DB
	introspecter introspect.Introspecter
	gen          dialect.Generator
	locks        *lock.Tables
	naming       core.Naming
	logger       *slog.Logger
	dryRun       bool
}

// New creates an engine over db. The caller owns db.
func New(db *sql.DB, opts Options) (*Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("engine: database handle is nil")
	}
	in, err := introspect.NewIntrospecter(core.DialectSQLite)
	if err != nil {
		return nil, err
	}
	d := dialect.GetDialect(dialect.SQLite)
	if d == nil {
		return nil, fmt.Errorf("engine: dialect %q is not registered", dialect.SQLite)
	}

	locks := opts.Locks
	if locks == nil {
		locks = lock.NewTables()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger()
	}

	return &Engine{
		db:           db,
		introspecter: in,
		gen:          d.Generator(),
		locks:        locks,
		naming:       core.Naming{Strict: opts.StrictIdentifiers},
		logger:       logger,
	}, nil
}

// DryRun returns an engine sharing e's handle and locks that plans mutations
// without executing them.
func (e *Engine) DryRun() *Engine {
	c := *e
	c.dryRun = true
	return &c
}

// Naming returns the identifier rules in force.
func (e *Engine) Naming() core.Naming {
	return e.naming
}

// Describe returns the current descriptor of table.
func (e *Engine) Describe(ctx context.Context, table string) (*core.Table, error) {
	return e.introspecter.Introspect(ctx, e.db, table)
}

// Tables lists the user tables.
func (e *Engine) Tables(ctx context.Context) ([]string, error) {
	return e.introspecter.Tables(ctx, e.db)
}

// AddColumn appends one column. Existing rows receive the column's default, or NULL.
func (e *Engine) AddColumn(ctx context.Context, req core.AddColumnRequest) (*Result, error) {
	if err := req.Validate(e.naming); err != nil {
		return nil, err
	}
	return e.rebuild(ctx, "add_column", req.Table, func(t *core.Table) (*rebuildSpec, error) {
		col := req.ColumnDescriptor()
		if t.FindColumn(col.Name) != nil {
			return nil, core.Invalidf("column %q already exists in table %q", col.Name, t.Name)
		}
		if col.PrimaryKey && len(core.PrimaryKeyColumns(t.Columns)) > 0 {
			return nil, core.Invalidf("table %q already has a primary key", t.Name)
		}

		kept := t.ColumnNames()
		return &rebuildSpec{
			columns: append(core.CloneColumns(t.Columns), col),
			dstCols: kept,
			srcCols: kept,
		}, nil
	})
}

// DeleteColumn removes one column and its data. The autoincrement flag of every
// remaining column comes from the original creation text.
func (e *Engine) DeleteColumn(ctx context.Context, req core.DeleteColumnRequest) (*Result, error) {
	if err := req.Validate(e.naming); err != nil {
		return nil, err
	}
	return e.rebuild(ctx, "delete_column", req.Table, func(t *core.Table) (*rebuildSpec, error) {
		idx := t.ColumnIndex(req.Column)
		if idx < 0 {
			return nil, core.NotFoundf("column %q does not exist in table %q", req.Column, t.Name)
		}

		cols := make([]*core.Column, 0, len(t.Columns)-1)
		for i, c := range t.Columns {
			if i != idx {
				cols = append(cols, c.Clone())
			}
		}
		kept := core.ColumnNames(cols)
		return &rebuildSpec{
			columns: cols,
			dstCols: kept,
			srcCols: kept,
			dropped: map[string]bool{t.Columns[idx].Name: true},
		}, nil
	})
}

// ModifyColumn replaces one column's definition in place. Every other column is
// carried through unchanged and all rows are copied, including the modified
// column's existing values.
func (e *Engine) ModifyColumn(ctx context.Context, req core.ModifyColumnRequest) (*Result, error) {
	if err := req.Validate(e.naming); err != nil {
		return nil, err
	}
	return e.rebuild(ctx, "modify_column", req.Table, func(t *core.Table) (*rebuildSpec, error) {
		idx := t.ColumnIndex(req.Column)
		if idx < 0 {
			return nil, core.NotFoundf("column %q does not exist in table %q", req.Column, t.Name)
		}

		current := t.Columns[idx]
		updated := req.Apply(current)
		if updated.PrimaryKey && !current.PrimaryKey {
			for i, c := range t.Columns {
				if i != idx && c.PrimaryKey {
					return nil, core.Invalidf("table %q already has a primary key on %q", t.Name, c.Name)
				}
			}
		}

		cols := core.CloneColumns(t.Columns)
		cols[idx] = updated

		spec := &rebuildSpec{
			columns: cols,
			dstCols: core.ColumnNames(cols),
			srcCols: t.ColumnNames(),
		}
		if updated.Name != current.Name {
			spec.renames = map[string]string{current.Name: updated.Name}
		}
		return spec, nil
	})
}

// RenameTable renames a table with SQLite's native ALTER TABLE ... RENAME TO.
func (e *Engine) RenameTable(ctx context.Context, req core.RenameTableRequest) (*Result, error) {
	if err := req.Validate(e.naming); err != nil {
		return nil, err
	}
	return e.native(ctx, "rename_table", []string{req.Table, req.NewName}, req.Table,
		func(t *core.Table, m *migration.Migration) (string, error) {
			m.AddStep(core.StepRenameTable, e.gen.RenameTable(t.Name, req.NewName))
			return req.NewName, nil
		})
}

// RenameColumn renames a column with SQLite's native ALTER TABLE ... RENAME COLUMN.
func (e *Engine) RenameColumn(ctx context.Context, req core.RenameColumnRequest) (*Result, error) {
	if err := req.Validate(e.naming); err != nil {
		return nil, err
	}
	return e.native(ctx, "rename_column", []string{req.Table}, req.Table,
		func(t *core.Table, m *migration.Migration) (string, error) {
			col := t.FindColumn(req.Column)
			if col == nil {
				return "", core.NotFoundf("column %q does not exist in table %q", req.Column, t.Name)
			}
			if other := t.FindColumn(req.NewName); other != nil && other != col {
				return "", core.Invalidf("column %q already exists in table %q", req.NewName, t.Name)
			}
			m.AddStep(core.StepRenameColumn, e.gen.RenameColumn(t.Name, col.Name, req.NewName))
			return t.Name, nil
		})
}

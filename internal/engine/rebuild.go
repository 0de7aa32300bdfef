package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"sqliteadmin/internal/core"
	"sqliteadmin/internal/diff"
	"sqliteadmin/internal/logging"
	"sqliteadmin/internal/migration"
)

// rebuildSpec is what a column mutation derives from the current table: the full
// column list of the new table and the positional copy mapping.
type rebuildSpec struct {
	columns []*core.Column
	dstCols []string
	srcCols []string
	// renames maps old column names to new ones.
	renames map[string]string
	// dropped holds columns that no longer exist after the rebuild.
	dropped map[string]bool
}

type deriveFunc func(t *core.Table) (*rebuildSpec, error)

// nativeFunc appends the native statement to m and returns the table name that
// holds the result.
type nativeFunc func(t *core.Table, m *migration.Migration) (string, error)

func (e *Engine) rebuild(ctx context.Context, op, table string, derive deriveFunc) (*Result, error) {
	return e.withTx(ctx, op, []string{table}, func(tx *sql.Tx) (*Result, error) {
		current, err := e.introspecter.Introspect(ctx, tx, table)
		if err != nil {
			return nil, err
		}
		spec, err := derive(current)
		if err != nil {
			return nil, err
		}
		if err := core.ValidateColumns(spec.columns, e.naming); err != nil {
			return nil, err
		}
		legacy, err := legacyAlterTable(ctx, tx)
		if err != nil {
			return nil, err
		}

		res := &Result{
			Plan:   e.planRebuild(current, spec, legacy),
			Diff:   diff.Columns(current.Name, current.Columns, spec.columns, spec.renames),
			DryRun: e.dryRun,
		}
		for _, bc := range res.Diff.BreakingChanges() {
			if bc.Severity == diff.SeverityBreaking {
				res.Plan.AddBreaking(bc.Message)
			} else {
				res.Plan.AddNote(bc.Message)
			}
		}
		res.Plan.Dedupe()

		if e.dryRun {
			return res, nil
		}
		if err := e.execute(ctx, tx, res.Plan); err != nil {
			if !legacy {
				e.resetLegacyAlter(ctx, tx)
			}
			return nil, err
		}
		if res.Table, err = e.introspecter.Introspect(ctx, tx, current.Name); err != nil {
			return nil, err
		}
		return res, nil
	})
}

// legacyAlterTable reads the connection's legacy_alter_table flag.
func legacyAlterTable(ctx context.Context, tx *sql.Tx) (bool, error) {
	var on bool
	if err := tx.QueryRowContext(ctx, "PRAGMA legacy_alter_table").Scan(&on); err != nil {
		return false, core.NewStorageError("read legacy_alter_table", err)
	}
	return on, nil
}

// resetLegacyAlter switches the flag back off after a failed rebuild. Rolling the
// transaction back does not undo a pragma.
func (e *Engine) resetLegacyAlter(ctx context.Context, tx *sql.Tx) {
	if _, err := tx.ExecContext(context.WithoutCancel(ctx), e.gen.LegacyAlterTable(false)); err != nil {
		logging.FromContext(ctx, e.logger).Warn("reset legacy_alter_table failed", "error", err)
	}
}

func (e *Engine) native(ctx context.Context, op string, lockNames []string, table string, build nativeFunc) (*Result, error) {
	return e.withTx(ctx, op, lockNames, func(tx *sql.Tx) (*Result, error) {
		current, err := e.introspecter.Introspect(ctx, tx, table)
		if err != nil {
			return nil, err
		}
		m := migration.New(current.Name)
		target, err := build(current, m)
		if err != nil {
			return nil, err
		}

		res := &Result{Plan: m, DryRun: e.dryRun}
		if e.dryRun {
			return res, nil
		}
		if err := e.execute(ctx, tx, m); err != nil {
			return nil, err
		}
		if res.Table, err = e.introspecter.Introspect(ctx, tx, target); err != nil {
			return nil, err
		}
		return res, nil
	})
}

// planRebuild lays out the rebuild-and-swap pipeline for spec. The shadow is
// renamed with legacy_alter_table on so that views naming the table, which is
// briefly missing, do not fail the rename. legacyAlter is the flag's current value.
func (e *Engine) planRebuild(current *core.Table, spec *rebuildSpec, legacyAlter bool) *migration.Migration {
	shadow := core.ShadowName(current.Name)
	m := migration.New(current.Name)

	m.AddBestEffortStep(core.StepCleanup, e.gen.DropTable(shadow, true))
	m.AddStep(core.StepCreateShadow, e.gen.CreateTable(shadow, spec.columns))
	m.AddStep(core.StepCopyRows, e.gen.CopyRows(shadow, current.Name, spec.dstCols, spec.srcCols))
	m.AddRiskyStep(core.StepDropOriginal, e.gen.DropTable(current.Name, false), core.RiskWarning)
	if !legacyAlter {
		m.AddStep(core.StepLegacyAlter, e.gen.LegacyAlterTable(true))
	}
	m.AddStep(core.StepRenameShadow, e.gen.RenameTable(shadow, current.Name))
	if !legacyAlter {
		m.AddStep(core.StepLegacyAlter, e.gen.LegacyAlterTable(false))
	}

	// The copy only carries the counter up to the largest surviving key.
	if current.Sequence > 0 && hasAutoIncrement(spec.columns) {
		for _, stmt := range e.gen.RaiseSequence(current.Name, current.Sequence) {
			m.AddStep(core.StepRestoreSeq, stmt)
		}
	}

	for _, idx := range current.Indexes {
		if col, ok := staleColumn(idx.Columns, spec); ok {
			m.AddNote(fmt.Sprintf("index %q is not recreated: column %q no longer exists", idx.Name, col))
			continue
		}
		m.AddBestEffortStep(core.StepRecreateIdx, idx.SQL)
	}
	for _, trg := range current.Triggers {
		if col, ok := staleTriggerColumn(trg, spec); ok {
			m.AddNote(fmt.Sprintf("trigger %q is not recreated: it references column %q, which no longer exists", trg.Name, col))
			continue
		}
		m.AddBestEffortStep(core.StepRecreateTrg, trg.SQL)
	}
	return m
}

func hasAutoIncrement(cols []*core.Column) bool {
	for _, c := range cols {
		if c.AutoIncrement {
			return true
		}
	}
	return false
}

// staleColumn reports the first of cols that is dropped or renamed by spec.
// Stored index and trigger text names the old column, so replaying it would fail.
func staleColumn(cols []string, spec *rebuildSpec) (string, bool) {
	for _, col := range cols {
		if goneColumn(col, spec) {
			return col, true
		}
	}
	return "", false
}

func goneColumn(col string, spec *rebuildSpec) bool {
	for name := range spec.dropped {
		if strings.EqualFold(name, col) {
			return true
		}
	}
	for name := range spec.renames {
		if strings.EqualFold(name, col) {
			return true
		}
	}
	return false
}

// staleTriggerColumn looks for a dropped or renamed column named as a whole word
// in the trigger text. Identifiers of the same name elsewhere in the body match too.
func staleTriggerColumn(trg *core.Trigger, spec *rebuildSpec) (string, bool) {
	names := make([]string, 0, len(spec.dropped)+len(spec.renames))
	for name := range spec.dropped {
		names = append(names, name)
	}
	for name := range spec.renames {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		re := regexp.MustCompile(`(?i)(?:^|[^\w$])` + regexp.QuoteMeta(name) + `(?:[^\w$]|$)`)
		if re.MatchString(trg.SQL) {
			return name, true
		}
	}
	return "", false
}

// execute runs the SQL steps of m in order on tx. A best-effort step that fails
// is logged and skipped; any other failure aborts.
func (e *Engine) execute(ctx context.Context, tx *sql.Tx, m *migration.Migration) error {
	logger := logging.FromContext(ctx, e.logger)
	for _, op := range m.Steps() {
		if _, err := tx.ExecContext(ctx, op.SQL); err != nil {
			if op.BestEffort {
				logger.Warn("best-effort step failed",
					"table", m.Table,
					"step", string(op.Step),
					"error", err,
				)
				continue
			}
			return core.NewStorageError(string(op.Step), err)
		}
		logger.Debug("step executed", "table", m.Table, "step", string(op.Step), "sql", op.SQL)
	}
	return nil
}

// withTx locks names, opens a transaction and runs fn in it. The transaction is
// committed only when fn succeeds and the engine is not in dry-run mode.
func (e *Engine) withTx(ctx context.Context, op string, names []string, fn func(tx *sql.Tx) (*Result, error)) (res *Result, err error) {
	logger := logging.FromContext(ctx, e.logger).With("op", op, "table", names[0])
	start := time.Now()

	unlock, err := e.locks.Lock(ctx, names...)
	if err != nil {
		return nil, err
	}
	defer unlock()

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, core.NewStorageError("begin", err)
	}

	res, err = fn(tx)
	if err != nil || e.dryRun {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
		}
		if err != nil {
			logger.Warn("mutation rolled back", "error", err, "duration_ms", time.Since(start).Milliseconds())
			return nil, err
		}
		logger.Debug("mutation planned", "steps", len(res.Plan.Steps()))
		return res, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, core.NewStorageError("commit", err)
	}
	logger.Info("mutation applied", "steps", len(res.Plan.Steps()), "duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

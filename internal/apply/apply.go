// Package apply runs SQL scripts against the open database. A script is split into
// statements, checked for destructive or non-transactional statements, and then
// applied either all-or-nothing inside one transaction or statement by statement
// with a per-statement result.
package apply

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// PreflightResult contains a list of warnings, errors, and transactionality info about a script.
type PreflightResult struct {
	Warnings        []Warning `json:"warnings,omitempty"`
	Errors          []string  `json:"errors,omitempty"`
	IsTransactional bool      `json:"isTransactional"`
	NonTxReasons    []string  `json:"nonTxReasons,omitempty"`
}

// Warning contains a Level of a warning, message, and actual SQL from the script.
type Warning struct {
	Level   WarningLevel `json:"level"`
	Message string       `json:"message"`
	SQL     string       `json:"sql,omitempty"`
}

// WarningLevel is a const that is expandable for later and contains different levels of danger.
type WarningLevel string

const (
	WarnCaution WarningLevel = "CAUTION"
	WarnDanger  WarningLevel = "DANGER"
)

// ErrDestructive is returned when a script holds destructive statements and Unsafe is not set.
var ErrDestructive = errors.New("destructive operations detected without --unsafe flag")

// Options contains all settings available for the import command.
type Options struct {
	FilePath string
	DryRun   bool
	// Transaction applies the whole script atomically. Without it every statement
	// runs on its own and failures are recorded, not fatal.
	Transaction bool
	Unsafe      bool
	Out         io.Writer
}

// StatementResult is the outcome of one statement.
type StatementResult struct {
	Query string `json:"query"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Status renders the result the way the import report shows it.
func (r StatementResult) Status() string {
	if r.OK {
		return "OK"
	}
	return "ERROR: " + r.Error
}

// Applier applies SQL scripts to one database handle.
type Applier struct {
	db       *sql.DB
	options  Options
	analyzer *StatementAnalyzer
	out      io.Writer
}

// NewApplier returns an Applier over db with the provided options. The caller owns db.
func NewApplier(db *sql.DB, options Options) *Applier {
	out := options.Out
	if out == nil {
		out = io.Discard
	}
	return &Applier{
		db:       db,
		options:  options,
		analyzer: NewStatementAnalyzer(),
		out:      out,
	}
}

// We use custom printf to format and print messages to the output writer.
func (a *Applier) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

func (a *Applier) println(args ...any) {
	_, _ = fmt.Fprintln(a.out, args...)
}

// LoadFile reads and splits the script named by Options.FilePath.
func (a *Applier) LoadFile() ([]string, error) {
	content, err := os.ReadFile(a.options.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read script %q: %w", a.options.FilePath, err)
	}
	return a.ParseStatements(string(content)), nil
}

// ParseStatements splits content into statements. The TiDB parser is tried first;
// scripts in SQLite syntax it rejects go through a quote-aware splitter.
func (a *Applier) ParseStatements(content string) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	stmtNodes, _, err := a.analyzer.parser.Parse(content, "", "")
	if err == nil && len(stmtNodes) > 0 {
		var statements []string
		for _, node := range stmtNodes {
			if node == nil {
				continue
			}
			stmt := strings.TrimSuffix(strings.TrimSpace(node.Text()), ";")
			if stmt = strings.TrimSpace(stmt); stmt != "" {
				statements = append(statements, stmt)
			}
		}
		if len(statements) > 0 {
			return statements
		}
	}

	return splitStatements(content)
}

// PreflightChecks uses the AST-based analyzer to detect dangerous operations
// and transaction safety issues in the provided SQL statements.
func (a *Applier) PreflightChecks(statements []string, unsafe bool) *PreflightResult {
	return a.analyzer.AnalyzeStatements(statements, unsafe)
}

// Apply runs statements according to the options. Destructive statements are
// refused unless Unsafe is set. In transactional mode the first failure rolls
// everything back and is returned; otherwise every statement is attempted and
// failures are only recorded in the results.
func (a *Applier) Apply(ctx context.Context, statements []string, preflight *PreflightResult) ([]StatementResult, error) {
	if preflight == nil {
		preflight = a.PreflightChecks(statements, a.options.Unsafe)
	}
	if a.options.DryRun {
		return nil, a.dryRun(statements, preflight)
	}
	if HasDestructiveOperations(preflight) && !a.options.Unsafe {
		return nil, ErrDestructive
	}

	if a.options.Transaction {
		if !preflight.IsTransactional {
			return nil, fmt.Errorf("script contains statements that cannot run inside a transaction: %s",
				strings.Join(preflight.NonTxReasons, "; "))
		}
		return a.applyWithTransaction(ctx, statements)
	}
	return a.applyEach(ctx, statements), nil
}

func truncateSQL(stmt string) string {
	stmt = strings.Join(strings.Fields(stmt), " ")
	if len(stmt) > 80 {
		return stmt[:77] + "..."
	}
	return stmt
}

func (a *Applier) dryRun(statements []string, preflight *PreflightResult) error {
	a.println("=== DRY RUN MODE ===")

	a.println("--- Preflight Checks ---")
	if len(preflight.Warnings) == 0 {
		a.println("No warnings")
	} else {
		for _, w := range preflight.Warnings {
			a.printf("[%s] %s\n", w.Level, w.Message)
			if w.SQL != "" {
				a.printf("    SQL: %s\n", truncateSQL(w.SQL))
			}
		}
	}

	a.println("--- Transaction Safety ---")
	if preflight.IsTransactional {
		a.println("All statements are transaction-safe")
	} else {
		a.println("Script is NOT transaction-safe")
		for _, reason := range preflight.NonTxReasons {
			a.printf("  - %s\n", reason)
		}
	}

	a.println("--- Statements to Execute ---")
	for i, stmt := range statements {
		a.printf("%d. %s\n\n", i+1, stmt)
	}

	if HasDestructiveOperations(preflight) && !a.options.Unsafe {
		return fmt.Errorf("preflight checks failed: %w", ErrDestructive)
	}
	if a.options.Transaction && !preflight.IsTransactional {
		return fmt.Errorf("preflight checks failed: statements that cannot run inside a transaction detected")
	}

	a.println("=== DRY RUN COMPLETE ===")
	a.println("All preflight checks passed. Run without --dry-run to apply.")
	return nil
}

func (a *Applier) applyWithTransaction(ctx context.Context, statements []string) ([]StatementResult, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	results := make([]StatementResult, 0, len(statements))
	for i, stmt := range statements {
		a.printf("Executing statement %d/%d...\n", i+1, len(statements))
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			results = append(results, StatementResult{Query: stmt, Error: err.Error()})
			if rbErr := tx.Rollback(); rbErr != nil {
				return results, fmt.Errorf("execute failed: %w; rollback also failed: %v", err, rbErr)
			}
			return results, fmt.Errorf("execute failed (rolled back): %w\n  Statement: %s", err, truncateSQL(stmt))
		}
		results = append(results, StatementResult{Query: stmt, OK: true})
	}

	if err := tx.Commit(); err != nil {
		return results, fmt.Errorf("failed to commit transaction: %w", err)
	}

	a.printf("Successfully applied %d statements\n", len(statements))
	return results, nil
}

func (a *Applier) applyEach(ctx context.Context, statements []string) []StatementResult {
	results := make([]StatementResult, 0, len(statements))
	failed := 0
	for i, stmt := range statements {
		a.printf("Executing statement %d/%d...\n", i+1, len(statements))
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			failed++
			a.printf("  ERROR: %v\n", err)
			results = append(results, StatementResult{Query: stmt, Error: err.Error()})
			continue
		}
		results = append(results, StatementResult{Query: stmt, OK: true})
	}

	a.printf("Applied %d of %d statements\n", len(statements)-failed, len(statements))
	return results
}

// HasDestructiveOperations checks if there is a dangerous warning inside a preflight
// analysis of a script. If it has returns true, otherwise false.
func HasDestructiveOperations(preflight *PreflightResult) bool {
	for _, w := range preflight.Warnings {
		if w.Level == WarnDanger {
			return true
		}
	}
	return false
}

package apply

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/mysql"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver" // required to register TiDB parser driver implementations
)

// SQLite runs DDL inside transactions; these statements are the exceptions.
var nonTransactionalReasons = map[string]string{
	"VACUUM":   "VACUUM cannot run inside a transaction",
	"ATTACH":   "ATTACH cannot run inside a transaction",
	"DETACH":   "DETACH cannot run inside a transaction",
	"BEGIN":    "the script manages its own transaction",
	"COMMIT":   "the script manages its own transaction",
	"END":      "the script manages its own transaction",
	"ROLLBACK": "the script manages its own transaction",
	"PRAGMA":   "some pragmas have no effect inside a transaction",
}

var (
	dropTableRe  = regexp.MustCompile(`(?i)^DROP\s+TABLE\b`)
	deleteRe     = regexp.MustCompile(`(?i)^DELETE\s+FROM\b`)
	dropColumnRe = regexp.MustCompile(`(?is)^ALTER\s+TABLE\s+.+\s+DROP\s+(COLUMN\s+)?\S+`)
	createIdxRe  = regexp.MustCompile(`(?i)^CREATE\s+(UNIQUE\s+)?INDEX\b`)
)

type alterTableSpecEffect struct {
	blocking          bool
	destructive       bool
	destructiveReason string
	blockingReason    string
}

var alterTableSpecEffects = map[ast.AlterTableType]alterTableSpecEffect{
	ast.AlterTableDropColumn: {
		blocking:          true,
		destructive:       true,
		destructiveReason: "DROP COLUMN will permanently delete the column and its data",
		blockingReason:    "DROP COLUMN rewrites every row of the table",
	},
	ast.AlterTableRenameTable: {
		blocking:       true,
		blockingReason: "RENAME TO rewrites references in the schema",
	},
	ast.AlterTableRenameColumn: {
		blocking:       true,
		blockingReason: "RENAME COLUMN rewrites references in the schema",
	},
}

// StatementAnalysis contains the results of analyzing a SQL statement.
type StatementAnalysis struct {
	IsBlocking        bool
	BlockingReasons   []string
	IsDestructive     bool
	DestructiveReason string
	IsTransactionSafe bool
	TxUnsafeReason    string
	StatementType     string
}

// StatementAnalyzer uses TiDB's AST parser for SQL analysis. Statements in SQLite
// syntax it cannot parse are classified by their leading keywords.
type StatementAnalyzer struct {
	parser *parser.Parser
}

// NewStatementAnalyzer creates a new AST-based statement analyzer. Double quotes
// are read as identifiers, as in SQLite.
func NewStatementAnalyzer() *StatementAnalyzer {
	p := parser.New()
	p.SetSQLMode(mysql.ModeANSIQuotes)
	return &StatementAnalyzer{parser: p}
}

// AnalyzeStatement parses a single SQL statement and returns analysis results.
func (a *StatementAnalyzer) AnalyzeStatement(sql string) *StatementAnalysis {
	stmtNodes, _, err := a.parser.Parse(sql, "", "")
	if err != nil {
		analysis := &StatementAnalysis{
			StatementType:     "UNPARSEABLE",
			IsTransactionSafe: true,
		}
		a.analyzeOtherStatement(analysis, sql)
		return analysis
	}

	if len(stmtNodes) == 0 {
		return &StatementAnalysis{IsTransactionSafe: true}
	}

	return a.analyzeNode(stmtNodes[0], sql)
}

// AnalyzeStatements analyzes multiple SQL statements and returns a PreflightResult.
func (a *StatementAnalyzer) AnalyzeStatements(statements []string, unsafeAllowed bool) *PreflightResult {
	result := &PreflightResult{
		IsTransactional: true,
	}

	for _, stmt := range statements {
		analysis := a.AnalyzeStatement(stmt)
		if analysis == nil {
			continue
		}

		a.addBlockingWarnings(result, analysis, stmt)
		a.addDestructiveWarning(result, analysis, stmt, unsafeAllowed)
		a.addTransactionSafety(result, analysis, stmt)
	}

	return result
}

func (a *StatementAnalyzer) addBlockingWarnings(result *PreflightResult, analysis *StatementAnalysis, stmt string) {
	if !analysis.IsBlocking {
		return
	}
	for _, reason := range analysis.BlockingReasons {
		result.Warnings = append(result.Warnings, Warning{
			Level:   WarnCaution,
			Message: fmt.Sprintf("Potentially slow statement: %s", reason),
			SQL:     stmt,
		})
	}
}

func (a *StatementAnalyzer) addDestructiveWarning(result *PreflightResult, analysis *StatementAnalysis, stmt string, unsafeAllowed bool) {
	if !analysis.IsDestructive {
		return
	}
	msg := analysis.DestructiveReason
	if !unsafeAllowed {
		msg = fmt.Sprintf("%s (requires --unsafe flag)", msg)
	}
	result.Warnings = append(result.Warnings, Warning{
		Level:   WarnDanger,
		Message: msg,
		SQL:     stmt,
	})
}

func (a *StatementAnalyzer) addTransactionSafety(result *PreflightResult, analysis *StatementAnalysis, stmt string) {
	if analysis.IsTransactionSafe {
		return
	}
	result.IsTransactional = false
	reason := analysis.TxUnsafeReason
	if reason == "" {
		reason = "statement cannot run inside a transaction"
	}
	result.NonTxReasons = append(result.NonTxReasons, fmt.Sprintf("%s: %s", reason, truncateSQL(stmt)))
}

func (a *StatementAnalyzer) analyzeNode(node ast.StmtNode, originalSQL string) *StatementAnalysis {
	analysis := &StatementAnalysis{
		IsTransactionSafe: true,
	}

	if a.analyzeDropNode(node, analysis) {
		return analysis
	}
	if a.analyzeCreateNode(node, analysis) {
		return analysis
	}
	if a.analyzeAlterNode(node, analysis) {
		return analysis
	}
	if a.analyzeTxNode(node, analysis) {
		return analysis
	}
	if a.analyzeDMLNode(node, analysis) {
		return analysis
	}

	a.analyzeOtherStatement(analysis, originalSQL)

	return analysis
}

func (a *StatementAnalyzer) analyzeDropNode(node ast.StmtNode, analysis *StatementAnalysis) bool {
	switch stmt := node.(type) {
	case *ast.DropTableStmt:
		if stmt.IsView {
			analysis.StatementType = "DROP VIEW"
			return true
		}
		analysis.StatementType = "DROP TABLE"
		analysis.IsDestructive = true
		analysis.DestructiveReason = "DROP TABLE will permanently delete the table and all its data"
		return true
	case *ast.DropIndexStmt:
		analysis.StatementType = "DROP INDEX"
		return true
	case *ast.TruncateTableStmt:
		analysis.StatementType = "TRUNCATE TABLE"
		analysis.IsDestructive = true
		analysis.DestructiveReason = "TRUNCATE TABLE will delete all rows from the table"
		return true
	default:
		return false
	}
}

func (a *StatementAnalyzer) analyzeCreateNode(node ast.StmtNode, analysis *StatementAnalysis) bool {
	switch node.(type) {
	case *ast.CreateTableStmt:
		analysis.StatementType = "CREATE TABLE"
		return true
	case *ast.CreateIndexStmt:
		analysis.StatementType = "CREATE INDEX"
		analysis.IsBlocking = true
		analysis.BlockingReasons = append(analysis.BlockingReasons, "CREATE INDEX scans the whole table")
		return true
	case *ast.CreateViewStmt:
		analysis.StatementType = "CREATE VIEW"
		return true
	default:
		return false
	}
}

func (a *StatementAnalyzer) analyzeAlterNode(node ast.StmtNode, analysis *StatementAnalysis) bool {
	switch stmt := node.(type) {
	case *ast.AlterTableStmt:
		analysis.StatementType = "ALTER TABLE"
		for _, spec := range stmt.Specs {
			a.analyzeAlterTableSpec(spec, analysis)
		}
		return true
	case *ast.RenameTableStmt:
		analysis.StatementType = "RENAME TABLE"
		return true
	default:
		return false
	}
}

func (a *StatementAnalyzer) analyzeAlterTableSpec(spec *ast.AlterTableSpec, analysis *StatementAnalysis) {
	effect, ok := alterTableSpecEffects[spec.Tp]
	if !ok {
		return
	}

	if effect.blocking {
		analysis.IsBlocking = true
	}
	if effect.destructive {
		analysis.IsDestructive = true
		analysis.DestructiveReason = effect.destructiveReason
	}
	if effect.blockingReason != "" {
		analysis.BlockingReasons = append(analysis.BlockingReasons, effect.blockingReason)
	}
}

func (a *StatementAnalyzer) analyzeTxNode(node ast.StmtNode, analysis *StatementAnalysis) bool {
	switch node.(type) {
	case *ast.BeginStmt:
		analysis.StatementType = "BEGIN"
	case *ast.CommitStmt:
		analysis.StatementType = "COMMIT"
	case *ast.RollbackStmt:
		analysis.StatementType = "ROLLBACK"
	default:
		return false
	}
	analysis.IsTransactionSafe = false
	analysis.TxUnsafeReason = nonTransactionalReasons[analysis.StatementType]
	return true
}

func (a *StatementAnalyzer) analyzeDMLNode(node ast.StmtNode, analysis *StatementAnalysis) bool {
	switch node.(type) {
	case *ast.DeleteStmt:
		analysis.StatementType = "DELETE"
		analysis.IsDestructive = true
		analysis.DestructiveReason = "DELETE will remove rows from the table"
		return true
	case *ast.InsertStmt:
		analysis.StatementType = "INSERT"
		return true
	case *ast.UpdateStmt:
		analysis.StatementType = "UPDATE"
		return true
	case *ast.SelectStmt:
		analysis.StatementType = "SELECT"
		return true
	default:
		return false
	}
}

// analyzeOtherStatement classifies a statement by its leading keywords.
func (a *StatementAnalyzer) analyzeOtherStatement(analysis *StatementAnalysis, originalSQL string) {
	upper := strings.ToUpper(strings.TrimSpace(originalSQL))
	if analysis.StatementType == "" {
		analysis.StatementType = "OTHER"
	}

	if fields := strings.Fields(upper); len(fields) > 0 {
		keyword := strings.TrimSuffix(fields[0], ";")
		if reason, ok := nonTransactionalReasons[keyword]; ok {
			analysis.StatementType = keyword
			analysis.IsTransactionSafe = false
			analysis.TxUnsafeReason = reason
			return
		}
	}

	switch {
	case dropTableRe.MatchString(upper):
		analysis.IsDestructive = true
		analysis.DestructiveReason = "DROP TABLE will permanently delete the table and all its data"
	case deleteRe.MatchString(upper):
		analysis.IsDestructive = true
		analysis.DestructiveReason = "DELETE will remove rows from the table"
	case dropColumnRe.MatchString(upper):
		analysis.IsDestructive = true
		analysis.DestructiveReason = "DROP COLUMN will permanently delete the column and its data"
	case createIdxRe.MatchString(upper):
		analysis.IsBlocking = true
		analysis.BlockingReasons = append(analysis.BlockingReasons, "CREATE INDEX scans the whole table")
	}
}

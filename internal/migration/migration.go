// Package migration describes a schema mutation as an explicit, ordered pipeline of
// steps. The executor runs the SQL steps in order inside one transaction; notes and
// breaking remarks travel with the plan for dry runs and reports.
package migration

import (
	"strings"

	"sqliteadmin/internal/core"
)

// Migration contains all operations that need to be performed to apply one
// schema mutation to one table.
type Migration struct {
	Table      string           `json:"table"`
	Operations []core.Operation `json:"operations"`
}

// New creates an empty migration for table.
func New(table string) *Migration {
	return &Migration{Table: table}
}

// Plan returns the list of operations in execution order.
func (m *Migration) Plan() []core.Operation {
	return m.Operations
}

// Steps returns the SQL operations in execution order.
func (m *Migration) Steps() []core.Operation {
	out := make([]core.Operation, 0, len(m.Operations))
	for _, op := range m.Operations {
		if op.Kind == core.OperationSQL && op.SQL != "" {
			out = append(out, op)
		}
	}
	return out
}

// SQLStatements returns the SQL statements that need to be executed, in order.
func (m *Migration) SQLStatements() []string {
	return m.filterByKind(core.OperationSQL)
}

// BreakingNotes returns remarks about data that will not survive the mutation.
func (m *Migration) BreakingNotes() []string {
	return m.filterByKind(core.OperationBreaking)
}

// InfoNotes returns informational remarks for the user.
func (m *Migration) InfoNotes() []string {
	return m.filterByKind(core.OperationNote)
}

// AddStep appends a SQL step that aborts the migration when it fails.
func (m *Migration) AddStep(step core.StepKind, stmt string) {
	m.addSQL(step, stmt, false, core.RiskInfo)
}

// AddRiskyStep appends a SQL step with an explicit risk level.
func (m *Migration) AddRiskyStep(step core.StepKind, stmt string, risk core.OperationRisk) {
	m.addSQL(step, stmt, false, risk)
}

// AddBestEffortStep appends a SQL step whose failure is tolerated.
func (m *Migration) AddBestEffortStep(step core.StepKind, stmt string) {
	m.addSQL(step, stmt, true, core.RiskInfo)
}

func (m *Migration) addSQL(step core.StepKind, stmt string, bestEffort bool, risk core.OperationRisk) {
	if stmt = strings.TrimSpace(stmt); stmt == "" {
		return
	}
	m.Operations = append(m.Operations, core.Operation{
		Kind:       core.OperationSQL,
		Step:       step,
		SQL:        stmt,
		Risk:       risk,
		BestEffort: bestEffort,
	})
}

func (m *Migration) AddBreaking(msg string) {
	if msg = strings.TrimSpace(msg); msg == "" {
		return
	}
	m.Operations = append(m.Operations, core.Operation{Kind: core.OperationBreaking, SQL: msg, Risk: core.RiskBreaking})
}

func (m *Migration) AddNote(msg string) {
	if msg = strings.TrimSpace(msg); msg == "" {
		return
	}
	m.Operations = append(m.Operations, core.Operation{Kind: core.OperationNote, SQL: msg, Risk: core.RiskInfo})
}

// Dedupe drops repeated notes and breaking remarks, keeping the first occurrence.
// SQL steps are never removed.
func (m *Migration) Dedupe() {
	n := len(m.Operations)
	if n == 0 {
		return
	}
	seen := map[core.OperationKind]map[string]struct{}{
		core.OperationNote:     make(map[string]struct{}, n),
		core.OperationBreaking: make(map[string]struct{}, n),
	}
	out := make([]core.Operation, 0, n)
	for _, op := range m.Operations {
		op.SQL = strings.TrimSpace(op.SQL)
		if op.SQL == "" {
			continue
		}
		if set, ok := seen[op.Kind]; ok {
			if _, dup := set[op.SQL]; dup {
				continue
			}
			set[op.SQL] = struct{}{}
		}
		out = append(out, op)
	}
	m.Operations = out
}

func (m *Migration) filterByKind(kind core.OperationKind) []string {
	out := make([]string, 0, len(m.Operations)/2+1)
	for i := range m.Operations {
		op := &m.Operations[i]
		if op.Kind != kind {
			continue
		}
		if val := strings.TrimSpace(op.SQL); val != "" {
			out = append(out, val)
		}
	}
	return out
}

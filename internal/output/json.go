package output

import (
	"encoding/json"

	"sqliteadmin/internal/core"
	"sqliteadmin/internal/diff"
	"sqliteadmin/internal/migration"
)

type jsonFormatter struct{}

type diffPayload struct {
	Format          string                `json:"format"`
	Diff            *diff.TableDiff       `json:"diff,omitempty"`
	BreakingChanges []diff.BreakingChange `json:"breakingChanges,omitempty"`
}

type migrationSummary struct {
	BreakingChanges int `json:"breakingChanges"`
	Notes           int `json:"notes"`
	SQLStatements   int `json:"sqlStatements"`
}

type migrationPayload struct {
	Format          string           `json:"format"`
	Table           string           `json:"table"`
	Summary         migrationSummary `json:"summary"`
	BreakingChanges []string         `json:"breakingChanges,omitempty"`
	Notes           []string         `json:"notes,omitempty"`
	SQL             []string         `json:"sql,omitempty"`
	Steps           []core.Operation `json:"steps,omitempty"`
}

type tablePayload struct {
	Format string      `json:"format"`
	Table  *core.Table `json:"table"`
}

type Payload interface {
	diffPayload | migrationPayload | tablePayload
}

func (jsonFormatter) FormatDiff(d *diff.TableDiff) (string, error) {
	return marshalJSON(diffPayload{
		Format:          string(FormatJSON),
		Diff:            d,
		BreakingChanges: d.BreakingChanges(),
	})
}

func (jsonFormatter) FormatMigration(m *migration.Migration) (string, error) {
	payload := migrationPayload{Format: string(FormatJSON)}
	if m != nil {
		breaking := m.BreakingNotes()
		notes := m.InfoNotes()
		sql := normalizeStatements(m.SQLStatements())

		payload.Table = m.Table
		payload.BreakingChanges = breaking
		payload.Notes = notes
		payload.SQL = sql
		payload.Steps = m.Steps()
		payload.Summary = migrationSummary{
			BreakingChanges: len(breaking),
			Notes:           len(notes),
			SQLStatements:   len(sql),
		}
	}
	return marshalJSON(payload)
}

func (jsonFormatter) FormatTable(t *core.Table) (string, error) {
	return marshalJSON(tablePayload{Format: string(FormatJSON), Table: t})
}

func marshalJSON[T Payload](payload T) (string, error) {
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}

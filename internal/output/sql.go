package output

import (
	"io"
	"strings"

	"sqliteadmin/internal/core"
	"sqliteadmin/internal/diff"
	"sqliteadmin/internal/migration"
)

type sqlFormatter struct{}

// FormatDiff renders the column diff as SQL comments.
func (sqlFormatter) FormatDiff(d *diff.TableDiff) (string, error) {
	if d == nil {
		return "-- No column changes.\n", nil
	}
	var sb strings.Builder
	sb.WriteString("-- column changes on " + d.Name + "\n")
	for _, line := range diffLines(d) {
		sb.WriteString("-- " + line + "\n")
	}
	return sb.String(), nil
}

// FormatMigration formats a migration in SQL format.
func (sqlFormatter) FormatMigration(m *migration.Migration) (string, error) {
	if m == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("-- sqliteadmin mutation of " + m.Table + "\n")
	sb.WriteString("-- Runs inside a single transaction.\n")

	writeCommentSection(&sb, "BREAKING CHANGES (data will be lost)", m.BreakingNotes())
	writeCommentSection(&sb, "NOTES", m.InfoNotes())

	steps := m.Steps()
	if len(steps) == 0 {
		sb.WriteString("\n-- No SQL statements generated.\n")
		return sb.String(), nil
	}

	sb.WriteString("\nBEGIN;\n")
	for _, op := range steps {
		writeStepComment(&sb, op)
		sb.WriteString(op.SQL)
		if !strings.HasSuffix(op.SQL, ";") {
			sb.WriteString(";")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("COMMIT;\n")
	return sb.String(), nil
}

// FormatTable returns the stored creation statements of t, its indexes and its
// triggers.
func (sqlFormatter) FormatTable(t *core.Table) (string, error) {
	if t == nil {
		return "", nil
	}
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(t.SQL))
	sb.WriteString(";\n")
	for _, idx := range t.Indexes {
		sb.WriteString(strings.TrimSpace(idx.SQL))
		sb.WriteString(";\n")
	}
	for _, trg := range t.Triggers {
		sb.WriteString(strings.TrimSpace(trg.SQL))
		sb.WriteString(";\n")
	}
	return sb.String(), nil
}

func writeStepComment(sb *strings.Builder, op core.Operation) {
	sb.WriteString("-- " + string(op.Step))
	if op.Risk != "" && op.Risk != core.RiskInfo {
		sb.WriteString(" [" + string(op.Risk) + "]")
	}
	if op.BestEffort {
		sb.WriteString(" (best effort)")
	}
	sb.WriteString("\n")
}

// WriteMigration writes a migration in SQL format to w.
func WriteMigration(m *migration.Migration, w io.Writer) error {
	content, err := sqlFormatter{}.FormatMigration(m)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, content)
	return err
}

func writeCommentSection(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString("\n-- " + title + "\n")
	for _, item := range items {
		for _, line := range splitCommentLines(item) {
			if line == "" {
				continue
			}
			sb.WriteString("-- - " + line + "\n")
		}
	}
}

func splitCommentLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return lines
}

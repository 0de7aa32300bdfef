package output

import (
	"fmt"
	"strings"

	"sqliteadmin/internal/core"
	"sqliteadmin/internal/diff"
	"sqliteadmin/internal/migration"
)

type summaryFormatter struct{}

// FormatDiff formats a column diff as a compact summary.
// Example output:
//
//	Columns:   +1, ~0, -0, renamed 0
//	  + age INTEGER
func (summaryFormatter) FormatDiff(d *diff.TableDiff) (string, error) {
	if d == nil {
		return "No changes detected.\n", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Table %s\n", d.Name)
	fmt.Fprintf(&sb, "Columns:   +%d, ~%d, -%d, renamed %d\n",
		len(d.AddedColumns), len(d.ModifiedColumns), len(d.RemovedColumns), len(d.RenamedColumns))
	for _, line := range diffLines(d) {
		sb.WriteString("  " + line + "\n")
	}

	if bcs := d.BreakingChanges(); len(bcs) > 0 {
		fmt.Fprintf(&sb, "\nReview: %d\n", len(bcs))
		for _, bc := range bcs {
			fmt.Fprintf(&sb, "   [%s] %s\n", bc.Severity, bc.Message)
		}
	}
	return sb.String(), nil
}

// FormatMigration formats a migration as a compact summary.
func (summaryFormatter) FormatMigration(m *migration.Migration) (string, error) {
	if m == nil || len(m.Operations) == 0 {
		return "No migration operations.\n", nil
	}

	var sb strings.Builder

	breaking := m.BreakingNotes()
	notes := m.InfoNotes()
	steps := m.Steps()

	sb.WriteString("Mutation Summary\n")
	sb.WriteString("================\n\n")

	fmt.Fprintf(&sb, "Table:          %s\n", m.Table)
	fmt.Fprintf(&sb, "SQL Statements: %d\n", len(steps))
	for _, op := range steps {
		fmt.Fprintf(&sb, "   %s\n", op.Step)
	}

	if len(breaking) > 0 {
		fmt.Fprintf(&sb, "\nBreaking Changes: %d\n", len(breaking))
		for _, b := range breaking {
			fmt.Fprintf(&sb, "   - %s\n", b)
		}
	}

	if len(notes) > 0 {
		fmt.Fprintf(&sb, "\nNotes: %d\n", len(notes))
		for _, n := range notes {
			fmt.Fprintf(&sb, "   - %s\n", n)
		}
	}

	return sb.String(), nil
}

// FormatTable lists the columns of t one per line.
func (summaryFormatter) FormatTable(t *core.Table) (string, error) {
	if t == nil {
		return "", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Table %s (%d columns, %d indexes)\n", t.Name, len(t.Columns), len(t.Indexes))
	for _, c := range t.Columns {
		sb.WriteString("  " + describeColumn(c) + "\n")
	}
	for _, idx := range t.Indexes {
		kind := "INDEX"
		if idx.Unique {
			kind = "UNIQUE INDEX"
		}
		fmt.Fprintf(&sb, "  %s %s (%s)\n", kind, idx.Name, strings.Join(idx.Columns, ", "))
	}
	for _, trg := range t.Triggers {
		sb.WriteString("  TRIGGER " + trg.Name + "\n")
	}
	return sb.String(), nil
}

func describeColumn(c *core.Column) string {
	parts := []string{c.Name}
	if typ := c.TypeDefinition(); typ != "" {
		parts = append(parts, typ)
	}
	if c.NotNull {
		parts = append(parts, "NOT NULL")
	}
	if c.Default != nil {
		parts = append(parts, "DEFAULT '"+*c.Default+"'")
	}
	switch {
	case c.EmitsAutoIncrement():
		parts = append(parts, "PRIMARY KEY AUTOINCREMENT")
	case c.PrimaryKey:
		parts = append(parts, "PRIMARY KEY")
	}
	return strings.Join(parts, " ")
}

// diffLines returns one human-readable line per column change.
func diffLines(d *diff.TableDiff) []string {
	var out []string
	for _, c := range d.AddedColumns {
		out = append(out, "+ "+describeColumn(c))
	}
	for _, c := range d.RemovedColumns {
		out = append(out, "- "+c.Name)
	}
	for _, r := range d.RenamedColumns {
		out = append(out, fmt.Sprintf("> %s -> %s", r.Old.Name, r.New.Name))
	}
	for _, ch := range d.ModifiedColumns {
		for _, f := range ch.Changes {
			out = append(out, fmt.Sprintf("~ %s.%s: %s -> %s", ch.Name, f.Field, orEmpty(f.Old), orEmpty(f.New)))
		}
	}
	return out
}

func orEmpty(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

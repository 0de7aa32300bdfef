package diff

import (
	"fmt"
	"strings"
)

// ChangeSeverity is the severity of a change.
type ChangeSeverity string

const (
	SeverityInfo     ChangeSeverity = "INFO"
	SeverityWarning  ChangeSeverity = "WARNING"
	SeverityBreaking ChangeSeverity = "BREAKING"
)

// BreakingChange is one change a user should review before running a rebuild.
type BreakingChange struct {
	Severity ChangeSeverity `json:"severity"`
	Column   string         `json:"column"`
	Message  string         `json:"message"`
}

// BreakingChanges lists the changes in td that drop data, may make the row copy
// fail, or change how existing values are stored.
func (td *TableDiff) BreakingChanges() []BreakingChange {
	if td == nil {
		return nil
	}
	var out []BreakingChange

	for _, c := range td.RemovedColumns {
		out = append(out, BreakingChange{
			Severity: SeverityBreaking,
			Column:   c.Name,
			Message:  fmt.Sprintf("column %q and its data will be removed", c.Name),
		})
	}

	for _, c := range td.AddedColumns {
		if c.NotNull && c.Default == nil {
			out = append(out, BreakingChange{
				Severity: SeverityWarning,
				Column:   c.Name,
				Message:  fmt.Sprintf("column %q is NOT NULL without a default; copying existing rows will fail", c.Name),
			})
		}
	}

	for _, ch := range td.ModifiedColumns {
		for _, f := range ch.Changes {
			if bc, ok := fieldBreakingChange(ch.Name, f); ok {
				out = append(out, bc)
			}
		}
	}
	return out
}

func fieldBreakingChange(column string, f *FieldChange) (BreakingChange, bool) {
	switch f.Field {
	case "type":
		return BreakingChange{
			Severity: SeverityWarning,
			Column:   column,
			Message:  fmt.Sprintf("column %q type changes from %s to %s; values are coerced on copy", column, orNone(f.Old), orNone(f.New)),
		}, true
	case "not_null":
		if f.New == "true" {
			return BreakingChange{
				Severity: SeverityWarning,
				Column:   column,
				Message:  fmt.Sprintf("column %q becomes NOT NULL; rows holding NULL will make the copy fail", column),
			}, true
		}
	case "primary_key":
		if f.New == "true" {
			return BreakingChange{
				Severity: SeverityWarning,
				Column:   column,
				Message:  fmt.Sprintf("column %q becomes the primary key; duplicate values will make the copy fail", column),
			}, true
		}
		return BreakingChange{
			Severity: SeverityInfo,
			Column:   column,
			Message:  fmt.Sprintf("column %q is no longer the primary key", column),
		}, true
	case "autoincrement":
		if f.New == "false" {
			return BreakingChange{
				Severity: SeverityInfo,
				Column:   column,
				Message:  fmt.Sprintf("column %q loses AUTOINCREMENT; key values may be reused", column),
			}, true
		}
	}
	return BreakingChange{}, false
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}

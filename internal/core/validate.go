package core

import (
	"regexp"
	"strings"
)

// Two identifier grammars are in use. Create, drop and rebuild paths accept any run
// of alphanumerics and underscores; rename paths additionally forbid a leading digit.
// Both keep identifiers safe to interpolate; values are always bound as parameters.
var (
	namePattern   = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	renamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Grammar selects which identifier grammar a check applies.
type Grammar int

const (
	// GrammarName is used for create, drop and rebuild paths.
	GrammarName Grammar = iota
	// GrammarRename is used for rename paths.
	GrammarRename
)

func (g Grammar) pattern() *regexp.Regexp {
	if g == GrammarRename {
		return renamePattern
	}
	return namePattern
}

// Naming decides which grammar applies to each path. The zero value keeps the two
// grammars apart; Strict applies the rename grammar everywhere.
type Naming struct {
	Strict bool
}

// Grammar returns the grammar to use for a path that would otherwise use g.
func (n Naming) Grammar(g Grammar) Grammar {
	if n.Strict {
		return GrammarRename
	}
	return g
}

// ValidateIdentifier checks that name is non-empty and matches grammar g. kind is
// used in the error message ("table", "column").
func ValidateIdentifier(kind, name string, g Grammar) error {
	if strings.TrimSpace(name) == "" {
		return Invalidf("%s name is empty", kind)
	}
	if !g.pattern().MatchString(name) {
		return Invalidf("invalid %s name %q", kind, name)
	}
	return nil
}

// ValidateName checks name against the create/drop grammar.
func ValidateName(kind, name string) error {
	return ValidateIdentifier(kind, name, GrammarName)
}

// ValidateRenameName checks name against the rename grammar.
func ValidateRenameName(kind, name string) error {
	return ValidateIdentifier(kind, name, GrammarRename)
}

// ValidateColumns checks a complete column list before any DDL is synthesized from it.
func ValidateColumns(cols []*Column, naming Naming) error {
	if len(cols) == 0 {
		return Invalidf("table must keep at least one column")
	}

	seen := make(map[string]bool, len(cols))
	autoInc := 0
	for _, c := range cols {
		if err := ValidateIdentifier("column", c.Name, naming.Grammar(GrammarName)); err != nil {
			return err
		}
		lower := strings.ToLower(c.Name)
		if seen[lower] {
			return Invalidf("duplicate column name %q", c.Name)
		}
		seen[lower] = true

		if strings.TrimSpace(c.Type) == "" {
			return Invalidf("column %q has no type", c.Name)
		}
		if c.AutoIncrement {
			if !c.PrimaryKey || !c.IsInteger() {
				return Invalidf("column %q: AUTOINCREMENT requires an INTEGER PRIMARY KEY", c.Name)
			}
			autoInc++
		}
	}
	if autoInc > 1 {
		return Invalidf("at most one column may be AUTOINCREMENT")
	}
	if autoInc == 1 && len(PrimaryKeyColumns(cols)) > 1 {
		return Invalidf("AUTOINCREMENT is not allowed on a composite primary key")
	}
	return nil
}

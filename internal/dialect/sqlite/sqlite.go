// Package sqlite implements the SQLite statement generator used by the rebuild
// pipeline.
package sqlite

import (
	"strconv"
	"strings"

	"sqliteadmin/internal/core"
	"sqliteadmin/internal/dialect"
)

func init() {
	dialect.RegisterDialect(dialect.SQLite, func() dialect.Dialect { return NewSQLiteDialect() })
}

// Dialect is the SQLite dialect implementation.
type Dialect struct {
	generator *Generator
}

// NewSQLiteDialect creates a new SQLite dialect.
func NewSQLiteDialect() *Dialect {
	return &Dialect{generator: NewSQLiteGenerator()}
}

func (d *Dialect) Name() dialect.Type {
	return dialect.SQLite
}

func (d *Dialect) Generator() dialect.Generator {
	return d.generator
}

// Generator emits SQLite statements.
type Generator struct{}

// NewSQLiteGenerator creates a new SQLite generator.
func NewSQLiteGenerator() *Generator {
	return &Generator{}
}

// CreateTable builds CREATE TABLE for cols. A single key column is declared inline;
// a composite key is emitted as a table-level constraint in key order.
func (g *Generator) CreateTable(name string, cols []*core.Column) string {
	pk := core.PrimaryKeyColumns(cols)
	inlinePK := len(pk) <= 1

	defs := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		defs = append(defs, g.columnDefinition(c, inlinePK))
	}
	if !inlinePK {
		names := make([]string, len(pk))
		for i, c := range pk {
			names[i] = g.QuoteIdentifier(c.Name)
		}
		defs = append(defs, "PRIMARY KEY ("+strings.Join(names, ", ")+")")
	}

	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	sb.WriteString(g.QuoteIdentifier(name))
	sb.WriteString(" (")
	sb.WriteString(strings.Join(defs, ", "))
	sb.WriteString(")")
	return sb.String()
}

// ColumnDefinition returns the clause for c: quoted name, type, NOT NULL, DEFAULT,
// then the key clause.
func (g *Generator) ColumnDefinition(c *core.Column) string {
	return g.columnDefinition(c, true)
}

func (g *Generator) columnDefinition(c *core.Column, inlinePK bool) string {
	parts := []string{g.QuoteIdentifier(c.Name)}
	if typ := c.TypeDefinition(); typ != "" {
		parts = append(parts, typ)
	}
	parts = g.addNullability(parts, c)
	parts = g.addDefault(parts, c)
	if inlinePK {
		parts = g.addKey(parts, c)
	}
	return strings.Join(parts, " ")
}

func (g *Generator) addNullability(parts []string, c *core.Column) []string {
	if c.NotNull {
		parts = append(parts, "NOT NULL")
	}
	return parts
}

func (g *Generator) addDefault(parts []string, c *core.Column) []string {
	if c.Default != nil {
		parts = append(parts, "DEFAULT "+g.QuoteString(*c.Default))
	}
	return parts
}

func (g *Generator) addKey(parts []string, c *core.Column) []string {
	switch {
	case c.EmitsAutoIncrement():
		parts = append(parts, "PRIMARY KEY AUTOINCREMENT")
	case c.PrimaryKey:
		parts = append(parts, "PRIMARY KEY")
	}
	return parts
}

func (g *Generator) CopyRows(dst, src string, dstCols, srcCols []string) string {
	return "INSERT INTO " + g.QuoteIdentifier(dst) + " (" + g.quoteList(dstCols) + ") SELECT " +
		g.quoteList(srcCols) + " FROM " + g.QuoteIdentifier(src)
}

func (g *Generator) DropTable(name string, ifExists bool) string {
	if ifExists {
		return "DROP TABLE IF EXISTS " + g.QuoteIdentifier(name)
	}
	return "DROP TABLE " + g.QuoteIdentifier(name)
}

func (g *Generator) RenameTable(oldName, newName string) string {
	return "ALTER TABLE " + g.QuoteIdentifier(oldName) + " RENAME TO " + g.QuoteIdentifier(newName)
}

func (g *Generator) RenameColumn(table, oldName, newName string) string {
	return "ALTER TABLE " + g.QuoteIdentifier(table) + " RENAME COLUMN " +
		g.QuoteIdentifier(oldName) + " TO " + g.QuoteIdentifier(newName)
}

func (g *Generator) AddColumn(table string, c *core.Column) string {
	return "ALTER TABLE " + g.QuoteIdentifier(table) + " ADD COLUMN " + g.ColumnDefinition(c)
}

func (g *Generator) LegacyAlterTable(on bool) string {
	if on {
		return "PRAGMA legacy_alter_table = ON"
	}
	return "PRAGMA legacy_alter_table = OFF"
}

func (g *Generator) RaiseSequence(table string, seq int64) []string {
	name := g.QuoteString(table)
	n := strconv.FormatInt(seq, 10)
	return []string{
		"UPDATE sqlite_sequence SET seq = MAX(seq, " + n + ") WHERE name = " + name,
		"INSERT INTO sqlite_sequence (name, seq) SELECT " + name + ", " + n +
			" WHERE NOT EXISTS (SELECT 1 FROM sqlite_sequence WHERE name = " + name + ")",
	}
}

// QuoteIdentifier wraps name in double quotes, doubling embedded quotes.
func (g *Generator) QuoteIdentifier(name string) string {
	name = strings.TrimSpace(name)
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteString wraps value in single quotes, doubling embedded quotes.
func (g *Generator) QuoteString(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

func (g *Generator) quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = g.QuoteIdentifier(n)
	}
	return strings.Join(quoted, ", ")
}

// Package dialect provides a unified interface for generating the statements the
// mutation engine executes. Generators are pure: they never consult or change
// catalog state, and identical input always yields identical text.
package dialect

import (
	"sqliteadmin/internal/core"
)

type Type string

const (
	SQLite Type = "sqlite"
)

// Generator synthesizes DDL and the data-copy statement of a rebuild.
type Generator interface {
	// CreateTable returns the creation statement for a table named name with cols
	// in order.
	CreateTable(name string, cols []*core.Column) string
	// ColumnDefinition returns the clause declaring a single column.
	ColumnDefinition(c *core.Column) string
	// CopyRows copies rows positionally: dstCols[i] receives srcCols[i].
	CopyRows(dst, src string, dstCols, srcCols []string) string
	DropTable(name string, ifExists bool) string
	RenameTable(oldName, newName string) string
	RenameColumn(table, oldName, newName string) string
	AddColumn(table string, c *core.Column) string
	// LegacyAlterTable toggles the connection flag that stops a table rename from
	// re-resolving the views that reference the table.
	LegacyAlterTable(on bool) string
	// RaiseSequence returns the statements that lift the AUTOINCREMENT counter of
	// table to at least seq, creating its row when missing.
	RaiseSequence(table string, seq int64) []string
	QuoteIdentifier(name string) string
	QuoteString(value string) string
}

// Dialect interface creates a way to interact with a specific SQL dialect.
type Dialect interface {
	Name() Type
	Generator() Generator
}

var registry = map[Type]func() Dialect{}

// RegisterDialect creates a new registry entry for the specified dialect.
func RegisterDialect(d Type, ctor func() Dialect) {
	registry[d] = ctor
}

// GetDialect returns the dialect for the specified type from the registry, or nil
// when it is not registered.
func GetDialect(d Type) Dialect {
	if ctor, ok := registry[d]; ok {
		return ctor()
	}
	return nil
}

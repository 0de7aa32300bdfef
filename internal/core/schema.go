// Package core contains the single source of truth for a table's shape as seen by
// the schema mutation engine. Descriptors are built fresh from the catalog for every
// request and are never cached.
package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect identifies a storage engine the introspecter registry knows about.
type Dialect string

const (
	DialectSQLite Dialect = "sqlite"
)

// ShadowPrefix is prepended to a table name to build the name of its rebuild shadow.
const ShadowPrefix = "temp_"

// ShadowName returns the shadow table name used while rebuilding table.
func ShadowName(table string) string {
	return ShadowPrefix + table
}

// Table describes one table: its ordered columns, its stored creation text and the
// user indexes and triggers defined on it.
type Table struct {
	Name     string     `json:"name"`
	Columns  []*Column  `json:"columns"`
	Indexes  []*Index   `json:"indexes,omitempty"`
	Triggers []*Trigger `json:"triggers,omitempty"`
	SQL      string     `json:"sql"`
	// Sequence is the AUTOINCREMENT high-water mark kept in sqlite_sequence.
	Sequence int64 `json:"sequence,omitempty"`
}

// Column represents a single column inside a table.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
	// Length is appended as "(n)" to sized character types that carry no suffix yet.
	Length        int     `json:"length,omitempty"`
	NotNull       bool    `json:"notNull"`
	Default       *string `json:"default,omitempty"`
	PrimaryKey    bool    `json:"primaryKey"`
	PKPosition    int     `json:"pkPosition,omitempty"`
	AutoIncrement bool    `json:"autoIncrement"`
}

// Index is a user-defined index as stored in the catalog.
type Index struct {
	Name    string   `json:"name"`
	Unique  bool     `json:"unique,omitempty"`
	Columns []string `json:"columns"`
	SQL     string   `json:"sql"`
}

// Trigger is a trigger attached to a table, as stored in the catalog.
type Trigger struct {
	Name string `json:"name"`
	SQL  string `json:"sql"`
}

var sizedTypes = map[string]struct{}{
	"VARCHAR":  {},
	"CHAR":     {},
	"NVARCHAR": {},
}

// IsSizedType reports whether typ is one of the character types that accept a length suffix.
func IsSizedType(typ string) bool {
	_, ok := sizedTypes[strings.ToUpper(strings.TrimSpace(typ))]
	return ok
}

// TypeDefinition returns the type token emitted for the column, with the length
// suffix applied when it is allowed and not already present.
func (c *Column) TypeDefinition() string {
	typ := strings.TrimSpace(c.Type)
	if c.Length > 0 && IsSizedType(typ) && !strings.Contains(typ, "(") {
		return typ + "(" + strconv.Itoa(c.Length) + ")"
	}
	return typ
}

// IsInteger reports whether the declared type is exactly INTEGER, the only type
// SQLite allows AUTOINCREMENT on.
func (c *Column) IsInteger() bool {
	return strings.EqualFold(strings.TrimSpace(c.Type), "INTEGER")
}

// EmitsAutoIncrement reports whether the column must be declared
// PRIMARY KEY AUTOINCREMENT.
func (c *Column) EmitsAutoIncrement() bool {
	return c.PrimaryKey && c.AutoIncrement && c.IsInteger()
}

// Clone returns a deep copy of the column.
func (c *Column) Clone() *Column {
	out := *c
	if c.Default != nil {
		v := *c.Default
		out.Default = &v
	}
	return &out
}

// GetName methods allow these types to be used with generic Named interface.
func (t *Table) GetName() string  { return t.Name }
func (c *Column) GetName() string { return c.Name }
func (i *Index) GetName() string  { return i.Name }

// FindColumn looks for a column by name inside a table.
func (t *Table) FindColumn(name string) *Column {
	if i := t.ColumnIndex(name); i >= 0 {
		return t.Columns[i]
	}
	return nil
}

// ColumnIndex returns the position of the named column or -1. SQLite column names
// are case-insensitive.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

// ColumnNames returns the names of the columns in declaration order.
func (t *Table) ColumnNames() []string {
	return ColumnNames(t.Columns)
}

// ColumnNames returns the names of cols in order.
func ColumnNames(cols []*Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// CloneColumns returns deep copies of cols.
func CloneColumns(cols []*Column) []*Column {
	out := make([]*Column, len(cols))
	for i, c := range cols {
		out[i] = c.Clone()
	}
	return out
}

// PrimaryKeyColumns returns the key columns ordered by their key position.
func PrimaryKeyColumns(cols []*Column) []*Column {
	var pk []*Column
	for _, c := range cols {
		if c.PrimaryKey {
			pk = append(pk, c)
		}
	}
	// insertion sort, keys are tiny
	for i := 1; i < len(pk); i++ {
		for j := i; j > 0 && pk[j].PKPosition < pk[j-1].PKPosition; j-- {
			pk[j], pk[j-1] = pk[j-1], pk[j]
		}
	}
	return pk
}

// String returns a short representation of a table.
func (t *Table) String() string {
	return fmt.Sprintf("Table: %s (%d cols, %d indexes)", t.Name, len(t.Columns), len(t.Indexes))
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

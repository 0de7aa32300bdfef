// Package diff compares the column list of a table before and after a mutation.
// The engine attaches the result to the rebuild plan so dry runs can show what a
// mutation changes and which changes may lose data.
package diff

import (
	"sort"
	"strconv"
	"strings"

	"sqliteadmin/internal/core"
)

// TableDiff represents the differences between two versions of one table.
type TableDiff struct {
	Name            string          `json:"name"`
	AddedColumns    []*core.Column  `json:"addedColumns,omitempty"`
	RemovedColumns  []*core.Column  `json:"removedColumns,omitempty"`
	RenamedColumns  []*ColumnRename `json:"renamedColumns,omitempty"`
	ModifiedColumns []*ColumnChange `json:"modifiedColumns,omitempty"`
}

// ColumnChange represents the differences between two columns.
type ColumnChange struct {
	Name    string         `json:"name"`
	Old     *core.Column   `json:"old"`
	New     *core.Column   `json:"new"`
	Changes []*FieldChange `json:"changes"`
}

// ColumnRename pairs a column with its new name.
type ColumnRename struct {
	Old *core.Column `json:"old"`
	New *core.Column `json:"new"`
}

// FieldChange represents the differences between two fields.
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// Columns compares oldCols and newCols of table name. renames maps old column
// names to new ones; unmapped columns are matched by name, case-insensitively.
// It returns nil when nothing changed.
func Columns(name string, oldCols, newCols []*core.Column, renames map[string]string) *TableDiff {
	td := &TableDiff{Name: name}

	newByName := make(map[string]*core.Column, len(newCols))
	for _, c := range newCols {
		newByName[strings.ToLower(c.Name)] = c
	}

	matched := make(map[string]bool, len(newCols))
	for _, oldC := range oldCols {
		target := oldC.Name
		if renamed, ok := lookup(renames, oldC.Name); ok {
			target = renamed
		}
		newC, ok := newByName[strings.ToLower(target)]
		if !ok {
			td.RemovedColumns = append(td.RemovedColumns, oldC)
			continue
		}
		matched[strings.ToLower(newC.Name)] = true

		if !strings.EqualFold(oldC.Name, newC.Name) {
			td.RenamedColumns = append(td.RenamedColumns, &ColumnRename{Old: oldC, New: newC})
		}
		if changes := columnFieldChanges(oldC, newC); len(changes) > 0 {
			td.ModifiedColumns = append(td.ModifiedColumns, &ColumnChange{
				Name:    newC.Name,
				Old:     oldC,
				New:     newC,
				Changes: changes,
			})
		}
	}

	for _, c := range newCols {
		if !matched[strings.ToLower(c.Name)] {
			td.AddedColumns = append(td.AddedColumns, c)
		}
	}

	if td.isEmpty() {
		return nil
	}
	td.sort()
	return td
}

func lookup(m map[string]string, key string) (string, bool) {
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

func columnFieldChanges(oldC, newC *core.Column) []*FieldChange {
	c := &fieldChangeCollector{}
	c.Add("type", oldC.TypeDefinition(), newC.TypeDefinition())
	c.Add("not_null", strconv.FormatBool(oldC.NotNull), strconv.FormatBool(newC.NotNull))
	c.Add("default", ptrStr(oldC.Default), ptrStr(newC.Default))
	c.Add("primary_key", strconv.FormatBool(oldC.PrimaryKey), strconv.FormatBool(newC.PrimaryKey))
	c.Add("autoincrement", strconv.FormatBool(oldC.AutoIncrement), strconv.FormatBool(newC.AutoIncrement))
	return c.Changes
}

type fieldChangeCollector struct {
	Changes []*FieldChange
}

func (c *fieldChangeCollector) Add(field, oldV, newV string) {
	if strings.EqualFold(oldV, newV) {
		return
	}
	c.Changes = append(c.Changes, &FieldChange{Field: field, Old: oldV, New: newV})
}

func ptrStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func (td *TableDiff) isEmpty() bool {
	return len(td.AddedColumns) == 0 &&
		len(td.RemovedColumns) == 0 &&
		len(td.RenamedColumns) == 0 &&
		len(td.ModifiedColumns) == 0
}

func (td *TableDiff) sort() {
	sort.SliceStable(td.ModifiedColumns, func(i, j int) bool {
		return td.ModifiedColumns[i].Name < td.ModifiedColumns[j].Name
	})
}

// Package sqlite reads table descriptors from the SQLite catalog. Structural facts
// come from pragma_table_info; the autoincrement flag, which the catalog does not
// expose, is recovered from the table's stored CREATE TABLE text.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"sqliteadmin/internal/core"
	"sqliteadmin/internal/introspect"
)

func init() {
	introspect.Register(core.DialectSQLite, New)
}

type sqliteIntrospecter struct{}

func New() introspect.Introspecter {
	return &sqliteIntrospecter{}
}

func (i *sqliteIntrospecter) Introspect(ctx context.Context, q introspect.Querier, table string) (*core.Table, error) {
	t := new(core.Table)
	err := q.QueryRowContext(ctx,
		`SELECT name, sql FROM sqlite_master WHERE type = 'table' AND name = ? COLLATE NOCASE`,
		table,
	).Scan(&t.Name, &t.SQL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NotFoundf("table %q does not exist", table)
	}
	if err != nil {
		return nil, core.NewStorageError("read table definition", err)
	}

	if err := introspectColumns(ctx, q, t); err != nil {
		return nil, core.NewStorageError("read table columns", err)
	}
	if err := introspectIndexes(ctx, q, t); err != nil {
		return nil, core.NewStorageError("read table indexes", err)
	}
	if err := introspectTriggers(ctx, q, t); err != nil {
		return nil, core.NewStorageError("read table triggers", err)
	}
	if err := introspectSequence(ctx, q, t); err != nil {
		return nil, core.NewStorageError("read autoincrement sequence", err)
	}
	return t, nil
}

func (i *sqliteIntrospecter) Tables(ctx context.Context, q introspect.Querier) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, core.NewStorageError("list tables", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, core.NewStorageError("list tables", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStorageError("list tables", err)
	}
	return names, nil
}

func introspectColumns(ctx context.Context, q introspect.Querier, t *core.Table) error {
	rows, err := q.QueryContext(ctx,
		`SELECT name, type, "notnull", dflt_value, pk FROM pragma_table_info(?) ORDER BY cid`,
		t.Name,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name, typ string
			notNull   bool
			dflt      sql.NullString
			pk        int
		)
		if err := rows.Scan(&name, &typ, &notNull, &dflt, &pk); err != nil {
			return err
		}

		col := &core.Column{
			Name:       name,
			Type:       typ,
			NotNull:    notNull,
			PrimaryKey: pk > 0,
			PKPosition: pk,
		}
		if dflt.Valid {
			col.Default = ParseDefault(dflt.String)
		}
		col.AutoIncrement = HasAutoIncrement(t.SQL, name)

		t.Columns = append(t.Columns, col)
	}
	return rows.Err()
}

func introspectIndexes(ctx context.Context, q introspect.Querier, t *core.Table) error {
	rows, err := q.QueryContext(ctx,
		`SELECT name, sql FROM sqlite_master
		WHERE type = 'index' AND tbl_name = ? COLLATE NOCASE AND sql IS NOT NULL
		ORDER BY name`,
		t.Name,
	)
	if err != nil {
		return err
	}

	for rows.Next() {
		idx := new(core.Index)
		if err := rows.Scan(&idx.Name, &idx.SQL); err != nil {
			rows.Close()
			return err
		}
		idx.Unique = uniqueIndexRe.MatchString(idx.SQL)
		t.Indexes = append(t.Indexes, idx)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, idx := range t.Indexes {
		if err := introspectIndexColumns(ctx, q, idx); err != nil {
			return err
		}
	}
	return nil
}

func introspectIndexColumns(ctx context.Context, q introspect.Querier, idx *core.Index) error {
	rows, err := q.QueryContext(ctx, `SELECT name FROM pragma_index_info(?) ORDER BY seqno`, idx.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name sql.NullString
		if err := rows.Scan(&name); err != nil {
			return err
		}
		// expression columns have no name
		if name.Valid {
			idx.Columns = append(idx.Columns, name.String)
		}
	}
	return rows.Err()
}

func introspectTriggers(ctx context.Context, q introspect.Querier, t *core.Table) error {
	rows, err := q.QueryContext(ctx,
		`SELECT name, sql FROM sqlite_master
		WHERE type = 'trigger' AND tbl_name = ? COLLATE NOCASE AND sql IS NOT NULL
		ORDER BY name`,
		t.Name,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		trg := new(core.Trigger)
		if err := rows.Scan(&trg.Name, &trg.SQL); err != nil {
			return err
		}
		t.Triggers = append(t.Triggers, trg)
	}
	return rows.Err()
}

// introspectSequence reads the high-water mark of an AUTOINCREMENT table. SQLite
// creates sqlite_sequence together with the first such table, so it is only
// consulted when a column carries the flag.
func introspectSequence(ctx context.Context, q introspect.Querier, t *core.Table) error {
	if !hasAutoIncrementColumn(t) {
		return nil
	}
	err := q.QueryRowContext(ctx, `SELECT seq FROM sqlite_sequence WHERE name = ?`, t.Name).Scan(&t.Sequence)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}

func hasAutoIncrementColumn(t *core.Table) bool {
	for _, c := range t.Columns {
		if c.AutoIncrement {
			return true
		}
	}
	return false
}

var uniqueIndexRe = regexp.MustCompile(`(?i)^\s*CREATE\s+UNIQUE\s+INDEX`)

// HasAutoIncrement reports whether createSQL declares column as
// INTEGER PRIMARY KEY AUTOINCREMENT. The match is case-insensitive and scoped to the
// named column's own clause: other constraints may sit between the type and the
// key words, but a comma ends the clause.
func HasAutoIncrement(createSQL, column string) bool {
	if createSQL == "" || column == "" {
		return false
	}
	return autoIncrementPattern(column).MatchString(createSQL)
}

func autoIncrementPattern(column string) *regexp.Regexp {
	name := regexp.QuoteMeta(column)
	ident := `(?:"` + name + `"|` + "`" + name + "`" + `|\[` + name + `\]|'` + name + `'|` + name + `)`
	return regexp.MustCompile(`(?is)(?:^|[\s,(])` + ident +
		`\s+INTEGER\b[^,]*?\bPRIMARY\s+KEY\b[^,]*?\bAUTOINCREMENT\b`)
}

// ParseDefault converts the default reported by the catalog, which is SQL source
// text, into the literal kept on the descriptor. A single-quoted string is
// unquoted, an unquoted NULL means no default, anything else is kept as written.
func ParseDefault(raw string) *string {
	v := strings.TrimSpace(raw)
	if v == "" || strings.EqualFold(v, "NULL") {
		return nil
	}
	if len(v) >= 2 && v[0] == '\'' && v[len(v)-1] == '\'' {
		v = strings.ReplaceAll(v[1:len(v)-1], "''", "'")
	}
	return &v
}

package browse

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"sqliteadmin/internal/core"
)

// ExportCSV writes up to limit rows of table as CSV with a header line. NULL is
// written as an empty field.
func (s *Service) ExportCSV(ctx context.Context, table string, limit int, w io.Writer) error {
	rs, err := s.Rows(ctx, table, limit)
	if err != nil {
		return err
	}
	if len(rs.Rows) == 0 {
		return core.NotFoundf("table %q has no rows to export", table)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(rs.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(rs.Columns))
	for _, row := range rs.Rows {
		for i, v := range row {
			record[i] = formatValue(v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportJSON writes up to limit rows of table as an indented JSON array of objects.
func (s *Service) ExportJSON(ctx context.Context, table string, limit int, w io.Writer) error {
	rs, err := s.Rows(ctx, table, limit)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rs.Maps())
}

// ImportCSV inserts every record of r into table. The first record names the
// columns. All rows go in one transaction; a failing row aborts the import.
func (s *Service) ImportCSV(ctx context.Context, table string, r io.Reader) (int, error) {
	if err := s.validate("table", table); err != nil {
		return 0, err
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return 0, core.Invalidf("csv input is empty")
	}
	if err != nil {
		return 0, core.Invalidf("read csv header: %v", err)
	}

	quoted := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if err := s.validate("column", h); err != nil {
			return 0, err
		}
		quoted[i] = s.gen.QuoteIdentifier(h)
	}
	cr.FieldsPerRecord = len(header)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, core.NewStorageError("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+s.gen.QuoteIdentifier(table)+
		" ("+strings.Join(quoted, ", ")+") VALUES ("+placeholders(len(header))+")")
	if err != nil {
		return 0, core.NewStorageError("import csv", err)
	}
	defer stmt.Close()

	n := 0
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, core.Invalidf("read csv line %d: %v", n+2, err)
		}
		args := make([]any, len(record))
		for i, v := range record {
			args[i] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, core.NewStorageError(fmt.Sprintf("import csv line %d", n+2), err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, core.NewStorageError("commit", err)
	}
	s.logger.Info("csv imported", "table", table, "rows", n)
	return n, nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

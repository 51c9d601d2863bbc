package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/neurovault/neurovault-server/internal/errors"
)

// exportableTables guards CSV export against arbitrary table names.
var exportableTables = map[string]struct{}{
	"patients":   {},
	"recordings": {},
	"segments":   {},
	"diagnoses":  {},
}

// ExportCSV streams a whole table as CSV: a header row of column names,
// then one row per record.
func (s *Store) ExportCSV(ctx context.Context, table string, w io.Writer) error {
	if _, ok := exportableTables[table]; !ok {
		return errors.NotFoundf("table %q is not exportable", table)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT * FROM "`+table+`"`)
	if err != nil {
		return fmt.Errorf("export %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	record := make([]string, len(cols))

	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		for i, v := range values {
			record[i] = renderValue(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

package store

import (
	"context"
	"fmt"

	"github.com/neurovault/neurovault-server/internal/errors"
)

// TableInfo describes one user table in the catalog.
type TableInfo struct {
	Name string
	Rows int64
}

// Tables lists the catalog's tables with their row counts.
func (s *Store) Tables(ctx context.Context) ([]TableInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []TableInfo
	for rows.Next() {
		var t TableInfo
		if err := rows.Scan(&t.Name); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tables {
		// Table names come from sqlite_master, not user input.
		row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "`+tables[i].Name+`"`)
		if err := row.Scan(&tables[i].Rows); err != nil {
			return nil, fmt.Errorf("count %s: %w", tables[i].Name, err)
		}
	}
	return tables, nil
}

// ResultSet is the outcome of an ad-hoc query: column names plus rows
// rendered as strings, NULL as an empty string.
type ResultSet struct {
	Columns []string
	Rows    [][]string
}

// Query runs an ad-hoc read-only SQL statement. The statement executes on
// a connection with query_only set, so any write it attempts fails inside
// SQLite regardless of how the statement is phrased; use Exec for writes.
func (s *Store) Query(ctx context.Context, query string) (*ResultSet, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `PRAGMA query_only = ON`); err != nil {
		return nil, fmt.Errorf("set query_only: %w", err)
	}
	// The connection goes back to the pool; writes must work there again.
	defer conn.ExecContext(context.WithoutCancel(ctx), `PRAGMA query_only = OFF`)

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Validationf("query failed: %v", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	rs := &ResultSet{Columns: cols}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = renderValue(v)
		}
		rs.Rows = append(rs.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Validationf("query failed: %v", err)
	}
	return rs, nil
}

// Exec runs an ad-hoc mutating SQL statement and returns the number of
// affected rows.
func (s *Store) Exec(ctx context.Context, stmt string) (int64, error) {
	res, err := s.db.ExecContext(ctx, stmt)
	if err != nil {
		return 0, errors.Validationf("statement failed: %v", err)
	}
	return res.RowsAffected()
}

func renderValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}

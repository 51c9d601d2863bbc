// Package main provides a small catalog inspection tool.
//
// Usage:
//
//	dbinspect -db ~/neurovault/catalog.db
//	dbinspect -db ~/neurovault/catalog.db -query "SELECT name FROM patients"
//	dbinspect -db ~/neurovault/catalog.db -exec "UPDATE recordings SET montage = NULL"
//	dbinspect -db ~/neurovault/catalog.db -export recordings > recordings.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/neurovault/neurovault-server/internal/store"
)

func main() {
	dbPath := flag.String("db", "", "Path to the SQLite catalog database")
	query := flag.String("query", "", "Read-only SQL statement to run")
	exec := flag.String("exec", "", "Mutating SQL statement to run")
	export := flag.String("export", "", "Table to export as CSV to stdout")
	flag.Parse()

	if *dbPath == "" {
		if env := os.Getenv("DB_PATH"); env != "" {
			*dbPath = env
		} else {
			fmt.Fprintln(os.Stderr, "dbinspect: -db or DB_PATH is required")
			os.Exit(1)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(*dbPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dbinspect: open catalog: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx := context.Background()

	switch {
	case *export != "":
		if err := st.ExportCSV(ctx, *export, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "dbinspect: export: %v\n", err)
			os.Exit(1)
		}

	case *exec != "":
		n, err := st.Exec(ctx, *exec)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dbinspect: exec: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "%d row(s) affected\n", n)

	case *query != "":
		result, err := st.Query(ctx, *query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dbinspect: query: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(strings.Join(result.Columns, "\t"))
		for _, row := range result.Rows {
			fmt.Println(strings.Join(row, "\t"))
		}
		fmt.Fprintf(os.Stderr, "%d row(s)\n", len(result.Rows))

	default:
		tables, err := st.Tables(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dbinspect: tables: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("=== Catalog Tables ===")
		for _, t := range tables {
			fmt.Printf("%-20s %d row(s)\n", t.Name, t.Rows)
		}
	}
}

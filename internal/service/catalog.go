package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/neurovault/neurovault-server/internal/store"
)

// CatalogService exposes read-mostly database introspection: table
// summaries, ad-hoc queries, and CSV export.
type CatalogService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(st *store.Store, logger *slog.Logger) *CatalogService {
	return &CatalogService{store: st, logger: logger}
}

// Tables returns every catalog table with its row count.
func (s *CatalogService) Tables(ctx context.Context) ([]store.TableInfo, error) {
	return s.store.Tables(ctx)
}

// Query runs a read-only SQL statement. Mutating statements are rejected.
func (s *CatalogService) Query(ctx context.Context, query string) (*store.ResultSet, error) {
	return s.store.Query(ctx, query)
}

// ExportCSV streams one table as CSV.
func (s *CatalogService) ExportCSV(ctx context.Context, table string, w io.Writer) error {
	return s.store.ExportCSV(ctx, table, w)
}

package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neurovault/neurovault-server/internal/errors"
)

func (s *Server) registerCatalogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listCatalogTables",
		Method:      http.MethodGet,
		Path:        "/api/v1/catalog/tables",
		Summary:     "List catalog tables",
		Description: "Returns every catalog table with its row count",
		Tags:        []string{"Catalog"},
	}, s.handleListCatalogTables)

	huma.Register(s.api, huma.Operation{
		OperationID: "queryCatalog",
		Method:      http.MethodPost,
		Path:        "/api/v1/catalog/query",
		Summary:     "Query catalog",
		Description: "Runs a read-only SQL statement against the catalog",
		Tags:        []string{"Catalog"},
	}, s.handleQueryCatalog)

	huma.Register(s.api, huma.Operation{
		OperationID: "exportCatalogTable",
		Method:      http.MethodGet,
		Path:        "/api/v1/catalog/tables/{table}/export",
		Summary:     "Export table as CSV",
		Tags:        []string{"Catalog"},
	}, s.handleExportCatalogTable)
}

// === DTOs ===

type TableInfoResponse struct {
	Name string `json:"name" doc:"Table name"`
	Rows int64  `json:"rows" doc:"Row count"`
}

type ListTablesOutput struct {
	Body struct {
		Tables []TableInfoResponse `json:"tables" doc:"Catalog tables"`
	}
}

type QueryCatalogInput struct {
	Body struct {
		Query string `json:"query" doc:"Read-only SQL statement"`
	}
}

type QueryCatalogOutput struct {
	Body struct {
		Columns []string   `json:"columns" doc:"Result column names"`
		Rows    [][]string `json:"rows" doc:"Result rows as strings"`
	}
}

type ExportTableInput struct {
	Table string `path:"table" doc:"Table name"`
}

// === Handlers ===

func (s *Server) handleListCatalogTables(ctx context.Context, _ *struct{}) (*ListTablesOutput, error) {
	tables, err := s.services.Catalog.Tables(ctx)
	if err != nil {
		return nil, err
	}

	out := &ListTablesOutput{}
	out.Body.Tables = make([]TableInfoResponse, len(tables))
	for i, t := range tables {
		out.Body.Tables[i] = TableInfoResponse{Name: t.Name, Rows: t.Rows}
	}
	return out, nil
}

func (s *Server) handleQueryCatalog(ctx context.Context, input *QueryCatalogInput) (*QueryCatalogOutput, error) {
	result, err := s.services.Catalog.Query(ctx, input.Body.Query)
	if err != nil {
		return nil, err
	}

	out := &QueryCatalogOutput{}
	out.Body.Columns = result.Columns
	out.Body.Rows = result.Rows
	return out, nil
}

func (s *Server) handleExportCatalogTable(ctx context.Context, input *ExportTableInput) (*huma.StreamResponse, error) {
	// Reject unknown tables before committing to a streaming response.
	tables, err := s.services.Catalog.Tables(ctx)
	if err != nil {
		return nil, err
	}
	known := false
	for _, t := range tables {
		if t.Name == input.Table {
			known = true
			break
		}
	}
	if !known {
		return nil, errors.NotFoundf("table %q not found", input.Table)
	}

	table := input.Table
	return &huma.StreamResponse{
		Body: func(hctx huma.Context) {
			hctx.SetHeader("Content-Type", "text/csv; charset=utf-8")
			hctx.SetHeader("Content-Disposition", `attachment; filename="`+table+`.csv"`)
			if err := s.services.Catalog.ExportCSV(hctx.Context(), table, hctx.BodyWriter()); err != nil {
				s.logger.Error("csv export failed", "table", table, "error", err)
			}
		},
	}, nil
}

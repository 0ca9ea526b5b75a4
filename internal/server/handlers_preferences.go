package server

import (
	"encoding/json"
	"net/http"
	"strings"
)

// PageSizeResponse is the saved page size of one table.
type PageSizeResponse struct {
	Table    string `json:"table"`
	PageSize int    `json:"pageSize"`
}

type pageSizeRequest struct {
	PageSize int `json:"pageSize"`
}

func (s *Server) handleListPageSizes(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.pageSizes.All(r.Context()))
}

// handleGetPageSize falls back to the default page size for tables with nothing saved.
func (s *Server) handleGetPageSize(w http.ResponseWriter, r *http.Request) {
	table := strings.TrimSpace(r.PathValue("table"))
	s.jsonResponse(w, http.StatusOK, PageSizeResponse{
		Table:    table,
		PageSize: s.pageSizes.Get(r.Context(), table, s.cfg.DefaultPageSize),
	})
}

func (s *Server) handleSetPageSize(w http.ResponseWriter, r *http.Request) {
	table := strings.TrimSpace(r.PathValue("table"))
	if table == "" {
		s.failure(w, r, &ErrValidation{Field: "table", Message: "is required"})
		return
	}

	var req pageSizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.failure(w, r, &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()})
		return
	}
	if req.PageSize < 1 {
		s.failure(w, r, &ErrValidation{Field: "pageSize", Message: "must be a positive integer"})
		return
	}

	if err := s.pageSizes.Set(r.Context(), table, req.PageSize); err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, PageSizeResponse{Table: table, PageSize: req.PageSize})
}

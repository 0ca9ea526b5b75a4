package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/jonathan/vr-training-admin/internal/apiclient"
	"github.com/jonathan/vr-training-admin/internal/evaluation"
	"github.com/jonathan/vr-training-admin/internal/grid"
	"github.com/jonathan/vr-training-admin/internal/schemas"
)

// table identities double as preference keys
const (
	tableEvaluations = "evaluations"
	tableTrainings   = "trainings"
)

var tableKinds = map[string]evaluation.Kind{
	tableEvaluations: evaluation.KindEvaluation,
	tableTrainings:   evaluation.KindTraining,
}

// ListResponse is one page of rows with the pagination it was fetched with.
type ListResponse struct {
	Data      []apiclient.EvaluationRow `json:"data"`
	Total     int                       `json:"total"`
	Page      int                       `json:"page"`
	Limit     int                       `json:"limit"`
	PageCount int                       `json:"pageCount"`
	Sort      map[string]int            `json:"sort"`
	Filters   []grid.ColumnFilter       `json:"filters,omitempty"`
}

// BulkArchiveResponse reports how many records were archived.
type BulkArchiveResponse struct {
	Type     string `json:"type"`
	Archived int    `json:"archived"`
}

// handleList proxies a list endpoint. Query: page (1-based), limit, sort (JSON
// object), filters (JSON array). limit defaults to the table's saved page size.
func (s *Server) handleList(table string) http.HandlerFunc {
	kind := tableKinds[table]
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := s.queryState(r, table)
		if err != nil {
			s.failure(w, r, err)
			return
		}
		params := state.Params()

		page, err := s.client(r).List(r.Context(), kind, params)
		if err != nil {
			s.failure(w, r, err)
			return
		}

		s.jsonResponse(w, http.StatusOK, ListResponse{
			Data:      page.Data,
			Total:     page.Total,
			Page:      params.PageIndex,
			Limit:     params.PageSize,
			PageCount: grid.PageCount(page.Total, params.PageSize),
			Sort:      params.Sorting,
			Filters:   params.Filters,
		})
	}
}

// queryState reads the grid state of a list request.
func (s *Server) queryState(r *http.Request, table string) (grid.QueryState, error) {
	q := r.URL.Query()
	state := grid.QueryState{}

	page := 1
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return state, &ErrValidation{Field: "page", Message: "must be a positive integer"}
		}
		page = n
	}
	state.PageIndex = page - 1

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return state, &ErrValidation{Field: "limit", Message: "must be a positive integer"}
		}
		state.PageSize = n
	} else {
		state.PageSize = grid.Initialize(r.Context(), s.pageSizes, table, s.cfg.DefaultPageSize)
	}

	if v := strings.TrimSpace(q.Get("sort")); v != "" {
		var sorting map[string]int
		if err := json.Unmarshal([]byte(v), &sorting); err != nil {
			return state, &ErrValidation{Field: "sort", Message: "must be a JSON object of field to 1 or -1"}
		}
		state.Sorting = grid.ParseSorting(sorting)
	}

	if v := strings.TrimSpace(q.Get("filters")); v != "" {
		invalid := &ErrValidation{Field: "filters", Message: "must be a JSON array of {id, value}"}
		if err := schemas.Validate(schemas.ColumnFilters, []byte(v)); err != nil {
			return state, invalid
		}
		var filters []grid.ColumnFilter
		if err := json.Unmarshal([]byte(v), &filters); err != nil {
			return state, invalid
		}
		state.ColumnFilters = filters
	}
	return state, nil
}

// handleResult returns the normalized result of one evaluation or training.
func (s *Server) handleResult(table string) http.HandlerFunc {
	kind := tableKinds[table]
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := s.client(r).Get(r.Context(), kind, r.PathValue("id"))
		if err != nil {
			s.failure(w, r, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, evaluation.Normalize(doc))
	}
}

// handleArchive soft-deletes one record.
func (s *Server) handleArchive(table string) http.HandlerFunc {
	kind := tableKinds[table]
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.permissions(r).Has(grid.BulkArchive.Permission) {
			s.failure(w, r, &ErrForbidden{Permission: grid.BulkArchive.Permission})
			return
		}

		id := r.PathValue("id")
		if err := s.client(r).Archive(r.Context(), kind, id); err != nil {
			s.failure(w, r, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, map[string]string{"id": id, "status": "archived"})
	}
}

// handleBulkArchive soft-deletes the selected records. Body: {type, data: [ids]}.
func (s *Server) handleBulkArchive(w http.ResponseWriter, r *http.Request) {
	var req apiclient.BulkArchiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.failure(w, r, &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()})
		return
	}

	api := s.client(r)
	if err := api.ValidateBulkArchive(req); err != nil {
		s.failure(w, r, err)
		return
	}

	selection := grid.RowSelection{}
	for _, id := range req.Data {
		selection.Set(id, true)
	}
	if !grid.BulkArchive.Enabled(selection, s.permissions(r)) {
		s.failure(w, r, &ErrForbidden{Permission: grid.BulkArchive.Permission})
		return
	}

	req.Data = selection.Selected()
	if err := api.BulkArchive(r.Context(), req); err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, BulkArchiveResponse{Type: req.Type, Archived: len(req.Data)})
}

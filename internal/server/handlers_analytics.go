package server

import (
	"net/http"
	"time"

	"github.com/jonathan/vr-training-admin/internal/analytics"
	"github.com/jonathan/vr-training-admin/internal/evaluation"
)

// handleAnalyticsSummary compares two periods. Query: from, to, prevFrom, prevTo
// (RFC 3339 or YYYY-MM-DD) and table (evaluations or trainings). Without prevFrom
// and prevTo the previous period is the equally long span ending at from.
func (s *Server) handleAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	kind := evaluation.KindEvaluation
	if table := q.Get("table"); table != "" {
		k, ok := tableKinds[table]
		if !ok {
			s.failure(w, r, &ErrValidation{Field: "table", Message: "must be evaluations or trainings"})
			return
		}
		kind = k
	}

	var bounds [4]*time.Time
	for i, name := range []string{"from", "to", "prevFrom", "prevTo"} {
		t, err := analytics.ParseDate(q.Get(name))
		if err != nil {
			s.failure(w, r, &ErrValidation{Field: name, Message: "must be a date (YYYY-MM-DD) or RFC 3339 time"})
			return
		}
		bounds[i] = t
	}

	current := analytics.Period{From: bounds[0], To: bounds[1]}
	previous := analytics.Period{From: bounds[2], To: bounds[3]}
	if previous.From == nil && previous.To == nil {
		previous = analytics.PreviousPeriod(current)
	}

	report, err := analytics.ComparePeriods(r.Context(), s.client(r), kind, current, previous, 100)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, report)
}

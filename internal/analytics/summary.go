package analytics

import (
	"sort"
	"time"

	"github.com/jonathan/vr-training-admin/internal/apiclient"
	"github.com/jonathan/vr-training-admin/internal/evaluation"
)

// Summary aggregates one period of evaluation or training rows.
type Summary struct {
	Total     int                       `json:"total"`
	Passed    int                       `json:"passed"`
	Failed    int                       `json:"failed"`
	Pending   int                       `json:"pending"`
	Ongoing   int                       `json:"ongoing"`
	Completed int                       `json:"completed"`
	ByMode    map[evaluation.Mode]int   `json:"byMode"`
	ByStatus  map[evaluation.Status]int `json:"byStatus"`
	PassRate  float64                   `json:"passRate"`
}

// Metric compares one figure across two periods.
type Metric struct {
	Name     string  `json:"name"`
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
	Change   float64 `json:"change"`
}

// Period is a half-open time range [From, To). A nil bound is open.
type Period struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// Unbounded reports whether p has neither bound.
func (p Period) Unbounded() bool {
	return p.From == nil && p.To == nil
}

// Contains reports whether t falls inside p.
func (p Period) Contains(t time.Time) bool {
	if p.From != nil && t.Before(*p.From) {
		return false
	}
	if p.To != nil && !t.Before(*p.To) {
		return false
	}
	return true
}

// Summarize counts rows by status and mode. PassRate is the share of decided
// attempts (pass or fail) that passed, in percent.
func Summarize(rows []apiclient.EvaluationRow) Summary {
	s := Summary{
		ByMode:   map[evaluation.Mode]int{},
		ByStatus: map[evaluation.Status]int{},
	}
	for _, row := range rows {
		s.Total++
		s.ByStatus[row.Status]++
		if row.Mode != "" {
			s.ByMode[row.Mode]++
		}

		switch row.Status {
		case evaluation.StatusPass:
			s.Passed++
		case evaluation.StatusFail:
			s.Failed++
		case evaluation.StatusPending:
			s.Pending++
		case evaluation.StatusOngoing:
			s.Ongoing++
		case evaluation.StatusCompleted:
			s.Completed++
		}
	}

	if decided := s.Passed + s.Failed; decided > 0 {
		s.PassRate = float64(s.Passed) / float64(decided) * 100
	}
	return s
}

// Compare lines up the figures of two summaries. Per-mode counts follow the
// fixed figures, ordered by mode name.
func Compare(current, previous Summary) []Metric {
	metrics := []Metric{
		metric("total", float64(current.Total), float64(previous.Total)),
		metric("passed", float64(current.Passed), float64(previous.Passed)),
		metric("failed", float64(current.Failed), float64(previous.Failed)),
		metric("pending", float64(current.Pending), float64(previous.Pending)),
		metric("ongoing", float64(current.Ongoing), float64(previous.Ongoing)),
		metric("completed", float64(current.Completed), float64(previous.Completed)),
		metric("passRate", current.PassRate, previous.PassRate),
	}

	modes := map[evaluation.Mode]bool{}
	for m := range current.ByMode {
		modes[m] = true
	}
	for m := range previous.ByMode {
		modes[m] = true
	}
	names := make([]string, 0, len(modes))
	for m := range modes {
		names = append(names, string(m))
	}
	sort.Strings(names)

	for _, name := range names {
		m := evaluation.Mode(name)
		metrics = append(metrics, metric("mode."+name, float64(current.ByMode[m]), float64(previous.ByMode[m])))
	}
	return metrics
}

// Filter keeps the rows whose start time lies in p, falling back to the end and then
// the creation time.
// Rows with none of them are kept only when p is fully open.
func Filter(rows []apiclient.EvaluationRow, p Period) []apiclient.EvaluationRow {
	out := make([]apiclient.EvaluationRow, 0, len(rows))
	for _, row := range rows {
		at := row.StartTime
		if at == nil {
			at = row.EndTime
		}
		if at == nil {
			at = row.CreatedAt
		}
		if at == nil {
			if p.From == nil && p.To == nil {
				out = append(out, row)
			}
			continue
		}
		if p.Contains(*at) {
			out = append(out, row)
		}
	}
	return out
}

func metric(name string, current, previous float64) Metric {
	return Metric{
		Name:     name,
		Current:  current,
		Previous: previous,
		Change:   PercentageChange(previous, current),
	}
}

package analytics

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/vr-training-admin/internal/apiclient"
	"github.com/jonathan/vr-training-admin/internal/evaluation"
	"github.com/jonathan/vr-training-admin/internal/grid"
)

// DateColumn is the column the period filter is sent for.
const DateColumn = "createdAt"

// maxPages bounds how many pages Collect reads for one period.
const maxPages = 100

// Lister fetches one page of rows.
type Lister interface {
	List(ctx context.Context, kind evaluation.Kind, params grid.Params) (*apiclient.Page, error)
}

// Report is a two-period comparison. Previous and Metrics are nil when there
// is no previous period to compare against.
type Report struct {
	Kind     evaluation.Kind `json:"kind"`
	Current  Summary         `json:"current"`
	Previous *Summary        `json:"previous,omitempty"`
	Metrics  []Metric        `json:"metrics,omitempty"`
}

// Collect reads every row of kind inside p, page by page. The period is sent as a
// date-range filter and applied again locally.
func Collect(ctx context.Context, l Lister, kind evaluation.Kind, p Period, pageSize int) ([]apiclient.EvaluationRow, error) {
	if pageSize <= 0 {
		pageSize = 100
	}

	state := grid.QueryState{PageSize: pageSize}
	if p.From != nil || p.To != nil {
		state.ColumnFilters = []grid.ColumnFilter{{ID: DateColumn, Value: grid.NewDateRange(p.From, p.To)}}
	}

	var rows []apiclient.EvaluationRow
	for state.PageIndex = 0; state.PageIndex < maxPages; state.PageIndex++ {
		page, err := l.List(ctx, kind, state.Params())
		if err != nil {
			return nil, fmt.Errorf("failed to list %s page %d: %w", kind, state.PageIndex+1, err)
		}
		rows = append(rows, page.Data...)
		if len(page.Data) == 0 || state.PageIndex+1 >= grid.PageCount(page.Total, pageSize) {
			break
		}
	}
	return Filter(rows, p), nil
}

// ComparePeriods collects both periods concurrently and compares their summaries.
// An unbounded previous period is not fetched and the report carries only the
// current summary.
func ComparePeriods(ctx context.Context, l Lister, kind evaluation.Kind, current, previous Period, pageSize int) (*Report, error) {
	var cur, prev []apiclient.EvaluationRow
	compare := !previous.Unbounded()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := Collect(gctx, l, kind, current, pageSize)
		cur = rows
		return err
	})
	if compare {
		g.Go(func() error {
			rows, err := Collect(gctx, l, kind, previous, pageSize)
			prev = rows
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{
		Kind:    kind,
		Current: Summarize(cur),
	}
	if compare {
		summary := Summarize(prev)
		report.Previous = &summary
		report.Metrics = Compare(report.Current, summary)
	}
	return report, nil
}

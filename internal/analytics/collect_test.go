package analytics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/vr-training-admin/internal/apiclient"
	"github.com/jonathan/vr-training-admin/internal/evaluation"
	"github.com/jonathan/vr-training-admin/internal/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLister serves rows from memory and records every call.
type fakeLister struct {
	mu    sync.Mutex
	rows  []apiclient.EvaluationRow
	calls []grid.Params
	err   error
}

func (f *fakeLister) List(_ context.Context, _ evaluation.Kind, params grid.Params) (*apiclient.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}

	start := (params.PageIndex - 1) * params.PageSize
	end := min(start+params.PageSize, len(f.rows))
	if start >= len(f.rows) {
		return &apiclient.Page{Total: len(f.rows)}, nil
	}
	return &apiclient.Page{Data: f.rows[start:end], Total: len(f.rows)}, nil
}

func day(d int) *time.Time {
	v := time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC)
	return &v
}

func TestCollect_ReadsAllPages(t *testing.T) {
	lister := &fakeLister{}
	for i := 0; i < 25; i++ {
		lister.rows = append(lister.rows, apiclient.EvaluationRow{ID: fmt.Sprint(i), StartTime: day(1 + i%10)})
	}

	rows, err := Collect(context.Background(), lister, evaluation.KindEvaluation, Period{}, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 25)
	require.Len(t, lister.calls, 3)
	assert.Equal(t, 1, lister.calls[0].PageIndex)
	assert.Equal(t, 3, lister.calls[2].PageIndex)
	assert.Empty(t, lister.calls[0].Filters)
}

func TestCollect_SendsDateFilterAndFiltersLocally(t *testing.T) {
	lister := &fakeLister{rows: []apiclient.EvaluationRow{
		{ID: "in", StartTime: day(3)},
		{ID: "out", StartTime: day(20)},
	}}

	rows, err := Collect(context.Background(), lister, evaluation.KindTraining, Period{From: day(1), To: day(10)}, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "in", rows[0].ID)

	require.Len(t, lister.calls, 1)
	assert.Equal(t, 100, lister.calls[0].PageSize)
	require.Len(t, lister.calls[0].Filters, 1)
	assert.Equal(t, DateColumn, lister.calls[0].Filters[0].ID)
	assert.Equal(t, grid.NewDateRange(day(1), day(10)), lister.calls[0].Filters[0].Value)
}

func TestComparePeriods(t *testing.T) {
	lister := &fakeLister{rows: []apiclient.EvaluationRow{
		{ID: "a", StartTime: day(2), Status: evaluation.StatusPass},
		{ID: "b", StartTime: day(3), Status: evaluation.StatusPass},
		{ID: "c", StartTime: day(12), Status: evaluation.StatusPass},
	}}

	report, err := ComparePeriods(context.Background(), lister, evaluation.KindEvaluation,
		Period{From: day(1), To: day(10)}, Period{From: day(10), To: day(20)}, 50)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Current.Total)
	require.NotNil(t, report.Previous)
	assert.Equal(t, 1, report.Previous.Total)
	assert.Equal(t, Metric{Name: "total", Current: 2, Previous: 1, Change: 100}, report.Metrics[0])
}

func TestComparePeriods_Error(t *testing.T) {
	lister := &fakeLister{err: errors.New("upstream down")}

	_, err := ComparePeriods(context.Background(), lister, evaluation.KindEvaluation, Period{}, Period{}, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream down")
}

func TestComparePeriods_WithoutPreviousPeriod(t *testing.T) {
	rows := []apiclient.EvaluationRow{
		{ID: "a", StartTime: day(2), Status: evaluation.StatusPass},
		{ID: "b", StartTime: day(12), Status: evaluation.StatusFail},
	}

	tests := []struct {
		name    string
		current Period
		total   int
	}{
		{name: "open start", current: Period{To: day(10)}, total: 1},
		{name: "open end", current: Period{From: day(10)}, total: 1},
		{name: "all time", current: Period{}, total: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := &fakeLister{rows: rows}

			report, err := ComparePeriods(context.Background(), lister, evaluation.KindEvaluation,
				tt.current, PreviousPeriod(tt.current), 50)
			require.NoError(t, err)

			assert.Equal(t, tt.total, report.Current.Total)
			assert.Nil(t, report.Previous)
			assert.Nil(t, report.Metrics)
			assert.Len(t, lister.calls, 1)
		})
	}
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/vr-training-admin/internal/analytics"
	"github.com/jonathan/vr-training-admin/internal/grid"
	"github.com/jonathan/vr-training-admin/internal/prefs"
	"github.com/spf13/cobra"
)

// listOptions are the grid flags shared by list and browse.
type listOptions struct {
	page    int
	limit   int
	sort    string
	filters []string
	from    string
	to      string
}

func (o *listOptions) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&o.page, "page", 1, "Page number, starting at 1")
	cmd.Flags().IntVar(&o.limit, "limit", 0, "Rows per page (default: the table's saved page size)")
	cmd.Flags().StringVar(&o.sort, "sort", "", "Sort column, e.g. createdAt:desc")
	cmd.Flags().StringArrayVar(&o.filters, "filter", nil, "Column filter col=v1,v2 (repeatable)")
	cmd.Flags().StringVar(&o.from, "from", "", "Only records created on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&o.to, "to", "", "Only records created before this date (YYYY-MM-DD)")
}

// state builds the grid state for table. A zero limit uses the saved page size.
func (o *listOptions) state(ctx context.Context, pageSizes *prefs.PageSizes, table string, def int) (grid.QueryState, error) {
	if o.page < 1 {
		return grid.QueryState{}, fmt.Errorf("--page must be 1 or greater, got %d", o.page)
	}
	if o.limit < 0 {
		return grid.QueryState{}, fmt.Errorf("--limit must be positive, got %d", o.limit)
	}

	sorting, err := parseSort(o.sort)
	if err != nil {
		return grid.QueryState{}, err
	}
	filters, err := parseFilters(o.filters)
	if err != nil {
		return grid.QueryState{}, err
	}
	if dates, err := dateFilter(o.from, o.to); err != nil {
		return grid.QueryState{}, err
	} else if dates != nil {
		filters = append(filters, *dates)
	}

	size := o.limit
	if size == 0 {
		size = grid.Initialize(ctx, pageSizes, table, def)
	}
	return grid.QueryState{
		PageIndex:     o.page - 1,
		PageSize:      size,
		Sorting:       sorting,
		ColumnFilters: filters,
	}, nil
}

// parseSort parses "field", "field:asc" or "field:desc". Empty input means unsorted.
func parseSort(v string) ([]grid.SortState, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}

	field, dir, _ := strings.Cut(v, ":")
	field = strings.TrimSpace(field)
	if field == "" {
		return nil, fmt.Errorf("invalid sort %q: missing column", v)
	}

	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "", "asc":
		return []grid.SortState{{ID: field}}, nil
	case "desc":
		return []grid.SortState{{ID: field, Desc: true}}, nil
	default:
		return nil, fmt.Errorf("invalid sort direction %q: want asc or desc", dir)
	}
}

// parseFilters parses col=value or col=v1,v2 flags. A single value filters a
// scalar column; several values filter a multi-select column. An empty value
// drops the column, and a later flag for the same column replaces an earlier one.
func parseFilters(values []string) ([]grid.ColumnFilter, error) {
	var filters []grid.ColumnFilter
	for _, v := range values {
		f, err := parseFilter(v)
		if err != nil {
			return nil, err
		}

		kept := filters[:0]
		for _, existing := range filters {
			if existing.ID != f.ID {
				kept = append(kept, existing)
			}
		}
		filters = kept
		if f.Value != nil {
			filters = append(filters, f)
		}
	}
	return filters, nil
}

func parseFilter(v string) (grid.ColumnFilter, error) {
	col, raw, ok := strings.Cut(v, "=")
	col = strings.TrimSpace(col)
	if !ok || col == "" {
		return grid.ColumnFilter{}, fmt.Errorf("invalid filter %q: want col=value", v)
	}

	var vals []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			vals = append(vals, part)
		}
	}

	switch len(vals) {
	case 0:
		return grid.ColumnFilter{ID: col}, nil
	case 1:
		return grid.ColumnFilter{ID: col, Value: vals[0]}, nil
	default:
		return grid.ColumnFilter{ID: col, Value: vals}, nil
	}
}

// dateFilter builds the created-at range filter, or nil when both bounds are open.
func dateFilter(from, to string) (*grid.ColumnFilter, error) {
	p, err := analytics.ParsePeriod(from, to)
	if err != nil {
		return nil, err
	}
	if p.From == nil && p.To == nil {
		return nil, nil
	}
	return &grid.ColumnFilter{ID: analytics.DateColumn, Value: grid.NewDateRange(p.From, p.To)}, nil
}

// Package grid keeps pagination, sorting and column-filter state for one table and
// turns user-driven changes into server query parameters.
package grid

import (
	"encoding/json"
	"net/url"
	"reflect"
	"strconv"
	"time"
)

// DefaultPageSize is used when neither the caller nor the persisted preferences supply one.
const DefaultPageSize = 10

// SortState is a single sort descriptor as tracked by the table.
type SortState struct {
	ID   string `json:"id"`
	Desc bool   `json:"desc"`
}

// ColumnFilter filters one column. Value is a scalar, a list for multi-select
// columns, or a DateRange for date columns.
type ColumnFilter struct {
	ID    string `json:"id"`
	Value any    `json:"value"`
}

// DateRange is a two-element [from, to] filter value. Either side may be open.
type DateRange [2]*time.Time

// NewDateRange builds a range from optional bounds.
func NewDateRange(from, to *time.Time) DateRange {
	return DateRange{from, to}
}

// QueryState is the current view into a paginated, filtered, sorted collection.
// PageIndex is zero-based.
type QueryState struct {
	PageIndex     int            `json:"pageIndex"`
	PageSize      int            `json:"pageSize"`
	Sorting       []SortState    `json:"sorting,omitempty"`
	ColumnFilters []ColumnFilter `json:"columnFilters,omitempty"`
}

// Params are the server-facing parameters derived from a QueryState.
// PageIndex is one-based.
type Params struct {
	PageIndex int            `json:"page"`
	PageSize  int            `json:"limit"`
	Sorting   map[string]int `json:"sort"`
	Filters   []ColumnFilter `json:"filters,omitempty"`
}

// Params converts the state into server parameters.
func (s QueryState) Params() Params {
	return Params{
		PageIndex: s.PageIndex + 1,
		PageSize:  s.PageSize,
		Sorting:   FormatSorting(s.Sorting),
		Filters:   CompactFilters(s.ColumnFilters),
	}
}

// Clone returns a deep copy of the slices held by s.
func (s QueryState) Clone() QueryState {
	out := s
	if s.Sorting != nil {
		out.Sorting = append([]SortState(nil), s.Sorting...)
	}
	if s.ColumnFilters != nil {
		out.ColumnFilters = append([]ColumnFilter(nil), s.ColumnFilters...)
	}
	return out
}

// normalize enforces PageIndex >= 0 and PageSize > 0 against the previous state.
// A page-size change always returns to the first page.
func (s QueryState) normalize(prev QueryState) QueryState {
	if s.PageSize <= 0 {
		s.PageSize = prev.PageSize
	}
	if s.PageSize <= 0 {
		s.PageSize = DefaultPageSize
	}
	if s.PageIndex < 0 {
		s.PageIndex = 0
	}
	if prev.PageSize > 0 && s.PageSize != prev.PageSize {
		s.PageIndex = 0
	}
	return s
}

// Query encodes the params the way the list endpoints expect: page and limit as
// integers, sort as a JSON object and filters as a JSON array. Empty filters are omitted.
func (p Params) Query() url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(p.PageIndex))
	q.Set("limit", strconv.Itoa(p.PageSize))

	sorting := p.Sorting
	if sorting == nil {
		sorting = map[string]int{}
	}
	if data, err := json.Marshal(sorting); err == nil {
		q.Set("sort", string(data))
	}

	if filters := CompactFilters(p.Filters); len(filters) > 0 {
		if data, err := json.Marshal(filters); err == nil {
			q.Set("filters", string(data))
		}
	}
	return q
}

// PageCount returns how many pages of pageSize cover total rows.
func PageCount(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// IsFilterEmpty reports whether there is nothing to clear: no filters, or every
// filter value has zero length.
func IsFilterEmpty(filters []ColumnFilter) bool {
	for _, f := range filters {
		if valueLen(f.Value) != 0 {
			return false
		}
	}
	return true
}

// CompactFilters drops filters whose value is empty so they are never sent as empty arrays.
func CompactFilters(filters []ColumnFilter) []ColumnFilter {
	var out []ColumnFilter
	for _, f := range filters {
		if f.ID == "" || valueLen(f.Value) == 0 {
			continue
		}
		out = append(out, f)
	}
	return out
}

// valueLen returns the length of strings and collections, and -1 for values without
// a length (numbers, booleans), which always count as set.
func valueLen(v any) int {
	switch val := v.(type) {
	case nil:
		return 0
	case string:
		return len(val)
	case DateRange:
		n := 0
		for _, t := range val {
			if t != nil {
				n++
			}
		}
		return n
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return rv.Len()
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return 0
		}
		return valueLen(rv.Elem().Interface())
	default:
		return -1
	}
}

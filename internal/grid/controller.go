package grid

import (
	"context"
	"sync"

	"github.com/jonathan/vr-training-admin/internal/prefs"
	"github.com/rs/zerolog"
)

// Phase tracks whether the controller has seen its mount render.
type Phase int

const (
	// PhaseUninitialized means the initial state has not been delivered yet.
	PhaseUninitialized Phase = iota
	// PhaseReady means every state change is user driven and triggers a refetch.
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseReady:
		return "ready"
	default:
		return "unknown"
	}
}

// ParamsFunc is called with the new server parameters after a user-driven change.
type ParamsFunc func(Params)

// Options configures a Controller.
type Options struct {
	// Table identifies the grid for persisted preferences, e.g. "trainings".
	Table           string
	DefaultPageSize int
	PageSizes       *prefs.PageSizes
	OnParamsChange  ParamsFunc
	InitialSorting  []SortState
	InitialFilters  []ColumnFilter
	Logger          zerolog.Logger
}

// Controller owns the query state of one table instance.
type Controller struct {
	mu        sync.Mutex
	table     string
	pageSizes *prefs.PageSizes
	onChange  ParamsFunc
	log       zerolog.Logger
	phase     Phase
	state     QueryState
}

// Initialize returns the persisted page size for table, or def when none is stored.
// It never fails; unreadable preferences fall back to def.
func Initialize(ctx context.Context, pageSizes *prefs.PageSizes, table string, def int) int {
	if def <= 0 {
		def = DefaultPageSize
	}
	if pageSizes == nil {
		return def
	}
	return pageSizes.Get(ctx, table, def)
}

// NewController builds a controller for opts.Table with its initial state.
func NewController(ctx context.Context, opts Options) *Controller {
	return &Controller{
		table:     opts.Table,
		pageSizes: opts.PageSizes,
		onChange:  opts.OnParamsChange,
		log:       opts.Logger.With().Str("table", opts.Table).Logger(),
		phase:     PhaseUninitialized,
		state: QueryState{
			PageIndex:     0,
			PageSize:      Initialize(ctx, opts.PageSizes, opts.Table, opts.DefaultPageSize),
			Sorting:       append([]SortState(nil), opts.InitialSorting...),
			ColumnFilters: append([]ColumnFilter(nil), opts.InitialFilters...),
		},
	}
}

// Table returns the table identity.
func (c *Controller) Table() string {
	return c.table
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// State returns a copy of the current state.
func (c *Controller) State() QueryState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Params returns the server parameters for the current state.
func (c *Controller) Params() Params {
	return c.State().Params()
}

// Mount delivers the initial state. It never triggers a refetch.
func (c *Controller) Mount(ctx context.Context) {
	c.OnStateChange(ctx, c.State())
}

// OnStateChange applies next. The first call after construction is the mount render
// and is suppressed; every later call forwards the params to the callback and
// persists the page size. It reports the params and whether the callback fired.
func (c *Controller) OnStateChange(ctx context.Context, next QueryState) (Params, bool) {
	c.mu.Lock()
	next = next.Clone().normalize(c.state)
	c.state = next
	params := next.Params()

	if c.phase == PhaseUninitialized {
		c.phase = PhaseReady
		c.mu.Unlock()
		c.log.Debug().Int("pageSize", next.PageSize).Msg("grid mounted")
		return params, false
	}
	onChange := c.onChange
	c.mu.Unlock()

	if onChange != nil {
		onChange(params)
	}

	if c.pageSizes != nil {
		// best effort: a failed write only loses the preference
		if err := c.pageSizes.Set(ctx, c.table, next.PageSize); err != nil {
			c.log.Debug().Err(err).Msg("page size not persisted")
		}
	}
	return params, true
}

// mountedState returns the current state, completing the mount render first so
// a change made before Mount is delivered instead of being taken for it.
func (c *Controller) mountedState() QueryState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseUninitialized {
		c.phase = PhaseReady
		c.log.Debug().Int("pageSize", c.state.PageSize).Msg("grid mounted")
	}
	return c.state.Clone()
}

// SetPageIndex moves to the zero-based page index.
func (c *Controller) SetPageIndex(ctx context.Context, index int) (Params, bool) {
	s := c.mountedState()
	s.PageIndex = index
	return c.OnStateChange(ctx, s)
}

// NextPage moves forward one page.
func (c *Controller) NextPage(ctx context.Context) (Params, bool) {
	s := c.mountedState()
	s.PageIndex++
	return c.OnStateChange(ctx, s)
}

// PrevPage moves back one page, staying on the first page.
func (c *Controller) PrevPage(ctx context.Context) (Params, bool) {
	s := c.mountedState()
	if s.PageIndex > 0 {
		s.PageIndex--
	}
	return c.OnStateChange(ctx, s)
}

// SetPageSize changes the page size and returns to the first page.
func (c *Controller) SetPageSize(ctx context.Context, size int) (Params, bool) {
	s := c.mountedState()
	s.PageSize = size
	return c.OnStateChange(ctx, s)
}

// SetSorting replaces the sort. Only one column is sorted at a time; pass nothing to clear.
func (c *Controller) SetSorting(ctx context.Context, sorting ...SortState) (Params, bool) {
	s := c.mountedState()
	s.Sorting = nil
	if len(sorting) > 0 && sorting[0].ID != "" {
		s.Sorting = []SortState{sorting[0]}
	}
	return c.OnStateChange(ctx, s)
}

// SetFilter sets or replaces the filter for column id. An empty value removes it.
// Filtering returns to the first page.
func (c *Controller) SetFilter(ctx context.Context, id string, value any) (Params, bool) {
	s := c.mountedState()
	filters := make([]ColumnFilter, 0, len(s.ColumnFilters)+1)
	replaced := false
	for _, f := range s.ColumnFilters {
		if f.ID != id {
			filters = append(filters, f)
			continue
		}
		replaced = true
		if valueLen(value) != 0 {
			filters = append(filters, ColumnFilter{ID: id, Value: value})
		}
	}
	if !replaced && valueLen(value) != 0 {
		filters = append(filters, ColumnFilter{ID: id, Value: value})
	}
	s.ColumnFilters = filters
	s.PageIndex = 0
	return c.OnStateChange(ctx, s)
}

// SetFilters replaces every column filter at once and returns to the first page.
func (c *Controller) SetFilters(ctx context.Context, filters []ColumnFilter) (Params, bool) {
	s := c.mountedState()
	s.ColumnFilters = append([]ColumnFilter(nil), filters...)
	s.PageIndex = 0
	return c.OnStateChange(ctx, s)
}

// ClearFilters removes every column filter.
func (c *Controller) ClearFilters(ctx context.Context) (Params, bool) {
	s := c.mountedState()
	s.ColumnFilters = nil
	s.PageIndex = 0
	return c.OnStateChange(ctx, s)
}

// CanClearFilters reports whether a "clear filters" affordance should be shown.
func (c *Controller) CanClearFilters() bool {
	return !IsFilterEmpty(c.State().ColumnFilters)
}

package prefs

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/jonathan/vr-training-admin/internal/schemas"
	"github.com/rs/zerolog"
)

// PageSizesKey is the single key holding every table's page size.
const PageSizesKey = "tablePageSizes"

// PageSizes reads and writes the persisted {tableIdentity: pageSize} mapping.
// The whole mapping is read, modified and written back on each Set. Concurrent
// writers for the same store race and the last write wins.
type PageSizes struct {
	store Store
	log   zerolog.Logger
}

// NewPageSizes wraps store. A nil store behaves like an empty memory store.
func NewPageSizes(store Store, log zerolog.Logger) *PageSizes {
	if store == nil {
		store = NewMemoryStore()
	}
	return &PageSizes{store: store, log: log}
}

// Get returns the persisted page size for table, or def when none is stored.
// Storage failures and corrupted data fall back to def.
func (p *PageSizes) Get(ctx context.Context, table string, def int) int {
	if size, ok := p.load(ctx)[table]; ok && size > 0 {
		return size
	}
	return def
}

// All returns a copy of the full mapping. Corrupted data yields an empty map.
func (p *PageSizes) All(ctx context.Context) map[string]int {
	return p.load(ctx)
}

// Tables returns the table identities with a stored page size, sorted.
func (p *PageSizes) Tables(ctx context.Context) []string {
	all := p.load(ctx)
	tables := make([]string, 0, len(all))
	for t := range all {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	return tables
}

// Set stores size for table, leaving other tables untouched.
func (p *PageSizes) Set(ctx context.Context, table string, size int) error {
	if size <= 0 || table == "" {
		return nil
	}

	all := p.load(ctx)
	if all[table] == size {
		return nil
	}
	all[table] = size

	data, err := json.Marshal(all)
	if err != nil {
		return err
	}
	if err := p.store.Set(ctx, PageSizesKey, data); err != nil {
		p.log.Debug().Err(err).Str("table", table).Msg("failed to persist page size")
		return err
	}
	return nil
}

func (p *PageSizes) load(ctx context.Context) map[string]int {
	empty := make(map[string]int)

	data, err := p.store.Get(ctx, PageSizesKey)
	if err != nil {
		p.log.Debug().Err(err).Msg("failed to read page sizes, using defaults")
		return empty
	}
	if len(data) == 0 {
		return empty
	}

	if err := schemas.Validate(schemas.PageSizes, data); err != nil {
		p.log.Debug().Err(err).Msg("ignoring invalid page sizes")
		return empty
	}

	all := make(map[string]int)
	if err := json.Unmarshal(data, &all); err != nil {
		return empty
	}
	return all
}

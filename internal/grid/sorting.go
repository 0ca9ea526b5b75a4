package grid

import (
	"sort"
	"strings"
)

// Sort directions understood by the server.
const (
	Ascending  = 1
	Descending = -1
)

// FormatSorting converts the table's sort state into {field: direction}. Only the
// first entry is used; field names are lowercased. No sort yields an empty, non-nil map.
func FormatSorting(sorting []SortState) map[string]int {
	out := map[string]int{}
	if len(sorting) == 0 || sorting[0].ID == "" {
		return out
	}

	dir := Ascending
	if sorting[0].Desc {
		dir = Descending
	}
	out[strings.ToLower(sorting[0].ID)] = dir
	return out
}

// ParseSorting is the inverse of FormatSorting. With several keys the
// alphabetically first one wins.
func ParseSorting(sorting map[string]int) []SortState {
	if len(sorting) == 0 {
		return nil
	}

	keys := make([]string, 0, len(sorting))
	for k := range sorting {
		if k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)

	return []SortState{{ID: keys[0], Desc: sorting[keys[0]] < 0}}
}

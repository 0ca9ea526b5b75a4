package grid

import "sort"

// RowSelection maps row IDs to their selected flag.
type RowSelection map[string]bool

// Set marks id as selected or not.
func (r RowSelection) Set(id string, selected bool) {
	if selected {
		r[id] = true
		return
	}
	delete(r, id)
}

// Toggle flips the selection of id.
func (r RowSelection) Toggle(id string) {
	r.Set(id, !r[id])
}

// Clear deselects every row.
func (r RowSelection) Clear() {
	for id := range r {
		delete(r, id)
	}
}

// Selected returns the selected IDs, sorted.
func (r RowSelection) Selected() []string {
	ids := make([]string, 0, len(r))
	for id, ok := range r {
		if ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// IsEmpty reports whether no row is selected.
func (r RowSelection) IsEmpty() bool {
	for _, ok := range r {
		if ok {
			return false
		}
	}
	return true
}

// Permissions is the set of permissions held by the current administrator.
type Permissions map[string]bool

// NewPermissions builds a set from names.
func NewPermissions(names ...string) Permissions {
	p := make(Permissions, len(names))
	for _, n := range names {
		if n != "" {
			p[n] = true
		}
	}
	return p
}

// Has reports whether name is granted. "*" grants everything.
func (p Permissions) Has(name string) bool {
	if name == "" {
		return true
	}
	return p[name] || p["*"]
}

// BulkAction is an operation applied to every selected row.
type BulkAction struct {
	Name       string
	Permission string
}

// BulkArchive soft-deletes the selected rows.
var BulkArchive = BulkAction{Name: "archive", Permission: "archive"}

// Enabled reports whether the action may run: at least one row is selected and
// the required permission is held.
func (a BulkAction) Enabled(selection RowSelection, perms Permissions) bool {
	if selection.IsEmpty() {
		return false
	}
	return perms.Has(a.Permission)
}

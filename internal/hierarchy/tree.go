package hierarchy

import (
	"sort"

	"github.com/xelth-com/iditgo/internal/models"
)

// Tree is an arena of locations indexed by id. It is built from a flat slice
// and never mutated afterwards; services rebuild it after writes.
//
// Every traversal carries a visited set, so a corrupt parent cycle in stored
// data ends a walk instead of looping forever.
type Tree struct {
	nodes    map[string]*models.StorageLocation
	children map[string][]string
	roots    []string
}

// NewTree indexes locations. Locations whose parent is not in the slice are
// treated as roots.
func NewTree(locations []models.StorageLocation) *Tree {
	t := &Tree{
		nodes:    make(map[string]*models.StorageLocation, len(locations)),
		children: make(map[string][]string),
	}
	for i := range locations {
		loc := &locations[i]
		t.nodes[loc.ID] = loc
	}
	for i := range locations {
		loc := &locations[i]
		if loc.ParentID != nil {
			if _, ok := t.nodes[*loc.ParentID]; ok {
				t.children[*loc.ParentID] = append(t.children[*loc.ParentID], loc.ID)
				continue
			}
		}
		t.roots = append(t.roots, loc.ID)
	}
	byName := func(ids []string) {
		sort.SliceStable(ids, func(i, j int) bool {
			return t.nodes[ids[i]].Name < t.nodes[ids[j]].Name
		})
	}
	byName(t.roots)
	for _, ids := range t.children {
		byName(ids)
	}
	return t
}

// Len returns the number of locations
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the location with id, or nil
func (t *Tree) Node(id string) *models.StorageLocation {
	return t.nodes[id]
}

// Has reports whether id is in the tree
func (t *Tree) Has(id string) bool {
	_, ok := t.nodes[id]
	return ok
}

// Roots returns the ids of locations without a (known) parent, sorted by name
func (t *Tree) Roots() []string {
	return append([]string(nil), t.roots...)
}

// Children returns the direct child ids of id, sorted by name
func (t *Tree) Children(id string) []string {
	return append([]string(nil), t.children[id]...)
}

// IsLeaf reports whether id has no children
func (t *Tree) IsLeaf(id string) bool {
	return len(t.children[id]) == 0
}

// Leaves returns the ids of all leaf locations
func (t *Tree) Leaves() []string {
	var out []string
	for id := range t.nodes {
		if t.IsLeaf(id) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// walk visits id and its descendants depth-first, each at most once
func (t *Tree) walk(id string, visited map[string]bool, fn func(id string)) {
	if visited[id] {
		return
	}
	visited[id] = true
	fn(id)
	for _, c := range t.children[id] {
		t.walk(c, visited, fn)
	}
}

// Descendants returns every location below id (excluding id)
func (t *Tree) Descendants(id string) []string {
	var out []string
	t.walk(id, make(map[string]bool), func(n string) {
		if n != id {
			out = append(out, n)
		}
	})
	return out
}

// LeafDescendants returns the leaves of the subtree rooted at id. A leaf's
// only leaf descendant is itself.
func (t *Tree) LeafDescendants(id string) []string {
	if !t.Has(id) {
		return nil
	}
	var out []string
	t.walk(id, make(map[string]bool), func(n string) {
		if t.IsLeaf(n) {
			out = append(out, n)
		}
	})
	return out
}

// IsAncestorOrSelf reports whether ancestor is id or lies on the parent chain
// of id. The walk follows parent pointers up from id.
func (t *Tree) IsAncestorOrSelf(ancestor, id string) bool {
	visited := make(map[string]bool)
	cur := id
	for cur != "" && !visited[cur] {
		if cur == ancestor {
			return true
		}
		visited[cur] = true
		node := t.nodes[cur]
		if node == nil || node.ParentID == nil {
			return false
		}
		cur = *node.ParentID
	}
	return false
}

// Path returns the names from the root down to id
func (t *Tree) Path(id string) []string {
	var rev []string
	visited := make(map[string]bool)
	for cur := id; cur != "" && !visited[cur]; {
		visited[cur] = true
		node := t.nodes[cur]
		if node == nil {
			break
		}
		rev = append(rev, node.Name)
		if node.ParentID == nil {
			break
		}
		cur = *node.ParentID
	}
	out := make([]string, len(rev))
	for i, name := range rev {
		out[len(rev)-1-i] = name
	}
	return out
}

// Capacity is the capacity roll-up of a subtree.
//
// Sum counts capped leaves only. Value reports the subtree as unbounded (nil)
// as soon as one leaf is uncapped.
type Capacity struct {
	Sum            int `json:"cappedCapacity"`
	CappedLeaves   int `json:"cappedLeaves"`
	UncappedLeaves int `json:"uncappedLeaves"`
}

// Value is the effective capacity, nil meaning unbounded
func (c Capacity) Value() *int {
	if c.UncappedLeaves > 0 || c.CappedLeaves == 0 {
		return nil
	}
	v := c.Sum
	return &v
}

// AggregateCapacity rolls capacity up from the leaves below id. Capacities
// stored on non-leaf nodes are ignored.
func (t *Tree) AggregateCapacity(id string) Capacity {
	var c Capacity
	for _, leaf := range t.LeafDescendants(id) {
		if cp := t.nodes[leaf].Capacity; cp != nil {
			c.Sum += *cp
			c.CappedLeaves++
		} else {
			c.UncappedLeaves++
		}
	}
	return c
}

// AggregateStock sums the quantities of rows held at leaf locations of the
// subtree rooted at id.
func (t *Tree) AggregateStock(id string, rows []models.CurrentInventory) int {
	leaves := make(map[string]bool)
	for _, l := range t.LeafDescendants(id) {
		leaves[l] = true
	}
	total := 0
	for _, r := range rows {
		if leaves[r.LocationID] {
			total += r.Quantity
		}
	}
	return total
}

// Rollup is a location with its aggregated capacity and stock
type Rollup struct {
	models.StorageLocation
	IsLeaf            bool     `json:"isLeaf"`
	Path              []string `json:"path"`
	CapacityRollup    Capacity `json:"capacityRollup"`
	EffectiveCapacity *int     `json:"effectiveCapacity"`
	Stock             int      `json:"stock"`
	UtilizationPct    *int     `json:"utilizationPercent"`
	Nodes             []Rollup `json:"nodes,omitempty"`
}

// Rollup computes the roll-up of id without its subtree
func (t *Tree) Rollup(id string, rows []models.CurrentInventory) Rollup {
	node := t.nodes[id]
	r := Rollup{
		StorageLocation: *node,
		IsLeaf:          t.IsLeaf(id),
		Path:            t.Path(id),
		CapacityRollup:  t.AggregateCapacity(id),
		Stock:           t.AggregateStock(id, rows),
	}
	r.ChildCount = len(t.children[id])
	r.Children = nil
	r.Parent = nil
	r.EffectiveCapacity = r.CapacityRollup.Value()
	r.UtilizationPct = Utilization(r.Stock, r.EffectiveCapacity)
	return r
}

// Forest returns the roll-ups of all roots with nested nodes
func (t *Tree) Forest(rows []models.CurrentInventory) []Rollup {
	visited := make(map[string]bool)
	var build func(id string) Rollup
	build = func(id string) Rollup {
		visited[id] = true
		r := t.Rollup(id, rows)
		for _, c := range t.children[id] {
			if visited[c] {
				continue
			}
			r.Nodes = append(r.Nodes, build(c))
		}
		return r
	}
	out := make([]Rollup, 0, len(t.roots))
	for _, id := range t.roots {
		out = append(out, build(id))
	}
	return out
}

// Utilization is stock as a rounded percentage of capacity, nil when the
// capacity is unbounded or zero.
func Utilization(stock int, capacity *int) *int {
	if capacity == nil || *capacity <= 0 {
		return nil
	}
	// round half up
	pct := (stock*200 + *capacity) / (2 * *capacity)
	return &pct
}

package models

import (
	"sort"
	"strings"
)

// Known product categories. The column is an open string; these are the ones
// the floor staff actually use.
const (
	CategoryRaw          = "raw"
	CategoryIntermediate = "intermediate"
	CategoryFinished     = "finished"
	CategoryPackaging    = "packaging"
	CategoryOther        = "other"
)

// CategoryInfo is the display metadata of a category
type CategoryInfo struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

var categoryOrder = []CategoryInfo{
	{Key: CategoryRaw, Label: "Raw material"},
	{Key: CategoryIntermediate, Label: "Intermediate products"},
	{Key: CategoryFinished, Label: "Finished goods"},
	{Key: CategoryPackaging, Label: "Packaging"},
	{Key: CategoryOther, Label: "Other"},
}

// LookupCategory returns display info for a category key. Unknown keys get a
// capitalized label.
func LookupCategory(key string) CategoryInfo {
	for _, c := range categoryOrder {
		if c.Key == key {
			return c
		}
	}
	if key == "" {
		return categoryOrder[len(categoryOrder)-1]
	}
	return CategoryInfo{Key: key, Label: strings.ToUpper(key[:1]) + key[1:]}
}

// KnownCategories lists the known categories in display order
func KnownCategories() []CategoryInfo {
	out := make([]CategoryInfo, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// CategoryRank orders categories for display: known ones first in their fixed
// order, unknown ones after them.
func CategoryRank(key string) int {
	for i, c := range categoryOrder {
		if c.Key == key {
			return i
		}
	}
	return len(categoryOrder)
}

// CategoriesOf returns the categories present in products, known ones in
// display order followed by unknown ones alphabetically.
func CategoriesOf(products []ProductVariant) []CategoryInfo {
	seen := make(map[string]bool)
	var keys []string
	for _, p := range products {
		if !seen[p.Category] {
			seen[p.Category] = true
			keys = append(keys, p.Category)
		}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		ri, rj := CategoryRank(keys[i]), CategoryRank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})
	out := make([]CategoryInfo, 0, len(keys))
	for _, k := range keys {
		out = append(out, LookupCategory(k))
	}
	return out
}

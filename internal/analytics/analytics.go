// Package analytics derives the dashboard bundle from current inventory and
// the recent change log. Everything is recomputed per call.
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xelth-com/iditgo/internal/hierarchy"
	"github.com/xelth-com/iditgo/internal/models"
)

const (
	day            = 24 * time.Hour
	activityDays   = 7
	historyDays    = 30
	topMoverLimit  = 5
	unknownStaff   = "Unknown"
	dateKeyLayout  = "2006-01-02"
	historyWindow  = historyDays * day
	activityWindow = activityDays * day
)

// Input is everything Compute needs. Logs cover at least the history window
// and are ordered oldest first; inventory rows carry their Product.
type Input struct {
	Inventory []models.CurrentInventory
	Locations []models.StorageLocation
	Products  []models.ProductVariant
	Logs      []models.InventoryLog
}

// Summary holds the headline counts
type Summary struct {
	TotalItems               int `json:"totalItems"`
	UniqueLocationsWithStock int `json:"uniqueLocationsWithStock"`
	UniqueProductsInStock    int `json:"uniqueProductsInStock"`
	TotalLocations           int `json:"totalLocations"`
	TotalProducts            int `json:"totalProducts"`
	ChangesThisWeek          int `json:"changesThisWeek"`
}

// ProductTotal is the stock of one product across all locations
type ProductTotal struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Code          *string          `json:"code"`
	Color         *string          `json:"color"`
	Category      string           `json:"category"`
	TotalQuantity int              `json:"totalQuantity"`
	LocationCount int              `json:"locationCount"`
	TotalWeight   *decimal.Decimal `json:"totalWeight"`
}

// LocationUtilization is the fill level of one leaf location
type LocationUtilization struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	ParentName         *string `json:"parentName"`
	Capacity           *int    `json:"capacity"`
	CurrentStock       int     `json:"currentStock"`
	UtilizationPercent *int    `json:"utilizationPercent"`
}

// AreaUtilization is the roll-up of one root area
type AreaUtilization struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	CappedCapacity     int    `json:"cappedCapacity"`
	UncappedLeaves     int    `json:"uncappedLeaves"`
	EffectiveCapacity  *int   `json:"effectiveCapacity"`
	CurrentStock       int    `json:"currentStock"`
	UtilizationPercent *int   `json:"utilizationPercent"`
}

// DayActivity counts the changes of one UTC day
type DayActivity struct {
	Date         string `json:"date"`
	Changes      int    `json:"changes"`
	TotalAdded   int    `json:"totalAdded"`
	TotalRemoved int    `json:"totalRemoved"`
}

// StockPoint is the total stock at the end of one UTC day
type StockPoint struct {
	Date       string `json:"date"`
	TotalStock int    `json:"totalStock"`
}

// Mover is a product ranked by movement
type Mover struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Code          *string `json:"code"`
	Color         *string `json:"color"`
	Added         int     `json:"added"`
	Removed       int     `json:"removed"`
	Changes       int     `json:"changes"`
	TotalMovement int     `json:"totalMovement"`
}

// StaffActivity counts the changes of one user
type StaffActivity struct {
	UserID       string    `json:"userId"`
	UserName     string    `json:"userName"`
	Changes      int       `json:"changes"`
	LastActivity time.Time `json:"lastActivity"`
}

// CategoryTotal is the stock of one product category
type CategoryTotal struct {
	Category     string          `json:"category"`
	Label        string          `json:"label"`
	Quantity     int             `json:"quantity"`
	ProductCount int             `json:"productCount"`
	TotalWeight  decimal.Decimal `json:"totalWeight"`
}

// Freshness reports the oldest and newest check of current inventory
type Freshness struct {
	OldestCheckAt *time.Time `json:"oldestCheckAt"`
	NewestCheckAt *time.Time `json:"newestCheckAt"`
}

// Bundle is the full analytics response
type Bundle struct {
	GeneratedAt         time.Time             `json:"generatedAt"`
	Summary             Summary               `json:"summary"`
	ProductTotals       []ProductTotal        `json:"productTotals"`
	LocationUtilization []LocationUtilization `json:"locationUtilization"`
	AreaUtilization     []AreaUtilization     `json:"areaUtilization"`
	ActivityByDay       []DayActivity         `json:"activityByDay"`
	StockHistory        []StockPoint          `json:"stockHistory"`
	TopMovers           []Mover               `json:"topMovers"`
	StaffActivity       []StaffActivity       `json:"staffActivity"`
	CategoryData        []CategoryTotal       `json:"categoryData"`
	DataFreshness       Freshness             `json:"dataFreshness"`
}

// Compute builds the bundle as of now
func Compute(in Input, now time.Time) Bundle {
	now = now.UTC()
	tree := hierarchy.NewTree(in.Locations)

	b := Bundle{GeneratedAt: now}
	b.Summary = summarize(in, tree)
	b.ProductTotals = productTotals(in)
	b.LocationUtilization = locationUtilization(in, tree)
	b.AreaUtilization = areaUtilization(in, tree)
	b.ActivityByDay = activityByDay(in.Logs, now)
	for _, d := range b.ActivityByDay {
		b.Summary.ChangesThisWeek += d.Changes
	}
	b.StockHistory = StockHistory(b.Summary.TotalItems, in.Logs, now)
	b.TopMovers = topMovers(in, now)
	b.StaffActivity = staffActivity(in.Logs, now)
	b.CategoryData = categoryData(b.ProductTotals)
	b.DataFreshness = freshness(in.Inventory)
	return b
}

func dateKey(t time.Time) string {
	return t.UTC().Format(dateKeyLayout)
}

func summarize(in Input, tree *hierarchy.Tree) Summary {
	s := Summary{
		TotalLocations: len(tree.Leaves()),
		TotalProducts:  len(in.Products),
	}
	locs := make(map[string]bool)
	prods := make(map[string]bool)
	for _, r := range in.Inventory {
		s.TotalItems += r.Quantity
		if r.Quantity > 0 {
			locs[r.LocationID] = true
			prods[r.ProductID] = true
		}
	}
	s.UniqueLocationsWithStock = len(locs)
	s.UniqueProductsInStock = len(prods)
	return s
}

func productTotals(in Input) []ProductTotal {
	out := make([]ProductTotal, 0, len(in.Products))
	for _, p := range in.Products {
		pt := ProductTotal{
			ID:       p.ID,
			Name:     p.Name,
			Code:     p.Code,
			Color:    p.Color,
			Category: p.Category,
		}
		for _, r := range in.Inventory {
			if r.ProductID != p.ID {
				continue
			}
			pt.TotalQuantity += r.Quantity
			if r.Quantity > 0 {
				pt.LocationCount++
			}
		}
		if p.ResourceWeight.Valid {
			w := p.ResourceWeight.Decimal.Mul(decimal.NewFromInt(int64(pt.TotalQuantity)))
			pt.TotalWeight = &w
		}
		out = append(out, pt)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalQuantity > out[j].TotalQuantity
	})
	return out
}

func locationUtilization(in Input, tree *hierarchy.Tree) []LocationUtilization {
	stock := make(map[string]int)
	for _, r := range in.Inventory {
		stock[r.LocationID] += r.Quantity
	}

	leaves := tree.Leaves()
	out := make([]LocationUtilization, 0, len(leaves))
	for _, id := range leaves {
		loc := tree.Node(id)
		lu := LocationUtilization{
			ID:           loc.ID,
			Name:         loc.Name,
			Capacity:     loc.Capacity,
			CurrentStock: stock[id],
		}
		if loc.ParentID != nil {
			if parent := tree.Node(*loc.ParentID); parent != nil {
				name := parent.Name
				lu.ParentName = &name
			}
		}
		lu.UtilizationPercent = hierarchy.Utilization(lu.CurrentStock, loc.Capacity)
		out = append(out, lu)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return pctOrNeg(out[i].UtilizationPercent) > pctOrNeg(out[j].UtilizationPercent)
	})
	return out
}

func pctOrNeg(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}

func areaUtilization(in Input, tree *hierarchy.Tree) []AreaUtilization {
	roots := tree.Roots()
	out := make([]AreaUtilization, 0, len(roots))
	for _, id := range roots {
		r := tree.Rollup(id, in.Inventory)
		out = append(out, AreaUtilization{
			ID:                 r.ID,
			Name:               r.Name,
			CappedCapacity:     r.CapacityRollup.Sum,
			UncappedLeaves:     r.CapacityRollup.UncappedLeaves,
			EffectiveCapacity:  r.EffectiveCapacity,
			CurrentStock:       r.Stock,
			UtilizationPercent: r.UtilizationPct,
		})
	}
	return out
}

func activityByDay(logs []models.InventoryLog, now time.Time) []DayActivity {
	out := make([]DayActivity, activityDays)
	index := make(map[string]int, activityDays)
	for i := 0; i < activityDays; i++ {
		key := dateKey(now.Add(-time.Duration(activityDays-1-i) * day))
		out[i] = DayActivity{Date: key}
		index[key] = i
	}

	cutoff := now.Add(-activityWindow)
	for _, l := range logs {
		if l.ChangedAt.Before(cutoff) {
			continue
		}
		i, ok := index[dateKey(l.ChangedAt)]
		if !ok {
			continue
		}
		out[i].Changes++
		if d := l.Delta(); d > 0 {
			out[i].TotalAdded += d
		} else {
			out[i].TotalRemoved += -d
		}
	}
	return out
}

// StockHistory walks back from the current total one UTC day at a time. The
// point of each day is recorded before that day's net change is subtracted,
// so the last point equals currentTotal. It returns historyDays+1 points,
// oldest first.
func StockHistory(currentTotal int, logs []models.InventoryLog, now time.Time) []StockPoint {
	net := make(map[string]int)
	cutoff := now.Add(-historyWindow)
	for _, l := range logs {
		if l.ChangedAt.Before(cutoff) {
			continue
		}
		net[dateKey(l.ChangedAt)] += l.Delta()
	}

	out := make([]StockPoint, historyDays+1)
	running := currentTotal
	for i := 0; i <= historyDays; i++ {
		key := dateKey(now.Add(-time.Duration(i) * day))
		out[historyDays-i] = StockPoint{Date: key, TotalStock: running}
		running -= net[key]
	}
	return out
}

func topMovers(in Input, now time.Time) []Mover {
	type activity struct{ added, removed, changes int }
	byProduct := make(map[string]*activity)
	cutoff := now.Add(-activityWindow)
	for _, l := range in.Logs {
		if l.ChangedAt.Before(cutoff) {
			continue
		}
		a, ok := byProduct[l.ProductID]
		if !ok {
			a = &activity{}
			byProduct[l.ProductID] = a
		}
		a.changes++
		if d := l.Delta(); d > 0 {
			a.added += d
		} else {
			a.removed += -d
		}
	}

	var out []Mover
	for _, p := range in.Products {
		a := byProduct[p.ID]
		if a == nil || a.added+a.removed == 0 {
			continue
		}
		out = append(out, Mover{
			ID:            p.ID,
			Name:          p.Name,
			Code:          p.Code,
			Color:         p.Color,
			Added:         a.added,
			Removed:       a.removed,
			Changes:       a.changes,
			TotalMovement: a.added + a.removed,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalMovement > out[j].TotalMovement
	})
	if len(out) > topMoverLimit {
		out = out[:topMoverLimit]
	}
	if out == nil {
		out = []Mover{}
	}
	return out
}

func staffActivity(logs []models.InventoryLog, now time.Time) []StaffActivity {
	byUser := make(map[string]*StaffActivity)
	cutoff := now.Add(-historyWindow)
	for _, l := range logs {
		if l.ChangedAt.Before(cutoff) {
			continue
		}
		a, ok := byUser[l.ChangedByID]
		if !ok {
			name := unknownStaff
			if l.ChangedBy != nil {
				name = l.ChangedBy.Name
			}
			a = &StaffActivity{UserID: l.ChangedByID, UserName: name, LastActivity: l.ChangedAt}
			byUser[l.ChangedByID] = a
		}
		a.Changes++
		if l.ChangedAt.After(a.LastActivity) {
			a.LastActivity = l.ChangedAt
		}
	}

	out := make([]StaffActivity, 0, len(byUser))
	for _, a := range byUser {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastActivity.Equal(out[j].LastActivity) {
			return out[i].LastActivity.After(out[j].LastActivity)
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

func categoryData(totals []ProductTotal) []CategoryTotal {
	byCat := make(map[string]*CategoryTotal)
	var order []string
	for _, p := range totals {
		cat := p.Category
		if cat == "" {
			cat = models.CategoryOther
		}
		c, ok := byCat[cat]
		if !ok {
			c = &CategoryTotal{Category: cat, Label: models.LookupCategory(cat).Label, TotalWeight: decimal.Zero}
			byCat[cat] = c
			order = append(order, cat)
		}
		c.Quantity += p.TotalQuantity
		c.ProductCount++
		if p.TotalWeight != nil {
			c.TotalWeight = c.TotalWeight.Add(*p.TotalWeight)
		}
	}

	out := make([]CategoryTotal, 0, len(order))
	for _, cat := range order {
		out = append(out, *byCat[cat])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return models.CategoryRank(out[i].Category) < models.CategoryRank(out[j].Category)
	})
	return out
}

func freshness(rows []models.CurrentInventory) Freshness {
	var f Freshness
	for _, r := range rows {
		t := r.LastCheckedAt
		if f.OldestCheckAt == nil || t.Before(*f.OldestCheckAt) {
			f.OldestCheckAt = &t
		}
		if f.NewestCheckAt == nil || t.After(*f.NewestCheckAt) {
			f.NewestCheckAt = &t
		}
	}
	return f
}

package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/xelth-com/iditgo/internal/errs"
	"github.com/xelth-com/iditgo/internal/hierarchy"
	"github.com/xelth-com/iditgo/internal/models"
	"gorm.io/gorm"
)

const (
	liveLocations = "current_inventory.location_id IN (SELECT id FROM storage_locations WHERE deleted_at IS NULL)"
	liveProducts  = "current_inventory.product_id IN (SELECT id FROM product_variants WHERE deleted_at IS NULL)"

	liveLogLocations = "inventory_logs.location_id IN (SELECT id FROM storage_locations WHERE deleted_at IS NULL)"
	liveLogProducts  = "inventory_logs.product_id IN (SELECT id FROM product_variants WHERE deleted_at IS NULL)"

	defaultLogLimit = 100
	maxLogLimit     = 1000
)

// Filter narrows Current. LocationID wins over ParentID; ParentID selects the
// whole subtree below the parent.
type Filter struct {
	LocationID string
	ParentID   string
}

// LogFilter narrows Logs. Zero values mean no restriction.
type LogFilter struct {
	Limit      int
	LocationID string
	ProductID  string
	UserID     string
	From       *time.Time
	To         *time.Time
}

func unscoped(db *gorm.DB) *gorm.DB { return db.Unscoped() }

// LiveInventory returns current rows whose location and product still exist
func LiveInventory(db *gorm.DB) *gorm.DB {
	return db.Model(&models.CurrentInventory{}).Where(liveLocations).Where(liveProducts)
}

// LiveLogs returns log rows whose location and product still exist. Totals
// derived from LiveInventory must be walked back with these rows only.
func LiveLogs(db *gorm.DB) *gorm.DB {
	return db.Model(&models.InventoryLog{}).Where(liveLogLocations).Where(liveLogProducts)
}

// Current lists current inventory ordered by location name, product name
func (s *Service) Current(ctx context.Context, f Filter) ([]models.CurrentInventory, error) {
	q := LiveInventory(s.db.WithContext(ctx))

	switch {
	case f.LocationID != "":
		q = q.Where("current_inventory.location_id = ?", f.LocationID)
	case f.ParentID != "":
		tree, err := hierarchy.LoadTree(ctx, s.db)
		if err != nil {
			return nil, err
		}
		ids := tree.Descendants(f.ParentID)
		if len(ids) == 0 {
			return []models.CurrentInventory{}, nil
		}
		q = q.Where("current_inventory.location_id IN ?", ids)
	}

	var rows []models.CurrentInventory
	err := q.
		Joins("JOIN storage_locations sl ON sl.id = current_inventory.location_id").
		Joins("JOIN product_variants pv ON pv.id = current_inventory.product_id").
		Preload("Location").
		Preload("Product").
		Preload("LastCheckedBy", unscoped).
		Order("sl.name ASC").
		Order("pv.name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errs.Persistence("load inventory", err)
	}
	return rows, nil
}

// Logs lists log rows newest first. Deleted locations, products and users
// still resolve.
func (s *Service) Logs(ctx context.Context, f LogFilter) ([]models.InventoryLog, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultLogLimit
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}

	q := s.db.WithContext(ctx).Model(&models.InventoryLog{})
	if f.LocationID != "" {
		q = q.Where("location_id = ?", f.LocationID)
	}
	if f.ProductID != "" {
		q = q.Where("product_id = ?", f.ProductID)
	}
	if f.UserID != "" {
		q = q.Where("changed_by_id = ?", f.UserID)
	}
	if f.From != nil {
		q = q.Where("changed_at >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where("changed_at <= ?", f.To.UTC())
	}

	var logs []models.InventoryLog
	err := q.
		Preload("Location", unscoped).
		Preload("Product", unscoped).
		Preload("ChangedBy", unscoped).
		Order("changed_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, errs.Persistence("load inventory logs", err)
	}
	return logs, nil
}

// LocationSummary groups current rows by location
type LocationSummary struct {
	Location      *models.StorageLocation `json:"location"`
	TotalPallets  int                     `json:"totalPallets"`
	ProductCount  int                     `json:"productCount"`
	LastCheckedAt time.Time               `json:"lastCheckedAt"`
}

// ProductSummary groups current rows by product
type ProductSummary struct {
	Product       *models.ProductVariant `json:"product"`
	TotalPallets  int                    `json:"totalPallets"`
	LocationCount int                    `json:"locationCount"`
}

// Summary is the overview of the current inventory state
type Summary struct {
	TotalPallets    int               `json:"totalPallets"`
	UniqueLocations int               `json:"uniqueLocations"`
	OldestCheck     *time.Time        `json:"oldestCheck"`
	NewestCheck     *time.Time        `json:"newestCheck"`
	ByLocation      []LocationSummary `json:"byLocation"`
	ByProduct       []ProductSummary  `json:"byProduct"`
}

// Summary aggregates the current inventory
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	var rows []models.CurrentInventory
	err := LiveInventory(s.db.WithContext(ctx)).
		Preload("Location").
		Preload("Product").
		Find(&rows).Error
	if err != nil {
		return nil, errs.Persistence("load inventory", err)
	}
	return Summarize(rows), nil
}

// Summarize builds a Summary from rows with preloaded relations
func Summarize(rows []models.CurrentInventory) *Summary {
	sum := &Summary{ByLocation: []LocationSummary{}, ByProduct: []ProductSummary{}}
	byLoc := make(map[string]*LocationSummary)
	byProd := make(map[string]*ProductSummary)
	var locOrder, prodOrder []string

	for _, r := range rows {
		sum.TotalPallets += r.Quantity
		checked := r.LastCheckedAt
		if sum.OldestCheck == nil || checked.Before(*sum.OldestCheck) {
			sum.OldestCheck = &checked
		}
		if sum.NewestCheck == nil || checked.After(*sum.NewestCheck) {
			sum.NewestCheck = &checked
		}

		ls, ok := byLoc[r.LocationID]
		if !ok {
			ls = &LocationSummary{Location: r.Location, LastCheckedAt: checked}
			byLoc[r.LocationID] = ls
			locOrder = append(locOrder, r.LocationID)
		}
		ls.TotalPallets += r.Quantity
		ls.ProductCount++
		if checked.After(ls.LastCheckedAt) {
			ls.LastCheckedAt = checked
		}

		ps, ok := byProd[r.ProductID]
		if !ok {
			ps = &ProductSummary{Product: r.Product}
			byProd[r.ProductID] = ps
			prodOrder = append(prodOrder, r.ProductID)
		}
		ps.TotalPallets += r.Quantity
		ps.LocationCount++
	}

	sum.UniqueLocations = len(byLoc)
	for _, id := range locOrder {
		sum.ByLocation = append(sum.ByLocation, *byLoc[id])
	}
	for _, id := range prodOrder {
		sum.ByProduct = append(sum.ByProduct, *byProd[id])
	}
	return sum
}

// StateRow is the quantity of one pair at a point in time
type StateRow struct {
	LocationID    string    `json:"locationId"`
	LocationName  string    `json:"locationName"`
	ProductID     string    `json:"productId"`
	ProductName   string    `json:"productName"`
	Quantity      int       `json:"quantity"`
	LastChangedAt time.Time `json:"lastChangedAt"`
}

// StateAt replays the log up to and including at and returns the quantity of
// every pair observed by then. Nothing is persisted.
func (s *Service) StateAt(ctx context.Context, at time.Time) ([]StateRow, error) {
	var logs []models.InventoryLog
	err := s.db.WithContext(ctx).
		Where("changed_at <= ?", at.UTC()).
		Preload("Location", unscoped).
		Preload("Product", unscoped).
		Order("changed_at ASC").
		Order("id ASC").
		Find(&logs).Error
	if err != nil {
		return nil, errs.Persistence("load inventory logs", err)
	}
	return Replay(logs), nil
}

type pairKey struct{ location, product string }

// Replay folds log rows, ordered oldest first, into per-pair quantities
func Replay(logs []models.InventoryLog) []StateRow {
	state := make(map[pairKey]*StateRow)
	for _, l := range logs {
		k := pairKey{l.LocationID, l.ProductID}
		row, ok := state[k]
		if !ok {
			row = &StateRow{LocationID: l.LocationID, ProductID: l.ProductID}
			state[k] = row
		}
		row.Quantity = l.NewQty
		row.LastChangedAt = l.ChangedAt
		if l.Location != nil {
			row.LocationName = l.Location.Name
		}
		if l.Product != nil {
			row.ProductName = l.Product.Name
		}
	}

	out := make([]StateRow, 0, len(state))
	for _, row := range state {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LocationName != out[j].LocationName {
			return out[i].LocationName < out[j].LocationName
		}
		if out[i].ProductName != out[j].ProductName {
			return out[i].ProductName < out[j].ProductName
		}
		if out[i].LocationID != out[j].LocationID {
			return out[i].LocationID < out[j].LocationID
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}

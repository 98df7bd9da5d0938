package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/iditgo/internal/database"
	"github.com/xelth-com/iditgo/internal/ledger"
	"github.com/xelth-com/iditgo/internal/models"
)

func ptr[T any](v T) *T { return &v }

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func at(month time.Month, d, h int) time.Time {
	return time.Date(2026, month, d, h, 0, 0, 0, time.UTC)
}

func sampleInput() Input {
	anna := &models.User{ID: "u1", Name: "Anna"}
	return Input{
		Locations: []models.StorageLocation{
			{ID: "hall", Name: "Hall"},
			{ID: "l1", Name: "L1", ParentID: ptr("hall"), Capacity: ptr(10)},
			{ID: "l2", Name: "L2", ParentID: ptr("hall")},
			{ID: "yard", Name: "Yard", Capacity: ptr(4)},
		},
		Products: []models.ProductVariant{
			{ID: "p1", Name: "Palette", Category: models.CategoryRaw, ResourceWeight: decimal.NewNullDecimal(decimal.RequireFromString("12.5"))},
			{ID: "p2", Name: "Karton"},
			{ID: "p3", Name: "Folie", Category: models.CategoryPackaging},
		},
		Inventory: []models.CurrentInventory{
			{LocationID: "l1", ProductID: "p1", Quantity: 5, LastCheckedAt: at(3, 10, 9)},
			{LocationID: "l2", ProductID: "p2", Quantity: 3, LastCheckedAt: at(3, 9, 10)},
			{LocationID: "yard", ProductID: "p1", Quantity: 4, LastCheckedAt: at(3, 9, 11)},
		},
		Logs: []models.InventoryLog{
			{LocationID: "l1", ProductID: "p1", NewQty: 2, ChangedByID: "u1", ChangedBy: anna, ChangedAt: at(3, 1, 8)},
			{LocationID: "l2", ProductID: "p2", NewQty: 3, ChangedByID: "u2", ChangedAt: at(3, 9, 10)},
			{LocationID: "yard", ProductID: "p1", NewQty: 4, ChangedByID: "u1", ChangedBy: anna, ChangedAt: at(3, 9, 11)},
			{LocationID: "l1", ProductID: "p1", PreviousQty: ptr(2), NewQty: 5, ChangedByID: "u1", ChangedBy: anna, ChangedAt: at(3, 10, 9)},
		},
	}
}

func TestComputeSummary(t *testing.T) {
	b := Compute(sampleInput(), now)

	assert.Equal(t, Summary{
		TotalItems:               12,
		UniqueLocationsWithStock: 3,
		UniqueProductsInStock:    2,
		TotalLocations:           3,
		TotalProducts:            3,
		ChangesThisWeek:          3,
	}, b.Summary)

	require.NotNil(t, b.DataFreshness.OldestCheckAt)
	assert.Equal(t, at(3, 9, 10), *b.DataFreshness.OldestCheckAt)
	assert.Equal(t, at(3, 10, 9), *b.DataFreshness.NewestCheckAt)
}

func TestStockHistoryWalksBackward(t *testing.T) {
	b := Compute(sampleInput(), now)
	h := b.StockHistory

	require.Len(t, h, 31)
	assert.Equal(t, StockPoint{Date: "2026-03-10", TotalStock: 12}, h[30])
	assert.Equal(t, StockPoint{Date: "2026-03-09", TotalStock: 9}, h[29])
	assert.Equal(t, StockPoint{Date: "2026-03-08", TotalStock: 2}, h[28])
	assert.Equal(t, StockPoint{Date: "2026-03-01", TotalStock: 2}, h[21])
	assert.Equal(t, StockPoint{Date: "2026-02-28", TotalStock: 0}, h[20])
	assert.Equal(t, "2026-02-08", h[0].Date)
	assert.Equal(t, 0, h[0].TotalStock)
}

func TestStockHistoryWithoutLogsIsFlat(t *testing.T) {
	h := StockHistory(7, nil, now)
	require.Len(t, h, 31)
	for _, p := range h {
		assert.Equal(t, 7, p.TotalStock)
	}
}

func TestActivityAndMovers(t *testing.T) {
	b := Compute(sampleInput(), now)

	require.Len(t, b.ActivityByDay, 7)
	assert.Equal(t, "2026-03-04", b.ActivityByDay[0].Date)
	assert.Equal(t, DayActivity{Date: "2026-03-09", Changes: 2, TotalAdded: 7}, b.ActivityByDay[5])
	assert.Equal(t, DayActivity{Date: "2026-03-10", Changes: 1, TotalAdded: 3}, b.ActivityByDay[6])

	require.Len(t, b.TopMovers, 2)
	assert.Equal(t, "p1", b.TopMovers[0].ID)
	assert.Equal(t, 7, b.TopMovers[0].TotalMovement)
	assert.Equal(t, 2, b.TopMovers[0].Changes)
	assert.Equal(t, "p2", b.TopMovers[1].ID)

	require.Len(t, b.StaffActivity, 2)
	assert.Equal(t, "Anna", b.StaffActivity[0].UserName)
	assert.Equal(t, 3, b.StaffActivity[0].Changes)
	assert.Equal(t, at(3, 10, 9), b.StaffActivity[0].LastActivity)
	assert.Equal(t, "Unknown", b.StaffActivity[1].UserName)
}

func TestRemovalsCountAsMovement(t *testing.T) {
	in := sampleInput()
	in.Logs = []models.InventoryLog{
		{LocationID: "l1", ProductID: "p2", PreviousQty: ptr(10), NewQty: 4, ChangedByID: "u1", ChangedAt: at(3, 10, 8)},
	}
	b := Compute(in, now)

	require.Len(t, b.TopMovers, 1)
	assert.Equal(t, 6, b.TopMovers[0].Removed)
	assert.Equal(t, 6, b.ActivityByDay[6].TotalRemoved)
}

func TestUtilization(t *testing.T) {
	b := Compute(sampleInput(), now)

	require.Len(t, b.LocationUtilization, 3)
	assert.Equal(t, "Yard", b.LocationUtilization[0].Name)
	assert.Equal(t, 100, *b.LocationUtilization[0].UtilizationPercent)
	assert.Equal(t, "L1", b.LocationUtilization[1].Name)
	assert.Equal(t, 50, *b.LocationUtilization[1].UtilizationPercent)
	assert.Equal(t, "Hall", *b.LocationUtilization[1].ParentName)
	assert.Nil(t, b.LocationUtilization[2].UtilizationPercent)

	require.Len(t, b.AreaUtilization, 2)
	hall := b.AreaUtilization[0]
	assert.Equal(t, "Hall", hall.Name)
	assert.Equal(t, 10, hall.CappedCapacity)
	assert.Equal(t, 1, hall.UncappedLeaves)
	assert.Nil(t, hall.EffectiveCapacity)
	assert.Equal(t, 8, hall.CurrentStock)
	assert.Equal(t, 100, *b.AreaUtilization[1].UtilizationPercent)
}

func TestProductsAndCategories(t *testing.T) {
	b := Compute(sampleInput(), now)

	require.Len(t, b.ProductTotals, 3)
	p1 := b.ProductTotals[0]
	assert.Equal(t, "p1", p1.ID)
	assert.Equal(t, 9, p1.TotalQuantity)
	assert.Equal(t, 2, p1.LocationCount)
	require.NotNil(t, p1.TotalWeight)
	assert.True(t, p1.TotalWeight.Equal(decimal.RequireFromString("112.5")))
	assert.Nil(t, b.ProductTotals[1].TotalWeight)

	require.Len(t, b.CategoryData, 3)
	assert.Equal(t, models.CategoryRaw, b.CategoryData[0].Category)
	assert.Equal(t, "Raw material", b.CategoryData[0].Label)
	assert.True(t, b.CategoryData[0].TotalWeight.Equal(decimal.RequireFromString("112.5")))
	assert.Equal(t, models.CategoryOther, b.CategoryData[1].Category)
	assert.Equal(t, 3, b.CategoryData[1].Quantity)
	assert.Equal(t, models.CategoryPackaging, b.CategoryData[2].Category)
	assert.True(t, b.CategoryData[2].TotalWeight.IsZero())
}

func TestComputeEmpty(t *testing.T) {
	b := Compute(Input{}, now)

	assert.Zero(t, b.Summary.TotalItems)
	assert.Len(t, b.StockHistory, 31)
	assert.Len(t, b.ActivityByDay, 7)
	assert.NotNil(t, b.TopMovers)
	assert.Empty(t, b.StaffActivity)
	assert.Nil(t, b.DataFreshness.OldestCheckAt)
}

func TestServiceBuild(t *testing.T) {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	clock := func() time.Time { return now }
	user := models.User{Name: "Anna", IsActive: true}
	require.NoError(t, db.Create(&user).Error)
	hall := models.StorageLocation{Name: "Hall", IsActive: true}
	require.NoError(t, db.Create(&hall).Error)
	bin := models.StorageLocation{Name: "Bin", ParentID: &hall.ID, Capacity: ptr(20), IsActive: true}
	require.NoError(t, db.Create(&bin).Error)
	prod := models.ProductVariant{Name: "Palette", IsActive: true}
	require.NoError(t, db.Create(&prod).Error)

	led := ledger.NewService(db, ledger.Options{Clock: clock})
	_, err = led.ApplyEntries(context.Background(), []ledger.Entry{{LocationID: bin.ID, ProductID: prod.ID, Quantity: ptr(5)}}, user.ID)
	require.NoError(t, err)

	b, err := NewService(db, nil, clock).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, b.Summary.TotalItems)
	assert.Equal(t, 1, b.Summary.ChangesThisWeek)
	assert.Equal(t, 25, *b.LocationUtilization[0].UtilizationPercent)
	assert.Equal(t, models.CategoryFinished, b.CategoryData[0].Category)
	require.Len(t, b.StaffActivity, 1)
	assert.Equal(t, "Anna", b.StaffActivity[0].UserName)
	assert.Equal(t, 0, b.StockHistory[29].TotalStock)
	assert.Equal(t, 5, b.StockHistory[30].TotalStock)
}

func TestServiceBuildIgnoresDeletedLocations(t *testing.T) {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	user := models.User{Name: "Anna", IsActive: true}
	require.NoError(t, db.Create(&user).Error)
	hall := models.StorageLocation{Name: "Hall", IsActive: true}
	require.NoError(t, db.Create(&hall).Error)
	kept := models.StorageLocation{Name: "Kept", ParentID: &hall.ID, IsActive: true}
	require.NoError(t, db.Create(&kept).Error)
	gone := models.StorageLocation{Name: "Gone", ParentID: &hall.ID, IsActive: true}
	require.NoError(t, db.Create(&gone).Error)
	prod := models.ProductVariant{Name: "Palette", IsActive: true}
	require.NoError(t, db.Create(&prod).Error)

	fiveDaysAgo := now.Add(-5 * 24 * time.Hour)
	led := ledger.NewService(db, ledger.Options{Clock: func() time.Time { return fiveDaysAgo }})
	_, err = led.ApplyEntries(context.Background(), []ledger.Entry{
		{LocationID: kept.ID, ProductID: prod.ID, Quantity: ptr(3)},
		{LocationID: gone.ID, ProductID: prod.ID, Quantity: ptr(10)},
	}, user.ID)
	require.NoError(t, err)
	require.NoError(t, db.Delete(&gone).Error)

	b, err := NewService(db, nil, func() time.Time { return now }).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, b.Summary.TotalItems)
	require.Len(t, b.StockHistory, 31)
	for _, p := range b.StockHistory {
		assert.GreaterOrEqual(t, p.TotalStock, 0, "stock on %s", p.Date)
	}
	assert.Equal(t, 0, b.StockHistory[0].TotalStock)
	assert.Equal(t, 3, b.StockHistory[30].TotalStock)
	require.Len(t, b.TopMovers, 1)
	assert.Equal(t, 3, b.TopMovers[0].Added)
}

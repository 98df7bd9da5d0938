package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/iditgo/internal/models"
	"github.com/xuri/excelize/v2"
)

func TestInventoryWorkbook(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	code := "XY-1"
	loc := &models.StorageLocation{ID: "l1", Name: "Regal A"}
	prod := &models.ProductVariant{ID: "p1", Name: "Xylit", Code: &code, Category: models.CategoryRaw}
	anna := &models.User{ID: "u1", Name: "Anna"}
	prev := 3

	rows := []models.CurrentInventory{
		{LocationID: "l1", ProductID: "p1", Quantity: 5, LastCheckedAt: now, Location: loc, Product: prod, LastCheckedBy: anna},
	}
	logs := []models.InventoryLog{
		{LocationID: "l1", ProductID: "p1", PreviousQty: &prev, NewQty: 5, ChangedAt: now, Location: loc, Product: prod},
	}

	data, err := InventoryWorkbook(rows, logs, now)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	inv, err := f.GetRows(InventorySheet)
	require.NoError(t, err)
	require.Len(t, inv, 4) // header, one row, blank, total
	assert.Equal(t, []string{"Regal A", "Xylit", "XY-1", "Raw material", "5", "2026-03-02 09:30", "Anna"}, inv[1])
	assert.Equal(t, "5", inv[3][4])

	changes, err := f.GetRows(LogSheet)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, "3", changes[1][3])
	assert.Equal(t, "2", changes[1][5])
	assert.Equal(t, "Unknown", changes[1][6])
}

// Package export renders inventory data as spreadsheets for the office.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xelth-com/iditgo/internal/models"
	"github.com/xuri/excelize/v2"
)

// Sheet names
const (
	InventorySheet = "Inventory"
	LogSheet       = "Changes"
)

const timeLayout = "2006-01-02 15:04"

// InventoryWorkbook writes the current inventory and the change log into one
// workbook. Relations of rows and logs are expected to be preloaded.
func InventoryWorkbook(rows []models.CurrentInventory, logs []models.InventoryLog, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), InventorySheet); err != nil {
		return nil, err
	}
	header := []interface{}{"Location", "Product", "Code", "Category", "Quantity", "Last checked", "Checked by"}
	if err := f.SetSheetRow(InventorySheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("inventory header: %w", err)
	}
	total := 0
	for i, r := range rows {
		total += r.Quantity
		line := []interface{}{
			locationName(r.Location),
			productName(r.Product),
			productCode(r.Product),
			productCategory(r.Product),
			r.Quantity,
			r.LastCheckedAt.UTC().Format(timeLayout),
			userName(r.LastCheckedBy),
		}
		if err := setRow(f, InventorySheet, i+2, line); err != nil {
			return nil, err
		}
	}
	footer := []interface{}{"Total", "", "", "", total, generatedAt.UTC().Format(timeLayout)}
	if err := setRow(f, InventorySheet, len(rows)+3, footer); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(LogSheet); err != nil {
		return nil, err
	}
	header = []interface{}{"Changed at", "Location", "Product", "Previous", "New", "Delta", "Changed by"}
	if err := f.SetSheetRow(LogSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("log header: %w", err)
	}
	for i, l := range logs {
		var prev interface{} = ""
		if l.PreviousQty != nil {
			prev = *l.PreviousQty
		}
		line := []interface{}{
			l.ChangedAt.UTC().Format(timeLayout),
			locationName(l.Location),
			productName(l.Product),
			prev,
			l.NewQty,
			l.Delta(),
			userName(l.ChangedBy),
		}
		if err := setRow(f, LogSheet, i+2, line); err != nil {
			return nil, err
		}
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("%s row %d: %w", sheet, row, err)
	}
	return nil
}

func locationName(l *models.StorageLocation) string {
	if l == nil {
		return ""
	}
	return l.Name
}

func productName(p *models.ProductVariant) string {
	if p == nil {
		return ""
	}
	return p.Name
}

func productCode(p *models.ProductVariant) string {
	if p == nil || p.Code == nil {
		return ""
	}
	return *p.Code
}

func productCategory(p *models.ProductVariant) string {
	if p == nil {
		return ""
	}
	return models.LookupCategory(p.Category).Label
}

func userName(u *models.User) string {
	if u == nil {
		return "Unknown"
	}
	return u.Name
}

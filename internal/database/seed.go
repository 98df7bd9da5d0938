package database

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xelth-com/iditgo/internal/models"
)

// SeedResult counts what Seed created
type SeedResult struct {
	Areas        int
	SubLocations int
	Products     int
	Skipped      bool
}

type seedLocation struct {
	name, description   string
	x, y, width, height int
	color               string
	children            []seedLocation
}

type seedProduct struct {
	name, code, color, category string
}

var demoFloorPlan = []seedLocation{
	{name: "UG", description: "Untergeschoss", x: 0, y: 0, width: 2, height: 2, color: "#6366f1", children: []seedLocation{
		{name: "Wachsraum", description: "UG - Wachsraum", x: 0, y: 0, width: 1, height: 1},
		{name: "Zwischenlager Produktion", description: "UG - Zwischenlager", x: 1, y: 0, width: 1, height: 1},
		{name: "Fertiglager", description: "UG - Fertiglager", x: 0, y: 1, width: 1, height: 1},
		{name: "Holzwollnische", description: "UG - Holzwollnische", x: 1, y: 1, width: 1, height: 1},
	}},
	{name: "EG", description: "Erdgeschoss", x: 3, y: 0, width: 2, height: 2, color: "#22c55e", children: []seedLocation{
		{name: "MST", description: "EG - MST", x: 0, y: 0, width: 1, height: 2},
		{name: "Oberndorfer", description: "EG - Oberndorfer", x: 1, y: 0, width: 1, height: 2},
	}},
	{name: "OG", description: "Obergeschoss", x: 6, y: 0, width: 2, height: 2, color: "#f59e0b", children: []seedLocation{
		{name: "Schachtelware", description: "OG - Schachtelware", x: 0, y: 0, width: 1, height: 2},
		{name: "Notreserve", description: "OG - Notreserve", x: 1, y: 0, width: 1, height: 2},
	}},
	{name: "Halle 204", description: "Lagerhalle 204", x: 0, y: 3, width: 3, height: 2, color: "#ec4899"},
	{name: "Halle 205", description: "Lagerhalle 205", x: 4, y: 3, width: 3, height: 2, color: "#14b8a6"},
}

var demoProducts = []seedProduct{
	{"Feuermaxx 3kg", "FM3", "#ef4444", ""},
	{"Feuermaxx 2kg", "FM2", "#ef4444", ""},
	{"Feuermaxx 1kg", "FM1", "#ef4444", ""},
	{"Landi 2kg", "L2", "#22c55e", ""},
	{"Landi 1.5kg", "L15", "#22c55e", ""},
	{"Landi 1kg", "L1", "#22c55e", ""},
	{"Hellson 600g", "H600", "#3b82f6", ""},
	{"Hellson 400g", "H400", "#3b82f6", ""},
	{"Hellson 200g", "H200", "#3b82f6", ""},
	{"Jumbo 5kg", "J5", "#8b5cf6", ""},
	{"Jumbo 3kg", "J3", "#8b5cf6", ""},
	{"Eco Starter 2kg", "ES2", "#10b981", ""},
	{"Eco Starter 1kg", "ES1", "#10b981", ""},
	{"Profi 4kg", "P4", "#f97316", ""},
	{"Profi 2.5kg", "P25", "#f97316", ""},
	{"Kamin-Set Premium", "KSP", "#ec4899", ""},
	{"Grillanzünder Würfel", "GAW", "#06b6d4", ""},
	{"Holzwolle natur", "HWN", "#84cc16", models.CategoryRaw},
	{"Wachs-Rollen", "WR", "#eab308", models.CategoryIntermediate},
	{"Outdoor Mix", "OM", "#64748b", ""},
}

// Seed creates the demo floor plan and product catalog. A database that
// already has locations is left untouched.
func Seed(ctx context.Context, db *gorm.DB, log *zap.Logger) (*SeedResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var existing int64
	if err := db.WithContext(ctx).Model(&models.StorageLocation{}).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("count locations: %w", err)
	}
	if existing > 0 {
		log.Info("database already has locations, skipping seed", zap.Int64("locations", existing))
		return &SeedResult{Skipped: true}, nil
	}

	res := &SeedResult{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, area := range demoFloorPlan {
			parent, err := createSeedLocation(tx, area, nil, area.color)
			if err != nil {
				return err
			}
			res.Areas++
			for _, sub := range area.children {
				if _, err := createSeedLocation(tx, sub, &parent.ID, area.color); err != nil {
					return err
				}
				res.SubLocations++
			}
		}
		for _, p := range demoProducts {
			code, color := p.code, p.color
			product := models.ProductVariant{Name: p.name, Code: &code, Color: &color, Category: p.category, IsActive: true}
			if err := tx.Create(&product).Error; err != nil {
				return fmt.Errorf("create product %s: %w", p.name, err)
			}
			res.Products++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info("seeding complete",
		zap.Int("areas", res.Areas),
		zap.Int("sub_locations", res.SubLocations),
		zap.Int("products", res.Products),
	)
	return res, nil
}

func createSeedLocation(tx *gorm.DB, s seedLocation, parentID *string, color string) (*models.StorageLocation, error) {
	desc := s.description
	loc := models.StorageLocation{
		Name:        s.name,
		Description: &desc,
		ParentID:    parentID,
		X:           s.x,
		Y:           s.y,
		Width:       s.width,
		Height:      s.height,
		Color:       &color,
		IsActive:    true,
	}
	if err := tx.Create(&loc).Error; err != nil {
		return nil, fmt.Errorf("create location %s: %w", s.name, err)
	}
	return &loc, nil
}

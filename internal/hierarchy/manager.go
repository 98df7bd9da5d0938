// Package hierarchy maintains the tree of storage locations and computes
// capacity and stock roll-ups without storing aggregate values.
package hierarchy

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/xelth-com/iditgo/internal/errs"
	"github.com/xelth-com/iditgo/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Manager owns writes to storage_locations
type Manager struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewManager creates a location manager
func NewManager(db *gorm.DB, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{db: db, logger: logger}
}

// ListFilter narrows List. RootsOnly wins over ParentID.
type ListFilter struct {
	ParentID        string
	RootsOnly       bool
	IncludeChildren bool
}

// CreateInput is the payload of Create
type CreateInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	ParentID    *string `json:"parentId"`
	X           *int    `json:"x"`
	Y           *int    `json:"y"`
	Width       *int    `json:"width"`
	Height      *int    `json:"height"`
	Color       *string `json:"color"`
	Capacity    *int    `json:"capacity"`
}

// UpdateInput is a patch; absent fields are left alone
type UpdateInput struct {
	Name        *string                 `json:"name"`
	Description models.Optional[string] `json:"description"`
	X           *int                    `json:"x"`
	Y           *int                    `json:"y"`
	Width       *int                    `json:"width"`
	Height      *int                    `json:"height"`
	Color       models.Optional[string] `json:"color"`
	IsActive    *bool                   `json:"isActive"`
	Capacity    models.Optional[int]    `json:"capacity"`
	ParentID    models.Optional[string] `json:"parentId"`
}

// LoadTree reads all live locations into a Tree
func LoadTree(ctx context.Context, db *gorm.DB) (*Tree, error) {
	var locs []models.StorageLocation
	if err := db.WithContext(ctx).Find(&locs).Error; err != nil {
		return nil, errs.Persistence("load locations", err)
	}
	return NewTree(locs), nil
}

// Tree returns the current location tree
func (m *Manager) Tree(ctx context.Context) (*Tree, error) {
	return LoadTree(ctx, m.db)
}

// List returns locations ordered by floor-plan position (y, then x) with
// child counts.
func (m *Manager) List(ctx context.Context, f ListFilter) ([]models.StorageLocation, error) {
	tree, err := m.Tree(ctx)
	if err != nil {
		return nil, err
	}

	var ids []string
	switch {
	case f.RootsOnly:
		ids = tree.Roots()
	case f.ParentID != "":
		ids = tree.Children(f.ParentID)
	default:
		for id := range tree.nodes {
			ids = append(ids, id)
		}
	}

	out := make([]models.StorageLocation, 0, len(ids))
	for _, id := range ids {
		loc := *tree.Node(id)
		loc.ChildCount = len(tree.children[id])
		if f.IncludeChildren {
			for _, c := range tree.Children(id) {
				child := *tree.Node(c)
				child.ChildCount = len(tree.children[c])
				loc.Children = append(loc.Children, child)
			}
		}
		out = append(out, loc)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Get returns one location
func (m *Manager) Get(ctx context.Context, id string) (*models.StorageLocation, error) {
	var loc models.StorageLocation
	if err := m.db.WithContext(ctx).First(&loc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("location not found")
		}
		return nil, errs.Persistence("load location", err)
	}
	return &loc, nil
}

// Rollup returns the location with its aggregated capacity and stock
func (m *Manager) Rollup(ctx context.Context, id string) (*Rollup, error) {
	tree, rows, err := m.treeWithStock(ctx)
	if err != nil {
		return nil, err
	}
	if !tree.Has(id) {
		return nil, errs.NotFound("location not found")
	}
	r := tree.Rollup(id, rows)
	return &r, nil
}

// Forest returns every root with nested roll-ups
func (m *Manager) Forest(ctx context.Context) ([]Rollup, error) {
	tree, rows, err := m.treeWithStock(ctx)
	if err != nil {
		return nil, err
	}
	return tree.Forest(rows), nil
}

func (m *Manager) treeWithStock(ctx context.Context) (*Tree, []models.CurrentInventory, error) {
	tree, err := m.Tree(ctx)
	if err != nil {
		return nil, nil, err
	}
	var rows []models.CurrentInventory
	if err := m.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, nil, errs.Persistence("load inventory", err)
	}
	return tree, rows, nil
}

// Create adds a root location or a child of an existing one
func (m *Manager) Create(ctx context.Context, in CreateInput) (*models.StorageLocation, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errs.Validation("name is required")
	}
	if in.Capacity != nil && *in.Capacity < 0 {
		return nil, errs.Validation("capacity must not be negative")
	}
	if err := validateSize(in.Width, in.Height); err != nil {
		return nil, err
	}

	loc := models.StorageLocation{
		Name:        name,
		Description: blankToNil(in.Description),
		ParentID:    blankToNil(in.ParentID),
		X:           intOr(in.X, 0),
		Y:           intOr(in.Y, 0),
		Width:       intOr(in.Width, 1),
		Height:      intOr(in.Height, 1),
		Color:       blankToNil(in.Color),
		Capacity:    in.Capacity,
		IsActive:    true,
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tree, err := LoadTree(ctx, tx)
		if err != nil {
			return err
		}
		if loc.ParentID != nil {
			if err := checkParent(tree, "", *loc.ParentID); err != nil {
				return err
			}
			if err := checkParentStock(tx, *loc.ParentID); err != nil {
				return err
			}
		}
		if err := checkSiblingName(tree, loc.ParentID, name, ""); err != nil {
			return err
		}
		if err := tx.Create(&loc).Error; err != nil {
			return errs.Persistence("create location", err)
		}
		return nil
	})
	if err != nil {
		m.logFailure("create location", err)
		return nil, err
	}
	m.logger.Info("location created", zap.String("id", loc.ID), zap.String("name", loc.Name))
	return &loc, nil
}

// Update applies a patch. Capacity and parent changes follow SetCapacity and
// SetParent rules; every check runs before the single write.
func (m *Manager) Update(ctx context.Context, id string, in UpdateInput) (*models.StorageLocation, error) {
	if err := validateSize(in.Width, in.Height); err != nil {
		return nil, err
	}

	var loc models.StorageLocation
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tree, err := LoadTree(ctx, tx)
		if err != nil {
			return err
		}
		node := tree.Node(id)
		if node == nil {
			return errs.NotFound("location not found")
		}

		updates := map[string]interface{}{}
		parentID := node.ParentID
		name := node.Name

		if in.ParentID.Set {
			parentID = nil
			if in.ParentID.Value != nil && *in.ParentID.Value != "" {
				parentID = in.ParentID.Value
				if err := checkParent(tree, id, *parentID); err != nil {
					return err
				}
				if err := checkParentStock(tx, *parentID); err != nil {
					return err
				}
			}
			updates["parent_id"] = parentID
		}
		if in.Name != nil {
			name = strings.TrimSpace(*in.Name)
			if name == "" {
				return errs.Validation("name is required")
			}
			updates["name"] = name
		}
		if in.Name != nil || in.ParentID.Set {
			if err := checkSiblingName(tree, parentID, name, id); err != nil {
				return err
			}
		}
		if in.Capacity.Set {
			if err := checkCapacity(tree, id, in.Capacity.Value); err != nil {
				return err
			}
			updates["capacity"] = in.Capacity.Value
		}
		if in.Description.Set {
			updates["description"] = blankToNil(in.Description.Value)
		}
		if in.Color.Set {
			updates["color"] = blankToNil(in.Color.Value)
		}
		if in.X != nil {
			updates["x"] = *in.X
		}
		if in.Y != nil {
			updates["y"] = *in.Y
		}
		if in.Width != nil {
			updates["width"] = *in.Width
		}
		if in.Height != nil {
			updates["height"] = *in.Height
		}
		if in.IsActive != nil {
			updates["is_active"] = *in.IsActive
		}

		if len(updates) > 0 {
			if err := tx.Model(&models.StorageLocation{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return errs.Persistence("update location", err)
			}
		}
		if err := tx.First(&loc, "id = ?", id).Error; err != nil {
			return errs.Persistence("load location", err)
		}
		return nil
	})
	if err != nil {
		m.logFailure("update location", err)
		return nil, err
	}
	return &loc, nil
}

// SetParent moves id under parentID, or makes it a root when parentID is nil.
// Moving a location under itself or one of its descendants is a CycleError.
func (m *Manager) SetParent(ctx context.Context, id string, parentID *string) error {
	in := UpdateInput{ParentID: models.Null[string]()}
	if parentID != nil {
		in.ParentID = models.Some(*parentID)
	}
	_, err := m.Update(ctx, id, in)
	return err
}

// SetCapacity sets or clears (nil) the capacity of a leaf location
func (m *Manager) SetCapacity(ctx context.Context, id string, capacity *int) error {
	in := UpdateInput{Capacity: models.Null[int]()}
	if capacity != nil {
		in.Capacity = models.Some(*capacity)
	}
	_, err := m.Update(ctx, id, in)
	return err
}

// Delete removes a location without children. Inventory log rows keep
// referencing it since the delete is soft.
func (m *Manager) Delete(ctx context.Context, id string) error {
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tree, err := LoadTree(ctx, tx)
		if err != nil {
			return err
		}
		if !tree.Has(id) {
			return errs.NotFound("location not found")
		}
		if !tree.IsLeaf(id) {
			return errs.HasChildren("location has sub-locations, delete them first")
		}
		if err := tx.Delete(&models.StorageLocation{}, "id = ?", id).Error; err != nil {
			return errs.Persistence("delete location", err)
		}
		return nil
	})
	if err != nil {
		m.logFailure("delete location", err)
		return err
	}
	m.logger.Info("location deleted", zap.String("id", id))
	return nil
}

func (m *Manager) logFailure(op string, err error) {
	if errors.Is(err, errs.ErrPersistence) {
		m.logger.Error(op+" failed", zap.Error(err))
		return
	}
	m.logger.Debug(op+" rejected", zap.Error(err))
}

// checkParent validates parentID as the new parent of id ("" for a new node)
func checkParent(tree *Tree, id, parentID string) error {
	parent := tree.Node(parentID)
	if parent == nil {
		return errs.Validation("parent location not found")
	}
	if id != "" && tree.IsAncestorOrSelf(id, parentID) {
		return errs.Cycle("a location cannot be moved under itself or one of its sub-locations")
	}
	if parent.Capacity != nil {
		return errs.InvalidOperation("parent %q has a capacity; clear it before adding sub-locations", parent.Name)
	}
	return nil
}

// checkParentStock rejects a parent that still holds inventory. Roll-ups only
// count stock on leaves, so that stock would drop out of every total.
func checkParentStock(tx *gorm.DB, parentID string) error {
	var count int64
	err := tx.Model(&models.CurrentInventory{}).
		Where("location_id = ? AND quantity > 0", parentID).
		Where("product_id IN (SELECT id FROM product_variants WHERE deleted_at IS NULL)").
		Count(&count).Error
	if err != nil {
		return errs.Persistence("check parent inventory", err)
	}
	if count > 0 {
		return errs.InvalidOperation("parent location still holds inventory; move or zero it before adding sub-locations")
	}
	return nil
}

func checkCapacity(tree *Tree, id string, capacity *int) error {
	if !tree.IsLeaf(id) {
		return errs.InvalidOperation("capacity can only be set on locations without sub-locations")
	}
	if capacity != nil && *capacity < 0 {
		return errs.Validation("capacity must not be negative")
	}
	return nil
}

// checkSiblingName rejects a name already used by another child of parentID
func checkSiblingName(tree *Tree, parentID *string, name, selfID string) error {
	siblings := tree.Roots()
	if parentID != nil {
		siblings = tree.Children(*parentID)
	}
	for _, s := range siblings {
		if s != selfID && strings.EqualFold(tree.Node(s).Name, name) {
			return errs.InvalidField("name", "a location with this name already exists in this area")
		}
	}
	return nil
}

func validateSize(width, height *int) error {
	if (width != nil && *width < 1) || (height != nil && *height < 1) {
		return errs.Validation("width and height must be at least 1")
	}
	return nil
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/xelth-com/iditgo/internal/errs"
	"github.com/xelth-com/iditgo/internal/models"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultSnapshotLimit = 50

// SnapshotInput describes a snapshot to take. Without entries the current
// inventory is materialized. TakenByID is nil for scheduled snapshots.
type SnapshotInput struct {
	TakenByID *string `json:"-"`
	Notes     *string `json:"notes"`
	Entries   []Entry `json:"entries"`
	Source    string  `json:"-"`
}

// SnapshotProductTotal is one line of the snapshot summary
type SnapshotProductTotal struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

// SnapshotSummary is stored with the snapshot header
type SnapshotSummary struct {
	TotalQuantity int                    `json:"totalQuantity"`
	Locations     int                    `json:"locations"`
	Products      []SnapshotProductTotal `json:"products"`
}

// CreateSnapshot stores an immutable bundle of quantities
func (s *Service) CreateSnapshot(ctx context.Context, in SnapshotInput) (*models.InventorySnapshot, error) {
	source := in.Source
	if source == "" {
		source = models.SnapshotManual
	}

	var snap models.InventorySnapshot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.TakenByID != nil {
			if err := s.checkUser(ctx, tx, *in.TakenByID); err != nil {
				return err
			}
		}

		var entries []models.InventoryEntry
		if len(in.Entries) > 0 {
			if err := validateEntries(in.Entries); err != nil {
				return err
			}
			if err := checkReferences(tx, in.Entries); err != nil {
				return err
			}
			for _, e := range in.Entries {
				entries = append(entries, models.InventoryEntry{
					LocationID: e.LocationID,
					ProductID:  e.ProductID,
					Quantity:   *e.Quantity,
				})
			}
		} else {
			var rows []models.CurrentInventory
			if err := LiveInventory(tx).Find(&rows).Error; err != nil {
				return errs.Persistence("load inventory", err)
			}
			for _, r := range rows {
				entries = append(entries, models.InventoryEntry{
					LocationID: r.LocationID,
					ProductID:  r.ProductID,
					Quantity:   r.Quantity,
				})
			}
		}

		summary, err := summarizeEntries(tx, entries)
		if err != nil {
			return err
		}

		snap = models.InventorySnapshot{
			TakenAt:   s.now().UTC(),
			TakenByID: in.TakenByID,
			Notes:     trimmed(in.Notes),
			Source:    source,
			Summary:   summary,
			Entries:   entries,
		}
		if err := tx.Create(&snap).Error; err != nil {
			return errs.Persistence("create snapshot", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errs.ErrPersistence) {
			s.logger.Error("create snapshot failed", zap.Error(err))
		}
		return nil, err
	}

	s.metrics.ObserveSnapshot(source)
	s.logger.Info("snapshot created",
		zap.String("id", snap.ID),
		zap.String("source", source),
		zap.Int("entries", len(snap.Entries)),
	)
	if s.notifier != nil {
		s.notifier.Broadcast(EventSnapshotCreated, map[string]interface{}{
			"id":      snap.ID,
			"source":  source,
			"entries": len(snap.Entries),
		})
	}
	return s.GetSnapshot(ctx, snap.ID)
}

// GetSnapshot returns one snapshot with its entries
func (s *Service) GetSnapshot(ctx context.Context, id string) (*models.InventorySnapshot, error) {
	var snap models.InventorySnapshot
	err := s.db.WithContext(ctx).
		Preload("TakenBy", unscoped).
		Preload("Entries").
		Preload("Entries.Location", unscoped).
		Preload("Entries.Product", unscoped).
		Take(&snap, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("snapshot not found")
		}
		return nil, errs.Persistence("load snapshot", err)
	}
	snap.EntryCount = len(snap.Entries)
	return &snap, nil
}

// ListSnapshots returns snapshot headers newest first with entry counts
func (s *Service) ListSnapshots(ctx context.Context, limit int) ([]models.InventorySnapshot, error) {
	if limit <= 0 {
		limit = defaultSnapshotLimit
	}

	var snaps []models.InventorySnapshot
	err := s.db.WithContext(ctx).
		Preload("TakenBy", unscoped).
		Order("taken_at DESC").
		Limit(limit).
		Find(&snaps).Error
	if err != nil {
		return nil, errs.Persistence("load snapshots", err)
	}
	if len(snaps) == 0 {
		return snaps, nil
	}

	ids := make([]string, len(snaps))
	for i, sn := range snaps {
		ids[i] = sn.ID
	}
	var counts []struct {
		SnapshotID string
		Count      int
	}
	err = s.db.WithContext(ctx).Model(&models.InventoryEntry{}).
		Select("snapshot_id, COUNT(*) AS count").
		Where("snapshot_id IN ?", ids).
		Group("snapshot_id").
		Scan(&counts).Error
	if err != nil {
		return nil, errs.Persistence("count snapshot entries", err)
	}
	byID := make(map[string]int, len(counts))
	for _, c := range counts {
		byID[c.SnapshotID] = c.Count
	}
	for i := range snaps {
		snaps[i].EntryCount = byID[snaps[i].ID]
	}
	return snaps, nil
}

func summarizeEntries(tx *gorm.DB, entries []models.InventoryEntry) (datatypes.JSON, error) {
	sum := SnapshotSummary{Products: []SnapshotProductTotal{}}
	totals := make(map[string]int)
	locations := make(map[string]bool)
	for _, e := range entries {
		sum.TotalQuantity += e.Quantity
		totals[e.ProductID] += e.Quantity
		locations[e.LocationID] = true
	}
	sum.Locations = len(locations)

	if len(totals) > 0 {
		ids := make([]string, 0, len(totals))
		for id := range totals {
			ids = append(ids, id)
		}
		var products []models.ProductVariant
		if err := tx.Unscoped().Where("id IN ?", ids).Find(&products).Error; err != nil {
			return nil, errs.Persistence("load products", err)
		}
		for _, p := range products {
			sum.Products = append(sum.Products, SnapshotProductTotal{ProductID: p.ID, Name: p.Name, Quantity: totals[p.ID]})
		}
		sort.Slice(sum.Products, func(i, j int) bool {
			if sum.Products[i].Quantity != sum.Products[j].Quantity {
				return sum.Products[i].Quantity > sum.Products[j].Quantity
			}
			return sum.Products[i].Name < sum.Products[j].Name
		})
	}

	raw, err := json.Marshal(sum)
	if err != nil {
		return nil, errs.Persistence("encode snapshot summary", err)
	}
	return datatypes.JSON(raw), nil
}

func trimmed(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

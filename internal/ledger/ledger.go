// Package ledger applies inventory observations. CurrentInventory holds the
// latest quantity per (location, product); InventoryLog records every change.
// Snapshots and historical states are derived from these two tables.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xelth-com/iditgo/internal/errs"
	"github.com/xelth-com/iditgo/internal/metrics"
	"github.com/xelth-com/iditgo/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Event names passed to the Notifier
const (
	EventInventoryUpdated = "inventory.updated"
	EventSnapshotCreated  = "snapshot.created"
)

// Notifier receives events after a successful commit
type Notifier interface {
	Broadcast(event string, payload interface{})
}

// Options configures a Service. Zero values are usable.
type Options struct {
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Notifier Notifier
	Clock    func() time.Time
}

// Service is the inventory ledger
type Service struct {
	db       *gorm.DB
	logger   *zap.Logger
	metrics  *metrics.Metrics
	notifier Notifier
	now      func() time.Time
}

// NewService creates a ledger service
func NewService(db *gorm.DB, opts Options) *Service {
	s := &Service{
		db:       db,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		notifier: opts.Notifier,
		now:      opts.Clock,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Entry is one observation: quantity of product at location. Quantity is a
// pointer so a missing field can be told apart from zero.
type Entry struct {
	LocationID string `json:"locationId"`
	ProductID  string `json:"productId"`
	Quantity   *int   `json:"quantity"`
}

// AppliedEntry is the resulting row of one entry
type AppliedEntry struct {
	models.CurrentInventory
	PreviousQty *int `json:"previousQty"`
	Changed     bool `json:"changed"`
}

// ApplyResult reports a committed batch
type ApplyResult struct {
	Entries []AppliedEntry `json:"entries"`
	Applied int            `json:"applied"`
	Changed int            `json:"changed"`
}

// UpdateEvent is broadcast after a batch commits
type UpdateEvent struct {
	UserID      string   `json:"userId"`
	Applied     int      `json:"applied"`
	Changed     int      `json:"changed"`
	LocationIDs []string `json:"locationIds"`
}

// ApplyEntries records a batch of observations by actingUserID in one
// transaction. A quantity differing from the stored one (or a first
// observation) appends a log row; an unchanged quantity only refreshes the
// check timestamp and checker.
func (s *Service) ApplyEntries(ctx context.Context, entries []Entry, actingUserID string) (*ApplyResult, error) {
	res, err := s.applyEntries(ctx, entries, actingUserID)
	if err != nil {
		if errors.Is(err, errs.ErrPersistence) {
			s.logger.Error("apply entries failed", zap.String("user_id", actingUserID), zap.Error(err))
		} else {
			s.logger.Debug("apply entries rejected", zap.String("user_id", actingUserID), zap.Error(err))
		}
		s.metrics.ObserveBatch(0, 0, err)
		return nil, err
	}

	s.metrics.ObserveBatch(res.Applied, res.Changed, nil)
	s.logger.Info("inventory applied",
		zap.String("user_id", actingUserID),
		zap.Int("applied", res.Applied),
		zap.Int("changed", res.Changed),
	)
	if s.notifier != nil {
		s.notifier.Broadcast(EventInventoryUpdated, UpdateEvent{
			UserID:      actingUserID,
			Applied:     res.Applied,
			Changed:     res.Changed,
			LocationIDs: locationIDs(entries),
		})
	}
	return res, nil
}

func (s *Service) applyEntries(ctx context.Context, entries []Entry, actingUserID string) (*ApplyResult, error) {
	if err := s.checkUser(ctx, s.db, actingUserID); err != nil {
		return nil, err
	}
	if err := validateEntries(entries); err != nil {
		return nil, err
	}

	res := &ApplyResult{Entries: make([]AppliedEntry, 0, len(entries))}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkReferences(tx, entries); err != nil {
			return err
		}
		for _, e := range entries {
			applied, err := s.applyOne(tx, e, actingUserID)
			if err != nil {
				return err
			}
			res.Entries = append(res.Entries, *applied)
			if applied.Changed {
				res.Changed++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Applied = len(res.Entries)
	return res, nil
}

func (s *Service) applyOne(tx *gorm.DB, e Entry, userID string) (*AppliedEntry, error) {
	now := s.now().UTC()
	qty := *e.Quantity

	var row models.CurrentInventory
	err := tx.Where("location_id = ? AND product_id = ?", e.LocationID, e.ProductID).Take(&row).Error
	found := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Persistence("load current inventory", err)
	}

	var previous *int
	if found {
		q := row.Quantity
		previous = &q
	}
	changed := previous == nil || *previous != qty

	if changed {
		entry := models.InventoryLog{
			LocationID:  e.LocationID,
			ProductID:   e.ProductID,
			PreviousQty: previous,
			NewQty:      qty,
			ChangedByID: userID,
			ChangedAt:   now,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return nil, errs.Persistence("write inventory log", err)
		}
	}

	if found {
		err = tx.Model(&row).Updates(map[string]interface{}{
			"quantity":           qty,
			"last_checked_at":    now,
			"last_checked_by_id": userID,
		}).Error
	} else {
		row = models.CurrentInventory{
			LocationID:      e.LocationID,
			ProductID:       e.ProductID,
			Quantity:        qty,
			LastCheckedAt:   now,
			LastCheckedByID: userID,
		}
		err = tx.Create(&row).Error
	}
	if err != nil {
		return nil, errs.Persistence("save current inventory", err)
	}

	if err := tx.Preload("Location").Preload("Product").Take(&row, "id = ?", row.ID).Error; err != nil {
		return nil, errs.Persistence("load current inventory", err)
	}
	return &AppliedEntry{CurrentInventory: row, PreviousQty: previous, Changed: changed}, nil
}

// checkUser fails with an AuthenticationError unless id names an active user
func (s *Service) checkUser(ctx context.Context, db *gorm.DB, id string) error {
	if strings.TrimSpace(id) == "" {
		return errs.Authentication("user session invalid, please log in again")
	}
	var count int64
	err := db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND is_active = ?", id, true).
		Count(&count).Error
	if err != nil {
		return errs.Persistence("verify user", err)
	}
	if count == 0 {
		return errs.Authentication("user session invalid, please log in again")
	}
	return nil
}

func validateEntries(entries []Entry) error {
	if len(entries) == 0 {
		return errs.Validation("at least one inventory entry is required")
	}
	seen := make(map[[2]string]int, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.LocationID) == "" || strings.TrimSpace(e.ProductID) == "" || e.Quantity == nil {
			return errs.Validation("entry %d: each entry must have locationId, productId and quantity", i+1)
		}
		if *e.Quantity < 0 {
			return errs.Validation("entry %d: quantity must not be negative", i+1)
		}
		// one observation per pair, otherwise a resubmitted batch logs changes again
		key := [2]string{e.LocationID, e.ProductID}
		if first, ok := seen[key]; ok {
			return errs.Validation("entry %d: same location and product as entry %d", i+1, first)
		}
		seen[key] = i + 1
	}
	return nil
}

// checkReferences rejects entries naming unknown or deleted locations/products
func checkReferences(tx *gorm.DB, entries []Entry) error {
	locIDs := uniq(entries, func(e Entry) string { return e.LocationID })
	prodIDs := uniq(entries, func(e Entry) string { return e.ProductID })

	missingLoc, err := missingIDs(tx, &models.StorageLocation{}, locIDs)
	if err != nil {
		return errs.Persistence("verify locations", err)
	}
	missingProd, err := missingIDs(tx, &models.ProductVariant{}, prodIDs)
	if err != nil {
		return errs.Persistence("verify products", err)
	}
	for i, e := range entries {
		if missingLoc[e.LocationID] {
			return errs.InvalidField("locationId", "entry %d: unknown location", i+1)
		}
		if missingProd[e.ProductID] {
			return errs.InvalidField("productId", "entry %d: unknown product", i+1)
		}
	}
	return nil
}

func missingIDs(tx *gorm.DB, model interface{}, ids []string) (map[string]bool, error) {
	var found []string
	if err := tx.Model(model).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(found))
	for _, id := range found {
		have[id] = true
	}
	missing := make(map[string]bool)
	for _, id := range ids {
		if !have[id] {
			missing[id] = true
		}
	}
	return missing, nil
}

func uniq(entries []Entry, key func(Entry) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range entries {
		k := key(e)
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

func locationIDs(entries []Entry) []string {
	return uniq(entries, func(e Entry) string { return e.LocationID })
}

// Message is the human readable outcome of a batch
func (r *ApplyResult) Message() string {
	return fmt.Sprintf("%d entries saved, %d changes logged", r.Applied, r.Changed)
}

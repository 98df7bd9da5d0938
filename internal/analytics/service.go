package analytics

import (
	"context"
	"time"

	"github.com/xelth-com/iditgo/internal/errs"
	"github.com/xelth-com/iditgo/internal/ledger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service loads analytics inputs from the database
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates an analytics service. clock may be nil.
func NewService(db *gorm.DB, logger *zap.Logger, clock func() time.Time) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Service{db: db, logger: logger, now: clock}
}

// Build loads the inputs and computes the bundle
func (s *Service) Build(ctx context.Context) (*Bundle, error) {
	now := s.now().UTC()
	in, err := s.load(ctx, now)
	if err != nil {
		s.logger.Error("load analytics failed", zap.Error(err))
		return nil, err
	}
	b := Compute(*in, now)
	return &b, nil
}

func (s *Service) load(ctx context.Context, now time.Time) (*Input, error) {
	db := s.db.WithContext(ctx)
	var in Input

	if err := ledger.LiveInventory(db).Preload("Product").Find(&in.Inventory).Error; err != nil {
		return nil, errs.Persistence("load inventory", err)
	}
	if err := db.Find(&in.Locations).Error; err != nil {
		return nil, errs.Persistence("load locations", err)
	}
	if err := db.Order("name ASC").Find(&in.Products).Error; err != nil {
		return nil, errs.Persistence("load products", err)
	}
	err := ledger.LiveLogs(db).
		Where("inventory_logs.changed_at >= ?", now.Add(-historyWindow)).
		Preload("ChangedBy", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Order("changed_at ASC").
		Find(&in.Logs).Error
	if err != nil {
		return nil, errs.Persistence("load inventory logs", err)
	}
	return &in, nil
}

package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/xelth-com/iditgo/internal/ledger"
	"github.com/xelth-com/iditgo/internal/models"
)

const snapshotTimeout = 2 * time.Minute

// SnapshotTaker is the part of the ledger the scheduler drives
type SnapshotTaker interface {
	CreateSnapshot(ctx context.Context, in ledger.SnapshotInput) (*models.InventorySnapshot, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron   *cron.Cron
	spec   string
	ledger SnapshotTaker
	logger *zap.Logger
}

// NewScheduler creates a scheduler taking snapshots on spec (standard 5-field
// cron). An empty spec yields a scheduler that does nothing.
func NewScheduler(spec string, taker SnapshotTaker, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		spec:   strings.TrimSpace(spec),
		ledger: taker,
		logger: logger,
	}
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	if s.spec == "" {
		s.logger.Info("scheduled snapshots disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.spec, s.TakeSnapshot); err != nil {
		return err
	}
	s.logger.Info("starting scheduler", zap.String("snapshot_cron", s.spec))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// TakeSnapshot materializes the current inventory as a scheduled snapshot.
func (s *Scheduler) TakeSnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	snap, err := s.ledger.CreateSnapshot(ctx, ledger.SnapshotInput{Source: models.SnapshotScheduled})
	if err != nil {
		s.logger.Error("failed to take scheduled snapshot", zap.Error(err))
		return
	}
	s.logger.Info("scheduled snapshot taken", zap.String("id", snap.ID), zap.Int("entries", len(snap.Entries)))
}

package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/refdata/internal/metrics"
	"github.com/Checker-Finance/refdata/internal/refdata"
	"github.com/Checker-Finance/refdata/pkg/model"
)

// Mirror is the subset of store.Store the syncer writes to.
type Mirror interface {
	SyncSnapshot(ctx context.Context, snap *refdata.Snapshot) error
}

// EventPublisher announces a synced snapshot.
type EventPublisher interface {
	PublishSnapshotLoaded(ctx context.Context, ev model.SnapshotLoaded) error
}

// SnapshotSyncer periodically re-mirrors the snapshot and republishes the
// snapshot_loaded event. Either target may be nil.
type SnapshotSyncer struct {
	logger    *zap.Logger
	snap      *refdata.Snapshot
	mirror    Mirror
	publisher EventPublisher
	interval  time.Duration
	stopCh    chan struct{}
	stopOnce  sync.Once
}

func NewSnapshotSyncer(logger *zap.Logger, snap *refdata.Snapshot, mirror Mirror, pub EventPublisher, interval time.Duration) *SnapshotSyncer {
	return &SnapshotSyncer{
		logger:    logger,
		snap:      snap,
		mirror:    mirror,
		publisher: pub,
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

// Start runs the sync loop until Stop or ctx cancellation. A non-positive
// interval returns immediately.
func (s *SnapshotSyncer) Start(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("snapshot_syncer.started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ticker.C:
			_ = s.RunOnce(ctx)
		case <-s.stopCh:
			s.logger.Info("snapshot_syncer.stopped", zap.String("reason", "manual stop"))
			return
		case <-ctx.Done():
			s.logger.Info("snapshot_syncer.stopped", zap.String("reason", "context canceled"))
			return
		}
	}
}

// Stop halts the loop. It is safe to call more than once.
func (s *SnapshotSyncer) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// RunOnce mirrors then publishes. A failed mirror skips the publish.
func (s *SnapshotSyncer) RunOnce(ctx context.Context) error {
	start := time.Now()

	if s.mirror != nil {
		if err := s.mirror.SyncSnapshot(ctx, s.snap); err != nil {
			s.logger.Error("snapshot_syncer.mirror_failed", zap.Error(err))
			metrics.IncError("jobs", "mirror_failed")
			return err
		}
		metrics.SetLastSync(time.Now())
	}

	var err error
	if s.publisher != nil {
		if err = s.publisher.PublishSnapshotLoaded(ctx, snapshotLoaded(s.snap)); err != nil {
			s.logger.Warn("snapshot_syncer.publish_failed", zap.Error(err))
			metrics.IncError("jobs", "publish_failed")
		}
	}

	s.logger.Info("snapshot_syncer.success",
		zap.String("snapshot_id", s.snap.ID.String()),
		zap.Bool("published", s.publisher != nil && err == nil),
		zap.Duration("duration", time.Since(start)))
	return err
}

func snapshotLoaded(snap *refdata.Snapshot) model.SnapshotLoaded {
	st := snap.Stats()
	return model.SnapshotLoaded{
		SnapshotID:   st.SnapshotID,
		LoadedAt:     st.LoadedAt,
		Tickers:      st.Tickers,
		Products:     st.Products,
		ProductInfos: st.ProductInfos,
		Sessions:     st.Sessions,
		Timezones:    st.Timezones,
	}
}

package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const defaultDrainInterval = 30 * time.Second

// QueueDrainer is what the scheduler drives; satisfied by *Drainer.
type QueueDrainer interface {
	DrainQueue(ctx context.Context, maxItems int) (DrainSummary, error)
}

// DrainScheduler periodically triggers a queue drain so the service is
// self-driving without an external timer.
type DrainScheduler struct {
	drainer   QueueDrainer
	logger    *zap.Logger
	interval  time.Duration
	batchSize int
}

func NewDrainScheduler(
	drainer QueueDrainer,
	interval time.Duration,
	batchSize int,
	logger *zap.Logger,
) (*DrainScheduler, error) {
	if interval <= 0 {
		interval = defaultDrainInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultDrainBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DrainScheduler{
		drainer:   drainer,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
	}, nil
}

func (s *DrainScheduler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Run an initial drain so already-due intents do not wait for the first
	// ticker edge.
	s.drainOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.drainOnce(ctx)
		}
	}
}

func (s *DrainScheduler) drainOnce(ctx context.Context) {
	summary, err := s.drainer.DrainQueue(ctx, s.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("scheduled drain failed", zap.Error(err))
		return
	}

	if summary.Processed > 0 || summary.Failed > 0 {
		s.logger.Info("scheduled drain finished",
			zap.Int("processed", summary.Processed),
			zap.Int("failed", summary.Failed),
		)
	}
}

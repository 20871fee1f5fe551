package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/tradepulse/push-pipeline/internal/domain"
	"github.com/tradepulse/push-pipeline/internal/repository"
	"go.uber.org/zap"
)

// UnreadStore is the cached-counter port the inbox reads through. Cache
// misses and failures fall back to the delivery record store.
type UnreadStore interface {
	UnreadCounter
	Get(ctx context.Context, recipientID string) (int64, bool, error)
	Set(ctx context.Context, recipientID string, count int64) error
}

// InboxService serves the recipient-facing history surface: unread counts
// and read acknowledgements.
type InboxService struct {
	records repository.DeliveryRecordRepository
	unread  UnreadStore
	logger  *zap.Logger
}

func NewInboxService(records repository.DeliveryRecordRepository, unread UnreadStore, logger *zap.Logger) (*InboxService, error) {
	if records == nil {
		return nil, fmt.Errorf("delivery record repository is required")
	}
	if unread == nil {
		return nil, fmt.Errorf("unread store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &InboxService{
		records: records,
		unread:  unread,
		logger:  logger,
	}, nil
}

// UnreadCount prefers the cached counter and rebuilds it from the store on a
// miss. A cache outage degrades to the COUNT query rather than an error.
func (s *InboxService) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		return 0, fmt.Errorf("%w: recipient id is required", domain.ErrValidation)
	}

	cached, ok, err := s.unread.Get(ctx, recipientID)
	if err != nil {
		s.logger.Warn("unread cache read failed, falling back to store",
			zap.String("recipientId", recipientID),
			zap.Error(err),
		)
	} else if ok {
		return cached, nil
	}

	count, err := s.records.UnreadCount(ctx, recipientID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread records: %w", err)
	}

	if err := s.unread.Set(ctx, recipientID, count); err != nil {
		s.logger.Warn("failed to rebuild unread cache",
			zap.String("recipientId", recipientID),
			zap.Error(err),
		)
	}

	return count, nil
}

// MarkRead flags the given history rows as read and decrements the cached
// counter by the number of rows actually flipped.
func (s *InboxService) MarkRead(ctx context.Context, recipientID string, recordIDs []string) (int64, error) {
	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		return 0, fmt.Errorf("%w: recipient id is required", domain.ErrValidation)
	}
	if len(recordIDs) == 0 {
		return 0, fmt.Errorf("%w: at least one record id is required", domain.ErrValidation)
	}

	marked, err := s.records.MarkRead(ctx, recipientID, recordIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to mark records read: %w", err)
	}

	if marked > 0 {
		if err := s.unread.Add(ctx, recipientID, -int(marked)); err != nil {
			s.logger.Warn("failed to decrement unread cache",
				zap.String("recipientId", recipientID),
				zap.Error(err),
			)
		}
	}

	return marked, nil
}

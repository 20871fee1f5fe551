package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tradepulse/push-pipeline/internal/domain"
	"github.com/tradepulse/push-pipeline/internal/repository"
	"go.uber.org/zap"
)

// IntentService is the producer-facing enqueue surface. Upstream detectors
// (whale trades, KOL mirrors, portfolio alerts) create intents here; the
// drainer owns them afterwards.
type IntentService struct {
	intents repository.IntentRepository
	logger  *zap.Logger
}

func NewIntentService(intents repository.IntentRepository, logger *zap.Logger) (*IntentService, error) {
	if intents == nil {
		return nil, fmt.Errorf("intent repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &IntentService{
		intents: intents,
		logger:  logger,
	}, nil
}

func (s *IntentService) Create(ctx context.Context, intent *domain.Intent) (*domain.Intent, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if intent == nil {
		return nil, fmt.Errorf("%w: intent is required", domain.ErrValidation)
	}

	intent.ID = strings.TrimSpace(intent.ID)
	if intent.ID == "" {
		intent.ID = uuid.NewString()
	}
	intent.Title = strings.TrimSpace(intent.Title)
	intent.Body = strings.TrimSpace(intent.Body)
	if intent.Category == "" {
		intent.Category = domain.CategorySystem
	}

	intent.Status = domain.IntentPending
	intent.ProcessedCount = 0
	intent.FailedCount = 0
	intent.ErrorMessage = nil
	if intent.ScheduledFor.IsZero() {
		intent.ScheduledFor = time.Now().UTC()
	}

	if err := intent.Validate(); err != nil {
		return nil, err
	}

	if err := s.intents.Create(ctx, intent); err != nil {
		return nil, err
	}

	s.logger.Info("intent enqueued",
		zap.String("intentId", intent.ID),
		zap.String("category", intent.Category.String()),
		zap.String("targetKind", intent.Target.Kind()),
	)
	return intent, nil
}

func (s *IntentService) GetByID(ctx context.Context, id string) (*domain.Intent, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: intent id is required", domain.ErrValidation)
	}
	return s.intents.GetByID(ctx, strings.TrimSpace(id))
}

func (s *IntentService) List(ctx context.Context, params repository.IntentListParams) ([]domain.Intent, int64, error) {
	return s.intents.List(ctx, params)
}

// Requeue puts a FAILED intent back into the queue. This is the operator
// action for intents that need another delivery attempt.
func (s *IntentService) Requeue(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: intent id is required", domain.ErrValidation)
	}
	return s.intents.Requeue(ctx, strings.TrimSpace(id), time.Now().UTC())
}
